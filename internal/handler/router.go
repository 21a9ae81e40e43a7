package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/middleware"
	"github.com/storyboard-lab/video-extraction-go/internal/stats"
)

// RouterConfig wires the handlers and middleware into one engine.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RouterConfig struct {
	Extraction *ExtractionHandler
	Health     *HealthHandler
	Auth       *middleware.APIKeyAuth
	Limiter    middleware.Limiter
	Metrics    *stats.Metrics
	Recorder   *stats.Recorder
}

// NewRouter builds the gin engine. The extraction endpoints go through API
// key authentication when keys are configured, and are rate limited.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(cfg.Metrics, cfg.Recorder),
		middleware.Recovery(),
	)

	var protected []gin.HandlerFunc
	if cfg.Auth != nil && cfg.Auth.Enabled() {
		protected = append(protected, cfg.Auth.Middleware())
	}
	limited := protected
	if cfg.Limiter != nil {
		limited = chain(protected, middleware.RateLimit(cfg.Limiter))
	}

	r.POST("/extract", chain(limited, cfg.Extraction.Extract)...)
	r.POST("/extract/batch", chain(limited, cfg.Extraction.ExtractBatch)...)
	r.DELETE("/cache", chain(protected, cfg.Extraction.InvalidateCache)...)

	r.GET("/health", cfg.Health.Health)
	r.GET("/supported-platforms", cfg.Health.SupportedPlatforms)
	r.GET("/stats", cfg.Health.Stats)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		middleware.RespondErrorWithStatus(c, http.StatusNotFound, apperr.New(apperr.CodeInvalidInput, "route not found"))
	})
	r.NoMethod(func(c *gin.Context) {
		middleware.RespondErrorWithStatus(c, http.StatusMethodNotAllowed, apperr.New(apperr.CodeInvalidInput, "method not allowed"))
	})

	return r
}

// chain returns a new slice of handlers followed by next.
func chain(handlers []gin.HandlerFunc, next gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers)+1)
	out = append(out, handlers...)
	return append(out, next)
}
