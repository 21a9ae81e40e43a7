package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/cache"
	"github.com/storyboard-lab/video-extraction-go/internal/middleware"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/internal/stats"
	"github.com/storyboard-lab/video-extraction-go/internal/validation"
)

// Dependency statuses reported by GET /health.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusDisabled  = "disabled"
)

const dependencyTimeout = 2 * time.Second

// DependencyCheck probes one dependency. A nil Check reports the dependency
// as disabled. A failing Critical dependency makes the service unhealthy.
type DependencyCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	stats.Snapshot
	Cache cache.Stats `json:"cache"`
}

// HealthHandler handles the health, capability and stats endpoints.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type HealthHandler struct {
	version     string
	recorder    *stats.Recorder
	cache       *cache.Cache
	limitations models.Limitations
	checks      []DependencyCheck
}

// NewHealthHandler creates a new HealthHandler instance.
func NewHealthHandler(version string, recorder *stats.Recorder, c *cache.Cache, limitations models.Limitations, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{
		version:     version,
		recorder:    recorder,
		cache:       c,
		limitations: limitations,
		checks:      checks,
	}
}

// Health handles GET /health. It answers 503 only when a critical
// dependency is unhealthy.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dependencyTimeout)
	defer cancel()

	deps, status := h.probe(ctx)

	resp := models.HealthResponse{
		Status:            status,
		Version:           h.version,
		Time:              time.Now().UTC(),
		UptimeSeconds:     int64(h.recorder.Uptime().Seconds()),
		Dependencies:      deps,
		RequestsProcessed: h.recorder.RequestsProcessed(),
		CacheHitRate:      h.cache.Stats().HitRate,
	}

	if status == StatusUnhealthy {
		body := models.NewErrorBody(apperr.New(apperr.CodeServiceUnavailable, "a critical dependency is unhealthy"))
		c.JSON(http.StatusServiceUnavailable, models.Envelope{
			Success:  false,
			Data:     resp,
			Error:    &body,
			Metadata: middleware.Metadata(c),
		})
		return
	}

	middleware.RespondSuccess(c, http.StatusOK, resp)
}

// probe runs every check concurrently.
func (h *HealthHandler) probe(ctx context.Context) (map[string]string, string) {
	deps := make(map[string]string, len(h.checks))
	status := StatusHealthy

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, check := range h.checks {
		if check.Check == nil {
			deps[check.Name] = StatusDisabled
			continue
		}
		wg.Add(1)
		go func(check DependencyCheck) {
			defer wg.Done()
			err := check.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				deps[check.Name] = StatusHealthy
				return
			}
			deps[check.Name] = StatusUnhealthy
			switch {
			case check.Critical:
				status = StatusUnhealthy
			case status == StatusHealthy:
				status = StatusDegraded
			}
		}(check)
	}
	wg.Wait()

	return deps, status
}

// SupportedPlatforms handles GET /supported-platforms.
func (h *HealthHandler) SupportedPlatforms(c *gin.Context) {
	middleware.RespondSuccess(c, http.StatusOK, models.SupportedPlatformsResponse{
		Platforms: []models.PlatformInfo{
			{
				Name:              string(models.PlatformTikTok),
				Domain:            "tiktok.com",
				SupportedFeatures: []string{"metadata", "thumbnail_analysis", "transcript"},
				URLPatterns:       validation.URLPatterns(),
			},
		},
		Limitations: h.limitations,
	})
}

// Stats handles GET /stats.
func (h *HealthHandler) Stats(c *gin.Context) {
	middleware.RespondSuccess(c, http.StatusOK, StatsResponse{
		Snapshot: h.recorder.Snapshot(),
		Cache:    h.cache.Stats(),
	})
}
