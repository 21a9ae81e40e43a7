package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/internal/cache"
	"github.com/storyboard-lab/video-extraction-go/internal/config"
	"github.com/storyboard-lab/video-extraction-go/internal/db"
	"github.com/storyboard-lab/video-extraction-go/internal/db/repository"
	"github.com/storyboard-lab/video-extraction-go/internal/extractor"
	"github.com/storyboard-lab/video-extraction-go/internal/handler"
	"github.com/storyboard-lab/video-extraction-go/internal/middleware"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/internal/ratelimit"
	"github.com/storyboard-lab/video-extraction-go/internal/service"
	"github.com/storyboard-lab/video-extraction-go/internal/stats"
	"github.com/storyboard-lab/video-extraction-go/internal/thumbnail"
	"github.com/storyboard-lab/video-extraction-go/internal/transcript"
	"github.com/storyboard-lab/video-extraction-go/internal/validation"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger.Log.Info("Starting video extraction service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Int("maxConcurrent", cfg.Extraction.MaxConcurrent),
		zap.Int("maxURLsPerBatch", cfg.Extraction.MaxURLsPerBatch),
	)

	metrics := stats.NewMetrics()
	recorder := stats.NewRecorder(metrics)

	resultCache, cacheCheck := buildCache(ctx, cfg.Cache)

	primary, fallback := buildSources(cfg.Extraction)
	adapter := extractor.NewAdapter(primary, fallback, extractor.Config{
		Timeout:            cfg.Extraction.Timeout,
		RetryAttempts:      cfg.Extraction.RetryAttempts,
		InitialBackoff:     cfg.Extraction.InitialBackoff,
		MaxBackoff:         cfg.Extraction.MaxBackoff,
		MaxDurationSeconds: float64(cfg.Extraction.MaxVideoDuration),
		RequestsPerSecond:  cfg.Extraction.RequestsPerSecond,
	})
	if !primary.Available() {
		logger.Log.Warn("Extraction binary not found, extraction requests will be rejected",
			zap.String("binary", cfg.Extraction.Binary),
		)
	}

	vision := buildVision(cfg.Vision)
	analyzer := thumbnail.NewAnalyzer(vision, nil, thumbnail.Config{
		Timeout:      cfg.Vision.Timeout,
		ImageTimeout: cfg.Vision.ImageTimeout,
	})
	logger.Log.Info("Thumbnail analysis configured", zap.String("provider", analyzer.Provider()))

	deps := service.Deps{
		Adapter: adapter,
		Transcripts: transcript.NewProcessor(transcript.Config{
			Languages:       cfg.Transcript.Languages,
			DownloadTimeout: cfg.Transcript.DownloadTimeout,
		}, nil),
		Thumbnails: analyzer,
		Cache:      resultCache,
		Stats:      recorder,
	}

	checks := []handler.DependencyCheck{
		{
			Name:     "extractor",
			Critical: true,
			Check: func(context.Context) error {
				if !primary.Available() {
					return errors.New("extraction binary not found")
				}
				return nil
			},
		},
		cacheCheck,
		visionCheck(analyzer),
	}

	var publisher *service.MessagePublisher
	if cfg.RabbitMQ.Enabled {
		var err error
		publisher, err = service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			return fmt.Errorf("connect to RabbitMQ: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Log.Error("Failed to close RabbitMQ publisher", zap.Error(err))
			}
		}()
		deps.Publisher = publisher
		checks = append(checks, handler.DependencyCheck{
			Name: "rabbitmq",
			Check: func(context.Context) error {
				if !publisher.IsHealthy() {
					return errors.New("rabbitmq connection is closed")
				}
				return nil
			},
		})
	} else {
		checks = append(checks, handler.DependencyCheck{Name: "rabbitmq"})
	}

	var pool *pgxpool.Pool
	if cfg.Database.Enabled {
		var err error
		pool, err = openExtractionLog(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close(pool)

		repo := repository.NewExtractionLogRepository(pool)
		deps.ExtractionLog = repo
		checks = append(checks, handler.DependencyCheck{Name: "database", Check: repo.Ping})
	} else {
		checks = append(checks, handler.DependencyCheck{Name: "database"})
	}

	svc := service.NewExtractionService(deps, service.Config{
		MaxConcurrent: cfg.Extraction.MaxConcurrent,
		ItemTimeout:   cfg.Extraction.ItemTimeout,
		BatchTimeout:  cfg.Extraction.BatchTimeout,
	})

	limiter := ratelimit.NewFixedWindow(cfg.RateLimit.Limit, cfg.RateLimit.Window)
	go sweepLimiter(ctx, limiter)

	limitations := models.Limitations{
		MaxURLsPerBatch:          cfg.Extraction.MaxURLsPerBatch,
		RateLimitPerMinute:       perMinute(cfg.RateLimit),
		MaxVideoDurationSeconds:  cfg.Extraction.MaxVideoDuration,
		MaxConcurrentExtractions: svc.MaxConcurrent(),
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handler.NewRouter(handler.RouterConfig{
		Extraction: handler.NewExtractionHandler(svc, validation.New(cfg.Extraction.MaxURLsPerBatch), primary.Available),
		Health:     handler.NewHealthHandler(version, recorder, resultCache, limitations, checks...),
		Auth:       middleware.NewAPIKeyAuth(cfg.Server.APIKeys),
		Limiter:    limiter,
		Metrics:    metrics,
		Recorder:   recorder,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Extraction.BatchTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("HTTP server listening", zap.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Graceful shutdown failed", zap.Error(err))
		if err := server.Close(); err != nil {
			logger.Log.Error("Failed to close server", zap.Error(err))
		}
	}

	// Pending publishes and log writes finish before their sinks close.
	svc.Wait()

	logger.Log.Info("Server stopped gracefully")
	return nil
}

// buildCache returns the result cache and its health check. A configured
// Redis URL puts Redis in front of the in-process backend.
func buildCache(ctx context.Context, cfg config.CacheConfig) (*cache.Cache, handler.DependencyCheck) {
	local := cache.NewMemoryBackend(cfg.MaxEntries)
	local.StartEviction(ctx, cfg.EvictionInterval)

	check := handler.DependencyCheck{Name: "cache"}
	if !cfg.Enabled {
		return cache.New(local, false, cfg.TTL), check
	}
	check.Check = func(context.Context) error { return nil }

	if cfg.RedisURL == "" {
		return cache.New(local, true, cfg.TTL), check
	}

	opts, err := cache.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		logger.Log.Warn("Invalid Redis URL, using in-memory cache only", zap.Error(err))
		return cache.New(local, true, cfg.TTL), check
	}

	remote := cache.NewRedisBackend(redis.NewClient(opts))
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := remote.Ping(pingCtx); err != nil {
		logger.Log.Warn("Redis is unreachable, cache will fall back to memory until it recovers",
			zap.String("addr", opts.Addr),
			zap.Error(err),
		)
	} else {
		logger.Log.Info("Redis cache connected", zap.String("addr", opts.Addr))
	}

	// Redis is not critical: the fallback backend keeps serving from memory.
	check = handler.DependencyCheck{Name: "cache", Check: remote.Ping}
	return cache.New(cache.NewFallbackBackend(remote, local), true, cfg.TTL), check
}

// buildSources returns the primary yt-dlp source and an optional fallback
// that goes through the configured proxy.
func buildSources(cfg config.ExtractionConfig) (*extractor.YtDlpSource, extractor.Source) {
	primary := extractor.NewYtDlpSource(cfg.Binary)

	var proxied *extractor.YtDlpSource
	if cfg.ProxyURL != "" {
		proxied = primary.WithProxy(cfg.ProxyURL)
	}

	switch {
	case cfg.ScraperAPIKey != "":
		next := primary
		if proxied != nil {
			next = proxied
		}
		return primary, extractor.NewProxySource(cfg.ScraperAPIBaseURL, cfg.ScraperAPIKey, cfg.Timeout, next)
	case proxied != nil:
		return primary, proxied
	default:
		return primary, nil
	}
}

// buildVision returns the configured vision client, or nil when thumbnail
// analysis is disabled.
func buildVision(cfg config.VisionConfig) thumbnail.VisionClient {
	switch cfg.Provider {
	case config.VisionProviderOpenAI:
		return thumbnail.NewOpenAIClient(thumbnail.OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
	case config.VisionProviderOllama:
		return thumbnail.NewOllamaClient(thumbnail.OllamaConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	default:
		return nil
	}
}

func visionCheck(analyzer *thumbnail.Analyzer) handler.DependencyCheck {
	check := handler.DependencyCheck{Name: "vision"}
	if analyzer.Enabled() {
		check.Check = func(context.Context) error { return nil }
	}
	return check
}

func openExtractionLog(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	schemaVersion, err := db.Migrate(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("migrate extraction log: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Log.Info("Extraction log enabled",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Uint("schemaVersion", schemaVersion),
		zap.Int32("maxConns", pool.Config().MaxConns),
	)
	return pool, nil
}

// sweepLimiter drops idle rate limit windows once per window.
func sweepLimiter(ctx context.Context, limiter *ratelimit.FixedWindow) {
	ticker := time.NewTicker(limiter.Window())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				logger.Log.Debug("Swept idle rate limit windows", zap.Int("removed", n))
			}
		}
	}
}

func perMinute(cfg config.RateLimitConfig) int {
	if cfg.Window <= 0 {
		return cfg.Limit
	}
	return int(float64(cfg.Limit) * float64(time.Minute) / float64(cfg.Window))
}
