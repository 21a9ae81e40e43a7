package extractor

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// Config controls attempts, backoff and content limits.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Timeout            time.Duration
	RetryAttempts      int
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	MaxDurationSeconds float64
	// RequestsPerSecond paces calls to the external source. Zero disables pacing.
	RequestsPerSecond float64
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.MaxDurationSeconds <= 0 {
		c.MaxDurationSeconds = 300
	}
}

// Extraction is the adapter output: normalized metadata plus the raw info
// the transcript processor reads subtitle tracks from.
type Extraction struct {
	Result *models.ExtractionResult
	Info   *VideoInfo
}

// Adapter calls the primary source with bounded retries and falls back to a
// secondary source once when the primary keeps failing transiently.
type Adapter struct {
	primary  Source
	fallback Source
	cfg      Config
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewAdapter creates an Adapter. fallback may be nil.
func NewAdapter(primary, fallback Source, cfg Config) *Adapter {
	cfg.applyDefaults()
	a := &Adapter{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		now:      time.Now,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(math.Ceil(cfg.RequestsPerSecond))
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return a
}

// Primary returns the primary source.
func (a *Adapter) Primary() Source { return a.primary }

// MaxDurationSeconds returns the accepted duration ceiling.
func (a *Adapter) MaxDurationSeconds() float64 { return a.cfg.MaxDurationSeconds }

// Extract fetches base metadata for ref. It never runs enrichment.
func (a *Adapter) Extract(ctx context.Context, ref models.VideoReference) (*Extraction, error) {
	start := a.now()

	info, err := a.fetchWithRetry(ctx, a.primary, ref.RawURL, a.cfg.RetryAttempts)
	if err != nil && a.fallback != nil && isTransient(apperr.CodeOf(err)) && ctx.Err() == nil {
		logger.Log.Warn("Primary source exhausted, trying fallback",
			zap.String("url", ref.RawURL),
			zap.String("fallback", a.fallback.Name()),
			zap.Error(err),
		)
		info, err = a.fetchWithRetry(ctx, a.fallback, ref.RawURL, 0)
	}
	if err != nil {
		return nil, apperr.As(err).WithItem(ref.RawURL, string(ref.Platform))
	}

	if err := a.checkContent(info); err != nil {
		return nil, err.WithItem(ref.RawURL, string(ref.Platform))
	}

	result := toResult(ref, info)
	result.ExtractedAt = a.now().UTC()
	result.ProcessingTimeMs = a.now().Sub(start).Milliseconds()

	logger.Log.Info("Extracted video metadata",
		zap.String("videoId", result.VideoID),
		zap.Float64("durationSeconds", result.DurationSeconds),
		zap.Int64("processingTimeMs", result.ProcessingTimeMs),
	)

	return &Extraction{Result: result, Info: info}, nil
}

func (a *Adapter) checkContent(info *VideoInfo) *apperr.Error {
	if info == nil {
		return apperr.New(apperr.CodeExtractionFailed, "extraction source returned no data")
	}
	if !info.IsVideo() {
		return apperr.New(apperr.CodeNotVideoContent, "content is not a video")
	}
	if info.Duration > a.cfg.MaxDurationSeconds {
		return apperr.Newf(apperr.CodeVideoTooLong,
			"video is %.0fs long, the maximum is %.0fs", info.Duration, a.cfg.MaxDurationSeconds)
	}
	return nil
}

// fetchWithRetry makes 1+retries attempts. Only transient failures are retried.
func (a *Adapter) fetchWithRetry(ctx context.Context, src Source, rawURL string, retries int) (*VideoInfo, error) {
	var lastErr error

	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, classify(err, "")
		}
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, apperr.Wrap(apperr.CodeTimeout, "waiting for extraction slot", err)
			}
		}

		info, err := a.attempt(ctx, src, rawURL)
		if err == nil {
			return info, nil
		}
		lastErr = err

		code := apperr.CodeOf(err)
		if !isTransient(code) {
			return nil, err
		}

		if attempt < retries {
			wait := a.backoff(attempt)
			logger.Log.Debug("Retrying extraction",
				zap.String("source", src.Name()),
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait),
				zap.String("code", string(code)),
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, classify(ctx.Err(), "")
			}
		}
	}
	return nil, lastErr
}

func (a *Adapter) attempt(ctx context.Context, src Source, rawURL string) (*VideoInfo, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	info, err := src.Fetch(attemptCtx, rawURL)
	if err != nil {
		if attemptCtx.Err() != nil && ctx.Err() == nil {
			return nil, apperr.Wrap(apperr.CodeTimeout,
				fmt.Sprintf("extraction attempt exceeded %s", a.cfg.Timeout), attemptCtx.Err())
		}
		return nil, classify(err, "")
	}
	return info, nil
}

func (a *Adapter) backoff(attempt int) time.Duration {
	wait := time.Duration(float64(a.cfg.InitialBackoff) * math.Pow(2, float64(attempt)))
	if wait > a.cfg.MaxBackoff {
		wait = a.cfg.MaxBackoff
	}
	return wait
}

func toResult(ref models.VideoReference, info *VideoInfo) *models.ExtractionResult {
	videoID := ref.CanonicalID
	if info.ID != "" {
		videoID = info.ID
	}
	return &models.ExtractionResult{
		URL:             ref.RawURL,
		Platform:        ref.Platform,
		VideoID:         videoID,
		Title:           info.Title,
		Description:     info.Description,
		Uploader:        info.Uploader,
		DurationSeconds: info.Duration,
		ViewCount:       info.ViewCount,
		LikeCount:       info.LikeCount,
		CommentCount:    info.CommentCount,
		ShareCount:      info.RepostCount,
		UploadDate:      formatUploadDate(info.UploadDate),
		ThumbnailURL:    info.Thumbnail,
	}
}

// formatUploadDate turns yt-dlp's YYYYMMDD into YYYY-MM-DD.
func formatUploadDate(raw string) string {
	if len(raw) != 8 {
		return raw
	}
	t, err := time.Parse("20060102", raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02")
}
