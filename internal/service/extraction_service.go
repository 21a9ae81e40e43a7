// Package service runs the extraction pipeline: cache lookup, metadata
// extraction, enrichment and batch coordination.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/cache"
	"github.com/storyboard-lab/video-extraction-go/internal/db"
	"github.com/storyboard-lab/video-extraction-go/internal/extractor"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/internal/stats"
	"github.com/storyboard-lab/video-extraction-go/internal/validation"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// Extractor fetches base metadata for a validated reference.
type Extractor interface {
	Extract(ctx context.Context, ref models.VideoReference) (*extractor.Extraction, error)
}

// TranscriptProcessor selects and parses the transcript of an extracted video.
type TranscriptProcessor interface {
	Process(ctx context.Context, ref models.VideoReference, info *extractor.VideoInfo, priority []string) (*models.TranscriptResult, error)
}

// ThumbnailAnalyzer describes a thumbnail image.
type ThumbnailAnalyzer interface {
	Analyze(ctx context.Context, thumbnailURL string) (*models.ThumbnailAnalysis, error)
}

// EventPublisher publishes extraction events to a broker.
type EventPublisher interface {
	PublishExtraction(ctx context.Context, event *models.ExtractionEvent) error
}

// ExtractionLog persists extraction events.
type ExtractionLog interface {
	RecordExtraction(ctx context.Context, event *models.ExtractionEvent) error
}

// Config bounds concurrency and time.
type Config struct {
	MaxConcurrent int
	ItemTimeout   time.Duration
	BatchTimeout  time.Duration
	// SideEffectTimeout bounds publishing and logging of one event.
	SideEffectTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 5
	}
	if c.ItemTimeout <= 0 {
		c.ItemTimeout = 45 * time.Second
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 120 * time.Second
	}
	if c.SideEffectTimeout <= 0 {
		c.SideEffectTimeout = 5 * time.Second
	}
}

// Deps are the collaborators of an ExtractionService. Only Adapter is
// required; a nil Cache disables caching.
type Deps struct {
	Adapter       Extractor
	Transcripts   TranscriptProcessor
	Thumbnails    ThumbnailAnalyzer
	Cache         *cache.Cache
	Stats         *stats.Recorder
	Publisher     EventPublisher
	ExtractionLog ExtractionLog
}

// ExtractionService extracts single URLs and batches.
type ExtractionService struct {
	deps        Deps
	cfg         Config
	now         func() time.Time
	sideEffects sync.WaitGroup
}

// NewExtractionService creates an ExtractionService.
func NewExtractionService(deps Deps, cfg Config) *ExtractionService {
	cfg.applyDefaults()
	if deps.Cache == nil {
		deps.Cache = cache.New(nil, false, 0)
	}
	if deps.Stats == nil {
		deps.Stats = stats.NewRecorder(nil)
	}
	return &ExtractionService{deps: deps, cfg: cfg, now: time.Now}
}

// Cache returns the cache layer.
func (s *ExtractionService) Cache() *cache.Cache { return s.deps.Cache }

// Stats returns the stats recorder.
func (s *ExtractionService) Stats() *stats.Recorder { return s.deps.Stats }

// MaxConcurrent returns the batch worker limit.
func (s *ExtractionService) MaxConcurrent() int { return s.cfg.MaxConcurrent }

// Wait blocks until pending events have been published and logged.
func (s *ExtractionService) Wait() {
	s.sideEffects.Wait()
}

// itemOutcome is the tagged result of one batch task.
type itemOutcome struct {
	ref     models.VideoReference
	url     string
	result  *models.ExtractionResult
	err     *apperr.Error
	elapsed time.Duration
}

// ExtractOne processes a single reference. The item error is returned as is.
func (s *ExtractionService) ExtractOne(ctx context.Context, ref models.VideoReference, opts models.ExtractionOptions) (*models.ExtractionResult, error) {
	out := s.runItem(ctx, ref, opts)
	out.url = ref.RawURL
	s.report(ctx, out)
	if out.err != nil {
		return nil, out.err
	}
	return out.result, nil
}

// ExtractBatch processes validated items with bounded concurrency. Every item
// appears exactly once in the result, ordered by input index. Items carrying
// a validation error are reported as failed without being dispatched.
func (s *ExtractionService) ExtractBatch(ctx context.Context, items []validation.BatchItem, opts models.ExtractionOptions, parallel bool) *models.BatchResult {
	start := s.now()

	batchCtx, cancel := context.WithTimeout(ctx, s.cfg.BatchTimeout)
	defer cancel()

	limit := s.cfg.MaxConcurrent
	if !parallel {
		limit = 1
	}

	outcomes := make([]itemOutcome, len(items))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		if item.Err != nil {
			e := apperr.As(item.Err)
			if e.URL == "" {
				e = e.WithItem(item.URL, e.Platform)
			}
			outcomes[i] = itemOutcome{ref: item.Ref, url: item.URL, err: e}
			continue
		}

		g.Go(func() error {
			if batchCtx.Err() != nil {
				outcomes[i] = itemOutcome{
					ref: item.Ref,
					url: item.URL,
					err: apperr.New(apperr.CodeTimeout, "batch deadline exceeded before the item started").
						WithItem(item.URL, string(item.Ref.Platform)),
				}
				return batchCtx.Err()
			}
			out := s.runItem(batchCtx, item.Ref, opts)
			out.url = item.URL
			outcomes[i] = out
			return nil
		})
	}
	// Only items skipped at the deadline return an error; the rest are
	// reported through their outcomes.
	if err := g.Wait(); err != nil {
		logger.WithRequestID(logger.RequestIDFromContext(ctx)).Warn("Batch deadline reached before every item started",
			zap.Int("items", len(items)),
			zap.Duration("batchTimeout", s.cfg.BatchTimeout),
			zap.Error(err),
		)
	}

	result := &models.BatchResult{
		Processed: make([]models.ProcessedItem, 0, len(items)),
		Failed:    make([]models.FailedItem, 0),
	}
	for i, out := range outcomes {
		s.report(ctx, out)

		if out.err != nil {
			result.Failed = append(result.Failed, models.FailedItem{
				Index:  i,
				URL:    out.url,
				Status: models.ItemFailed,
				Error:  models.NewErrorBody(out.err),
			})
			continue
		}

		result.Processed = append(result.Processed, models.ProcessedItem{
			Index:  i,
			URL:    out.url,
			Status: models.ItemSuccess,
			Data:   out.result,
		})
		if out.result.CacheHit {
			result.Summary.CacheHits++
		}
		if opts.IncludeTranscript && out.result.Transcript != nil {
			result.Summary.TranscriptsFound++
		}
	}

	result.Summary.TotalRequested = len(items)
	result.Summary.Successful = len(result.Processed)
	result.Summary.Failed = len(result.Failed)
	result.Summary.ProcessingTimeMs = s.now().Sub(start).Milliseconds()

	logger.FromContext(ctx).Info("Batch extraction finished",
		zap.Int("total", result.Summary.TotalRequested),
		zap.Int("successful", result.Summary.Successful),
		zap.Int("failed", result.Summary.Failed),
		zap.Int("cacheHits", result.Summary.CacheHits),
		zap.Int64("processingTimeMs", result.Summary.ProcessingTimeMs),
	)

	return result
}

// runItem runs one item under the item timeout. Panics become EXTRACTION_FAILED.
func (s *ExtractionService) runItem(ctx context.Context, ref models.VideoReference, opts models.ExtractionOptions) (out itemOutcome) {
	start := s.now()
	out.ref = ref

	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("Recovered panic while processing item",
				zap.String("url", ref.RawURL),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			out.result = nil
			out.err = apperr.New(apperr.CodeExtractionFailed, "internal error while processing item").
				WithItem(ref.RawURL, string(ref.Platform))
		}
		out.elapsed = s.now().Sub(start)
	}()

	itemCtx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	result, err := s.deps.Cache.GetOrFetch(itemCtx, ref, opts, func(fetchCtx context.Context) (*models.ExtractionResult, error) {
		return s.fetch(fetchCtx, ref, opts)
	})
	if err != nil {
		out.err = apperr.As(err).WithItem(ref.RawURL, string(ref.Platform))
		return out
	}
	if result.CacheHit {
		result.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
	}
	out.result = result
	return out
}

// fetch extracts base metadata and runs the requested enrichments concurrently.
func (s *ExtractionService) fetch(ctx context.Context, ref models.VideoReference, opts models.ExtractionOptions) (*models.ExtractionResult, error) {
	start := s.now()

	ext, err := s.deps.Adapter.Extract(ctx, ref)
	if err != nil {
		return nil, err
	}
	result := ext.Result

	var (
		transcript    *models.TranscriptResult
		transcriptErr error
		analysis      *models.ThumbnailAnalysis
		analysisErr   error
		wg            sync.WaitGroup
	)
	if opts.IncludeTranscript {
		wg.Add(1)
		go func() {
			defer wg.Done()
			transcript, transcriptErr = s.transcript(ctx, ref, ext.Info)
		}()
	}
	if opts.IncludeThumbnailAnalysis {
		wg.Add(1)
		go func() {
			defer wg.Done()
			analysis, analysisErr = s.thumbnail(ctx, result.ThumbnailURL)
		}()
	}
	wg.Wait()

	if opts.IncludeTranscript {
		if transcriptErr != nil {
			s.degrade(ctx, result, apperr.CodeTranscriptExtractionFailed, transcriptErr)
		} else {
			result.Transcript = transcript
			result.HasTranscript = true
		}
	}
	if opts.IncludeThumbnailAnalysis {
		if analysisErr != nil {
			s.degrade(ctx, result, apperr.CodeThumbnailAnalysisFailed, analysisErr)
		} else {
			result.ThumbnailAnalysis = analysis
		}
	}

	result.ProcessingTimeMs = s.now().Sub(start).Milliseconds()
	return result, nil
}

func (s *ExtractionService) transcript(ctx context.Context, ref models.VideoReference, info *extractor.VideoInfo) (t *models.TranscriptResult, err error) {
	defer recoverEnrichment(ctx, apperr.CodeTranscriptExtractionFailed, &err)
	if s.deps.Transcripts == nil {
		return nil, apperr.New(apperr.CodeTranscriptExtractionFailed, "transcript processing not configured")
	}
	return s.deps.Transcripts.Process(ctx, ref, info, nil)
}

func (s *ExtractionService) thumbnail(ctx context.Context, thumbnailURL string) (a *models.ThumbnailAnalysis, err error) {
	defer recoverEnrichment(ctx, apperr.CodeThumbnailAnalysisFailed, &err)
	if s.deps.Thumbnails == nil {
		return nil, apperr.New(apperr.CodeThumbnailAnalysisFailed, "vision service not configured")
	}
	return s.deps.Thumbnails.Analyze(ctx, thumbnailURL)
}

// recoverEnrichment turns a panic inside an enrichment goroutine into an
// enrichment error so it degrades the item instead of crashing the process.
func recoverEnrichment(ctx context.Context, code apperr.Code, err *error) {
	if r := recover(); r != nil {
		logger.FromContext(ctx).Error("Recovered panic in enrichment",
			zap.String("code", string(code)),
			zap.Any("panic", r),
		)
		*err = apperr.New(code, fmt.Sprintf("internal error during enrichment: %v", r))
	}
}

// degrade records a failed enrichment on result. Errors without a code of
// their own, such as an expired item context, are reported under fallback.
func (s *ExtractionService) degrade(ctx context.Context, result *models.ExtractionResult, fallback apperr.Code, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Wrap(fallback, err.Error(), err)
	}
	result.AddDiagnostic(string(e.Code), e.Message)

	logger.FromContext(ctx).Warn("Enrichment degraded",
		zap.String("videoId", result.VideoID),
		zap.String("code", string(e.Code)),
		zap.Error(err),
	)
}

// report records stats synchronously and hands the event to the publisher and
// the extraction log in the background.
func (s *ExtractionService) report(ctx context.Context, out itemOutcome) {
	requestID := logger.RequestIDFromContext(ctx)

	o := stats.Outcome{
		Platform:           string(out.ref.Platform),
		ProcessingDuration: out.elapsed,
	}
	var event *models.ExtractionEvent
	if out.err != nil {
		if o.Platform == "" {
			o.Platform = out.err.Platform
		}
		o.Code = string(out.err.Code)
		ref := out.ref
		if ref.RawURL == "" {
			ref = models.VideoReference{Platform: models.Platform(out.err.Platform), RawURL: out.url}
		}
		event = models.NewFailureEvent(requestID, ref, o.Code, out.elapsed.Milliseconds())
	} else {
		o.Success = true
		o.CacheHit = out.result.CacheHit
		o.TranscriptFound = out.result.Transcript != nil
		o.ThumbnailAnalyzed = out.result.ThumbnailAnalysis != nil
		for _, d := range out.result.Diagnostics {
			o.Degraded = append(o.Degraded, d.Code)
		}
		event = models.NewSuccessEvent(requestID, out.ref, out.result)
	}
	s.deps.Stats.Record(o)

	if s.deps.Publisher == nil && s.deps.ExtractionLog == nil {
		return
	}

	s.sideEffects.Add(1)
	go func() {
		defer s.sideEffects.Done()
		sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SideEffectTimeout)
		defer cancel()
		log := logger.WithRequestID(requestID)

		if s.deps.ExtractionLog != nil {
			if err := s.deps.ExtractionLog.RecordExtraction(sideCtx, event); err != nil {
				level := zap.ErrorLevel
				if db.IsUnavailable(err) || errors.Is(err, context.DeadlineExceeded) {
					level = zap.WarnLevel
				}
				log.Log(level, "Failed to record extraction", zap.String("eventId", event.ID.String()), zap.Error(err))
			}
		}
		if s.deps.Publisher != nil {
			if err := s.deps.Publisher.PublishExtraction(sideCtx, event); err != nil {
				log.Warn("Failed to publish extraction event", zap.String("eventId", event.ID.String()), zap.Error(err))
			}
		}
	}()
}
