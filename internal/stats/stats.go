// Package stats aggregates extraction outcomes for the /stats endpoint and
// exports them as Prometheus metrics.
package stats

import (
	"sync"
	"time"
)

// Outcome describes one finished batch item.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Outcome struct {
	Platform           string
	Success            bool
	// Code is the error code of a failed item.
	Code               string
	CacheHit           bool
	TranscriptFound    bool
	ThumbnailAnalyzed  bool
	Degraded           []string
	ProcessingDuration time.Duration
}

// PlatformStats is the per-platform breakdown.
type PlatformStats struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
}

// Snapshot is a point-in-time copy of the aggregates.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Snapshot struct {
	UptimeSeconds           int64                    `json:"uptime_seconds"`
	RequestsProcessed       int64                    `json:"requests_processed"`
	TotalExtractions        int64                    `json:"total_extractions"`
	Successful              int64                    `json:"successful"`
	Failed                  int64                    `json:"failed"`
	SuccessRate             float64                  `json:"success_rate"`
	AverageProcessingTimeMs float64                  `json:"average_processing_time_ms"`
	CacheHits               int64                    `json:"cache_hits"`
	TranscriptsFound        int64                    `json:"transcripts_found"`
	ThumbnailsAnalyzed      int64                    `json:"thumbnails_analyzed"`
	ByPlatform              map[string]PlatformStats `json:"by_platform"`
	ByErrorCode             map[string]int64         `json:"by_error_code"`
	DegradedEnrichments     map[string]int64         `json:"degraded_enrichments"`
}

// Recorder accumulates outcomes. It is safe for concurrent use.
type Recorder struct {
	mu          sync.Mutex
	startedAt   time.Time
	now         func() time.Time
	metrics     *Metrics
	requests    int64
	total       int64
	successful  int64
	failed      int64
	cacheHits   int64
	transcripts int64
	thumbnails  int64
	totalTime   time.Duration
	byPlatform  map[string]*PlatformStats
	byError     map[string]int64
	degraded    map[string]int64
}

// NewRecorder creates a Recorder. metrics may be nil.
func NewRecorder(metrics *Metrics) *Recorder {
	return &Recorder{
		startedAt:  time.Now(),
		now:        time.Now,
		metrics:    metrics,
		byPlatform: make(map[string]*PlatformStats),
		byError:    make(map[string]int64),
		degraded:   make(map[string]int64),
	}
}

// Metrics returns the Prometheus collectors, or nil.
func (r *Recorder) Metrics() *Metrics {
	return r.metrics
}

// RecordRequest counts one handled API request.
func (r *Recorder) RecordRequest() {
	r.mu.Lock()
	r.requests++
	r.mu.Unlock()
}

// Record adds one item outcome.
func (r *Recorder) Record(o Outcome) {
	r.mu.Lock()
	r.total++
	ps := r.byPlatform[o.Platform]
	if ps == nil {
		ps = &PlatformStats{}
		r.byPlatform[o.Platform] = ps
	}
	ps.Total++
	if o.Success {
		r.successful++
		ps.Successful++
		r.totalTime += o.ProcessingDuration
	} else {
		r.failed++
		ps.Failed++
		r.byError[o.Code]++
	}
	if o.CacheHit {
		r.cacheHits++
	}
	if o.TranscriptFound {
		r.transcripts++
	}
	if o.ThumbnailAnalyzed {
		r.thumbnails++
	}
	for _, code := range o.Degraded {
		r.degraded[code]++
	}
	r.mu.Unlock()

	r.metrics.observe(o)
}

// Snapshot returns a copy of the current aggregates.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		UptimeSeconds:       int64(r.now().Sub(r.startedAt).Seconds()),
		RequestsProcessed:   r.requests,
		TotalExtractions:    r.total,
		Successful:          r.successful,
		Failed:              r.failed,
		CacheHits:           r.cacheHits,
		TranscriptsFound:    r.transcripts,
		ThumbnailsAnalyzed:  r.thumbnails,
		ByPlatform:          make(map[string]PlatformStats, len(r.byPlatform)),
		ByErrorCode:         make(map[string]int64, len(r.byError)),
		DegradedEnrichments: make(map[string]int64, len(r.degraded)),
	}
	if r.total > 0 {
		s.SuccessRate = float64(r.successful) / float64(r.total)
	}
	if r.successful > 0 {
		s.AverageProcessingTimeMs = float64(r.totalTime.Milliseconds()) / float64(r.successful)
	}
	for k, v := range r.byPlatform {
		s.ByPlatform[k] = *v
	}
	for k, v := range r.byError {
		s.ByErrorCode[k] = v
	}
	for k, v := range r.degraded {
		s.DegradedEnrichments[k] = v
	}
	return s
}

// Uptime returns the time since the recorder was created.
func (r *Recorder) Uptime() time.Duration {
	return r.now().Sub(r.startedAt)
}

// RequestsProcessed returns the number of handled API requests.
func (r *Recorder) RequestsProcessed() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}
