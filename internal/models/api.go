package models

import (
	"time"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
)

// APIVersion is reported in every response envelope.
const APIVersion = "1.0.0"

// ExtractRequestDTO is the body of POST /extract.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ExtractRequestDTO struct {
	URL                      string `json:"url"`
	IncludeThumbnailAnalysis *bool  `json:"include_thumbnail_analysis"`
	IncludeTranscript        *bool  `json:"include_transcript"`
	CacheTTL                 *int   `json:"cache_ttl"`
}

// Options converts the request flags into ExtractionOptions, applying defaults.
func (r *ExtractRequestDTO) Options() ExtractionOptions {
	return buildOptions(r.IncludeThumbnailAnalysis, r.IncludeTranscript, r.CacheTTL)
}

// BatchExtractRequestDTO is the body of POST /extract/batch.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type BatchExtractRequestDTO struct {
	URLs                     []string `json:"urls"`
	IncludeThumbnailAnalysis *bool    `json:"include_thumbnail_analysis"`
	IncludeTranscript        *bool    `json:"include_transcript"`
	ParallelProcessing       *bool    `json:"parallel_processing"`
	CacheTTL                 *int     `json:"cache_ttl"`
}

// Options converts the request flags into ExtractionOptions, applying defaults.
func (r *BatchExtractRequestDTO) Options() ExtractionOptions {
	return buildOptions(r.IncludeThumbnailAnalysis, r.IncludeTranscript, r.CacheTTL)
}

// Parallel reports whether items may run concurrently. Defaults to true.
func (r *BatchExtractRequestDTO) Parallel() bool {
	return r.ParallelProcessing == nil || *r.ParallelProcessing
}

func buildOptions(thumb, transcript *bool, ttl *int) ExtractionOptions {
	opts := ExtractionOptions{IncludeThumbnailAnalysis: true}
	if thumb != nil {
		opts.IncludeThumbnailAnalysis = *thumb
	}
	if transcript != nil {
		opts.IncludeTranscript = *transcript
	}
	if ttl != nil {
		opts.CacheTTL = time.Duration(*ttl) * time.Second
	}
	return opts
}

// ItemStatus is the outcome of one batch item.
type ItemStatus string

// Item statuses.
const (
	ItemSuccess ItemStatus = "success"
	ItemFailed  ItemStatus = "failed"
)

// ErrorDetails ties an error to the batch item that produced it.
type ErrorDetails struct {
	URL      string `json:"url,omitempty"`
	Platform string `json:"platform,omitempty"`
}

// ErrorBody is the caller-facing error object.
type ErrorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details *ErrorDetails `json:"details,omitempty"`
}

// NewErrorBody converts err into the caller-facing error object. Details are
// set only when the error belongs to a specific URL.
func NewErrorBody(err *apperr.Error) ErrorBody {
	body := ErrorBody{Code: string(err.Code), Message: err.Message}
	if err.URL != "" || err.Platform != "" {
		body.Details = &ErrorDetails{URL: err.URL, Platform: err.Platform}
	}
	return body
}

// ProcessedItem is a successful batch item.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ProcessedItem struct {
	Index  int               `json:"index"`
	URL    string            `json:"url"`
	Status ItemStatus        `json:"status"`
	Data   *ExtractionResult `json:"data"`
}

// FailedItem is a batch item that produced an error.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type FailedItem struct {
	Index  int        `json:"index"`
	URL    string     `json:"url"`
	Status ItemStatus `json:"status"`
	Error  ErrorBody  `json:"error"`
}

// BatchSummary aggregates a batch outcome.
type BatchSummary struct {
	TotalRequested   int   `json:"total_requested"`
	Successful       int   `json:"successful"`
	Failed           int   `json:"failed"`
	CacheHits        int   `json:"cache_hits"`
	TranscriptsFound int   `json:"transcripts_found"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// BatchResult holds every input URL exactly once across Processed and Failed,
// each list ordered by input index.
type BatchResult struct {
	Processed []ProcessedItem `json:"processed"`
	Failed    []FailedItem    `json:"failed"`
	Summary   BatchSummary    `json:"summary"`
}

// RateLimitInfo is attached to responses of rate-limited endpoints.
type RateLimitInfo struct {
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// ResponseMetadata is attached to every envelope.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ResponseMetadata struct {
	RequestID        string         `json:"request_id"`
	APIVersion       string         `json:"api_version"`
	Timestamp        time.Time      `json:"timestamp"`
	ProcessingTimeMs *int64         `json:"processing_time_ms,omitempty"`
	RateLimit        *RateLimitInfo `json:"rate_limit,omitempty"`
}

// Envelope wraps every API response.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Envelope struct {
	Success  bool             `json:"success"`
	Data     any              `json:"data,omitempty"`
	Error    *ErrorBody       `json:"error,omitempty"`
	Metadata ResponseMetadata `json:"metadata"`
}

// PlatformInfo describes a supported platform.
type PlatformInfo struct {
	Name              string   `json:"name"`
	Domain            string   `json:"domain"`
	SupportedFeatures []string `json:"supported_features"`
	URLPatterns       []string `json:"url_patterns"`
}

// Limitations lists the service limits advertised to callers.
type Limitations struct {
	MaxURLsPerBatch          int `json:"max_urls_per_batch"`
	RateLimitPerMinute       int `json:"rate_limit_per_minute"`
	MaxVideoDurationSeconds  int `json:"max_video_duration"`
	MaxConcurrentExtractions int `json:"max_concurrent_extractions"`
}

// SupportedPlatformsResponse is the body of GET /supported-platforms.
type SupportedPlatformsResponse struct {
	Platforms   []PlatformInfo `json:"platforms"`
	Limitations Limitations    `json:"limitations"`
}

// HealthResponse is the body of GET /health.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type HealthResponse struct {
	Status            string            `json:"status"`
	Version           string            `json:"version"`
	Time              time.Time         `json:"time"`
	UptimeSeconds     int64             `json:"uptime_seconds"`
	Dependencies      map[string]string `json:"dependencies"`
	RequestsProcessed int64             `json:"requests_processed"`
	CacheHitRate      float64           `json:"cache_hit_rate"`
}
