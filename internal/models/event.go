package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionEvent records the outcome of one extraction item. It is published
// to the message broker and written to the extraction log.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ExtractionEvent struct {
	ID                   uuid.UUID         `json:"id"`
	RequestID            string            `json:"request_id"`
	URL                  string            `json:"url"`
	Platform             Platform          `json:"platform"`
	VideoID              string            `json:"video_id,omitempty"`
	Status               ItemStatus        `json:"status"`
	ErrorCode            string            `json:"error_code,omitempty"`
	CacheHit             bool              `json:"cache_hit"`
	HasTranscript        bool              `json:"has_transcript"`
	HasThumbnailAnalysis bool              `json:"has_thumbnail_analysis"`
	DiagnosticCodes      []string          `json:"diagnostic_codes,omitempty"`
	ProcessingTimeMs     int64             `json:"processing_time_ms"`
	OccurredAt           time.Time         `json:"occurred_at"`
	Result               *ExtractionResult `json:"result,omitempty"`
}

// NewSuccessEvent builds the event of a processed item.
func NewSuccessEvent(requestID string, ref VideoReference, result *ExtractionResult) *ExtractionEvent {
	codes := make([]string, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		codes = append(codes, d.Code)
	}
	return &ExtractionEvent{
		ID:                   uuid.New(),
		RequestID:            requestID,
		URL:                  ref.RawURL,
		Platform:             ref.Platform,
		VideoID:              result.VideoID,
		Status:               ItemSuccess,
		CacheHit:             result.CacheHit,
		HasTranscript:        result.Transcript != nil,
		HasThumbnailAnalysis: result.ThumbnailAnalysis != nil,
		DiagnosticCodes:      codes,
		ProcessingTimeMs:     result.ProcessingTimeMs,
		OccurredAt:           time.Now().UTC(),
		Result:               result,
	}
}

// NewFailureEvent builds the event of a failed item.
func NewFailureEvent(requestID string, ref VideoReference, code string, processingTimeMs int64) *ExtractionEvent {
	return &ExtractionEvent{
		ID:               uuid.New(),
		RequestID:        requestID,
		URL:              ref.RawURL,
		Platform:         ref.Platform,
		VideoID:          ref.CanonicalID,
		Status:           ItemFailed,
		ErrorCode:        code,
		ProcessingTimeMs: processingTimeMs,
		OccurredAt:       time.Now().UTC(),
	}
}
