// Package models contains the data models and DTOs for the video extraction service.
package models

import (
	"fmt"
	"time"
)

// Platform identifies a short-form video host.
type Platform string

// Known platforms. Only PlatformTikTok is supported for extraction.
const (
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
)

// MaxCacheTTL bounds the per-request cache TTL override.
const MaxCacheTTL = 7 * 24 * time.Hour

// VideoReference is a validated URL together with its platform and canonical id.
type VideoReference struct {
	Platform    Platform `json:"platform"`
	CanonicalID string   `json:"video_id"`
	RawURL      string   `json:"url"`
}

// ExtractionOptions selects the enrichments for a request. All fields take
// part in the cache key.
type ExtractionOptions struct {
	IncludeThumbnailAnalysis bool
	IncludeTranscript        bool
	// CacheTTL of zero means the configured default.
	CacheTTL time.Duration
}

// Validate checks the option values once at the boundary.
func (o ExtractionOptions) Validate() error {
	if o.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if o.CacheTTL > MaxCacheTTL {
		return fmt.Errorf("cache_ttl must not exceed %d seconds", int(MaxCacheTTL.Seconds()))
	}
	return nil
}

// TrackType tells whether a subtitle track was authored or machine generated.
type TrackType string

// Track types.
const (
	TrackManual TrackType = "manual"
	TrackAuto   TrackType = "auto"
)

// TranscriptSegment is one timed piece of transcript text.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// TranscriptResult is the selected, parsed and scored transcript of a video.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TranscriptResult struct {
	Language        string              `json:"language"`
	SourceTrackType TrackType           `json:"source_track_type"`
	Format          string              `json:"format"`
	ConfidenceScore float64             `json:"confidence_score"`
	Segments        []TranscriptSegment `json:"segments"`
	FullText        string              `json:"full_text"`
	WordCount       int                 `json:"word_count"`
	DurationSeconds float64             `json:"duration_seconds"`
}

// ThumbnailAnalysis is the structured, closed-vocabulary description of a thumbnail.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ThumbnailAnalysis struct {
	VisualStyle     string   `json:"visual_style"`
	Setting         string   `json:"setting"`
	CameraAngle     string   `json:"camera_angle"`
	ColorScheme     string   `json:"color_scheme"`
	PeopleCount     int      `json:"people_count"`
	HookElements    []string `json:"hook_elements"`
	ConfidenceScore float64  `json:"confidence_score"`
	PromptVersion   string   `json:"prompt_version"`
}

// Diagnostic records a degraded enrichment on an otherwise successful item.
type Diagnostic struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ExtractionResult is the normalized metadata of one video plus its enrichments.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ExtractionResult struct {
	URL               string             `json:"url"`
	Platform          Platform           `json:"platform"`
	VideoID           string             `json:"video_id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Uploader          string             `json:"uploader,omitempty"`
	DurationSeconds   float64            `json:"duration"`
	ViewCount         int64              `json:"view_count"`
	LikeCount         int64              `json:"like_count"`
	CommentCount      int64              `json:"comment_count"`
	ShareCount        int64              `json:"share_count"`
	UploadDate        string             `json:"upload_date,omitempty"`
	ThumbnailURL      string             `json:"thumbnail_url,omitempty"`
	ThumbnailAnalysis *ThumbnailAnalysis `json:"thumbnail_analysis,omitempty"`
	Transcript        *TranscriptResult  `json:"transcript,omitempty"`
	HasTranscript     bool               `json:"has_transcript"`
	Diagnostics       []Diagnostic       `json:"diagnostics,omitempty"`
	CacheHit          bool               `json:"cache_hit"`
	ProcessingTimeMs  int64              `json:"processing_time_ms"`
	ExtractedAt       time.Time          `json:"extracted_at"`
}

// AddDiagnostic appends a degraded-enrichment note.
func (r *ExtractionResult) AddDiagnostic(code, message string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{Code: code, Message: message})
}

// Clone returns a copy whose slices and nested pointers are not shared with r.
func (r *ExtractionResult) Clone() *ExtractionResult {
	if r == nil {
		return nil
	}
	cp := *r
	if r.ThumbnailAnalysis != nil {
		ta := *r.ThumbnailAnalysis
		ta.HookElements = append([]string(nil), r.ThumbnailAnalysis.HookElements...)
		cp.ThumbnailAnalysis = &ta
	}
	if r.Transcript != nil {
		tr := *r.Transcript
		tr.Segments = append([]TranscriptSegment(nil), r.Transcript.Segments...)
		cp.Transcript = &tr
	}
	cp.Diagnostics = append([]Diagnostic(nil), r.Diagnostics...)
	return &cp
}
