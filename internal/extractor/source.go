// Package extractor fetches normalized video metadata from external sources
// with bounded retries and an optional fallback channel.
package extractor

import (
	"context"
	"strings"
)

// SubtitleFormat is one downloadable rendition of a subtitle track.
type SubtitleFormat struct {
	Ext  string `json:"ext"`
	URL  string `json:"url"`
	Data string `json:"data,omitempty"`
	Name string `json:"name,omitempty"`
}

// MediaFormat is the subset of a media format entry used for content checks.
type MediaFormat struct {
	FormatID string `json:"format_id"`
	VCodec   string `json:"vcodec"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// VideoInfo is the subset of yt-dlp's info JSON the service relies on.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type VideoInfo struct {
	ID                string                      `json:"id"`
	Type              string                      `json:"_type"`
	Title             string                      `json:"title"`
	Description       string                      `json:"description"`
	Uploader          string                      `json:"uploader"`
	Duration          float64                     `json:"duration"`
	ViewCount         int64                       `json:"view_count"`
	LikeCount         int64                       `json:"like_count"`
	CommentCount      int64                       `json:"comment_count"`
	RepostCount       int64                       `json:"repost_count"`
	UploadDate        string                      `json:"upload_date"`
	Thumbnail         string                      `json:"thumbnail"`
	WebpageURL        string                      `json:"webpage_url"`
	URL               string                      `json:"url"`
	FormatID          string                      `json:"format_id"`
	VCodec            string                      `json:"vcodec"`
	Width             int                         `json:"width"`
	Height            int                         `json:"height"`
	Formats           []MediaFormat               `json:"formats"`
	Subtitles         map[string][]SubtitleFormat `json:"subtitles"`
	AutomaticCaptions map[string][]SubtitleFormat `json:"automatic_captions"`
}

// IsVideo reports whether the info describes playable video rather than
// a photo post or a placeholder.
func (v *VideoInfo) IsVideo() bool {
	if v == nil || v.Duration <= 0 {
		return false
	}
	if v.Type == "video" {
		return true
	}
	if len(v.Formats) > 0 || v.FormatID != "" || v.URL != "" {
		return true
	}
	if v.VCodec != "" && !strings.EqualFold(v.VCodec, "none") {
		return true
	}
	return v.Width > 0 && v.Height > 0
}

// Source fetches the info JSON of one URL.
type Source interface {
	Fetch(ctx context.Context, rawURL string) (*VideoInfo, error)
	Name() string
}
