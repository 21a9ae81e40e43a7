package transcript

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/extractor"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// DefaultMaxBytes caps downloaded subtitle content.
const DefaultMaxBytes = 2 << 20

// Config configures a Processor.
type Config struct {
	// Languages is the default priority list, most preferred first.
	Languages       []string
	DownloadTimeout time.Duration
	MaxBytes        int64
}

// Processor turns the subtitle listing of a video into a TranscriptResult.
type Processor struct {
	httpClient *http.Client
	cfg        Config
}

// NewProcessor creates a Processor. A nil client means http.DefaultClient.
func NewProcessor(cfg Config, client *http.Client) *Processor {
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"id", "en"}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Processor{httpClient: client, cfg: cfg}
}

// Languages returns the default priority list.
func (p *Processor) Languages() []string {
	return append([]string(nil), p.cfg.Languages...)
}

// Process selects the best track of info, parses and scores it. A nil
// priority uses the configured languages.
//
// It returns TRANSCRIPT_UNAVAILABLE when the video has no usable tracks and
// TRANSCRIPT_EXTRACTION_FAILED when the selected track cannot be read.
func (p *Processor) Process(ctx context.Context, ref models.VideoReference, info *extractor.VideoInfo, priority []string) (*models.TranscriptResult, error) {
	if info == nil {
		return nil, apperr.New(apperr.CodeTranscriptUnavailable, "no subtitle tracks available").
			WithItem(ref.RawURL, string(ref.Platform))
	}
	if priority == nil {
		priority = p.cfg.Languages
	}

	track, ok := SelectTrack(EnumerateTracks(info.Subtitles, info.AutomaticCaptions), priority)
	if !ok {
		return nil, apperr.New(apperr.CodeTranscriptUnavailable, "no subtitle tracks available").
			WithItem(ref.RawURL, string(ref.Platform))
	}

	logger.Log.Debug("Selected subtitle track",
		zap.String("videoId", ref.CanonicalID),
		zap.String("language", track.Language),
		zap.String("type", string(track.Type)),
		zap.String("format", track.Format),
	)

	result, err := p.build(ctx, track, info.Duration)
	if err != nil {
		return nil, apperr.As(err).WithItem(ref.RawURL, string(ref.Platform))
	}
	return result, nil
}

func (p *Processor) build(ctx context.Context, track Track, durationSeconds float64) (*models.TranscriptResult, error) {
	content, err := p.content(ctx, track)
	if err != nil {
		return nil, err
	}

	parsed, err := Parse(track.Format, content)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeTranscriptExtractionFailed, "subtitle content could not be parsed", err)
	}

	segments, overlaps := Repair(parsed)
	if len(segments) == 0 {
		return nil, apperr.New(apperr.CodeTranscriptExtractionFailed, "subtitle track contains no text")
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	fullText := strings.Join(texts, " ")

	return &models.TranscriptResult{
		Language:        track.Language,
		SourceTrackType: track.Type,
		Format:          track.Format,
		ConfidenceScore: Score(track.Type, segments, overlaps, durationSeconds),
		Segments:        segments,
		FullText:        fullText,
		WordCount:       len(strings.Fields(fullText)),
		DurationSeconds: segments[len(segments)-1].End - segments[0].Start,
	}, nil
}

func (p *Processor) content(ctx context.Context, track Track) ([]byte, error) {
	if track.Data != "" {
		return []byte(track.Data), nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.DownloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, track.URL, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeTranscriptExtractionFailed, "invalid subtitle url", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.CodeTranscriptExtractionFailed, "subtitle download timed out", err)
		}
		return nil, apperr.Wrap(apperr.CodeTranscriptExtractionFailed, "subtitle download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Newf(apperr.CodeTranscriptExtractionFailed, "subtitle download returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxBytes+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeTranscriptExtractionFailed, "reading subtitle content", err)
	}
	if int64(len(body)) > p.cfg.MaxBytes {
		return nil, apperr.New(apperr.CodeTranscriptExtractionFailed,
			fmt.Sprintf("subtitle content exceeds %d bytes", p.cfg.MaxBytes))
	}
	return body, nil
}
