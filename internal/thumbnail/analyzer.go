// Package thumbnail describes video thumbnails with a vision model and maps
// the answer onto closed vocabularies.
package thumbnail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// PromptVersion identifies the prompt below. Bump it whenever the prompt or
// the vocabularies change.
const PromptVersion = "thumbnail-v2"

// DefaultMaxImageBytes caps downloaded thumbnails.
const DefaultMaxImageBytes = 5 << 20

// VisionClient sends one image and a prompt to a vision model and returns
// the raw text answer.
type VisionClient interface {
	Describe(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
	Name() string
}

// Config configures an Analyzer.
type Config struct {
	// Timeout bounds one whole analysis, download included.
	Timeout       time.Duration
	ImageTimeout  time.Duration
	MaxImageBytes int64
}

// Analyzer downloads thumbnails and asks a VisionClient to describe them.
type Analyzer struct {
	vision     VisionClient
	httpClient *http.Client
	cfg        Config
}

// NewAnalyzer creates an Analyzer. A nil vision client yields an analyzer
// that reports every request as failed with "vision service not configured".
func NewAnalyzer(vision VisionClient, client *http.Client, cfg Config) *Analyzer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ImageTimeout <= 0 {
		cfg.ImageTimeout = 10 * time.Second
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Analyzer{vision: vision, httpClient: client, cfg: cfg}
}

// Enabled reports whether a vision provider is configured.
func (a *Analyzer) Enabled() bool {
	return a != nil && a.vision != nil
}

// Provider names the configured vision provider, or "disabled".
func (a *Analyzer) Provider() string {
	if !a.Enabled() {
		return "disabled"
	}
	return a.vision.Name()
}

// Analyze describes the thumbnail at thumbnailURL. Every failure is reported
// as THUMBNAIL_ANALYSIS_FAILED.
func (a *Analyzer) Analyze(ctx context.Context, thumbnailURL string) (*models.ThumbnailAnalysis, error) {
	if !a.Enabled() {
		return nil, apperr.New(apperr.CodeThumbnailAnalysisFailed, "vision service not configured")
	}
	if thumbnailURL == "" {
		return nil, apperr.New(apperr.CodeThumbnailAnalysisFailed, "video has no thumbnail")
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	image, mimeType, err := a.download(ctx, thumbnailURL)
	if err != nil {
		return nil, failure("thumbnail download failed", err)
	}

	answer, err := a.vision.Describe(ctx, image, mimeType, Prompt())
	if err != nil {
		return nil, failure("vision request failed", err)
	}

	raw, err := decodeAnswer(answer)
	if err != nil {
		logger.Log.Warn("Vision answer is not valid JSON",
			zap.String("provider", a.vision.Name()),
			zap.Int("answerLength", len(answer)),
			zap.Error(err),
		)
		return nil, failure("vision answer could not be parsed", err)
	}

	return normalize(raw), nil
}

func failure(message string, err error) *apperr.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		message = "thumbnail analysis timed out"
	}
	return apperr.Wrap(apperr.CodeThumbnailAnalysisFailed, message, err)
}

func (a *Analyzer) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ImageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch thumbnail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("thumbnail host returned status %d", resp.StatusCode)
	}

	mimeType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read thumbnail: %w", err)
	}
	if int64(len(body)) > a.cfg.MaxImageBytes {
		return nil, "", fmt.Errorf("thumbnail exceeds %d bytes", a.cfg.MaxImageBytes)
	}
	if len(body) == 0 {
		return nil, "", errors.New("thumbnail is empty")
	}
	return body, mimeType, nil
}

// decodeAnswer extracts the JSON object from a model answer that may be
// wrapped in code fences or surrounded by prose.
func decodeAnswer(answer string) (rawAnalysis, error) {
	var raw rawAnalysis

	s := strings.TrimSpace(answer)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return raw, errors.New("no JSON object in answer")
	}

	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return raw, fmt.Errorf("decode answer: %w", err)
	}
	return raw, nil
}

// Prompt returns the fixed analysis prompt.
func Prompt() string {
	return fmt.Sprintf(`You are analyzing the thumbnail of a short-form vertical video.

Describe the image using ONLY the allowed values below.

- visual_style: one of %s
- setting: one of %s
- camera_angle: one of %s
- color_scheme: one of %s
- people_count: number of clearly visible people (0-20)
- hook_elements: zero or more of %s
- confidence_score: 0.0 to 1.0, how confident you are in this description

Use "unknown" when a value cannot be determined.

Return your response as a single JSON object in this exact format:
{
  "visual_style": "talking_head",
  "setting": "kitchen",
  "camera_angle": "close_up",
  "color_scheme": "warm",
  "people_count": 1,
  "hook_elements": ["text_overlay"],
  "confidence_score": 0.85
}

Only return the JSON, no additional text or explanation.`,
		strings.Join(VisualStyles, ", "),
		strings.Join(Settings, ", "),
		strings.Join(CameraAngles, ", "),
		strings.Join(ColorSchemes, ", "),
		strings.Join(HookElements, ", "),
	)
}
