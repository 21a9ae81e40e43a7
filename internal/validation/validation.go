// Package validation turns raw video URLs into validated references.
package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
)

// ShortIDPrefix marks canonical ids that are unresolved short-link codes.
const ShortIDPrefix = "short:"

var (
	videoPathRegex  = regexp.MustCompile(`^/@[\w.-]+/video/(\d+)/?$`)
	photoPathRegex  = regexp.MustCompile(`^/@[\w.-]+/photo/(\d+)/?$`)
	mobilePathRegex = regexp.MustCompile(`^/v/(\d+)(?:\.html)?/?$`)
	embedPathRegex  = regexp.MustCompile(`^/embed(?:/v2)?/(\d+)/?$`)
	shortPathRegex  = regexp.MustCompile(`^/([A-Za-z0-9]+)/?$`)
	shortTPathRegex = regexp.MustCompile(`^/t/([A-Za-z0-9]+)/?$`)
)

var tiktokHosts = map[string]bool{
	"tiktok.com":     true,
	"www.tiktok.com": true,
	"m.tiktok.com":   true,
}

var tiktokShortHosts = map[string]bool{
	"vm.tiktok.com": true,
	"vt.tiktok.com": true,
}

// Hosts of platforms we recognize but do not extract from.
var unsupportedDomains = map[string]models.Platform{
	"youtube.com":   models.PlatformYouTube,
	"youtu.be":      models.PlatformYouTube,
	"instagram.com": models.PlatformInstagram,
}

// Validator checks URLs and batch sizes. It has no side effects.
type Validator struct {
	maxURLsPerBatch int
}

// New creates a Validator that accepts batches of up to maxURLsPerBatch URLs.
func New(maxURLsPerBatch int) *Validator {
	if maxURLsPerBatch <= 0 {
		maxURLsPerBatch = 3
	}
	return &Validator{maxURLsPerBatch: maxURLsPerBatch}
}

// MaxURLsPerBatch returns the configured batch ceiling.
func (v *Validator) MaxURLsPerBatch() int {
	return v.maxURLsPerBatch
}

// Validate parses raw and returns its platform and canonical id.
func (v *Validator) Validate(raw string) (models.VideoReference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.VideoReference{}, apperr.New(apperr.CodeInvalidURL, "url must not be empty")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return models.VideoReference{}, apperr.Wrap(apperr.CodeInvalidURL, "url could not be parsed", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.VideoReference{}, apperr.Newf(apperr.CodeInvalidURL, "unsupported url scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return models.VideoReference{}, apperr.New(apperr.CodeInvalidURL, "url has no host")
	}

	if platform, ok := unsupportedPlatform(host); ok {
		return models.VideoReference{}, &apperr.Error{
			Code:     apperr.CodeUnsupportedPlatform,
			Message:  "platform is not supported: " + string(platform),
			URL:      trimmed,
			Platform: string(platform),
		}
	}

	switch {
	case tiktokShortHosts[host]:
		if m := shortPathRegex.FindStringSubmatch(u.Path); m != nil {
			return v.reference(trimmed, ShortIDPrefix+m[1]), nil
		}
	case tiktokHosts[host]:
		return v.validateTikTokPath(trimmed, u.Path)
	default:
		return models.VideoReference{}, apperr.Newf(apperr.CodeInvalidURL, "unrecognized host %q", host)
	}

	return models.VideoReference{}, apperr.New(apperr.CodeInvalidURL, "url does not point to a video")
}

func (v *Validator) validateTikTokPath(raw, path string) (models.VideoReference, error) {
	if photoPathRegex.MatchString(path) {
		return models.VideoReference{}, &apperr.Error{
			Code:     apperr.CodeNotVideoContent,
			Message:  "url points to a photo post",
			URL:      raw,
			Platform: string(models.PlatformTikTok),
		}
	}

	for _, re := range []*regexp.Regexp{videoPathRegex, mobilePathRegex, embedPathRegex} {
		if m := re.FindStringSubmatch(path); m != nil {
			return v.reference(raw, m[1]), nil
		}
	}

	if m := shortTPathRegex.FindStringSubmatch(path); m != nil {
		return v.reference(raw, ShortIDPrefix+m[1]), nil
	}

	return models.VideoReference{}, apperr.New(apperr.CodeInvalidURL, "url does not point to a video")
}

func (v *Validator) reference(raw, id string) models.VideoReference {
	return models.VideoReference{
		Platform:    models.PlatformTikTok,
		CanonicalID: id,
		RawURL:      raw,
	}
}

// BatchItem is one validated batch entry. Err holds a per-item failure that
// does not reject the whole batch, such as NOT_VIDEO_CONTENT.
type BatchItem struct {
	Index int
	URL   string
	Ref   models.VideoReference
	Err   error
}

// ValidateBatch checks the batch size, then validates every URL. Any
// request-shape error fails the whole call so no partial work is dispatched.
func (v *Validator) ValidateBatch(urls []string) ([]BatchItem, error) {
	if len(urls) == 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "at least one url is required")
	}
	if len(urls) > v.maxURLsPerBatch {
		return nil, apperr.Newf(apperr.CodeInvalidInput,
			"a batch accepts at most %d urls, got %d", v.maxURLsPerBatch, len(urls))
	}

	items := make([]BatchItem, 0, len(urls))
	for i, raw := range urls {
		ref, err := v.Validate(raw)
		if err != nil && apperr.IsRequestShape(apperr.CodeOf(err)) {
			appErr := apperr.As(err)
			return nil, appErr.WithItem(raw, appErr.Platform)
		}
		items = append(items, BatchItem{Index: i, URL: raw, Ref: ref, Err: err})
	}
	return items, nil
}

func unsupportedPlatform(host string) (models.Platform, bool) {
	for domain, platform := range unsupportedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return platform, true
		}
	}
	return "", false
}

// URLPatterns lists the accepted URL shapes in display form.
func URLPatterns() []string {
	return []string{
		"https://www.tiktok.com/@{username}/video/{id}",
		"https://m.tiktok.com/v/{id}.html",
		"https://www.tiktok.com/embed/v2/{id}",
		"https://www.tiktok.com/t/{code}",
		"https://vm.tiktok.com/{code}",
		"https://vt.tiktok.com/{code}",
	}
}
