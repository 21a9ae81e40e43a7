package extractor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
)

// ProxySource warms the target URL through a scraping proxy API so the
// proxy's IP pool has the page, then delegates to the wrapped source.
type ProxySource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	next       Source
}

// NewProxySource creates a ProxySource. timeout bounds the warm-up request.
func NewProxySource(baseURL, apiKey string, timeout time.Duration, next Source) *ProxySource {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ProxySource{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		next:       next,
	}
}

func (p *ProxySource) Name() string { return "proxy:" + p.next.Name() }

func (p *ProxySource) Fetch(ctx context.Context, rawURL string) (*VideoInfo, error) {
	if err := p.warm(ctx, rawURL); err != nil {
		return nil, err
	}
	return p.next.Fetch(ctx, rawURL)
}

func (p *ProxySource) warm(ctx context.Context, rawURL string) error {
	endpoint, err := url.Parse(p.baseURL)
	if err != nil {
		return apperr.Wrap(apperr.CodeServiceUnavailable, "proxy base url is invalid", err)
	}
	q := endpoint.Query()
	q.Set("api_key", p.apiKey)
	q.Set("url", rawURL)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return apperr.Wrap(apperr.CodeServiceUnavailable, "create proxy request", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return classify(ctx.Err(), "")
		}
		return apperr.Wrap(apperr.CodeServiceUnavailable, "proxy request failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 400 {
		return apperr.Wrap(apperr.CodeServiceUnavailable, "proxy rejected request",
			fmt.Errorf("proxy returned status %d", resp.StatusCode))
	}
	return nil
}
