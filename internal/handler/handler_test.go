package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/cache"
	"github.com/storyboard-lab/video-extraction-go/internal/extractor"
	"github.com/storyboard-lab/video-extraction-go/internal/middleware"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/internal/ratelimit"
	"github.com/storyboard-lab/video-extraction-go/internal/service"
	"github.com/storyboard-lab/video-extraction-go/internal/stats"
	"github.com/storyboard-lab/video-extraction-go/internal/thumbnail"
	"github.com/storyboard-lab/video-extraction-go/internal/validation"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "")
}

const (
	videoURL      = "https://www.tiktok.com/@chef/video/7000000000000000001"
	otherVideoURL = "https://www.tiktok.com/@chef/video/7000000000000000002"
	photoURL      = "https://www.tiktok.com/@chef/photo/7000000000000000009"
)

// fakeAdapter returns a fixed extraction, or the error scripted for a video id.
type fakeAdapter struct {
	mu           sync.Mutex
	calls        int
	errs         map[string]error
	thumbnailURL string
}

func (f *fakeAdapter) Extract(_ context.Context, ref models.VideoReference) (*extractor.Extraction, error) {
	f.mu.Lock()
	f.calls++
	err := f.errs[ref.CanonicalID]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &extractor.Extraction{
		Result: &models.ExtractionResult{
			URL:             ref.RawURL,
			Platform:        ref.Platform,
			VideoID:         ref.CanonicalID,
			Title:           "pasta in five minutes",
			DurationSeconds: 42,
			ViewCount:       1200,
			ThumbnailURL:    f.thumbnailURL,
			ExtractedAt:     time.Now().UTC(),
		},
		Info: &extractor.VideoInfo{ID: ref.CanonicalID},
	}, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeVision answers with a fixed JSON document, or blocks until the
// context ends when slow is set.
type fakeVision struct {
	slow bool
}

func (v *fakeVision) Describe(ctx context.Context, _ []byte, _, _ string) (string, error) {
	if v.slow {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return `{"visual_style":"tutorial","setting":"kitchen","camera_angle":"overhead",` +
		`"color_scheme":"warm","people_count":1,"hook_elements":["text_overlay"],"confidence_score":0.8}`, nil
}

func (v *fakeVision) Name() string { return "fake" }

//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type testServer struct {
	router   *gin.Engine
	adapter  *fakeAdapter
	service  *service.ExtractionService
	recorder *stats.Recorder
}

//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type serverOptions struct {
	vision    thumbnail.VisionClient
	available func() bool
	apiKeys   []string
	limit     int
	checks    []DependencyCheck
	errs      map[string]error
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	images := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10})
	}))
	t.Cleanup(images.Close)

	if opts.vision == nil {
		opts.vision = &fakeVision{}
	}
	if opts.limit == 0 {
		opts.limit = 100
	}

	adapter := &fakeAdapter{errs: opts.errs, thumbnailURL: images.URL + "/thumb.jpg"}
	metrics := stats.NewMetrics()
	recorder := stats.NewRecorder(metrics)
	c := cache.New(cache.NewMemoryBackend(100), true, time.Hour)
	analyzer := thumbnail.NewAnalyzer(opts.vision, images.Client(), thumbnail.Config{
		Timeout:      100 * time.Millisecond,
		ImageTimeout: 100 * time.Millisecond,
	})

	svc := service.NewExtractionService(service.Deps{
		Adapter:    adapter,
		Thumbnails: analyzer,
		Cache:      c,
		Stats:      recorder,
	}, service.Config{MaxConcurrent: 2, ItemTimeout: 2 * time.Second, BatchTimeout: 5 * time.Second})
	t.Cleanup(svc.Wait)

	limitations := models.Limitations{
		MaxURLsPerBatch:          3,
		RateLimitPerMinute:       opts.limit,
		MaxVideoDurationSeconds:  600,
		MaxConcurrentExtractions: 2,
	}

	router := NewRouter(RouterConfig{
		Extraction: NewExtractionHandler(svc, validation.New(3), opts.available),
		Health:     NewHealthHandler("test", recorder, c, limitations, opts.checks...),
		Auth:       middleware.NewAPIKeyAuth(opts.apiKeys),
		Limiter:    ratelimit.NewFixedWindow(opts.limit, time.Minute),
		Metrics:    metrics,
		Recorder:   recorder,
	})

	return &testServer{router: router, adapter: adapter, service: svc, recorder: recorder}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success  bool                    `json:"success"`
	Data     json.RawMessage         `json:"data"`
	Error    *models.ErrorBody       `json:"error"`
	Metadata models.ResponseMetadata `json:"metadata"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestExtract_Success(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.NotEmpty(t, env.Metadata.RequestID)
	assert.Equal(t, rec.Header().Get(middleware.HeaderRequestID), env.Metadata.RequestID)
	require.NotNil(t, env.Metadata.RateLimit)
	assert.Equal(t, 99, env.Metadata.RateLimit.Remaining)

	result := decodeData[models.ExtractionResult](t, env)
	assert.Equal(t, "7000000000000000001", result.VideoID)
	assert.Equal(t, models.PlatformTikTok, result.Platform)
	assert.False(t, result.CacheHit)
	require.NotNil(t, result.ThumbnailAnalysis)
	assert.Equal(t, "tutorial", result.ThumbnailAnalysis.VisualStyle)
	assert.Equal(t, "kitchen", result.ThumbnailAnalysis.Setting)
	assert.Nil(t, result.Transcript)
	assert.False(t, result.HasTranscript)

	t.Run("second request is served from cache", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL})
		require.Equal(t, http.StatusOK, rec.Code)

		result := decodeData[models.ExtractionResult](t, decode(t, rec))
		assert.True(t, result.CacheHit)
		assert.Equal(t, 1, s.adapter.callCount())
	})
}

func TestExtract_ThumbnailTimeoutDegrades(t *testing.T) {
	s := newTestServer(t, serverOptions{vision: &fakeVision{slow: true}})

	rec := s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.NotContains(t, string(env.Data), "thumbnail_analysis")

	result := decodeData[models.ExtractionResult](t, env)
	assert.Equal(t, "pasta in five minutes", result.Title)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, string(apperr.CodeThumbnailAnalysisFailed), result.Diagnostics[0].Code)
}

func TestExtract_RequestErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   apperr.Code
	}{
		{
			name:       "malformed json",
			body:       `{"url":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeInvalidInput,
		},
		{
			name:       "missing url",
			body:       gin.H{},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeInvalidURL,
		},
		{
			name:       "not a url",
			body:       gin.H{"url": "not a url"},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeInvalidURL,
		},
		{
			name:       "youtube",
			body:       gin.H{"url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeUnsupportedPlatform,
		},
		{
			name:       "photo post",
			body:       gin.H{"url": photoURL},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperr.CodeNotVideoContent,
		},
		{
			name:       "negative cache ttl",
			body:       gin.H{"url": videoURL, "cache_ttl": -5},
			wantStatus: http.StatusBadRequest,
			wantCode:   apperr.CodeInvalidInput,
		},
	}

	s := newTestServer(t, serverOptions{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/extract", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			env := decode(t, rec)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, string(tt.wantCode), env.Error.Code)
		})
	}
	assert.Zero(t, s.adapter.callCount())
}

func TestExtract_ExtractionErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperr.Code
	}{
		{
			name:       "private video",
			err:        apperr.New(apperr.CodeVideoUnavailable, "video is private"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperr.CodeVideoUnavailable,
		},
		{
			name:       "too long",
			err:        apperr.New(apperr.CodeVideoTooLong, "video exceeds 600 seconds"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperr.CodeVideoTooLong,
		},
		{
			name:       "timeout",
			err:        apperr.Wrap(apperr.CodeTimeout, "extraction timed out", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   apperr.CodeTimeout,
		},
		{
			name:       "unclassified",
			err:        errors.New("exit status 1"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   apperr.CodeExtractionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, serverOptions{errs: map[string]error{"7000000000000000001": tt.err}})

			rec := s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL})
			assert.Equal(t, tt.wantStatus, rec.Code)

			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, string(tt.wantCode), env.Error.Code)
			assert.NotContains(t, rec.Body.String(), "exit status")
		})
	}
}

func TestExtract_BackendUnavailable(t *testing.T) {
	s := newTestServer(t, serverOptions{available: func() bool { return false }})

	for _, path := range []string{"/extract", "/extract/batch"} {
		body := gin.H{"url": videoURL, "urls": []string{videoURL}}
		rec := s.do(t, http.MethodPost, path, body)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)

		env := decode(t, rec)
		require.NotNil(t, env.Error)
		assert.Equal(t, string(apperr.CodeServiceUnavailable), env.Error.Code)
	}
	assert.Zero(t, s.adapter.callCount())
}

func TestExtractBatch(t *testing.T) {
	s := newTestServer(t, serverOptions{errs: map[string]error{
		"7000000000000000002": apperr.New(apperr.CodeVideoUnavailable, "video was removed"),
	}})

	rec := s.do(t, http.MethodPost, "/extract/batch", gin.H{
		"urls":                       []string{videoURL, otherVideoURL, photoURL},
		"include_thumbnail_analysis": false,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env := decode(t, rec)
	assert.True(t, env.Success)

	batch := decodeData[models.BatchResult](t, env)
	require.Len(t, batch.Processed, 1)
	assert.Equal(t, 0, batch.Processed[0].Index)
	assert.Equal(t, videoURL, batch.Processed[0].URL)
	assert.Equal(t, models.ItemSuccess, batch.Processed[0].Status)
	assert.Nil(t, batch.Processed[0].Data.ThumbnailAnalysis)

	require.Len(t, batch.Failed, 2)
	assert.Equal(t, 1, batch.Failed[0].Index)
	assert.Equal(t, string(apperr.CodeVideoUnavailable), batch.Failed[0].Error.Code)
	assert.Equal(t, 2, batch.Failed[1].Index)
	assert.Equal(t, string(apperr.CodeNotVideoContent), batch.Failed[1].Error.Code)

	assert.Equal(t, 3, batch.Summary.TotalRequested)
	assert.Equal(t, 1, batch.Summary.Successful)
	assert.Equal(t, 2, batch.Summary.Failed)
	assert.Equal(t, 2, s.adapter.callCount())
}

func TestExtractBatch_RequestErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantCode apperr.Code
	}{
		{name: "empty list", body: gin.H{"urls": []string{}}, wantCode: apperr.CodeInvalidInput},
		{name: "missing list", body: gin.H{}, wantCode: apperr.CodeInvalidInput},
		{
			name:     "too many urls",
			body:     gin.H{"urls": []string{videoURL, videoURL, videoURL, videoURL}},
			wantCode: apperr.CodeInvalidInput,
		},
		{name: "malformed json", body: `{"urls": [`, wantCode: apperr.CodeInvalidInput},
	}

	s := newTestServer(t, serverOptions{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/extract/batch", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, string(tt.wantCode), env.Error.Code)
		})
	}
	assert.Zero(t, s.adapter.callCount())
}

func TestInvalidateCache(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL, "cache_ttl": 600}).Code)
	require.Equal(t, 1, s.adapter.callCount(), "custom ttl shares the entry")

	rec := s.do(t, http.MethodDelete, "/cache?url="+videoURL, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	inv := decodeData[CacheInvalidation](t, decode(t, rec))
	assert.Equal(t, "7000000000000000001", inv.VideoID)
	assert.Equal(t, 4, inv.KeysCleared)

	rec = s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL, "cache_ttl": 600})
	result := decodeData[models.ExtractionResult](t, decode(t, rec))
	assert.False(t, result.CacheHit)
	assert.Equal(t, 2, s.adapter.callCount())

	t.Run("missing url", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/cache", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(apperr.CodeInvalidInput), decode(t, rec).Error.Code)
	})

	t.Run("invalid url", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/cache?url=nope", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(apperr.CodeInvalidURL), decode(t, rec).Error.Code)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	s := newTestServer(t, serverOptions{apiKeys: []string{"secret"}})

	rec := s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(apperr.CodeAPIKeyInvalid), decode(t, rec).Error.Code)

	rec = s.do(t, http.MethodDelete, "/cache?url="+videoURL, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL}, "X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{"/health", "/supported-platforms", "/stats", "/metrics"} {
		rec := s.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, serverOptions{limit: 1})

	rec := s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/extract/batch", gin.H{"urls": []string{videoURL}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, string(apperr.CodeRateLimitExceeded), decode(t, rec).Error.Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/health", nil).Code)
}

func TestHealth(t *testing.T) {
	failing := func(context.Context) error { return errors.New("connection refused") }
	ok := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		checks     []DependencyCheck
		wantStatus int
		wantHealth string
		wantDeps   map[string]string
	}{
		{
			name: "all healthy",
			checks: []DependencyCheck{
				{Name: "extractor", Critical: true, Check: ok},
				{Name: "cache", Check: ok},
				{Name: "vision", Check: nil},
			},
			wantStatus: http.StatusOK,
			wantHealth: StatusHealthy,
			wantDeps:   map[string]string{"extractor": StatusHealthy, "cache": StatusHealthy, "vision": StatusDisabled},
		},
		{
			name: "optional dependency down",
			checks: []DependencyCheck{
				{Name: "extractor", Critical: true, Check: ok},
				{Name: "rabbitmq", Check: failing},
			},
			wantStatus: http.StatusOK,
			wantHealth: StatusDegraded,
			wantDeps:   map[string]string{"extractor": StatusHealthy, "rabbitmq": StatusUnhealthy},
		},
		{
			name: "critical dependency down",
			checks: []DependencyCheck{
				{Name: "extractor", Critical: true, Check: failing},
				{Name: "rabbitmq", Check: failing},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantHealth: StatusUnhealthy,
			wantDeps:   map[string]string{"extractor": StatusUnhealthy, "rabbitmq": StatusUnhealthy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, serverOptions{checks: tt.checks})

			rec := s.do(t, http.MethodGet, "/health", nil)
			assert.Equal(t, tt.wantStatus, rec.Code)

			env := decode(t, rec)
			assert.Equal(t, tt.wantStatus == http.StatusOK, env.Success)
			if tt.wantStatus != http.StatusOK {
				require.NotNil(t, env.Error)
				assert.Equal(t, string(apperr.CodeServiceUnavailable), env.Error.Code)
			}

			health := decodeData[models.HealthResponse](t, env)
			assert.Equal(t, tt.wantHealth, health.Status)
			assert.Equal(t, "test", health.Version)
			assert.Equal(t, tt.wantDeps, health.Dependencies)
		})
	}
}

func TestSupportedPlatforms(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodGet, "/supported-platforms", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeData[models.SupportedPlatformsResponse](t, decode(t, rec))
	require.Len(t, resp.Platforms, 1)
	assert.Equal(t, "tiktok", resp.Platforms[0].Name)
	assert.Equal(t, "tiktok.com", resp.Platforms[0].Domain)
	assert.ElementsMatch(t, []string{"metadata", "thumbnail_analysis", "transcript"}, resp.Platforms[0].SupportedFeatures)
	assert.NotEmpty(t, resp.Platforms[0].URLPatterns)
	assert.Equal(t, 3, resp.Limitations.MaxURLsPerBatch)
	assert.Equal(t, 100, resp.Limitations.RateLimitPerMinute)
}

func TestStats(t *testing.T) {
	s := newTestServer(t, serverOptions{errs: map[string]error{
		"7000000000000000002": apperr.New(apperr.CodeVideoUnavailable, "video was removed"),
	}})

	s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL})
	s.do(t, http.MethodPost, "/extract", gin.H{"url": videoURL})
	s.do(t, http.MethodPost, "/extract", gin.H{"url": otherVideoURL})

	rec := s.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeData[StatsResponse](t, decode(t, rec))
	assert.Equal(t, int64(3), resp.TotalExtractions)
	assert.Equal(t, int64(2), resp.Successful)
	assert.Equal(t, int64(1), resp.Failed)
	assert.Equal(t, int64(1), resp.CacheHits)
	assert.Equal(t, int64(1), resp.ByErrorCode[string(apperr.CodeVideoUnavailable)])
	assert.True(t, resp.Cache.Enabled)
	assert.Equal(t, int64(1), resp.Cache.Hits)
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.do(t, http.MethodGet, "/health", nil)

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "video_extraction_http_requests_total"))
}

func TestUnknownRoutes(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.NotEmpty(t, env.Metadata.RequestID)

	rec = s.do(t, http.MethodGet, "/extract", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
