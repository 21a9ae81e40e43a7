// Package handler provides HTTP request handlers for the application.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/middleware"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/internal/service"
	"github.com/storyboard-lab/video-extraction-go/internal/validation"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// ExtractionHandler handles the extraction and cache endpoints.
type ExtractionHandler struct {
	service   *service.ExtractionService
	validator *validation.Validator
	available func() bool
}

// NewExtractionHandler creates a new ExtractionHandler. available reports
// whether the extraction backend can serve requests; nil means always.
func NewExtractionHandler(svc *service.ExtractionService, validator *validation.Validator, available func() bool) *ExtractionHandler {
	if available == nil {
		available = func() bool { return true }
	}
	return &ExtractionHandler{
		service:   svc,
		validator: validator,
		available: available,
	}
}

// Extract handles POST /extract.
func (h *ExtractionHandler) Extract(c *gin.Context) {
	var req models.ExtractRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return
	}

	opts := req.Options()
	if err := opts.Validate(); err != nil {
		h.handleError(c, apperr.Wrap(apperr.CodeInvalidInput, err.Error(), err))
		return
	}

	ref, err := h.validator.Validate(req.URL)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if !h.available() {
		h.handleError(c, apperr.New(apperr.CodeServiceUnavailable, "extraction backend is not available"))
		return
	}

	result, err := h.service.ExtractOne(c.Request.Context(), ref, opts)
	if err != nil {
		h.handleError(c, err)
		return
	}

	middleware.RespondSuccess(c, http.StatusOK, result)
}

// ExtractBatch handles POST /extract/batch. Item failures do not change the
// response status.
func (h *ExtractionHandler) ExtractBatch(c *gin.Context) {
	var req models.BatchExtractRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return
	}

	opts := req.Options()
	if err := opts.Validate(); err != nil {
		h.handleError(c, apperr.Wrap(apperr.CodeInvalidInput, err.Error(), err))
		return
	}

	items, err := h.validator.ValidateBatch(req.URLs)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if !h.available() {
		h.handleError(c, apperr.New(apperr.CodeServiceUnavailable, "extraction backend is not available"))
		return
	}

	result := h.service.ExtractBatch(c.Request.Context(), items, opts, req.Parallel())

	middleware.RespondSuccess(c, http.StatusOK, result)
}

// CacheInvalidation is the body of a DELETE /cache response.
type CacheInvalidation struct {
	URL         string `json:"url"`
	VideoID     string `json:"video_id"`
	KeysCleared int    `json:"keys_cleared"`
}

// InvalidateCache handles DELETE /cache?url=...
func (h *ExtractionHandler) InvalidateCache(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		h.handleError(c, apperr.New(apperr.CodeInvalidInput, "url query parameter is required"))
		return
	}

	ref, err := h.validator.Validate(raw)
	if err != nil {
		h.handleError(c, err)
		return
	}

	cleared, err := h.service.Cache().InvalidateAll(c.Request.Context(), ref)
	if err != nil {
		h.handleError(c, apperr.Wrap(apperr.CodeServiceUnavailable, "cache invalidation failed", err))
		return
	}

	logger.FromContext(c.Request.Context()).Info("Cache invalidated",
		zap.String("videoId", ref.CanonicalID),
		zap.Int("keysCleared", cleared),
	)

	middleware.RespondSuccess(c, http.StatusOK, CacheInvalidation{
		URL:         ref.RawURL,
		VideoID:     ref.CanonicalID,
		KeysCleared: cleared,
	})
}

func (h *ExtractionHandler) handleError(c *gin.Context, err error) {
	appErr := apperr.As(err)
	log := logger.FromContext(c.Request.Context())

	switch status := apperr.HTTPStatus(appErr.Code); {
	case status >= http.StatusInternalServerError:
		log.Error("Extraction request failed",
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	default:
		log.Warn("Extraction request rejected",
			zap.String("code", string(appErr.Code)),
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
	}

	middleware.RespondError(c, appErr)
}
