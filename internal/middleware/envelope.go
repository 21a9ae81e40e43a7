// Package middleware provides the gin middleware and response envelope
// shared by every endpoint.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
	"github.com/storyboard-lab/video-extraction-go/internal/ratelimit"
)

// gin context keys.
const (
	keyRequestID = "requestId"
	keyStartedAt = "requestStartedAt"
	keyRateLimit = "rateLimitDecision"
)

// Metadata builds the envelope metadata of the current request.
func Metadata(c *gin.Context) models.ResponseMetadata {
	meta := models.ResponseMetadata{
		RequestID:  RequestIDFrom(c),
		APIVersion: models.APIVersion,
		Timestamp:  time.Now().UTC(),
	}
	if v, ok := c.Get(keyStartedAt); ok {
		if started, ok := v.(time.Time); ok {
			ms := time.Since(started).Milliseconds()
			meta.ProcessingTimeMs = &ms
		}
	}
	if v, ok := c.Get(keyRateLimit); ok {
		if d, ok := v.(ratelimit.Decision); ok {
			meta.RateLimit = &models.RateLimitInfo{Remaining: d.Remaining, ResetAt: d.ResetAt.UTC()}
		}
	}
	return meta
}

// RespondSuccess writes a success envelope.
func RespondSuccess(c *gin.Context, status int, data any) {
	c.JSON(status, models.Envelope{
		Success:  true,
		Data:     data,
		Metadata: Metadata(c),
	})
}

// RespondError writes an error envelope with the status mapped from the code.
func RespondError(c *gin.Context, err *apperr.Error) {
	RespondErrorWithStatus(c, apperr.HTTPStatus(err.Code), err)
}

// RespondErrorWithStatus writes an error envelope with an explicit status.
func RespondErrorWithStatus(c *gin.Context, status int, err *apperr.Error) {
	body := models.NewErrorBody(err)
	c.JSON(status, models.Envelope{
		Success:  false,
		Error:    &body,
		Metadata: Metadata(c),
	})
}

// AbortWithError writes an error envelope and stops the handler chain.
func AbortWithError(c *gin.Context, err *apperr.Error) {
	RespondError(c, err)
	c.Abort()
}
