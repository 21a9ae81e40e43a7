package middleware

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/internal/ratelimit"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// Limiter admits requests per caller.
type Limiter interface {
	Allow(callerID string) ratelimit.Decision
}

// RateLimit admits requests through limiter. The caller is the API key set by
// APIKeyAuth, else the client IP.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := limiter.Allow(CallerID(c))
		c.Set(keyRateLimit, d)

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			retryAfter := int(math.Ceil(d.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			logger.FromContext(c.Request.Context()).Warn("Rate limit exceeded",
				zap.String("path", c.Request.URL.Path),
				zap.String("clientIp", c.ClientIP()),
				zap.Int("retryAfterSeconds", retryAfter),
			)
			AbortWithError(c, apperr.Newf(apperr.CodeRateLimitExceeded,
				"rate limit of %d requests exceeded, retry in %d seconds", d.Limit, retryAfter))
			return
		}

		c.Next()
	}
}

// CallerID identifies the caller for rate limiting.
func CallerID(c *gin.Context) string {
	if key := c.GetString(keyCaller); key != "" {
		return "key:" + key
	}
	return "ip:" + c.ClientIP()
}
