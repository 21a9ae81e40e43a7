package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestID assigns every request an id. A caller-supplied UUID is kept,
// anything else is replaced. The id is stored in the gin context, in the
// request context for logging, and echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(keyStartedAt, time.Now())

		id := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(keyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))

		c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "".
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(keyRequestID)
}
