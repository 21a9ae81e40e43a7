package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storyboard-lab/video-extraction-go/internal/apperr"
	"github.com/storyboard-lab/video-extraction-go/pkg/logger"
)

const (
	headerAPIKey = "X-API-Key"
	headerAuth   = "Authorization"
	bearerPrefix = "Bearer "

	keyCaller = "apiKey"
)

// APIKeyAuth provides API key authentication middleware.
type APIKeyAuth struct {
	apiKeys map[string]bool
}

// NewAPIKeyAuth creates a new API key authentication middleware.
// Empty keys are ignored. With no keys left, Enabled reports false.
func NewAPIKeyAuth(apiKeys []string) *APIKeyAuth {
	keyMap := make(map[string]bool, len(apiKeys))
	for _, key := range apiKeys {
		if key != "" {
			keyMap[key] = true
		}
	}

	return &APIKeyAuth{
		apiKeys: keyMap,
	}
}

// Enabled reports whether any API key is configured.
func (a *APIKeyAuth) Enabled() bool {
	return len(a.apiKeys) > 0
}

// Middleware validates the API key. It checks for the key in the following order:
// 1. X-API-Key header
// 2. Authorization: Bearer <key> header
//
// If no valid API key is found, it aborts with 401 API_KEY_INVALID.
func (a *APIKeyAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c)

		if !a.isValidAPIKey(apiKey) {
			logger.FromContext(c.Request.Context()).Warn("Unauthorized request - invalid or missing API key",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("clientIp", c.ClientIP()),
			)
			AbortWithError(c, apperr.New(apperr.CodeAPIKeyInvalid, "invalid or missing API key"))
			return
		}

		c.Set(keyCaller, apiKey)
		c.Next()
	}
}

// extractAPIKey checks X-API-Key first, then Authorization: Bearer.
func extractAPIKey(c *gin.Context) string {
	if apiKey := c.GetHeader(headerAPIKey); apiKey != "" {
		return apiKey
	}

	authHeader := c.GetHeader(headerAuth)
	if strings.HasPrefix(authHeader, bearerPrefix) {
		return strings.TrimPrefix(authHeader, bearerPrefix)
	}

	return ""
}

// isValidAPIKey compares in constant time against every configured key.
func (a *APIKeyAuth) isValidAPIKey(providedKey string) bool {
	if providedKey == "" || len(a.apiKeys) == 0 {
		return false
	}

	valid := false
	for validKey := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(validKey)) == 1 {
			valid = true
		}
	}

	return valid
}
