package webhook

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nurture_backend/platform/config"
	"nurture_backend/platform/httpkit"
)

// APIKeyAuthMiddleware authenticates the bridge's webhook posts with the
// shared key from configuration. Keys arrive as X-Api-Key or a Bearer token.
func APIKeyAuthMiddleware(cfg config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := cfg.GetWebhookAPIKey()
		if expected == "" {
			httpkit.Error(c, http.StatusServiceUnavailable, "webhook ingestion not configured", nil)
			c.Abort()
			return
		}

		key := c.GetHeader("X-Api-Key")
		if key == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			httpkit.Error(c, http.StatusUnauthorized, "invalid webhook key", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
