// internal/middleware/auth_middleware.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"notification-relay/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// APIKeyAuth guards the local API with a shared bearer token. An empty token
// disables the check.
func APIKeyAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		got := extractToken(c)
		if got == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Error(c, http.StatusUnauthorized, "invalid token", nil)
			return
		}

		c.Set("authenticated", true)
		c.Next()
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	// Try header first
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Browsers cannot set headers on websocket upgrades
	return c.Query("token")
}
