// internal/middleware/bearer_middleware.go
package middleware

import (
	"crypto/subtle"
	"strings"

	"duka-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// BearerAuth guards routes with a static bearer token (cache admin surface).
// An empty configured token disables the routes entirely.
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			response.Unauthorized(c, "cache admin disabled")
			return
		}

		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			response.Unauthorized(c, "missing bearer token")
			return
		}

		got := strings.TrimPrefix(header, prefix)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Unauthorized(c, "invalid bearer token")
			return
		}

		c.Next()
	}
}
