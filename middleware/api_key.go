package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
)

// RequireAPIKey rejects requests whose x-api-key header does not match key
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("x-api-key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			unauthorized(c, "Unauthorized")
			return
		}
		c.Next()
	}
}
