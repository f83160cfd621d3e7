package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"codeberg.org/pageloom/server/internal/errors"
)

// validates the Authorization header and stores the claims in context
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			errors.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("display_name", claims.DisplayName)
		c.Next()
	}
}

// extracts claims when present but never rejects the request
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")

		if strings.HasPrefix(header, "Bearer ") {
			if claims, err := ValidateToken(strings.TrimPrefix(header, "Bearer ")); err == nil {
				c.Set("user_id", claims.UserID)
				c.Set("display_name", claims.DisplayName)
			}
		}

		c.Next()
	}
}
