package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

type contextKey string

const senderContextKey contextKey = "pinstoreSender"

// AuthMiddleware validates bearer tokens and injects the sender address.
func AuthMiddleware(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "missing authorization header"})
			return
		}

		token := extractBearerToken(authHeader)
		if token == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid authorization header"})
			return
		}

		claims, err := service.ValidateAccessToken(token)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(string(senderContextKey), claims.Address)
		c.Next()
	}
}

// RequireSender returns the authenticated sender address.
func RequireSender(c *gin.Context) (string, bool) {
	value, exists := c.Get(string(senderContextKey))
	if !exists {
		return "", false
	}
	sender, ok := value.(string)
	return sender, ok && sender != ""
}

func extractBearerToken(header string) string {
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
