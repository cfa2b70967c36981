package handler

import (
	"net/http"
	"strings"

	"github.com/kaya2m/Camply-API-sub003/internal/auth"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware extracts and verifies the bearer token, storing the subject
// user ID on the request context for downstream handlers.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		userID, err := verifier.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("userId", userID)
		c.Next()
	}
}
