package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carpool/internal/auth"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "auth_user_id"
	ContextRole   = "auth_role"
)

// Auth verifies the bearer token and stores the caller's identity on the
// request context. When role is non-empty the token must carry that role.
func Auth(tokens *auth.Manager, role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if role != "" && claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "wrong role"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, string(claims.Role))
		c.Next()
	}
}

// UserID returns the authenticated caller's ID, or "" when unauthenticated.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
