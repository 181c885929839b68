package api

import (
	"net/http"
	"strings"

	"github.com/NordCoder/safecode-crm/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const userKey = "user"

// RequireUser resolves the bearer token to an active user and stores it on
// the gin context.
func RequireUser(a Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		u, err := a.Authenticate(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userKey, u)
		c.Next()
	}
}

func currentUser(c *gin.Context) *user.User {
	u, _ := c.MustGet(userKey).(*user.User)
	return u
}
