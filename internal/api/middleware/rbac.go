package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesfabric/routecraft/internal/models"
	"github.com/mesfabric/routecraft/internal/rbac"
)

func currentUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// RequirePermission ensures the user may perform action on resource. The
// Casbin matcher honors wildcards, so a role holding routes:* or *:* passes
// any narrower check.
func RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		allowed, err := rbac.HasPermission(user.ID, resource, action)
		if err != nil || !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "permission denied", "required": resource + ":" + action})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole ensures the user holds the named role.
func RequireRole(roleName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		has, err := rbac.HasRole(user.ID, roleName)
		if err != nil || !has {
			c.JSON(http.StatusForbidden, gin.H{"error": "role required", "required": roleName})
			c.Abort()
			return
		}
		c.Next()
	}
}
