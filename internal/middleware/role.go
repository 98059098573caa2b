package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/resource-mgmt/console/internal/models"
	"github.com/resource-mgmt/console/pkg/response"
)

// RequireRole returns a middleware that allows only the given roles.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[string]struct{})
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}
	return func(c *gin.Context) {
		roleVal, ok := c.Get(ContextUserRole)
		if !ok {
			response.Unauthorized(c, "missing user context")
			c.Abort()
			return
		}
		role, _ := roleVal.(string)
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireManager allows admins and managers.
func RequireManager() gin.HandlerFunc {
	return RequireRole(models.UserRoleAdmin, models.UserRoleManager)
}
