package middleware

import (
	"net/http"

	"github.com/estivenmendezr98/TAREAS/internal/models"

	"github.com/gin-gonic/gin"
)

// RBACMiddleware admits requests whose authenticated role is one of
// requiredRoles. It must run after AuthzMiddleware.
func RBACMiddleware(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		role := c.GetString(ContextUserRole)
		for _, requiredRole := range requiredRoles {
			if role == requiredRole {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":          "Insufficient permissions",
			"required_roles": requiredRoles,
			"user_role":      role,
		})
	}
}

func AdminOnlyMiddleware() gin.HandlerFunc {
	return RBACMiddleware(models.RoleAdmin)
}
