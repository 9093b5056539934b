package middleware

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminOnlyMiddleware requires the verified caller to hold the admin role.
// The role comes from the store at verification time, not from the token.
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, exists := IdentityFrom(c) // Get identity from context
		// Check if identity exists in context
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		// Check if user role is admin
		if !identity.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next() // If admin, proceed to the next handler
	}
}
