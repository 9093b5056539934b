package middleware

import (
	"context"  // Verification deadline
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging

	"scorekeeper/internal/domain" // Domain models and errors
)

const identityKey = "identity" // Context key of the verified caller

// Verifier resolves a bearer credential to the caller's identity
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// JWTAuthMiddleware verifies the bearer credential and stores the caller's identity
func JWTAuthMiddleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")) // Extract the token string
		identity, err := v.Verify(c.Request.Context(), tokenStr)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrSessionExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please log in again"})
			return
		case errors.Is(err, domain.ErrUnauthorized):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		default:
			Logger(c).WithField("error", err.Error()).Error("Token verification failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		c.Set(identityKey, identity)    // Store identity in context
		c.Set("userID", identity.UserID) // Store userID in context
		c.Next()                         // Proceed to the next handler
	}
}

// IdentityFrom returns the identity stored by JWTAuthMiddleware
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}

// Logger returns the request-scoped logger, or the standard logger outside RequestID
func Logger(c *gin.Context) logrus.FieldLogger {
	if v, ok := c.Get(loggerKey); ok {
		if l, ok := v.(logrus.FieldLogger); ok {
			return l
		}
	}
	return logrus.StandardLogger()
}
