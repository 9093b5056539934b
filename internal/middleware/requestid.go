package middleware

import (
	"time" // Request latency

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/google/uuid"     // Request IDs
	"github.com/sirupsen/logrus" // Logging
)

const (
	loggerKey       = "logger"       // Context key of the request-scoped logger
	RequestIDHeader = "X-Request-ID" // Echoed on every response
)

// RequestID tags every request with an ID, exposes a logger carrying it and
// logs the request when it completes
func RequestID(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader) // Honour an upstream ID
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString() // Otherwise mint one
		}
		c.Header(RequestIDHeader, id)
		entry := log.WithField("request_id", id)
		c.Set(loggerKey, entry)

		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if identity, ok := IdentityFrom(c); ok {
			fields["user_id"] = identity.UserID
		}
		entry.WithFields(fields).Info("Request handled")
	}
}
