package api

import (
	"context"  // Deadline errors
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"reflect"  // Struct tags
	"strconv"  // Path params
	"strings"  // String manipulation

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/gin-gonic/gin/binding"       // Request binding
	"github.com/go-playground/validator/v10" // Binding errors

	"scorekeeper/internal/domain"     // Domain errors
	"scorekeeper/internal/middleware" // Request logger
	"scorekeeper/internal/utils"      // Lock errors
)

// statusByKind maps domain error kinds to HTTP status codes
var statusByKind = []struct {
	kind   error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrPredictionClosed, http.StatusConflict},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
}

// respondError writes the JSON error for err. Unclassified errors are logged
// and answered with a stable 500 message.
func respondError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": verr.Fields})
		return
	}
	if errors.Is(err, utils.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
		middleware.Logger(c).WithField("error", err.Error()).Warn("Request timed out")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service busy, please retry"})
		return
	}
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			c.JSON(m.status, gin.H{"error": err.Error()})
			return
		}
	}
	middleware.Logger(c).WithField("error", err.Error()).Error("Request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// bindJSON binds the request body into dst and answers 400 on failure
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = describe(fe)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "fields": fields})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	return false
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

// useJSONFieldNames makes binding errors report the JSON names of fields
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// pathID parses a positive numeric path parameter, answering 400 otherwise
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryInt reads a positive integer query parameter with a fallback
func queryInt(c *gin.Context, name string, def int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil && v > 0 {
		return v
	}
	return def
}
