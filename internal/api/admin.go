package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Time durations

	"github.com/gin-gonic/gin" // Gin web framework

	"scorekeeper/internal/middleware" // Request logger
	"scorekeeper/internal/service"    // Identity use cases
	"scorekeeper/internal/utils"      // Redis cache
)

const usersCacheTTL = 60 * time.Second // Admin listing tolerates a minute of staleness

// ListUsersHandler returns one page of users, cached briefly in Redis
func ListUsersHandler(auth *service.AuthService, cache *utils.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page := queryInt(c, "page", 1)           // Default page number
		pageSize := queryInt(c, "page_size", 20) // Default page size
		if pageSize > 100 {
			pageSize = 20
		}
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached service.UserPage
		// If cached data found, return it
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,      // List of users
				"page":        cached.Page,       // Current page
				"page_size":   cached.PageSize,   // Page size
				"total":       cached.Total,      // Total number of users
				"total_pages": cached.TotalPages, // Total pages
				"cached":      true,              // Indicate response is from cache
			})
			return
		}
		res, err := auth.ListUsers(ctx, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		// Cache the page for future requests
		if err := cache.Set(ctx, cacheKey, res, usersCacheTTL); err != nil {
			middleware.Logger(c).WithField("error", err.Error()).Warn("Caching user page failed")
		}
		c.JSON(http.StatusOK, gin.H{
			"users":       res.Users,      // List of users
			"page":        res.Page,       // Current page
			"page_size":   res.PageSize,   // Page size
			"total":       res.Total,      // Total number of users
			"total_pages": res.TotalPages, // Total pages
			"cached":      false,          // Indicate response is not from cache
		})
	}
}
