package api

import (
	"context"  // Presign deadline
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"scorekeeper/internal/service" // Team registry
	"scorekeeper/internal/storage" // Image uploads
)

// ImagePresigner issues upload URLs for team images
type ImagePresigner interface {
	PresignTeamImage(ctx context.Context, contentType string) (*storage.Upload, error)
}

// ImageUploadRequest asks for a presigned image upload
type ImageUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"` // MIME type of the image
}

// ListTeamsHandler returns every team
func ListTeamsHandler(teams *service.TeamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := teams.List(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"teams": list})
	}
}

// CreateTeamHandler registers a team
func CreateTeamHandler(teams *service.TeamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.TeamInput
		if !bindJSON(c, &req) {
			return
		}
		team, err := teams.Create(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"team": team})
	}
}

// UpdateTeamHandler edits a team
func UpdateTeamHandler(teams *service.TeamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		var req service.TeamInput
		if !bindJSON(c, &req) {
			return
		}
		team, err := teams.Update(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"team": team})
	}
}

// DeleteTeamHandler removes a team no match references
func DeleteTeamHandler(teams *service.TeamService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		if err := teams.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
	}
}

// TeamImageUploadHandler returns a presigned PUT for a team image. A nil
// presigner means uploads are not configured.
func TeamImageUploadHandler(images ImagePresigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		if images == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
			return
		}
		var req ImageUploadRequest
		if !bindJSON(c, &req) {
			return
		}
		upload, err := images.PresignTeamImage(c.Request.Context(), req.ContentType)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, upload)
	}
}
