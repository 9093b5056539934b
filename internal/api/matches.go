package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"scorekeeper/internal/middleware" // Verified identity
	"scorekeeper/internal/service"    // Match use cases
)

// DeclareWinnerRequest names the winning team
type DeclareWinnerRequest struct {
	TeamID uint `json:"team_id" binding:"required"` // Winning participant
}

// ListMatchesHandler returns every match annotated for the caller
func ListMatchesHandler(matches *service.MatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middleware.IdentityFrom(c)
		views, err := matches.List(c.Request.Context(), identity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": views})
	}
}

// CreateMatchHandler schedules a match
func CreateMatchHandler(matches *service.MatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.MatchInput
		if !bindJSON(c, &req) {
			return
		}
		match, err := matches.Create(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"match": match})
	}
}

// DeclareWinnerHandler records or corrects the outcome and rescores the match
func DeclareWinnerHandler(matches *service.MatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := pathID(c, "matchId")
		if !ok {
			return
		}
		var req DeclareWinnerRequest
		if !bindJSON(c, &req) {
			return
		}
		match, res, err := matches.DeclareWinner(c.Request.Context(), matchID, req.TeamID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": match, "reconciliation": res})
	}
}

// DeleteMatchHandler removes a match and its predictions
func DeleteMatchHandler(matches *service.MatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := pathID(c, "matchId")
		if !ok {
			return
		}
		removed, err := matches.Delete(c.Request.Context(), matchID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Match deleted", "predictions_removed": removed})
	}
}
