package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"scorekeeper/internal/middleware" // Verified identity
	"scorekeeper/internal/service"    // Prediction ledger
)

// SubmitPredictionHandler stores the caller's pick: 201 when created, 200 when replaced
func SubmitPredictionHandler(predictions *service.PredictionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middleware.IdentityFrom(c)
		var req service.PredictionInput
		if !bindJSON(c, &req) {
			return
		}
		p, created, err := predictions.Submit(c.Request.Context(), identity.UserID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"prediction": p})
	}
}

// MatchPredictionsHandler lists who picked each participant of a match
func MatchPredictionsHandler(predictions *service.PredictionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		matchID, ok := pathID(c, "matchId")
		if !ok {
			return
		}
		groups, err := predictions.ListForMatch(c.Request.Context(), matchID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, groups)
	}
}

// LeaderboardHandler returns the ranked scoreboard
func LeaderboardHandler(board *service.LeaderboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := board.Leaderboard(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}
