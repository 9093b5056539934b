// Package api exposes the league over HTTP with gin.
package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging

	"scorekeeper/internal/middleware" // Auth and request middleware
	"scorekeeper/internal/service"    // Use cases
	"scorekeeper/internal/utils"      // Redis cache
)

// Services are the collaborators the routes dispatch to
type Services struct {
	Auth        *service.AuthService
	Teams       *service.TeamService
	Matches     *service.MatchService
	Predictions *service.PredictionService
	Leaderboard *service.LeaderboardService
	Images      ImagePresigner // Nil disables image uploads
	Cache       *utils.Cache   // Nil disables response caching
}

// NewRouter builds the gin engine with every route
func NewRouter(svc Services, log logrus.FieldLogger) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(log))
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	bearer := middleware.JWTAuthMiddleware(svc.Auth) // Any signed-in user
	admin := middleware.AdminOnlyMiddleware()        // Signed-in admin
	api := r.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.POST("/register", RegisterHandler(svc.Auth))
	auth.POST("/login", LoginHandler(svc.Auth))
	auth.GET("/verify", bearer, VerifyHandler())
	auth.POST("/logout-all", bearer, LogoutAllHandler(svc.Auth))
	auth.POST("/forgot-password", ForgotPasswordHandler(svc.Auth))
	auth.POST("/reset-password", ResetPasswordHandler(svc.Auth))

	// Team routes, reads are public
	teams := api.Group("/teams")
	teams.GET("", ListTeamsHandler(svc.Teams))
	teams.POST("", bearer, admin, CreateTeamHandler(svc.Teams))
	teams.POST("/image-upload", bearer, admin, TeamImageUploadHandler(svc.Images))
	teams.PUT("/:id", bearer, admin, UpdateTeamHandler(svc.Teams))
	teams.DELETE("/:id", bearer, admin, DeleteTeamHandler(svc.Teams))

	// Match routes
	matches := api.Group("/matches")
	matches.GET("", bearer, ListMatchesHandler(svc.Matches))
	matches.POST("", bearer, admin, CreateMatchHandler(svc.Matches))
	matches.PUT("/declare/:matchId", bearer, admin, DeclareWinnerHandler(svc.Matches))
	matches.DELETE("/:matchId", bearer, admin, DeleteMatchHandler(svc.Matches))

	// Prediction routes
	predictions := api.Group("/predictions")
	predictions.POST("", bearer, SubmitPredictionHandler(svc.Predictions))
	predictions.GET("/:matchId", MatchPredictionsHandler(svc.Predictions))

	api.GET("/scoreboard", LeaderboardHandler(svc.Leaderboard))

	// Admin routes
	adminGroup := api.Group("/admin", bearer, admin)
	adminGroup.GET("/users", ListUsersHandler(svc.Auth, svc.Cache))

	return r
}
