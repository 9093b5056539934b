package api

import (
	"net/http" // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework

	"scorekeeper/internal/middleware" // Verified identity
	"scorekeeper/internal/service"    // Identity use cases
)

// ForgotPasswordRequest asks for a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"` // Account email
}

// ResetPasswordRequest redeems a reset token
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`               // Token from the reset link
	NewPassword string `json:"new_password" binding:"required,min=6"` // Replacement password
}

// RegisterHandler creates a user account
func RegisterHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterInput // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		user, err := auth.Register(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.LoginInput // Bind JSON request to struct
		if !bindJSON(c, &req) {
			return
		}
		res, err := auth.Login(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res) // Return the token and the user
	}
}

// VerifyHandler returns the caller resolved from the bearer credential
func VerifyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middleware.IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{"user": identity})
	}
}

// LogoutAllHandler revokes every credential the caller holds
func LogoutAllHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, _ := middleware.IdentityFrom(c)
		if err := auth.LogoutAll(c.Request.Context(), identity.UserID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Logged out from all sessions"})
	}
}

// ForgotPasswordHandler mails a reset link. The answer is the same whether
// or not the email is registered.
func ForgotPasswordHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := auth.ForgotPassword(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "If the email is registered, a reset link has been sent"})
	}
}

// ResetPasswordHandler sets a new password using a reset token
func ResetPasswordHandler(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
	}
}
