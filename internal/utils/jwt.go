package utils

import (
	"errors" // Error inspection
	"time"   // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// ErrTokenInvalid is returned for any signature, format or expiry failure
var ErrTokenInvalid = errors.New("token is not valid")

// JWT Claims
type Claims struct {
	UserID          uint   `json:"user_id"`          // Custom claim for user ID
	Role            string `json:"role"`             // Role at issuance
	TokenGeneration int    `json:"token_generation"` // Session counter at issuance
	jwt.RegisteredClaims
}

// GenerateJWT creates a signed token embedding the user's session counter
func GenerateJWT(userID uint, role string, generation int, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:          userID,     // Custom claim for user ID
		Role:            role,       // Role claim
		TokenGeneration: generation, // Session counter claim
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT parses and validates a JWT token string
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrTokenInvalid
	}
	// Validate token and extract claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != 0 {
		return claims, nil
	}
	return nil, ErrTokenInvalid
}
