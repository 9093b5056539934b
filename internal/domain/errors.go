package domain

import (
	"errors"  // Error classification
	"sort"    // Deterministic ordering
	"strings" // String manipulation
)

// Error kinds, matched with errors.Is at the HTTP edge
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrPredictionClosed = errors.New("prediction closed for this match")
	ErrIntegrityFault   = errors.New("integrity fault")
)

// Error is a specific failure that classifies as one of the kinds above
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// Specific errors
var (
	ErrUserNotFound       = &Error{Kind: ErrNotFound, Msg: "user not found"}
	ErrTeamNotFound       = &Error{Kind: ErrNotFound, Msg: "team not found"}
	ErrMatchNotFound      = &Error{Kind: ErrNotFound, Msg: "match not found"}
	ErrPredictionNotFound = &Error{Kind: ErrNotFound, Msg: "prediction not found"}

	ErrUserExists   = &Error{Kind: ErrConflict, Msg: "user already exists"}
	ErrTeamExists   = &Error{Kind: ErrConflict, Msg: "team name already taken"}
	ErrTeamInUse    = &Error{Kind: ErrConflict, Msg: "team is referenced by a match"}
	ErrInvalidTeams = &Error{Kind: ErrValidation, Msg: "a match needs two distinct teams"}

	ErrInvalidTeamChoice     = &Error{Kind: ErrValidation, Msg: "team not participating in this match"}
	ErrInvalidOrExpiredToken = &Error{Kind: ErrValidation, Msg: "invalid or expired reset token"}

	ErrInvalidCredentials = &Error{Kind: ErrUnauthorized, Msg: "invalid credentials"}
	ErrInvalidToken       = &Error{Kind: ErrUnauthorized, Msg: "token is not valid"}
	ErrSessionExpired     = &Error{Kind: ErrUnauthorized, Msg: "session expired"}

	ErrAdminRequired = &Error{Kind: ErrForbidden, Msg: "admin access required"}
)

// ValidationError carries field-level detail for malformed input
type ValidationError struct {
	Fields map[string]string // Field name -> problem
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, problem string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: problem}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation error: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
