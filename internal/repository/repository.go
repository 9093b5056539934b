// Package repository is the persistence collaborator: four logical tables
// (users, teams, matches, predictions) behind interfaces, with a GORM
// implementation for MySQL/Postgres and an in-memory one for tests and local runs.
package repository

import (
	"context" // Request-scoped deadlines
	"time"    // Timestamps and durations

	"scorekeeper/internal/domain" // Domain models and errors
)

// Store groups the repositories and runs units of work atomically
type Store interface {
	Users() UserRepository
	Teams() TeamRepository
	Matches() MatchRepository
	Predictions() PredictionRepository

	// Atomic runs fn against a transactional Store. Any error rolls back
	// every write fn made.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

// UserRepository persists identities
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uint) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []uint) ([]domain.User, error)
	List(ctx context.Context, offset, limit int) ([]domain.User, int64, error)
	SetRole(ctx context.Context, id uint, role string) error
	SetResetToken(ctx context.Context, id uint, hash string, expiresAt time.Time) error
	// ResetPassword stores the new hash, bumps the token generation and
	// clears the reset token in one write, only while the user still holds
	// tokenHash. Otherwise it returns domain.ErrInvalidOrExpiredToken.
	ResetPassword(ctx context.Context, id uint, tokenHash, passwordHash string) error
	BumpTokenGeneration(ctx context.Context, id uint) error
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// TeamRepository persists the team registry
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*domain.Team, error)
	// GetForUpdate reads the team and holds an exclusive row lock until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*domain.Team, error)
	ListByIDs(ctx context.Context, ids []uint) ([]domain.Team, error)
	// ListForShare is ListByIDs holding shared row locks, so the teams
	// cannot be deleted before the surrounding transaction ends.
	ListForShare(ctx context.Context, ids []uint) ([]domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
}

// MatchRepository persists matches and their declared outcome
type MatchRepository interface {
	Create(ctx context.Context, match *domain.Match) error
	GetByID(ctx context.Context, id uint) (*domain.Match, error)
	// GetForShare reads the match and holds a shared row lock until the
	// surrounding transaction ends, blocking concurrent declare/delete.
	GetForShare(ctx context.Context, id uint) (*domain.Match, error)
	// GetForUpdate reads the match and holds an exclusive row lock until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*domain.Match, error)
	// List returns matches, latest start first.
	List(ctx context.Context) ([]domain.Match, error)
	ListDecided(ctx context.Context) ([]domain.Match, error)
	SetWinner(ctx context.Context, id, winnerID uint) error
	Delete(ctx context.Context, id uint) error
	CountByTeam(ctx context.Context, teamID uint) (int64, error)
}

// PredictionRepository persists the prediction ledger
type PredictionRepository interface {
	// Upsert inserts or updates the team of the (user, match) row. The score
	// of an existing row is left untouched. On return p holds the stored row.
	Upsert(ctx context.Context, p *domain.Prediction) (created bool, err error)
	Get(ctx context.Context, userID, matchID uint) (*domain.Prediction, error)
	// ListByMatch returns the predictions of a match in arrival order.
	ListByMatch(ctx context.Context, matchID uint) ([]domain.Prediction, error)
	ListByUser(ctx context.Context, userID uint) ([]domain.Prediction, error)
	UpdateScores(ctx context.Context, scores map[uint]int) error
	DeleteByMatch(ctx context.Context, matchID uint) (int64, error)
	// TotalsByUser sums scores grouped by user, highest total first, ties by
	// earliest prediction.
	TotalsByUser(ctx context.Context) ([]domain.UserTotal, error)
}
