package repository

import (
	"context" // Request-scoped deadlines

	"github.com/pkg/errors" // Error wrapping
	"gorm.io/gorm"          // ORM

	"scorekeeper/internal/domain" // Domain models and errors
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store backed by db. The connection should be opened
// with TranslateError so duplicate keys surface as gorm.ErrDuplicatedKey.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository             { return &gormUsers{db: s.db} }
func (s *gormStore) Teams() TeamRepository             { return &gormTeams{db: s.db} }
func (s *gormStore) Matches() MatchRepository          { return &gormMatches{db: s.db} }
func (s *gormStore) Predictions() PredictionRepository { return &gormPredictions{db: s.db} }

func (s *gormStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error { // Commit on nil, rollback on error
		return fn(&gormStore{db: tx})
	})
}

// notFound maps gorm.ErrRecordNotFound to the given domain error and wraps
// anything else with the operation name
func notFound(err error, nf error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nf
	}
	return errors.Wrap(err, op)
}

// duplicate maps gorm.ErrDuplicatedKey to the given domain error
func duplicate(err error, dup error, op string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return dup
	}
	return errors.Wrap(err, op)
}

// AutoMigrate creates or updates the schema for every model
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Team{}, &domain.Match{}, &domain.Prediction{})
}
