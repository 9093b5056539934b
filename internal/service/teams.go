package service

import (
	"context" // Request-scoped deadlines
	"strings" // String manipulation
	"time"    // Timestamps and durations

	"github.com/gosimple/slug"   // Team name slugs
	"github.com/sirupsen/logrus" // Structured logging

	"scorekeeper/internal/domain"     // Domain models and errors
	"scorekeeper/internal/repository" // Persistence
	"scorekeeper/internal/utils"      // Locks and cache
)

const (
	teamsCacheKey = "teams:all"     // Cached team listing
	teamsCacheTTL = 5 * time.Minute // Listing changes only through this service
)

// TeamInput is the admin payload for creating or editing a team
type TeamInput struct {
	Name        string  `json:"name" binding:"required,max=128"`      // Display name
	ImageURL    string  `json:"image_url" binding:"required,max=512"` // Logo reference
	Description *string `json:"description"`                          // Optional details
}

// TeamService manages the team registry
type TeamService struct {
	store repository.Store
	cache *utils.Cache
	opts  Options
	log   logrus.FieldLogger
}

// NewTeamService wires a TeamService. cache may be nil.
func NewTeamService(store repository.Store, cache *utils.Cache, opts Options, log logrus.FieldLogger) *TeamService {
	return &TeamService{store: store, cache: cache, opts: opts, log: log}
}

// normalize validates the input and derives the slug used for uniqueness
func (in TeamInput) normalize() (domain.Team, error) {
	name := strings.TrimSpace(in.Name)
	image := strings.TrimSpace(in.ImageURL)
	verr := &domain.ValidationError{Fields: map[string]string{}}
	if name == "" {
		verr.Fields["name"] = "is required"
	}
	if image == "" {
		verr.Fields["image_url"] = "is required"
	}
	s := slug.Make(name)
	if name != "" && s == "" {
		verr.Fields["name"] = "must contain letters or digits"
	}
	if len(verr.Fields) > 0 {
		return domain.Team{}, verr
	}
	team := domain.Team{Name: name, Slug: s, ImageURL: image}
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != "" {
			team.Description = &d
		}
	}
	return team, nil
}

// Create registers a new team. Names that slug the same collide.
func (s *TeamService) Create(ctx context.Context, in TeamInput) (*domain.Team, error) {
	team, err := in.normalize()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	if err := s.store.Teams().Create(ctx, &team); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{"team_id": team.ID, "slug": team.Slug}).Info("Team created")
	return &team, nil
}

// Update replaces the editable fields of a team
func (s *TeamService) Update(ctx context.Context, id uint, in TeamInput) (*domain.Team, error) {
	team, err := in.normalize()
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		cur, err := tx.Teams().GetByID(ctx, id)
		if err != nil {
			return err
		}
		team.ID, team.CreatedAt = cur.ID, cur.CreatedAt
		return tx.Teams().Update(ctx, &team)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{"team_id": team.ID, "slug": team.Slug}).Info("Team updated")
	return &team, nil
}

// Delete removes a team that no match references
func (s *TeamService) Delete(ctx context.Context, id uint) error {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		// Waits for in-flight match creations holding the row
		if _, err := tx.Teams().GetForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := tx.Matches().CountByTeam(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrTeamInUse
		}
		return tx.Teams().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.WithField("team_id", id).Info("Team deleted")
	return nil
}

// List returns every team ordered by name, served from Redis when cached
func (s *TeamService) List(ctx context.Context) ([]domain.Team, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	var cached []domain.Team
	if found, err := s.cache.Get(ctx, teamsCacheKey, &cached); err == nil && found {
		return cached, nil
	}
	teams, err := s.store.Teams().List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, teamsCacheKey, teams, teamsCacheTTL); err != nil {
		s.log.WithField("error", err.Error()).Warn("Caching team list failed")
	}
	return teams, nil
}

func (s *TeamService) invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, teamsCacheKey); err != nil {
		s.log.WithField("error", err.Error()).Warn("Invalidating team list failed")
	}
}
