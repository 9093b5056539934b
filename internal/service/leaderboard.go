package service

import (
	"context" // Request-scoped deadlines
	"slices"  // Result copies

	"github.com/sirupsen/logrus"     // Structured logging
	"golang.org/x/sync/singleflight" // Coalesced computations

	"scorekeeper/internal/domain"     // Domain models and errors
	"scorekeeper/internal/repository" // Persistence
)

// LeaderboardService derives the ranking from the ledger on every call.
// Concurrent callers share one computation.
type LeaderboardService struct {
	store repository.Store
	opts  Options
	log   logrus.FieldLogger
	sf    singleflight.Group
}

// NewLeaderboardService wires a LeaderboardService
func NewLeaderboardService(store repository.Store, opts Options, log logrus.FieldLogger) *LeaderboardService {
	return &LeaderboardService{store: store, opts: opts, log: log}
}

// Leaderboard returns every user with at least one prediction, ordered by
// total score descending. Equal totals keep arrival order and share a rank.
func (s *LeaderboardService) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	v, err, _ := s.sf.Do("leaderboard", func() (any, error) {
		// Detached so one caller giving up does not fail the others
		ctx, cancel := s.opts.bounded(context.WithoutCancel(ctx))
		defer cancel()
		return s.compute(ctx)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]domain.LeaderboardEntry)), nil
}

func (s *LeaderboardService) compute(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	totals, err := s.store.Predictions().TotalsByUser(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(totals))
	for _, t := range totals {
		ids = append(ids, t.UserID)
	}
	users, err := s.store.Users().ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for _, t := range totals {
		name, ok := names[t.UserID]
		if !ok {
			s.log.WithFields(logrus.Fields{
				"user_id":     t.UserID,
				"total_score": t.TotalScore,
				"error":       domain.ErrIntegrityFault.Error(),
			}).Warn("Skipping leaderboard row for missing user")
			continue
		}
		rank := len(entries) + 1
		if n := len(entries); n > 0 && entries[n-1].TotalScore == t.TotalScore {
			rank = entries[n-1].Rank
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:       rank,
			UserID:     t.UserID,
			Username:   name,
			TotalScore: t.TotalScore,
		})
	}
	return entries, nil
}
