package service

import (
	"context" // Request-scoped deadlines
	"strings" // String manipulation
	"time"    // Timestamps and durations

	"github.com/sirupsen/logrus" // Structured logging

	"scorekeeper/internal/domain"     // Domain models and errors
	"scorekeeper/internal/repository" // Persistence
	"scorekeeper/internal/utils"      // Locks and cache
)

// MatchInput is the admin payload for scheduling a match
type MatchInput struct {
	TeamOneID uint      `json:"team_one_id" binding:"required"` // First participant
	TeamTwoID uint      `json:"team_two_id" binding:"required"` // Second participant
	StartsAt  time.Time `json:"starts_at" binding:"required"`   // Kickoff
	Details   *string   `json:"details"`                        // Optional details
}

// MatchView is a match as seen by one user
type MatchView struct {
	domain.Match
	TeamOne        *domain.Team `json:"team_one"`        // Nil if the team row is gone
	TeamTwo        *domain.Team `json:"team_two"`        // Nil if the team row is gone
	LockTime       time.Time    `json:"lock_time"`       // Predictions close at this instant
	CanPredict     bool         `json:"can_predict"`     // Window still open
	UserPrediction *uint        `json:"user_prediction"` // Team the caller picked, if any
	UserScore      *int         `json:"user_score"`      // Caller's score, if predicted
}

// SweepResult summarises one reconciliation sweep
type SweepResult struct {
	Matches int // Decided matches visited
	Scored  int // Predictions scored
	Skipped int // Integrity faults
	Failed  int // Matches whose reconciliation failed
}

// MatchService schedules, decides and removes matches
type MatchService struct {
	store      repository.Store
	locker     utils.Locker
	reconciler *Reconciler
	opts       Options
	log        logrus.FieldLogger
}

// NewMatchService wires a MatchService
func NewMatchService(store repository.Store, locker utils.Locker, reconciler *Reconciler, opts Options, log logrus.FieldLogger) *MatchService {
	return &MatchService{store: store, locker: locker, reconciler: reconciler, opts: opts, log: log}
}

// Create schedules a match between two distinct, existing teams
func (s *MatchService) Create(ctx context.Context, in MatchInput) (*domain.Match, error) {
	if in.TeamOneID == 0 || in.TeamTwoID == 0 || in.TeamOneID == in.TeamTwoID {
		return nil, domain.ErrInvalidTeams
	}
	if in.StartsAt.IsZero() {
		return nil, domain.NewValidationError("starts_at", "is required")
	}
	if in.Details != nil {
		d := strings.TrimSpace(*in.Details)
		if d == "" {
			in.Details = nil
		} else {
			in.Details = &d
		}
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	match := &domain.Match{
		TeamOneID: in.TeamOneID,
		TeamTwoID: in.TeamTwoID,
		StartsAt:  in.StartsAt.UTC(),
		Details:   in.Details,
	}
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		// Shared locks keep both teams alive until the match row is committed
		teams, err := tx.Teams().ListForShare(ctx, []uint{in.TeamOneID, in.TeamTwoID})
		if err != nil {
			return err
		}
		if len(teams) != 2 {
			return domain.ErrTeamNotFound
		}
		return tx.Matches().Create(ctx, match)
	})
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"match_id":    match.ID,
		"team_one_id": match.TeamOneID,
		"team_two_id": match.TeamTwoID,
		"starts_at":   match.StartsAt.Format(time.RFC3339),
	}).Info("Match created")
	return match, nil
}

// List returns every match, newest kickoff first, annotated for identity
func (s *MatchService) List(ctx context.Context, identity domain.Identity) ([]MatchView, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	matches, err := s.store.Matches().List(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := s.store.Teams().List(ctx)
	if err != nil {
		return nil, err
	}
	byTeam := make(map[uint]*domain.Team, len(teams))
	for i := range teams {
		byTeam[teams[i].ID] = &teams[i]
	}
	predictions, err := s.store.Predictions().ListByUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	byMatch := make(map[uint]domain.Prediction, len(predictions))
	for _, p := range predictions {
		byMatch[p.MatchID] = p
	}

	now := s.opts.now()
	views := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		v := MatchView{
			Match:      m,
			TeamOne:    byTeam[m.TeamOneID],
			TeamTwo:    byTeam[m.TeamTwoID],
			LockTime:   m.LockTime(s.opts.LockBuffer),
			CanPredict: m.CanPredict(now, s.opts.LockBuffer),
		}
		if p, ok := byMatch[m.ID]; ok {
			team, score := p.TeamID, p.Score
			v.UserPrediction = &team
			v.UserScore = &score
		}
		views = append(views, v)
	}
	return views, nil
}

// DeclareWinner records teamID as the outcome of the match and rescores its
// predictions in the same transaction. Declaring again with another team is
// a correction; the scores are recomputed, not adjusted.
func (s *MatchService) DeclareWinner(ctx context.Context, matchID, teamID uint) (*domain.Match, ReconcileResult, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	var (
		result  ReconcileResult
		decided *domain.Match
	)
	unlock, err := s.locker.Lock(ctx, matchKey(matchID))
	if err != nil {
		return nil, result, err
	}
	defer unlock()

	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		match, err := tx.Matches().GetForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		if !match.HasParticipant(teamID) {
			return domain.ErrInvalidTeamChoice
		}
		if _, err := tx.Teams().GetByID(ctx, teamID); err != nil {
			return err
		}
		if err := tx.Matches().SetWinner(ctx, matchID, teamID); err != nil {
			return err
		}
		match.DeclaredWinnerID = &teamID
		res, err := s.reconciler.Reconcile(ctx, tx, match)
		if err != nil {
			return err
		}
		result, decided = res, match
		return nil
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"match_id": matchID,
			"team_id":  teamID,
			"error":    err.Error(),
		}).Warn("Declare winner failed")
		return nil, ReconcileResult{}, err
	}
	s.log.WithFields(logrus.Fields{
		"match_id": matchID,
		"team_id":  teamID,
		"scored":   result.Scored,
		"skipped":  result.Skipped,
	}).Info("Winner declared")
	return decided, result, nil
}

// Delete removes a match together with its predictions
func (s *MatchService) Delete(ctx context.Context, matchID uint) (int64, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, matchKey(matchID))
	if err != nil {
		return 0, err
	}
	defer unlock()

	var removed int64
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.Matches().GetForUpdate(ctx, matchID); err != nil {
			return err
		}
		n, err := tx.Predictions().DeleteByMatch(ctx, matchID)
		if err != nil {
			return err
		}
		removed = n
		return tx.Matches().Delete(ctx, matchID)
	})
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{
		"match_id":    matchID,
		"predictions": removed,
	}).Info("Match deleted")
	return removed, nil
}

// SweepDecided re-runs reconciliation for every decided match. A failing
// match is logged and counted; the sweep moves on to the next one.
func (s *MatchService) SweepDecided(ctx context.Context) (SweepResult, error) {
	var sweep SweepResult
	listCtx, cancel := s.opts.bounded(ctx)
	matches, err := s.store.Matches().ListDecided(listCtx)
	cancel()
	if err != nil {
		return sweep, err
	}
	for _, m := range matches {
		sweep.Matches++
		res, err := s.reconcileOne(ctx, m.ID)
		if err != nil {
			sweep.Failed++
			s.log.WithFields(logrus.Fields{
				"match_id": m.ID,
				"error":    err.Error(),
			}).Error("Reconciliation sweep failed for match")
			continue
		}
		sweep.Scored += res.Scored
		sweep.Skipped += res.Skipped
	}
	return sweep, nil
}

func (s *MatchService) reconcileOne(ctx context.Context, matchID uint) (ReconcileResult, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, matchKey(matchID))
	if err != nil {
		return ReconcileResult{}, err
	}
	defer unlock()

	var result ReconcileResult
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		match, err := tx.Matches().GetForUpdate(ctx, matchID)
		if err != nil {
			return err
		}
		result, err = s.reconciler.Reconcile(ctx, tx, match)
		return err
	})
	return result, err
}
