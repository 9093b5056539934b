package service

import (
	"context" // Request-scoped deadlines

	"github.com/sirupsen/logrus" // Structured logging

	"scorekeeper/internal/domain"     // Domain models and errors
	"scorekeeper/internal/repository" // Persistence
	"scorekeeper/internal/utils"      // Locks and cache
)

// PredictionInput is a user's pick for one match
type PredictionInput struct {
	MatchID uint `json:"match_id" binding:"required"` // Match being predicted
	TeamID  uint `json:"team_id" binding:"required"`  // Predicted winner
}

// PredictionGroup lists who picked one participant of a match
type PredictionGroup struct {
	TeamID    uint     `json:"team_id"`   // Participant
	TeamName  string   `json:"team_name"` // Display name
	Usernames []string `json:"usernames"` // Pickers in submission order
}

// PredictionService owns the prediction ledger
type PredictionService struct {
	store  repository.Store
	locker utils.Locker
	opts   Options
	log    logrus.FieldLogger
}

// NewPredictionService wires a PredictionService
func NewPredictionService(store repository.Store, locker utils.Locker, opts Options, log logrus.FieldLogger) *PredictionService {
	return &PredictionService{store: store, locker: locker, opts: opts, log: log}
}

// Submit creates or replaces the user's pick for a match while its window is
// open. An existing pick keeps its row and score; only the team changes.
func (s *PredictionService) Submit(ctx context.Context, userID uint, in PredictionInput) (*domain.Prediction, bool, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, predictionKey(userID, in.MatchID))
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	now := s.opts.now()
	p := &domain.Prediction{UserID: userID, MatchID: in.MatchID, TeamID: in.TeamID}
	var created bool
	err = s.store.Atomic(ctx, func(tx repository.Store) error {
		match, err := tx.Matches().GetForShare(ctx, in.MatchID)
		if err != nil {
			return err
		}
		if !match.CanPredict(now, s.opts.LockBuffer) {
			return domain.ErrPredictionClosed
		}
		if !match.HasParticipant(in.TeamID) {
			return domain.ErrInvalidTeamChoice
		}
		created, err = tx.Predictions().Upsert(ctx, p)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"match_id": in.MatchID,
		"team_id":  in.TeamID,
		"created":  created,
	}).Info("Prediction submitted")
	return p, created, nil
}

// ListForMatch groups the match's predictions by participant. Both
// participants are always present, possibly with no usernames.
func (s *PredictionService) ListForMatch(ctx context.Context, matchID uint) ([]PredictionGroup, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	match, err := s.store.Matches().GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	teams, err := s.store.Teams().ListByIDs(ctx, []uint{match.TeamOneID, match.TeamTwoID})
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	predictions, err := s.store.Predictions().ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	userIDs := make([]uint, 0, len(predictions))
	for _, p := range predictions {
		userIDs = append(userIDs, p.UserID)
	}
	users, err := s.store.Users().ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	usernames := make(map[uint]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	groups := []PredictionGroup{
		{TeamID: match.TeamOneID, TeamName: names[match.TeamOneID], Usernames: []string{}},
		{TeamID: match.TeamTwoID, TeamName: names[match.TeamTwoID], Usernames: []string{}},
	}
	for _, p := range predictions {
		username, ok := usernames[p.UserID]
		if !ok || !match.HasParticipant(p.TeamID) {
			s.log.WithFields(logrus.Fields{
				"match_id":      matchID,
				"prediction_id": p.ID,
				"user_id":       p.UserID,
				"team_id":       p.TeamID,
				"error":         domain.ErrIntegrityFault.Error(),
			}).Warn("Skipping prediction in match listing")
			continue
		}
		i := 0
		if p.TeamID == match.TeamTwoID {
			i = 1
		}
		groups[i].Usernames = append(groups[i].Usernames, username)
	}
	return groups, nil
}
