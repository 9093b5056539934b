package service

import (
	"context" // Request-scoped deadlines

	"github.com/pkg/errors"      // Error wrapping
	"github.com/sirupsen/logrus" // Structured logging

	"scorekeeper/internal/domain"     // Domain models and errors
	"scorekeeper/internal/repository" // Persistence
)

// ReconcileResult reports one reconciliation run
type ReconcileResult struct {
	Scored  int `json:"scored"`  // Predictions whose score now matches the outcome
	Skipped int `json:"skipped"` // Integrity faults left untouched
}

// Reconciler recomputes prediction scores for a decided match from scratch.
// It never applies deltas, so running it twice yields the same ledger.
type Reconciler struct {
	log logrus.FieldLogger
}

// NewReconciler returns a Reconciler that reports integrity faults to log
func NewReconciler(log logrus.FieldLogger) *Reconciler {
	return &Reconciler{log: log}
}

// Reconcile scores every prediction of match against its declared winner
// through store, which is normally the transaction that set the winner.
// Undecided matches are a no-op.
func (r *Reconciler) Reconcile(ctx context.Context, store repository.Store, match *domain.Match) (ReconcileResult, error) {
	var result ReconcileResult
	if !match.Decided() {
		return result, nil
	}
	winner := *match.DeclaredWinnerID // Declared outcome
	if !match.HasParticipant(winner) {
		return result, &domain.Error{Kind: domain.ErrIntegrityFault, Msg: "declared winner is not a participant"}
	}

	teams, err := store.Teams().ListByIDs(ctx, []uint{match.TeamOneID, match.TeamTwoID})
	if err != nil {
		return result, errors.Wrap(err, "load participants")
	}
	known := make(map[uint]bool, len(teams)) // Participants that still exist
	for _, t := range teams {
		known[t.ID] = true
	}

	predictions, err := store.Predictions().ListByMatch(ctx, match.ID)
	if err != nil {
		return result, errors.Wrap(err, "load predictions")
	}
	scores := make(map[uint]int, len(predictions)) // Prediction ID -> new score
	for _, p := range predictions {
		if !match.HasParticipant(p.TeamID) || !known[p.TeamID] {
			r.log.WithFields(logrus.Fields{
				"match_id":      match.ID,
				"prediction_id": p.ID,
				"user_id":       p.UserID,
				"team_id":       p.TeamID,
				"error":         domain.ErrIntegrityFault.Error(),
			}).Warn("Skipping prediction during reconciliation")
			result.Skipped++ // Left untouched
			continue
		}
		score := domain.ScoreFor(p.TeamID, winner)
		if p.Score != score {
			scores[p.ID] = score // Only changed rows are written
		}
		result.Scored++
	}
	if len(scores) > 0 {
		if err := store.Predictions().UpdateScores(ctx, scores); err != nil {
			return result, errors.Wrap(err, "persist scores")
		}
	}
	return result, nil
}
