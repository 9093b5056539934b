package repository

import (
	"context" // Request-scoped deadlines
	"sort"    // Deterministic ordering

	"github.com/pkg/errors" // Error wrapping
	"gorm.io/gorm"          // ORM
	"gorm.io/gorm/clause"   // Row locks and upserts

	"scorekeeper/internal/domain" // Domain models and errors
)

type gormPredictions struct {
	db *gorm.DB
}

func (r *gormPredictions) Upsert(ctx context.Context, p *domain.Prediction) (bool, error) {
	existing, err := r.Get(ctx, p.UserID, p.MatchID)
	switch {
	case err == nil:
		res := r.db.WithContext(ctx).Model(&domain.Prediction{}).
			Where("id = ?", existing.ID).
			Update("team_id", p.TeamID)
		if res.Error != nil {
			return false, errors.Wrap(res.Error, "update prediction")
		}
		existing.TeamID = p.TeamID
		*p = *existing
		return false, nil
	case !errors.Is(err, domain.ErrPredictionNotFound):
		return false, err
	}

	// The unique (user_id, match_id) index backs the caller's lock: a racing
	// insert turns into an update of the team instead of a second row.
	p.Score = domain.ScorePending
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"team_id", "updated_at"}),
	}).Create(p)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "insert prediction")
	}
	created := res.RowsAffected == 1 // MySQL reports 2 when the conflict updated the row

	// Re-read so p carries the stored ID and score even when the insert
	// landed on an existing row
	stored, err := r.Get(ctx, p.UserID, p.MatchID)
	if err != nil {
		return false, err
	}
	*p = *stored
	return created, nil
}

func (r *gormPredictions) Get(ctx context.Context, userID, matchID uint) (*domain.Prediction, error) {
	var p domain.Prediction
	err := r.db.WithContext(ctx).Where("user_id = ? AND match_id = ?", userID, matchID).Take(&p).Error
	if err != nil {
		return nil, notFound(err, domain.ErrPredictionNotFound, "get prediction")
	}
	return &p, nil
}

func (r *gormPredictions) ListByMatch(ctx context.Context, matchID uint) ([]domain.Prediction, error) {
	var ps []domain.Prediction
	if err := r.db.WithContext(ctx).Where("match_id = ?", matchID).Order("id").Find(&ps).Error; err != nil {
		return nil, errors.Wrap(err, "list predictions by match")
	}
	return ps, nil
}

func (r *gormPredictions) ListByUser(ctx context.Context, userID uint) ([]domain.Prediction, error) {
	var ps []domain.Prediction
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&ps).Error; err != nil {
		return nil, errors.Wrap(err, "list predictions by user")
	}
	return ps, nil
}

// UpdateScores writes one UPDATE per distinct score value
func (r *gormPredictions) UpdateScores(ctx context.Context, scores map[uint]int) error {
	byScore := make(map[int][]uint)
	for id, score := range scores {
		byScore[score] = append(byScore[score], id)
	}
	values := make([]int, 0, len(byScore))
	for v := range byScore {
		values = append(values, v)
	}
	sort.Ints(values)

	for _, v := range values {
		ids := byScore[v]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		err := r.db.WithContext(ctx).Model(&domain.Prediction{}).
			Where("id IN ?", ids).
			Update("score", v).Error
		if err != nil {
			return errors.Wrapf(err, "update scores to %d", v)
		}
	}
	return nil
}

func (r *gormPredictions) DeleteByMatch(ctx context.Context, matchID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("match_id = ?", matchID).Delete(&domain.Prediction{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "delete predictions by match")
	}
	return res.RowsAffected, nil
}

func (r *gormPredictions) TotalsByUser(ctx context.Context) ([]domain.UserTotal, error) {
	var totals []domain.UserTotal
	err := r.db.WithContext(ctx).Model(&domain.Prediction{}).
		Select("user_id, SUM(score) AS total_score, MIN(id) AS first_arrival").
		Group("user_id").
		Order("total_score DESC, first_arrival ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, errors.Wrap(err, "sum scores by user")
	}
	return totals, nil
}
