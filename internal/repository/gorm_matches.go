package repository

import (
	"context" // Request-scoped deadlines

	"github.com/pkg/errors" // Error wrapping
	"gorm.io/gorm"          // ORM
	"gorm.io/gorm/clause"   // Row locks and upserts

	"scorekeeper/internal/domain" // Domain models and errors
)

type gormMatches struct {
	db *gorm.DB
}

func (r *gormMatches) Create(ctx context.Context, match *domain.Match) error {
	if err := r.db.WithContext(ctx).Create(match).Error; err != nil {
		return errors.Wrap(err, "create match")
	}
	return nil
}

func (r *gormMatches) GetByID(ctx context.Context, id uint) (*domain.Match, error) {
	var match domain.Match
	if err := r.db.WithContext(ctx).First(&match, id).Error; err != nil {
		return nil, notFound(err, domain.ErrMatchNotFound, "get match")
	}
	return &match, nil
}

func (r *gormMatches) GetForShare(ctx context.Context, id uint) (*domain.Match, error) {
	return r.getLocked(ctx, id, clause.Locking{Strength: clause.LockingStrengthShare}, "get match for share")
}

func (r *gormMatches) GetForUpdate(ctx context.Context, id uint) (*domain.Match, error) {
	return r.getLocked(ctx, id, clause.Locking{Strength: clause.LockingStrengthUpdate}, "get match for update")
}

func (r *gormMatches) getLocked(ctx context.Context, id uint, lock clause.Locking, op string) (*domain.Match, error) {
	var match domain.Match
	if err := r.db.WithContext(ctx).Clauses(lock).First(&match, id).Error; err != nil {
		return nil, notFound(err, domain.ErrMatchNotFound, op)
	}
	return &match, nil
}

func (r *gormMatches) List(ctx context.Context) ([]domain.Match, error) {
	var matches []domain.Match
	if err := r.db.WithContext(ctx).Order("starts_at DESC, id DESC").Find(&matches).Error; err != nil {
		return nil, errors.Wrap(err, "list matches")
	}
	return matches, nil
}

func (r *gormMatches) ListDecided(ctx context.Context) ([]domain.Match, error) {
	var matches []domain.Match
	if err := r.db.WithContext(ctx).Where("declared_winner_id IS NOT NULL").Order("id").Find(&matches).Error; err != nil {
		return nil, errors.Wrap(err, "list decided matches")
	}
	return matches, nil
}

func (r *gormMatches) SetWinner(ctx context.Context, id, winnerID uint) error {
	res := r.db.WithContext(ctx).Model(&domain.Match{}).Where("id = ?", id).Update("declared_winner_id", winnerID)
	if res.Error != nil {
		return errors.Wrap(res.Error, "set winner")
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when the value is unchanged
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.Match{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return errors.Wrap(err, "set winner")
		}
		if count == 0 {
			return domain.ErrMatchNotFound
		}
	}
	return nil
}

func (r *gormMatches) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Match{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete match")
	}
	if res.RowsAffected == 0 { // Nothing deleted
		return domain.ErrMatchNotFound
	}
	return nil
}

func (r *gormMatches) CountByTeam(ctx context.Context, teamID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Match{}).
		Where("team_one_id = ? OR team_two_id = ?", teamID, teamID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "count matches by team")
	}
	return count, nil
}
