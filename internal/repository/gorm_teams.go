package repository

import (
	"context" // Request-scoped deadlines

	"github.com/pkg/errors" // Error wrapping
	"gorm.io/gorm"          // ORM
	"gorm.io/gorm/clause"   // Row locks and upserts

	"scorekeeper/internal/domain" // Domain models and errors
)

type gormTeams struct {
	db *gorm.DB
}

func (r *gormTeams) Create(ctx context.Context, team *domain.Team) error {
	if err := r.db.WithContext(ctx).Create(team).Error; err != nil {
		return duplicate(err, domain.ErrTeamExists, "create team")
	}
	return nil
}

func (r *gormTeams) Update(ctx context.Context, team *domain.Team) error {
	res := r.db.WithContext(ctx).Model(&domain.Team{}).Where("id = ?", team.ID).Updates(map[string]any{
		"name":        team.Name,
		"slug":        team.Slug,
		"image_url":   team.ImageURL,
		"description": team.Description,
	})
	if res.Error != nil {
		return duplicate(res.Error, domain.ErrTeamExists, "update team")
	}
	return nil
}

func (r *gormTeams) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&domain.Team{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete team")
	}
	if res.RowsAffected == 0 { // Nothing deleted
		return domain.ErrTeamNotFound
	}
	return nil
}

func (r *gormTeams) GetByID(ctx context.Context, id uint) (*domain.Team, error) {
	var team domain.Team
	if err := r.db.WithContext(ctx).First(&team, id).Error; err != nil {
		return nil, notFound(err, domain.ErrTeamNotFound, "get team")
	}
	return &team, nil
}

func (r *gormTeams) GetForUpdate(ctx context.Context, id uint) (*domain.Team, error) {
	var team domain.Team
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).First(&team, id).Error
	if err != nil {
		return nil, notFound(err, domain.ErrTeamNotFound, "get team for update")
	}
	return &team, nil
}

func (r *gormTeams) ListByIDs(ctx context.Context, ids []uint) ([]domain.Team, error) {
	var teams []domain.Team
	if len(ids) == 0 {
		return teams, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&teams).Error; err != nil {
		return nil, errors.Wrap(err, "list teams by id")
	}
	return teams, nil
}

func (r *gormTeams) ListForShare(ctx context.Context, ids []uint) ([]domain.Team, error) {
	var teams []domain.Team
	if len(ids) == 0 {
		return teams, nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: clause.LockingStrengthShare}).
		Where("id IN ?", ids).
		Order("id"). // Stable lock order
		Find(&teams).Error
	if err != nil {
		return nil, errors.Wrap(err, "list teams for share")
	}
	return teams, nil
}

func (r *gormTeams) List(ctx context.Context) ([]domain.Team, error) {
	var teams []domain.Team
	if err := r.db.WithContext(ctx).Order("name").Find(&teams).Error; err != nil {
		return nil, errors.Wrap(err, "list teams")
	}
	return teams, nil
}
