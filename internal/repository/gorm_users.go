package repository

import (
	"context" // Request-scoped deadlines
	"time"    // Timestamps and durations

	"github.com/pkg/errors" // Error wrapping
	"gorm.io/gorm"          // ORM

	"scorekeeper/internal/domain" // Domain models and errors
)

type gormUsers struct {
	db *gorm.DB
}

func (r *gormUsers) Create(ctx context.Context, user *domain.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return duplicate(err, domain.ErrUserExists, "create user")
	}
	return nil
}

func (r *gormUsers) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound, "get user")
	}
	return &user, nil
}

func (r *gormUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound, "get user by email")
	}
	return &user, nil
}

func (r *gormUsers) GetByResetTokenHash(ctx context.Context, hash string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("reset_token_hash = ?", hash).First(&user).Error; err != nil {
		return nil, notFound(err, domain.ErrUserNotFound, "get user by reset token")
	}
	return &user, nil
}

func (r *gormUsers) ListByIDs(ctx context.Context, ids []uint) ([]domain.User, error) {
	var users []domain.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users by id")
	}
	return users, nil
}

func (r *gormUsers) List(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}
	var users []domain.User
	if err := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	return users, total, nil
}

func (r *gormUsers) SetRole(ctx context.Context, id uint, role string) error {
	return r.update(ctx, id, map[string]any{"role": role}, "set role")
}

func (r *gormUsers) SetResetToken(ctx context.Context, id uint, hash string, expiresAt time.Time) error {
	return r.update(ctx, id, map[string]any{
		"reset_token_hash": hash,
		"reset_expires_at": expiresAt,
	}, "set reset token")
}

func (r *gormUsers) ResetPassword(ctx context.Context, id uint, tokenHash, passwordHash string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND reset_token_hash = ?", id, tokenHash).
		Updates(map[string]any{
			"password":         passwordHash,
			"token_generation": gorm.Expr("token_generation + 1"),
			"reset_token_hash": nil,
			"reset_expires_at": nil,
		})
	if res.Error != nil {
		return errors.Wrap(res.Error, "reset password")
	}
	if res.RowsAffected == 0 {
		return domain.ErrInvalidOrExpiredToken // Already used or replaced
	}
	return nil
}

func (r *gormUsers) BumpTokenGeneration(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]any{"token_generation": gorm.Expr("token_generation + 1")}, "bump token generation")
}

func (r *gormUsers) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("reset_expires_at IS NOT NULL AND reset_expires_at < ?", now).
		Updates(map[string]any{"reset_token_hash": nil, "reset_expires_at": nil})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "clear expired reset tokens")
	}
	return res.RowsAffected, nil
}

func (r *gormUsers) update(ctx context.Context, id uint, fields map[string]any, op string) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return errors.Wrap(res.Error, op)
	}
	if res.RowsAffected == 0 {
		// MySQL reports zero affected rows when nothing changed
		var count int64
		if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return errors.Wrap(err, op)
		}
		if count == 0 {
			return domain.ErrUserNotFound
		}
	}
	return nil
}
