package repository

import (
	"context"
	"errors"
	"time"

	"picshare/internal/cache"
	"picshare/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	SetResetToken(ctx context.Context, id uint, token string, expires time.Time) error
	ResetPassword(ctx context.Context, id uint, passwordHash string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID is served from the cache when possible. Cached users carry no
// password hash or reset token, so callers needing those use GetByEmail.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cachedRead(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := conn(ctx, r.db).First(&user, id).Error; err != nil {
			return notFoundOr(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByResetToken returns the user holding token if it has not expired at now.
func (r *userRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	var user models.User
	err := conn(ctx, r.db).
		Where("reset_token = ? AND reset_token_expires > ?", token, now).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Email already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateFields writes only the given columns so unrelated fields such as the
// password hash are never overwritten.
func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	err := conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Updates(fields).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Email already registered")
		}
		return models.NewInternalError(err)
	}
	invalidate(ctx, cache.UserKey(id))
	return nil
}

func (r *userRepository) SetResetToken(ctx context.Context, id uint, token string, expires time.Time) error {
	err := conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"reset_token":         token,
		"reset_token_expires": expires,
	}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ResetPassword stores the new hash and clears the reset token in one statement.
func (r *userRepository) ResetPassword(ctx context.Context, id uint, passwordHash string) error {
	err := conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"password":            passwordHash,
		"reset_token":         nil,
		"reset_token_expires": nil,
	}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	invalidate(ctx, cache.UserKey(id))
	return nil
}
