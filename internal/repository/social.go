package repository

import (
	"context"

	"picshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SocialRepository stores likes and follows. Both are sets of pairs, so
// adding an existing pair or removing a missing one is a no-op.
type SocialRepository interface {
	Like(ctx context.Context, userID, imageID uint) error
	Unlike(ctx context.Context, userID, imageID uint) error
	IsLiked(ctx context.Context, userID, imageID uint) (bool, error)
	CountLikes(ctx context.Context, imageID uint) (int64, error)
	ListLikers(ctx context.Context, imageID uint) ([]*models.User, error)
	Follow(ctx context.Context, followerID, followingID uint) error
	Unfollow(ctx context.Context, followerID, followingID uint) error
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	ListFollowers(ctx context.Context, userID uint) ([]*models.User, error)
	ListFollowing(ctx context.Context, userID uint) ([]*models.User, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
}

type socialRepository struct {
	db *gorm.DB
}

// NewSocialRepository creates a new SocialRepository
func NewSocialRepository(db *gorm.DB) SocialRepository {
	return &socialRepository{db: db}
}

func (r *socialRepository) Like(ctx context.Context, userID, imageID uint) error {
	err := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&models.Like{UserID: userID, ImageID: imageID}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *socialRepository) Unlike(ctx context.Context, userID, imageID uint) error {
	err := conn(ctx, r.db).
		Where("user_id = ? AND image_id = ?", userID, imageID).
		Delete(&models.Like{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *socialRepository) IsLiked(ctx context.Context, userID, imageID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Like{}).
		Where("user_id = ? AND image_id = ?", userID, imageID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *socialRepository) CountLikes(ctx context.Context, imageID uint) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.Like{}).Where("image_id = ?", imageID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *socialRepository) ListLikers(ctx context.Context, imageID uint) ([]*models.User, error) {
	return r.listUsers(ctx,
		"JOIN likes ON likes.user_id = users.id",
		"likes.image_id = ?", imageID, "likes.created_at")
}

func (r *socialRepository) Follow(ctx context.Context, followerID, followingID uint) error {
	err := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *socialRepository) Unfollow(ctx context.Context, followerID, followingID uint) error {
	err := conn(ctx, r.db).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *socialRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// ListFollowers returns the users following userID.
func (r *socialRepository) ListFollowers(ctx context.Context, userID uint) ([]*models.User, error) {
	return r.listUsers(ctx,
		"JOIN follows ON follows.follower_id = users.id",
		"follows.following_id = ?", userID, "follows.created_at")
}

// ListFollowing returns the users userID follows.
func (r *socialRepository) ListFollowing(ctx context.Context, userID uint) ([]*models.User, error) {
	return r.listUsers(ctx,
		"JOIN follows ON follows.following_id = users.id",
		"follows.follower_id = ?", userID, "follows.created_at")
}

func (r *socialRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.Follow{}).Where("following_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *socialRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *socialRepository) listUsers(ctx context.Context, join, where string, id uint, orderCol string) ([]*models.User, error) {
	users := []*models.User{}
	err := conn(ctx, r.db).
		Select("users.*").
		Joins(join).
		Where(where, id).
		Order(orderCol + " ASC").
		Order("users.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
