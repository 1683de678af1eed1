package service

import (
	"context"

	"picshare/internal/models"
	"picshare/internal/observability"
	"picshare/internal/repository"
)

// SocialService covers likes and follows.
type SocialService struct {
	social repository.SocialRepository
	images repository.ImageRepository
	users  repository.UserRepository
	tx     repository.Transactor
}

func NewSocialService(social repository.SocialRepository, images repository.ImageRepository, users repository.UserRepository, tx repository.Transactor) *SocialService {
	return &SocialService{social: social, images: images, users: users, tx: tx}
}

// LikeImage is idempotent and reports the count after the change.
func (s *SocialService) LikeImage(ctx context.Context, userID, imageID uint) (*models.LikeState, error) {
	return s.setLike(ctx, userID, imageID, true)
}

func (s *SocialService) UnlikeImage(ctx context.Context, userID, imageID uint) (*models.LikeState, error) {
	return s.setLike(ctx, userID, imageID, false)
}

func (s *SocialService) setLike(ctx context.Context, userID, imageID uint, like bool) (*models.LikeState, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	state := &models.LikeState{ImageID: imageID, Liked: like}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := visibleImage(ctx, s.images, imageID, userID); err != nil {
			return err
		}
		var err error
		if like {
			err = s.social.Like(ctx, userID, imageID)
		} else {
			err = s.social.Unlike(ctx, userID, imageID)
		}
		if err != nil {
			return err
		}
		state.LikesCount, err = s.social.CountLikes(ctx, imageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if like {
		observability.SocialActions.WithLabelValues("like").Inc()
	} else {
		observability.SocialActions.WithLabelValues("unlike").Inc()
	}
	return state, nil
}

func (s *SocialService) ListLikers(ctx context.Context, viewerID, imageID uint) ([]models.UserSummary, error) {
	if _, err := visibleImage(ctx, s.images, imageID, viewerID); err != nil {
		return nil, err
	}
	users, err := s.social.ListLikers(ctx, imageID)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

func (s *SocialService) Follow(ctx context.Context, followerID, targetID uint) (*models.FollowState, error) {
	return s.setFollow(ctx, followerID, targetID, true)
}

func (s *SocialService) Unfollow(ctx context.Context, followerID, targetID uint) (*models.FollowState, error) {
	return s.setFollow(ctx, followerID, targetID, false)
}

func (s *SocialService) setFollow(ctx context.Context, followerID, targetID uint, follow bool) (*models.FollowState, error) {
	if err := requireUser(followerID); err != nil {
		return nil, err
	}
	if followerID == targetID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByID(ctx, targetID); err != nil {
			return err
		}
		if follow {
			return s.social.Follow(ctx, followerID, targetID)
		}
		return s.social.Unfollow(ctx, followerID, targetID)
	})
	if err != nil {
		return nil, err
	}
	if follow {
		observability.SocialActions.WithLabelValues("follow").Inc()
	} else {
		observability.SocialActions.WithLabelValues("unfollow").Inc()
	}
	return &models.FollowState{UserID: targetID, Following: follow}, nil
}

// ListFollowers returns who follows userID.
func (s *SocialService) ListFollowers(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	users, err := s.social.ListFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

// ListFollowing returns who userID follows.
func (s *SocialService) ListFollowing(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	users, err := s.social.ListFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}
