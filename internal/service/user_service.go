package service

import (
	"context"
	"strings"

	"picshare/internal/models"
	"picshare/internal/repository"
	"picshare/internal/validation"
)

const maxBioLen = 500

type UserService struct {
	userRepo   repository.UserRepository
	socialRepo repository.SocialRepository
	tx         repository.Transactor
}

// UpdateProfileInput holds the mutable profile fields. Nil means "leave as is".
type UpdateProfileInput struct {
	UserID   uint
	Username *string
	Email    *string
	Bio      *string
}

func NewUserService(userRepo repository.UserRepository, socialRepo repository.SocialRepository, tx repository.Transactor) *UserService {
	return &UserService{userRepo: userRepo, socialRepo: socialRepo, tx: tx}
}

func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := user.Profile()
	return &p, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	if in.Username == nil && in.Email == nil && in.Bio == nil {
		return nil, models.NewValidationError("Provide at least one of username, email or bio")
	}

	fields := map[string]any{}
	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["username"] = username
	}
	var email string
	if in.Email != nil {
		email = normalizeEmail(*in.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["email"] = email
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if len(bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		fields["bio"] = bio
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.userRepo.GetByID(ctx, in.UserID); err != nil {
			return err
		}
		if email != "" {
			existing, err := s.userRepo.GetByEmail(ctx, email)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != in.UserID {
				return models.NewConflictError("Email already registered")
			}
		}
		return s.userRepo.UpdateFields(ctx, in.UserID, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, in.UserID)
}

// GetUser returns the public view of a user with follow counts.
func (s *UserService) GetUser(ctx context.Context, userID uint) (*models.PublicProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := s.socialRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.socialRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.PublicProfile{
		ID:             user.ID,
		Username:       user.Username,
		Bio:            user.Bio,
		FollowersCount: followers,
		FollowingCount: following,
	}, nil
}
