package server

import (
	"context"
	"time"

	"picshare/internal/models"

	"github.com/stretchr/testify/mock"
)

type passthroughTx struct{}

func (passthroughTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockUserRepository is a testify mock of repository.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	args := m.Called(ctx, token, now)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id uint, token string, expires time.Time) error {
	return m.Called(ctx, id, token, expires).Error(0)
}

func (m *MockUserRepository) ResetPassword(ctx context.Context, id uint, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// MockSocialRepository is a testify mock of repository.SocialRepository.
type MockSocialRepository struct {
	mock.Mock
}

func (m *MockSocialRepository) users(args mock.Arguments) ([]*models.User, error) {
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSocialRepository) Like(ctx context.Context, userID, imageID uint) error {
	return m.Called(ctx, userID, imageID).Error(0)
}

func (m *MockSocialRepository) Unlike(ctx context.Context, userID, imageID uint) error {
	return m.Called(ctx, userID, imageID).Error(0)
}

func (m *MockSocialRepository) IsLiked(ctx context.Context, userID, imageID uint) (bool, error) {
	args := m.Called(ctx, userID, imageID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSocialRepository) CountLikes(ctx context.Context, imageID uint) (int64, error) {
	args := m.Called(ctx, imageID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSocialRepository) ListLikers(ctx context.Context, imageID uint) ([]*models.User, error) {
	return m.users(m.Called(ctx, imageID))
}

func (m *MockSocialRepository) Follow(ctx context.Context, followerID, followingID uint) error {
	return m.Called(ctx, followerID, followingID).Error(0)
}

func (m *MockSocialRepository) Unfollow(ctx context.Context, followerID, followingID uint) error {
	return m.Called(ctx, followerID, followingID).Error(0)
}

func (m *MockSocialRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	args := m.Called(ctx, followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSocialRepository) ListFollowers(ctx context.Context, userID uint) ([]*models.User, error) {
	return m.users(m.Called(ctx, userID))
}

func (m *MockSocialRepository) ListFollowing(ctx context.Context, userID uint) ([]*models.User, error) {
	return m.users(m.Called(ctx, userID))
}

func (m *MockSocialRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSocialRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
