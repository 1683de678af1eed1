package service

import (
	"context"
	"testing"

	"picshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocialService_Likes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	social := newSocialRepoStub()
	svc := NewSocialService(social, imageOwnedBy(2, true), noopUserRepo(), txStub{})

	state, err := svc.LikeImage(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{ImageID: 5, Liked: true, LikesCount: 1}, *state)

	// liking twice keeps a single like
	state, err = svc.LikeImage(ctx, 1, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, state.LikesCount)

	_, err = svc.LikeImage(ctx, 3, 5)
	require.NoError(t, err)

	likers, err := svc.ListLikers(ctx, 0, 5)
	require.NoError(t, err)
	assert.Len(t, likers, 2)

	state, err = svc.UnlikeImage(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{ImageID: 5, Liked: false, LikesCount: 1}, *state)

	state, err = svc.UnlikeImage(ctx, 1, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 1, state.LikesCount)

	_, err = svc.LikeImage(ctx, 0, 5)
	assertUnauthorizedError(t, err)
}

func TestSocialService_LikePrivateImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	social := newSocialRepoStub()
	svc := NewSocialService(social, imageOwnedBy(2, false), noopUserRepo(), txStub{})

	_, err := svc.LikeImage(ctx, 1, 5)
	assertNotFoundError(t, err)
	_, err = svc.ListLikers(ctx, 1, 5)
	assertNotFoundError(t, err)

	_, err = svc.LikeImage(ctx, 2, 5)
	require.NoError(t, err)
}

func TestSocialService_Follows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	social := newSocialRepoStub()
	svc := NewSocialService(social, imageOwnedBy(2, true), noopUserRepo(), txStub{})

	state, err := svc.Follow(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.FollowState{UserID: 2, Following: true}, *state)
	_, err = svc.Follow(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.Follow(ctx, 3, 2)
	require.NoError(t, err)

	followers, err := svc.ListFollowers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, followers, 2)

	following, err := svc.ListFollowing(ctx, 1)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, uint(2), following[0].ID)

	state, err = svc.Unfollow(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, state.Following)
	followers, err = svc.ListFollowers(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, followers, 1)

	t.Run("self", func(t *testing.T) {
		_, err := svc.Follow(ctx, 1, 1)
		assertValidationError(t, err)
		_, err = svc.Unfollow(ctx, 1, 1)
		assertValidationError(t, err)
	})

	t.Run("unknown target", func(t *testing.T) {
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		missing := NewSocialService(newSocialRepoStub(), imageOwnedBy(2, true), users, txStub{})
		_, err := missing.Follow(ctx, 1, 9)
		assertNotFoundError(t, err)
		_, err = missing.ListFollowers(ctx, 9)
		assertNotFoundError(t, err)
	})
}
