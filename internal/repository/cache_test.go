package repository

import (
	"context"
	"errors"
	"testing"

	"picshare/internal/cache"
	"picshare/internal/models"
	"picshare/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestCategoryCache_CommittedUpdateIsNotServedStale(t *testing.T) {
	mr := useMiniredis(t)
	db := testutil.NewSQLiteFileDB(t)
	users := NewUserRepository(db)
	cats := NewCategoryRepository(db)
	tx := NewTransactor(db)
	ctx := context.Background()

	owner := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, users.Create(ctx, owner))
	cat := &models.Category{Name: "Trips", OwnerID: owner.ID, IsPublic: true}
	require.NoError(t, cats.Create(ctx, cat))

	err := tx.InTx(ctx, func(txCtx context.Context) error {
		if err := cats.Update(txCtx, cat.ID, map[string]any{"is_public": false}); err != nil {
			return err
		}
		// Another request reads the committed row and caches it.
		concurrent, err := cats.GetByID(context.Background(), cat.ID)
		require.NoError(t, err)
		assert.True(t, concurrent.IsPublic)
		assert.True(t, mr.Exists(cache.CategoryKey(cat.ID)))
		return nil
	})
	require.NoError(t, err)

	assert.False(t, mr.Exists(cache.CategoryKey(cat.ID)))
	got, err := cats.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublic)
}

func TestCategoryCache_ReadsInsideTransactionBypassCache(t *testing.T) {
	mr := useMiniredis(t)
	db := testutil.NewSQLiteFileDB(t)
	users := NewUserRepository(db)
	cats := NewCategoryRepository(db)
	tx := NewTransactor(db)
	ctx := context.Background()

	owner := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, users.Create(ctx, owner))
	cat := &models.Category{Name: "Trips", OwnerID: owner.ID, IsPublic: true}
	require.NoError(t, cats.Create(ctx, cat))

	abort := errors.New("abort")
	err := tx.InTx(ctx, func(txCtx context.Context) error {
		if err := cats.Update(txCtx, cat.ID, map[string]any{"name": "Renamed"}); err != nil {
			return err
		}
		inside, err := cats.GetByID(txCtx, cat.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", inside.Name)
		assert.False(t, mr.Exists(cache.CategoryKey(cat.ID)))
		return abort
	})
	require.ErrorIs(t, err, abort)

	got, err := cats.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Trips", got.Name)
}

func TestUserCache_InvalidatedAfterCommit(t *testing.T) {
	mr := useMiniredis(t)
	db := testutil.NewSQLiteFileDB(t)
	users := NewUserRepository(db)
	tx := NewTransactor(db)
	ctx := context.Background()

	u := &models.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, users.Create(ctx, u))
	_, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.UserKey(u.ID)))

	err = tx.InTx(ctx, func(txCtx context.Context) error {
		if err := users.UpdateFields(txCtx, u.ID, map[string]any{"username": "alicia"}); err != nil {
			return err
		}
		assert.True(t, mr.Exists(cache.UserKey(u.ID)), "key must survive until commit")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))

	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)

	// Outside a transaction the key is dropped immediately.
	require.NoError(t, users.UpdateFields(ctx, u.ID, map[string]any{"bio": "hello"}))
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))
}
