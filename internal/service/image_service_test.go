package service

import (
	"context"
	"errors"
	"testing"

	"picshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNormalizePage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		page, limit         int
		wantPage, wantLimit int
	}{
		{0, 0, 1, DefaultPageSize},
		{-3, -1, 1, DefaultPageSize},
		{2, 5, 2, 5},
		{1, 1000, 1, MaxPageSize},
	}
	for _, tt := range tests {
		page, limit := normalizePage(tt.page, tt.limit)
		assert.Equal(t, tt.wantPage, page)
		assert.Equal(t, tt.wantLimit, limit)
	}
}

func TestImageService_ListImages_Pagination(t *testing.T) {
	t.Parallel()
	images := imageOwnedBy(1, true)
	var got models.ImageFilter
	images.listFn = func(_ context.Context, f models.ImageFilter) ([]*models.Image, int64, error) {
		got = f
		return []*models.Image{{ID: 3}}, 23, nil
	}
	svc := NewImageService(images, categoryOwnedBy(1, true), noopUserRepo(), txStub{}, &fileStoreStub{}, 0)

	page, err := svc.ListImages(context.Background(), ListImagesInput{ViewerID: 7, Tags: []string{" cats ", "cats"}, Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 20, got.Offset)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, uint(7), got.ViewerID)
	assert.Equal(t, []string{"cats"}, got.Tags)
	assert.Equal(t, models.Pagination{TotalItems: 23, TotalPages: 3, CurrentPage: 3, ItemsPerPage: 10}, page.Pagination)
}

func TestImageService_GetImage_Visibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewImageService(imageOwnedBy(1, false), categoryOwnedBy(1, true), noopUserRepo(), txStub{}, &fileStoreStub{}, 0)

	img, err := svc.GetImage(ctx, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, uint(5), img.ID)

	_, errOther := svc.GetImage(ctx, 2, 5)
	_, errAnon := svc.GetImage(ctx, 0, 5)
	assertNotFoundError(t, errOther)
	assertNotFoundError(t, errAnon)

	missing := NewImageService(missingImageRepo(), categoryOwnedBy(1, true), noopUserRepo(), txStub{}, &fileStoreStub{}, 0)
	_, errMissing := missing.GetImage(ctx, 1, 5)
	assert.Equal(t, errMissing.Error(), errOther.Error())
}

func TestImageService_UploadImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success links owned categories", func(t *testing.T) {
		t.Parallel()
		files := &fileStoreStub{}
		images := imageOwnedBy(1, true)
		var created *models.Image
		images.createFn = func(_ context.Context, img *models.Image) error {
			img.ID = 42
			created = img
			return nil
		}
		cats := categoryOwnedBy(1, true)
		var linked []uint
		cats.addToManyFn = func(_ context.Context, imageID uint, ids []uint) error {
			assert.Equal(t, uint(42), imageID)
			linked = ids
			return nil
		}
		svc := NewImageService(images, cats, noopUserRepo(), txStub{}, files, 0)

		_, err := svc.UploadImage(ctx, UploadImageInput{
			UserID:      1,
			Title:       "  Sunset ",
			Tags:        []string{"sky", "sky ", " sun", ""},
			CategoryIDs: []uint{3, 3, 4},
			IsPublic:    ptr(false),
			Filename:    "sunset.png",
			Content:     []byte("png bytes"),
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "Sunset", created.Title)
		assert.Equal(t, uint(1), created.OwnerID)
		assert.False(t, created.IsPublic)
		assert.Equal(t, models.Tags{"sky", "sun"}, created.Tags)
		assert.Equal(t, "/uploads/original.png", created.OriginalURL)
		assert.Equal(t, "/uploads/thumb.jpg", created.ThumbnailURL)
		assert.Equal(t, []uint{3, 4}, linked)
		assert.Empty(t, files.removed)
	})

	t.Run("requires auth", func(t *testing.T) {
		t.Parallel()
		svc := NewImageService(imageOwnedBy(1, true), categoryOwnedBy(1, true), noopUserRepo(), txStub{}, &fileStoreStub{}, 0)
		_, err := svc.UploadImage(ctx, UploadImageInput{Title: "x", Content: []byte("x")})
		assertUnauthorizedError(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		files := &fileStoreStub{}
		svc := NewImageService(imageOwnedBy(1, true), categoryOwnedBy(1, true), noopUserRepo(), txStub{}, files, 16)

		_, err := svc.UploadImage(ctx, UploadImageInput{UserID: 1, Title: "x"})
		assertValidationError(t, err)
		_, err = svc.UploadImage(ctx, UploadImageInput{UserID: 1, Title: "   ", Content: []byte("x")})
		assertValidationError(t, err)
		_, err = svc.UploadImage(ctx, UploadImageInput{UserID: 1, Title: "x", Content: make([]byte, 17)})
		assertValidationError(t, err)
		assert.Empty(t, files.saved)
	})

	t.Run("thumbnail failure removes original", func(t *testing.T) {
		t.Parallel()
		files := &fileStoreStub{thumbErr: errors.New("decode failed")}
		images := imageOwnedBy(1, true)
		images.createFn = func(_ context.Context, _ *models.Image) error {
			t.Fatal("no row may be written")
			return nil
		}
		svc := NewImageService(images, categoryOwnedBy(1, true), noopUserRepo(), txStub{}, files, 0)

		_, err := svc.UploadImage(ctx, UploadImageInput{UserID: 1, Title: "x", Content: []byte("x")})
		assertAppError(t, err, models.CodeProcessing)
		assert.Equal(t, []string{"/uploads/original.png"}, files.removed)
	})

	t.Run("foreign category removes both files", func(t *testing.T) {
		t.Parallel()
		files := &fileStoreStub{}
		svc := NewImageService(imageOwnedBy(1, true), categoryOwnedBy(2, true), noopUserRepo(), txStub{}, files, 0)

		_, err := svc.UploadImage(ctx, UploadImageInput{UserID: 1, Title: "x", CategoryIDs: []uint{9}, Content: []byte("x")})
		assertNotFoundError(t, err)
		assert.ElementsMatch(t, []string{"/uploads/original.png", "/uploads/thumb.jpg"}, files.removed)
	})

	t.Run("rejected file type", func(t *testing.T) {
		t.Parallel()
		files := &fileStoreStub{saveErr: models.NewValidationError("Unsupported image type")}
		svc := NewImageService(imageOwnedBy(1, true), categoryOwnedBy(1, true), noopUserRepo(), txStub{}, files, 0)
		_, err := svc.UploadImage(ctx, UploadImageInput{UserID: 1, Title: "x", Content: []byte("x")})
		assertValidationError(t, err)
		assert.Empty(t, files.removed)
	})
}

func TestImageService_UpdateImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner partial update", func(t *testing.T) {
		t.Parallel()
		images := imageOwnedBy(1, true)
		var fields map[string]any
		images.updateFn = func(_ context.Context, _ uint, f map[string]any) error {
			fields = f
			return nil
		}
		cats := categoryOwnedBy(1, true)
		cats.setCategoriesFn = func(_ context.Context, _ uint, _ []uint) error {
			t.Fatal("categories untouched when not given")
			return nil
		}
		svc := NewImageService(images, cats, noopUserRepo(), txStub{}, &fileStoreStub{}, 0)

		_, err := svc.UpdateImage(ctx, UpdateImageInput{UserID: 1, ImageID: 5, Title: ptr(" New "), IsPublic: ptr(false)})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"title": "New", "is_public": false}, fields)
	})

	t.Run("empty category list clears the set", func(t *testing.T) {
		t.Parallel()
		cats := categoryOwnedBy(1, true)
		var set []uint
		called := false
		cats.setCategoriesFn = func(_ context.Context, _ uint, ids []uint) error {
			called = true
			set = ids
			return nil
		}
		svc := NewImageService(imageOwnedBy(1, true), cats, noopUserRepo(), txStub{}, &fileStoreStub{}, 0)

		_, err := svc.UpdateImage(ctx, UpdateImageInput{UserID: 1, ImageID: 5, CategoryIDs: ptr([]uint{})})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Empty(t, set)
	})

	t.Run("non owner sees not found before validation", func(t *testing.T) {
		t.Parallel()
		svc := NewImageService(imageOwnedBy(1, true), categoryOwnedBy(1, true), noopUserRepo(), txStub{}, &fileStoreStub{}, 0)
		_, err := svc.UpdateImage(ctx, UpdateImageInput{UserID: 2, ImageID: 5, Title: ptr("")})
		assertNotFoundError(t, err)
	})

	t.Run("owner with blank title", func(t *testing.T) {
		t.Parallel()
		svc := NewImageService(imageOwnedBy(1, true), categoryOwnedBy(1, true), noopUserRepo(), txStub{}, &fileStoreStub{}, 0)
		_, err := svc.UpdateImage(ctx, UpdateImageInput{UserID: 1, ImageID: 5, Title: ptr("  ")})
		assertValidationError(t, err)
	})
}

func TestImageService_DeleteImage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner removes row then files", func(t *testing.T) {
		t.Parallel()
		files := &fileStoreStub{}
		images := imageOwnedBy(1, true)
		deleted := false
		images.deleteFn = func(_ context.Context, id uint) error {
			deleted = true
			assert.Empty(t, files.removed)
			return nil
		}
		svc := NewImageService(images, categoryOwnedBy(1, true), noopUserRepo(), txStub{}, files, 0)

		require.NoError(t, svc.DeleteImage(ctx, 1, 5))
		assert.True(t, deleted)
		assert.Equal(t, []string{"/uploads/o.png", "/uploads/t.jpg"}, files.removed)
	})

	t.Run("non owner", func(t *testing.T) {
		t.Parallel()
		files := &fileStoreStub{}
		svc := NewImageService(imageOwnedBy(1, true), categoryOwnedBy(1, true), noopUserRepo(), txStub{}, files, 0)
		assertNotFoundError(t, svc.DeleteImage(ctx, 2, 5))
		assert.Empty(t, files.removed)
	})

	t.Run("database failure keeps files", func(t *testing.T) {
		t.Parallel()
		files := &fileStoreStub{}
		images := imageOwnedBy(1, true)
		images.deleteFn = func(_ context.Context, _ uint) error { return models.NewInternalError(errors.New("boom")) }
		svc := NewImageService(images, categoryOwnedBy(1, true), noopUserRepo(), txStub{}, files, 0)
		assertAppError(t, svc.DeleteImage(ctx, 1, 5), models.CodeInternal)
		assert.Empty(t, files.removed)
	})
}

func TestImageService_ListUserImages_UnknownUser(t *testing.T) {
	t.Parallel()
	users := noopUserRepo()
	users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return nil, models.NewNotFoundError("User", id)
	}
	svc := NewImageService(imageOwnedBy(1, true), categoryOwnedBy(1, true), users, txStub{}, &fileStoreStub{}, 0)
	_, err := svc.ListUserImages(context.Background(), 0, 9, 1, 10)
	assertNotFoundError(t, err)
}
