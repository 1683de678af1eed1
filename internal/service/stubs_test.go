package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"picshare/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// txStub runs fn inline; rollback behavior is covered by repository tests.
type txStub struct{}

func (txStub) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn         func(context.Context, uint) (*models.User, error)
	getByEmailFn      func(context.Context, string) (*models.User, error)
	getByResetTokenFn func(context.Context, string, time.Time) (*models.User, error)
	createFn          func(context.Context, *models.User) error
	updateFieldsFn    func(context.Context, uint, map[string]any) error
	setResetTokenFn   func(context.Context, uint, string, time.Time) error
	resetPasswordFn   func(context.Context, uint, string) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	return s.getByResetTokenFn(ctx, token, now)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFieldsFn(ctx, id, fields)
}
func (s *userRepoStub) SetResetToken(ctx context.Context, id uint, token string, expires time.Time) error {
	return s.setResetTokenFn(ctx, id, token, expires)
}
func (s *userRepoStub) ResetPassword(ctx context.Context, id uint, hash string) error {
	return s.resetPasswordFn(ctx, id, hash)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "user", Role: models.RoleUser}, nil
		},
		getByEmailFn:      func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		getByResetTokenFn: func(_ context.Context, _ string, _ time.Time) (*models.User, error) { return nil, nil },
		createFn:          func(_ context.Context, _ *models.User) error { return nil },
		updateFieldsFn:    func(_ context.Context, _ uint, _ map[string]any) error { return nil },
		setResetTokenFn:   func(_ context.Context, _ uint, _ string, _ time.Time) error { return nil },
		resetPasswordFn:   func(_ context.Context, _ uint, _ string) error { return nil },
	}
}

// imageRepoStub is a stub for repository.ImageRepository.
type imageRepoStub struct {
	createFn      func(context.Context, *models.Image) error
	getByIDFn     func(context.Context, uint) (*models.Image, error)
	getDetailedFn func(context.Context, uint, uint) (*models.Image, error)
	listFn        func(context.Context, models.ImageFilter) ([]*models.Image, int64, error)
	updateFn      func(context.Context, uint, map[string]any) error
	deleteFn      func(context.Context, uint) error
}

func (s *imageRepoStub) Create(ctx context.Context, img *models.Image) error {
	return s.createFn(ctx, img)
}
func (s *imageRepoStub) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	return s.getByIDFn(ctx, id)
}
func (s *imageRepoStub) GetDetailed(ctx context.Context, id, viewerID uint) (*models.Image, error) {
	return s.getDetailedFn(ctx, id, viewerID)
}
func (s *imageRepoStub) List(ctx context.Context, f models.ImageFilter) ([]*models.Image, int64, error) {
	return s.listFn(ctx, f)
}
func (s *imageRepoStub) Update(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFn(ctx, id, fields)
}
func (s *imageRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

// imageOwnedBy returns an image repo whose every image belongs to ownerID.
func imageOwnedBy(ownerID uint, public bool) *imageRepoStub {
	get := func(_ context.Context, id uint) (*models.Image, error) {
		return &models.Image{ID: id, OwnerID: ownerID, IsPublic: public, OriginalURL: "/uploads/o.png", ThumbnailURL: "/uploads/t.jpg"}, nil
	}
	return &imageRepoStub{
		createFn: func(_ context.Context, img *models.Image) error {
			img.ID = 1
			return nil
		},
		getByIDFn: get,
		getDetailedFn: func(ctx context.Context, id, _ uint) (*models.Image, error) {
			return get(ctx, id)
		},
		listFn: func(_ context.Context, _ models.ImageFilter) ([]*models.Image, int64, error) {
			return []*models.Image{}, 0, nil
		},
		updateFn: func(_ context.Context, _ uint, _ map[string]any) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
	}
}

func missingImageRepo() *imageRepoStub {
	repo := imageOwnedBy(1, true)
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Image, error) {
		return nil, models.NewNotFoundError("Image", id)
	}
	repo.getDetailedFn = func(_ context.Context, id, _ uint) (*models.Image, error) {
		return nil, models.NewNotFoundError("Image", id)
	}
	return repo
}

// categoryRepoStub is a stub for repository.CategoryRepository.
type categoryRepoStub struct {
	createFn        func(context.Context, *models.Category) error
	getByIDFn       func(context.Context, uint) (*models.Category, error)
	listVisibleFn   func(context.Context, uint) ([]*models.Category, error)
	updateFn        func(context.Context, uint, map[string]any) error
	deleteFn        func(context.Context, uint) error
	hasImageFn      func(context.Context, uint, uint) (bool, error)
	addImageFn      func(context.Context, uint, uint) error
	removeImageFn   func(context.Context, uint, uint) error
	addToManyFn     func(context.Context, uint, []uint) error
	setCategoriesFn func(context.Context, uint, []uint) error
}

func (s *categoryRepoStub) Create(ctx context.Context, c *models.Category) error {
	return s.createFn(ctx, c)
}
func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) ListVisible(ctx context.Context, viewerID uint) ([]*models.Category, error) {
	return s.listVisibleFn(ctx, viewerID)
}
func (s *categoryRepoStub) Update(ctx context.Context, id uint, fields map[string]any) error {
	return s.updateFn(ctx, id, fields)
}
func (s *categoryRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *categoryRepoStub) HasImage(ctx context.Context, categoryID, imageID uint) (bool, error) {
	return s.hasImageFn(ctx, categoryID, imageID)
}
func (s *categoryRepoStub) AddImage(ctx context.Context, categoryID, imageID uint) error {
	return s.addImageFn(ctx, categoryID, imageID)
}
func (s *categoryRepoStub) RemoveImage(ctx context.Context, categoryID, imageID uint) error {
	return s.removeImageFn(ctx, categoryID, imageID)
}
func (s *categoryRepoStub) AddImageToCategories(ctx context.Context, imageID uint, ids []uint) error {
	return s.addToManyFn(ctx, imageID, ids)
}
func (s *categoryRepoStub) SetImageCategories(ctx context.Context, imageID uint, ids []uint) error {
	return s.setCategoriesFn(ctx, imageID, ids)
}

// categoryOwnedBy returns a category repo whose every category belongs to ownerID.
func categoryOwnedBy(ownerID uint, public bool) *categoryRepoStub {
	return &categoryRepoStub{
		createFn: func(_ context.Context, c *models.Category) error {
			c.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Category, error) {
			return &models.Category{ID: id, Name: "Nature", OwnerID: ownerID, IsPublic: public}, nil
		},
		listVisibleFn:   func(_ context.Context, _ uint) ([]*models.Category, error) { return []*models.Category{}, nil },
		updateFn:        func(_ context.Context, _ uint, _ map[string]any) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		hasImageFn:      func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		addImageFn:      func(_ context.Context, _, _ uint) error { return nil },
		removeImageFn:   func(_ context.Context, _, _ uint) error { return nil },
		addToManyFn:     func(_ context.Context, _ uint, _ []uint) error { return nil },
		setCategoriesFn: func(_ context.Context, _ uint, _ []uint) error { return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listByImageFn   func(context.Context, uint) ([]*models.Comment, error)
	updateContentFn func(context.Context, uint, string) error
	deleteFn        func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByImage(ctx context.Context, imageID uint) ([]*models.Comment, error) {
	return s.listByImageFn(ctx, imageID)
}
func (s *commentRepoStub) UpdateContent(ctx context.Context, id uint, content string) error {
	return s.updateContentFn(ctx, id, content)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			c.ID = 1
			return nil
		},
		getByIDFn:       func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByImageFn:   func(_ context.Context, _ uint) ([]*models.Comment, error) { return []*models.Comment{}, nil },
		updateContentFn: func(_ context.Context, _ uint, _ string) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
	}
}

// socialRepoStub keeps likes and follows in memory.
type socialRepoStub struct {
	mu      sync.Mutex
	likes   map[[2]uint]bool
	follows map[[2]uint]bool
	err     error
}

func newSocialRepoStub() *socialRepoStub {
	return &socialRepoStub{likes: map[[2]uint]bool{}, follows: map[[2]uint]bool{}}
}

func (s *socialRepoStub) Like(_ context.Context, userID, imageID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.likes[[2]uint{userID, imageID}] = true
	return nil
}
func (s *socialRepoStub) Unlike(_ context.Context, userID, imageID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.likes, [2]uint{userID, imageID})
	return nil
}
func (s *socialRepoStub) IsLiked(_ context.Context, userID, imageID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes[[2]uint{userID, imageID}], nil
}
func (s *socialRepoStub) CountLikes(_ context.Context, imageID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.likes {
		if k[1] == imageID {
			n++
		}
	}
	return n, nil
}
func (s *socialRepoStub) ListLikers(_ context.Context, imageID uint) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.User{}
	for k := range s.likes {
		if k[1] == imageID {
			out = append(out, &models.User{ID: k[0]})
		}
	}
	return out, nil
}
func (s *socialRepoStub) Follow(_ context.Context, followerID, followingID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follows[[2]uint{followerID, followingID}] = true
	return nil
}
func (s *socialRepoStub) Unfollow(_ context.Context, followerID, followingID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows, [2]uint{followerID, followingID})
	return nil
}
func (s *socialRepoStub) IsFollowing(_ context.Context, followerID, followingID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.follows[[2]uint{followerID, followingID}], nil
}
func (s *socialRepoStub) ListFollowers(_ context.Context, userID uint) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.User{}
	for k := range s.follows {
		if k[1] == userID {
			out = append(out, &models.User{ID: k[0]})
		}
	}
	return out, nil
}
func (s *socialRepoStub) ListFollowing(_ context.Context, userID uint) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.User{}
	for k := range s.follows {
		if k[0] == userID {
			out = append(out, &models.User{ID: k[1]})
		}
	}
	return out, nil
}
func (s *socialRepoStub) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	users, err := s.ListFollowers(ctx, userID)
	return int64(len(users)), err
}
func (s *socialRepoStub) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	users, err := s.ListFollowing(ctx, userID)
	return int64(len(users)), err
}

// fileStoreStub records what was saved and removed.
type fileStoreStub struct {
	mu       sync.Mutex
	saveErr  error
	thumbErr error
	saved    []string
	removed  []string
}

func (f *fileStoreStub) Save(_ context.Context, _ string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return "", f.saveErr
	}
	ref := "/uploads/original.png"
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fileStoreStub) Thumbnail(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.thumbErr != nil {
		return "", f.thumbErr
	}
	ref := "/uploads/thumb.jpg"
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fileStoreStub) Remove(refs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, refs...)
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, "message: %s", appErr.Message)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeUnauthorized)
}

// assertNotFoundError asserts that err is an AppError with code NOT_FOUND.
func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeNotFound)
}
