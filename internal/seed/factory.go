// Package seed creates demo data for local development and tests.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"

	"picshare/internal/models"
	"picshare/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// FileStore is the subset of the upload store the seeder writes to.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Thumbnail(ctx context.Context, ref string) (string, error)
}

// Options tunes how much data is generated.
type Options struct {
	Users             int
	ImagesPerUser     int
	CategoriesPerUser int

	// SkipBcrypt reuses one low-cost hash of DefaultPassword for every user.
	SkipBcrypt bool
	Seed       int64
}

// Factory builds and persists single entities.
type Factory struct {
	users      repository.UserRepository
	images     repository.ImageRepository
	categories repository.CategoryRepository
	comments   repository.CommentRepository
	social     repository.SocialRepository
	files      FileStore
	faker      *gofakeit.Faker
	rng        *rand.Rand
	hash       string
}

// NewFactory creates a Factory writing through the repositories on db.
func NewFactory(db *gorm.DB, files FileStore, opts Options) (*Factory, error) {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}
	return &Factory{
		users:      repository.NewUserRepository(db),
		images:     repository.NewImageRepository(db),
		categories: repository.NewCategoryRepository(db),
		comments:   repository.NewCommentRepository(db),
		social:     repository.NewSocialRepository(db),
		files:      files,
		faker:      gofakeit.New(seed),
		rng:        rand.New(rand.NewSource(seed)),
		hash:       string(hash),
	}, nil
}

func (f *Factory) passwordHash(skipBcrypt bool) (string, error) {
	if skipBcrypt {
		return f.hash, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CreateUser persists a user with a unique email.
func (f *Factory) CreateUser(ctx context.Context, skipBcrypt bool, overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.passwordHash(skipBcrypt)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	username := strings.ToLower(f.faker.Username())
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s.%d@example.com", username, f.faker.Number(1000, 9999)),
		Password: hash,
		Bio:      f.faker.Sentence(8),
		Role:     models.RoleUser,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Email, err)
	}
	return user, nil
}

// CreateCategory persists a category owned by owner.
func (f *Factory) CreateCategory(ctx context.Context, owner *models.User, public bool) (*models.Category, error) {
	category := &models.Category{
		Name:        f.faker.HipsterWord() + " " + f.faker.Noun(),
		Description: f.faker.Sentence(6),
		IsPublic:    public,
		OwnerID:     owner.ID,
	}
	if err := f.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return category, nil
}

// CreateImage renders a gradient PNG, stores it with a thumbnail and
// persists the image row linked to categories.
func (f *Factory) CreateImage(ctx context.Context, owner *models.User, public bool, categoryIDs []uint) (*models.Image, error) {
	data, err := f.renderPNG(320, 240)
	if err != nil {
		return nil, err
	}
	original, err := f.files.Save(ctx, "seed.png", data)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	thumb, err := f.files.Thumbnail(ctx, original)
	if err != nil {
		return nil, fmt.Errorf("thumbnail: %w", err)
	}

	img := &models.Image{
		Title:        f.faker.Sentence(3),
		Description:  f.faker.Sentence(10),
		OriginalURL:  original,
		ThumbnailURL: thumb,
		OwnerID:      owner.ID,
		Tags:         models.NormalizeTags([]string{f.faker.Color(), f.faker.Animal(), f.faker.Color()}),
		IsPublic:     public,
	}
	if err := f.images.Create(ctx, img); err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	if len(categoryIDs) > 0 {
		if err := f.categories.AddImageToCategories(ctx, img.ID, categoryIDs); err != nil {
			return nil, fmt.Errorf("link image categories: %w", err)
		}
	}
	return img, nil
}

// CreateComment persists a comment by author on img.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, img *models.Image) (*models.Comment, error) {
	comment := &models.Comment{
		Content: f.faker.Sentence(f.rng.Intn(12) + 3),
		ImageID: img.ID,
		UserID:  author.ID,
	}
	if err := f.comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

func (f *Factory) renderPNG(w, h int) ([]byte, error) {
	from := color.RGBA{R: uint8(f.rng.Intn(256)), G: uint8(f.rng.Intn(256)), B: uint8(f.rng.Intn(256)), A: 255}
	to := color.RGBA{R: uint8(f.rng.Intn(256)), G: uint8(f.rng.Intn(256)), B: uint8(f.rng.Intn(256)), A: 255}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		r := uint8((int(from.R)*(w-x) + int(to.R)*x) / w)
		g := uint8((int(from.G)*(w-x) + int(to.G)*x) / w)
		b := uint8((int(from.B)*(w-x) + int(to.B)*x) / w)
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
