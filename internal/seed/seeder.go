package seed

import (
	"context"
	"fmt"
	"log/slog"

	"picshare/internal/database"
	"picshare/internal/middleware"
	"picshare/internal/models"

	"gorm.io/gorm"
)

// Summary counts what a run created.
type Summary struct {
	Users      int
	Categories int
	Images     int
	Comments   int
	Likes      int
	Follows    int
}

// Seeder fills a database with a small social graph of users, categories,
// images, comments, likes and follows.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder. Zero option values fall back to small defaults.
func NewSeeder(db *gorm.DB, files FileStore, opts Options) (*Seeder, error) {
	if opts.Users <= 0 {
		opts.Users = 10
	}
	if opts.ImagesPerUser < 0 {
		opts.ImagesPerUser = 0
	} else if opts.ImagesPerUser == 0 {
		opts.ImagesPerUser = 3
	}
	if opts.CategoriesPerUser <= 0 {
		opts.CategoriesPerUser = 1
	}
	f, err := NewFactory(db, files, opts)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f, opts: opts}, nil
}

// ClearAll deletes every row, children first.
func (s *Seeder) ClearAll() error {
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

// Run creates the data set.
func (s *Seeder) Run(ctx context.Context) (*Summary, error) {
	f := s.factory
	sum := &Summary{}

	users := make([]*models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		u, err := f.CreateUser(ctx, s.opts.SkipBcrypt)
		if err != nil {
			return sum, err
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	var images []*models.Image
	for _, u := range users {
		var categoryIDs []uint
		for j := 0; j < s.opts.CategoriesPerUser; j++ {
			// every third category is private
			c, err := f.CreateCategory(ctx, u, j%3 != 2)
			if err != nil {
				return sum, err
			}
			categoryIDs = append(categoryIDs, c.ID)
			sum.Categories++
		}
		for j := 0; j < s.opts.ImagesPerUser; j++ {
			linked := categoryIDs[:f.rng.Intn(len(categoryIDs)+1)]
			img, err := f.CreateImage(ctx, u, f.rng.Intn(5) != 0, linked)
			if err != nil {
				return sum, err
			}
			images = append(images, img)
			sum.Images++
		}
	}

	for _, u := range users {
		for _, other := range users {
			if other.ID == u.ID || f.rng.Intn(3) != 0 {
				continue
			}
			if err := f.social.Follow(ctx, u.ID, other.ID); err != nil {
				return sum, fmt.Errorf("follow: %w", err)
			}
			sum.Follows++
		}
	}

	for _, img := range images {
		for _, u := range users {
			// only interact with what the user could see
			if !img.IsPublic && img.OwnerID != u.ID {
				continue
			}
			if f.rng.Intn(2) == 0 {
				if err := f.social.Like(ctx, u.ID, img.ID); err != nil {
					return sum, fmt.Errorf("like: %w", err)
				}
				sum.Likes++
			}
			if f.rng.Intn(4) == 0 {
				if _, err := f.CreateComment(ctx, u, img); err != nil {
					return sum, err
				}
				sum.Comments++
			}
		}
	}

	middleware.Logger.Info("seed complete",
		slog.Int("users", sum.Users),
		slog.Int("categories", sum.Categories),
		slog.Int("images", sum.Images),
		slog.Int("comments", sum.Comments),
		slog.Int("likes", sum.Likes),
		slog.Int("follows", sum.Follows),
	)
	return sum, nil
}
