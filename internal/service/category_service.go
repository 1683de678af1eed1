package service

import (
	"context"
	"log/slog"
	"strings"

	"picshare/internal/middleware"
	"picshare/internal/models"
	"picshare/internal/repository"
	"picshare/internal/validation"
)

type CategoryService struct {
	categories repository.CategoryRepository
	images     repository.ImageRepository
	tx         repository.Transactor
}

type CreateCategoryInput struct {
	UserID      uint
	Name        string
	Description string
	IsPublic    *bool
}

type UpdateCategoryInput struct {
	UserID      uint
	CategoryID  uint
	Name        *string
	Description *string
	IsPublic    *bool
}

func NewCategoryService(categories repository.CategoryRepository, images repository.ImageRepository, tx repository.Transactor) *CategoryService {
	return &CategoryService{categories: categories, images: images, tx: tx}
}

func (s *CategoryService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*models.Category, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateCategoryName(name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	category := &models.Category{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		IsPublic:    isPublic,
		OwnerID:     in.UserID,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.categories.Create(ctx, category)
	})
	if err != nil {
		return nil, err
	}
	return s.categories.GetByID(ctx, category.ID)
}

func (s *CategoryService) ListCategories(ctx context.Context, viewerID uint) ([]*models.Category, error) {
	return s.categories.ListVisible(ctx, viewerID)
}

// GetCategory returns the category with the images in it that viewerID may see.
func (s *CategoryService) GetCategory(ctx context.Context, viewerID, categoryID uint) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if !canView(category.IsPublic, category.OwnerID, viewerID) {
		return nil, models.NewNotFoundError("Category", categoryID)
	}

	images, _, err := s.images.List(ctx, models.ImageFilter{
		ViewerID:   viewerID,
		CategoryID: categoryID,
		Limit:      MaxPageSize,
	})
	if err != nil {
		return nil, err
	}
	category.Images = make([]models.Image, 0, len(images))
	for _, img := range images {
		category.Images = append(category.Images, *img)
	}
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, in UpdateCategoryInput) (*models.Category, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		category, err := s.categories.GetByID(ctx, in.CategoryID)
		if err != nil {
			return err
		}
		if err := ensureOwner("Category", in.CategoryID, category.OwnerID, in.UserID); err != nil {
			return err
		}

		fields := map[string]any{}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if err := validation.ValidateCategoryName(name); err != nil {
				return models.NewValidationError(err.Error())
			}
			fields["name"] = name
		}
		if in.Description != nil {
			fields["description"] = strings.TrimSpace(*in.Description)
		}
		if in.IsPublic != nil {
			fields["is_public"] = *in.IsPublic
		}
		return s.categories.Update(ctx, in.CategoryID, fields)
	})
	if err != nil {
		return nil, err
	}
	return s.categories.GetByID(ctx, in.CategoryID)
}

// DeleteCategory removes the category and its image links; the images stay.
func (s *CategoryService) DeleteCategory(ctx context.Context, userID, categoryID uint) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		category, err := s.categories.GetByID(ctx, categoryID)
		if err != nil {
			return err
		}
		if err := ensureOwner("Category", categoryID, category.OwnerID, userID); err != nil {
			return err
		}
		return s.categories.Delete(ctx, categoryID)
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "category deleted", slog.Uint64("category_id", uint64(categoryID)))
	return nil
}

// AddImageToCategory links an image the caller can see into a category the
// caller owns. Adding an existing link succeeds without a second row.
func (s *CategoryService) AddImageToCategory(ctx context.Context, userID, categoryID, imageID uint) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ownedCategory(ctx, userID, categoryID); err != nil {
			return err
		}
		if _, err := visibleImage(ctx, s.images, imageID, userID); err != nil {
			return err
		}
		return s.categories.AddImage(ctx, categoryID, imageID)
	})
}

func (s *CategoryService) RemoveImageFromCategory(ctx context.Context, userID, categoryID, imageID uint) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.ownedCategory(ctx, userID, categoryID); err != nil {
			return err
		}
		if _, err := s.images.GetByID(ctx, imageID); err != nil {
			return err
		}
		linked, err := s.categories.HasImage(ctx, categoryID, imageID)
		if err != nil {
			return err
		}
		if !linked {
			return models.NewNotFoundMessage("Image not found in this category")
		}
		return s.categories.RemoveImage(ctx, categoryID, imageID)
	})
}

func (s *CategoryService) ownedCategory(ctx context.Context, userID, categoryID uint) error {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return err
	}
	return ensureOwner("Category", categoryID, category.OwnerID, userID)
}
