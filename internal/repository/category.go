package repository

import (
	"context"

	"picshare/internal/cache"
	"picshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CategoryRepository defines persistence operations for categories and their image links.
type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	ListVisible(ctx context.Context, viewerID uint) ([]*models.Category, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
	HasImage(ctx context.Context, categoryID, imageID uint) (bool, error)
	AddImage(ctx context.Context, categoryID, imageID uint) error
	RemoveImage(ctx context.Context, categoryID, imageID uint) error
	AddImageToCategories(ctx context.Context, imageID uint, categoryIDs []uint) error
	SetImageCategories(ctx context.Context, imageID uint, categoryIDs []uint) error
}

type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	public := category.IsPublic
	db := conn(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(category).Error; err != nil {
		return models.NewInternalError(err)
	}
	if !public {
		if err := db.Model(&models.Category{}).Where("id = ?", category.ID).Update("is_public", false).Error; err != nil {
			return models.NewInternalError(err)
		}
		category.IsPublic = false
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	err := cachedRead(ctx, cache.CategoryKey(id), &category, cache.CategoryTTL, func() error {
		if err := conn(ctx, r.db).Preload("Owner").First(&category, id).Error; err != nil {
			return notFoundOr(err, "Category", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// ListVisible returns public categories plus the ones viewerID owns, newest first.
func (r *categoryRepository) ListVisible(ctx context.Context, viewerID uint) ([]*models.Category, error) {
	categories := []*models.Category{}
	err := conn(ctx, r.db).
		Preload("Owner").
		Where("is_public = ? OR owner_id = ?", true, viewerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&categories).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := conn(ctx, r.db).Model(&models.Category{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return models.NewInternalError(err)
	}
	invalidate(ctx, cache.CategoryKey(id))
	return nil
}

// Delete removes the category and its image links. Images are kept.
func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&models.ImageCategory{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Category", id)
		}
		return nil
	})
	if err != nil {
		return internal(err)
	}
	invalidate(ctx, cache.CategoryKey(id))
	return nil
}

func (r *categoryRepository) HasImage(ctx context.Context, categoryID, imageID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&models.ImageCategory{}).
		Where("category_id = ? AND image_id = ?", categoryID, imageID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// AddImage links the pair; linking twice leaves one row.
func (r *categoryRepository) AddImage(ctx context.Context, categoryID, imageID uint) error {
	return r.AddImageToCategories(ctx, imageID, []uint{categoryID})
}

func (r *categoryRepository) RemoveImage(ctx context.Context, categoryID, imageID uint) error {
	err := conn(ctx, r.db).
		Where("category_id = ? AND image_id = ?", categoryID, imageID).
		Delete(&models.ImageCategory{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *categoryRepository) AddImageToCategories(ctx context.Context, imageID uint, categoryIDs []uint) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	links := make([]models.ImageCategory, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		links = append(links, models.ImageCategory{ImageID: imageID, CategoryID: id})
	}
	err := conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&links).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// SetImageCategories makes categoryIDs the exact set of categories linked to imageID.
func (r *categoryRepository) SetImageCategories(ctx context.Context, imageID uint, categoryIDs []uint) error {
	q := conn(ctx, r.db).Where("image_id = ?", imageID)
	if len(categoryIDs) > 0 {
		q = q.Where("category_id NOT IN ?", categoryIDs)
	}
	if err := q.Delete(&models.ImageCategory{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return r.AddImageToCategories(ctx, imageID, categoryIDs)
}
