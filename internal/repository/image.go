package repository

import (
	"context"
	"encoding/json"
	"strings"

	"picshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxListLimit = 100

// ImageRepository defines the interface for image data operations
type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByID(ctx context.Context, id uint) (*models.Image, error)
	GetDetailed(ctx context.Context, id uint, viewerID uint) (*models.Image, error)
	List(ctx context.Context, filter models.ImageFilter) ([]*models.Image, int64, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image repository
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

// Create inserts the row. is_public defaults to true in the schema, so a
// false value is written with a follow-up update in the same connection.
func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	if image.Tags == nil {
		image.Tags = models.Tags{}
	}
	public := image.IsPublic
	db := conn(ctx, r.db)
	if err := db.Omit(clause.Associations).Create(image).Error; err != nil {
		return models.NewInternalError(err)
	}
	if !public {
		if err := db.Model(&models.Image{}).Where("id = ?", image.ID).Update("is_public", false).Error; err != nil {
			return models.NewInternalError(err)
		}
		image.IsPublic = false
	}
	return nil
}

// GetByID loads the bare row without counts or relations.
func (r *imageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	if err := conn(ctx, r.db).First(&image, id).Error; err != nil {
		return nil, notFoundOr(err, "Image", id)
	}
	return &image, nil
}

// GetDetailed loads the image with owner, the categories viewerID may see,
// like and comment counts and whether viewerID likes it. Visibility of the
// image itself is decided by the caller.
func (r *imageRepository) GetDetailed(ctx context.Context, id uint, viewerID uint) (*models.Image, error) {
	var image models.Image
	err := r.applyImageDetails(conn(ctx, r.db), viewerID).
		Preload("Owner").
		Preload("Categories", visibleCategories(viewerID)).
		Where("images.id = ?", id).
		First(&image).Error
	if err != nil {
		return nil, notFoundOr(err, "Image", id)
	}
	return &image, nil
}

// List returns one page of images visible to filter.ViewerID plus the total
// number of matches, newest first.
func (r *imageRepository) List(ctx context.Context, filter models.ImageFilter) ([]*models.Image, int64, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	scope := imageFilterScope(filter)

	var total int64
	if err := conn(ctx, r.db).Model(&models.Image{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	images := []*models.Image{}
	if total == 0 {
		return images, 0, nil
	}

	err := r.applyImageDetails(conn(ctx, r.db), filter.ViewerID).
		Scopes(scope).
		Preload("Owner").
		Preload("Categories", visibleCategories(filter.ViewerID)).
		Order("images.created_at DESC").
		Order("images.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&images).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return images, total, nil
}

func imageFilterScope(filter models.ImageFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("(images.is_public = ? OR images.owner_id = ?)", true, filter.ViewerID)
		if filter.OwnerID != 0 {
			db = db.Where("images.owner_id = ?", filter.OwnerID)
		}
		if filter.CategoryID != 0 {
			db = db.Where("images.id IN (SELECT image_id FROM image_categories WHERE category_id = ?)", filter.CategoryID)
		}
		for _, tag := range filter.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			query, arg := tagContains(db.Dialector.Name(), tag)
			db = db.Where(query, arg)
		}
		return db
	}
}

// tagContains returns a condition matching images whose JSON tags array has
// an element equal to tag. Elements are compared as JSON values, so wildcard
// characters and JSON escapes in tag are matched literally.
func tagContains(dialect, tag string) (string, any) {
	switch dialect {
	case "postgres":
		return "images.tags::jsonb @> ?::jsonb", jsonArray(tag)
	case "mysql":
		return "JSON_CONTAINS(images.tags, ?)", jsonArray(tag)
	default:
		return "EXISTS (SELECT 1 FROM json_each(images.tags) WHERE json_each.value = ?)", tag
	}
}

func jsonArray(tag string) string {
	b, _ := json.Marshal([]string{tag})
	return string(b)
}

func visibleCategories(viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("categories.is_public = ? OR categories.owner_id = ?", true, viewerID).
			Order("categories.name ASC")
	}
}

// applyImageDetails adds subqueries to fetch counts and liked status in a single query.
func (r *imageRepository) applyImageDetails(db *gorm.DB, viewerID uint) *gorm.DB {
	selectQuery := "images.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.image_id = images.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.image_id = images.id) AS likes_count"

	if viewerID != 0 {
		return db.Model(&models.Image{}).
			Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.image_id = images.id AND likes.user_id = ?) AS liked", viewerID)
	}
	return db.Model(&models.Image{}).Select(selectQuery + ", false AS liked")
}

func (r *imageRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := conn(ctx, r.db).Model(&models.Image{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Delete removes the image together with its category links, likes and
// comments. It runs in the caller's transaction when there is one.
func (r *imageRepository) Delete(ctx context.Context, id uint) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", id).Delete(&models.ImageCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("image_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("image_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Image{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Image", id)
		}
		return nil
	})
	return internal(err)
}
