package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"picshare/internal/middleware"
	"picshare/internal/models"
	"picshare/internal/observability"
	"picshare/internal/repository"
	"picshare/internal/validation"
)

const (
	DefaultPageSize             = 10
	MaxPageSize                 = 100
	DefaultImageMaxUploadSizeMB = 10
)

// FileStore persists uploaded files and derives thumbnails from them.
// References are opaque strings stored verbatim on the image row.
type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Thumbnail(ctx context.Context, ref string) (string, error)
	Remove(refs ...string)
}

type ImageService struct {
	images         repository.ImageRepository
	categories     repository.CategoryRepository
	users          repository.UserRepository
	tx             repository.Transactor
	files          FileStore
	maxUploadBytes int
}

type ListImagesInput struct {
	ViewerID   uint
	OwnerID    uint
	CategoryID uint
	Tags       []string
	Page       int
	Limit      int
}

type UploadImageInput struct {
	UserID      uint
	Title       string
	Description string
	Tags        []string
	CategoryIDs []uint
	IsPublic    *bool
	Filename    string
	Content     []byte
}

// UpdateImageInput is a partial update: nil fields are left untouched.
// A non-nil CategoryIDs replaces the image's whole category set.
type UpdateImageInput struct {
	UserID      uint
	ImageID     uint
	Title       *string
	Description *string
	Tags        *[]string
	IsPublic    *bool
	CategoryIDs *[]uint
}

func NewImageService(
	images repository.ImageRepository,
	categories repository.CategoryRepository,
	users repository.UserRepository,
	tx repository.Transactor,
	files FileStore,
	maxUploadBytes int,
) *ImageService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultImageMaxUploadSizeMB * 1024 * 1024
	}
	return &ImageService{
		images:         images,
		categories:     categories,
		users:          users,
		tx:             tx,
		files:          files,
		maxUploadBytes: maxUploadBytes,
	}
}

// normalizePage applies the default page and limit and caps the limit.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func (s *ImageService) ListImages(ctx context.Context, in ListImagesInput) (*models.ImagePage, error) {
	page, limit := normalizePage(in.Page, in.Limit)
	images, total, err := s.images.List(ctx, models.ImageFilter{
		ViewerID:   in.ViewerID,
		OwnerID:    in.OwnerID,
		CategoryID: in.CategoryID,
		Tags:       models.NormalizeTags(in.Tags),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &models.ImagePage{
		Images:     images,
		Pagination: models.NewPagination(total, page, limit),
	}, nil
}

// ListUserImages lists ownerID's images; private ones only show up for the owner.
func (s *ImageService) ListUserImages(ctx context.Context, viewerID, ownerID uint, page, limit int) (*models.ImagePage, error) {
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.ListImages(ctx, ListImagesInput{ViewerID: viewerID, OwnerID: ownerID, Page: page, Limit: limit})
}

func (s *ImageService) GetImage(ctx context.Context, viewerID, imageID uint) (*models.Image, error) {
	img, err := s.images.GetDetailed(ctx, imageID, viewerID)
	if err != nil {
		return nil, err
	}
	if !canView(img.IsPublic, img.OwnerID, viewerID) {
		return nil, models.NewNotFoundError("Image", imageID)
	}
	return img, nil
}

// UploadImage stores the file, renders its thumbnail and only then writes
// the row, so no row ever points at a missing file. Stored files are removed
// again when any later step fails.
func (s *ImageService) UploadImage(ctx context.Context, in UploadImageInput) (*models.Image, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}
	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if len(in.Content) > s.maxUploadBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadBytes/(1024*1024)))
	}
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateTitle(title); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	originalRef, err := s.files.Save(ctx, in.Filename, in.Content)
	if err != nil {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return nil, err
	}
	thumbRef, err := s.files.Thumbnail(ctx, originalRef)
	if err != nil {
		s.files.Remove(originalRef)
		observability.ImageUploads.WithLabelValues("failed").Inc()
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewProcessingError("Failed to generate thumbnail", err)
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}
	img := &models.Image{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		OriginalURL:  originalRef,
		ThumbnailURL: thumbRef,
		OwnerID:      in.UserID,
		Tags:         models.NormalizeTags(in.Tags),
		IsPublic:     isPublic,
	}
	categoryIDs := dedupeIDs(in.CategoryIDs)

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.checkOwnedCategories(ctx, in.UserID, categoryIDs); err != nil {
			return err
		}
		if err := s.images.Create(ctx, img); err != nil {
			return err
		}
		return s.categories.AddImageToCategories(ctx, img.ID, categoryIDs)
	})
	if err != nil {
		s.files.Remove(originalRef, thumbRef)
		observability.ImageUploads.WithLabelValues("failed").Inc()
		return nil, err
	}

	observability.ImageUploads.WithLabelValues("success").Inc()
	middleware.Logger.InfoContext(ctx, "image uploaded",
		slog.Uint64("image_id", uint64(img.ID)),
		slog.Int("bytes", len(in.Content)),
	)
	return s.images.GetDetailed(ctx, img.ID, in.UserID)
}

func (s *ImageService) UpdateImage(ctx context.Context, in UpdateImageInput) (*models.Image, error) {
	if err := requireUser(in.UserID); err != nil {
		return nil, err
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		img, err := s.images.GetByID(ctx, in.ImageID)
		if err != nil {
			return err
		}
		if err := ensureOwner("Image", in.ImageID, img.OwnerID, in.UserID); err != nil {
			return err
		}

		fields := map[string]any{}
		if in.Title != nil {
			title := strings.TrimSpace(*in.Title)
			if err := validation.ValidateTitle(title); err != nil {
				return models.NewValidationError(err.Error())
			}
			fields["title"] = title
		}
		if in.Description != nil {
			fields["description"] = strings.TrimSpace(*in.Description)
		}
		if in.Tags != nil {
			fields["tags"] = models.NormalizeTags(*in.Tags)
		}
		if in.IsPublic != nil {
			fields["is_public"] = *in.IsPublic
		}
		if err := s.images.Update(ctx, in.ImageID, fields); err != nil {
			return err
		}

		if in.CategoryIDs != nil {
			ids := dedupeIDs(*in.CategoryIDs)
			if err := s.checkOwnedCategories(ctx, in.UserID, ids); err != nil {
				return err
			}
			return s.categories.SetImageCategories(ctx, in.ImageID, ids)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.images.GetDetailed(ctx, in.ImageID, in.UserID)
}

// DeleteImage removes the row with its likes, comments and category links,
// then the stored files once the transaction has committed.
func (s *ImageService) DeleteImage(ctx context.Context, userID, imageID uint) error {
	if err := requireUser(userID); err != nil {
		return err
	}

	var img *models.Image
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		img, err = s.images.GetByID(ctx, imageID)
		if err != nil {
			return err
		}
		if err := ensureOwner("Image", imageID, img.OwnerID, userID); err != nil {
			return err
		}
		return s.images.Delete(ctx, imageID)
	})
	if err != nil {
		return err
	}

	s.files.Remove(img.OriginalURL, img.ThumbnailURL)
	middleware.Logger.InfoContext(ctx, "image deleted", slog.Uint64("image_id", uint64(imageID)))
	return nil
}

// checkOwnedCategories fails with NotFound for the first id that is missing
// or belongs to someone else.
func (s *ImageService) checkOwnedCategories(ctx context.Context, userID uint, ids []uint) error {
	for _, id := range ids {
		cat, err := s.categories.GetByID(ctx, id)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.NewNotFoundError("Category", id)
			}
			return err
		}
		if err := ensureOwner("Category", id, cat.OwnerID, userID); err != nil {
			return err
		}
	}
	return nil
}
