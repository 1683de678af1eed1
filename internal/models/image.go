package models

import (
	"time"

	"gorm.io/gorm"
)

// Image is an uploaded picture with its metadata. OwnerID is set from the
// authenticated uploader and never changes.
type Image struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Title        string     `gorm:"size:255;not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	OriginalURL  string     `gorm:"size:512;not null" json:"original_url"`
	ThumbnailURL string     `gorm:"size:512;not null" json:"thumbnail_url"`
	OwnerID      uint       `gorm:"not null;index" json:"owner_id"`
	Owner        *User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Tags         Tags       `json:"tags"`
	IsPublic     bool       `gorm:"not null;default:true;index" json:"is_public"`
	Categories   []Category `gorm:"many2many:image_categories;constraint:OnDelete:CASCADE" json:"categories"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// Liked reports whether the requesting user likes this image (computed)
	Liked         bool      `gorm:"->;-:migration" json:"liked"`
	OwnerUsername string    `gorm:"-" json:"owner_username,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AfterFind fills the derived owner name and guarantees non-nil collections.
func (i *Image) AfterFind(_ *gorm.DB) error {
	if i.Owner != nil {
		i.OwnerUsername = i.Owner.Username
	}
	if i.Tags == nil {
		i.Tags = Tags{}
	}
	if i.Categories == nil {
		i.Categories = []Category{}
	}
	return nil
}

// ImageCategory links an image to a category. The pair is the primary key so
// a link exists at most once.
type ImageCategory struct {
	ImageID    uint      `gorm:"primaryKey;autoIncrement:false" json:"image_id"`
	CategoryID uint      `gorm:"primaryKey;autoIncrement:false;index" json:"category_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ImageCategory) TableName() string {
	return "image_categories"
}

// ImageFilter narrows image listings.
type ImageFilter struct {
	ViewerID   uint
	OwnerID    uint
	CategoryID uint
	Tags       []string
	Limit      int
	Offset     int
}

// Pagination describes a page of a listing.
type Pagination struct {
	TotalItems   int64 `json:"total_items"`
	TotalPages   int   `json:"total_pages"`
	CurrentPage  int   `json:"current_page"`
	ItemsPerPage int   `json:"items_per_page"`
}

// NewPagination computes page counts for a listing.
func NewPagination(total int64, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		TotalItems:   total,
		TotalPages:   pages,
		CurrentPage:  page,
		ItemsPerPage: limit,
	}
}

// ImagePage is a page of images.
type ImagePage struct {
	Images     []*Image   `json:"images"`
	Pagination Pagination `json:"pagination"`
}
