package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups images chosen by its owner.
type Category struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Description   string    `gorm:"type:text" json:"description"`
	IsPublic      bool      `gorm:"not null;default:true;index" json:"is_public"`
	OwnerID       uint      `gorm:"not null;index" json:"owner_id"`
	Owner         *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Images        []Image   `gorm:"many2many:image_categories;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	OwnerUsername string    `gorm:"-" json:"owner_username,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AfterFind fills the derived owner name.
func (c *Category) AfterFind(_ *gorm.DB) error {
	if c.Owner != nil {
		c.OwnerUsername = c.Owner.Username
	}
	return nil
}
