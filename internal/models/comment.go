package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment left by a user on an image.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ImageID   uint      `gorm:"not null;index" json:"image_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User     *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Image    *Image `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
	Username string `gorm:"-" json:"username,omitempty"`
}

// AfterFind fills the author's username.
func (c *Comment) AfterFind(_ *gorm.DB) error {
	if c.User != nil {
		c.Username = c.User.Username
	}
	return nil
}
