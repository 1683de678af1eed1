// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// RoleUser is the default role assigned at registration.
const RoleUser = "user"

// User represents an account in the picshare application. Users are never deleted.
type User struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Username          string     `gorm:"size:64;not null" json:"username"`
	Email             string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password          string     `gorm:"not null" json:"-"`
	Bio               string     `gorm:"type:text" json:"bio"`
	Role              string     `gorm:"size:20;default:'user';not null" json:"role"`
	ResetToken        *string    `gorm:"size:128;index" json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// UserSummary is the compact user shape embedded in other resources.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// Profile is the private view returned to the account owner.
type Profile struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
}

// PublicProfile is what other users see.
type PublicProfile struct {
	ID             uint   `json:"id"`
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}

// Summary returns the compact shape of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username}
}

// Profile returns the private view of u.
func (u *User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, Email: u.Email, Bio: u.Bio}
}
