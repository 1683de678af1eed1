package database

import (
	"fmt"

	"picshare/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed GORM models,
// ordered so referenced tables are created first.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Image{},
		&models.ImageCategory{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
	}
}

// SetupJoinTables registers the custom image_categories join model on db.
func SetupJoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Image{}, "Categories", &models.ImageCategory{}); err != nil {
		return fmt.Errorf("setup image categories join table: %w", err)
	}
	if err := db.SetupJoinTable(&models.Category{}, "Images", &models.ImageCategory{}); err != nil {
		return fmt.Errorf("setup category images join table: %w", err)
	}
	return nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := SetupJoinTables(db); err != nil {
		return err
	}
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
