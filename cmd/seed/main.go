// Command main fills the configured database with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"picshare/internal/config"
	"picshare/internal/database"
	"picshare/internal/seed"
	"picshare/internal/storage"
)

func main() {
	numUsers := flag.Int("users", 10, "Number of users to create")
	imagesPerUser := flag.Int("images", 3, "Images per user")
	categoriesPerUser := flag.Int("categories", 2, "Categories per user")
	shouldClean := flag.Bool("clean", false, "Delete existing rows before seeding")
	fast := flag.Bool("fast", true, "Reuse one password hash for every user")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	files, err := storage.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to open upload directory: %v", err)
	}

	s, err := seed.NewSeeder(db, files, seed.Options{
		Users:             *numUsers,
		ImagesPerUser:     *imagesPerUser,
		CategoriesPerUser: *categoriesPerUser,
		SkipBcrypt:        *fast,
	})
	if err != nil {
		log.Fatalf("Failed to create seeder: %v", err)
	}

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(context.Background())
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d users, %d images. Every account uses password %q", sum.Users, sum.Images, seed.DefaultPassword)
}
