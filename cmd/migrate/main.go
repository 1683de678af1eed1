// Command migrate creates or updates the schema. The server only migrates on
// startup outside production.
package main

import (
	"fmt"
	"log"

	"picshare/internal/config"
	"picshare/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return err
	}
	log.Println("schema is up to date")
	return nil
}
