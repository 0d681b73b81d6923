package main

import (
	"log"
	"os"

	"rentalcore/pkg/config"
	"rentalcore/pkg/db"
)

func main() {
	cfg := config.Load()

	path := cfg.MigrationsPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		path = "file://migrations"
	}

	if err := db.Migrate(path, cfg); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("migrations applied from %s", path)
}
