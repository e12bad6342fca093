// Command migrate applies or rolls back the Postgres schema.
//
//	migrate up
//	migrate down
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/IshaNayal/swasth-saathi/internal/config"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func main() {
	if len(os.Args) != 2 || (os.Args[1] != "up" && os.Args[1] != "down") {
		fmt.Fprintln(os.Stderr, "usage: migrate up|down")
		os.Exit(2)
	}
	direction := os.Args[1]

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading, relying on environment variables")
	}
	var db config.DBConfig
	if err := env.Parse(&db); err != nil {
		log.Fatalf("Failed to parse DB config: %v", err)
	}
	dsn, err := db.DSN()
	if err != nil {
		log.Fatalf("Failed to load DB config: %v", err)
	}

	if err := config.RunMigrations(dsn, direction); err != nil {
		log.Fatalf("Migration %s failed: %v", direction, err)
	}
	log.Printf("Migration %s complete", direction)
}
