package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/EcoFlow-E2/ecoflow_backend/config"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/database"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: .env file not found")
	}

	cfg := config.Load()

	log.Println("🔄 Connecting to database...")
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect: %v", err)
	}
	defer db.Close()

	log.Println("🗑️  Dropping all tables...")
	if err := database.DropTables(db.DB); err != nil {
		log.Fatalf("❌ Failed to drop tables: %v", err)
	}

	log.Println("")
	log.Println("✅ Database reset complete!")
	log.Println("🚀 Now run: go build -o server ./cmd/server && ./server")
	log.Println("   Tables will be recreated automatically on startup")
}
