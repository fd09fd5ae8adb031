package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/EcoFlow-E2/ecoflow_backend/config"
)

// DB wraps the shared PostgreSQL handle used by the state and archive stores
type DB struct {
	*sql.DB
}

// Connect opens and verifies a PostgreSQL connection. Persistence is
// best-effort for this service, so callers treat an error here as
// "run without a database", not as fatal.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr != "" {
		log.Println("Using DATABASE_URL from environment")
	} else {
		connStr = BuildConnectionString(cfg)
		log.Printf("Connecting to database at %s:%s/%s", cfg.Host, cfg.Port, cfg.DBName)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Modest pool: the only writers are the autosaver and the per-tick
	// snapshot archiver.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	log.Println("Successfully connected to PostgreSQL database")

	return &DB{db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// BuildConnectionString builds a PostgreSQL connection string
func BuildConnectionString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}
