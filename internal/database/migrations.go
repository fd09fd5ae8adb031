package database

import (
	"database/sql"
	"fmt"
	"log"
)

// CreateTables creates all necessary tables for the EcoFlow system
func CreateTables(db *sql.DB) error {
	log.Println("Creating database tables...")

	// Create app_state table - holds the latest versioned simulation state blob
	appStateTable := `
	CREATE TABLE IF NOT EXISTS app_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL,
		state JSONB NOT NULL,
		saved_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);`

	if _, err := db.Exec(appStateTable); err != nil {
		return fmt.Errorf("failed to create app_state table: %w", err)
	}

	// Create snapshot_archive table - append-only record of completed ticks
	snapshotArchiveTable := `
	CREATE TABLE IF NOT EXISTS snapshot_archive (
		id SERIAL PRIMARY KEY,
		tick INTEGER NOT NULL,
		scenario VARCHAR(50) NOT NULL,
		seed BIGINT NOT NULL,
		network_load DECIMAL(6,2) NOT NULL,
		snapshot JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	if _, err := db.Exec(snapshotArchiveTable); err != nil {
		return fmt.Errorf("failed to create snapshot_archive table: %w", err)
	}

	// Create indexes for better performance
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_snapshot_archive_tick ON snapshot_archive(tick);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_archive_scenario ON snapshot_archive(scenario);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_archive_created_at ON snapshot_archive(created_at DESC);`,
	}

	for _, index := range indexes {
		if _, err := db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("✅ Database tables created successfully")
	return nil
}

// DropTables drops all tables (useful for testing/reset)
func DropTables(db *sql.DB) error {
	log.Println("⚠️  Dropping all database tables...")

	tables := []string{"snapshot_archive", "app_state"}

	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	log.Println("All tables dropped")
	return nil
}
