package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/EcoFlow-E2/ecoflow_backend/internal/models"
	"github.com/EcoFlow-E2/ecoflow_backend/internal/store"
)

// DatabaseStore implements persistent storage using PostgreSQL
type DatabaseStore struct {
	db *sql.DB
}

// NewDatabaseStore creates a new database store
func NewDatabaseStore(db *sql.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// SaveState persists the full application state as a versioned JSON blob.
// There is a single row; each save replaces the previous one.
func (s *DatabaseStore) SaveState(state store.AppState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal app state: %w", err)
	}

	query := `
		INSERT INTO app_state (id, version, state, saved_at)
		VALUES (1, $1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			saved_at = NOW()`

	if _, err := s.db.Exec(query, state.Version, payload); err != nil {
		return fmt.Errorf("failed to save app state: %w", err)
	}

	return nil
}

// LoadState restores the persisted application state. A saved blob whose
// version does not match the current schema is discarded so the server
// starts from a fresh default state instead of a half-compatible one.
func (s *DatabaseStore) LoadState() (store.AppState, bool, error) {
	var version int
	var payload []byte

	query := `SELECT version, state FROM app_state WHERE id = 1`
	err := s.db.QueryRow(query).Scan(&version, &payload)
	if err == sql.ErrNoRows {
		return store.AppState{}, false, nil
	}
	if err != nil {
		return store.AppState{}, false, fmt.Errorf("failed to load app state: %w", err)
	}

	if version != store.StateVersion {
		log.Printf("⚠️  Discarding persisted state: version %d does not match current version %d", version, store.StateVersion)
		return store.AppState{}, false, nil
	}

	var state store.AppState
	if err := json.Unmarshal(payload, &state); err != nil {
		log.Printf("⚠️  Discarding persisted state: %v", err)
		return store.AppState{}, false, nil
	}

	return state, true, nil
}

// ArchiveSnapshot appends a completed tick snapshot to the archive
func (s *DatabaseStore) ArchiveSnapshot(scenario string, seed int64, snapshot models.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshot_archive (tick, scenario, seed, network_load, snapshot)
		VALUES ($1, $2, $3, $4, $5)`

	if _, err := s.db.Exec(query, snapshot.Tick, scenario, seed, snapshot.NetworkLoad, payload); err != nil {
		return fmt.Errorf("failed to archive snapshot: %w", err)
	}

	return nil
}

// GetArchivedSnapshots retrieves the most recent archived snapshots
func (s *DatabaseStore) GetArchivedSnapshots(limit int) ([]models.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT snapshot FROM snapshot_archive
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot archive: %w", err)
	}
	defer rows.Close()

	var snapshots []models.Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan archived snapshot: %w", err)
		}
		var snapshot models.Snapshot
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			log.Printf("⚠️  Skipping corrupt archived snapshot: %v", err)
			continue
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}
