// Package store provides SQLite persistence for the corroboration engine.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aldergrove/dealsense/internal/logging"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by read paths when the requested row does not
// exist. Callers treat it as an empty result, not a failure.
var ErrNotFound = errors.New("not found")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Individual methods are safe for concurrent use; multi-step write flows go
// through WithTx so they commit or roll back as a unit.
type Store struct {
	db *sql.DB
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	// Build connection string based on database type
	connStr := dbPath
	if dbPath == ":memory:" {
		// For in-memory databases, use shared cache mode so all connections
		// in the pool see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// For in-memory databases, limit to 1 connection to avoid issues
	// with multiple connections getting different databases
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Enable WAL mode for file-based databases (not :memory:)
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logging.Debug("Database initialized", "path", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		source_type TEXT NOT NULL,
		category TEXT NOT NULL,
		event_type TEXT NOT NULL DEFAULT '',
		extracted TEXT NOT NULL DEFAULT '{}',
		geo_lat REAL,
		geo_lng REAL,
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		source_name TEXT NOT NULL DEFAULT '',
		published_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL,
		corroborated INTEGER NOT NULL DEFAULT 0,
		corroboration_count INTEGER NOT NULL DEFAULT 0,
		source_credibility_score REAL NOT NULL DEFAULT 0,
		early_signal_days INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_events_published ON events(source_type, published_at DESC);
	CREATE INDEX IF NOT EXISTS idx_events_pending ON events(source_type, corroborated, failed);
	CREATE INDEX IF NOT EXISTS idx_events_user ON events(user_id);

	CREATE TABLE IF NOT EXISTS contact_credibility (
		user_id TEXT NOT NULL,
		contact_key TEXT NOT NULL,
		total_signals INTEGER NOT NULL DEFAULT 0,
		corroborated_signals INTEGER NOT NULL DEFAULT 0,
		failed_signals INTEGER NOT NULL DEFAULT 0,
		pending_signals INTEGER NOT NULL DEFAULT 0,
		credibility_score REAL NOT NULL DEFAULT 0.5,
		avg_lead_time_days REAL NOT NULL DEFAULT 0,
		avg_corroboration_time_days REAL NOT NULL DEFAULT 0,
		intelligence_value_score REAL NOT NULL DEFAULT 0,
		consistency_score REAL NOT NULL DEFAULT 0,
		avg_impact_magnitude REAL NOT NULL DEFAULT 0,
		last_signal_at DATETIME,
		last_corroboration_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (user_id, contact_key)
	);

	CREATE TABLE IF NOT EXISTS specialty_scores (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		contact_key TEXT NOT NULL,
		category TEXT NOT NULL,
		event_type TEXT NOT NULL DEFAULT '',
		total_signals INTEGER NOT NULL DEFAULT 0,
		corroborated_signals INTEGER NOT NULL DEFAULT 0,
		failed_signals INTEGER NOT NULL DEFAULT 0,
		base_accuracy REAL NOT NULL DEFAULT 0,
		specialty_bonus REAL NOT NULL DEFAULT 0,
		specialty_score REAL NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL,
		UNIQUE (user_id, contact_key, category, event_type)
	);

	CREATE TABLE IF NOT EXISTS corroboration_matches (
		id TEXT PRIMARY KEY,
		private_event_id TEXT NOT NULL,
		public_event_id TEXT NOT NULL,
		location_score REAL NOT NULL,
		entity_score REAL NOT NULL,
		magnitude_score REAL NOT NULL,
		temporal_score REAL NOT NULL,
		type_score REAL NOT NULL,
		match_score REAL NOT NULL,
		lead_time_days INTEGER NOT NULL,
		confidence TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (private_event_id, public_event_id)
	);

	CREATE INDEX IF NOT EXISTS idx_matches_private ON corroboration_matches(private_event_id);

	CREATE TABLE IF NOT EXISTS credibility_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		contact_key TEXT NOT NULL,
		change_type TEXT NOT NULL,
		change_reason TEXT NOT NULL,
		total_signals INTEGER NOT NULL,
		corroborated_signals INTEGER NOT NULL,
		failed_signals INTEGER NOT NULL,
		pending_signals INTEGER NOT NULL,
		credibility_score REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_contact ON credibility_history(user_id, contact_key, created_at DESC);

	CREATE TABLE IF NOT EXISTS intelligence_values (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		contact_key TEXT NOT NULL,
		private_event_id TEXT NOT NULL,
		lead_time_days INTEGER NOT NULL,
		corroboration_days REAL NOT NULL,
		impact_magnitude REAL NOT NULL,
		match_score REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_intel_contact ON intelligence_values(user_id, contact_key);

	CREATE TABLE IF NOT EXISTS predictive_credibility (
		event_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		contact_key TEXT NOT NULL,
		predicted_accuracy REAL NOT NULL,
		predicted_corroboration_days REAL NOT NULL,
		confidence TEXT NOT NULL,
		applied_weight REAL NOT NULL,
		basis TEXT NOT NULL,
		sample_size INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tx wraps a database transaction with the typed operations the recorder
// composes. All methods must be called before the enclosing WithTx returns.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a transaction: all effects commit together or not
// at all. Any error from fn rolls back.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	raw, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Tx{tx: raw}); err != nil {
		if rbErr := raw.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Error("Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := raw.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
