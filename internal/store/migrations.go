package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS condition_snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id TEXT NOT NULL,
    domain TEXT NOT NULL,
    source_id TEXT NOT NULL,
    observed_at DATETIME NOT NULL,
    scored_at DATETIME NOT NULL,
    score INTEGER NOT NULL,
    is_strike BOOLEAN NOT NULL,
    flags TEXT,
    metrics TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(location_id, source_id, observed_at)
);

CREATE TABLE IF NOT EXISTS strike_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id TEXT NOT NULL,
    domain TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    ended_at DATETIME,
    peak_score INTEGER NOT NULL,
    peak_at DATETIME NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME,
    UNIQUE(location_id, started_at)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_location_time ON condition_snapshots(location_id, observed_at);
CREATE INDEX IF NOT EXISTS idx_snapshots_scored ON condition_snapshots(scored_at);
CREATE INDEX IF NOT EXISTS idx_strikes_location ON strike_events(location_id, started_at);
CREATE INDEX IF NOT EXISTS idx_strikes_open ON strike_events(ended_at);
`,
	},
	{
		Version:     2,
		Description: "Add refresh_cycles audit table",
		SQL: `
CREATE TABLE IF NOT EXISTS refresh_cycles (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at DATETIME NOT NULL,
    finished_at DATETIME NOT NULL,
    state TEXT NOT NULL,
    succeeded INTEGER NOT NULL,
    failed INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_started ON refresh_cycles(started_at);
`,
	},
	{
		Version:     3,
		Description: "Add payload_failures table for malformed upstream responses",
		SQL: `
CREATE TABLE IF NOT EXISTS payload_failures (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    location_id TEXT,
    source TEXT NOT NULL,
    reason TEXT,
    excerpt TEXT,
    recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payload_failures_time ON payload_failures(recorded_at);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
