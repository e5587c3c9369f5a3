package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

// SaveSnapshot records one scored reading. Re-observing the same upstream
// report (same location, source, and observation time) is a no-op, so a
// buoy that updates hourly does not produce four identical rows per hour of
// refresh cycles.
func (s *Store) SaveSnapshot(sr models.ScoredReading) error {
	metricsJSON, err := json.Marshal(sr.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}

	var flagsJSON sql.NullString
	if len(sr.Flags) > 0 {
		b, err := json.Marshal(sr.Flags)
		if err != nil {
			return fmt.Errorf("marshal flags: %w", err)
		}
		flagsJSON = sql.NullString{String: string(b), Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO condition_snapshots (location_id, domain, source_id, observed_at, scored_at, score, is_strike, flags, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(location_id, source_id, observed_at) DO NOTHING
	`, sr.LocationID, string(sr.Domain), sr.SourceID, sr.ObservedAt.UTC(), sr.ScoredAt.UTC(),
		sr.Score, sr.IsStrike, flagsJSON, string(metricsJSON))
	return err
}

// SnapshotHistory returns a location's snapshots, newest first.
func (s *Store) SnapshotHistory(locationID string, since time.Time, limit int) ([]models.ScoredReading, error) {
	rows, err := s.db.Query(`
		SELECT location_id, domain, source_id, observed_at, scored_at, score, is_strike, flags, metrics
		FROM condition_snapshots
		WHERE location_id = ? AND observed_at >= ?
		ORDER BY observed_at DESC
		LIMIT ?
	`, locationID, since.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.ScoredReading
	for rows.Next() {
		sr, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, sr)
	}
	return history, rows.Err()
}

// LatestSnapshots returns the most recent snapshot per location, used to
// warm the cache after a restart so the API is not empty until the first
// cycle completes.
func (s *Store) LatestSnapshots() ([]models.ScoredReading, error) {
	rows, err := s.db.Query(`
		SELECT location_id, domain, source_id, observed_at, scored_at, score, is_strike, flags, metrics
		FROM condition_snapshots
		WHERE id IN (SELECT MAX(id) FROM condition_snapshots GROUP BY location_id)
		ORDER BY location_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var latest []models.ScoredReading
	for rows.Next() {
		sr, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		latest = append(latest, sr)
	}
	return latest, rows.Err()
}

func scanSnapshot(rows *sql.Rows) (models.ScoredReading, error) {
	var sr models.ScoredReading
	var domain, metricsJSON string
	var flagsJSON sql.NullString
	if err := rows.Scan(&sr.LocationID, &domain, &sr.SourceID, &sr.ObservedAt, &sr.ScoredAt,
		&sr.Score, &sr.IsStrike, &flagsJSON, &metricsJSON); err != nil {
		return models.ScoredReading{}, err
	}
	sr.Domain = models.Domain(domain)
	if err := json.Unmarshal([]byte(metricsJSON), &sr.Metrics); err != nil {
		return models.ScoredReading{}, fmt.Errorf("unmarshal metrics for %s: %w", sr.LocationID, err)
	}
	if flagsJSON.Valid {
		if err := json.Unmarshal([]byte(flagsJSON.String), &sr.Flags); err != nil {
			return models.ScoredReading{}, fmt.Errorf("unmarshal flags for %s: %w", sr.LocationID, err)
		}
	}
	return sr, nil
}

// PruneSnapshots deletes snapshots older than the retention window and
// returns the number of deleted rows.
func (s *Store) PruneSnapshots(retention time.Duration, now time.Time) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM condition_snapshots WHERE observed_at < ?
	`, now.Add(-retention).UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
