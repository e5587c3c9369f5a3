package store

import (
	"database/sql"
	"time"
)

// PayloadFailure is a stored record of a response we could not parse. The
// excerpt is already truncated by the source layer; rows exist so someone
// can see what an upstream actually sent without re-fetching it.
type PayloadFailure struct {
	ID         int64
	LocationID string
	Source     string
	Reason     string
	Excerpt    string
	RecordedAt time.Time
}

// SavePayloadFailure records one malformed upstream response.
func (s *Store) SavePayloadFailure(locationID, source, reason, excerpt string, at time.Time) error {
	var locID sql.NullString
	if locationID != "" {
		locID = sql.NullString{String: locationID, Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO payload_failures (location_id, source, reason, excerpt, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`, locID, source, reason, excerpt, at.UTC())
	return err
}

// RecentPayloadFailures returns the newest failures first.
func (s *Store) RecentPayloadFailures(limit int) ([]PayloadFailure, error) {
	rows, err := s.db.Query(`
		SELECT id, location_id, source, reason, excerpt, recorded_at
		FROM payload_failures
		ORDER BY recorded_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failures []PayloadFailure
	for rows.Next() {
		var f PayloadFailure
		var locID sql.NullString
		if err := rows.Scan(&f.ID, &locID, &f.Source, &f.Reason, &f.Excerpt, &f.RecordedAt); err != nil {
			return nil, err
		}
		f.LocationID = locID.String
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// PrunePayloadFailures deletes failures older than the retention window and
// returns the number of deleted rows.
func (s *Store) PrunePayloadFailures(retention time.Duration, now time.Time) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM payload_failures WHERE recorded_at < ?
	`, now.Add(-retention).UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
