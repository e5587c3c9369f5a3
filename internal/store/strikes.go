package store

import (
	"database/sql"
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

// UpsertStrikeEvent inserts or updates a strike event. Events are keyed by
// (location_id, started_at): the onset inserts the row, peak updates and the
// close land on the same row. Safe to call repeatedly with the detector's
// latest copy of the event.
func (s *Store) UpsertStrikeEvent(evt models.StrikeEvent, now time.Time) error {
	var endedAt sql.NullTime
	if evt.EndedAt != nil {
		endedAt = sql.NullTime{Time: evt.EndedAt.UTC(), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO strike_events (location_id, domain, started_at, ended_at, peak_score, peak_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(location_id, started_at) DO UPDATE SET
			ended_at = excluded.ended_at,
			peak_score = excluded.peak_score,
			peak_at = excluded.peak_at,
			updated_at = excluded.updated_at
	`, evt.LocationID, string(evt.Domain), evt.StartedAt.UTC(), endedAt,
		evt.PeakScore, evt.PeakAt.UTC(), now.UTC())
	return err
}

// OpenStrikeEvents returns events with no end time, for seeding the detector
// after a restart.
func (s *Store) OpenStrikeEvents() ([]models.StrikeEvent, error) {
	rows, err := s.db.Query(`
		SELECT location_id, domain, started_at, ended_at, peak_score, peak_at
		FROM strike_events
		WHERE ended_at IS NULL
		ORDER BY location_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrikeEvents(rows)
}

// RecentStrikeEvents returns events newest first, optionally filtered by
// domain. An empty domain matches everything.
func (s *Store) RecentStrikeEvents(domain models.Domain, limit int) ([]models.StrikeEvent, error) {
	query := `
		SELECT location_id, domain, started_at, ended_at, peak_score, peak_at
		FROM strike_events
	`
	args := []any{}
	if domain != "" {
		query += ` WHERE domain = ?`
		args = append(args, string(domain))
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrikeEvents(rows)
}

func scanStrikeEvents(rows *sql.Rows) ([]models.StrikeEvent, error) {
	var events []models.StrikeEvent
	for rows.Next() {
		var evt models.StrikeEvent
		var domain string
		var endedAt sql.NullTime
		if err := rows.Scan(&evt.LocationID, &domain, &evt.StartedAt, &endedAt,
			&evt.PeakScore, &evt.PeakAt); err != nil {
			return nil, err
		}
		evt.Domain = models.Domain(domain)
		if endedAt.Valid {
			t := endedAt.Time
			evt.EndedAt = &t
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}
