package store

import (
	"time"

	"github.com/clb9/swellstrike/internal/models"
)

// CycleRecord is one refresh cycle's audit row.
type CycleRecord struct {
	ID         int64
	State      string
	StartedAt  time.Time
	FinishedAt time.Time
	Succeeded  int
	Failed     int
}

// RecordCycle appends a refresh cycle's outcome to the audit log.
func (s *Store) RecordCycle(res models.CycleResult) error {
	_, err := s.db.Exec(`
		INSERT INTO refresh_cycles (started_at, finished_at, state, succeeded, failed)
		VALUES (?, ?, ?, ?, ?)
	`, res.StartedAt.UTC(), res.FinishedAt.UTC(), res.State.String(), res.Succeeded, res.Failed)
	return err
}

// RecentCycles returns the newest cycle rows, most recent first.
func (s *Store) RecentCycles(limit int) ([]CycleRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, state, succeeded, failed
		FROM refresh_cycles
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var r CycleRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.State, &r.Succeeded, &r.Failed); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
