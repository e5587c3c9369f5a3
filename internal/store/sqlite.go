// Package store persists condition snapshots, strike events, and refresh
// audit rows in SQLite. The serving path never reads from here; the store
// exists for history endpoints, restart recovery, and debugging.
package store

import (
	"database/sql"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}
