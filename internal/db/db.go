// Package db keeps a local journal of the events the agent posted.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cleverdata/docsbuild/internal/events"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one journaled event.
type Entry struct {
	ID         string
	Kind       string
	Value      string
	RecordedAt time.Time
}

// Journal is an append-mostly sqlite log of posted events.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

func Open(dbPath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}
	// One writer; the journal is written from the event stream goroutine
	// and read by the CLI.
	conn.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS event_log (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		value TEXT,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS event_log_recorded_at ON event_log (recorded_at);
	`
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Journal{db: conn, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e and returns the stored entry.
func (j *Journal) Record(e events.Event) (Entry, error) {
	entry := Entry{
		ID:         uuid.NewString(),
		Kind:       e.Kind(),
		Value:      e.Value(),
		RecordedAt: j.now().UTC(),
	}
	_, err := j.db.Exec(
		"INSERT INTO event_log (id, kind, value, recorded_at) VALUES (?, ?, ?, ?)",
		entry.ID, entry.Kind, entry.Value, entry.RecordedAt.UnixNano(),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to record %s: %w", entry.Kind, err)
	}
	return entry, nil
}

// List returns the newest entries first. kind filters when non-empty; limit
// <= 0 means no limit.
func (j *Journal) List(kind string, limit int) ([]Entry, error) {
	query := "SELECT id, kind, value, recorded_at FROM event_log"
	var args []interface{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY recorded_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var recordedAt int64
		if err := rows.Scan(&e.ID, &e.Kind, &e.Value, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to read journal: %w", err)
		}
		e.RecordedAt = time.Unix(0, recordedAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Reset deletes the entries of kind, or everything when kind is empty.
func (j *Journal) Reset(kind string) (int64, error) {
	var res sql.Result
	var err error
	if kind != "" {
		res, err = j.db.Exec("DELETE FROM event_log WHERE kind = ?", kind)
	} else {
		res, err = j.db.Exec("DELETE FROM event_log")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reset history: %w", err)
	}
	return res.RowsAffected()
}

// Attach records every event posted on stream. Write failures are passed to
// logger.
func (j *Journal) Attach(stream *events.Stream, logger func(string, ...interface{})) (unsubscribe func()) {
	return stream.Subscribe(func(e events.Event) {
		if _, err := j.Record(e); err != nil && logger != nil {
			logger("DB Write Error: %v", err)
		}
	})
}
