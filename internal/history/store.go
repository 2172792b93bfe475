// Package history keeps a local SQLite log of the list fetches the server ran.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Entry is one executed list fetch
type Entry struct {
	ID           string        `json:"id"`
	Model        string        `json:"model"`
	Query        string        `json:"query"`
	SQL          string        `json:"sql"`
	ExecutedAt   time.Time     `json:"executedAt"`
	Duration     time.Duration `json:"durationNs"`
	RowCount     int64         `json:"rowCount"`
	Success      bool          `json:"success"`
	ErrorMessage string        `json:"error,omitempty"`
}

// Store manages fetch history persistence
type Store struct {
	db         *sql.DB
	maxEntries int
}

// NewStore opens (and creates if needed) the history database at path
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// SetMaxEntries caps the history. Once set, every Add drops the oldest entries
// beyond the cap. Zero or less keeps everything. Call it before the store is
// shared.
func (s *Store) SetMaxEntries(n int) {
	s.maxEntries = n
}

// Add records a fetch. Missing ids and timestamps are filled in and the
// stored entry is returned.
func (s *Store) Add(entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ExecutedAt.IsZero() {
		entry.ExecutedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO fetch_history
		(id, model, query, sql_text, executed_at, duration_ms, row_count, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Model,
		entry.Query,
		entry.SQL,
		entry.ExecutedAt.UnixNano(),
		entry.Duration.Milliseconds(),
		entry.RowCount,
		entry.Success,
		entry.ErrorMessage,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to add history entry: %w", err)
	}
	if s.maxEntries > 0 {
		if _, err := s.Prune(s.maxEntries); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// GetRecent retrieves the most recent entries, newest first
func (s *Store) GetRecent(limit int) ([]Entry, error) {
	return s.query(`
		SELECT id, model, query, sql_text, executed_at,
		       duration_ms, row_count, success, error_message
		FROM fetch_history
		ORDER BY seq DESC
		LIMIT ?`, limit)
}

// Search retrieves the most recent entries of one model, newest first
func (s *Store) Search(model string, limit int) ([]Entry, error) {
	return s.query(`
		SELECT id, model, query, sql_text, executed_at,
		       duration_ms, row_count, success, error_message
		FROM fetch_history
		WHERE model = ?
		ORDER BY seq DESC
		LIMIT ?`, model, limit)
}

// Prune keeps the newest maxEntries entries and deletes the rest. It returns
// the number of deleted entries.
func (s *Store) Prune(maxEntries int) (int64, error) {
	if maxEntries < 0 {
		maxEntries = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM fetch_history
		WHERE seq NOT IN (SELECT seq FROM fetch_history ORDER BY seq DESC LIMIT ?)`, maxEntries)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(q string, args ...interface{}) ([]Entry, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var durationMs, executedAt int64

		err := rows.Scan(
			&e.ID,
			&e.Model,
			&e.Query,
			&e.SQL,
			&executedAt,
			&durationMs,
			&e.RowCount,
			&e.Success,
			&e.ErrorMessage,
		)
		if err != nil {
			return nil, err
		}

		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.ExecutedAt = time.Unix(0, executedAt)

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
