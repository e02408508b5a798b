// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history indexes conversation messages in SQLite for recall.
//
// The index is best-effort: the session works without it, and callers
// treat recording failures as non-fatal.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/harangju/botler/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed     = errors.New("history store closed")
	ErrEmptyQuery = errors.New("empty search query")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	role       TEXT NOT NULL,
	agent      TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
`

// DefaultSearchLimit bounds Search results when the caller passes 0.
const DefaultSearchLimit = 20

// =============================================================================
// STORE
// =============================================================================

// Entry is one recorded message.
type Entry struct {
	ID        int64
	Role      model.Role
	AgentName string
	Content   string
	CreatedAt time.Time
}

// Store records and searches past conversation messages.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record indexes one message. Messages without a timestamp are stamped
// with the current time.
func (s *Store) Record(msg model.Message) error {
	if s.db == nil {
		return ErrClosed
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (role, agent, content, created_at)
		VALUES (?, ?, ?, ?)
	`, string(msg.Role), msg.AgentName, msg.Content, ts.Unix())
	if err != nil {
		return fmt.Errorf("history: record: %w", err)
	}
	return nil
}

// RecordAll indexes a batch of messages, stopping at the first failure.
func (s *Store) RecordAll(messages []model.Message) error {
	for _, msg := range messages {
		if err := s.Record(msg); err != nil {
			return err
		}
	}
	return nil
}

// Search returns messages whose content contains the query, newest first.
// Matching is case-insensitive substring matching.
func (s *Store) Search(query string, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.Query(`
		SELECT id, role, agent, content, created_at
		FROM messages
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns the most recently recorded messages, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	rows, err := s.db.Query(`
		SELECT id, role, agent, content, created_at
		FROM messages
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Count returns the number of indexed messages.
func (s *Store) Count() (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			role string
			unix int64
		)
		if err := rows.Scan(&e.ID, &role, &e.AgentName, &e.Content, &unix); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Role = model.Role(role)
		e.CreatedAt = time.Unix(unix, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return out, nil
}

// escapeLike escapes LIKE metacharacters in user queries.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
