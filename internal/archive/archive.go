// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archive journals finished conversations as JSON Lines, one file
// per UTC day. Records are append-only and never rewritten; messages
// missing a timestamp are stamped at write time.
//
// Layout: <root>/archive/YYYY-MM-DD.jsonl
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harangju/botler/internal/model"
)

// Log appends transcript messages to day-partitioned JSONL files.
type Log struct {
	root string

	// now is replaceable for tests.
	now func() time.Time
}

// NewLog creates a log rooted at the given data directory.
func NewLog(root string) *Log {
	return &Log{root: root, now: time.Now}
}

// Path returns the journal file for the given time's UTC date.
func (l *Log) Path(t time.Time) string {
	return filepath.Join(l.root, "archive", t.UTC().Format("2006-01-02")+".jsonl")
}

// Append journals the messages, one JSON line each, to today's file.
// An empty transcript is a no-op. Messages without a timestamp are stamped
// with the write time.
func (l *Log) Append(messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	now := l.now().UTC()
	path := l.Path(now)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, msg := range messages {
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("archive: encode message: %w", err)
		}
	}
	return f.Sync()
}
