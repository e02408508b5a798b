// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/harangju/botler/internal/model"
)

func readLines(t *testing.T, path string) []model.Message {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	var out []model.Message
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var msg model.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			t.Fatalf("bad JSON line %q: %v", scanner.Text(), err)
		}
		out = append(out, msg)
	}
	return out
}

func TestAppendThreeMessages(t *testing.T) {
	l := NewLog(t.TempDir())

	msgs := []model.Message{
		model.NewUserMessage("question"),
		model.NewAssistantMessage("bot", "answer"),
		model.NewUserMessage("followup"),
	}
	if err := l.Append(msgs); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	lines := readLines(t, l.Path(time.Now()))
	if len(lines) != 3 {
		t.Fatalf("archive has %d lines, want 3", len(lines))
	}
	for i, msg := range lines {
		if msg.Timestamp.IsZero() {
			t.Errorf("line %d has empty timestamp", i)
		}
	}
	if lines[1].AgentName != "bot" {
		t.Errorf("assistant line agent = %q, want bot", lines[1].AgentName)
	}
}

func TestAppendStampsMissingTimestamps(t *testing.T) {
	l := NewLog(t.TempDir())

	if err := l.Append([]model.Message{{Role: model.RoleUser, Content: "no stamp"}}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	lines := readLines(t, l.Path(time.Now()))
	if len(lines) != 1 || lines[0].Timestamp.IsZero() {
		t.Errorf("timestamp not stamped at write time: %+v", lines)
	}
}

func TestAppendEmptyIsNoOp(t *testing.T) {
	dir := t.TempDir()
	l := NewLog(dir)

	if err := l.Append(nil); err != nil {
		t.Fatalf("Append(nil) failed: %v", err)
	}
	if _, err := os.Stat(l.Path(time.Now())); !os.IsNotExist(err) {
		t.Error("empty transcript should not create a file")
	}
}

func TestAppendAccumulatesWithinDay(t *testing.T) {
	l := NewLog(t.TempDir())

	if err := l.Append([]model.Message{model.NewUserMessage("one")}); err != nil {
		t.Fatal(err)
	}
	if err := l.Append([]model.Message{model.NewUserMessage("two")}); err != nil {
		t.Fatal(err)
	}
	lines := readLines(t, l.Path(time.Now()))
	if len(lines) != 2 {
		t.Errorf("archive has %d lines, want 2", len(lines))
	}
}

func TestDayPartitioning(t *testing.T) {
	l := NewLog(t.TempDir())

	day1 := time.Date(2025, 3, 1, 23, 50, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 2, 0, 10, 0, 0, time.UTC)

	l.now = func() time.Time { return day1 }
	if err := l.Append([]model.Message{{Role: model.RoleUser, Content: "late"}}); err != nil {
		t.Fatal(err)
	}
	l.now = func() time.Time { return day2 }
	if err := l.Append([]model.Message{{Role: model.RoleUser, Content: "early"}}); err != nil {
		t.Fatal(err)
	}

	if got := len(readLines(t, l.Path(day1))); got != 1 {
		t.Errorf("day1 file has %d lines, want 1", got)
	}
	if got := len(readLines(t, l.Path(day2))); got != 1 {
		t.Errorf("day2 file has %d lines, want 1", got)
	}
}
