// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harangju/botler/internal/model"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := []model.Message{
		{Role: model.RoleUser, Content: "first", Timestamp: base},
		{Role: model.RoleAssistant, AgentName: "bot", Content: "second", Timestamp: base.Add(time.Minute)},
		{Role: model.RoleUser, Content: "third", Timestamp: base.Add(2 * time.Minute)},
	}
	if err := s.RecordAll(msgs); err != nil {
		t.Fatalf("RecordAll failed: %v", err)
	}

	got, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d entries, want 2", len(got))
	}
	if got[0].Content != "third" || got[1].Content != "second" {
		t.Errorf("order = [%q, %q], want newest first", got[0].Content, got[1].Content)
	}
	if got[1].AgentName != "bot" {
		t.Errorf("agent = %q, want bot", got[1].AgentName)
	}
}

func TestRecordStampsMissingTimestamp(t *testing.T) {
	s := openStore(t)

	if err := s.Record(model.Message{Role: model.RoleUser, Content: "no stamp"}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	got, err := s.Recent(1)
	if err != nil || len(got) != 1 {
		t.Fatalf("Recent = %v, %v", got, err)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("timestamp not stamped at record time")
	}
}

func TestSearch(t *testing.T) {
	s := openStore(t)

	msgs := []model.Message{
		model.NewUserMessage("discussing the parser design"),
		model.NewAssistantMessage("coder", "the Parser struct lives in internal/parse"),
		model.NewUserMessage("unrelated chatter"),
	}
	if err := s.RecordAll(msgs); err != nil {
		t.Fatal(err)
	}

	got, err := s.Search("parser", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search returned %d entries, want 2 (case-insensitive)", len(got))
	}
	for _, e := range got {
		if e.Content == "unrelated chatter" {
			t.Errorf("non-matching entry returned: %q", e.Content)
		}
	}
}

func TestSearchEscapesLikeMetacharacters(t *testing.T) {
	s := openStore(t)

	if err := s.Record(model.NewUserMessage("progress: 100% done")); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(model.NewUserMessage("completely different")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Search("100%", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].Content != "progress: 100% done" {
		t.Errorf("Search(100%%) = %+v, want the literal match only", got)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := openStore(t)

	if _, err := s.Search("   ", 5); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("err = %v, want ErrEmptyQuery", err)
	}
}

func TestSearchLimit(t *testing.T) {
	s := openStore(t)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		msg := model.Message{
			Role:      model.RoleUser,
			Content:   "topic note",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		if err := s.Record(msg); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.Search("topic", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Search returned %d entries, want limit of 3", len(got))
	}
}

func TestCount(t *testing.T) {
	s := openStore(t)

	if n, err := s.Count(); err != nil || n != 0 {
		t.Fatalf("Count = %d, %v; want 0", n, err)
	}
	if err := s.Record(model.NewUserMessage("one")); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestClosedStore(t *testing.T) {
	s := openStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := s.Record(model.NewUserMessage("late")); !errors.Is(err, ErrClosed) {
		t.Errorf("Record after close = %v, want ErrClosed", err)
	}
	if _, err := s.Recent(1); !errors.Is(err, ErrClosed) {
		t.Errorf("Recent after close = %v, want ErrClosed", err)
	}
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(model.NewUserMessage("durable")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, err := s.Recent(1)
	if err != nil || len(got) != 1 || got[0].Content != "durable" {
		t.Errorf("reopened store Recent = %+v, %v", got, err)
	}
}
