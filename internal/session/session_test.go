// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/harangju/botler/internal/agent"
	"github.com/harangju/botler/internal/memory"
	"github.com/harangju/botler/internal/model"
)

type fakeCompactor struct {
	mu           sync.Mutex
	calls        int
	agentName    string
	systemPrompt string
	summary      model.SessionSummary
	err          error
}

func (f *fakeCompactor) Compact(ctx context.Context, agentName, systemPrompt string, summarizer memory.Summarizer, summary model.SessionSummary) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.agentName = agentName
	f.systemPrompt = systemPrompt
	f.summary = summary
	return "note", f.err
}

type fakeArchiver struct {
	mu    sync.Mutex
	calls int
	msgs  []model.Message
	err   error
}

func (f *fakeArchiver) Append(messages []model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.msgs = append(f.msgs, messages...)
	return f.err
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRecorder) RecordAll(messages []model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type noopSummarizer struct{}

func (noopSummarizer) Complete(ctx context.Context, system, prompt string) (string, error) {
	return "note", nil
}

func testAgent() *agent.Agent {
	a, _ := agent.Builtins().Get("bot")
	return a
}

func TestArtifactDedupPreservesOrder(t *testing.T) {
	s := New(testAgent(), nil, nil, nil, nil)

	s.AddArtifact("b.go")
	s.AddArtifact("a.go")
	s.AddArtifact("b.go")
	s.AddArtifact("")

	got := s.Artifacts()
	want := []string{"b.go", "a.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("artifacts = %v, want %v", got, want)
	}
}

func TestTranscriptCopyIsIndependent(t *testing.T) {
	s := New(testAgent(), nil, nil, nil, nil)
	s.AppendMessages([]model.Message{model.NewUserMessage("hi")})

	got := s.Transcript()
	got[0].Content = "mutated"
	if s.Transcript()[0].Content != "hi" {
		t.Error("Transcript returned shared backing storage")
	}
}

func TestSummaryCarriesState(t *testing.T) {
	s := New(testAgent(), nil, nil, nil, nil)
	s.AppendMessages([]model.Message{
		model.NewUserMessage("hi"),
		model.NewAssistantMessage("bot", "hello"),
	})
	s.AddArtifact("main.go")

	sum := s.Summary()
	if len(sum.Messages) != 2 || sum.AgentName != "bot" {
		t.Errorf("summary = %+v", sum)
	}
	if !reflect.DeepEqual(sum.Artifacts, []string{"main.go"}) {
		t.Errorf("artifacts = %v", sum.Artifacts)
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	comp := &fakeCompactor{}
	arch := &fakeArchiver{}
	rec := &fakeRecorder{}
	s := New(testAgent(), comp, noopSummarizer{}, arch, rec)
	s.AppendMessages([]model.Message{model.NewUserMessage("hi")})

	s.Shutdown(context.Background())
	s.Shutdown(context.Background())

	if comp.calls != 1 {
		t.Errorf("compactor calls = %d, want 1", comp.calls)
	}
	if arch.calls != 1 {
		t.Errorf("archiver calls = %d, want 1", arch.calls)
	}
	if rec.calls != 1 {
		t.Errorf("recorder calls = %d, want 1", rec.calls)
	}
	if comp.agentName != "bot" {
		t.Errorf("compacted agent = %q", comp.agentName)
	}
	if comp.systemPrompt != testAgent().SystemPrompt {
		t.Errorf("compactor got system prompt %q, want the persona's", comp.systemPrompt)
	}
}

func TestShutdownEmptyTranscriptIsNoOp(t *testing.T) {
	comp := &fakeCompactor{}
	arch := &fakeArchiver{}
	s := New(testAgent(), comp, noopSummarizer{}, arch, nil)

	s.Shutdown(context.Background())

	if comp.calls != 0 || arch.calls != 0 {
		t.Errorf("teardown ran on empty transcript: compact=%d archive=%d", comp.calls, arch.calls)
	}
}

func TestShutdownCompactionFailureStillArchives(t *testing.T) {
	comp := &fakeCompactor{err: errors.New("model unavailable")}
	arch := &fakeArchiver{}
	rec := &fakeRecorder{}
	s := New(testAgent(), comp, noopSummarizer{}, arch, rec)
	s.AppendMessages([]model.Message{model.NewUserMessage("hi")})

	s.Shutdown(context.Background())

	if arch.calls != 1 || rec.calls != 1 {
		t.Errorf("archive=%d history=%d, want both attempted after failed compaction", arch.calls, rec.calls)
	}
}

func TestShutdownArchiveFailureStillRecordsHistory(t *testing.T) {
	arch := &fakeArchiver{err: errors.New("disk full")}
	rec := &fakeRecorder{}
	s := New(testAgent(), nil, nil, arch, rec)
	s.AppendMessages([]model.Message{model.NewUserMessage("hi")})

	s.Shutdown(context.Background())

	if rec.calls != 1 {
		t.Errorf("recorder calls = %d, want 1", rec.calls)
	}
}

func TestShutdownNilDependencies(t *testing.T) {
	s := New(testAgent(), nil, nil, nil, nil)
	s.AppendMessages([]model.Message{model.NewUserMessage("hi")})

	// Must not panic.
	s.Shutdown(context.Background())
}

func TestSetCurrent(t *testing.T) {
	catalog := agent.Builtins()
	bot, _ := catalog.Get("bot")
	coder, _ := catalog.Get("coder")

	s := New(bot, nil, nil, nil, nil)
	if s.Current() != bot {
		t.Fatal("initial persona wrong")
	}
	s.SetCurrent(coder)
	if s.Current() != coder {
		t.Error("SetCurrent did not take effect")
	}
}

func TestSessionIDUnique(t *testing.T) {
	a := New(testAgent(), nil, nil, nil, nil)
	b := New(testAgent(), nil, nil, nil, nil)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("ids = %q, %q; want unique non-empty", a.ID(), b.ID())
	}
}
