// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the live conversation state and runs teardown.
//
// A Session accumulates the transcript, touched artifacts, and the current
// persona. Shutdown runs at most once: it compacts the persona's memory,
// then journals the transcript to the archive and the history index.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harangju/botler/internal/agent"
	"github.com/harangju/botler/internal/memory"
	"github.com/harangju/botler/internal/model"
)

// ShutdownTimeout bounds teardown when the caller's context has no deadline.
const ShutdownTimeout = 30 * time.Second

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Compactor folds a session summary into a persona's memory note.
// Satisfied by *memory.Store.
type Compactor interface {
	Compact(ctx context.Context, agentName, systemPrompt string, summarizer memory.Summarizer, summary model.SessionSummary) (string, error)
}

// Archiver journals finished transcripts. Satisfied by *archive.Log.
type Archiver interface {
	Append(messages []model.Message) error
}

// Recorder indexes transcripts for recall. Satisfied by *history.Store.
type Recorder interface {
	RecordAll(messages []model.Message) error
}

// =============================================================================
// SESSION
// =============================================================================

// Session is the mutable state of one interactive conversation.
type Session struct {
	mu sync.Mutex

	id        string
	startTime time.Time

	current    *agent.Agent
	transcript []model.Message

	// artifacts keeps first-touch order; seen deduplicates.
	artifacts []string
	seen      map[string]struct{}

	compactor  Compactor
	summarizer memory.Summarizer
	archive    Archiver
	history    Recorder

	shutdown sync.Once
}

// New creates a session starting with the given persona. Any dependency may
// be nil; the matching teardown step is skipped.
func New(current *agent.Agent, compactor Compactor, summarizer memory.Summarizer, archive Archiver, history Recorder) *Session {
	return &Session{
		id:         uuid.NewString(),
		startTime:  time.Now(),
		current:    current,
		seen:       make(map[string]struct{}),
		compactor:  compactor,
		summarizer: summarizer,
		archive:    archive,
		history:    history,
	}
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// StartTime returns when the session started.
func (s *Session) StartTime() time.Time {
	return s.startTime
}

// Current returns the persona the session is talking to.
func (s *Session) Current() *agent.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SetCurrent switches the session's persona.
func (s *Session) SetCurrent(a *agent.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = a
}

// Transcript returns a copy of the accumulated messages.
func (s *Session) Transcript() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// AppendMessages adds completed turns to the transcript.
func (s *Session) AppendMessages(messages []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, messages...)
}

// AddArtifact records a file the session touched. Duplicates are ignored;
// first-touch order is preserved.
func (s *Session) AddArtifact(path string) {
	if path == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[path]; ok {
		return
	}
	s.seen[path] = struct{}{}
	s.artifacts = append(s.artifacts, path)
}

// Artifacts returns a copy of the touched files in first-touch order.
func (s *Session) Artifacts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Summary builds the compaction input from current state.
func (s *Session) Summary() model.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]model.Message, len(s.transcript))
	copy(msgs, s.transcript)
	arts := make([]string, len(s.artifacts))
	copy(arts, s.artifacts)

	name := ""
	if s.current != nil {
		name = s.current.Name
	}
	return model.SessionSummary{
		Messages:  msgs,
		Artifacts: arts,
		AgentName: name,
	}
}

// =============================================================================
// TEARDOWN
// =============================================================================

// Shutdown tears the session down: one awaited best-effort memory
// compaction, then best-effort archive and history writes. Only the first
// call does anything; later calls return immediately. An empty transcript
// skips teardown entirely.
func (s *Session) Shutdown(ctx context.Context) {
	s.shutdown.Do(func() {
		summary := s.Summary()
		if len(summary.Messages) == 0 {
			return
		}

		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, ShutdownTimeout)
			defer cancel()
		}

		if s.compactor != nil && s.summarizer != nil && summary.AgentName != "" {
			systemPrompt := ""
			if cur := s.Current(); cur != nil {
				systemPrompt = cur.SystemPrompt
			}
			if _, err := s.compactor.Compact(ctx, summary.AgentName, systemPrompt, s.summarizer, summary); err != nil {
				log.Printf("session: memory compaction skipped: %v", err)
			}
		}

		if s.archive != nil {
			if err := s.archive.Append(summary.Messages); err != nil {
				log.Printf("session: archive write failed: %v", err)
			}
		}
		if s.history != nil {
			if err := s.history.RecordAll(summary.Messages); err != nil {
				log.Printf("session: history write failed: %v", err)
			}
		}
	})
}
