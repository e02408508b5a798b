// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harangju/botler/internal/model"
	"github.com/harangju/botler/internal/util"
)

// ErrEmptySummary indicates the summarizer returned no usable note.
var ErrEmptySummary = errors.New("summarizer returned empty note")

// Summarizer produces the compacted note text. Satisfied by *llm.Client.
type Summarizer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// compactionSystem is the fixed instruction set for memory compaction.
const compactionSystem = `You maintain a persistent memory note for an AI assistant persona. You will receive the persona's instructions, its current note, and a transcript of the session that just ended. Produce the updated note.

Rules:
- Preserve durable facts about the user, their preferences, project context, technical decisions, and recurring patterns.
- Discard transient content: one-off questions, tool output, pleasantries.
- Merge new information into the existing note and remove duplicates.
- Keep the note under 500 words.
- Output ONLY the note text, no preamble or commentary.`

// =============================================================================
// STORE
// =============================================================================

// Store persists per-persona notes under a data directory.
type Store struct {
	root string
}

// NewStore creates a store rooted at the given data directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the note file path for a persona.
func (s *Store) Path(agentName string) string {
	return filepath.Join(s.root, "agents", strings.ToLower(agentName), "memory.md")
}

// Load returns the persona's note, or "" when none exists. Absence is
// never an error.
func (s *Store) Load(agentName string) (string, error) {
	data, err := os.ReadFile(s.Path(agentName))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("load memory for %s: %w", agentName, err)
	}
	return string(data), nil
}

// Append adds text to the persona's note, separated from prior content by
// a blank line. The file and its directories are created on first use.
func (s *Store) Append(agentName, text string) error {
	current, err := s.Load(agentName)
	if err != nil {
		return err
	}

	updated := text
	if current != "" {
		updated = current + "\n\n" + text
	}
	if err := util.AtomicWriteFile(s.Path(agentName), []byte(updated), 0o644); err != nil {
		return fmt.Errorf("append memory for %s: %w", agentName, err)
	}
	return nil
}

// Overwrite replaces the persona's note wholesale.
func (s *Store) Overwrite(agentName, text string) error {
	if err := util.AtomicWriteFile(s.Path(agentName), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write memory for %s: %w", agentName, err)
	}
	return nil
}

// =============================================================================
// COMPACTION
// =============================================================================

// Compact folds a finished session into the persona's note with one
// summarization call and overwrites the stored note with the result.
//
// On any failure, or when the summarizer returns an empty note, the stored
// bytes stay untouched and the prior note is returned with the error.
func (s *Store) Compact(ctx context.Context, agentName, systemPrompt string, summarizer Summarizer, summary model.SessionSummary) (string, error) {
	current, err := s.Load(agentName)
	if err != nil {
		return current, err
	}

	prompt := buildCompactionPrompt(systemPrompt, current, summary)

	updated, err := summarizer.Complete(ctx, compactionSystem, prompt)
	if err != nil {
		return current, fmt.Errorf("compact memory for %s: %w", agentName, err)
	}
	updated = strings.TrimSpace(updated)
	if updated == "" {
		return current, fmt.Errorf("compact memory for %s: %w", agentName, ErrEmptySummary)
	}

	if err := s.Overwrite(agentName, updated); err != nil {
		return current, err
	}
	return updated, nil
}

// buildCompactionPrompt renders the persona definition, the current note,
// and the session for the summarizer.
func buildCompactionPrompt(systemPrompt, current string, summary model.SessionSummary) string {
	var sb strings.Builder

	if systemPrompt != "" {
		sb.WriteString("# Persona instructions\n\n")
		sb.WriteString(systemPrompt)
		sb.WriteString("\n\n")
	}

	sb.WriteString("# Current note\n\n")
	if current == "" {
		sb.WriteString("(empty)\n")
	} else {
		sb.WriteString(current)
		sb.WriteString("\n")
	}

	sb.WriteString("\n# Session transcript\n\n")
	for _, msg := range summary.Messages {
		name := string(msg.Role)
		if msg.AgentName != "" {
			name = msg.AgentName
		}
		fmt.Fprintf(&sb, "%s: %s\n", name, msg.Content)
	}

	if len(summary.Artifacts) > 0 {
		sb.WriteString("\n# Files touched this session\n\n")
		for _, path := range summary.Artifacts {
			fmt.Fprintf(&sb, "- %s\n", path)
		}
	}

	return sb.String()
}
