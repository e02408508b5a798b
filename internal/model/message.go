// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the known transcript roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// AgentName identifies the persona that produced an assistant message.
	AgentName string `json:"agentName,omitempty"`

	// Timestamp is set lazily; the archive stamps it at write time when zero.
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssistantMessage creates an assistant message tagged with the persona
// that produced it.
func NewAssistantMessage(agentName, content string) Message {
	return Message{
		Role:      RoleAssistant,
		Content:   content,
		AgentName: agentName,
		Timestamp: time.Now().UTC(),
	}
}

// IsEmpty returns true if the message has no content.
func (m Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// =============================================================================
// TOOL CALL RECORD
// =============================================================================

// ToolCallStatus tracks the lifecycle of a tool invocation.
type ToolCallStatus string

const (
	ToolCallRunning ToolCallStatus = "running"
	ToolCallDone    ToolCallStatus = "done"
	ToolCallError   ToolCallStatus = "error"
)

// ToolCall is the mutable record for one tool invocation within a turn.
// The ID is assigned by the model transport and echoed back unchanged when
// the result is reported.
type ToolCall struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Status ToolCallStatus `json:"status"`
	Result string         `json:"result,omitempty"`
}

// =============================================================================
// SESSION SUMMARY
// =============================================================================

// SessionSummary is the input to memory compaction: the finished transcript,
// the file paths touched by tools during the session, and the persona the
// session belonged to. It is built from session state and never persisted
// itself.
type SessionSummary struct {
	Messages  []Message
	Artifacts []string
	AgentName string
}
