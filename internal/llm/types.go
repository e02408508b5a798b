// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"encoding/json"
)

// =============================================================================
// CONTENT BLOCKS
// =============================================================================

// Content block types used on the wire.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// ContentBlock is one element of a message's content list. Exactly one of
// the type-specific field groups is populated, per the Type field.
type ContentBlock struct {
	Type string `json:"type"`

	// Text content (type "text")
	Text string `json:"text,omitempty"`

	// Tool use (type "tool_use"). ID is API-assigned and opaque.
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// Tool result (type "tool_result"). ToolUseID echoes the tool_use ID.
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock creates a tool_use content block.
func ToolUseBlock(id, name string, input map[string]interface{}) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock creates a tool_result content block echoing the given
// tool_use id.
func ToolResultBlock(toolUseID, content string, isError bool) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Content: content, IsError: isError}
}

// =============================================================================
// MESSAGES
// =============================================================================

// Message is one turn in the request message list.
type Message struct {
	Role    string         `json:"role"` // "user" or "assistant"
	Content []ContentBlock `json:"content"`
}

// NewTextMessage creates a single-block text message with the given role.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{TextBlock(text)}}
}

// =============================================================================
// REQUEST / RESPONSE
// =============================================================================

// ToolDef describes one tool offered to the model.
type ToolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// MessageRequest is a request to the messages endpoint.
type MessageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []ToolDef `json:"tools,omitempty"`
	Stream    bool      `json:"stream,omitempty"`
}

// Usage reports token consumption for a response.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessageResponse is the complete response from the messages endpoint,
// assembled from the stream when streaming.
type MessageResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// TextContent concatenates all text blocks in the response.
func (r *MessageResponse) TextContent() string {
	var out string
	for _, block := range r.Content {
		if block.Type == BlockText {
			out += block.Text
		}
	}
	return out
}

// ToolUses returns the tool_use blocks in response order.
func (r *MessageResponse) ToolUses() []ContentBlock {
	var out []ContentBlock
	for _, block := range r.Content {
		if block.Type == BlockToolUse {
			out = append(out, block)
		}
	}
	return out
}

// HasToolUse reports whether the response requested any tool invocations.
func (r *MessageResponse) HasToolUse() bool {
	return len(r.ToolUses()) > 0
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// Stream event types delivered to StreamMessage callbacks.
const (
	EventTextDelta    = "text_delta"
	EventToolUseStart = "tool_use_start"
)

// StreamEvent is delivered to the caller as the stream progresses.
type StreamEvent struct {
	Type string

	// Text is the delta text (EventTextDelta).
	Text string

	// ToolID and ToolName identify a starting tool_use block (EventToolUseStart).
	ToolID   string
	ToolName string
}

// =============================================================================
// SSE WIRE TYPES
// =============================================================================

// sseEvent mirrors the streaming event envelope on the wire.
type sseEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	Message *MessageResponse `json:"message,omitempty"`

	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
		Text string `json:"text"`
	} `json:"content_block,omitempty"`

	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta,omitempty"`

	Usage *Usage `json:"usage,omitempty"`

	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiErrorResponse is the non-streaming error body.
type apiErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeInput parses an accumulated partial_json buffer into a tool input
// map. An empty buffer yields an empty map, matching a tool that takes no
// arguments.
func decodeInput(buf string) (map[string]interface{}, error) {
	if buf == "" {
		return map[string]interface{}{}, nil
	}
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(buf), &input); err != nil {
		return nil, err
	}
	return input, nil
}
