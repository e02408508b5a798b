// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"

	"github.com/harangju/botler/internal/agent"
	"github.com/harangju/botler/internal/llm"
	"github.com/harangju/botler/internal/model"
	"github.com/harangju/botler/internal/tools"
)

// =============================================================================
// EVENTS
// =============================================================================

// EventType identifies an engine event.
type EventType string

const (
	// EventText carries the cumulative response text so far.
	EventText EventType = "text"
	// EventToolStart signals the model opened a tool_use block.
	EventToolStart EventType = "tool_start"
	// EventToolArgs carries the complete arguments for a tool call.
	EventToolArgs EventType = "tool_args"
	// EventToolDone carries a successful tool result.
	EventToolDone EventType = "tool_done"
	// EventToolError carries a failed tool result.
	EventToolError EventType = "tool_error"
	// EventDone terminates the run and carries the final text.
	EventDone EventType = "done"
)

// Event is one step of engine progress. Text is cumulative for EventText
// and final for EventDone. ToolID matches across the start/args/done/error
// events of one tool call and is the transport-assigned id.
type Event struct {
	Type EventType

	Text string

	ToolID   string
	ToolName string
	Args     map[string]interface{}
	Result   string
	Err      string
}

// =============================================================================
// ENGINE
// =============================================================================

// DefaultMaxRounds bounds tool round-trips within a single response.
const DefaultMaxRounds = 10

// Transport streams one model request. Satisfied by *llm.Client.
type Transport interface {
	StreamMessage(ctx context.Context, req *llm.MessageRequest, onEvent func(llm.StreamEvent)) (*llm.MessageResponse, error)
}

// Engine drives the tool-use protocol loop for one persona turn.
type Engine struct {
	transport Transport
	executor  *tools.Executor
	maxRounds int
}

// New creates an engine over the given transport and tool executor.
func New(transport Transport, executor *tools.Executor) *Engine {
	return &Engine{
		transport: transport,
		executor:  executor,
		maxRounds: DefaultMaxRounds,
	}
}

// WithMaxRounds sets the tool round-trip bound per response.
func (e *Engine) WithMaxRounds(n int) *Engine {
	if n > 0 {
		e.maxRounds = n
	}
	return e
}

// RunInput is one persona turn: the persona, its durable memory (may be
// empty), and the shared transcript ending with the user's input.
type RunInput struct {
	Agent      *agent.Agent
	Memory     string
	Transcript []model.Message
}

// Run executes the turn, emitting events as it progresses. It returns the
// final response text. Exactly one done event is emitted on success; a
// transport failure returns an error with no done event and leaves the
// transcript untouched.
func (e *Engine) Run(ctx context.Context, in RunInput, emit func(Event)) (string, error) {
	if emit == nil {
		emit = func(Event) {}
	}

	messages := buildMessages(in.Transcript)
	toolDefs := e.toolDefs()
	system := buildSystem(in.Agent, in.Memory)

	var accumulated string

	for round := 0; round < e.maxRounds; round++ {
		req := &llm.MessageRequest{
			System:   system,
			Messages: messages,
			Tools:    toolDefs,
		}

		resp, err := e.transport.StreamMessage(ctx, req, func(ev llm.StreamEvent) {
			switch ev.Type {
			case llm.EventTextDelta:
				accumulated += ev.Text
				emit(Event{Type: EventText, Text: accumulated})
			case llm.EventToolUseStart:
				emit(Event{Type: EventToolStart, ToolID: ev.ToolID, ToolName: ev.ToolName})
			}
		})
		if err != nil {
			return "", err
		}

		uses := resp.ToolUses()
		if len(uses) == 0 {
			emit(Event{Type: EventDone, Text: accumulated})
			return accumulated, nil
		}

		// Execute sequentially in model order; results are batched into a
		// single user turn.
		results := make([]llm.ContentBlock, 0, len(uses))
		for _, use := range uses {
			emit(Event{Type: EventToolArgs, ToolID: use.ID, ToolName: use.Name, Args: use.Input})

			result := e.executor.Execute(ctx, tools.ToolCall{
				ID:     use.ID,
				Name:   use.Name,
				Params: use.Input,
			})

			text := result.Text()
			if result.Success {
				emit(Event{Type: EventToolDone, ToolID: use.ID, ToolName: use.Name, Result: text})
			} else {
				emit(Event{Type: EventToolError, ToolID: use.ID, ToolName: use.Name, Err: text})
			}
			results = append(results, llm.ToolResultBlock(use.ID, text, !result.Success))
		}

		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Content},
			llm.Message{Role: "user", Content: results},
		)
	}

	// Round bound reached: terminate with whatever text accumulated.
	emit(Event{Type: EventDone, Text: accumulated})
	return accumulated, nil
}

// ChannelRun adapts Run to a buffered event channel. The events channel is
// closed when the run finishes; a transport failure is delivered on the
// error channel.
func (e *Engine) ChannelRun(ctx context.Context, in RunInput) (<-chan Event, <-chan error) {
	events := make(chan Event, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errCh)

		_, err := e.Run(ctx, in, func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	return events, errCh
}

// =============================================================================
// REQUEST ASSEMBLY
// =============================================================================

// buildMessages converts the transcript into the wire message list.
func buildMessages(transcript []model.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(transcript))
	for _, msg := range transcript {
		messages = append(messages, llm.NewTextMessage(msg.Role.String(), msg.Content))
	}
	return messages
}

// buildSystem combines the persona prompt with its durable memory.
func buildSystem(a *agent.Agent, memory string) string {
	system := a.SystemPrompt
	if memory != "" {
		system += "\n\n# Your memory\n\nNotes you kept from earlier sessions:\n\n" + memory
	}
	return system
}

// toolDefs converts the registry to the wire tool list.
func (e *Engine) toolDefs() []llm.ToolDef {
	all := e.executor.Registry().All()
	defs := make([]llm.ToolDef, 0, len(all))
	for _, t := range all {
		defs = append(defs, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}
