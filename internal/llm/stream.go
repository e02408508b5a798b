// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// STREAM ERROR
// =============================================================================

// StreamError represents an error that occurred during streaming,
// preserving any partial content received before the error.
type StreamError struct {
	Partial string // Text content received before error
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type, data, and any error.
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				// If we have data, return it before EOF.
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("event:")) {
			eventType = string(bytes.TrimSpace(line[6:]))
		} else if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamMessage performs a streaming messages request. onEvent is called
// for each text delta and tool_use block start; the returned response
// carries the fully assembled content block list.
//
// Connection errors before any event are retried with backoff. Once events
// have been emitted, a failure surfaces as a StreamError preserving the
// partial text.
func (c *Client) StreamMessage(ctx context.Context, req *MessageRequest, onEvent func(StreamEvent)) (*MessageResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	c.fillDefaults(req)
	req.Stream = true

	if onEvent == nil {
		onEvent = func(StreamEvent) {}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, emitted, err := c.streamOnce(ctx, req, onEvent)
		if err == nil {
			return resp, nil
		}
		if emitted || !c.isRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return nil, errors.New("max retries exceeded")
}

// streamOnce performs a single streaming attempt. The emitted flag reports
// whether any event reached the caller, which makes the attempt
// non-retryable.
func (c *Client) streamOnce(ctx context.Context, reqBody *MessageRequest, onEvent func(StreamEvent)) (*MessageResponse, bool, error) {
	if err := c.wait(ctx); err != nil {
		return nil, false, err
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	c.logRequest(req)

	startTime := time.Now()
	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	c.logResponse(resp, time.Since(startTime))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		return nil, false, c.handleErrorResponse(resp, body)
	}

	asm := newStreamAssembler(onEvent)
	if err := asm.consume(ctx, resp.Body); err != nil {
		if asm.emitted {
			return nil, true, &StreamError{Partial: asm.text(), Err: err}
		}
		return nil, false, err
	}
	return asm.response(), asm.emitted, nil
}

// =============================================================================
// STREAM ASSEMBLER
// =============================================================================

// streamAssembler builds a MessageResponse from the SSE event sequence:
// content_block_start opens a block, content_block_delta extends it,
// content_block_stop finalizes tool input JSON, message_delta carries the
// stop reason.
type streamAssembler struct {
	onEvent func(StreamEvent)
	emitted bool

	resp       MessageResponse
	blocks     []ContentBlock
	jsonBufs   map[int]string
	stopReason string
}

func newStreamAssembler(onEvent func(StreamEvent)) *streamAssembler {
	return &streamAssembler{
		onEvent:  onEvent,
		jsonBufs: make(map[int]string),
	}
}

// consume reads SSE events until message_stop or EOF.
func (a *streamAssembler) consume(ctx context.Context, body io.Reader) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var ev sseEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// Skip malformed events.
			continue
		}

		switch ev.Type {
		case "message_start":
			if ev.Message != nil {
				a.resp.ID = ev.Message.ID
				a.resp.Model = ev.Message.Model
				a.resp.Role = ev.Message.Role
				a.resp.Usage = ev.Message.Usage
			}

		case "content_block_start":
			a.startBlock(ev)

		case "content_block_delta":
			a.applyDelta(ev)

		case "content_block_stop":
			if err := a.finishBlock(ev.Index); err != nil {
				return err
			}

		case "message_delta":
			if ev.Delta != nil && ev.Delta.StopReason != "" {
				a.stopReason = ev.Delta.StopReason
			}
			if ev.Usage != nil {
				a.resp.Usage.OutputTokens = ev.Usage.OutputTokens
			}

		case "message_stop":
			return nil

		case "error":
			if ev.Error != nil {
				return &APIError{Type: ev.Error.Type, Message: ev.Error.Message, Status: http.StatusOK}
			}
			return errors.New("stream reported an unspecified error")
		}
		// ping and unknown event types are ignored.
	}
}

// startBlock opens a new content block at the event's index.
func (a *streamAssembler) startBlock(ev sseEvent) {
	if ev.ContentBlock == nil {
		return
	}
	for len(a.blocks) <= ev.Index {
		a.blocks = append(a.blocks, ContentBlock{})
	}

	switch ev.ContentBlock.Type {
	case BlockText:
		a.blocks[ev.Index] = TextBlock(ev.ContentBlock.Text)
	case BlockToolUse:
		id := ev.ContentBlock.ID
		if id == "" {
			// Defensive: some gateways omit block ids.
			id = "toolu_" + uuid.NewString()
		}
		a.blocks[ev.Index] = ToolUseBlock(id, ev.ContentBlock.Name, nil)
		a.emit(StreamEvent{Type: EventToolUseStart, ToolID: id, ToolName: ev.ContentBlock.Name})
	}
}

// applyDelta extends the block at the event's index.
func (a *streamAssembler) applyDelta(ev sseEvent) {
	if ev.Delta == nil || ev.Index >= len(a.blocks) {
		return
	}
	switch ev.Delta.Type {
	case "text_delta":
		a.blocks[ev.Index].Text += ev.Delta.Text
		a.emit(StreamEvent{Type: EventTextDelta, Text: ev.Delta.Text})
	case "input_json_delta":
		a.jsonBufs[ev.Index] += ev.Delta.PartialJSON
	}
}

// finishBlock parses accumulated tool input JSON for the block.
func (a *streamAssembler) finishBlock(index int) error {
	if index >= len(a.blocks) || a.blocks[index].Type != BlockToolUse {
		return nil
	}
	input, err := decodeInput(a.jsonBufs[index])
	if err != nil {
		return fmt.Errorf("malformed tool input for %s: %w", a.blocks[index].Name, err)
	}
	a.blocks[index].Input = input
	return nil
}

func (a *streamAssembler) emit(ev StreamEvent) {
	a.emitted = true
	a.onEvent(ev)
}

// text returns the accumulated text content so far.
func (a *streamAssembler) text() string {
	var out string
	for _, b := range a.blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// response finalizes and returns the assembled response.
func (a *streamAssembler) response() *MessageResponse {
	a.resp.Content = a.blocks
	a.resp.StopReason = a.stopReason
	if a.resp.Role == "" {
		a.resp.Role = "assistant"
	}
	return &a.resp
}
