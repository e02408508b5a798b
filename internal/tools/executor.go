// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// =============================================================================
// EXECUTION RECORD
// =============================================================================

// ExecutionRecord tracks the result of a tool execution for audit purposes.
type ExecutionRecord struct {
	// ToolName is the name of the executed tool
	ToolName string

	// Params are the parameters passed to the tool
	Params map[string]interface{}

	// Result is the outcome of the execution
	Result Result

	// Timestamp is when the execution started
	Timestamp time.Time
}

// =============================================================================
// EXECUTOR
// =============================================================================

// DefaultToolTimeout is applied when the context carries no deadline.
const DefaultToolTimeout = 120 * time.Second

// DefaultMaxOutputSize caps tool output reported back to the model.
const DefaultMaxOutputSize = 30000

// Executor orchestrates tool execution with validation, timeout handling,
// output truncation, and history recording.
type Executor struct {
	registry *Registry
	history  []ExecutionRecord
	mu       sync.Mutex

	maxOutputSize int
	timeout       time.Duration

	// onArtifact, when set, receives the path of every file a tool creates
	// or modifies.
	onArtifact func(path string)
}

// NewExecutor creates a new tool executor with the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry:      registry,
		history:       make([]ExecutionRecord, 0),
		maxOutputSize: DefaultMaxOutputSize,
		timeout:       DefaultToolTimeout,
	}
}

// SetTimeout sets the per-call execution timeout.
func (e *Executor) SetTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d > 0 {
		e.timeout = d
	}
}

// SetMaxOutputSize sets the output truncation limit in bytes.
func (e *Executor) SetMaxOutputSize(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n > 0 {
		e.maxOutputSize = n
	}
}

// SetArtifactFunc sets the hook invoked with the path of each file a tool
// creates or modifies.
func (e *Executor) SetArtifactFunc(fn func(path string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onArtifact = fn
}

// Registry returns the tool registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// History returns a copy of the execution history.
func (e *Executor) History() []ExecutionRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := make([]ExecutionRecord, len(e.history))
	copy(result, e.history)
	return result
}

// ClearHistory clears the execution history.
func (e *Executor) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = make([]ExecutionRecord, 0)
}

// =============================================================================
// EXECUTION
// =============================================================================

// Execute runs a tool call and returns the result. Unknown tools, invalid
// parameters, executor errors, and timeouts all produce an error Result;
// Execute never panics and never returns a Go error to the caller.
func (e *Executor) Execute(ctx context.Context, call ToolCall) Result {
	start := time.Now()

	tool := e.registry.Get(call.Name)
	if tool == nil {
		return e.record(call, start, Result{
			Success: false,
			Error:   "unknown tool: " + call.Name,
		})
	}

	if err := validateParams(tool, call.Params); err != nil {
		return e.record(call, start, Result{
			Success: false,
			Error:   "parameter validation failed: " + err.Error(),
		})
	}

	e.mu.Lock()
	timeout := e.timeout
	maxOutput := e.maxOutputSize
	artifactFn := e.onArtifact
	e.mu.Unlock()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Goroutine pattern so a hung executor cannot block past the deadline.
	resultCh := make(chan Result, 1)
	errCh := make(chan error, 1)

	go func() {
		result, err := tool.Executor.Execute(ctx, call.Params)
		if err != nil {
			errCh <- err
		} else {
			resultCh <- result
		}
	}()

	var result Result
	select {
	case result = <-resultCh:
	case err := <-errCh:
		result = Result{Success: false, Error: err.Error()}
	case <-ctx.Done():
		result = Result{Success: false, Error: "tool execution timed out: " + ctx.Err().Error()}
	}

	if len(result.Output) > maxOutput {
		result.Output = result.Output[:maxOutput]
		result.Truncated = true
	}

	if result.Success && result.Artifact != "" && artifactFn != nil {
		artifactFn(result.Artifact)
	}

	return e.record(call, start, result)
}

// record finalizes the result duration and appends an execution record.
func (e *Executor) record(call ToolCall, start time.Time, result Result) Result {
	result.Duration = time.Since(start)

	e.mu.Lock()
	defer e.mu.Unlock()

	// Bound history growth.
	const maxHistorySize = 1000
	if len(e.history) >= maxHistorySize {
		e.history = e.history[len(e.history)-maxHistorySize+1:]
	}
	e.history = append(e.history, ExecutionRecord{
		ToolName:  call.Name,
		Params:    call.Params,
		Result:    result,
		Timestamp: start,
	})
	return result
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes an invalid tool parameter.
type ValidationError struct {
	Param   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Message)
}

// validateParams validates tool parameters against the schema.
func validateParams(tool *Tool, params map[string]interface{}) error {
	for _, param := range tool.Schema.Parameters {
		val, exists := params[param.Name]

		if param.Required && (!exists || val == nil) {
			return &ValidationError{Param: param.Name, Message: "required parameter is missing"}
		}
		if !exists || val == nil {
			continue
		}
		if err := validateType(param, val); err != nil {
			return err
		}
	}
	return nil
}

// validateType validates a parameter value against its expected type.
func validateType(param Parameter, val interface{}) error {
	switch param.Type {
	case "string":
		if _, ok := val.(string); !ok {
			return &ValidationError{Param: param.Name, Message: "expected string"}
		}
	case "number":
		switch val.(type) {
		case int, int64, float64:
		default:
			return &ValidationError{Param: param.Name, Message: "expected number"}
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return &ValidationError{Param: param.Name, Message: "expected boolean"}
		}
	}
	return nil
}
