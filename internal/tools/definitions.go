// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// TOOL DEFINITION
// =============================================================================

// Tool represents an executable tool.
type Tool struct {
	// Name is the tool identifier sent to the model (e.g., "bash", "read_file")
	Name string

	// Description explains what the tool does
	Description string

	// Schema defines the tool's parameters
	Schema Schema

	// Executor handles the actual execution
	Executor ToolExecutor
}

// Schema defines a tool's parameters.
type Schema struct {
	Parameters []Parameter
}

// Parameter defines a single tool parameter.
type Parameter struct {
	// Name of the parameter
	Name string

	// Type is the parameter type ("string", "number", "boolean")
	Type string

	// Required indicates if the parameter must be provided
	Required bool

	// Description explains the parameter
	Description string

	// Default is the default value if not provided
	Default interface{}
}

// InputSchema converts the schema to the JSON-schema object shape the model
// transport sends with each request.
func (t *Tool) InputSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(t.Schema.Parameters))
	var required []string
	for _, p := range t.Schema.Parameters {
		typ := p.Type
		if typ == "number" {
			typ = "integer"
		}
		props[p.Name] = map[string]interface{}{
			"type":        typ,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// =============================================================================
// TOOL EXECUTOR INTERFACE
// =============================================================================

// ToolExecutor is the interface for individual tool execution.
// Each tool implements this to define its execution logic.
type ToolExecutor interface {
	Execute(ctx context.Context, params map[string]interface{}) (Result, error)
}

// Result holds the outcome of a tool execution.
type Result struct {
	// Success indicates if the tool executed successfully
	Success bool

	// Output is the tool's output (for successful execution)
	Output string

	// Error is the error message (for failed execution)
	Error string

	// Duration is how long execution took
	Duration time.Duration

	// Truncated indicates output was truncated
	Truncated bool

	// Artifact is the path of a file the tool created or modified, if any
	Artifact string
}

// Text returns the output for success or the error message for failure,
// suitable for reporting back to the model.
func (r Result) Text() string {
	if r.Success {
		if r.Output == "" {
			return "(no output)"
		}
		return r.Output
	}
	if r.Error == "" {
		return "tool execution failed"
	}
	return r.Error
}

// =============================================================================
// TOOL REGISTRY
// =============================================================================

// Registry holds all available tools, keyed by lowercase name.
type Registry struct {
	tools map[string]*Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// NewBuiltinRegistry creates a registry with the built-in tools rooted at
// the given workspace directory.
func NewBuiltinRegistry(workDir string) *Registry {
	r := NewRegistry()
	r.Register(BashTool(workDir))
	r.Register(ReadTool(workDir))
	r.Register(WriteTool(workDir))
	r.Register(EditTool(workDir))
	r.Register(GlobTool(workDir))
	r.Register(GrepTool(workDir))
	r.Register(LsTool(workDir))
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool *Tool) {
	r.tools[strings.ToLower(tool.Name)] = tool
}

// Get retrieves a tool by name, case-insensitively.
func (r *Registry) Get(name string) *Tool {
	return r.tools[strings.ToLower(name)]
}

// All returns all registered tools sorted by name.
func (r *Registry) All() []*Tool {
	result := make([]*Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// =============================================================================
// TOOL CALL
// =============================================================================

// ToolCall represents one tool invocation requested by the model.
// ID is transport-assigned and echoed back unchanged with the result.
type ToolCall struct {
	ID     string
	Name   string
	Params map[string]interface{}
}

// GetString gets a string parameter with a default value.
func (tc *ToolCall) GetString(name string, defaultVal string) string {
	if val, ok := tc.Params[name]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// GetInt gets an integer parameter with a default value.
func (tc *ToolCall) GetInt(name string, defaultVal int) int {
	if val, ok := tc.Params[name]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultVal
}

// GetBool gets a boolean parameter with a default value.
func (tc *ToolCall) GetBool(name string, defaultVal bool) bool {
	if val, ok := tc.Params[name]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}
