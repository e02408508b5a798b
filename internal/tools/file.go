// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/harangju/botler/internal/util"
)

// =============================================================================
// READ TOOL
// =============================================================================

const defaultReadLimit = 2000

// ReadTool reads file contents with line numbers.
func ReadTool(workDir string) *Tool {
	return &Tool{
		Name: "read_file",
		Description: "Read the contents of a file. Output is numbered cat -n style. " +
			"For large files use offset and limit to read a specific section.",
		Schema: Schema{
			Parameters: []Parameter{
				{
					Name:        "path",
					Type:        "string",
					Required:    true,
					Description: "Path to the file. Relative paths resolve against the workspace directory.",
				},
				{
					Name:        "offset",
					Type:        "number",
					Required:    false,
					Description: "Line number to start reading from (1-indexed). Default: 1.",
					Default:     1,
				},
				{
					Name:        "limit",
					Type:        "number",
					Required:    false,
					Description: "Maximum number of lines to read. Default: 2000.",
					Default:     defaultReadLimit,
				},
			},
		},
		Executor: &ReadExecutor{WorkDir: workDir},
	}
}

// ReadExecutor reads files.
type ReadExecutor struct {
	WorkDir string
}

func (e *ReadExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	path := resolvePath(e.WorkDir, getStringParam(params, "path", ""))
	offset := getIntParam(params, "offset", 1)
	limit := getIntParam(params, "limit", defaultReadLimit)
	if offset < 1 {
		offset = 1
	}
	if limit <= 0 {
		limit = defaultReadLimit
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("cannot read %s: %v", path, err)}, nil
	}
	if info.IsDir() {
		return Result{Success: false, Error: fmt.Sprintf("%s is a directory, use ls instead", path)}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("cannot read %s: %v", path, err)}, nil
	}

	lines := strings.Split(string(data), "\n")
	end := offset - 1 + limit
	if end > len(lines) {
		end = len(lines)
	}
	if offset-1 >= len(lines) {
		return Result{Success: false, Error: fmt.Sprintf("offset %d past end of file (%d lines)", offset, len(lines))}, nil
	}

	var sb strings.Builder
	for i := offset - 1; i < end; i++ {
		fmt.Fprintf(&sb, "%6d\t%s\n", i+1, lines[i])
	}
	return Result{Success: true, Output: sb.String()}, nil
}

// =============================================================================
// WRITE TOOL
// =============================================================================

// maxWriteSize caps how much a single write may put on disk.
const maxWriteSize = 10 << 20

// WriteTool writes content to a file, replacing any existing content.
func WriteTool(workDir string) *Tool {
	return &Tool{
		Name: "write_file",
		Description: "Write content to a file, creating it (and parent directories) if " +
			"needed and replacing any existing content entirely. For small targeted " +
			"changes use edit_file instead.",
		Schema: Schema{
			Parameters: []Parameter{
				{
					Name:        "path",
					Type:        "string",
					Required:    true,
					Description: "Path to the file to write. Parent directories are created automatically.",
				},
				{
					Name:        "content",
					Type:        "string",
					Required:    true,
					Description: "The complete content to write. Replaces any existing content.",
				},
			},
		},
		Executor: &WriteExecutor{WorkDir: workDir},
	}
}

// WriteExecutor writes files atomically.
type WriteExecutor struct {
	WorkDir string
}

func (e *WriteExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	path := resolvePath(e.WorkDir, getStringParam(params, "path", ""))
	content := getStringParam(params, "content", "")

	if len(content) > maxWriteSize {
		return Result{Success: false, Error: fmt.Sprintf("content exceeds %d byte limit", maxWriteSize)}, nil
	}

	if err := util.AtomicWriteFile(path, []byte(content), 0o644); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("write %s: %v", path, err)}, nil
	}

	return Result{
		Success:  true,
		Output:   fmt.Sprintf("wrote %d bytes to %s", len(content), path),
		Artifact: path,
	}, nil
}

// =============================================================================
// LS TOOL
// =============================================================================

// LsTool lists directory contents.
func LsTool(workDir string) *Tool {
	return &Tool{
		Name:        "ls",
		Description: "List the contents of a directory. Directories are suffixed with '/'.",
		Schema: Schema{
			Parameters: []Parameter{
				{
					Name:        "path",
					Type:        "string",
					Required:    false,
					Description: "Directory to list. Default: the workspace directory.",
				},
			},
		},
		Executor: &LsExecutor{WorkDir: workDir},
	}
}

// LsExecutor lists directories.
type LsExecutor struct {
	WorkDir string
}

func (e *LsExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	path := getStringParam(params, "path", "")
	if path == "" {
		path = e.WorkDir
	} else {
		path = resolvePath(e.WorkDir, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("cannot list %s: %v", path, err)}, nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		return Result{Success: true, Output: "(empty directory)"}, nil
	}
	return Result{Success: true, Output: strings.Join(names, "\n")}, nil
}
