// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// =============================================================================
// BASH TOOL
// =============================================================================

const (
	defaultBashTimeout = 30 * time.Second
	maxBashTimeout     = 10 * time.Minute
)

// BashTool executes shell commands in the workspace directory.
func BashTool(workDir string) *Tool {
	return &Tool{
		Name: "bash",
		Description: "Execute a shell command in the workspace directory and return its " +
			"combined output. Use for builds, tests, git, and file operations. " +
			"Interactive commands will hang and time out.",
		Schema: Schema{
			Parameters: []Parameter{
				{
					Name:        "command",
					Type:        "string",
					Required:    true,
					Description: "The shell command to execute. Examples: 'ls -la', 'git status', 'go build ./...'",
				},
				{
					Name:        "timeout",
					Type:        "number",
					Required:    false,
					Description: "Timeout in seconds (default: 30, max: 600).",
					Default:     30,
				},
			},
		},
		Executor: &BashExecutor{WorkDir: workDir},
	}
}

// BashExecutor runs shell commands.
type BashExecutor struct {
	WorkDir string
}

// Execute runs the command through bash -c, capturing stdout and stderr.
func (e *BashExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	command := strings.TrimSpace(getStringParam(params, "command", ""))
	if command == "" {
		return Result{Success: false, Error: "command must not be empty"}, nil
	}

	timeout := time.Duration(getIntParam(params, "timeout", 30)) * time.Second
	if timeout <= 0 {
		timeout = defaultBashTimeout
	}
	if timeout > maxBashTimeout {
		timeout = maxBashTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = e.WorkDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := buildOutput(&stdout, &stderr)

	if ctx.Err() == context.DeadlineExceeded {
		return Result{
			Success: false,
			Output:  output,
			Error:   fmt.Sprintf("command timed out after %s", timeout),
		}, nil
	}
	if err != nil {
		return Result{
			Success: false,
			Output:  output,
			Error:   fmt.Sprintf("command failed: %v\n%s", err, output),
		}, nil
	}

	return Result{Success: true, Output: output}, nil
}

// buildOutput combines stdout and stderr, labeling stderr when both present.
func buildOutput(stdout, stderr *bytes.Buffer) string {
	out := stdout.String()
	errOut := stderr.String()

	switch {
	case out != "" && errOut != "":
		return out + "\n[stderr]\n" + errOut
	case errOut != "":
		return errOut
	default:
		return out
	}
}
