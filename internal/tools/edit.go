// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/harangju/botler/internal/util"
)

// =============================================================================
// EDIT TOOL
// =============================================================================

// EditTool performs exact string replacement in a file.
func EditTool(workDir string) *Tool {
	return &Tool{
		Name: "edit_file",
		Description: "Edit a file by replacing exact text. old_string must match " +
			"character-for-character including whitespace; include surrounding context " +
			"to make the match unique. Set replace_all to change every occurrence.",
		Schema: Schema{
			Parameters: []Parameter{
				{
					Name:        "path",
					Type:        "string",
					Required:    true,
					Description: "Path to the file to edit. The file must exist.",
				},
				{
					Name:        "old_string",
					Type:        "string",
					Required:    true,
					Description: "The exact text to find. Must appear exactly once unless replace_all is set.",
				},
				{
					Name:        "new_string",
					Type:        "string",
					Required:    false,
					Description: "The replacement text. Empty string deletes the matched text.",
					Default:     "",
				},
				{
					Name:        "replace_all",
					Type:        "boolean",
					Required:    false,
					Description: "Replace all occurrences instead of requiring a unique match.",
					Default:     false,
				},
			},
		},
		Executor: &EditExecutor{WorkDir: workDir},
	}
}

// EditExecutor performs search-and-replace edits.
type EditExecutor struct {
	WorkDir string
}

func (e *EditExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	path := resolvePath(e.WorkDir, getStringParam(params, "path", ""))
	oldString := getStringParam(params, "old_string", "")
	newString := getStringParam(params, "new_string", "")
	replaceAll := getBoolParam(params, "replace_all", false)

	if oldString == "" {
		return Result{Success: false, Error: "old_string must not be empty"}, nil
	}
	if oldString == newString {
		return Result{Success: false, Error: "old_string and new_string are identical"}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("cannot read %s: %v", path, err)}, nil
	}
	content := string(data)

	count := strings.Count(content, oldString)
	if count == 0 {
		return Result{Success: false, Error: fmt.Sprintf("old_string not found in %s", path)}, nil
	}
	if count > 1 && !replaceAll {
		return Result{
			Success: false,
			Error:   fmt.Sprintf("old_string appears %d times in %s; add context to make it unique or set replace_all", count, path),
		}, nil
	}

	var updated string
	replaced := count
	if replaceAll {
		updated = strings.ReplaceAll(content, oldString, newString)
	} else {
		updated = strings.Replace(content, oldString, newString, 1)
		replaced = 1
	}

	info, err := os.Stat(path)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("cannot stat %s: %v", path, err)}, nil
	}
	if err := util.AtomicWriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("write %s: %v", path, err)}, nil
	}

	return Result{
		Success:  true,
		Output:   fmt.Sprintf("replaced %d occurrence(s) in %s", replaced, path),
		Artifact: path,
	}, nil
}
