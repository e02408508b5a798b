// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// =============================================================================
// SHARED HELPERS
// =============================================================================

// ignoredDirs are never descended into during glob or grep walks.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"target":       true,
	"dist":         true,
	"build":        true,
	".cache":       true,
}

// isBinaryData reports whether a sample looks like binary content.
func isBinaryData(sample []byte) bool {
	return bytes.IndexByte(sample, 0) != -1
}

// matchSegments matches slash-separated glob segments with ** support.
func matchSegments(patSegs, pathSegs []string) bool {
	if len(patSegs) == 0 {
		return len(pathSegs) == 0
	}
	if patSegs[0] == "**" {
		// ** matches zero or more path segments.
		for i := 0; i <= len(pathSegs); i++ {
			if matchSegments(patSegs[1:], pathSegs[i:]) {
				return true
			}
		}
		return false
	}
	if len(pathSegs) == 0 {
		return false
	}
	ok, err := filepath.Match(patSegs[0], pathSegs[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(patSegs[1:], pathSegs[1:])
}

// matchGlob matches a relative path against a glob pattern, supporting **.
func matchGlob(pattern, relPath string) bool {
	patSegs := strings.Split(filepath.ToSlash(pattern), "/")
	pathSegs := strings.Split(filepath.ToSlash(relPath), "/")
	return matchSegments(patSegs, pathSegs)
}

// =============================================================================
// GLOB TOOL
// =============================================================================

const maxGlobResults = 100

// GlobTool finds files by name pattern.
func GlobTool(workDir string) *Tool {
	return &Tool{
		Name: "glob",
		Description: "Find files by name pattern. Supports * within a segment and ** " +
			"across directories (e.g. '**/*.go'). Results are sorted by modification " +
			"time, newest first. Use grep to search file contents.",
		Schema: Schema{
			Parameters: []Parameter{
				{
					Name:        "pattern",
					Type:        "string",
					Required:    true,
					Description: "Glob pattern. Examples: '**/*.go', 'src/**/*.ts', '*.json'",
				},
				{
					Name:        "path",
					Type:        "string",
					Required:    false,
					Description: "Base directory to search in. Default: the workspace directory.",
				},
			},
		},
		Executor: &GlobExecutor{WorkDir: workDir},
	}
}

// GlobExecutor finds files matching a pattern.
type GlobExecutor struct {
	WorkDir string
}

func (e *GlobExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	pattern := getStringParam(params, "pattern", "")
	base := getStringParam(params, "path", "")
	if base == "" {
		base = e.WorkDir
	} else {
		base = resolvePath(e.WorkDir, base)
	}

	if pattern == "" {
		return Result{Success: false, Error: "pattern must not be empty"}, nil
	}
	if _, err := filepath.Match(strings.ReplaceAll(pattern, "**", "*"), ""); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("invalid pattern %q: %v", pattern, err)}, nil
	}

	type hit struct {
		path    string
		modTime int64
	}
	var hits []hit

	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries.
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return nil
		}
		if matchGlob(pattern, rel) {
			info, err := d.Info()
			var mod int64
			if err == nil {
				mod = info.ModTime().UnixNano()
			}
			hits = append(hits, hit{path: rel, modTime: mod})
		}
		return nil
	})
	if err != nil && err != ctx.Err() {
		return Result{Success: false, Error: fmt.Sprintf("walk %s: %v", base, err)}, nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].modTime > hits[j].modTime })

	truncated := false
	if len(hits) > maxGlobResults {
		hits = hits[:maxGlobResults]
		truncated = true
	}

	if len(hits) == 0 {
		return Result{Success: true, Output: "no files matched"}, nil
	}

	paths := make([]string, len(hits))
	for i, h := range hits {
		paths[i] = h.path
	}
	return Result{
		Success:   true,
		Output:    strings.Join(paths, "\n"),
		Truncated: truncated,
	}, nil
}

// =============================================================================
// GREP TOOL
// =============================================================================

const maxGrepMatches = 50

// GrepTool searches file contents with regular expressions.
func GrepTool(workDir string) *Tool {
	return &Tool{
		Name: "grep",
		Description: "Search file contents for a regular expression. Searches a single " +
			"file or a directory tree; binary files are skipped. Output is " +
			"file:line:content. Use glob to find files by name.",
		Schema: Schema{
			Parameters: []Parameter{
				{
					Name:        "pattern",
					Type:        "string",
					Required:    true,
					Description: "Regular expression to search for. Examples: 'func.*Error', 'TODO|FIXME'",
				},
				{
					Name:        "path",
					Type:        "string",
					Required:    false,
					Description: "File or directory to search. Default: the workspace directory.",
				},
				{
					Name:        "glob",
					Type:        "string",
					Required:    false,
					Description: "Filter searched files by base-name pattern. Example: '*.go'",
				},
				{
					Name:        "case_insensitive",
					Type:        "boolean",
					Required:    false,
					Description: "Enable case-insensitive matching.",
					Default:     false,
				},
			},
		},
		Executor: &GrepExecutor{WorkDir: workDir},
	}
}

// GrepExecutor searches file contents.
type GrepExecutor struct {
	WorkDir string
}

func (e *GrepExecutor) Execute(ctx context.Context, params map[string]interface{}) (Result, error) {
	pattern := getStringParam(params, "pattern", "")
	if pattern == "" {
		return Result{Success: false, Error: "pattern must not be empty"}, nil
	}
	if getBoolParam(params, "case_insensitive", false) {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("invalid pattern: %v", err)}, nil
	}

	target := getStringParam(params, "path", "")
	if target == "" {
		target = e.WorkDir
	} else {
		target = resolvePath(e.WorkDir, target)
	}
	globFilter := getStringParam(params, "glob", "")

	info, err := os.Stat(target)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("cannot search %s: %v", target, err)}, nil
	}

	var matches []string
	truncated := false

	searchFile := func(path, display string) error {
		found, err := grepFile(ctx, path, display, re, maxGrepMatches-len(matches))
		if err != nil {
			return nil // Skip unreadable files.
		}
		matches = append(matches, found...)
		if len(matches) >= maxGrepMatches {
			truncated = true
			return filepath.SkipAll
		}
		return nil
	}

	if info.IsDir() {
		err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if ignoredDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if globFilter != "" {
				if ok, _ := filepath.Match(globFilter, d.Name()); !ok {
					return nil
				}
			}
			rel, relErr := filepath.Rel(target, path)
			if relErr != nil {
				rel = path
			}
			return searchFile(path, rel)
		})
		if err != nil && err != filepath.SkipAll && err != ctx.Err() {
			return Result{Success: false, Error: fmt.Sprintf("walk %s: %v", target, err)}, nil
		}
	} else {
		_ = searchFile(target, target)
	}

	if len(matches) == 0 {
		return Result{Success: true, Output: "no matches"}, nil
	}
	return Result{
		Success:   true,
		Output:    strings.Join(matches, "\n"),
		Truncated: truncated,
	}, nil
}

// grepFile scans one file, returning up to limit formatted matches.
func grepFile(ctx context.Context, path, display string, re *regexp.Regexp, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sample := make([]byte, 512)
	n, _ := f.Read(sample)
	if isBinaryData(sample[:n]) {
		return nil, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}

	var out []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		lineNo++
		line := scanner.Text()
		if re.MatchString(line) {
			out = append(out, fmt.Sprintf("%s:%d:%s", display, lineNo, line))
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
