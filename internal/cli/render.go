// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/harangju/botler/internal/engine"
	"github.com/harangju/botler/internal/util"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")). // Cyan
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")). // Purple
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")) // Light gray

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // Green
)

// markdownRenderer matches *glamour.TermRenderer; a fake stands in for it
// in tests.
type markdownRenderer interface {
	Render(in string) (string, error)
}

// newMarkdownRenderer builds the glamour renderer for final answers.
// Returns nil when the terminal cannot support it; callers fall back to
// plain streamed text.
func newMarkdownRenderer() *glamour.TermRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return nil
	}
	return r
}

// =============================================================================
// EVENT DISPLAY
// =============================================================================

// eventPrinter renders one persona turn's engine events. Text events carry
// the accumulated reply, so streaming prints only the unseen suffix.
type eventPrinter struct {
	out      io.Writer
	markdown markdownRenderer
	printed  int
}

func newEventPrinter(out io.Writer, markdown markdownRenderer) *eventPrinter {
	return &eventPrinter{out: out, markdown: markdown}
}

func (p *eventPrinter) handle(ev engine.Event) {
	switch ev.Type {
	case engine.EventText:
		// With a markdown renderer the reply is collected and rendered
		// once at done; otherwise stream the new suffix as it arrives.
		if p.markdown == nil {
			runes := []rune(ev.Text)
			if len(runes) > p.printed {
				fmt.Fprint(p.out, string(runes[p.printed:]))
				p.printed = len(runes)
			}
		}

	case engine.EventToolArgs:
		fmt.Fprintf(p.out, "%s %s %s\n",
			traceStyle.Render("[tool]"),
			ev.ToolName,
			traceStyle.Render(truncateLine(formatArgs(ev.Args), 60)))

	case engine.EventToolDone:
		fmt.Fprintf(p.out, "%s %s %s\n",
			traceStyle.Render("[tool]"),
			ev.ToolName,
			commandStyle.Render("ok"))

	case engine.EventToolError:
		detail := ""
		if ev.Err != "" {
			detail = " " + traceStyle.Render(truncateLine(ev.Err, 60))
		}
		fmt.Fprintf(p.out, "%s %s %s%s\n",
			traceStyle.Render("[tool]"),
			ev.ToolName,
			errorStyle.Render("failed"),
			detail)

	case engine.EventDone:
		p.finish(ev.Text)
	}
}

// finish prints the completed reply: rendered markdown when available,
// otherwise just the newline closing the streamed text.
func (p *eventPrinter) finish(text string) {
	if p.markdown != nil {
		if rendered, err := p.markdown.Render(text); err == nil {
			fmt.Fprint(p.out, rendered)
			return
		}
		// Renderer failure falls through to plain output.
		fmt.Fprintln(p.out, text)
		return
	}
	if p.printed > 0 {
		fmt.Fprintln(p.out)
	}
	// reset for the next persona turn in a handoff chain
	p.printed = 0
}

// formatArgs renders tool parameters as sorted key=value pairs.
func formatArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, " ")
}

// truncateLine flattens text to one line capped at max runes.
func truncateLine(s string, max int) string {
	return util.TruncateString(strings.ReplaceAll(s, "\n", " "), max)
}
