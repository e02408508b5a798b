// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/harangju/botler/internal/agent"
	"github.com/harangju/botler/internal/config"
	"github.com/harangju/botler/internal/engine"
	"github.com/harangju/botler/internal/memory"
	"github.com/harangju/botler/internal/model"
	"github.com/harangju/botler/internal/session"
)

type fakeSummarizer struct {
	output string
}

func (f fakeSummarizer) Complete(ctx context.Context, system, prompt string) (string, error) {
	return f.output, nil
}

func testShell(t *testing.T) (*Shell, *bytes.Buffer) {
	t.Helper()
	catalog := agent.Builtins()
	mem := memory.NewStore(t.TempDir())
	sess := session.New(catalog.Default(), nil, nil, nil, nil)
	cfg := config.Default()

	out := &bytes.Buffer{}
	return &Shell{
		cfg:        cfg,
		catalog:    catalog,
		sess:       sess,
		memory:     mem,
		summarizer: fakeSummarizer{output: "compacted"},
		out:        out,
	}, out
}

func TestAgentsListsAndMarksCurrent(t *testing.T) {
	s, out := testShell(t)

	if quit := s.handleCommand(context.Background(), "/agents"); quit {
		t.Fatal("/agents should not quit")
	}
	text := out.String()
	for _, name := range []string{"bot", "coder", "reviewer", "architect", "debugger"} {
		if !strings.Contains(text, name) {
			t.Errorf("listing missing %q:\n%s", name, text)
		}
	}
	if !strings.Contains(text, "* ") {
		t.Error("current persona not marked")
	}
}

func TestSwitchCommand(t *testing.T) {
	s, out := testShell(t)

	s.handleCommand(context.Background(), "/switch coder")
	if s.sess.Current().Name != "coder" {
		t.Errorf("current = %q, want coder", s.sess.Current().Name)
	}

	out.Reset()
	s.handleCommand(context.Background(), "/switch nosuch")
	if s.sess.Current().Name != "coder" {
		t.Error("unknown persona changed current")
	}
	if !strings.Contains(out.String(), "no such persona") {
		t.Errorf("missing error: %s", out.String())
	}
}

func TestRememberAndMemory(t *testing.T) {
	s, out := testShell(t)

	s.handleCommand(context.Background(), "/remember prefers tabs")
	out.Reset()
	s.handleCommand(context.Background(), "/memory")
	if !strings.Contains(out.String(), "prefers tabs") {
		t.Errorf("memory not shown: %s", out.String())
	}
}

func TestRememberRequiresText(t *testing.T) {
	s, out := testShell(t)

	s.handleCommand(context.Background(), "/remember")
	if !strings.Contains(out.String(), "usage") {
		t.Errorf("missing usage hint: %s", out.String())
	}
	note, _ := s.memory.Load(s.sess.Current().Name)
	if note != "" {
		t.Errorf("note = %q, want empty", note)
	}
}

func TestCompactUpdatesMemory(t *testing.T) {
	s, out := testShell(t)
	s.sess.AppendMessages([]model.Message{
		model.NewUserMessage("hi"),
		model.NewAssistantMessage("bot", "hello"),
	})

	s.handleCommand(context.Background(), "/compact")
	if !strings.Contains(out.String(), "updated") {
		t.Errorf("compact output: %s", out.String())
	}
	note, _ := s.memory.Load("bot")
	if note != "compacted" {
		t.Errorf("note = %q, want compacted", note)
	}
}

func TestCompactNothingToDo(t *testing.T) {
	s, out := testShell(t)

	s.handleCommand(context.Background(), "/compact")
	if !strings.Contains(out.String(), "nothing to compact") {
		t.Errorf("output: %s", out.String())
	}
}

func TestRecallWithoutIndex(t *testing.T) {
	s, out := testShell(t)

	s.handleCommand(context.Background(), "/recall parser")
	if !strings.Contains(out.String(), "unavailable") {
		t.Errorf("output: %s", out.String())
	}
}

func TestQuitCommand(t *testing.T) {
	s, _ := testShell(t)

	if !s.handleCommand(context.Background(), "/quit") {
		t.Error("/quit should exit")
	}
	if !s.handleCommand(context.Background(), "/q") {
		t.Error("/q should exit")
	}
	if s.handleCommand(context.Background(), "/help") {
		t.Error("/help should not exit")
	}
}

func TestUnknownCommand(t *testing.T) {
	s, out := testShell(t)

	if s.handleCommand(context.Background(), "/bogus") {
		t.Error("unknown command should not exit")
	}
	if !strings.Contains(out.String(), "unknown command") {
		t.Errorf("output: %s", out.String())
	}
}

// =============================================================================
// TURN CANCELER
// =============================================================================

func TestTurnCancelerInterruptsActiveTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var c turnCanceler
	c.set(cancel)

	done := make(chan struct{})
	go func() {
		c.interrupt()
		close(done)
	}()
	<-done

	select {
	case <-ctx.Done():
	default:
		t.Error("interrupt did not cancel the active turn")
	}
}

func TestTurnCancelerIdleInterruptIsNoOp(t *testing.T) {
	var c turnCanceler
	c.interrupt() // nothing set

	c.set(func() { t.Error("cleared cancel func still invoked") })
	c.set(nil)
	c.interrupt()
}

func TestTurnCancelerConcurrentSetAndInterrupt(t *testing.T) {
	var c turnCanceler
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				c.interrupt()
			}
		}
	}()

	for i := 0; i < 1000; i++ {
		_, cancel := context.WithCancel(context.Background())
		c.set(cancel)
		c.set(nil)
		cancel()
	}
	close(stop)
	wg.Wait()
}

// =============================================================================
// EVENT PRINTER
// =============================================================================

func TestEventPrinterStreamsSuffixes(t *testing.T) {
	out := &bytes.Buffer{}
	p := newEventPrinter(out, nil)

	p.handle(engine.Event{Type: engine.EventText, Text: "Hel"})
	p.handle(engine.Event{Type: engine.EventText, Text: "Hello"})
	p.handle(engine.Event{Type: engine.EventDone, Text: "Hello"})

	if out.String() != "Hello\n" {
		t.Errorf("output = %q, want streamed text once", out.String())
	}
}

type fakeRenderer struct{}

func (fakeRenderer) Render(in string) (string, error) {
	return "rendered:" + in, nil
}

func TestEventPrinterMarkdownCollectsThenRenders(t *testing.T) {
	out := &bytes.Buffer{}
	p := newEventPrinter(out, fakeRenderer{})

	p.handle(engine.Event{Type: engine.EventText, Text: "partial"})
	p.handle(engine.Event{Type: engine.EventDone, Text: "**final**"})

	if out.String() != "rendered:**final**" {
		t.Errorf("output = %q", out.String())
	}
}

func TestEventPrinterToolTrace(t *testing.T) {
	out := &bytes.Buffer{}
	p := newEventPrinter(out, nil)

	p.handle(engine.Event{
		Type:     engine.EventToolArgs,
		ToolName: "bash",
		Args:     map[string]interface{}{"command": "ls"},
	})
	p.handle(engine.Event{Type: engine.EventToolDone, ToolName: "bash"})
	p.handle(engine.Event{Type: engine.EventToolError, ToolName: "grep", Err: "bad pattern"})

	text := out.String()
	for _, want := range []string{"bash", "command=ls", "ok", "grep", "failed", "bad pattern"} {
		if !strings.Contains(text, want) {
			t.Errorf("trace missing %q:\n%s", want, text)
		}
	}
}

func TestFormatArgsSorted(t *testing.T) {
	got := formatArgs(map[string]interface{}{"b": 2, "a": "x"})
	if got != "a=x b=2" {
		t.Errorf("formatArgs = %q", got)
	}
	if formatArgs(nil) != "" {
		t.Error("empty args should render empty")
	}
}

func TestTruncateLine(t *testing.T) {
	if got := truncateLine("one\ntwo", 100); got != "one two" {
		t.Errorf("got %q", got)
	}
	if got := truncateLine("abcdefgh", 5); got != "ab..." {
		t.Errorf("got %q", got)
	}
}
