// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the interactive chat shell: a readline loop that feeds
// user input through the chain controller and renders the reply stream.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/harangju/botler/internal/agent"
	"github.com/harangju/botler/internal/chain"
	"github.com/harangju/botler/internal/config"
	"github.com/harangju/botler/internal/history"
	"github.com/harangju/botler/internal/memory"
	"github.com/harangju/botler/internal/session"
)

// =============================================================================
// SHELL
// =============================================================================

// Shell drives the interactive conversation loop.
type Shell struct {
	cfg        *config.Config
	catalog    *agent.Catalog
	chain      *chain.Controller
	sess       *session.Session
	memory     *memory.Store
	history    *history.Store // nil when the index failed to open
	summarizer memory.Summarizer

	out      io.Writer
	markdown markdownRenderer
}

// New creates the shell. history may be nil; /recall then reports the
// index as unavailable.
func New(cfg *config.Config, catalog *agent.Catalog, ctrl *chain.Controller, sess *session.Session, mem *memory.Store, hist *history.Store, summarizer memory.Summarizer) *Shell {
	var md markdownRenderer
	if r := newMarkdownRenderer(); r != nil {
		md = r
	}
	return &Shell{
		cfg:        cfg,
		catalog:    catalog,
		chain:      ctrl,
		sess:       sess,
		memory:     mem,
		history:    hist,
		summarizer: summarizer,
		out:        os.Stdout,
		markdown:   md,
	}
}

// Run is the REPL. It returns after /quit, EOF, or an interrupt, with the
// session torn down.
func (s *Shell) Run(ctx context.Context) error {
	input := NewInput(s.cfg.Paths.DataDir)
	defer input.Close()

	s.chain.WithSwitchFunc(func(from, to *agent.Agent) {
		fmt.Fprintf(s.out, "%s %s -> %s\n",
			infoStyle.Render("[switch]"),
			from.Name,
			agentStyle.Render(to.Name))
	})

	// First Ctrl-C during generation cancels the current run; at the
	// prompt, liner surfaces it as ErrPromptAborted and we exit.
	var canceler turnCanceler
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			canceler.interrupt()
		}
	}()

	s.printWelcome()

	for {
		prompt := promptStyle.Render(s.sess.Current().Name + "> ")
		line, err := input.ReadLine(prompt)
		if err != nil {
			// Ctrl-C (ErrPromptAborted), Ctrl-D (EOF), or terminal loss
			// all end the session the same way.
			if err != liner.ErrPromptAborted && err != io.EOF {
				fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[error]"), err)
			}
			fmt.Fprintln(s.out)
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(ctx, line); quit {
				break
			}
			continue
		}

		runCtx, cancel := context.WithCancel(ctx)
		canceler.set(cancel)
		s.runTurn(runCtx, line)
		canceler.set(nil)
		cancel()
	}

	s.sess.Shutdown(context.Background())
	fmt.Fprintln(s.out, infoStyle.Render("Goodbye."))
	return nil
}

// turnCanceler hands the active turn's cancel func from the REPL loop to
// the signal goroutine. Interrupting with no turn active is a no-op.
type turnCanceler struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (c *turnCanceler) set(cancel context.CancelFunc) {
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
}

func (c *turnCanceler) interrupt() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// runTurn sends one user input through the chain and applies the result.
func (s *Shell) runTurn(ctx context.Context, line string) {
	printer := newEventPrinter(s.out, s.markdown)

	res, err := s.chain.Run(ctx, s.sess.Current(), s.sess.Transcript(), line, printer.handle)
	if err != nil {
		fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[error]"), err)
		return
	}

	s.sess.AppendMessages(res.Messages)
	s.sess.SetCurrent(res.Current)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand processes a slash command. Returns true to exit the loop.
func (s *Shell) handleCommand(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "/help", "/h", "/?":
		s.printHelp()

	case "/agents":
		s.printAgents()

	case "/switch":
		s.switchAgent(rest)

	case "/remember":
		s.remember(rest)

	case "/memory":
		s.showMemory()

	case "/compact":
		s.compact(ctx)

	case "/recall":
		s.recall(rest)

	case "/quit", "/q", "/exit":
		return true

	default:
		fmt.Fprintf(s.out, "%s unknown command %s (try /help)\n",
			errorStyle.Render("[error]"), cmd)
	}
	return false
}

func (s *Shell) printAgents() {
	current := s.sess.Current().Name
	for _, a := range s.catalog.List() {
		marker := "  "
		if a.Name == current {
			marker = agentStyle.Render("* ")
		}
		fmt.Fprintf(s.out, "%s%s  %s\n",
			marker,
			commandStyle.Render(fmt.Sprintf("%-10s", a.Name)),
			infoStyle.Render(a.Description))
	}
}

func (s *Shell) switchAgent(name string) {
	if name == "" {
		fmt.Fprintf(s.out, "%s usage: /switch NAME\n", errorStyle.Render("[error]"))
		return
	}
	target, ok := s.catalog.Get(name)
	if !ok {
		fmt.Fprintf(s.out, "%s no such persona: %s\n", errorStyle.Render("[error]"), name)
		return
	}
	s.sess.SetCurrent(target)
	fmt.Fprintf(s.out, "%s now talking to %s\n",
		infoStyle.Render("[switch]"), agentStyle.Render(target.Name))
}

func (s *Shell) remember(text string) {
	if text == "" {
		fmt.Fprintf(s.out, "%s usage: /remember TEXT\n", errorStyle.Render("[error]"))
		return
	}
	name := s.sess.Current().Name
	if err := s.memory.Append(name, text); err != nil {
		fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[error]"), err)
		return
	}
	fmt.Fprintf(s.out, "%s noted for %s\n", commandStyle.Render("[ok]"), name)
}

func (s *Shell) showMemory() {
	name := s.sess.Current().Name
	note, err := s.memory.Load(name)
	if err != nil {
		fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[error]"), err)
		return
	}
	if note == "" {
		fmt.Fprintf(s.out, "%s %s has no memory yet\n", infoStyle.Render("[memory]"), name)
		return
	}
	fmt.Fprintln(s.out, note)
}

func (s *Shell) compact(ctx context.Context) {
	summary := s.sess.Summary()
	if len(summary.Messages) == 0 {
		fmt.Fprintf(s.out, "%s nothing to compact yet\n", infoStyle.Render("[memory]"))
		return
	}
	cur := s.sess.Current()
	name := cur.Name
	summary.AgentName = name

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	updated, err := s.memory.Compact(ctx, name, cur.SystemPrompt, s.summarizer, summary)
	if err != nil {
		fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[error]"), err)
		return
	}
	fmt.Fprintf(s.out, "%s memory for %s updated (%d bytes)\n",
		commandStyle.Render("[ok]"), name, len(updated))
}

func (s *Shell) recall(query string) {
	if s.history == nil {
		fmt.Fprintf(s.out, "%s history index unavailable\n", errorStyle.Render("[error]"))
		return
	}
	if query == "" {
		fmt.Fprintf(s.out, "%s usage: /recall QUERY\n", errorStyle.Render("[error]"))
		return
	}
	entries, err := s.history.Search(query, 0)
	if err != nil {
		fmt.Fprintf(s.out, "%s %v\n", errorStyle.Render("[error]"), err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintf(s.out, "%s no matches\n", infoStyle.Render("[recall]"))
		return
	}
	for _, e := range entries {
		who := string(e.Role)
		if e.AgentName != "" {
			who = e.AgentName
		}
		fmt.Fprintf(s.out, "%s %s %s\n",
			traceStyle.Render(e.CreatedAt.Format("2006-01-02 15:04")),
			agentStyle.Render(who+":"),
			truncateLine(e.Content, 100))
	}
}

// =============================================================================
// BANNERS
// =============================================================================

func (s *Shell) printWelcome() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, agentStyle.Render("botler"))
	fmt.Fprintf(s.out, "%s %s\n",
		infoStyle.Render("model:"),
		commandStyle.Render(s.cfg.Model.ID))
	fmt.Fprintf(s.out, "%s %s\n",
		infoStyle.Render("persona:"),
		commandStyle.Render(s.sess.Current().Name))
	fmt.Fprintln(s.out, infoStyle.Render("Type a message, @name to address a persona, /help for commands."))
	fmt.Fprintln(s.out)
}

func (s *Shell) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/agents", "List personas"},
		{"/switch NAME", "Talk to a persona"},
		{"/remember TEXT", "Append to the current persona's memory"},
		{"/memory", "Show the current persona's memory"},
		{"/compact", "Fold this session into the persona's memory"},
		{"/recall QUERY", "Search past conversations"},
		{"/help", "Show this help"},
		{"/quit", "Exit"},
	}
	fmt.Fprintln(s.out)
	for _, c := range commands {
		fmt.Fprintf(s.out, "  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-16s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, infoStyle.Render("@name at the start of a message routes it; alone it switches personas."))
	fmt.Fprintln(s.out)
}
