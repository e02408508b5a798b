// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chain runs one user input to completion across persona handoffs.
//
// A leading @name directive routes the input; an @name mention in a reply
// hands the conversation to that persona, bounded by MaxHops engine runs.
// Reaching the bound stops the chain silently with the last answer.
package chain

import (
	"context"

	"github.com/harangju/botler/internal/agent"
	"github.com/harangju/botler/internal/engine"
	"github.com/harangju/botler/internal/mention"
	"github.com/harangju/botler/internal/model"
)

// DefaultMaxHops bounds persona handoffs per user input.
const DefaultMaxHops = 5

// Runner executes one persona turn. Satisfied by *engine.Engine.
type Runner interface {
	Run(ctx context.Context, in engine.RunInput, emit func(engine.Event)) (string, error)
}

// MemoryLoader loads a persona's durable note. Satisfied by *memory.Store.
type MemoryLoader interface {
	Load(agentName string) (string, error)
}

// Controller chains persona turns for one user input.
type Controller struct {
	runner  Runner
	catalog *agent.Catalog
	memory  MemoryLoader
	maxHops int

	// onSwitch, when set, is called for every persona change: leading
	// directives, directive-only switches, and reply handoffs.
	onSwitch func(from, to *agent.Agent)
}

// New creates a controller over the given runner, persona catalog, and
// memory loader.
func New(runner Runner, catalog *agent.Catalog, memory MemoryLoader) *Controller {
	return &Controller{
		runner:  runner,
		catalog: catalog,
		memory:  memory,
		maxHops: DefaultMaxHops,
	}
}

// WithMaxHops sets the engine-run bound per user input.
func (c *Controller) WithMaxHops(n int) *Controller {
	if n > 0 {
		c.maxHops = n
	}
	return c
}

// WithSwitchFunc sets the persona-change callback.
func (c *Controller) WithSwitchFunc(fn func(from, to *agent.Agent)) *Controller {
	c.onSwitch = fn
	return c
}

// Result reports one completed input.
type Result struct {
	// Messages holds the turns this input added to the transcript: the
	// user message (directive stripped) followed by each persona's reply,
	// tagged with the persona that produced it.
	Messages []model.Message

	// Current is the persona the session should continue with.
	Current *agent.Agent

	// Switched reports a directive-only input that changed personas
	// without running the engine.
	Switched bool
}

// Run processes one user input. Engine events from every hop are relayed
// unchanged to emit.
func (c *Controller) Run(ctx context.Context, current *agent.Agent, transcript []model.Message, input string, emit func(engine.Event)) (*Result, error) {
	active := current
	persist := current

	// Leading directive routes this input; alone, it is a pure switch.
	if name, rest, ok := mention.ParseLeading(input); ok {
		if target, found := c.catalog.Get(name); found {
			if rest == "" {
				c.reportSwitch(current, target)
				return &Result{Current: target, Switched: true}, nil
			}
			if target != active {
				c.reportSwitch(active, target)
			}
			active = target
			input = rest
		}
		// Unknown names are inert: the text, directive included, goes to
		// the current persona unaltered.
	}

	msgs := make([]model.Message, len(transcript), len(transcript)+2)
	copy(msgs, transcript)
	msgs = append(msgs, model.NewUserMessage(input))

	runs := 0
	for {
		memoryText, err := c.memory.Load(active.Name)
		if err != nil {
			memoryText = ""
		}

		final, err := c.runner.Run(ctx, engine.RunInput{
			Agent:      active,
			Memory:     memoryText,
			Transcript: msgs,
		}, emit)
		if err != nil {
			return nil, err
		}
		runs++

		msgs = append(msgs, model.NewAssistantMessage(active.Name, final))

		if runs >= c.maxHops {
			// Hop cap: stop silently with the last answer.
			break
		}

		name, ok := mention.Extract(final)
		if !ok {
			break
		}
		next, found := c.catalog.Get(name)
		if !found || next == active {
			break
		}

		c.reportSwitch(active, next)
		active = next
		persist = next
	}

	return &Result{
		Messages: msgs[len(transcript):],
		Current:  persist,
	}, nil
}

func (c *Controller) reportSwitch(from, to *agent.Agent) {
	if c.onSwitch != nil {
		c.onSwitch(from, to)
	}
}
