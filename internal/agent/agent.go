// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"sort"
	"strings"
)

// =============================================================================
// AGENT TYPE
// =============================================================================

// Agent is a named persona: a system prompt plus a short description shown
// in the catalog listing.
type Agent struct {
	Name         string
	Description  string
	SystemPrompt string
}

// =============================================================================
// CATALOG
// =============================================================================

// Catalog is a registry of personas keyed by lowercase name.
type Catalog struct {
	agents  map[string]*Agent
	defName string
}

// NewCatalog creates an empty catalog with the given default persona name.
func NewCatalog(defaultName string) *Catalog {
	return &Catalog{
		agents:  make(map[string]*Agent),
		defName: strings.ToLower(defaultName),
	}
}

// Register adds a persona to the catalog, replacing any existing persona
// with the same name.
func (c *Catalog) Register(a *Agent) {
	c.agents[strings.ToLower(a.Name)] = a
}

// Get returns the persona with the given name, case-insensitively.
func (c *Catalog) Get(name string) (*Agent, bool) {
	a, ok := c.agents[strings.ToLower(name)]
	return a, ok
}

// Default returns the catalog's default persona.
func (c *Catalog) Default() *Agent {
	a, ok := c.agents[c.defName]
	if !ok {
		// Fall back to any persona so callers never receive nil from a
		// non-empty catalog.
		for _, v := range c.agents {
			return v
		}
		return nil
	}
	return a
}

// List returns all personas sorted by name.
func (c *Catalog) List() []*Agent {
	out := make([]*Agent, 0, len(c.agents))
	for _, a := range c.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// =============================================================================
// BUILTIN PERSONAS
// =============================================================================

const sharedGuidance = `You can hand the conversation to another persona by writing @name in your reply (for example "@reviewer please check this"). Only do this when the other persona is clearly better suited. Available personas: coder, reviewer, architect, debugger, bot.`

// Builtins returns the catalog preloaded with the standard personas.
// "bot" is the default.
func Builtins() *Catalog {
	c := NewCatalog("bot")
	c.Register(&Agent{
		Name:        "bot",
		Description: "General-purpose assistant",
		SystemPrompt: "You are bot, a capable general-purpose assistant working in a terminal. " +
			"Answer directly and concisely. Use the available tools when a task requires " +
			"running commands or touching files.\n\n" + sharedGuidance,
	})
	c.Register(&Agent{
		Name:        "coder",
		Description: "Writes and modifies code",
		SystemPrompt: "You are coder, a pragmatic software engineer. You write clean, working " +
			"code and prefer small focused changes. Read existing files before editing them " +
			"and keep to the surrounding style.\n\n" + sharedGuidance,
	})
	c.Register(&Agent{
		Name:        "reviewer",
		Description: "Reviews code for defects and style",
		SystemPrompt: "You are reviewer, a careful code reviewer. Look for correctness bugs, " +
			"missing error handling, race conditions, and unclear naming. Point at specific " +
			"lines and suggest concrete fixes. Do not rewrite code wholesale.\n\n" + sharedGuidance,
	})
	c.Register(&Agent{
		Name:        "architect",
		Description: "Designs systems and module boundaries",
		SystemPrompt: "You are architect, a systems designer. Think in terms of interfaces, " +
			"data flow, and failure modes. Propose the simplest structure that satisfies the " +
			"requirements and explain the trade-offs briefly.\n\n" + sharedGuidance,
	})
	c.Register(&Agent{
		Name:        "debugger",
		Description: "Investigates failures and reproduces bugs",
		SystemPrompt: "You are debugger, a methodical failure investigator. Reproduce the " +
			"problem first, narrow it with the available tools, and state the root cause " +
			"before proposing a fix.\n\n" + sharedGuidance,
	})
	return c
}
