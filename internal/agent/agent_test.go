// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"testing"
)

func TestBuiltins(t *testing.T) {
	c := Builtins()

	for _, name := range []string{"bot", "coder", "reviewer", "architect", "debugger"} {
		a, ok := c.Get(name)
		if !ok {
			t.Fatalf("builtin %q missing", name)
		}
		if a.SystemPrompt == "" {
			t.Errorf("builtin %q has empty system prompt", name)
		}
	}

	if def := c.Default(); def == nil || def.Name != "bot" {
		t.Errorf("default persona = %v, want bot", def)
	}
}

func TestGetCaseInsensitive(t *testing.T) {
	c := Builtins()

	for _, name := range []string{"Reviewer", "REVIEWER", "reviewer"} {
		a, ok := c.Get(name)
		if !ok || a.Name != "reviewer" {
			t.Errorf("Get(%q) = %v, %v; want reviewer", name, a, ok)
		}
	}

	if _, ok := c.Get("nosuch"); ok {
		t.Error("Get(nosuch) should fail")
	}
}

func TestListSorted(t *testing.T) {
	c := Builtins()

	list := c.List()
	if len(list) != 5 {
		t.Fatalf("List returned %d personas, want 5", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Name >= list[i].Name {
			t.Errorf("List not sorted: %q before %q", list[i-1].Name, list[i].Name)
		}
	}
}

func TestRegisterReplaces(t *testing.T) {
	c := NewCatalog("bot")
	c.Register(&Agent{Name: "bot", SystemPrompt: "first"})
	c.Register(&Agent{Name: "Bot", SystemPrompt: "second"})

	a, ok := c.Get("bot")
	if !ok || a.SystemPrompt != "second" {
		t.Errorf("expected replacement, got %v", a)
	}
	if len(c.List()) != 1 {
		t.Errorf("expected 1 persona, got %d", len(c.List()))
	}
}
