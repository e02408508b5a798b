// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mention

import (
	"testing"
)

func TestParseLeading(t *testing.T) {
	tests := []struct {
		input    string
		wantName string
		wantRest string
		wantOK   bool
	}{
		{"@reviewer check this file", "reviewer", "check this file", true},
		{"@coder", "coder", "", true},
		{"@coder   spaced out", "coder", "spaced out", true},
		{"@bot\nnext line", "bot", "next line", true},
		{"hello @reviewer", "", "hello @reviewer", false},
		{"plain text", "", "plain text", false},
		{"", "", "", false},
		{"email me at a@b.com", "", "email me at a@b.com", false},
	}

	for _, tt := range tests {
		name, rest, ok := ParseLeading(tt.input)
		if name != tt.wantName || rest != tt.wantRest || ok != tt.wantOK {
			t.Errorf("ParseLeading(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.input, name, rest, ok, tt.wantName, tt.wantRest, tt.wantOK)
		}
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		text     string
		wantName string
		wantOK   bool
	}{
		{"I think @reviewer should look at this", "reviewer", true},
		{"handing off to @debugger", "debugger", true},
		{"ping @architect", "architect", true},
		{"no directive here", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		name, ok := Extract(tt.text)
		if name != tt.wantName || ok != tt.wantOK {
			t.Errorf("Extract(%q) = (%q, %v), want (%q, %v)",
				tt.text, name, ok, tt.wantName, tt.wantOK)
		}
	}
}

func TestExtractEmailLikeText(t *testing.T) {
	// The pattern does not anchor on what precedes the @, so "user@host"
	// yields "host". Harmless: names that resolve to no persona are inert.
	name, ok := Extract("see user@host for details")
	if !ok || name != "host" {
		t.Errorf("Extract(user@host) = (%q, %v), want (host, true)", name, ok)
	}
}
