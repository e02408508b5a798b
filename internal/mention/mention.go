// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mention parses @name persona directives out of message text.
// A leading directive routes the user's input; an embedded directive in an
// assistant reply hands the conversation off. Names that resolve to no
// persona are inert and leave the text usable as-is.
package mention

import (
	"regexp"
)

var (
	// leadingRe matches a directive at the very start of the input and the
	// whitespace that follows it.
	leadingRe = regexp.MustCompile(`^@(\w+)\s*`)

	// embeddedRe matches a directive anywhere, terminated by whitespace or
	// end of string, so "user@host" does not count.
	embeddedRe = regexp.MustCompile(`@(\w+)(\s|$)`)
)

// ParseLeading extracts a directive at the start of the input. It returns
// the mentioned name, the remaining content with the directive and trailing
// whitespace removed, and whether a directive was present. Content is
// returned unmodified when there is no leading directive.
func ParseLeading(input string) (name, rest string, ok bool) {
	m := leadingRe.FindStringSubmatch(input)
	if m == nil {
		return "", input, false
	}
	return m[1], input[len(m[0]):], true
}

// Extract returns the first directive found anywhere in the text, or false
// when there is none. The text itself is never altered.
func Extract(text string) (name string, ok bool) {
	m := embeddedRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
