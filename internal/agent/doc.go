// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent holds the persona catalog: the named system prompts a
// conversation can run under. Lookup is case-insensitive; "bot" is the
// default persona when none is named.
package agent
