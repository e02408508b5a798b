// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package memory stores each persona's durable note: a free-form markdown
// file that survives across sessions.
//
// The note is only ever replaced wholesale by compaction; Append adds to
// it, Load never fails for a persona that has no note yet. A failed
// compaction leaves the stored bytes untouched.
//
// Layout: <root>/agents/<name>/memory.md
package memory
