// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures shared by the orchestration
// core: conversation messages, tool-call lifecycle records, and the session
// summary handed to memory compaction.
//
// # Key Types
//
//   - Message: a single transcript entry (user or assistant)
//   - ToolCall: mutable record tracking one tool invocation
//   - SessionSummary: transcript + touched files, input to compaction
//
// Transcript order is meaningful and never reordered.
package model
