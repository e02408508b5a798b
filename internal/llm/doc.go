// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm provides the Anthropic Messages API client for botler.
//
// The client speaks the streaming SSE protocol, assembles content blocks
// (text and tool_use) from deltas, and retries transient failures with
// exponential backoff. Tool-use block ids are assigned by the API and
// passed through unchanged.
//
// LLM: Secure logging, retry logic, and validation
package llm
