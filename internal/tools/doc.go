// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools provides the agentic tool system for botler.
//
// Tools are described by a Schema convertible to the JSON schema the model
// transport sends, registered in a Registry, and run through an Executor
// that handles validation, timeouts, output truncation, and history.
//
// # Key Types
//
//   - Tool: name, description, schema, and executor for one tool
//   - Registry: case-insensitive tool lookup
//   - Executor: orchestrates execution with timeout and truncation
//   - Result: outcome of one execution
//
// A failing tool produces an error Result; it never aborts the session.
package tools
