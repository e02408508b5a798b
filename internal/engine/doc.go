// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine runs one persona turn to completion: it streams a model
// request, executes any requested tools, reports results back to the model,
// and loops until the model stops asking for tools or the round bound is
// reached.
//
// Progress is reported through an emit func as Events. Text events carry
// the CUMULATIVE text so far, not deltas. A successful run terminates in
// exactly one done event; a transport failure surfaces as an error return
// instead.
package engine
