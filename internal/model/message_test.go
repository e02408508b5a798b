// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if msg.AgentName != "" {
		t.Errorf("AgentName = %q, want empty", msg.AgentName)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestNewAssistantMessage(t *testing.T) {
	msg := NewAssistantMessage("reviewer", "looks good")

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %q, want %q", msg.Role, RoleAssistant)
	}
	if msg.AgentName != "reviewer" {
		t.Errorf("AgentName = %q, want %q", msg.AgentName, "reviewer")
	}
}

func TestMessageZeroTimestampOmitted(t *testing.T) {
	data, err := json.Marshal(Message{Role: RoleUser, Content: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "timestamp") {
		t.Errorf("zero timestamp serialized: %s", data)
	}

	data, err = json.Marshal(NewUserMessage("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "timestamp") {
		t.Errorf("set timestamp missing: %s", data)
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAssistant.Valid() {
		t.Error("user and assistant roles should be valid")
	}
	if Role("system").Valid() {
		t.Error("system is not a transcript role")
	}
}

func TestMessageIsEmpty(t *testing.T) {
	if !(Message{}).IsEmpty() {
		t.Error("zero message should be empty")
	}
	if NewUserMessage("x").IsEmpty() {
		t.Error("message with content should not be empty")
	}
}
