// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Model.ID == "" {
		t.Error("default model id should not be empty")
	}
	if cfg.Chat.DefaultAgent != "bot" {
		t.Errorf("default agent = %q, want bot", cfg.Chat.DefaultAgent)
	}
	if cfg.Chat.MaxHops != 5 {
		t.Errorf("max hops = %d, want 5", cfg.Chat.MaxHops)
	}
	if cfg.Chat.MaxToolRounds != 10 {
		t.Errorf("max tool rounds = %d, want 10", cfg.Chat.MaxToolRounds)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[model]
id = "claude-test"
max_tokens = 1024

[chat]
default_agent = "coder"
max_hops = 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Model.ID != "claude-test" {
		t.Errorf("model id = %q, want claude-test", cfg.Model.ID)
	}
	if cfg.Model.MaxTokens != 1024 {
		t.Errorf("max tokens = %d, want 1024", cfg.Model.MaxTokens)
	}
	if cfg.Chat.DefaultAgent != "coder" {
		t.Errorf("default agent = %q, want coder", cfg.Chat.DefaultAgent)
	}
	// Unset fields keep their defaults.
	if cfg.Chat.MaxToolRounds != 10 {
		t.Errorf("max tool rounds = %d, want default 10", cfg.Chat.MaxToolRounds)
	}
	if cfg.Paths.DataDir == "" || cfg.Paths.WorkspaceDir == "" {
		t.Error("paths should be filled with defaults")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test-key")
	t.Setenv("BOTLER_MODEL", "claude-env")
	t.Setenv("BOTLER_DATA_DIR", t.TempDir())

	cfg := Default()
	cfg.applyEnvOverrides()

	if cfg.Model.APIKey != "sk-test-key" {
		t.Errorf("api key = %q, want env value", cfg.Model.APIKey)
	}
	if cfg.Model.ID != "claude-env" {
		t.Errorf("model id = %q, want claude-env", cfg.Model.ID)
	}
	if cfg.Paths.DataDir == "" {
		t.Error("data dir should be overridden")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Model.ID = ""
	cfg.Chat.MaxHops = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	errs, ok := err.(ValidateErrors)
	if !ok {
		t.Fatalf("expected ValidateErrors, got %T", err)
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateDefaultsPass(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}
