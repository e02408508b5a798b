// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/harangju/botler/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete botler configuration.
type Config struct {
	// Model settings
	Model Model `toml:"model"`

	// Chat loop settings
	Chat Chat `toml:"chat"`

	// Tool execution settings
	Tools Tools `toml:"tools"`

	// Paths holds the data and workspace directories.
	Paths Paths `toml:"paths"`
}

// Model contains the model transport configuration.
type Model struct {
	// ID is the model identifier sent to the API.
	ID string `toml:"id"`
	// APIKey is the Anthropic API key. Prefer the ANTHROPIC_API_KEY
	// environment variable over storing it here.
	APIKey string `toml:"api_key"`
	// MaxTokens caps response length per request.
	MaxTokens int `toml:"max_tokens"`
	// RequestsPerSecond throttles outbound API calls. 0 disables throttling.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Chat contains the conversation loop configuration.
type Chat struct {
	// DefaultAgent is the persona used when none is mentioned.
	DefaultAgent string `toml:"default_agent"`
	// MaxHops bounds persona handoffs per user input.
	MaxHops int `toml:"max_hops"`
	// MaxToolRounds bounds tool round-trips within a single response.
	MaxToolRounds int `toml:"max_tool_rounds"`
}

// Tools contains tool executor configuration.
type Tools struct {
	// TimeoutSecs is the per-call execution timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxOutputBytes caps captured tool output.
	MaxOutputBytes int `toml:"max_output_bytes"`
}

// Paths contains filesystem locations.
type Paths struct {
	// DataDir holds memory, archive, and history (default ~/.botler).
	DataDir string `toml:"data_dir"`
	// WorkspaceDir is the root that relative tool paths resolve against
	// (default: current working directory).
	WorkspaceDir string `toml:"workspace_dir"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model: Model{
			ID:                "claude-sonnet-4-20250514",
			MaxTokens:         8192,
			RequestsPerSecond: 0,
		},
		Chat: Chat{
			DefaultAgent:  "bot",
			MaxHops:       5,
			MaxToolRounds: 10,
		},
		Tools: Tools{
			TimeoutSecs:    120,
			MaxOutputBytes: 30000,
		},
		Paths: Paths{},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the botler configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".botler"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD
// =============================================================================

// Load loads configuration from BOTLER_CONFIG or ~/.botler/config.toml,
// applies environment overrides, fills defaults, and validates. A missing
// config file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	path := os.Getenv("BOTLER_CONFIG")
	if path == "" {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	if err := cfg.fillPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variables over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Model.APIKey = v
	}
	if v := os.Getenv("BOTLER_MODEL"); v != "" {
		c.Model.ID = v
	}
	if v := os.Getenv("BOTLER_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Model.MaxTokens = n
		}
	}
	if v := os.Getenv("BOTLER_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("BOTLER_WORKSPACE"); v != "" {
		c.Paths.WorkspaceDir = v
	}
	if v := os.Getenv("BOTLER_DEFAULT_AGENT"); v != "" {
		c.Chat.DefaultAgent = v
	}
}

// fillPaths resolves empty path settings to their defaults.
func (c *Config) fillPaths() error {
	if c.Paths.DataDir == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.Paths.DataDir = dir
	}
	if c.Paths.WorkspaceDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("could not determine working directory: %w", err)
		}
		c.Paths.WorkspaceDir = wd
	}
	return nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes the configuration to the default TOML path. Written 0600
// because the file may hold an API key.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return util.AtomicWriteFile(path, []byte(sb.String()), 0o600)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Model.ID == "" {
		errs = append(errs, ValidationError{"model.id", "must not be empty"})
	}
	if c.Model.MaxTokens <= 0 {
		errs = append(errs, ValidationError{"model.max_tokens", "must be positive"})
	}
	if c.Model.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{"model.requests_per_second", "must not be negative"})
	}
	if c.Chat.MaxHops <= 0 {
		errs = append(errs, ValidationError{"chat.max_hops", "must be positive"})
	}
	if c.Chat.MaxToolRounds <= 0 {
		errs = append(errs, ValidationError{"chat.max_tool_rounds", "must be positive"})
	}
	if c.Tools.TimeoutSecs <= 0 {
		errs = append(errs, ValidationError{"tools.timeout_secs", "must be positive"})
	}
	if c.Tools.MaxOutputBytes <= 0 {
		errs = append(errs, ValidationError{"tools.max_output_bytes", "must be positive"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToolTimeout returns the tool timeout as a duration.
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Tools.TimeoutSecs) * time.Second
}

// HistoryPath returns the location of the conversation history index.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}
