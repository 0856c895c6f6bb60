// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for mentor.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.mentor/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete mentor configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `toml:"server"`

	// Relay bridge configuration
	Relay RelayConfig `toml:"relay"`

	// Health monitoring configuration
	Health HealthConfig `toml:"health"`

	// Workspace pane configuration
	Workspace WorkspaceConfig `toml:"workspace"`

	// Student identity for the legacy one-shot endpoints
	Student StudentConfig `toml:"student"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ServerConfig contains the chat server connection settings.
type ServerConfig struct {
	// URL is the chat server base URL
	URL string `toml:"url"`
	// TimeoutSecs is the timeout for non-streaming requests in seconds
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries bounds the turn-start retry loop
	MaxRetries int `toml:"max_retries"`
	// RetryDelaySecs is the delay between turn-start attempts in seconds
	RetryDelaySecs int `toml:"retry_delay_secs"`
}

// RelayConfig contains the relay bridge settings.
type RelayConfig struct {
	// Enabled turns the relay bridge on
	Enabled bool `toml:"enabled"`
	// URL is the relay websocket endpoint
	URL string `toml:"url"`
	// RetryDelaySecs is the fixed reconnect delay in seconds
	RetryDelaySecs int `toml:"retry_delay_secs"`
	// ReplayLimit caps how many messages are replayed on connect
	ReplayLimit int `toml:"replay_limit"`
}

// HealthConfig contains the liveness monitor settings.
type HealthConfig struct {
	// IntervalSecs is the probe interval in seconds
	IntervalSecs int `toml:"interval_secs"`
	// WakeGraceSecs suppresses probes after a wake from suspension
	WakeGraceSecs int `toml:"wake_grace_secs"`
	// FailureThreshold is how many consecutive soft failures trigger the
	// connection-lost notice
	FailureThreshold int `toml:"failure_threshold"`
}

// WorkspaceConfig contains the workspace pane settings.
type WorkspaceConfig struct {
	// Language is the initial editor mode
	Language string `toml:"language"`
	// ScratchDir overrides where the external-editor scratch file lives
	// (empty = system temp directory)
	ScratchDir string `toml:"scratch_dir"`
}

// StudentConfig identifies the student on the legacy endpoints. All fields
// are optional; the streaming endpoints identify the session server-side.
type StudentConfig struct {
	Name      string `toml:"name"`
	StudentNr string `toml:"student_nr"`
	Course    string `toml:"course"`
	Chapter   string `toml:"chapter"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// AIName is the display name for the assistant
	AIName string `toml:"ai_name"`
	// ShowSources displays source references under assistant messages
	ShowSources bool `toml:"show_sources"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "http://127.0.0.1:5000",
			TimeoutSecs:    30,
			MaxRetries:     3,
			RetryDelaySecs: 1,
		},
		Relay: RelayConfig{
			Enabled:        false,
			URL:            "ws://127.0.0.1:8080",
			RetryDelaySecs: 3,
			ReplayLimit:    50,
		},
		Health: HealthConfig{
			IntervalSecs:     60,
			WakeGraceSecs:    15,
			FailureThreshold: 3,
		},
		Workspace: WorkspaceConfig{
			Language: "markdown",
		},
		UI: UIConfig{
			Theme:       "dark",
			AIName:      "Mentor",
			ShowSources: true,
			CompactMode: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the mentor configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mentor"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to defaults
// when no file exists. Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := loadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.MaxRetries == 0 {
		c.Server.MaxRetries = defaults.Server.MaxRetries
	}
	if c.Server.RetryDelaySecs == 0 {
		c.Server.RetryDelaySecs = defaults.Server.RetryDelaySecs
	}

	if c.Relay.URL == "" {
		c.Relay.URL = defaults.Relay.URL
	}
	if c.Relay.RetryDelaySecs == 0 {
		c.Relay.RetryDelaySecs = defaults.Relay.RetryDelaySecs
	}
	if c.Relay.ReplayLimit == 0 {
		c.Relay.ReplayLimit = defaults.Relay.ReplayLimit
	}

	if c.Health.IntervalSecs == 0 {
		c.Health.IntervalSecs = defaults.Health.IntervalSecs
	}
	if c.Health.WakeGraceSecs == 0 {
		c.Health.WakeGraceSecs = defaults.Health.WakeGraceSecs
	}
	if c.Health.FailureThreshold == 0 {
		c.Health.FailureThreshold = defaults.Health.FailureThreshold
	}

	if c.Workspace.Language == "" {
		c.Workspace.Language = defaults.Workspace.Language
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.AIName == "" {
		c.UI.AIName = defaults.UI.AIName
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# mentor configuration file")
	fmt.Fprintln(file, "# Generated by mentor - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.Server.URL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "server.url",
			Message: fmt.Sprintf("invalid scheme '%s', must be http or https", u.Scheme),
		})
	}

	if u, err := url.Parse(c.Relay.URL); err != nil {
		errs = append(errs, ValidationError{
			Field:   "relay.url",
			Message: fmt.Sprintf("invalid URL: %v", err),
		})
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		errs = append(errs, ValidationError{
			Field:   "relay.url",
			Message: fmt.Sprintf("invalid scheme '%s', must be ws or wss", u.Scheme),
		})
	}

	if c.Server.MaxRetries < 1 {
		errs = append(errs, ValidationError{
			Field:   "server.max_retries",
			Message: "must be at least 1",
		})
	}

	if c.Health.FailureThreshold < 1 {
		errs = append(errs, ValidationError{
			Field:   "health.failure_threshold",
			Message: "must be at least 1",
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
func (c *Config) ApplyEnvOverrides() {
	// MENTOR_SERVER_URL
	if u := os.Getenv("MENTOR_SERVER_URL"); u != "" {
		c.Server.URL = u
	}

	// MENTOR_RELAY_URL
	if u := os.Getenv("MENTOR_RELAY_URL"); u != "" {
		c.Relay.URL = u
	}

	// MENTOR_RELAY enables or disables the bridge
	if relay := os.Getenv("MENTOR_RELAY"); relay != "" {
		c.Relay.Enabled = relay == "1" || strings.ToLower(relay) == "true"
	}

	// MENTOR_THEME
	if theme := os.Getenv("MENTOR_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	// MENTOR_HEALTH_INTERVAL in seconds
	if interval := os.Getenv("MENTOR_HEALTH_INTERVAL"); interval != "" {
		if secs, err := strconv.Atoi(interval); err == nil && secs > 0 {
			c.Health.IntervalSecs = secs
		}
	}
}
