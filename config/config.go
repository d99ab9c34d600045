// Copyright 2026 The Sigctl Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for sigctl.
//
// Configuration is loaded from a single file specified by:
//   - SIGCTL_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic configuration with no hidden overrides. Command-line
// flags still win over file values; the file only replaces the
// built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the sigctl configuration.
type Config struct {
	// Server is the broker URI to connect to on startup.
	Server string `yaml:"server"`

	// TokenFile is a file whose content is installed as the access
	// token before connecting. Empty means no token.
	TokenFile string `yaml:"token_file"`

	// Color selects output styling: auto, always, or never.
	Color string `yaml:"color"`

	// HistoryFile is where the line editor persists input history.
	// Empty disables history persistence.
	HistoryFile string `yaml:"history_file"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// Default returns the default configuration. These defaults are the
// base that a config file and flags layer on top of.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Server:      "memory://demo",
		Color:       "auto",
		HistoryFile: filepath.Join(homeDir, ".cache", "sigctl", "history"),
	}
}

// Load loads configuration from the SIGCTL_CONFIG environment
// variable. When the variable is unset the defaults are returned
// unchanged: unlike a server daemon, an interactive client must start
// without any configuration present.
func Load() (*Config, error) {
	configPath := os.Getenv("SIGCTL_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The file is
// the single source of truth below the flag layer; environment
// variables do not override individual values. The only expansion
// performed is ${HOME} in paths for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.expandVariables()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always, or never)", c.Color)
	}
	return nil
}

// expandVariables expands ${HOME} in path fields.
func (c *Config) expandVariables() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return
	}
	expand := func(path string) string {
		return os.Expand(path, func(name string) string {
			if name == "HOME" {
				return homeDir
			}
			return "${" + name + "}"
		})
	}
	c.TokenFile = expand(c.TokenFile)
	c.HistoryFile = expand(c.HistoryFile)
}
