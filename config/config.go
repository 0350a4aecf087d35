// Copyright (C) 2025 ente-x
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package config provides the operational configuration for cmd/entectl and
// chatdb bootstrapping: non-secret knobs like the default Argon2 tier, the
// chat database path, the attachment store root, and logging/metrics
// settings. The cryptographic core itself reads no environment variables;
// this layer exists only for the outer CLI and datastore wiring.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ente-x/cryptocore/internal/logger"
)

// Config is the root configuration loaded from YAML/JSON and environment
// overrides.
type Config struct {
	Environment string        `yaml:"environment" json:"environment"`
	Crypto      CryptoConfig  `yaml:"crypto" json:"crypto"`
	ChatDB      ChatDBConfig  `yaml:"chatdb" json:"chatdb"`
	Logging     LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig `yaml:"metrics" json:"metrics"`
}

// CryptoConfig selects the default Argon2id tier new signups derive their
// KEK at, and whether the adaptive SENSITIVE search is allowed to run at
// all on this device class.
type CryptoConfig struct {
	DefaultTier   string `yaml:"default_tier" json:"default_tier"` // interactive, moderate, sensitive
	AllowAdaptive bool   `yaml:"allow_adaptive" json:"allow_adaptive"`
}

// ChatDBConfig locates the encrypted SQLite store and its attachment
// directory.
type ChatDBConfig struct {
	Path           string `yaml:"path" json:"path"`
	AttachmentRoot string `yaml:"attachment_root" json:"attachment_root"`
}

// LoggingConfig configures the structured logger (internal/logger).
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // json, text
	Output string `yaml:"output" json:"output"` // stdout, stderr, file path
}

// MetricsConfig configures the Prometheus exporter (internal/metrics).
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

var validTiers = map[string]bool{"interactive": true, "moderate": true, "sensitive": true}

// NewLogger builds a logger.Logger from cfg.Logging: it resolves the
// configured level and output destination (stdout, stderr, or a file path)
// and returns a logger ready to install with logger.SetDefaultLogger.
func (c *Config) NewLogger() (logger.Logger, error) {
	level := logger.ParseLevel(c.Logging.Level)

	var out *os.File
	switch c.Logging.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(c.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("config: failed to open log output %q: %w", c.Logging.Output, err)
		}
		out = f
	}

	l := logger.NewLogger(out, level)
	l.SetPrettyPrint(c.Logging.Format == "text")
	return l.WithFields(logger.String("environment", c.Environment)), nil
}

// LoadFromFile loads configuration from a YAML (or, failing that, JSON)
// file and applies defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by file extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write config file: %w", err)
	}
	return nil
}

// setDefaults fills in zero-valued fields with the product's defaults.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Crypto.DefaultTier == "" {
		cfg.Crypto.DefaultTier = "interactive"
	}
	if cfg.ChatDB.Path == "" {
		cfg.ChatDB.Path = "entectl.db"
	}
	if cfg.ChatDB.AttachmentRoot == "" {
		cfg.ChatDB.AttachmentRoot = "attachments"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// ValidationIssue describes one configuration problem. Level "error" fails
// loading; "warn" is surfaced but non-fatal.
type ValidationIssue struct {
	Field   string
	Message string
	Level   string
}

// Validate checks cfg for internally inconsistent or unusable values.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if !validTiers[cfg.Crypto.DefaultTier] {
		issues = append(issues, ValidationIssue{
			Field:   "crypto.default_tier",
			Message: fmt.Sprintf("unknown tier %q, must be interactive, moderate, or sensitive", cfg.Crypto.DefaultTier),
			Level:   "error",
		})
	}
	if cfg.ChatDB.Path == "" {
		issues = append(issues, ValidationIssue{Field: "chatdb.path", Message: "must not be empty", Level: "error"})
	}
	if cfg.Metrics.Enabled && (cfg.Metrics.Port <= 0 || cfg.Metrics.Port > 65535) {
		issues = append(issues, ValidationIssue{
			Field:   "metrics.port",
			Message: fmt.Sprintf("invalid port %d for enabled metrics server", cfg.Metrics.Port),
			Level:   "error",
		})
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, ValidationIssue{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", cfg.Logging.Level),
			Level:   "warn",
		})
	}
	return issues
}
