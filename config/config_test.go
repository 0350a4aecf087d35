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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
environment: staging
crypto:
  default_tier: moderate
  allow_adaptive: true
chatdb:
  path: /var/lib/entectl/chat.db
  attachment_root: /var/lib/entectl/attachments
logging:
  level: debug
  format: text
metrics:
  enabled: true
  port: 9090
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.Environment)
	require.Equal(t, "moderate", cfg.Crypto.DefaultTier)
	require.True(t, cfg.Crypto.AllowAdaptive)
	require.Equal(t, "/var/lib/entectl/chat.db", cfg.ChatDB.Path)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Metrics.Enabled)
	require.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: production\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "interactive", cfg.Crypto.DefaultTier)
	require.Equal(t, "entectl.db", cfg.ChatDB.Path)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := &Config{Environment: "test"}
	setDefaults(cfg)
	cfg.Crypto.DefaultTier = "sensitive"

	require.NoError(t, SaveToFile(cfg, path))
	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Environment, loaded.Environment)
	require.Equal(t, "sensitive", loaded.Crypto.DefaultTier)
}

func TestValidateRejectsUnknownTier(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Crypto.DefaultTier = "ultra"

	issues := Validate(cfg)
	found := false
	for _, i := range issues {
		if i.Field == "crypto.default_tier" && i.Level == "error" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateRejectsBadMetricsPort(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 0

	issues := Validate(cfg)
	found := false
	for _, i := range issues {
		if i.Field == "metrics.port" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidatePassesWithDefaults(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	issues := Validate(cfg)
	for _, i := range issues {
		require.NotEqual(t, "error", i.Level, i.Message)
	}
}

func TestNewLoggerWritesToConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "entectl.log")

	cfg := &Config{Environment: "test"}
	setDefaults(cfg)
	cfg.Logging.Output = logPath
	cfg.Logging.Level = "warn"

	log, err := cfg.NewLogger()
	require.NoError(t, err)

	log.Info("should be filtered out by the warn level")
	log.Warn("disk is getting full")

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.NotContains(t, string(data), "should be filtered out")
	require.Contains(t, string(data), "disk is getting full")
	require.Contains(t, string(data), `"environment":"test"`)
}

func TestNewLoggerRejectsUnwritableOutput(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Logging.Output = filepath.Join(t.TempDir(), "missing-dir", "entectl.log")

	_, err := cfg.NewLogger()
	require.Error(t, err)
}
