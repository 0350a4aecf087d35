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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubstituteEnvVarsUsesEnvironment(t *testing.T) {
	t.Setenv("ENTECTL_TEST_VAR", "resolved-value")
	require.Equal(t, "resolved-value", SubstituteEnvVars("${ENTECTL_TEST_VAR}"))
}

func TestSubstituteEnvVarsFallsBackToDefault(t *testing.T) {
	require.Equal(t, "fallback", SubstituteEnvVars("${ENTECTL_UNSET_VAR:fallback}"))
}

func TestSubstituteEnvVarsNoDefaultAndUnset(t *testing.T) {
	require.Equal(t, "", SubstituteEnvVars("${ENTECTL_TOTALLY_UNSET}"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("ENTECTL_TEST_DB_PATH", "/tmp/chat.db")
	cfg := &Config{ChatDB: ChatDBConfig{Path: "${ENTECTL_TEST_DB_PATH}"}}
	SubstituteEnvVarsInConfig(cfg)
	require.Equal(t, "/tmp/chat.db", cfg.ChatDB.Path)
}

func TestGetEnvironmentDefaultsToDevelopment(t *testing.T) {
	t.Setenv("ENTECTL_ENV", "")
	t.Setenv("ENVIRONMENT", "")
	require.Equal(t, "development", GetEnvironment())
}

func TestGetEnvironmentPrefersEntectlEnv(t *testing.T) {
	t.Setenv("ENTECTL_ENV", "Production")
	require.Equal(t, "production", GetEnvironment())
	require.True(t, IsProduction())
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Setenv("ENTECTL_DEFAULT_TIER", "sensitive")
	t.Setenv("ENTECTL_LOG_LEVEL", "debug")
	t.Setenv("ENTECTL_METRICS_ENABLED", "true")

	cfg := &Config{}
	setDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	require.Equal(t, "sensitive", cfg.Crypto.DefaultTier)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Metrics.Enabled)
}
