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
	"regexp"
	"strconv"
	"strings"
)

// envVarPattern matches ${VAR} or ${VAR:default}.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// SubstituteEnvVars replaces ${VAR} or ${VAR:default} with environment
// variable values, falling back to the given default when VAR is unset.
func SubstituteEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// SubstituteEnvVarsInConfig expands ${VAR}/${VAR:default} references in
// the chatdb, logging and metrics string fields of cfg. Environment and
// Crypto.DefaultTier are left as they are.
func SubstituteEnvVarsInConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.ChatDB.Path = SubstituteEnvVars(cfg.ChatDB.Path)
	cfg.ChatDB.AttachmentRoot = SubstituteEnvVars(cfg.ChatDB.AttachmentRoot)
	cfg.Logging.Level = SubstituteEnvVars(cfg.Logging.Level)
	cfg.Logging.Format = SubstituteEnvVars(cfg.Logging.Format)
	cfg.Logging.Output = SubstituteEnvVars(cfg.Logging.Output)
	cfg.Metrics.Path = SubstituteEnvVars(cfg.Metrics.Path)
}

// GetEnvironment returns the current environment from ENTECTL_ENV or
// ENVIRONMENT, defaulting to "development".
func GetEnvironment() string {
	env := os.Getenv("ENTECTL_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = "development"
	}
	return strings.ToLower(env)
}

// IsProduction reports whether GetEnvironment is "production".
func IsProduction() bool {
	return GetEnvironment() == "production"
}

// applyEnvironmentOverrides applies the highest-priority environment
// variable overrides, taking precedence over both the file and the
// ${VAR} substitution pass.
func applyEnvironmentOverrides(cfg *Config) {
	if tier := os.Getenv("ENTECTL_DEFAULT_TIER"); tier != "" {
		cfg.Crypto.DefaultTier = tier
	}
	if dbPath := os.Getenv("ENTECTL_CHATDB_PATH"); dbPath != "" {
		cfg.ChatDB.Path = dbPath
	}
	if root := os.Getenv("ENTECTL_ATTACHMENT_ROOT"); root != "" {
		cfg.ChatDB.AttachmentRoot = root
	}
	if level := os.Getenv("ENTECTL_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("ENTECTL_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if enabled, err := strconv.ParseBool(os.Getenv("ENTECTL_METRICS_ENABLED")); err == nil {
		cfg.Metrics.Enabled = enabled
	}
}
