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

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ente-x/cryptocore/config"
	"github.com/ente-x/cryptocore/internal/logger"
	"github.com/ente-x/cryptocore/internal/metrics"
)

var (
	metricsAddr string
	metricsPath string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Operation metrics for this entectl process",
}

var metricsServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Prometheus scrape endpoint",
	Long: `serve exposes the operation counters and durations (key derivations,
stream chunks, chat datastore queries) on an HTTP scrape endpoint. Useful
when entectl runs long enough to be worth watching; the exported series
never include key material or per-item identifiers.`,
	Example: `  entectl metrics serve --addr :9187`,
	RunE:    runMetricsServe,
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.AddCommand(metricsServeCmd)

	metricsServeCmd.Flags().StringVar(&metricsAddr, "addr", "", "Listen address (default: config metrics.port)")
	metricsServeCmd.Flags().StringVar(&metricsPath, "path", "", "Scrape path (default: config metrics.path)")
}

func runMetricsServe(cmd *cobra.Command, args []string) error {
	addr := metricsAddr
	path := metricsPath
	if addr == "" || path == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if addr == "" {
			port := cfg.Metrics.Port
			if port == 0 {
				port = 9187
			}
			addr = fmt.Sprintf(":%d", port)
		}
		if path == "" {
			path = cfg.Metrics.Path
		}
	}

	logger.Info("metrics endpoint listening",
		logger.String("addr", addr),
		logger.String("path", path))
	if err := metrics.Serve(addr, path); err != nil {
		return logger.NewOpError("metrics serve", err).WithDetail("addr", addr)
	}
	return nil
}
