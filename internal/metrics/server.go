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

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPath is the scrape path Serve falls back to.
const DefaultPath = "/metrics"

// Handler returns the scrape handler for this module's private Registry.
// Only the entectl-namespaced operation counters and durations are
// registered there; the Registry never carries key material, plaintext, or
// per-item identifiers, so exposing it is safe.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Serve blocks serving Handler at path on addr. This backs the
// "entectl metrics serve" subcommand for long-running invocations (bulk
// file encryption, sync loops) that want a scrape target; library callers
// embed Handler into their own mux instead.
func Serve(addr, path string) error {
	if path == "" {
		path = DefaultPath
	}
	mux := http.NewServeMux()
	mux.Handle(path, Handler())
	return http.ListenAndServe(addr, mux)
}
