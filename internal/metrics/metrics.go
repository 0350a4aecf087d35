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

// Package metrics exposes Prometheus counters and histograms for the
// crypto, login, and chat-storage operations entectl drives, plus a
// lightweight in-memory collector for the same operations that a CLI
// invocation can print without standing up a scrape endpoint.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "entectl"

// Registry is the Prometheus registry every metric in this package is
// registered against. Handler and Serve expose this registry.
var Registry = prometheus.NewRegistry()
