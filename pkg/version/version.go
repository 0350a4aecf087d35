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

// Package version reports what this entectl binary was built from: the
// release and commit stamped in via ldflags, plus the resolved versions of
// the crypto-critical dependencies. The latter matter here more than in
// most CLIs: when one frontend cannot decrypt data another wrote, "which
// x/crypto and which SQLite was that binary carrying" is the first
// question support asks.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
)

// Stamped at build time via
// -ldflags "-X github.com/ente-x/cryptocore/pkg/version.Release=... ...".
var (
	Release   = "1.5.2"
	Commit    = ""
	BuildDate = ""
)

// Module paths of the dependencies worth surfacing in a version report.
const (
	xCryptoModule = "golang.org/x/crypto"
	sqliteModule  = "modernc.org/sqlite"
)

// Info is a version report, serializable as-is for --json output.
type Info struct {
	Release   string `json:"release"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	XCrypto   string `json:"x_crypto,omitempty"`
	SQLite    string `json:"sqlite,omitempty"`
}

// Get assembles the full version report, resolving dependency versions
// from the binary's embedded module info when present (absent under plain
// "go run" of a workspace, so both fields are best-effort).
func Get() Info {
	return Info{
		Release:   Release,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		XCrypto:   depVersion(xCryptoModule),
		SQLite:    depVersion(sqliteModule),
	}
}

// depVersion returns the resolved version of a module dependency, or ""
// when build info is unavailable or the module is not among the deps.
func depVersion(path string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range bi.Deps {
		if dep.Path == path {
			return dep.Version
		}
	}
	return ""
}

// Short is the compact form used for User-Agents and cobra's --version:
// "1.5.2" or "1.5.2+abcdef1" when a commit is stamped.
func Short() string {
	if len(Commit) >= 7 {
		return Release + "+" + Commit[:7]
	}
	return Release
}

// String is the one-line human-readable report.
func String() string {
	info := Get()
	s := fmt.Sprintf("entectl %s (%s, %s", Short(), info.GoVersion, info.Platform)
	if info.BuildDate != "" {
		s += ", built " + info.BuildDate
	}
	s += ")"
	if info.XCrypto != "" {
		s += " x/crypto " + info.XCrypto
	}
	if info.SQLite != "" {
		s += " sqlite " + info.SQLite
	}
	return s
}

// JSON renders the full report as indented JSON.
func JSON() (string, error) {
	data, err := json.MarshalIndent(Get(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UserAgent identifies this binary to the (out-of-core) HTTP clients the
// outer products attach.
func UserAgent() string {
	return "entectl/" + Short()
}
