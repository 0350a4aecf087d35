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
	"os"
	"path/filepath"
	"time"

	"github.com/ente-x/cryptocore/auth/envelope"
	"github.com/ente-x/cryptocore/crypto/primitives"
)

const sessionCacheTTL = 15 * time.Minute

// cacheDir returns the directory entectl stores its local session cache
// in, creating it on first use.
func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".entectl")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create cache dir: %w", err)
	}
	return dir, nil
}

// cacheSigningKey loads the local HMAC key the session cache is signed
// with, minting one on first use. The key never leaves this machine and is
// unrelated to any account key material.
func cacheSigningKey() ([]byte, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "cache.key")
	if key, err := os.ReadFile(path); err == nil && len(key) == 32 {
		return key, nil
	}
	key, err := primitives.RandomBytes(32)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, fmt.Errorf("write cache key: %w", err)
	}
	return key, nil
}

func sessionCachePath() (string, error) {
	dir, err := cacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.jwt"), nil
}

// writeSessionCache mints and persists a short-lived local session-cache
// token for identity, so a later "login whoami" call in the same window
// can confirm the login already happened without
// re-deriving the KEK or holding onto any decrypted key material.
func writeSessionCache(identity string) error {
	key, err := cacheSigningKey()
	if err != nil {
		return err
	}
	token, err := envelope.IssueSessionCacheToken(identity, sessionCacheTTL, key)
	if err != nil {
		return err
	}
	path, err := sessionCachePath()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func readSessionCache() (*envelope.SessionCacheClaims, error) {
	key, err := cacheSigningKey()
	if err != nil {
		return nil, err
	}
	path, err := sessionCachePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no cached session: %w", err)
	}
	return envelope.ParseSessionCacheToken(string(raw), key)
}
