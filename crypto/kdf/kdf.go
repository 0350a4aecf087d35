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

// Package kdf implements Argon2id password key derivation (with the named
// INTERACTIVE/MODERATE/SENSITIVE tiers and an adaptive sensitive-key search)
// and a BLAKE2b-based subkey construction used to derive the SRP login key
// from the KEK.
package kdf

import (
	"fmt"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/ente-x/cryptocore/crypto/primitives"
	"github.com/ente-x/cryptocore/internal/errs"
	"github.com/ente-x/cryptocore/internal/metrics"
)

// Argon2id tiers, matching libsodium's crypto_pwhash named limits.
const (
	MemlimitInteractive = 64 * 1024 * 1024
	OpslimitInteractive = 2

	MemlimitModerate = 256 * 1024 * 1024
	OpslimitModerate = 3

	MemlimitSensitive = 1024 * 1024 * 1024
	OpslimitSensitive = 4

	MemlimitMin = 8 * 1024 * 1024

	SaltBytes = 16
	KeyBytes  = 32
)

// subkey parameters for the login key.
const (
	loginSubkeyLen = 32
	loginSubkeyID  = 1
	loginContext   = "loginctx"
	loginKeyBytes  = 16
)

// DerivedKey is the output of an Argon2id derivation together with the
// parameters actually used, so the server can be told what to expect.
type DerivedKey struct {
	Key      []byte
	Salt     []byte
	MemLimit uint32
	OpsLimit uint32
}

// Argon2id derives a 32-byte key from password and a 16-byte salt using the
// given work factors. mem is bytes, ops is iteration count.
func Argon2id(password string, salt []byte, mem uint32, ops uint32) ([]byte, error) {
	if len(salt) != SaltBytes {
		metrics.CryptoOperations.WithLabelValues("kdf_derive", "failure").Inc()
		metrics.CryptoErrors.WithLabelValues("kdf_derive").Inc()
		return nil, fmt.Errorf("kdf: %w: salt must be %d bytes, got %d", errs.ErrBadLen, SaltBytes, len(salt))
	}
	if mem < MemlimitMin || ops < 1 {
		metrics.CryptoOperations.WithLabelValues("kdf_derive", "failure").Inc()
		metrics.CryptoErrors.WithLabelValues("kdf_derive").Inc()
		return nil, fmt.Errorf("kdf: %w: mem_limit/ops_limit out of range", errs.ErrBadParams)
	}

	start := time.Now()
	// argon2.IDKey takes memory in KiB and parallelism; the core's
	// crypto_pwhash surface is single-threaded, so parallelism is fixed at 1.
	key := argon2.IDKey([]byte(password), salt, ops, mem/1024, 1, KeyBytes)
	duration := time.Since(start)

	metrics.CryptoOperations.WithLabelValues("kdf_derive", "success").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("kdf_derive").Observe(duration.Seconds())
	metrics.GetGlobalCollector().RecordKDFDerivation(duration)
	return key, nil
}

// DeriveSensitiveKey derives a key at the SENSITIVE work factor, adaptively
// backing off when the device cannot sustain it: memory is halved and
// iterations doubled (holding the product constant) until derivation
// succeeds or mem_limit falls below MemlimitMin, at which point
// errs.ErrDeviceIncapable is returned. The returned tuple records the
// parameters actually used so a caller can report them to the server.
//
// Argon2's Go implementation does not itself fail on constrained memory the
// way libsodium's can on mobile; the loop is still load-bearing so a future
// platform-specific allocator failure (or a deliberately lowered ceiling)
// degrades gracefully instead of panicking.
func DeriveSensitiveKey(password string, memCeiling uint32) (DerivedKey, error) {
	salt, err := primitives.GenerateSalt()
	if err != nil {
		return DerivedKey{}, err
	}
	return deriveSensitiveKeyWithSalt(password, salt, memCeiling)
}

func deriveSensitiveKeyWithSalt(password string, salt []byte, memCeiling uint32) (DerivedKey, error) {
	factor := MemlimitSensitive / MemlimitModerate
	mem := uint32(MemlimitModerate)
	ops := uint32(OpslimitSensitive * factor)

	for mem >= MemlimitMin {
		if memCeiling == 0 || mem <= memCeiling {
			key, err := Argon2id(password, salt, mem, ops)
			if err == nil {
				return DerivedKey{Key: key, Salt: salt, MemLimit: mem, OpsLimit: ops}, nil
			}
		}
		ops *= 2
		mem /= 2
	}
	return DerivedKey{}, fmt.Errorf("kdf: %w", errs.ErrDeviceIncapable)
}

// DeriveInteractiveKey derives a key at the INTERACTIVE work factor.
func DeriveInteractiveKey(password string) (DerivedKey, error) {
	salt, err := primitives.GenerateSalt()
	if err != nil {
		return DerivedKey{}, err
	}
	key, err := Argon2id(password, salt, MemlimitInteractive, OpslimitInteractive)
	if err != nil {
		return DerivedKey{}, err
	}
	return DerivedKey{Key: key, Salt: salt, MemLimit: MemlimitInteractive, OpsLimit: OpslimitInteractive}, nil
}

// Subkey deterministically derives a subkey of length l (in [16,64]) from a
// 32-byte master key, distinguished by a numeric id and an 8-byte context.
// ctx longer than 8 bytes is truncated; shorter is zero-padded, matching
// libsodium's crypto_kdf_derive_from_key context handling.
func Subkey(key []byte, l int, id uint64, ctx string) ([]byte, error) {
	if len(key) != KeyBytes {
		return nil, fmt.Errorf("kdf: %w: key must be %d bytes, got %d", errs.ErrBadLen, KeyBytes, len(key))
	}
	if l < 16 || l > 64 {
		return nil, fmt.Errorf("kdf: %w: subkey length must be in [16,64], got %d", errs.ErrBadParams, l)
	}

	var ctxBytes [8]byte
	copy(ctxBytes[:], ctx)

	return blake2bSubkey(key, l, id, ctxBytes), nil
}

// DeriveLoginKey returns the 16-byte login key: the first half of
// Subkey(kek, 32, id=1, ctx="loginctx"). This is what SRP sees as the
// "password"; it never round-trips back to the real password.
func DeriveLoginKey(kek []byte) ([]byte, error) {
	sub, err := Subkey(kek, loginSubkeyLen, loginSubkeyID, loginContext)
	if err != nil {
		return nil, err
	}
	return sub[:loginKeyBytes], nil
}
