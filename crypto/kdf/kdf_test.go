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

package kdf

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ente-x/cryptocore/internal/errs"
)

func testSalt() []byte {
	return bytes.Repeat([]byte{0x11}, SaltBytes)
}

func TestArgon2idDeterministic(t *testing.T) {
	salt := testSalt()
	k1, err := Argon2id("correct horse", salt, MemlimitInteractive, OpslimitInteractive)
	require.NoError(t, err)
	k2, err := Argon2id("correct horse", salt, MemlimitInteractive, OpslimitInteractive)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
	require.Len(t, k1, KeyBytes)
}

func TestArgon2idDifferentPasswordsDiffer(t *testing.T) {
	salt := testSalt()
	k1, err := Argon2id("password one", salt, MemlimitInteractive, OpslimitInteractive)
	require.NoError(t, err)
	k2, err := Argon2id("password two", salt, MemlimitInteractive, OpslimitInteractive)
	require.NoError(t, err)
	require.NotEqual(t, k1, k2)
}

func TestArgon2idRejectsBadSaltLength(t *testing.T) {
	_, err := Argon2id("pw", []byte("short"), MemlimitInteractive, OpslimitInteractive)
	require.ErrorIs(t, err, errs.ErrBadLen)
}

func TestArgon2idRejectsBadParams(t *testing.T) {
	_, err := Argon2id("pw", testSalt(), 0, OpslimitInteractive)
	require.ErrorIs(t, err, errs.ErrBadParams)
}

func TestDeriveSensitiveKeyReproducible(t *testing.T) {
	derived, err := DeriveSensitiveKey("a password", 0)
	require.NoError(t, err)
	require.Len(t, derived.Key, KeyBytes)

	// Re-running Argon2id with the returned (mem, ops, salt) reproduces the
	// same key, so the recorded parameters are sufficient to log in later.
	again, err := Argon2id("a password", derived.Salt, derived.MemLimit, derived.OpsLimit)
	require.NoError(t, err)
	require.Equal(t, derived.Key, again)
}

func TestDeriveSensitiveKeyBacksOffUnderMemoryCeiling(t *testing.T) {
	// A ceiling below the first attempted mem_limit forces the halve/double
	// loop to back off; it must still land on a work factor <= ceiling.
	derived, err := deriveSensitiveKeyWithSalt("a password", testSalt(), MemlimitModerate/4)
	require.NoError(t, err)
	require.LessOrEqual(t, derived.MemLimit, uint32(MemlimitModerate/4))
	require.GreaterOrEqual(t, derived.MemLimit, uint32(MemlimitMin))
}

func TestDeriveSensitiveKeyExhaustsToDeviceIncapable(t *testing.T) {
	_, err := deriveSensitiveKeyWithSalt("a password", testSalt(), MemlimitMin/2)
	require.ErrorIs(t, err, errs.ErrDeviceIncapable)
}

func TestSubkeyDeterministic(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, KeyBytes)
	s1, err := Subkey(key, 32, 1, "ctx1")
	require.NoError(t, err)
	s2, err := Subkey(key, 32, 1, "ctx1")
	require.NoError(t, err)
	require.Equal(t, s1, s2)
}

func TestSubkeyVariesWithIDAndContextAndLength(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, KeyBytes)
	base, err := Subkey(key, 32, 1, "ctx1")
	require.NoError(t, err)

	byID, err := Subkey(key, 32, 2, "ctx1")
	require.NoError(t, err)
	require.NotEqual(t, base, byID)

	byCtx, err := Subkey(key, 32, 1, "ctx2")
	require.NoError(t, err)
	require.NotEqual(t, base, byCtx)

	byLen, err := Subkey(key, 48, 1, "ctx1")
	require.NoError(t, err)
	require.NotEqual(t, base, byLen[:32])
}

// Vectors computed with libsodium's crypto_kdf_derive_from_key.
func TestSubkeyKnownAnswers(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, KeyBytes)

	s, err := Subkey(key, 32, 1, "ctx1")
	require.NoError(t, err)
	require.Equal(t, "e2cd1db55e682128ee0bdcba32295cde99e7f5a9f81fa1fff8f5de74c26e4e74", hex.EncodeToString(s))

	s, err = Subkey(key, 16, 42, "testctx")
	require.NoError(t, err)
	require.Equal(t, "bf6ea9c7494985257e61a9e524dc331f", hex.EncodeToString(s))

	s, err = Subkey(key, 64, 7, "longsubk")
	require.NoError(t, err)
	require.Equal(t,
		"d24b97882fb633955bc265e76ebd64e325618d8cbfd34a60f433233a202ce966"+
			"8a97353a62f270777403167292830cdaa8ff19267194bba6702f7455649f3da1",
		hex.EncodeToString(s))
}

func TestSubkeyRejectsBadKeyLength(t *testing.T) {
	_, err := Subkey([]byte("short"), 32, 1, "ctx")
	require.ErrorIs(t, err, errs.ErrBadLen)
}

func TestSubkeyRejectsBadOutputLength(t *testing.T) {
	key := bytes.Repeat([]byte{0x07}, KeyBytes)
	_, err := Subkey(key, 8, 1, "ctx")
	require.ErrorIs(t, err, errs.ErrBadParams)

	_, err = Subkey(key, 65, 1, "ctx")
	require.ErrorIs(t, err, errs.ErrBadParams)
}

func TestDeriveLoginKeyDeterministicAndRightSize(t *testing.T) {
	kek := bytes.Repeat([]byte{0x09}, KeyBytes)
	lk1, err := DeriveLoginKey(kek)
	require.NoError(t, err)
	require.Len(t, lk1, loginKeyBytes)

	lk2, err := DeriveLoginKey(kek)
	require.NoError(t, err)
	require.Equal(t, lk1, lk2)
}

func TestDeriveLoginKeyKnownAnswer(t *testing.T) {
	kek, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)

	lk, err := DeriveLoginKey(kek)
	require.NoError(t, err)
	require.Equal(t, "6970b5d34442fd11788a83b4b57e1e72", hex.EncodeToString(lk))
}

func TestDeriveLoginKeyDiffersAcrossKEKs(t *testing.T) {
	kek1 := bytes.Repeat([]byte{0x09}, KeyBytes)
	kek2 := bytes.Repeat([]byte{0x0a}, KeyBytes)

	lk1, err := DeriveLoginKey(kek1)
	require.NoError(t, err)
	lk2, err := DeriveLoginKey(kek2)
	require.NoError(t, err)
	require.NotEqual(t, lk1, lk2)
}
