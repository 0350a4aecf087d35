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

package secretbox

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ente-x/cryptocore/internal/errs"
)

func fixedKeyNonce() (key, nonce []byte) {
	key = bytes.Repeat([]byte{0x42}, KeyBytes)
	nonce = bytes.Repeat([]byte{0x24}, NonceBytes)
	return
}

// Seed scenario 1: fixed key/nonce, "Hello, World!" round trip with the
// exact 29-byte (13 + 16) ciphertext length.
func TestFixedVectorRoundTrip(t *testing.T) {
	key, nonce := fixedKeyNonce()
	plaintext := []byte("Hello, World!")

	ct, err := EncryptWithNonce(plaintext, nonce, key)
	require.NoError(t, err)
	require.Len(t, ct, len(plaintext)+MACBytes)

	pt, err := Decrypt(ct, nonce, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

// Vector produced by libsodium's crypto_secretbox_easy with the same fixed
// key and nonce, pinning the MAC-first wire format against the reference
// implementation.
func TestDecryptLibsodiumVector(t *testing.T) {
	key, nonce := fixedKeyNonce()
	ct, _ := hex.DecodeString("4da5bb95e88a971e108e9567232b3e1f1a88b94caebb8846da7d60e086")

	pt, err := Decrypt(ct, nonce, key)
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", string(pt))

	mine, err := EncryptWithNonce([]byte("Hello, World!"), nonce, key)
	require.NoError(t, err)
	require.Equal(t, ct, mine)
}

func TestEnvelopeModeRoundTrip(t *testing.T) {
	key, _ := fixedKeyNonce()
	plaintext := []byte("some message")

	ct, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	require.Len(t, ct, NonceBytes+len(plaintext)+MACBytes)

	pt, err := DecryptBox(ct, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, pt)
}

func TestEncryptGeneratesDistinctNonces(t *testing.T) {
	key, _ := fixedKeyNonce()
	ct1, err := Encrypt([]byte("same plaintext"), key)
	require.NoError(t, err)
	ct2, err := Encrypt([]byte("same plaintext"), key)
	require.NoError(t, err)
	require.NotEqual(t, ct1, ct2)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	key, nonce := fixedKeyNonce()
	ct, err := EncryptWithNonce([]byte("secret"), nonce, key)
	require.NoError(t, err)

	wrongKey := bytes.Repeat([]byte{0x01}, KeyBytes)
	_, err = Decrypt(ct, nonce, wrongKey)
	require.ErrorIs(t, err, errs.ErrAuthFailed)
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	key, nonce := fixedKeyNonce()
	ct, err := EncryptWithNonce([]byte("secret message"), nonce, key)
	require.NoError(t, err)

	ct[len(ct)-1] ^= 0x01
	_, err = Decrypt(ct, nonce, key)
	require.ErrorIs(t, err, errs.ErrAuthFailed)
}

func TestRejectsBadKeyLength(t *testing.T) {
	_, nonce := fixedKeyNonce()
	_, err := EncryptWithNonce([]byte("x"), nonce, []byte("short"))
	require.ErrorIs(t, err, errs.ErrBadLen)
}

func TestRejectsBadNonceLength(t *testing.T) {
	key, _ := fixedKeyNonce()
	_, err := EncryptWithNonce([]byte("x"), []byte("short"), key)
	require.ErrorIs(t, err, errs.ErrBadLen)
}
