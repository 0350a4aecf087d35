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

// Package secretbox implements XSalsa20-Poly1305 authenticated encryption
// with libsodium's crypto_secretbox_easy wire format: MAC(16) || ciphertext.
// golang.org/x/crypto/nacl/secretbox already places the tag first, so its
// output is byte-compatible with existing encrypted data as it is.
package secretbox

import (
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/ente-x/cryptocore/crypto/primitives"
	"github.com/ente-x/cryptocore/internal/errs"
)

// KeyBytes, NonceBytes, MACBytes are the XSalsa20-Poly1305 wire sizes.
const (
	KeyBytes   = 32
	NonceBytes = 24
	MACBytes   = 16
)

// Encrypt encrypts plaintext under key with a freshly generated random
// nonce, returning nonce(24) || MAC(16) || ciphertext, the "envelope mode"
// wire format that carries its own nonce.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	nonce, err := primitives.GenerateSecretBoxNonce()
	if err != nil {
		return nil, err
	}
	body, err := EncryptWithNonce(plaintext, nonce, key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, NonceBytes+len(body))
	out = append(out, nonce...)
	out = append(out, body...)
	return out, nil
}

// EncryptWithNonce encrypts plaintext under key and a caller-supplied
// 24-byte nonce, returning MAC(16) || ciphertext with no nonce prefix. Callers
// distinguish the two wire formats by which function they called, never by
// inference over the byte length.
func EncryptWithNonce(plaintext, nonce, key []byte) ([]byte, error) {
	var keyArr [KeyBytes]byte
	var nonceArr [NonceBytes]byte
	if len(key) != KeyBytes {
		return nil, fmt.Errorf("secretbox: %w: key must be %d bytes, got %d", errs.ErrBadLen, KeyBytes, len(key))
	}
	if len(nonce) != NonceBytes {
		return nil, fmt.Errorf("secretbox: %w: nonce must be %d bytes, got %d", errs.ErrBadLen, NonceBytes, len(nonce))
	}
	copy(keyArr[:], key)
	copy(nonceArr[:], nonce)

	return secretbox.Seal(nil, plaintext, &nonceArr, &keyArr), nil
}

// DecryptBox decrypts data produced by Encrypt: nonce(24) || MAC(16) || ciphertext.
func DecryptBox(data, key []byte) ([]byte, error) {
	if len(data) < NonceBytes+MACBytes {
		return nil, fmt.Errorf("secretbox: %w: ciphertext shorter than nonce+mac", errs.ErrBadLen)
	}
	return Decrypt(data[NonceBytes:], data[:NonceBytes], key)
}

// Decrypt decrypts ciphertext (MAC(16) || encrypted data) under key and a
// caller-supplied nonce. Authentication failure (wrong key, wrong nonce, or
// tampering) returns errs.ErrAuthFailed and reveals nothing else.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	var keyArr [KeyBytes]byte
	var nonceArr [NonceBytes]byte
	if len(key) != KeyBytes {
		return nil, fmt.Errorf("secretbox: %w: key must be %d bytes, got %d", errs.ErrBadLen, KeyBytes, len(key))
	}
	if len(nonce) != NonceBytes {
		return nil, fmt.Errorf("secretbox: %w: nonce must be %d bytes, got %d", errs.ErrBadLen, NonceBytes, len(nonce))
	}
	if len(ciphertext) < MACBytes {
		return nil, fmt.Errorf("secretbox: %w: ciphertext shorter than mac", errs.ErrBadLen)
	}
	copy(keyArr[:], key)
	copy(nonceArr[:], nonce)

	plaintext, ok := secretbox.Open(nil, ciphertext, &nonceArr, &keyArr)
	if !ok {
		return nil, fmt.Errorf("secretbox: %w", errs.ErrAuthFailed)
	}
	return plaintext, nil
}
