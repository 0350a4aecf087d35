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

// Package primitives generates the random key, nonce, salt, and keypair
// material every higher layer builds on. All generators read from the
// operating system CSPRNG; a failure there surfaces as errs.ErrRngFailure
// and is never silently retried with a weaker source.
package primitives

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/ente-x/cryptocore/internal/errs"
)

var (
	initOnce sync.Once
	initErr  error
)

// Init performs the one-time startup self-check: it reads from the OS
// CSPRNG once so a broken entropy source fails loudly at startup instead of
// at first key generation. Subsequent calls return the first result without
// re-running the check. Calling Init is optional; every generator checks
// its own rand.Read result regardless.
func Init() error {
	initOnce.Do(func() {
		var probe [16]byte
		if _, err := rand.Read(probe[:]); err != nil {
			initErr = fmt.Errorf("primitives: %w: %v", errs.ErrRngFailure, err)
		}
	})
	return initErr
}

// KeyBytes is the size of a symmetric key (SecretBox or SecretStream).
const KeyBytes = 32

// SaltBytes is the size of an Argon2id salt.
const SaltBytes = 16

// SecretBoxNonceBytes is the size of an XSalsa20-Poly1305 nonce.
const SecretBoxNonceBytes = 24

// X25519PublicKeyBytes and X25519SecretKeyBytes are the X25519 key sizes.
const (
	X25519PublicKeyBytes = 32
	X25519SecretKeyBytes = 32
)

// KeyPair is an X25519 public/secret key pair used by sealed and envelope.
type KeyPair struct {
	Public []byte
	Secret []byte
}

// RandomBytes fills and returns a buffer of n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("primitives: %w: %v", errs.ErrRngFailure, err)
	}
	return b, nil
}

// GenerateKey returns a fresh 32-byte symmetric key suitable for SecretBox.
func GenerateKey() ([]byte, error) {
	return RandomBytes(KeyBytes)
}

// GenerateStreamKey returns a fresh 32-byte symmetric key suitable for
// SecretStream. Same size as GenerateKey; kept distinct per spec naming so
// callers document intent at the call site.
func GenerateStreamKey() ([]byte, error) {
	return RandomBytes(KeyBytes)
}

// GenerateSalt returns a fresh 16-byte Argon2id salt.
func GenerateSalt() ([]byte, error) {
	return RandomBytes(SaltBytes)
}

// GenerateSecretBoxNonce returns a fresh 24-byte SecretBox nonce.
func GenerateSecretBoxNonce() ([]byte, error) {
	return RandomBytes(SecretBoxNonceBytes)
}

// GenerateKeypair returns a fresh X25519 keypair for sealed-box encryption.
func GenerateKeypair() (KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("primitives: %w: %v", errs.ErrRngFailure, err)
	}
	return KeyPair{
		Public: priv.PublicKey().Bytes(),
		Secret: priv.Bytes(),
	}, nil
}
