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

// Package sealed implements libsodium's crypto_box_seal: anonymous
// public-key encryption where the sender needs only the recipient's public
// key. An ephemeral X25519 keypair is generated per call, a shared secret is
// derived with the recipient's static public key, and a deterministic nonce
// derived from both public keys feeds an XSalsa20-Poly1305 seal, the same
// construction libsodium uses, reproduced here since Go's stdlib has no
// sealed-box primitive of its own.
package sealed

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/box"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/ente-x/cryptocore/internal/errs"
	"github.com/ente-x/cryptocore/internal/zero"
)

// PublicKeyBytes, SecretKeyBytes are X25519 key sizes.
const (
	PublicKeyBytes = 32
	SecretKeyBytes = 32
)

// MACBytes is the XSalsa20-Poly1305 tag size. SealBytes is the total
// per-message overhead: the ephemeral public key plus the MAC.
const (
	MACBytes   = 16
	SealBytes  = PublicKeyBytes + MACBytes
	nonceBytes = 24
)

// Seal encrypts plaintext for the recipient's public key. The sender stays
// anonymous: the ciphertext carries only an ephemeral public key, never a
// fixed sender identity. Re-sealing the same plaintext twice yields
// distinct ciphertexts because a fresh ephemeral keypair is drawn each time.
func Seal(plaintext, publicKey []byte) ([]byte, error) {
	if len(publicKey) != PublicKeyBytes {
		return nil, fmt.Errorf("sealed: %w: public key must be %d bytes, got %d", errs.ErrBadLen, PublicKeyBytes, len(publicKey))
	}
	var recipientPub [32]byte
	copy(recipientPub[:], publicKey)

	ephPub, ephPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: %w: %v", errs.ErrRngFailure, err)
	}
	defer zero.Bytes(ephPriv[:])

	// box.Precompute is libsodium's crypto_box_beforenm: X25519 shared
	// secret fed through HSalsa20. Using anything else here (a plain hash of
	// the ECDH output, say) would break compatibility with sealed boxes
	// produced by libsodium itself.
	var shared [32]byte
	box.Precompute(&shared, &recipientPub, ephPriv)
	defer zero.Bytes(shared[:])

	nonce := sealNonce(ephPub[:], publicKey)
	ct := secretbox.Seal(nil, plaintext, &nonce, &shared)

	out := make([]byte, 0, PublicKeyBytes+len(ct))
	out = append(out, ephPub[:]...)
	out = append(out, ct...)
	return out, nil
}

// Open decrypts a sealed box using the recipient's keypair.
func Open(ciphertext, publicKey, secretKey []byte) ([]byte, error) {
	if len(publicKey) != PublicKeyBytes {
		return nil, fmt.Errorf("sealed: %w: public key must be %d bytes, got %d", errs.ErrBadLen, PublicKeyBytes, len(publicKey))
	}
	if len(secretKey) != SecretKeyBytes {
		return nil, fmt.Errorf("sealed: %w: secret key must be %d bytes, got %d", errs.ErrBadLen, SecretKeyBytes, len(secretKey))
	}
	if len(ciphertext) < SealBytes {
		return nil, fmt.Errorf("sealed: %w: ciphertext shorter than seal overhead", errs.ErrBadLen)
	}

	var ephPub, priv [32]byte
	copy(ephPub[:], ciphertext[:PublicKeyBytes])
	copy(priv[:], secretKey)
	defer zero.Bytes(priv[:])
	ct := ciphertext[PublicKeyBytes:]

	var shared [32]byte
	box.Precompute(&shared, &ephPub, &priv)
	defer zero.Bytes(shared[:])

	nonce := sealNonce(ephPub[:], publicKey)
	plaintext, ok := secretbox.Open(nil, ct, &nonce, &shared)
	if !ok {
		return nil, fmt.Errorf("sealed: %w", errs.ErrAuthFailed)
	}
	return plaintext, nil
}

// sealNonce derives the deterministic per-message nonce from both public
// keys: BLAKE2b(ephemeral_pub || recipient_pub) truncated to 24 bytes. This
// is safe because the ephemeral key is never reused across messages.
func sealNonce(ephPub, recipientPub []byte) [nonceBytes]byte {
	h, _ := blake2b.New(nonceBytes, nil)
	h.Write(ephPub)
	h.Write(recipientPub)
	var nonce [nonceBytes]byte
	copy(nonce[:], h.Sum(nil))
	return nonce
}
