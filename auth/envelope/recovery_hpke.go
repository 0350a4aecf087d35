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

package envelope

import (
	"crypto/ecdh"
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"

	"github.com/ente-x/cryptocore/internal/errs"
)

// hpkeSuite is X25519-HKDF-SHA256 KEM with HKDF-SHA256 and the
// ChaCha20-Poly1305 AEAD.
var hpkeSuite = hpke.NewSuite(
	hpke.KEM_X25519_HKDF_SHA256,
	hpke.KDF_HKDF_SHA256,
	hpke.AEAD_ChaCha20Poly1305,
)

// encLen is the X25519 KEM's encapsulated-key length.
const encLen = 32

// SealRecoveryContext wraps a recovery-branch payload for the account's
// X25519 public key using HPKE, binding info as both the HPKE info string
// and the seal's additional authenticated data. keygen.RotateRecoveryKey
// uses it to seal the rotation record returned next to the rebuilt
// attributes.
//
// This is a separate code path from the libsodium-compatible sealed box:
// sealed.Seal/sealed.Open stay byte-exact for the session-token wire
// format, and nothing here touches that format. HPKE here only carries
// extra context around a recovery-key rewrap; it is never used to decrypt
// an existing sealed.Seal payload or vice versa.
func SealRecoveryContext(publicKey, plaintext, info []byte) ([]byte, error) {
	recipient, err := ecdh.X25519().NewPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: invalid recovery recipient key", errs.ErrBadLen)
	}

	kem := hpke.KEM_X25519_HKDF_SHA256.Scheme()
	rp, err := kem.UnmarshalBinaryPublicKey(recipient.Bytes())
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", errs.ErrBadParams, err)
	}

	sender, err := hpkeSuite.NewSender(rp, info)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", errs.ErrBadParams, err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", errs.ErrBadParams, err)
	}
	ct, err := sealer.Seal(plaintext, info)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", errs.ErrAuthFailed, err)
	}

	out := make([]byte, 0, len(enc)+len(ct))
	out = append(out, enc...)
	out = append(out, ct...)
	return out, nil
}

// OpenRecoveryContext reverses SealRecoveryContext using the account's
// X25519 secret key.
func OpenRecoveryContext(secretKey, packet, info []byte) ([]byte, error) {
	if len(packet) < encLen {
		return nil, fmt.Errorf("envelope: %w: hpke packet shorter than encapsulated key", errs.ErrBadLen)
	}
	priv, err := ecdh.X25519().NewPrivateKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: invalid recovery secret key", errs.ErrBadLen)
	}

	kem := hpke.KEM_X25519_HKDF_SHA256.Scheme()
	skR, err := kem.UnmarshalBinaryPrivateKey(priv.Bytes())
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", errs.ErrBadParams, err)
	}

	receiver, err := hpkeSuite.NewReceiver(skR, info)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", errs.ErrBadParams, err)
	}
	opener, err := receiver.Setup(packet[:encLen])
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", errs.ErrAuthFailed, err)
	}
	pt, err := opener.Open(packet[encLen:], info)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", errs.ErrAuthFailed)
	}
	return pt, nil
}
