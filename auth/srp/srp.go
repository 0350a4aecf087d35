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

// Package srp implements an SRP-6a password-authenticated key exchange
// client over the 4096-bit MODP group (RFC 3526 group 16) with SHA-256,
// built directly on math/big and crypto/sha256. The server only ever sees
// the derived login key, never the account password.
package srp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/ente-x/cryptocore/internal/errs"
	"github.com/ente-x/cryptocore/internal/metrics"
	"github.com/ente-x/cryptocore/internal/zero"
)

// LoginKeyBytes is the required length of the login key standing in for the password.
const LoginKeyBytes = 16

// APrivateBytes is the size of the client's ephemeral private scalar, drawn
// fresh from the CSPRNG for every session.
const APrivateBytes = 64

// PaddedABytes, PaddedM1Bytes are the wire sizes A and M1 are padded to with
// leading zeros before transmission.
const (
	PaddedABytes  = 512
	PaddedM1Bytes = 32
)

// state is the client's position in the Init -> AReady -> BReceived -> Proved
// state machine.
type state int

const (
	stateInitial state = iota
	stateAReady
	stateBReceived
	stateProved
)

var (
	// n4096 is the RFC 3526 group 16 4096-bit safe prime.
	n4096, _ = new(big.Int).SetString(""+
		"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E08"+
		"8A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B"+
		"302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9"+
		"A637ED6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE6"+
		"49286651ECE45B3DC2007CB8A163BF0598DA48361C55D39A69163FA8"+
		"FD24CF5F83655D23DCA3AD961C62F356208552BB9ED529077096966D"+
		"670C354E4ABC9804F1746C08CA18217C32905E462E36CE3BE39E772C"+
		"180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718"+
		"3995497CEA956AE515D2261898FA051015728E5A8AAAC42DAD33170D"+
		"04507A33A85521ABDF1CBA64ECFB850458DBEF0A8AEA71575D060C7D"+
		"B3970F85A6E1E4C7ABF5AE8CDB0933D71E8C94E04A25619DCEE3D226"+
		"1AD2EE6BF12FFA06D98A0864D87602733EC86A64521F2B18177B200C"+
		"BBE117577A615D6C770988C0BAD946E208E24FA074E5AB3143DB5BFC"+
		"E0FD108E4B82D120A93AD2CAFFFFFFFFFFFFFFFF",
		16)
	g4096 = big.NewInt(5)

	// k is the SRP-6a multiplier, k = H(N, PAD(g)), computed once at init time.
	k4096 = computeK(n4096, g4096)
)

func computeK(n, g *big.Int) *big.Int {
	gBytes := padBig(g, (n.BitLen()+7)/8)
	h := sha256.New()
	h.Write(n.Bytes())
	h.Write(gBytes)
	return new(big.Int).SetBytes(h.Sum(nil))
}

// PadBytes left-pads data with zero bytes to targetLen. Data already at or
// beyond targetLen is returned unchanged (the caller's responsibility to
// catch any overflow before transmission).
func PadBytes(data []byte, targetLen int) []byte {
	if len(data) >= targetLen {
		return data
	}
	out := make([]byte, targetLen)
	copy(out[targetLen-len(data):], data)
	return out
}

func padBig(v *big.Int, targetLen int) []byte {
	return PadBytes(v.Bytes(), targetLen)
}

// Client is an SRP-6a client session. Not safe for concurrent use; callers
// keep at most one login in flight and serialize access themselves.
type Client struct {
	identity []byte
	loginKey []byte
	salt     []byte
	aPrivate *big.Int
	aPublic  *big.Int

	state      state
	m1         []byte
	key        []byte // shared session key K, set once set_B succeeds
	m2Expected []byte

	started time.Time
}

// New creates a client in the Init state. identity is the raw UTF-8 bytes of
// the SRP user id; salt is the raw SRP salt (not base64); loginKey must be
// exactly LoginKeyBytes.
func New(identity, salt, loginKey []byte) (*Client, error) {
	if len(loginKey) != LoginKeyBytes {
		return nil, fmt.Errorf("srp: %w: login key must be %d bytes, got %d", errs.ErrBadLen, LoginKeyBytes, len(loginKey))
	}

	aPrivBytes := make([]byte, APrivateBytes)
	if _, err := rand.Read(aPrivBytes); err != nil {
		return nil, fmt.Errorf("srp: %w: %v", errs.ErrRngFailure, err)
	}
	aPrivate := new(big.Int).SetBytes(aPrivBytes)
	aPublic := new(big.Int).Exp(g4096, aPrivate, n4096)

	return &Client{
		identity: append([]byte(nil), identity...),
		loginKey: append([]byte(nil), loginKey...),
		salt:     append([]byte(nil), salt...),
		aPrivate: aPrivate,
		aPublic:  aPublic,
		state:    stateInitial,
		started:  time.Now(),
	}, nil
}

// ComputeA returns the client's public ephemeral A, padded to PaddedABytes.
// Idempotent: calling it more than once returns the same value.
func (c *Client) ComputeA() []byte {
	if c.state == stateInitial {
		c.state = stateAReady
	}
	return PadBytes(c.aPublic.Bytes(), PaddedABytes)
}

// SetB processes the server's public ephemeral B, computing the shared
// session key and the client proof. Fails with errs.ErrProtocol when
// B mod N = 0, the SRP-6a safety check against a malicious or broken server.
func (c *Client) SetB(serverB []byte) error {
	if c.state == stateBReceived || c.state == stateProved {
		return nil // idempotent, per the state table
	}
	if c.state != stateAReady {
		return fmt.Errorf("srp: %w: set_B called before compute_A", errs.ErrWrongState)
	}

	b := new(big.Int).SetBytes(serverB)
	if new(big.Int).Mod(b, n4096).Sign() == 0 {
		return fmt.Errorf("srp: %w: B mod N = 0", errs.ErrProtocol)
	}

	u := computeU(c.aPublic, b)
	if u.Sign() == 0 {
		return fmt.Errorf("srp: %w: u = 0", errs.ErrProtocol)
	}

	x := computeX(c.salt, c.identity, c.loginKey)

	// S = (B - k*g^x)^(a + u*x) mod N
	gx := new(big.Int).Exp(g4096, x, n4096)
	kgx := new(big.Int).Mul(k4096, gx)
	kgx.Mod(kgx, n4096)
	base := new(big.Int).Sub(b, kgx)
	base.Mod(base, n4096)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, c.aPrivate)

	s := new(big.Int).Exp(base, exp, n4096)
	key := sha256.Sum256(padBig(s, (n4096.BitLen()+7)/8))

	m1 := computeM1(n4096, g4096, c.identity, c.salt, c.aPublic, b, key[:])
	m2 := computeM2(c.aPublic, m1, key[:])

	c.key = key[:]
	c.m1 = m1
	c.m2Expected = m2
	c.state = stateBReceived
	return nil
}

// ComputeM1 returns the client proof, padded to PaddedM1Bytes. Must be
// called after SetB; calling it before is a caller bug, surfaced as
// errs.ErrWrongState rather than a panic.
func (c *Client) ComputeM1() ([]byte, error) {
	if c.state != stateBReceived && c.state != stateProved {
		return nil, fmt.Errorf("srp: %w: compute_M1 called before set_B", errs.ErrWrongState)
	}
	c.state = stateProved
	return PadBytes(c.m1, PaddedM1Bytes), nil
}

// VerifyM2 checks the server's proof M2 in constant time.
func (c *Client) VerifyM2(serverM2 []byte) error {
	if c.state != stateProved {
		return fmt.Errorf("srp: %w: verify_M2 called before compute_M1", errs.ErrWrongState)
	}
	duration := time.Since(c.started)
	if subtle.ConstantTimeCompare(c.m2Expected, serverM2) != 1 {
		metrics.CryptoOperations.WithLabelValues("srp_handshake", "failure").Inc()
		metrics.CryptoErrors.WithLabelValues("srp_handshake").Inc()
		metrics.CryptoOperationDuration.WithLabelValues("srp_handshake").Observe(duration.Seconds())
		metrics.GetGlobalCollector().RecordSRPHandshake(false, duration)
		return fmt.Errorf("srp: %w: server proof mismatch", errs.ErrAuthFailed)
	}
	metrics.CryptoOperations.WithLabelValues("srp_handshake", "success").Inc()
	metrics.CryptoOperationDuration.WithLabelValues("srp_handshake").Observe(duration.Seconds())
	metrics.GetGlobalCollector().RecordSRPHandshake(true, duration)
	return nil
}

// SessionKey returns the shared session key K derived after a successful
// SetB. Used by callers that need it beyond the login handshake itself.
func (c *Client) SessionKey() []byte {
	return c.key
}

// Zero clears the client's sensitive scalar and key material. Call once the
// login attempt is complete, regardless of outcome.
func (c *Client) Zero() {
	zero.Bytes(c.loginKey)
	zero.Bytes(c.key)
	zero.Bytes(c.m1)
	zero.Bytes(c.m2Expected)
	c.aPrivate = nil
}

func computeU(a, b *big.Int) *big.Int {
	size := (n4096.BitLen() + 7) / 8
	h := sha256.New()
	h.Write(padBig(a, size))
	h.Write(padBig(b, size))
	return new(big.Int).SetBytes(h.Sum(nil))
}

// computeX derives the private key exponent x = H(salt || H(identity || ":" || loginKey))
// where loginKey stands in for the account password, per RFC 2945 x derivation.
func computeX(salt, identity, loginKey []byte) *big.Int {
	inner := sha256.New()
	inner.Write(identity)
	inner.Write([]byte(":"))
	inner.Write(loginKey)
	innerSum := inner.Sum(nil)

	outer := sha256.New()
	outer.Write(salt)
	outer.Write(innerSum)
	return new(big.Int).SetBytes(outer.Sum(nil))
}

// computeM1 is RFC 2945's client proof: H(H(N) xor H(g) || H(I) || s || A || B || K).
func computeM1(n, g *big.Int, identity, salt []byte, a, b *big.Int, key []byte) []byte {
	size := (n.BitLen() + 7) / 8

	hn := sha256.Sum256(n.Bytes())
	hg := sha256.Sum256(padBig(g, size))
	var hxor [sha256.Size]byte
	for i := range hxor {
		hxor[i] = hn[i] ^ hg[i]
	}
	hi := sha256.Sum256(identity)

	h := sha256.New()
	h.Write(hxor[:])
	h.Write(hi[:])
	h.Write(salt)
	h.Write(padBig(a, size))
	h.Write(padBig(b, size))
	h.Write(key)
	return h.Sum(nil)
}

// computeM2 is the server proof: H(A || M1 || K).
func computeM2(a *big.Int, m1, key []byte) []byte {
	size := (n4096.BitLen() + 7) / 8
	h := sha256.New()
	h.Write(padBig(a, size))
	h.Write(m1)
	h.Write(key)
	return h.Sum(nil)
}
