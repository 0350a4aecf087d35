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

package stream

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ente-x/cryptocore/internal/errs"
)

func testKey() []byte {
	k := make([]byte, KeyBytes)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestSingleChunkRoundTrip(t *testing.T) {
	key := testKey()
	header, ct, err := Encrypt([]byte("Hello, World!"), key)
	require.NoError(t, err)
	require.Len(t, header, HeaderBytes)
	require.Len(t, ct, len("Hello, World!")+ABytes)

	pt, err := Decrypt(header, ct, key)
	require.NoError(t, err)
	require.Equal(t, "Hello, World!", string(pt))
}

func TestEmptyPlaintext(t *testing.T) {
	key := testKey()
	header, ct, err := Encrypt(nil, key)
	require.NoError(t, err)
	require.Len(t, ct, ABytes)

	pt, err := Decrypt(header, ct, key)
	require.NoError(t, err)
	require.Empty(t, pt)
}

func TestMultiChunkRoundTrip(t *testing.T) {
	key := testKey()
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	c1, err := enc.Push([]byte("one"), false)
	require.NoError(t, err)
	c2, err := enc.Push([]byte("two"), false)
	require.NoError(t, err)
	c3, err := enc.Push([]byte("three"), true)
	require.NoError(t, err)

	dec, err := NewDecryptor(enc.Header, key)
	require.NoError(t, err)

	p1, tag1, err := dec.Pull(c1)
	require.NoError(t, err)
	require.Equal(t, byte(TagMessage), tag1)
	require.Equal(t, "one", string(p1))

	p2, tag2, err := dec.Pull(c2)
	require.NoError(t, err)
	require.Equal(t, byte(TagMessage), tag2)
	require.Equal(t, "two", string(p2))

	p3, tag3, err := dec.Pull(c3)
	require.NoError(t, err)
	require.Equal(t, byte(TagFinal), tag3)
	require.Equal(t, "three", string(p3))
}

// Vectors produced by libsodium's crypto_secretstream_xchacha20poly1305_push
// under a 32-byte key of 0x42 repeated. Decrypting them exercises the whole
// construction against the reference implementation, not just against our
// own encryptor.
func TestDecryptorLibsodiumSingleChunkVector(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyBytes)
	header, _ := hex.DecodeString("07a172bd97c2ecb4bd90233e9fb6bbefe40af54366cc7d43")
	chunk, _ := hex.DecodeString("cdd384cc34d9628b3caca3b63f41f3bfc8cdea426e2e67e40c9cdcdf16ad")
	require.Len(t, chunk, len("Hello, World!")+ABytes)

	dec, err := NewDecryptor(header, key)
	require.NoError(t, err)
	pt, tag, err := dec.Pull(chunk)
	require.NoError(t, err)
	require.Equal(t, byte(TagFinal), tag)
	require.Equal(t, "Hello, World!", string(pt))
}

func TestDecryptorLibsodiumThreeChunkVector(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, KeyBytes)
	header, _ := hex.DecodeString("1166d59afeb9c9575553d05200003546ac353ad67a2f614d")
	chunks := []string{
		"67384df3a5d537fd5a8979ca0cf12af32dcfed4be0cc",
		"d20048651908b916a184ea7c14a6e644db5f72248991af",
		"d0229f1861409d582271ff298d266b51ad102f76d3e0",
	}
	wantText := []string{"First", "Second", "Third"}
	wantTags := []byte{TagMessage, TagMessage, TagFinal}

	dec, err := NewDecryptor(header, key)
	require.NoError(t, err)
	for i, c := range chunks {
		raw, _ := hex.DecodeString(c)
		pt, tag, err := dec.Pull(raw)
		require.NoError(t, err)
		require.Equal(t, wantTags[i], tag)
		require.Equal(t, wantText[i], string(pt))
	}
}

func TestTamperedCiphertextFails(t *testing.T) {
	key := testKey()
	header, ct, err := Encrypt([]byte("secret payload"), key)
	require.NoError(t, err)

	tampered := append([]byte(nil), ct...)
	tampered[len(tampered)/2] ^= 0xff

	_, err = Decrypt(header, tampered, key)
	require.ErrorIs(t, err, errs.ErrAuthFailed)
}

func TestWrongKeyFails(t *testing.T) {
	header, ct, err := Encrypt([]byte("secret payload"), testKey())
	require.NoError(t, err)

	other := testKey()
	other[0] ^= 1

	_, err = Decrypt(header, ct, other)
	require.ErrorIs(t, err, errs.ErrAuthFailed)
}

func TestOutOfOrderPullFails(t *testing.T) {
	key := testKey()
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	c1, err := enc.Push([]byte("one"), false)
	require.NoError(t, err)
	c2, err := enc.Push([]byte("two"), true)
	require.NoError(t, err)

	dec, err := NewDecryptor(enc.Header, key)
	require.NoError(t, err)

	// Pulling out of order diverges the nonce ratchet; the second chunk
	// must fail to authenticate against state that never saw the first.
	_, _, err = dec.Pull(c2)
	require.ErrorIs(t, err, errs.ErrAuthFailed)

	_ = c1
}

func TestEncryptDecryptFileRoundTrip(t *testing.T) {
	key := testKey()
	plaintext := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 10000)

	var wire bytes.Buffer
	md5sum, err := EncryptFile(&wire, bytes.NewReader(plaintext), key)
	require.NoError(t, err)
	require.NotEmpty(t, md5sum)

	var out bytes.Buffer
	err = DecryptFile(&out, bytes.NewReader(wire.Bytes()), key, true)
	require.NoError(t, err)
	require.Equal(t, plaintext, out.Bytes())
}

func TestEncryptFileVerifiedRoundTrip(t *testing.T) {
	key := testKey()
	plaintext := bytes.Repeat([]byte("chunk payload "), 2048)

	var wire bytes.Buffer
	ctMD5, err := EncryptFileVerified(&wire, bytes.NewReader(plaintext), key)
	require.NoError(t, err)

	sum := md5.Sum(wire.Bytes())
	require.Equal(t, hex.EncodeToString(sum[:]), ctMD5)

	var out bytes.Buffer
	require.NoError(t, DecryptFile(&out, bytes.NewReader(wire.Bytes()), key, true))
	require.Equal(t, plaintext, out.Bytes())
}

func TestEncryptDecryptFileEmpty(t *testing.T) {
	key := testKey()
	var wire bytes.Buffer
	_, err := EncryptFile(&wire, bytes.NewReader(nil), key)
	require.NoError(t, err)

	var out bytes.Buffer
	err = DecryptFile(&out, bytes.NewReader(wire.Bytes()), key, true)
	require.NoError(t, err)
	require.Empty(t, out.Bytes())
}

func TestEstimateEncryptedSize(t *testing.T) {
	require.Equal(t, int64(ABytes), EstimateEncryptedSize(0))
	require.Equal(t, int64(100+ABytes), EstimateEncryptedSize(100))
	require.Equal(t, int64(DefaultChunkSize+ABytes)*2, EstimateEncryptedSize(2*DefaultChunkSize))
}

func TestAdditionalDataMustMatch(t *testing.T) {
	key := testKey()
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	ct, err := enc.PushWithAD([]byte("payload"), []byte("session-id"), true)
	require.NoError(t, err)

	dec, err := NewDecryptor(enc.Header, key)
	require.NoError(t, err)

	_, _, err = dec.PullWithAD(ct, []byte("wrong-session-id"))
	require.ErrorIs(t, err, errs.ErrAuthFailed)

	dec2, err := NewDecryptor(enc.Header, key)
	require.NoError(t, err)
	pt, tag, err := dec2.PullWithAD(ct, []byte("session-id"))
	require.NoError(t, err)
	require.Equal(t, byte(TagFinal), tag)
	require.Equal(t, "payload", string(pt))
}
