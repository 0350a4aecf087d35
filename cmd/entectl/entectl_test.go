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
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ente-x/cryptocore/auth/envelope"
	"github.com/ente-x/cryptocore/auth/keygen"
	"github.com/ente-x/cryptocore/crypto/hash"
	"github.com/ente-x/cryptocore/crypto/primitives"
	"github.com/ente-x/cryptocore/crypto/sealed"
	"github.com/ente-x/cryptocore/crypto/stream"
)

func TestToAccountJSONRoundTripsThroughDecodeKeyAttributes(t *testing.T) {
	account, err := keygen.GenerateKeysWithStrength("hunter2", keygen.StrengthInteractive)
	require.NoError(t, err)

	encoded := toAccountJSON(account)
	decoded, err := decodeKeyAttributes(encoded.Attrs)
	require.NoError(t, err)

	require.Equal(t, account.Attrs, decoded)
}

func TestToAccountJSONOmitsRecoveryFieldsWhenAbsent(t *testing.T) {
	account, err := keygen.GenerateKeysWithStrength("hunter2", keygen.StrengthInteractive)
	require.NoError(t, err)
	account.Attrs.MasterKeyEncryptedWithRecoveryKey = nil
	account.Attrs.RecoveryKeyEncryptedWithMasterKey = nil

	encoded := toAccountJSON(account)
	require.Empty(t, encoded.Attrs.MasterKeyEncryptedWithRecoveryKey)
	require.Empty(t, encoded.Attrs.RecoveryKeyEncryptedWithMasterKey)

	decoded, err := decodeKeyAttributes(encoded.Attrs)
	require.NoError(t, err)
	require.False(t, decoded.HasRecoveryBranch())
}

func TestLoginDecryptFlowAgainstSealedToken(t *testing.T) {
	password := "correct horse battery staple"
	account, err := keygen.GenerateKeysWithStrength(password, keygen.StrengthInteractive)
	require.NoError(t, err)

	sessionToken := []byte("super-secret-session-token")
	sealedToken, err := sealed.Seal(sessionToken, account.Attrs.PublicKey)
	require.NoError(t, err)

	encoded := toAccountJSON(account)
	attrs, err := decodeKeyAttributes(encoded.Attrs)
	require.NoError(t, err)

	kek, err := envelope.DeriveKEK(password, attrs.KEKSalt, attrs.MemLimit, attrs.OpsLimit)
	require.NoError(t, err)

	secrets, err := envelope.DecryptSecrets(kek, attrs, sealedToken, true)
	require.NoError(t, err)
	require.Equal(t, account.MasterKey, secrets.MasterKey)
	require.Equal(t, account.SecretKey, secrets.SecretKey)
	require.Equal(t, sessionToken, secrets.Token)
}

func TestLoginDecryptFlowRejectsWrongPassword(t *testing.T) {
	account, err := keygen.GenerateKeysWithStrength("right-password", keygen.StrengthInteractive)
	require.NoError(t, err)

	encoded := toAccountJSON(account)
	attrs, err := decodeKeyAttributes(encoded.Attrs)
	require.NoError(t, err)

	kek, err := envelope.DeriveKEK("wrong-password", attrs.KEKSalt, attrs.MemLimit, attrs.OpsLimit)
	require.NoError(t, err)

	token := []byte(base64.StdEncoding.EncodeToString([]byte("irrelevant")))
	_, err = envelope.DecryptSecrets(kek, attrs, token, false)
	require.Error(t, err)
}

func TestStreamEncryptDecryptFileRoundTrip(t *testing.T) {
	key, err := primitives.GenerateStreamKey()
	require.NoError(t, err)

	dir := t.TempDir()
	plainPath := filepath.Join(dir, "plain.bin")
	cipherPath := filepath.Join(dir, "cipher.bin")
	roundTripPath := filepath.Join(dir, "roundtrip.bin")

	plaintext := []byte("the quick brown fox jumps over the lazy dog, repeated many times. ")
	require.NoError(t, os.WriteFile(plainPath, plaintext, 0o600))

	in, err := os.Open(plainPath)
	require.NoError(t, err)
	out, err := os.Create(cipherPath)
	require.NoError(t, err)
	_, err = stream.EncryptFile(out, in, key)
	require.NoError(t, err)
	require.NoError(t, in.Close())
	require.NoError(t, out.Close())

	in, err = os.Open(cipherPath)
	require.NoError(t, err)
	out, err = os.Create(roundTripPath)
	require.NoError(t, err)
	require.NoError(t, stream.DecryptFile(out, in, key, true))
	require.NoError(t, in.Close())
	require.NoError(t, out.Close())

	got, err := os.ReadFile(roundTripPath)
	require.NoError(t, err)
	require.Equal(t, plaintext, got)
}

func TestParseStrengthRejectsUnknownValue(t *testing.T) {
	_, err := parseStrength("ultra")
	require.Error(t, err)
}

func TestParseStrengthAcceptsKnownValues(t *testing.T) {
	for _, s := range []string{"interactive", "moderate", "sensitive"} {
		_, err := parseStrength(s)
		require.NoError(t, err)
	}
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	require.NoError(t, versionCmd.RunE(versionCmd, nil))

	versionJSON = true
	defer func() { versionJSON = false }()
	require.NoError(t, versionCmd.RunE(versionCmd, nil))
}

func TestHashFileMatchesHashReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("attachment bytes"), 0o600))

	got, err := hashFile(path, 32, nil)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	want, err := hash.HashReader(f, 32)
	require.NoError(t, err)

	require.Equal(t, want, got)
}

func TestHashFileWithKeyDiffersFromUnkeyed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("attachment bytes"), 0o600))

	unkeyed, err := hashFile(path, 32, nil)
	require.NoError(t, err)
	keyed, err := hashFile(path, 32, make([]byte, 32))
	require.NoError(t, err)

	require.NotEqual(t, unkeyed, keyed)
}
