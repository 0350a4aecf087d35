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

package keygen

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ente-x/cryptocore/auth/envelope"
	"github.com/ente-x/cryptocore/crypto/primitives"
	"github.com/ente-x/cryptocore/crypto/sealed"
	"github.com/ente-x/cryptocore/internal/errs"
)

func TestGenerateKeysEnvelopeRoundTrip(t *testing.T) {
	account, err := GenerateKeys("correct horse battery staple")
	require.NoError(t, err)

	kek, err := envelope.DeriveKEK("correct horse battery staple", account.Attrs.KEKSalt, account.Attrs.MemLimit, account.Attrs.OpsLimit)
	require.NoError(t, err)

	// Token is nil/empty here; only the key chain is under test.
	secrets, err := envelope.DecryptSecrets(kek, account.Attrs, nil, false)
	require.NoError(t, err)
	require.Empty(t, secrets.Token)
	require.Equal(t, account.MasterKey, secrets.MasterKey)
	require.Equal(t, account.SecretKey, secrets.SecretKey)
}

func TestGenerateKeysSealedTokenRoundTrip(t *testing.T) {
	account, err := GenerateKeys("a password")
	require.NoError(t, err)

	token := []byte("server-issued-session-token")
	sealedToken, err := sealed.Seal(token, account.PublicKey)
	require.NoError(t, err)

	kek, err := envelope.DeriveKEK("a password", account.Attrs.KEKSalt, account.Attrs.MemLimit, account.Attrs.OpsLimit)
	require.NoError(t, err)

	secrets, err := envelope.DecryptSecrets(kek, account.Attrs, sealedToken, true)
	require.NoError(t, err)
	require.Equal(t, token, secrets.Token)
}

func TestGenerateKeysWrongPasswordFails(t *testing.T) {
	account, err := GenerateKeys("the right password")
	require.NoError(t, err)

	kek, err := envelope.DeriveKEK("the wrong password", account.Attrs.KEKSalt, account.Attrs.MemLimit, account.Attrs.OpsLimit)
	require.NoError(t, err)

	_, err = envelope.DecryptSecrets(kek, account.Attrs, nil, false)
	require.ErrorIs(t, err, errs.ErrWrongPassword)
}

func TestGenerateKeysPopulatesRecoveryBranch(t *testing.T) {
	account, err := GenerateKeys("a password")
	require.NoError(t, err)
	require.True(t, account.Attrs.HasRecoveryBranch())

	recovered, err := envelope.RecoverWithKey(account.RecoveryKey, account.Attrs)
	require.NoError(t, err)
	require.Equal(t, account.MasterKey, recovered)
}

func TestGetRecoveryKeyRoundTrip(t *testing.T) {
	account, err := GenerateKeys("a password")
	require.NoError(t, err)

	recovered, err := GetRecoveryKey(account.MasterKey, account.Attrs)
	require.NoError(t, err)
	require.Equal(t, account.RecoveryKey, recovered)
}

func TestRotateRecoveryKeyChangesBranchButNotPasswordBranch(t *testing.T) {
	account, err := GenerateKeys("a password")
	require.NoError(t, err)

	rotation, err := RotateRecoveryKey(account.MasterKey, account.Attrs)
	require.NoError(t, err)
	require.NotEqual(t, account.RecoveryKey, rotation.RecoveryKey)

	// Password-derived branch is untouched by rotation.
	require.Equal(t, account.Attrs.EncryptedKey, rotation.Attrs.EncryptedKey)
	require.Equal(t, account.Attrs.EncryptedSecretKey, rotation.Attrs.EncryptedSecretKey)

	recovered, err := envelope.RecoverWithKey(rotation.RecoveryKey, rotation.Attrs)
	require.NoError(t, err)
	require.Equal(t, account.MasterKey, recovered)

	// Old recovery key no longer opens the rotated branch.
	_, err = envelope.RecoverWithKey(account.RecoveryKey, rotation.Attrs)
	require.ErrorIs(t, err, errs.ErrCorruptKeyAttrs)
}

func TestRotationRecordRoundTrip(t *testing.T) {
	account, err := GenerateKeys("a password")
	require.NoError(t, err)

	rotation, err := RotateRecoveryKey(account.MasterKey, account.Attrs)
	require.NoError(t, err)
	require.NotEmpty(t, rotation.SealedRecord)

	record, err := OpenRotationRecord(account.SecretKey, rotation.SealedRecord)
	require.NoError(t, err)
	require.NotZero(t, record.RotatedAt)

	fingerprint, err := RecoveryKeyFingerprint(rotation.RecoveryKey)
	require.NoError(t, err)
	require.Equal(t, fingerprint, record.KeyFingerprint)

	// Only the account's secret key can open the record.
	other, err := primitives.GenerateKeypair()
	require.NoError(t, err)
	_, err = OpenRotationRecord(other.Secret, rotation.SealedRecord)
	require.Error(t, err)
}

func TestEncodeDecodeRecoveryKeyRoundTrip(t *testing.T) {
	account, err := GenerateKeys("a password")
	require.NoError(t, err)

	encoded := EncodeRecoveryKey(account.RecoveryKey)
	decoded, err := DecodeRecoveryKey(encoded)
	require.NoError(t, err)
	require.Equal(t, account.RecoveryKey, decoded)
}

func TestDecodeRecoveryKeyRejectsBadLength(t *testing.T) {
	_, err := DecodeRecoveryKey("deadbeef")
	require.ErrorIs(t, err, errs.ErrBadLen)
}

func TestGenerateKeysWithStrengthModerate(t *testing.T) {
	account, err := GenerateKeysWithStrength("a password", StrengthModerate)
	require.NoError(t, err)
	require.EqualValues(t, 256*1024*1024, account.Attrs.MemLimit)
}
