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

// Package keygen mints the key material a new account needs at signup: a
// master key, an X25519 keypair, and a recovery key, all wired together into
// a auth/envelope.KeyAttributes that the login pipeline can invert.
package keygen

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ente-x/cryptocore/auth/envelope"
	"github.com/ente-x/cryptocore/crypto/hash"
	"github.com/ente-x/cryptocore/crypto/kdf"
	"github.com/ente-x/cryptocore/crypto/primitives"
	"github.com/ente-x/cryptocore/crypto/secretbox"
	"github.com/ente-x/cryptocore/internal/errs"
)

// RecoveryKeyBytes is the size of the raw recovery key; frontends render it
// as a mnemonic word list.
const RecoveryKeyBytes = 24

// Strength selects the Argon2id work factor a password is hashed at.
type Strength int

const (
	StrengthInteractive Strength = iota
	StrengthModerate
	StrengthSensitive
)

// NewAccount bundles every secret a successful signup mints. The caller is
// responsible for sending Attrs to the server and keeping RecoveryKey (and
// its mnemonic encoding) only on the user's device.
type NewAccount struct {
	MasterKey   []byte
	PublicKey   []byte
	SecretKey   []byte
	RecoveryKey []byte
	Attrs       envelope.KeyAttributes
}

// GenerateKeys mints a new account at the INTERACTIVE work factor, the
// default signup flow.
func GenerateKeys(password string) (NewAccount, error) {
	return GenerateKeysWithStrength(password, StrengthInteractive)
}

// GenerateKeysWithStrength mints a new account, deriving the KEK at the
// requested strength tier.
func GenerateKeysWithStrength(password string, strength Strength) (NewAccount, error) {
	masterKey, err := primitives.GenerateKey()
	if err != nil {
		return NewAccount{}, err
	}
	keypair, err := primitives.GenerateKeypair()
	if err != nil {
		return NewAccount{}, err
	}
	recoveryKey, err := primitives.RandomBytes(RecoveryKeyBytes)
	if err != nil {
		return NewAccount{}, err
	}

	derived, err := deriveKEKAtStrength(password, strength)
	if err != nil {
		return NewAccount{}, err
	}

	keyNonce, err := primitives.GenerateSecretBoxNonce()
	if err != nil {
		return NewAccount{}, err
	}
	encryptedKey, err := secretbox.EncryptWithNonce(masterKey, keyNonce, derived.Key)
	if err != nil {
		return NewAccount{}, err
	}

	secretNonce, err := primitives.GenerateSecretBoxNonce()
	if err != nil {
		return NewAccount{}, err
	}
	encryptedSecretKey, err := secretbox.EncryptWithNonce(keypair.Secret, secretNonce, masterKey)
	if err != nil {
		return NewAccount{}, err
	}

	recoveryBranch, err := buildRecoveryBranch(masterKey, recoveryKey)
	if err != nil {
		return NewAccount{}, err
	}

	attrs := envelope.KeyAttributes{
		KEKSalt:                  derived.Salt,
		EncryptedKey:             encryptedKey,
		KeyDecryptionNonce:       keyNonce,
		PublicKey:                keypair.Public,
		EncryptedSecretKey:       encryptedSecretKey,
		SecretKeyDecryptionNonce: secretNonce,
		MemLimit:                 derived.MemLimit,
		OpsLimit:                 derived.OpsLimit,

		MasterKeyEncryptedWithRecoveryKey: recoveryBranch.masterUnderRecovery,
		MasterKeyDecryptionNonce:          recoveryBranch.masterNonce,
		RecoveryKeyEncryptedWithMasterKey: recoveryBranch.recoveryUnderMaster,
		RecoveryKeyDecryptionNonce:        recoveryBranch.recoveryNonce,
	}

	return NewAccount{
		MasterKey:   masterKey,
		PublicKey:   keypair.Public,
		SecretKey:   keypair.Secret,
		RecoveryKey: recoveryKey,
		Attrs:       attrs,
	}, nil
}

func deriveKEKAtStrength(password string, strength Strength) (kdf.DerivedKey, error) {
	switch strength {
	case StrengthInteractive:
		return kdf.DeriveInteractiveKey(password)
	case StrengthModerate:
		salt, err := primitives.GenerateSalt()
		if err != nil {
			return kdf.DerivedKey{}, err
		}
		key, err := kdf.Argon2id(password, salt, kdf.MemlimitModerate, kdf.OpslimitModerate)
		if err != nil {
			return kdf.DerivedKey{}, err
		}
		return kdf.DerivedKey{Key: key, Salt: salt, MemLimit: kdf.MemlimitModerate, OpsLimit: kdf.OpslimitModerate}, nil
	case StrengthSensitive:
		return kdf.DeriveSensitiveKey(password, 0)
	default:
		return kdf.DerivedKey{}, fmt.Errorf("keygen: %w: unknown strength tier %d", errs.ErrBadParams, strength)
	}
}

type recoveryBranch struct {
	masterUnderRecovery []byte
	masterNonce         []byte
	recoveryUnderMaster []byte
	recoveryNonce       []byte
}

func buildRecoveryBranch(masterKey, recoveryKey []byte) (recoveryBranch, error) {
	// The recovery key is only 24 bytes; secretbox needs a 32-byte key, so
	// it is stretched with the same subkey construction used for the login
	// key, under a distinct context so the two can never collide.
	recoveryBoxKey, err := kdf.Subkey(padRecoveryKeyTo32(recoveryKey), 32, 2, "recovkey")
	if err != nil {
		return recoveryBranch{}, err
	}

	masterNonce, err := primitives.GenerateSecretBoxNonce()
	if err != nil {
		return recoveryBranch{}, err
	}
	masterUnderRecovery, err := secretbox.EncryptWithNonce(masterKey, masterNonce, recoveryBoxKey)
	if err != nil {
		return recoveryBranch{}, err
	}

	recoveryNonce, err := primitives.GenerateSecretBoxNonce()
	if err != nil {
		return recoveryBranch{}, err
	}
	recoveryUnderMaster, err := secretbox.EncryptWithNonce(recoveryKey, recoveryNonce, masterKey)
	if err != nil {
		return recoveryBranch{}, err
	}

	return recoveryBranch{
		masterUnderRecovery: masterUnderRecovery,
		masterNonce:         masterNonce,
		recoveryUnderMaster: recoveryUnderMaster,
		recoveryNonce:       recoveryNonce,
	}, nil
}

// padRecoveryKeyTo32 zero-extends the 24-byte recovery key to the 32 bytes
// kdf.Subkey requires as input key material. The subkey output, not this
// padding, is what provides the actual secretbox key strength.
func padRecoveryKeyTo32(recoveryKey []byte) []byte {
	out := make([]byte, 32)
	copy(out, recoveryKey)
	return out
}

// rotationContext binds rotation records to their purpose: it is both the
// HPKE info string and the seal's additional authenticated data, so a
// record cannot be replayed into some other HPKE exchange.
const rotationContext = "recovery-key-rotation"

// Rotation is the result of RotateRecoveryKey: the fresh recovery key, the
// rebuilt attributes, and a record of the rotation sealed to the account's
// public key, so any device holding the secret key can later audit when
// the branch last moved and to which key.
type Rotation struct {
	RecoveryKey  []byte
	Attrs        envelope.KeyAttributes
	SealedRecord []byte
}

// RotationRecord is the plaintext inside Rotation.SealedRecord.
type RotationRecord struct {
	RotatedAt      int64  `json:"rotated_at"`
	KeyFingerprint string `json:"key_fingerprint"`
}

// RecoveryKeyFingerprint returns the short BLAKE2b-derived identifier a
// RotationRecord names the new key by. Not secret: it identifies a
// recovery key without revealing it.
func RecoveryKeyFingerprint(recoveryKey []byte) (string, error) {
	sum, err := hash.Hash(recoveryKey, 16, nil)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum[:8]), nil
}

// RotateRecoveryKey mints a fresh recovery key for an existing account and
// rebuilds the recovery branch of attrs around it, without touching the
// password-derived branch. Exposed independently of initial signup so a
// user can rotate their recovery key after a suspected leak. The returned
// SealedRecord is an envelope.SealRecoveryContext packet for the account's
// public key; persist it next to the attributes and read it back with
// OpenRotationRecord.
func RotateRecoveryKey(masterKey []byte, attrs envelope.KeyAttributes) (Rotation, error) {
	recoveryKey, err := primitives.RandomBytes(RecoveryKeyBytes)
	if err != nil {
		return Rotation{}, err
	}
	branch, err := buildRecoveryBranch(masterKey, recoveryKey)
	if err != nil {
		return Rotation{}, err
	}

	attrs.MasterKeyEncryptedWithRecoveryKey = branch.masterUnderRecovery
	attrs.MasterKeyDecryptionNonce = branch.masterNonce
	attrs.RecoveryKeyEncryptedWithMasterKey = branch.recoveryUnderMaster
	attrs.RecoveryKeyDecryptionNonce = branch.recoveryNonce

	fingerprint, err := RecoveryKeyFingerprint(recoveryKey)
	if err != nil {
		return Rotation{}, err
	}
	record, err := json.Marshal(RotationRecord{
		RotatedAt:      time.Now().UnixMicro(),
		KeyFingerprint: fingerprint,
	})
	if err != nil {
		return Rotation{}, fmt.Errorf("keygen: %w: %v", errs.ErrBadParams, err)
	}
	sealedRecord, err := envelope.SealRecoveryContext(attrs.PublicKey, record, []byte(rotationContext))
	if err != nil {
		return Rotation{}, err
	}

	return Rotation{RecoveryKey: recoveryKey, Attrs: attrs, SealedRecord: sealedRecord}, nil
}

// OpenRotationRecord decrypts a Rotation.SealedRecord with the account's
// X25519 secret key.
func OpenRotationRecord(secretKey, sealedRecord []byte) (RotationRecord, error) {
	plain, err := envelope.OpenRecoveryContext(secretKey, sealedRecord, []byte(rotationContext))
	if err != nil {
		return RotationRecord{}, err
	}
	var record RotationRecord
	if err := json.Unmarshal(plain, &record); err != nil {
		return RotationRecord{}, fmt.Errorf("keygen: %w: %v", errs.ErrBadEncoding, err)
	}
	return record, nil
}

// GetRecoveryKey recovers the raw recovery key from the recovery branch
// given the master key, so a logged-in user can re-display it.
func GetRecoveryKey(masterKey []byte, attrs envelope.KeyAttributes) ([]byte, error) {
	if !attrs.HasRecoveryBranch() {
		return nil, fmt.Errorf("keygen: %w", errs.ErrNoRecoveryBranch)
	}
	recoveryKey, err := secretbox.Decrypt(attrs.RecoveryKeyEncryptedWithMasterKey, attrs.RecoveryKeyDecryptionNonce, masterKey)
	if err != nil {
		return nil, fmt.Errorf("keygen: %w: recovery key did not decrypt under master key", errs.ErrCorruptKeyAttrs)
	}
	return recoveryKey, nil
}

// EncodeRecoveryKey renders a raw recovery key as lowercase hex. Word-list
// mnemonics are a frontend concern; this core stops at hex.
func EncodeRecoveryKey(recoveryKey []byte) string {
	return hex.EncodeToString(recoveryKey)
}

// DecodeRecoveryKey parses a hex-encoded recovery key produced by
// EncodeRecoveryKey, validating its length.
func DecodeRecoveryKey(encoded string) ([]byte, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("keygen: %w: %v", errs.ErrBadEncoding, err)
	}
	if len(raw) != RecoveryKeyBytes {
		return nil, fmt.Errorf("keygen: %w: recovery key must be %d bytes, got %d", errs.ErrBadLen, RecoveryKeyBytes, len(raw))
	}
	return raw, nil
}
