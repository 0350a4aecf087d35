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

// Package envelope chains the per-account key hierarchy: password -> KEK ->
// master key -> X25519 secret key -> session token. Every step is an
// authenticated secretbox or sealed-box open, so a single bit flip anywhere
// in the chain is detected rather than silently corrupting the next step.
package envelope

import (
	"encoding/base64"
	"fmt"

	"github.com/ente-x/cryptocore/auth/srp"
	"github.com/ente-x/cryptocore/crypto/kdf"
	"github.com/ente-x/cryptocore/crypto/sealed"
	"github.com/ente-x/cryptocore/crypto/secretbox"
	"github.com/ente-x/cryptocore/internal/errs"
)

// SRPAttributes are the server-issued parameters needed to start a login:
// kept in memory only for the duration of one login attempt.
type SRPAttributes struct {
	SRPUserID         string
	SRPSalt           []byte
	KEKSalt           []byte
	MemLimit          uint32
	OpsLimit          uint32
	IsEmailMFAEnabled bool
}

// KeyAttributes is the persisted, server-opaque key material a login
// pipeline inverts back into plaintext keys.
type KeyAttributes struct {
	KEKSalt                  []byte
	EncryptedKey             []byte // master key under KEK
	KeyDecryptionNonce       []byte
	PublicKey                []byte
	EncryptedSecretKey       []byte // secret key under master key
	SecretKeyDecryptionNonce []byte
	MemLimit                 uint32
	OpsLimit                 uint32

	// Recovery branch, optional: present together or not at all.
	MasterKeyEncryptedWithRecoveryKey []byte
	MasterKeyDecryptionNonce          []byte
	RecoveryKeyEncryptedWithMasterKey []byte
	RecoveryKeyDecryptionNonce        []byte
}

// HasRecoveryBranch reports whether the recovery fields are populated.
func (a KeyAttributes) HasRecoveryBranch() bool {
	return len(a.MasterKeyEncryptedWithRecoveryKey) > 0 && len(a.RecoveryKeyEncryptedWithMasterKey) > 0
}

// Credentials is the output of DeriveSRPCredentials: what the SRP exchange
// needs (login_key) plus the KEK the rest of the chain needs afterward.
type Credentials struct {
	KEK      []byte
	LoginKey []byte
}

// DeriveSRPCredentials computes the KEK via Argon2id over the server-issued
// salt and work factors, then derives the login key SRP treats as the
// password. The real password never leaves this function.
func DeriveSRPCredentials(password string, attrs SRPAttributes) (Credentials, error) {
	kek, err := DeriveKEK(password, attrs.KEKSalt, attrs.MemLimit, attrs.OpsLimit)
	if err != nil {
		return Credentials{}, err
	}
	loginKey, err := kdf.DeriveLoginKey(kek)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{KEK: kek, LoginKey: loginKey}, nil
}

// DeriveKEK derives the key-encryption-key for the email-MFA flow, which
// skips SRP entirely and only ever needs the KEK.
func DeriveKEK(password string, kekSalt []byte, memLimit, opsLimit uint32) ([]byte, error) {
	return kdf.Argon2id(password, kekSalt, memLimit, opsLimit)
}

// CreateSRPClient combines DeriveSRPCredentials with srp.New, returning a
// ready-to-use SRP client and the KEK needed once the handshake succeeds.
func CreateSRPClient(password string, attrs SRPAttributes) (*srp.Client, []byte, error) {
	creds, err := DeriveSRPCredentials(password, attrs)
	if err != nil {
		return nil, nil, err
	}
	client, err := srp.New([]byte(attrs.SRPUserID), attrs.SRPSalt, creds.LoginKey)
	if err != nil {
		return nil, nil, err
	}
	return client, creds.KEK, nil
}

// Secrets is the fully decrypted key chain handed back to the caller after a
// successful login.
type Secrets struct {
	MasterKey []byte
	SecretKey []byte
	Token     []byte
}

// DecryptSecrets executes the four-step chain: KEK opens the master key,
// the master key opens the X25519 secret key, and the secret key opens the
// session token, either a sealed box or a plain base64 string, per
// tokenIsSealed.
//
// Failure attribution matters here: a KEK that's wrong because the user
// typed the wrong password fails at the very first step, so only that step
// is reported as WrongPassword. Any later failure means the KEK was right
// but something downstream is internally inconsistent: a data-integrity
// problem, never "wrong password".
func DecryptSecrets(kek []byte, attrs KeyAttributes, token []byte, tokenIsSealed bool) (Secrets, error) {
	masterKey, err := secretbox.Decrypt(attrs.EncryptedKey, attrs.KeyDecryptionNonce, kek)
	if err != nil {
		return Secrets{}, fmt.Errorf("envelope: %w", errs.ErrWrongPassword)
	}

	secretKey, err := secretbox.Decrypt(attrs.EncryptedSecretKey, attrs.SecretKeyDecryptionNonce, masterKey)
	if err != nil {
		return Secrets{}, fmt.Errorf("envelope: %w: secret key did not decrypt under master key", errs.ErrCorruptKeyAttrs)
	}

	plainToken, err := openToken(token, tokenIsSealed, attrs.PublicKey, secretKey)
	if err != nil {
		return Secrets{}, err
	}

	return Secrets{MasterKey: masterKey, SecretKey: secretKey, Token: plainToken}, nil
}

func openToken(token []byte, tokenIsSealed bool, publicKey, secretKey []byte) ([]byte, error) {
	if !tokenIsSealed {
		decoded, err := decodeTokenBase64(token)
		if err != nil {
			return nil, fmt.Errorf("envelope: %w: session token is not valid base64", errs.ErrCorruptKeyAttrs)
		}
		return decoded, nil
	}
	plain, err := sealed.Open(token, publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: session token did not decrypt under secret key", errs.ErrCorruptKeyAttrs)
	}
	return plain, nil
}

func decodeTokenBase64(token []byte) ([]byte, error) {
	s := string(token)
	if out, err := base64.StdEncoding.DecodeString(s); err == nil {
		return out, nil
	}
	if out, err := base64.URLEncoding.DecodeString(s); err == nil {
		return out, nil
	}
	if out, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return out, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// RecoverWithKey uses the recovery-key branch to recover the master key
// without the password, returning errs.ErrNoRecoveryBranch when the account
// has none.
func RecoverWithKey(recoveryKey []byte, attrs KeyAttributes) ([]byte, error) {
	if !attrs.HasRecoveryBranch() {
		return nil, fmt.Errorf("envelope: %w", errs.ErrNoRecoveryBranch)
	}
	// A recovery key shorter than a secretbox key (keygen mints 24 bytes) is
	// zero-padded and stretched exactly as keygen's recovery branch does; a
	// 32-byte key is used as the box key directly.
	boxKey := recoveryKey
	if len(recoveryKey) < secretbox.KeyBytes {
		padded := make([]byte, secretbox.KeyBytes)
		copy(padded, recoveryKey)
		stretched, err := kdf.Subkey(padded, 32, 2, "recovkey")
		if err != nil {
			return nil, fmt.Errorf("envelope: %w", err)
		}
		boxKey = stretched
	}
	masterKey, err := secretbox.Decrypt(attrs.MasterKeyEncryptedWithRecoveryKey, attrs.MasterKeyDecryptionNonce, boxKey)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w: master key did not decrypt under recovery key", errs.ErrCorruptKeyAttrs)
	}
	return masterKey, nil
}
