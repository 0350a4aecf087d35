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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ente-x/cryptocore/auth/envelope"
	"github.com/ente-x/cryptocore/encoding"
	"github.com/ente-x/cryptocore/internal/logger"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Simulate the client-side login pipeline",
	Long: `login drives the same steps a real client takes after the server
has accepted its SRP proof: deriving the key-encryption-key from the
password, and unwrapping the master key, X25519 secret key, and session
token from a server-issued attributes blob.`,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.AddCommand(loginSRPInitCmd)
	loginCmd.AddCommand(loginDecryptCmd)
	loginCmd.AddCommand(loginWhoamiCmd)
}

var (
	srpInitPassword string
	srpInitIdentity string
	srpInitSRPSalt  string
	srpInitKEKSalt  string
	srpInitMemLimit uint32
	srpInitOpsLimit uint32
)

var loginSRPInitCmd = &cobra.Command{
	Use:   "srp-init",
	Short: "Derive SRP login credentials and compute the client's A value",
	Long: `srp-init runs the first client-side step of an SRP login: deriving
the key-encryption-key and SRP login key from the password via Argon2id,
then computing the ephemeral public value A to send to the server.`,
	Example: `  entectl login srp-init --password hunter2 --identity alice@example.com \
    --srp-salt <base64> --kek-salt <base64> --mem-limit 67108864 --ops-limit 2`,
	RunE: runLoginSRPInit,
}

func init() {
	loginSRPInitCmd.Flags().StringVarP(&srpInitPassword, "password", "p", "", "Account password (required)")
	loginSRPInitCmd.Flags().StringVar(&srpInitIdentity, "identity", "", "SRP user identity (required)")
	loginSRPInitCmd.Flags().StringVar(&srpInitSRPSalt, "srp-salt", "", "Base64 SRP salt (required)")
	loginSRPInitCmd.Flags().StringVar(&srpInitKEKSalt, "kek-salt", "", "Base64 KEK salt (required)")
	loginSRPInitCmd.Flags().Uint32Var(&srpInitMemLimit, "mem-limit", 67108864, "Argon2id memory limit in bytes")
	loginSRPInitCmd.Flags().Uint32Var(&srpInitOpsLimit, "ops-limit", 2, "Argon2id ops limit")
	loginSRPInitCmd.MarkFlagRequired("password")
	loginSRPInitCmd.MarkFlagRequired("identity")
	loginSRPInitCmd.MarkFlagRequired("srp-salt")
	loginSRPInitCmd.MarkFlagRequired("kek-salt")
}

func runLoginSRPInit(cmd *cobra.Command, args []string) error {
	srpSalt, err := encoding.DecodeB64(srpInitSRPSalt)
	if err != nil {
		return fmt.Errorf("invalid --srp-salt: %w", err)
	}
	kekSalt, err := encoding.DecodeB64(srpInitKEKSalt)
	if err != nil {
		return fmt.Errorf("invalid --kek-salt: %w", err)
	}

	attrs := envelope.SRPAttributes{
		SRPUserID: srpInitIdentity,
		SRPSalt:   srpSalt,
		KEKSalt:   kekSalt,
		MemLimit:  srpInitMemLimit,
		OpsLimit:  srpInitOpsLimit,
	}

	client, _, err := envelope.CreateSRPClient(srpInitPassword, attrs)
	if err != nil {
		return fmt.Errorf("failed to create SRP client: %w", err)
	}
	a := client.ComputeA()

	fmt.Printf("A: %s\n", encoding.EncodeB64(a))
	fmt.Println("Send A to the server, then feed its B value and M2 into your own client state machine to finish the handshake.")
	return nil
}

var (
	loginDecryptPassword    string
	loginDecryptAttrsFile   string
	loginDecryptToken       string
	loginDecryptTokenSealed bool
	loginDecryptMemLimit    uint32
	loginDecryptOpsLimit    uint32
	loginDecryptIdentity    string
	loginDecryptCache       bool
)

var loginDecryptCmd = &cobra.Command{
	Use:   "decrypt",
	Short: "Decrypt the master key, secret key, and session token",
	Long: `decrypt runs the post-SRP portion of login: deriving the
key-encryption-key from the password, then unwrapping the master key, the
X25519 secret key, and the session token from the attributes file produced
by "entectl keygen".`,
	Example: `  entectl login decrypt --password hunter2 --attrs account.json --token <base64>`,
	RunE:    runLoginDecrypt,
}

func init() {
	loginDecryptCmd.Flags().StringVarP(&loginDecryptPassword, "password", "p", "", "Account password (required)")
	loginDecryptCmd.Flags().StringVarP(&loginDecryptAttrsFile, "attrs", "a", "", "Key attributes JSON file from \"entectl keygen\" (required)")
	loginDecryptCmd.Flags().StringVarP(&loginDecryptToken, "token", "t", "", "Base64 session token (required)")
	loginDecryptCmd.Flags().BoolVar(&loginDecryptTokenSealed, "token-sealed", false, "Token is a sealed box rather than plain base64")
	loginDecryptCmd.Flags().StringVar(&loginDecryptIdentity, "identity", "", "Identity to record in the local session cache (defaults to --attrs file name)")
	loginDecryptCmd.Flags().BoolVar(&loginDecryptCache, "cache", false, "Cache a short-lived local session token on success")
	loginDecryptCmd.MarkFlagRequired("password")
	loginDecryptCmd.MarkFlagRequired("attrs")
	loginDecryptCmd.MarkFlagRequired("token")
}

func runLoginDecrypt(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(loginDecryptAttrsFile)
	if err != nil {
		return fmt.Errorf("failed to read attrs file: %w", err)
	}
	var stored newAccountJSON
	if err := json.Unmarshal(raw, &stored); err != nil {
		return fmt.Errorf("failed to parse attrs file: %w", err)
	}

	attrs, err := decodeKeyAttributes(stored.Attrs)
	if err != nil {
		return fmt.Errorf("failed to decode attrs: %w", err)
	}

	kek, err := envelope.DeriveKEK(loginDecryptPassword, attrs.KEKSalt, attrs.MemLimit, attrs.OpsLimit)
	if err != nil {
		return fmt.Errorf("failed to derive KEK: %w", err)
	}

	token, err := encoding.DecodeB64(loginDecryptToken)
	if err != nil {
		return fmt.Errorf("invalid --token: %w", err)
	}

	secrets, err := envelope.DecryptSecrets(kek, attrs, token, loginDecryptTokenSealed)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	logger.Debug("login pipeline complete",
		logger.Fingerprint("public_key", attrs.PublicKey),
		logger.ByteLen("token", secrets.Token))

	fmt.Printf("Master key: %s\n", encoding.EncodeHex(secrets.MasterKey))
	fmt.Printf("Secret key: %s\n", encoding.EncodeHex(secrets.SecretKey))
	fmt.Printf("Token:      %s\n", encoding.EncodeHex(secrets.Token))

	if loginDecryptCache {
		identity := loginDecryptIdentity
		if identity == "" {
			identity = filepath.Base(loginDecryptAttrsFile)
		}
		if err := writeSessionCache(identity); err != nil {
			return fmt.Errorf("login succeeded but caching the session failed: %w", err)
		}
		fmt.Printf("Cached session for %q (valid %s)\n", identity, sessionCacheTTL)
	}
	return nil
}

var loginWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the identity of the cached local session, if any",
	Long: `whoami reads the local session-cache token written by
"login decrypt --cache" and reports who it was issued for, failing once
the token's short TTL has elapsed.`,
	RunE: runLoginWhoami,
}

func runLoginWhoami(cmd *cobra.Command, args []string) error {
	claims, err := readSessionCache()
	if err != nil {
		return err
	}
	exp := "unknown"
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time.Format(time.RFC3339)
	}
	fmt.Printf("Identity: %s\n", claims.SRPUserID)
	fmt.Printf("Expires:  %s\n", exp)
	return nil
}

func decodeKeyAttributes(j keyAttributesJSON) (envelope.KeyAttributes, error) {
	decode := func(s string) ([]byte, error) {
		if s == "" {
			return nil, nil
		}
		return encoding.DecodeB64(s)
	}

	kekSalt, err := decode(j.KEKSalt)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	encKey, err := decode(j.EncryptedKey)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	keyNonce, err := decode(j.KeyDecryptionNonce)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	pubKey, err := decode(j.PublicKey)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	encSecretKey, err := decode(j.EncryptedSecretKey)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	secretKeyNonce, err := decode(j.SecretKeyDecryptionNonce)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	masterKeyEncWithRecovery, err := decode(j.MasterKeyEncryptedWithRecoveryKey)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	masterKeyNonce, err := decode(j.MasterKeyDecryptionNonce)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	recoveryKeyEncWithMaster, err := decode(j.RecoveryKeyEncryptedWithMasterKey)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}
	recoveryKeyNonce, err := decode(j.RecoveryKeyDecryptionNonce)
	if err != nil {
		return envelope.KeyAttributes{}, err
	}

	return envelope.KeyAttributes{
		KEKSalt:                           kekSalt,
		EncryptedKey:                      encKey,
		KeyDecryptionNonce:                keyNonce,
		PublicKey:                         pubKey,
		EncryptedSecretKey:                encSecretKey,
		SecretKeyDecryptionNonce:          secretKeyNonce,
		MemLimit:                          j.MemLimit,
		OpsLimit:                          j.OpsLimit,
		MasterKeyEncryptedWithRecoveryKey: masterKeyEncWithRecovery,
		MasterKeyDecryptionNonce:          masterKeyNonce,
		RecoveryKeyEncryptedWithMasterKey: recoveryKeyEncWithMaster,
		RecoveryKeyDecryptionNonce:        recoveryKeyNonce,
	}, nil
}
