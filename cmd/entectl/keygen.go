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

	"github.com/spf13/cobra"

	"github.com/ente-x/cryptocore/auth/keygen"
	"github.com/ente-x/cryptocore/encoding"
)

var (
	keygenPassword string
	keygenStrength string
	keygenOutput   string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new account key hierarchy",
	Long: `Generate a new account's master key, X25519 keypair, and recovery
key, deriving the key-encryption-key at the requested Argon2id work factor.`,
	Example: `  # Generate keys at the default (interactive) work factor
  entectl keygen --password hunter2

  # Generate keys at the sensitive work factor and save to a file
  entectl keygen --password hunter2 --strength sensitive --output account.json`,
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVarP(&keygenPassword, "password", "p", "", "Account password (required)")
	keygenCmd.Flags().StringVarP(&keygenStrength, "strength", "s", "interactive", "Argon2id work factor (interactive, moderate, sensitive)")
	keygenCmd.Flags().StringVarP(&keygenOutput, "output", "o", "", "Output file (default: stdout)")
	keygenCmd.MarkFlagRequired("password")
}

func parseStrength(s string) (keygen.Strength, error) {
	switch s {
	case "interactive":
		return keygen.StrengthInteractive, nil
	case "moderate":
		return keygen.StrengthModerate, nil
	case "sensitive":
		return keygen.StrengthSensitive, nil
	default:
		return 0, fmt.Errorf("unsupported strength: %s", s)
	}
}

type keyAttributesJSON struct {
	KEKSalt                           string `json:"kek_salt"`
	EncryptedKey                      string `json:"encrypted_key"`
	KeyDecryptionNonce                string `json:"key_decryption_nonce"`
	PublicKey                         string `json:"public_key"`
	EncryptedSecretKey                string `json:"encrypted_secret_key"`
	SecretKeyDecryptionNonce          string `json:"secret_key_decryption_nonce"`
	MemLimit                          uint32 `json:"mem_limit"`
	OpsLimit                          uint32 `json:"ops_limit"`
	MasterKeyEncryptedWithRecoveryKey string `json:"master_key_encrypted_with_recovery_key,omitempty"`
	MasterKeyDecryptionNonce          string `json:"master_key_decryption_nonce,omitempty"`
	RecoveryKeyEncryptedWithMasterKey string `json:"recovery_key_encrypted_with_master_key,omitempty"`
	RecoveryKeyDecryptionNonce        string `json:"recovery_key_decryption_nonce,omitempty"`
}

type newAccountJSON struct {
	PublicKey   string            `json:"public_key"`
	RecoveryKey string            `json:"recovery_key"`
	Attrs       keyAttributesJSON `json:"key_attributes"`
}

// toAccountJSON base64-encodes every byte slice in a freshly minted account
// into the wire shape "entectl keygen" prints and "entectl login decrypt"
// reads back.
func toAccountJSON(account keygen.NewAccount) newAccountJSON {
	out := newAccountJSON{
		PublicKey:   encoding.EncodeB64(account.PublicKey),
		RecoveryKey: keygen.EncodeRecoveryKey(account.RecoveryKey),
		Attrs: keyAttributesJSON{
			KEKSalt:                  encoding.EncodeB64(account.Attrs.KEKSalt),
			EncryptedKey:             encoding.EncodeB64(account.Attrs.EncryptedKey),
			KeyDecryptionNonce:       encoding.EncodeB64(account.Attrs.KeyDecryptionNonce),
			PublicKey:                encoding.EncodeB64(account.Attrs.PublicKey),
			EncryptedSecretKey:       encoding.EncodeB64(account.Attrs.EncryptedSecretKey),
			SecretKeyDecryptionNonce: encoding.EncodeB64(account.Attrs.SecretKeyDecryptionNonce),
			MemLimit:                 account.Attrs.MemLimit,
			OpsLimit:                 account.Attrs.OpsLimit,
		},
	}
	if account.Attrs.HasRecoveryBranch() {
		out.Attrs.MasterKeyEncryptedWithRecoveryKey = encoding.EncodeB64(account.Attrs.MasterKeyEncryptedWithRecoveryKey)
		out.Attrs.MasterKeyDecryptionNonce = encoding.EncodeB64(account.Attrs.MasterKeyDecryptionNonce)
		out.Attrs.RecoveryKeyEncryptedWithMasterKey = encoding.EncodeB64(account.Attrs.RecoveryKeyEncryptedWithMasterKey)
		out.Attrs.RecoveryKeyDecryptionNonce = encoding.EncodeB64(account.Attrs.RecoveryKeyDecryptionNonce)
	}
	return out
}

func runKeygen(cmd *cobra.Command, args []string) error {
	strength, err := parseStrength(keygenStrength)
	if err != nil {
		return err
	}

	account, err := keygen.GenerateKeysWithStrength(keygenPassword, strength)
	if err != nil {
		return fmt.Errorf("failed to generate keys: %w", err)
	}

	out := toAccountJSON(account)

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	data = append(data, '\n')

	if keygenOutput == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(keygenOutput, data, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Printf("Account attributes saved to: %s\n", keygenOutput)
	return nil
}
