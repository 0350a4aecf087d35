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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ente-x/cryptocore/crypto/primitives"
	"github.com/ente-x/cryptocore/crypto/stream"
	"github.com/ente-x/cryptocore/encoding"
	"github.com/ente-x/cryptocore/internal/logger"
)

var (
	streamKeyB64  string
	streamInFile  string
	streamOutFile string
	streamStrict  bool
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Encrypt or decrypt a file with the SecretStream codec",
}

func init() {
	rootCmd.AddCommand(streamCmd)
	streamCmd.AddCommand(streamKeygenCmd)
	streamCmd.AddCommand(streamEncryptCmd)
	streamCmd.AddCommand(streamDecryptCmd)
}

var streamKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a new SecretStream key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := primitives.GenerateStreamKey()
		if err != nil {
			return fmt.Errorf("failed to generate stream key: %w", err)
		}
		fmt.Println(encoding.EncodeB64(key))
		return nil
	},
}

var streamEncryptCmd = &cobra.Command{
	Use:     "encrypt",
	Short:   "Encrypt a file",
	Example: `  entectl stream encrypt --key <base64> --in plain.bin --out cipher.bin`,
	RunE:    runStreamEncrypt,
}

var streamDecryptCmd = &cobra.Command{
	Use:     "decrypt",
	Short:   "Decrypt a file produced by \"entectl stream encrypt\"",
	Example: `  entectl stream decrypt --key <base64> --in cipher.bin --out plain.bin`,
	RunE:    runStreamDecrypt,
}

func init() {
	for _, c := range []*cobra.Command{streamEncryptCmd, streamDecryptCmd} {
		c.Flags().StringVarP(&streamKeyB64, "key", "k", "", "Base64 stream key (required)")
		c.Flags().StringVarP(&streamInFile, "in", "i", "", "Input file (required)")
		c.Flags().StringVarP(&streamOutFile, "out", "o", "", "Output file (required)")
		c.MarkFlagRequired("key")
		c.MarkFlagRequired("in")
		c.MarkFlagRequired("out")
	}
	streamDecryptCmd.Flags().BoolVar(&streamStrict, "strict", true, "Reject streams that end without a final chunk")
}

func runStreamEncrypt(cmd *cobra.Command, args []string) error {
	key, err := encoding.DecodeB64(streamKeyB64)
	if err != nil {
		return fmt.Errorf("invalid --key: %w", err)
	}

	in, err := os.Open(streamInFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(streamOutFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer out.Close()

	md5sum, err := stream.EncryptFile(out, in, key)
	if err != nil {
		return logger.NewOpError("stream encrypt", err).WithDetail("in", streamInFile)
	}

	fmt.Printf("Encrypted %s -> %s\n", streamInFile, streamOutFile)
	fmt.Printf("Plaintext MD5: %s\n", md5sum)
	return nil
}

func runStreamDecrypt(cmd *cobra.Command, args []string) error {
	key, err := encoding.DecodeB64(streamKeyB64)
	if err != nil {
		return fmt.Errorf("invalid --key: %w", err)
	}

	in, err := os.Open(streamInFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(streamOutFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer out.Close()

	if err := stream.DecryptFile(out, in, key, streamStrict); err != nil {
		return logger.NewOpError("stream decrypt", err).WithDetail("in", streamInFile)
	}

	fmt.Printf("Decrypted %s -> %s\n", streamInFile, streamOutFile)
	return nil
}
