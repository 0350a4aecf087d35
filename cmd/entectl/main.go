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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ente-x/cryptocore/config"
	"github.com/ente-x/cryptocore/crypto/primitives"
	"github.com/ente-x/cryptocore/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "entectl",
	Short: "entectl - key management and encrypted chat storage CLI",
	Long: `entectl drives the account key hierarchy, the SRP login handshake,
the SecretStream file codec, and the encrypted chat datastore from the
command line.

This tool supports:
- Account keygen (master key, X25519 keypair, recovery key)
- SRP login simulation against a local envelope
- SecretStream file encryption and decryption
- Chat datastore inspection`,
}

func main() {
	if err := primitives.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefaultLogger(log)

	if err := rootCmd.Execute(); err != nil {
		var opErr *logger.OpError
		if errors.As(err, &opErr) {
			logger.ErrorMsg("command failed", opErr.Fields()...)
		} else {
			logger.ErrorMsg("command failed", logger.Error(err))
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Note: commands are registered in their respective files
	// - keygen.go: keygenCmd
	// - login.go: loginCmd
	// - stream.go: streamEncryptCmd, streamDecryptCmd
	// - hash.go: hashCmd
	// - chatdb.go: chatdbCmd and its subcommands
	// - version.go: versionCmd
}
