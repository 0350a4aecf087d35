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
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ente-x/cryptocore/crypto/hash"
	"github.com/ente-x/cryptocore/encoding"
)

var (
	hashOutputLen int
	hashKeyB64    string
)

var hashCmd = &cobra.Command{
	Use:     "hash <file>",
	Short:   "Compute a BLAKE2b digest of a file",
	Args:    cobra.ExactArgs(1),
	Example: `  entectl hash --len 32 attachment.bin`,
	RunE:    runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)
	hashCmd.Flags().IntVar(&hashOutputLen, "len", hash.DefaultBytes, "output length in bytes [16,64]")
	hashCmd.Flags().StringVar(&hashKeyB64, "key", "", "optional base64 BLAKE2b key")
}

func runHash(cmd *cobra.Command, args []string) error {
	var key []byte
	if hashKeyB64 != "" {
		var err error
		key, err = encoding.DecodeB64(hashKeyB64)
		if err != nil {
			return fmt.Errorf("invalid --key: %w", err)
		}
	}

	digest, err := hashFile(args[0], hashOutputLen, key)
	if err != nil {
		return err
	}
	fmt.Println(encoding.EncodeHex(digest))
	return nil
}

// hashFile computes a BLAKE2b digest of the file at path, streaming it in
// fixed-size chunks rather than buffering the whole file in memory.
func hashFile(path string, outputLen int, key []byte) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	st, err := hash.NewState(outputLen, key)
	if err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	if _, err := io.Copy(hashUpdater{st}, f); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return st.Finalize(), nil
}

// hashUpdater adapts hash.State to io.Writer so io.Copy can drive it in
// fixed-size chunks without buffering the whole file in memory.
type hashUpdater struct{ st *hash.State }

func (h hashUpdater) Write(p []byte) (int, error) {
	h.st.Update(p)
	return len(p), nil
}
