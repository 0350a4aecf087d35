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

// Package hash provides BLAKE2b hashing with variable output length,
// optional keying, and a streaming state for chunked input.
package hash

import (
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"

	"github.com/ente-x/cryptocore/internal/errs"
)

// MinBytes and MaxBytes bound the allowed output length, per BLAKE2b.
const (
	MinBytes     = 16
	MaxBytes     = 64
	DefaultBytes = 64
)

// readerChunkSize is the buffer size used by HashReader.
const readerChunkSize = 4 * 1024 * 1024

// State is a streaming BLAKE2b hash: call Update any number of times, then
// Finalize once. Not safe for concurrent use.
type State struct {
	h hashState
}

type hashState interface {
	io.Writer
	Sum(b []byte) []byte
}

// NewState creates a streaming hash state. outputLen defaults to
// DefaultBytes when 0; key enables keyed hashing when non-nil.
func NewState(outputLen int, key []byte) (*State, error) {
	if outputLen == 0 {
		outputLen = DefaultBytes
	}
	if outputLen < MinBytes || outputLen > MaxBytes {
		return nil, fmt.Errorf("hash: %w: output length must be in [%d,%d], got %d", errs.ErrBadParams, MinBytes, MaxBytes, outputLen)
	}
	h, err := blake2b.New(outputLen, key)
	if err != nil {
		return nil, fmt.Errorf("hash: %w: %v", errs.ErrBadParams, err)
	}
	return &State{h: h}, nil
}

// Update feeds more data into the hash state.
func (s *State) Update(data []byte) {
	_, _ = s.h.Write(data)
}

// Finalize returns the hash output. The state must not be reused afterward.
func (s *State) Finalize() []byte {
	return s.h.Sum(nil)
}

// Hash computes a BLAKE2b digest of data. outputLen defaults to
// DefaultBytes when 0; key enables keyed hashing when non-nil.
func Hash(data []byte, outputLen int, key []byte) ([]byte, error) {
	st, err := NewState(outputLen, key)
	if err != nil {
		return nil, err
	}
	st.Update(data)
	return st.Finalize(), nil
}

// HashDefault computes a BLAKE2b digest with the default 64-byte output.
func HashDefault(data []byte) ([]byte, error) {
	return Hash(data, DefaultBytes, nil)
}

// HashReader consumes r in fixed-size chunks and returns its digest. Equal
// to Hash(allBytes, outputLen, nil) for the same underlying bytes.
func HashReader(r io.Reader, outputLen int) ([]byte, error) {
	st, err := NewState(outputLen, nil)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, readerChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			st.Update(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("hash: %w: %v", errs.ErrIO, err)
		}
	}
	return st.Finalize(), nil
}
