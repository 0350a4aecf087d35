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

// Package blob wraps crypto/stream for the common case of encrypting a
// single in-memory value (a session attribute blob, a chat message body,
// an attachment name) rather than a multi-chunk file. The wire format is
// the stream header followed by exactly one TAG_FINAL chunk.
package blob

import (
	"encoding/json"
	"fmt"

	"github.com/ente-x/cryptocore/crypto/stream"
	"github.com/ente-x/cryptocore/internal/errs"
)

// Encrypt seals plaintext under key as a single-chunk secretstream blob:
// header(24) || ciphertext.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	header, ct, err := stream.Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(header)+len(ct))
	out = append(out, header...)
	out = append(out, ct...)
	return out, nil
}

// Decrypt opens a blob produced by Encrypt.
func Decrypt(data, key []byte) ([]byte, error) {
	if len(data) < stream.HeaderBytes {
		return nil, fmt.Errorf("blob: %w: blob shorter than stream header", errs.ErrBadLen)
	}
	return stream.Decrypt(data[:stream.HeaderBytes], data[stream.HeaderBytes:], key)
}

// EncryptJSON marshals v and encrypts the resulting JSON as a blob.
func EncryptJSON(v any, key []byte) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("blob: %w: %v", errs.ErrBadParams, err)
	}
	return Encrypt(raw, key)
}

// DecryptJSON decrypts a blob produced by EncryptJSON and unmarshals it into v.
func DecryptJSON(data, key []byte, v any) error {
	raw, err := Decrypt(data, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("blob: %w: %v", errs.ErrBadParams, err)
	}
	return nil
}
