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

// Package encoding provides the base64 and hex codecs shared by every
// higher layer. Decoding is lenient on alphabet and padding; encoding is
// always standard-alphabet, padded.
package encoding

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ente-x/cryptocore/internal/errs"
)

// EncodeB64 encodes b using the standard, padded alphabet (RFC 4648 §4).
func EncodeB64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// EncodeB64URL encodes b using the URL-safe, padded alphabet (RFC 4648 §5).
func EncodeB64URL(b []byte) string {
	return base64.URLEncoding.EncodeToString(b)
}

// DecodeB64 decodes s, accepting both the standard and URL-safe alphabets
// and normalizing missing padding before decoding. This is deliberately
// permissive: the server boundary is not guaranteed to always send padded,
// standard-alphabet base64, and guessing wrong here turns a harmless
// encoding quirk into a hard failure for callers.
func DecodeB64(s string) ([]byte, error) {
	padded := padB64(s)

	if b, err := base64.StdEncoding.DecodeString(padded); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(padded); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("decode base64: %w", errs.ErrBadEncoding)
}

func padB64(s string) string {
	if rem := len(s) % 4; rem != 0 {
		return s + strings.Repeat("=", 4-rem)
	}
	return s
}
