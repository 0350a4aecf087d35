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

package chatdb

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ente-x/cryptocore/crypto/blob"
	"github.com/ente-x/cryptocore/crypto/stream"
	"github.com/ente-x/cryptocore/internal/errs"
)

// KeyBytes is the size of the key every encrypted field in this package is
// sealed under, re-exported from crypto/stream so callers don't need to
// import it separately.
const KeyBytes = stream.KeyBytes

// encryptedNamePrefix versions the attachment name encoding. A future
// format revision must use a distinct prefix; decodeName refuses anything
// else rather than guessing.
const encryptedNamePrefix = "enc:v1:"

func encryptBlobField(plaintext, key []byte) ([]byte, error) {
	return blob.Encrypt(plaintext, key)
}

func decryptBlobField(data, key []byte) ([]byte, error) {
	if len(data) < stream.HeaderBytes {
		return nil, fmt.Errorf("%w: encrypted field shorter than stream header", errs.ErrBadLen)
	}
	return blob.Decrypt(data, key)
}

// encryptName renders name as "enc:v1:" + base64(ciphertext) + ":" +
// base64(header). A future format revision needs only a new prefix, not a
// new parser.
func encryptName(name string, key []byte) (string, error) {
	sealed, err := encryptBlobField([]byte(name), key)
	if err != nil {
		return "", err
	}
	header := sealed[:stream.HeaderBytes]
	ciphertext := sealed[stream.HeaderBytes:]
	return encryptedNamePrefix + base64.StdEncoding.EncodeToString(ciphertext) + ":" + base64.StdEncoding.EncodeToString(header), nil
}

// decryptName reverses encryptName, rejecting any prefix other than the
// current version and any malformed "ciphertext:header" body.
func decryptName(encryptedName string, key []byte) (string, error) {
	if !strings.HasPrefix(encryptedName, encryptedNamePrefix) {
		return "", fmt.Errorf("%w: unrecognized encrypted name prefix", errs.ErrUnsupportedSchema)
	}
	body := strings.TrimPrefix(encryptedName, encryptedNamePrefix)
	parts := strings.Split(body, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: malformed encrypted name", errs.ErrBadEncoding)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
	}
	header, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrBadEncoding, err)
	}
	plain, err := blob.Decrypt(append(append([]byte{}, header...), ciphertext...), key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
