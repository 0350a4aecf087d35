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

package blob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i * 3)
	}
	return k
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey()
	data, err := Encrypt([]byte("session attribute payload"), key)
	require.NoError(t, err)

	pt, err := Decrypt(data, key)
	require.NoError(t, err)
	require.Equal(t, "session attribute payload", string(pt))
}

type attrs struct {
	Title   string `json:"title"`
	Pinned  bool   `json:"pinned"`
	Version int    `json:"version"`
}

func TestEncryptDecryptJSON(t *testing.T) {
	key := testKey()
	in := attrs{Title: "General", Pinned: true, Version: 3}

	data, err := EncryptJSON(in, key)
	require.NoError(t, err)

	var out attrs
	require.NoError(t, DecryptJSON(data, key, &out))
	require.Equal(t, in, out)
}

func TestDecryptRejectsShortInput(t *testing.T) {
	_, err := Decrypt([]byte("short"), testKey())
	require.Error(t, err)
}
