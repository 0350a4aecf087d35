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

package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ente-x/cryptocore/internal/errs"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLevelStrings(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "INFO", InfoLevel.String())
	assert.Equal(t, "WARN", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
	assert.Equal(t, "FATAL", FatalLevel.String())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, WarnLevel)

	l.Debug("filtered")
	l.Info("filtered")
	assert.Empty(t, buf.String())

	l.Warn("logged")
	assert.NotEmpty(t, buf.String())

	buf.Reset()
	l.SetLevel(DebugLevel)
	l.Debug("now logged")
	assert.NotEmpty(t, buf.String())
	assert.Equal(t, DebugLevel, l.GetLevel())
}

func TestEntryShapeAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel)

	l.Info("derived key",
		String("tier", "interactive"),
		Int("ops_limit", 2),
		Bool("adaptive", false),
		Duration("took", 1000000000),
		Error(errors.New("boom")),
	)

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "derived key", entry["msg"])
	assert.Equal(t, "interactive", entry["tier"])
	assert.Equal(t, float64(2), entry["ops_limit"])
	assert.Equal(t, false, entry["adaptive"])
	assert.Equal(t, "1s", entry["took"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotNil(t, entry["ts"])
	assert.Contains(t, entry["caller"], "logger_test.go:")
}

func TestByteLenNeverLogsContent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel)

	secret := []byte("0123456789abcdef0123456789abcdef")
	l.Info("unwrapped", ByteLen("master_key", secret))

	entry := decodeEntry(t, &buf)
	assert.Equal(t, float64(len(secret)), entry["master_key"])
	assert.NotContains(t, buf.String(), string(secret))
}

func TestFingerprintIsShortAndStable(t *testing.T) {
	value := []byte("a public key or blob")
	f1 := Fingerprint("public_key", value)
	f2 := Fingerprint("public_key", value)

	assert.Equal(t, f1.Value, f2.Value)
	s, ok := f1.Value.(string)
	require.True(t, ok)
	assert.Len(t, s, 8)
	assert.NotContains(t, s, string(value))
}

func TestWithFieldsAttachToEveryEntry(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel).WithFields(String("environment", "test"))

	l.Info("first")
	entry := decodeEntry(t, &buf)
	assert.Equal(t, "test", entry["environment"])

	buf.Reset()
	l.Info("second", String("extra", "x"))
	entry = decodeEntry(t, &buf)
	assert.Equal(t, "test", entry["environment"])
	assert.Equal(t, "x", entry["extra"])
}

func TestPrettyPrint(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, InfoLevel)
	l.SetPrettyPrint(true)

	l.Info("pretty", String("key", "value"))
	out := buf.String()
	assert.Contains(t, out, "{\n")
	assert.Contains(t, out, "  \"")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, "auth_failed", KindOf(fmt.Errorf("secretbox: %w", errs.ErrAuthFailed)))
	assert.Equal(t, "wrong_password", KindOf(fmt.Errorf("envelope: %w", errs.ErrWrongPassword)))
	assert.Equal(t, "attachment_not_found", KindOf(fmt.Errorf("chatdb: %w: a1", errs.ErrAttachmentNotFound)))
	assert.Equal(t, "db", KindOf(fmt.Errorf("chatdb: %w: commit", errs.ErrDB)))
	assert.Equal(t, "unknown", KindOf(errors.New("something else")))
}

func TestOpError(t *testing.T) {
	cause := fmt.Errorf("stream: %w", errs.ErrAuthFailed)
	err := NewOpError("stream decrypt", cause).WithDetail("chunk_len", 4096)

	assert.Equal(t, "stream decrypt: stream: authentication failed", err.Error())
	assert.True(t, errors.Is(err, errs.ErrAuthFailed))

	fields := err.Fields()
	byKey := map[string]any{}
	for _, f := range fields {
		byKey[f.Key] = f.Value
	}
	assert.Equal(t, "stream decrypt", byKey["op"])
	assert.Equal(t, "auth_failed", byKey["error_kind"])
	assert.Equal(t, 4096, byKey["chunk_len"])
}

func TestDefaultLoggerSwap(t *testing.T) {
	orig := GetDefaultLogger()
	defer SetDefaultLogger(orig)

	var buf bytes.Buffer
	SetDefaultLogger(NewLogger(&buf, DebugLevel))

	Debug("d")
	require.NotEmpty(t, buf.String())
	buf.Reset()
	Info("i")
	require.NotEmpty(t, buf.String())
	buf.Reset()
	Warn("w")
	require.NotEmpty(t, buf.String())
	buf.Reset()
	ErrorMsg("e")
	require.NotEmpty(t, buf.String())

	assert.False(t, strings.Contains(buf.String(), "DEBUG"))
}
