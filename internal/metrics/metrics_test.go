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

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCryptoMetricsRegistered(t *testing.T) {
	require.NotNil(t, CryptoOperations)
	require.NotNil(t, CryptoErrors)
	require.NotNil(t, CryptoOperationDuration)
}

func TestCryptoMetricsIncrement(t *testing.T) {
	CryptoOperations.WithLabelValues("kdf_derive", "success").Inc()
	CryptoErrors.WithLabelValues("stream_decrypt").Inc()
	CryptoOperationDuration.WithLabelValues("srp_handshake").Observe(0.01)

	require.NotZero(t, testutil.CollectAndCount(CryptoOperations))
	require.NotZero(t, testutil.CollectAndCount(CryptoErrors))
	require.NotZero(t, testutil.CollectAndCount(CryptoOperationDuration))
}

func TestMetricsCollectorRecordsAndSnapshots(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordKDFDerivation(5 * time.Millisecond)
	mc.RecordSRPHandshake(true, 2*time.Millisecond)
	mc.RecordSRPHandshake(false, 3*time.Millisecond)
	mc.RecordStreamOperation(true, time.Millisecond)
	mc.RecordStreamOperation(false, time.Millisecond)
	mc.RecordChatDBQuery(true, time.Millisecond)
	mc.RecordChatDBQuery(false, time.Millisecond)

	snap := mc.GetSnapshot()
	require.EqualValues(t, 1, snap.KDFDerivationCount)
	require.EqualValues(t, 2, snap.SRPHandshakeCount)
	require.EqualValues(t, 1, snap.SRPHandshakeSuccess)
	require.EqualValues(t, 1, snap.SRPHandshakeFailed)
	require.EqualValues(t, 2, snap.StreamOperations)
	require.EqualValues(t, 1, snap.StreamEncrypts)
	require.EqualValues(t, 1, snap.StreamDecrypts)
	require.EqualValues(t, 2, snap.ChatDBQueries)
	require.EqualValues(t, 1, snap.ChatDBErrors)
	require.InDelta(t, 50, snap.GetSRPHandshakeSuccessRate(), 0.01)
	require.InDelta(t, 50, snap.GetChatDBErrorRate(), 0.01)

	mc.Reset()
	snap = mc.GetSnapshot()
	require.Zero(t, snap.KDFDerivationCount)
	require.Zero(t, snap.SRPHandshakeCount)
}

func TestGetGlobalCollectorIsSingleton(t *testing.T) {
	require.Same(t, GetGlobalCollector(), GetGlobalCollector())
}

func TestHandlerServesRegisteredSeries(t *testing.T) {
	CryptoOperations.WithLabelValues("kdf_derive", "success").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", DefaultPath, nil))

	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "entectl_crypto_operations_total")
}
