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

package metrics

import (
	"sync"
	"time"
)

// MetricsCollector collects in-memory metrics for entectl's key-derivation,
// login, stream, and chat-storage operations, independent of the Prometheus
// registry above.
type MetricsCollector struct {
	mu sync.RWMutex

	// Counters
	KDFDerivationCount  int64
	SRPHandshakeCount   int64
	SRPHandshakeSuccess int64
	SRPHandshakeFailed  int64
	StreamOperations    int64
	StreamEncrypts      int64
	StreamDecrypts      int64
	ChatDBQueries       int64
	ChatDBErrors        int64

	// Timing metrics (in microseconds)
	KDFDerivationTimes   []int64
	SRPHandshakeTimes    []int64
	StreamOperationTimes []int64
	ChatDBQueryTimes     []int64

	// Start time for uptime calculation
	startTime time.Time

	// Configuration
	maxTimingSamples int
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startTime:        time.Now(),
		maxTimingSamples: 1000, // Keep last 1000 samples for each timing metric
	}
}

// RecordKDFDerivation records an Argon2id key-derivation call.
func (mc *MetricsCollector) RecordKDFDerivation(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.KDFDerivationCount++
	mc.recordTiming(&mc.KDFDerivationTimes, duration)
}

// RecordSRPHandshake records one completed SRP login attempt.
func (mc *MetricsCollector) RecordSRPHandshake(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.SRPHandshakeCount++
	if success {
		mc.SRPHandshakeSuccess++
	} else {
		mc.SRPHandshakeFailed++
	}
	mc.recordTiming(&mc.SRPHandshakeTimes, duration)
}

// RecordStreamOperation records one SecretStream encrypt or decrypt call.
func (mc *MetricsCollector) RecordStreamOperation(isEncrypt bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.StreamOperations++
	if isEncrypt {
		mc.StreamEncrypts++
	} else {
		mc.StreamDecrypts++
	}
	mc.recordTiming(&mc.StreamOperationTimes, duration)
}

// RecordChatDBQuery records one chat datastore operation.
func (mc *MetricsCollector) RecordChatDBQuery(success bool, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.ChatDBQueries++
	if !success {
		mc.ChatDBErrors++
	}
	mc.recordTiming(&mc.ChatDBQueryTimes, duration)
}

// recordTiming records a timing sample
func (mc *MetricsCollector) recordTiming(timings *[]int64, duration time.Duration) {
	microseconds := duration.Microseconds()
	*timings = append(*timings, microseconds)

	// Keep only last N samples
	if len(*timings) > mc.maxTimingSamples {
		*timings = (*timings)[len(*timings)-mc.maxTimingSamples:]
	}
}

// GetSnapshot returns a snapshot of current metrics
func (mc *MetricsCollector) GetSnapshot() *MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return &MetricsSnapshot{
		Timestamp:              time.Now(),
		Uptime:                 time.Since(mc.startTime),
		KDFDerivationCount:     mc.KDFDerivationCount,
		SRPHandshakeCount:      mc.SRPHandshakeCount,
		SRPHandshakeSuccess:    mc.SRPHandshakeSuccess,
		SRPHandshakeFailed:     mc.SRPHandshakeFailed,
		StreamOperations:       mc.StreamOperations,
		StreamEncrypts:         mc.StreamEncrypts,
		StreamDecrypts:         mc.StreamDecrypts,
		ChatDBQueries:          mc.ChatDBQueries,
		ChatDBErrors:           mc.ChatDBErrors,
		AvgKDFDerivationTime:   calculateAverage(mc.KDFDerivationTimes),
		AvgSRPHandshakeTime:    calculateAverage(mc.SRPHandshakeTimes),
		AvgStreamOperationTime: calculateAverage(mc.StreamOperationTimes),
		AvgChatDBQueryTime:     calculateAverage(mc.ChatDBQueryTimes),
		P95KDFDerivationTime:   calculatePercentile(mc.KDFDerivationTimes, 95),
		P95SRPHandshakeTime:    calculatePercentile(mc.SRPHandshakeTimes, 95),
		P95StreamOperationTime: calculatePercentile(mc.StreamOperationTimes, 95),
		P95ChatDBQueryTime:     calculatePercentile(mc.ChatDBQueryTimes, 95),
	}
}

// Reset resets all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.KDFDerivationCount = 0
	mc.SRPHandshakeCount = 0
	mc.SRPHandshakeSuccess = 0
	mc.SRPHandshakeFailed = 0
	mc.StreamOperations = 0
	mc.StreamEncrypts = 0
	mc.StreamDecrypts = 0
	mc.ChatDBQueries = 0
	mc.ChatDBErrors = 0

	mc.KDFDerivationTimes = nil
	mc.SRPHandshakeTimes = nil
	mc.StreamOperationTimes = nil
	mc.ChatDBQueryTimes = nil

	mc.startTime = time.Now()
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Timestamp time.Time
	Uptime    time.Duration

	// Counters
	KDFDerivationCount  int64
	SRPHandshakeCount   int64
	SRPHandshakeSuccess int64
	SRPHandshakeFailed  int64
	StreamOperations    int64
	StreamEncrypts      int64
	StreamDecrypts      int64
	ChatDBQueries       int64
	ChatDBErrors        int64

	// Timing averages (microseconds)
	AvgKDFDerivationTime   float64
	AvgSRPHandshakeTime    float64
	AvgStreamOperationTime float64
	AvgChatDBQueryTime     float64

	// 95th percentile timings (microseconds)
	P95KDFDerivationTime   int64
	P95SRPHandshakeTime    int64
	P95StreamOperationTime int64
	P95ChatDBQueryTime     int64
}

// GetSRPHandshakeSuccessRate returns the SRP login success rate as a percentage
func (ms *MetricsSnapshot) GetSRPHandshakeSuccessRate() float64 {
	if ms.SRPHandshakeCount == 0 {
		return 0
	}
	return float64(ms.SRPHandshakeSuccess) / float64(ms.SRPHandshakeCount) * 100
}

// GetChatDBErrorRate returns the chat datastore error rate as a percentage
func (ms *MetricsSnapshot) GetChatDBErrorRate() float64 {
	if ms.ChatDBQueries == 0 {
		return 0
	}
	return float64(ms.ChatDBErrors) / float64(ms.ChatDBQueries) * 100
}

// Helper functions

func calculateAverage(values []int64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum int64
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func calculatePercentile(values []int64, percentile int) int64 {
	if len(values) == 0 {
		return 0
	}

	// Simple implementation - for production, use a proper percentile algorithm
	// This is an approximation
	index := len(values) * percentile / 100
	if index >= len(values) {
		index = len(values) - 1
	}

	// Create a copy and sort (simple bubble sort for small datasets)
	sorted := make([]int64, len(values))
	copy(sorted, values)

	for i := 0; i < len(sorted)-1; i++ {
		for j := 0; j < len(sorted)-i-1; j++ {
			if sorted[j] > sorted[j+1] {
				sorted[j], sorted[j+1] = sorted[j+1], sorted[j]
			}
		}
	}

	return sorted[index]
}

// Global metrics collector instance
var globalCollector = NewMetricsCollector()

// GetGlobalCollector returns the global metrics collector
func GetGlobalCollector() *MetricsCollector {
	return globalCollector
}
