package server

import (
	"sync/atomic"
	"time"
)

// Metrics tracks server activity: requests accepted, processed, cache
// hit/miss, and queue depth, adapted from the teacher's atomic-counter
// Metrics/Snapshot pattern.
type Metrics struct {
	RequestsAccepted  atomic.Uint64
	RequestsProcessed atomic.Uint64
	RequestsFailed    atomic.Uint64
	CacheHits         atomic.Uint64
	CacheMisses       atomic.Uint64

	totalLatencyNs atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a zeroed metrics instance stamped with the current time.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

func (m *Metrics) recordRequest(latency time.Duration, hit bool, failed bool) {
	m.RequestsProcessed.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))
	if hit {
		m.CacheHits.Add(1)
	} else {
		m.CacheMisses.Add(1)
	}
	if failed {
		m.RequestsFailed.Add(1)
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	RequestsAccepted  uint64
	RequestsProcessed uint64
	RequestsFailed    uint64
	CacheHits         uint64
	CacheMisses       uint64
	AvgLatencyNs      uint64
	UptimeNs          uint64
}

// Snapshot returns a consistent-enough point-in-time view of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		RequestsAccepted:  m.RequestsAccepted.Load(),
		RequestsProcessed: m.RequestsProcessed.Load(),
		RequestsFailed:    m.RequestsFailed.Load(),
		CacheHits:         m.CacheHits.Load(),
		CacheMisses:       m.CacheMisses.Load(),
		UptimeNs:          uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}
	if snap.RequestsProcessed > 0 {
		snap.AvgLatencyNs = m.totalLatencyNs.Load() / snap.RequestsProcessed
	}
	return snap
}
