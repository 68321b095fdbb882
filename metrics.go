package thread

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the yield-latency histogram buckets in
// nanoseconds, adapted from the teacher's I/O latency buckets but
// shifted down several orders of magnitude — a context switch between
// goroutines is microseconds, not milliseconds.
var LatencyBuckets = []uint64{
	1_000,      // 1us
	5_000,      // 5us
	10_000,     // 10us
	50_000,     // 50us
	100_000,    // 100us
	500_000,    // 500us
	1_000_000,  // 1ms
	10_000_000, // 10ms
}

const numLatencyBuckets = 8

// Metrics tracks scheduler activity for one Runtime. All fields are
// atomics so concurrent Runtimes (and the background preempt ticker)
// can record without taking the scheduler's lock.
type Metrics struct {
	ContextSwitches atomic.Uint64
	Yields          atomic.Uint64
	ThreadsCreated  atomic.Uint64
	ThreadsExited   atomic.Uint64
	ThreadsKilled   atomic.Uint64
	LockAcquires    atomic.Uint64
	LockContentions atomic.Uint64
	CVWaits         atomic.Uint64
	CVSignals       atomic.Uint64

	totalYieldLatencyNs atomic.Uint64
	yieldLatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a zeroed metrics instance stamped with the current time.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// recordYield records one yield's wall-clock latency (time between
// issuing the switch and getting the baton back) into the histogram.
func (m *Metrics) recordYield(latencyNs uint64) {
	m.Yields.Add(1)
	m.ContextSwitches.Add(1)
	m.totalYieldLatencyNs.Add(latencyNs)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.yieldLatencyBuckets[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics suitable for
// logging or exposing over an API without exposing the atomics.
type MetricsSnapshot struct {
	ContextSwitches uint64
	Yields          uint64
	ThreadsCreated  uint64
	ThreadsExited   uint64
	ThreadsKilled   uint64
	LockAcquires    uint64
	LockContentions uint64
	CVWaits         uint64
	CVSignals       uint64

	AvgYieldLatencyNs uint64
	YieldHistogram    [numLatencyBuckets]uint64

	UptimeNs uint64
}

// Snapshot returns a consistent-enough point-in-time view of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ContextSwitches: m.ContextSwitches.Load(),
		Yields:          m.Yields.Load(),
		ThreadsCreated:  m.ThreadsCreated.Load(),
		ThreadsExited:   m.ThreadsExited.Load(),
		ThreadsKilled:   m.ThreadsKilled.Load(),
		LockAcquires:    m.LockAcquires.Load(),
		LockContentions: m.LockContentions.Load(),
		CVWaits:         m.CVWaits.Load(),
		CVSignals:       m.CVSignals.Load(),
	}
	if snap.Yields > 0 {
		snap.AvgYieldLatencyNs = m.totalYieldLatencyNs.Load() / snap.Yields
	}
	for i := range m.yieldLatencyBuckets {
		snap.YieldHistogram[i] = m.yieldLatencyBuckets[i].Load()
	}
	snap.UptimeNs = uint64(time.Now().UnixNano() - m.StartTime.Load())
	return snap
}

// Reset zeroes every counter. Useful for tests that share a Runtime
// across scenarios but want independent measurements.
func (m *Metrics) Reset() {
	m.ContextSwitches.Store(0)
	m.Yields.Store(0)
	m.ThreadsCreated.Store(0)
	m.ThreadsExited.Store(0)
	m.ThreadsKilled.Store(0)
	m.LockAcquires.Store(0)
	m.LockContentions.Store(0)
	m.CVWaits.Store(0)
	m.CVSignals.Store(0)
	m.totalYieldLatencyNs.Store(0)
	for i := range m.yieldLatencyBuckets {
		m.yieldLatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
}
