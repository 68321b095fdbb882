package thread

import "sync"

// ScheduleRecorder records the order in which threads observe
// themselves running, the way tests for spec.md §8's "FIFO yield"
// scenario need to assert an exact main→A→B→C→main schedule. Adapted
// from the teacher's testing.go pattern of exporting a small,
// dependency-free test double alongside the package it tests.
type ScheduleRecorder struct {
	mu     sync.Mutex
	events []string
}

// NewScheduleRecorder creates an empty recorder.
func NewScheduleRecorder() *ScheduleRecorder {
	return &ScheduleRecorder{}
}

// Record appends name to the schedule. Safe to call from any thread;
// in practice only one caller is ever actually running at a time, but
// tests sometimes record from a real OS goroutine wrapping main too.
func (r *ScheduleRecorder) Record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
}

// Events returns a snapshot of the recorded order.
func (r *ScheduleRecorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// Reset clears the recorded schedule.
func (r *ScheduleRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// CountingLock wraps Lock, counting Acquire/Release pairs. Useful for
// tests asserting mutual exclusion held (spec.md §8's "Lock mutex"
// scenario) without trusting Metrics alone.
type CountingLock struct {
	*Lock
	mu        sync.Mutex
	inside    int
	maxInside int
}

// NewCountingLock wraps a fresh Lock on the default Runtime.
func NewCountingLock() *CountingLock {
	return Default().NewCountingLock()
}

// NewCountingLock wraps a fresh Lock on this Runtime, mirroring
// Runtime.NewLock so tests running independent schedulers (the reason
// Runtime exists at all — see DESIGN.md's "global mutable state" entry)
// can get a counting lock scoped to their own runtime instead of the
// shared default.
func (rt *Runtime) NewCountingLock() *CountingLock {
	return &CountingLock{Lock: rt.NewLock()}
}

// Acquire acquires the underlying lock and tracks concurrent holders —
// which should never exceed 1 if mutual exclusion holds.
func (c *CountingLock) Acquire() {
	c.Lock.Acquire()
	c.mu.Lock()
	c.inside++
	if c.inside > c.maxInside {
		c.maxInside = c.inside
	}
	c.mu.Unlock()
}

// Release decrements the holder count and releases the underlying lock.
func (c *CountingLock) Release() {
	c.mu.Lock()
	c.inside--
	c.mu.Unlock()
	c.Lock.Release()
}

// MaxConcurrentHolders returns the highest number of simultaneous
// holders observed; a correct Lock implementation never exceeds 1.
func (c *CountingLock) MaxConcurrentHolders() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxInside
}
