// Package preempt implements the periodic preempt-signal facility spec'd
// as an external collaborator: "every ~200µs, invoke a handler which
// calls the scheduler's yield". The original ECE344 lab gets this from
// setitimer(SIGALRM) delivered to a single OS thread; Go gives no
// portable way to deliver a signal to one specific goroutine (the Go
// runtime itself already owns SIGURG for its own preemption), so this
// is realized as a ticker goroutine instead — see DESIGN.md.
package preempt

import (
	"context"
	"sync"
	"time"
)

// Interval is the nominal preempt-signal period from the spec (~200µs, ~5kHz).
const Interval = 200 * time.Microsecond

// Yielder is whatever the controller calls on each tick. internal/sched
// supplies a hook that only logs the running TID; it does not call
// (*sched.Scheduler).Yield.
type Yielder func()

// Controller runs the periodic tick in the background, calling its
// Yielder hook once per tick as long as preemption is currently enabled
// for the running thread.
type Controller struct {
	mu      sync.Mutex
	enabled map[int]bool

	yield Yielder
	running func() (tid int, ok bool)

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a controller. yield is invoked on every tick while the
// currently-running thread (reported by running) has preemption enabled.
func New(yield Yielder, running func() (tid int, ok bool)) *Controller {
	return &Controller{
		enabled: make(map[int]bool),
		yield:   yield,
		running: running,
	}
}

// Start begins the ticker goroutine. Calling Start twice without a Stop
// in between is a programming error.
func (c *Controller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tid, ok := c.running()
				if !ok {
					continue
				}
				c.mu.Lock()
				on := c.enabled[tid]
				c.mu.Unlock()
				if on {
					c.yield()
				}
			}
		}
	}()
}

// Stop cancels the ticker goroutine and waits for it to exit.
func (c *Controller) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// Enable turns preemption on for tid (the stub's first step, "interrupts_on").
func (c *Controller) Enable(tid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[tid] = true
}

// Disable turns preemption off for tid.
func (c *Controller) Disable(tid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[tid] = false
}

// Enabled reports whether preemption is currently on for tid.
func (c *Controller) Enabled(tid int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled[tid]
}

// Forget drops bookkeeping for a reaped TID so the map doesn't grow
// without bound across create/exit churn.
func (c *Controller) Forget(tid int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.enabled, tid)
}
