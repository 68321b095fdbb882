package thread

import (
	"sync"
	"time"

	"github.com/ostep-labs/gothread/internal/logging"
	"github.com/ostep-labs/gothread/internal/sched"
	"github.com/ostep-labs/gothread/internal/ttable"
)

// Sentinel return values, spec.md §6.
const (
	NONE     = sched.NONE
	INVALID  = sched.INVALID
	NOMORE   = sched.NOMORE
	NOMEMORY = sched.NOMEMORY
	FAILED   = sched.FAILED
	ANY      = sched.ANY
	SELF     = sched.SELF
)

// Tid is a thread table index in [0, MaxThreads), or one of the
// sentinel values above.
type Tid = int

// State is a thread control block's lifecycle state, spec.md §3.
type State = ttable.State

// The thread lifecycle states, spec.md §3.
const (
	Uninit   = ttable.Uninit
	Ready    = ttable.Ready
	Running  = ttable.Running
	Sleeping = ttable.Sleeping
	Killed   = ttable.Killed
	Exited   = ttable.Exited
)

// Runtime is one independent scheduler instance: its own thread table,
// ready queue, and running TID. The package keeps a convenience
// Default() Runtime so package-level functions read like the C
// thread_create/thread_yield surface, but every operation is a method
// on *Runtime so tests can run independent schedulers concurrently —
// see DESIGN.md's "global mutable state" entry for why a bare package
// global isn't enough once tests run in parallel.
type Runtime struct {
	sched   *sched.Scheduler
	metrics *Metrics
	log     *logging.Logger
}

// NewRuntime creates an independent Runtime with its own thread table.
// maxThreads <= 0 uses sched.DefaultMaxThreads (1024).
func NewRuntime(maxThreads int) *Runtime {
	log := logging.Default().With("sched")
	return &Runtime{
		sched:   sched.New(maxThreads, log),
		metrics: NewMetrics(),
		log:     log,
	}
}

// Close stops the Runtime's background preempt controller. Runtimes
// created via Default() are closed automatically at process exit; a
// Runtime created with NewRuntime should be closed when no longer needed.
func (rt *Runtime) Close() {
	rt.sched.Close()
}

// Metrics returns this Runtime's counters.
func (rt *Runtime) Metrics() *Metrics {
	return rt.metrics
}

// Id returns the TID of the currently running thread.
func (rt *Runtime) Id() Tid {
	return rt.sched.Id()
}

// Create spawns a new thread running fn(arg) and returns its TID, or a
// negative sentinel (NOMORE) with a *Error on failure.
func (rt *Runtime) Create(fn func(arg any), arg any) (Tid, error) {
	tid, err := rt.sched.Create(fn, arg)
	if err != nil {
		return tid, WrapError("Create", -1, err)
	}
	rt.metrics.ThreadsCreated.Add(1)
	return tid, nil
}

// Yield switches away from the running thread per spec.md §4.3's
// yield(want); want is ANY, SELF, or a specific Tid.
func (rt *Runtime) Yield(want Tid) (Tid, error) {
	start := time.Now()
	self := rt.sched.Id()
	target, err := rt.sched.Yield(want)
	if err != nil {
		return target, WrapError("Yield", self, err)
	}
	if target != NONE && target != self {
		rt.metrics.recordYield(uint64(time.Since(start).Nanoseconds()))
	}
	return target, nil
}

// Exit marks the running thread EXITED and never returns.
func (rt *Runtime) Exit() {
	rt.metrics.ThreadsExited.Add(1)
	rt.sched.Exit()
}

// Kill marks tid KILLED; its teardown happens the next time it would
// have been scheduled.
func (rt *Runtime) Kill(tid Tid) (Tid, error) {
	got, err := rt.sched.Kill(tid)
	if err != nil {
		return got, WrapError("Kill", tid, err)
	}
	rt.metrics.ThreadsKilled.Add(1)
	return got, nil
}

// State reports tid's current lifecycle state, or ok=false if tid is
// out of range. An in-range tid that was never created reports Uninit.
func (rt *Runtime) State(tid Tid) (State, bool) {
	return rt.sched.State(tid)
}

// defaultRuntime is the package-level convenience Runtime used by the
// free functions (Create, Yield, Exit, ...). Created lazily so importing
// the package doesn't spin up a preempt goroutine until something
// actually uses the default scheduler.
var (
	defaultMu      sync.Mutex
	defaultRuntime *Runtime
)

// Default returns the package-level Runtime, creating it on first use.
func Default() *Runtime {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRuntime == nil {
		defaultRuntime = NewRuntime(sched.DefaultMaxThreads)
	}
	return defaultRuntime
}

// SetDefault replaces the package-level Runtime, closing the previous
// one's preempt controller first. Primarily for tests that want a
// clean scheduler without restarting the process.
func SetDefault(rt *Runtime) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRuntime != nil {
		defaultRuntime.Close()
	}
	defaultRuntime = rt
}
