// Package sched implements the scheduler core described in spec.md §4.3:
// create/yield/exit/kill/sleep/wakeup/wait over a fixed-size thread table,
// a single ready queue, and a single "running" thread, with the entire
// table+queue treated as one critical section the way the original C
// scheduler treats "interrupts disabled" as its critical section.
//
// Context switching (§4.2) is realized as goroutine baton-passing rather
// than register snapshot/restore: every thread is a real goroutine parked
// on its own TCB's Resume channel except the one currently "running",
// whose call stack sitting inside a scheduler entry point *is* its saved
// context. See DESIGN.md ("Context switching") for the full rationale.
package sched

import (
	"os"
	"runtime"
	"sync"

	"github.com/ostep-labs/gothread/internal/logging"
	"github.com/ostep-labs/gothread/internal/preempt"
	"github.com/ostep-labs/gothread/internal/queue"
	"github.com/ostep-labs/gothread/internal/ttable"
)

// osExit is var-bound so tests exercising the "last thread exits"
// path don't tear down the test binary itself.
var osExit = os.Exit

// Sentinel return values, spec.md §6.
const (
	NONE     = -1
	INVALID  = -2
	NOMORE   = -3
	NOMEMORY = -4
	FAILED   = -5
	ANY      = -6
	SELF     = -7
)

// DefaultMaxThreads matches spec.md §3's "typical 1024".
const DefaultMaxThreads = 1024

// Scheduler owns the thread table, the ready queue and runningTID as a
// single critical section guarded by mu — the Go stand-in for "preempt
// signal disabled" (spec.md §4.3, §9 "Signal masking as critical
// sections").
type Scheduler struct {
	mu         sync.Mutex
	table      *ttable.Table
	ready      *queue.FIFO[int]
	runningTID int
	needReap   bool

	preempt *preempt.Controller
	log     *logging.Logger
}

// New creates a scheduler with the bootstrap thread (TID 0) already
// RUNNING, as spec.md §4.3 "init()" describes: "state[0] = RUNNING
// (bootstrap thread owns process stack)". The goroutine that calls New
// *is* TID 0's carrier for the lifetime of this scheduler.
func New(maxThreads int, log *logging.Logger) *Scheduler {
	if maxThreads <= 0 {
		maxThreads = DefaultMaxThreads
	}
	if log == nil {
		log = logging.Default().With("sched")
	}
	s := &Scheduler{
		table: ttable.New(maxThreads),
		ready: queue.New[int](),
		log:   log,
	}
	boot := s.table.Get(0)
	boot.State = ttable.Running
	boot.Resume = make(chan struct{})
	boot.StackBase = false
	boot.WaitQueue = queue.New[int]()
	boot.Preemptible = true

	s.preempt = preempt.New(s.preemptTick, s.currentRunning)
	s.preempt.Start()
	return s
}

// Close stops the background preempt controller. Safe to call once.
func (s *Scheduler) Close() {
	s.preempt.Stop()
}

func (s *Scheduler) currentRunning() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningTID, true
}

// preemptTick is the Controller's Yielder hook. A true SIGALRM-driven
// preemption would force the running thread's own call stack into
// thread_yield; a goroutine cannot be made to do that from the outside
// without corrupting the "the calling goroutine is always the recorded
// runningTID" invariant this whole design rests on (mutating runningTID
// out from under a goroutine that never agreed to yield would desync
// every later Yield/Sleep call it makes). So this hook is observational
// only — see DESIGN.md's "Preemption" entry for the full reasoning.
func (s *Scheduler) preemptTick() {
	tid, ok := s.currentRunning()
	if !ok {
		return
	}
	s.log.Debug("preempt tick observed running thread", "tid", tid)
}

func (s *Scheduler) reapExitedLocked() {
	if !s.needReap {
		return
	}
	s.table.ReapExited()
	s.needReap = false
}

// popRunnableLocked pops ready-queue entries until it finds one that is
// actually schedulable, tearing down any KILLED entries it encounters
// along the way (see phantomExitLocked for why a KILLED target is torn
// down here instead of ever being resumed).
func (s *Scheduler) popRunnableLocked() (int, bool) {
	for {
		tid, ok := s.ready.PopFront()
		if !ok {
			return 0, false
		}
		if s.table.Get(tid).State == ttable.Killed {
			s.phantomExitLocked(tid)
			continue
		}
		return tid, true
	}
}

// phantomExitLocked performs a KILLED thread's teardown at the moment it
// would otherwise have been scheduled. The original rewrites the killed
// thread's instruction pointer to jump straight into thread_exit before
// restoring its context; a parked goroutine can't be redirected that
// way, so instead we never resume it at all and perform thread_exit's
// bookkeeping (EXITED, wake waiters, mark for reap) on its behalf. Its
// goroutine — if it had ever started running — stays parked on its
// Resume channel forever, which is an intentional, harmless leak: it
// guarantees "the target never resumes user code after being killed"
// even more strongly than the original.
func (s *Scheduler) phantomExitLocked(tid int) {
	tcb := s.table.Get(tid)
	tcb.State = ttable.Exited
	for _, waiter := range tcb.WaitQueue.Drain() {
		s.wakeIntoReadyLocked(waiter)
	}
	s.needReap = true
	s.preempt.Forget(tid)
}

func (s *Scheduler) wakeIntoReadyLocked(tid int) {
	s.ready.PushBack(tid)
	if s.table.Get(tid).State != ttable.Killed {
		s.table.Get(tid).State = ttable.Ready
	}
}

// Id returns the currently running TID.
func (s *Scheduler) Id() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningTID
}

// Create allocates the lowest UNINIT slot, reaping exited threads first,
// and spawns its stub goroutine. Per spec.md §4.3.
func (s *Scheduler) Create(fn func(any), arg any) (int, error) {
	s.mu.Lock()
	s.reapExitedLocked()
	idx := s.table.FindUninit()
	if idx < 0 {
		s.mu.Unlock()
		return NOMORE, ErrTableFull
	}
	*s.table.Get(idx) = ttable.TCB{
		State:     ttable.Ready,
		Resume:    make(chan struct{}),
		StackBase: true,
		WaitQueue: queue.New[int](),
	}
	s.ready.PushBack(idx)
	s.log.Debug("thread created", "tid", idx)
	s.mu.Unlock()

	go s.runStub(idx, fn, arg)
	return idx, nil
}

// runStub is the new thread's entry point (spec.md §4.2): wait to be
// scheduled for the first time, enable preemption, run fn, then exit.
func (s *Scheduler) runStub(tid int, fn func(any), arg any) {
	resume := s.table.Get(tid).Resume
	<-resume
	s.preempt.Enable(tid)
	s.table.Get(tid).Preemptible = true
	fn(arg)
	s.Exit()
}

// Yield implements spec.md §4.3's yield(want). want is ANY, SELF, or a
// specific TID.
func (s *Scheduler) Yield(want int) (int, error) {
	s.mu.Lock()
	s.reapExitedLocked()
	self := s.runningTID

	if want == SELF {
		s.mu.Unlock()
		return NONE, nil
	}

	// reportTarget is what Yield returns to its caller; schedTarget is the
	// goroutine actually handed the CPU. They diverge only when want names
	// a KILLED thread: spec.md §4.3 and the traced original
	// (original_source/threads_3/thread.c's thread_yield sets
	// running_thread_id = new_tid unconditionally, before new_tid's
	// rewritten instruction pointer immediately drops it into
	// thread_exit) both fix the yield's target to the TID the caller
	// asked for, regardless of what that thread does the instant it would
	// have run. A parked goroutine can't be redirected that way, so we
	// tear the killed thread down here and actually resume whoever
	// popRunnableLocked finds next, while still reporting want.
	var reportTarget, schedTarget int
	switch want {
	case ANY:
		s.pushSelfIfSchedulableLocked(self)
		t, ok := s.popRunnableLocked()
		if !ok || t == self {
			s.mu.Unlock()
			return NONE, nil
		}
		reportTarget, schedTarget = t, t
	default:
		if !s.table.Valid(want) {
			s.mu.Unlock()
			return INVALID, ErrInvalidTid
		}
		wantState := s.table.Get(want).State
		if wantState != ttable.Ready && wantState != ttable.Killed {
			s.mu.Unlock()
			return INVALID, ErrInvalidTid
		}
		s.ready.Remove(want)
		s.pushSelfIfSchedulableLocked(self)
		reportTarget = want
		if wantState == ttable.Killed {
			s.phantomExitLocked(want)
			t, ok := s.popRunnableLocked()
			if !ok {
				s.mu.Unlock()
				return reportTarget, nil
			}
			schedTarget = t
		} else {
			schedTarget = want
		}
	}

	if schedTarget == self {
		s.mu.Unlock()
		return reportTarget, nil
	}

	selfTCB := s.table.Get(self)
	if selfTCB.State != ttable.Exited && selfTCB.State != ttable.Sleeping {
		selfTCB.State = ttable.Ready
	}
	targetTCB := s.table.Get(schedTarget)
	targetTCB.State = ttable.Running
	s.runningTID = schedTarget

	selfResume := selfTCB.Resume
	targetResume := targetTCB.Resume
	s.mu.Unlock()

	targetResume <- struct{}{}
	<-selfResume

	return reportTarget, nil
}

func (s *Scheduler) pushSelfIfSchedulableLocked(self int) {
	st := s.table.Get(self).State
	if st != ttable.Exited && st != ttable.Sleeping {
		s.ready.PushBack(self)
	}
}

// Exit implements spec.md §4.3's exit(): mark self EXITED, wake
// everyone joined on self via Wait, and switch away. If nobody else is
// runnable, the process terminates with exit code 0, exactly as spec'd.
// Exit never returns to its caller — either the process exits, or the
// calling goroutine is torn down via runtime.Goexit after handing off,
// faithfully reproducing "yield(ANY) and never return".
func (s *Scheduler) Exit() {
	s.mu.Lock()
	self := s.runningTID
	tcb := s.table.Get(self)
	tcb.State = ttable.Exited
	for _, waiter := range tcb.WaitQueue.Drain() {
		s.wakeIntoReadyLocked(waiter)
	}
	s.needReap = true
	s.preempt.Forget(self)
	s.log.Debug("thread exited", "tid", self)

	target, ok := s.popRunnableLocked()
	if !ok {
		s.mu.Unlock()
		s.preempt.Stop()
		osExit(0)
		return
	}

	s.table.Get(target).State = ttable.Running
	s.runningTID = target
	targetResume := s.table.Get(target).Resume
	s.mu.Unlock()

	targetResume <- struct{}{}

	if self == 0 {
		// The bootstrap thread has no stub goroutine to tear down; it
		// is whatever goroutine called New. Returning here would let
		// its caller keep running past an explicit Exit() call, which
		// the contract forbids, so park it forever instead.
		select {}
	}
	runtime.Goexit()
}

// Kill implements spec.md §4.3's kill(tid): reject self/out-of-range/
// UNINIT/already-EXITED targets, otherwise mark KILLED. Teardown is
// deferred to whenever the target is next selected to run (see
// phantomExitLocked).
func (s *Scheduler) Kill(tid int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reapExitedLocked()
	self := s.runningTID
	if tid == self {
		return INVALID, ErrInvalidTid
	}
	if !s.table.Valid(tid) {
		return INVALID, ErrInvalidTid
	}
	state := s.table.Get(tid).State
	if state == ttable.Uninit || state == ttable.Exited {
		return INVALID, ErrInvalidTid
	}
	s.table.Get(tid).State = ttable.Killed
	s.log.Debug("thread killed", "tid", tid)
	return tid, nil
}

// Sleep implements spec.md §4.3's sleep(wq): park self on wq and yield
// to anyone else runnable. Returns NONE without sleeping if nobody else
// is runnable (would otherwise deadlock).
func (s *Scheduler) Sleep(wq *queue.FIFO[int]) (int, error) {
	if wq == nil {
		return INVALID, ErrNilQueue
	}
	s.mu.Lock()
	s.reapExitedLocked()
	if s.ready.Empty() {
		s.mu.Unlock()
		return NONE, nil
	}
	self := s.runningTID
	wq.PushBack(self)
	s.table.Get(self).State = ttable.Sleeping
	s.mu.Unlock()

	got, err := s.Yield(ANY)
	if got == NONE {
		// Every ready-queue entry was a KILLED thread that Yield tore
		// down, so nobody else was runnable after all: undo the parking.
		s.mu.Lock()
		wq.Remove(self)
		s.table.Get(self).State = ttable.Running
		s.mu.Unlock()
	}
	return got, err
}

// Wakeup implements spec.md §4.3's wakeup(wq, all): move queued TIDs
// from wq to the ready-queue tail, READY unless KILLED. Returns the
// count moved.
func (s *Scheduler) Wakeup(wq *queue.FIFO[int], all bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if wq == nil {
		return 0
	}
	if all {
		woken := wq.Drain()
		for _, tid := range woken {
			s.wakeIntoReadyLocked(tid)
		}
		return len(woken)
	}
	tid, ok := wq.PopFront()
	if !ok {
		return 0
	}
	s.wakeIntoReadyLocked(tid)
	return 1
}

// Wait implements spec.md §4.3's wait(tid): sleep on tid's wait_queue
// until tid exits. Returns immediately if tid has already exited.
func (s *Scheduler) Wait(tid int) (int, error) {
	s.mu.Lock()
	self := s.runningTID
	if tid == self {
		s.mu.Unlock()
		return INVALID, ErrInvalidTid
	}
	if !s.table.Valid(tid) {
		s.mu.Unlock()
		return INVALID, ErrInvalidTid
	}
	state := s.table.Get(tid).State
	if state == ttable.Uninit {
		s.mu.Unlock()
		return INVALID, ErrInvalidTid
	}
	if state == ttable.Exited {
		s.mu.Unlock()
		return tid, nil
	}
	wq := s.table.Get(tid).WaitQueue
	s.mu.Unlock()

	return s.Sleep(wq.(*queue.FIFO[int]))
}

// State reports a TID's current lifecycle state. Used by Runtime.State in
// the root package and by tests asserting the invariants in spec.md §8.
func (s *Scheduler) State(tid int) (ttable.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.table.Valid(tid) {
		return ttable.Uninit, false
	}
	return s.table.Get(tid).State, true
}

// NewWaitQueue allocates an empty wait queue for use with Sleep/Wakeup
// outside of Wait's implicit per-TCB queue (e.g. for Lock and CV).
func NewWaitQueue() *queue.FIFO[int] {
	return queue.New[int]()
}

// Len returns the thread table's fixed capacity (MAX_THREADS).
func (s *Scheduler) Len() int {
	return s.table.Len()
}
