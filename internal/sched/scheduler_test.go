package sched

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ostep-labs/gothread/internal/logging"
	"github.com/ostep-labs/gothread/internal/ttable"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(8, logging.NewLogger(&logging.Config{Level: logging.LevelError, Output: io.Discard}))
	t.Cleanup(s.Close)
	return s
}

// TestYieldToKilledTargetReportsRequestedTid covers the bug this package
// once had: yielding to a specific TID that has already been Killed must
// still report that TID back to the caller (spec.md §4.3; the traced
// original's thread_yield fixes running_thread_id to the caller's
// requested tid before the killed thread's rewritten IP ever runs), even
// though the goroutine actually resumed next is whichever other thread
// popRunnableLocked finds.
func TestYieldToKilledTargetReportsRequestedTid(t *testing.T) {
	s := newTestScheduler(t)

	tidA, err := s.Create(func(any) {}, nil)
	require.NoError(t, err)
	tidB, err := s.Create(func(any) {
		// Hand control back to main so the outer Yield(tidA) call below
		// can return.
		s.Yield(ANY)
	}, nil)
	require.NoError(t, err)

	killed, err := s.Kill(tidA)
	require.NoError(t, err)
	require.Equal(t, tidA, killed)

	got, err := s.Yield(tidA)
	require.NoError(t, err)
	require.Equal(t, tidA, got, "Yield to a killed target must still report the requested tid")

	state, ok := s.State(tidB)
	require.True(t, ok)
	require.NotEqual(t, ttable.Uninit, state)
}

// TestKillRejectsRunningSelf matches spec.md §4.3's kill(tid) precondition
// that a thread cannot kill itself.
func TestKillRejectsRunningSelf(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.Kill(s.Id())
	require.ErrorIs(t, err, ErrInvalidTid)
}

func TestKillRejectsOutOfRangeAndUninitTids(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.Kill(-1)
	require.ErrorIs(t, err, ErrInvalidTid)

	_, err = s.Kill(1000)
	require.ErrorIs(t, err, ErrInvalidTid)

	// Tid 3 was never Create'd, so its slot is still UNINIT.
	_, err = s.Kill(3)
	require.ErrorIs(t, err, ErrInvalidTid)
}

func TestYieldRejectsInvalidTargets(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.Yield(1000)
	require.ErrorIs(t, err, ErrInvalidTid)

	tid, err := s.Create(func(any) { s.Sleep(NewWaitQueue()) }, nil)
	require.NoError(t, err)

	// Schedule tid so it parks itself in SLEEPING, then confirm it is no
	// longer a legal Yield target in that state.
	got, err := s.Yield(tid)
	require.NoError(t, err)
	require.Equal(t, tid, got)

	state, ok := s.State(tid)
	require.True(t, ok)
	require.Equal(t, ttable.Sleeping, state)

	_, err = s.Yield(tid)
	require.ErrorIs(t, err, ErrInvalidTid)
}

// TestSleepOnEmptyReadyQueueReturnsNone matches the Open Question decision
// recorded in DESIGN.md: sleeping with nobody else runnable would
// deadlock the process, so Sleep refuses and returns NONE instead of
// parking the caller.
func TestSleepOnEmptyReadyQueueReturnsNone(t *testing.T) {
	s := newTestScheduler(t)
	wq := NewWaitQueue()

	got, err := s.Sleep(wq)
	require.NoError(t, err)
	require.Equal(t, NONE, got)
	require.True(t, wq.Empty(), "Sleep must not park the caller when it refuses")
	require.Equal(t, s.Id(), 0, "the bootstrap thread keeps running")
}

// TestWakeupSingleWakesExactlyOne matches spec.md §4.3's wakeup(wq, all)
// with all=false: move one queued tid to READY, leave the rest parked.
func TestWakeupSingleWakesExactlyOne(t *testing.T) {
	s := newTestScheduler(t)

	tidA, err := s.Create(func(any) {}, nil)
	require.NoError(t, err)
	tidB, err := s.Create(func(any) {}, nil)
	require.NoError(t, err)

	// Simulate both threads having already called Sleep on a shared wait
	// queue: out of the ready queue, SLEEPING, and parked on wq.
	s.mu.Lock()
	s.ready.Remove(tidA)
	s.ready.Remove(tidB)
	s.table.Get(tidA).State = ttable.Sleeping
	s.table.Get(tidB).State = ttable.Sleeping
	s.mu.Unlock()

	wq := NewWaitQueue()
	wq.PushBack(tidA)
	wq.PushBack(tidB)

	woken := s.Wakeup(wq, false)
	require.Equal(t, 1, woken)
	require.Equal(t, 1, wq.Len(), "the other tid must remain parked")

	stateA, ok := s.State(tidA)
	require.True(t, ok)
	require.Equal(t, ttable.Ready, stateA)

	stateB, ok := s.State(tidB)
	require.True(t, ok)
	require.Equal(t, ttable.Sleeping, stateB)
}

// TestWaitReturnsImmediatelyForAlreadyExited matches spec.md §4.3's
// wait(tid): a tid that has already exited is returned without sleeping.
func TestWaitReturnsImmediatelyForAlreadyExited(t *testing.T) {
	s := newTestScheduler(t)

	tid, err := s.Create(func(any) {}, nil)
	require.NoError(t, err)

	// Schedule tid directly so its stub runs fn (a no-op) and falls
	// straight into Exit, handing control back to the bootstrap thread.
	got, err := s.Yield(tid)
	require.NoError(t, err)
	require.Equal(t, tid, got)

	state, ok := s.State(tid)
	require.True(t, ok)
	require.Equal(t, ttable.Exited, state)

	waited, err := s.Wait(tid)
	require.NoError(t, err)
	require.Equal(t, tid, waited)
}

func TestWaitRejectsSelfAndInvalidTids(t *testing.T) {
	s := newTestScheduler(t)

	_, err := s.Wait(s.Id())
	require.ErrorIs(t, err, ErrInvalidTid)

	_, err = s.Wait(1000)
	require.ErrorIs(t, err, ErrInvalidTid)

	_, err = s.Wait(3) // never Create'd, still UNINIT
	require.ErrorIs(t, err, ErrInvalidTid)
}
