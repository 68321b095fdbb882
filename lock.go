package thread

// Lock is the mutual-exclusion primitive of spec.md §4.4, built
// entirely on WaitQueue + Sleep/Wakeup. It needs no internal
// sync.Mutex of its own: because at most one TID's goroutine is ever
// actually executing (every other one is parked in Sleep or blocked on
// its own Resume channel), held/owner can only ever be touched by
// whichever thread currently holds the scheduler's baton — the same
// reasoning that lets internal/queue.FIFO skip its own locking.
type Lock struct {
	rt      *Runtime
	held    bool
	owner   Tid
	waiters *WaitQueue
}

// NewLock creates an unheld lock on the default Runtime.
func NewLock() *Lock {
	return Default().NewLock()
}

// NewLock creates an unheld lock on this Runtime.
func (rt *Runtime) NewLock() *Lock {
	return &Lock{rt: rt, owner: NONE, waiters: WaitQueueCreate()}
}

// Acquire implements spec.md §4.4's lock_acquire: sleep on waiters while
// held, then take ownership.
func (l *Lock) Acquire() {
	self := l.rt.Id()
	contended := false
	for l.held {
		contended = true
		l.rt.Sleep(l.waiters)
	}
	if contended {
		l.rt.metrics.LockContentions.Add(1)
	}
	l.held = true
	l.owner = self
	l.rt.metrics.LockAcquires.Add(1)
}

// Release implements spec.md §4.4's lock_release. Precondition: the
// caller owns the lock; violating it is a fatal assertion (spec.md §7).
// wakeup(all) lets every reschedulable waiter race for ownership; the
// loser(s) simply re-sleep, trading a thundering herd for freedom from
// lost wakeups (spec.md §4.4).
func (l *Lock) Release() {
	self := l.rt.Id()
	assertf(l.held && l.owner == self, "thread: Release by non-owner (tid=%d owner=%d)", self, l.owner)
	l.held = false
	l.owner = NONE
	l.rt.Wakeup(l.waiters, true)
}

// Destroy releases a Lock. Precondition: not held, no waiters (spec.md §3).
func (l *Lock) Destroy() {
	assertf(!l.held, "thread: Destroy of held lock")
	WaitQueueDestroy(l.waiters)
}
