package thread

// CV is a Mesa-style condition variable (spec.md §4.5): wait releases
// the associated lock and parks on its own waiters queue, reacquiring
// the lock only once rescheduled. Callers must re-check their
// predicate in a loop — a woken waiter does not get priority over
// anyone else contending for the lock.
type CV struct {
	rt      *Runtime
	waiters *WaitQueue
}

// NewCV creates a condition variable on the default Runtime.
func NewCV() *CV {
	return Default().NewCV()
}

// NewCV creates a condition variable on this Runtime.
func (rt *Runtime) NewCV() *CV {
	return &CV{rt: rt, waiters: WaitQueueCreate()}
}

// Wait implements spec.md §4.5's cv_wait: release l, sleep, reacquire l.
// Precondition: the caller holds l.
func (cv *CV) Wait(l *Lock) {
	self := cv.rt.Id()
	assertf(l.held && l.owner == self, "thread: CV Wait without holding lock (tid=%d)", self)
	cv.rt.metrics.CVWaits.Add(1)
	l.Release()
	cv.rt.Sleep(cv.waiters)
	l.Acquire()
}

// Signal implements spec.md §4.5's cv_signal: wake one waiter.
// Precondition: the caller holds l. The woken thread does not run until
// the signaller yields and wins the lock on its own.
func (cv *CV) Signal(l *Lock) {
	assertf(l.held && l.owner == cv.rt.Id(), "thread: CV Signal without holding lock")
	cv.rt.metrics.CVSignals.Add(1)
	cv.rt.Wakeup(cv.waiters, false)
}

// Broadcast implements spec.md §4.5's cv_broadcast: wake every waiter.
// Precondition: the caller holds l.
func (cv *CV) Broadcast(l *Lock) {
	assertf(l.held && l.owner == cv.rt.Id(), "thread: CV Broadcast without holding lock")
	cv.rt.metrics.CVSignals.Add(1)
	cv.rt.Wakeup(cv.waiters, true)
}

// Destroy releases a CV. Precondition: no waiters.
func (cv *CV) Destroy() {
	WaitQueueDestroy(cv.waiters)
}
