package thread

import "github.com/ostep-labs/gothread/internal/queue"

// WaitQueue is a FIFO of TIDs blocked via Sleep, woken by Wakeup — the
// building block Lock and CV are both layered on, per spec.md §4.1/§4.4/§4.5.
type WaitQueue struct {
	q *queue.FIFO[int]
}

// WaitQueueCreate allocates an empty wait queue.
func WaitQueueCreate() *WaitQueue {
	return &WaitQueue{q: queue.New[int]()}
}

// WaitQueueDestroy releases wq. Precondition: wq is empty (spec.md §3's
// lifecycle table — nothing should still be parked on a queue about to
// be destroyed).
func WaitQueueDestroy(wq *WaitQueue) {
	assertf(wq.q.Empty(), "thread: WaitQueueDestroy on non-empty wait queue")
}

// Sleep parks the running thread on wq on the default Runtime.
func Sleep(wq *WaitQueue) (Tid, error) {
	return Default().Sleep(wq)
}

// Wakeup wakes one (or, if all is true, every) thread parked on wq on
// the default Runtime, returning the count woken.
func Wakeup(wq *WaitQueue, all bool) int {
	return Default().Wakeup(wq, all)
}

// Wait blocks the running thread until tid exits, on the default Runtime.
func Wait(tid Tid) (Tid, error) {
	return Default().Wait(tid)
}

// Sleep implements spec.md §4.3's sleep(wq) on this Runtime.
func (rt *Runtime) Sleep(wq *WaitQueue) (Tid, error) {
	if wq == nil {
		return INVALID, NewError("Sleep", -1, ErrCodeNilQueue, "nil wait queue")
	}
	self := rt.sched.Id()
	tid, err := rt.sched.Sleep(wq.q)
	if err != nil {
		return tid, WrapError("Sleep", self, err)
	}
	return tid, nil
}

// Wakeup implements spec.md §4.3's wakeup(wq, all) on this Runtime.
func (rt *Runtime) Wakeup(wq *WaitQueue, all bool) int {
	if wq == nil {
		return 0
	}
	return rt.sched.Wakeup(wq.q, all)
}

// Wait implements spec.md §4.3's wait(tid) on this Runtime.
func (rt *Runtime) Wait(tid Tid) (Tid, error) {
	got, err := rt.sched.Wait(tid)
	if err != nil {
		return got, WrapError("Wait", tid, err)
	}
	return got, nil
}
