package pool

import "sync"

// Waiter is a single-slot wake primitive bound to the mutex that guards a
// pool's entry list.
//
// Wait, Notify and NotifyAll must be called with that mutex held. A Notify
// with nobody parked is dropped, so callers of Wait re-check their condition
// in a loop after every wakeup.
type Waiter struct {
	cond    *sync.Cond
	waiting int
}

// NewWaiter returns a Waiter parking on l.
func NewWaiter(l sync.Locker) *Waiter {
	return &Waiter{cond: sync.NewCond(l)}
}

// Wait releases the lock, suspends the caller until notified and reacquires
// the lock before returning.
func (w *Waiter) Wait() {
	w.waiting++
	w.cond.Wait()
	w.waiting--
}

// Notify wakes at most one parked caller.
func (w *Waiter) Notify() {
	w.cond.Signal()
}

// NotifyAll wakes every parked caller. Used on close and on context
// cancellation, where each waiter has to observe the new state itself.
func (w *Waiter) NotifyAll() {
	w.cond.Broadcast()
}

// Waiting reports how many callers are parked.
func (w *Waiter) Waiting() int {
	return w.waiting
}
