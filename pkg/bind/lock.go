package bind

import "sync/atomic"

// Lock is the reentrancy guard shared by the two directions of a binding.
// While one direction is propagating, the other direction is suppressed.
// The zero value is an inactive lock.
type Lock struct {
	active atomic.Bool
}

// TryEnter marks the lock active and reports whether it was inactive.
func (l *Lock) TryEnter() bool {
	return l.active.CompareAndSwap(false, true)
}

// Exit releases the lock.
func (l *Lock) Exit() {
	l.active.Store(false)
}

// Active reports whether a propagation currently holds the lock.
func (l *Lock) Active() bool {
	return l.active.Load()
}

// Run calls fn while holding the lock. It returns false without calling fn
// if the lock is already held.
func (l *Lock) Run(fn func()) bool {
	if !l.TryEnter() {
		return false
	}
	defer l.Exit()
	fn()
	return true
}
