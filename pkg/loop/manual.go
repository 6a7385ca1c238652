package loop

import (
	"sync"
	"time"
)

// Manual is an Executor that only runs functions when told to. Tests use it
// to step through debounced commits and asynchronous completions
// deterministically; synchronous embedders can call Flush after each batch
// of mutations.
type Manual struct {
	mu     sync.Mutex
	queue  []func()
	signal chan struct{}
}

// NewManual creates an empty manual executor.
func NewManual() *Manual {
	return &Manual{signal: make(chan struct{}, 1)}
}

// Post queues fn.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued functions.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// RunOne runs the oldest queued function and reports whether there was one.
func (m *Manual) RunOne() bool {
	m.mu.Lock()
	if len(m.queue) == 0 {
		m.mu.Unlock()
		return false
	}
	fn := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	m.mu.Unlock()

	fn()
	return true
}

// Flush runs queued functions, including ones posted while flushing, until
// the queue is empty. It returns how many ran.
func (m *Manual) Flush() int {
	n := 0
	for m.RunOne() {
		n++
	}
	return n
}

// Next runs one function, waiting up to timeout for one to be posted from
// another goroutine. It reports whether a function ran.
func (m *Manual) Next(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if m.RunOne() {
			return true
		}
		select {
		case <-m.signal:
		case <-timer.C:
			return m.RunOne()
		}
	}
}
