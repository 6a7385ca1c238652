package transport

import (
	"sync"

	"github.com/vango-dev/bindsync/pkg/observe"
)

// Tracker counts requests in flight. Widgets observe Busy to show a loading
// indicator. A Tracker is shared by passing it to every client that should
// contribute to the same indicator.
type Tracker struct {
	mu     sync.Mutex
	count  int
	pubMu  sync.Mutex
	active *observe.Value[int]
	busy   *observe.Value[bool]
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active: observe.NewValue(0),
		busy:   observe.NewValue(false),
	}
}

// Acquire records one request in flight. The returned release function
// must be called when the request ends; calling it again does nothing.
func (t *Tracker) Acquire() (release func()) {
	t.adjust(1)
	var once sync.Once
	return func() {
		once.Do(func() { t.adjust(-1) })
	}
}

// adjust changes the count and publishes it. Publishing is serialized and
// reads the count afresh, so the last publication always carries the
// latest count even when adjustments race.
func (t *Tracker) adjust(delta int) {
	t.mu.Lock()
	t.count += delta
	t.mu.Unlock()

	t.pubMu.Lock()
	defer t.pubMu.Unlock()
	n := t.Active()
	t.active.Set(n)
	t.busy.Set(n > 0)
}

// Active returns the number of requests in flight.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Count is the observable number of requests in flight.
func (t *Tracker) Count() observe.Readable[int] {
	return t.active
}

// Busy is observable and true while any request is in flight.
func (t *Tracker) Busy() observe.Readable[bool] {
	return t.busy
}
