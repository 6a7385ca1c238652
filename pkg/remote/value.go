package remote

import (
	"encoding/json"
	"sync"

	"github.com/vango-dev/bindsync/pkg/loop"
	"github.com/vango-dev/bindsync/pkg/observe"
)

// Value is an Accessor backed by a remote method. Reads call the method with
// the static params; commits call it with the static params plus a "value"
// member holding the local value. The server answers both with the
// canonical value.
type Value[T any] struct {
	core
	value *observe.Value[T]

	mu             sync.Mutex
	seq            uint64 // latest issued token
	edits          uint64 // local writes so far
	dirty          bool   // a local write awaits its commit
	scheduled      bool   // a flush is posted
	committing     bool   // a commit is in flight
	refreshPending bool   // a refresh waits for the commit to finish
	updating       bool   // a server value is being applied
	closed         bool
}

// NewValue creates a remote value holding def until the first read
// completes. The initial read is issued immediately unless Lazy is given.
func NewValue[T any](exec loop.Executor, caller Caller, method string, params map[string]any, def T, opts ...Option) *Value[T] {
	v := &Value[T]{value: observe.NewValue(def)}
	v.init(exec, caller, method, params, opts)
	if !v.cfg.lazy {
		v.Refresh()
	}
	return v
}

// Get returns the local value.
func (v *Value[T]) Get() T {
	return v.value.Get()
}

// Set writes the local value immediately and schedules a commit. Values
// set while a server response is being applied are not committed.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	if v.updating || v.closed {
		v.mu.Unlock()
		v.value.Set(x)
		return
	}
	if !v.dirty && observe.Equal(v.value.Get(), x) {
		v.mu.Unlock()
		return
	}
	v.edits++
	v.dirty = true
	schedule := !v.scheduled && !v.committing
	if schedule {
		v.scheduled = true
	}
	v.mu.Unlock()

	v.value.Set(x)
	v.state.Set(Committing)
	if schedule {
		v.exec.Post(v.flush)
	}
}

// Observe registers fn for subsequent value changes, local or remote.
func (v *Value[T]) Observe(fn func(T)) observe.Unsubscribe {
	return v.value.Observe(fn)
}

// Current implements observe.Dynamic.
func (v *Value[T]) Current() any {
	return v.value.Get()
}

// Watch implements observe.Dynamic.
func (v *Value[T]) Watch(fn func()) observe.Unsubscribe {
	return v.value.Watch(fn)
}

// Refresh re-reads the value. While a commit is queued or in flight the
// refresh is deferred until it completes.
func (v *Value[T]) Refresh() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	if v.committing || v.dirty {
		v.refreshPending = true
		v.mu.Unlock()
		return
	}
	v.seq++
	req := request{token: v.seq, issuedAt: v.edits}
	v.mu.Unlock()

	v.state.Set(Loading)
	v.issue(req, v.withStatic(nil), v.complete)
}

// Push applies a server-initiated value through the same path as a
// response, without committing it. It is ignored while local changes are
// queued or in flight.
func (v *Value[T]) Push(raw json.RawMessage) error {
	var x T
	if err := json.Unmarshal(raw, &x); err != nil {
		return err
	}
	v.exec.Post(func() {
		v.mu.Lock()
		if v.closed || v.dirty || v.committing {
			v.mu.Unlock()
			v.logger.Debug("push ignored while committing")
			return
		}
		v.seq++
		issuedAt := v.edits
		v.mu.Unlock()
		v.merge(x, issuedAt)
	})
	return nil
}

// Close stops issuing calls and cancels calls in flight. The local value
// stays readable and writable.
func (v *Value[T]) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.cancel()
}

func (v *Value[T]) flush() {
	v.mu.Lock()
	v.scheduled = false
	if v.closed || !v.dirty || v.committing {
		v.mu.Unlock()
		return
	}
	v.dirty = false
	v.committing = true
	v.seq++
	req := request{token: v.seq, issuedAt: v.edits, commit: true}
	x := v.value.Get()
	v.mu.Unlock()

	v.issue(req, v.withStatic(map[string]any{"value": x}), v.complete)
}

func (v *Value[T]) complete(r reply) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	var flush, refresh bool
	if r.commit {
		v.committing = false
		if v.dirty && !v.scheduled {
			v.scheduled = true
			flush = true
		}
		if v.refreshPending && !v.dirty {
			v.refreshPending = false
			refresh = true
		}
	}
	stale := r.token != v.seq
	v.mu.Unlock()

	if flush {
		v.exec.Post(v.flush)
	}
	if refresh {
		defer v.Refresh()
	}

	if stale {
		v.logger.Debug("dropping stale response", "token", r.token)
		return
	}
	if r.err != nil {
		v.fail(r.request, r.err)
		return
	}
	if isNull(r.result) {
		v.settle()
		return
	}
	var x T
	if err := json.Unmarshal(r.result, &x); err != nil {
		v.failDecode(err)
		return
	}
	v.merge(x, r.issuedAt)
}

// merge applies a server value unless the local value was edited after the
// request was issued.
func (v *Value[T]) merge(x T, issuedAt uint64) {
	v.mu.Lock()
	if v.edits != issuedAt || v.dirty {
		v.mu.Unlock()
		v.logger.Debug("keeping local edit over response")
		return
	}
	v.updating = true
	v.mu.Unlock()

	v.value.Set(x)

	v.mu.Lock()
	v.updating = false
	v.mu.Unlock()
	v.settle()
}

// settle records a successful exchange.
func (v *Value[T]) settle() {
	v.mu.Lock()
	busy := v.dirty || v.committing
	v.mu.Unlock()

	v.setErr(nil)
	if busy {
		v.state.Set(Committing)
		return
	}
	v.state.Set(Loaded)
}
