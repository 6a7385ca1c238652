package remote

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/vango-dev/bindsync/pkg/loop"
	"github.com/vango-dev/bindsync/pkg/observe"
)

// Object is a Mapping backed by a remote method. Reads return the whole
// object. Commits send the static params with every dirty key merged on
// top, deleted keys as null, and the server answers with the keys it
// changed.
type Object struct {
	core
	dict  *observe.Dict[any]
	watch observe.Unsubscribe

	mu             sync.Mutex
	seq            uint64
	reading        uint64 // token of the read in flight, or 0
	edits          uint64
	lastEdit       map[string]uint64 // edit counter of each key's latest local write
	pending        map[string]struct{}
	scheduled      bool
	committing     bool
	refreshPending bool
	updating       bool
	closed         bool
}

// NewObject creates a remote object. With watch set, local mutations are
// committed in batches, one call per executor tick. Without it the object
// only follows the server.
func NewObject(exec loop.Executor, caller Caller, method string, params map[string]any, watch bool, opts ...Option) *Object {
	o := &Object{
		dict:     observe.NewDict[any](nil),
		lastEdit: make(map[string]uint64),
		pending:  make(map[string]struct{}),
	}
	o.init(exec, caller, method, params, opts)
	if watch {
		o.watch = o.dict.ObserveMap(o.onLocal)
	}
	if !o.cfg.lazy {
		o.Refresh()
	}
	return o
}

// Field returns the accessor for one key.
func (o *Object) Field(key string) observe.Accessor[any] {
	return observe.KeyOf[any](o, key)
}

func (o *Object) Get(key string) (any, bool) { return o.dict.Get(key) }
func (o *Object) Has(key string) bool        { return o.dict.Has(key) }
func (o *Object) Keys() []string             { return o.dict.Keys() }
func (o *Object) Len() int                   { return o.dict.Len() }
func (o *Object) Snapshot() map[string]any   { return o.dict.Snapshot() }
func (o *Object) Set(key string, v any)      { o.dict.Set(key, v) }
func (o *Object) Delete(key string)          { o.dict.Delete(key) }
func (o *Object) Clear()                     { o.dict.Clear() }

// ObserveMap registers fn for subsequent key changes, local or remote.
func (o *Object) ObserveMap(fn func(observe.MapEvent[any])) observe.Unsubscribe {
	return o.dict.ObserveMap(fn)
}

// Pending returns the dirty keys not yet handed to a commit, sorted.
func (o *Object) Pending() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return pendingKeys(o.pending)
}

// Refresh re-reads the whole object. While a commit is queued or in flight
// the refresh is deferred until it completes.
func (o *Object) Refresh() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if o.committing || len(o.pending) > 0 {
		o.refreshPending = true
		o.mu.Unlock()
		return
	}
	o.seq++
	o.reading = o.seq
	req := request{token: o.seq, issuedAt: o.edits}
	o.mu.Unlock()

	o.state.Set(Loading)
	o.issue(req, o.withStatic(nil), o.complete)
}

// Push applies a server-initiated snapshot of the whole object. Keys with
// local changes not yet confirmed keep their local values. Pushes arriving
// while a commit is in flight are ignored.
func (o *Object) Push(raw json.RawMessage) error {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	o.exec.Post(func() {
		o.mu.Lock()
		if o.closed || o.committing {
			o.mu.Unlock()
			o.logger.Debug("push ignored while committing")
			return
		}
		o.seq++
		o.reading = 0
		issuedAt := o.edits
		o.mu.Unlock()
		o.merge(m, issuedAt, true)
	})
	return nil
}

// Close stops committing and cancels calls in flight.
func (o *Object) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()
	if o.watch != nil {
		o.watch()
	}
	o.cancel()
}

func (o *Object) onLocal(e observe.MapEvent[any]) {
	o.mu.Lock()
	if o.updating || o.closed {
		o.mu.Unlock()
		return
	}
	o.edits++
	o.lastEdit[e.Key] = o.edits
	o.pending[e.Key] = struct{}{}
	schedule := !o.scheduled && !o.committing
	if schedule {
		o.scheduled = true
	}
	o.mu.Unlock()

	o.state.Set(Committing)
	if schedule {
		o.exec.Post(o.flush)
	}
}

func (o *Object) flush() {
	o.mu.Lock()
	o.scheduled = false
	if o.closed || o.committing || len(o.pending) == 0 {
		o.mu.Unlock()
		return
	}
	keys := pendingKeys(o.pending)
	o.pending = make(map[string]struct{})
	o.committing = true
	if o.reading != 0 {
		// The commit's token makes the read stale and its response only
		// carries the committed keys, so read again once it completes.
		o.reading = 0
		o.refreshPending = true
	}
	o.seq++
	req := request{token: o.seq, issuedAt: o.edits, commit: true}
	o.mu.Unlock()

	changes := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok := o.dict.Get(k)
		if !ok {
			v = nil
		}
		changes[k] = v
	}
	o.logger.Debug("committing keys", "keys", keys)
	o.issue(req, o.withStatic(changes), o.complete)
}

func (o *Object) complete(r reply) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	var flush, refresh bool
	if !r.commit && r.token == o.reading {
		o.reading = 0
	}
	if r.commit {
		o.committing = false
		if len(o.pending) > 0 && !o.scheduled {
			o.scheduled = true
			flush = true
		}
		if o.refreshPending && len(o.pending) == 0 {
			o.refreshPending = false
			refresh = true
		}
	}
	stale := r.token != o.seq
	o.mu.Unlock()

	if flush {
		o.exec.Post(o.flush)
	}
	if refresh {
		defer o.Refresh()
	}

	if stale {
		o.logger.Debug("dropping stale response", "token", r.token)
		return
	}
	if r.err != nil {
		o.fail(r.request, r.err)
		return
	}
	if isNull(r.result) {
		o.settle()
		return
	}
	var m map[string]any
	if err := json.Unmarshal(r.result, &m); err != nil {
		o.failDecode(err)
		return
	}
	o.merge(m, r.issuedAt, !r.commit)
}

// merge applies server entries. Keys still pending, or edited after the
// request was issued, keep their local values. A full merge also deletes
// keys the server no longer has.
func (o *Object) merge(m map[string]any, issuedAt uint64, full bool) {
	o.mu.Lock()
	protected := make(map[string]bool, len(o.pending))
	for k := range o.pending {
		protected[k] = true
	}
	for k, at := range o.lastEdit {
		if at > issuedAt {
			protected[k] = true
		}
	}
	o.updating = true
	o.mu.Unlock()

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if protected[k] {
			continue
		}
		o.dict.Set(k, m[k])
	}
	if full {
		for _, k := range o.dict.Keys() {
			if _, ok := m[k]; !ok && !protected[k] {
				o.dict.Delete(k)
			}
		}
	}

	o.mu.Lock()
	o.updating = false
	for k, at := range o.lastEdit {
		if at <= issuedAt {
			delete(o.lastEdit, k)
		}
	}
	o.mu.Unlock()
	o.settle()
}

func (o *Object) settle() {
	o.mu.Lock()
	busy := o.committing || len(o.pending) > 0
	o.mu.Unlock()

	o.setErr(nil)
	if busy {
		o.state.Set(Committing)
		return
	}
	o.state.Set(Loaded)
}

func pendingKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
