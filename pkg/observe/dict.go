package observe

import (
	"sort"
	"sync"
)

// MapEvent describes a change to one key of a mapping. When Deleted is set
// the key is gone and Value is the zero value. Old and HadOld describe the
// previous entry.
type MapEvent[V any] struct {
	Key     string
	Value   V
	Old     V
	HadOld  bool
	Deleted bool
}

// MapSink is the mutating half of a mapping.
type MapSink[V any] interface {
	// Set stores v under key. A nil v deletes the key.
	Set(key string, v V)
	Delete(key string)
	Clear()
}

// MapSource is the observable, readable half of a mapping.
type MapSource[V any] interface {
	Get(key string) (V, bool)
	Has(key string) bool
	// Keys returns the present keys in sorted order.
	Keys() []string
	Len() int
	Snapshot() map[string]V
	ObserveMap(fn func(MapEvent[V])) Unsubscribe
}

// Mapping is a full observable dictionary.
type Mapping[V any] interface {
	MapSink[V]
	MapSource[V]
}

// Dict is the concrete Mapping keyed by string. Absence is represented by
// the key not being present; a nil value is never stored.
type Dict[V any] struct {
	obs observers[func(MapEvent[V])]

	mu      sync.RWMutex
	entries map[string]V
}

// NewDict creates a dictionary holding a copy of initial. Nil values in
// initial are skipped.
func NewDict[V any](initial map[string]V) *Dict[V] {
	d := &Dict[V]{entries: make(map[string]V, len(initial))}
	for k, v := range initial {
		if !IsNil(v) {
			d.entries[k] = v
		}
	}
	return d
}

// Get returns the value for key and whether it is present.
func (d *Dict[V]) Get(key string) (V, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.entries[key]
	return v, ok
}

// Has reports whether key is present.
func (d *Dict[V]) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Keys returns the present keys, sorted.
func (d *Dict[V]) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return sortedKeys(d.entries)
}

// Len returns the number of present keys.
func (d *Dict[V]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// Snapshot returns a copy of the entries.
func (d *Dict[V]) Snapshot() map[string]V {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]V, len(d.entries))
	for k, v := range d.entries {
		out[k] = v
	}
	return out
}

// Set stores v under key and notifies observers if the entry changed. A nil
// v is a deletion.
func (d *Dict[V]) Set(key string, v V) {
	if IsNil(v) {
		d.Delete(key)
		return
	}

	d.mu.Lock()
	old, had := d.entries[key]
	if had && Equal(old, v) {
		d.mu.Unlock()
		return
	}
	d.entries[key] = v
	d.mu.Unlock()

	d.emit(MapEvent[V]{Key: key, Value: v, Old: old, HadOld: had})
}

// Delete removes key. Deleting an absent key does nothing.
func (d *Dict[V]) Delete(key string) {
	d.mu.Lock()
	old, had := d.entries[key]
	if !had {
		d.mu.Unlock()
		return
	}
	delete(d.entries, key)
	d.mu.Unlock()

	d.emit(MapEvent[V]{Key: key, Old: old, HadOld: true, Deleted: true})
}

// Update applies every entry of partial as a Set, in key order.
func (d *Dict[V]) Update(partial map[string]V) {
	for _, k := range sortedKeys(partial) {
		d.Set(k, partial[k])
	}
}

// Clear deletes every key, in key order.
func (d *Dict[V]) Clear() {
	for _, k := range d.Keys() {
		d.Delete(k)
	}
}

// ObserveMap registers fn for subsequent per-key changes.
func (d *Dict[V]) ObserveMap(fn func(MapEvent[V])) Unsubscribe {
	return d.obs.add(fn)
}

// Observers returns the number of registered observers.
func (d *Dict[V]) Observers() int {
	return d.obs.len()
}

// Dispose removes every observer.
func (d *Dict[V]) Dispose() {
	d.obs.clear()
}

func (d *Dict[V]) emit(e MapEvent[V]) {
	d.obs.each(func(fn func(MapEvent[V])) {
		fn(e)
	})
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
