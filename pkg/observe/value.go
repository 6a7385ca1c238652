package observe

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Unsubscribe removes an observer. Calling it more than once is a no-op.
type Unsubscribe func()

// Readable is anything whose current value can be read and observed.
type Readable[T any] interface {
	// Get returns the current value.
	Get() T

	// Observe registers fn to be called with every subsequent value.
	// The current value is not replayed.
	Observe(fn func(T)) Unsubscribe
}

// Writable is anything that accepts a new value.
type Writable[T any] interface {
	Set(T)
}

// Accessor is a gettable, settable, observable holder of one value.
type Accessor[T any] interface {
	Readable[T]
	Writable[T]
}

// Dynamic is the type-erased view of an observable used by the getter chain
// resolver. Implementations whose current value is itself Dynamic form a
// chain that Resolve flattens.
type Dynamic interface {
	// Current returns the current value as an interface.
	Current() any

	// Watch registers fn to be called whenever the value changes.
	Watch(fn func()) Unsubscribe
}

var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}

// observer is one registered callback. active is cleared on unsubscribe so
// that an observer removed mid-notification is not called.
type observer[F any] struct {
	id     uint64
	fn     F
	active atomic.Bool
}

// observers provides observer bookkeeping shared by Value, List and Dict.
// Notification order is registration order.
type observers[F any] struct {
	mu   sync.RWMutex
	subs []*observer[F]
}

func (o *observers[F]) add(fn F) Unsubscribe {
	sub := &observer[F]{id: nextID(), fn: fn}
	sub.active.Store(true)

	o.mu.Lock()
	o.subs = append(o.subs, sub)
	o.mu.Unlock()

	return func() {
		if sub.active.CompareAndSwap(true, false) {
			o.remove(sub.id)
		}
	}
}

func (o *observers[F]) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.subs {
		if s.id == id {
			o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
			return
		}
	}
}

// each calls visit for every observer that is still active. The observer
// list is copied first so callbacks may subscribe or unsubscribe freely.
func (o *observers[F]) each(visit func(F)) {
	o.mu.RLock()
	subs := make([]*observer[F], len(o.subs))
	copy(subs, o.subs)
	o.mu.RUnlock()

	for _, s := range subs {
		if s.active.Load() {
			visit(s.fn)
		}
	}
}

func (o *observers[F]) len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.subs)
}

func (o *observers[F]) clear() {
	o.mu.Lock()
	subs := o.subs
	o.subs = nil
	o.mu.Unlock()

	for _, s := range subs {
		s.active.Store(false)
	}
}

// Value is the concrete Accessor. It is safe for concurrent use; observers
// run synchronously on the goroutine that called Set, after the value lock
// has been released.
type Value[T any] struct {
	obs observers[func(T)]

	mu    sync.RWMutex
	value T

	// equal decides whether a Set is a change. nil means Equal.
	equal func(T, T) bool
}

// NewValue creates a Value holding initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Peek returns the current value. It is Get under the name the widget layer
// uses for reads that must never subscribe.
func (v *Value[T]) Peek() T {
	return v.Get()
}

// Set stores value and notifies observers if it differs from the current
// value.
func (v *Value[T]) Set(value T) {
	v.mu.Lock()
	changed := !v.equals(v.value, value)
	if changed {
		v.value = value
	}
	v.mu.Unlock()

	if changed {
		v.notify(value)
	}
}

// Update atomically replaces the value with fn(current).
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	next := fn(v.value)
	changed := !v.equals(v.value, next)
	if changed {
		v.value = next
	}
	v.mu.Unlock()

	if changed {
		v.notify(next)
	}
}

// Observe registers fn for subsequent changes.
func (v *Value[T]) Observe(fn func(T)) Unsubscribe {
	return v.obs.add(fn)
}

// WithEquals sets the equality function used to detect changes.
func (v *Value[T]) WithEquals(fn func(T, T) bool) *Value[T] {
	v.mu.Lock()
	v.equal = fn
	v.mu.Unlock()
	return v
}

// Observers returns the number of registered observers.
func (v *Value[T]) Observers() int {
	return v.obs.len()
}

// Dispose removes every observer. The value stays readable and writable.
func (v *Value[T]) Dispose() {
	v.obs.clear()
}

// Current implements Dynamic.
func (v *Value[T]) Current() any {
	return v.Get()
}

// Watch implements Dynamic.
func (v *Value[T]) Watch(fn func()) Unsubscribe {
	return v.obs.add(func(T) { fn() })
}

func (v *Value[T]) notify(value T) {
	v.obs.each(func(fn func(T)) {
		fn(value)
	})
}

func (v *Value[T]) equals(a, b T) bool {
	if v.equal != nil {
		return v.equal(a, b)
	}
	return Equal(a, b)
}

// Equal is the default change detector: == for scalar kinds and pointers,
// reflect.DeepEqual for everything else. Values of different dynamic types
// are never equal.
func Equal[T any](a, b T) bool {
	ai, bi := any(a), any(b)
	if ai == nil || bi == nil {
		return ai == nil && bi == nil
	}
	ta := reflect.TypeOf(ai)
	if ta != reflect.TypeOf(bi) {
		return false
	}
	switch ta.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return ai == bi
	default:
		return reflect.DeepEqual(ai, bi)
	}
}

// IsNil reports whether v should be treated as absent: nil, or a nil
// pointer, map, slice, interface, func or chan.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
