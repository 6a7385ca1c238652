package bind

import (
	"log/slog"
	"reflect"
	"sync"
)

// Binding is the live relation between one target and one source.
type Binding struct {
	kind Kind
	lock *Lock

	mu    sync.Mutex
	stops []func()
}

func newBinding(kind Kind) *Binding {
	return &Binding{kind: kind, lock: &Lock{}}
}

// Kind returns the capability the binding was dispatched on.
func (b *Binding) Kind() Kind { return b.kind }

// Lock returns the guard shared by both directions of the binding.
func (b *Binding) Lock() *Lock { return b.lock }

func (b *Binding) onDetach(fn func()) {
	b.mu.Lock()
	b.stops = append(b.stops, fn)
	b.mu.Unlock()
}

// detach runs every teardown in reverse registration order.
func (b *Binding) detach() {
	b.mu.Lock()
	stops := b.stops
	b.stops = nil
	b.mu.Unlock()

	for i := len(stops) - 1; i >= 0; i-- {
		stops[i]()
	}
}

// Registry tracks the binding attached to each target.
type Registry struct {
	mu       sync.Mutex
	bindings map[any]*Binding
}

var defaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[any]*Binding)}
}

// DefaultRegistry returns the registry used when no WithRegistry option is
// given.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Detach tears down the binding on target and reports whether there was
// one. Detaching an unbound target is a no-op.
func (r *Registry) Detach(target any) bool {
	if !isComparable(target) {
		return false
	}
	r.mu.Lock()
	b, ok := r.bindings[target]
	delete(r.bindings, target)
	r.mu.Unlock()

	if ok {
		b.detach()
	}
	return ok
}

// Bound reports whether target has a binding.
func (r *Registry) Bound(target any) bool {
	_, ok := r.Lookup(target)
	return ok
}

// Lookup returns the binding attached to target.
func (r *Registry) Lookup(target any) (*Binding, bool) {
	if !isComparable(target) {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[target]
	return b, ok
}

// Len returns the number of bound targets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bindings)
}

// DetachAll tears down every binding.
func (r *Registry) DetachAll() {
	r.mu.Lock()
	bindings := r.bindings
	r.bindings = make(map[any]*Binding)
	r.mu.Unlock()

	for _, b := range bindings {
		b.detach()
	}
}

func (r *Registry) attach(target any, b *Binding, logger *slog.Logger) {
	r.mu.Lock()
	old := r.bindings[target]
	r.bindings[target] = b
	r.mu.Unlock()

	if old != nil {
		old.detach()
	}
	logger.Debug("bound", "kind", b.kind, "target", typeName(target))
}

func isComparable(v any) bool {
	return v != nil && reflect.TypeOf(v).Comparable()
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}

func typeFor[T any]() string {
	return reflect.TypeFor[T]().String()
}
