// Package bindsync provides the public API for binding local state to
// values served over JSON-RPC.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-dev/bindsync"
//
// Usage:
//
//	l := bindsync.NewLoop()
//	l.Start(ctx)
//	client := bindsync.NewClient("https://example.com/rpc")
//	name := bindsync.RemoteValue(l, client, "user.setName", map[string]any{"id": 1}, "")
//	label := bindsync.NewValue("")
//	bindsync.Bind[string, string](label, name)
package bindsync

import (
	"github.com/vango-dev/bindsync/pkg/bind"
	"github.com/vango-dev/bindsync/pkg/loop"
	"github.com/vango-dev/bindsync/pkg/observe"
	"github.com/vango-dev/bindsync/pkg/remote"
	"github.com/vango-dev/bindsync/pkg/transport"
)

// =============================================================================
// Observable primitives (re-export from pkg/observe)
// =============================================================================

// NewValue creates an observable value.
//
// Example:
//
//	count := bindsync.NewValue(0)
//	count.Set(1)
//	value := count.Get() // 1
func NewValue[T any](initial T) *Value[T] {
	return observe.NewValue(initial)
}

// NewList creates an observable list holding items.
func NewList[T any](items ...T) *List[T] {
	return observe.NewList(items...)
}

// NewDict creates an observable string-keyed mapping.
func NewDict[V any](initial map[string]V) *Dict[V] {
	return observe.NewDict(initial)
}

// KeyOf returns an accessor for one key of a mapping.
func KeyOf[V any](m observe.Mapping[V], key string) Accessor[V] {
	return observe.KeyOf(m, key)
}

// Resolve follows a getter chain to its leaf.
func Resolve[T any](source any) *Chain[T] {
	return observe.Resolve[T](source)
}

// Observable type aliases
type Value[T any] = observe.Value[T]
type List[T any] = observe.List[T]
type Dict[V any] = observe.Dict[V]
type Chain[T any] = observe.Chain[T]
type Accessor[T any] = observe.Accessor[T]
type Readable[T any] = observe.Readable[T]
type Unsubscribe = observe.Unsubscribe
type ListEvent[T any] = observe.ListEvent[T]
type MapEvent[V any] = observe.MapEvent[V]

// =============================================================================
// Binding (re-export from pkg/bind)
// =============================================================================

// Bind makes target follow source. See bind.Bind.
func Bind[T, S any](target, source any, opts ...BindOption) (any, error) {
	return bind.Bind[T, S](target, source, opts...)
}

// MustBind is like Bind but panics on misuse.
func MustBind[T, S any](target, source any, opts ...BindOption) any {
	return bind.MustBind[T, S](target, source, opts...)
}

// Unbind detaches target's binding, if any.
var Unbind = bind.Unbind

// Render produces a fresh target that follows source.
func Render[T, S any](source any, opts ...BindOption) (T, error) {
	return bind.Render[T, S](source, opts...)
}

// WithTransform converts values in both directions of a binding.
func WithTransform[T, S any](toTarget func(S) T, toSource func(T) S) BindOption {
	return bind.WithTransform(toTarget, toSource)
}

// WithTemplate renders each source item of a sequence binding.
func WithTemplate[T, S any](template func(item S, index int) T) BindOption {
	return bind.WithTemplate(template)
}

type BindOption = bind.Option
type Binding = bind.Binding
type Lock = bind.Lock

// =============================================================================
// Remote sources (re-export from pkg/remote and pkg/transport)
// =============================================================================

// NewLoop creates the event loop remote sources post their work to.
func NewLoop(opts ...loop.Option) *Loop {
	return loop.New(opts...)
}

// NewClient creates a JSON-RPC 1.1 client for endpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	return transport.NewClient(endpoint, opts...)
}

// RemoteValue creates a scalar remote source. See remote.NewValue.
func RemoteValue[T any](exec Executor, caller Caller, method string, params map[string]any, def T, opts ...RemoteOption) *remote.Value[T] {
	return remote.NewValue(exec, caller, method, params, def, opts...)
}

// RemoteObject creates an object remote source. See remote.NewObject.
func RemoteObject(exec Executor, caller Caller, method string, params map[string]any, watch bool, opts ...RemoteOption) *remote.Object {
	return remote.NewObject(exec, caller, method, params, watch, opts...)
}

type Loop = loop.Loop
type Executor = loop.Executor
type Client = transport.Client
type ClientOption = transport.Option
type Caller = remote.Caller
type RemoteOption = remote.Option
type State = remote.State

// Remote source states
const (
	Idle       = remote.Idle
	Loading    = remote.Loading
	Loaded     = remote.Loaded
	Committing = remote.Committing
	Error      = remote.Error
)

var Lazy = remote.Lazy
