package bind

import (
	"log/slog"
	"reflect"
)

// Option configures a Bind call.
type Option func(*settings)

type settings struct {
	registry *Registry
	logger   *slog.Logger
	toTarget any // func(S) T
	toSource any // func(T) S
	template any // func(S, int) T
}

func newSettings(opts []Option) *settings {
	s := &settings{registry: defaultRegistry}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "bind")
	}
	return s
}

// WithTransform sets the per-direction conversions. Either may be nil to
// disable that direction. Transforms must be pure: they can run while the
// opposite direction is suppressed.
func WithTransform[T, S any](toTarget func(S) T, toSource func(T) S) Option {
	return func(s *settings) {
		s.toTarget = toTarget
		s.toSource = toSource
	}
}

// WithTemplate sets the function that renders a source item for a list or
// dictionary target. index is the item's position, or -1 for keyed entries
// and single renderings.
func WithTemplate[T, S any](template func(item S, index int) T) Option {
	return func(s *settings) {
		s.template = template
	}
}

// WithRegistry records the binding in r instead of the default registry.
func WithRegistry(r *Registry) Option {
	return func(s *settings) {
		s.registry = r
	}
}

// WithLogger sets the logger for bind and unbind events.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// conv holds the resolved conversions of one Bind call. A nil function
// means that direction has no conversion.
type conv[T, S any] struct {
	toTarget func(S) T
	toSource func(T) S
	template func(S, int) T
}

func resolveConv[T, S any](s *settings) (conv[T, S], error) {
	var c conv[T, S]
	var ok bool

	if s.toTarget != nil || s.toSource != nil {
		if c.toTarget, ok = s.toTarget.(func(S) T); s.toTarget != nil && !ok {
			return c, ErrTypeMismatch
		}
		if c.toSource, ok = s.toSource.(func(T) S); s.toSource != nil && !ok {
			return c, ErrTypeMismatch
		}
	} else {
		c.toTarget = identity[S, T]()
		c.toSource = identity[T, S]()
	}

	if s.template != nil {
		if c.template, ok = s.template.(func(S, int) T); !ok {
			return c, ErrTypeMismatch
		}
	}
	return c, nil
}

// render converts a source item for a list or dictionary target.
func (c conv[T, S]) render() func(S, int) T {
	if c.template != nil {
		return c.template
	}
	if c.toTarget != nil {
		return func(item S, _ int) T { return c.toTarget(item) }
	}
	return nil
}

// identity returns an assignment conversion from A to B, or nil when A is
// not assignable to B.
func identity[A, B any]() func(A) B {
	if !reflect.TypeFor[A]().AssignableTo(reflect.TypeFor[B]()) {
		return nil
	}
	return func(a A) B {
		b, _ := any(a).(B)
		return b
	}
}
