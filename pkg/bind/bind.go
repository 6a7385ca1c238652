package bind

import (
	"fmt"

	"github.com/vango-dev/bindsync/pkg/observe"
)

// Bind attaches source to target and returns target. T is the target's
// value type and S the source's.
//
// A nil source detaches target's binding. A nil target renders source
// through the template (or transform) and returns the rendering without
// attaching anything. Otherwise any existing binding on target is torn down
// first and the new one is chosen by KindOf[T](target). On error the target
// is left detached.
func Bind[T, S any](target, source any, opts ...Option) (any, error) {
	s := newSettings(opts)

	if observe.IsNil(source) {
		if !observe.IsNil(target) && s.registry.Detach(target) {
			s.logger.Debug("unbound", "target", typeName(target))
		}
		return target, nil
	}

	c, err := resolveConv[T, S](s)
	if err != nil {
		return target, misuse("B002", err, target, "Check the type arguments of WithTransform and WithTemplate")
	}

	if observe.IsNil(target) {
		return render(source, c)
	}

	if !isComparable(target) {
		return target, misuse("B004", ErrUncomparable, target, "Bind a pointer to the widget")
	}
	s.registry.Detach(target)

	var b *Binding
	kind := KindOf[T](target)
	switch kind {
	case KindAccessor:
		b, err = bindAccessor(target, source, c)
	case KindSequence:
		b, err = bindList(target.(observe.ListSink[T]), source, c)
	case KindMapping:
		b, err = bindDict(target.(observe.MapSink[T]), source, c)
	default:
		err = misuse("B001", ErrNotImplemented, target,
			fmt.Sprintf("Implement observe.Accessor[%s], observe.ListSink[%[1]s] or observe.MapSink[%[1]s]", typeFor[T]()))
	}
	if err != nil {
		s.logger.Debug("bind failed", "kind", kind, "target", typeName(target), "error", err)
		return target, err
	}

	s.registry.attach(target, b, s.logger)
	return target, nil
}

// MustBind is like Bind but panics on error. Binding misuse is a programming
// error; MustBind is meant for setup code.
func MustBind[T, S any](target, source any, opts ...Option) any {
	out, err := Bind[T, S](target, source, opts...)
	if err != nil {
		panic(err)
	}
	return out
}

// Unbind detaches target's binding in the default registry. It reports
// whether a binding was removed and is safe to call repeatedly.
func Unbind(target any) bool {
	return defaultRegistry.Detach(target)
}

// Render resolves source once and converts it through the template or
// transform options.
func Render[T, S any](source any, opts ...Option) (T, error) {
	s := newSettings(opts)
	c, err := resolveConv[T, S](s)
	if err != nil {
		return *new(T), err
	}
	return renderValue(source, c)
}

// render builds a detached rendering of source: a new list for a list
// source, a new dictionary for a mapping source, a single value otherwise.
func render[T, S any](source any, c conv[T, S]) (any, error) {
	switch src := source.(type) {
	case observe.ListSource[S]:
		fn := c.render()
		if fn == nil {
			return nil, misuse("B003", ErrNoTemplate, source, "Pass WithTemplate")
		}
		items := src.Items()
		out := make([]T, len(items))
		for i, item := range items {
			out[i] = fn(item, i)
		}
		return observe.NewList(out...), nil
	case observe.MapSource[S]:
		fn := c.render()
		if fn == nil {
			return nil, misuse("B003", ErrNoTemplate, source, "Pass WithTemplate")
		}
		out := observe.NewDict[T](nil)
		snap := src.Snapshot()
		for _, k := range src.Keys() {
			out.Set(k, fn(snap[k], -1))
		}
		return out, nil
	}
	return renderValue(source, c)
}

func renderValue[T, S any](source any, c conv[T, S]) (T, error) {
	var zero T
	fn := c.render()
	if fn == nil {
		return zero, misuse("B003", ErrNoTemplate, source, "Pass WithTemplate or WithTransform")
	}
	chain := observe.Resolve[S](source)
	defer chain.Close()
	v, ok := chain.Lookup()
	if !ok {
		return zero, misuse("B002", ErrTypeMismatch, source, fmt.Sprintf("Source must yield %s", typeFor[S]()))
	}
	return fn(v, -1), nil
}
