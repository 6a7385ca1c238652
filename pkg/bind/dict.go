package bind

import "github.com/vango-dev/bindsync/pkg/observe"

// bindDict keeps target in sync with a source mapping or a source list of
// key/value pairs. Entries are rendered with index -1.
func bindDict[T, S any](target observe.MapSink[T], source any, c conv[T, S]) (*Binding, error) {
	render := c.render()
	if render == nil {
		return nil, misuse("B003", ErrNoTemplate, source, "Pass WithTemplate")
	}

	b := newBinding(KindMapping)
	follower := &dictFollower[T, S]{target: target, render: render}
	b.onDetach(follower.stop)

	if follower.accepts(source) {
		follower.follow(source, true)
		return b, nil
	}
	if dyn, ok := source.(observe.Dynamic); ok {
		chain := observe.Resolve[any](dyn)
		b.onDetach(chain.Close)
		b.onDetach(chain.Gain(follower.follow))
		return b, nil
	}
	return nil, misuse("B002", ErrTypeMismatch, source, "A mapping target needs an observe.MapSource or a list of observe.Pair")
}

type dictFollower[T, S any] struct {
	target observe.MapSink[T]
	render func(S, int) T
	items  observe.Unsubscribe
}

func (f *dictFollower[T, S]) accepts(source any) bool {
	switch source.(type) {
	case observe.MapSource[S], observe.ListSource[observe.Pair[S]], map[string]S:
		return true
	}
	return false
}

// follow rebuilds the target from src and subscribes to its events. A
// source of any other shape leaves the target empty.
func (f *dictFollower[T, S]) follow(src any, ok bool) {
	f.stop()
	f.target.Clear()
	if !ok {
		return
	}

	switch m := src.(type) {
	case observe.MapSource[S]:
		snap := m.Snapshot()
		for _, k := range m.Keys() {
			f.target.Set(k, f.render(snap[k], -1))
		}
		f.items = m.ObserveMap(func(e observe.MapEvent[S]) {
			if e.Deleted {
				f.target.Delete(e.Key)
				return
			}
			f.target.Set(e.Key, f.render(e.Value, -1))
		})
	case observe.ListSource[observe.Pair[S]]:
		for _, p := range m.Items() {
			f.target.Set(p.Key, f.render(p.Value, -1))
		}
		f.items = m.ObserveList(func(e observe.ListEvent[observe.Pair[S]]) {
			switch e.Op {
			case observe.ItemAdded:
				f.target.Set(e.Item.Key, f.render(e.Item.Value, -1))
			case observe.ItemRemoved:
				f.target.Delete(e.Item.Key)
			}
		})
	case map[string]S:
		d := observe.NewDict(m)
		for _, k := range d.Keys() {
			v, _ := d.Get(k)
			f.target.Set(k, f.render(v, -1))
		}
	}
}

func (f *dictFollower[T, S]) stop() {
	if f.items != nil {
		f.items()
		f.items = nil
	}
}
