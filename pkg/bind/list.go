package bind

import "github.com/vango-dev/bindsync/pkg/observe"

// bindList keeps target in lockstep with a source list. The source may be a
// list, a plain slice, or any observable yielding a list; when the list
// behind an observable is replaced, the target is cleared and rebuilt.
func bindList[T, S any](target observe.ListSink[T], source any, c conv[T, S]) (*Binding, error) {
	render := c.render()
	if render == nil {
		return nil, misuse("B003", ErrNoTemplate, source, "Pass WithTemplate")
	}

	b := newBinding(KindSequence)
	follower := &listFollower[T, S]{target: target, render: render}
	b.onDetach(follower.stop)

	switch src := source.(type) {
	case observe.ListSource[S]:
		follower.follow(src, true)
	case []S:
		follower.follow(observe.NewList(src...), true)
	case observe.Dynamic:
		chain := observe.Resolve[observe.ListSource[S]](src)
		b.onDetach(chain.Close)
		b.onDetach(chain.Gain(follower.follow))
	default:
		return nil, misuse("B002", ErrTypeMismatch, source, "A list target needs an observe.ListSource source")
	}
	return b, nil
}

type listFollower[T, S any] struct {
	target observe.ListSink[T]
	render func(S, int) T
	items  observe.Unsubscribe
}

// follow rebuilds the target from src and subscribes to its events.
func (f *listFollower[T, S]) follow(src observe.ListSource[S], ok bool) {
	f.stop()
	f.target.Clear()
	if !ok || src == nil {
		return
	}

	for i, item := range src.Items() {
		f.target.Insert(f.render(item, i), i)
	}
	f.items = src.ObserveList(func(e observe.ListEvent[S]) {
		switch e.Op {
		case observe.ItemAdded:
			f.target.Insert(f.render(e.Item, e.Index), e.Index)
		case observe.ItemRemoved:
			f.target.RemoveAt(e.Index)
		case observe.ItemMoved:
			f.target.Move(e.From, e.To)
		}
	})
}

func (f *listFollower[T, S]) stop() {
	if f.items != nil {
		f.items()
		f.items = nil
	}
}
