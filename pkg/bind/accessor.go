package bind

import "github.com/vango-dev/bindsync/pkg/observe"

// bindAccessor wires a value binding. The forward direction needs a
// readable source and a writable target; the backward direction needs a
// readable target and a writable source. Both directions share one lock.
func bindAccessor[T, S any](target, source any, c conv[T, S]) (*Binding, error) {
	b := newBinding(KindAccessor)

	tr, targetReadable := target.(observe.Readable[T])
	tw, targetWritable := target.(observe.Writable[T])
	sw, sourceWritable := source.(observe.Writable[S])

	var sr observe.Readable[S]
	switch src := source.(type) {
	case observe.Readable[S]:
		sr = src
	case observe.Dynamic:
		chain := observe.Resolve[S](src)
		b.onDetach(chain.Close)
		sr = chain
	case S:
		if !targetWritable {
			return nil, misuse("B001", ErrNotImplemented, target, "A plain source value needs a writable target")
		}
		if c.toTarget == nil {
			return nil, misuse("B002", ErrTypeMismatch, source, "Pass WithTransform")
		}
		tw.Set(c.toTarget(src))
		return b, nil
	}

	forward := sr != nil && targetWritable && c.toTarget != nil
	backward := targetReadable && sourceWritable && c.toSource != nil

	if !forward && !backward {
		b.detach()
		if (sr != nil && targetWritable) || (targetReadable && sourceWritable) {
			return nil, misuse("B002", ErrTypeMismatch, source, "Pass WithTransform")
		}
		return nil, misuse("B001", ErrNotImplemented, target, "Neither side can be read while the other is written")
	}

	lock := b.lock
	if forward {
		b.onDetach(sr.Observe(func(v S) {
			lock.Run(func() { tw.Set(c.toTarget(v)) })
		}))
	}
	if backward {
		b.onDetach(tr.Observe(func(v T) {
			lock.Run(func() { sw.Set(c.toSource(v)) })
		}))
	}

	if forward {
		lock.Run(func() { tw.Set(c.toTarget(sr.Get())) })
	} else {
		lock.Run(func() { sw.Set(c.toSource(tr.Get())) })
	}
	return b, nil
}
