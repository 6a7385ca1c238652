package observe

import "sync"

// Chain is the flattened view of a getter chain: a source that may be a
// plain value, an observable, or an observable whose value is itself
// observable, to any depth. The chain keeps one subscription per link and
// re-walks the links below any link that changes.
//
// A nil link or a leaf that is not a T makes the chain undefined: Lookup
// reports false and Get returns the zero value.
type Chain[T any] struct {
	obs   observers[func(T)]
	gains observers[func(T, bool)]

	mu     sync.Mutex
	links  []*link
	value  T
	ok     bool
	closed bool
}

type link struct {
	stop Unsubscribe
	// next reads the link's current value when it is an intermediate link.
	next func() any
	// leaf is set instead of next when the link is the final Readable.
	leaf func() any
}

// Resolve builds a Chain over source.
func Resolve[T any](source any) *Chain[T] {
	c := &Chain[T]{}
	c.mu.Lock()
	c.descend(0, source)
	c.mu.Unlock()
	return c
}

// descend drops every link at depth or deeper and walks node from there.
// c.mu must be held.
func (c *Chain[T]) descend(depth int, node any) {
	for _, l := range c.links[depth:] {
		l.stop()
	}
	c.links = c.links[:depth]

	for {
		if IsNil(node) {
			c.set(*new(T), false)
			return
		}
		switch n := node.(type) {
		case Dynamic:
			l := &link{next: n.Current}
			l.stop = n.Watch(c.changed(l, depth))
			c.links = append(c.links, l)
			node = n.Current()
			depth++
		case Readable[T]:
			l := &link{leaf: func() any { return n.Get() }}
			l.stop = n.Observe(func(T) { c.changed(l, depth)() })
			c.links = append(c.links, l)
			v, ok := l.leaf().(T)
			c.set(v, ok)
			return
		case T:
			c.set(n, true)
			return
		default:
			c.set(*new(T), false)
			return
		}
	}
}

func (c *Chain[T]) set(v T, ok bool) {
	c.value, c.ok = v, ok
}

// changed returns the callback for link l at depth. Callbacks from links
// that have since been replaced are ignored.
func (c *Chain[T]) changed(l *link, depth int) func() {
	return func() {
		c.mu.Lock()
		if c.closed || depth >= len(c.links) || c.links[depth] != l {
			c.mu.Unlock()
			return
		}
		prev, prevOK := c.value, c.ok
		if l.leaf != nil {
			v, ok := l.leaf().(T)
			c.set(v, ok)
		} else {
			c.descend(depth+1, l.next())
		}
		value, ok := c.value, c.ok
		c.mu.Unlock()

		if ok == prevOK && (!ok || Equal(prev, value)) {
			return
		}
		c.obs.each(func(fn func(T)) { fn(value) })
		c.gains.each(func(fn func(T, bool)) { fn(value, ok) })
	}
}

// Lookup returns the innermost value and whether it is defined.
func (c *Chain[T]) Lookup() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.ok
}

// Get returns the innermost value, or the zero value when undefined.
func (c *Chain[T]) Get() T {
	v, _ := c.Lookup()
	return v
}

// Observe registers fn for subsequent changes of the innermost value. A
// transition to undefined is delivered as the zero value.
func (c *Chain[T]) Observe(fn func(T)) Unsubscribe {
	return c.obs.add(fn)
}

// Gain registers fn for every change and calls it once immediately with the
// current value.
func (c *Chain[T]) Gain(fn func(T, bool)) Unsubscribe {
	stop := c.gains.add(fn)
	v, ok := c.Lookup()
	fn(v, ok)
	return stop
}

// Current implements Dynamic.
func (c *Chain[T]) Current() any {
	v, ok := c.Lookup()
	if !ok {
		return nil
	}
	return v
}

// Watch implements Dynamic.
func (c *Chain[T]) Watch(fn func()) Unsubscribe {
	return c.gains.add(func(T, bool) { fn() })
}

// Depth returns the number of live link subscriptions.
func (c *Chain[T]) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.links)
}

// Close unsubscribes every link and every observer. Close is idempotent.
func (c *Chain[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	links := c.links
	c.links = nil
	c.mu.Unlock()

	for _, l := range links {
		l.stop()
	}
	c.obs.clear()
	c.gains.clear()
}
