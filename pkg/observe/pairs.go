package observe

import "sync"

// Pair is one key/value entry of a mapping viewed as a list item.
type Pair[V any] struct {
	Key   string
	Value V
}

// PairList is a live, read-only list view of a mapping. It starts in key
// order; keys added later are appended, changed keys are replaced in place
// (a remove followed by an insert at the same index) and deleted keys are
// removed.
type PairList[V any] struct {
	list *List[Pair[V]]

	mu    sync.Mutex
	stop  Unsubscribe
	index map[string]int
}

// Pairs returns a PairList following m until Close is called.
func Pairs[V any](m MapSource[V]) *PairList[V] {
	snap := m.Snapshot()
	keys := sortedKeys(snap)
	items := make([]Pair[V], len(keys))
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		items[i] = Pair[V]{Key: k, Value: snap[k]}
		index[k] = i
	}

	p := &PairList[V]{list: NewList(items...), index: index}
	p.stop = m.ObserveMap(p.apply)
	return p
}

func (p *PairList[V]) apply(e MapEvent[V]) {
	p.mu.Lock()
	i, ok := p.index[e.Key]
	switch {
	case e.Deleted && ok:
		delete(p.index, e.Key)
		for k, j := range p.index {
			if j > i {
				p.index[k] = j - 1
			}
		}
		p.mu.Unlock()
		p.list.RemoveAt(i)
	case e.Deleted:
		p.mu.Unlock()
	case ok:
		p.mu.Unlock()
		p.list.RemoveAt(i)
		p.list.Insert(Pair[V]{Key: e.Key, Value: e.Value}, i)
	default:
		p.index[e.Key] = p.list.Len()
		p.mu.Unlock()
		p.list.Append(Pair[V]{Key: e.Key, Value: e.Value})
	}
}

// Len returns the number of pairs.
func (p *PairList[V]) Len() int { return p.list.Len() }

// At returns the pair at index.
func (p *PairList[V]) At(index int) Pair[V] { return p.list.At(index) }

// Items returns a copy of the pairs.
func (p *PairList[V]) Items() []Pair[V] { return p.list.Items() }

// ObserveList registers fn for structural events of the view.
func (p *PairList[V]) ObserveList(fn func(ListEvent[Pair[V]])) Unsubscribe {
	return p.list.ObserveList(fn)
}

// Close stops following the mapping. The view keeps its last contents.
func (p *PairList[V]) Close() {
	p.mu.Lock()
	stop := p.stop
	p.stop = nil
	p.mu.Unlock()
	if stop != nil {
		stop()
	}
}
