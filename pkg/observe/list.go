package observe

import (
	"fmt"
	"sync"
)

// ListOp identifies the structural change carried by a ListEvent.
type ListOp uint8

const (
	// ItemAdded: Item was inserted at Index.
	ItemAdded ListOp = iota
	// ItemRemoved: Item was removed from Index.
	ItemRemoved
	// ItemMoved: Item moved from From to To.
	ItemMoved
)

// String returns the event name.
func (op ListOp) String() string {
	switch op {
	case ItemAdded:
		return "itemAdded"
	case ItemRemoved:
		return "itemRemoved"
	case ItemMoved:
		return "itemMoved"
	default:
		return fmt.Sprintf("ListOp(%d)", uint8(op))
	}
}

// ListEvent describes one structural change to a list. For ItemAdded and
// ItemRemoved, Index is the affected position. For ItemMoved, From and To are
// the old and new positions and Index equals To.
type ListEvent[T any] struct {
	Op    ListOp
	Index int
	From  int
	To    int
	Item  T
}

// ListSink is the mutating half of a list.
type ListSink[T any] interface {
	Insert(item T, index int)
	RemoveAt(index int)
	Move(from, to int)
	Clear()
}

// ListSource is the observable, readable half of a list.
type ListSource[T any] interface {
	Len() int
	At(index int) T
	Items() []T
	ObserveList(fn func(ListEvent[T])) Unsubscribe
}

// Sequence is a full observable list.
type Sequence[T any] interface {
	ListSink[T]
	ListSource[T]
}

// List is the concrete Sequence. Every structural method fires exactly one
// event. Index arguments must be in range; violating that is a programming
// error and panics like a slice index would.
type List[T any] struct {
	obs observers[func(ListEvent[T])]

	mu    sync.RWMutex
	items []T
}

// NewList creates a list holding items.
func NewList[T any](items ...T) *List[T] {
	l := &List[T]{}
	if len(items) > 0 {
		l.items = append([]T(nil), items...)
	}
	return l
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// At returns the item at index.
func (l *List[T]) At(index int) T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	checkIndex(index, len(l.items))
	return l.items[index]
}

// Items returns a copy of the current items.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]T(nil), l.items...)
}

// IndexFunc returns the index of the first item satisfying pred, or -1.
func (l *List[T]) IndexFunc(pred func(T) bool) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i, item := range l.items {
		if pred(item) {
			return i
		}
	}
	return -1
}

// Insert places item at index, shifting later items right. index may equal
// Len to append.
func (l *List[T]) Insert(item T, index int) {
	l.mu.Lock()
	checkIndex(index, len(l.items)+1)
	l.items = append(l.items, item)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = item
	l.mu.Unlock()

	l.emit(ListEvent[T]{Op: ItemAdded, Index: index, From: index, To: index, Item: item})
}

// Append inserts item at the end.
func (l *List[T]) Append(item T) {
	l.mu.Lock()
	index := len(l.items)
	l.items = append(l.items, item)
	l.mu.Unlock()

	l.emit(ListEvent[T]{Op: ItemAdded, Index: index, From: index, To: index, Item: item})
}

// RemoveAt removes the item at index.
func (l *List[T]) RemoveAt(index int) {
	l.mu.Lock()
	checkIndex(index, len(l.items))
	item := l.items[index]
	l.items = l.removed(index)
	l.mu.Unlock()

	l.emit(ListEvent[T]{Op: ItemRemoved, Index: index, From: index, To: index, Item: item})
}

// Move relocates the item at from so that it ends up at to. Moving an item
// onto its own position does nothing and fires no event.
func (l *List[T]) Move(from, to int) {
	l.mu.Lock()
	checkIndex(from, len(l.items))
	checkIndex(to, len(l.items))
	if from == to {
		l.mu.Unlock()
		return
	}
	item := l.items[from]
	if from < to {
		copy(l.items[from:to], l.items[from+1:to+1])
	} else {
		copy(l.items[to+1:from+1], l.items[to:from])
	}
	l.items[to] = item
	l.mu.Unlock()

	l.emit(ListEvent[T]{Op: ItemMoved, Index: to, From: from, To: to, Item: item})
}

// Clear removes every item, highest index first, firing one ItemRemoved per
// item. Observers reading Len during the callbacks see a consistent length.
func (l *List[T]) Clear() {
	for {
		l.mu.Lock()
		n := len(l.items)
		if n == 0 {
			l.mu.Unlock()
			return
		}
		index := n - 1
		item := l.items[index]
		var zero T
		l.items[index] = zero
		l.items = l.items[:index]
		l.mu.Unlock()

		l.emit(ListEvent[T]{Op: ItemRemoved, Index: index, From: index, To: index, Item: item})
	}
}

// ObserveList registers fn for subsequent structural events.
func (l *List[T]) ObserveList(fn func(ListEvent[T])) Unsubscribe {
	return l.obs.add(fn)
}

// Observers returns the number of registered observers.
func (l *List[T]) Observers() int {
	return l.obs.len()
}

// Dispose removes every observer.
func (l *List[T]) Dispose() {
	l.obs.clear()
}

func (l *List[T]) removed(index int) []T {
	copy(l.items[index:], l.items[index+1:])
	var zero T
	l.items[len(l.items)-1] = zero
	return l.items[:len(l.items)-1]
}

func (l *List[T]) emit(e ListEvent[T]) {
	l.obs.each(func(fn func(ListEvent[T])) {
		fn(e)
	})
}

func checkIndex(index, n int) {
	if index < 0 || index >= n {
		panic(fmt.Sprintf("observe: index %d out of range [0:%d]", index, n))
	}
}
