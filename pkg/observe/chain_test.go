package observe

import "testing"

func TestResolvePlainValue(t *testing.T) {
	c := Resolve[string]("hello")
	defer c.Close()

	v, ok := c.Lookup()
	if !ok || v != "hello" {
		t.Errorf("expected hello, got %q (%v)", v, ok)
	}
	if c.Depth() != 0 {
		t.Errorf("plain value should need no subscriptions, got %d", c.Depth())
	}
}

func TestResolveWrongLeafIsUndefined(t *testing.T) {
	c := Resolve[string](42)
	if _, ok := c.Lookup(); ok {
		t.Errorf("int leaf should be undefined for a string chain")
	}
}

func TestResolveNested(t *testing.T) {
	inner := NewValue("Alice")
	outer := NewValue[any](inner)

	c := Resolve[string](outer)
	defer c.Close()

	if c.Get() != "Alice" {
		t.Fatalf("expected Alice, got %q", c.Get())
	}
	if c.Depth() != 2 {
		t.Errorf("expected 2 links, got %d", c.Depth())
	}

	var seen []string
	c.Observe(func(v string) { seen = append(seen, v) })

	inner.Set("Bob")
	if c.Get() != "Bob" {
		t.Errorf("expected Bob, got %q", c.Get())
	}

	// Swapping the inner link must unsubscribe the old one.
	replacement := NewValue("Carol")
	outer.Set(replacement)
	if c.Get() != "Carol" {
		t.Errorf("expected Carol, got %q", c.Get())
	}
	if inner.Observers() != 0 {
		t.Errorf("old inner link still has %d observers", inner.Observers())
	}

	inner.Set("ignored")
	replacement.Set("Dave")

	want := []string{"Bob", "Carol", "Dave"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("expected %v, got %v", want, seen)
		}
	}
}

func TestResolveNilIntermediate(t *testing.T) {
	inner := NewValue(7)
	outer := NewValue[any](inner)

	c := Resolve[int](outer)
	defer c.Close()

	var gains []bool
	c.Gain(func(_ int, ok bool) { gains = append(gains, ok) })

	outer.Set(nil)
	if v, ok := c.Lookup(); ok || v != 0 {
		t.Errorf("nil link should make the chain undefined, got %d (%v)", v, ok)
	}

	outer.Set(inner)
	if c.Get() != 7 {
		t.Errorf("expected 7 after relink, got %d", c.Get())
	}

	want := []bool{true, false, true}
	if len(gains) != len(want) {
		t.Fatalf("expected gains %v, got %v", want, gains)
	}
	for i := range want {
		if gains[i] != want[i] {
			t.Errorf("expected gains %v, got %v", want, gains)
		}
	}
}

func TestResolveThroughMapKey(t *testing.T) {
	d := NewDict[any](map[string]any{"speaker": NewValue("Ada")})
	c := Resolve[string](KeyOf[any](d, "speaker"))
	defer c.Close()

	if c.Get() != "Ada" {
		t.Fatalf("expected Ada, got %q", c.Get())
	}

	d.Delete("speaker")
	if _, ok := c.Lookup(); ok {
		t.Errorf("deleted key should make the chain undefined")
	}
}

type readOnly struct {
	v *Value[int]
}

func (r readOnly) Get() int { return r.v.Get() }
func (r readOnly) Observe(fn func(int)) Unsubscribe { return r.v.Observe(fn) }

func TestResolveReadableLeaf(t *testing.T) {
	v := NewValue(1)
	c := Resolve[int](readOnly{v})
	defer c.Close()

	v.Set(2)
	if c.Get() != 2 {
		t.Errorf("expected 2, got %d", c.Get())
	}
}

func TestChainCloseUnsubscribesEveryLink(t *testing.T) {
	inner := NewValue("x")
	middle := NewValue[any](inner)
	outer := NewValue[any](middle)

	c := Resolve[string](outer)
	calls := 0
	c.Observe(func(string) { calls++ })

	c.Close()
	c.Close()

	for i, n := range []int{inner.Observers(), middle.Observers(), outer.Observers()} {
		if n != 0 {
			t.Errorf("link %d still has %d observers", i, n)
		}
	}
	inner.Set("y")
	if calls != 0 {
		t.Errorf("closed chain should not notify, got %d", calls)
	}
}

func TestChainIsDynamic(t *testing.T) {
	v := NewValue("a")
	c := Resolve[string](v)
	outer := Resolve[string](c)
	defer outer.Close()
	defer c.Close()

	v.Set("b")
	if outer.Get() != "b" {
		t.Errorf("expected chained chain to follow, got %q", outer.Get())
	}
}
