package observe

import (
	"sync"
	"testing"
)

func TestValueBasic(t *testing.T) {
	count := NewValue(0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.Update(func(n int) int { return n * 2 })
	if count.Peek() != 10 {
		t.Errorf("expected value 10, got %d", count.Peek())
	}
}

func TestValueObserveNoReplay(t *testing.T) {
	name := NewValue("initial")

	var got []string
	name.Observe(func(v string) { got = append(got, v) })

	if len(got) != 0 {
		t.Fatalf("Observe should not replay history, got %v", got)
	}

	name.Set("Alice")
	name.Set("Alice")
	name.Set("Bob")

	if len(got) != 2 || got[0] != "Alice" || got[1] != "Bob" {
		t.Errorf("expected [Alice Bob], got %v", got)
	}
}

func TestValueUnsubscribe(t *testing.T) {
	v := NewValue(0)
	calls := 0
	stop := v.Observe(func(int) { calls++ })

	v.Set(1)
	stop()
	stop()
	v.Set(2)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if v.Observers() != 0 {
		t.Errorf("expected 0 observers, got %d", v.Observers())
	}

	// Removing the last observer must not dispose the value.
	v.Set(3)
	if v.Get() != 3 {
		t.Errorf("expected value 3 after last unsubscribe, got %d", v.Get())
	}
	v.Observe(func(int) { calls++ })
	v.Set(4)
	if calls != 2 {
		t.Errorf("expected value to keep notifying new observers, got %d calls", calls)
	}
}

func TestValueUnsubscribeDuringNotify(t *testing.T) {
	v := NewValue(0)
	var second int
	var stopSecond Unsubscribe

	v.Observe(func(int) { stopSecond() })
	stopSecond = v.Observe(func(int) { second++ })

	v.Set(1)
	if second != 0 {
		t.Errorf("observer removed mid-notification should not run, ran %d times", second)
	}
}

func TestValueDispose(t *testing.T) {
	v := NewValue("a")
	calls := 0
	v.Observe(func(string) { calls++ })
	v.Watch(func() { calls++ })

	v.Dispose()
	v.Set("b")

	if calls != 0 {
		t.Errorf("expected no notifications after Dispose, got %d", calls)
	}
	if v.Get() != "b" {
		t.Errorf("expected value to stay writable, got %q", v.Get())
	}
}

func TestValueWithEquals(t *testing.T) {
	type point struct{ X, Y int }
	v := NewValue(point{1, 2}).WithEquals(func(a, b point) bool { return a.X == b.X })

	calls := 0
	v.Observe(func(point) { calls++ })

	v.Set(point{1, 99})
	if calls != 0 {
		t.Errorf("custom equals should suppress notification, got %d", calls)
	}
	v.Set(point{2, 0})
	if calls != 1 {
		t.Errorf("expected 1 notification, got %d", calls)
	}
}

func TestValueConcurrentSet(t *testing.T) {
	v := NewValue(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v.Set(n)
			_ = v.Get()
		}(i)
	}
	wg.Wait()
}

func TestEqual(t *testing.T) {
	x, y := 1, 1
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same ints", 1, 1, true},
		{"different ints", 1, 2, false},
		{"different types", 1, "1", false},
		{"int and float", 1, 1.0, false},
		{"both nil", nil, nil, true},
		{"one nil", nil, 0, false},
		{"slices", []int{1, 2}, []int{1, 2}, true},
		{"maps", map[string]any{"a": 1}, map[string]any{"a": 1}, true},
		{"distinct pointers", &x, &y, false},
		{"same pointer", &x, &x, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsNil(t *testing.T) {
	var p *int
	var m map[string]int
	var s []int
	var f func()

	for _, v := range []any{nil, p, m, s, f} {
		if !IsNil(v) {
			t.Errorf("expected IsNil(%#v) to be true", v)
		}
	}
	for _, v := range []any{0, "", false, []int{}, map[string]int{}} {
		if IsNil(v) {
			t.Errorf("expected IsNil(%#v) to be false", v)
		}
	}
}
