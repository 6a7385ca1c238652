package bind

import (
	"errors"
	"strconv"
	"testing"

	coded "github.com/vango-dev/bindsync/internal/errors"
	"github.com/vango-dev/bindsync/pkg/observe"
)

// counted is an accessor whose setter counts calls.
type counted[T any] struct {
	*observe.Value[T]
	sets int
}

func newCounted[T any](v T) *counted[T] {
	return &counted[T]{Value: observe.NewValue(v)}
}

func (c *counted[T]) Set(v T) {
	c.sets++
	c.Value.Set(v)
}

// writeOnly accepts values but cannot be observed.
type writeOnly struct {
	got []string
}

func (w *writeOnly) Set(v string) { w.got = append(w.got, v) }

// opaque offers no bindable capability.
type opaque struct{ name string }

func TestBindNoBounce(t *testing.T) {
	reg := NewRegistry()
	a := newCounted(0)
	b := newCounted(0)

	if _, err := Bind[int, int](a, b, WithRegistry(reg)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	a.sets, b.sets = 0, 0

	a.Set(5)

	if b.Get() != 5 {
		t.Errorf("expected B to be 5, got %d", b.Get())
	}
	if a.sets != 1 {
		t.Errorf("expected A's setter to be called once, got %d", a.sets)
	}
	if b.sets != 1 {
		t.Errorf("expected B's setter to be called once, got %d", b.sets)
	}

	b.Set(7)
	if a.Get() != 7 {
		t.Errorf("expected A to follow B, got %d", a.Get())
	}
	if a.sets != 2 || b.sets != 2 {
		t.Errorf("expected 2 sets each, got a=%d b=%d", a.sets, b.sets)
	}

	bnd, ok := reg.Lookup(a)
	if !ok || bnd.Lock().Active() {
		t.Errorf("expected a bound target with a released lock")
	}
}

func TestBindInitialSync(t *testing.T) {
	reg := NewRegistry()
	target := observe.NewValue("")
	source := observe.NewValue("Alice")

	MustBind[string, string](target, source, WithRegistry(reg))

	if target.Get() != "Alice" {
		t.Errorf("expected target to take the source value, got %q", target.Get())
	}
}

func TestBindTransform(t *testing.T) {
	reg := NewRegistry()
	label := observe.NewValue("")
	count := observe.NewValue(3)

	_, err := Bind[string, int](label, count,
		WithRegistry(reg),
		WithTransform(strconv.Itoa, func(s string) int {
			n, _ := strconv.Atoi(s)
			return n
		}))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}

	if label.Get() != "3" {
		t.Errorf("expected \"3\", got %q", label.Get())
	}
	label.Set("12")
	if count.Get() != 12 {
		t.Errorf("expected 12, got %d", count.Get())
	}
}

func TestBindOneWayWriteOnlyTarget(t *testing.T) {
	reg := NewRegistry()
	w := &writeOnly{}
	name := observe.NewValue("a")

	if _, err := Bind[string, string](w, name, WithRegistry(reg)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	name.Set("b")

	if len(w.got) != 2 || w.got[0] != "a" || w.got[1] != "b" {
		t.Errorf("expected [a b], got %v", w.got)
	}
}

func TestBindPlainValueSource(t *testing.T) {
	reg := NewRegistry()
	target := observe.NewValue(0)

	if _, err := Bind[int, int](target, 42, WithRegistry(reg)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if target.Get() != 42 {
		t.Errorf("expected 42, got %d", target.Get())
	}
}

func TestBindDynamicSource(t *testing.T) {
	reg := NewRegistry()
	inner := observe.NewValue("first")
	outer := observe.NewValue[any](inner)
	target := observe.NewValue("")

	if _, err := Bind[string, string](target, outer, WithRegistry(reg)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if target.Get() != "first" {
		t.Fatalf("expected first, got %q", target.Get())
	}

	outer.Set(observe.NewValue("second"))
	if target.Get() != "second" {
		t.Errorf("expected second after swapping the inner link, got %q", target.Get())
	}

	reg.Detach(target)
	if outer.Observers() != 0 {
		t.Errorf("detaching should close the getter chain, %d observers left", outer.Observers())
	}
}

func TestBindNilSourceDetaches(t *testing.T) {
	reg := NewRegistry()
	target := observe.NewValue(0)
	source := observe.NewValue(1)

	MustBind[int, int](target, source, WithRegistry(reg))
	if !reg.Bound(target) {
		t.Fatal("expected target to be bound")
	}

	for i := 0; i < 2; i++ {
		out, err := Bind[int, int](target, nil, WithRegistry(reg))
		if err != nil {
			t.Fatalf("unbind %d: %v", i, err)
		}
		if out != target {
			t.Errorf("unbind should return the target")
		}
		if reg.Bound(target) {
			t.Errorf("target still bound after unbind %d", i)
		}
	}

	source.Set(2)
	if target.Get() != 1 {
		t.Errorf("detached target should not follow, got %d", target.Get())
	}
	if source.Observers() != 0 || target.Observers() != 0 {
		t.Errorf("expected no observers left, got source=%d target=%d", source.Observers(), target.Observers())
	}
}

func TestBindReplacesExistingBinding(t *testing.T) {
	reg := NewRegistry()
	target := observe.NewValue("")
	first := observe.NewValue("one")
	second := observe.NewValue("two")

	MustBind[string, string](target, first, WithRegistry(reg))
	MustBind[string, string](target, second, WithRegistry(reg))

	first.Set("ignored")
	if target.Get() != "two" {
		t.Errorf("old binding should be torn down, got %q", target.Get())
	}
	if first.Observers() != 0 {
		t.Errorf("old source still observed by %d observers", first.Observers())
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 binding, got %d", reg.Len())
	}
}

func TestBindUnrecognizedTarget(t *testing.T) {
	reg := NewRegistry()
	target := &opaque{name: "label"}

	_, err := Bind[string, string](target, observe.NewValue("x"), WithRegistry(reg))
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if coded.Code(err) != "B001" {
		t.Errorf("expected code B001, got %q", coded.Code(err))
	}
	if reg.Bound(target) {
		t.Errorf("failed bind must leave target detached")
	}
}

func TestBindUnrecognizedTargetDetachesFirst(t *testing.T) {
	reg := NewRegistry()
	target := observe.NewValue(0)
	source := observe.NewValue(1)
	MustBind[int, int](target, source, WithRegistry(reg))

	// As a string target the value has no capability.
	_, err := Bind[string, string](target, observe.NewValue("x"), WithRegistry(reg))
	if !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	if reg.Bound(target) || source.Observers() != 0 {
		t.Errorf("previous binding should be detached before dispatch fails")
	}
}

func TestBindTypeMismatch(t *testing.T) {
	reg := NewRegistry()
	_, err := Bind[string, int](observe.NewValue(""), observe.NewValue(1), WithRegistry(reg))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}

	_, err = Bind[string, string](observe.NewValue(""), observe.NewValue(""),
		WithRegistry(reg), WithTransform(strconv.Itoa, nil))
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for mistyped transform, got %v", err)
	}
}

func TestMustBindPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotImplemented) {
			t.Errorf("expected panic with ErrNotImplemented, got %v", r)
		}
	}()
	MustBind[int, int](&opaque{}, observe.NewValue(1), WithRegistry(NewRegistry()))
}

func TestBindNilTargetRenders(t *testing.T) {
	out, err := Bind[string, int](nil, observe.NewValue(7),
		WithTemplate(func(n int, _ int) string { return "#" + strconv.Itoa(n) }))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if out != "#7" {
		t.Errorf("expected \"#7\", got %v", out)
	}

	_, err = Bind[string, int](nil, 7)
	if !errors.Is(err, ErrNoTemplate) {
		t.Errorf("expected ErrNoTemplate, got %v", err)
	}
}

func TestBindNilTargetRendersList(t *testing.T) {
	out, err := Bind[string, int](nil, observe.NewList(1, 2), WithTransform(strconv.Itoa, nil))
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	l, ok := out.(*observe.List[string])
	if !ok {
		t.Fatalf("expected *observe.List[string], got %T", out)
	}
	if l.Len() != 2 || l.At(1) != "2" {
		t.Errorf("unexpected rendering %v", l.Items())
	}
}

func TestRender(t *testing.T) {
	got, err := Render[string, string](observe.NewValue("x"))
	if err != nil || got != "x" {
		t.Errorf("expected x, got %q (%v)", got, err)
	}
}

func TestUnbindDefaultRegistry(t *testing.T) {
	target := observe.NewValue(0)
	MustBind[int, int](target, observe.NewValue(1))
	defer DefaultRegistry().Detach(target)

	if !Unbind(target) {
		t.Errorf("expected Unbind to remove the binding")
	}
	if Unbind(target) {
		t.Errorf("second Unbind should report nothing removed")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want Kind
	}{
		{"value", observe.NewValue(""), KindAccessor},
		{"write only", &writeOnly{}, KindAccessor},
		{"list", observe.NewList[string](), KindSequence},
		{"dict", observe.NewDict[string](nil), KindMapping},
		{"opaque", &opaque{}, KindInvalid},
		{"wrong element type", observe.NewValue(1), KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf[string](tt.v); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}
