package remote

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	coded "github.com/vango-dev/bindsync/internal/errors"
	"github.com/vango-dev/bindsync/pkg/bind"
	"github.com/vango-dev/bindsync/pkg/loop"
	"github.com/vango-dev/bindsync/pkg/observe"
)

func TestValueInitialRead(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()

	v := NewValue(exec, fc, "user.getName", map[string]any{"id": 1}, "")
	if v.State() != Loading {
		t.Errorf("expected loading, got %v", v.State())
	}

	c := fc.next(t)
	if c.method != "user.getName" {
		t.Errorf("expected user.getName, got %q", c.method)
	}
	if diff := cmp.Diff(map[string]any{"id": 1}, c.params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	c.respond("Alice")
	if !exec.Next(wait) {
		t.Fatalf("expected completion to be posted")
	}
	if v.Get() != "Alice" {
		t.Errorf("expected Alice, got %q", v.Get())
	}
	if v.State() != Loaded {
		t.Errorf("expected loaded, got %v", v.State())
	}
}

func TestValueLazy(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()

	v := NewValue(exec, fc, "m", nil, 3, Lazy())
	if v.State() != Idle || v.Get() != 3 {
		t.Errorf("expected idle with default 3, got %v %d", v.State(), v.Get())
	}
	if fc.count() != 0 {
		t.Errorf("lazy value should not call, got %d calls", fc.count())
	}
}

func TestValueCommitBatchesPerTick(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "user.setName", map[string]any{"id": 1}, "", Lazy())

	v.Set("a")
	v.Set("b")
	v.Set("c")

	if v.Get() != "c" {
		t.Errorf("local value should update immediately, got %q", v.Get())
	}
	if v.State() != Committing {
		t.Errorf("expected committing, got %v", v.State())
	}
	if exec.Pending() != 1 {
		t.Fatalf("expected one scheduled flush, got %d", exec.Pending())
	}

	exec.RunOne()
	c := fc.next(t)
	if diff := cmp.Diff(map[string]any{"id": 1, "value": "c"}, c.params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	c.respond("C")
	exec.Next(wait)

	if v.Get() != "C" {
		t.Errorf("expected server echo C, got %q", v.Get())
	}
	if v.State() != Loaded {
		t.Errorf("expected loaded, got %v", v.State())
	}
	if fc.count() != 1 {
		t.Errorf("expected 1 call, got %d", fc.count())
	}
	if exec.Pending() != 0 {
		t.Errorf("server echo should not schedule a commit, got %d pending", exec.Pending())
	}
}

func TestValueSingleCommitInFlight(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "", Lazy())

	v.Set("a")
	exec.RunOne()
	first := fc.next(t)

	v.Set("b")
	if exec.Pending() != 0 {
		t.Errorf("no flush should be scheduled while committing, got %d", exec.Pending())
	}

	first.respond("a")
	exec.Next(wait)
	if v.Get() != "b" {
		t.Errorf("newer local edit should win, got %q", v.Get())
	}
	if v.State() != Committing {
		t.Errorf("expected committing, got %v", v.State())
	}

	exec.Next(wait)
	second := fc.next(t)
	if second.params["value"] != "b" {
		t.Errorf("expected follow-up commit of b, got %v", second.params["value"])
	}
	second.respond("b")
	exec.Next(wait)

	if v.State() != Loaded {
		t.Errorf("expected loaded, got %v", v.State())
	}
}

func TestValueStaleResponseDropped(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "", Lazy())

	v.Refresh()
	older := fc.next(t)
	v.Refresh()
	newer := fc.next(t)

	newer.respond("new")
	exec.Next(wait)
	older.respond("old")
	exec.Next(wait)

	if v.Get() != "new" {
		t.Errorf("out-of-order response should be dropped, got %q", v.Get())
	}
}

func TestValueLocalEditWinsOverRead(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "")
	read := fc.next(t)

	v.Set("local")
	exec.Next(wait)
	commit := fc.next(t)

	read.respond("server")
	exec.Next(wait)
	if v.Get() != "local" {
		t.Errorf("expected local edit to survive the read, got %q", v.Get())
	}

	commit.respond("LOCAL")
	exec.Next(wait)
	if v.Get() != "LOCAL" {
		t.Errorf("expected canonical LOCAL, got %q", v.Get())
	}
}

func TestValueRefreshDeferredDuringCommit(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, 0, Lazy())

	v.Set(1)
	exec.RunOne()
	commit := fc.next(t)

	v.Refresh()
	if fc.count() != 1 {
		t.Fatalf("refresh should wait for the commit, got %d calls", fc.count())
	}

	commit.respond(1)
	exec.Next(wait)

	read := fc.next(t)
	read.respond(2)
	exec.Next(wait)
	if v.Get() != 2 {
		t.Errorf("expected deferred refresh to load 2, got %d", v.Get())
	}
}

func TestValueErrorState(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "keep")

	boom := errors.New("boom")
	fc.next(t).reject(boom)
	exec.Next(wait)

	if v.State() != Error {
		t.Errorf("expected error state, got %v", v.State())
	}
	if coded.Code(v.Err()) != "R001" {
		t.Errorf("expected R001, got %q", coded.Code(v.Err()))
	}
	if !errors.Is(v.Err(), boom) {
		t.Errorf("expected error to wrap boom, got %v", v.Err())
	}
	if v.Get() != "keep" {
		t.Errorf("failed read should keep the local value, got %q", v.Get())
	}

	v.Refresh()
	fc.next(t).respond("ok")
	exec.Next(wait)
	if v.Err() != nil {
		t.Errorf("expected error cleared, got %v", v.Err())
	}
}

func TestValueCommitErrorCode(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "", Lazy())

	v.Set("x")
	exec.RunOne()
	fc.next(t).reject(errors.New("denied"))
	exec.Next(wait)

	if coded.Code(v.Err()) != "R002" {
		t.Errorf("expected R002, got %q", coded.Code(v.Err()))
	}
	if v.Get() != "x" {
		t.Errorf("failed commit should keep the local value, got %q", v.Get())
	}
}

func TestValueUndecodableResult(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, 0)

	fc.next(t).respond("not a number")
	exec.Next(wait)

	if coded.Code(v.Err()) != "R003" {
		t.Errorf("expected R003, got %q", coded.Code(v.Err()))
	}
}

func TestValueNullResultKeepsLocal(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "", Lazy())

	v.Set("mine")
	exec.RunOne()
	fc.next(t).respond(nil)
	exec.Next(wait)

	if v.Get() != "mine" || v.State() != Loaded {
		t.Errorf("expected mine/loaded, got %q/%v", v.Get(), v.State())
	}
}

func TestValuePush(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "", Lazy())

	if err := v.Push(json.RawMessage(`"pushed"`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exec.Flush()
	if v.Get() != "pushed" {
		t.Errorf("expected pushed, got %q", v.Get())
	}
	if fc.count() != 0 {
		t.Errorf("push should not commit, got %d calls", fc.count())
	}

	if err := v.Push(json.RawMessage(`{`)); err == nil {
		t.Errorf("expected decode error")
	}
}

func TestValuePushIgnoredWhileCommitting(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "", Lazy())

	v.Set("mine")
	v.Push(json.RawMessage(`"theirs"`))
	exec.RunOne()
	exec.RunOne()

	if v.Get() != "mine" {
		t.Errorf("push should not override a pending edit, got %q", v.Get())
	}
	fc.next(t)
}

func TestValueClose(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	v := NewValue(exec, fc, "m", nil, "def")
	fc.next(t)

	v.Close()
	exec.Next(wait)

	if v.Get() != "def" {
		t.Errorf("expected def, got %q", v.Get())
	}
	if v.Err() != nil {
		t.Errorf("cancelled call after Close should not record an error, got %v", v.Err())
	}

	v.Set("local")
	if exec.Pending() != 0 {
		t.Errorf("closed value should not schedule commits")
	}
}

func TestValueBoundToAccessor(t *testing.T) {
	exec := loop.NewManual()
	fc := newFakeCaller()
	reg := bind.NewRegistry()

	remote := NewValue(exec, fc, "user.setName", map[string]any{"id": 1}, "")
	fc.next(t).respond("Alice")
	exec.Next(wait)

	name := observe.NewValue("")
	if _, err := bind.Bind[string, string](name, remote, bind.WithRegistry(reg)); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if name.Get() != "Alice" {
		t.Fatalf("expected Alice after bind, got %q", name.Get())
	}

	name.Set("bob")
	if exec.Pending() != 1 {
		t.Fatalf("expected a scheduled commit, got %d", exec.Pending())
	}
	exec.RunOne()
	commit := fc.next(t)
	if diff := cmp.Diff(map[string]any{"id": 1, "value": "bob"}, commit.params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	commit.respond("Bob")
	exec.Next(wait)

	if name.Get() != "Bob" {
		t.Errorf("expected canonical Bob on the bound value, got %q", name.Get())
	}
	if exec.Pending() != 0 || fc.count() != 2 {
		t.Errorf("echo should not commit again: %d pending, %d calls", exec.Pending(), fc.count())
	}
}
