package bind

import "testing"

func TestLockTryEnter(t *testing.T) {
	var l Lock

	if l.Active() {
		t.Fatal("zero Lock should be inactive")
	}
	if !l.TryEnter() {
		t.Fatal("expected TryEnter to succeed on an inactive lock")
	}
	if l.TryEnter() {
		t.Error("expected TryEnter to fail while active")
	}
	if !l.Active() {
		t.Error("expected lock to be active")
	}
	l.Exit()
	if l.Active() {
		t.Error("expected lock to be inactive after Exit")
	}
}

func TestLockRunSuppressesReentry(t *testing.T) {
	var l Lock
	outer, inner := 0, 0

	ran := l.Run(func() {
		outer++
		if l.Run(func() { inner++ }) {
			t.Error("nested Run should report false")
		}
	})

	if !ran || outer != 1 || inner != 0 {
		t.Errorf("expected outer=1 inner=0 ran=true, got outer=%d inner=%d ran=%v", outer, inner, ran)
	}
	if l.Active() {
		t.Error("lock should be released after Run")
	}
}

func TestLockRunReleasesOnPanic(t *testing.T) {
	var l Lock
	func() {
		defer func() { _ = recover() }()
		l.Run(func() { panic("boom") })
	}()
	if l.Active() {
		t.Error("lock should be released after a panicking Run")
	}
}
