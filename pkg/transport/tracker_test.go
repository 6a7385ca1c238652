package transport

import (
	"sync"
	"testing"
)

func TestTrackerAcquireRelease(t *testing.T) {
	tr := NewTracker()

	var busy []bool
	tr.Busy().Observe(func(b bool) { busy = append(busy, b) })

	r1 := tr.Acquire()
	r2 := tr.Acquire()
	if tr.Active() != 2 || tr.Count().Get() != 2 {
		t.Errorf("expected 2 active, got %d", tr.Active())
	}

	r1()
	r1()
	if tr.Active() != 1 {
		t.Errorf("double release should count once, got %d active", tr.Active())
	}
	r2()

	if tr.Active() != 0 {
		t.Errorf("expected 0 active, got %d", tr.Active())
	}
	if len(busy) != 2 || !busy[0] || busy[1] {
		t.Errorf("expected busy transitions [true false], got %v", busy)
	}
}

func TestTrackerConcurrentAcquireRelease(t *testing.T) {
	tr := NewTracker()
	held := tr.Acquire()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				release := tr.Acquire()
				release()
			}
		}()
	}
	wg.Wait()

	if tr.Count().Get() != 1 || !tr.Busy().Get() {
		t.Errorf("expected 1 busy while a request is held, got %d (busy %v)", tr.Count().Get(), tr.Busy().Get())
	}

	held()
	if tr.Count().Get() != 0 || tr.Busy().Get() {
		t.Errorf("expected 0 idle, got %d (busy %v)", tr.Count().Get(), tr.Busy().Get())
	}
}
