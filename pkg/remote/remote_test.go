package remote

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// fakeCaller records calls and blocks each one until the test answers it.
type fakeCaller struct {
	mu      sync.Mutex
	calls   []*fakeCall
	arrived chan *fakeCall
}

type fakeCall struct {
	method string
	params map[string]any
	answer chan fakeAnswer
}

type fakeAnswer struct {
	result any
	err    error
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{arrived: make(chan *fakeCall, 32)}
}

func (f *fakeCaller) Call(ctx context.Context, method string, params, result any) error {
	c := &fakeCall{method: method, answer: make(chan fakeAnswer, 1)}
	c.params, _ = params.(map[string]any)

	f.mu.Lock()
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	f.arrived <- c

	select {
	case a := <-c.answer:
		if a.err != nil {
			return a.err
		}
		raw, err := json.Marshal(a.result)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, result)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCaller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCaller) next(t *testing.T) *fakeCall {
	t.Helper()
	select {
	case c := <-f.arrived:
		return c
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a call, none arrived")
		return nil
	}
}

func (c *fakeCall) respond(v any) {
	c.answer <- fakeAnswer{result: v}
}

func (c *fakeCall) reject(err error) {
	c.answer <- fakeAnswer{err: err}
}

const wait = 2 * time.Second

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Idle:       "idle",
		Loading:    "loading",
		Committing: "committing",
		Loaded:     "loaded",
		Error:      "error",
		State(9):   "State(9)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("expected %q, got %q", want, s.String())
		}
	}
}
