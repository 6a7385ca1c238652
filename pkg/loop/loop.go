// Package loop provides the executors that remote sources post their work
// to. All engine state is mutated from one executor, so observers and
// bindings never run concurrently with each other; network calls run on
// their own goroutines and post their completions back.
package loop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Executor runs posted functions one at a time, in posting order. Post is
// safe to call from any goroutine and never blocks on the function running.
type Executor interface {
	Post(fn func())
}

// ErrStopped is returned by Call when the loop has stopped.
var ErrStopped = errors.New("loop: stopped")

// Loop is a single-goroutine event loop. A function posted while another is
// running executes after it, on a later tick.
type Loop struct {
	logger *slog.Logger

	mu    sync.Mutex
	queue []func()

	wake     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	executed atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used for recovered panics.
func WithLogger(l *slog.Logger) Option {
	return func(lp *Loop) {
		lp.logger = l
	}
}

// New creates a loop. Nothing runs until Run or Start is called; functions
// posted before then are queued.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default().With("component", "loop")
	}
	return l
}

// Post queues fn. Functions posted after Stop are discarded.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
		l.logger.Debug("loop stopped, discarding callback")
		return
	default:
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run processes posted functions until ctx is done or Stop is called. It
// returns ctx.Err() when the context ended the loop and nil after Stop.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New("loop: already running")
	}
	defer l.running.Store(false)

	for {
		if fn := l.pop(); fn != nil {
			l.execute(fn)
			continue
		}
		select {
		case <-l.wake:
		case <-l.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start(ctx context.Context) {
	go func() {
		if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Warn("loop exited", "error", err)
		}
	}()
}

// Stop ends Run and discards queued functions. It is idempotent.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
		l.mu.Lock()
		l.queue = nil
		l.mu.Unlock()
	})
}

// Done is closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Call posts fn and waits for it to finish.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs work on a new goroutine and posts the continuation it returns, if
// any, back to the loop.
func (l *Loop) Go(work func() func()) {
	GoOn(l, work)
}

// Executed returns the number of functions the loop has run.
func (l *Loop) Executed() uint64 {
	return l.executed.Load()
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop callback panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	l.executed.Add(1)
	fn()
}

// GoOn runs work on a new goroutine and posts the continuation it returns
// to exec.
func GoOn(exec Executor, work func() func()) {
	go func() {
		if next := work(); next != nil {
			exec.Post(next)
		}
	}()
}
