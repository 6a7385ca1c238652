package main

import (
	"context"
	"time"

	"github.com/vango-dev/bindsync/pkg/loop"
	"github.com/vango-dev/bindsync/pkg/observe"
	"github.com/vango-dev/bindsync/pkg/remote"
	"github.com/vango-dev/bindsync/pkg/transport"
)

func (g *globals) client() *transport.Client {
	opts := []transport.Option{transport.WithTimeout(g.cfg.Timeout())}
	if g.cfg.Client.Origin != "" {
		opts = append(opts, transport.WithOrigin(g.cfg.Client.Origin))
	}
	if g.cfg.Client.CSRFToken != "" {
		opts = append(opts, transport.WithCSRFToken(g.cfg.Client.CSRFToken))
	}
	return transport.NewClient(g.cfg.Client.Endpoint, opts...)
}

// syncing is what await needs from a remote source.
type syncing interface {
	StateValue() observe.Readable[remote.State]
	Err() error
}

// await posts start to exec and blocks until src settles in Loaded or
// Error.
func await(ctx context.Context, exec loop.Executor, src syncing, start func()) error {
	settled := make(chan struct{}, 1)
	stop := src.StateValue().Observe(func(s remote.State) {
		if s == remote.Loaded || s == remote.Error {
			select {
			case settled <- struct{}{}:
			default:
			}
		}
	})
	defer stop()

	exec.Post(start)
	select {
	case <-settled:
		return src.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startLoop runs a loop until ctx ends.
func startLoop(ctx context.Context) *loop.Loop {
	l := loop.New()
	l.Start(ctx)
	return l
}

func grace(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
