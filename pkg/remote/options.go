package remote

import (
	"context"
	"log/slog"
	"time"
)

type config struct {
	ctx     context.Context
	timeout time.Duration
	logger  *slog.Logger
	lazy    bool
}

// Option configures a remote source.
type Option func(*config)

// WithContext sets the parent context of every call. Cancelling it fails
// calls in flight; Close cancels a context derived from it.
func WithContext(ctx context.Context) Option {
	return func(c *config) {
		c.ctx = ctx
	}
}

// WithTimeout bounds every call.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithLogger sets the source logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Lazy skips the initial read; the source stays Idle until Refresh or a
// local write.
func Lazy() Option {
	return func(c *config) {
		c.lazy = true
	}
}

func newConfig(opts []Option) config {
	c := config{ctx: context.Background()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "remote")
	}
	return c
}
