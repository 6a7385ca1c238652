package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	coded "github.com/vango-dev/bindsync/internal/errors"
	"github.com/vango-dev/bindsync/pkg/loop"
	"github.com/vango-dev/bindsync/pkg/observe"
)

// request describes one issued call.
type request struct {
	token    uint64
	issuedAt uint64
	commit   bool
}

// reply is the outcome of a request, delivered on the executor.
type reply struct {
	request
	result json.RawMessage
	err    error
}

// core holds what Value and Object share: the call plumbing, the state
// machine and the error slot.
type core struct {
	exec   loop.Executor
	caller Caller
	method string
	params map[string]any
	cfg    config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	state *observe.Value[State]

	errMu sync.Mutex
	err   error
}

func (c *core) init(exec loop.Executor, caller Caller, method string, params map[string]any, opts []Option) {
	c.cfg = newConfig(opts)
	c.ctx, c.cancel = context.WithCancel(c.cfg.ctx)
	c.exec = exec
	c.caller = caller
	c.method = method
	c.params = make(map[string]any, len(params))
	for k, v := range params {
		c.params[k] = v
	}
	c.logger = c.cfg.logger.With("method", method)
	c.state = observe.NewValue(Idle)
}

// State returns the current synchronization state.
func (c *core) State() State {
	return c.state.Get()
}

// StateValue is the observable synchronization state.
func (c *core) StateValue() observe.Readable[State] {
	return c.state
}

// Err returns the error of the last failed call, or nil once a later call
// succeeds.
func (c *core) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// StaticParams returns a copy of the params sent with every call.
func (c *core) StaticParams() map[string]any {
	return c.withStatic(nil)
}

// Method returns the RPC method name.
func (c *core) Method() string {
	return c.method
}

func (c *core) setErr(err error) {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}

func (c *core) fail(req request, err error) {
	code := "R001"
	if req.commit {
		code = "R002"
	}
	c.setErr(coded.New(code).WithOp(c.method).Wrap(err))
	c.state.Set(Error)
	c.logger.Warn("remote call failed", "commit", req.commit, "token", req.token, "error", err)
}

func (c *core) failDecode(err error) {
	c.setErr(coded.New("R003").WithOp(c.method).Wrap(err))
	c.state.Set(Error)
	c.logger.Warn("remote result not decodable", "error", err)
}

// withStatic returns a copy of the static params with extra merged on top.
func (c *core) withStatic(extra map[string]any) map[string]any {
	out := make(map[string]any, len(c.params)+len(extra))
	for k, v := range c.params {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// issue runs the call on its own goroutine and posts done to the executor.
func (c *core) issue(req request, params map[string]any, done func(reply)) {
	c.logger.Debug("remote call", "commit", req.commit, "token", req.token)
	loop.GoOn(c.exec, func() func() {
		ctx, cancel := c.callContext()
		defer cancel()
		var result json.RawMessage
		err := c.caller.Call(ctx, c.method, params, &result)
		return func() { done(reply{request: req, result: result, err: err}) }
	})
}

func (c *core) callContext() (context.Context, context.CancelFunc) {
	if c.cfg.timeout > 0 {
		return context.WithTimeout(c.ctx, c.cfg.timeout)
	}
	return context.WithCancel(c.ctx)
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
