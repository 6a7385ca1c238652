package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/jsonrpc2"
	wsstream "github.com/sourcegraph/jsonrpc2/websocket"

	coded "github.com/vango-dev/bindsync/internal/errors"
	"github.com/vango-dev/bindsync/pkg/transport"
)

// Feed is the client end of a push connection.
type Feed struct {
	conn   *jsonrpc2.Conn
	logger *slog.Logger

	mu     sync.RWMutex
	routes map[string][]Pusher

	delivered atomic.Uint64
}

type feedConfig struct {
	logger *slog.Logger
	csrf   string
	dialer *websocket.Dialer
}

// Option configures a Feed.
type Option func(*feedConfig)

// WithLogger sets the feed logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *feedConfig) {
		c.logger = l
	}
}

// WithCSRFToken sends token in the handshake's X-CSRF-Token header.
func WithCSRFToken(token string) Option {
	return func(c *feedConfig) {
		c.csrf = token
	}
}

// WithDialer replaces websocket.DefaultDialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *feedConfig) {
		c.dialer = d
	}
}

func newFeedConfig(opts []Option) feedConfig {
	c := feedConfig{dialer: websocket.DefaultDialer}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "push")
	}
	return c
}

// Dial connects to the push hub at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ...Option) (*Feed, error) {
	cfg := newFeedConfig(opts)
	header := http.Header{}
	if cfg.csrf != "" {
		header.Set(transport.CSRFHeader, cfg.csrf)
	}
	ws, resp, err := cfg.dialer.DialContext(ctx, url, header)
	if err != nil {
		e := coded.New("T005").WithOp(url).Wrap(err)
		if resp != nil {
			e = e.WithDetail(fmt.Sprintf("Handshake answered %s", resp.Status))
		}
		return nil, e
	}
	return newFeed(ws, cfg), nil
}

// NewFeed runs a feed over an established WebSocket connection.
func NewFeed(ws *websocket.Conn, opts ...Option) *Feed {
	return newFeed(ws, newFeedConfig(opts))
}

func newFeed(ws *websocket.Conn, cfg feedConfig) *Feed {
	f := &Feed{
		logger: cfg.logger,
		routes: make(map[string][]Pusher),
	}
	f.conn = jsonrpc2.NewConn(context.Background(),
		wsstream.NewObjectStream(ws),
		jsonrpc2.HandlerWithError(f.handle),
		jsonrpc2.SetLogger(logAdapter{f.logger}))
	return f
}

// Register routes changes of method to p.
func (f *Feed) Register(method string, p Pusher) {
	f.mu.Lock()
	f.routes[method] = append(f.routes[method], p)
	f.mu.Unlock()
}

// Unregister removes p from method. It reports whether p was registered.
func (f *Feed) Unregister(method string, p Pusher) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ps := f.routes[method]
	for i, q := range ps {
		if q == p {
			f.routes[method] = append(ps[:i:i], ps[i+1:]...)
			if len(f.routes[method]) == 0 {
				delete(f.routes, method)
			}
			return true
		}
	}
	return false
}

// Ping asks the hub for this connection's subscriber id.
func (f *Feed) Ping(ctx context.Context) (string, error) {
	var id string
	if err := f.conn.Call(ctx, MethodPing, nil, &id); err != nil {
		return "", coded.New("T005").WithOp(MethodPing).Wrap(err)
	}
	return id, nil
}

// Delivered returns how many changes were handed to a pusher.
func (f *Feed) Delivered() uint64 {
	return f.delivered.Load()
}

// Done is closed when the connection ends.
func (f *Feed) Done() <-chan struct{} {
	return f.conn.DisconnectNotify()
}

// Close ends the connection.
func (f *Feed) Close() error {
	return f.conn.Close()
}

func (f *Feed) handle(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	if req.Method != MethodChanged {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	var c Change
	if err := json.Unmarshal(*req.Params, &c); err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}
	f.deliver(c)
	return nil, nil
}

func (f *Feed) deliver(c Change) {
	f.mu.RLock()
	ps := append([]Pusher(nil), f.routes[c.Method]...)
	f.mu.RUnlock()

	for _, p := range ps {
		if s, ok := p.(Scoped); ok && len(c.Params) > 0 && !Matches(c.Params, s.StaticParams()) {
			continue
		}
		if err := p.Push(c.Result); err != nil {
			f.logger.Warn("push rejected", "method", c.Method, "error", err)
			continue
		}
		f.delivered.Add(1)
	}
}
