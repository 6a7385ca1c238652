package push

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sourcegraph/jsonrpc2"
	wsstream "github.com/sourcegraph/jsonrpc2/websocket"
)

// Hub is the server end: an http.Handler that upgrades subscribers and
// broadcasts changes to all of them.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	gauge    prometheus.Gauge

	mu     sync.Mutex
	subs   map[string]*jsonrpc2.Conn
	closed bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubLogger sets the hub logger.
func WithHubLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		h.logger = l
	}
}

// WithCheckOrigin replaces the same-origin check of the upgrader.
func WithCheckOrigin(fn func(r *http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = fn
	}
}

// WithSubscriberGauge tracks the subscriber count in g.
func WithSubscriberGauge(g prometheus.Gauge) HubOption {
	return func(h *Hub) {
		h.gauge = g
	}
}

// NewHub creates a hub with no subscribers.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		subs:     make(map[string]*jsonrpc2.Conn),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default().With("component", "push-hub")
	}
	return h
}

// ServeHTTP upgrades the request and serves the subscriber until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "error", err)
		return
	}

	id := ulid.Make().String()
	logger := h.logger.With("subscriber", id)
	conn := jsonrpc2.NewConn(context.Background(),
		wsstream.NewObjectStream(ws),
		jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
			if req.Method == MethodPing {
				return id, nil
			}
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
		}).SuppressErrClosed(),
		jsonrpc2.SetLogger(logAdapter{logger}))

	if !h.add(id, conn) {
		conn.Close()
		return
	}
	logger.Debug("subscriber connected")

	<-conn.DisconnectNotify()
	h.remove(id)
	logger.Debug("subscriber disconnected")
}

func (h *Hub) add(id string, conn *jsonrpc2.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.subs[id] = conn
	if h.gauge != nil {
		h.gauge.Inc()
	}
	return true
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[id]; !ok {
		return
	}
	delete(h.subs, id)
	if h.gauge != nil {
		h.gauge.Dec()
	}
}

// Broadcast notifies every subscriber of c and returns how many were
// reached. Subscribers that cannot be written to are dropped.
func (h *Hub) Broadcast(ctx context.Context, c Change) int {
	h.mu.Lock()
	conns := make(map[string]*jsonrpc2.Conn, len(h.subs))
	for id, conn := range h.subs {
		conns[id] = conn
	}
	h.mu.Unlock()

	n := 0
	for id, conn := range conns {
		if err := conn.Notify(ctx, MethodChanged, c); err != nil {
			h.logger.Debug("dropping subscriber", "subscriber", id, "error", err)
			conn.Close()
			h.remove(id)
			continue
		}
		n++
	}
	return n
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*jsonrpc2.Conn, 0, len(h.subs))
	for _, conn := range h.subs {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
