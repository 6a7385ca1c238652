package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/bindsync/pkg/push"
	"github.com/vango-dev/bindsync/pkg/snapshot"
	"github.com/vango-dev/bindsync/pkg/transport"
)

// SnapshotName is the name the documents are saved under.
const SnapshotName = "documents"

// HandlerFunc handles one method call. params is the decoded params
// object, never nil.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

// view renders a document for one bound method.
type view struct {
	method string
	render func(doc string) any
}

// Server is the reference endpoint. It implements http.Handler.
type Server struct {
	router   chi.Router
	docs     *Documents
	hub      *push.Hub
	csrf     *CSRF
	registry *prometheus.Registry
	metrics  *metrics
	store    snapshot.Store
	debounce time.Duration
	logger   *slog.Logger
	noMetric bool

	mu      sync.RWMutex
	methods map[string]HandlerFunc
	views   map[string][]view

	saveMu sync.Mutex
	timer  *time.Timer
}

// Option configures a Server.
type Option func(*Server)

// WithCSRFSecret enables CSRF checks on /rpc and /push and token issue on
// /csrf.
func WithCSRFSecret(secret []byte, ttl time.Duration) Option {
	return func(s *Server) {
		if len(secret) > 0 {
			s.csrf = NewCSRF(secret, ttl)
		}
	}
}

// WithStore persists documents to store, at most once per debounce.
func WithStore(store snapshot.Store, debounce time.Duration) Option {
	return func(s *Server) {
		s.store = store
		s.debounce = debounce
	}
}

// WithRegistry sets the registry that server metrics are registered in and
// /metrics serves. Default: a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithoutMetricsRoute leaves /metrics unmounted. Metrics are still
// collected in the registry.
func WithoutMetricsRoute() Option {
	return func(s *Server) {
		s.noMetric = true
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server with no methods.
func New(opts ...Option) *Server {
	s := &Server{
		docs:    NewDocuments(),
		methods: make(map[string]HandlerFunc),
		views:   make(map[string][]view),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "rpcserver")
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	s.hub = push.NewHub(
		push.WithHubLogger(s.logger.With("route", "push")),
		push.WithSubscriberGauge(s.metrics.subscribers),
	)
	s.docs.onChange = s.changed

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/rpc", s.serveRPC)
	r.With(s.requireCSRF).Get("/push", s.hub.ServeHTTP)
	r.Get("/csrf", s.serveToken)
	if !s.noMetric {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Documents returns the document store.
func (s *Server) Documents() *Documents {
	return s.docs
}

// Hub returns the push hub.
func (s *Server) Hub() *push.Hub {
	return s.hub
}

// CSRF returns the token authority, or nil when CSRF is disabled.
func (s *Server) CSRF() *CSRF {
	return s.csrf
}

// Register adds or replaces a method.
func (s *Server) Register(method string, h HandlerFunc) {
	s.mu.Lock()
	s.methods[method] = h
	s.mu.Unlock()
}

// Methods returns the registered method names, sorted.
func (s *Server) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.methods))
	for m := range s.methods {
		names = append(names, m)
	}
	sort.Strings(names)
	return names
}

// Value binds method to the scalar document doc. Calls without a "value"
// member read it; calls with one write it. Writes are pushed to
// subscribers.
func (s *Server) Value(method, doc string) {
	s.Register(method, ValueDocument(s.docs, doc))
	s.bind(doc, view{method: method, render: func(name string) any {
		v, _ := s.docs.Get(name)
		return v
	}})
}

// Object binds method to the object documents under doc. The params named
// in static select the object (see ScopedName) and are never stored. Calls
// with no other params read the whole object; otherwise the remaining
// params are merged and the applied entries are answered. Writes push the
// whole object with its selecting params.
func (s *Server) Object(method, doc string, static ...string) {
	s.Register(method, ObjectDocument(s.docs, doc, static...))
	s.bind(doc, view{method: method, render: func(name string) any {
		return s.docs.Object(name)
	}})
}

func (s *Server) bind(doc string, v view) {
	s.mu.Lock()
	s.views[doc] = append(s.views[doc], v)
	s.mu.Unlock()
}

// ValueDocument returns the handler behind Server.Value.
func ValueDocument(docs *Documents, name string) HandlerFunc {
	return func(_ context.Context, params map[string]any) (any, error) {
		if v, ok := params["value"]; ok {
			docs.Set(name, v)
			return v, nil
		}
		v, _ := docs.Get(name)
		return v, nil
	}
}

// ObjectDocument returns the handler behind Server.Object.
func ObjectDocument(docs *Documents, name string, static ...string) HandlerFunc {
	skip := make(map[string]bool, len(static))
	for _, k := range static {
		skip[k] = true
	}
	return func(_ context.Context, params map[string]any) (any, error) {
		doc := ScopedName(name, static, params)
		patch := make(map[string]any, len(params))
		for k, v := range params {
			if !skip[k] {
				patch[k] = v
			}
		}
		if len(patch) == 0 {
			return docs.Object(doc), nil
		}
		return docs.Merge(doc, patch), nil
	}
}

type rpcRequest struct {
	Version string          `json:"version"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Origin  string          `json:"origin"`
}

type rpcResponse struct {
	Result any `json:"result"`
	Error  any `json:"error"`
}

func (s *Server) serveRPC(w http.ResponseWriter, r *http.Request) {
	if s.csrf != nil {
		if err := s.csrf.Verify(r.Header.Get(transport.CSRFHeader)); err != nil {
			s.logger.Debug("csrf rejected", "error", err)
			http.Error(w, "invalid CSRF token", http.StatusForbidden)
			return
		}
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcResponse{Error: Errorf(CodeParseError, "malformed request: %v", err)})
		return
	}
	if req.Method == "" {
		req.Method = r.URL.Query().Get("_method")
	}

	start := time.Now()
	result, err := s.dispatch(r.Context(), req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.calls.WithLabelValues(req.Method, outcome).Inc()
	s.metrics.duration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.Debug("call failed", "method", req.Method, "origin", req.Origin, "error", err)
		var rpcErr *Error
		if errors.As(err, &rpcErr) {
			writeJSON(w, http.StatusOK, rpcResponse{Error: rpcErr})
		} else {
			writeJSON(w, http.StatusOK, rpcResponse{Error: err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, rpcResponse{Result: result})
}

func (s *Server) dispatch(ctx context.Context, req rpcRequest) (result any, err error) {
	s.mu.RLock()
	h, ok := s.methods[req.Method]
	s.mu.RUnlock()
	if !ok {
		return nil, Errorf(CodeMethodNotFound, "method not found: %s", req.Method)
	}

	params := map[string]any{}
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, Errorf(CodeInvalidParams, "params must be an object")
		}
	}

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("handler panic", "method", req.Method, "panic", p, "stack", string(debug.Stack()))
			result, err = nil, Errorf(CodeInternalError, "internal error")
		}
	}()
	return h(ctx, params)
}

func (s *Server) serveToken(w http.ResponseWriter, _ *http.Request) {
	if s.csrf == nil {
		http.Error(w, "CSRF is disabled", http.StatusNotFound)
		return
	}
	token, err := s.csrf.Issue()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// requireCSRF checks the token of a push handshake. Browsers cannot set
// headers on WebSocket handshakes, so a "token" query parameter is
// accepted as well.
func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.csrf != nil {
			token := r.Header.Get(transport.CSRFHeader)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if err := s.csrf.Verify(token); err != nil {
				http.Error(w, "invalid CSRF token", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// changed pushes the new state of doc to subscribers and schedules a
// snapshot.
func (s *Server) changed(doc string) {
	base, scope := splitScope(doc)
	s.mu.RLock()
	views := append([]view(nil), s.views[base]...)
	s.mu.RUnlock()

	for _, v := range views {
		raw, err := json.Marshal(v.render(doc))
		if err != nil {
			s.logger.Warn("cannot encode change", "method", v.method, "error", err)
			continue
		}
		s.hub.Broadcast(context.Background(), push.Change{Method: v.method, Params: scope, Result: raw})
		s.metrics.broadcasts.Inc()
	}
	s.scheduleSave()
}

func (s *Server) scheduleSave() {
	if s.store == nil {
		return
	}
	if s.debounce <= 0 {
		s.save(context.Background())
		return
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, func() {
			s.saveMu.Lock()
			s.timer = nil
			s.saveMu.Unlock()
			s.save(context.Background())
		})
	}
}

func (s *Server) save(ctx context.Context) error {
	data, err := json.Marshal(s.docs)
	if err == nil {
		err = s.store.Save(ctx, SnapshotName, data)
	}
	if err != nil {
		s.metrics.saves.WithLabelValues("error").Inc()
		s.logger.Error("snapshot save failed", "error", err)
		return err
	}
	s.metrics.saves.WithLabelValues("ok").Inc()
	return nil
}

// Restore loads the saved documents. A missing snapshot is not an error.
func (s *Server) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	data, err := s.store.Load(ctx, SnapshotName)
	if errors.Is(err, snapshot.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, s.docs)
}

// Flush writes a pending snapshot immediately.
func (s *Server) Flush(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.saveMu.Lock()
	pending := s.timer != nil && s.timer.Stop()
	s.timer = nil
	s.saveMu.Unlock()
	if !pending {
		return nil
	}
	return s.save(ctx)
}

// Close disconnects push subscribers and flushes a pending snapshot.
func (s *Server) Close(ctx context.Context) error {
	s.hub.Close()
	return s.Flush(ctx)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within grace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	hs := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", addr)
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		s.hub.Close()
		err := hs.Shutdown(shutdownCtx)
		if ferr := s.Flush(shutdownCtx); err == nil {
			err = ferr
		}
		return err
	})
	return g.Wait()
}
