package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CSRFHeader is the request header carrying the CSRF token.
const CSRFHeader = "X-CSRF-Token"

const defaultTracerName = "bindsync/transport"

// Client posts requests to one endpoint.
type Client struct {
	endpoint string
	origin   string
	http     *http.Client
	csrf     func() string
	tracker  *Tracker
	metrics  *Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithCSRFToken sends token in the X-CSRF-Token header of every request.
func WithCSRFToken(token string) Option {
	return func(c *Client) {
		c.csrf = func() string { return token }
	}
}

// WithCSRFSource asks source for the token before every request. An empty
// token omits the header.
func WithCSRFSource(source func() string) Option {
	return func(c *Client) {
		c.csrf = source
	}
}

// WithOrigin sets the origin field of the JSON-RPC envelope. It defaults to
// the endpoint URL.
func WithOrigin(origin string) Option {
	return func(c *Client) {
		c.origin = origin
	}
}

// WithTracker counts this client's requests in t.
func WithTracker(t *Tracker) Option {
	return func(c *Client) {
		c.tracker = t
	}
}

// WithMetrics records call metrics in m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for call spans. It defaults to the global
// tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTimeout bounds every request. Zero means no bound beyond the caller's
// context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a client for endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		origin:   endpoint,
		http:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(defaultTracerName)
	}
	if c.logger == nil {
		c.logger = slog.Default().With("component", "transport")
	}
	if c.tracker == nil {
		c.tracker = NewTracker()
	}
	return c
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Tracker returns the tracker counting this client's requests.
func (c *Client) Tracker() *Tracker { return c.tracker }

// Do posts body to the endpoint and returns the response body. A status
// outside [200, 300) yields an *HTTPError carrying the body.
func (c *Client) Do(ctx context.Context, contentType string, body []byte) ([]byte, error) {
	return c.post(ctx, c.endpoint, contentType, body)
}

// Call invokes method with params and decodes the result into result,
// which may be nil to discard it.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	ctx, span := c.tracer.Start(ctx, "jsonrpc "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rpc.system", "jsonrpc"),
			attribute.String("rpc.method", method),
			attribute.String("rpc.jsonrpc.version", Version),
		),
	)
	defer span.End()

	start := time.Now()
	c.metrics.begin()
	err := c.call(ctx, method, params, result)
	outcome := outcomeOf(err)
	c.metrics.end(method, outcome, time.Since(start))

	span.SetAttributes(attribute.String("bindsync.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("rpc call failed", "method", method, "outcome", outcome, "error", err)
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if params == nil {
		params = map[string]any{}
	}
	body, err := json.Marshal(Request{
		Version: Version,
		Origin:  c.origin,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("transport: encode %s params: %w", method, err)
	}

	target, err := withQuery(c.endpoint, "_method", method)
	if err != nil {
		return &ServerError{Method: method, Err: err}
	}

	raw, err := c.post(ctx, target, "application/json", body)
	if err != nil {
		return &ServerError{Method: method, Err: err}
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return &ServerError{Method: method, Err: fmt.Errorf("malformed response: %w", err)}
	}
	if resp.Failed() {
		return newRPCError(method, resp.Error)
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return &ServerError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
		}
	}
	c.logger.Debug("rpc call", "method", method)
	return nil
}

func (c *Client) post(ctx context.Context, target, contentType string, body []byte) ([]byte, error) {
	release := c.tracker.Acquire()
	defer release()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	if c.csrf != nil {
		if token := c.csrf(); token != "" {
			req.Header.Set(CSRFHeader, token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Body:       data,
		}
	}
	return data, nil
}

func withQuery(endpoint, key, value string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
