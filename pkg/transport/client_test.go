package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// rpcServer answers every call with reply and records what it saw.
type rpcServer struct {
	status int
	reply  string

	mu             sync.Mutex
	gotMethodQuery string
	gotCSRF        string
	gotContentType string
	gotRequest     Request
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotMethodQuery = r.URL.Query().Get("_method")
	s.gotCSRF = r.Header.Get(CSRFHeader)
	s.gotContentType = r.Header.Get("Content-Type")
	body, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(body, &s.gotRequest)

	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	_, _ = io.WriteString(w, s.reply)
}

// seen waits for the server lock so handler writes are visible.
func (s *rpcServer) seen() *rpcServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s
}

func TestCallEnvelope(t *testing.T) {
	srv := &rpcServer{reply: `{"result":"Alice","error":null}`}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := NewClient(ts.URL+"/api", WithCSRFToken("tok"), WithOrigin("https://app.example/"))

	var name string
	if err := client.Call(context.Background(), "user.setName", map[string]any{"value": "Alice"}, &name); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if name != "Alice" {
		t.Errorf("expected result Alice, got %q", name)
	}

	want := Request{
		Version: "1.1",
		Origin:  "https://app.example/",
		Method:  "user.setName",
		Params:  map[string]any{"value": "Alice"},
	}
	srv = srv.seen()
	if diff := cmp.Diff(want, srv.gotRequest); diff != "" {
		t.Errorf("envelope mismatch (-want +got):\n%s", diff)
	}
	if srv.gotMethodQuery != "user.setName" {
		t.Errorf("expected _method query, got %q", srv.gotMethodQuery)
	}
	if srv.gotCSRF != "tok" {
		t.Errorf("expected CSRF header, got %q", srv.gotCSRF)
	}
	if srv.gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", srv.gotContentType)
	}
}

func TestCallWithoutCSRFToken(t *testing.T) {
	srv := &rpcServer{reply: `{"result":null,"error":null}`}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := NewClient(ts.URL, WithCSRFSource(func() string { return "" }))
	if err := client.Call(context.Background(), "ping", nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	srv = srv.seen()
	if srv.gotCSRF != "" {
		t.Errorf("expected no CSRF header, got %q", srv.gotCSRF)
	}
	if srv.gotRequest.Params == nil {
		t.Errorf("nil params should be sent as an empty object")
	}
}

func TestCallApplicationError(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		message string
		code    int
	}{
		{"string error", `{"result":null,"error":"name taken"}`, "name taken", 0},
		{"object error", `{"result":null,"error":{"code":409,"message":"conflict"}}`, "conflict", 409},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(&rpcServer{reply: tt.reply})
			defer ts.Close()

			err := NewClient(ts.URL).Call(context.Background(), "user.setName", nil, nil)

			var rpcErr *RPCError
			if !errors.As(err, &rpcErr) {
				t.Fatalf("expected *RPCError, got %T %v", err, err)
			}
			if rpcErr.Message != tt.message || rpcErr.Code != tt.code {
				t.Errorf("expected %q/%d, got %q/%d", tt.message, tt.code, rpcErr.Message, rpcErr.Code)
			}
			if strings.HasPrefix(err.Error(), ServerPrefix) {
				t.Errorf("application errors must not carry the server prefix: %q", err)
			}
			if !IsApplication(err) || IsTransport(err) {
				t.Errorf("misclassified application error %v", err)
			}
		})
	}
}

func TestCallHTTPError(t *testing.T) {
	ts := httptest.NewServer(&rpcServer{status: http.StatusForbidden, reply: "denied"})
	defer ts.Close()

	err := NewClient(ts.URL).Call(context.Background(), "user.setName", nil, nil)

	if !strings.HasPrefix(err.Error(), "SERVER: ") {
		t.Errorf("expected SERVER: prefix, got %q", err.Error())
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError in chain, got %v", err)
	}
	if httpErr.Status != 403 || httpErr.StatusText != "Forbidden" || string(httpErr.Body) != "denied" {
		t.Errorf("unexpected HTTP error %+v", httpErr)
	}
	if !IsTransport(err) || IsApplication(err) {
		t.Errorf("misclassified transport error %v", err)
	}
}

func TestCallMalformedResponse(t *testing.T) {
	ts := httptest.NewServer(&rpcServer{reply: "<html>"})
	defer ts.Close()

	err := NewClient(ts.URL).Call(context.Background(), "x", nil, nil)
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServerError, got %v", err)
	}
	if se.Method != "x" {
		t.Errorf("expected method x, got %q", se.Method)
	}
}

func TestCallNetworkError(t *testing.T) {
	ts := httptest.NewServer(&rpcServer{})
	url := ts.URL
	ts.Close()

	err := NewClient(url).Call(context.Background(), "x", nil, nil)
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), ServerPrefix) {
		t.Errorf("expected SERVER: prefix, got %q", err.Error())
	}
}

func TestDoClassifiesStatus(t *testing.T) {
	ts := httptest.NewServer(&rpcServer{status: http.StatusTeapot, reply: "short and stout"})
	defer ts.Close()

	_, err := NewClient(ts.URL).Do(context.Background(), "text/plain", []byte("hi"))
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != http.StatusTeapot {
		t.Fatalf("expected 418 HTTPError, got %v", err)
	}
	if strings.HasPrefix(err.Error(), ServerPrefix) {
		t.Errorf("Do errors are not JSON-RPC failures and carry no prefix")
	}

	ok := httptest.NewServer(&rpcServer{reply: "pong"})
	defer ok.Close()
	body, err := NewClient(ok.URL).Do(context.Background(), "text/plain", nil)
	if err != nil || string(body) != "pong" {
		t.Errorf("expected pong, got %q (%v)", body, err)
	}
}

func TestCallMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(WithRegistry(reg))

	okSrv := httptest.NewServer(&rpcServer{reply: `{"result":1,"error":null}`})
	defer okSrv.Close()
	errSrv := httptest.NewServer(&rpcServer{reply: `{"result":null,"error":"no"}`})
	defer errSrv.Close()

	_ = NewClient(okSrv.URL, WithMetrics(metrics)).Call(context.Background(), "a", nil, nil)
	_ = NewClient(okSrv.URL, WithMetrics(metrics)).Call(context.Background(), "a", nil, nil)
	_ = NewClient(errSrv.URL, WithMetrics(metrics)).Call(context.Background(), "a", nil, nil)

	if got := testutil.ToFloat64(metrics.calls.WithLabelValues("a", OutcomeOK)); got != 2 {
		t.Errorf("expected 2 ok calls, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.calls.WithLabelValues("a", OutcomeRPCError)); got != 1 {
		t.Errorf("expected 1 rpc error, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.inFlight); got != 0 {
		t.Errorf("expected nothing in flight, got %v", got)
	}
}

func TestCallTracksRequests(t *testing.T) {
	tracker := NewTracker()
	var busyDuring atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		busyDuring.Store(tracker.Busy().Get())
		_, _ = io.WriteString(w, `{"result":null,"error":null}`)
	}))
	defer ts.Close()

	if err := NewClient(ts.URL, WithTracker(tracker)).Call(context.Background(), "x", nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !busyDuring.Load() {
		t.Errorf("expected tracker to be busy during the request")
	}
	if tracker.Active() != 0 || tracker.Busy().Get() {
		t.Errorf("expected tracker idle after the request")
	}
}
