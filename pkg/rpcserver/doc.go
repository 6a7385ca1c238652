// Package rpcserver is a reference JSON-RPC 1.1 endpoint for bindsync
// clients.
//
// It serves:
//
//	POST /rpc      JSON-RPC 1.1 calls (method in the body or ?_method=)
//	GET  /push     WebSocket push feed of "changed" notifications
//	GET  /csrf     a fresh CSRF token, when a secret is configured
//	GET  /metrics  Prometheus metrics
//
// Methods are plain functions of the decoded params. Value and Object bind
// a method to a named document so that reads, writes and pushes follow the
// remote source protocol: a call without "value" reads, a call with it
// writes and answers the canonical value.
//
// Example:
//
//	srv := rpcserver.New(rpcserver.WithCSRFSecret(secret, time.Hour))
//	srv.Value("user.setName", "user/name")
//	srv.Object("room.get", "room", "id")
//	http.ListenAndServe(":8080", srv)
package rpcserver
