// Package transport is the HTTP plumbing under remote sources: POST with an
// optional X-CSRF-Token header, a JSON-RPC 1.1 envelope, and error
// classification.
//
// Errors fall into two families:
//
//   - transport errors: *HTTPError for non-2xx statuses, *NetworkError when
//     the request never completed, and *ServerError, which wraps either of
//     those (or an unreadable response) for a JSON-RPC call and prefixes its
//     message with "SERVER: ";
//   - application errors: *RPCError for a well-formed response whose error
//     member is set.
//
// Neither kind is retried.
//
//	client := transport.NewClient("https://example.org/api",
//	    transport.WithCSRFToken(token),
//	)
//	var name string
//	err := client.Call(ctx, "user.getName", map[string]any{"id": 7}, &name)
package transport
