// Package push carries server-initiated value changes to remote sources.
//
// A Hub on the server accepts WebSocket subscribers and broadcasts a
// "changed" JSON-RPC 2.0 notification for every write. A Feed on the
// client routes each notification by method to the registered sources,
// which merge it without committing it back.
package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
)

const (
	// MethodChanged is the notification sent for every server-side write.
	MethodChanged = "changed"
	// MethodPing returns the subscriber id of the calling connection.
	MethodPing = "ping"
)

// Change is the payload of a changed notification: the RPC method whose
// value changed, the static params selecting the changed instance, and its
// new canonical result. Empty Params address every source of Method.
type Change struct {
	Method string          `json:"method"`
	Params map[string]any  `json:"params,omitempty"`
	Result json.RawMessage `json:"result"`
}

// Pusher receives changes for one method. remote.Value and remote.Object
// implement it.
type Pusher interface {
	Push(raw json.RawMessage) error
}

// Scoped is implemented by pushers bound to particular static params.
// Changes that carry params only reach scoped pushers they match.
type Scoped interface {
	StaticParams() map[string]any
}

// Matches reports whether a change with params applies to a source with
// the given static params: every changed param must be present in static
// with the same JSON encoding.
func Matches(params, static map[string]any) bool {
	for k, want := range params {
		got, ok := static[k]
		if !ok || !sameJSON(want, got) {
			return false
		}
	}
	return true
}

func sameJSON(a, b any) bool {
	x, err := json.Marshal(a)
	if err != nil {
		return false
	}
	y, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(x, y)
}

// logAdapter routes jsonrpc2 connection logs into slog at debug level.
type logAdapter struct {
	logger *slog.Logger
}

func (l logAdapter) Printf(format string, v ...any) {
	l.logger.Debug("jsonrpc2", "message", fmt.Sprintf(format, v...))
}
