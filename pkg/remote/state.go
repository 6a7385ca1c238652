package remote

import (
	"context"
	"fmt"
)

// State is the synchronization state of a remote source.
type State uint8

const (
	// Idle: nothing has been requested yet.
	Idle State = iota
	// Loading: a read is in flight.
	Loading
	// Committing: local changes are queued or being written.
	Committing
	// Loaded: the local state matches the last server response.
	Loaded
	// Error: the last call failed; see Err.
	Error
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Committing:
		return "committing"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Caller issues one JSON-RPC call and decodes its result into result.
// *transport.Client implements it.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
}
