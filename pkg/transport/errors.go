package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ServerPrefix marks transport-level failures of a JSON-RPC call.
const ServerPrefix = "SERVER: "

// HTTPError is returned for a response status outside [200, 300).
type HTTPError struct {
	Status     int
	StatusText string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d %s", e.Status, e.StatusText)
}

// NetworkError is returned when a request could not be sent or its response
// could not be read.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return "network: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError wraps a transport-level failure of a JSON-RPC call. Its
// message carries the "SERVER: " prefix.
type ServerError struct {
	Method string
	Err    error
}

func (e *ServerError) Error() string {
	return ServerPrefix + e.Err.Error()
}

func (e *ServerError) Unwrap() error { return e.Err }

// RPCError is an application error reported in the error member of a
// well-formed JSON-RPC response.
type RPCError struct {
	Method string
	// Value is the decoded error member: a string or an object.
	Value any
	// Code is the object's numeric code member, when present.
	Code int
	// Message is the error string, the object's message member, or the
	// raw JSON.
	Message string
}

func (e *RPCError) Error() string {
	return e.Message
}

func newRPCError(method string, raw json.RawMessage) *RPCError {
	e := &RPCError{Method: method, Message: string(raw)}
	if err := json.Unmarshal(raw, &e.Value); err != nil {
		return e
	}
	switch v := e.Value.(type) {
	case string:
		e.Message = v
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			e.Message = msg
		}
		if code, ok := v["code"].(float64); ok {
			e.Code = int(code)
		}
	}
	return e
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var (
		se *ServerError
		he *HTTPError
		ne *NetworkError
	)
	return errors.As(err, &se) || errors.As(err, &he) || errors.As(err, &ne)
}

// IsApplication reports whether err is an application error returned by
// the remote method.
func IsApplication(err error) bool {
	var re *RPCError
	return errors.As(err, &re)
}
