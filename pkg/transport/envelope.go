package transport

import "encoding/json"

// Version is the JSON-RPC envelope version sent with every call.
const Version = "1.1"

// Request is the JSON-RPC 1.1 call envelope.
type Request struct {
	Version string `json:"version"`
	Origin  string `json:"origin"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Response is the JSON-RPC 1.1 reply envelope. Exactly one of Result and
// Error is meaningful; an absent or null Error means success.
type Response struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Failed reports whether the response carries an error.
func (r *Response) Failed() bool {
	return len(r.Error) > 0 && string(r.Error) != "null"
}
