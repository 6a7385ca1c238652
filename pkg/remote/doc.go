// Package remote provides observables whose authoritative state lives on a
// JSON-RPC server.
//
// A Value mirrors one remote value and an Object mirrors a remote keyed
// object. Local writes take effect immediately and are committed in the
// background: all writes made before the executor next runs are sent as a
// single call, and at most one commit per source is in flight at a time.
// Responses are merged back without being committed again.
//
// Every read and commit carries a request token. A response whose token is
// no longer the latest is dropped, so a slow response can never overwrite
// the result of a newer request. A key (or value) edited locally after a
// request was issued keeps its local edit when that request's response
// arrives.
//
//	exec := loop.New()
//	go exec.Run(ctx)
//	client := transport.NewClient("https://example.org/api")
//	name := remote.NewValue(exec, client, "user.setName", nil, "")
//	name.Set("Alice") // committed on the next tick
package remote
