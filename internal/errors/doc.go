// Package errors provides coded, structured errors for bindsync.
//
// Every error carries a short code that maps to a registered template:
//   - B0xx: binding misuse (unrecognized capability, type mismatch)
//   - R0xx: remote source failures (read, commit, decode)
//   - T0xx: transport failures (HTTP status, network, malformed responses)
//   - S0xx: snapshot storage failures
//   - C0xx: configuration problems
//   - X0xx: command-line usage problems
//
// # Usage
//
//	err := errors.New("B001").
//	    WithOp("*widgets.Label").
//	    WithSuggestion("Implement observe.Accessor, observe.Sequence or observe.Mapping").
//	    Wrap(bind.ErrNotImplemented)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR B001: Bind target has no recognized capability
//	//
//	//   op: *widgets.Label
//	//
//	//   The target implements none of the accessor, sequence or mapping
//	//   contracts, so no propagation can be wired.
//	//
//	//   Hint: Implement observe.Accessor, observe.Sequence or observe.Mapping
//
// Errors wrap the package-level sentinels of the component that raised them,
// so errors.Is keeps working across the coded layer.
package errors
