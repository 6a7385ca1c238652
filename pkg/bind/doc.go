// Package bind connects observable targets to observable sources.
//
// Bind dispatches on what the target can do:
//
//   - an accessor target (observe.Readable and/or observe.Writable) gets a
//     one-way or two-way value binding, guarded by a Lock so a write on one
//     side reaches the other exactly once and never bounces back;
//   - a sequence target (observe.ListSink) mirrors a source list item by
//     item, keeping positions in lockstep with the source's structural
//     events;
//   - a mapping target (observe.MapSink) mirrors a source dictionary or a
//     source list of key/value pairs.
//
// Every binding is recorded in a Registry keyed by target. Binding a target
// again tears down its previous binding first, and binding it to a nil
// source only detaches:
//
//	label := observe.NewValue("")
//	name := observe.NewValue("Alice")
//	bind.MustBind[string, string](label, name)
//	name.Set("Bob")                 // label is now "Bob"
//	bind.Bind[string, string](label, nil) // detached
package bind
