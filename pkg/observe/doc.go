// Package observe provides the observable primitives the binding engine is
// built on: single values (Accessor), ordered lists (WatchList) and keyed
// dictionaries (WatchObject).
//
// Every primitive exposes the same three-part contract: read the current
// state, mutate it, and observe subsequent mutations. Observing never replays
// history; a new observer only sees changes made after it subscribed.
//
//	name := observe.NewValue("")
//	stop := name.Observe(func(v string) {
//	    fmt.Println("name is now", v)
//	})
//	name.Set("Alice") // prints "name is now Alice"
//	stop()
//
// Lists emit exactly one ListEvent per structural call:
//
//	talks := observe.NewList("keynote", "panel")
//	talks.ObserveList(func(e observe.ListEvent[string]) { ... })
//	talks.Move(0, 1) // one ItemMoved event
//
// Dictionaries treat a nil value as deletion:
//
//	room := observe.NewDict[any](nil)
//	room.Set("capacity", 120)
//	room.Set("capacity", nil) // Deleted event, Get reports absence
//
// Resolve flattens chains of observables (an observable whose value is
// itself observable) into a single readable value, which is what the bind
// package uses to follow sources that can be swapped at runtime.
package observe
