package mux

import "github.com/cuemby/buildmux/pkg/events"

// EngineBus is the external collaborator contract: the build engine's
// global event bus, whose dispatch is synchronous and single-threaded
// per the engine's own contract. The Mux only subscribes and
// unsubscribes; it never publishes to this bus.
//
// Concrete engines are out of scope for this package - production
// callers adapt their own dispatcher to this interface, and
// cmd/buildmuxd ships a small in-process demo implementation.
type EngineBus interface {
	// Subscribe registers handler to be invoked, inline, for every
	// event of kind the engine raises. Subscribe must support multiple
	// independent subscriptions to the same kind.
	Subscribe(kind events.Kind, handler func(*events.Event))
	// Unsubscribe removes every subscription the Router has installed.
	// Bind/Unbind are the only callers; Unbind must leave the bus ready
	// to accept a fresh Bind.
	Unsubscribe()
}
