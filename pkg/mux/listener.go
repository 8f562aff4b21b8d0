package mux

import "github.com/cuemby/buildmux/pkg/events"

// Listener is the minimal contract every build-event consumer
// implements. Initialize subscribes to whichever channels of bus it
// cares about; Shutdown is called exactly once when the owning record
// tears down and must not retain any reference to bus afterward.
type Listener interface {
	Initialize(bus *events.LocalBus) error
	Shutdown()
}

// NodeAwareListener is the optional capability a Listener can expose
// to receive the configured node count at initialization. attach
// detects this via a type assertion rather than a reflective downcast
// (the source's own approach, translated to Go's capability-interface
// idiom) and prefers it over the plain Initialize when present.
type NodeAwareListener interface {
	Listener
	InitializeNodeAware(bus *events.LocalBus, maxNodeCount int) error
}

func initializeListener(l Listener, bus *events.LocalBus, maxNodeCount int) error {
	if na, ok := l.(NodeAwareListener); ok {
		return na.InitializeNodeAware(bus, maxNodeCount)
	}
	return l.Initialize(bus)
}
