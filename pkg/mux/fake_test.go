package mux

import (
	"sync"

	"github.com/cuemby/buildmux/pkg/events"
)

// fakeEngineBus is a synchronous, single-threaded stand-in for the
// real build engine's event bus, fit for deterministic scenario
// replay: Emit calls every matching handler inline, just like the real
// engine's single dispatch thread.
type fakeEngineBus struct {
	mu       sync.Mutex
	handlers map[events.Kind][]func(*events.Event)
}

func newFakeEngineBus() *fakeEngineBus {
	return &fakeEngineBus{handlers: make(map[events.Kind][]func(*events.Event))}
}

func (b *fakeEngineBus) Subscribe(kind events.Kind, handler func(*events.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

func (b *fakeEngineBus) Unsubscribe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[events.Kind][]func(*events.Event))
}

func (b *fakeEngineBus) Emit(evt *events.Event) {
	b.mu.Lock()
	handlers := append([]func(*events.Event){}, b.handlers[evt.Kind]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(evt)
	}
}

// recordingListener captures every call it receives, in order, for
// assertions. faultOn, if set, makes the handler for that kind return
// faultErr instead of nil the first time it fires.
type recordingListener struct {
	mu    sync.Mutex
	name  string
	calls []string

	faultOn  events.Kind
	faultErr error
	faulted  bool
}

func newRecordingListener(name string) *recordingListener {
	return &recordingListener{name: name}
}

func (l *recordingListener) Initialize(bus *events.LocalBus) error {
	l.record("initialize")
	bus.Subscribe(0, events.ChannelAny, l.onAny)
	return nil
}

func (l *recordingListener) Shutdown() {
	l.record("shutdown")
}

func (l *recordingListener) onAny(evt *events.Event) error {
	l.record(string(evt.Kind) + ":" + evt.Message)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.faultOn == evt.Kind && !l.faulted {
		l.faulted = true
		return l.faultErr
	}
	return nil
}

func (l *recordingListener) record(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *recordingListener) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// nodeAwareRecordingListener is a recordingListener that also satisfies
// NodeAwareListener, for exercising the capability dispatch in
// listener.go: Router attaches should prefer InitializeNodeAware over
// Initialize whenever a listener offers it.
type nodeAwareRecordingListener struct {
	*recordingListener
	nodes int
}

func newNodeAwareRecordingListener(name string) *nodeAwareRecordingListener {
	return &nodeAwareRecordingListener{recordingListener: newRecordingListener(name)}
}

func (l *nodeAwareRecordingListener) InitializeNodeAware(bus *events.LocalBus, maxNodeCount int) error {
	l.nodes = maxNodeCount
	return l.Initialize(bus)
}
