package events

import "sync"

// ChannelKind identifies one of the local bus's typed sinks.
type ChannelKind int

const (
	ChannelMessage ChannelKind = iota
	ChannelWarning
	ChannelError
	ChannelBuildStarted
	ChannelBuildFinished
	ChannelProjectStarted
	ChannelProjectFinished
	ChannelTargetStarted
	ChannelTargetFinished
	ChannelTaskStarted
	ChannelTaskFinished
	ChannelCustom
	// ChannelStatus aggregates every lifecycle (started/finished) event.
	ChannelStatus
	// ChannelAny aggregates every event of any kind.
	ChannelAny
)

var kindChannel = map[Kind]ChannelKind{
	KindMessage:         ChannelMessage,
	KindWarning:         ChannelWarning,
	KindError:           ChannelError,
	KindBuildStarted:    ChannelBuildStarted,
	KindBuildFinished:   ChannelBuildFinished,
	KindProjectStarted:  ChannelProjectStarted,
	KindProjectFinished: ChannelProjectFinished,
	KindTargetStarted:   ChannelTargetStarted,
	KindTargetFinished:  ChannelTargetFinished,
	KindTaskStarted:     ChannelTaskStarted,
	KindTaskFinished:    ChannelTaskFinished,
	KindCustom:          ChannelCustom,
}

// Handler processes one Event delivered on a channel. A non-nil return
// marks a listener fault; see package mux for how faults are handled.
type Handler func(*Event) error

// subscription is an explicit record of one handler's registration,
// instead of a bare closure capturing outer state, so DetachAll can
// walk and clear them deterministically.
type subscription struct {
	owner   int
	kind    ChannelKind
	handler Handler
}

// LocalBus is the per-submission event sink a Listener subscribes to
// during Initialize. Its own mutex guards the subscriber lists (it is
// released before handlers run); the owning Submission Record also
// serializes delivery under its own lock, per the single-writer
// delivery model.
type LocalBus struct {
	mu     sync.Mutex
	subs   map[ChannelKind][]*subscription
	closed bool
}

// NewLocalBus returns an empty, open bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[ChannelKind][]*subscription)}
}

// Subscribe registers handler on kind under owner, an opaque id the
// caller can use to attribute faults back to a specific listener.
// Subscribing on a closed bus is a silent no-op: a listener that
// subscribes during Initialize after the record has already been torn
// down (a race the Router's locking prevents in practice, but cheap to
// guard here) should not panic.
func (b *LocalBus) Subscribe(owner int, kind ChannelKind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.subs[kind] = append(b.subs[kind], &subscription{owner: owner, kind: kind, handler: h})
}

// Dispatch fans evt out to every subscriber interested in it, in the
// order specific-kind channel, then status (for lifecycle kinds), then
// any. Every subscriber for this delivery is invoked regardless of
// whether an earlier one errored; Dispatch returns the first error
// seen, after the full fan-out has run.
func (b *LocalBus) Dispatch(evt *Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	kind, ok := kindChannel[evt.Kind]
	chain := make([]*subscription, 0, 4)
	if ok {
		chain = append(chain, b.subs[kind]...)
	}
	if evt.Kind.IsLifecycle() {
		chain = append(chain, b.subs[ChannelStatus]...)
	}
	chain = append(chain, b.subs[ChannelAny]...)
	b.mu.Unlock()

	var first error
	for _, sub := range chain {
		if err := sub.handler(evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// DetachAll clears every subscription and marks the bus closed.
// Idempotent: a second call observes the same (empty, closed) state.
func (b *LocalBus) DetachAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[ChannelKind][]*subscription)
	b.closed = true
}

// Closed reports whether DetachAll has been called.
func (b *LocalBus) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
