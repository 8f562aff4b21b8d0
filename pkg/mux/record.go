package mux

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cuemby/buildmux/pkg/events"
	"github.com/cuemby/buildmux/pkg/log"
	"github.com/cuemby/buildmux/pkg/metrics"
	"github.com/rs/zerolog"
)

// State is the lifecycle stage of a SubmissionRecord.
type State int

const (
	// StateRegistered: created, no ProjectStarted observed yet.
	StateRegistered State = iota
	// StateActive: first ProjectStarted observed, bracket synthesized.
	StateActive
	// StateTerminal: shut down; no further events are routed.
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateActive:
		return "active"
	case StateTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// SubmissionRecord holds everything the Mux tracks for one submission:
// its listeners, its own local bus, the build-started carrier it
// synthesizes from, and the first-project anchor that defines when it
// began and when it should bracket itself closed.
type SubmissionRecord struct {
	mu sync.Mutex

	submissionID int
	maxNodeCount int
	logger       zerolog.Logger

	bus       *events.LocalBus
	listeners []Listener

	buildStartedCarrier *events.Event
	firstProjectContext *events.Context
	shutdown            bool
	// listenerCountAtShutdown preserves the attached count across
	// shutdownLocked clearing the listener slice; listenerCount (and so
	// Router.Stats, for a record still in the index) keeps reporting it
	// after shutdown.
	listenerCountAtShutdown int
}

func newSubmissionRecord(submissionID, maxNodeCount int) *SubmissionRecord {
	return &SubmissionRecord{
		submissionID: submissionID,
		maxNodeCount: maxNodeCount,
		logger:       log.WithComponent("mux-record").With().Int("submission_id", submissionID).Logger(),
		bus:          events.NewLocalBus(),
	}
}

// State reports the record's current lifecycle stage.
func (r *SubmissionRecord) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.shutdown:
		return StateTerminal
	case r.firstProjectContext != nil:
		return StateActive
	default:
		return StateRegistered
	}
}

func (r *SubmissionRecord) listenerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shutdown {
		return r.listenerCountAtShutdown
	}
	return len(r.listeners)
}

// attach initializes listener against this record's local bus and adds
// it to the delivery order. A nil listener, a listener already
// attached to this record, or a record that has already shut down are
// all rejected.
func (r *SubmissionRecord) attach(listener Listener) error {
	if listener == nil {
		return ErrNullListener
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return ErrRecordShutDown
	}
	for _, existing := range r.listeners {
		if existing == listener {
			return ErrAlreadyAttached
		}
	}

	if err := initializeListener(listener, r.bus, r.maxNodeCount); err != nil {
		return fmt.Errorf("mux: listener initialize failed: %w", err)
	}

	r.listeners = append(r.listeners, listener)
	return nil
}

// setBuildStartedCarrier stores evt as the carrier used for
// synthesizing this record's BuildStarted, if none is stored yet.
// Idempotent within a build.
func (r *SubmissionRecord) setBuildStartedCarrier(evt *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.buildStartedCarrier == nil {
		r.buildStartedCarrier = evt
	}
}

// route is the single entry point by which every event kind reaches
// this record. See package doc for the algorithm; it holds the
// record's lock for the entire fan-out, so delivery to every attached
// listener happens under one writer.
func (r *SubmissionRecord) route(evt *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return nil
	}

	sid := evt.EffectiveSubmissionID()
	broadcast := (evt.Kind == events.KindError || evt.Kind == events.KindWarning) &&
		sid == events.SentinelSubmissionID
	if !broadcast && sid != r.submissionID {
		return nil
	}

	if evt.Kind == events.KindProjectStarted && r.firstProjectContext == nil {
		r.firstProjectContext = evt.Context
		if evt.Context != nil && evt.Context.NodeID != "" {
			r.logger = log.WithNodeID(evt.Context.NodeID).With().
				Int("submission_id", r.submissionID).Logger()
		}
		synthesized := r.synthesizeBuildStartedLocked()
		metrics.BuildStartedSynthesized.Inc()
		if err := r.dispatchLocked(synthesized); err != nil {
			return r.handleFaultLocked(synthesized, err)
		}
	}

	// A record that has not yet begun never sees the engine's own
	// raw BuildStarted/BuildFinished - it only ever sees the
	// synthesized pair bracketing its first project.
	if (evt.Kind == events.KindBuildStarted || evt.Kind == events.KindBuildFinished) &&
		r.firstProjectContext == nil {
		return nil
	}

	if err := r.dispatchLocked(evt); err != nil {
		return r.handleFaultLocked(evt, err)
	}

	if evt.Kind == events.KindProjectFinished && evt.Context.Equal(r.firstProjectContext) {
		r.terminateLocked(evt)
	}

	return nil
}

func (r *SubmissionRecord) synthesizeBuildStartedLocked() *events.Event {
	carrier := r.buildStartedCarrier
	if carrier == nil {
		r.logger.Warn().Msg("project started before any build-started carrier was observed; synthesizing from an empty carrier")
		return events.NewBuildStarted("", "", nil)
	}
	return events.NewBuildStarted(carrier.Message, carrier.Help, carrier.Environment)
}

func (r *SubmissionRecord) terminateLocked(evt *events.Event) {
	success := true
	if evt.Success != nil {
		success = *evt.Success
	}
	message := fmt.Sprintf("Build finished: %s", evt.Message)
	finished := events.NewBuildFinished(message, evt.Help, success)
	metrics.BuildFinishedSynthesized.Inc()
	if err := r.dispatchLocked(finished); err != nil {
		r.logger.Error().Err(err).Msg("listener fault while delivering synthesized build-finished; shutting down anyway")
	}
	r.shutdownLocked()
}

func (r *SubmissionRecord) dispatchLocked(evt *events.Event) error {
	err := r.bus.Dispatch(evt)
	metrics.EventsRouted.WithLabelValues(string(evt.Kind)).Inc()
	return err
}

// handleFaultLocked implements the asymmetric listener fault policy: a
// PoliteLoggerFailure always shuts the record down and is returned
// unchanged; any other error shuts the record down and is returned
// too, EXCEPT when the event being delivered was itself an Error or
// Warning, in which case the fault is logged and swallowed so a
// broadcast Error/Warning doesn't tear down every active record.
func (r *SubmissionRecord) handleFaultLocked(evt *events.Event, err error) error {
	var polite *PoliteLoggerFailure
	if errors.As(err, &polite) {
		metrics.ListenerFaults.WithLabelValues("fatal").Inc()
		r.shutdownLocked()
		return err
	}

	if evt.Kind == events.KindError || evt.Kind == events.KindWarning {
		metrics.ListenerFaults.WithLabelValues("swallowed").Inc()
		r.logger.Warn().Err(err).Str("event_kind", string(evt.Kind)).
			Msg("listener fault swallowed on broadcast path to preserve stream continuity")
		return nil
	}

	metrics.ListenerFaults.WithLabelValues("fatal").Inc()
	r.shutdownLocked()
	return err
}

// Shutdown tears the record down: detaches every local-bus
// subscription, invokes each listener's terminal hook in registration
// order, and clears the listener list. Idempotent.
func (r *SubmissionRecord) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdownLocked()
}

func (r *SubmissionRecord) shutdownLocked() {
	if r.shutdown {
		return
	}
	r.shutdown = true
	r.listenerCountAtShutdown = len(r.listeners)
	r.bus.DetachAll()
	for _, l := range r.listeners {
		l.Shutdown()
	}
	r.listeners = nil
}
