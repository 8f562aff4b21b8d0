package mux

import (
	"sync"

	"github.com/cuemby/buildmux/pkg/events"
	"github.com/cuemby/buildmux/pkg/log"
	"github.com/cuemby/buildmux/pkg/metrics"
	"github.com/rs/zerolog"
)

// engineEventKinds is every kind the Router subscribes to on bind. All
// twelve are handled by onEvent; BuildStarted/BuildFinished only
// maintain the carrier and are never forwarded to records, the other
// ten are forwarded, and ProjectStarted/ProjectFinished additionally
// maintain the in-flight project counts.
var engineEventKinds = []events.Kind{
	events.KindBuildStarted, events.KindBuildFinished,
	events.KindProjectStarted, events.KindProjectFinished,
	events.KindTargetStarted, events.KindTargetFinished,
	events.KindTaskStarted, events.KindTaskFinished,
	events.KindMessage, events.KindWarning, events.KindError, events.KindCustom,
}

// Router is the process-wide singleton that demultiplexes one
// EngineBus into per-submission SubmissionRecords. Create one with
// NewRouter, Bind it to an engine bus, and Register/Unregister
// listeners against submission ids as they come and go.
type Router struct {
	mu sync.Mutex

	bound        bool
	bus          EngineBus
	maxNodeCount int

	records          map[int]*SubmissionRecord
	inFlightProjects map[int]int
	carrier          *events.Event

	logger zerolog.Logger
}

// NewRouter returns an unbound Router.
func NewRouter() *Router {
	return &Router{
		records:          make(map[int]*SubmissionRecord),
		inFlightProjects: make(map[int]int),
		logger:           log.WithComponent("mux-router"),
	}
}

// Bind installs the Router's handlers on bus and begins routing. A
// non-positive maxNodeCount is normalized to 1, matching the documented
// default.
func (rt *Router) Bind(bus EngineBus, maxNodeCount int) error {
	rt.mu.Lock()
	if rt.bound {
		rt.mu.Unlock()
		return ErrAlreadyBound
	}
	if maxNodeCount <= 0 {
		maxNodeCount = 1
	}
	rt.bus = bus
	rt.maxNodeCount = maxNodeCount
	rt.bound = true
	rt.mu.Unlock()

	for _, kind := range engineEventKinds {
		bus.Subscribe(kind, rt.onEvent)
	}

	metrics.SetReady(true)
	rt.logger.Info().Int("max_node_count", maxNodeCount).Msg("mux router bound")
	return nil
}

// Unbind reverses Bind, forcing every surviving record to shut down
// and clearing all indices.
func (rt *Router) Unbind() error {
	rt.mu.Lock()
	if !rt.bound {
		rt.mu.Unlock()
		return ErrNotBound
	}
	bus := rt.bus
	records := rt.allRecordsLocked()
	rt.records = make(map[int]*SubmissionRecord)
	rt.inFlightProjects = make(map[int]int)
	rt.carrier = nil
	rt.bound = false
	rt.bus = nil
	rt.mu.Unlock()

	if bus != nil {
		bus.Unsubscribe()
	}
	for _, rec := range records {
		rec.Shutdown()
	}
	metrics.SetReady(false)
	rt.logger.Info().Int("records_shutdown", len(records)).Msg("mux router unbound")
	return nil
}

// Register attaches listener to the record for submissionID, creating
// the record on first use. A submission that already has an in-flight
// project (i.e. has begun) rejects further registration.
func (rt *Router) Register(submissionID int, listener Listener) error {
	if listener == nil {
		return ErrNullListener
	}

	rt.mu.Lock()
	if !rt.bound {
		rt.mu.Unlock()
		return ErrNotBound
	}
	if _, started := rt.inFlightProjects[submissionID]; started {
		rt.mu.Unlock()
		return ErrSubmissionAlreadyStarted
	}

	rec, exists := rt.records[submissionID]
	if !exists {
		rec = newSubmissionRecord(submissionID, rt.maxNodeCount)
		rt.records[submissionID] = rec
	}
	carrier := rt.carrier
	rt.mu.Unlock()

	if carrier != nil {
		rec.setBuildStartedCarrier(carrier)
	}

	return rec.attach(listener)
}

// Unregister removes and shuts down the record for submissionID, if
// one exists. Returns whether a record existed.
func (rt *Router) Unregister(submissionID int) bool {
	rt.mu.Lock()
	rec, ok := rt.records[submissionID]
	if ok {
		delete(rt.records, submissionID)
		delete(rt.inFlightProjects, submissionID)
	}
	rt.mu.Unlock()

	if ok {
		rec.Shutdown()
	}
	return ok
}

// Stats reports the number of live records and the total listeners
// attached across all of them, for metrics.Collector and operational
// logging.
func (rt *Router) Stats() (activeSubmissions, listenersAttached int) {
	rt.mu.Lock()
	records := rt.allRecordsLocked()
	rt.mu.Unlock()

	activeSubmissions = len(records)
	for _, rec := range records {
		listenersAttached += rec.listenerCount()
	}
	return
}

// Bound reports whether Bind has succeeded without a matching Unbind.
func (rt *Router) Bound() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.bound
}

func (rt *Router) allRecordsLocked() []*SubmissionRecord {
	records := make([]*SubmissionRecord, 0, len(rt.records))
	for _, rec := range rt.records {
		records = append(records, rec)
	}
	return records
}

// onEvent is installed as the handler for every subscribed kind.
// BuildStarted/BuildFinished only update the carrier. Every other kind
// is forwarded to the relevant record(s) first, then the Router's own
// in-flight bookkeeping is updated - a record may therefore have
// already self-terminated by the time the bookkeeping below runs.
func (rt *Router) onEvent(evt *events.Event) {
	switch evt.Kind {
	case events.KindBuildStarted:
		rt.handleBuildStarted(evt)
		return
	case events.KindBuildFinished:
		rt.handleBuildFinished()
		return
	}

	timer := metrics.NewTimer()
	rt.dispatch(evt)
	timer.ObserveDuration(metrics.RouteDuration)

	switch evt.Kind {
	case events.KindProjectStarted:
		rt.bookkeepProjectStarted(evt)
	case events.KindProjectFinished:
		rt.bookkeepProjectFinished(evt)
	}
}

func (rt *Router) handleBuildStarted(evt *events.Event) {
	rt.mu.Lock()
	rt.carrier = evt
	records := rt.allRecordsLocked()
	rt.mu.Unlock()

	for _, rec := range records {
		rec.setBuildStartedCarrier(evt)
	}
}

func (rt *Router) handleBuildFinished() {
	rt.mu.Lock()
	rt.carrier = nil
	rt.mu.Unlock()
}

func (rt *Router) dispatch(evt *events.Event) {
	sid := evt.EffectiveSubmissionID()
	broadcast := (evt.Kind == events.KindError || evt.Kind == events.KindWarning) &&
		sid == events.SentinelSubmissionID

	if broadcast {
		rt.mu.Lock()
		records := rt.allRecordsLocked()
		rt.mu.Unlock()
		for _, rec := range records {
			if err := rec.route(evt); err != nil {
				rt.logger.Error().Err(err).Int("submission_id", sid).Msg("listener fault during broadcast routing")
			}
		}
		return
	}

	rt.mu.Lock()
	rec, ok := rt.records[sid]
	rt.mu.Unlock()
	if !ok {
		return
	}
	if err := rec.route(evt); err != nil {
		rt.logger.Error().Err(err).Int("submission_id", sid).Msg("listener fault during routing")
	}
}

func (rt *Router) bookkeepProjectStarted(evt *events.Event) {
	sid := evt.EffectiveSubmissionID()
	rt.mu.Lock()
	rt.inFlightProjects[sid]++
	rt.mu.Unlock()
}

func (rt *Router) bookkeepProjectFinished(evt *events.Event) {
	sid := evt.EffectiveSubmissionID()

	rt.mu.Lock()
	n, ok := rt.inFlightProjects[sid]
	if !ok {
		rt.mu.Unlock()
		return
	}
	n--
	if n > 0 {
		rt.inFlightProjects[sid] = n
		rt.mu.Unlock()
		return
	}
	delete(rt.inFlightProjects, sid)
	rec, hadRecord := rt.records[sid]
	if hadRecord {
		delete(rt.records, sid)
	}
	rt.mu.Unlock()

	if hadRecord {
		rec.Shutdown()
	}
}
