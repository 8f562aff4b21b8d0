package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SubmissionsActive tracks how many Submission Records currently
	// exist in the Router's index.
	SubmissionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "buildmux_submissions_active",
			Help: "Number of submission records currently tracked by the router",
		},
	)

	// ListenersAttached tracks how many listeners are attached across
	// all live submission records.
	ListenersAttached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "buildmux_listeners_attached",
			Help: "Number of listeners currently attached across all submission records",
		},
	)

	// EventsRouted counts every event successfully handed to
	// LocalBus.Dispatch, by kind.
	EventsRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildmux_events_routed_total",
			Help: "Total number of events routed to a submission record, by kind",
		},
		[]string{"kind"},
	)

	// BuildStartedSynthesized counts per-record synthesized BuildStarted brackets.
	BuildStartedSynthesized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "buildmux_build_started_synthesized_total",
			Help: "Total number of synthesized BuildStarted events emitted to records",
		},
	)

	// BuildFinishedSynthesized counts per-record synthesized BuildFinished brackets.
	BuildFinishedSynthesized = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "buildmux_build_finished_synthesized_total",
			Help: "Total number of synthesized BuildFinished events emitted to records",
		},
	)

	// ListenerFaults counts listener faults observed during routing, by
	// outcome: "swallowed" (Error/Warning path, non-polite) or "fatal"
	// (record shut down as a result).
	ListenerFaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildmux_listener_faults_total",
			Help: "Total number of listener faults observed during event routing, by outcome",
		},
		[]string{"outcome"},
	)

	// RouteDuration times a single Router.dispatch → record.route round trip.
	RouteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "buildmux_route_duration_seconds",
			Help:    "Time taken to route a single event to its submission record",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		SubmissionsActive,
		ListenersAttached,
		EventsRouted,
		BuildStartedSynthesized,
		BuildFinishedSynthesized,
		ListenerFaults,
		RouteDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}
