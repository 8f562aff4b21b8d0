/*
Package metrics provides Prometheus metrics collection and exposition
for the build-event Mux.

It defines counters and gauges tracking Router and SubmissionRecord
activity - how many submissions are active, how many listeners are
attached, how many events of each kind have been routed, how often
BuildStarted/BuildFinished brackets were synthesized, and how listener
faults were resolved (swallowed on the Error/Warning path vs. fatal to
the owning record) - plus HTTP handlers for /healthz, /readyz and
/livez reporting whether a Router is currently bound.

# Usage

	metrics.SetReady(true) // after Router.Bind succeeds
	http.Handle("/metrics", metrics.Handler())
	http.HandleFunc("/healthz", metrics.HealthHandler())
	http.HandleFunc("/readyz", metrics.ReadyHandler())

# See Also

  - package mux for the Router and SubmissionRecord these metrics describe.
*/
package metrics
