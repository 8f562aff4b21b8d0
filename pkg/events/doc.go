/*
Package events defines the build-event model and the per-submission
local bus that fans events out to listeners.

An Event is a single tagged envelope covering every lifecycle notice a
build engine can raise: build/project/target/task started and
finished, plain messages, warnings, errors, and custom events. Events
either carry a Context (tagging them to one submission) or are
engine-internal, in which case Context is nil and the event is treated
as carrying the sentinel submission id.

The LocalBus is not a buffered queue. It holds one ordered subscriber
list per channel kind and two aggregate lists (status, for lifecycle
events, and any, for everything), and Dispatch invokes subscribers
inline on the calling goroutine, in registration order. This keeps
event delivery synchronous with the engine's own dispatch thread, which
is required for the Mux's fail-fast failure isolation: a listener fault
must be observable to the caller before the next event is ever routed.

# Channel fan-out order

For a single event, Dispatch notifies subscribers in this order:

	specific-kind channel  →  status channel (lifecycle events only)  →  any channel

Every subscriber for the event is invoked even if an earlier one
returns an error; Dispatch collects and returns the first error after
the full fan-out completes. Callers (see package mux) decide what to do
with that error - whether to shut the record down or swallow it depends
on which event kind was being delivered, not on Dispatch itself.

# See Also

  - package mux for the Submission Record and Router that own a
    LocalBus per submission and decide how to react to Dispatch errors.
*/
package events
