/*
Package mux multiplexes a build engine's global event stream into
per-submission streams for an evolving set of listeners.

# Architecture

	┌──────────────────────── MUX ROUTER ───────────────────────┐
	│                                                             │
	│  engine bus ──▶ Router.onEvent(evt) ──▶ records[submission]│
	│                     │                        │             │
	│                     │           ┌─────────────┴──────────┐ │
	│                     │           │   SubmissionRecord      │ │
	│                     │           │   - local bus           │ │
	│                     │           │   - listeners           │ │
	│                     │           │   - build-started       │ │
	│                     │           │     carrier             │ │
	│                     │           │   - first project ctx   │ │
	│                     │           └─────────────────────────┘ │
	│                     │                                       │
	│              records / in-flight project counts             │
	│              guarded by the Router's own lock                │
	└────────────────────────────────────────────────────────────┘

The Router holds one SubmissionRecord per live submission id. Event
delivery is single-threaded (the engine's own dispatch thread);
registration and unregistration may arrive concurrently from other
goroutines, so the Router's index and each record's state are guarded
by separate locks, and the Router never holds both at once.

# Bracketing

Before a record has observed its submission's first ProjectStarted, it
suppresses the engine's own BuildStarted/BuildFinished events. The
first ProjectStarted synthesizes a BuildStarted from the most recently
observed global BuildStarted (the "carrier"); the ProjectFinished whose
context matches that first project synthesizes a BuildFinished and
shuts the record down. A record that never sees a ProjectStarted before
being unregistered or the Mux shutting down never synthesizes anything
- its listeners see only Initialize and Shutdown.

# Failure isolation

A listener fault during SubmissionRecord.route shuts the whole record
down - the rest of that record's listeners stop receiving events too,
but sibling records are unaffected. See record.go for the exact
Error/Warning-path swallow asymmetry this package implements from the
specification.

# See Also

  - package events for the Event envelope and LocalBus this package
    routes events through.
*/
package mux
