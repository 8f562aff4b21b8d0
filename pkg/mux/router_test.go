package mux

import (
	"testing"

	"github.com/cuemby/buildmux/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRouterBindRejectsDoubleBind and friends exercise the lifecycle
// guards around Bind/Unbind/Register.
func TestRouterBindRejectsDoubleBind(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 4))
	assert.ErrorIs(t, rt.Bind(bus, 4), ErrAlreadyBound)
	assert.True(t, rt.Bound())
}

func TestRouterRegisterBeforeBindFails(t *testing.T) {
	rt := NewRouter()
	err := rt.Register(1, newRecordingListener("l"))
	assert.ErrorIs(t, err, ErrNotBound)
}

func TestRouterUnbindRejectsWhenNotBound(t *testing.T) {
	rt := NewRouter()
	assert.ErrorIs(t, rt.Unbind(), ErrNotBound)
}

func TestRouterNormalizesNonPositiveMaxNodeCount(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 0))
	assert.Equal(t, 1, rt.maxNodeCount)
}

// TestRouterLateRegistrationReceivesCarrier checks that a listener
// registered after the engine's BuildStarted has already fired still
// sees a synthesized BuildStarted built from that carrier once its
// first ProjectStarted arrives.
func TestRouterLateRegistrationReceivesCarrier(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 1))

	bus.Emit(events.NewBuildStarted("release build", "", map[string]string{"CI": "1"}))

	l := newRecordingListener("l")
	require.NoError(t, rt.Register(7, l))

	bus.Emit(events.NewProjectStarted("engine", "project one", ctx(7, "p")))

	assert.Contains(t, l.Calls(), "build.started:release build")
}

// TestRouterEarlyRegistrationReceivesLaterCarrier checks that
// registering before BuildStarted still works, because the Router
// propagates the carrier to every existing record when BuildStarted
// arrives.
func TestRouterEarlyRegistrationReceivesLaterCarrier(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 1))

	l := newRecordingListener("l")
	require.NoError(t, rt.Register(42, l))

	bus.Emit(events.NewBuildStarted("bs", "", nil))
	bus.Emit(events.NewProjectStarted("engine", "p", ctx(42, "p")))

	assert.Equal(t, []string{"initialize", "build.started:bs", "project.started:p"}, l.Calls())
}

// TestRouterIsolatesSubmissions checks that a listener registered for
// one submission never sees events for another, and is shut down
// cleanly on Unbind without ever seeing a synthesized bracket.
func TestRouterIsolatesSubmissions(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 1))

	l := newRecordingListener("l")
	require.NoError(t, rt.Register(9, l))

	bus.Emit(events.NewProjectStarted("engine", "other", ctx(8, "p")))
	bus.Emit(events.NewProjectFinished("engine", "other done", ctx(8, "p"), true))

	assert.Equal(t, []string{"initialize"}, l.Calls())

	require.NoError(t, rt.Unbind())
	assert.Equal(t, []string{"initialize", "shutdown"}, l.Calls())
}

// TestRouterRejectsRegistrationAfterSubmissionStarted checks that once
// a submission has an in-flight project, a second Register call for
// the same id is rejected, and the first listener is unaffected.
func TestRouterRejectsRegistrationAfterSubmissionStarted(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 1))

	l1 := newRecordingListener("l1")
	require.NoError(t, rt.Register(3, l1))
	bus.Emit(events.NewProjectStarted("engine", "p", ctx(3, "p")))

	l2 := newRecordingListener("l2")
	err := rt.Register(3, l2)
	assert.ErrorIs(t, err, ErrSubmissionAlreadyStarted)
	assert.Empty(t, l2.Calls())

	active, listeners := rt.Stats()
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, listeners)
}

// TestRouterAutoUnregistersOnTerminalProjectFinished covers the
// interaction between bracket termination inside the record and the
// Router's own in-flight index: once the submission's last open
// project finishes, the Router forgets it and a later Register for the
// same id is treated as fresh.
func TestRouterAutoUnregistersOnTerminalProjectFinished(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 1))

	l1 := newRecordingListener("l1")
	require.NoError(t, rt.Register(5, l1))

	c := ctx(5, "root")
	bus.Emit(events.NewProjectStarted("engine", "start", c))
	bus.Emit(events.NewProjectFinished("engine", "finish", c, true))

	assert.Contains(t, l1.Calls(), "shutdown")
	active, listeners := rt.Stats()
	assert.Equal(t, 0, active)
	assert.Equal(t, 0, listeners, "listeners of a forgotten submission must no longer be counted")

	l2 := newRecordingListener("l2")
	require.NoError(t, rt.Register(5, l2))
	active, listeners = rt.Stats()
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, listeners)
}

// TestRouterBroadcastsSentinelErrorsToAllRecords checks that, at the
// router level, an untagged Error reaches every currently registered
// submission.
func TestRouterBroadcastsSentinelErrorsToAllRecords(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 1))

	l1 := newRecordingListener("l1")
	l2 := newRecordingListener("l2")
	require.NoError(t, rt.Register(1, l1))
	require.NoError(t, rt.Register(2, l2))

	bus.Emit(events.NewError("engine", "disk full", nil, "E100"))

	assert.Contains(t, l1.Calls(), "error:disk full")
	assert.Contains(t, l2.Calls(), "error:disk full")
}

// TestRouterUnregisterShutsDownAndDecrementsStats covers the explicit
// Unregister path, as distinct from the automatic one driven by
// ProjectFinished bracket closure.
func TestRouterUnregisterShutsDownAndDecrementsStats(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 1))

	l := newRecordingListener("l")
	require.NoError(t, rt.Register(99, l))

	assert.True(t, rt.Unregister(99))
	assert.False(t, rt.Unregister(99))
	assert.Contains(t, l.Calls(), "shutdown")

	active, listeners := rt.Stats()
	assert.Equal(t, 0, active)
	assert.Equal(t, 0, listeners)
}

// TestRouterUnbindShutsDownEveryRecordAndResetsIndices covers Unbind's
// full-teardown behavior and that a subsequent Bind starts clean.
func TestRouterUnbindShutsDownEveryRecordAndResetsIndices(t *testing.T) {
	rt := NewRouter()
	bus := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus, 1))

	l1 := newRecordingListener("l1")
	l2 := newRecordingListener("l2")
	require.NoError(t, rt.Register(1, l1))
	require.NoError(t, rt.Register(2, l2))

	require.NoError(t, rt.Unbind())
	assert.Contains(t, l1.Calls(), "shutdown")
	assert.Contains(t, l2.Calls(), "shutdown")
	assert.False(t, rt.Bound())

	bus2 := newFakeEngineBus()
	require.NoError(t, rt.Bind(bus2, 1))
	active, listeners := rt.Stats()
	assert.Equal(t, 0, active)
	assert.Equal(t, 0, listeners)
}
