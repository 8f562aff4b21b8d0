package main

import (
	"sync"
	"time"

	"github.com/cuemby/buildmux/pkg/events"
	"github.com/cuemby/buildmux/pkg/log"
	"github.com/cuemby/buildmux/pkg/mux"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// demoEngineBus is a minimal in-process EngineBus: it exists to give
// buildmuxd's serve command something to bind the router to without a
// real build engine attached, and to let --demo drive a couple of
// synthetic submissions through the full routing path.
type demoEngineBus struct {
	mu       sync.Mutex
	handlers map[events.Kind][]func(*events.Event)
}

func newDemoEngineBus() *demoEngineBus {
	return &demoEngineBus{handlers: make(map[events.Kind][]func(*events.Event))}
}

func (b *demoEngineBus) Subscribe(kind events.Kind, handler func(*events.Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
}

func (b *demoEngineBus) Unsubscribe() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[events.Kind][]func(*events.Event))
}

func (b *demoEngineBus) emit(evt *events.Event) {
	b.mu.Lock()
	handlers := append([]func(*events.Event){}, b.handlers[evt.Kind]...)
	b.mu.Unlock()
	for _, h := range handlers {
		h(evt)
	}
}

// consoleListener logs every event it receives through a component
// logger. It is registered against one submission at a time; --demo
// attaches a fresh one to each synthetic submission it creates.
type consoleListener struct {
	logger zerolog.Logger
}

func newConsoleListener(submissionID int) *consoleListener {
	return &consoleListener{
		logger: log.WithComponent("console-listener").With().Int("submission_id", submissionID).Logger(),
	}
}

func (l *consoleListener) Initialize(bus *events.LocalBus) error {
	bus.Subscribe(0, events.ChannelAny, func(evt *events.Event) error {
		l.logger.Info().Str("kind", string(evt.Kind)).Str("message", evt.Message).Msg("event")
		return nil
	})
	return nil
}

func (l *consoleListener) Shutdown() {
	l.logger.Info().Msg("listener shutdown")
}

// runDemoTraffic drives two synthetic submissions, each with one root
// project and one message, through bus - enough to observe a full
// BuildStarted/ProjectStarted/.../ProjectFinished/BuildFinished
// bracket on the demo listener and in the router's metrics.
func runDemoTraffic(bus *demoEngineBus, router *mux.Router, logger zerolog.Logger) {
	time.Sleep(500 * time.Millisecond)

	for i := 0; i < 2; i++ {
		submissionID := i + 1
		nodeID := uuid.NewString()

		if err := router.Register(submissionID, newConsoleListener(submissionID)); err != nil {
			logger.Error().Err(err).Int("submission_id", submissionID).Msg("demo registration failed")
			continue
		}

		bus.emit(events.NewBuildStarted("demo build", "", map[string]string{"DEMO": "1"}))

		ctx := &events.Context{SubmissionID: submissionID, NodeID: nodeID, ProjectContextID: "root"}
		bus.emit(events.NewProjectStarted("demo-engine", "building demo project", ctx))
		bus.emit(events.NewMessage("demo-engine", "compiling", ctx))
		bus.emit(events.NewProjectFinished("demo-engine", "demo project done", ctx, true))

		bus.emit(events.NewBuildFinished("demo build", "", true))

		time.Sleep(500 * time.Millisecond)
	}
}
