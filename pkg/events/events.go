package events

import "time"

// Kind identifies which variant of the build-event envelope an Event
// carries.
type Kind string

const (
	KindBuildStarted     Kind = "build.started"
	KindBuildFinished    Kind = "build.finished"
	KindProjectStarted   Kind = "project.started"
	KindProjectFinished  Kind = "project.finished"
	KindTargetStarted    Kind = "target.started"
	KindTargetFinished   Kind = "target.finished"
	KindTaskStarted      Kind = "task.started"
	KindTaskFinished     Kind = "task.finished"
	KindMessage         Kind = "message"
	KindWarning         Kind = "warning"
	KindError           Kind = "error"
	KindCustom          Kind = "custom"
)

// SentinelSubmissionID marks an event as originating inside the engine
// rather than on behalf of a specific submission. Events whose Context
// is nil are treated as carrying this id.
const SentinelSubmissionID = -1

// Context ties an event to a submission and, optionally, to the
// project/target/task node that raised it.
type Context struct {
	SubmissionID     int
	NodeID           string
	ProjectContextID string
	TargetID         string
	TaskID           string
}

// EffectiveSubmissionID returns the effective submission id of ctx,
// treating a nil Context as the sentinel engine-internal id.
func (ctx *Context) EffectiveSubmissionID() int {
	if ctx == nil {
		return SentinelSubmissionID
	}
	return ctx.SubmissionID
}

// Equal reports whether ctx and other identify the same
// project/target/task node. Two nil contexts are not considered equal
// (there is no "the" engine-internal node).
func (ctx *Context) Equal(other *Context) bool {
	if ctx == nil || other == nil {
		return false
	}
	return *ctx == *other
}

// Event is the common envelope for every build-event variant. Fields
// that only apply to a subset of Kind values are left zero-valued
// otherwise; Go has no closed sum type cheap enough to justify one
// struct per kind given how much of the envelope is shared.
type Event struct {
	Kind      Kind
	Message   string
	Help      string
	Sender    string
	Timestamp time.Time
	Context   *Context

	// BuildStarted only.
	Environment map[string]string

	// ProjectFinished / TargetFinished / TaskFinished only.
	Success *bool

	// Error / Warning only.
	Code        string
	File        string
	StartLine   int
	EndLine     int
	StartColumn int
	EndColumn   int
	Subcategory string
}

// EffectiveSubmissionID returns the submission id this event should be
// routed against, treating an untagged event as carrying the sentinel
// id.
func (e *Event) EffectiveSubmissionID() int {
	return e.Context.EffectiveSubmissionID()
}

// IsLifecycle reports whether Kind is one of the eight
// started/finished pair events that feed the aggregate status channel.
func (k Kind) IsLifecycle() bool {
	switch k {
	case KindBuildStarted, KindBuildFinished,
		KindProjectStarted, KindProjectFinished,
		KindTargetStarted, KindTargetFinished,
		KindTaskStarted, KindTaskFinished:
		return true
	default:
		return false
	}
}

func boolPtr(b bool) *bool { return &b }

// NewBuildStarted synthesizes a fresh BuildStarted carrying the given
// message, help text and environment snapshot, stamped with the
// current time. Callers must never cache and replay an existing
// BuildStarted value; a new Event is constructed every time one is
// needed.
func NewBuildStarted(message, help string, env map[string]string) *Event {
	return &Event{
		Kind:        KindBuildStarted,
		Message:     message,
		Help:        help,
		Environment: env,
		Timestamp:   time.Now(),
	}
}

// NewBuildFinished synthesizes an untagged BuildFinished carrying the
// given message, help text and success flag, stamped with the current
// time.
func NewBuildFinished(message, help string, success bool) *Event {
	return &Event{
		Kind:      KindBuildFinished,
		Message:   message,
		Help:      help,
		Success:   boolPtr(success),
		Timestamp: time.Now(),
	}
}

// NewProjectStarted constructs a ProjectStarted tagged with ctx.
func NewProjectStarted(sender, message string, ctx *Context) *Event {
	return &Event{
		Kind:      KindProjectStarted,
		Sender:    sender,
		Message:   message,
		Context:   ctx,
		Timestamp: time.Now(),
	}
}

// NewProjectFinished constructs a ProjectFinished tagged with ctx.
func NewProjectFinished(sender, message string, ctx *Context, success bool) *Event {
	return &Event{
		Kind:      KindProjectFinished,
		Sender:    sender,
		Message:   message,
		Context:   ctx,
		Success:   boolPtr(success),
		Timestamp: time.Now(),
	}
}

// NewMessage constructs a plain Message event.
func NewMessage(sender, message string, ctx *Context) *Event {
	return &Event{
		Kind:      KindMessage,
		Sender:    sender,
		Message:   message,
		Context:   ctx,
		Timestamp: time.Now(),
	}
}

// NewWarning constructs a Warning event, optionally tagged to a
// submission or left nil to broadcast under the sentinel id.
func NewWarning(sender, message string, ctx *Context, code string) *Event {
	return &Event{
		Kind:      KindWarning,
		Sender:    sender,
		Message:   message,
		Context:   ctx,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// NewError constructs an Error event, optionally tagged to a
// submission or left nil to broadcast under the sentinel id.
func NewError(sender, message string, ctx *Context, code string) *Event {
	return &Event{
		Kind:      KindError,
		Sender:    sender,
		Message:   message,
		Context:   ctx,
		Code:      code,
		Timestamp: time.Now(),
	}
}
