package upload

import "context"

// EventKind is one of the UI event capabilities a front end must provide.
type EventKind int

const (
	DragEnter EventKind = iota
	DragLeave
	Drop
	Click
	Change
)

func (k EventKind) String() string {
	switch k {
	case DragEnter:
		return "dragenter"
	case DragLeave:
		return "dragleave"
	case Drop:
		return "drop"
	case Click:
		return "click"
	case Change:
		return "change"
	default:
		return "unknown"
	}
}

// Target names the control an event is aimed at.
type Target string

const (
	TargetDropZone       Target = "dropZone"
	TargetClickHere      Target = "clickHere"
	TargetFileInput      Target = "fileInput"
	TargetConvert        Target = "convertBtn"
	TargetReset          Target = "resetBtn"
	TargetDownload       Target = "downloadBtn"
	TargetNewConvert     Target = "newConvertBtn"
	TargetRetry          Target = "retryBtn"
	TargetGenerateTOC    Target = "generateToc"
	TargetHighlightStyle Target = "highlightStyle"
)

// Event is one user action.
type Event struct {
	Kind   EventKind
	Target Target
	// Files carries the file list of Drop and file input Change events.
	Files []File
	// Checked and Value carry the new value of option control Change events.
	Checked bool
	Value   string
}

// Transition turns one session into the next.
type Transition func(Session) Session

// Task is deferred work started by a handler. It runs off the event loop and
// returns the transition to apply back on it.
type Task func(ctx context.Context) Transition

// Handler reacts to an event. It returns nil when all its work is done.
type Handler func(Event) Task

// EventSource is the capability set a front end exposes for handler
// registration.
type EventSource interface {
	On(kind EventKind, target Target, h Handler)
}

type eventKey struct {
	kind   EventKind
	target Target
}

// Registry is an EventSource that front ends feed events into.
type Registry struct {
	handlers map[eventKey][]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[eventKey][]Handler)}
}

// On implements EventSource.
func (r *Registry) On(kind EventKind, target Target, h Handler) {
	if h == nil {
		return
	}
	k := eventKey{kind: kind, target: target}
	r.handlers[k] = append(r.handlers[k], h)
}

// handles reports whether anything is registered for kind on target.
func (r *Registry) handles(kind EventKind, target Target) bool {
	return len(r.handlers[eventKey{kind: kind, target: target}]) > 0
}

// Dispatch runs the handlers for ev in registration order and returns the
// tasks they started.
func (r *Registry) Dispatch(ev Event) []Task {
	var tasks []Task
	for _, h := range r.handlers[eventKey{kind: ev.Kind, target: ev.Target}] {
		if task := h(ev); task != nil {
			tasks = append(tasks, task)
		}
	}
	return tasks
}
