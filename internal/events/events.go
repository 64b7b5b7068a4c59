// Package events implements the engine's event bus.
//
// It is a direct generalization of the teacher's EventEmitter
// (On/Emit over a mutex-guarded listener map): instead of a bare
// string name plus an untyped payload, Emit carries one of the closed
// Event variants from the facade surface (§6.6), so subscribers never
// need to type-assert an any payload.
package events

import "sync"

// Kind identifies which Event variant is set.
type Kind string

const (
	KindProgress Kind = "progress"
	KindStdio    Kind = "stdio"
	KindStarted  Kind = "started"
	KindExited   Kind = "exited"
	KindError    Kind = "error"
)

// Progress reports fetch-engine completion fraction for an install.
type Progress struct {
	ID         string
	Fraction   float64
	BytesDone  int64
	BytesTotal int64
}

// Stdio carries one line of a spawned process's merged stdout/stderr.
type Stdio struct {
	ID   string
	Line string
}

// Started reports a spawned child process's pid.
type Started struct {
	ID  string
	PID int
}

// Exited reports a spawned child process's exit code.
type Exited struct {
	ID   string
	Code int
}

// Error reports a non-fatal or fatal error observed during an
// operation, tagged with an error-kind string (see launchererr.Kind).
type Error struct {
	ID     string
	Kind   string
	Detail string
}

// Event is the closed union of everything the facade emits. Exactly
// one of the pointer fields is non-nil, matching Kind.
type Event struct {
	Kind     Kind
	Progress *Progress
	Stdio    *Stdio
	Started  *Started
	Exited   *Exited
	Error    *Error
}

func ProgressEvent(p Progress) Event { return Event{Kind: KindProgress, Progress: &p} }
func StdioEvent(s Stdio) Event       { return Event{Kind: KindStdio, Stdio: &s} }
func StartedEvent(s Started) Event   { return Event{Kind: KindStarted, Started: &s} }
func ExitedEvent(e Exited) Event     { return Event{Kind: KindExited, Exited: &e} }
func ErrorEvent(e Error) Event       { return Event{Kind: KindError, Error: &e} }

// Sink receives emitted events. Implementations must not block
// indefinitely; the bus calls sinks synchronously under its read
// lock's release, same as the teacher's Emit.
type Sink func(Event)

// Bus is a thread-safe, many-subscriber event emitter.
type Bus struct {
	mu        sync.RWMutex
	listeners []Sink
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers sink to receive every future Emit call.
func (b *Bus) Subscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, sink)
}

// Emit synchronously calls every subscribed sink with evt. The
// listener slice is copied under the read lock and then released
// before invoking handlers, so a handler that calls Subscribe does
// not deadlock.
func (b *Bus) Emit(evt Event) {
	b.mu.RLock()
	sinks := make([]Sink, len(b.listeners))
	copy(sinks, b.listeners)
	b.mu.RUnlock()

	for _, sink := range sinks {
		sink(evt)
	}
}
