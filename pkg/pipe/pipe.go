package pipe

import "github.com/csierra/osgi-component-dsl/pkg/tuple"

// Pipe is a synchronous, unbuffered broadcaster of provenance tuples.
// Emitting delivers to every listener installed at that moment, in
// installation order, on the emitter's stack. A listener installed while an
// emission is in flight does not see the current event.
//
// Pipes assume a single producer or external serialization; they add no
// locking of their own beyond what the host's dispatch contract provides.
type Pipe[T any] struct {
	listeners []func(tuple.Tuple[T])
}

// New creates a pipe with an empty listener set.
func New[T any]() *Pipe[T] {
	return &Pipe[T]{}
}

// Source returns the unique emit handle for the pipe.
func (p *Pipe[T]) Source() func(tuple.Tuple[T]) {
	return p.emit
}

func (p *Pipe[T]) emit(t tuple.Tuple[T]) {
	// Snapshot so listeners installed by listeners skip the current event.
	installed := p.listeners
	for _, l := range installed {
		l(t)
	}
}

// Tap installs a pure side-effect listener.
func Tap[T any](p *Pipe[T], f func(tuple.Tuple[T])) {
	p.listeners = append(p.listeners, f)
}

// Map installs a forwarding listener and returns the downstream pipe whose
// emissions are f applied to each upstream tuple.
func Map[T, S any](p *Pipe[T], f func(tuple.Tuple[T]) tuple.Tuple[S]) *Pipe[S] {
	down := New[S]()
	emit := down.emit
	p.listeners = append(p.listeners, func(t tuple.Tuple[T]) {
		emit(f(t))
	})
	return down
}
