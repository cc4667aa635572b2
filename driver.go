package osgi

import (
	"fmt"
	"sync/atomic"

	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

// Run executes a program tree against a host context: it materializes the
// program, starts it, and returns a result whose close is single-shot. Extra
// Close calls are safe; only the first performs work.
//
// If start fails, everything materialized so far is closed and the error is
// returned.
func Run[T any](ctx ports.Context, p Source[T]) (*Result[T], error) {
	prog := p.program()

	r, err := prog.op(ctx)
	if err != nil {
		return nil, err
	}

	var executed atomic.Bool
	inner := r.close

	wrapped := &Result[T]{
		Added:   r.Added,
		Removed: r.Removed,
		start:   r.start,
		close: func() {
			if executed.CompareAndSwap(false, true) {
				inner()
			}
		},
	}

	if err := r.start(); err != nil {
		wrapped.Close()
		return nil, fmt.Errorf("start program: %w", err)
	}

	return wrapped, nil
}

// ChangeContext returns a program that ignores the context it is executed
// against and runs p against ctx instead. Use it to embed sub-programs in a
// foreign context.
func ChangeContext[T any](ctx ports.Context, p Source[T]) *Program[T] {
	prog := p.program()

	return NewProgram(func(ports.Context) (*Result[T], error) {
		return prog.op(ctx)
	})
}
