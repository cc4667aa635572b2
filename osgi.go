package osgi

import (
	"github.com/csierra/osgi-component-dsl/pkg/pipe"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

// Operation materializes a program against a host context.
type Operation[T any] func(ctx ports.Context) (*Result[T], error)

// Result is the live handle of an executing program: the added and removed
// token channels, plus the start and close actions. A Result is owned by
// exactly one caller; its close releases every resource acquired since start.
type Result[T any] struct {
	Added   *pipe.Pipe[T]
	Removed *pipe.Pipe[T]

	start func() error
	close func()
}

// Close releases the resources held by the result. Inner results produced by
// the FlatMap cascade are closed exactly once by the cascade itself; only the
// driver-level close carries a single-shot guard.
func (r *Result[T]) Close() {
	if r.close != nil {
		r.close()
	}
}

// Close is the free-function form of (*Result).Close, mirroring the driver
// surface.
func Close[T any](r *Result[T]) {
	r.Close()
}

// Program is an immutable description of a reactive computation. It does
// nothing until executed against a context by Run.
type Program[T any] struct {
	op Operation[T]

	// fuse is non-nil only for multi-valued registry sources; FlatMap uses
	// it to integrate the cascade into a single host tracker.
	fuse fuser[T]
}

// NewProgram wraps a raw operation into a program. Use it to add custom
// primitives alongside the built-in ones.
func NewProgram[T any](op Operation[T]) *Program[T] {
	return &Program[T]{op: op}
}

// Source is anything executable as a program of T: a *Program or a *Multi.
// Combinators accept Source so multi-valued programs keep their fused
// tracking behavior through composition.
type Source[T any] interface {
	program() *Program[T]
}

func (p *Program[T]) program() *Program[T] { return p }
