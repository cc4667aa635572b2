package osgi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/csierra/osgi-component-dsl/pkg/pipe"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
	"github.com/csierra/osgi-component-dsl/pkg/tuple"
)

// probe records every token a result emits, in order.
type probe[T any] struct {
	added   []tuple.Tuple[T]
	removed []tuple.Tuple[T]
}

// runProbe materializes p against ctx, observes both channels, and starts
// it. The caller owns the returned result's close.
func runProbe[T any](t *testing.T, ctx ports.Context, p Source[T]) (*probe[T], *Result[T]) {
	t.Helper()

	r, err := p.program().op(ctx)
	require.NoError(t, err)

	pr := &probe[T]{}
	pipe.Tap(r.Added, func(tt tuple.Tuple[T]) { pr.added = append(pr.added, tt) })
	pipe.Tap(r.Removed, func(tt tuple.Tuple[T]) { pr.removed = append(pr.removed, tt) })

	require.NoError(t, r.start())
	return pr, r
}

// echoer is the service type most tests track; echo is its implementation.
type echoer interface {
	Echo() int
}

type echo struct {
	id int
}

func (e echo) Echo() int { return e.id }

// stamper is a second service type, for tests that need an inner registry
// view independent of the outer one.
type stamper interface {
	Stamp() string
}

type stamp struct{}

func (stamp) Stamp() string { return "stamped" }

// serviceCounter is a minimal customizer counting live services.
func serviceCounter(counter *int) ports.ServiceCustomizer {
	return ports.ServiceCustomizer{
		Adding: func(ref ports.ServiceReference) any {
			*counter++
			return ref
		},
		Removed: func(ports.ServiceReference, any) {
			*counter--
		},
	}
}
