package osgi

import (
	"sync"

	"github.com/csierra/osgi-component-dsl/pkg/pipe"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
	"github.com/csierra/osgi-component-dsl/pkg/tuple"
)

// Map derives a program whose tokens carry f applied to the upstream values.
// Provenance identities are preserved, so removals still pair with the
// additions they undo.
func Map[T, S any](p Source[T], f func(T) S) *Program[S] {
	prog := p.program()

	return NewProgram(func(ctx ports.Context) (*Result[S], error) {
		r, err := prog.op(ctx)
		if err != nil {
			return nil, err
		}

		lift := func(t tuple.Tuple[T]) tuple.Tuple[S] {
			return tuple.Map(t, f)
		}

		return &Result[S]{
			Added:   pipe.Map(r.Added, lift),
			Removed: pipe.Map(r.Removed, lift),
			start:   r.start,
			close:   r.close,
		}, nil
	})
}

// FlatMap derives a program that materializes k(value) for every token the
// outer program adds and tears the inner program down when the outer token is
// removed. Inner additions flow to the derived program's added channel;
// residual inner removals fired by a teardown are not forwarded, the outer
// removal itself represents the cascade.
//
// Over a multi-valued source the cascade is fused into the source's own
// registry tracker, avoiding a double subscription.
func FlatMap[T, S any](p Source[T], k func(T) Source[S]) *Program[S] {
	prog := p.program()

	if prog.fuse != nil {
		return fusedFlatMap(prog.fuse, k)
	}

	return NewProgram(func(ctx ports.Context) (*Result[S], error) {
		var (
			mu   sync.Mutex
			live = make(map[tuple.ID]*Result[S])
		)

		// Set exactly once, by start; read at most once, by close.
		upstreamClose := func() {}

		added := pipe.New[S]()
		emitAdd := added.Source()

		res := &Result[S]{
			Added:   added,
			Removed: pipe.New[S](),
		}

		// Entries leave the table before their close runs, and closes run
		// outside the mutex: a teardown can re-enter the registry and fire
		// further events on this same stack.
		res.close = func() {
			mu.Lock()
			inners := make([]*Result[S], 0, len(live))
			for id, inner := range live {
				delete(live, id)
				inners = append(inners, inner)
			}
			mu.Unlock()

			for _, inner := range inners {
				inner.close()
			}

			upstreamClose()
		}

		res.start = func() error {
			outer, err := prog.op(ctx)
			if err != nil {
				return err
			}

			upstreamClose = outer.close

			pipe.Tap(outer.Added, func(to tuple.Tuple[T]) {
				inner := k(to.Value).program()

				ri, err := inner.op(ctx)
				if err != nil {
					ctx.Logger().Error("inner program failed", "err", err)
					return
				}

				mu.Lock()
				live[to.ID] = ri
				mu.Unlock()

				pipe.Tap(ri.Added, func(ts tuple.Tuple[S]) {
					emitAdd(ts)
				})

				if err := ri.start(); err != nil {
					ctx.Logger().Error("inner program start failed", "err", err)

					mu.Lock()
					delete(live, to.ID)
					mu.Unlock()

					ri.close()
				}
			})

			pipe.Tap(outer.Removed, func(to tuple.Tuple[T]) {
				mu.Lock()
				ri, ok := live[to.ID]
				delete(live, to.ID)
				mu.Unlock()

				if ok {
					ri.close()
				}
			})

			return outer.start()
		}

		return res, nil
	})
}

// Then sequences next after p, discarding p's values. With respect to output
// tokens, Just(v) followed by Then(q) behaves as q.
func Then[T, S any](p Source[T], next Source[S]) *Program[S] {
	return FlatMap(p, func(T) Source[S] { return next })
}

// Foreach runs k for its effects on the registry, discarding the inner
// values.
func Foreach[T, S any](p Source[T], k func(T) Source[S]) *Program[struct{}] {
	return Map(FlatMap(p, k), func(S) struct{} { return struct{}{} })
}
