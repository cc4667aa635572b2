package osgi

import (
	"sync/atomic"

	"github.com/csierra/osgi-component-dsl/pkg/pipe"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
	"github.com/csierra/osgi-component-dsl/pkg/tuple"
)

// fuser integrates a registry view with a per-value spawn callback. The view
// invokes spawn for each value entering it and keeps the returned detach,
// invoking it when the value leaves. A modification is detach followed by
// spawn with the replacement value.
type fuser[T any] func(ctx ports.Context, spawn func(T) (detach func())) (start func() error, stop func(), err error)

// Multi is a program whose source is a registry view inherently producing
// zero or more concurrent tokens. FlatMap over a Multi spawns one tracked
// inner program per value inside the view's own tracker, and Once restricts
// the view to its first emission.
type Multi[T any] struct {
	Program[T]
}

func newMulti[T any](fz fuser[T]) *Multi[T] {
	m := &Multi[T]{}
	m.fuse = fz
	m.op = func(ctx ports.Context) (*Result[T], error) {
		added := pipe.New[T]()
		removed := pipe.New[T]()
		emitAdd := added.Source()
		emitRemove := removed.Source()

		start, stop, err := fz(ctx, func(v T) func() {
			t := tuple.New(v)
			emitAdd(t)
			return func() { emitRemove(t) }
		})
		if err != nil {
			return nil, err
		}

		return &Result[T]{
			Added:   added,
			Removed: removed,
			start:   start,
			close:   stop,
		}, nil
	}
	return m
}

// Once collapses the view to its first-ever emission. The slot is never
// reset, even when the chosen value departs, so Once is deliberately
// non-reactive to the departure of its choice.
func (m *Multi[T]) Once() *Program[T] {
	var taken atomic.Bool

	return FlatMap[T, T](m, func(v T) Source[T] {
		if taken.CompareAndSwap(false, true) {
			return Just(v)
		}
		return Nothing[T]()
	})
}

// fusedFlatMap runs the dependency cascade inside a single registry tracker:
// each value entering the view materializes an inner program, and its detach
// closes that program and replays its last added token on the removed
// channel.
func fusedFlatMap[T, S any](fz fuser[T], k func(T) Source[S]) *Program[S] {
	return NewProgram(func(ctx ports.Context) (*Result[S], error) {
		added := pipe.New[S]()
		removed := pipe.New[S]()
		emitAdd := added.Source()
		emitRemove := removed.Source()

		start, stop, err := fz(ctx, func(v T) func() {
			inner := k(v).program()

			ri, err := inner.op(ctx)
			if err != nil {
				ctx.Logger().Error("inner program failed", "err", err)
				return func() {}
			}

			var last *tuple.Tuple[S]
			pipe.Tap(ri.Added, func(ts tuple.Tuple[S]) {
				last = &ts
				emitAdd(ts)
			})

			if err := ri.start(); err != nil {
				ctx.Logger().Error("inner program start failed", "err", err)
				ri.close()
				return func() {}
			}

			return func() {
				ri.close()
				if last != nil {
					emitRemove(*last)
				}
			}
		})
		if err != nil {
			return nil, err
		}

		return &Result[S]{
			Added:   added,
			Removed: removed,
			start:   start,
			close:   stop,
		}, nil
	})
}
