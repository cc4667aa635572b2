package osgi

import (
	"fmt"

	"github.com/csierra/osgi-component-dsl/pkg/pipe"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
	"github.com/csierra/osgi-component-dsl/pkg/tuple"
)

// Just emits a single token carrying v on start. It never removes and its
// close is a no-op.
func Just[T any](v T) *Program[T] {
	return NewProgram(func(ports.Context) (*Result[T], error) {
		added := pipe.New[T]()
		emit := added.Source()

		return &Result[T]{
			Added:   added,
			Removed: pipe.New[T](),
			start: func() error {
				emit(tuple.New(v))
				return nil
			},
			close: func() {},
		}, nil
	})
}

// Nothing never emits.
func Nothing[T any]() *Program[T] {
	return NewProgram(func(ports.Context) (*Result[T], error) {
		return &Result[T]{
			Added:   pipe.New[T](),
			Removed: pipe.New[T](),
			start:   func() error { return nil },
			close:   func() {},
		}, nil
	})
}

// OnClose attaches an arbitrary teardown action at a chosen point in a
// composition. It emits a single unit token on start and runs action on
// close.
func OnClose(action func()) *Program[struct{}] {
	return NewProgram(func(ports.Context) (*Result[struct{}], error) {
		added := pipe.New[struct{}]()
		emit := added.Source()

		return &Result[struct{}]{
			Added:   added,
			Removed: pipe.New[struct{}](),
			start: func() error {
				emit(tuple.New(struct{}{}))
				return nil
			},
			close: action,
		}, nil
	})
}

// Register publishes svc under T's class name when the program materializes,
// emits the registration handle on start, and unregisters on close.
// Unregister failures at close are swallowed; teardown is best effort.
func Register[T any](svc T, props map[string]any) *Program[ports.ServiceRegistration] {
	return NewProgram(func(ctx ports.Context) (*Result[ports.ServiceRegistration], error) {
		class := ClassName[T]()

		reg, err := ctx.RegisterService(class, svc, props)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", class, err)
		}

		added := pipe.New[ports.ServiceRegistration]()
		emit := added.Source()
		token := tuple.New[ports.ServiceRegistration](reg)

		return &Result[ports.ServiceRegistration]{
			Added:   added,
			Removed: pipe.New[ports.ServiceRegistration](),
			start: func() error {
				emit(token)
				return nil
			},
			close: func() {
				_ = reg.Unregister()
			},
		}, nil
	})
}
