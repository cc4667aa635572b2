package osgi

import (
	"fmt"
	"sync"

	"github.com/csierra/osgi-component-dsl/pkg/pipe"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
	"github.com/csierra/osgi-component-dsl/pkg/tuple"
)

// Configuration tracks the managed configuration dictionary for pid. Every
// delivery replaces the previous token: the prior token is emitted on
// removed, the replacement on added.
//
// Known quirk, preserved from the reference behavior: the token slot is
// pre-initialized with a nil-carrying token, so the very first delivery emits
// that token on removed and emits nothing on added. Compositions reacting to
// added only see the configuration from its second delivery on.
func Configuration(pid string) *Program[map[string]any] {
	return NewProgram(func(ctx ports.Context) (*Result[map[string]any], error) {
		added := pipe.New[map[string]any]()
		removed := pipe.New[map[string]any]()
		emitAdd := added.Source()
		emitRemove := removed.Source()

		var (
			mu    sync.Mutex
			prior = tuple.New[map[string]any](nil)
			first = true
			reg   ports.Registration
		)

		start := func() error {
			r, err := ctx.RegisterManaged(pid, func(props map[string]any) {
				mu.Lock()
				old := prior
				wasFirst := first
				next := tuple.New(props)
				prior = next
				first = false
				mu.Unlock()

				emitRemove(old)
				if !wasFirst {
					emitAdd(next)
				}
			})
			if err != nil {
				return fmt.Errorf("register managed listener for %q: %w", pid, err)
			}
			reg = r
			return nil
		}

		return &Result[map[string]any]{
			Added:   added,
			Removed: removed,
			start:   start,
			close: func() {
				if reg != nil {
					_ = reg.Unregister()
				}
			},
		}, nil
	})
}

// Configurations tracks every configuration instance of factoryPid. An
// update for an instance pid replaces its token (prior emitted on removed,
// replacement on added); a deletion removes it. Closing unregisters the
// listener and then emits every token still held on removed, in unspecified
// order.
func Configurations(factoryPid string) *Program[map[string]any] {
	return NewProgram(func(ctx ports.Context) (*Result[map[string]any], error) {
		added := pipe.New[map[string]any]()
		removed := pipe.New[map[string]any]()
		emitAdd := added.Source()
		emitRemove := removed.Source()

		var (
			mu      sync.Mutex
			results = make(map[string]tuple.Tuple[map[string]any])
			reg     ports.Registration
		)

		start := func() error {
			r, err := ctx.RegisterManagedFactory(factoryPid, ports.ManagedFactory{
				Updated: func(pid string, props map[string]any) {
					t := tuple.New(props)

					mu.Lock()
					old, had := results[pid]
					results[pid] = t
					mu.Unlock()

					if had {
						emitRemove(old)
					}
					emitAdd(t)
				},
				Deleted: func(pid string) {
					mu.Lock()
					t, had := results[pid]
					delete(results, pid)
					mu.Unlock()

					if had {
						emitRemove(t)
					}
				},
			})
			if err != nil {
				return fmt.Errorf("register managed factory for %q: %w", factoryPid, err)
			}
			reg = r
			return nil
		}

		return &Result[map[string]any]{
			Added:   added,
			Removed: removed,
			start:   start,
			close: func() {
				if reg != nil {
					_ = reg.Unregister()
				}

				mu.Lock()
				held := make([]tuple.Tuple[map[string]any], 0, len(results))
				for pid, t := range results {
					delete(results, pid)
					held = append(held, t)
				}
				mu.Unlock()

				for _, t := range held {
					emitRemove(t)
				}
			},
		}, nil
	})
}
