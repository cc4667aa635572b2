package memory

import (
	"log/slog"
	"sync"

	"github.com/csierra/osgi-component-dsl/internal/logging"
)

// Context is an in-process host registry. Safe for concurrent use; every
// callback is dispatched outside the registry lock on the mutating
// goroutine.
type Context struct {
	mu     sync.Mutex
	logger *slog.Logger

	nextServiceID int64
	regs          map[int64]*registration
	strackers     []*serviceTracker

	nextBundleID int64
	bundles      []*Bundle
	btrackers    []*bundleTracker

	configs        map[string]map[string]any
	factoryConfigs map[string]map[string]map[string]any
	managed        []*managedEntry
	factories      []*factoryEntry
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the structured logger the host hands to programs.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// New creates an empty in-memory host.
func New(opts ...Option) *Context {
	c := &Context{
		regs:           make(map[int64]*registration),
		configs:        make(map[string]map[string]any),
		factoryConfigs: make(map[string]map[string]map[string]any),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logging.NewNop()
	}

	return c
}

// Logger returns the host's structured logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// cloneProps copies a property dictionary so callers and the registry never
// share mutable state.
func cloneProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

func runAll(pending []func()) {
	for _, f := range pending {
		f()
	}
}
