package memory

import (
	"slices"
	"sort"
	"sync"

	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

// Bundle is an in-memory unit of deployment. State transitions dispatch to
// bundle trackers before the transition call returns.
type Bundle struct {
	ctx          *Context
	id           int64
	symbolicName string
	state        ports.BundleState
}

var _ ports.Bundle = (*Bundle)(nil)

// InstallBundle adds a bundle in the Installed state.
func (c *Context) InstallBundle(symbolicName string) *Bundle {
	c.mu.Lock()

	c.nextBundleID++
	b := &Bundle{
		ctx:          c,
		id:           c.nextBundleID,
		symbolicName: symbolicName,
		state:        ports.BundleInstalled,
	}
	c.bundles = append(c.bundles, b)

	pending := c.bundleTransitionLocked(b, 0, b.state)
	c.mu.Unlock()

	c.logger.Debug("bundle installed", "symbolicName", symbolicName, "id", b.id)
	runAll(pending)
	return b
}

// ID returns the bundle's install-order identifier.
func (b *Bundle) ID() int64 { return b.id }

// SymbolicName returns the bundle's symbolic name.
func (b *Bundle) SymbolicName() string { return b.symbolicName }

// State returns the bundle's current state.
func (b *Bundle) State() ports.BundleState {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	return b.state
}

// Start moves the bundle to Active.
func (b *Bundle) Start() {
	b.transition(ports.BundleActive)
}

// Stop moves the bundle back to Resolved.
func (b *Bundle) Stop() {
	b.transition(ports.BundleResolved)
}

// Uninstall removes the bundle.
func (b *Bundle) Uninstall() {
	c := b.ctx
	c.mu.Lock()
	old := b.state
	b.state = ports.BundleUninstalled
	c.bundles = slices.DeleteFunc(c.bundles, func(other *Bundle) bool { return other == b })
	pending := c.bundleTransitionLocked(b, old, b.state)
	c.mu.Unlock()

	runAll(pending)
}

// Update re-announces the bundle without changing state; trackers holding it
// observe a modification.
func (b *Bundle) Update() {
	c := b.ctx
	c.mu.Lock()
	var pending []func()
	for _, t := range c.btrackers {
		t := t
		if t.mask&b.state != 0 && t.has(b.id) {
			pending = append(pending, func() { t.modify(b) })
		}
	}
	c.mu.Unlock()

	runAll(pending)
}

func (b *Bundle) transition(next ports.BundleState) {
	c := b.ctx
	c.mu.Lock()
	old := b.state
	b.state = next
	pending := c.bundleTransitionLocked(b, old, next)
	c.mu.Unlock()

	c.logger.Debug("bundle transition", "symbolicName", b.symbolicName, "from", old, "to", next)
	runAll(pending)
}

func (c *Context) bundleTransitionLocked(b *Bundle, old, next ports.BundleState) []func() {
	var pending []func()
	for _, t := range c.btrackers {
		t := t
		was := t.mask&old != 0
		now := t.mask&next != 0
		switch {
		case !was && now:
			pending = append(pending, func() { t.add(b) })
		case was && !now:
			pending = append(pending, func() { t.remove(b) })
		}
	}
	return pending
}

type bundleTrackedEntry struct {
	bundle *Bundle
	value  any
}

type bundleTracker struct {
	ctx  *Context
	mask ports.BundleState
	cust ports.BundleCustomizer

	tmu     sync.Mutex
	open    bool
	tracked map[int64]*bundleTrackedEntry
}

// TrackBundles creates a tracker over the bundles inside stateMask. Inert
// until Open.
func (c *Context) TrackBundles(stateMask ports.BundleState, cust ports.BundleCustomizer) ports.Tracker {
	return &bundleTracker{
		ctx:     c,
		mask:    stateMask,
		cust:    cust,
		tracked: make(map[int64]*bundleTrackedEntry),
	}
}

// Open starts tracking; bundles already inside the mask are delivered in
// install order.
func (t *bundleTracker) Open() error {
	c := t.ctx
	c.mu.Lock()

	t.tmu.Lock()
	if t.open {
		t.tmu.Unlock()
		c.mu.Unlock()
		return nil
	}
	t.open = true
	t.tmu.Unlock()

	c.btrackers = append(c.btrackers, t)

	var snapshot []*Bundle
	for _, b := range c.bundles {
		if t.mask&b.state != 0 {
			snapshot = append(snapshot, b)
		}
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].id < snapshot[j].id })

	c.mu.Unlock()

	for _, b := range snapshot {
		t.add(b)
	}
	return nil
}

// Close stops tracking and releases everything tracked. Idempotent.
func (t *bundleTracker) Close() {
	c := t.ctx
	c.mu.Lock()

	t.tmu.Lock()
	if !t.open {
		t.tmu.Unlock()
		c.mu.Unlock()
		return
	}
	t.open = false

	entries := make([]*bundleTrackedEntry, 0, len(t.tracked))
	for id, e := range t.tracked {
		delete(t.tracked, id)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].bundle.id < entries[j].bundle.id })
	t.tmu.Unlock()

	c.btrackers = slices.DeleteFunc(c.btrackers, func(other *bundleTracker) bool {
		return other == t
	})

	c.mu.Unlock()

	for _, e := range entries {
		if t.cust.Removed != nil {
			t.cust.Removed(e.bundle, e.value)
		}
	}
}

func (t *bundleTracker) has(id int64) bool {
	t.tmu.Lock()
	defer t.tmu.Unlock()
	_, ok := t.tracked[id]
	return ok
}

func (t *bundleTracker) add(b *Bundle) {
	var value any = b
	if t.cust.Adding != nil {
		value = t.cust.Adding(b)
	}
	if value == nil {
		return
	}

	t.tmu.Lock()
	if t.open {
		t.tracked[b.id] = &bundleTrackedEntry{bundle: b, value: value}
	}
	t.tmu.Unlock()
}

func (t *bundleTracker) modify(b *Bundle) {
	t.tmu.Lock()
	e, ok := t.tracked[b.id]
	t.tmu.Unlock()
	if !ok || t.cust.Modified == nil {
		return
	}

	value := t.cust.Modified(b, e.value)

	t.tmu.Lock()
	if value == nil {
		delete(t.tracked, b.id)
	} else if cur, ok := t.tracked[b.id]; ok {
		cur.value = value
	}
	t.tmu.Unlock()
}

func (t *bundleTracker) remove(b *Bundle) {
	t.tmu.Lock()
	e, ok := t.tracked[b.id]
	delete(t.tracked, b.id)
	t.tmu.Unlock()
	if !ok {
		return
	}

	if t.cust.Removed != nil {
		t.cust.Removed(b, e.value)
	}
}
