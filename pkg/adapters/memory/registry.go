package memory

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

// registration backs both the ServiceRegistration handle returned to the
// publisher and the ServiceReference observed by trackers. Properties are
// guarded by the context lock.
type registration struct {
	ctx      *Context
	id       int64
	class    string
	svc      any
	producer func() any

	props        map[string]any
	checkouts    int
	unregistered bool
}

var (
	_ ports.ServiceRegistration = (*registration)(nil)
	_ ports.ServiceReference    = (*registration)(nil)
)

// RegisterService publishes svc under class. Matching open trackers observe
// the registration before this returns.
func (c *Context) RegisterService(class string, svc any, props map[string]any) (ports.ServiceRegistration, error) {
	if class == "" {
		return nil, fmt.Errorf("register service: empty class name")
	}
	return c.register(class, svc, nil, props), nil
}

// RegisterPrototype publishes a prototype-scope service: every checkout
// through ServiceObjects yields producer().
func (c *Context) RegisterPrototype(class string, producer func() any, props map[string]any) ports.ServiceRegistration {
	return c.register(class, nil, producer, props)
}

func (c *Context) register(class string, svc any, producer func() any, props map[string]any) *registration {
	c.mu.Lock()

	c.nextServiceID++
	p := cloneProps(props)
	p["objectClass"] = class
	p["service.id"] = c.nextServiceID

	reg := &registration{
		ctx:      c,
		id:       c.nextServiceID,
		class:    class,
		svc:      svc,
		producer: producer,
		props:    p,
	}
	c.regs[reg.id] = reg

	var pending []func()
	for _, t := range c.strackers {
		t := t
		if t.filter.Matches(p) {
			pending = append(pending, func() { t.add(reg) })
		}
	}

	c.mu.Unlock()

	c.logger.Debug("service registered", "class", class, "id", reg.id)
	runAll(pending)
	return reg
}

// SetProperties replaces the service properties and notifies trackers whose
// view of the service changed.
func (r *registration) SetProperties(props map[string]any) error {
	c := r.ctx
	c.mu.Lock()

	if r.unregistered {
		c.mu.Unlock()
		return ports.ErrAlreadyUnregistered
	}

	p := cloneProps(props)
	p["objectClass"] = r.class
	p["service.id"] = r.id
	r.props = p

	var pending []func()
	for _, t := range c.strackers {
		t := t
		was := t.has(r.id)
		now := t.filter.Matches(p)
		switch {
		case was && now:
			pending = append(pending, func() { t.modify(r) })
		case was && !now:
			pending = append(pending, func() { t.remove(r) })
		case !was && now:
			pending = append(pending, func() { t.add(r) })
		}
	}

	c.mu.Unlock()

	c.logger.Debug("service modified", "class", r.class, "id", r.id)
	runAll(pending)
	return nil
}

// Unregister withdraws the service. Trackers observe the removal before this
// returns.
func (r *registration) Unregister() error {
	c := r.ctx
	c.mu.Lock()

	if r.unregistered {
		c.mu.Unlock()
		return ports.ErrAlreadyUnregistered
	}
	r.unregistered = true
	delete(c.regs, r.id)

	var pending []func()
	for _, t := range c.strackers {
		t := t
		if t.has(r.id) {
			pending = append(pending, func() { t.remove(r) })
		}
	}

	c.mu.Unlock()

	c.logger.Debug("service unregistered", "class", r.class, "id", r.id)
	runAll(pending)
	return nil
}

// Reference returns the reference other parties observe this registration
// through.
func (r *registration) Reference() ports.ServiceReference {
	return r
}

// Property returns a single service property, or nil.
func (r *registration) Property(key string) any {
	r.ctx.mu.Lock()
	defer r.ctx.mu.Unlock()
	return r.props[key]
}

// Properties returns a snapshot of the service properties.
func (r *registration) Properties() map[string]any {
	r.ctx.mu.Lock()
	defer r.ctx.mu.Unlock()
	return cloneProps(r.props)
}

// UseCount reports the outstanding singleton checkouts, for balance
// assertions in tests.
func (r *registration) UseCount() int {
	r.ctx.mu.Lock()
	defer r.ctx.mu.Unlock()
	return r.checkouts
}

// ServiceObjects returns the checkout handle for ref. The reference must
// originate from this context and still be backed by a live registration.
func (c *Context) ServiceObjects(ref ports.ServiceReference) (ports.ServiceObjects, error) {
	reg, ok := ref.(*registration)
	if !ok || reg.ctx != c {
		return nil, fmt.Errorf("foreign service reference: %w", ports.ErrNoSuchService)
	}

	c.mu.Lock()
	gone := reg.unregistered
	c.mu.Unlock()
	if gone {
		return nil, fmt.Errorf("service %d: %w", reg.id, ports.ErrNoSuchService)
	}

	return &serviceObjects{reg: reg}, nil
}

// serviceObjects hands out instances for one registration: the shared
// instance with a use count for singletons, a fresh instance per checkout for
// prototypes.
type serviceObjects struct {
	reg *registration
}

func (s *serviceObjects) GetService() any {
	r := s.reg

	r.ctx.mu.Lock()
	gone := r.unregistered
	r.ctx.mu.Unlock()
	if gone {
		return nil
	}

	if r.producer != nil {
		return r.producer()
	}

	r.ctx.mu.Lock()
	defer r.ctx.mu.Unlock()
	r.checkouts++
	return r.svc
}

func (s *serviceObjects) UngetService(any) {
	r := s.reg
	if r.producer != nil {
		return
	}

	r.ctx.mu.Lock()
	defer r.ctx.mu.Unlock()
	if r.checkouts > 0 {
		r.checkouts--
	}
}

// trackedEntry pairs a tracked object with the registration it was stored
// for, so Close can replay removals.
type trackedEntry struct {
	reg   *registration
	value any
}

type serviceTracker struct {
	ctx    *Context
	filter ports.Filter
	cust   ports.ServiceCustomizer

	tmu     sync.Mutex
	open    bool
	tracked map[int64]*trackedEntry
}

// TrackServices creates a tracker over the services matching f. It is inert
// until Open.
func (c *Context) TrackServices(f ports.Filter, cust ports.ServiceCustomizer) ports.Tracker {
	return &serviceTracker{
		ctx:     c,
		filter:  f,
		cust:    cust,
		tracked: make(map[int64]*trackedEntry),
	}
}

// Open starts tracking: every service already matching is delivered to the
// customizer, in registration order.
func (t *serviceTracker) Open() error {
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

	c.strackers = append(c.strackers, t)

	var snapshot []*registration
	for _, reg := range c.regs {
		if t.filter.Matches(reg.props) {
			snapshot = append(snapshot, reg)
		}
	}
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].id < snapshot[j].id })

	c.mu.Unlock()

	for _, reg := range snapshot {
		t.add(reg)
	}
	return nil
}

// Close stops tracking and releases everything tracked. Idempotent.
func (t *serviceTracker) Close() {
	c := t.ctx
	c.mu.Lock()

	t.tmu.Lock()
	if !t.open {
		t.tmu.Unlock()
		c.mu.Unlock()
		return
	}
	t.open = false

	entries := make([]*trackedEntry, 0, len(t.tracked))
	for id, e := range t.tracked {
		delete(t.tracked, id)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].reg.id < entries[j].reg.id })
	t.tmu.Unlock()

	c.strackers = slices.DeleteFunc(c.strackers, func(other *serviceTracker) bool {
		return other == t
	})

	c.mu.Unlock()

	for _, e := range entries {
		if t.cust.Removed != nil {
			t.cust.Removed(e.reg, e.value)
		}
	}
}

func (t *serviceTracker) has(id int64) bool {
	t.tmu.Lock()
	defer t.tmu.Unlock()
	_, ok := t.tracked[id]
	return ok
}

func (t *serviceTracker) add(reg *registration) {
	var value any = reg
	if t.cust.Adding != nil {
		value = t.cust.Adding(reg)
	}
	if value == nil {
		return
	}

	t.tmu.Lock()
	if t.open {
		t.tracked[reg.id] = &trackedEntry{reg: reg, value: value}
	}
	t.tmu.Unlock()
}

func (t *serviceTracker) modify(reg *registration) {
	t.tmu.Lock()
	e, ok := t.tracked[reg.id]
	t.tmu.Unlock()
	if !ok {
		return
	}

	if t.cust.Modified == nil {
		return
	}

	value := t.cust.Modified(reg, e.value)

	t.tmu.Lock()
	if value == nil {
		delete(t.tracked, reg.id)
	} else if cur, ok := t.tracked[reg.id]; ok {
		cur.value = value
	}
	t.tmu.Unlock()
}

func (t *serviceTracker) remove(reg *registration) {
	t.tmu.Lock()
	e, ok := t.tracked[reg.id]
	delete(t.tracked, reg.id)
	t.tmu.Unlock()
	if !ok {
		return
	}

	if t.cust.Removed != nil {
		t.cust.Removed(reg, e.value)
	}
}
