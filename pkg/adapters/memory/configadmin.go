package memory

import (
	"slices"
	"sort"

	"github.com/csierra/osgi-component-dsl/pkg/ports"
)

var _ ports.ConfigurationSink = (*Context)(nil)

type managedEntry struct {
	ctx      *Context
	pid      string
	update   func(props map[string]any)
	unsubbed bool
}

type factoryEntry struct {
	ctx        *Context
	factoryPid string
	handler    ports.ManagedFactory
	unsubbed   bool
}

// RegisterManaged subscribes update to the dictionary for pid. An existing
// dictionary is delivered before this returns.
func (c *Context) RegisterManaged(pid string, update func(props map[string]any)) (ports.Registration, error) {
	c.mu.Lock()
	e := &managedEntry{ctx: c, pid: pid, update: update}
	c.managed = append(c.managed, e)
	current, has := c.configs[pid]
	if has {
		current = cloneProps(current)
	}
	c.mu.Unlock()

	if has {
		update(current)
	}
	return e, nil
}

func (e *managedEntry) Unregister() error {
	c := e.ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.unsubbed {
		return ports.ErrAlreadyUnregistered
	}
	e.unsubbed = true
	c.managed = slices.DeleteFunc(c.managed, func(other *managedEntry) bool { return other == e })
	return nil
}

// RegisterManagedFactory subscribes h to the instances of factoryPid.
// Existing instances are delivered before this returns, in name order.
func (c *Context) RegisterManagedFactory(factoryPid string, h ports.ManagedFactory) (ports.Registration, error) {
	c.mu.Lock()
	e := &factoryEntry{ctx: c, factoryPid: factoryPid, handler: h}
	c.factories = append(c.factories, e)

	instances := c.factoryConfigs[factoryPid]
	names := make([]string, 0, len(instances))
	for name := range instances {
		names = append(names, name)
	}
	sort.Strings(names)

	type delivery struct {
		pid   string
		props map[string]any
	}
	deliveries := make([]delivery, 0, len(names))
	for _, name := range names {
		deliveries = append(deliveries, delivery{
			pid:   ports.FactoryInstancePID(factoryPid, name),
			props: cloneProps(instances[name]),
		})
	}
	c.mu.Unlock()

	if h.Updated != nil {
		for _, d := range deliveries {
			h.Updated(d.pid, d.props)
		}
	}
	return e, nil
}

func (e *factoryEntry) Unregister() error {
	c := e.ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.unsubbed {
		return ports.ErrAlreadyUnregistered
	}
	e.unsubbed = true
	c.factories = slices.DeleteFunc(c.factories, func(other *factoryEntry) bool { return other == e })
	return nil
}

// UpdateConfiguration replaces the dictionary for pid and delivers it to the
// managed listeners subscribed to that pid.
func (c *Context) UpdateConfiguration(pid string, props map[string]any) {
	c.mu.Lock()
	c.configs[pid] = cloneProps(props)
	pending := c.managedDeliveriesLocked(pid, cloneProps(props))
	c.mu.Unlock()

	c.logger.Debug("configuration updated", "pid", pid)
	runAll(pending)
}

// DeleteConfiguration withdraws the dictionary for pid; listeners observe a
// nil dictionary.
func (c *Context) DeleteConfiguration(pid string) {
	c.mu.Lock()
	delete(c.configs, pid)
	pending := c.managedDeliveriesLocked(pid, nil)
	c.mu.Unlock()

	c.logger.Debug("configuration deleted", "pid", pid)
	runAll(pending)
}

func (c *Context) managedDeliveriesLocked(pid string, props map[string]any) []func() {
	var pending []func()
	for _, e := range c.managed {
		e := e
		if e.pid == pid {
			pending = append(pending, func() { e.update(props) })
		}
	}
	return pending
}

// UpdateFactoryConfiguration replaces the dictionary for one factory
// instance and delivers it to the subscribed factory listeners.
func (c *Context) UpdateFactoryConfiguration(factoryPid, name string, props map[string]any) {
	c.mu.Lock()
	instances := c.factoryConfigs[factoryPid]
	if instances == nil {
		instances = make(map[string]map[string]any)
		c.factoryConfigs[factoryPid] = instances
	}
	instances[name] = cloneProps(props)

	pid := ports.FactoryInstancePID(factoryPid, name)
	var pending []func()
	for _, e := range c.factories {
		if e.factoryPid == factoryPid && e.handler.Updated != nil {
			update := e.handler.Updated
			pending = append(pending, func() { update(pid, cloneProps(props)) })
		}
	}
	c.mu.Unlock()

	c.logger.Debug("factory configuration updated", "pid", pid)
	runAll(pending)
}

// DeleteFactoryConfiguration withdraws one factory instance.
func (c *Context) DeleteFactoryConfiguration(factoryPid, name string) {
	c.mu.Lock()
	if instances := c.factoryConfigs[factoryPid]; instances != nil {
		delete(instances, name)
	}

	pid := ports.FactoryInstancePID(factoryPid, name)
	var pending []func()
	for _, e := range c.factories {
		if e.factoryPid == factoryPid && e.handler.Deleted != nil {
			deleted := e.handler.Deleted
			pending = append(pending, func() { deleted(pid) })
		}
	}
	c.mu.Unlock()

	c.logger.Debug("factory configuration deleted", "pid", pid)
	runAll(pending)
}
