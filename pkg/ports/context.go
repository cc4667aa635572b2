package ports

import "log/slog"

// Context is the host handle a program materializes against. Implementations
// dispatch tracker and configuration callbacks synchronously on the goroutine
// that triggered the change; the library relies on that contract for its
// ordering guarantees and spawns no goroutines of its own.
type Context interface {
	// RegisterService publishes svc under the given class name with the
	// supplied properties. The returned registration is live immediately:
	// matching open trackers observe it before RegisterService returns.
	RegisterService(class string, svc any, props map[string]any) (ServiceRegistration, error)

	// CreateFilter parses a filter expression into a matcher.
	// Returns an error wrapping ErrInvalidFilter on syntax errors.
	CreateFilter(expr string) (Filter, error)

	// TrackServices creates a tracker over the services matching f.
	// The tracker is inert until Open is called.
	TrackServices(f Filter, c ServiceCustomizer) Tracker

	// TrackBundles creates a tracker over the bundles whose state is within
	// stateMask.
	TrackBundles(stateMask BundleState, c BundleCustomizer) Tracker

	// ServiceObjects returns the checkout handle for a service reference.
	// Returns an error wrapping ErrNoSuchService when the reference no
	// longer belongs to a live registration.
	ServiceObjects(ref ServiceReference) (ServiceObjects, error)

	// RegisterManaged subscribes update to the configuration dictionary for
	// pid. If a dictionary is already present it is delivered before
	// RegisterManaged returns. A nil dictionary signals deletion.
	RegisterManaged(pid string, update func(props map[string]any)) (Registration, error)

	// RegisterManagedFactory subscribes h to the configuration instances of
	// factoryPid. Existing instances are delivered before it returns.
	RegisterManagedFactory(factoryPid string, h ManagedFactory) (Registration, error)

	// Logger returns the host's structured logger. Never nil.
	Logger() *slog.Logger
}

// Registration is an unregisterable subscription handle.
type Registration interface {
	// Unregister withdraws the registration. Returns ErrAlreadyUnregistered
	// on a second call.
	Unregister() error
}

// ServiceRegistration is the handle returned for a published service.
type ServiceRegistration interface {
	Registration

	// SetProperties replaces the service properties and notifies trackers
	// of the modification.
	SetProperties(props map[string]any) error

	// Reference returns the reference other parties observe this
	// registration through.
	Reference() ServiceReference
}

// ServiceReference identifies a registered service without holding it.
type ServiceReference interface {
	// Property returns a single service property, or nil.
	Property(key string) any

	// Properties returns a snapshot of all service properties.
	Properties() map[string]any
}

// ServiceObjects is the reference-counted checkout handle for a service.
// For prototype-scope registrations every GetService call yields a distinct
// instance.
type ServiceObjects interface {
	GetService() any
	UngetService(inst any)
}

// Tracker is an open/close view over a registry subset. Closing dispatches
// the customizer's Removed hook for everything still tracked. Close is
// idempotent.
type Tracker interface {
	Open() error
	Close()
}

// ServiceCustomizer receives service tracker callbacks. Adding returns the
// object the tracker retains for the reference; returning nil declines
// tracking, in which case neither Modified nor Removed fire for it.
// Modified returns the replacement tracked object.
type ServiceCustomizer struct {
	Adding   func(ref ServiceReference) any
	Modified func(ref ServiceReference, tracked any) any
	Removed  func(ref ServiceReference, tracked any)
}

// BundleCustomizer receives bundle tracker callbacks, with the same tracking
// contract as ServiceCustomizer.
type BundleCustomizer struct {
	Adding   func(b Bundle) any
	Modified func(b Bundle, tracked any) any
	Removed  func(b Bundle, tracked any)
}

// ManagedFactory receives configuration callbacks for instances of a factory
// pid.
type ManagedFactory struct {
	Updated func(pid string, props map[string]any)
	Deleted func(pid string)
}

// Filter decides whether a property dictionary matches.
type Filter interface {
	Matches(props map[string]any) bool
	String() string
}
