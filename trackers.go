package osgi

import (
	"fmt"
	"reflect"

	"github.com/csierra/osgi-component-dsl/pkg/pipe"
	"github.com/csierra/osgi-component-dsl/pkg/ports"
	"github.com/csierra/osgi-component-dsl/pkg/tuple"
)

// ClassName derives the registry class name for T, e.g. "mypkg.Speaker".
// Services register and track under this name.
func ClassName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// buildFilter composes the host filter for T restricted by userFilter:
// (objectClass=T) alone, or (&(objectClass=T)userFilter).
func buildFilter[T any](ctx ports.Context, userFilter string) (ports.Filter, error) {
	class := ClassName[T]()

	expr := "(objectClass=" + class + ")"
	if userFilter != "" {
		expr = "(&" + expr + userFilter + ")"
	}

	f, err := ctx.CreateFilter(expr)
	if err != nil {
		return nil, fmt.Errorf("build filter for %s: %w", class, err)
	}
	return f, nil
}

// ServiceReferences tracks the references of services of type T matching the
// optional filter. A property modification is observed as a removal of the
// old token followed by an addition with a fresh identity.
func ServiceReferences[T any](filter string) *Program[ports.ServiceReference] {
	return NewProgram(func(ctx ports.Context) (*Result[ports.ServiceReference], error) {
		f, err := buildFilter[T](ctx, filter)
		if err != nil {
			return nil, err
		}

		added := pipe.New[ports.ServiceReference]()
		removed := pipe.New[ports.ServiceReference]()
		emitAdd := added.Source()
		emitRemove := removed.Source()

		var cust ports.ServiceCustomizer
		cust.Adding = func(ref ports.ServiceReference) any {
			t := tuple.New(ref)
			emitAdd(t)
			return t
		}
		cust.Modified = func(ref ports.ServiceReference, tracked any) any {
			cust.Removed(ref, tracked)
			return cust.Adding(ref)
		}
		cust.Removed = func(_ ports.ServiceReference, tracked any) {
			emitRemove(tracked.(tuple.Tuple[ports.ServiceReference]))
		}

		tracker := ctx.TrackServices(f, cust)

		return &Result[ports.ServiceReference]{
			Added:   added,
			Removed: removed,
			start:   tracker.Open,
			close:   tracker.Close,
		}, nil
	})
}

// Services tracks checked-out instances of services of type T matching the
// optional filter. Each token carries an instance obtained through the host's
// service-objects handle; the instance is returned when the token is removed.
func Services[T any](filter string) *Multi[T] {
	return newMulti(func(ctx ports.Context, spawn func(T) func()) (func() error, func(), error) {
		f, err := buildFilter[T](ctx, filter)
		if err != nil {
			return nil, nil, err
		}

		type checkout struct {
			objects ports.ServiceObjects
			svc     T
			detach  func()
		}

		var cust ports.ServiceCustomizer
		cust.Adding = func(ref ports.ServiceReference) any {
			objects, err := ctx.ServiceObjects(ref)
			if err != nil {
				ctx.Logger().Warn("service reference gone before checkout", "err", err)
				return nil
			}

			svc, ok := objects.GetService().(T)
			if !ok {
				ctx.Logger().Warn("service does not implement tracked type",
					"class", ClassName[T]())
				return nil
			}

			co := &checkout{objects: objects, svc: svc}
			co.detach = spawn(svc)
			return co
		}
		cust.Modified = func(ref ports.ServiceReference, tracked any) any {
			cust.Removed(ref, tracked)
			return cust.Adding(ref)
		}
		cust.Removed = func(_ ports.ServiceReference, tracked any) {
			co := tracked.(*checkout)
			co.detach()
			co.objects.UngetService(co.svc)
		}

		tracker := ctx.TrackServices(f, cust)
		return tracker.Open, tracker.Close, nil
	})
}

// Prototypes tracks services of type T, with each token carrying the host's
// service-objects handle itself. No checkout happens at this layer; the
// consumer manages prototype instance lifecycle.
func Prototypes[T any](filter string) *Multi[ports.ServiceObjects] {
	return newMulti(func(ctx ports.Context, spawn func(ports.ServiceObjects) func()) (func() error, func(), error) {
		f, err := buildFilter[T](ctx, filter)
		if err != nil {
			return nil, nil, err
		}

		var cust ports.ServiceCustomizer
		cust.Adding = func(ref ports.ServiceReference) any {
			objects, err := ctx.ServiceObjects(ref)
			if err != nil {
				ctx.Logger().Warn("service reference gone before checkout", "err", err)
				return nil
			}
			return spawn(objects)
		}
		cust.Modified = func(ref ports.ServiceReference, tracked any) any {
			cust.Removed(ref, tracked)
			return cust.Adding(ref)
		}
		cust.Removed = func(_ ports.ServiceReference, tracked any) {
			tracked.(func())()
		}

		tracker := ctx.TrackServices(f, cust)
		return tracker.Open, tracker.Close, nil
	})
}

// Bundles tracks the bundles whose state is within stateMask. A bundle
// transition into the mask adds a token; a transition out removes it. An
// update while inside the mask is a removal followed by an addition.
func Bundles(stateMask ports.BundleState) *Multi[ports.Bundle] {
	return newMulti(func(ctx ports.Context, spawn func(ports.Bundle) func()) (func() error, func(), error) {
		var cust ports.BundleCustomizer
		cust.Adding = func(b ports.Bundle) any {
			detach := spawn(b)
			return detach
		}
		cust.Modified = func(b ports.Bundle, tracked any) any {
			cust.Removed(b, tracked)
			return cust.Adding(b)
		}
		cust.Removed = func(_ ports.Bundle, tracked any) {
			tracked.(func())()
		}

		tracker := ctx.TrackBundles(stateMask, cust)
		return tracker.Open, tracker.Close, nil
	})
}
