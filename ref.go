package depot

import (
	"sync/atomic"
)

// Ref is a live reference to the current implementation behind a cached handle.
//
// In live-reload mode the registry hands out proxies built around a Ref, or the
// Ref itself when the target class defines no proxy. Re-finalizing a class
// retargets the Ref in place, so holders observe the new implementation
// without re-resolving anything.
type Ref struct {
	current atomic.Pointer[refBox]
	swaps   atomic.Int64
}

type refBox struct {
	value any
}

func newRef(value any) *Ref {
	r := &Ref{}
	r.current.Store(&refBox{value: value})

	return r
}

// Load returns the current delegate.
func (r *Ref) Load() any {
	if box := r.current.Load(); box != nil {
		return box.value
	}

	return nil
}

// Generation returns how many times the reference has been retargeted.
func (r *Ref) Generation() int64 {
	return r.swaps.Load()
}

// retarget swaps the delegate.
func (r *Ref) retarget(value any) {
	r.current.Store(&refBox{value: value})
	r.swaps.Add(1)
}

// ProxyFactory builds a forwarding value around a live reference.
type ProxyFactory func(ref *Ref) any

// ProxyOf adapts a typed forwarding constructor into a ProxyFactory.
//
// Example:
//
//	type dbProxy struct{ current func() Database }
//
//	func (p dbProxy) Query(q string) string { return p.current().Query(q) }
//
//	depot.ClassOf[Database]().Proxy = depot.ProxyOf(func(current func() Database) Database {
//	    return dbProxy{current: current}
//	})
func ProxyOf[T any](wrap func(current func() T) T) ProxyFactory {
	return func(ref *Ref) any {
		return wrap(func() T {
			value, _ := ref.Load().(T)

			return value
		})
	}
}

// Deref unwraps a handle into T. Refs are replaced by their current delegate.
func Deref[T any](handle any) (T, error) {
	var zero T

	if ref, ok := handle.(*Ref); ok {
		if typed, ok := handle.(T); ok {
			return typed, nil
		}

		handle = ref.Load()
	}

	if handle == nil {
		return zero, nil
	}

	typed, ok := handle.(T)
	if !ok {
		return zero, ErrTypeMismatch("handle", typeNameOf[T](), handle)
	}

	return typed, nil
}
