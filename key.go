package depot

import "context"

// Key provides type-safe component identification: the class of T together
// with a qualifier.
type Key[T any] struct {
	qualifier string
}

// NewKey creates a new typed key.
// The type parameter T ensures type safety when registering and resolving components.
//
// Example:
//
//	var PrimaryDB = depot.NewKey[Database]("primary")
//	var UserServiceKey = depot.NewKey[*UserService]("")
func NewKey[T any](qualifier string) Key[T] {
	return Key[T]{qualifier: qualifierOrDefault(qualifier)}
}

// Qualifier returns the qualifier of the key.
func (k Key[T]) Qualifier() string {
	return k.qualifier
}

// Class returns the class of T.
func (k Key[T]) Class() *Class {
	return ClassOf[T]()
}

// String returns the instance cache key, "<target id>[<qualifier>]".
func (k Key[T]) String() string {
	return slotKey(k.Class().ID(), k.qualifier)
}

// Dep returns a required dependency on the key.
func (k Key[T]) Dep() Descriptor {
	return Descriptor{Target: k.Class(), Qualifier: k.qualifier}
}

// OptionalDep returns an optional dependency on the key.
func (k Key[T]) OptionalDep() Descriptor {
	return k.Dep().AsOptional()
}

// ResolveKey resolves a component using a typed key.
//
// Example:
//
//	db, err := depot.ResolveKey(ctx, r, PrimaryDB)
func ResolveKey[T any](ctx context.Context, r *Registry, key Key[T]) (T, error) {
	return Get[T](ctx, r, key.qualifier)
}

// MustKey resolves a component using a typed key and panics on error.
func MustKey[T any](ctx context.Context, r *Registry, key Key[T]) T {
	result, err := ResolveKey(ctx, r, key)
	if err != nil {
		panic(err)
	}

	return result
}

// HasKey checks if an implementation is registered for a typed key.
func HasKey[T any](r *Registry, key Key[T]) bool {
	return r.Has(key.Class(), key.qualifier)
}
