package depot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Lazy wraps a dependency that is resolved on first access.
// This is useful for breaking circular dependencies or deferring
// construction of expensive components until they're actually needed:
// a Lazy is not a declared dependency, so it adds no edge to the graph.
type Lazy[T any] struct {
	registry  *Registry
	target    *Class
	qualifier string

	mu       sync.Mutex
	value    T
	resolved atomic.Bool
}

// NewLazy creates a new lazy dependency on the class of T.
func NewLazy[T any](r *Registry, qualifier string) *Lazy[T] {
	return NewLazyFor[T](r, ClassOf[T](), qualifier)
}

// NewLazyFor creates a new lazy dependency on target, converted to T.
func NewLazyFor[T any](r *Registry, target *Class, qualifier string) *Lazy[T] {
	return &Lazy[T]{
		registry:  r,
		target:    target,
		qualifier: qualifierOrDefault(qualifier),
	}
}

// Get resolves the dependency and returns it.
// A successful resolution is cached; a failed one is retried on the next call.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	if l.resolved.Load() {
		return l.value, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.resolved.Load() {
		return l.value, nil
	}

	value, err := GetFor[T](ctx, l.registry, l.target, l.qualifier)
	if err != nil {
		var zero T

		return zero, err
	}

	l.value = value
	l.resolved.Store(true)

	return value, nil
}

// MustGet resolves the dependency and returns it, panicking on error.
func (l *Lazy[T]) MustGet(ctx context.Context) T {
	value, err := l.Get(ctx)
	if err != nil {
		panic(fmt.Sprintf("lazy dependency %s failed: %v", l.Key(), err))
	}

	return value
}

// IsResolved returns true if the dependency has been resolved.
func (l *Lazy[T]) IsResolved() bool {
	return l.resolved.Load()
}

// Key returns the instance cache key of the dependency.
func (l *Lazy[T]) Key() string {
	return slotKey(l.target.ID(), l.qualifier)
}

// OptionalLazy wraps an optional dependency that is resolved on first access.
// Returns the zero value without error if no implementation is registered.
type OptionalLazy[T any] struct {
	lazy  *Lazy[T]
	found atomic.Bool
}

// NewOptionalLazy creates a new optional lazy dependency on the class of T.
func NewOptionalLazy[T any](r *Registry, qualifier string) *OptionalLazy[T] {
	return &OptionalLazy[T]{lazy: NewLazy[T](r, qualifier)}
}

// Get resolves the dependency and returns it.
// Returns the zero value without error if the dependency is not registered.
// A component missing anywhere in its graph yields the zero value; the
// lookup is retried on every call until it succeeds.
func (l *OptionalLazy[T]) Get(ctx context.Context) (T, error) {
	value, err := l.lazy.Get(ctx)
	if errors.Is(err, ErrDependencyNotFoundSentinel) {
		var zero T

		return zero, nil
	}

	if err != nil {
		return value, err
	}

	l.found.Store(true)

	return value, nil
}

// MustGet resolves the dependency and returns it, panicking on error.
// Returns the zero value if the dependency is not found (does not panic).
func (l *OptionalLazy[T]) MustGet(ctx context.Context) T {
	value, err := l.Get(ctx)
	if err != nil {
		panic(fmt.Sprintf("optional lazy dependency %s failed: %v", l.Key(), err))
	}

	return value
}

// IsFound returns true if the dependency was found and resolved.
func (l *OptionalLazy[T]) IsFound() bool {
	return l.found.Load()
}

// Key returns the instance cache key of the dependency.
func (l *OptionalLazy[T]) Key() string {
	return l.lazy.Key()
}
