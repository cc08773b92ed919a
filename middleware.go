package depot

import (
	"context"
	"slices"
	"sync"
)

// Middleware provides hooks around component construction.
// The key passed to every hook has the form "<target id>[<qualifier>]".
type Middleware interface {
	// BeforeConstruct is called before the dependencies of a component are
	// resolved. Return error to abort construction.
	BeforeConstruct(ctx context.Context, key string) error

	// AfterConstruct is called once construction finished.
	// Called even if construction failed (instance is nil, err is set).
	// An error returned here fails an otherwise successful construction.
	AfterConstruct(ctx context.Context, key string, instance any, err error) error
}

// middlewareChain manages multiple middleware.
type middlewareChain struct {
	mu         sync.RWMutex
	middleware []Middleware
}

// newMiddlewareChain creates a new middleware chain.
func newMiddlewareChain() *middlewareChain {
	return &middlewareChain{
		middleware: make([]Middleware, 0),
	}
}

// add appends middleware to the chain.
func (m *middlewareChain) add(middleware Middleware) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.middleware = append(m.middleware, middleware)
}

func (m *middlewareChain) snapshot() []Middleware {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Clone(m.middleware)
}

// beforeConstruct calls BeforeConstruct on all middleware.
func (m *middlewareChain) beforeConstruct(ctx context.Context, key string) error {
	for _, mw := range m.snapshot() {
		if err := mw.BeforeConstruct(ctx, key); err != nil {
			return err
		}
	}

	return nil
}

// afterConstruct calls AfterConstruct on all middleware.
func (m *middlewareChain) afterConstruct(ctx context.Context, key string, instance any, err error) error {
	for _, mw := range m.snapshot() {
		if mwErr := mw.AfterConstruct(ctx, key, instance, err); mwErr != nil {
			return mwErr
		}
	}

	return nil
}

// FuncMiddleware wraps functions as Middleware.
type FuncMiddleware struct {
	BeforeConstructFunc func(ctx context.Context, key string) error
	AfterConstructFunc  func(ctx context.Context, key string, instance any, err error) error
}

// BeforeConstruct implements Middleware.
func (f *FuncMiddleware) BeforeConstruct(ctx context.Context, key string) error {
	if f.BeforeConstructFunc != nil {
		return f.BeforeConstructFunc(ctx, key)
	}

	return nil
}

// AfterConstruct implements Middleware.
func (f *FuncMiddleware) AfterConstruct(ctx context.Context, key string, instance any, err error) error {
	if f.AfterConstructFunc != nil {
		return f.AfterConstructFunc(ctx, key, instance, err)
	}

	return nil
}
