package depot

import (
	"context"
	"sync"
	"testing"
)

type testGreeter interface {
	Greet() string
}

type greeterProxy struct {
	current func() testGreeter
}

func (p *greeterProxy) Greet() string { return p.current().Greet() }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type frenchGreeter struct{}

func (frenchGreeter) Greet() string { return "bonjour" }

type versionedGreeter struct {
	version string
}

func (g *versionedGreeter) Greet() string { return g.version }

func init() {
	DefineProxy(func(current func() testGreeter) testGreeter {
		return &greeterProxy{current: current}
	})
}

// recorder collects construction events across goroutines.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.events...)
}

// emptyLoader discovers nothing.
type emptyLoader struct{}

func (emptyLoader) Load(context.Context, string, func(string) bool) error { return nil }

// newTestRegistry creates a registry that skips module discovery.
func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()

	return New(append([]Option{WithLoader(emptyLoader{}), WithCatalog(NewCatalog())}, opts...)...)
}

// synthetic builds a class without a Go type, as generated code would.
func synthetic(name string, newFn any) *Class {
	return &Class{
		Name:   name,
		Source: "internal/synthetic/" + name + ".go",
		New:    newFn,
	}
}
