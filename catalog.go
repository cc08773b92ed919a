package depot

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xraph/go-utils/log"
	"go.uber.org/multierr"
)

// ModuleFunc registers the classes declared by one module.
type ModuleFunc func(r *Registry) error

// Catalog maps module paths to their registration functions. Go code cannot
// be loaded at runtime, so modules add themselves to a catalog (usually from
// an init function) and discovery selects them by path.
type Catalog struct {
	mu      sync.RWMutex
	modules map[string]ModuleFunc
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{modules: make(map[string]ModuleFunc)}
}

var defaultCatalog = NewCatalog()

// DefaultCatalog returns the process-wide catalog filled by Module and ModuleHere.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Add registers fn under path, relative to the source root. A later Add for
// the same path replaces the function.
func (c *Catalog) Add(path string, fn ModuleFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modules[relativeSource(path)] = fn
}

// Paths returns the registered module paths in lexical order.
func (c *Catalog) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Sorted(maps.Keys(c.modules))
}

// Get returns the function registered under path.
func (c *Catalog) Get(path string) (ModuleFunc, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fn, ok := c.modules[relativeSource(path)]

	return fn, ok
}

// Module adds fn to the default catalog under path and returns the
// normalized module path.
func Module(path string, fn ModuleFunc) string {
	defaultCatalog.Add(path, fn)

	return relativeSource(path)
}

// ModuleHere adds fn to the default catalog under the path of the calling
// source file and returns that module path.
//
//	var usersModule = depot.ModuleHere(func(r *depot.Registry) error { ... })
func ModuleHere(fn ModuleFunc) string {
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		panic("depot: ModuleHere cannot determine the caller file")
	}

	return Module(file, fn)
}

// DefaultFilter rejects extension modules and test files.
func DefaultFilter(path string) bool {
	p := "/" + strings.TrimLeft(path, "/")

	return !strings.Contains(p, "/ext/") && !strings.HasSuffix(p, "_test.go")
}

// =============================================================================
// LOADERS
// =============================================================================

// Loader loads every module matching a glob pattern and accepted by filter.
type Loader interface {
	Load(ctx context.Context, pattern string, filter func(path string) bool) error
}

// Reloader is implemented by loaders able to run modules again after their
// source changed.
type Reloader interface {
	Reload(ctx context.Context, paths ...string) error
}

// CatalogLoader loads modules from a Catalog into a Registry. Each module is
// loaded at most once by Load; Reload runs it again.
type CatalogLoader struct {
	catalog  *Catalog
	registry *Registry

	mu     sync.Mutex
	loaded map[string]bool
}

// NewCatalogLoader creates a loader registering catalog modules into r.
func NewCatalogLoader(catalog *Catalog, r *Registry) *CatalogLoader {
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	return &CatalogLoader{
		catalog:  catalog,
		registry: r,
		loaded:   make(map[string]bool),
	}
}

// Load implements Loader.
func (l *CatalogLoader) Load(ctx context.Context, pattern string, filter func(path string) bool) error {
	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid scan pattern %q", pattern)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, path := range l.catalog.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if l.loaded[path] {
			continue
		}

		if ok, _ := doublestar.Match(pattern, path); !ok {
			continue
		}

		if filter != nil && !filter(path) {
			continue
		}

		if err := l.run(path); err != nil {
			return err
		}

		l.loaded[path] = true
	}

	return nil
}

// Reload implements Reloader. Unknown paths are ignored.
func (l *CatalogLoader) Reload(ctx context.Context, paths ...string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var err error

	for _, path := range paths {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return multierr.Append(err, ctxErr)
		}

		path = relativeSource(path)
		if _, ok := l.catalog.Get(path); !ok {
			continue
		}

		if runErr := l.run(path); runErr != nil {
			err = multierr.Append(err, runErr)
			continue
		}

		l.loaded[path] = true
	}

	return err
}

func (l *CatalogLoader) run(path string) error {
	fn, _ := l.catalog.Get(path)

	l.registry.logger.Debug("loading module", log.String("module", path))

	if err := fn(l.registry); err != nil {
		return fmt.Errorf("module %s: %w", path, err)
	}

	return nil
}

// Reload runs the given modules again through the registry loader. In
// live-reload mode, re-finalized classes rebind their cached handles; use
// WaitReloads to observe the outcome.
func (r *Registry) Reload(ctx context.Context, paths ...string) error {
	reloader, ok := r.loader.(Reloader)
	if !ok {
		return fmt.Errorf("loader %T does not support reloading", r.loader)
	}

	return reloader.Reload(ctx, paths...)
}
