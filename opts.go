package depot

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/go-utils/log"
	"go.opentelemetry.io/otel/trace"
)

// DefaultScanGlobs is the whitespace separated pattern set used for module
// discovery when none is configured.
const DefaultScanGlobs = "**/internal/**/*.go **/pkg/**/*.go"

// DefaultAutoCreatePriority is the priority of auto-created components that
// do not declare one.
const DefaultAutoCreatePriority = 1000

// Option configures a Registry.
type Option func(*options)

type options struct {
	liveReload     bool
	scanGlobs      []string
	filter         func(path string) bool
	loader         Loader
	catalog        *Catalog
	logger         log.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

func defaultOptions() options {
	return options{
		scanGlobs: strings.Fields(DefaultScanGlobs),
		filter:    DefaultFilter,
		catalog:   DefaultCatalog(),
	}
}

// WithLiveReload enables live-reload mode: cached handles become rebindable
// and re-finalizing a class swaps the implementation behind them.
func WithLiveReload(enabled bool) Option {
	return func(o *options) {
		o.liveReload = enabled
	}
}

// WithScanGlobs sets the module discovery patterns.
func WithScanGlobs(globs ...string) Option {
	return func(o *options) {
		o.scanGlobs = append([]string(nil), globs...)
	}
}

// WithFilter sets the predicate deciding which discovered module paths are loaded.
func WithFilter(filter func(path string) bool) Option {
	return func(o *options) {
		o.filter = filter
	}
}

// WithLoader replaces the module loader used during Initialize.
func WithLoader(loader Loader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

// WithCatalog sets the module catalogue consulted by the default loader.
func WithCatalog(catalog *Catalog) Option {
	return func(o *options) {
		o.catalog = catalog
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsRegisterer registers the registry collectors with reg.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the tracer provider used for construction spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// =============================================================================
// FINALIZE OPTIONS
// =============================================================================

// FinalizeOption carries class-level metadata merged at finalize time.
type FinalizeOption func(*InjectableConfig)

// Named sets the qualifier the class is registered under.
func Named(qualifier string) FinalizeOption {
	return func(c *InjectableConfig) {
		c.Qualifier = qualifierOrDefault(qualifier)
	}
}

// As registers the class as an implementation of target.
func As(target *Class) FinalizeOption {
	return func(c *InjectableConfig) {
		if target != nil {
			c.Target = target
		}
	}
}

// AutoCreate flags the class for eager construction during Initialize.
// Lower priorities are constructed first; without a priority the current one is kept.
func AutoCreate(priority ...int) FinalizeOption {
	return func(c *InjectableConfig) {
		c.AutoCreate.Enabled = true
		if len(priority) > 0 {
			c.AutoCreate.Priority = priority[0]
		}
	}
}
