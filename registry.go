package depot

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync"
	"github.com/xraph/go-utils/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

const instrumentationName = "github.com/xraph/depot"

// InjectableConfig is the registration data of one concrete class.
type InjectableConfig struct {
	Class           *Class
	Qualifier       string
	Target          *Class
	ConstructorDeps []Descriptor
	FieldDeps       map[string]Descriptor
	AutoCreate      AutoCreateConfig
}

// AutoCreateConfig controls eager construction during Initialize.
type AutoCreateConfig struct {
	Enabled  bool
	Priority int
}

// ID returns the identity of the concrete class.
func (c *InjectableConfig) ID() string {
	return c.Class.ID()
}

// FieldNames returns the injected field names in a stable order.
func (c *InjectableConfig) FieldNames() []string {
	return slices.Sorted(maps.Keys(c.FieldDeps))
}

func (c *InjectableConfig) clone() *InjectableConfig {
	out := *c
	out.ConstructorDeps = slices.Clone(c.ConstructorDeps)
	out.FieldDeps = maps.Clone(c.FieldDeps)
	if out.FieldDeps == nil {
		out.FieldDeps = make(map[string]Descriptor)
	}

	return &out
}

// autoCreateEntry is one element of the auto-create queue.
type autoCreateEntry struct {
	targetID  string
	qualifier string
	priority  int
}

// Registry owns the pending and finalized configuration tables, the alias
// table, the instance cache and the auto-create queue.
type Registry struct {
	id         string
	opts       options
	logger     log.Logger
	loader     Loader
	metrics    *collector
	tracer     trace.Tracer
	middleware *middlewareChain

	pending    map[string]*InjectableConfig
	finalized  map[string]*InjectableConfig
	aliases    map[string]map[string]string
	classes    map[string]*Class
	autoCreate []autoCreateEntry
	version    uint64
	mu         sync.RWMutex

	instances *xsync.MapOf[string, *slot]

	graph        *DependencyGraph
	graphVersion uint64
	graphMu      sync.Mutex

	boot *latch

	reloads   sync.WaitGroup
	reloadErr error
	reloadMu  sync.Mutex
}

// New creates a registry.
func New(opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()

	logger := o.logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	r := &Registry{
		id:         id,
		opts:       o,
		logger:     logger.With(log.String("registry", id)),
		metrics:    newCollector(o.registerer),
		tracer:     tp.Tracer(instrumentationName),
		middleware: newMiddlewareChain(),
		pending:    make(map[string]*InjectableConfig),
		finalized:  make(map[string]*InjectableConfig),
		aliases:    make(map[string]map[string]string),
		classes:    make(map[string]*Class),
		instances:  xsync.NewMapOf[*slot](),
		boot:       newLatch(),
	}

	r.loader = o.loader
	if r.loader == nil {
		r.loader = NewCatalogLoader(o.catalog, r)
	}

	return r
}

// ID returns the unique id of this registry instance.
func (r *Registry) ID() string {
	return r.id
}

// LiveReload reports whether the registry runs in live-reload mode.
func (r *Registry) LiveReload() bool {
	return r.opts.liveReload
}

// Use adds middleware to the registry.
// Middleware is called in the order they are added.
func (r *Registry) Use(middleware Middleware) {
	r.middleware.add(middleware)
}

// =============================================================================
// REGISTRATION
// =============================================================================

// RegisterConstructor stores the ordered constructor dependencies of cls,
// replacing any previously registered list.
func (r *Registry) RegisterConstructor(cls *Class, deps ...Descriptor) error {
	if err := validateDescriptors(cls, deps...); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.claim(cls); err != nil {
		return err
	}

	cfg := r.pendingConfig(cls)
	cfg.ConstructorDeps = make([]Descriptor, len(deps))
	for i, dep := range deps {
		cfg.ConstructorDeps[i] = dep.withDefaults()
	}

	return nil
}

// RegisterProperty stores the dependency injected into one field of cls.
func (r *Registry) RegisterProperty(cls *Class, field string, dep Descriptor) error {
	if err := validateDescriptors(cls, dep); err != nil {
		return err
	}

	if field == "" {
		return NewInvalidClassError(cls.ID(), "field name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.claim(cls); err != nil {
		return err
	}

	cfg := r.pendingConfig(cls)
	cfg.FieldDeps[field] = dep.withDefaults()

	return nil
}

// FinalizeClass merges class-level metadata into the pending configuration of
// cls and publishes it: the finalized table and the alias table are updated.
//
// In live-reload mode, finalizing a class whose (target, qualifier) pair already
// has a cached handle reconstructs the component in the background and
// retargets the handle; see WaitReloads.
func (r *Registry) FinalizeClass(cls *Class, opts ...FinalizeOption) error {
	if cls == nil {
		return ErrInvalidClass
	}

	r.mu.Lock()

	if err := r.claim(cls); err != nil {
		r.mu.Unlock()
		return err
	}

	// Options apply to a copy so a rejected target leaves the pending entry intact.
	cfg := r.pendingConfig(cls).clone()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := r.claim(cfg.Target); err != nil {
		r.mu.Unlock()
		return err
	}

	classID := cls.ID()
	targetID := cfg.Target.ID()

	delete(r.pending, classID)
	r.finalized[classID] = cfg

	byName, ok := r.aliases[targetID]
	if !ok {
		byName = make(map[string]string)
		r.aliases[targetID] = byName
	}
	byName[cfg.Qualifier] = classID
	r.version++

	existing, live := r.instances.Load(slotKey(targetID, cfg.Qualifier))
	live = live && r.opts.liveReload

	if !live && cfg.AutoCreate.Enabled {
		r.autoCreate = append(r.autoCreate, autoCreateEntry{
			targetID:  targetID,
			qualifier: cfg.Qualifier,
			priority:  cfg.AutoCreate.Priority,
		})
	}

	if live {
		r.reloads.Add(1)
	}

	r.mu.Unlock()

	r.logger.Debug("class finalized",
		log.String("class", classID),
		log.String("target", targetID),
		log.String("qualifier", cfg.Qualifier),
	)

	if live {
		go r.rebind(context.Background(), targetID, cfg.Qualifier, existing)
	}

	return nil
}

// pendingConfig returns the pending configuration of cls, seeding it from the
// finalized configuration when the class was finalized before. Caller holds r.mu.
func (r *Registry) pendingConfig(cls *Class) *InjectableConfig {
	id := cls.ID()

	if cfg, ok := r.pending[id]; ok {
		return cfg
	}

	var cfg *InjectableConfig
	if prev, ok := r.finalized[id]; ok {
		cfg = prev.clone()
		cfg.Class = cls
	} else {
		cfg = &InjectableConfig{
			Class:     cls,
			Qualifier: DefaultQualifier,
			Target:    cls,
			FieldDeps: make(map[string]Descriptor),
			AutoCreate: AutoCreateConfig{
				Priority: DefaultAutoCreatePriority,
			},
		}
	}

	r.pending[id] = cfg

	return cfg
}

// claim binds an identity to a class. Re-registration of the same class, or of
// a class without type information, is allowed; a different Go type deriving
// the same identity is rejected. Caller holds r.mu.
func (r *Registry) claim(cls *Class) error {
	if cls == nil {
		return ErrInvalidClass
	}

	id := cls.ID()

	prev, ok := r.classes[id]
	if ok && prev != cls && prev.typeID() != 0 && cls.typeID() != 0 && prev.typeID() != cls.typeID() {
		return ErrIdentityCollision(id, prev, cls)
	}

	r.classes[id] = cls

	return nil
}

// lookup resolves a (target, qualifier) pair through the alias table.
func (r *Registry) lookup(targetID, qualifier string) (*InjectableConfig, *Class, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	concreteID, ok := r.aliases[targetID][qualifier]
	if !ok {
		return nil, nil, ErrDependencyNotFound(targetID, qualifier)
	}

	cfg := r.finalized[concreteID]

	target := r.classes[targetID]
	if target == nil {
		target = cfg.Target
	}

	return cfg, target, nil
}

// hasAlias reports whether a (target, qualifier) pair is registered.
func (r *Registry) hasAlias(targetID, qualifier string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.aliases[targetID][qualifier]

	return ok
}

// Has reports whether an implementation is registered for target under qualifier.
func (r *Registry) Has(target *Class, qualifier string) bool {
	if target == nil {
		return false
	}

	return r.hasAlias(target.ID(), qualifierOrDefault(qualifier))
}

// WaitReloads blocks until every background rebind triggered by FinalizeClass
// has finished and returns their combined errors.
func (r *Registry) WaitReloads() error {
	r.reloads.Wait()

	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	err := r.reloadErr
	r.reloadErr = nil

	return err
}

func (r *Registry) recordReloadError(err error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.reloadErr = multierr.Append(r.reloadErr, err)
}

func validateDescriptors(cls *Class, deps ...Descriptor) error {
	if cls == nil {
		return ErrInvalidClass
	}

	for _, dep := range deps {
		if dep.Target == nil {
			return NewInvalidClassError(cls.ID(), "dependency target cannot be nil")
		}
	}

	return nil
}
