package depot

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/go-utils/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// GetInstance returns the singleton handle registered for target under
// qualifier, constructing it and its dependency graph on first request.
//
// Concurrent callers asking for the same pair before it is cached share a
// single construction. A failed construction is not cached, so a later call
// retries. ctx only bounds how long this caller waits; a construction that
// has started always runs to completion.
func (r *Registry) GetInstance(ctx context.Context, target *Class, qualifier string) (any, error) {
	if target == nil {
		return nil, ErrInvalidClass
	}

	return r.getInstance(ctx, target.ID(), qualifierOrDefault(qualifier))
}

// getInstance is the get-or-create path of the instance cache.
func (r *Registry) getInstance(ctx context.Context, targetID, qualifier string) (any, error) {
	key := slotKey(targetID, qualifier)

	s, loaded := r.instances.LoadOrStore(key, newSlot())
	if loaded {
		return s.wait(ctx)
	}

	handle, ref, err := r.create(ctx, targetID, qualifier)
	if err != nil {
		// Release the slot so a later call can retry.
		r.instances.Delete(key)
		s.fail(err)

		return nil, err
	}

	s.complete(handle, ref)

	return handle, nil
}

// create resolves and constructs the component behind a pair and wraps it in
// a rebindable handle when live reload is enabled.
func (r *Registry) create(ctx context.Context, targetID, qualifier string) (any, *Ref, error) {
	cfg, target, err := r.lookup(targetID, qualifier)
	if err != nil {
		return nil, nil, err
	}

	if cycle := r.Graph().FindCycle(slotKey(targetID, qualifier)); cycle != nil {
		return nil, nil, ErrCyclicDependency(cycle)
	}

	instance, err := r.construct(ctx, cfg, targetID, qualifier)
	if err != nil {
		return nil, nil, err
	}

	if !r.opts.liveReload {
		return instance, nil, nil
	}

	ref := newRef(instance)
	if target.Proxy != nil {
		return target.Proxy(ref), ref, nil
	}

	return ref, ref, nil
}

// construct builds one instance of cfg: dependencies are resolved
// concurrently, then the class is instantiated, fields are assigned and the
// post-construction hook runs.
func (r *Registry) construct(ctx context.Context, cfg *InjectableConfig, targetID, qualifier string) (instance any, err error) {
	ctx = context.WithoutCancel(ctx)
	key := slotKey(targetID, qualifier)
	classID := cfg.ID()

	ctx, span := r.tracer.Start(ctx, "depot.construct",
		trace.WithAttributes(
			attribute.String("depot.target", targetID),
			attribute.String("depot.qualifier", qualifier),
			attribute.String("depot.class", classID),
		),
	)
	defer span.End()

	start := time.Now()

	if err := r.middleware.beforeConstruct(ctx, key); err != nil {
		return nil, err
	}

	defer func() {
		r.metrics.observe(targetID, qualifier, time.Since(start), err)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		if mwErr := r.middleware.afterConstruct(ctx, key, instance, err); mwErr != nil && err == nil {
			instance, err = nil, mwErr
		}
	}()

	args, fields, err := r.resolveDependencies(ctx, cfg)
	if err != nil {
		return nil, err
	}

	instance, err = instantiate(ctx, cfg.Class, args)
	if err != nil {
		return nil, NewConstructionError(classID, "instantiate", err)
	}

	for _, name := range cfg.FieldNames() {
		if err := assignField(instance, name, fields[name]); err != nil {
			return nil, NewConstructionError(classID, "inject", err)
		}
	}

	if err := postConstruct(ctx, instance); err != nil {
		return nil, NewConstructionError(classID, "post_construct", err)
	}

	r.logger.Debug("component constructed",
		log.String("key", key),
		log.String("class", classID),
		log.Duration("elapsed", time.Since(start)),
	)

	return instance, nil
}

// resolveDependencies resolves every constructor and field dependency of cfg
// concurrently. Constructor values keep their declared order.
func (r *Registry) resolveDependencies(ctx context.Context, cfg *InjectableConfig) ([]any, map[string]any, error) {
	names := cfg.FieldNames()
	deps := make([]Descriptor, 0, len(cfg.ConstructorDeps)+len(names))
	deps = append(deps, cfg.ConstructorDeps...)
	for _, name := range names {
		deps = append(deps, cfg.FieldDeps[name])
	}

	values := make([]any, len(deps))

	var g errgroup.Group
	for i, dep := range deps {
		g.Go(func() error {
			value, err := r.resolveDependency(ctx, dep)
			if err != nil {
				return err
			}

			values[i] = value

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	n := len(cfg.ConstructorDeps)
	fields := make(map[string]any, len(names))
	for i, name := range names {
		fields[name] = values[n+i]
	}

	return values[:n], fields, nil
}

// resolveDependency resolves one descriptor. An optional descriptor whose
// graph is missing a component anywhere yields nil; other failures propagate.
func (r *Registry) resolveDependency(ctx context.Context, dep Descriptor) (any, error) {
	value, err := r.getInstance(ctx, dep.Target.ID(), qualifierOrDefault(dep.Qualifier))
	if err != nil && dep.Optional && errors.Is(err, ErrDependencyNotFoundSentinel) {
		return nil, nil
	}

	return value, err
}

// rebind reconstructs the component behind an existing live handle and
// retargets the handle to the new instance.
func (r *Registry) rebind(ctx context.Context, targetID, qualifier string, s *slot) {
	defer r.reloads.Done()

	key := slotKey(targetID, qualifier)

	if _, err := s.wait(ctx); err != nil || s.ref == nil {
		return
	}

	cfg, _, err := r.lookup(targetID, qualifier)
	if err == nil {
		if cycle := r.Graph().FindCycle(key); cycle != nil {
			err = ErrCyclicDependency(cycle)
		}
	}

	var instance any
	if err == nil {
		instance, err = r.construct(ctx, cfg, targetID, qualifier)
	}

	if err != nil {
		r.logger.Error("rebind failed", log.String("key", key), log.Error(err))
		r.recordReloadError(err)

		return
	}

	s.ref.retarget(instance)
	r.metrics.rebound(targetID, qualifier)

	r.logger.Info("component rebound",
		log.String("key", key),
		log.String("class", cfg.ID()),
		log.Int64("generation", s.ref.Generation()),
	)
}
