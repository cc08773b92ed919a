package depot

import (
	"maps"
	"slices"

	"github.com/xraph/go-utils/di"
)

// ComponentInfo describes one registered (target, qualifier) pair.
type ComponentInfo struct {
	// ID is the identity of the concrete class.
	ID string

	// Target is the identity of the abstraction the class is registered for.
	Target string

	Qualifier string

	// Deps lists constructor dependencies first, then field dependencies by name.
	Deps []di.Dep

	// Fields maps injected field names to their dependency keys.
	Fields map[string]string

	AutoCreate   bool
	Priority     int
	Instantiated bool
}

// Key returns the instance cache key of the component.
func (i ComponentInfo) Key() string {
	return slotKey(i.Target, i.Qualifier)
}

// Inspect returns information about every finalized component, ordered by
// target and qualifier.
func (r *Registry) Inspect() []ComponentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []ComponentInfo

	for _, targetID := range slices.Sorted(maps.Keys(r.aliases)) {
		byName := r.aliases[targetID]
		for _, qualifier := range slices.Sorted(maps.Keys(byName)) {
			infos = append(infos, r.info(r.finalized[byName[qualifier]], targetID, qualifier))
		}
	}

	return infos
}

// InspectComponent returns information about the component registered for
// target under qualifier.
func (r *Registry) InspectComponent(target *Class, qualifier string) (ComponentInfo, bool) {
	if target == nil {
		return ComponentInfo{}, false
	}

	targetID := target.ID()
	qualifier = qualifierOrDefault(qualifier)

	r.mu.RLock()
	defer r.mu.RUnlock()

	concreteID, ok := r.aliases[targetID][qualifier]
	if !ok {
		return ComponentInfo{}, false
	}

	return r.info(r.finalized[concreteID], targetID, qualifier), true
}

// GetCandidates returns copies of the finalized configs aliased to target,
// ordered by qualifier.
func (r *Registry) GetCandidates(target *Class) []*InjectableConfig {
	if target == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	aliases := r.aliases[target.ID()]
	out := make([]*InjectableConfig, 0, len(aliases))
	for _, qualifier := range slices.Sorted(maps.Keys(aliases)) {
		out = append(out, r.finalized[aliases[qualifier]].clone())
	}

	return out
}

// Caller holds r.mu.
func (r *Registry) info(cfg *InjectableConfig, targetID, qualifier string) ComponentInfo {
	fields := make(map[string]string, len(cfg.FieldDeps))
	for name, dep := range cfg.FieldDeps {
		fields[name] = dep.key()
	}

	s, ok := r.instances.Load(slotKey(targetID, qualifier))

	return ComponentInfo{
		ID:           cfg.ID(),
		Target:       targetID,
		Qualifier:    qualifier,
		Deps:         configDeps(cfg),
		Fields:       fields,
		AutoCreate:   cfg.AutoCreate.Enabled,
		Priority:     cfg.AutoCreate.Priority,
		Instantiated: ok && s.ready(),
	}
}

// ComponentQuery defines criteria for querying components.
type ComponentQuery struct {
	// Target filters by target identity. Empty string matches all targets.
	Target string

	// Qualifier filters by qualifier. Empty string matches all qualifiers.
	Qualifier string

	// AutoCreate filters by the auto-create flag.
	// nil matches all components.
	AutoCreate *bool

	// Instantiated filters by whether the component has been constructed.
	// nil matches all components.
	Instantiated *bool
}

// Query returns information about components matching the query criteria.
//
// Example:
//
//	// Find every eager component that has not been built yet
//	eager, built := true, false
//	pending := r.Query(depot.ComponentQuery{AutoCreate: &eager, Instantiated: &built})
func (r *Registry) Query(query ComponentQuery) []ComponentInfo {
	var results []ComponentInfo

	for _, info := range r.Inspect() {
		if query.Target != "" && info.Target != query.Target {
			continue
		}

		if query.Qualifier != "" && info.Qualifier != query.Qualifier {
			continue
		}

		if query.AutoCreate != nil && info.AutoCreate != *query.AutoCreate {
			continue
		}

		if query.Instantiated != nil && info.Instantiated != *query.Instantiated {
			continue
		}

		results = append(results, info)
	}

	return results
}
