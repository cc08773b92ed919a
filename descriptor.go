package depot

import (
	"github.com/xraph/go-utils/di"
)

// DefaultQualifier names the implementation used when a request carries no qualifier.
const DefaultQualifier = "__default"

// Descriptor describes one dependency of a class: the target to resolve,
// the qualifier selecting an implementation, and whether absence is tolerated.
type Descriptor struct {
	Target    *Class
	Qualifier string
	Optional  bool
}

// Inject creates a required dependency on the class of T.
//
// Usage:
//
//	r.RegisterConstructor(depot.ClassOf[*UserService](),
//	    depot.Inject[Database](""),
//	    depot.Inject[Cache]("redis"),
//	)
func Inject[T any](qualifier string) Descriptor {
	return Descriptor{
		Target:    ClassOf[T](),
		Qualifier: qualifierOrDefault(qualifier),
	}
}

// OptionalInject creates a dependency on the class of T that resolves to nil
// when no implementation is registered for it.
func OptionalInject[T any](qualifier string) Descriptor {
	return Descriptor{
		Target:    ClassOf[T](),
		Qualifier: qualifierOrDefault(qualifier),
		Optional:  true,
	}
}

// DependsOn creates a required dependency on an explicit class.
func DependsOn(target *Class) Descriptor {
	return Descriptor{Target: target, Qualifier: DefaultQualifier}
}

// Named returns a copy of the descriptor selecting the given qualifier.
func (d Descriptor) Named(qualifier string) Descriptor {
	d.Qualifier = qualifierOrDefault(qualifier)

	return d
}

// AsOptional returns a copy of the descriptor marked optional.
func (d Descriptor) AsOptional() Descriptor {
	d.Optional = true

	return d
}

// withDefaults fills in the default qualifier.
func (d Descriptor) withDefaults() Descriptor {
	d.Qualifier = qualifierOrDefault(d.Qualifier)

	return d
}

// key returns the instance cache key of the descriptor's target.
func (d Descriptor) key() string {
	return slotKey(d.Target.ID(), qualifierOrDefault(d.Qualifier))
}

// dep converts the descriptor into a go-utils dependency spec for inspection.
func (d Descriptor) dep() di.Dep {
	mode := di.DepEager
	if d.Optional {
		mode = di.DepOptional
	}

	return di.Dep{
		Name: d.key(),
		Type: d.Target.Type,
		Mode: mode,
	}
}

func qualifierOrDefault(qualifier string) string {
	if qualifier == "" {
		return DefaultQualifier
	}

	return qualifier
}

// slotKey renders a (target, qualifier) pair as used in the alias table,
// the instance cache and error messages.
func slotKey(targetID, qualifier string) string {
	return targetID + "[" + qualifier + "]"
}
