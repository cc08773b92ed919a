package depot

import (
	"maps"
	"slices"
)

// Component holds the registration of one class for batch registration.
type Component struct {
	Class *Class

	// Constructor lists the constructor dependencies in parameter order.
	Constructor []Descriptor

	// Fields maps field names to the dependency injected into them.
	Fields map[string]Descriptor

	Options []FinalizeOption

	// Autowire derives dependencies from the Go type of Class. A non-nil
	// Constructor replaces the derived constructor dependencies and Fields
	// override derived fields of the same name.
	Autowire bool
}

// Register registers and finalizes multiple components in a single call.
// Returns error if any registration fails; components before it stay registered.
//
// Example:
//
//	err := r.Register(
//	    depot.Component{Class: depot.Define[*Database](NewDatabase), Options: []depot.FinalizeOption{depot.As(depot.ClassOf[DB]())}},
//	    depot.Component{Class: depot.ClassOf[*UserService](), Autowire: true},
//	)
func (r *Registry) Register(components ...Component) error {
	for _, c := range components {
		if err := r.registerComponent(c); err != nil {
			return err
		}
	}

	return nil
}

func (r *Registry) registerComponent(c Component) error {
	if c.Class == nil {
		return ErrInvalidClass
	}

	if c.Autowire {
		if err := r.autowire(c.Class); err != nil {
			return err
		}
	}

	if c.Constructor != nil || !c.Autowire {
		if err := r.RegisterConstructor(c.Class, c.Constructor...); err != nil {
			return err
		}
	}

	for _, name := range slices.Sorted(maps.Keys(c.Fields)) {
		if err := r.RegisterProperty(c.Class, name, c.Fields[name]); err != nil {
			return err
		}
	}

	return r.FinalizeClass(c.Class, c.Options...)
}
