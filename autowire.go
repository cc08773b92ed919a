package depot

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// fieldInfo describes one tagged field of a component struct.
type fieldInfo struct {
	name      string
	typ       reflect.Type
	qualifier string // From `inject:"..."` or `name:"..."` tag, empty for the default
	optional  bool   // From `inject:",optional"` or `optional:"true"` tag
}

// analyzeFields inspects a struct type and extracts the fields marked for
// injection. A field is injected when it carries an `inject` tag:
//
//	type UserService struct {
//	    DB     Database `inject:""`
//	    Cache  Cache    `inject:"redis"`
//	    Mailer Mailer   `inject:",optional"`
//	    audit  Auditor  `inject:"" name:"secondary" optional:"true"`
//	}
//
// Unexported fields are supported.
func analyzeFields(t reflect.Type) ([]fieldInfo, error) {
	t = indirect(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("field injection requires a struct type, got %s", t)
	}

	var fields []fieldInfo

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		tag, ok := field.Tag.Lookup("inject")
		if !ok {
			continue
		}

		if field.Anonymous {
			return nil, fmt.Errorf("embedded field %s cannot be injected", field.Name)
		}

		info := fieldInfo{
			name: field.Name,
			typ:  field.Type,
		}

		qualifier, flags, _ := strings.Cut(tag, ",")
		info.qualifier = strings.TrimSpace(qualifier)

		for _, flag := range strings.Split(flags, ",") {
			if strings.TrimSpace(flag) == "optional" {
				info.optional = true
			}
		}

		// Parse struct tags
		if name := field.Tag.Get("name"); name != "" {
			info.qualifier = name
		}

		if opt := field.Tag.Get("optional"); strings.ToLower(opt) == "true" {
			info.optional = true
		}

		fields = append(fields, info)
	}

	return fields, nil
}

// analyzeConstructor derives one required dependency per constructor
// parameter, skipping a leading context.Context.
func analyzeConstructor(newFn any) ([]Descriptor, error) {
	fnType := reflect.TypeOf(newFn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil, errors.New("constructor must be a function")
	}

	if fnType.IsVariadic() {
		return nil, errors.New("constructor cannot be variadic")
	}

	start := 0
	if fnType.NumIn() > 0 && fnType.In(0) == contextType {
		start = 1
	}

	deps := make([]Descriptor, 0, fnType.NumIn()-start)
	for i := start; i < fnType.NumIn(); i++ {
		deps = append(deps, DependsOn(classes.forType(fnType.In(i))))
	}

	return deps, nil
}

// Autowire registers cls from its Go type: constructor dependencies are taken
// from the parameter types of cls.New and field dependencies from `inject`
// struct tags. The class is finalized with opts.
func (r *Registry) Autowire(cls *Class, opts ...FinalizeOption) error {
	if err := r.autowire(cls); err != nil {
		return err
	}

	return r.FinalizeClass(cls, opts...)
}

// autowire registers the derived dependencies of cls without finalizing it.
func (r *Registry) autowire(cls *Class) error {
	if cls == nil {
		return ErrInvalidClass
	}

	if cls.Type == nil {
		return NewInvalidClassError(cls.ID(), "autowiring requires a Go type")
	}

	if cls.New != nil {
		deps, err := analyzeConstructor(cls.New)
		if err != nil {
			return NewInvalidClassError(cls.ID(), err.Error())
		}

		if err := r.RegisterConstructor(cls, deps...); err != nil {
			return err
		}
	}

	if indirect(cls.Type).Kind() == reflect.Struct {
		fields, err := analyzeFields(cls.Type)
		if err != nil {
			return NewInvalidClassError(cls.ID(), err.Error())
		}

		for _, field := range fields {
			dep := Descriptor{
				Target:    classes.forType(field.typ),
				Qualifier: field.qualifier,
				Optional:  field.optional,
			}

			if err := r.RegisterProperty(cls, field.name, dep); err != nil {
				return err
			}
		}
	}

	return nil
}

// AutowireType registers the class of T with newFn as constructor; see Registry.Autowire.
func AutowireType[T any](r *Registry, newFn any, opts ...FinalizeOption) error {
	cls := ClassOf[T]()
	if newFn != nil {
		cls.New = newFn
	}

	return r.Autowire(cls, opts...)
}
