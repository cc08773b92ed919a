package depot

import (
	"context"
	"fmt"
	"reflect"
)

// Get resolves the implementation registered for the class of T with type safety.
// An empty qualifier selects the default implementation.
func Get[T any](ctx context.Context, r *Registry, qualifier ...string) (T, error) {
	return GetFor[T](ctx, r, ClassOf[T](), qualifier...)
}

// GetFor resolves the implementation registered for target and converts the
// handle to T. Live handles are dereferenced when T does not match them.
func GetFor[T any](ctx context.Context, r *Registry, target *Class, qualifier ...string) (T, error) {
	var zero T

	q := DefaultQualifier
	if len(qualifier) > 0 {
		q = qualifierOrDefault(qualifier[0])
	}

	handle, err := r.GetInstance(ctx, target, q)
	if err != nil {
		return zero, err
	}

	return Deref[T](handle)
}

// Must resolves or panics - use only during startup.
func Must[T any](ctx context.Context, r *Registry, qualifier ...string) T {
	instance, err := Get[T](ctx, r, qualifier...)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", typeNameOf[T](), err))
	}

	return instance
}

// Provide registers the class of T with a constructor in one call.
// Accepts Descriptor arguments for the constructor dependencies and
// FinalizeOption arguments for class-level metadata, in any order.
//
// Usage:
//
//	depot.Provide[*UserService](r,
//	    func(db Database) *UserService { return &UserService{db: db} },
//	    depot.Inject[Database](""),
//	    depot.AutoCreate(10),
//	)
func Provide[T any](r *Registry, newFn any, args ...any) error {
	if newFn != nil && reflect.TypeOf(newFn).Kind() != reflect.Func {
		return NewInvalidClassError(typeNameOf[T](), fmt.Sprintf("constructor must be a function, got %T", newFn))
	}

	var (
		deps []Descriptor
		opts []FinalizeOption
	)

	for _, arg := range args {
		switch v := arg.(type) {
		case Descriptor:
			deps = append(deps, v)
		case FinalizeOption:
			opts = append(opts, v)
		default:
			return NewInvalidClassError(typeNameOf[T](), fmt.Sprintf("unexpected registration argument %T", arg))
		}
	}

	cls := ClassOf[T]()
	if newFn != nil {
		cls.New = newFn
	}

	if err := r.RegisterConstructor(cls, deps...); err != nil {
		return err
	}

	return r.FinalizeClass(cls, opts...)
}

// ProvideAs registers the class of T as an implementation of the abstraction I.
func ProvideAs[I, T any](r *Registry, newFn any, args ...any) error {
	return Provide[T](r, newFn, append(args, As(ClassOf[I]()))...)
}

// ProvideValue registers a pre-built instance for the class of T.
func ProvideValue[T any](r *Registry, instance T, opts ...FinalizeOption) error {
	args := make([]any, 0, len(opts))
	for _, opt := range opts {
		args = append(args, opt)
	}

	return Provide[T](r, func() T { return instance }, args...)
}

func typeNameOf[T any]() string {
	return reflect.TypeFor[T]().String()
}
