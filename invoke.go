package depot

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/xraph/go-utils/di"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// PostConstructor is implemented by components that need to finish their
// initialization after every dependency has been injected.
type PostConstructor interface {
	PostConstruct(ctx context.Context) error
}

// instantiate creates an instance of cls from the resolved constructor arguments.
func instantiate(ctx context.Context, cls *Class, args []any) (any, error) {
	if cls.New == nil {
		if cls.abstract() {
			return nil, NewInvalidClassError(cls.ID(), "abstract class has no constructor")
		}

		if len(args) > 0 {
			return nil, NewInvalidClassError(cls.ID(), fmt.Sprintf("default constructor takes no arguments, got %d", len(args)))
		}

		return reflect.New(indirect(cls.Type)).Interface(), nil
	}

	return callConstructor(ctx, cls.New, args)
}

// callConstructor calls the constructor function with the resolved dependencies.
func callConstructor(ctx context.Context, fn any, deps []any) (any, error) {
	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()

	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("constructor must be a function, got %T", fn)
	}

	if fnType.IsVariadic() {
		return nil, errors.New("constructor cannot be variadic")
	}

	offset := 0
	if fnType.NumIn() > 0 && fnType.In(0) == contextType {
		offset = 1
	}

	// Verify parameter count matches
	if fnType.NumIn()-offset != len(deps) {
		return nil, fmt.Errorf("constructor expects %d parameters, got %d dependencies", fnType.NumIn()-offset, len(deps))
	}

	args := make([]reflect.Value, fnType.NumIn())
	if offset == 1 {
		args[0] = reflect.ValueOf(ctx)
	}

	for i, dep := range deps {
		arg, err := argument(dep, fnType.In(i+offset))
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}

		args[i+offset] = arg
	}

	results := fnValue.Call(args)

	switch fnType.NumOut() {
	case 1:
		return results[0].Interface(), nil
	case 2:
		if !fnType.Out(1).Implements(errorType) {
			return nil, errors.New("second return value of constructor must be an error")
		}

		if !results[1].IsNil() {
			return nil, results[1].Interface().(error)
		}

		return results[0].Interface(), nil
	default:
		return nil, fmt.Errorf("constructor must return (T) or (T, error), got %d return values", fnType.NumOut())
	}
}

// argument converts a resolved handle into a value assignable to t.
// Absent optional values become the zero value; a *Ref is replaced by its
// current delegate when t does not accept the reference itself.
func argument(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}

	v := reflect.ValueOf(value)
	if ref, ok := value.(*Ref); ok && !v.Type().AssignableTo(t) {
		current := ref.Load()
		if current == nil {
			return reflect.Zero(t), nil
		}

		v = reflect.ValueOf(current)
	}

	if !v.Type().AssignableTo(t) {
		return reflect.Value{}, ErrTypeMismatch("argument", t.String(), v.Interface())
	}

	return v, nil
}

// assignField sets the named field of a struct pointer instance, including
// unexported fields.
func assignField(instance any, name string, value any) error {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("field injection requires a non-nil struct pointer, got %T", instance)
	}

	field := v.Elem().FieldByName(name)
	if !field.IsValid() {
		return fmt.Errorf("field %s not found on %T", name, instance)
	}

	if !field.CanSet() {
		field = reflect.NewAt(field.Type(), unsafe.Pointer(field.UnsafeAddr())).Elem()
	}

	arg, err := argument(value, field.Type())
	if err != nil {
		return fmt.Errorf("field %s: %w", name, err)
	}

	field.Set(arg)

	return nil
}

// postConstruct runs the post-construction hook of the instance, if any.
func postConstruct(ctx context.Context, instance any) error {
	switch hook := instance.(type) {
	case PostConstructor:
		return hook.PostConstruct(ctx)
	case interface{ PostConstruct() error }:
		return hook.PostConstruct()
	case interface{ PostConstruct() }:
		hook.PostConstruct()
		return nil
	case di.Service:
		return hook.Start(ctx)
	}

	return nil
}
