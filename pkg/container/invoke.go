package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// instantiate builds a component from a loaded module.
//
//   - a function is called with args; isConstructor additionally boxes a
//     struct result into a pointer and rejects nil results
//   - a reflect.Type is allocated and args fill its exported fields in order
//   - any other value is shallow-copied, which requires no args and no
//     isConstructor
func instantiate(ctx context.Context, module any, args []any, isConstructor bool) (any, error) {
	if module == nil {
		return nil, errors.New("module is nil")
	}

	if t, ok := module.(reflect.Type); ok {
		return newInstance(t, args)
	}

	fn := reflect.ValueOf(module)
	if fn.Kind() != reflect.Func {
		if isConstructor {
			return nil, fmt.Errorf("module of type %T is not a constructor", module)
		}
		if len(args) > 0 {
			return nil, fmt.Errorf("module of type %T is not a function and cannot take arguments", module)
		}
		return beget(module), nil
	}

	result, err := call(ctx, fn, args)
	if err != nil {
		return nil, err
	}
	if !isConstructor {
		return result, nil
	}

	rv := reflect.ValueOf(result)
	if result == nil || (rv.Kind() == reflect.Ptr && rv.IsNil()) {
		return nil, errors.New("constructor returned nil")
	}
	if rv.Kind() == reflect.Struct {
		ptr := reflect.New(rv.Type())
		ptr.Elem().Set(rv)
		return ptr.Interface(), nil
	}
	return result, nil
}

// newInstance allocates t (or the struct t points to) and assigns args to
// its exported fields positionally.
func newInstance(t reflect.Type, args []any) (any, error) {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	ptr := reflect.New(t)
	if t.Kind() != reflect.Struct {
		switch len(args) {
		case 0:
		case 1:
			v, err := convertArg(args[0], t)
			if err != nil {
				return nil, err
			}
			ptr.Elem().Set(v)
		default:
			return nil, fmt.Errorf("type %s takes at most one argument, got %d", t, len(args))
		}
		return ptr.Interface(), nil
	}

	fields := exportedFields(t)
	if len(args) > len(fields) {
		return nil, fmt.Errorf("type %s has %d exported fields, got %d arguments", t, len(fields), len(args))
	}
	for i, arg := range args {
		f := fields[i]
		v, err := convertArg(arg, f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		ptr.Elem().FieldByIndex(f.Index).Set(v)
	}
	return ptr.Interface(), nil
}

func exportedFields(t reflect.Type) []reflect.StructField {
	fields := make([]reflect.StructField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if f := t.Field(i); f.IsExported() {
			fields = append(fields, f)
		}
	}
	return fields
}

// beget returns a shallow copy of v so the copy can be configured without
// touching the module value.
func beget(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
			return v
		}
		cp := reflect.New(rv.Elem().Type())
		cp.Elem().Set(rv.Elem())
		return cp.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		cp := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), iter.Value())
		}
		return cp.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(cp, rv)
		return cp.Interface()
	default:
		return v
	}
}

// call invokes fn with args. A leading context.Context parameter receives
// ctx, a trailing error result is returned as the error, and panics are
// turned into errors.
func call(ctx context.Context, fn reflect.Value, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ft := fn.Type()
	in := make([]reflect.Value, 0, ft.NumIn())
	params := ft.NumIn()
	offset := 0
	if params > 0 && ft.In(0) == contextType {
		in = append(in, reflect.ValueOf(ctx))
		offset = 1
	}

	fixed := params - offset
	if ft.IsVariadic() {
		fixed--
		if len(args) < fixed {
			return nil, fmt.Errorf("expected at least %d arguments, got %d", fixed, len(args))
		}
	} else if len(args) != fixed {
		return nil, fmt.Errorf("expected %d arguments, got %d", fixed, len(args))
	}

	for i, arg := range args {
		var pt reflect.Type
		if i < fixed {
			pt = ft.In(i + offset)
		} else {
			pt = ft.In(params - 1).Elem()
		}
		v, err := convertArg(arg, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in = append(in, v)
	}

	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		if ft.Out(1) != errorType {
			return nil, fmt.Errorf("second result must be error, got %s", ft.Out(1))
		}
		if err := asError(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return nil, fmt.Errorf("function returns %d values, expected at most 2", len(out))
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// convertArg adapts a resolved spec value to the parameter type t. Numbers
// convert between numeric kinds and lists convert element-wise.
func convertArg(arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch t.Kind() {
		case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("cannot use nil as %s", t)
		}
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	switch {
	case isNumber(v.Kind()) && isNumber(t.Kind()):
		if err := checkRange(v, t); err != nil {
			return reflect.Value{}, err
		}
		return v.Convert(t), nil

	case v.Kind() == t.Kind() && v.Type().ConvertibleTo(t) && v.Kind() != reflect.Slice:
		return v.Convert(t), nil

	case v.Kind() == reflect.Slice && t.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := convertArg(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(item)
		}
		return out, nil

	case v.Kind() == reflect.Map && t.Kind() == reflect.Map && v.Type().Key() == t.Key():
		out := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			item, err := convertArg(iter.Value().Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %v: %w", iter.Key(), err)
			}
			out.SetMapIndex(iter.Key(), item)
		}
		return out, nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
}

// checkRange rejects numeric conversions that would wrap, truncate or
// overflow the target type.
func checkRange(v reflect.Value, t reflect.Type) error {
	target := reflect.Zero(t)
	overflow := false

	switch {
	case v.CanInt():
		n := v.Int()
		switch {
		case target.CanInt():
			overflow = target.OverflowInt(n)
		case target.CanUint():
			overflow = n < 0 || target.OverflowUint(uint64(n))
		}

	case v.CanUint():
		u := v.Uint()
		switch {
		case target.CanInt():
			overflow = u > math.MaxInt64 || target.OverflowInt(int64(u))
		case target.CanUint():
			overflow = target.OverflowUint(u)
		}

	case v.CanFloat():
		f := v.Float()
		switch {
		case target.CanFloat():
			overflow = target.OverflowFloat(f)
		case f != math.Trunc(f):
			return fmt.Errorf("cannot use non-integral %v as %s", f, t)
		case target.CanInt():
			overflow = f < -(1<<63) || f >= 1<<63 || target.OverflowInt(int64(f))
		case target.CanUint():
			overflow = f < 0 || f >= 1<<64 || target.OverflowUint(uint64(f))
		}
	}

	if overflow {
		return fmt.Errorf("value %v overflows %s", v.Interface(), t)
	}
	return nil
}

func isNumber(k reflect.Kind) bool {
	return isInteger(k) || k == reflect.Float32 || k == reflect.Float64
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

// setProperty assigns value to the named property of target, trying in
// order: PropertySetter, map[string]any, a Set<Name> method and a struct
// field matched by wire tag, exact name or case-insensitive name.
func setProperty(target any, name string, value any) error {
	if setter, ok := target.(PropertySetter); ok {
		return setter.SetProperty(name, value)
	}
	if m, ok := target.(map[string]any); ok {
		m[name] = value
		return nil
	}

	rv := reflect.ValueOf(target)
	if !rv.IsValid() {
		return errors.New("target is nil")
	}

	if method := rv.MethodByName("Set" + exportName(name)); method.IsValid() && method.Type().NumIn() == 1 {
		arg, err := convertArg(value, method.Type().In(0))
		if err != nil {
			return err
		}
		out := method.Call([]reflect.Value{arg})
		if len(out) > 0 && out[len(out)-1].Type() == errorType {
			return asError(out[len(out)-1])
		}
		return nil
	}

	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("cannot set property on %T", target)
	}

	field, ok := findField(rv.Elem().Type(), name)
	if !ok {
		return fmt.Errorf("%T has no settable field '%s'", target, name)
	}
	v, err := convertArg(value, field.Type)
	if err != nil {
		return err
	}
	rv.Elem().FieldByIndex(field.Index).Set(v)
	return nil
}

func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	fields := exportedFields(t)
	for _, f := range fields {
		if tag, _, _ := strings.Cut(f.Tag.Get("wire"), ","); tag == name {
			return f, true
		}
	}
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

// invokeMethod calls the named method (or its exported spelling) on target.
func invokeMethod(ctx context.Context, target any, method string, args []any) error {
	rv := reflect.ValueOf(target)
	if !rv.IsValid() {
		return errors.New("target is nil")
	}

	m := rv.MethodByName(method)
	if !m.IsValid() {
		m = rv.MethodByName(exportName(method))
	}
	if !m.IsValid() {
		return fmt.Errorf("%T has no method '%s'", target, method)
	}

	_, err := call(ctx, m, args)
	return err
}

func exportName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// runDestroyHooks tears target down: explicit methods first, otherwise
// Destroyer or io.Closer when the container owns the instance.
func runDestroyHooks(ctx context.Context, target any, methods []string, owned bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if len(methods) > 0 {
		var errs []error
		for _, method := range methods {
			if err := invokeMethod(ctx, target, method, nil); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", method, err))
			}
		}
		return errors.Join(errs...)
	}

	if !owned {
		return nil
	}
	switch t := target.(type) {
	case Destroyer:
		return t.Destroy(ctx)
	case io.Closer:
		return t.Close()
	}
	return nil
}
