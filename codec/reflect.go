package codec

import (
	"reflect"

	"github.com/pkg/errors"
)

// fieldValue reads an exported struct field by its declared name.
// Names the struct does not carry are not an error: field lists may
// run ahead of (or behind) the compiled layout.
func fieldValue(obj any, name string) (any, bool) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	f := rv.FieldByName(name)
	if !f.IsValid() || !f.CanInterface() {
		return nil, false
	}
	return f.Interface(), true
}

// setField assigns a decoded value onto an exported struct field,
// converting across the JSON number and collection representations.
// A field the current layout no longer has is silently skipped.
func setField(obj any, name string, v any) error {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return errors.New("nil target")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errors.Errorf("target %T is not a struct", obj)
	}
	f := rv.FieldByName(name)
	if !f.IsValid() {
		return nil
	}
	if !f.CanSet() {
		return errors.Errorf("field %s is not settable", name)
	}
	cv, err := convert(v, f.Type())
	if err != nil {
		return err
	}
	f.Set(cv)
	return nil
}

// convert adapts a decoded value to the target type. JSON hands back
// float64 for every number and []any / map[string]any for collections.
func convert(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if isNumeric(rv.Kind()) && isNumeric(t.Kind()) && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	switch t.Kind() {
	case reflect.Slice:
		src, ok := v.([]any)
		if !ok {
			break
		}
		out := reflect.MakeSlice(t, len(src), len(src))
		for i, e := range src {
			ev, err := convert(e, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case reflect.Map:
		src, ok := v.(map[string]any)
		if !ok || t.Key().Kind() != reflect.String {
			break
		}
		out := reflect.MakeMapWithSize(t, len(src))
		for k, e := range src {
			ev, err := convert(e, t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
		}
		return out, nil
	case reflect.Interface:
		if rv.Type().Implements(t) {
			return rv, nil
		}
	}
	return reflect.Value{}, errors.Errorf("cannot restore %T into %s", v, t)
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
