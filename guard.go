package docbind

import (
	"fmt"
	"reflect"
)

// Shape guards. These assert the runtime shape of loosely-typed values, such
// as raw issue payloads flowing into the classifier. Each guard returns its
// input unchanged on success.

// Typed asserts that v is exactly a T and returns it.
func Typed[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("value of type '%T' must be a '%T'", v, zero)
	}
	return t, nil
}

// TypedOneOf asserts that v matches at least one of the given types. An empty
// type set, or a set containing a nil type, is itself an error.
func TypedOneOf(v any, types ...reflect.Type) (any, error) {
	if err := checkTypeSet(types); err != nil {
		return nil, err
	}
	rt := reflect.TypeOf(v)
	for _, t := range types {
		if rt == t {
			return v, nil
		}
	}
	return nil, fmt.Errorf("value of type '%T' must be of one of types %s", v, typeSetNames(types))
}

// TypedSlice asserts that v is a collection whose every element is a T and
// returns the elements.
func TypedSlice[T any](v any) ([]T, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("value must be a collection, got '%T'", v)
	}
	out := make([]T, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		ev := rv.Index(i).Interface()
		e, ok := ev.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("value %d ('%v') in collection of type '%T' must be of type '%T'", i+1, ev, ev, zero)
		}
		out = append(out, e)
	}
	return out, nil
}

// TypedSliceOneOf asserts that v is a collection whose every element matches
// at least one of the given types.
func TypedSliceOneOf(v any, types ...reflect.Type) ([]any, error) {
	if err := checkTypeSet(types); err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("value must be a collection, got '%T'", v)
	}
	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		ev := rv.Index(i).Interface()
		et := reflect.TypeOf(ev)
		matched := false
		for _, t := range types {
			if et == t {
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("value %d ('%v') in collection of type '%T' must be of one of types %s", i+1, ev, ev, typeSetNames(types))
		}
		out = append(out, ev)
	}
	return out, nil
}

func checkTypeSet(types []reflect.Type) error {
	if len(types) == 0 {
		return fmt.Errorf("type set must be a non-empty set of types")
	}
	for _, t := range types {
		if t == nil {
			return fmt.Errorf("type set must contain only types, got a nil entry")
		}
	}
	return nil
}

func typeSetNames(types []reflect.Type) string {
	s := "("
	for i, t := range types {
		if i > 0 {
			s += ", "
		}
		s += "'" + t.String() + "'"
	}
	return s + ")"
}
