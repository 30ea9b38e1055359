package layout

import (
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/wzqhbustb/jagged/storage/errors"
)

// seqValue is a normalized sequence; size is its length when it came from a
// Go array and -1 for slices.
type seqValue struct {
	items []any
	size  int
}

// recordValue is a normalized map, struct or Tuple.
type recordValue struct {
	fields []string
	values []any
	tuple  bool
}

// FromIterable builds a layout from nested Go values. v must be a slice or
// array; its elements may be nil, bool, any integer or float type, string,
// []byte, slices, arrays (which become RegularArrays), map[string]T (records
// with sorted field names), structs (records in declaration order, renamed
// by a `jagged:"name"` tag) and Tuple, nested to any depth. Pointers are
// followed and a nil pointer is a missing value.
//
// The result uses the narrowest type that holds every value: integers mixed
// with floats become float64, missing values add an option, and values of
// unrelated types become a union.
func FromIterable(v any) (Content, error) {
	top, err := normalize(reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	seq, ok := top.(seqValue)
	if !ok {
		return nil, errors.TypeMismatch("from_iterable", "a slice or array", typeName(v))
	}
	var b builder = &unknownBuilder{}
	for _, item := range seq.items {
		if b, err = appendValue(b, item); err != nil {
			return nil, err
		}
	}
	return b.snapshot()
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

var tupleType = reflect.TypeOf(Tuple(nil))

func normalize(v reflect.Value) (any, error) {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return float64(u), nil
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		return v.String(), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return append([]byte{}, v.Bytes()...), nil
		}
		items, err := normalizeItems(v)
		if err != nil {
			return nil, err
		}
		if v.Type() == tupleType {
			return recordValue{fields: tupleFields(len(items)), values: items, tuple: true}, nil
		}
		return seqValue{items: items, size: -1}, nil
	case reflect.Array:
		items, err := normalizeItems(v)
		if err != nil {
			return nil, err
		}
		return seqValue{items: items, size: v.Len()}, nil
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, errors.TypeMismatch("from_iterable", "a map with string keys", v.Type().String())
		}
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		values := make([]any, len(keys))
		for i, k := range keys {
			item, err := normalize(v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())))
			if err != nil {
				return nil, err
			}
			values[i] = item
		}
		return recordValue{fields: keys, values: values}, nil
	case reflect.Struct:
		t := v.Type()
		var fields []string
		var values []any
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("jagged"); ok {
				if tag == "-" {
					continue
				}
				name = tag
			}
			item, err := normalize(v.Field(i))
			if err != nil {
				return nil, err
			}
			fields = append(fields, name)
			values = append(values, item)
		}
		return recordValue{fields: fields, values: values}, nil
	}
	return nil, errors.TypeMismatch("from_iterable", "a supported value", v.Type().String())
}

func normalizeItems(v reflect.Value) ([]any, error) {
	items := make([]any, v.Len())
	for i := range items {
		item, err := normalize(v.Index(i))
		if err != nil {
			return nil, errors.New(errors.ErrInvalidArgument).
				Op("from_iterable").
				Offset(int64(i)).
				Wrap(err).
				Message("element %d", i).
				Build()
		}
		items[i] = item
	}
	return items, nil
}

func tupleFields(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprint(i)
	}
	return out
}
