package layout

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/types"
)

// Tuple is a record without field names. FromIterable builds a tuple-typed
// RecordArray from it and ToList returns tuples as Tuple values.
type Tuple []any

// ToList materializes c as nested Go values: []any for lists, map[string]any
// for records, Tuple for tuples, string and []byte for string-like lists,
// nil for missing values and Go scalars for primitives.
func ToList(c Content) ([]any, error) {
	out := make([]any, c.Len())
	for i := range out {
		item, err := c.GetItemAt(i)
		if err != nil {
			return nil, err
		}
		v, err := toValue(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ToValue materializes one element returned by GetItemAt or GetItem.
func ToValue(item any) (any, error) {
	return toValue(item)
}

func toValue(item any) (any, error) {
	switch x := item.(type) {
	case nil:
		return nil, nil
	case *Record:
		return x.ToList()
	case Content:
		if s, ok := stringValue(x); ok {
			return s, nil
		}
		return ToList(x)
	}
	return item, nil
}

// stringValue converts a char or byte leaf to a Go string or []byte.
func stringValue(c Content) (any, bool) {
	x, ok := c.(*NumpyArray)
	if !ok || x.dtype != dtype.Uint8 || len(x.shape) != 1 {
		return nil, false
	}
	switch x.params.String(types.ArrayKey) {
	case "char":
		return string(x.data.Bytes()), true
	case "byte":
		return append([]byte{}, x.data.Bytes()...), true
	}
	return nil, false
}

// ToList materializes the record as a map, or as a Tuple for tuples.
func (r *Record) ToList() (any, error) {
	values, err := r.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if values[i], err = toValue(v); err != nil {
			return nil, err
		}
	}
	if r.IsTuple() {
		return Tuple(values), nil
	}
	out := make(map[string]any, len(values))
	for i, f := range r.array.fields {
		out[f] = values[i]
	}
	return out, nil
}

// Equal reports whether a and b have the same type and the same values.
func Equal(a, b Content) bool {
	if a.Len() != b.Len() || !types.Equal(a.Type(), b.Type()) {
		return false
	}
	la, err := ToList(a)
	if err != nil {
		return false
	}
	lb, err := ToList(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(la, lb)
}

// Format renders c's values in a compact bracketed form, e.g.
// [[1, 2, None], [], [3]].
func Format(c Content) string {
	values, err := ToList(c)
	if err != nil {
		return "<error: " + err.Error() + ">"
	}
	var b strings.Builder
	formatValue(&b, values)
	return b.String()
}

func formatValue(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("None")
	case []any:
		formatSeq(b, "[", "]", x)
	case Tuple:
		formatSeq(b, "(", ")", x)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			formatValue(b, x[k])
		}
		b.WriteString("}")
	case string:
		b.WriteString(strconv.Quote(x))
	case []byte:
		b.WriteString("b" + strconv.Quote(string(x)))
	case bool:
		if x {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	default:
		fmt.Fprint(b, x)
	}
}

func formatSeq(b *strings.Builder, open, closing string, values []any) {
	b.WriteString(open)
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		formatValue(b, v)
	}
	b.WriteString(closing)
}
