package types

import (
	"reflect"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Well-known parameter keys.
const (
	// ArrayKey marks lists as strings ("string", "bytestring") and their
	// leaves as characters ("char", "byte").
	ArrayKey = "__array__"
	// RecordKey names a record type.
	RecordKey = "__record__"
	// DocKey carries a free-form description.
	DocKey = "__doc__"
)

// Parameters is an ordered, immutable mapping of string keys to JSON-like
// values (string, float64, bool, nil, []any, map[string]any). Every layout and
// form node carries one; the zero value is empty.
type Parameters struct {
	keys   []string
	values map[string]any
}

// NewParameters builds parameters from alternating keys and values.
func NewParameters(kv ...any) Parameters {
	var p Parameters
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		p = p.With(key, kv[i+1])
	}
	return p
}

// ParametersFromMap builds parameters from a map; keys are sorted.
func ParametersFromMap(m map[string]any) Parameters {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var p Parameters
	for _, k := range keys {
		p = p.With(k, m[k])
	}
	return p
}

// Len returns the number of entries.
func (p Parameters) Len() int { return len(p.keys) }

// IsEmpty reports whether there are no entries.
func (p Parameters) IsEmpty() bool { return len(p.keys) == 0 }

// Keys returns the keys in insertion order.
func (p Parameters) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Get returns the value for key.
func (p Parameters) Get(key string) (any, bool) {
	v, ok := p.values[key]
	return v, ok
}

// String returns the value for key if it is a string.
func (p Parameters) String(key string) string {
	if s, ok := p.values[key].(string); ok {
		return s
	}
	return ""
}

// With returns a copy with key set to value. A nil value is stored as JSON null.
func (p Parameters) With(key string, value any) Parameters {
	out := Parameters{
		keys:   make([]string, 0, len(p.keys)+1),
		values: make(map[string]any, len(p.keys)+1),
	}
	for _, k := range p.keys {
		out.keys = append(out.keys, k)
		out.values[k] = p.values[k]
	}
	if _, exists := out.values[key]; !exists {
		out.keys = append(out.keys, key)
	}
	out.values[key] = normalizeValue(value)
	return out
}

// Without returns a copy with key removed.
func (p Parameters) Without(key string) Parameters {
	if _, ok := p.values[key]; !ok {
		return p
	}
	var out Parameters
	for _, k := range p.keys {
		if k != key {
			out = out.With(k, p.values[k])
		}
	}
	return out
}

// Merge returns p overlaid with other's entries.
func (p Parameters) Merge(other Parameters) Parameters {
	out := p
	for _, k := range other.keys {
		out = out.With(k, other.values[k])
	}
	return out
}

// Intersect keeps the entries that p and other agree on.
func (p Parameters) Intersect(other Parameters) Parameters {
	var out Parameters
	for _, k := range p.keys {
		if v, ok := other.values[k]; ok && reflect.DeepEqual(v, p.values[k]) {
			out = out.With(k, v)
		}
	}
	return out
}

// Equal compares entries regardless of order. Null values count as absent.
func (p Parameters) Equal(other Parameters) bool {
	a, b := p.nonNull(), other.nonNull()
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || !reflect.DeepEqual(v, w) {
			return false
		}
	}
	return true
}

func (p Parameters) nonNull() map[string]any {
	out := make(map[string]any, len(p.keys))
	for k, v := range p.values {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// Map returns a copy of the entries as a map.
func (p Parameters) Map() map[string]any {
	out := make(map[string]any, len(p.keys))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// MarshalJSON renders the parameters as a JSON object.
func (p Parameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

// UnmarshalJSON reads a JSON object.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*p = ParametersFromMap(m)
	return nil
}

// normalizeValue folds Go numbers into float64 so that parameters compare the
// same after a JSON round trip.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeValue(e)
		}
		return out
	}
	return v
}
