package forms

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	jsoniter "github.com/json-iterator/go"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// json sorts object keys so that equal forms serialize to equal bytes.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToJSON serializes a form.
func ToJSON(f Form) ([]byte, error) {
	data, err := json.Marshal(toMap(f, true))
	if err != nil {
		return nil, errors.EncodeFailed("form-json", err)
	}
	return data, nil
}

// MustJSON is ToJSON for forms known to be serializable.
func MustJSON(f Form) string {
	data, err := ToJSON(f)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// Hash returns a digest of the form's structure and parameters, ignoring form
// keys. Forms with equal hashes describe interchangeable layouts.
func Hash(f Form) uint64 {
	data, err := json.Marshal(toMap(f, false))
	if err != nil {
		return 0
	}
	return xxhash.Sum64(data)
}

// Equal compares two forms ignoring form keys.
func Equal(a, b Form) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ja, errA := json.Marshal(toMap(a, false))
	jb, errB := json.Marshal(toMap(b, false))
	return errA == nil && errB == nil && string(ja) == string(jb)
}

func toMap(f Form, withKeys bool) map[string]any {
	m := map[string]any{"class": f.Class()}
	if params := f.Parameters(); !params.IsEmpty() {
		m["parameters"] = params.Map()
	}
	if withKeys && f.FormKey() != "" {
		m["form_key"] = f.FormKey()
	}
	children := func(cs []Form) []any {
		out := make([]any, len(cs))
		for i, c := range cs {
			out[i] = toMap(c, withKeys)
		}
		return out
	}
	switch x := f.(type) {
	case NumpyForm:
		m["primitive"] = x.Primitive.String()
		shape := x.InnerShape
		if shape == nil {
			shape = []int{}
		}
		m["inner_shape"] = shape
	case RegularForm:
		m["size"] = x.Size
		m["content"] = toMap(x.Content, withKeys)
	case ListOffsetForm:
		m["offsets"] = x.Offsets.FormName()
		m["content"] = toMap(x.Content, withKeys)
	case ListForm:
		m["starts"] = x.Starts.FormName()
		m["stops"] = x.Stops.FormName()
		m["content"] = toMap(x.Content, withKeys)
	case IndexedForm:
		m["index"] = x.Index.FormName()
		m["content"] = toMap(x.Content, withKeys)
	case IndexedOptionForm:
		m["index"] = x.Index.FormName()
		m["content"] = toMap(x.Content, withKeys)
	case ByteMaskedForm:
		m["mask"] = x.Mask.FormName()
		m["valid_when"] = x.ValidWhen
		m["content"] = toMap(x.Content, withKeys)
	case BitMaskedForm:
		m["mask"] = x.Mask.FormName()
		m["valid_when"] = x.ValidWhen
		m["lsb_order"] = x.LSBOrder
		m["content"] = toMap(x.Content, withKeys)
	case UnmaskedForm:
		m["content"] = toMap(x.Content, withKeys)
	case RecordForm:
		if x.Fields == nil {
			m["fields"] = nil
		} else {
			m["fields"] = x.Fields
		}
		m["contents"] = children(x.Contents)
	case UnionForm:
		m["tags"] = x.Tags.FormName()
		m["index"] = x.Index.FormName()
		m["contents"] = children(x.Contents)
	}
	return m
}

// FromJSON parses a serialized form. A bare JSON string names a primitive
// NumpyForm, e.g. "float64".
func FromJSON(data []byte) (Form, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.DecodeFailed("form-json", 0, err)
	}
	return fromValue(raw, "")
}

func formError(path, format string, args ...any) error {
	return errors.New(errors.ErrFormMismatch).
		Op("forms.FromJSON").
		Path(path).
		Message(format, args...).
		Build()
}

func fromValue(raw any, path string) (Form, error) {
	if s, ok := raw.(string); ok {
		dt, err := dtype.Parse(s)
		if err != nil {
			return nil, formError(path, "%v", err)
		}
		return NumpyForm{Primitive: dt}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, formError(path, "expected an object, got %T", raw)
	}
	meta := Meta{}
	if key, ok := m["form_key"].(string); ok {
		meta.Key = key
	}
	if params, ok := m["parameters"].(map[string]any); ok {
		meta.Params = types.ParametersFromMap(params)
	}
	class, _ := m["class"].(string)
	here := path + "/" + class

	indexType := func(name string, fallback index.Type) (index.Type, error) {
		v, ok := m[name]
		if !ok {
			return fallback, nil
		}
		s, _ := v.(string)
		t, err := index.ParseFormName(s)
		if err != nil {
			return 0, formError(here, "%s: %v", name, err)
		}
		return t, nil
	}
	content := func() (Form, error) {
		c, ok := m["content"]
		if !ok {
			return nil, formError(here, "missing content")
		}
		return fromValue(c, here)
	}
	contents := func() ([]Form, error) {
		list, ok := m["contents"].([]any)
		if !ok {
			return nil, formError(here, "missing contents")
		}
		out := make([]Form, len(list))
		for i, c := range list {
			f, err := fromValue(c, fmt.Sprintf("%s[%d]", here, i))
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	}
	boolean := func(name string, fallback bool) bool {
		if b, ok := m[name].(bool); ok {
			return b
		}
		return fallback
	}

	switch class {
	case "EmptyArray":
		return EmptyForm{Meta: meta}, nil
	case "NumpyArray":
		prim, _ := m["primitive"].(string)
		dt, err := dtype.Parse(prim)
		if err != nil {
			return nil, formError(here, "%v", err)
		}
		var shape []int
		if list, ok := m["inner_shape"].([]any); ok {
			for _, v := range list {
				n, _ := v.(float64)
				shape = append(shape, int(n))
			}
		}
		return NumpyForm{Meta: meta, Primitive: dt, InnerShape: shape}, nil
	case "RegularArray":
		c, err := content()
		if err != nil {
			return nil, err
		}
		size, _ := m["size"].(float64)
		return RegularForm{Meta: meta, Content: c, Size: int(size)}, nil
	case "ListOffsetArray":
		offsets, err := indexType("offsets", index.Int64)
		if err != nil {
			return nil, err
		}
		c, err := content()
		if err != nil {
			return nil, err
		}
		return ListOffsetForm{Meta: meta, Offsets: offsets, Content: c}, nil
	case "ListArray":
		starts, err := indexType("starts", index.Int64)
		if err != nil {
			return nil, err
		}
		stops, err := indexType("stops", starts)
		if err != nil {
			return nil, err
		}
		c, err := content()
		if err != nil {
			return nil, err
		}
		return ListForm{Meta: meta, Starts: starts, Stops: stops, Content: c}, nil
	case "IndexedArray", "IndexedOptionArray":
		idx, err := indexType("index", index.Int64)
		if err != nil {
			return nil, err
		}
		c, err := content()
		if err != nil {
			return nil, err
		}
		if class == "IndexedArray" {
			return IndexedForm{Meta: meta, Index: idx, Content: c}, nil
		}
		return IndexedOptionForm{Meta: meta, Index: idx, Content: c}, nil
	case "ByteMaskedArray":
		mask, err := indexType("mask", index.Int8)
		if err != nil {
			return nil, err
		}
		c, err := content()
		if err != nil {
			return nil, err
		}
		return ByteMaskedForm{Meta: meta, Mask: mask, Content: c, ValidWhen: boolean("valid_when", true)}, nil
	case "BitMaskedArray":
		mask, err := indexType("mask", index.Uint8)
		if err != nil {
			return nil, err
		}
		c, err := content()
		if err != nil {
			return nil, err
		}
		return BitMaskedForm{
			Meta:      meta,
			Mask:      mask,
			Content:   c,
			ValidWhen: boolean("valid_when", true),
			LSBOrder:  boolean("lsb_order", true),
		}, nil
	case "UnmaskedArray":
		c, err := content()
		if err != nil {
			return nil, err
		}
		return UnmaskedForm{Meta: meta, Content: c}, nil
	case "RecordArray":
		cs, err := contents()
		if err != nil {
			return nil, err
		}
		var fields []string
		if list, ok := m["fields"].([]any); ok {
			fields = make([]string, len(list))
			for i, v := range list {
				fields[i], _ = v.(string)
			}
			if len(fields) != len(cs) {
				return nil, formError(here, "%d fields for %d contents", len(fields), len(cs))
			}
		}
		return RecordForm{Meta: meta, Contents: cs, Fields: fields}, nil
	case "UnionArray":
		tags, err := indexType("tags", index.Int8)
		if err != nil {
			return nil, err
		}
		idx, err := indexType("index", index.Int64)
		if err != nil {
			return nil, err
		}
		cs, err := contents()
		if err != nil {
			return nil, err
		}
		return UnionForm{Meta: meta, Tags: tags, Index: idx, Contents: cs}, nil
	}
	return nil, formError(path, "unrecognized class %q", class)
}
