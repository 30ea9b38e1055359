// Package forms describes the layout tree of a jagged array without its
// buffers. A Form plus a set of named buffers and a length is everything
// needed to reconstruct the array.
package forms

import (
	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/types"
)

// Form mirrors one layout node: its class, index types, primitive, parameters
// and form key, recursively.
type Form interface {
	// Class returns the layout class name ("NumpyArray", "ListOffsetArray", ...).
	Class() string
	// FormKey returns the key used to name this node's buffers, or "".
	FormKey() string
	Parameters() types.Parameters
	// Type returns the element type this form describes.
	Type() types.Type
	// Children returns the direct content forms.
	Children() []Form
	isForm()
}

// Meta holds the attributes every form carries.
type Meta struct {
	Params types.Parameters
	Key    string
}

func (m Meta) FormKey() string              { return m.Key }
func (m Meta) Parameters() types.Parameters { return m.Params }

type EmptyForm struct {
	Meta
}

type NumpyForm struct {
	Meta
	Primitive  dtype.DType
	InnerShape []int
}

type RegularForm struct {
	Meta
	Content Form
	Size    int
}

type ListOffsetForm struct {
	Meta
	Offsets index.Type
	Content Form
}

type ListForm struct {
	Meta
	Starts  index.Type
	Stops   index.Type
	Content Form
}

type IndexedForm struct {
	Meta
	Index   index.Type
	Content Form
}

type IndexedOptionForm struct {
	Meta
	Index   index.Type
	Content Form
}

type ByteMaskedForm struct {
	Meta
	Mask      index.Type
	Content   Form
	ValidWhen bool
}

type BitMaskedForm struct {
	Meta
	Mask      index.Type
	Content   Form
	ValidWhen bool
	LSBOrder  bool
}

type UnmaskedForm struct {
	Meta
	Content Form
}

// RecordForm is a record when Fields is non-nil and a tuple otherwise.
type RecordForm struct {
	Meta
	Contents []Form
	Fields   []string
}

type UnionForm struct {
	Meta
	Tags     index.Type
	Index    index.Type
	Contents []Form
}

func (EmptyForm) isForm()         {}
func (NumpyForm) isForm()         {}
func (RegularForm) isForm()       {}
func (ListOffsetForm) isForm()    {}
func (ListForm) isForm()          {}
func (IndexedForm) isForm()       {}
func (IndexedOptionForm) isForm() {}
func (ByteMaskedForm) isForm()    {}
func (BitMaskedForm) isForm()     {}
func (UnmaskedForm) isForm()      {}
func (RecordForm) isForm()        {}
func (UnionForm) isForm()         {}

func (EmptyForm) Class() string         { return "EmptyArray" }
func (NumpyForm) Class() string         { return "NumpyArray" }
func (RegularForm) Class() string       { return "RegularArray" }
func (ListOffsetForm) Class() string    { return "ListOffsetArray" }
func (ListForm) Class() string          { return "ListArray" }
func (IndexedForm) Class() string       { return "IndexedArray" }
func (IndexedOptionForm) Class() string { return "IndexedOptionArray" }
func (ByteMaskedForm) Class() string    { return "ByteMaskedArray" }
func (BitMaskedForm) Class() string     { return "BitMaskedArray" }
func (UnmaskedForm) Class() string      { return "UnmaskedArray" }
func (RecordForm) Class() string        { return "RecordArray" }
func (UnionForm) Class() string         { return "UnionArray" }

func (EmptyForm) Children() []Form           { return nil }
func (NumpyForm) Children() []Form           { return nil }
func (f RegularForm) Children() []Form       { return []Form{f.Content} }
func (f ListOffsetForm) Children() []Form    { return []Form{f.Content} }
func (f ListForm) Children() []Form          { return []Form{f.Content} }
func (f IndexedForm) Children() []Form       { return []Form{f.Content} }
func (f IndexedOptionForm) Children() []Form { return []Form{f.Content} }
func (f ByteMaskedForm) Children() []Form    { return []Form{f.Content} }
func (f BitMaskedForm) Children() []Form     { return []Form{f.Content} }
func (f UnmaskedForm) Children() []Form      { return []Form{f.Content} }
func (f RecordForm) Children() []Form        { return f.Contents }
func (f UnionForm) Children() []Form         { return f.Contents }

// IsTuple reports whether the record has positional fields only.
func (f RecordForm) IsTuple() bool { return f.Fields == nil }

// FieldIndex returns the position of a field, accepting "0", "1", ... for tuples.
func (f RecordForm) FieldIndex(name string) (int, bool) {
	for i, field := range f.Fields {
		if field == name {
			return i, true
		}
	}
	if f.Fields == nil {
		var n int
		for _, c := range name {
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		if name != "" && n < len(f.Contents) {
			return n, true
		}
	}
	return 0, false
}

func (f EmptyForm) Type() types.Type {
	return types.UnknownType{Params: f.Params}
}

func (f NumpyForm) Type() types.Type {
	var out types.Type = types.NumpyType{Primitive: f.Primitive, Params: f.Params}
	if len(f.InnerShape) == 0 {
		return out
	}
	out = types.NumpyType{Primitive: f.Primitive}
	for i := len(f.InnerShape) - 1; i >= 0; i-- {
		var params types.Parameters
		if i == 0 {
			params = f.Params
		}
		out = types.RegularType{Content: out, Size: f.InnerShape[i], Params: params}
	}
	return out
}

func (f RegularForm) Type() types.Type {
	return types.RegularType{Content: f.Content.Type(), Size: f.Size, Params: f.Params}
}

func (f ListOffsetForm) Type() types.Type {
	return types.ListType{Content: f.Content.Type(), Params: f.Params}
}

func (f ListForm) Type() types.Type {
	return types.ListType{Content: f.Content.Type(), Params: f.Params}
}

// Type of an indexed node is its content's type; its own parameters win.
func (f IndexedForm) Type() types.Type {
	return withParameters(f.Content.Type(), f.Content.Parameters().Merge(f.Params))
}

func (f IndexedOptionForm) Type() types.Type {
	return optionType(f.Content, f.Params)
}

func (f ByteMaskedForm) Type() types.Type {
	return optionType(f.Content, f.Params)
}

func (f BitMaskedForm) Type() types.Type {
	return optionType(f.Content, f.Params)
}

func (f UnmaskedForm) Type() types.Type {
	return optionType(f.Content, f.Params)
}

func optionType(content Form, params types.Parameters) types.Type {
	inner := content.Type()
	if opt, ok := inner.(types.OptionType); ok {
		return types.OptionType{Content: opt.Content, Params: opt.Params.Merge(params)}
	}
	return types.OptionType{Content: inner, Params: params}
}

func (f RecordForm) Type() types.Type {
	contents := make([]types.Type, len(f.Contents))
	for i, c := range f.Contents {
		contents[i] = c.Type()
	}
	var fields []string
	if f.Fields != nil {
		fields = append([]string{}, f.Fields...)
	}
	return types.RecordType{Contents: contents, Fields: fields, Params: f.Params}
}

func (f UnionForm) Type() types.Type {
	contents := make([]types.Type, len(f.Contents))
	for i, c := range f.Contents {
		contents[i] = c.Type()
	}
	return types.UnionType{Contents: contents, Params: f.Params}
}

func withParameters(t types.Type, params types.Parameters) types.Type {
	switch x := t.(type) {
	case types.UnknownType:
		x.Params = params
		return x
	case types.NumpyType:
		x.Params = params
		return x
	case types.RegularType:
		x.Params = params
		return x
	case types.ListType:
		x.Params = params
		return x
	case types.OptionType:
		x.Params = params
		return x
	case types.RecordType:
		x.Params = params
		return x
	case types.UnionType:
		x.Params = params
		return x
	}
	return t
}
