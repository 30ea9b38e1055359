// Package types describes the high-level type of a jagged array and renders it
// in the datashape-like grammar ("3 * var * ?float64").
package types

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/wzqhbustb/jagged/dtype"
)

// Type is the logical type of an array's elements.
type Type interface {
	Parameters() Parameters
	String() string
	isType()
}

// UnknownType is the type of an array with no elements to infer from.
type UnknownType struct {
	Params Parameters
}

// NumpyType is a primitive leaf.
type NumpyType struct {
	Primitive dtype.DType
	Params    Parameters
}

// RegularType is a list dimension of fixed size.
type RegularType struct {
	Content Type
	Size    int
	Params  Parameters
}

// ListType is a variable-length list dimension.
type ListType struct {
	Content Type
	Params  Parameters
}

// OptionType is a nullable value.
type OptionType struct {
	Content Type
	Params  Parameters
}

// RecordType is a record (named fields) or, when Fields is nil, a tuple.
type RecordType struct {
	Contents []Type
	Fields   []string
	Params   Parameters
}

// UnionType is a tagged union of alternatives.
type UnionType struct {
	Contents []Type
	Params   Parameters
}

// ArrayType is the type of a whole array: its length and element type.
type ArrayType struct {
	Content Type
	Length  int
}

func (UnknownType) isType() {}
func (NumpyType) isType()   {}
func (RegularType) isType() {}
func (ListType) isType()    {}
func (OptionType) isType()  {}
func (RecordType) isType()  {}
func (UnionType) isType()   {}
func (ArrayType) isType()   {}

func (t UnknownType) Parameters() Parameters { return t.Params }
func (t NumpyType) Parameters() Parameters   { return t.Params }
func (t RegularType) Parameters() Parameters { return t.Params }
func (t ListType) Parameters() Parameters    { return t.Params }
func (t OptionType) Parameters() Parameters  { return t.Params }
func (t RecordType) Parameters() Parameters  { return t.Params }
func (t UnionType) Parameters() Parameters   { return t.Params }
func (t ArrayType) Parameters() Parameters   { return Parameters{} }

// IsTuple reports whether the record has positional fields only.
func (t RecordType) IsTuple() bool { return t.Fields == nil }

// Name returns the __record__ parameter.
func (t RecordType) Name() string { return t.Params.String(RecordKey) }

// Equal compares two types by their rendered form, which includes parameters.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.String() == b.String()
}

// strParameters renders the parameters that are not implied by the type
// string itself, or "" when there are none.
func strParameters(p Parameters, hidden ...string) string {
	if p.IsEmpty() {
		return ""
	}
	shown := make(map[string]any)
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		if v == nil || contains(hidden, k) {
			continue
		}
		shown[k] = v
	}
	if len(shown) == 0 {
		return ""
	}
	data, err := json.Marshal(shown)
	if err != nil {
		return ""
	}
	return "parameters=" + string(data)
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func (t UnknownType) String() string {
	if params := strParameters(t.Params); params != "" {
		return "unknown[" + params + "]"
	}
	return "unknown"
}

func (t NumpyType) String() string {
	name := t.Primitive.String()
	switch t.Params.String(ArrayKey) {
	case "char":
		name = "char"
	case "byte":
		name = "byte"
	}
	if params := strParameters(t.Params, ArrayKey); params != "" {
		return name + "[" + params + "]"
	}
	return name
}

func (t RegularType) String() string {
	switch t.Params.String(ArrayKey) {
	case "string":
		return "string[" + strconv.Itoa(t.Size) + "]"
	case "bytestring":
		return "bytes[" + strconv.Itoa(t.Size) + "]"
	}
	body := strconv.Itoa(t.Size) + " * " + t.Content.String()
	if params := strParameters(t.Params); params != "" {
		return "[" + body + ", " + params + "]"
	}
	return body
}

func (t ListType) String() string {
	switch t.Params.String(ArrayKey) {
	case "string":
		return "string"
	case "bytestring":
		return "bytes"
	}
	body := "var * " + t.Content.String()
	if params := strParameters(t.Params); params != "" {
		return "[" + body + ", " + params + "]"
	}
	return body
}

func (t OptionType) String() string {
	content := t.Content.String()
	if params := strParameters(t.Params); params != "" {
		return "option[" + content + ", " + params + "]"
	}
	if isDimension(t.Content) {
		return "option[" + content + "]"
	}
	return "?" + content
}

// isDimension reports whether t renders with a leading "N *" or "var *".
func isDimension(t Type) bool {
	switch c := t.(type) {
	case RegularType:
		return c.Params.String(ArrayKey) != "string" && c.Params.String(ArrayKey) != "bytestring"
	case ListType:
		return c.Params.String(ArrayKey) != "string" && c.Params.String(ArrayKey) != "bytestring"
	}
	return false
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z_0-9]*$`)

func fieldName(name string) string {
	if identifier.MatchString(name) {
		return name
	}
	return strconv.Quote(name)
}

func (t RecordType) String() string {
	parts := make([]string, len(t.Contents))
	for i, c := range t.Contents {
		if t.Fields == nil {
			parts[i] = c.String()
		} else {
			parts[i] = fieldName(t.Fields[i]) + ": " + c.String()
		}
	}
	body := strings.Join(parts, ", ")
	params := strParameters(t.Params, RecordKey)
	if name := t.Name(); name != "" {
		if params != "" {
			if body == "" {
				return name + "[" + params + "]"
			}
			return name + "[" + body + ", " + params + "]"
		}
		return name + "[" + body + "]"
	}
	if t.Fields == nil {
		if params != "" {
			return "tuple[[" + body + "], " + params + "]"
		}
		return "(" + body + ")"
	}
	if params != "" {
		return "struct[{" + body + "}, " + params + "]"
	}
	return "{" + body + "}"
}

func (t UnionType) String() string {
	parts := make([]string, len(t.Contents))
	for i, c := range t.Contents {
		parts[i] = c.String()
	}
	if params := strParameters(t.Params); params != "" {
		parts = append(parts, params)
	}
	return "union[" + strings.Join(parts, ", ") + "]"
}

func (t ArrayType) String() string {
	return strconv.Itoa(t.Length) + " * " + t.Content.String()
}
