package layout

import (
	"strconv"

	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// RecordArray is a struct of arrays: one content per field, all at least
// length long. A nil field list makes it a tuple whose fields are addressed
// as "0", "1", ...
type RecordArray struct {
	meta
	contents []Content
	fields   []string
	length   int
}

// NewRecordArray builds a record array. A negative length means the
// shortest content's length (0 without contents).
func NewRecordArray(contents []Content, fields []string, length int, params types.Parameters) (*RecordArray, error) {
	const op = "NewRecordArray"
	if fields != nil && len(fields) != len(contents) {
		return nil, errors.FormMismatchf(op, "RecordArray", "%d fields for %d contents", len(fields), len(contents))
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f] {
			return nil, errors.FormMismatchf(op, "RecordArray", "duplicate field name %q", f)
		}
		seen[f] = true
	}
	if length < 0 {
		length = 0
		for i, c := range contents {
			if i == 0 || c.Len() < length {
				length = c.Len()
			}
		}
	}
	for i, c := range contents {
		if c.Len() < length {
			return nil, errors.FormMismatchf(op, "RecordArray",
				"field %s has length %d, shorter than the record length %d", fieldLabel(fields, i), c.Len(), length)
		}
	}
	out := &RecordArray{meta: meta{params: params}, contents: append([]Content{}, contents...), length: length}
	if fields != nil {
		out.fields = append([]string{}, fields...)
	}
	return out, nil
}

func fieldLabel(fields []string, i int) string {
	if fields == nil {
		return strconv.Itoa(i)
	}
	return strconv.Quote(fields[i])
}

func (x *RecordArray) Len() int         { return x.length }
func (x *RecordArray) IsRecord() bool   { return true }
func (x *RecordArray) IsTuple() bool    { return x.fields == nil }
func (x *RecordArray) Type() types.Type { return x.Form().Type() }
func (x *RecordArray) String() string   { return describe("RecordArray", x) }

// Fields returns the field names; tuples report "0", "1", ...
func (x *RecordArray) Fields() []string {
	if x.fields == nil {
		out := make([]string, len(x.contents))
		for i := range out {
			out[i] = strconv.Itoa(i)
		}
		return out
	}
	return append([]string{}, x.fields...)
}

// Contents returns the field contents trimmed to the record length.
func (x *RecordArray) Contents() []Content {
	out := make([]Content, len(x.contents))
	for i := range x.contents {
		out[i] = x.trimmed(i)
	}
	return out
}

// Content returns one field trimmed to the record length.
func (x *RecordArray) Content(name string) (Content, error) {
	i, ok := fieldIndex(x.fields, len(x.contents), name)
	if !ok {
		return nil, errors.FieldNotFound("getitem_field", name, x.Fields())
	}
	return x.trimmed(i), nil
}

func (x *RecordArray) trimmed(i int) Content {
	if x.contents[i].Len() == x.length {
		return x.contents[i]
	}
	return x.contents[i].rangeUnsafe(0, x.length)
}

func (x *RecordArray) Form() forms.Form {
	contents := make([]forms.Form, len(x.contents))
	for i, c := range x.contents {
		contents[i] = c.Form()
	}
	var fields []string
	if x.fields != nil {
		fields = append([]string{}, x.fields...)
	}
	return forms.RecordForm{Meta: formMeta(x.params), Contents: contents, Fields: fields}
}

func (x *RecordArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.length)
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.length)
	}
	return &Record{array: x, at: at}, nil
}

func (x *RecordArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *RecordArray) GetItemField(name string) (Content, error) {
	return x.Content(name)
}

func (x *RecordArray) GetItemFields(names []string) (Content, error) {
	contents := make([]Content, len(names))
	for k, name := range names {
		c, err := x.Content(name)
		if err != nil {
			return nil, err
		}
		contents[k] = c
	}
	var fields []string
	if x.fields != nil {
		fields = names
	}
	return NewRecordArray(contents, fields, x.length, emptyParams)
}

func (x *RecordArray) BranchDepth() (bool, int) {
	if len(x.contents) == 0 {
		return false, 1
	}
	branching := false
	mindepth := -1
	for _, c := range x.contents {
		b, d := c.BranchDepth()
		if mindepth == -1 {
			mindepth = d
		}
		if b || mindepth != d {
			branching = true
		}
		if d < mindepth {
			mindepth = d
		}
	}
	return branching, mindepth
}

func (x *RecordArray) MinMaxDepth() (int, int) {
	if len(x.contents) == 0 {
		return 1, 1
	}
	lo, hi := -1, -1
	for _, c := range x.contents {
		a, b := c.MinMaxDepth()
		if lo == -1 || a < lo {
			lo = a
		}
		if hi == -1 || b > hi {
			hi = b
		}
	}
	return lo, hi
}

func (x *RecordArray) PurelistDepth() int { return 1 }

func (x *RecordArray) withParameters(params types.Parameters) Content {
	return &RecordArray{meta: meta{params: params}, contents: x.contents, fields: x.fields, length: x.length}
}

func (x *RecordArray) carry(carry []int64) (Content, error) {
	if err := checkCarry("carry", carry, x.length); err != nil {
		return nil, err
	}
	contents := make([]Content, len(x.contents))
	for i, c := range x.contents {
		next, err := c.carry(carry)
		if err != nil {
			return nil, err
		}
		contents[i] = next
	}
	return &RecordArray{meta: x.meta, contents: contents, fields: x.fields, length: len(carry)}, nil
}

func (x *RecordArray) rangeUnsafe(start, stop int) Content {
	contents := make([]Content, len(x.contents))
	for i, c := range x.contents {
		contents[i] = c.rangeUnsafe(start, stop)
	}
	return &RecordArray{meta: x.meta, contents: contents, fields: x.fields, length: stop - start}
}

// pullFields moves field selectors that name this record's fields out of the
// tail and applies them first; a field selector commutes with dimensions.
func (x *RecordArray) pullFields(tail []sliceItem) (Content, []sliceItem, error) {
	for k, item := range tail {
		var next Content
		var err error
		switch f := item.(type) {
		case sliceField:
			if _, ok := fieldIndex(x.fields, len(x.contents), f.name); !ok {
				continue
			}
			next, err = x.GetItemField(f.name)
		case sliceFields:
			all := true
			for _, name := range f.names {
				if _, ok := fieldIndex(x.fields, len(x.contents), name); !ok {
					all = false
				}
			}
			if !all {
				continue
			}
			next, err = x.GetItemFields(f.names)
		default:
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		rest := append(append([]sliceItem{}, tail[:k]...), tail[k+1:]...)
		return next, rest, nil
	}
	return x, tail, nil
}

func (x *RecordArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	switch head.(type) {
	case sliceAt, sliceRange, sliceArray, sliceJagged:
	default:
		return getitemNextSpecial(x, head, tail, advanced)
	}
	next, rest, err := x.pullFields(tail)
	if err != nil {
		return nil, err
	}
	if next != Content(x) {
		return next.getitemNext(head, rest, advanced)
	}
	if len(x.contents) == 0 {
		return nil, errTooManyDimensions("getitem", x)
	}
	contents := make([]Content, len(x.contents))
	for i := range x.contents {
		out, err := x.trimmed(i).getitemNext(head, tail, advanced)
		if err != nil {
			return nil, err
		}
		contents[i] = out
	}
	return NewRecordArray(contents, x.fields, -1, x.params)
}

func (x *RecordArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	contents := make([]Content, len(x.contents))
	for i := range x.contents {
		out, err := x.trimmed(i).getitemNextJagged(slicestarts, slicestops, slicecontent, tail)
		if err != nil {
			return nil, err
		}
		contents[i] = out
	}
	return NewRecordArray(contents, x.fields, len(slicestarts), x.params)
}
