package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// ByteMaskedArray is nullable through a byte per element: element i is
// present when (mask[i] != 0) == validWhen.
type ByteMaskedArray struct {
	meta
	mask      *index.Index
	content   Content
	validWhen bool
}

func NewByteMaskedArray(mask *index.Index, content Content, validWhen bool, params types.Parameters) (*ByteMaskedArray, error) {
	const op = "NewByteMaskedArray"
	if mask.Type() != index.Int8 {
		return nil, errors.FormMismatchf(op, "ByteMaskedArray", "mask must be i8, not %s", mask.Type().FormName())
	}
	if content.IsOption() {
		return nil, errors.FormMismatchf(op, "ByteMaskedArray", "an option type cannot directly contain another option type (%s)", className(content))
	}
	if content.Len() < mask.Len() {
		return nil, errors.FormMismatchf(op, "ByteMaskedArray", "content length %d is shorter than the mask length %d", content.Len(), mask.Len())
	}
	return &ByteMaskedArray{meta: meta{params: params}, mask: mask, content: content, validWhen: validWhen}, nil
}

// NewByteMaskedArrayFromValid builds a mask that is 1 where valid is true.
func NewByteMaskedArrayFromValid(valid []bool, content Content, params types.Parameters) (Content, error) {
	mask := make([]int8, len(valid))
	for i, v := range valid {
		if v {
			mask[i] = 1
		}
	}
	if content.IsOption() || content.IsIndexed() {
		return NewIndexedOptionArraySimplified(index.FromInt64(maskToIndex(valid)), content, params)
	}
	return NewByteMaskedArray(index.FromInt8(mask), content, true, params)
}

func maskToIndex(valid []bool) []int64 {
	out := make([]int64, len(valid))
	for i, v := range valid {
		if v {
			out[i] = int64(i)
		} else {
			out[i] = -1
		}
	}
	return out
}

func (x *ByteMaskedArray) Len() int           { return x.mask.Len() }
func (x *ByteMaskedArray) Mask() *index.Index { return x.mask }
func (x *ByteMaskedArray) Content() Content   { return x.content }
func (x *ByteMaskedArray) ValidWhen() bool    { return x.validWhen }
func (x *ByteMaskedArray) IsOption() bool     { return true }
func (x *ByteMaskedArray) Type() types.Type   { return x.Form().Type() }
func (x *ByteMaskedArray) String() string     { return describe("ByteMaskedArray", x) }

func (x *ByteMaskedArray) Form() forms.Form {
	return forms.ByteMaskedForm{Meta: formMeta(x.params), Mask: x.mask.Type(), Content: x.content.Form(), ValidWhen: x.validWhen}
}

func (x *ByteMaskedArray) isValid(i int) bool {
	return (x.mask.Get(i) != 0) == x.validWhen
}

// Valid reports, per element, whether it is present.
func (x *ByteMaskedArray) Valid() []bool {
	out := make([]bool, x.Len())
	for i := range out {
		out[i] = x.isValid(i)
	}
	return out
}

// ToIndexedOptionArray64 converts the mask into an index over the content.
func (x *ByteMaskedArray) ToIndexedOptionArray64() *IndexedOptionArray {
	valid := x.Valid()
	return &IndexedOptionArray{meta: x.meta, index: index.FromInt64(maskToIndex(valid)), content: x.content}
}

func (x *ByteMaskedArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.Len())
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.Len())
	}
	if !x.isValid(at) {
		return nil, nil
	}
	return x.content.GetItemAt(at)
}

func (x *ByteMaskedArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *ByteMaskedArray) GetItemField(name string) (Content, error) {
	content, err := x.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	if content.IsOption() || content.IsIndexed() {
		return NewIndexedOptionArraySimplified(x.ToIndexedOptionArray64().index, content, emptyParams)
	}
	return NewByteMaskedArray(x.mask, content, x.validWhen, emptyParams)
}

func (x *ByteMaskedArray) GetItemFields(names []string) (Content, error) {
	content, err := x.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewByteMaskedArray(x.mask, content, x.validWhen, emptyParams)
}

func (x *ByteMaskedArray) BranchDepth() (bool, int) { return x.content.BranchDepth() }
func (x *ByteMaskedArray) MinMaxDepth() (int, int)  { return x.content.MinMaxDepth() }
func (x *ByteMaskedArray) PurelistDepth() int       { return x.content.PurelistDepth() }

func (x *ByteMaskedArray) withParameters(params types.Parameters) Content {
	return &ByteMaskedArray{meta: meta{params: params}, mask: x.mask, content: x.content, validWhen: x.validWhen}
}

func (x *ByteMaskedArray) carry(carry []int64) (Content, error) {
	if err := checkCarry("carry", carry, x.Len()); err != nil {
		return nil, err
	}
	mask := make([]int8, len(carry))
	for i, c := range carry {
		mask[i] = int8(x.mask.Get(int(c)))
	}
	content, err := x.content.carry(carry)
	if err != nil {
		return nil, err
	}
	return &ByteMaskedArray{meta: x.meta, mask: index.FromInt8(mask), content: content, validWhen: x.validWhen}, nil
}

func (x *ByteMaskedArray) rangeUnsafe(start, stop int) Content {
	return &ByteMaskedArray{
		meta:      x.meta,
		mask:      x.mask.Slice(start, stop),
		content:   x.content.rangeUnsafe(start, stop),
		validWhen: x.validWhen,
	}
}

func (x *ByteMaskedArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	return optionGetitemNext(x, head, tail, advanced)
}

func (x *ByteMaskedArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	return optionGetitemNextJagged(x, slicestarts, slicestops, slicecontent, tail)
}
