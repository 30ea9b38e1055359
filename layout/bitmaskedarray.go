package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
	"github.com/wzqhbustb/jagged/types"
)

// BitMaskedArray is nullable through one bit per element, as in Arrow
// validity bitmaps. Bits are read least-significant first when lsbOrder is
// set.
type BitMaskedArray struct {
	meta
	mask      *index.Index
	bits      *memory.Bitmap
	content   Content
	validWhen bool
	length    int
	lsbOrder  bool
}

func NewBitMaskedArray(mask *index.Index, content Content, validWhen bool, length int, lsbOrder bool, params types.Parameters) (*BitMaskedArray, error) {
	const op = "NewBitMaskedArray"
	if mask.Type() != index.Uint8 {
		return nil, errors.FormMismatchf(op, "BitMaskedArray", "mask must be u8, not %s", mask.Type().FormName())
	}
	if length < 0 {
		return nil, errors.FormMismatchf(op, "BitMaskedArray", "negative length %d", length)
	}
	if mask.Len()*8 < length {
		return nil, errors.FormMismatchf(op, "BitMaskedArray", "mask of %d bytes cannot cover %d elements", mask.Len(), length)
	}
	if content.Len() < length {
		return nil, errors.FormMismatchf(op, "BitMaskedArray", "content length %d is shorter than length %d", content.Len(), length)
	}
	if content.IsOption() {
		return nil, errors.FormMismatchf(op, "BitMaskedArray", "an option type cannot directly contain another option type (%s)", className(content))
	}
	return &BitMaskedArray{
		meta:      meta{params: params},
		mask:      mask,
		bits:      memory.NewBitmapFromBytes(mask.Bytes(), length, lsbOrder),
		content:   content,
		validWhen: validWhen,
		length:    length,
		lsbOrder:  lsbOrder,
	}, nil
}

func (x *BitMaskedArray) Len() int           { return x.length }
func (x *BitMaskedArray) Mask() *index.Index { return x.mask }
func (x *BitMaskedArray) Content() Content   { return x.content }
func (x *BitMaskedArray) ValidWhen() bool    { return x.validWhen }
func (x *BitMaskedArray) LSBOrder() bool     { return x.lsbOrder }
func (x *BitMaskedArray) IsOption() bool     { return true }
func (x *BitMaskedArray) Type() types.Type   { return x.Form().Type() }
func (x *BitMaskedArray) String() string     { return describe("BitMaskedArray", x) }

func (x *BitMaskedArray) Form() forms.Form {
	return forms.BitMaskedForm{
		Meta:      formMeta(x.params),
		Mask:      x.mask.Type(),
		Content:   x.content.Form(),
		ValidWhen: x.validWhen,
		LSBOrder:  x.lsbOrder,
	}
}

func (x *BitMaskedArray) isValid(i int) bool { return x.bits.IsSet(i) == x.validWhen }

// ToByteMaskedArray expands the bits to one byte per element.
func (x *BitMaskedArray) ToByteMaskedArray() *ByteMaskedArray {
	mask := make([]int8, x.length)
	for i := range mask {
		if x.isValid(i) {
			mask[i] = 1
		}
	}
	return &ByteMaskedArray{
		meta:      x.meta,
		mask:      index.FromInt8(mask),
		content:   x.content.rangeUnsafe(0, x.length),
		validWhen: true,
	}
}

func (x *BitMaskedArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.Len())
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.Len())
	}
	if !x.isValid(at) {
		return nil, nil
	}
	return x.content.GetItemAt(at)
}

func (x *BitMaskedArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *BitMaskedArray) GetItemField(name string) (Content, error) {
	return x.ToByteMaskedArray().GetItemField(name)
}

func (x *BitMaskedArray) GetItemFields(names []string) (Content, error) {
	return x.ToByteMaskedArray().GetItemFields(names)
}

func (x *BitMaskedArray) BranchDepth() (bool, int) { return x.content.BranchDepth() }
func (x *BitMaskedArray) MinMaxDepth() (int, int)  { return x.content.MinMaxDepth() }
func (x *BitMaskedArray) PurelistDepth() int       { return x.content.PurelistDepth() }

func (x *BitMaskedArray) withParameters(params types.Parameters) Content {
	out := *x
	out.params = params
	return &out
}

func (x *BitMaskedArray) carry(carry []int64) (Content, error) {
	return x.ToByteMaskedArray().carry(carry)
}

func (x *BitMaskedArray) rangeUnsafe(start, stop int) Content {
	return x.ToByteMaskedArray().rangeUnsafe(start, stop)
}

func (x *BitMaskedArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	return optionGetitemNext(x, head, tail, advanced)
}

func (x *BitMaskedArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	return optionGetitemNextJagged(x, slicestarts, slicestops, slicecontent, tail)
}
