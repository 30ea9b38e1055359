package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// IndexedArray is a lazy gather: element i is content[index[i]]. It is how
// dictionary-encoded data is represented.
type IndexedArray struct {
	meta
	index   *index.Index
	content Content
}

func NewIndexedArray(idx *index.Index, content Content, params types.Parameters) (*IndexedArray, error) {
	const op = "NewIndexedArray"
	switch idx.Type() {
	case index.Int32, index.Uint32, index.Int64:
	default:
		return nil, errors.FormMismatchf(op, "IndexedArray", "index must be i32, u32 or i64, not %s", idx.Type().FormName())
	}
	n := int64(content.Len())
	for i := 0; i < idx.Len(); i++ {
		if v := idx.Get(i); v < 0 || v >= n {
			return nil, errors.FormMismatchf(op, "IndexedArray", "index[%d] = %d is out of range for content of length %d", i, v, n)
		}
	}
	return &IndexedArray{meta: meta{params: params}, index: idx, content: content}, nil
}

// NewIndexedArraySimplified builds an IndexedArray, composing it with an
// indexed or option-typed content so that the result has a single layer.
func NewIndexedArraySimplified(idx *index.Index, content Content, params types.Parameters) (Content, error) {
	switch inner := content.(type) {
	case *IndexedArray:
		composed, err := takeIndex("NewIndexedArraySimplified", inner.index, idx.Int64s())
		if err != nil {
			return nil, err
		}
		return NewIndexedArray(composed, inner.content, inner.params.Merge(params))
	case *IndexedOptionArray, *ByteMaskedArray, *BitMaskedArray, *UnmaskedArray:
		opt, err := toIndexedOptionArray64(content)
		if err != nil {
			return nil, err
		}
		composed, err := takeIndex("NewIndexedArraySimplified", opt.index, idx.Int64s())
		if err != nil {
			return nil, err
		}
		return NewIndexedOptionArray(composed, opt.content, opt.params.Merge(params))
	}
	return NewIndexedArray(idx, content, params)
}

func (x *IndexedArray) Len() int            { return x.index.Len() }
func (x *IndexedArray) Index() *index.Index { return x.index }
func (x *IndexedArray) Content() Content    { return x.content }
func (x *IndexedArray) IsIndexed() bool     { return true }
func (x *IndexedArray) Type() types.Type    { return x.Form().Type() }
func (x *IndexedArray) String() string      { return describe("IndexedArray", x) }

func (x *IndexedArray) Form() forms.Form {
	return forms.IndexedForm{Meta: formMeta(x.params), Index: x.index.Type(), Content: x.content.Form()}
}

// Project materializes the gather.
func (x *IndexedArray) Project() (Content, error) {
	out, err := x.content.carry(x.index.Int64s())
	if err != nil {
		return nil, err
	}
	if x.params.IsEmpty() {
		return out, nil
	}
	return out.withParameters(out.Parameters().Merge(x.params)), nil
}

func (x *IndexedArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.Len())
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.Len())
	}
	return x.content.GetItemAt(int(x.index.Get(at)))
}

func (x *IndexedArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *IndexedArray) GetItemField(name string) (Content, error) {
	content, err := x.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewIndexedArraySimplified(x.index, content, emptyParams)
}

func (x *IndexedArray) GetItemFields(names []string) (Content, error) {
	content, err := x.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewIndexedArraySimplified(x.index, content, emptyParams)
}

func (x *IndexedArray) BranchDepth() (bool, int) { return x.content.BranchDepth() }
func (x *IndexedArray) MinMaxDepth() (int, int)  { return x.content.MinMaxDepth() }
func (x *IndexedArray) PurelistDepth() int       { return x.content.PurelistDepth() }

func (x *IndexedArray) withParameters(params types.Parameters) Content {
	return &IndexedArray{meta: meta{params: params}, index: x.index, content: x.content}
}

func (x *IndexedArray) carry(carry []int64) (Content, error) {
	idx, err := takeIndex("carry", x.index, carry)
	if err != nil {
		return nil, err
	}
	return &IndexedArray{meta: x.meta, index: idx, content: x.content}, nil
}

func (x *IndexedArray) rangeUnsafe(start, stop int) Content {
	return &IndexedArray{meta: x.meta, index: x.index.Slice(start, stop), content: x.content}
}

func (x *IndexedArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	switch head.(type) {
	case sliceAt, sliceRange, sliceArray, sliceJagged:
		next, err := x.content.carry(x.index.Int64s())
		if err != nil {
			return nil, err
		}
		return next.getitemNext(head, tail, advanced)
	}
	return getitemNextSpecial(x, head, tail, advanced)
}

func (x *IndexedArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	next, err := x.content.carry(x.index.Int64s())
	if err != nil {
		return nil, err
	}
	return next.getitemNextJagged(slicestarts, slicestops, slicecontent, tail)
}
