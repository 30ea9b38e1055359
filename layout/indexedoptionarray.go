package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// IndexedOptionArray is a nullable gather: element i is missing when
// index[i] is negative and content[index[i]] otherwise.
type IndexedOptionArray struct {
	meta
	index   *index.Index
	content Content
}

func NewIndexedOptionArray(idx *index.Index, content Content, params types.Parameters) (*IndexedOptionArray, error) {
	const op = "NewIndexedOptionArray"
	switch idx.Type() {
	case index.Int32, index.Int64:
	default:
		return nil, errors.FormMismatchf(op, "IndexedOptionArray", "index must be i32 or i64, not %s", idx.Type().FormName())
	}
	if content.IsOption() {
		return nil, errors.FormMismatchf(op, "IndexedOptionArray", "an option type cannot directly contain another option type (%s)", className(content))
	}
	n := int64(content.Len())
	for i := 0; i < idx.Len(); i++ {
		if v := idx.Get(i); v >= n {
			return nil, errors.FormMismatchf(op, "IndexedOptionArray", "index[%d] = %d is out of range for content of length %d", i, v, n)
		}
	}
	return &IndexedOptionArray{meta: meta{params: params}, index: idx, content: content}, nil
}

// NewIndexedOptionArraySimplified builds an IndexedOptionArray, composing it
// with an indexed or option-typed content.
func NewIndexedOptionArraySimplified(idx *index.Index, content Content, params types.Parameters) (Content, error) {
	var innerIndex []int64
	var innerContent Content
	var innerParams types.Parameters
	switch inner := content.(type) {
	case *IndexedArray:
		innerIndex, innerContent, innerParams = inner.index.Int64s(), inner.content, inner.params
	case *IndexedOptionArray, *ByteMaskedArray, *BitMaskedArray, *UnmaskedArray:
		opt, err := toIndexedOptionArray64(content)
		if err != nil {
			return nil, err
		}
		innerIndex, innerContent, innerParams = opt.index.Int64s(), opt.content, opt.params
	default:
		return NewIndexedOptionArray(idx, content, params)
	}
	outer := idx.Int64s()
	composed := make([]int64, len(outer))
	for i, v := range outer {
		if v < 0 {
			composed[i] = -1
			continue
		}
		if v >= int64(len(innerIndex)) {
			return nil, errors.AdvancedIndexOutOfRange("NewIndexedOptionArraySimplified", i, v, int64(len(innerIndex)))
		}
		composed[i] = innerIndex[v]
	}
	return NewIndexedOptionArray(index.FromInt64(composed), innerContent, innerParams.Merge(params))
}

func (x *IndexedOptionArray) Len() int            { return x.index.Len() }
func (x *IndexedOptionArray) Index() *index.Index { return x.index }
func (x *IndexedOptionArray) Content() Content    { return x.content }
func (x *IndexedOptionArray) IsOption() bool      { return true }
func (x *IndexedOptionArray) IsIndexed() bool     { return true }
func (x *IndexedOptionArray) Type() types.Type    { return x.Form().Type() }
func (x *IndexedOptionArray) String() string      { return describe("IndexedOptionArray", x) }

func (x *IndexedOptionArray) Form() forms.Form {
	return forms.IndexedOptionForm{Meta: formMeta(x.params), Index: x.index.Type(), Content: x.content.Form()}
}

// Valid reports, per element, whether it is present.
func (x *IndexedOptionArray) Valid() []bool {
	out := make([]bool, x.Len())
	for i := range out {
		out[i] = x.index.Get(i) >= 0
	}
	return out
}

func (x *IndexedOptionArray) nextcarryOutindex() ([]int64, []int64, int) {
	values := x.index.Int64s()
	return nextcarryOutindex(func(i int) (int64, bool) {
		return values[i], values[i] >= 0
	}, len(values))
}

// Project returns the present elements, in order.
func (x *IndexedOptionArray) Project() (Content, error) {
	nextcarry, _, _ := x.nextcarryOutindex()
	return x.content.carry(nextcarry)
}

func (x *IndexedOptionArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.Len())
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.Len())
	}
	v := x.index.Get(at)
	if v < 0 {
		return nil, nil
	}
	return x.content.GetItemAt(int(v))
}

func (x *IndexedOptionArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *IndexedOptionArray) GetItemField(name string) (Content, error) {
	content, err := x.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewIndexedOptionArraySimplified(x.index, content, emptyParams)
}

func (x *IndexedOptionArray) GetItemFields(names []string) (Content, error) {
	content, err := x.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewIndexedOptionArraySimplified(x.index, content, emptyParams)
}

func (x *IndexedOptionArray) BranchDepth() (bool, int) { return x.content.BranchDepth() }
func (x *IndexedOptionArray) MinMaxDepth() (int, int)  { return x.content.MinMaxDepth() }
func (x *IndexedOptionArray) PurelistDepth() int       { return x.content.PurelistDepth() }

func (x *IndexedOptionArray) withParameters(params types.Parameters) Content {
	return &IndexedOptionArray{meta: meta{params: params}, index: x.index, content: x.content}
}

func (x *IndexedOptionArray) carry(carry []int64) (Content, error) {
	idx, err := takeIndex("carry", x.index, carry)
	if err != nil {
		return nil, err
	}
	return &IndexedOptionArray{meta: x.meta, index: idx, content: x.content}, nil
}

func (x *IndexedOptionArray) rangeUnsafe(start, stop int) Content {
	return &IndexedOptionArray{meta: x.meta, index: x.index.Slice(start, stop), content: x.content}
}

func (x *IndexedOptionArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	return optionGetitemNext(x, head, tail, advanced)
}

func (x *IndexedOptionArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	return optionGetitemNextJagged(x, slicestarts, slicestops, slicecontent, tail)
}

// optionGetitemNext slices the present elements of an option-typed node and
// reinserts the missing ones.
func optionGetitemNext(x Content, head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	switch head.(type) {
	case sliceAt, sliceRange, sliceArray, sliceJagged:
	default:
		return getitemNextSpecial(x, head, tail, advanced)
	}
	opt, err := toIndexedOptionArray64(x)
	if err != nil {
		return nil, err
	}
	nextcarry, outindex, _ := opt.nextcarryOutindex()
	next, err := opt.content.carry(nextcarry)
	if err != nil {
		return nil, err
	}
	var nextadvanced []int64
	if advanced != nil {
		nextadvanced = make([]int64, 0, len(nextcarry))
		for i, o := range outindex {
			if o >= 0 {
				nextadvanced = append(nextadvanced, advanced[i])
			}
		}
	}
	out, err := next.getitemNext(head, tail, nextadvanced)
	if err != nil {
		return nil, err
	}
	return NewIndexedOptionArraySimplified(index.FromInt64(outindex), out, x.Parameters())
}

func optionGetitemNextJagged(x Content, slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	if len(slicestarts) != x.Len() {
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Message("cannot fit a jagged slice of length %d into an array of length %d", len(slicestarts), x.Len()).
			Build()
	}
	opt, err := toIndexedOptionArray64(x)
	if err != nil {
		return nil, err
	}
	nextcarry, outindex, _ := opt.nextcarryOutindex()
	reducedstarts := make([]int64, 0, len(nextcarry))
	reducedstops := make([]int64, 0, len(nextcarry))
	for i, o := range outindex {
		if o >= 0 {
			reducedstarts = append(reducedstarts, slicestarts[i])
			reducedstops = append(reducedstops, slicestops[i])
		}
	}
	next, err := opt.content.carry(nextcarry)
	if err != nil {
		return nil, err
	}
	out, err := next.getitemNextJagged(reducedstarts, reducedstops, slicecontent, tail)
	if err != nil {
		return nil, err
	}
	return NewIndexedOptionArraySimplified(index.FromInt64(outindex), out, x.Parameters())
}

// toIndexedOptionArray64 expresses any node as an IndexedOptionArray with an
// int64 index; non-option nodes get an index with no missing entries.
func toIndexedOptionArray64(c Content) (*IndexedOptionArray, error) {
	switch x := c.(type) {
	case *IndexedOptionArray:
		if x.index.Type() == index.Int64 {
			return x, nil
		}
		return &IndexedOptionArray{meta: x.meta, index: x.index.To64(), content: x.content}, nil
	case *ByteMaskedArray:
		return x.ToIndexedOptionArray64(), nil
	case *BitMaskedArray:
		return x.ToByteMaskedArray().ToIndexedOptionArray64(), nil
	case *UnmaskedArray:
		return &IndexedOptionArray{meta: x.meta, index: index.Arange(x.Len()), content: x.content}, nil
	case *IndexedArray:
		return &IndexedOptionArray{meta: x.meta, index: x.index.To64(), content: x.content}, nil
	}
	return &IndexedOptionArray{index: index.Arange(c.Len()), content: c}, nil
}

// ToIndexedOptionArray64 is the exported form of toIndexedOptionArray64.
func ToIndexedOptionArray64(c Content) (*IndexedOptionArray, error) {
	return toIndexedOptionArray64(c)
}
