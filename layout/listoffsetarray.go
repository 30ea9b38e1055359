package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// ListOffsetArray is a variable-length list array: list i is
// content[offsets[i]:offsets[i+1]].
type ListOffsetArray struct {
	meta
	offsets *index.Index
	content Content
}

// NewListOffsetArray checks that offsets are non-empty, non-decreasing and
// within the content.
func NewListOffsetArray(offsets *index.Index, content Content, params types.Parameters) (*ListOffsetArray, error) {
	const op = "NewListOffsetArray"
	switch offsets.Type() {
	case index.Int32, index.Uint32, index.Int64:
	default:
		return nil, errors.FormMismatchf(op, "ListOffsetArray", "offsets must be i32, u32 or i64, not %s", offsets.Type().FormName())
	}
	if offsets.Len() < 1 {
		return nil, errors.FormMismatch(op, "ListOffsetArray", "offsets must have at least one entry")
	}
	values := offsets.Int64s()
	if values[0] < 0 {
		return nil, errors.FormMismatchf(op, "ListOffsetArray", "offsets[0] is negative (%d)", values[0])
	}
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			return nil, errors.FormMismatchf(op, "ListOffsetArray",
				"offsets are decreasing at position %d (%d > %d)", i, values[i-1], values[i])
		}
	}
	if last := values[len(values)-1]; last > int64(content.Len()) {
		return nil, errors.FormMismatchf(op, "ListOffsetArray",
			"offsets[-1] = %d exceeds the content length %d", last, content.Len())
	}
	return &ListOffsetArray{meta: meta{params: params}, offsets: offsets, content: content}, nil
}

func (x *ListOffsetArray) Len() int              { return x.offsets.Len() - 1 }
func (x *ListOffsetArray) Offsets() *index.Index { return x.offsets }
func (x *ListOffsetArray) Content() Content      { return x.content }
func (x *ListOffsetArray) IsList() bool          { return true }
func (x *ListOffsetArray) Type() types.Type      { return x.Form().Type() }
func (x *ListOffsetArray) String() string        { return describe("ListOffsetArray", x) }

func (x *ListOffsetArray) Form() forms.Form {
	return forms.ListOffsetForm{Meta: formMeta(x.params), Offsets: x.offsets.Type(), Content: x.content.Form()}
}

// Starts and Stops are views of the offsets.
func (x *ListOffsetArray) Starts() *index.Index { return x.offsets.Slice(0, x.Len()) }
func (x *ListOffsetArray) Stops() *index.Index  { return x.offsets.Slice(1, x.Len()+1) }

func (x *ListOffsetArray) startsStops() ([]int64, []int64) {
	return offsetsToStartsStops(x.offsets.Int64s())
}

func (x *ListOffsetArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.Len())
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.Len())
	}
	return x.content.rangeUnsafe(int(x.offsets.Get(at)), int(x.offsets.Get(at+1))), nil
}

func (x *ListOffsetArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *ListOffsetArray) GetItemField(name string) (Content, error) {
	content, err := x.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewListOffsetArray(x.offsets, content, emptyParams)
}

func (x *ListOffsetArray) GetItemFields(names []string) (Content, error) {
	content, err := x.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewListOffsetArray(x.offsets, content, emptyParams)
}

func (x *ListOffsetArray) BranchDepth() (bool, int) {
	branch, depth := x.content.BranchDepth()
	return branch, depth + 1
}

func (x *ListOffsetArray) MinMaxDepth() (int, int) {
	lo, hi := x.content.MinMaxDepth()
	return lo + 1, hi + 1
}

func (x *ListOffsetArray) PurelistDepth() int {
	if isStringLike(x.params) {
		return 1
	}
	return x.content.PurelistDepth() + 1
}

func (x *ListOffsetArray) withParameters(params types.Parameters) Content {
	return &ListOffsetArray{meta: meta{params: params}, offsets: x.offsets, content: x.content}
}

func (x *ListOffsetArray) carry(carry []int64) (Content, error) {
	starts, stops := x.startsStops()
	if err := checkCarry("carry", carry, x.Len()); err != nil {
		return nil, err
	}
	return &ListArray{
		meta:    x.meta,
		starts:  index.FromInt64(takeInt64(starts, carry)),
		stops:   index.FromInt64(takeInt64(stops, carry)),
		content: x.content,
	}, nil
}

func (x *ListOffsetArray) rangeUnsafe(start, stop int) Content {
	return &ListOffsetArray{meta: x.meta, offsets: x.offsets.Slice(start, stop+1), content: x.content}
}

func (x *ListOffsetArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	starts, stops := x.startsStops()
	return listGetitemNext(x, starts, stops, x.content, head, tail, advanced)
}

func (x *ListOffsetArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	starts, stops := x.startsStops()
	return listGetitemNextJagged(x.params, starts, stops, x.content, slicestarts, slicestops, slicecontent, tail)
}

func isStringLike(params types.Parameters) bool {
	switch params.String(types.ArrayKey) {
	case "string", "bytestring":
		return true
	}
	return false
}
