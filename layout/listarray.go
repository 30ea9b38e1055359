package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// ListArray is a variable-length list array with independent bounds: list i
// is content[starts[i]:stops[i]]. Lists may overlap or appear in any order.
type ListArray struct {
	meta
	starts  *index.Index
	stops   *index.Index
	content Content
}

// NewListArray checks that every list is well-formed and lies within the
// content. stops may be longer than starts; the extra entries are ignored.
func NewListArray(starts, stops *index.Index, content Content, params types.Parameters) (*ListArray, error) {
	const op = "NewListArray"
	if starts.Type() != stops.Type() {
		return nil, errors.FormMismatchf(op, "ListArray", "starts (%s) and stops (%s) must have the same type",
			starts.Type().FormName(), stops.Type().FormName())
	}
	switch starts.Type() {
	case index.Int32, index.Uint32, index.Int64:
	default:
		return nil, errors.FormMismatchf(op, "ListArray", "starts must be i32, u32 or i64, not %s", starts.Type().FormName())
	}
	if stops.Len() < starts.Len() {
		return nil, errors.FormMismatchf(op, "ListArray", "len(stops) = %d < len(starts) = %d", stops.Len(), starts.Len())
	}
	for i := 0; i < starts.Len(); i++ {
		start, stop := starts.Get(i), stops.Get(i)
		if start < 0 {
			return nil, errors.FormMismatchf(op, "ListArray", "starts[%d] is negative (%d)", i, start)
		}
		if start > stop {
			return nil, errors.FormMismatchf(op, "ListArray", "starts[%d] = %d > stops[%d] = %d", i, start, i, stop)
		}
		if start != stop && stop > int64(content.Len()) {
			return nil, errors.FormMismatchf(op, "ListArray", "stops[%d] = %d exceeds the content length %d", i, stop, content.Len())
		}
	}
	if stops.Len() > starts.Len() {
		stops = stops.Slice(0, starts.Len())
	}
	return &ListArray{meta: meta{params: params}, starts: starts, stops: stops, content: content}, nil
}

func (x *ListArray) Len() int             { return x.starts.Len() }
func (x *ListArray) Starts() *index.Index { return x.starts }
func (x *ListArray) Stops() *index.Index  { return x.stops }
func (x *ListArray) Content() Content     { return x.content }
func (x *ListArray) IsList() bool         { return true }
func (x *ListArray) Type() types.Type     { return x.Form().Type() }
func (x *ListArray) String() string       { return describe("ListArray", x) }

func (x *ListArray) Form() forms.Form {
	return forms.ListForm{
		Meta:    formMeta(x.params),
		Starts:  x.starts.Type(),
		Stops:   x.stops.Type(),
		Content: x.content.Form(),
	}
}

func (x *ListArray) startsStops() ([]int64, []int64) {
	return x.starts.Int64s(), x.stops.Int64s()
}

func (x *ListArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.Len())
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.Len())
	}
	start, stop := int(x.starts.Get(at)), int(x.stops.Get(at))
	if start == stop {
		return x.content.rangeUnsafe(0, 0), nil
	}
	return x.content.rangeUnsafe(start, stop), nil
}

func (x *ListArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *ListArray) GetItemField(name string) (Content, error) {
	content, err := x.content.GetItemField(name)
	if err != nil {
		return nil, err
	}
	return NewListArray(x.starts, x.stops, content, emptyParams)
}

func (x *ListArray) GetItemFields(names []string) (Content, error) {
	content, err := x.content.GetItemFields(names)
	if err != nil {
		return nil, err
	}
	return NewListArray(x.starts, x.stops, content, emptyParams)
}

func (x *ListArray) BranchDepth() (bool, int) {
	branch, depth := x.content.BranchDepth()
	return branch, depth + 1
}

func (x *ListArray) MinMaxDepth() (int, int) {
	lo, hi := x.content.MinMaxDepth()
	return lo + 1, hi + 1
}

func (x *ListArray) PurelistDepth() int {
	if isStringLike(x.params) {
		return 1
	}
	return x.content.PurelistDepth() + 1
}

func (x *ListArray) withParameters(params types.Parameters) Content {
	return &ListArray{meta: meta{params: params}, starts: x.starts, stops: x.stops, content: x.content}
}

func (x *ListArray) carry(carry []int64) (Content, error) {
	starts, err := takeIndex("carry", x.starts, carry)
	if err != nil {
		return nil, err
	}
	stops, _ := takeIndex("carry", x.stops, carry)
	return &ListArray{meta: x.meta, starts: starts, stops: stops, content: x.content}, nil
}

func (x *ListArray) rangeUnsafe(start, stop int) Content {
	return &ListArray{
		meta:    x.meta,
		starts:  x.starts.Slice(start, stop),
		stops:   x.stops.Slice(start, stop),
		content: x.content,
	}
}

func (x *ListArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	starts, stops := x.startsStops()
	return listGetitemNext(x, starts, stops, x.content, head, tail, advanced)
}

func (x *ListArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	starts, stops := x.startsStops()
	return listGetitemNextJagged(x.params, starts, stops, x.content, slicestarts, slicestops, slicecontent, tail)
}
