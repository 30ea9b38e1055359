package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// UnionArray is a tagged union: element i is contents[tags[i]][index[i]].
type UnionArray struct {
	meta
	tags     *index.Index
	index    *index.Index
	contents []Content
}

func NewUnionArray(tags, idx *index.Index, contents []Content, params types.Parameters) (*UnionArray, error) {
	const op = "NewUnionArray"
	if tags.Type() != index.Int8 {
		return nil, errors.FormMismatchf(op, "UnionArray", "tags must be i8, not %s", tags.Type().FormName())
	}
	switch idx.Type() {
	case index.Int32, index.Uint32, index.Int64:
	default:
		return nil, errors.FormMismatchf(op, "UnionArray", "index must be i32, u32 or i64, not %s", idx.Type().FormName())
	}
	if len(contents) == 0 {
		return nil, errors.FormMismatch(op, "UnionArray", "a union needs at least one content")
	}
	if len(contents) > 127 {
		return nil, errors.FormMismatchf(op, "UnionArray", "%d contents do not fit in i8 tags", len(contents))
	}
	for _, c := range contents {
		if c.IsUnion() {
			return nil, errors.FormMismatch(op, "UnionArray", "a union cannot directly contain another union")
		}
	}
	if idx.Len() < tags.Len() {
		return nil, errors.FormMismatchf(op, "UnionArray", "index length %d is less than tags length %d", idx.Len(), tags.Len())
	}
	for i := 0; i < tags.Len(); i++ {
		t := tags.Get(i)
		if t < 0 || t >= int64(len(contents)) {
			return nil, errors.FormMismatchf(op, "UnionArray", "tags[%d] = %d is not a valid tag", i, t)
		}
		v := idx.Get(i)
		if n := int64(contents[t].Len()); v < 0 || v >= n {
			return nil, errors.FormMismatchf(op, "UnionArray",
				"index[%d] = %d is out of range for content %d of length %d", i, v, t, n)
		}
	}
	if idx.Len() > tags.Len() {
		idx = idx.Slice(0, tags.Len())
	}
	return &UnionArray{meta: meta{params: params}, tags: tags, index: idx, contents: append([]Content{}, contents...)}, nil
}

func (x *UnionArray) Len() int            { return x.tags.Len() }
func (x *UnionArray) Tags() *index.Index  { return x.tags }
func (x *UnionArray) Index() *index.Index { return x.index }
func (x *UnionArray) Contents() []Content { return append([]Content{}, x.contents...) }
func (x *UnionArray) Content(i int) Content {
	return x.contents[i]
}
func (x *UnionArray) IsUnion() bool    { return true }
func (x *UnionArray) Type() types.Type { return x.Form().Type() }
func (x *UnionArray) String() string   { return describe("UnionArray", x) }

func (x *UnionArray) Form() forms.Form {
	contents := make([]forms.Form, len(x.contents))
	for i, c := range x.contents {
		contents[i] = c.Form()
	}
	return forms.UnionForm{Meta: formMeta(x.params), Tags: x.tags.Type(), Index: x.index.Type(), Contents: contents}
}

// positions returns, for branch tag, the element numbers that select it.
func (x *UnionArray) positions(tag int) []int64 {
	var out []int64
	for i := 0; i < x.tags.Len(); i++ {
		if x.tags.Get(i) == int64(tag) {
			out = append(out, int64(i))
		}
	}
	return out
}

// Project returns the elements of branch tag, in order.
func (x *UnionArray) Project(tag int) (Content, error) {
	if tag < 0 || tag >= len(x.contents) {
		return nil, errors.IndexOutOfRange("project", tag, len(x.contents))
	}
	positions := x.positions(tag)
	carry := make([]int64, len(positions))
	for k, p := range positions {
		carry[k] = x.index.Get(int(p))
	}
	return x.contents[tag].carry(carry)
}

func (x *UnionArray) simplify() (Content, error) {
	return SimplifyUnion(x.tags, x.index, x.contents, x.params)
}

func (x *UnionArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.Len())
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.Len())
	}
	return x.contents[x.tags.Get(at)].GetItemAt(int(x.index.Get(at)))
}

func (x *UnionArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *UnionArray) GetItemField(name string) (Content, error) {
	contents := make([]Content, len(x.contents))
	for i, c := range x.contents {
		next, err := c.GetItemField(name)
		if err != nil {
			return nil, err
		}
		contents[i] = next
	}
	return SimplifyUnion(x.tags, x.index, contents, emptyParams)
}

func (x *UnionArray) GetItemFields(names []string) (Content, error) {
	contents := make([]Content, len(x.contents))
	for i, c := range x.contents {
		next, err := c.GetItemFields(names)
		if err != nil {
			return nil, err
		}
		contents[i] = next
	}
	return SimplifyUnion(x.tags, x.index, contents, emptyParams)
}

func (x *UnionArray) BranchDepth() (bool, int) {
	branching := false
	depth := -1
	for _, c := range x.contents {
		b, d := c.BranchDepth()
		if depth == -1 {
			depth = d
		}
		if b || d != depth {
			branching = true
		}
	}
	return branching, depth
}

func (x *UnionArray) MinMaxDepth() (int, int) {
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

func (x *UnionArray) PurelistDepth() int {
	out := -1
	for _, c := range x.contents {
		d := c.PurelistDepth()
		if out == -1 || d < out {
			out = d
		}
	}
	return out
}

func (x *UnionArray) withParameters(params types.Parameters) Content {
	return &UnionArray{meta: meta{params: params}, tags: x.tags, index: x.index, contents: x.contents}
}

func (x *UnionArray) carry(carry []int64) (Content, error) {
	tags, err := takeIndex("carry", x.tags, carry)
	if err != nil {
		return nil, err
	}
	idx, err := takeIndex("carry", x.index, carry)
	if err != nil {
		return nil, err
	}
	return &UnionArray{meta: x.meta, tags: tags, index: idx, contents: x.contents}, nil
}

func (x *UnionArray) rangeUnsafe(start, stop int) Content {
	return &UnionArray{meta: x.meta, tags: x.tags.Slice(start, stop), index: x.index.Slice(start, stop), contents: x.contents}
}

// branches splits the union by tag. For every branch it returns the
// projected content, the element numbers it covers, and a regular index
// (the k-th element of a branch maps to k).
func (x *UnionArray) branches() ([]Content, [][]int64, []int64, error) {
	projected := make([]Content, len(x.contents))
	positions := make([][]int64, len(x.contents))
	regular := make([]int64, x.Len())
	for tag := range x.contents {
		positions[tag] = x.positions(tag)
		for k, p := range positions[tag] {
			regular[p] = int64(k)
		}
		p, err := x.Project(tag)
		if err != nil {
			return nil, nil, nil, err
		}
		projected[tag] = p
	}
	return projected, positions, regular, nil
}

func (x *UnionArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	switch head.(type) {
	case sliceAt, sliceRange, sliceArray, sliceJagged:
	default:
		return getitemNextSpecial(x, head, tail, advanced)
	}
	projected, positions, regular, err := x.branches()
	if err != nil {
		return nil, err
	}
	outs := make([]Content, len(projected))
	for tag, p := range projected {
		var nextadvanced []int64
		if advanced != nil {
			nextadvanced = takeInt64(advanced, positions[tag])
		}
		out, err := p.getitemNext(head, tail, nextadvanced)
		if err != nil {
			return nil, err
		}
		outs[tag] = out
	}
	return SimplifyUnion(x.tags, index.FromInt64(regular), outs, x.params)
}

func (x *UnionArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	if len(slicestarts) != x.Len() {
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Message("cannot fit a jagged slice of length %d into an array of length %d", len(slicestarts), x.Len()).
			Build()
	}
	projected, positions, regular, err := x.branches()
	if err != nil {
		return nil, err
	}
	outs := make([]Content, len(projected))
	for tag, p := range projected {
		out, err := p.getitemNextJagged(takeInt64(slicestarts, positions[tag]), takeInt64(slicestops, positions[tag]), slicecontent, tail)
		if err != nil {
			return nil, err
		}
		outs[tag] = out
	}
	return SimplifyUnion(x.tags, index.FromInt64(regular), outs, x.params)
}
