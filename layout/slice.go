package layout

import (
	"strconv"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/storage/errors"
)

// SliceItem is one component of a slice expression passed to GetItem.
type SliceItem interface {
	isSliceItem()
}

// sliceItem is a normalized slice component consumed by getitemNext.
type sliceItem interface {
	isSliceItem()
}

type sliceAt struct{ at int }

type sliceRange struct {
	start, stop, step int
	hasStart, hasStop bool
}

type sliceEllipsis struct{}

type sliceNewAxis struct{}

type sliceField struct{ name string }

type sliceFields struct{ names []string }

// sliceArray is a one-dimensional integer array (NumPy advanced index).
type sliceArray struct{ index []int64 }

// sliceJagged selects per row: list i of the selector applies to list i of
// the array.
type sliceJagged struct {
	offsets []int64
	content sliceItem
}

// sliceMissing is a selector with missing entries. index holds -1 for a
// missing entry and otherwise the position in content, numbered 0, 1, 2, ...
type sliceMissing struct {
	index   []int64
	content sliceItem
}

// sliceContent defers normalization of a Content used as a selector.
type sliceContent struct{ content Content }

// sliceBools is a boolean mask; it selects the positions that are true.
type sliceBools struct{ mask []bool }

func (sliceAt) isSliceItem()       {}
func (sliceRange) isSliceItem()    {}
func (sliceEllipsis) isSliceItem() {}
func (sliceNewAxis) isSliceItem()  {}
func (sliceField) isSliceItem()    {}
func (sliceFields) isSliceItem()   {}
func (sliceArray) isSliceItem()    {}
func (sliceJagged) isSliceItem()   {}
func (sliceMissing) isSliceItem()  {}
func (sliceContent) isSliceItem()  {}
func (sliceBools) isSliceItem()    {}

// At selects a single element, dropping one dimension.
func At(i int) SliceItem { return sliceAt{at: i} }

// All is the full slice ":".
func All() SliceItem { return sliceRange{step: 1} }

// Span is "start:stop".
func Span(start, stop int) SliceItem {
	return sliceRange{start: start, stop: stop, step: 1, hasStart: true, hasStop: true}
}

// SpanStep is "start:stop:step".
func SpanStep(start, stop, step int) SliceItem {
	return sliceRange{start: start, stop: stop, step: step, hasStart: true, hasStop: true}
}

// SpanFrom is "start:".
func SpanFrom(start int) SliceItem {
	return sliceRange{start: start, step: 1, hasStart: true}
}

// SpanTo is ":stop".
func SpanTo(stop int) SliceItem {
	return sliceRange{stop: stop, step: 1, hasStop: true}
}

// Reverse is "::-1".
func Reverse() SliceItem { return sliceRange{step: -1} }

// Ellipsis expands to as many ":" as needed to reach the innermost dimension.
func Ellipsis() SliceItem { return sliceEllipsis{} }

// NewAxis inserts a dimension of length 1.
func NewAxis() SliceItem { return sliceNewAxis{} }

// Field projects one record field.
func Field(name string) SliceItem { return sliceField{name: name} }

// Fields projects several record fields, keeping a record.
func Fields(names ...string) SliceItem { return sliceFields{names: append([]string{}, names...)} }

// Ints is an integer array selector.
func Ints(values ...int) SliceItem {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return sliceArray{index: out}
}

// Ints64 is Ints for int64 values.
func Ints64(values []int64) SliceItem {
	return sliceArray{index: append([]int64{}, values...)}
}

// Mask is a boolean array selector.
func Mask(values ...bool) SliceItem { return sliceBools{mask: append([]bool{}, values...)} }

// Jagged uses an array as a selector: integer or boolean leaves, possibly in
// nested variable-length lists, possibly with missing values.
func Jagged(c Content) SliceItem { return sliceContent{content: c} }

func nonzero(mask []bool) []int64 {
	out := make([]int64, 0, len(mask))
	for i, b := range mask {
		if b {
			out = append(out, int64(i))
		}
	}
	return out
}

// normalizeItem turns a public selector into the form getitemNext consumes.
func normalizeItem(item SliceItem) (sliceItem, error) {
	switch x := item.(type) {
	case sliceBools:
		return sliceArray{index: nonzero(x.mask)}, nil
	case sliceContent:
		return normalizeContent(x.content)
	case nil:
		return nil, errors.InvalidArg("getitem", "nil slice item")
	}
	return item, nil
}

// normalizeContent converts a Content selector. A flat integer array becomes
// an advanced index, a flat boolean array its true positions; lists become
// jagged selectors and option types missing-value selectors.
func normalizeContent(c Content) (sliceItem, error) {
	switch x := c.(type) {
	case *NumpyArray:
		if len(x.shape) > 1 {
			return normalizeContent(x.toRegularArray())
		}
		return numpySelector(x)
	case *EmptyArray:
		return sliceArray{index: []int64{}}, nil
	case *RegularArray, *ListArray, *ListOffsetArray:
		return normalizeNested(c)
	case *IndexedOptionArray, *ByteMaskedArray, *BitMaskedArray, *UnmaskedArray:
		return normalizeOption(c)
	case *IndexedArray:
		projected, err := x.Project()
		if err != nil {
			return nil, err
		}
		return normalizeContent(projected)
	case *UnionArray:
		simplified, err := x.simplify()
		if err != nil {
			return nil, err
		}
		if _, still := simplified.(*UnionArray); !still {
			return normalizeContent(simplified)
		}
	}
	return nil, errors.Typef("getitem", "cannot use %s as a slice", c.Type())
}

func numpySelector(x *NumpyArray) (sliceItem, error) {
	switch {
	case x.dtype == dtype.Bool:
		return sliceArray{index: nonzero(x.Bools())}, nil
	case x.dtype.IsInteger():
		return sliceArray{index: x.asInt64()}, nil
	}
	return nil, errors.Typef("getitem", "cannot slice with an array of %s; only integers and booleans", x.dtype)
}

// normalizeNested converts a list-typed selector, turning boolean lists into
// the local positions of their true entries.
func normalizeNested(c Content) (sliceItem, error) {
	list, err := toListOffsetArray64(c, true)
	if err != nil {
		return nil, err
	}
	if isBooleanLeaf(list.content) {
		return boolListSelector(list)
	}
	inner, err := normalizeInner(list.content)
	if err != nil {
		return nil, err
	}
	return sliceJagged{offsets: list.offsets.ToInt64(), content: inner}, nil
}

// normalizeInner normalizes the content of a jagged selector.
func normalizeInner(c Content) (sliceItem, error) {
	switch x := c.(type) {
	case *NumpyArray:
		if len(x.shape) > 1 {
			return normalizeInner(x.toRegularArray())
		}
		return numpySelector(x)
	case *EmptyArray:
		return sliceArray{index: []int64{}}, nil
	}
	return normalizeContent(c)
}

func isBooleanLeaf(c Content) bool {
	switch x := c.(type) {
	case *NumpyArray:
		return x.dtype == dtype.Bool && len(x.shape) == 1
	case *IndexedOptionArray:
		return isBooleanLeaf(x.content)
	case *ByteMaskedArray:
		return isBooleanLeaf(x.content)
	case *BitMaskedArray:
		return isBooleanLeaf(x.content)
	case *UnmaskedArray:
		return isBooleanLeaf(x.content)
	case *IndexedArray:
		return isBooleanLeaf(x.content)
	}
	return false
}

// boolListSelector turns lists of booleans (possibly with missing entries)
// into lists of the positions that are true; missing entries stay missing.
func boolListSelector(list *ListOffsetArray) (sliceItem, error) {
	opt, err := toIndexedOptionArray64(list.content)
	if err != nil {
		return nil, err
	}
	leaf, ok := opt.content.(*NumpyArray)
	if !ok {
		return nil, errors.Typef("getitem", "cannot use %s as a boolean slice", list.Type())
	}
	values := leaf.Bools()
	optindex := opt.index.Int64s()
	offsets := list.offsets.Int64s()

	outoffsets := make([]int64, len(offsets))
	var positions, missing []int64
	hasMissing := false
	for i := 0; i+1 < len(offsets); i++ {
		for j := offsets[i]; j < offsets[i+1]; j++ {
			local := j - offsets[i]
			switch {
			case optindex[j] < 0:
				hasMissing = true
				missing = append(missing, -1)
			case values[optindex[j]]:
				missing = append(missing, int64(len(positions)))
				positions = append(positions, local)
			}
		}
		outoffsets[i+1] = int64(len(missing))
	}
	if positions == nil {
		positions = []int64{}
	}
	if !hasMissing {
		return sliceJagged{offsets: outoffsets, content: sliceArray{index: positions}}, nil
	}
	return sliceJagged{offsets: outoffsets, content: sliceMissing{index: missing, content: sliceArray{index: positions}}}, nil
}

// normalizeOption renumbers the valid entries of an option-typed selector.
func normalizeOption(c Content) (sliceItem, error) {
	opt, err := toIndexedOptionArray64(c)
	if err != nil {
		return nil, err
	}
	nextcarry, outindex, _ := nextcarryOutindex(func(i int) (int64, bool) {
		v := opt.index.Get(i)
		return v, v >= 0
	}, opt.Len())
	projected, err := opt.content.carry(nextcarry)
	if err != nil {
		return nil, err
	}
	if isBooleanLeaf(projected) {
		return nil, errors.Typef("getitem", "cannot use a flat boolean array with missing values as a slice")
	}
	inner, err := normalizeInner(projected)
	if err != nil {
		return nil, err
	}
	switch inner.(type) {
	case sliceArray, sliceJagged:
		return sliceMissing{index: outindex, content: inner}, nil
	}
	return nil, errors.Typef("getitem", "cannot use %s as a slice", c.Type())
}

// carrySlice selects the outer entries of a normalized selector.
func carrySlice(item sliceItem, positions []int64) sliceItem {
	switch x := item.(type) {
	case sliceArray:
		return sliceArray{index: takeInt64(x.index, positions)}
	case sliceJagged:
		starts := make([]int64, len(positions))
		stops := make([]int64, len(positions))
		for i, p := range positions {
			starts[i], stops[i] = x.offsets[p], x.offsets[p+1]
		}
		return sliceJagged{
			offsets: compactOffsets(starts, stops),
			content: carrySlice(x.content, listCarry(starts, stops)),
		}
	case sliceMissing:
		index := make([]int64, len(positions))
		var valid []int64
		for i, p := range positions {
			if x.index[p] < 0 {
				index[i] = -1
				continue
			}
			index[i] = int64(len(valid))
			valid = append(valid, x.index[p])
		}
		return sliceMissing{index: index, content: carrySlice(x.content, valid)}
	}
	return item
}

// isAdvanced reports whether an item takes part in NumPy advanced indexing.
func isAdvanced(item sliceItem) bool {
	_, ok := item.(sliceArray)
	return ok
}

func isJaggedSelector(item sliceItem) bool {
	switch item.(type) {
	case sliceJagged, sliceMissing:
		return true
	}
	return false
}

// prepareAdvanced broadcasts integer arrays (and integers, once any array is
// present) against each other and checks the combinations that are allowed.
func prepareAdvanced(items []sliceItem) ([]sliceItem, error) {
	var numJagged, numArrays int
	var broadcastable []int
	for i, item := range items {
		switch {
		case isJaggedSelector(item):
			numJagged++
		case isAdvanced(item):
			numArrays++
			broadcastable = append(broadcastable, i)
		default:
			if _, ok := item.(sliceAt); ok {
				broadcastable = append(broadcastable, i)
			}
		}
	}
	if numJagged > 1 || (numJagged == 1 && numArrays > 0) {
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Message("cannot mix variable-length or missing-value selectors with other array selectors; apply them in separate slices").
			Build()
	}
	if numArrays == 0 {
		return items, nil
	}
	for k := 1; k < len(broadcastable); k++ {
		if broadcastable[k] != broadcastable[k-1]+1 {
			return nil, errors.New(errors.ErrIndex).
				Op("getitem").
				Message("array selectors separated by a slice, ellipsis or new axis are not supported").
				Build()
		}
	}

	length := 1
	for _, i := range broadcastable {
		if arr, ok := items[i].(sliceArray); ok && len(arr.index) != 1 {
			if length != 1 && length != len(arr.index) {
				return nil, errors.New(errors.ErrIndex).
					Op("getitem").
					Context("lengths", arrayLengths(items, broadcastable)).
					Message("cannot broadcast array selectors of lengths %v together", arrayLengths(items, broadcastable)).
					Build()
			}
			length = len(arr.index)
		}
	}
	out := append([]sliceItem{}, items...)
	for _, i := range broadcastable {
		var value int64
		switch x := items[i].(type) {
		case sliceArray:
			if len(x.index) == length {
				continue
			}
			value = x.index[0]
		case sliceAt:
			value = int64(x.at)
		}
		stretched := make([]int64, length)
		for j := range stretched {
			stretched[j] = value
		}
		out[i] = sliceArray{index: stretched}
	}
	return out, nil
}

func arrayLengths(items []sliceItem, positions []int) []int {
	var out []int
	for _, i := range positions {
		if arr, ok := items[i].(sliceArray); ok {
			out = append(out, len(arr.index))
		}
	}
	return out
}

// fieldIndex resolves a field name, accepting "0", "1", ... for tuples.
func fieldIndex(fields []string, numContents int, name string) (int, bool) {
	for i, f := range fields {
		if f == name {
			return i, true
		}
	}
	if fields == nil {
		if n, err := strconv.Atoi(name); err == nil && n >= 0 && n < numContents {
			return n, true
		}
	}
	return 0, false
}
