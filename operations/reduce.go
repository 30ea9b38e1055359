// Package operations implements the array-level operations built on the
// layout engines: reducers, elementwise functions and structural
// transformations.
package operations

import (
	"sort"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
)

type reduceOptions struct {
	axis         *int
	keepDims     bool
	maskIdentity bool
}

// ReduceOption configures a reducer.
type ReduceOption func(*reduceOptions)

// Axis reduces along one dimension; 0 is the outermost and negative axes
// count from the innermost. Without Axis, every value is reduced to a
// single scalar.
func Axis(n int) ReduceOption {
	return func(o *reduceOptions) { o.axis = &n }
}

// KeepDims keeps the reduced dimension with length 1.
func KeepDims() ReduceOption {
	return func(o *reduceOptions) { o.keepDims = true }
}

// MaskIdentity makes empty groups missing instead of the identity.
func MaskIdentity(mask bool) ReduceOption {
	return func(o *reduceOptions) { o.maskIdentity = mask }
}

// Sum adds values; the identity is 0. Booleans and signed integers sum to
// int64, unsigned integers to uint64 and floats to float64.
func Sum(c layout.Content, opts ...ReduceOption) (any, error) { return reduce(kindSum, c, opts) }

// Prod multiplies values; the identity is 1.
func Prod(c layout.Content, opts ...ReduceOption) (any, error) { return reduce(kindProd, c, opts) }

// Min returns the smallest value; the identity is the largest value of the
// type.
func Min(c layout.Content, opts ...ReduceOption) (any, error) { return reduce(kindMin, c, opts) }

// Max returns the largest value; the identity is the smallest value of the
// type.
func Max(c layout.Content, opts ...ReduceOption) (any, error) { return reduce(kindMax, c, opts) }

// Any reports whether some value is non-zero; the identity is false.
func Any(c layout.Content, opts ...ReduceOption) (any, error) { return reduce(kindAny, c, opts) }

// All reports whether every value is non-zero; the identity is true.
func All(c layout.Content, opts ...ReduceOption) (any, error) { return reduce(kindAll, c, opts) }

// Count counts values, skipping missing ones.
func Count(c layout.Content, opts ...ReduceOption) (any, error) { return reduce(kindCount, c, opts) }

// CountNonzero counts non-zero values.
func CountNonzero(c layout.Content, opts ...ReduceOption) (any, error) {
	return reduce(kindCountNonzero, c, opts)
}

// ArgMin returns the position of the smallest value within its group; the
// identity is -1.
func ArgMin(c layout.Content, opts ...ReduceOption) (any, error) {
	return reduce(kindArgMin, c, opts)
}

// ArgMax returns the position of the largest value within its group.
func ArgMax(c layout.Content, opts ...ReduceOption) (any, error) {
	return reduce(kindArgMax, c, opts)
}

func reduce(k kind, c layout.Content, opts []ReduceOption) (any, error) {
	o := &reduceOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.axis == nil {
		return reduceAll(k, c, o)
	}
	posaxis, err := layout.NormalizeAxis(c, *o.axis)
	if err != nil {
		return nil, err
	}
	_, depth := c.BranchDepth()
	r := &reduction{kind: k, opts: o}
	out, err := r.next(c, depth-posaxis, make([]int64, c.Len()), 1, nil, o.keepDims)
	if err != nil {
		return nil, err
	}
	item, err := out.GetItemAt(0)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// reduceAll reduces every value of c to one scalar.
func reduceAll(k kind, c layout.Content, o *reduceOptions) (any, error) {
	flat, err := flattenAll(c)
	if err != nil {
		return nil, err
	}
	if flat.IsUnknown() {
		flat = layout.NewNumpy([]float64{})
	}
	leaf, ok := flat.(*layout.NumpyArray)
	if !ok {
		return nil, errors.TypeMismatch(k.String(), "numeric values", flat.Type().String())
	}
	r := &reduction{kind: k, opts: o}
	out, err := r.combine(leaf, make([]int64, leaf.Len()), 1, nil, false)
	if err != nil {
		return nil, err
	}
	return out.GetItemAt(0)
}

// reduction carries a reducer down a tree. Elements of each node are
// assigned to output groups by parents, which is always non-decreasing.
type reduction struct {
	kind kind
	opts *reduceOptions
}

func (r *reduction) next(c layout.Content, negaxis int, parents []int64, outlength int, shifts []int64, keepdims bool) (layout.Content, error) {
	op := r.kind.String()
	_, depth := c.BranchDepth()
	switch x := c.(type) {
	case *layout.EmptyArray:
		return r.next(x.ToNumpyArray(dtype.Float64), negaxis, parents, outlength, shifts, keepdims)

	case *layout.NumpyArray:
		if len(x.Shape()) > 1 {
			reg, err := layout.ToRegularArray(x)
			if err != nil {
				return nil, err
			}
			return r.next(reg, negaxis, parents, outlength, shifts, keepdims)
		}
		if negaxis != 1 {
			return nil, errors.AxisOutOfRange(op, negaxis, 1)
		}
		return r.combine(x, parents, outlength, shifts, keepdims)

	case *layout.IndexedArray:
		projected, err := x.Project()
		if err != nil {
			return nil, err
		}
		return r.next(projected, negaxis, parents, outlength, shifts, keepdims)

	case *layout.RecordArray:
		return nil, errors.Typef(op, "cannot reduce records (fields %v)", x.Fields())

	case *layout.UnionArray:
		return nil, errors.Typef(op, "cannot reduce a union of %d types", len(x.Contents()))
	}

	if c.IsOption() {
		return r.option(c, negaxis, depth, parents, outlength, shifts, keepdims)
	}
	if layout.IsStringLike(c) {
		return nil, errors.Typef(op, "cannot reduce strings")
	}
	if !c.IsList() {
		return nil, errors.NotSupported(op, "unsupported layout "+c.String())
	}
	list, err := layout.ToListOffsetArray64(c)
	if err != nil {
		return nil, err
	}
	offsets := list.Offsets().Int64s()
	content, err := list.Content().GetItemRange(0, int(offsets[len(offsets)-1]), 1)
	if err != nil {
		return nil, err
	}
	switch {
	case negaxis < depth:
		return r.local(list, content, offsets, negaxis, parents, outlength, keepdims)
	case negaxis == depth:
		return r.nonlocal(content, offsets, negaxis, parents, outlength, shifts, keepdims)
	}
	return nil, errors.AxisOutOfRange(op, negaxis, depth)
}

// groupOffsets counts the elements of each of outlength groups.
func groupOffsets(parents []int64, outlength int) []int64 {
	out := make([]int64, outlength+1)
	for _, p := range parents {
		out[p+1]++
	}
	for i := 0; i < outlength; i++ {
		out[i+1] += out[i]
	}
	return out
}

// local reduces inside each list, keeping the list structure.
func (r *reduction) local(list *layout.ListOffsetArray, content layout.Content, offsets []int64, negaxis int, parents []int64, outlength int, keepdims bool) (layout.Content, error) {
	n := list.Len()
	nextparents := make([]int64, 0, offsets[n])
	for i := 0; i < n; i++ {
		for j := offsets[i]; j < offsets[i+1]; j++ {
			nextparents = append(nextparents, int64(i))
		}
	}
	out, err := r.next(content, negaxis, nextparents, n, nil, keepdims)
	if err != nil {
		return nil, err
	}
	return layout.NewListOffsetArray(index.FromInt64(groupOffsets(parents, outlength)), out, list.Parameters())
}

// nonlocal combines the k-th elements of all lists in the same group.
func (r *reduction) nonlocal(content layout.Content, offsets []int64, negaxis int, parents []int64, outlength int, shifts []int64, keepdims bool) (layout.Content, error) {
	n := len(offsets) - 1
	maxcount := make([]int64, outlength)
	first := make([]int64, outlength)
	for p := range first {
		first[p] = -1
	}
	for i := 0; i < n; i++ {
		p := parents[i]
		if l := offsets[i+1] - offsets[i]; l > maxcount[p] {
			maxcount[p] = l
		}
		if first[p] == -1 {
			first[p] = int64(i)
		}
	}
	outoffsets := make([]int64, outlength+1)
	for p := 0; p < outlength; p++ {
		outoffsets[p+1] = outoffsets[p] + maxcount[p]
	}

	total := offsets[n]
	nextparents := make([]int64, total)
	nextshifts := make([]int64, total)
	for i := 0; i < n; i++ {
		p := parents[i]
		shift := int64(i) - first[p]
		if shifts != nil {
			shift = shifts[i]
		}
		for j := offsets[i]; j < offsets[i+1]; j++ {
			nextparents[j] = outoffsets[p] + (j - offsets[i])
			nextshifts[j] = shift
		}
	}
	order := make([]int64, total)
	for j := range order {
		order[j] = int64(j)
	}
	sort.SliceStable(order, func(a, b int) bool { return nextparents[order[a]] < nextparents[order[b]] })
	sortedParents := make([]int64, total)
	sortedShifts := make([]int64, total)
	for k, j := range order {
		sortedParents[k] = nextparents[j]
		sortedShifts[k] = nextshifts[j]
	}
	carried, err := layout.Take(content, order)
	if err != nil {
		return nil, err
	}
	inner, err := r.next(carried, negaxis-1, sortedParents, int(outoffsets[outlength]), sortedShifts, false)
	if err != nil {
		return nil, err
	}
	out, err := layout.NewListOffsetArray(index.FromInt64(outoffsets), inner, emptyParams)
	if err != nil {
		return nil, err
	}
	if keepdims {
		return layout.NewRegularArray(out, 1, outlength, emptyParams)
	}
	return out, nil
}

// option skips missing values. Above the reduced dimension the missing
// entries are put back into the result.
func (r *reduction) option(c layout.Content, negaxis, depth int, parents []int64, outlength int, shifts []int64, keepdims bool) (layout.Content, error) {
	opt, err := layout.ToIndexedOptionArray64(c)
	if err != nil {
		return nil, err
	}
	idx := opt.Index().Int64s()
	if shifts == nil {
		// Positions within each group, counted before missing values are
		// dropped, so that ArgMin and ArgMax still index the input.
		shifts = make([]int64, len(parents))
		start := int64(0)
		for i := range parents {
			if i == 0 || parents[i] != parents[i-1] {
				start = int64(i)
			}
			shifts[i] = int64(i) - start
		}
	}
	var carry, nextparents, nextshifts []int64
	outindex := make([]int64, len(idx))
	for i, v := range idx {
		if v < 0 {
			outindex[i] = -1
			continue
		}
		outindex[i] = int64(len(carry))
		carry = append(carry, v)
		nextparents = append(nextparents, parents[i])
		nextshifts = append(nextshifts, shifts[i])
	}
	projected, err := layout.Take(opt.Content(), carry)
	if err != nil {
		return nil, err
	}
	if negaxis == depth {
		return r.next(projected, negaxis, nextparents, outlength, nextshifts, keepdims)
	}

	out, err := r.next(projected, negaxis, nextparents, outlength, nextshifts, keepdims)
	if err != nil {
		return nil, err
	}
	list, err := layout.ToListOffsetArray64(out)
	if err != nil {
		return nil, err
	}
	listOffsets := list.Offsets().Int64s()
	inner, err := list.Content().GetItemRange(0, int(listOffsets[len(listOffsets)-1]), 1)
	if err != nil {
		return nil, err
	}
	wrapped, err := layout.NewIndexedOptionArraySimplified(index.FromInt64(outindex), inner, emptyParams)
	if err != nil {
		return nil, err
	}
	return layout.NewListOffsetArray(index.FromInt64(groupOffsets(parents, outlength)), wrapped, list.Parameters())
}
