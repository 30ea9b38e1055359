package operations

import (
	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
)

// Num counts the elements at axis. Axis 0 returns the outer length as an
// int64; deeper axes return an array of per-list counts one dimension
// shallower than the lists counted.
func Num(c layout.Content, axis int) (any, error) {
	const op = "num"
	posaxis, err := layout.NormalizeAxis(c, axis)
	if err != nil {
		return nil, err
	}
	if posaxis == 0 {
		return int64(c.Len()), nil
	}
	return layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if ctx.Depth != posaxis {
			return leafBeforeAxis(op, x, ctx.Depth, posaxis)
		}
		if !x.IsList() {
			if x.IsOption() || x.IsIndexed() || x.IsRecord() || x.IsUnion() {
				return nil, nil
			}
			return nil, errors.AxisOutOfRange(op, axis, ctx.Depth)
		}
		list, err := layout.ToListOffsetArray64(x)
		if err != nil {
			return nil, err
		}
		offsets := list.Offsets().Int64s()
		counts := make([]int64, list.Len())
		for i := range counts {
			counts[i] = offsets[i+1] - offsets[i]
		}
		return layout.NewNumpy(counts), nil
	}))
}

// leafBeforeAxis fails when a walk looking for axis posaxis reaches a
// primitive or string node at depth.
func leafBeforeAxis(op string, x layout.Content, depth, posaxis int) (layout.Content, error) {
	if x.IsNumpy() || x.IsUnknown() || layout.IsStringLike(x) {
		return nil, errors.AxisOutOfRange(op, posaxis, depth)
	}
	return nil, nil
}

// FlattenAll removes every list boundary and every missing value. Record
// fields and union branches are concatenated; strings are kept whole.
func FlattenAll(c layout.Content) (layout.Content, error) {
	return flattenAll(c)
}

func flattenAll(c layout.Content) (layout.Content, error) {
	var parts []layout.Content
	var walk func(c layout.Content) error
	walk = func(c layout.Content) error {
		switch x := c.(type) {
		case *layout.EmptyArray:
			return nil
		case *layout.NumpyArray:
			shape := x.Shape()
			n := 1
			for _, s := range shape {
				n *= s
			}
			flat, err := layout.NewNumpyArray(x.Data(), x.DType(), []int{n}, x.Parameters())
			if err != nil {
				return err
			}
			parts = append(parts, flat)
			return nil
		case *layout.RecordArray:
			for _, field := range x.Contents() {
				if err := walk(field); err != nil {
					return err
				}
			}
			return nil
		case *layout.UnionArray:
			for tag := range x.Contents() {
				branch, err := x.Project(tag)
				if err != nil {
					return err
				}
				if err := walk(branch); err != nil {
					return err
				}
			}
			return nil
		}
		if layout.IsStringLike(c) {
			parts = append(parts, c)
			return nil
		}
		if c.IsOption() || c.IsIndexed() {
			projected, err := project(c)
			if err != nil {
				return err
			}
			return walk(projected)
		}
		if c.IsList() {
			list, err := layout.ToListOffsetArray64(c)
			if err != nil {
				return err
			}
			offsets := list.Offsets().Int64s()
			content, err := list.Content().GetItemRange(0, int(offsets[len(offsets)-1]), 1)
			if err != nil {
				return err
			}
			return walk(content)
		}
		return errors.NotSupported("flatten", "unsupported layout "+c.String())
	}
	if err := walk(c); err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return layout.NewEmptyArray(emptyParams), nil
	}
	return layout.Merge(parts...)
}

// project removes an option or indexed layer, dropping missing values.
func project(c layout.Content) (layout.Content, error) {
	if x, ok := c.(*layout.IndexedArray); ok {
		return x.Project()
	}
	opt, err := layout.ToIndexedOptionArray64(c)
	if err != nil {
		return nil, err
	}
	return opt.Project()
}

// Flatten merges the lists at axis into their parent dimension. Axis 0 has
// no parent; flattening it removes missing values. Missing lists contribute
// nothing.
func Flatten(c layout.Content, axis int) (layout.Content, error) {
	const op = "flatten"
	posaxis, err := layout.NormalizeAxis(c, axis)
	if err != nil {
		return nil, err
	}
	if posaxis == 0 {
		if c.IsOption() {
			return project(c)
		}
		return c, nil
	}
	if posaxis == 1 {
		size := c.Len()
		wrapped, err := layout.NewRegularArray(c, size, 1, emptyParams)
		if err != nil {
			return nil, err
		}
		out, err := flattenInner(op, wrapped)
		if err != nil {
			return nil, err
		}
		item, err := out.GetItemAt(0)
		if err != nil {
			return nil, err
		}
		return item.(layout.Content), nil
	}
	return layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if ctx.Depth != posaxis-1 {
			return leafBeforeAxis(op, x, ctx.Depth, posaxis)
		}
		if layout.IsStringLike(x) || x.IsNumpy() || x.IsUnknown() {
			return nil, errors.AxisOutOfRange(op, axis, ctx.Depth)
		}
		if !x.IsList() {
			return nil, nil
		}
		return flattenInner(op, x)
	}))
}

// flattenInner concatenates the sublists inside each list of x.
func flattenInner(op string, x layout.Content) (layout.Content, error) {
	outer, err := layout.ToListOffsetArray64(x)
	if err != nil {
		return nil, err
	}
	offsets := outer.Offsets().Int64s()
	n := outer.Len()
	content, err := outer.Content().GetItemRange(0, int(offsets[n]), 1)
	if err != nil {
		return nil, err
	}

	// Row i keeps rowEnds[i]-rowEnds[i-1] sublists of kept.
	rowEnds := make([]int64, n+1)
	kept := content
	if content.IsOption() {
		opt, err := layout.ToIndexedOptionArray64(content)
		if err != nil {
			return nil, err
		}
		idx := opt.Index().Int64s()
		var carry []int64
		for i := 0; i < n; i++ {
			for j := offsets[i]; j < offsets[i+1]; j++ {
				if idx[j] >= 0 {
					carry = append(carry, idx[j])
				}
			}
			rowEnds[i+1] = int64(len(carry))
		}
		if kept, err = layout.Take(opt.Content(), carry); err != nil {
			return nil, err
		}
	} else {
		copy(rowEnds, offsets)
	}
	if kept.IsIndexed() {
		if kept, err = project(kept); err != nil {
			return nil, err
		}
	}
	if !kept.IsList() || layout.IsStringLike(kept) {
		return nil, errors.Typef(op, "cannot flatten %s: its elements are not lists", kept.Type().String())
	}
	inner, err := layout.ToListOffsetArray64(kept)
	if err != nil {
		return nil, err
	}
	innerOffsets := inner.Offsets().Int64s()
	newOffsets := make([]int64, n+1)
	for i := range newOffsets {
		newOffsets[i] = innerOffsets[rowEnds[i]]
	}
	return layout.NewListOffsetArray(index.FromInt64(newOffsets), inner.Content(), outer.Parameters())
}

// IsNone reports, for every element at axis, whether it is missing.
func IsNone(c layout.Content, axis int) (layout.Content, error) {
	const op = "is_none"
	posaxis, err := layout.NormalizeAxis(c, axis)
	if err != nil {
		return nil, err
	}
	return layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if ctx.Depth != posaxis+1 {
			return leafBeforeAxis(op, x, ctx.Depth, posaxis)
		}
		missing := make([]bool, x.Len())
		if x.IsOption() {
			opt, err := layout.ToIndexedOptionArray64(x)
			if err != nil {
				return nil, err
			}
			for i, v := range opt.Index().Int64s() {
				missing[i] = v < 0
			}
		}
		return layout.NewNumpy(missing), nil
	}))
}

// FillNone replaces missing values at axis with value. The result type is
// the merge of the present values and value, a union if they differ.
func FillNone(c layout.Content, value any, axis int) (layout.Content, error) {
	const op = "fill_none"
	posaxis, err := layout.NormalizeAxis(c, axis)
	if err != nil {
		return nil, err
	}
	fill, err := layout.FromIterable([]any{value})
	if err != nil {
		return nil, errors.New(errors.ErrInvalidArgument).Op(op).Wrap(err).Build()
	}
	return layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if ctx.Depth != posaxis+1 {
			return leafBeforeAxis(op, x, ctx.Depth, posaxis)
		}
		if !x.IsOption() {
			return x, nil
		}
		opt, err := layout.ToIndexedOptionArray64(x)
		if err != nil {
			return nil, err
		}
		content := opt.Content()
		merged, err := layout.Merge(content, fill)
		if err != nil {
			return nil, err
		}
		idx := opt.Index().ToInt64()
		for i, v := range idx {
			if v < 0 {
				idx[i] = int64(content.Len())
			}
		}
		return layout.NewIndexedArraySimplified(index.FromInt64(idx), merged, opt.Parameters())
	}))
}

// DropNone removes the missing values at axis. Lists above it shrink
// accordingly; a record element is dropped when any of its fields is
// missing at that level.
func DropNone(c layout.Content, axis int) (layout.Content, error) {
	const op = "drop_none"
	posaxis, err := layout.NormalizeAxis(c, axis)
	if err != nil {
		return nil, err
	}
	if posaxis == 0 {
		return dropMissing(c)
	}
	return layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if ctx.Depth != posaxis {
			return leafBeforeAxis(op, x, ctx.Depth, posaxis)
		}
		if layout.IsStringLike(x) || x.IsNumpy() || x.IsUnknown() {
			return nil, errors.AxisOutOfRange(op, axis, ctx.Depth)
		}
		if !x.IsList() {
			return nil, nil
		}
		return dropInList(x)
	}))
}

// DropNoneAll removes missing values at every level.
func DropNoneAll(c layout.Content) (layout.Content, error) {
	out, err := layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if !x.IsList() || layout.IsStringLike(x) {
			return nil, nil
		}
		rebuilt, err := ctx.Continue()
		if err != nil {
			return nil, err
		}
		return dropInList(rebuilt)
	}))
	if err != nil {
		return nil, err
	}
	return dropMissing(out)
}

// dropInList drops the missing elements of every list of x and shrinks the
// offsets to match.
func dropInList(x layout.Content) (layout.Content, error) {
	list, err := layout.ToListOffsetArray64(x)
	if err != nil {
		return nil, err
	}
	offsets := list.Offsets().Int64s()
	n := list.Len()
	content, err := list.Content().GetItemRange(0, int(offsets[n]), 1)
	if err != nil {
		return nil, err
	}
	valid, err := presence(content)
	if err != nil {
		return nil, err
	}
	newOffsets := make([]int64, n+1)
	for i := 0; i < n; i++ {
		newOffsets[i+1] = newOffsets[i]
		for j := offsets[i]; j < offsets[i+1]; j++ {
			if valid[j] {
				newOffsets[i+1]++
			}
		}
	}
	kept, err := keepValid(content, valid)
	if err != nil {
		return nil, err
	}
	return layout.NewListOffsetArray(index.FromInt64(newOffsets), kept, list.Parameters())
}

func dropMissing(c layout.Content) (layout.Content, error) {
	valid, err := presence(c)
	if err != nil {
		return nil, err
	}
	return keepValid(c, valid)
}

func keepValid(c layout.Content, valid []bool) (layout.Content, error) {
	var positions []int64
	for i, ok := range valid {
		if ok {
			positions = append(positions, int64(i))
		}
	}
	taken, err := layout.Take(c, positions)
	if err != nil {
		return nil, err
	}
	return stripOptions(taken)
}

// presence reports which elements of c are present at c's own level.
func presence(c layout.Content) ([]bool, error) {
	valid := make([]bool, c.Len())
	switch x := c.(type) {
	case *layout.IndexedArray:
		projected, err := x.Project()
		if err != nil {
			return nil, err
		}
		return presence(projected)
	case *layout.RecordArray:
		for i := range valid {
			valid[i] = true
		}
		for _, field := range x.Contents() {
			fieldValid, err := presence(field)
			if err != nil {
				return nil, err
			}
			for i := range valid {
				valid[i] = valid[i] && fieldValid[i]
			}
		}
		return valid, nil
	case *layout.UnionArray:
		tags := x.Tags().Int64s()
		idx := x.Index().Int64s()
		branchValid := make([][]bool, len(x.Contents()))
		for tag, branch := range x.Contents() {
			v, err := presence(branch)
			if err != nil {
				return nil, err
			}
			branchValid[tag] = v
		}
		for i := range valid {
			valid[i] = branchValid[tags[i]][idx[i]]
		}
		return valid, nil
	}
	if c.IsOption() {
		opt, err := layout.ToIndexedOptionArray64(c)
		if err != nil {
			return nil, err
		}
		for i, v := range opt.Index().Int64s() {
			valid[i] = v >= 0
		}
		return valid, nil
	}
	for i := range valid {
		valid[i] = true
	}
	return valid, nil
}

// stripOptions removes the option layers at c's own level once every
// element is known to be present.
func stripOptions(c layout.Content) (layout.Content, error) {
	switch x := c.(type) {
	case *layout.IndexedArray:
		projected, err := x.Project()
		if err != nil {
			return nil, err
		}
		return stripOptions(projected)
	case *layout.RecordArray:
		fields := x.Contents()
		contents := make([]layout.Content, len(fields))
		for i, field := range fields {
			stripped, err := stripOptions(field)
			if err != nil {
				return nil, err
			}
			contents[i] = stripped
		}
		var names []string
		if !x.IsTuple() {
			names = x.Fields()
		}
		return layout.NewRecordArray(contents, names, x.Len(), x.Parameters())
	case *layout.UnionArray:
		contents := make([]layout.Content, len(x.Contents()))
		for tag, branch := range x.Contents() {
			stripped, err := stripOptions(branch)
			if err != nil {
				return nil, err
			}
			contents[tag] = stripped
		}
		return layout.SimplifyUnion(x.Tags(), x.Index(), contents, x.Parameters())
	}
	if c.IsOption() {
		return project(c)
	}
	return c, nil
}

// FullLike returns an array of the same structure as c with every primitive
// value replaced by value, converted to the leaf's type. Strings are replaced
// by value when it is a string or []byte.
func FullLike(c layout.Content, value any) (layout.Content, error) {
	const op = "full_like"
	return layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if layout.IsStringLike(x) {
			switch value.(type) {
			case string, []byte:
			default:
				return nil, errors.Typef(op, "cannot fill strings with %T", value)
			}
			values := make([]any, x.Len())
			for i := range values {
				values[i] = value
			}
			filled, err := layout.FromIterable(values)
			if err != nil {
				return nil, err
			}
			return layout.WithParameters(filled, x.Parameters()), nil
		}
		leaf, ok := x.(*layout.NumpyArray)
		if !ok {
			return nil, nil
		}
		v, err := dtype.Cast(value, leaf.DType())
		if err != nil {
			return nil, errors.New(errors.ErrType).Op(op).Wrap(err).Build()
		}
		n := 1
		for _, s := range leaf.Shape() {
			n *= s
		}
		values := make([]any, n)
		for i := range values {
			values[i] = v
		}
		flat, err := layout.NewNumpyFromValues(leaf.DType(), values)
		if err != nil {
			return nil, err
		}
		return layout.NewNumpyArray(flat.Data(), leaf.DType(), leaf.Shape(), leaf.Parameters())
	}))
}

// ZerosLike is FullLike with 0.
func ZerosLike(c layout.Content) (layout.Content, error) {
	return FullLike(c, 0)
}

// Unflatten splits c into consecutive lists of the given lengths, which
// must add up to its length.
func Unflatten(c layout.Content, counts []int64) (layout.Content, error) {
	const op = "unflatten"
	offsets := make([]int64, len(counts)+1)
	for i, n := range counts {
		if n < 0 {
			return nil, errors.New(errors.ErrInvalidArgument).
				Op(op).
				Offset(int64(i)).
				Message("counts must be non-negative, got %d", n).
				Build()
		}
		offsets[i+1] = offsets[i] + n
	}
	if total := offsets[len(counts)]; total != int64(c.Len()) {
		return nil, errors.New(errors.ErrInvalidArgument).
			Op(op).
			Context("total", total).
			Context("length", c.Len()).
			Message("counts add up to %d, array has length %d", total, c.Len()).
			Build()
	}
	return layout.NewListOffsetArray(index.FromInt64(offsets), c, emptyParams)
}

// Concatenate joins arrays end to end. Differing types merge into a union.
func Concatenate(arrays ...layout.Content) (layout.Content, error) {
	if len(arrays) == 0 {
		return nil, errors.InvalidArg("concatenate", "at least one array is required")
	}
	return layout.Merge(arrays...)
}

// BroadcastArrays broadcasts its inputs against each other and returns them
// with a common structure. Scalars become arrays of the leaf length.
func BroadcastArrays(inputs ...any) ([]layout.Content, error) {
	return layout.BroadcastAndApply(inputs, func(inputs []any, _ *layout.BroadcastContext) ([]layout.Content, error) {
		n := -1
		for _, in := range inputs {
			c, ok := in.(layout.Content)
			if !ok {
				continue
			}
			if x, isNumpy := c.(*layout.NumpyArray); (!isNumpy || len(x.Shape()) != 1) && !layout.IsStringLike(c) {
				return nil, nil
			}
			n = c.Len()
		}
		if n < 0 {
			return nil, nil
		}
		outs := make([]layout.Content, len(inputs))
		for i, in := range inputs {
			if c, ok := in.(layout.Content); ok {
				outs[i] = c
				continue
			}
			filled, err := repeated(in, n)
			if err != nil {
				return nil, err
			}
			outs[i] = filled
		}
		return outs, nil
	})
}
