package layout

import (
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
)

// GetItem applies a slice expression: one item per dimension, in order,
// following NumPy semantics extended to variable-length lists, records and
// missing values. The result is a Go scalar, a *Record, nil (a missing
// value) or a Content.
func GetItem(c Content, items ...SliceItem) (any, error) {
	if len(items) == 0 {
		return c, nil
	}
	if len(items) == 1 {
		switch x := items[0].(type) {
		case sliceAt:
			return c.GetItemAt(x.at)
		case sliceRange:
			if x.step == 0 {
				return nil, errInvalidStep("getitem")
			}
			start, stop := regularizeRange(x.start, x.stop, x.step, x.hasStart, x.hasStop, c.Len())
			if x.step == 1 {
				if stop < start {
					stop = start
				}
				return c.rangeUnsafe(start, stop), nil
			}
			return c.carry(rangeCarry(start, stop, x.step))
		case sliceField:
			return c.GetItemField(x.name)
		case sliceFields:
			return c.GetItemFields(x.names)
		case sliceEllipsis:
			return c, nil
		}
	}

	normalized := make([]sliceItem, len(items))
	for i, item := range items {
		n, err := normalizeItem(item)
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}
	prepared, err := prepareAdvanced(normalized)
	if err != nil {
		return nil, err
	}

	wrapped, err := NewRegularArray(c, c.Len(), 1, emptyParams)
	if err != nil {
		return nil, err
	}
	out, err := wrapped.getitemNext(prepared[0], prepared[1:], nil)
	if err != nil {
		return nil, err
	}
	if out.Len() == 0 {
		return out.rangeUnsafe(0, 0), nil
	}
	return out.GetItemAt(0)
}

// GetItemContent is GetItem for expressions known to produce an array.
func GetItemContent(c Content, items ...SliceItem) (Content, error) {
	out, err := GetItem(c, items...)
	if err != nil {
		return nil, err
	}
	content, ok := out.(Content)
	if !ok {
		return nil, errors.Typef("getitem", "slice produced a scalar (%T), not an array", out)
	}
	return content, nil
}

func headTail(items []sliceItem) (sliceItem, []sliceItem) {
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], items[1:]
}

// getitemNextSpecial handles the heads that every node treats the same way.
func getitemNextSpecial(c Content, head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	switch h := head.(type) {
	case nil:
		return c, nil
	case sliceEllipsis:
		return getitemNextEllipsis(c, tail, advanced)
	case sliceNewAxis:
		nexthead, nexttail := headTail(tail)
		next, err := c.getitemNext(nexthead, nexttail, advanced)
		if err != nil {
			return nil, err
		}
		return NewRegularArray(next, 1, c.Len(), emptyParams)
	case sliceField:
		nexthead, nexttail := headTail(tail)
		next, err := c.GetItemField(h.name)
		if err != nil {
			return nil, err
		}
		return next.getitemNext(nexthead, nexttail, advanced)
	case sliceFields:
		nexthead, nexttail := headTail(tail)
		next, err := c.GetItemFields(h.names)
		if err != nil {
			return nil, err
		}
		return next.getitemNext(nexthead, nexttail, advanced)
	case sliceMissing:
		return getitemNextMissing(c, h, tail, advanced)
	}
	return nil, errors.New(errors.ErrNotSupported).
		Op("getitem").
		Path(className(c)).
		Message("unsupported slice item %T", head).
		Build()
}

func countsAsDimension(item sliceItem) bool {
	switch item.(type) {
	case sliceAt, sliceRange, sliceArray:
		return true
	}
	return false
}

// getitemNextEllipsis expands "..." into full slices until the remaining
// items line up with the innermost dimensions.
func getitemNextEllipsis(c Content, tail []sliceItem, advanced []int64) (Content, error) {
	mindepth, maxdepth := c.MinMaxDepth()
	dimlength := 0
	for _, item := range tail {
		if countsAsDimension(item) {
			dimlength++
		}
	}
	if len(tail) == 0 || (mindepth-1 == maxdepth-1 && maxdepth-1 == dimlength) {
		nexthead, nexttail := headTail(tail)
		return c.getitemNext(nexthead, nexttail, advanced)
	}
	if dimlength == mindepth-1 || dimlength == maxdepth-1 {
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Path(className(c)).
			Message("ellipsis (...) cannot be used on data with different numbers of dimensions").
			Build()
	}
	return c.getitemNext(All().(sliceRange), append([]sliceItem{sliceEllipsis{}}, tail...), advanced)
}

// getitemNextMissing applies a selector with missing entries; c is the
// length-1 wrapper built by GetItem or a list level below it.
func getitemNextMissing(c Content, head sliceMissing, tail []sliceItem, advanced []int64) (Content, error) {
	if advanced != nil {
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Message("cannot mix missing values in a slice with array selectors").
			Build()
	}
	if jagged, ok := head.content.(sliceJagged); ok {
		if c.Len() != 1 {
			return nil, errors.NotSupported("getitem", "a jagged slice with missing values must be the outermost selector")
		}
		return getitemNextMissingJagged(c, head.index, jagged, tail)
	}

	next, err := c.getitemNext(head.content, tail, advanced)
	if err != nil {
		return nil, err
	}
	switch x := next.(type) {
	case *RegularArray:
		return regularMissing(c, head.index, x)
	case *RecordArray:
		if len(x.contents) == 0 {
			return x, nil
		}
		contents := make([]Content, len(x.contents))
		for i, field := range x.contents {
			reg, ok := field.(*RegularArray)
			if !ok {
				return nil, errors.NotSupported("getitem", "missing values in a slice of this record")
			}
			if contents[i], err = regularMissing(c, head.index, reg); err != nil {
				return nil, err
			}
		}
		return NewRecordArray(contents, x.fields, -1, c.Parameters())
	}
	return nil, errors.NotSupported("getitem", "missing values in a slice of "+className(next))
}

// regularMissing reinserts missing entries into the rows of raw, whose size
// equals the number of valid selector entries.
func regularMissing(c Content, missing []int64, raw *RegularArray) (Content, error) {
	length := raw.Len()
	if length == 0 {
		length = 1
	}
	outindex := make([]int64, len(missing)*length)
	for i := 0; i < length; i++ {
		for j, base := range missing {
			if base >= 0 {
				outindex[i*len(missing)+j] = base + int64(i*raw.size)
			} else {
				outindex[i*len(missing)+j] = base
			}
		}
	}
	out, err := NewIndexedOptionArraySimplified(index.FromInt64(outindex), raw.content, c.Parameters())
	if err != nil {
		return nil, err
	}
	return NewRegularArray(out, len(missing), 1, c.Parameters())
}

// getitemNextMissingJagged applies a top-level jagged selector in which some
// lists are missing: those rows select nothing and come out missing.
func getitemNextMissingJagged(c Content, missing []int64, jagged sliceJagged, tail []sliceItem) (Content, error) {
	first, err := c.GetItemAt(0)
	if err != nil {
		return nil, err
	}
	content := first.(Content)
	if content.Len() < len(missing) {
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Message("cannot fit a jagged slice of length %d into an array of length %d", len(missing), content.Len()).
			Build()
	}
	outputmask := make([]int64, len(missing))
	starts := make([]int64, len(missing))
	stops := make([]int64, len(missing))
	k := 0
	for i, m := range missing {
		if m < 0 {
			outputmask[i] = -1
			starts[i] = jagged.offsets[k]
			stops[i] = jagged.offsets[k]
			continue
		}
		outputmask[i] = int64(i)
		starts[i] = jagged.offsets[k]
		k++
		stops[i] = jagged.offsets[k]
	}
	tmp, err := content.getitemNextJagged(starts, stops, jagged.content, tail)
	if err != nil {
		return nil, err
	}
	out, err := NewIndexedOptionArraySimplified(index.FromInt64(outputmask), tmp, c.Parameters())
	if err != nil {
		return nil, err
	}
	return NewRegularArray(out, len(missing), 1, c.Parameters())
}
