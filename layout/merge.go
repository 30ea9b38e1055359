package layout

import (
	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
)

// Merge concatenates arrays end to end. Arrays whose types can be merged
// become one array of the common type: numeric leaves are promoted, lists
// merge their contents, records merge field by field and an option in any
// input makes the result optional. Anything else becomes a simplified union
// of the inputs.
func Merge(arrays ...Content) (Content, error) {
	var nonEmpty []Content
	for _, a := range arrays {
		if a.IsUnknown() {
			continue
		}
		nonEmpty = append(nonEmpty, a)
	}
	switch len(nonEmpty) {
	case 0:
		if len(arrays) == 0 {
			return nil, errors.InvalidArg("concatenate", "at least one array is required")
		}
		return arrays[0], nil
	case 1:
		return nonEmpty[0], nil
	}
	if allMergeable(nonEmpty) {
		return mergeContents(nonEmpty)
	}
	var tags []int8
	var positions []int64
	for t, a := range nonEmpty {
		for i := 0; i < a.Len(); i++ {
			tags = append(tags, int8(t))
			positions = append(positions, int64(i))
		}
	}
	if len(nonEmpty) > 127 {
		return nil, errors.NotSupported("concatenate", "too many arrays with distinct types")
	}
	return SimplifyUnion(index.FromInt8(tags), index.FromInt64(positions), nonEmpty, emptyParams)
}

func allMergeable(contents []Content) bool {
	for i := range contents {
		for j := i + 1; j < len(contents); j++ {
			if !mergeable(contents[i], contents[j]) {
				return false
			}
		}
	}
	return true
}

// mergeable reports whether a and b can be concatenated without a union.
func mergeable(a, b Content) bool {
	if a.IsUnknown() || b.IsUnknown() {
		return true
	}
	if a.IsUnion() || b.IsUnion() {
		return false
	}
	if inner, ok := wrappedContent(a); ok {
		return mergeable(inner, b)
	}
	if inner, ok := wrappedContent(b); ok {
		return mergeable(a, inner)
	}
	if !a.Parameters().Equal(b.Parameters()) {
		return false
	}
	if x, ok := a.(*NumpyArray); ok && len(x.shape) > 1 {
		a = x.toRegularArray()
	}
	if x, ok := b.(*NumpyArray); ok && len(x.shape) > 1 {
		b = x.toRegularArray()
	}
	switch x := a.(type) {
	case *NumpyArray:
		y, ok := b.(*NumpyArray)
		return ok && x.dtype.IsBool() == y.dtype.IsBool()
	case *RegularArray, *ListOffsetArray, *ListArray:
		if !b.IsList() {
			return false
		}
		return mergeable(listContent(a), listContent(b))
	case *RecordArray:
		y, ok := b.(*RecordArray)
		if !ok || x.IsTuple() != y.IsTuple() || len(x.contents) != len(y.contents) {
			return false
		}
		for i, name := range x.Fields() {
			j, found := fieldIndex(y.fields, len(y.contents), name)
			if !found || !mergeable(x.contents[i], y.contents[j]) {
				return false
			}
		}
		return true
	}
	return false
}

// wrappedContent returns the content below an option or indexed node.
func wrappedContent(c Content) (Content, bool) {
	switch x := c.(type) {
	case *IndexedArray:
		return x.content, true
	case *IndexedOptionArray:
		return x.content, true
	case *ByteMaskedArray:
		return x.content, true
	case *BitMaskedArray:
		return x.content, true
	case *UnmaskedArray:
		return x.content, true
	}
	return nil, false
}

func listContent(c Content) Content {
	switch x := c.(type) {
	case *RegularArray:
		return x.content
	case *ListOffsetArray:
		return x.content
	case *ListArray:
		return x.content
	}
	return nil
}

// mergeContents concatenates contents that are pairwise mergeable.
func mergeContents(contents []Content) (Content, error) {
	var known []Content
	for _, c := range contents {
		if !c.IsUnknown() {
			known = append(known, c)
		}
	}
	switch len(known) {
	case 0:
		return contents[0], nil
	case 1:
		return known[0], nil
	}
	same := true
	first := forms.Hash(known[0].Form())
	for _, c := range known[1:] {
		if forms.Hash(c.Form()) != first {
			same = false
			break
		}
	}
	if same {
		return concatenateSame(known)
	}

	anyOption, anyIndexed := false, false
	for _, c := range known {
		anyOption = anyOption || c.IsOption()
		anyIndexed = anyIndexed || c.IsIndexed()
	}
	if anyOption {
		return mergeOptions(known)
	}
	if anyIndexed {
		projected := make([]Content, len(known))
		for i, c := range known {
			projected[i] = c
			if x, ok := c.(*IndexedArray); ok {
				p, err := x.content.carry(x.index.Int64s())
				if err != nil {
					return nil, err
				}
				projected[i] = p
			}
		}
		return mergeContents(projected)
	}

	allNumpy := true
	for _, c := range known {
		if _, ok := c.(*NumpyArray); !ok {
			allNumpy = false
		}
	}
	if allNumpy {
		if merged, ok, err := mergeNumpy(known); err != nil || ok {
			return merged, err
		}
	}
	for i, c := range known {
		if x, ok := c.(*NumpyArray); ok && len(x.shape) > 1 {
			known[i] = x.toRegularArray()
		}
	}

	switch x := known[0].(type) {
	case *RegularArray, *ListOffsetArray, *ListArray:
		return mergeLists(known)
	case *RecordArray:
		return mergeRecords(x, known)
	}
	return nil, errors.NotSupported("concatenate", "cannot merge "+className(known[0]))
}

// mergeNumpy promotes leaves of equal inner shape to their common type; ok
// is false when the inner shapes differ.
func mergeNumpy(contents []Content) (Content, bool, error) {
	first := contents[0].(*NumpyArray)
	dt := first.dtype
	for _, c := range contents[1:] {
		x := c.(*NumpyArray)
		if !equalInts(x.shape[1:], first.shape[1:]) {
			return nil, false, nil
		}
		dt = dtype.Promote(dt, x.dtype)
	}
	cast := make([]Content, len(contents))
	for i, c := range contents {
		x, err := c.(*NumpyArray).AsType(dt)
		if err != nil {
			return nil, false, err
		}
		cast[i] = x
	}
	merged, err := concatenateSame(cast)
	return merged, true, err
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mergeOptions(contents []Content) (Content, error) {
	params := emptyParams
	for _, c := range contents {
		if c.IsOption() {
			params = c.Parameters()
			break
		}
	}
	var out []int64
	inner := make([]Content, len(contents))
	var shift int64
	for i, c := range contents {
		opt, err := toIndexedOptionArray64(c)
		if err != nil {
			return nil, err
		}
		for _, v := range opt.index.Int64s() {
			if v >= 0 {
				v += shift
			} else {
				v = -1
			}
			out = append(out, v)
		}
		inner[i] = opt.content
		shift += int64(opt.content.Len())
	}
	merged, err := mergeContents(inner)
	if err != nil {
		return nil, err
	}
	return NewIndexedOptionArraySimplified(index.FromInt64(out), merged, params)
}

func mergeLists(contents []Content) (Content, error) {
	if size, ok := commonRegularSize(contents); ok {
		inner := make([]Content, len(contents))
		total := 0
		for i, c := range contents {
			x := c.(*RegularArray)
			inner[i] = x.content.rangeUnsafe(0, x.length*x.size)
			total += x.length
		}
		merged, err := mergeContents(inner)
		if err != nil {
			return nil, err
		}
		return NewRegularArray(merged, size, total, contents[0].Parameters())
	}
	offsets := []int64{0}
	inner := make([]Content, len(contents))
	var shift int64
	for i, c := range contents {
		list, err := toListOffsetArray64(c, true)
		if err != nil {
			return nil, err
		}
		o := list.offsets.Int64s()
		last := o[len(o)-1]
		for _, v := range o[1:] {
			offsets = append(offsets, v+shift)
		}
		inner[i] = list.content.rangeUnsafe(0, int(last))
		shift += last
	}
	merged, err := mergeContents(inner)
	if err != nil {
		return nil, err
	}
	return NewListOffsetArray(index.FromInt64(offsets), merged, contents[0].Parameters())
}

func commonRegularSize(contents []Content) (int, bool) {
	size := -1
	for _, c := range contents {
		x, ok := c.(*RegularArray)
		if !ok || (size >= 0 && x.size != size) {
			return 0, false
		}
		size = x.size
	}
	return size, true
}

func mergeRecords(first *RecordArray, contents []Content) (Content, error) {
	names := first.Fields()
	fields := make([]Content, len(names))
	total := 0
	for _, c := range contents {
		total += c.Len()
	}
	for f, name := range names {
		inner := make([]Content, len(contents))
		for i, c := range contents {
			field, err := c.(*RecordArray).Content(name)
			if err != nil {
				return nil, err
			}
			inner[i] = field
		}
		merged, err := mergeContents(inner)
		if err != nil {
			return nil, err
		}
		fields[f] = merged
	}
	return NewRecordArray(fields, first.fields, total, first.params)
}

// concatenateSame concatenates nodes that share a Form.
func concatenateSame(contents []Content) (Content, error) {
	if len(contents) == 1 {
		return contents[0], nil
	}
	switch first := contents[0].(type) {
	case *EmptyArray:
		return first, nil

	case *NumpyArray:
		var data []byte
		rows := 0
		for _, c := range contents {
			x := c.(*NumpyArray)
			data = append(data, x.data.Bytes()...)
			rows += x.Len()
		}
		shape := append([]int{rows}, first.shape[1:]...)
		return &NumpyArray{meta: first.meta, data: memory.NewBufferBytes(data), dtype: first.dtype, shape: shape}, nil

	case *RegularArray:
		inner := make([]Content, len(contents))
		total := 0
		for i, c := range contents {
			x := c.(*RegularArray)
			inner[i] = x.content.rangeUnsafe(0, x.length*x.size)
			total += x.length
		}
		merged, err := concatenateSame(inner)
		if err != nil {
			return nil, err
		}
		return NewRegularArray(merged, first.size, total, first.params)

	case *ListOffsetArray, *ListArray:
		var offsets []int64
		inner := make([]Content, len(contents))
		var shift int64
		for i, c := range contents {
			list, err := toListOffsetArray64(c, true)
			if err != nil {
				return nil, err
			}
			o := list.offsets.Int64s()
			last := o[len(o)-1]
			if i == 0 {
				offsets = append(offsets, 0)
			}
			for _, v := range o[1:] {
				offsets = append(offsets, v+shift)
			}
			inner[i] = list.content.rangeUnsafe(0, int(last))
			shift += last
		}
		merged, err := concatenateSame(inner)
		if err != nil {
			return nil, err
		}
		return NewListOffsetArray(index.FromInt64(offsets), merged, first.Parameters())

	case *IndexedArray:
		idx, inner, err := concatenateIndexed(contents, func(c Content) (*index.Index, Content) {
			x := c.(*IndexedArray)
			return x.index, x.content
		})
		if err != nil {
			return nil, err
		}
		return NewIndexedArray(idx, inner, first.params)

	case *IndexedOptionArray:
		idx, inner, err := concatenateIndexed(contents, func(c Content) (*index.Index, Content) {
			x := c.(*IndexedOptionArray)
			return x.index, x.content
		})
		if err != nil {
			return nil, err
		}
		return NewIndexedOptionArray(idx, inner, first.params)

	case *ByteMaskedArray, *BitMaskedArray:
		var mask []int8
		inner := make([]Content, len(contents))
		validWhen := true
		for i, c := range contents {
			x, ok := c.(*ByteMaskedArray)
			if !ok {
				x = c.(*BitMaskedArray).ToByteMaskedArray()
			}
			for k := 0; k < x.Len(); k++ {
				if x.isValid(k) {
					mask = append(mask, 1)
				} else {
					mask = append(mask, 0)
				}
			}
			inner[i] = x.content.rangeUnsafe(0, x.Len())
		}
		merged, err := concatenateSame(inner)
		if err != nil {
			return nil, err
		}
		return NewByteMaskedArray(index.FromInt8(mask), merged, validWhen, first.Parameters())

	case *UnmaskedArray:
		inner := make([]Content, len(contents))
		for i, c := range contents {
			inner[i] = c.(*UnmaskedArray).content
		}
		merged, err := concatenateSame(inner)
		if err != nil {
			return nil, err
		}
		return NewUnmaskedArray(merged, first.params)

	case *RecordArray:
		fields := make([]Content, len(first.contents))
		total := 0
		for _, c := range contents {
			total += c.Len()
		}
		for f := range first.contents {
			inner := make([]Content, len(contents))
			for i, c := range contents {
				inner[i] = c.(*RecordArray).trimmed(f)
			}
			merged, err := concatenateSame(inner)
			if err != nil {
				return nil, err
			}
			fields[f] = merged
		}
		return NewRecordArray(fields, first.fields, total, first.params)

	case *UnionArray:
		n := len(first.contents)
		var tags []int8
		var positions []int64
		shifts := make([]int64, n)
		branches := make([][]Content, n)
		for _, c := range contents {
			x := c.(*UnionArray)
			for k := 0; k < x.Len(); k++ {
				t := x.tags.Get(k)
				tags = append(tags, int8(t))
				positions = append(positions, x.index.Get(k)+shifts[t])
			}
			for t, b := range x.contents {
				branches[t] = append(branches[t], b)
				shifts[t] += int64(b.Len())
			}
		}
		merged := make([]Content, n)
		for t := range branches {
			m, err := concatenateSame(branches[t])
			if err != nil {
				return nil, err
			}
			merged[t] = m
		}
		return NewUnionArray(index.FromInt8(tags), index.FromInt64(positions), merged, first.params)
	}
	return nil, errors.NotSupported("concatenate", "cannot concatenate "+className(contents[0]))
}

func concatenateIndexed(contents []Content, parts func(Content) (*index.Index, Content)) (*index.Index, Content, error) {
	var out []int64
	inner := make([]Content, len(contents))
	var shift int64
	for i, c := range contents {
		idx, content := parts(c)
		for k := 0; k < idx.Len(); k++ {
			v := idx.Get(k)
			if v >= 0 {
				v += shift
			} else {
				v = -1
			}
			out = append(out, v)
		}
		inner[i] = content
		shift += int64(content.Len())
	}
	merged, err := concatenateSame(inner)
	if err != nil {
		return nil, nil, err
	}
	return index.FromInt64(out), merged, nil
}
