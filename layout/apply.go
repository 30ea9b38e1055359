package layout

import (
	"github.com/wzqhbustb/jagged/index"
)

// Visitor receives every node of a tree during Apply. A method returns a
// replacement subtree, or nil to let Apply descend into the node's children
// and rebuild it around their results.
type Visitor interface {
	VisitEmpty(x *EmptyArray, ctx *ApplyContext) (Content, error)
	VisitNumpy(x *NumpyArray, ctx *ApplyContext) (Content, error)
	VisitRegular(x *RegularArray, ctx *ApplyContext) (Content, error)
	VisitListOffset(x *ListOffsetArray, ctx *ApplyContext) (Content, error)
	VisitList(x *ListArray, ctx *ApplyContext) (Content, error)
	VisitIndexed(x *IndexedArray, ctx *ApplyContext) (Content, error)
	VisitIndexedOption(x *IndexedOptionArray, ctx *ApplyContext) (Content, error)
	VisitByteMasked(x *ByteMaskedArray, ctx *ApplyContext) (Content, error)
	VisitBitMasked(x *BitMaskedArray, ctx *ApplyContext) (Content, error)
	VisitUnmasked(x *UnmaskedArray, ctx *ApplyContext) (Content, error)
	VisitRecord(x *RecordArray, ctx *ApplyContext) (Content, error)
	VisitUnion(x *UnionArray, ctx *ApplyContext) (Content, error)
}

// BaseVisitor descends into every node. Embed it and override the methods
// of interest.
type BaseVisitor struct{}

func (BaseVisitor) VisitEmpty(*EmptyArray, *ApplyContext) (Content, error)     { return nil, nil }
func (BaseVisitor) VisitNumpy(*NumpyArray, *ApplyContext) (Content, error)     { return nil, nil }
func (BaseVisitor) VisitRegular(*RegularArray, *ApplyContext) (Content, error) { return nil, nil }
func (BaseVisitor) VisitListOffset(*ListOffsetArray, *ApplyContext) (Content, error) {
	return nil, nil
}
func (BaseVisitor) VisitList(*ListArray, *ApplyContext) (Content, error)       { return nil, nil }
func (BaseVisitor) VisitIndexed(*IndexedArray, *ApplyContext) (Content, error) { return nil, nil }
func (BaseVisitor) VisitIndexedOption(*IndexedOptionArray, *ApplyContext) (Content, error) {
	return nil, nil
}
func (BaseVisitor) VisitByteMasked(*ByteMaskedArray, *ApplyContext) (Content, error) {
	return nil, nil
}
func (BaseVisitor) VisitBitMasked(*BitMaskedArray, *ApplyContext) (Content, error) {
	return nil, nil
}
func (BaseVisitor) VisitUnmasked(*UnmaskedArray, *ApplyContext) (Content, error) { return nil, nil }
func (BaseVisitor) VisitRecord(*RecordArray, *ApplyContext) (Content, error)     { return nil, nil }
func (BaseVisitor) VisitUnion(*UnionArray, *ApplyContext) (Content, error)       { return nil, nil }

type applyOptions struct {
	trim           bool
	keepParameters bool
	numpyToRegular bool
	returnArray    bool
}

// ApplyOption configures Apply.
type ApplyOption func(*applyOptions)

// WithTrim controls whether list children are cut down to the range their
// parent covers before being visited (the default) or passed with their raw,
// possibly longer, buffers.
func WithTrim(trim bool) ApplyOption {
	return func(o *applyOptions) { o.trim = trim }
}

// WithKeepParameters controls whether rebuilt nodes keep their parameters.
func WithKeepParameters(keep bool) ApplyOption {
	return func(o *applyOptions) { o.keepParameters = keep }
}

// WithNumpyToRegular converts multidimensional leaves to RegularArrays
// before they are visited.
func WithNumpyToRegular(convert bool) ApplyOption {
	return func(o *applyOptions) { o.numpyToRegular = convert }
}

// WithReturnArray set to false makes Apply a pure walk that returns nil.
func WithReturnArray(ret bool) ApplyOption {
	return func(o *applyOptions) { o.returnArray = ret }
}

// ApplyContext describes the node being visited.
type ApplyContext struct {
	// Depth is 1 at the root and grows by one below every list node.
	Depth int
	// Trimmed reports whether the node was trimmed by its parent.
	Trimmed bool

	node    Content
	visitor Visitor
	opts    *applyOptions
}

// Continue descends into the current node's children and returns the
// rebuilt node, so a visitor can post-process the default result.
func (ctx *ApplyContext) Continue() (Content, error) {
	return descend(ctx.node, ctx.visitor, ctx.Depth, ctx.opts)
}

// Apply walks c depth first, letting v replace any subtree.
func Apply(c Content, v Visitor, opts ...ApplyOption) (Content, error) {
	o := &applyOptions{trim: true, keepParameters: true, returnArray: true}
	for _, opt := range opts {
		opt(o)
	}
	out, err := apply(c, v, 1, false, o)
	if err != nil {
		return nil, err
	}
	if !o.returnArray {
		return nil, nil
	}
	return out, nil
}

func apply(c Content, v Visitor, depth int, trimmed bool, o *applyOptions) (Content, error) {
	if x, ok := c.(*NumpyArray); ok && o.numpyToRegular && len(x.shape) > 1 {
		c = x.toRegularArray()
	}
	ctx := &ApplyContext{Depth: depth, Trimmed: trimmed, node: c, visitor: v, opts: o}
	var out Content
	var err error
	switch x := c.(type) {
	case *EmptyArray:
		out, err = v.VisitEmpty(x, ctx)
	case *NumpyArray:
		out, err = v.VisitNumpy(x, ctx)
	case *RegularArray:
		out, err = v.VisitRegular(x, ctx)
	case *ListOffsetArray:
		out, err = v.VisitListOffset(x, ctx)
	case *ListArray:
		out, err = v.VisitList(x, ctx)
	case *IndexedArray:
		out, err = v.VisitIndexed(x, ctx)
	case *IndexedOptionArray:
		out, err = v.VisitIndexedOption(x, ctx)
	case *ByteMaskedArray:
		out, err = v.VisitByteMasked(x, ctx)
	case *BitMaskedArray:
		out, err = v.VisitBitMasked(x, ctx)
	case *UnmaskedArray:
		out, err = v.VisitUnmasked(x, ctx)
	case *RecordArray:
		out, err = v.VisitRecord(x, ctx)
	case *UnionArray:
		out, err = v.VisitUnion(x, ctx)
	}
	if err != nil || out != nil {
		return out, err
	}
	return descend(c, v, depth, o)
}

// descend applies v to the children of c and rebuilds c around them.
func descend(c Content, v Visitor, depth int, o *applyOptions) (Content, error) {
	params := emptyParams
	if o.keepParameters {
		params = c.Parameters()
	}
	switch x := c.(type) {
	case *EmptyArray, *NumpyArray:
		if o.keepParameters {
			return c, nil
		}
		return c.withParameters(emptyParams), nil

	case *RegularArray:
		child := x.content
		if o.trim {
			child = child.rangeUnsafe(0, x.length*x.size)
		}
		next, err := apply(child, v, depth+1, o.trim, o)
		if err != nil || !o.returnArray {
			return nil, err
		}
		return NewRegularArray(next, x.size, x.length, params)

	case *ListOffsetArray:
		offsets, child := x.offsets, x.content
		if o.trim {
			list, err := toListOffsetArray64(x, true)
			if err != nil {
				return nil, err
			}
			last := list.offsets.Get(list.offsets.Len() - 1)
			offsets, child = list.offsets, list.content.rangeUnsafe(0, int(last))
		}
		next, err := apply(child, v, depth+1, o.trim, o)
		if err != nil || !o.returnArray {
			return nil, err
		}
		return NewListOffsetArray(offsets, next, params)

	case *ListArray:
		starts, stops, child := x.starts, x.stops.Slice(0, x.Len()), x.content
		if o.trim && x.Len() > 0 {
			s, e := x.starts.Slice(0, x.Len()).ToInt64(), stops.ToInt64()
			// Empty rows may point anywhere, so only non-empty rows bound the range.
			var lo, hi int64
			seen := false
			for i := range s {
				if s[i] >= e[i] {
					continue
				}
				if !seen || s[i] < lo {
					lo = s[i]
				}
				if !seen || e[i] > hi {
					hi = e[i]
				}
				seen = true
			}
			for i := range s {
				if s[i] >= e[i] {
					s[i], e[i] = 0, 0
					continue
				}
				s[i] -= lo
				e[i] -= lo
			}
			starts, stops = index.FromInt64(s), index.FromInt64(e)
			child = child.rangeUnsafe(int(lo), int(hi))
		}
		next, err := apply(child, v, depth+1, o.trim, o)
		if err != nil || !o.returnArray {
			return nil, err
		}
		return NewListArray(starts, stops, next, params)

	case *IndexedArray:
		next, err := apply(x.content, v, depth, false, o)
		if err != nil || !o.returnArray {
			return nil, err
		}
		return NewIndexedArraySimplified(x.index, next, params)

	case *IndexedOptionArray:
		next, err := apply(x.content, v, depth, false, o)
		if err != nil || !o.returnArray {
			return nil, err
		}
		return NewIndexedOptionArraySimplified(x.index, next, params)

	case *ByteMaskedArray:
		child := x.content
		if o.trim {
			child = child.rangeUnsafe(0, x.Len())
		}
		next, err := apply(child, v, depth, o.trim, o)
		if err != nil || !o.returnArray {
			return nil, err
		}
		if next.IsOption() || next.IsIndexed() {
			return NewIndexedOptionArraySimplified(index.FromInt64(maskToIndex(x.Valid())), next, params)
		}
		return NewByteMaskedArray(x.mask, next, x.validWhen, params)

	case *BitMaskedArray:
		child := x.content
		if o.trim {
			child = child.rangeUnsafe(0, x.length)
		}
		next, err := apply(child, v, depth, o.trim, o)
		if err != nil || !o.returnArray {
			return nil, err
		}
		if next.IsOption() || next.IsIndexed() {
			return NewIndexedOptionArraySimplified(index.FromInt64(maskToIndex(x.ToByteMaskedArray().Valid())), next, params)
		}
		return NewBitMaskedArray(x.mask, next, x.validWhen, x.length, x.lsbOrder, params)

	case *UnmaskedArray:
		next, err := apply(x.content, v, depth, o.trim, o)
		if err != nil || !o.returnArray {
			return nil, err
		}
		return NewUnmaskedArraySimplified(next, params)

	case *RecordArray:
		contents := make([]Content, len(x.contents))
		for i, field := range x.contents {
			child := field
			if o.trim {
				child = x.trimmed(i)
			}
			next, err := apply(child, v, depth, o.trim, o)
			if err != nil {
				return nil, err
			}
			contents[i] = next
		}
		if !o.returnArray {
			return nil, nil
		}
		return NewRecordArray(contents, x.fields, x.length, params)

	case *UnionArray:
		contents := make([]Content, len(x.contents))
		nested := false
		for i, branch := range x.contents {
			next, err := apply(branch, v, depth, false, o)
			if err != nil {
				return nil, err
			}
			contents[i] = next
			if next != nil && (next.IsUnion() || next.IsOption() || next.IsIndexed()) {
				nested = true
			}
		}
		if !o.returnArray {
			return nil, nil
		}
		if nested {
			return SimplifyUnion(x.tags, x.index, contents, params)
		}
		return NewUnionArray(x.tags, x.index, contents, params)
	}
	return nil, errTooManyDimensions("apply", c)
}

// VisitorFunc adapts one function to every method of Visitor.
type VisitorFunc func(c Content, ctx *ApplyContext) (Content, error)

func (f VisitorFunc) VisitEmpty(x *EmptyArray, ctx *ApplyContext) (Content, error) { return f(x, ctx) }
func (f VisitorFunc) VisitNumpy(x *NumpyArray, ctx *ApplyContext) (Content, error) { return f(x, ctx) }
func (f VisitorFunc) VisitRegular(x *RegularArray, ctx *ApplyContext) (Content, error) {
	return f(x, ctx)
}
func (f VisitorFunc) VisitListOffset(x *ListOffsetArray, ctx *ApplyContext) (Content, error) {
	return f(x, ctx)
}
func (f VisitorFunc) VisitList(x *ListArray, ctx *ApplyContext) (Content, error) { return f(x, ctx) }
func (f VisitorFunc) VisitIndexed(x *IndexedArray, ctx *ApplyContext) (Content, error) {
	return f(x, ctx)
}
func (f VisitorFunc) VisitIndexedOption(x *IndexedOptionArray, ctx *ApplyContext) (Content, error) {
	return f(x, ctx)
}
func (f VisitorFunc) VisitByteMasked(x *ByteMaskedArray, ctx *ApplyContext) (Content, error) {
	return f(x, ctx)
}
func (f VisitorFunc) VisitBitMasked(x *BitMaskedArray, ctx *ApplyContext) (Content, error) {
	return f(x, ctx)
}
func (f VisitorFunc) VisitUnmasked(x *UnmaskedArray, ctx *ApplyContext) (Content, error) {
	return f(x, ctx)
}
func (f VisitorFunc) VisitRecord(x *RecordArray, ctx *ApplyContext) (Content, error) {
	return f(x, ctx)
}
func (f VisitorFunc) VisitUnion(x *UnionArray, ctx *ApplyContext) (Content, error) { return f(x, ctx) }
