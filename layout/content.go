// Package layout implements the tree of immutable, buffer-backed nodes that
// represents a jagged array, together with the engines that walk it: slicing,
// recursive apply, broadcasting and conversion to and from buffers.
package layout

import (
	"fmt"

	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/types"
)

// Content is one node of a layout tree. The set of implementations is closed:
// EmptyArray, NumpyArray, RegularArray, ListOffsetArray, ListArray,
// IndexedArray, IndexedOptionArray, ByteMaskedArray, BitMaskedArray,
// UnmaskedArray, RecordArray and UnionArray.
//
// Nodes never change after construction; every operation returns a new tree
// that may share buffers and subtrees with its input.
type Content interface {
	// Len returns the outer length.
	Len() int
	Parameters() types.Parameters
	// Form returns the buffer-free description of this subtree.
	Form() forms.Form
	// Type returns the element type; Form().Type().
	Type() types.Type

	// GetItemAt returns element i: a Go scalar for primitive leaves, a
	// Content for list elements, a *Record for records, or nil when missing.
	// Negative i counts from the end.
	GetItemAt(i int) (any, error)
	// GetItemRange returns the elements selected by the Python slice
	// start:stop:step, clamped to the valid range.
	GetItemRange(start, stop, step int) (Content, error)
	// GetItemField projects a record field through every list and option
	// layer above the record.
	GetItemField(name string) (Content, error)
	GetItemFields(names []string) (Content, error)

	IsList() bool
	IsRegular() bool
	IsOption() bool
	IsIndexed() bool
	IsRecord() bool
	IsUnion() bool
	IsNumpy() bool
	IsUnknown() bool

	// BranchDepth reports whether records or unions below this node lead to
	// different list depths, and the smallest depth found.
	BranchDepth() (branching bool, depth int)
	MinMaxDepth() (min, max int)
	// PurelistDepth counts list dimensions down to the first record, or -1
	// when union branches disagree.
	PurelistDepth() int

	String() string

	withParameters(params types.Parameters) Content
	carry(carry []int64) (Content, error)
	rangeUnsafe(start, stop int) Content
	getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error)
	getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error)
}

// WithParameters returns c with its parameters replaced.
func WithParameters(c Content, params types.Parameters) Content {
	return c.withParameters(params)
}

// meta is embedded in every node.
type meta struct {
	params types.Parameters
}

func (m meta) Parameters() types.Parameters { return m.params }

func (meta) IsList() bool    { return false }
func (meta) IsRegular() bool { return false }
func (meta) IsOption() bool  { return false }
func (meta) IsIndexed() bool { return false }
func (meta) IsRecord() bool  { return false }
func (meta) IsUnion() bool   { return false }
func (meta) IsNumpy() bool   { return false }
func (meta) IsUnknown() bool { return false }

func formMeta(params types.Parameters) forms.Meta {
	return forms.Meta{Params: params}
}

func describe(class string, c Content) string {
	return fmt.Sprintf("%s{len: %d, type: %s}", class, c.Len(), c.Type())
}

// className returns the layout class of c, used in error paths.
func className(c Content) string {
	switch c.(type) {
	case *EmptyArray:
		return "EmptyArray"
	case *NumpyArray:
		return "NumpyArray"
	case *RegularArray:
		return "RegularArray"
	case *ListOffsetArray:
		return "ListOffsetArray"
	case *ListArray:
		return "ListArray"
	case *IndexedArray:
		return "IndexedArray"
	case *IndexedOptionArray:
		return "IndexedOptionArray"
	case *ByteMaskedArray:
		return "ByteMaskedArray"
	case *BitMaskedArray:
		return "BitMaskedArray"
	case *UnmaskedArray:
		return "UnmaskedArray"
	case *RecordArray:
		return "RecordArray"
	case *UnionArray:
		return "UnionArray"
	}
	return fmt.Sprintf("%T", c)
}

// getItemRange implements GetItemRange on top of rangeUnsafe and carry.
func getItemRange(c Content, start, stop, step int) (Content, error) {
	if step == 0 {
		return nil, errInvalidStep("getitem_range")
	}
	start, stop = regularizeRange(start, stop, step, true, true, c.Len())
	if step == 1 {
		if stop < start {
			stop = start
		}
		return c.rangeUnsafe(start, stop), nil
	}
	return c.carry(rangeCarry(start, stop, step))
}

// lengthOf is the Len of each content, used for error context.
func lengthsOf(contents []Content) []int {
	out := make([]int, len(contents))
	for i, c := range contents {
		out[i] = c.Len()
	}
	return out
}

var emptyParams types.Parameters

// Take gathers the elements of c at positions, which must be in range.
func Take(c Content, positions []int64) (Content, error) {
	return c.carry(positions)
}

// IsStringLike reports whether c is a list marked as a string or
// bytestring.
func IsStringLike(c Content) bool {
	return c.IsList() && isStringLike(c.Parameters())
}
