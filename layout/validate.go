package layout

import (
	"github.com/wzqhbustb/jagged/storage/errors"
)

// validator re-runs the construction checks of every node.
type validator struct {
	BaseVisitor
}

func (validator) VisitNumpy(x *NumpyArray, _ *ApplyContext) (Content, error) {
	_, err := NewNumpyArray(x.data, x.dtype, x.shape, x.params)
	return nil, err
}

func (validator) VisitRegular(x *RegularArray, _ *ApplyContext) (Content, error) {
	if _, err := NewRegularArray(x.content, x.size, x.length, x.params); err != nil {
		return nil, err
	}
	if x.content.Len() < x.length*x.size {
		return nil, errors.FormMismatchf("validate", "RegularArray",
			"content length %d is shorter than %d rows of size %d", x.content.Len(), x.length, x.size)
	}
	return nil, nil
}

func (validator) VisitListOffset(x *ListOffsetArray, _ *ApplyContext) (Content, error) {
	_, err := NewListOffsetArray(x.offsets, x.content, x.params)
	return nil, err
}

func (validator) VisitList(x *ListArray, _ *ApplyContext) (Content, error) {
	_, err := NewListArray(x.starts, x.stops, x.content, x.params)
	return nil, err
}

func (validator) VisitIndexed(x *IndexedArray, _ *ApplyContext) (Content, error) {
	_, err := NewIndexedArray(x.index, x.content, x.params)
	return nil, err
}

func (validator) VisitIndexedOption(x *IndexedOptionArray, _ *ApplyContext) (Content, error) {
	_, err := NewIndexedOptionArray(x.index, x.content, x.params)
	return nil, err
}

func (validator) VisitByteMasked(x *ByteMaskedArray, _ *ApplyContext) (Content, error) {
	_, err := NewByteMaskedArray(x.mask, x.content, x.validWhen, x.params)
	return nil, err
}

func (validator) VisitBitMasked(x *BitMaskedArray, _ *ApplyContext) (Content, error) {
	_, err := NewBitMaskedArray(x.mask, x.content, x.validWhen, x.length, x.lsbOrder, x.params)
	return nil, err
}

func (validator) VisitUnmasked(x *UnmaskedArray, _ *ApplyContext) (Content, error) {
	_, err := NewUnmaskedArray(x.content, x.params)
	return nil, err
}

func (validator) VisitRecord(x *RecordArray, _ *ApplyContext) (Content, error) {
	_, err := NewRecordArray(x.contents, x.fields, x.length, x.params)
	return nil, err
}

func (validator) VisitUnion(x *UnionArray, _ *ApplyContext) (Content, error) {
	_, err := NewUnionArray(x.tags, x.index, x.contents, x.params)
	return nil, err
}

// Validate checks the construction invariants of every node in c. Trees
// built through the constructors are always valid; Validate is for trees
// assembled elsewhere, such as from decoded buffers.
func Validate(c Content) error {
	_, err := Apply(c, validator{}, WithTrim(false), WithReturnArray(false))
	return err
}

// ToRegularArray converts c to a RegularArray when its lists all have the
// same length. Multidimensional NumpyArrays become nested RegularArrays.
func ToRegularArray(c Content) (Content, error) {
	switch x := c.(type) {
	case *RegularArray:
		return x, nil
	case *NumpyArray:
		if len(x.shape) == 1 {
			return nil, errors.TypeMismatch("to_RegularArray", "a multidimensional array", "a one-dimensional NumpyArray")
		}
		return x.toRegularArray(), nil
	case *ListOffsetArray, *ListArray:
		list, err := toListOffsetArray64(c, true)
		if err != nil {
			return nil, err
		}
		offsets := list.offsets.Int64s()
		size := -1
		for i := 0; i+1 < len(offsets); i++ {
			n := int(offsets[i+1] - offsets[i])
			if size == -1 {
				size = n
			} else if n != size {
				return nil, errors.New(errors.ErrType).
					Op("to_RegularArray").
					Message("list %d has length %d, not %d; lists must all have the same length", i, n, size).
					Build()
			}
		}
		if size == -1 {
			size = 0
		}
		return NewRegularArray(list.content, size, list.Len(), list.params)
	}
	return nil, errors.TypeMismatch("to_RegularArray", "a list type", className(c))
}

// ToNumpyArray materializes a purely rectangular array as a
// multidimensional NumpyArray.
func ToNumpyArray(c Content) (*NumpyArray, error) {
	switch x := c.(type) {
	case *NumpyArray:
		return x, nil
	case *EmptyArray:
		return nil, errors.TypeMismatch("to_NumpyArray", "a typed array", "EmptyArray")
	case *RegularArray:
		inner, err := ToNumpyArray(x.content.rangeUnsafe(0, x.length*x.size))
		if err != nil {
			return nil, err
		}
		shape := append([]int{x.length, x.size}, inner.shape[1:]...)
		return &NumpyArray{meta: x.meta, data: inner.data, dtype: inner.dtype, shape: shape}, nil
	}
	return nil, errors.TypeMismatch("to_NumpyArray", "a rectangular array", className(c))
}
