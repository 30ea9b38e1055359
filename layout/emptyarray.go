package layout

import (
	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
	"github.com/wzqhbustb/jagged/types"
)

// EmptyArray is an array of length zero whose element type is unknown.
type EmptyArray struct {
	meta
}

func NewEmptyArray(params types.Parameters) *EmptyArray {
	return &EmptyArray{meta: meta{params: params}}
}

func (x *EmptyArray) Len() int { return 0 }

func (x *EmptyArray) IsUnknown() bool { return true }

func (x *EmptyArray) Form() forms.Form { return forms.EmptyForm{Meta: formMeta(x.params)} }

func (x *EmptyArray) Type() types.Type { return x.Form().Type() }

func (x *EmptyArray) String() string { return describe("EmptyArray", x) }

// ToNumpyArray returns an empty primitive array of the given type.
func (x *EmptyArray) ToNumpyArray(dt dtype.DType) *NumpyArray {
	return &NumpyArray{meta: x.meta, data: memory.NewBuffer(0), dtype: dt, shape: []int{0}}
}

func (x *EmptyArray) GetItemAt(i int) (any, error) {
	return nil, errors.IndexOutOfRange("getitem_at", i, 0)
}

func (x *EmptyArray) GetItemRange(start, stop, step int) (Content, error) {
	if step == 0 {
		return nil, errInvalidStep("getitem_range")
	}
	return x, nil
}

func (x *EmptyArray) GetItemField(name string) (Content, error) {
	return nil, errors.FieldNotFound("getitem_field", name, nil)
}

func (x *EmptyArray) GetItemFields(names []string) (Content, error) {
	if len(names) == 0 {
		return x, nil
	}
	return nil, errors.FieldNotFound("getitem_fields", names[0], nil)
}

func (x *EmptyArray) BranchDepth() (bool, int) { return false, 1 }

func (x *EmptyArray) MinMaxDepth() (int, int) { return 1, 1 }

func (x *EmptyArray) PurelistDepth() int { return 1 }

func (x *EmptyArray) withParameters(params types.Parameters) Content {
	return NewEmptyArray(params)
}

func (x *EmptyArray) carry(carry []int64) (Content, error) {
	if err := checkCarry("carry", carry, 0); err != nil {
		return nil, err
	}
	return x, nil
}

func (x *EmptyArray) rangeUnsafe(start, stop int) Content { return x }

func (x *EmptyArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	switch h := head.(type) {
	case sliceAt:
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Path("EmptyArray").
			Context("index", h.at).
			Message("index %d is out of bounds: array is empty", h.at).
			Build()
	case sliceRange, sliceArray, sliceJagged:
		return x, nil
	}
	return getitemNextSpecial(x, head, tail, advanced)
}

func (x *EmptyArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	if len(slicestarts) != 0 {
		return nil, errors.New(errors.ErrIndex).
			Op("getitem").
			Message("cannot fit a jagged slice of length %d into an empty array", len(slicestarts)).
			Build()
	}
	return x, nil
}
