package layout

import (
	"fmt"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
	"github.com/wzqhbustb/jagged/types"
)

// NumpyArray is a primitive leaf: a typed buffer of shape[0] rows, each of
// which may itself be a fixed-size block with shape[1:].
type NumpyArray struct {
	meta
	data  *memory.Buffer
	dtype dtype.DType
	shape []int
}

// NewNumpyArray wraps data as an array of the given type and shape. The
// buffer may be longer than needed; the view is truncated to the shape.
func NewNumpyArray(data *memory.Buffer, dt dtype.DType, shape []int, params types.Parameters) (*NumpyArray, error) {
	if len(shape) == 0 {
		return nil, errors.FormMismatch("NewNumpyArray", "NumpyArray", "shape must have at least one dimension")
	}
	n := 1
	for _, s := range shape {
		if s < 0 {
			return nil, errors.FormMismatchf("NewNumpyArray", "NumpyArray", "negative dimension in shape %v", shape)
		}
		n *= s
	}
	need := n * dt.ItemSize()
	if data.Len() < need {
		return nil, errors.FormMismatchf("NewNumpyArray", "NumpyArray",
			"buffer of %d bytes is too short for shape %v of %s (%d bytes)", data.Len(), shape, dt, need)
	}
	if data.Len() > need {
		data = data.Slice(0, need)
	}
	return &NumpyArray{
		meta:  meta{params: params},
		data:  data,
		dtype: dt,
		shape: append([]int{}, shape...),
	}, nil
}

// NewNumpy wraps a one-dimensional Go slice without copying.
func NewNumpy[T memory.Number](values []T) *NumpyArray {
	return &NumpyArray{
		data:  memory.FromSlice(values),
		dtype: dtypeFor[T](),
		shape: []int{len(values)},
	}
}

// NewNumpyInts converts Go ints to an int64 array.
func NewNumpyInts(values ...int) *NumpyArray {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return NewNumpy(out)
}

// NumpyValues returns the flat values of x as []T, without copying when the
// array's type is T.
func NumpyValues[T memory.Number](x *NumpyArray) ([]T, error) {
	if want := dtypeFor[T](); want != x.dtype {
		return nil, errors.TypeMismatch("NumpyValues", want.String(), x.dtype.String())
	}
	return memory.View[T](x.data), nil
}

func dtypeFor[T memory.Number]() dtype.DType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return dtype.Bool
	case int8:
		return dtype.Int8
	case uint8:
		return dtype.Uint8
	case int16:
		return dtype.Int16
	case uint16:
		return dtype.Uint16
	case int32:
		return dtype.Int32
	case uint32:
		return dtype.Uint32
	case int64:
		return dtype.Int64
	case uint64:
		return dtype.Uint64
	case float32:
		return dtype.Float32
	case float64:
		return dtype.Float64
	}
	panic(fmt.Sprintf("unsupported element type %T", zero))
}

func (x *NumpyArray) Len() int { return x.shape[0] }

func (x *NumpyArray) IsNumpy() bool { return true }

// DType returns the primitive element type.
func (x *NumpyArray) DType() dtype.DType { return x.dtype }

// Shape returns the full shape, starting with the outer length.
func (x *NumpyArray) Shape() []int { return append([]int{}, x.shape...) }

// Data returns the backing buffer view.
func (x *NumpyArray) Data() *memory.Buffer { return x.data }

func (x *NumpyArray) innerSize() int {
	n := 1
	for _, s := range x.shape[1:] {
		n *= s
	}
	return n
}

func (x *NumpyArray) rowBytes() int { return x.innerSize() * x.dtype.ItemSize() }

// flatLen is the number of primitive values.
func (x *NumpyArray) flatLen() int { return x.shape[0] * x.innerSize() }

// Value returns flat element i as a Go scalar.
func (x *NumpyArray) Value(i int) any {
	switch x.dtype {
	case dtype.Bool:
		return memory.View[bool](x.data)[i]
	case dtype.Int8:
		return memory.View[int8](x.data)[i]
	case dtype.Uint8:
		return memory.View[uint8](x.data)[i]
	case dtype.Int16:
		return memory.View[int16](x.data)[i]
	case dtype.Uint16:
		return memory.View[uint16](x.data)[i]
	case dtype.Int32:
		return memory.View[int32](x.data)[i]
	case dtype.Uint32:
		return memory.View[uint32](x.data)[i]
	case dtype.Int64:
		return memory.View[int64](x.data)[i]
	case dtype.Uint64:
		return memory.View[uint64](x.data)[i]
	case dtype.Float32:
		return memory.View[float32](x.data)[i]
	default:
		return memory.View[float64](x.data)[i]
	}
}

// Float64s converts the flat values to float64.
func (x *NumpyArray) Float64s() []float64 {
	n := x.flatLen()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		f, _ := dtype.ToFloat64(x.Value(i))
		out[i] = f
	}
	return out
}

// Bools converts the flat values to bool (non-zero is true).
func (x *NumpyArray) Bools() []bool {
	if x.dtype == dtype.Bool {
		return memory.View[bool](x.data)
	}
	n := x.flatLen()
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		b, _ := dtype.ToBool(x.Value(i))
		out[i] = b
	}
	return out
}

func (x *NumpyArray) asInt64() []int64 {
	if x.dtype == dtype.Int64 {
		return memory.View[int64](x.data)
	}
	n := x.flatLen()
	out := make([]int64, n)
	for i := 0; i < n; i++ {
		v, _ := dtype.ToInt64(x.Value(i))
		out[i] = v
	}
	return out
}

func (x *NumpyArray) Form() forms.Form {
	var inner []int
	if len(x.shape) > 1 {
		inner = append([]int{}, x.shape[1:]...)
	}
	return forms.NumpyForm{Meta: formMeta(x.params), Primitive: x.dtype, InnerShape: inner}
}

func (x *NumpyArray) Type() types.Type { return x.Form().Type() }

func (x *NumpyArray) String() string { return describe("NumpyArray", x) }

// toRegularArray expresses the inner dimensions as nested RegularArrays over
// a one-dimensional leaf.
func (x *NumpyArray) toRegularArray() Content {
	if len(x.shape) == 1 {
		return x
	}
	flat := &NumpyArray{data: x.data, dtype: x.dtype, shape: []int{x.flatLen()}}
	var out Content = flat
	for i := len(x.shape) - 1; i >= 1; i-- {
		params := emptyParams
		if i == 1 {
			params = x.params
		}
		reg, _ := NewRegularArray(out, x.shape[i], x.shape[i-1], params)
		out = reg
	}
	return out
}

func (x *NumpyArray) GetItemAt(i int) (any, error) {
	at, ok := regularizeAt(i, x.Len())
	if !ok {
		return nil, errors.IndexOutOfRange("getitem_at", i, x.Len())
	}
	if len(x.shape) == 1 {
		return x.Value(at), nil
	}
	row := x.rowBytes()
	return &NumpyArray{
		data:  x.data.Slice(at*row, row),
		dtype: x.dtype,
		shape: append([]int{}, x.shape[1:]...),
	}, nil
}

func (x *NumpyArray) GetItemRange(start, stop, step int) (Content, error) {
	return getItemRange(x, start, stop, step)
}

func (x *NumpyArray) GetItemField(name string) (Content, error) {
	return nil, errors.FieldNotFound("getitem_field", name, nil)
}

func (x *NumpyArray) GetItemFields(names []string) (Content, error) {
	if len(names) == 0 {
		return x, nil
	}
	return nil, errors.FieldNotFound("getitem_fields", names[0], nil)
}

func (x *NumpyArray) BranchDepth() (bool, int) { return false, len(x.shape) }

func (x *NumpyArray) MinMaxDepth() (int, int) { return len(x.shape), len(x.shape) }

func (x *NumpyArray) PurelistDepth() int { return len(x.shape) }

func (x *NumpyArray) withParameters(params types.Parameters) Content {
	return &NumpyArray{meta: meta{params: params}, data: x.data, dtype: x.dtype, shape: x.shape}
}

func (x *NumpyArray) carry(carry []int64) (Content, error) {
	if err := checkCarry("carry", carry, x.Len()); err != nil {
		return nil, err
	}
	row := x.rowBytes()
	src := x.data.Bytes()
	out := make([]byte, len(carry)*row)
	for i, c := range carry {
		copy(out[i*row:(i+1)*row], src[int(c)*row:(int(c)+1)*row])
	}
	shape := append([]int{len(carry)}, x.shape[1:]...)
	return &NumpyArray{meta: x.meta, data: memory.NewBufferBytes(out), dtype: x.dtype, shape: shape}, nil
}

func (x *NumpyArray) rangeUnsafe(start, stop int) Content {
	row := x.rowBytes()
	shape := append([]int{stop - start}, x.shape[1:]...)
	return &NumpyArray{meta: x.meta, data: x.data.Slice(start*row, (stop-start)*row), dtype: x.dtype, shape: shape}
}

func (x *NumpyArray) getitemNext(head sliceItem, tail []sliceItem, advanced []int64) (Content, error) {
	switch head.(type) {
	case sliceAt, sliceRange, sliceArray, sliceJagged:
		if len(x.shape) > 1 {
			return x.toRegularArray().getitemNext(head, tail, advanced)
		}
		return nil, errTooManyDimensions("getitem", x)
	}
	return getitemNextSpecial(x, head, tail, advanced)
}

func (x *NumpyArray) getitemNextJagged(slicestarts, slicestops []int64, slicecontent sliceItem, tail []sliceItem) (Content, error) {
	if len(x.shape) > 1 {
		return x.toRegularArray().getitemNextJagged(slicestarts, slicestops, slicecontent, tail)
	}
	return nil, errors.New(errors.ErrIndex).
		Op("getitem").
		Path("NumpyArray").
		Message("too many jagged slice dimensions for array").
		Build()
}

// NewNumpyFromValues converts Go scalars to a one-dimensional array of dt.
func NewNumpyFromValues(dt dtype.DType, values []any) (*NumpyArray, error) {
	return numpyFromFunc(dt, len(values), func(i int) any { return values[i] })
}

// AsType returns x converted to dt, or x itself when it already has that type.
func (x *NumpyArray) AsType(dt dtype.DType) (*NumpyArray, error) {
	if dt == x.dtype {
		return x, nil
	}
	out, err := numpyFromFunc(dt, x.flatLen(), x.Value)
	if err != nil {
		return nil, err
	}
	out.shape = append([]int{}, x.shape...)
	out.params = x.params
	return out, nil
}

func numpyFromFunc(dt dtype.DType, n int, get func(i int) any) (*NumpyArray, error) {
	switch dt {
	case dtype.Bool:
		return fillNumpy[bool](n, get, dt)
	case dtype.Int8:
		return fillNumpy[int8](n, get, dt)
	case dtype.Uint8:
		return fillNumpy[uint8](n, get, dt)
	case dtype.Int16:
		return fillNumpy[int16](n, get, dt)
	case dtype.Uint16:
		return fillNumpy[uint16](n, get, dt)
	case dtype.Int32:
		return fillNumpy[int32](n, get, dt)
	case dtype.Uint32:
		return fillNumpy[uint32](n, get, dt)
	case dtype.Int64:
		return fillNumpy[int64](n, get, dt)
	case dtype.Uint64:
		return fillNumpy[uint64](n, get, dt)
	case dtype.Float32:
		return fillNumpy[float32](n, get, dt)
	case dtype.Float64:
		return fillNumpy[float64](n, get, dt)
	}
	return nil, errors.NotSupported("NewNumpyFromValues", "unsupported primitive "+dt.String())
}

func fillNumpy[T memory.Number](n int, get func(i int) any, dt dtype.DType) (*NumpyArray, error) {
	out := make([]T, n)
	for i := range out {
		v, err := dtype.Cast(get(i), dt)
		if err != nil {
			return nil, err
		}
		out[i] = v.(T)
	}
	return NewNumpy(out), nil
}
