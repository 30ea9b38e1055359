// Package index implements the typed integer views used for every
// pointer-like relationship in a layout tree: offsets, starts/stops,
// redirections and union tags.
package index

import (
	"fmt"

	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
)

// Type is the integer type of an Index.
type Type int8

const (
	Int8 Type = iota
	Uint8
	Int32
	Uint32
	Int64
)

func (t Type) String() string {
	switch t {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Int64:
		return "int64"
	}
	return fmt.Sprintf("index.Type(%d)", int(t))
}

// ItemSize returns the width of one entry in bytes.
func (t Type) ItemSize() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int32, Uint32:
		return 4
	default:
		return 8
	}
}

// FormName returns the short name used in Form JSON ("i8", "u8", "i32", "u32", "i64").
func (t Type) FormName() string {
	switch t {
	case Int8:
		return "i8"
	case Uint8:
		return "u8"
	case Int32:
		return "i32"
	case Uint32:
		return "u32"
	default:
		return "i64"
	}
}

// ParseFormName is the inverse of FormName.
func ParseFormName(name string) (Type, error) {
	switch name {
	case "i8":
		return Int8, nil
	case "u8":
		return Uint8, nil
	case "i32":
		return Int32, nil
	case "u32":
		return Uint32, nil
	case "i64":
		return Int64, nil
	}
	return 0, errors.New(errors.ErrInvalidArgument).
		Op("ParseFormName").
		Message("unrecognized index type %q", name).
		Build()
}

// Index is an immutable view of a contiguous integer buffer.
type Index struct {
	dtype  Type
	buf    *memory.Buffer
	length int
}

// New wraps buf as an Index of type t. The buffer length must be a multiple
// of the item size.
func New(t Type, buf *memory.Buffer) (*Index, error) {
	if buf.Len()%t.ItemSize() != 0 {
		return nil, errors.New(errors.ErrFormMismatch).
			Op("index.New").
			Message("buffer of %d bytes is not a whole number of %s entries", buf.Len(), t).
			Build()
	}
	return &Index{dtype: t, buf: buf, length: buf.Len() / t.ItemSize()}, nil
}

func FromInt8(data []int8) *Index {
	return &Index{dtype: Int8, buf: memory.FromSlice(data), length: len(data)}
}

func FromUint8(data []uint8) *Index {
	return &Index{dtype: Uint8, buf: memory.FromSlice(data), length: len(data)}
}

func FromInt32(data []int32) *Index {
	return &Index{dtype: Int32, buf: memory.FromSlice(data), length: len(data)}
}

func FromUint32(data []uint32) *Index {
	return &Index{dtype: Uint32, buf: memory.FromSlice(data), length: len(data)}
}

// FromInt64 wraps data without copying; the caller must not modify it afterwards.
func FromInt64(data []int64) *Index {
	return &Index{dtype: Int64, buf: memory.FromSlice(data), length: len(data)}
}

// Zeros returns an int64 index of n zeros.
func Zeros(n int) *Index {
	return FromInt64(make([]int64, n))
}

// Arange returns the int64 index 0, 1, ..., n-1.
func Arange(n int) *Index {
	data := make([]int64, n)
	for i := range data {
		data[i] = int64(i)
	}
	return FromInt64(data)
}

// Type returns the integer type.
func (x *Index) Type() Type { return x.dtype }

// Len returns the number of entries.
func (x *Index) Len() int { return x.length }

// Buffer returns the backing buffer view.
func (x *Index) Buffer() *memory.Buffer { return x.buf }

// Get returns entry i widened to int64.
func (x *Index) Get(i int) int64 {
	if i < 0 || i >= x.length {
		panic(fmt.Sprintf("index entry %d out of range for length %d", i, x.length))
	}
	switch x.dtype {
	case Int8:
		return int64(memory.View[int8](x.buf)[i])
	case Uint8:
		return int64(memory.View[uint8](x.buf)[i])
	case Int32:
		return int64(memory.View[int32](x.buf)[i])
	case Uint32:
		return int64(memory.View[uint32](x.buf)[i])
	default:
		return memory.View[int64](x.buf)[i]
	}
}

// Slice returns the entries [start, stop) as a view sharing the buffer.
func (x *Index) Slice(start, stop int) *Index {
	if start < 0 || stop < start || stop > x.length {
		panic(fmt.Sprintf("index slice [%d:%d] out of range for length %d", start, stop, x.length))
	}
	size := x.dtype.ItemSize()
	return &Index{dtype: x.dtype, buf: x.buf.Slice(start*size, (stop-start)*size), length: stop - start}
}

// Int64s returns the entries as int64. For Int64 indexes this is a zero-copy
// view which must not be modified.
func (x *Index) Int64s() []int64 {
	if x.dtype == Int64 {
		return memory.View[int64](x.buf)[:x.length]
	}
	out := make([]int64, x.length)
	for i := range out {
		out[i] = x.Get(i)
	}
	return out
}

// ToInt64 returns a freshly allocated int64 copy of the entries.
func (x *Index) ToInt64() []int64 {
	out := make([]int64, x.length)
	if x.dtype == Int64 {
		copy(out, memory.View[int64](x.buf))
		return out
	}
	for i := range out {
		out[i] = x.Get(i)
	}
	return out
}

// To64 converts the index to an Int64 index, sharing memory when it already is one.
func (x *Index) To64() *Index {
	if x.dtype == Int64 {
		return x
	}
	return FromInt64(x.ToInt64())
}

// Bytes returns the raw little-endian bytes of the index.
func (x *Index) Bytes() []byte {
	return x.buf.Bytes()
}

// Equal reports whether two indexes hold the same values (types may differ).
func (x *Index) Equal(other *Index) bool {
	if x.length != other.length {
		return false
	}
	for i := 0; i < x.length; i++ {
		if x.Get(i) != other.Get(i) {
			return false
		}
	}
	return true
}

// Min and Max return the extreme values; both are 0 for an empty index.
func (x *Index) Min() int64 {
	if x.length == 0 {
		return 0
	}
	m := x.Get(0)
	for i := 1; i < x.length; i++ {
		if v := x.Get(i); v < m {
			m = v
		}
	}
	return m
}

func (x *Index) Max() int64 {
	if x.length == 0 {
		return 0
	}
	m := x.Get(0)
	for i := 1; i < x.length; i++ {
		if v := x.Get(i); v > m {
			m = v
		}
	}
	return m
}

func (x *Index) String() string {
	const limit = 10
	vals := make([]int64, 0, limit)
	for i := 0; i < x.length && i < limit; i++ {
		vals = append(vals, x.Get(i))
	}
	suffix := ""
	if x.length > limit {
		suffix = " ..."
	}
	return fmt.Sprintf("Index%s%v%s", x.dtype.FormName(), vals, suffix)
}
