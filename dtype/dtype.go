// Package dtype enumerates the primitive element types a leaf buffer can hold.
package dtype

import (
	"fmt"
	"math"
)

// DType identifies the element type of a NumpyArray buffer.
type DType int

const (
	Bool DType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
)

var names = [...]string{
	Bool:    "bool",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
}

var itemSizes = [...]int{
	Bool:    1,
	Int8:    1,
	Uint8:   1,
	Int16:   2,
	Uint16:  2,
	Int32:   4,
	Uint32:  4,
	Int64:   8,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
}

func (t DType) String() string {
	if t < Bool || t > Float64 {
		return fmt.Sprintf("DType(%d)", int(t))
	}
	return names[t]
}

// ItemSize returns the size in bytes of one element.
func (t DType) ItemSize() int { return itemSizes[t] }

func (t DType) IsBool() bool { return t == Bool }

func (t DType) IsInteger() bool { return t >= Int8 && t <= Uint64 }

func (t DType) IsSigned() bool {
	switch t {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

func (t DType) IsUnsigned() bool { return t.IsInteger() && !t.IsSigned() }

func (t DType) IsFloat() bool { return t == Float32 || t == Float64 }

// Parse returns the DType with the given name.
func Parse(name string) (DType, error) {
	for i, n := range names {
		if n == name {
			return DType(i), nil
		}
	}
	return 0, fmt.Errorf("unrecognized primitive type %q", name)
}

// Promote returns the type two operands of an arithmetic operation are
// converted to. Signed and unsigned integers of the same width promote to the
// next wider signed type; int64 with uint64 promotes to float64.
func Promote(a, b DType) DType {
	if a == b {
		return a
	}
	if a.IsFloat() || b.IsFloat() {
		if a == Float64 || b == Float64 {
			return Float64
		}
		// float32 mixed with an integer of 4 bytes or more loses precision.
		other := a
		if a == Float32 {
			other = b
		}
		if other.ItemSize() >= 4 {
			return Float64
		}
		return Float32
	}
	if a == Bool {
		return b
	}
	if b == Bool {
		return a
	}
	if a.IsSigned() == b.IsSigned() {
		if a.ItemSize() >= b.ItemSize() {
			return a
		}
		return b
	}
	signed, unsigned := a, b
	if b.IsSigned() {
		signed, unsigned = b, a
	}
	if signed.ItemSize() > unsigned.ItemSize() {
		return signed
	}
	switch unsigned.ItemSize() {
	case 1:
		return Int16
	case 2:
		return Int32
	case 4:
		return Int64
	}
	return Float64
}

// MaxValue returns the largest value representable by t, as the Go type that
// NumpyArray.Value returns for t. Floats return +Inf.
func MaxValue(t DType) any {
	switch t {
	case Bool:
		return true
	case Int8:
		return int8(math.MaxInt8)
	case Uint8:
		return uint8(math.MaxUint8)
	case Int16:
		return int16(math.MaxInt16)
	case Uint16:
		return uint16(math.MaxUint16)
	case Int32:
		return int32(math.MaxInt32)
	case Uint32:
		return uint32(math.MaxUint32)
	case Int64:
		return int64(math.MaxInt64)
	case Uint64:
		return uint64(math.MaxUint64)
	case Float32:
		return float32(math.Inf(1))
	default:
		return math.Inf(1)
	}
}

// MinValue returns the smallest value representable by t. Floats return -Inf.
func MinValue(t DType) any {
	switch t {
	case Bool:
		return false
	case Int8:
		return int8(math.MinInt8)
	case Uint8:
		return uint8(0)
	case Int16:
		return int16(math.MinInt16)
	case Uint16:
		return uint16(0)
	case Int32:
		return int32(math.MinInt32)
	case Uint32:
		return uint32(0)
	case Int64:
		return int64(math.MinInt64)
	case Uint64:
		return uint64(0)
	case Float32:
		return float32(math.Inf(-1))
	default:
		return math.Inf(-1)
	}
}
