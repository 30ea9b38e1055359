package dtype

import (
	"fmt"
	"math"
)

// Of returns the DType matching the dynamic type of a Go scalar.
func Of(v any) (DType, bool) {
	switch v.(type) {
	case bool:
		return Bool, true
	case int8:
		return Int8, true
	case uint8:
		return Uint8, true
	case int16:
		return Int16, true
	case uint16:
		return Uint16, true
	case int32:
		return Int32, true
	case uint32:
		return Uint32, true
	case int64, int:
		return Int64, true
	case uint64, uint:
		return Uint64, true
	case float32:
		return Float32, true
	case float64:
		return Float64, true
	}
	return 0, false
}

// ToFloat64 converts any numeric Go scalar to float64.
func ToFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int8:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	}
	return 0, fmt.Errorf("%T is not a number", v)
}

// ToInt64 converts any integer or bool Go scalar to int64. Floats are
// truncated toward zero.
func ToInt64(v any) (int64, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case uint64:
		return int64(x), nil
	case uint:
		return int64(x), nil
	case float32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	}
	return 0, fmt.Errorf("%T is not a number", v)
}

// ToUint64 converts any numeric Go scalar to uint64.
func ToUint64(v any) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case uint:
		return uint64(x), nil
	case float32:
		return uint64(x), nil
	case float64:
		return uint64(x), nil
	}
	i, err := ToInt64(v)
	return uint64(i), err
}

// ToBool converts a numeric Go scalar to bool (non-zero is true).
func ToBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	f, err := ToFloat64(v)
	if err != nil {
		return false, err
	}
	return f != 0, nil
}

// Cast converts a numeric Go scalar to the Go type used for t.
func Cast(v any, t DType) (any, error) {
	switch t {
	case Bool:
		return ToBool(v)
	case Float32:
		f, err := ToFloat64(v)
		return float32(f), err
	case Float64:
		return ToFloat64(v)
	case Uint64:
		return ToUint64(v)
	}
	i, err := ToInt64(v)
	if err != nil {
		return nil, err
	}
	switch t {
	case Int8:
		return int8(i), nil
	case Uint8:
		return uint8(i), nil
	case Int16:
		return int16(i), nil
	case Uint16:
		return uint16(i), nil
	case Int32:
		return int32(i), nil
	case Uint32:
		return uint32(i), nil
	default:
		return i, nil
	}
}

// IsNaN reports whether v is a floating point NaN.
func IsNaN(v any) bool {
	switch x := v.(type) {
	case float32:
		return math.IsNaN(float64(x))
	case float64:
		return math.IsNaN(x)
	}
	return false
}
