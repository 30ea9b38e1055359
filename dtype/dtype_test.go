package dtype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseString(t *testing.T) {
	for _, dt := range []DType{Bool, Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64} {
		got, err := Parse(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, got)
	}
	_, err := Parse("complex128")
	assert.Error(t, err)
	assert.Equal(t, "DType(99)", DType(99).String())
}

func TestPredicates(t *testing.T) {
	assert.True(t, Int16.IsSigned())
	assert.True(t, Uint16.IsUnsigned())
	assert.False(t, Bool.IsInteger())
	assert.True(t, Float32.IsFloat())
	assert.False(t, Float32.IsInteger())
	assert.Equal(t, 8, Uint64.ItemSize())
	assert.Equal(t, 1, Bool.ItemSize())
}

func TestPromote(t *testing.T) {
	tests := []struct {
		a, b, want DType
	}{
		{Int64, Int64, Int64},
		{Bool, Int8, Int8},
		{Int8, Int32, Int32},
		{Uint8, Uint16, Uint16},
		{Int8, Uint8, Int16},
		{Int16, Uint16, Int32},
		{Int32, Uint32, Int64},
		{Int64, Uint64, Float64},
		{Int64, Uint8, Int64},
		{Float32, Int8, Float32},
		{Float32, Int32, Float64},
		{Float32, Float64, Float64},
		{Int64, Float32, Float64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Promote(tt.a, tt.b), "%s with %s", tt.a, tt.b)
		assert.Equal(t, tt.want, Promote(tt.b, tt.a), "%s with %s", tt.b, tt.a)
	}
}

func TestExtremes(t *testing.T) {
	assert.Equal(t, int8(127), MaxValue(Int8))
	assert.Equal(t, uint32(math.MaxUint32), MaxValue(Uint32))
	assert.Equal(t, int64(math.MinInt64), MinValue(Int64))
	assert.Equal(t, uint8(0), MinValue(Uint8))
	assert.Equal(t, true, MaxValue(Bool))
	assert.True(t, math.IsInf(MaxValue(Float64).(float64), 1))
	assert.True(t, math.IsInf(float64(MinValue(Float32).(float32)), -1))
}

func TestOf(t *testing.T) {
	tests := map[any]DType{
		true:       Bool,
		int8(1):    Int8,
		uint16(1):  Uint16,
		1:          Int64,
		uint(1):    Uint64,
		float32(1): Float32,
		1.5:        Float64,
	}
	for v, want := range tests {
		got, ok := Of(v)
		require.True(t, ok, "%T", v)
		assert.Equal(t, want, got, "%T", v)
	}
	_, ok := Of("x")
	assert.False(t, ok)
}

func TestCast(t *testing.T) {
	tests := []struct {
		in   any
		to   DType
		want any
	}{
		{int64(3), Float64, 3.0},
		{2.9, Int64, int64(2)},
		{-2.9, Int32, int32(-2)},
		{int64(300), Uint8, uint8(44)},
		{true, Int16, int16(1)},
		{0.0, Bool, false},
		{int8(-1), Bool, true},
		{uint64(math.MaxUint64), Uint64, uint64(math.MaxUint64)},
		{1.5, Float32, float32(1.5)},
	}
	for _, tt := range tests {
		got, err := Cast(tt.in, tt.to)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Cast(%v, %s)", tt.in, tt.to)
	}

	_, err := Cast("x", Int64)
	assert.Error(t, err)
	_, err = ToFloat64(struct{}{})
	assert.Error(t, err)
}

func TestIsNaN(t *testing.T) {
	assert.True(t, IsNaN(math.NaN()))
	assert.True(t, IsNaN(float32(math.NaN())))
	assert.False(t, IsNaN(1.0))
	assert.False(t, IsNaN(int64(1)))
}
