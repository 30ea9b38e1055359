package operations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
)

func TestBinaryArithmetic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(x, y any) (layout.Content, error)
		x, y any
		want any
	}{
		{"add scalar", Add, L(L(1, 2, 3), L(), L(4, 5)), 1, L(L(2, 3, 4), L(), L(5, 6))},
		{"add float scalar", Add, L(1, 2), 0.5, L(1.5, 2.5)},
		{"add jagged", Add, L(L(1, 2), L(3)), L(L(10, 20), L(30)), L(L(11, 22), L(33))},
		{"add broadcast outer", Add, L(L(1, 2), L(3)), L(10, 20), L(L(11, 12), L(23))},
		{"add missing", Add, L(L(1, nil), nil), 1, L(L(2, nil), nil)},
		{"subtract", Subtract, L(5, 7), L(1, 2), L(4, 5)},
		{"multiply", Multiply, L(L(1.5), L(2.0)), 2, L(L(3.0), L(4.0))},
		{"divide", Divide, L(1, 2), 2, L(0.5, 1.0)},
		{"floor divide", FloorDivide, L(-7, 7), 2, L(-4, 3)},
		{"floor divide by zero", FloorDivide, L(7), 0, L(0)},
		{"modulo", Modulo, L(-7, 7), 3, L(2, 1)},
		{"modulo negative divisor", Modulo, L(7), -3, L(-2)},
		{"modulo by zero", Modulo, L(7), 0, L(0)},
		{"power", Power, L(2, 3), 3, L(8, 27)},
		{"power negative exponent", Power, L(1, 2), -1, L(1, 0)},
		{"float power", Power, L(4.0), 0.5, L(2.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := build(t, tt.x)
			y := tt.y
			if list, ok := y.([]any); ok {
				y = build(t, list)
			}
			got, err := tt.fn(x, y)
			require.NoError(t, err)
			requireValues(t, tt.want, got)
		})
	}
}

func TestBinaryResultTypes(t *testing.T) {
	ints := build(t, L(L(1, 2), L(3)))

	sum, err := Add(ints, 1)
	require.NoError(t, err)
	assert.Equal(t, "var * int64", sum.Type().String())

	ratio, err := Divide(ints, 2)
	require.NoError(t, err)
	assert.Equal(t, "var * float64", ratio.Type().String())

	less, err := Less(ints, 2)
	require.NoError(t, err)
	assert.Equal(t, "var * bool", less.Type().String())

	single, err := Add(layout.NewNumpy([]float32{1, 2}), 1)
	require.NoError(t, err)
	assert.Equal(t, "float32", single.Type().String())

	nan, err := Modulo(layout.NewNumpy([]float64{1}), 0)
	require.NoError(t, err)
	v, err := nan.GetItemAt(0)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v.(float64)))
}

func TestComparisons(t *testing.T) {
	x := build(t, L(L(1, 2, 3), L(), L(4, 5)))
	tests := []struct {
		name string
		fn   func(x, y any) (layout.Content, error)
		want any
	}{
		{"equal", Equal, L(L(false, false, true), L(), L(false, false))},
		{"not equal", NotEqual, L(L(true, true, false), L(), L(true, true))},
		{"less", Less, L(L(true, true, false), L(), L(false, false))},
		{"less equal", LessEqual, L(L(true, true, true), L(), L(false, false))},
		{"greater", Greater, L(L(false, false, false), L(), L(true, true))},
		{"greater equal", GreaterEqual, L(L(false, false, true), L(), L(true, true))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn(x, 3)
			require.NoError(t, err)
			requireValues(t, tt.want, got)
		})
	}
}

func TestLogical(t *testing.T) {
	a := build(t, L(true, true, false))
	b := build(t, L(true, false, false))

	and, err := LogicalAnd(a, b)
	require.NoError(t, err)
	requireValues(t, L(true, false, false), and)

	or, err := LogicalOr(a, b)
	require.NoError(t, err)
	requireValues(t, L(true, true, false), or)

	not, err := LogicalNot(a)
	require.NoError(t, err)
	requireValues(t, L(false, false, true), not)
}

func TestUnary(t *testing.T) {
	neg, err := Negate(build(t, L(L(1, -2), L())))
	require.NoError(t, err)
	requireValues(t, L(L(-1, 2), L()), neg)

	abs, err := Absolute(build(t, L(-1.5, 2.0)))
	require.NoError(t, err)
	requireValues(t, L(1.5, 2.0), abs)

	rounded, err := Round(build(t, L(0.5, 1.5, 2.4)))
	require.NoError(t, err)
	requireValues(t, L(0.0, 2.0, 2.0), rounded)

	_, err = Negate(5)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument), err)
}

func TestBinaryByName(t *testing.T) {
	x := build(t, L(L(1, 2), L(3)))

	got, err := Binary("add", x, x)
	require.NoError(t, err)
	requireValues(t, L(L(2, 4), L(6)), got)

	_, err = Binary("hypot", x, x)
	assert.True(t, errors.Is(err, errors.ErrNotSupported), err)

	_, err = Binary("add", x, build(t, L(10, 20)), layout.WithLeftBroadcast(false))
	assert.True(t, errors.Is(err, errors.ErrBroadcast), err)
}

func TestEmptyUnions(t *testing.T) {
	mixed := build(t, L(1.5, L(1, 2)))
	empty, err := layout.GetItemContent(mixed, layout.Span(0, 0))
	require.NoError(t, err)
	out, err := Add(empty, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, "union[float64, var * int64]", out.Type().String())

	nested := build(t, L(L(1.5, L(1)), L()))
	inner, err := layout.GetItemContent(nested, layout.All(), layout.Span(0, 0))
	require.NoError(t, err)
	out, err = Add(inner, 1)
	require.NoError(t, err)
	requireValues(t, L(L(), L()), out)
	assert.Equal(t, "var * union[float64, var * int64]", out.Type().String())
}

func TestElementwiseErrors(t *testing.T) {
	_, err := Add(build(t, L("a", "b")), 1)
	assert.True(t, errors.Is(err, errors.ErrType), err)

	_, err = Add(build(t, L(1, 2)), "x")
	assert.True(t, errors.Is(err, errors.ErrType), err)

	_, err = Add(build(t, L(L(1, 2), L(3))), build(t, L(L(1), L(2))))
	assert.True(t, errors.Is(err, errors.ErrBroadcast), err)
}
