package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

func TestConstructors_Invariants(t *testing.T) {
	content := NewNumpyInts(1, 2, 3)
	option, err := NewIndexedOptionArray(index.FromInt64([]int64{0, -1}), content, emptyParams)
	require.NoError(t, err)

	tests := map[string]func() error{
		"empty offsets": func() error {
			_, err := NewListOffsetArray(index.FromInt64(nil), content, emptyParams)
			return err
		},
		"decreasing offsets": func() error {
			_, err := NewListOffsetArray(index.FromInt64([]int64{0, 2, 1}), content, emptyParams)
			return err
		},
		"offsets past content": func() error {
			_, err := NewListOffsetArray(index.FromInt64([]int64{0, 4}), content, emptyParams)
			return err
		},
		"i8 offsets": func() error {
			_, err := NewListOffsetArray(index.FromInt8([]int8{0, 1}), content, emptyParams)
			return err
		},
		"start after stop": func() error {
			_, err := NewListArray(index.FromInt64([]int64{2}), index.FromInt64([]int64{1}), content, emptyParams)
			return err
		},
		"short stops": func() error {
			_, err := NewListArray(index.FromInt64([]int64{0, 1}), index.FromInt64([]int64{1}), content, emptyParams)
			return err
		},
		"negative regular size": func() error {
			_, err := NewRegularArray(content, -1, 0, emptyParams)
			return err
		},
		"indexed out of range": func() error {
			_, err := NewIndexedArray(index.FromInt64([]int64{3}), content, emptyParams)
			return err
		},
		"option of option": func() error {
			_, err := NewIndexedOptionArray(index.FromInt64([]int64{0}), option, emptyParams)
			return err
		},
		"bytemasked too short": func() error {
			_, err := NewByteMaskedArray(index.FromInt8([]int8{1, 1, 1, 1}), content, true, emptyParams)
			return err
		},
		"bitmask too short": func() error {
			_, err := NewBitMaskedArray(index.FromUint8([]uint8{0xff}), NewNumpy(make([]int64, 9)), true, 9, true, emptyParams)
			return err
		},
		"unmasked option": func() error {
			_, err := NewUnmaskedArray(option, emptyParams)
			return err
		},
		"duplicate fields": func() error {
			_, err := NewRecordArray([]Content{content, content}, []string{"a", "a"}, -1, emptyParams)
			return err
		},
		"field count": func() error {
			_, err := NewRecordArray([]Content{content}, []string{"a", "b"}, -1, emptyParams)
			return err
		},
		"short field": func() error {
			_, err := NewRecordArray([]Content{content}, []string{"a"}, 4, emptyParams)
			return err
		},
		"union bad tag": func() error {
			_, err := NewUnionArray(index.FromInt8([]int8{0, 2}), index.FromInt64([]int64{0, 0}), []Content{content, content}, emptyParams)
			return err
		},
		"union bad index": func() error {
			_, err := NewUnionArray(index.FromInt8([]int8{0}), index.FromInt64([]int64{3}), []Content{content}, emptyParams)
			return err
		},
		"nested union": func() error {
			inner, err := NewUnionArray(index.FromInt8([]int8{0}), index.FromInt64([]int64{0}), []Content{content}, emptyParams)
			if err != nil {
				return nil
			}
			_, err = NewUnionArray(index.FromInt8([]int8{0}), index.FromInt64([]int64{0}), []Content{inner}, emptyParams)
			return err
		},
		"numpy short buffer": func() error {
			_, err := NewNumpyArray(content.Data(), dtype.Int64, []int{4}, emptyParams)
			return err
		},
	}
	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			err := build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrFormMismatch), "%v", err)
		})
	}
}

func TestRecordArray_Length(t *testing.T) {
	rec, err := NewRecordArray([]Content{NewNumpyInts(1, 2, 3), NewNumpyInts(1, 2)}, []string{"a", "b"}, -1, emptyParams)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Len())

	empty, err := NewRecordArray(nil, nil, 5, emptyParams)
	require.NoError(t, err)
	assert.Equal(t, 5, empty.Len())
	assert.Equal(t, "()", empty.Type().String())

	c, err := rec.Content("b")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	_, err = rec.Content("c")
	assert.True(t, errors.Is(err, errors.ErrFieldNotFound))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(jaggedSample(t)))

	broken := &ListOffsetArray{offsets: index.FromInt64([]int64{0, 5}), content: NewNumpyInts(1, 2)}
	err := Validate(broken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFormMismatch), "%v", err)

	nested := &RegularArray{content: &IndexedArray{index: index.FromInt64([]int64{7}), content: NewNumpyInts(1)}, size: 1, length: 1}
	err = Validate(nested)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrFormMismatch), "%v", err)
}

func TestSimplifyUnion(t *testing.T) {
	ints := NewNumpyInts(1, 2)
	more := NewNumpyInts(10)

	merged, err := SimplifyUnion(index.FromInt8([]int8{0, 1, 0}), index.FromInt64([]int64{0, 0, 1}), []Content{ints, more}, emptyParams)
	require.NoError(t, err)
	assert.False(t, merged.IsUnion(), "same forms merge into one branch")
	requireValues(t, L(1, 10, 2), merged)

	floats := NewNumpy([]float64{0.5})
	promoted, err := SimplifyUnion(index.FromInt8([]int8{1, 0}), index.FromInt64([]int64{0, 1}), []Content{ints, floats}, emptyParams)
	require.NoError(t, err)
	assert.Equal(t, "float64", promoted.Type().String())
	requireValues(t, L(0.5, 2.0), promoted)

	strs := mustFromIterable(t, []string{"a"})
	mixed, err := SimplifyUnion(index.FromInt8([]int8{1, 0}), index.FromInt64([]int64{0, 1}), []Content{ints, strs}, emptyParams)
	require.NoError(t, err)
	assert.True(t, mixed.IsUnion())
	assert.Equal(t, "union[int64, string]", mixed.Type().String())
	requireValues(t, L("a", 2), mixed)

	option, err := NewIndexedOptionArray(index.FromInt64([]int64{-1, 0}), more, emptyParams)
	require.NoError(t, err)
	lifted, err := SimplifyUnion(index.FromInt8([]int8{0, 1, 1}), index.FromInt64([]int64{0, 0, 1}), []Content{strs, option}, emptyParams)
	require.NoError(t, err)
	assert.True(t, lifted.IsOption(), "options move outside the union")
	requireValues(t, L("a", nil, 10), lifted)

	none, err := NewIndexedOptionArray(index.FromInt64([]int64{-1, -1}), more, emptyParams)
	require.NoError(t, err)
	allMissing, err := SimplifyUnion(index.FromInt8([]int8{0, 0}), index.FromInt64([]int64{0, 1}), []Content{none}, emptyParams)
	require.NoError(t, err)
	assert.Equal(t, "?int64", allMissing.Type().String())
	requireValues(t, L(nil, nil), allMissing)
}

func TestSimplifiedOptions(t *testing.T) {
	content := NewNumpyInts(1, 2)
	inner, err := NewIndexedOptionArray(index.FromInt64([]int64{0, -1, 1}), content, emptyParams)
	require.NoError(t, err)

	outer, err := NewIndexedOptionArraySimplified(index.FromInt64([]int64{2, -1, 0, 1}), inner, emptyParams)
	require.NoError(t, err)
	opt, ok := outer.(*IndexedOptionArray)
	require.True(t, ok)
	assert.True(t, opt.Content().IsNumpy())
	requireValues(t, L(2, nil, 1, nil), outer)

	same, err := NewUnmaskedArraySimplified(inner, emptyParams)
	require.NoError(t, err)
	assert.Same(t, inner, same)

	indexed, err := NewIndexedArraySimplified(index.FromInt64([]int64{1, 0}), inner, emptyParams)
	require.NoError(t, err)
	assert.True(t, indexed.IsOption())
	requireValues(t, L(nil, 1), indexed)
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name   string
		arrays []any
		typ    string
		want   any
	}{
		{"promote", []any{[]int{1, 2}, []float64{3.5}}, "float64", L(1.0, 2.0, 3.5)},
		{"lists", []any{L(L(1), L()), L(L(2, 3))}, "var * int64", L(L(1), L(), L(2, 3))},
		{"options", []any{L(1, nil), L(nil, 2)}, "?int64", L(1, nil, nil, 2)},
		{"records", []any{[]map[string]int{{"x": 1}}, []map[string]int{{"x": 2}}}, "{x: int64}", L(map[string]any{"x": 1}, map[string]any{"x": 2})},
		{"union", []any{[]int{1}, []string{"a"}}, "union[int64, string]", L(1, "a")},
		{"unknown skipped", []any{[]int{}, []int{7}}, "int64", L(7)},
		{"lists promote", []any{L(L(1), L(2)), L(L(1.5))}, "var * float64", L(L(1.0), L(2.0), L(1.5))},
		{"option promotes", []any{[]int{1}, L(2.5, nil)}, "?float64", L(1.0, 2.5, nil)},
		{"records promote", []any{
			[]map[string]any{{"x": 1}},
			[]map[string]any{{"x": 2.5}},
		}, "{x: float64}", L(map[string]any{"x": 1.0}, map[string]any{"x": 2.5})},
		{"nested options", []any{L(L(1, nil)), L(L(2.5))}, "var * ?float64", L(L(1.0, nil), L(2.5))},
		{"union keeps promotable branches together", []any{L(1, "a"), []float64{2.5}}, "union[float64, string]", L(1.0, "a", 2.5)},
		{"different fields", []any{
			[]map[string]any{{"x": 1}},
			[]map[string]any{{"y": 1}},
		}, "union[{x: int64}, {y: int64}]", L(map[string]any{"x": 1}, map[string]any{"y": 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arrays := make([]Content, len(tt.arrays))
			for i, a := range tt.arrays {
				arrays[i] = mustFromIterable(t, a)
			}
			out, err := Merge(arrays...)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, out.Type().String())
			requireValues(t, tt.want, out)
			assert.NoError(t, Validate(out))
		})
	}

	_, err := Merge()
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestApply(t *testing.T) {
	arr := jaggedSample(t)
	var depths []int
	double := VisitorFunc(func(c Content, ctx *ApplyContext) (Content, error) {
		x, ok := c.(*NumpyArray)
		if !ok {
			return nil, nil
		}
		depths = append(depths, ctx.Depth)
		values, err := NumpyValues[int64](x)
		if err != nil {
			return nil, err
		}
		out := make([]int64, x.Len())
		for i := range out {
			out[i] = values[i] * 2
		}
		return NewNumpy(out), nil
	})
	out, err := Apply(arr, double)
	require.NoError(t, err)
	requireValues(t, L(L(2, 4, 6, nil), L(), L(8, 10)), out)
	assert.Equal(t, []int{2}, depths)

	// a visitor can post-process the default rebuild
	var wrap VisitorFunc = func(c Content, ctx *ApplyContext) (Content, error) {
		if _, ok := c.(*ListOffsetArray); !ok {
			return nil, nil
		}
		rebuilt, err := ctx.Continue()
		if err != nil {
			return nil, err
		}
		return WithParameters(rebuilt, types.NewParameters("kind", "wrapped")), nil
	}
	out, err = Apply(arr, wrap)
	require.NoError(t, err)
	assert.Equal(t, "wrapped", out.Parameters().String("kind"))
	requireValues(t, L(L(1, 2, 3, nil), L(), L(4, 5)), out)

	walked, err := Apply(arr, BaseVisitor{}, WithReturnArray(false))
	require.NoError(t, err)
	assert.Nil(t, walked)
}

func TestApply_Trim(t *testing.T) {
	arr := mustFromIterable(t, L(L(1, 2, 3), L(4), L(5, 6)))
	sliced, err := GetItemContent(arr, Span(1, 2))
	require.NoError(t, err)

	type leaf struct {
		length  int
		trimmed bool
	}
	collect := func(opts ...ApplyOption) leaf {
		var got leaf
		_, err := Apply(sliced, VisitorFunc(func(c Content, ctx *ApplyContext) (Content, error) {
			if x, ok := c.(*NumpyArray); ok {
				got = leaf{length: x.Len(), trimmed: ctx.Trimmed}
			}
			return nil, nil
		}), opts...)
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, leaf{length: 1, trimmed: true}, collect())
	assert.Equal(t, leaf{length: 6, trimmed: false}, collect(WithTrim(false)))
}

func TestApply_ListArrayEmptyRowsOutOfRange(t *testing.T) {
	tests := map[string]struct {
		starts, stops []int64
		want          []any
	}{
		"empty row past the content": {
			starts: []int64{10, 0},
			stops:  []int64{10, 2},
			want:   L(L(), L(1, 2)),
		},
		"only empty rows": {
			starts: []int64{99, 7},
			stops:  []int64{99, 7},
			want:   L(L(), L()),
		},
		"overlapping rows": {
			starts: []int64{2, 99, 0},
			stops:  []int64{3, 99, 2},
			want:   L(L(3), L(), L(1, 2)),
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			list, err := NewListArray(index.FromInt64(tt.starts), index.FromInt64(tt.stops), NewNumpyInts(1, 2, 3), emptyParams)
			require.NoError(t, err)

			out, err := Apply(list, BaseVisitor{})
			require.NoError(t, err)
			requireValues(t, tt.want, out)

			compact, err := ToListOffsetArray64(list)
			require.NoError(t, err)
			requireValues(t, tt.want, compact)
		})
	}
}

func TestAxis(t *testing.T) {
	arr := jaggedSample(t)

	pos, err := NormalizeAxis(arr, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	pos, err = NormalizeAxis(arr, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	for _, axis := range []int{2, -3} {
		_, err = NormalizeAxis(arr, axis)
		assert.True(t, errors.Is(err, errors.ErrAxis), "axis %d: %v", axis, err)
	}

	mixed := mustFromIterable(t, []map[string]any{{"x": 1, "y": L(1, 2)}})
	_, ok, err := MaybePosAxis(mixed, -1)
	require.NoError(t, err)
	assert.False(t, ok, "records of different depths cannot resolve a negative axis")
	_, err = NormalizeAxis(mixed, -1)
	assert.True(t, errors.Is(err, errors.ErrAxis))

	minDepth, maxDepth := mixed.MinMaxDepth()
	assert.Equal(t, 1, minDepth)
	assert.Equal(t, 2, maxDepth)
	assert.Equal(t, 1, mixed.PurelistDepth())
	assert.Equal(t, 2, arr.PurelistDepth())
}

func TestRegularConversions(t *testing.T) {
	lists := mustFromIterable(t, [][]int{{1, 2}, {3, 4}, {5, 6}})
	reg, err := ToRegularArray(lists)
	require.NoError(t, err)
	assert.Equal(t, "2 * int64", reg.Type().String())
	requireValues(t, [][]int{{1, 2}, {3, 4}, {5, 6}}, reg)

	np, err := ToNumpyArray(reg)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, np.Shape())

	_, err = ToRegularArray(jaggedSample(t))
	assert.True(t, errors.Is(err, errors.ErrType), "%v", err)

	_, err = ToNumpyArray(jaggedSample(t))
	assert.True(t, errors.Is(err, errors.ErrType), "%v", err)
}
