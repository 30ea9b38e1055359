package arrowconv

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/operations"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

func L(items ...any) []any { return items }

func build(t *testing.T, v any) layout.Content {
	t.Helper()
	c, err := layout.FromIterable(v)
	require.NoError(t, err)
	return c
}

func requireSameValues(t *testing.T, want, got layout.Content) {
	t.Helper()
	expected, err := layout.ToList(want)
	require.NoError(t, err)
	actual, err := layout.ToList(got)
	require.NoError(t, err)
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input any
		id    arrow.Type
	}{
		{"ints", L(1, 2, 3), arrow.INT64},
		{"floats with missing", L(1.5, nil, 2.5), arrow.FLOAT64},
		{"bools", L(true, false, true), arrow.BOOL},
		{"jagged", L(L(1, 2, nil), nil, L()), arrow.LIST},
		{"nested", L(L(L(1), L(2, 3)), L()), arrow.LIST},
		{"strings", L("a", "", "xyz", nil), arrow.STRING},
		{"bytes", L([]byte("ab"), []byte("c")), arrow.BINARY},
		{"records", L(map[string]any{"x": 1, "y": L(1.5)}, map[string]any{"x": 2, "y": L()}), arrow.STRUCT},
		{"union", L(1, "a", 2), arrow.DENSE_UNION},
		{"regular", [][2]int{{1, 2}, {3, 4}}, arrow.FIXED_SIZE_LIST},
		{"all missing", L(nil, nil), arrow.NULL},
		{"empty", L(), arrow.NULL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := build(t, tt.input)
			arr, err := ToArrow(c)
			require.NoError(t, err)
			defer arr.Release()

			assert.Equal(t, tt.id, arr.DataType().ID())
			assert.Equal(t, c.Len(), arr.Len())

			want, err := DataType(c.Form())
			require.NoError(t, err)
			assert.True(t, arrow.TypeEqual(want, arr.DataType()), "%s != %s", want, arr.DataType())

			back, err := FromArrow(arr)
			require.NoError(t, err)
			requireSameValues(t, c, back)
		})
	}
}

func TestToArrow_Validity(t *testing.T) {
	arr, err := ToArrow(build(t, L(L(1, 2, nil), nil, L())))
	require.NoError(t, err)
	defer arr.Release()

	list := arr.(*array.List)
	assert.Equal(t, 1, list.NullN())
	assert.True(t, list.IsNull(1))
	values := list.ListValues().(*array.Int64)
	assert.Equal(t, 1, values.NullN())
	assert.True(t, values.IsNull(2))
}

func TestToArrow_SlicedList(t *testing.T) {
	c := build(t, L(L(1, 2), L(3), L(4, 5, 6)))
	tail, err := c.GetItemRange(1, 3, 1)
	require.NoError(t, err)

	arr, err := ToArrow(tail)
	require.NoError(t, err)
	defer arr.Release()

	list := arr.(*array.List)
	assert.Equal(t, []int32{0, 1, 4}, list.Offsets())
	requireSameValues(t, tail, mustFromArrow(t, arr))
}

func TestDictionary(t *testing.T) {
	encoded, err := operations.DictionaryEncode(build(t, L("a", "b", "a", nil)))
	require.NoError(t, err)

	arr, err := ToArrow(encoded)
	require.NoError(t, err)
	defer arr.Release()
	require.Equal(t, arrow.DICTIONARY, arr.DataType().ID())
	dict := arr.(*array.Dictionary)
	assert.Equal(t, 2, dict.Dictionary().Len())
	assert.True(t, dict.IsNull(3))

	back := mustFromArrow(t, arr)
	requireSameValues(t, encoded, back)
	assert.Equal(t, operations.CategoricalKey, back.Parameters().String(types.ArrayKey))
}

func TestFromArrow_Builders(t *testing.T) {
	mem := memory.NewGoAllocator()
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues([]int64{1, 2, 3, 4}, nil)
	b.AppendNull()
	arr := b.NewInt64Array()
	defer arr.Release()

	full := mustFromArrow(t, arr)
	requireSameValues(t, build(t, L(1, 2, 3, 4, nil)), full)

	sliced := array.NewSlice(arr, 2, 5)
	defer sliced.Release()
	requireSameValues(t, build(t, L(3, 4, nil)), mustFromArrow(t, sliced))
}

func TestRecordBatch(t *testing.T) {
	c := build(t, L(
		map[string]any{"id": 1, "name": "a", "hits": L(1, 2)},
		map[string]any{"id": 2, "name": nil, "hits": L()},
	))
	rec, err := ToRecordBatch(c, map[string]string{"source": "test"})
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(3), rec.NumCols())
	assert.Equal(t, int64(2), rec.NumRows())
	assert.Equal(t, "hits", rec.Schema().Field(0).Name)
	assert.True(t, rec.Schema().Field(2).Nullable)
	assert.Equal(t, map[string]string{"source": "test"}, rec.Schema().Metadata().ToMap())

	back, err := FromRecordBatch(rec)
	require.NoError(t, err)
	requireSameValues(t, c, back)

	_, err = ToRecordBatch(build(t, L(1, 2)), nil)
	assert.True(t, errors.Is(err, errors.ErrType), err)
}

func TestToArrow_OptionalUnion(t *testing.T) {
	_, err := ToArrow(build(t, L(1, "a", nil)))
	assert.True(t, errors.Is(err, errors.ErrNotSupported), err)
}

func TestUnionKeepsUnusedBranches(t *testing.T) {
	mixed := build(t, L(1.5, L(1, 2), "a", L(3)))
	tail, err := layout.GetItemContent(mixed, layout.Span(1, 4))
	require.NoError(t, err)
	require.Equal(t, "union[float64, var * int64, string]", tail.Type().String())

	arr, err := ToArrow(tail)
	require.NoError(t, err)
	defer arr.Release()

	back := mustFromArrow(t, arr)
	assert.Equal(t, tail.Type().String(), back.Type().String())
	requireSameValues(t, tail, back)
}

func TestTupleFields(t *testing.T) {
	tuple := build(t, L(layout.Tuple{1, "a"}, layout.Tuple{2, "b"}))
	arr, err := ToArrow(tuple)
	require.NoError(t, err)
	defer arr.Release()

	back := mustFromArrow(t, arr)
	rec, ok := back.(*layout.RecordArray)
	require.True(t, ok, "got %T", back)
	assert.True(t, rec.IsTuple())
	requireSameValues(t, tuple, back)
}

func mustFromArrow(t *testing.T, arr arrow.Array) layout.Content {
	t.Helper()
	c, err := FromArrow(arr)
	require.NoError(t, err)
	return c
}
