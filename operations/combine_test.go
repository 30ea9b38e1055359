package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

func rec(kv ...any) map[string]any {
	out := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i].(string)] = kv[i+1]
	}
	return out
}

func TestZip(t *testing.T) {
	tests := []struct {
		name   string
		arrays map[string]any
		opts   []ZipOption
		typ    string
		want   any
	}{
		{
			name:   "same structure",
			arrays: map[string]any{"x": L(L(1, 2), L(3)), "y": L(L(1.5, 2.5), L(3.5))},
			typ:    "var * {x: int64, y: float64}",
			want:   L(L(rec("x", 1, "y", 1.5), rec("x", 2, "y", 2.5)), L(rec("x", 3, "y", 3.5))),
		},
		{
			name:   "broadcast into lists",
			arrays: map[string]any{"x": L(L(1, 2), L(3)), "y": L(10, 20)},
			typ:    "var * {x: int64, y: int64}",
			want:   L(L(rec("x", 1, "y", 10), rec("x", 2, "y", 10)), L(rec("x", 3, "y", 20))),
		},
		{
			name:   "depth limit",
			arrays: map[string]any{"x": L(L(1, 2), L(3)), "y": L(L(4), L(5, 6))},
			opts:   []ZipOption{DepthLimit(1)},
			typ:    "{x: var * int64, y: var * int64}",
			want:   L(rec("x", L(1, 2), "y", L(4)), rec("x", L(3), "y", L(5, 6))),
		},
		{
			name:   "strings stay whole",
			arrays: map[string]any{"name": L("ab", "c"), "n": L(1, 2)},
			typ:    "{n: int64, name: string}",
			want:   L(rec("n", 1, "name", "ab"), rec("n", 2, "name", "c")),
		},
		{
			name:   "missing values",
			arrays: map[string]any{"x": L(L(1, nil), nil), "y": L(L(1, 2), L())},
			typ:    "option[var * {x: ?int64, y: int64}]",
			want:   L(L(rec("x", 1, "y", 1), rec("x", nil, "y", 2)), nil),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arrays := make(map[string]layout.Content, len(tt.arrays))
			for name, v := range tt.arrays {
				arrays[name] = build(t, v)
			}
			got, err := Zip(arrays, tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, got.Type().String())
			requireValues(t, tt.want, got)
		})
	}
}

func TestZip_Mismatch(t *testing.T) {
	_, err := Zip(map[string]layout.Content{"x": build(t, L(L(1, 2), L(3))), "y": build(t, L(L(4), L(5, 6)))})
	assert.True(t, errors.Is(err, errors.ErrBroadcast), err)

	_, err = Zip(nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument), err)
}

func TestZipTuple(t *testing.T) {
	got, err := ZipTuple([]layout.Content{build(t, L(1, 2)), build(t, L("a", "b"))})
	require.NoError(t, err)
	assert.Equal(t, "(int64, string)", got.Type().String())

	second, err := got.GetItemField("1")
	require.NoError(t, err)
	requireValues(t, L("a", "b"), second)
}

func TestZip_RecordName(t *testing.T) {
	got, err := Zip(map[string]layout.Content{"x": build(t, L(1, 2))}, WithRecordName("point"))
	require.NoError(t, err)
	record, ok := got.(*layout.RecordArray)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, "point", record.Parameters().String(types.RecordKey))
	assert.Equal(t, "point[x: int64]", got.Type().String())
}

func TestWhere(t *testing.T) {
	tests := []struct {
		name      string
		condition any
		x, y      any
		typ       string
		want      any
	}{
		{"arrays", L(true, false, true), L(1, 2, 3), L(10, 20, 30), "int64", L(1, 20, 3)},
		{"scalars", L(true, false), 1, 0, "int64", L(1, 0)},
		{"numeric condition", L(0, 2), L(1, 2), L(10, 20), "int64", L(10, 2)},
		{"promotes", L(true, false), L(1, 2), L(0.5, 1.5), "float64", L(1.0, 1.5)},
		{"jagged", L(L(true, false), L()), 0, L(L(1, 2), L()), "var * int64", L(L(0, 2), L())},
		{"union", L(true, false), L(1, 2), L("a", "b"), "union[int64, string]", L(1, "b")},
		{"missing condition", L(true, nil), 1, 2, "?int64", L(1, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			operand := func(v any) any {
				if list, ok := v.([]any); ok {
					return build(t, list)
				}
				return v
			}
			got, err := Where(build(t, tt.condition), operand(tt.x), operand(tt.y))
			require.NoError(t, err)
			assert.Equal(t, tt.typ, got.Type().String())
			requireValues(t, tt.want, got)
		})
	}
}

func TestWhere_Errors(t *testing.T) {
	_, err := Where(build(t, L("yes", "no")), 1, 2)
	assert.True(t, errors.Is(err, errors.ErrType), err)

	_, err = Where(build(t, L(true, false)), build(t, L(1, 2, 3)), 2)
	assert.True(t, errors.Is(err, errors.ErrBroadcast), err)
}

func TestMergeUnionOfRecords(t *testing.T) {
	tests := []struct {
		name  string
		input any
		axis  int
		typ   string
		want  any
	}{
		{
			name:  "disjoint fields",
			input: L(rec("x", 1), rec("y", "a"), rec("x", 3)),
			typ:   "{x: ?int64, y: ?string}",
			want:  L(rec("x", 1, "y", nil), rec("x", nil, "y", "a"), rec("x", 3, "y", nil)),
		},
		{
			name:  "shared field",
			input: L(rec("x", 1, "y", 1.5), rec("x", 2, "z", true)),
			typ:   "{x: int64, y: ?float64, z: ?bool}",
			want:  L(rec("x", 1, "y", 1.5, "z", nil), rec("x", 2, "y", nil, "z", true)),
		},
		{
			name:  "inside lists",
			input: L(L(rec("x", 1), rec("y", "a")), L()),
			axis:  1,
			typ:   "var * {x: ?int64, y: ?string}",
			want:  L(L(rec("x", 1, "y", nil), rec("x", nil, "y", "a")), L()),
		},
		{
			name:  "missing records",
			input: L(rec("x", 1), nil, rec("y", 2)),
			typ:   "?{x: ?int64, y: ?int64}",
			want:  L(rec("x", 1, "y", nil), nil, rec("x", nil, "y", 2)),
		},
		{
			name:  "not a union",
			input: L(rec("x", 1)),
			typ:   "{x: int64}",
			want:  L(rec("x", 1)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergeUnionOfRecords(build(t, tt.input), tt.axis)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, got.Type().String())
			requireValues(t, tt.want, got)
		})
	}
}

func TestMergeUnionOfRecords_FieldOnlyInUnusedBranch(t *testing.T) {
	xs, err := layout.NewRecordArray([]layout.Content{layout.NewNumpyInts(1)}, []string{"x"}, 1, emptyParams)
	require.NoError(t, err)
	ys, err := layout.NewRecordArray([]layout.Content{layout.NewNumpyInts(7, 8)}, []string{"y"}, 2, emptyParams)
	require.NoError(t, err)
	union, err := layout.NewUnionArray(index.FromInt8([]int8{1, 1}), index.FromInt64([]int64{0, 1}), []layout.Content{xs, ys}, emptyParams)
	require.NoError(t, err)

	got, err := MergeUnionOfRecords(union, 0)
	require.NoError(t, err)
	assert.Equal(t, "{x: ?int64, y: int64}", got.Type().String())
	requireValues(t, L(rec("x", nil, "y", 7), rec("x", nil, "y", 8)), got)
}

func TestMergeUnionOfRecords_Errors(t *testing.T) {
	_, err := MergeUnionOfRecords(build(t, L(1, "a")), 0)
	assert.True(t, errors.Is(err, errors.ErrType), err)

	_, err = MergeUnionOfRecords(build(t, L(rec("x", 1))), 1)
	assert.True(t, errors.Is(err, errors.ErrAxis), err)
}

func TestIsCategorical(t *testing.T) {
	encoded, err := DictionaryEncode(build(t, L("a", "b", "a")))
	require.NoError(t, err)
	assert.True(t, IsCategorical(encoded))

	nested, err := DictionaryEncode(build(t, L(L(1, 2, 1), L(2))))
	require.NoError(t, err)
	assert.True(t, IsCategorical(nested))

	assert.False(t, IsCategorical(build(t, L("a", "b", "a"))))
	assert.False(t, IsCategorical(build(t, L(L(1, 2), L()))))
	assert.False(t, IsCategorical(build(t, L(rec("x", 1)))))
}
