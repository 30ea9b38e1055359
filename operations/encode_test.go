package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

func TestDictionaryEncode(t *testing.T) {
	got, err := DictionaryEncode(build(t, L("a", "b", "a", nil)))
	require.NoError(t, err)
	requireValues(t, L("a", "b", "a", nil), got)

	encoded, ok := got.(*layout.IndexedOptionArray)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, []int64{0, 1, 0, -1}, encoded.Index().Int64s())
	assert.Equal(t, 2, encoded.Content().Len())
	assert.Equal(t, CategoricalKey, encoded.Parameters().String(types.ArrayKey))
}

func TestDictionaryEncode_Nested(t *testing.T) {
	got, err := DictionaryEncode(build(t, L(L(1, 2, 1), L(2))))
	require.NoError(t, err)
	requireValues(t, L(L(1, 2, 1), L(2)), got)

	list, ok := got.(*layout.ListOffsetArray)
	require.True(t, ok, "got %T", got)
	encoded, ok := list.Content().(*layout.IndexedArray)
	require.True(t, ok, "got %T", list.Content())
	assert.Equal(t, []int64{0, 1, 0, 1}, encoded.Index().Int64s())
	assert.Equal(t, 2, encoded.Content().Len())
}

func TestRunLengths(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"flat", L(1, 1, 2, 2, 2, 1), L(2, 3, 1)},
		{"strings", L("a", "a", "b"), L(2, 1)},
		{"missing", L(1, nil, nil, 1), L(1, 2, 1)},
		{"lists", L(L(1, 1, 2), L(), L(3, 3)), L(L(2, 1), L(), L(2))},
		{"empty", L(), L()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RunLengths(build(t, tt.input))
			require.NoError(t, err)
			requireValues(t, tt.want, got)
		})
	}

	fieldless, err := layout.NewRecordArray(nil, nil, 2, types.Parameters{})
	require.NoError(t, err)
	_, err = RunLengths(fieldless)
	assert.True(t, errors.Is(err, errors.ErrType), err)

	_, err = DictionaryEncode(fieldless)
	assert.True(t, errors.Is(err, errors.ErrType), err)
}
