package jagged

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrowRoundTrip(t *testing.T) {
	a := mustFromIterable(t, []any{[]any{1, 2, nil}, nil, []any{}})

	arr, err := a.ToArrow()
	require.NoError(t, err)
	defer arr.Release()
	assert.Equal(t, arrow.LIST, arr.DataType().ID())

	b, err := FromArrow(arr, map[string]string{"from": "arrow"})
	require.NoError(t, err)
	if diff := cmp.Diff(toList(t, a), toList(t, b)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "arrow", b.Metadata()["from"])
}

func TestRecordBatchMetadata(t *testing.T) {
	a := mustFromIterable(t, []any{
		map[string]any{"pt": 1.5, "tags": []any{"a"}},
		map[string]any{"pt": 2.5, "tags": []any{}},
	})

	rec, err := a.ToRecordBatch()
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int64(2), rec.NumRows())

	b, err := FromRecordBatch(rec)
	require.NoError(t, err)
	assert.Equal(t, a.Metadata(), b.Metadata())
	if diff := cmp.Diff(toList(t, a), toList(t, b)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	_, err = mustFromIterable(t, []any{1, 2}).ToRecordBatch()
	require.Error(t, err)
	assert.True(t, IsTypeError(err))
}
