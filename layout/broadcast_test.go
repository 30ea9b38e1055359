package layout

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/storage/errors"
)

// addInts sums int64 leaves and int scalars once every array input is a
// one-dimensional NumpyArray.
func addInts(inputs []any, _ *BroadcastContext) ([]Content, error) {
	length := -1
	for _, in := range inputs {
		switch x := in.(type) {
		case *NumpyArray:
			if len(x.Shape()) != 1 {
				return nil, nil
			}
			length = x.Len()
		case Content:
			return nil, nil
		}
	}
	out := make([]int64, length)
	for _, in := range inputs {
		for i := range out {
			switch x := in.(type) {
			case *NumpyArray:
				out[i] += x.Value(i).(int64)
			case int:
				out[i] += int64(x)
			}
		}
	}
	return []Content{NewNumpy(out)}, nil
}

func broadcastAdd(t *testing.T, inputs []any, opts ...BroadcastOption) (Content, error) {
	t.Helper()
	outs, err := BroadcastAndApply(inputs, addInts, opts...)
	if err != nil {
		return nil, err
	}
	require.Len(t, outs, 1)
	return outs[0], nil
}

func TestBroadcastAndApply(t *testing.T) {
	jagged := mustFromIterable(t, L(L(1, 2, 3), L(), L(4, 5)))
	tests := []struct {
		name   string
		inputs []any
		want   any
	}{
		{"same structure", []any{jagged, jagged}, L(L(2, 4, 6), L(), L(8, 10))},
		{"scalar", []any{jagged, 100}, L(L(101, 102, 103), L(), L(104, 105))},
		{"left broadcast", []any{jagged, mustFromIterable(t, []int{10, 20, 30})}, L(L(11, 12, 13), L(), L(34, 35))},
		{"missing values", []any{mustFromIterable(t, L(L(1, nil), nil, L(2))), 1}, L(L(2, nil), nil, L(3))},
		{"flat", []any{mustFromIterable(t, []int{1, 2}), mustFromIterable(t, []int{3, 4})}, L(4, 6)},
		{"regular right aligned", []any{
			mustFromIterable(t, [][2]int{{1, 2}, {3, 4}}),
			mustFromIterable(t, []int{10, 20}),
		}, L(L(11, 22), L(13, 24))},
		{"records", []any{mustFromIterable(t, []map[string]any{{"x": 1, "y": L(2)}}), 1},
			[]map[string]any{{"x": 2, "y": L(3)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := broadcastAdd(t, tt.inputs)
			require.NoError(t, err)
			requireValues(t, tt.want, out)
		})
	}
}

func TestBroadcastAndApply_Options(t *testing.T) {
	grid := mustFromIterable(t, [][2]int{{1, 2}, {3, 4}})
	row := mustFromIterable(t, []int{10, 20})

	out, err := broadcastAdd(t, []any{grid, row}, WithRightBroadcast(false))
	require.NoError(t, err)
	requireValues(t, L(L(11, 12), L(23, 24)), out)

	jagged := mustFromIterable(t, L(L(1, 2), L(3)))
	_, err = broadcastAdd(t, []any{jagged, row}, WithLeftBroadcast(false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBroadcast), "%v", err)

	recs := mustFromIterable(t, []map[string]any{{"x": 1}})
	_, err = broadcastAdd(t, []any{recs, 1}, WithAllowRecords(false))
	require.Error(t, err)
}

func TestBroadcastAndApply_Parallel(t *testing.T) {
	recs := mustFromIterable(t, []map[string]any{
		{"a": 1, "b": L(1, 2), "c": 3, "d": L()},
		{"a": 4, "b": L(), "c": 5, "d": L(6)},
	})
	var calls atomic.Int64
	counted := func(inputs []any, ctx *BroadcastContext) ([]Content, error) {
		calls.Add(1)
		return addInts(inputs, ctx)
	}
	outs, err := BroadcastAndApply([]any{recs, 10}, counted, WithParallel(true))
	require.NoError(t, err)
	requireValues(t, []map[string]any{
		{"a": 11, "b": L(11, 12), "c": 13, "d": L()},
		{"a": 14, "b": L(), "c": 15, "d": L(16)},
	}, outs[0])
	assert.Positive(t, calls.Load())
}

func TestBroadcastAndApply_ParallelBounded(t *testing.T) {
	row := map[string]any{}
	for i := 0; i < 64; i++ {
		row[fmt.Sprintf("f%02d", i)] = i
	}
	recs := mustFromIterable(t, []map[string]any{row})

	var running, peak atomic.Int64
	tracked := func(inputs []any, ctx *BroadcastContext) ([]Content, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		runtime.Gosched()
		return addInts(inputs, ctx)
	}
	outs, err := BroadcastAndApply([]any{recs, 1}, tracked, WithParallel(true))
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, 1, outs[0].Len())
	assert.LessOrEqual(t, peak.Load(), int64(runtime.GOMAXPROCS(0))+1)
}

func TestBroadcastAndApply_Errors(t *testing.T) {
	jagged := mustFromIterable(t, L(L(1, 2, 3), L(), L(4, 5)))

	_, err := broadcastAdd(t, []any{jagged, mustFromIterable(t, []int{1, 2})})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBroadcast), "%v", err)

	_, err = broadcastAdd(t, []any{jagged, mustFromIterable(t, L(L(1), L(), L(4, 5)))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBroadcast), "%v", err)

	_, err = broadcastAdd(t, []any{1, 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument), "%v", err)
}
