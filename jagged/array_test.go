package jagged

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/go-kit/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/operations"
)

func mustFromIterable(t *testing.T, v any, opts ...Option) *Array {
	t.Helper()
	a, err := FromIterable(v, map[string]string{"name": "test"}, opts...)
	require.NoError(t, err)
	return a
}

func toList(t *testing.T, v any) []any {
	t.Helper()
	a, ok := v.(*Array)
	require.True(t, ok, "expected *Array, got %T", v)
	out, err := a.ToList()
	require.NoError(t, err)
	return out
}

func TestWrapNil(t *testing.T) {
	_, err := Wrap(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNilLayout))

	var jerr *Error
	require.True(t, errors.As(err, &jerr))
	assert.Equal(t, "Wrap", jerr.Op)
}

func TestWrapUnwrap(t *testing.T) {
	root, err := layout.FromIterable([]any{[]any{1.5, 2.5}, []any{}})
	require.NoError(t, err)

	meta := map[string]string{"unit": "GeV"}
	a, err := Wrap(root, meta)
	require.NoError(t, err)
	assert.Same(t, root, Unwrap(a))
	assert.NotEqual(t, uuid.Nil, a.ID())
	assert.Equal(t, 2, a.Len())
	assert.Equal(t, "2 * var * float64", a.Type().String())

	meta["unit"] = "MeV"
	assert.Equal(t, "GeV", a.Metadata()["unit"])

	b := a.WithMetadata(map[string]string{"unit": "TeV"})
	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, "TeV", b.Metadata()["unit"])
	assert.Equal(t, "GeV", a.Metadata()["unit"])

	assert.Nil(t, Unwrap(nil))
}

func TestGetAndSlice(t *testing.T) {
	a := mustFromIterable(t, []any{[]any{1, 2, 3, nil}, []any{}, []any{4, 5}})

	v, err := a.Get(layout.At(2), layout.At(1))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	first, err := a.Get(layout.At(0))
	require.NoError(t, err)
	if diff := cmp.Diff([]any{int64(1), int64(2), int64(3), nil}, toList(t, first)); diff != "" {
		t.Fatalf("first row mismatch (-want +got):\n%s", diff)
	}

	s, err := a.Slice(layout.All(), layout.Span(1, 3))
	require.NoError(t, err)
	want := []any{[]any{int64(2), int64(3)}, []any{}, []any{int64(5)}}
	if diff := cmp.Diff(want, toList(t, s)); diff != "" {
		t.Fatalf("slice mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "test", s.Metadata()["name"])
	assert.NotEqual(t, a.ID(), s.ID())
}

func TestGetOutOfRangeLogs(t *testing.T) {
	var buf bytes.Buffer
	a := mustFromIterable(t, []any{1, 2, 3}, WithLogger(log.NewLogfmtLogger(&buf)))
	assert.Contains(t, buf.String(), "level=debug")

	_, err := a.Get(layout.At(3))
	require.Error(t, err)
	assert.True(t, IsIndexError(err))
	assert.Contains(t, buf.String(), "level=warn")
	assert.Contains(t, buf.String(), "op=Get")
}

func TestField(t *testing.T) {
	a := mustFromIterable(t, []any{
		[]any{map[string]any{"x": 1, "y": 1.5}},
		[]any{},
		[]any{map[string]any{"x": 2, "y": 2.5}, map[string]any{"x": 3, "y": 3.5}},
	})
	x, err := a.Field("x")
	require.NoError(t, err)
	want := []any{[]any{int64(1)}, []any{}, []any{int64(2), int64(3)}}
	if diff := cmp.Diff(want, toList(t, x)); diff != "" {
		t.Fatalf("field mismatch (-want +got):\n%s", diff)
	}

	_, err = a.Field("z")
	require.Error(t, err)
}

func TestReductions(t *testing.T) {
	a := mustFromIterable(t, []any{[]any{1, 2, 3}, []any{}, []any{4, 5}})

	total, err := a.Sum()
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)

	sums, err := a.Sum(operations.Axis(1))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(6), int64(0), int64(9)}, toList(t, sums))

	counts, err := a.Count(operations.Axis(-1))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(0), int64(2)}, toList(t, counts))

	argmax, err := a.ArgMax(operations.Axis(-1))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(-1), int64(1)}, toList(t, argmax))

	_, err = a.Sum(operations.Axis(2))
	require.Error(t, err)
	assert.True(t, IsAxisError(err))
}

func TestReductionMaskIdentity(t *testing.T) {
	data := []any{[]any{3, 1}, []any{}}

	plain := mustFromIterable(t, data)
	mins, err := plain.Min(operations.Axis(-1))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(math.MaxInt64)}, toList(t, mins))

	masked := mustFromIterable(t, data, WithMaskIdentity(true))
	mins, err = masked.Min(operations.Axis(-1))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), nil}, toList(t, mins))

	// explicit option wins over the configured default
	mins, err = masked.Min(operations.Axis(-1), operations.MaskIdentity(false))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(math.MaxInt64)}, toList(t, mins))
}

func TestApply(t *testing.T) {
	a := mustFromIterable(t, []any{[]any{1, 2}, []any{}, []any{3}})
	b := mustFromIterable(t, []any{10, 20, 30})

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{int64(11), int64(12)}, []any{}, []any{int64(33)}}, toList(t, sum))

	scaled, err := a.Multiply(2)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{int64(2), int64(4)}, []any{}, []any{int64(6)}}, toList(t, scaled))

	less, err := a.Apply("less", 2)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{true, false}, []any{}, []any{false}}, toList(t, less))

	_, err = a.Apply("no_such_function", 1)
	require.Error(t, err)

	short := mustFromIterable(t, []any{1, 2})
	_, err = a.Add(short)
	require.Error(t, err)
	assert.True(t, IsBroadcastError(err))
}

func TestApplyParallelRecords(t *testing.T) {
	a := mustFromIterable(t, []any{
		map[string]any{"x": 1, "y": 2},
		map[string]any{"x": 3, "y": 4},
	}, WithParallelRecords(true))

	out, err := a.Add(1)
	require.NoError(t, err)
	want := []any{
		map[string]any{"x": int64(2), "y": int64(3)},
		map[string]any{"x": int64(4), "y": int64(5)},
	}
	if diff := cmp.Diff(want, toList(t, out)); diff != "" {
		t.Fatalf("record add mismatch (-want +got):\n%s", diff)
	}
}

func TestStructureOps(t *testing.T) {
	a := mustFromIterable(t, []any{[]any{1, nil}, []any{}, []any{nil, 2}})

	n, err := a.Num(1)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(0), int64(2)}, toList(t, n))

	filled, err := a.FillNone(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{int64(1), int64(0)}, []any{}, []any{int64(0), int64(2)}}, toList(t, filled))

	dropped, err := a.DropNone(1)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{int64(1)}, []any{}, []any{int64(2)}}, toList(t, dropped))

	flat, err := dropped.Flatten(1)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, toList(t, flat))
}

func TestMarshalRoundTrip(t *testing.T) {
	values := []any{
		[]any{map[string]any{"name": "a", "hits": []any{1.5, 2.5}}},
		[]any{},
		[]any{nil, map[string]any{"name": "bc", "hits": []any{}}},
	}
	a := mustFromIterable(t, values, WithCompressionLevel(9))

	blob, err := a.MarshalBinary()
	require.NoError(t, err)

	back, err := Unmarshal(blob)
	require.NoError(t, err)
	assert.True(t, back.Equal(a))
	assert.Equal(t, a.ID(), back.ID())
	assert.Equal(t, a.Type().String(), back.Type().String())
	assert.Equal(t, map[string]string{"name": "test"}, back.Metadata())

	var zero Array
	require.NoError(t, zero.UnmarshalBinary(blob))
	assert.True(t, zero.Equal(a))
}

func TestMarshalFormatVersion(t *testing.T) {
	var buf bytes.Buffer
	values := []any{[]any{1.5, 2.5}, []any{}, []any{3.5}}
	a := mustFromIterable(t, values, WithFormatVersion("1.0"), WithLogger(log.NewLogfmtLogger(&buf)))

	blob, err := a.MarshalBinary()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "version=1.0")
	assert.Contains(t, buf.String(), "features=Basic,ZstdCompression")

	back, err := Unmarshal(blob)
	require.NoError(t, err)
	assert.True(t, back.Equal(a))

	for _, version := range []string{"one", "9.0"} {
		bad := mustFromIterable(t, values, WithFormatVersion(version))
		_, err := bad.MarshalBinary()
		assert.Error(t, err, version)
	}
}

func TestMarshalLargeBuffers(t *testing.T) {
	rows := make([]any, 200)
	for i := range rows {
		row := make([]any, i%7)
		for j := range row {
			row[j] = float64(i) * 0.5
		}
		rows[i] = row
	}
	a := mustFromIterable(t, rows)

	blob, err := a.MarshalBinary()
	require.NoError(t, err)
	back, err := Unmarshal(blob)
	require.NoError(t, err)
	assert.True(t, back.Equal(a))
}

func TestUnmarshalCorrupted(t *testing.T) {
	a := mustFromIterable(t, []any{[]any{1, 2}, []any{3}})
	blob, err := a.MarshalBinary()
	require.NoError(t, err)

	_, err = Unmarshal(blob[:len(blob)/2])
	require.Error(t, err)
	assert.True(t, IsInvalidBlob(err))

	bad := append([]byte(nil), blob...)
	bad[len(bad)/2] ^= 0xff
	_, err = Unmarshal(bad)
	require.Error(t, err)
	assert.True(t, IsInvalidBlob(err))
}

func TestBufferHints(t *testing.T) {
	a := mustFromIterable(t, []any{[]any{1.5}, []any{}})
	form, _, buffers, err := layout.ToBuffers(a.Layout())
	require.NoError(t, err)

	hints := bufferHints(form)
	for key := range buffers {
		h, ok := hints[key]
		require.True(t, ok, "missing hint for %s", key)
		assert.Equal(t, 8, h.width, key)
	}
	assert.True(t, hints[layout.BufferKey("node1", layout.RoleData)].float)
}
