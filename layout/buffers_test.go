package layout

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
)

func bufferKeys(container map[string][]byte) []string {
	keys := make([]string, 0, len(container))
	for k := range container {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestToBuffers_Keys(t *testing.T) {
	arr := jaggedSample(t)
	form, length, container, err := ToBuffers(arr)
	require.NoError(t, err)
	assert.Equal(t, 3, length)
	assert.Equal(t, "node0", form.FormKey())
	assert.Equal(t, []string{"node0-offsets", "node1-index", "node2-data"}, bufferKeys(container))
	assert.Len(t, container["node0-offsets"], 4*8)
	assert.Len(t, container["node2-data"], 5*8)
}

func TestBuffersRoundTrip(t *testing.T) {
	content := NewNumpyInts(1, 2, 3, 4, 5)
	listArray, err := NewListArray(index.FromInt64([]int64{3, 0}), index.FromInt64([]int64{5, 2}), content, emptyParams)
	require.NoError(t, err)
	bytemasked, err := NewByteMaskedArray(index.FromInt8([]int8{1, 0, 1}), content, true, emptyParams)
	require.NoError(t, err)
	bitmasked, err := NewBitMaskedArray(index.FromUint8([]uint8{0b11011}), content, true, 5, true, emptyParams)
	require.NoError(t, err)
	indexed, err := NewIndexedArray(index.FromInt32([]int32{4, 0}), content, emptyParams)
	require.NoError(t, err)
	unmasked, err := NewUnmaskedArray(content, emptyParams)
	require.NoError(t, err)
	sliced, err := GetItemContent(jaggedSample(t), SpanFrom(1))
	require.NoError(t, err)

	arrays := map[string]Content{
		"jagged":     jaggedSample(t),
		"sliced":     sliced,
		"strings":    mustFromIterable(t, L("a", nil, "bcd")),
		"regular":    mustFromIterable(t, [][2]float64{{1, 2}, {3, 4}}),
		"records":    mustFromIterable(t, []map[string]any{{"x": 1, "y": L(1.5)}, {"x": 2, "y": L()}}),
		"tuples":     mustFromIterable(t, []Tuple{{1, "a"}}),
		"union":      mustFromIterable(t, L(1, "two", L(3), nil)),
		"empty":      mustFromIterable(t, []int{}),
		"list array": listArray,
		"bytemasked": bytemasked,
		"bitmasked":  bitmasked,
		"indexed":    indexed,
		"unmasked":   unmasked,
		"multidim":   mustNumpy(t, []int{2, 3}),
	}
	for name, arr := range arrays {
		t.Run(name, func(t *testing.T) {
			form, length, container, err := ToBuffers(arr)
			require.NoError(t, err)

			// the form survives serialization
			data, err := forms.ToJSON(form)
			require.NoError(t, err)
			parsed, err := forms.FromJSON(data)
			require.NoError(t, err)

			back, err := FromBuffers(parsed, length, container)
			require.NoError(t, err)
			require.NoError(t, Validate(back))
			assert.True(t, Equal(arr, back), "%s != %s", Format(arr), Format(back))
			assert.True(t, forms.Equal(arr.Form(), back.Form()))
		})
	}
}

func mustNumpy(t *testing.T, shape []int) Content {
	t.Helper()
	n := 1
	for _, s := range shape {
		n *= s
	}
	values := make([]int64, n)
	for i := range values {
		values[i] = int64(i)
	}
	x, err := NewNumpyArray(NewNumpy(values).Data(), NewNumpy(values).DType(), shape, emptyParams)
	require.NoError(t, err)
	return x
}

func TestFromBuffers_Errors(t *testing.T) {
	form, length, container, err := ToBuffers(jaggedSample(t))
	require.NoError(t, err)

	t.Run("missing buffer", func(t *testing.T) {
		partial := map[string][]byte{}
		for k, v := range container {
			if k != "node2-data" {
				partial[k] = v
			}
		}
		_, err := FromBuffers(form, length, partial)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrFormMismatch), "%v", err)
	})

	t.Run("short buffer", func(t *testing.T) {
		short := map[string][]byte{}
		for k, v := range container {
			short[k] = v
		}
		short["node2-data"] = short["node2-data"][:8]
		_, err := FromBuffers(form, length, short)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrFormMismatch), "%v", err)
	})

	t.Run("length beyond offsets", func(t *testing.T) {
		_, err := FromBuffers(form, length+1, container)
		require.Error(t, err)
	})

	t.Run("negative length", func(t *testing.T) {
		_, err := FromBuffers(form, -1, container)
		assert.True(t, errors.Is(err, errors.ErrInvalidArgument), "%v", err)
	})

	t.Run("form without keys", func(t *testing.T) {
		_, err := FromBuffers(jaggedSample(t).Form(), length, container)
		assert.True(t, errors.Is(err, errors.ErrFormMismatch), "%v", err)
	})

	t.Run("longer buffers are fine", func(t *testing.T) {
		long := map[string][]byte{}
		for k, v := range container {
			long[k] = append(append([]byte{}, v...), make([]byte, 16)...)
		}
		back, err := FromBuffers(form, length, long)
		require.NoError(t, err)
		assert.True(t, Equal(jaggedSample(t), back))
	})
}
