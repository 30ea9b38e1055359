package operations

import (
	"bytes"

	"github.com/cespare/xxhash/v2"

	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// CategoricalKey is the __array__ value marking a dictionary-encoded array.
const CategoricalKey = "categorical"

// keyer exposes the elements of a primitive or string array as byte keys.
// Elements are equal exactly when their keys are.
type keyer struct {
	data    []byte
	width   int     // bytes per element of a primitive leaf
	offsets []int64 // string boundaries, nil for primitive leaves
	index   []int64 // positions into the leaf; -1 is missing
	leaf    layout.Content
}

// newKeyer unwraps option and indexed layers above a primitive or string
// leaf. It returns false when c has no such leaf at its own level.
func newKeyer(c layout.Content) (*keyer, bool, error) {
	positions := make([]int64, c.Len())
	for i := range positions {
		positions[i] = int64(i)
	}
	for c.IsOption() || c.IsIndexed() {
		var idx []int64
		var next layout.Content
		if x, ok := c.(*layout.IndexedArray); ok {
			idx, next = x.Index().Int64s(), x.Content()
		} else {
			opt, err := layout.ToIndexedOptionArray64(c)
			if err != nil {
				return nil, false, err
			}
			idx, next = opt.Index().Int64s(), opt.Content()
		}
		for i, p := range positions {
			if p >= 0 {
				positions[i] = idx[p]
			}
		}
		c = next
	}

	k := &keyer{index: positions, leaf: c}
	switch x := c.(type) {
	case *layout.NumpyArray:
		k.data = x.Data().Bytes()
		k.width = x.DType().ItemSize()
		for _, s := range x.Shape()[1:] {
			k.width *= s
		}
		return k, true, nil
	case *layout.EmptyArray:
		return k, true, nil
	}
	if !layout.IsStringLike(c) {
		return nil, false, nil
	}
	list, err := layout.ToListOffsetArray64(c)
	if err != nil {
		return nil, false, err
	}
	chars, ok := list.Content().(*layout.NumpyArray)
	if !ok {
		return nil, false, errors.Typef("keys", "string content must be a primitive array, not %s", list.Content().String())
	}
	k.data = chars.Data().Bytes()
	k.offsets = list.Offsets().Int64s()
	return k, true, nil
}

func (k *keyer) len() int { return len(k.index) }

// key returns the bytes of element i, or false when it is missing.
func (k *keyer) key(i int) ([]byte, bool) {
	p := k.index[i]
	if p < 0 {
		return nil, false
	}
	if k.offsets != nil {
		return k.data[k.offsets[p]:k.offsets[p+1]], true
	}
	start := int(p) * k.width
	return k.data[start : start+k.width], true
}

// DictionaryEncode replaces the innermost primitive or string values of c
// with an IndexedArray into their distinct values, in order of first
// appearance. Missing values stay missing.
func DictionaryEncode(c layout.Content) (layout.Content, error) {
	const op = "dictionary_encode"
	found := false
	out, err := layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		k, ok, err := newKeyer(x)
		if err != nil || !ok {
			return nil, err
		}
		found = true
		return encode(k, x.Parameters())
	}))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Typef(op, "%s has no primitive or string values to encode", c.Type().String())
	}
	return out, nil
}

func encode(k *keyer, params types.Parameters) (layout.Content, error) {
	buckets := make(map[uint64][]int64)
	var uniques []int64 // leaf position of each distinct value
	idx := make([]int64, k.len())
	missing := false
	for i := range idx {
		key, ok := k.key(i)
		if !ok {
			idx[i] = -1
			missing = true
			continue
		}
		h := xxhash.Sum64(key)
		id := int64(-1)
		for _, candidate := range buckets[h] {
			other, _ := k.key(int(uniques[candidate]))
			if bytes.Equal(key, other) {
				id = candidate
				break
			}
		}
		if id < 0 {
			id = int64(len(uniques))
			uniques = append(uniques, int64(i))
			buckets[h] = append(buckets[h], id)
		}
		idx[i] = id
	}

	leafPositions := make([]int64, len(uniques))
	for j, i := range uniques {
		leafPositions[j] = k.index[i]
	}
	dictionary, err := layout.Take(k.leaf, leafPositions)
	if err != nil {
		return nil, err
	}
	params = params.With(types.ArrayKey, CategoricalKey)
	if missing {
		return layout.NewIndexedOptionArray(index.FromInt64(idx), dictionary, params)
	}
	return layout.NewIndexedArray(index.FromInt64(idx), dictionary, params)
}

// RunLengths counts runs of equal consecutive values in the innermost
// dimension. Runs do not cross list boundaries; a missing value forms runs
// with other missing values.
func RunLengths(c layout.Content) (layout.Content, error) {
	const op = "run_lengths"
	if k, ok, err := newKeyer(c); err != nil {
		return nil, err
	} else if ok {
		counts, _ := runLengths(k, []int64{0, int64(k.len())})
		return layout.NewNumpy(counts), nil
	}
	found := false
	out, err := layout.Apply(c, layout.VisitorFunc(func(x layout.Content, ctx *layout.ApplyContext) (layout.Content, error) {
		if !x.IsList() || layout.IsStringLike(x) {
			return nil, nil
		}
		list, err := layout.ToListOffsetArray64(x)
		if err != nil {
			return nil, err
		}
		offsets := list.Offsets().Int64s()
		content, err := list.Content().GetItemRange(0, int(offsets[len(offsets)-1]), 1)
		if err != nil {
			return nil, err
		}
		k, ok, err := newKeyer(content)
		if err != nil || !ok {
			return nil, err
		}
		found = true
		counts, newOffsets := runLengths(k, offsets)
		return layout.NewListOffsetArray(index.FromInt64(newOffsets), layout.NewNumpy(counts), emptyParams)
	}))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Typef(op, "%s has no primitive or string values", c.Type().String())
	}
	return out, nil
}

// runLengths measures the runs inside each range offsets[i]:offsets[i+1] of
// k and returns the run lengths with the offsets grouping them by range.
func runLengths(k *keyer, offsets []int64) ([]int64, []int64) {
	var counts []int64
	runOffsets := make([]int64, len(offsets))
	for i := 1; i < len(offsets); i++ {
		var prev []byte
		prevOK := false
		for j := offsets[i-1]; j < offsets[i]; j++ {
			key, ok := k.key(int(j))
			if j > offsets[i-1] && ok == prevOK && bytes.Equal(key, prev) {
				counts[len(counts)-1]++
			} else {
				counts = append(counts, 1)
			}
			prev, prevOK = key, ok
		}
		runOffsets[i] = int64(len(counts))
	}
	if counts == nil {
		counts = []int64{}
	}
	return counts, runOffsets
}
