package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

func sampleForm() Form {
	return ListOffsetForm{
		Offsets: index.Int64,
		Content: RecordForm{
			Fields: []string{"x", "tags"},
			Contents: []Form{
				IndexedOptionForm{
					Index:   index.Int64,
					Content: NumpyForm{Primitive: dtype.Float64},
				},
				ListOffsetForm{
					Meta:    Meta{Params: types.NewParameters(types.ArrayKey, "string")},
					Offsets: index.Int32,
					Content: NumpyForm{
						Meta:      Meta{Params: types.NewParameters(types.ArrayKey, "char")},
						Primitive: dtype.Uint8,
					},
				},
			},
		},
	}
}

func TestJSONRoundTrip(t *testing.T) {
	forms := []Form{
		sampleForm(),
		EmptyForm{},
		NumpyForm{Primitive: dtype.Int32, InnerShape: []int{2, 3}},
		RegularForm{Content: NumpyForm{Primitive: dtype.Bool}, Size: 4},
		ListForm{Starts: index.Int64, Stops: index.Int64, Content: NumpyForm{Primitive: dtype.Int8}},
		IndexedForm{Index: index.Int32, Content: NumpyForm{Primitive: dtype.Uint16}},
		ByteMaskedForm{Mask: index.Int8, Content: NumpyForm{Primitive: dtype.Float32}, ValidWhen: false},
		BitMaskedForm{Mask: index.Uint8, Content: NumpyForm{Primitive: dtype.Int64}, ValidWhen: true, LSBOrder: false},
		UnmaskedForm{Content: NumpyForm{Primitive: dtype.Int64}},
		RecordForm{Contents: []Form{NumpyForm{Primitive: dtype.Int64}, EmptyForm{}}},
		UnionForm{Tags: index.Int8, Index: index.Int64, Contents: []Form{
			NumpyForm{Primitive: dtype.Int64},
			ListOffsetForm{Offsets: index.Int64, Content: NumpyForm{Primitive: dtype.Float64}},
		}},
	}
	for _, f := range forms {
		t.Run(f.Class(), func(t *testing.T) {
			keyed := AssignKeys(f)
			data, err := ToJSON(keyed)
			require.NoError(t, err)

			back, err := FromJSON(data)
			require.NoError(t, err)
			assert.True(t, Equal(keyed, back))
			assert.Equal(t, MustJSON(keyed), MustJSON(back), "form keys survive")
			assert.Equal(t, f.Type().String(), back.Type().String())
		})
	}
}

func TestFromJSONPrimitiveShorthand(t *testing.T) {
	f, err := FromJSON([]byte(`"float32"`))
	require.NoError(t, err)
	assert.Equal(t, NumpyForm{Primitive: dtype.Float32}, f)
}

func TestFromJSONDefaults(t *testing.T) {
	f, err := FromJSON([]byte(`{"class": "ListOffsetArray", "content": "int64"}`))
	require.NoError(t, err)
	list, ok := f.(ListOffsetForm)
	require.True(t, ok)
	assert.Equal(t, index.Int64, list.Offsets)

	f, err = FromJSON([]byte(`{"class": "ByteMaskedArray", "content": "int64"}`))
	require.NoError(t, err)
	assert.True(t, f.(ByteMaskedForm).ValidWhen)
}

func TestFromJSONErrors(t *testing.T) {
	tests := map[string]string{
		"not json":       `{`,
		"bad primitive":  `"float128"`,
		"missing class":  `{"content": "int64"}`,
		"no content":     `{"class": "ListOffsetArray"}`,
		"bad index":      `{"class": "IndexedArray", "index": "i16", "content": "int64"}`,
		"not an object":  `[1, 2]`,
		"no contents":    `{"class": "RecordArray", "fields": ["x"]}`,
		"bad nested key": `{"class": "RegularArray", "size": 2, "content": {"class": "NumpyArray", "primitive": "x"}}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := FromJSON([]byte(data))
			require.Error(t, err)
			assert.True(t, errors.IsAny(err, errors.ErrFormMismatch, errors.ErrDecodeFailed), "%v", err)
		})
	}
}

func TestHashIgnoresKeys(t *testing.T) {
	f := sampleForm()
	keyed := AssignKeys(f)
	assert.Equal(t, Hash(f), Hash(keyed))
	assert.True(t, Equal(f, keyed))

	other := ListOffsetForm{Offsets: index.Int64, Content: NumpyForm{Primitive: dtype.Float64}}
	assert.NotEqual(t, Hash(f), Hash(other))
	assert.False(t, Equal(f, other))

	withParams := WithMeta(other, Meta{Params: types.NewParameters("unit", "GeV")})
	assert.NotEqual(t, Hash(other), Hash(withParams))
}

func TestAssignKeysPreOrder(t *testing.T) {
	var keys []string
	Walk(AssignKeys(sampleForm()), func(f Form) bool {
		keys = append(keys, f.FormKey()+":"+f.Class())
		return true
	})
	assert.Equal(t, []string{
		"node0:ListOffsetArray",
		"node1:RecordArray",
		"node2:IndexedOptionArray",
		"node3:NumpyArray",
		"node4:ListOffsetArray",
		"node5:NumpyArray",
	}, keys)

	// parameters are kept
	var params []string
	Walk(AssignKeys(sampleForm()), func(f Form) bool {
		if s := f.Parameters().String(types.ArrayKey); s != "" {
			params = append(params, s)
		}
		return true
	})
	assert.Equal(t, []string{"string", "char"}, params)
}

func TestWalkSkip(t *testing.T) {
	n := 0
	Walk(sampleForm(), func(f Form) bool {
		n++
		_, isRecord := f.(RecordForm)
		return !isRecord
	})
	assert.Equal(t, 2, n)
}

func TestTypes(t *testing.T) {
	assert.Equal(t, "var * {x: ?float64, tags: string}", sampleForm().Type().String())
	assert.Equal(t, "2 * 3 * int32", NumpyForm{Primitive: dtype.Int32, InnerShape: []int{2, 3}}.Type().String())

	// an option of an option is a single option
	nested := IndexedOptionForm{Index: index.Int64, Content: UnmaskedForm{Content: NumpyForm{Primitive: dtype.Int64}}}
	assert.Equal(t, "?int64", nested.Type().String())

	// indexed nodes are transparent
	indexed := IndexedForm{Index: index.Int64, Content: NumpyForm{Primitive: dtype.Int64}}
	assert.Equal(t, "int64", indexed.Type().String())
}

func TestFieldIndex(t *testing.T) {
	rec := RecordForm{Fields: []string{"a", "b"}, Contents: []Form{EmptyForm{}, EmptyForm{}}}
	i, ok := rec.FieldIndex("b")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = rec.FieldIndex("1")
	assert.False(t, ok)

	tuple := RecordForm{Contents: []Form{EmptyForm{}, EmptyForm{}}}
	assert.True(t, tuple.IsTuple())
	i, ok = tuple.FieldIndex("1")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = tuple.FieldIndex("2")
	assert.False(t, ok)
	_, ok = tuple.FieldIndex("")
	assert.False(t, ok)
}
