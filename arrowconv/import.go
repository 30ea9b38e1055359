package arrowconv

import (
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/operations"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
	"github.com/wzqhbustb/jagged/types"
)

// FromArrow converts an Arrow array to a layout tree. Values are copied out
// of Arrow memory, so arr may be released afterwards.
func FromArrow(arr arrow.Array) (layout.Content, error) {
	switch arr.(type) {
	case *array.Null, *array.Dictionary, *array.DenseUnion, *array.SparseUnion:
		return importArray(arr)
	}
	c, err := importArray(arr)
	if err != nil || arr.NullN() == 0 {
		return c, err
	}
	valid := make([]bool, arr.Len())
	for i := range valid {
		valid[i] = arr.IsValid(i)
	}
	return layout.NewByteMaskedArrayFromValid(valid, c, emptyParams)
}

// FromRecordBatch converts an Arrow record batch to an array of records with
// one field per column.
func FromRecordBatch(rec arrow.RecordBatch) (layout.Content, error) {
	schema := rec.Schema()
	n := int(rec.NumCols())
	names := make([]string, n)
	contents := make([]layout.Content, n)
	for i := 0; i < n; i++ {
		c, err := FromArrow(rec.Column(i))
		if err != nil {
			return nil, err
		}
		names[i] = schema.Field(i).Name
		contents[i] = c
	}
	return layout.NewRecordArray(contents, names, int(rec.NumRows()), emptyParams)
}

func importArray(arr arrow.Array) (layout.Content, error) {
	const op = "from_arrow"
	switch a := arr.(type) {
	case *array.Null:
		if a.Len() == 0 {
			return layout.NewEmptyArray(emptyParams), nil
		}
		idx := make([]int64, a.Len())
		for i := range idx {
			idx[i] = -1
		}
		return layout.NewIndexedOptionArray(index.FromInt64(idx), layout.NewEmptyArray(emptyParams), emptyParams)

	case *array.Boolean:
		values := make([]bool, a.Len())
		for i := range values {
			values[i] = a.Value(i)
		}
		return layout.NewNumpy(values), nil
	case *array.Int8:
		return layout.NewNumpy(slices.Clone(a.Int8Values())), nil
	case *array.Uint8:
		return layout.NewNumpy(slices.Clone(a.Uint8Values())), nil
	case *array.Int16:
		return layout.NewNumpy(slices.Clone(a.Int16Values())), nil
	case *array.Uint16:
		return layout.NewNumpy(slices.Clone(a.Uint16Values())), nil
	case *array.Int32:
		return layout.NewNumpy(slices.Clone(a.Int32Values())), nil
	case *array.Uint32:
		return layout.NewNumpy(slices.Clone(a.Uint32Values())), nil
	case *array.Int64:
		return layout.NewNumpy(slices.Clone(a.Int64Values())), nil
	case *array.Uint64:
		return layout.NewNumpy(slices.Clone(a.Uint64Values())), nil
	case *array.Float32:
		return layout.NewNumpy(slices.Clone(a.Float32Values())), nil
	case *array.Float64:
		return layout.NewNumpy(slices.Clone(a.Float64Values())), nil

	case *array.String:
		return stringArray(a.Len(), func(i int) []byte { return []byte(a.Value(i)) }, "string")
	case *array.LargeString:
		return stringArray(a.Len(), func(i int) []byte { return []byte(a.Value(i)) }, "string")
	case *array.Binary:
		return stringArray(a.Len(), a.Value, "bytestring")
	case *array.LargeBinary:
		return stringArray(a.Len(), a.Value, "bytestring")

	case *array.FixedSizeList:
		size := int(a.DataType().(*arrow.FixedSizeListType).Len())
		start := int64(a.Data().Offset() * size)
		values := array.NewSlice(a.ListValues(), start, start+int64(a.Len()*size))
		defer values.Release()
		content, err := FromArrow(values)
		if err != nil {
			return nil, err
		}
		return layout.NewRegularArray(content, size, a.Len(), emptyParams)

	case array.ListLike:
		n := a.Len()
		starts := make([]int64, n)
		stops := make([]int64, n)
		for i := 0; i < n; i++ {
			starts[i], stops[i] = a.ValueOffsets(i)
		}
		content, err := FromArrow(a.ListValues())
		if err != nil {
			return nil, err
		}
		return layout.NewListArray(index.FromInt64(starts), index.FromInt64(stops), content, emptyParams)

	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		names := make([]string, a.NumField())
		contents := make([]layout.Content, a.NumField())
		for i := range contents {
			c, err := FromArrow(a.Field(i))
			if err != nil {
				return nil, err
			}
			names[i] = st.Field(i).Name
			contents[i] = c
		}
		if tupleFields(names) {
			names = nil
		}
		return layout.NewRecordArray(contents, names, a.Len(), emptyParams)

	case *array.DenseUnion:
		return unionArray(a, func(i int) int64 { return int64(a.ValueOffset(i)) })
	case *array.SparseUnion:
		return unionArray(a, func(i int) int64 { return int64(i) })

	case *array.Dictionary:
		return dictionaryArray(a)
	}
	return nil, errors.NotSupported(op, "cannot convert Arrow type "+arr.DataType().String())
}

// stringArray copies n values into a list of characters marked kind.
func stringArray(n int, value func(int) []byte, kind string) (layout.Content, error) {
	offsets := make([]int64, n+1)
	var data []byte
	for i := 0; i < n; i++ {
		data = append(data, value(i)...)
		offsets[i+1] = int64(len(data))
	}
	inner := "char"
	if kind == "bytestring" {
		inner = "byte"
	}
	chars, err := layout.NewNumpyArray(memory.NewBufferBytes(data), dtype.Uint8, []int{len(data)},
		types.NewParameters(types.ArrayKey, inner))
	if err != nil {
		return nil, err
	}
	return layout.NewListOffsetArray(index.FromInt64(offsets), chars, types.NewParameters(types.ArrayKey, kind))
}

func unionArray(a array.Union, position func(int) int64) (layout.Content, error) {
	n := a.Len()
	tags := make([]int8, n)
	idx := make([]int64, n)
	for i := 0; i < n; i++ {
		tags[i] = int8(a.ChildID(i))
		idx[i] = position(i)
	}
	contents := make([]layout.Content, a.NumFields())
	for j := range contents {
		c, err := FromArrow(a.Field(j))
		if err != nil {
			return nil, err
		}
		contents[j] = c
	}
	// Branches keep their exported order unless an option or nested union
	// has to be lifted out.
	lift := false
	for _, c := range contents {
		lift = lift || c.IsOption() || c.IsUnion()
	}
	if !lift {
		return layout.NewUnionArray(index.FromInt8(tags), index.FromInt64(idx), contents, emptyParams)
	}
	return layout.SimplifyUnion(index.FromInt8(tags), index.FromInt64(idx), contents, emptyParams)
}

func dictionaryArray(a *array.Dictionary) (layout.Content, error) {
	dictionary, err := FromArrow(a.Dictionary())
	if err != nil {
		return nil, err
	}
	idx := make([]int64, a.Len())
	missing := false
	for i := range idx {
		if a.IsNull(i) {
			idx[i] = -1
			missing = true
			continue
		}
		idx[i] = int64(a.GetValueIndex(i))
	}
	params := types.NewParameters(types.ArrayKey, operations.CategoricalKey)
	if missing {
		return layout.NewIndexedOptionArray(index.FromInt64(idx), dictionary, params)
	}
	return layout.NewIndexedArray(index.FromInt64(idx), dictionary, params)
}
