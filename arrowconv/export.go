package arrowconv

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowmemory "github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
	"github.com/wzqhbustb/jagged/types"
)

// ToArrow converts c to an Arrow array. The buffers of primitive leaves are
// shared, not copied.
func ToArrow(c layout.Content) (arrow.Array, error) {
	data, err := export(c)
	if err != nil {
		return nil, err
	}
	defer data.Release()
	return array.MakeFromData(data), nil
}

// ToRecordBatch converts an array of records to an Arrow record batch with
// one column per field. Metadata, if any, is attached to the schema.
func ToRecordBatch(c layout.Content, metadata map[string]string) (arrow.RecordBatch, error) {
	rec, ok := c.(*layout.RecordArray)
	if !ok {
		return nil, errors.Typef("to_record_batch", "expected an array of records, got %s", c.Type().String())
	}
	names := rec.Fields()
	contents := rec.Contents()
	fields := make([]arrow.Field, len(contents))
	columns := make([]arrow.Array, len(contents))
	for i, content := range contents {
		col, err := ToArrow(content)
		if err != nil {
			return nil, err
		}
		defer col.Release()
		fields[i] = arrow.Field{Name: names[i], Type: col.DataType(), Nullable: content.IsOption()}
		columns[i] = col
	}
	var md *arrow.Metadata
	if len(metadata) > 0 {
		m := arrow.MetadataFrom(metadata)
		md = &m
	}
	schema := arrow.NewSchema(fields, md)
	return array.NewRecordBatch(schema, columns, int64(rec.Len())), nil
}

func export(c layout.Content) (arrow.ArrayData, error) {
	const op = "to_arrow"
	if isCategorical(c.Parameters()) && (c.IsIndexed() || c.IsOption()) {
		return exportDictionary(c)
	}
	if c.IsOption() {
		return exportOption(c)
	}
	switch x := c.(type) {
	case *layout.EmptyArray:
		return array.NewData(arrow.Null, 0, []*arrowmemory.Buffer{nil}, nil, 0, 0), nil

	case *layout.NumpyArray:
		if len(x.Shape()) > 1 {
			reg, err := layout.ToRegularArray(x)
			if err != nil {
				return nil, err
			}
			return export(reg)
		}
		return exportPrimitive(x)

	case *layout.IndexedArray:
		projected, err := x.Project()
		if err != nil {
			return nil, err
		}
		return export(projected)

	case *layout.RegularArray:
		content, err := x.Content().GetItemRange(0, x.Len()*x.Size(), 1)
		if err != nil {
			return nil, err
		}
		child, err := export(content)
		if err != nil {
			return nil, err
		}
		defer child.Release()
		dt := arrow.FixedSizeListOf(int32(x.Size()), child.DataType())
		return array.NewData(dt, x.Len(), []*arrowmemory.Buffer{nil}, []arrow.ArrayData{child}, 0, 0), nil

	case *layout.ListOffsetArray, *layout.ListArray:
		return exportList(c)

	case *layout.RecordArray:
		names := x.Fields()
		contents := x.Contents()
		fields := make([]arrow.Field, len(contents))
		children := make([]arrow.ArrayData, len(contents))
		for i, content := range contents {
			child, err := export(content)
			if err != nil {
				return nil, err
			}
			defer child.Release()
			fields[i] = arrow.Field{Name: names[i], Type: child.DataType(), Nullable: content.IsOption()}
			children[i] = child
		}
		return array.NewData(arrow.StructOf(fields...), x.Len(), []*arrowmemory.Buffer{nil}, children, 0, 0), nil

	case *layout.UnionArray:
		return exportUnion(x)
	}
	return nil, errors.NotSupported(op, "cannot convert "+c.Form().Class())
}

func exportPrimitive(x *layout.NumpyArray) (arrow.ArrayData, error) {
	dt, ok := primitiveTypes[x.DType()]
	if !ok {
		return nil, errors.NotSupported("to_arrow", "no Arrow type for "+x.DType().String())
	}
	var values *arrowmemory.Buffer
	if x.DType() == dtype.Bool {
		values = arrowmemory.NewBufferBytes(memory.NewBitmapFromBools(x.Bools()).Bytes())
	} else {
		values = arrowmemory.NewBufferBytes(x.Data().Bytes())
	}
	return array.NewData(dt, x.Len(), []*arrowmemory.Buffer{nil, values}, nil, 0, 0), nil
}

// exportList rebases the offsets of a list node to start at zero and
// converts the covered range of its content.
func exportList(c layout.Content) (arrow.ArrayData, error) {
	list, err := layout.ToListOffsetArray64(c)
	if err != nil {
		return nil, err
	}
	offsets := list.Offsets().Int64s()
	n := list.Len()
	first, last := offsets[0], offsets[n]
	if last-first > math.MaxInt32 {
		return nil, errors.NotSupported("to_arrow", "list content exceeds 32-bit Arrow offsets")
	}
	rebased := make([]int32, n+1)
	for i, off := range offsets {
		rebased[i] = int32(off - first)
	}
	content, err := list.Content().GetItemRange(int(first), int(last), 1)
	if err != nil {
		return nil, err
	}
	offsetBuf := arrowmemory.NewBufferBytes(arrow.GetBytes(rebased))

	switch c.Parameters().String(types.ArrayKey) {
	case "string", "bytestring":
		chars, ok := content.(*layout.NumpyArray)
		if !ok {
			return nil, errors.Typef("to_arrow", "string content must be a primitive array, got %s", content.Form().Class())
		}
		dt := arrow.DataType(arrow.BinaryTypes.String)
		if c.Parameters().String(types.ArrayKey) == "bytestring" {
			dt = arrow.BinaryTypes.Binary
		}
		buffers := []*arrowmemory.Buffer{nil, offsetBuf, arrowmemory.NewBufferBytes(chars.Data().Bytes())}
		return array.NewData(dt, n, buffers, nil, 0, 0), nil
	}

	child, err := export(content)
	if err != nil {
		return nil, err
	}
	defer child.Release()
	return array.NewData(arrow.ListOf(child.DataType()), n, []*arrowmemory.Buffer{nil, offsetBuf}, []arrow.ArrayData{child}, 0, 0), nil
}

func exportUnion(x *layout.UnionArray) (arrow.ArrayData, error) {
	tags := x.Tags().Int64s()
	idx := x.Index().Int64s()
	n := x.Len()
	typeIDs := make([]int8, n)
	offsets := make([]int32, n)
	for i := 0; i < n; i++ {
		if idx[i] > math.MaxInt32 {
			return nil, errors.NotSupported("to_arrow", "union index exceeds 32-bit Arrow offsets")
		}
		typeIDs[i] = int8(tags[i])
		offsets[i] = int32(idx[i])
	}
	contents := x.Contents()
	fields := make([]arrow.Field, len(contents))
	codes := make([]arrow.UnionTypeCode, len(contents))
	children := make([]arrow.ArrayData, len(contents))
	for i, content := range contents {
		child, err := export(content)
		if err != nil {
			return nil, err
		}
		defer child.Release()
		fields[i] = arrow.Field{Name: fieldName(nil, i), Type: child.DataType(), Nullable: content.IsOption()}
		codes[i] = arrow.UnionTypeCode(i)
		children[i] = child
	}
	buffers := []*arrowmemory.Buffer{
		nil,
		arrowmemory.NewBufferBytes(arrow.GetBytes(typeIDs)),
		arrowmemory.NewBufferBytes(arrow.GetBytes(offsets)),
	}
	return array.NewData(arrow.DenseUnionOf(fields, codes), n, buffers, children, 0, 0), nil
}

// exportOption converts the present values of an option node and attaches a
// validity bitmap for the missing ones.
func exportOption(c layout.Content) (arrow.ArrayData, error) {
	opt, err := layout.ToIndexedOptionArray64(c)
	if err != nil {
		return nil, err
	}
	content := opt.Content()
	if content.IsUnion() {
		return nil, errors.NotSupported("to_arrow", "Arrow unions cannot hold missing values at the top level")
	}
	idx := opt.Index().Int64s()
	valid := make([]bool, len(idx))
	positions := make([]int64, len(idx))
	nulls := 0
	for i, v := range idx {
		if v < 0 {
			nulls++
			continue
		}
		valid[i] = true
		positions[i] = v
	}
	if content.Len() == 0 {
		dt, err := DataType(content.Form())
		if err != nil {
			return nil, err
		}
		return array.MakeArrayOfNull(arrowmemory.DefaultAllocator, dt, len(idx)).Data(), nil
	}
	taken, err := layout.Take(content, positions)
	if err != nil {
		return nil, err
	}
	data, err := export(taken)
	if err != nil || nulls == 0 {
		return data, err
	}
	defer data.Release()
	return withValidity(data, valid, nulls), nil
}

func withValidity(data arrow.ArrayData, valid []bool, nulls int) arrow.ArrayData {
	buffers := append([]*arrowmemory.Buffer{}, data.Buffers()...)
	buffers[0] = arrowmemory.NewBufferBytes(memory.NewBitmapFromBools(valid).Bytes())
	return array.NewData(data.DataType(), data.Len(), buffers, data.Children(), nulls, data.Offset())
}

// exportDictionary converts a dictionary-encoded node to an Arrow
// dictionary array with int32 indices.
func exportDictionary(c layout.Content) (arrow.ArrayData, error) {
	var idx []int64
	var dictionary layout.Content
	switch x := c.(type) {
	case *layout.IndexedArray:
		idx, dictionary = x.Index().Int64s(), x.Content()
	default:
		opt, err := layout.ToIndexedOptionArray64(c)
		if err != nil {
			return nil, err
		}
		idx, dictionary = opt.Index().Int64s(), opt.Content()
	}
	if int64(dictionary.Len()) > math.MaxInt32 {
		return nil, errors.NotSupported("to_arrow", "dictionary exceeds 32-bit Arrow indices")
	}
	values, err := export(dictionary)
	if err != nil {
		return nil, err
	}
	defer values.Release()

	indices := make([]int32, len(idx))
	valid := make([]bool, len(idx))
	nulls := 0
	for i, v := range idx {
		if v < 0 {
			nulls++
			continue
		}
		indices[i] = int32(v)
		valid[i] = true
	}
	buffers := []*arrowmemory.Buffer{nil, arrowmemory.NewBufferBytes(arrow.GetBytes(indices))}
	if nulls > 0 {
		buffers[0] = arrowmemory.NewBufferBytes(memory.NewBitmapFromBools(valid).Bytes())
	}
	dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: values.DataType()}
	data := array.NewData(dt, len(idx), buffers, nil, nulls, 0)
	data.SetDictionary(values)
	return data, nil
}
