// Package arrowconv converts layout trees to and from Apache Arrow arrays.
//
// Lists become Arrow lists with 32-bit offsets, strings become Arrow strings,
// records become structs and unions become dense unions. Option nodes become
// validity bitmaps, so a value may be missing at any level except directly
// above a union. Dictionary-encoded arrays map to Arrow dictionaries.
package arrowconv

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/wzqhbustb/jagged/dtype"
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/operations"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

var emptyParams types.Parameters

var primitiveTypes = map[dtype.DType]arrow.DataType{
	dtype.Bool:    arrow.FixedWidthTypes.Boolean,
	dtype.Int8:    arrow.PrimitiveTypes.Int8,
	dtype.Uint8:   arrow.PrimitiveTypes.Uint8,
	dtype.Int16:   arrow.PrimitiveTypes.Int16,
	dtype.Uint16:  arrow.PrimitiveTypes.Uint16,
	dtype.Int32:   arrow.PrimitiveTypes.Int32,
	dtype.Uint32:  arrow.PrimitiveTypes.Uint32,
	dtype.Int64:   arrow.PrimitiveTypes.Int64,
	dtype.Uint64:  arrow.PrimitiveTypes.Uint64,
	dtype.Float32: arrow.PrimitiveTypes.Float32,
	dtype.Float64: arrow.PrimitiveTypes.Float64,
}

// DataType returns the Arrow type that ToArrow produces for arrays of form f.
func DataType(f forms.Form) (arrow.DataType, error) {
	const op = "arrow_type"
	params := f.Parameters()
	switch x := f.(type) {
	case forms.EmptyForm:
		return arrow.Null, nil
	case forms.NumpyForm:
		dt, ok := primitiveTypes[x.Primitive]
		if !ok {
			return nil, errors.NotSupported(op, "no Arrow type for "+x.Primitive.String())
		}
		for i := len(x.InnerShape) - 1; i >= 0; i-- {
			dt = arrow.FixedSizeListOf(int32(x.InnerShape[i]), dt)
		}
		return dt, nil
	case forms.RegularForm:
		elem, err := DataType(x.Content)
		if err != nil {
			return nil, err
		}
		return arrow.FixedSizeListOf(int32(x.Size), elem), nil
	case forms.ListOffsetForm:
		return listType(params, x.Content)
	case forms.ListForm:
		return listType(params, x.Content)
	case forms.IndexedForm:
		if isCategorical(params) {
			return dictionaryType(x.Content)
		}
		return DataType(x.Content)
	case forms.IndexedOptionForm:
		if isCategorical(params) {
			return dictionaryType(x.Content)
		}
		return DataType(x.Content)
	case forms.ByteMaskedForm:
		return DataType(x.Content)
	case forms.BitMaskedForm:
		return DataType(x.Content)
	case forms.UnmaskedForm:
		return DataType(x.Content)
	case forms.RecordForm:
		fields := make([]arrow.Field, len(x.Contents))
		for i, content := range x.Contents {
			dt, err := DataType(content)
			if err != nil {
				return nil, err
			}
			fields[i] = arrow.Field{Name: fieldName(x.Fields, i), Type: dt, Nullable: isOptionForm(content)}
		}
		return arrow.StructOf(fields...), nil
	case forms.UnionForm:
		fields := make([]arrow.Field, len(x.Contents))
		codes := make([]arrow.UnionTypeCode, len(x.Contents))
		for i, content := range x.Contents {
			dt, err := DataType(content)
			if err != nil {
				return nil, err
			}
			fields[i] = arrow.Field{Name: strconv.Itoa(i), Type: dt, Nullable: isOptionForm(content)}
			codes[i] = arrow.UnionTypeCode(i)
		}
		return arrow.DenseUnionOf(fields, codes), nil
	}
	return nil, errors.NotSupported(op, "no Arrow type for "+f.Class())
}

func listType(params types.Parameters, content forms.Form) (arrow.DataType, error) {
	switch params.String(types.ArrayKey) {
	case "string":
		return arrow.BinaryTypes.String, nil
	case "bytestring":
		return arrow.BinaryTypes.Binary, nil
	}
	elem, err := DataType(content)
	if err != nil {
		return nil, err
	}
	return arrow.ListOf(elem), nil
}

func dictionaryType(content forms.Form) (arrow.DataType, error) {
	values, err := DataType(content)
	if err != nil {
		return nil, err
	}
	return &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int32, ValueType: values}, nil
}

func isCategorical(params types.Parameters) bool {
	return params.String(types.ArrayKey) == operations.CategoricalKey
}

func isOptionForm(f forms.Form) bool {
	switch f.(type) {
	case forms.IndexedOptionForm, forms.ByteMaskedForm, forms.BitMaskedForm, forms.UnmaskedForm:
		return true
	}
	return false
}

func fieldName(fields []string, i int) string {
	if fields == nil {
		return strconv.Itoa(i)
	}
	return fields[i]
}

// tupleFields reports whether names are "0", "1", ... in order, which is how
// tuples are named on the Arrow side.
func tupleFields(names []string) bool {
	if len(names) == 0 {
		return false
	}
	for i, name := range names {
		if name != strconv.Itoa(i) {
			return false
		}
	}
	return true
}
