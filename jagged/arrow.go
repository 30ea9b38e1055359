package jagged

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/wzqhbustb/jagged/arrowconv"
)

// ToArrow converts the array to an Arrow array. The caller owns the result
// and must Release it.
func (a *Array) ToArrow() (arrow.Array, error) {
	arr, err := arrowconv.ToArrow(a.layout)
	if err != nil {
		return nil, a.fail("ToArrow", err)
	}
	level.Debug(a.logger).Log("msg", "exported to arrow", "type", arr.DataType().String())
	return arr, nil
}

// ToRecordBatch converts an array of records to an Arrow record batch. The
// handle's metadata becomes the schema metadata.
func (a *Array) ToRecordBatch() (arrow.RecordBatch, error) {
	rec, err := arrowconv.ToRecordBatch(a.layout, a.metadata)
	if err != nil {
		return nil, a.fail("ToRecordBatch", err)
	}
	return rec, nil
}

// FromArrow wraps a copy of an Arrow array.
func FromArrow(arr arrow.Array, metadata map[string]string, opts ...Option) (*Array, error) {
	root, err := arrowconv.FromArrow(arr)
	if err != nil {
		return nil, wrapError("FromArrow", "", err)
	}
	return Wrap(root, metadata, opts...)
}

// FromRecordBatch wraps a copy of an Arrow record batch as an array of
// records, taking the metadata from its schema.
func FromRecordBatch(rec arrow.RecordBatch, opts ...Option) (*Array, error) {
	root, err := arrowconv.FromRecordBatch(rec)
	if err != nil {
		return nil, wrapError("FromRecordBatch", "", err)
	}
	cfg := newConfig(opts)
	a := newArray(uuid.New(), root, rec.Schema().Metadata().ToMap(), cfg)
	level.Debug(a.logger).Log("msg", "imported record batch", "rows", rec.NumRows(), "columns", rec.NumCols())
	return a, nil
}
