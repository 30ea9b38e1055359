package layout

import (
	"strings"

	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/types"
)

// Record is a single element of a RecordArray.
type Record struct {
	array *RecordArray
	at    int
}

// NewRecord points at element at of array.
func NewRecord(array *RecordArray, at int) (*Record, error) {
	if at < 0 || at >= array.Len() {
		return nil, errors.IndexOutOfRange("Record", at, array.Len())
	}
	return &Record{array: array, at: at}, nil
}

func (r *Record) Array() *RecordArray          { return r.array }
func (r *Record) At() int                      { return r.at }
func (r *Record) Fields() []string             { return r.array.Fields() }
func (r *Record) IsTuple() bool                { return r.array.IsTuple() }
func (r *Record) Parameters() types.Parameters { return r.array.Parameters() }
func (r *Record) Type() types.Type             { return r.array.Type() }

// Field returns the value of one field at this record's position.
func (r *Record) Field(name string) (any, error) {
	c, err := r.array.Content(name)
	if err != nil {
		return nil, err
	}
	return c.GetItemAt(r.at)
}

// Values returns every field value in field order.
func (r *Record) Values() ([]any, error) {
	out := make([]any, len(r.array.contents))
	for i := range r.array.contents {
		v, err := r.array.contents[i].GetItemAt(r.at)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *Record) String() string {
	v, err := r.ToList()
	if err != nil {
		return "<record: " + err.Error() + ">"
	}
	var b strings.Builder
	formatValue(&b, v)
	return b.String()
}
