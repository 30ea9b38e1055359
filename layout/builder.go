package layout

import (
	"math"

	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
	"github.com/wzqhbustb/jagged/types"
)

// builder accumulates normalized values and infers their type as it goes.
// append may return a different builder when a value widens the type.
type builder interface {
	accepts(v any) bool
	append(v any) (builder, error)
	appendNull() builder
	len() int
	snapshot() (Content, error)
}

// appendValue appends v to b, promoting b to an option or union when v
// does not fit.
func appendValue(b builder, v any) (builder, error) {
	if v == nil {
		return b.appendNull(), nil
	}
	if b.accepts(v) {
		return b.append(v)
	}
	u := &unionBuilder{contents: []builder{b}}
	for i := 0; i < b.len(); i++ {
		u.tags = append(u.tags, 0)
		u.index = append(u.index, int64(i))
	}
	return u.append(v)
}

// newBuilderFor starts a builder whose type matches v.
func newBuilderFor(v any) builder {
	switch x := v.(type) {
	case bool:
		return &boolBuilder{}
	case int64:
		return &intBuilder{}
	case float64:
		return &floatBuilder{}
	case string:
		return newStringBuilder(false)
	case []byte:
		return newStringBuilder(true)
	case seqValue:
		return &listBuilder{offsets: []int64{0}, size: x.size, content: &unknownBuilder{}}
	case recordValue:
		contents := make([]builder, len(x.fields))
		for i := range contents {
			contents[i] = &unknownBuilder{}
		}
		return &recordBuilder{fields: x.fields, tuple: x.tuple, contents: contents}
	}
	return nil
}

// wrapOption turns a builder with n valid entries into an option builder.
func wrapOption(b builder) *optionBuilder {
	o := &optionBuilder{content: b}
	for i := 0; i < b.len(); i++ {
		o.index = append(o.index, int64(i))
	}
	return o
}

// --- unknownBuilder ---

// unknownBuilder has seen only missing values (or nothing).
type unknownBuilder struct {
	nulls int
}

func (b *unknownBuilder) accepts(any) bool { return true }

func (b *unknownBuilder) append(v any) (builder, error) {
	next := newBuilderFor(v)
	if next == nil {
		return nil, errors.TypeMismatch("from_iterable", "a supported value", typeName(v))
	}
	if b.nulls > 0 {
		o := &optionBuilder{content: next}
		for i := 0; i < b.nulls; i++ {
			o.index = append(o.index, -1)
		}
		return o.append(v)
	}
	return next.append(v)
}

func (b *unknownBuilder) appendNull() builder {
	b.nulls++
	return b
}

func (b *unknownBuilder) len() int { return b.nulls }

func (b *unknownBuilder) snapshot() (Content, error) {
	if b.nulls == 0 {
		return NewEmptyArray(emptyParams), nil
	}
	idx := make([]int64, b.nulls)
	for i := range idx {
		idx[i] = -1
	}
	return NewIndexedOptionArray(index.FromInt64(idx), NewEmptyArray(emptyParams), emptyParams)
}

// --- boolBuilder ---

type boolBuilder struct {
	data []bool
}

func (b *boolBuilder) accepts(v any) bool {
	_, ok := v.(bool)
	return ok
}

func (b *boolBuilder) append(v any) (builder, error) {
	b.data = append(b.data, v.(bool))
	return b, nil
}

func (b *boolBuilder) appendNull() builder { return wrapOption(b).appendNull() }
func (b *boolBuilder) len() int            { return len(b.data) }

func (b *boolBuilder) snapshot() (Content, error) {
	return NewNumpy(append([]bool{}, b.data...)), nil
}

// --- intBuilder ---

type intBuilder struct {
	data []int64
}

func (b *intBuilder) accepts(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

func (b *intBuilder) append(v any) (builder, error) {
	if f, ok := v.(float64); ok {
		promoted := &floatBuilder{data: make([]float64, len(b.data), len(b.data)+1)}
		for i, x := range b.data {
			promoted.data[i] = float64(x)
		}
		promoted.data = append(promoted.data, f)
		return promoted, nil
	}
	b.data = append(b.data, v.(int64))
	return b, nil
}

func (b *intBuilder) appendNull() builder { return wrapOption(b).appendNull() }
func (b *intBuilder) len() int            { return len(b.data) }

func (b *intBuilder) snapshot() (Content, error) {
	return NewNumpy(append([]int64{}, b.data...)), nil
}

// --- floatBuilder ---

type floatBuilder struct {
	data []float64
}

func (b *floatBuilder) accepts(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

func (b *floatBuilder) append(v any) (builder, error) {
	switch x := v.(type) {
	case int64:
		b.data = append(b.data, float64(x))
	case float64:
		b.data = append(b.data, x)
	}
	return b, nil
}

func (b *floatBuilder) appendNull() builder { return wrapOption(b).appendNull() }
func (b *floatBuilder) len() int            { return len(b.data) }

func (b *floatBuilder) snapshot() (Content, error) {
	return NewNumpy(append([]float64{}, b.data...)), nil
}

// --- stringBuilder ---

type stringBuilder struct {
	bytes   bool
	offsets []int64
	data    []byte
}

func newStringBuilder(bytes bool) *stringBuilder {
	return &stringBuilder{bytes: bytes, offsets: []int64{0}}
}

func (b *stringBuilder) accepts(v any) bool {
	if b.bytes {
		_, ok := v.([]byte)
		return ok
	}
	_, ok := v.(string)
	return ok
}

func (b *stringBuilder) append(v any) (builder, error) {
	switch x := v.(type) {
	case string:
		b.data = append(b.data, x...)
	case []byte:
		b.data = append(b.data, x...)
	}
	b.offsets = append(b.offsets, int64(len(b.data)))
	return b, nil
}

func (b *stringBuilder) appendNull() builder { return wrapOption(b).appendNull() }
func (b *stringBuilder) len() int            { return len(b.offsets) - 1 }

func (b *stringBuilder) snapshot() (Content, error) {
	return newStringArray(append([]int64{}, b.offsets...), append([]byte{}, b.data...), b.bytes)
}

// newStringArray builds a list of characters (or bytes) marked as a string.
func newStringArray(offsets []int64, data []byte, bytes bool) (*ListOffsetArray, error) {
	inner, outer := "char", "string"
	if bytes {
		inner, outer = "byte", "bytestring"
	}
	chars, err := NewNumpyArray(memory.NewBufferBytes(data), dtypeFor[uint8](), []int{len(data)},
		types.NewParameters(types.ArrayKey, inner))
	if err != nil {
		return nil, err
	}
	return NewListOffsetArray(index.FromInt64(offsets), chars, types.NewParameters(types.ArrayKey, outer))
}

// --- listBuilder ---

// listBuilder collects sublists. size tracks whether every sublist came
// from a Go array of the same length (size >= 0), or not (size < 0).
type listBuilder struct {
	offsets []int64
	size    int
	content builder
}

func (b *listBuilder) accepts(v any) bool {
	_, ok := v.(seqValue)
	return ok
}

func (b *listBuilder) append(v any) (builder, error) {
	seq := v.(seqValue)
	if seq.size != b.size {
		b.size = -1
	}
	for _, item := range seq.items {
		next, err := appendValue(b.content, item)
		if err != nil {
			return nil, err
		}
		b.content = next
	}
	b.offsets = append(b.offsets, int64(b.content.len()))
	return b, nil
}

func (b *listBuilder) appendNull() builder { return wrapOption(b).appendNull() }
func (b *listBuilder) len() int            { return len(b.offsets) - 1 }

func (b *listBuilder) snapshot() (Content, error) {
	content, err := b.content.snapshot()
	if err != nil {
		return nil, err
	}
	if b.size >= 0 {
		return NewRegularArray(content, b.size, b.len(), emptyParams)
	}
	return NewListOffsetArray(index.FromInt64(append([]int64{}, b.offsets...)), content, emptyParams)
}

// --- recordBuilder ---

type recordBuilder struct {
	fields   []string
	tuple    bool
	contents []builder
	length   int
}

func (b *recordBuilder) accepts(v any) bool {
	r, ok := v.(recordValue)
	return ok && r.tuple == b.tuple && equalStrings(r.fields, b.fields)
}

func (b *recordBuilder) append(v any) (builder, error) {
	r := v.(recordValue)
	for i, item := range r.values {
		next, err := appendValue(b.contents[i], item)
		if err != nil {
			return nil, err
		}
		b.contents[i] = next
	}
	b.length++
	return b, nil
}

func (b *recordBuilder) appendNull() builder { return wrapOption(b).appendNull() }
func (b *recordBuilder) len() int            { return b.length }

func (b *recordBuilder) snapshot() (Content, error) {
	contents := make([]Content, len(b.contents))
	for i, c := range b.contents {
		out, err := c.snapshot()
		if err != nil {
			return nil, err
		}
		contents[i] = out
	}
	var fields []string
	if !b.tuple {
		fields = b.fields
	}
	return NewRecordArray(contents, fields, b.length, emptyParams)
}

// --- optionBuilder ---

type optionBuilder struct {
	index   []int64
	content builder
}

func (b *optionBuilder) accepts(any) bool { return true }

func (b *optionBuilder) append(v any) (builder, error) {
	next, err := appendValue(b.content, v)
	if err != nil {
		return nil, err
	}
	b.content = next
	b.index = append(b.index, int64(next.len()-1))
	return b, nil
}

func (b *optionBuilder) appendNull() builder {
	b.index = append(b.index, -1)
	return b
}

func (b *optionBuilder) len() int { return len(b.index) }

func (b *optionBuilder) snapshot() (Content, error) {
	content, err := b.content.snapshot()
	if err != nil {
		return nil, err
	}
	return NewIndexedOptionArraySimplified(index.FromInt64(append([]int64{}, b.index...)), content, emptyParams)
}

// --- unionBuilder ---

type unionBuilder struct {
	tags     []int8
	index    []int64
	contents []builder
}

func (b *unionBuilder) accepts(any) bool { return true }

func (b *unionBuilder) append(v any) (builder, error) {
	tag := -1
	for i, c := range b.contents {
		if c.accepts(v) {
			tag = i
			break
		}
	}
	if tag == -1 {
		if len(b.contents) == math.MaxInt8 {
			return nil, errors.NotSupported("from_iterable", "too many distinct types for a union")
		}
		next := newBuilderFor(v)
		if next == nil {
			return nil, errors.TypeMismatch("from_iterable", "a supported value", typeName(v))
		}
		tag = len(b.contents)
		b.contents = append(b.contents, next)
	}
	next, err := b.contents[tag].append(v)
	if err != nil {
		return nil, err
	}
	b.contents[tag] = next
	b.tags = append(b.tags, int8(tag))
	b.index = append(b.index, int64(next.len()-1))
	return b, nil
}

func (b *unionBuilder) appendNull() builder { return wrapOption(b).appendNull() }
func (b *unionBuilder) len() int            { return len(b.tags) }

func (b *unionBuilder) snapshot() (Content, error) {
	contents := make([]Content, len(b.contents))
	for i, c := range b.contents {
		out, err := c.snapshot()
		if err != nil {
			return nil, err
		}
		contents[i] = out
	}
	return SimplifyUnion(index.FromInt8(append([]int8{}, b.tags...)), index.FromInt64(append([]int64{}, b.index...)), contents, emptyParams)
}
