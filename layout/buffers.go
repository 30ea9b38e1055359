package layout

import (
	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/index"
	"github.com/wzqhbustb/jagged/storage/errors"
	"github.com/wzqhbustb/jagged/storage/memory"
)

// Buffer roles, appended to a node's form key to name its buffers.
const (
	RoleData    = "data"
	RoleOffsets = "offsets"
	RoleStarts  = "starts"
	RoleStops   = "stops"
	RoleIndex   = "index"
	RoleTags    = "tags"
	RoleMask    = "mask"
)

// BufferKey names the buffer of a node with the given form key and role.
func BufferKey(formKey, role string) string {
	return formKey + "-" + role
}

// ToBuffers decomposes c into its Form (with keys node0, node1, ... in
// pre-order), its length and a flat map of buffers named by BufferKey.
// Buffers are shared with c, not copied.
func ToBuffers(c Content) (forms.Form, int, map[string][]byte, error) {
	form := forms.AssignKeys(c.Form())
	var keys []string
	forms.Walk(form, func(f forms.Form) bool {
		keys = append(keys, f.FormKey())
		return true
	})
	container := map[string][]byte{}
	n := 0
	var walk func(c Content) error
	walk = func(c Content) error {
		if n >= len(keys) {
			return errors.FormMismatch("to_buffers", className(c), "layout and form disagree")
		}
		key := keys[n]
		n++
		switch x := c.(type) {
		case *NumpyArray:
			container[BufferKey(key, RoleData)] = x.data.Bytes()
		case *ListOffsetArray:
			container[BufferKey(key, RoleOffsets)] = x.offsets.Bytes()
		case *ListArray:
			container[BufferKey(key, RoleStarts)] = x.starts.Bytes()
			container[BufferKey(key, RoleStops)] = x.stops.Bytes()
		case *IndexedArray:
			container[BufferKey(key, RoleIndex)] = x.index.Bytes()
		case *IndexedOptionArray:
			container[BufferKey(key, RoleIndex)] = x.index.Bytes()
		case *ByteMaskedArray:
			container[BufferKey(key, RoleMask)] = x.mask.Bytes()
		case *BitMaskedArray:
			container[BufferKey(key, RoleMask)] = x.mask.Bytes()
		case *UnionArray:
			container[BufferKey(key, RoleTags)] = x.tags.Bytes()
			container[BufferKey(key, RoleIndex)] = x.index.Bytes()
		}
		for _, child := range children(c) {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(c); err != nil {
		return nil, 0, nil, err
	}
	return form, c.Len(), container, nil
}

// children lists the direct children of c in Form order.
func children(c Content) []Content {
	switch x := c.(type) {
	case *RegularArray:
		return []Content{x.content}
	case *ListOffsetArray:
		return []Content{x.content}
	case *ListArray:
		return []Content{x.content}
	case *IndexedArray:
		return []Content{x.content}
	case *IndexedOptionArray:
		return []Content{x.content}
	case *ByteMaskedArray:
		return []Content{x.content}
	case *BitMaskedArray:
		return []Content{x.content}
	case *UnmaskedArray:
		return []Content{x.content}
	case *RecordArray:
		return x.contents
	case *UnionArray:
		return x.contents
	}
	return nil
}

// FromBuffers rebuilds a layout of the given length from form and the
// buffers named by BufferKey. Buffers may be longer than needed. Missing
// buffers, short buffers and inconsistent structure are FormMismatch errors.
func FromBuffers(form forms.Form, length int, container map[string][]byte) (Content, error) {
	if length < 0 {
		return nil, errors.InvalidArg("from_buffers", "length must be non-negative")
	}
	r := &bufferReader{container: container}
	return r.read(form, length)
}

type bufferReader struct {
	container map[string][]byte
}

func (r *bufferReader) buffer(f forms.Form, role string, n int) ([]byte, error) {
	if f.FormKey() == "" {
		return nil, errors.FormMismatch("from_buffers", f.Class(), "form node has no form_key")
	}
	key := BufferKey(f.FormKey(), role)
	data, ok := r.container[key]
	if !ok {
		return nil, errors.New(errors.ErrFormMismatch).
			Op("from_buffers").
			Path(f.Class()).
			Context("key", key).
			Message("buffer %q is missing", key).
			Build()
	}
	if len(data) < n {
		return nil, errors.New(errors.ErrFormMismatch).
			Op("from_buffers").
			Path(f.Class()).
			Context("key", key).
			Message("buffer %q has %d bytes, need %d", key, len(data), n).
			Build()
	}
	return data[:n], nil
}

func (r *bufferReader) index(f forms.Form, role string, t index.Type, n int) (*index.Index, error) {
	data, err := r.buffer(f, role, n*t.ItemSize())
	if err != nil {
		return nil, err
	}
	return index.New(t, memory.NewBufferBytes(data))
}

func (r *bufferReader) read(form forms.Form, length int) (Content, error) {
	const op = "from_buffers"
	params := form.Parameters()
	switch f := form.(type) {
	case forms.EmptyForm:
		if length != 0 {
			return nil, errors.FormMismatchf(op, f.Class(), "an EmptyArray must have length 0, not %d", length)
		}
		return NewEmptyArray(params), nil

	case forms.NumpyForm:
		shape := append([]int{length}, f.InnerShape...)
		n := f.Primitive.ItemSize()
		for _, s := range shape {
			n *= s
		}
		data, err := r.buffer(f, RoleData, n)
		if err != nil {
			return nil, err
		}
		return NewNumpyArray(memory.NewBufferBytes(data), f.Primitive, shape, params)

	case forms.RegularForm:
		content, err := r.read(f.Content, length*f.Size)
		if err != nil {
			return nil, err
		}
		return NewRegularArray(content, f.Size, length, params)

	case forms.ListOffsetForm:
		offsets, err := r.index(f, RoleOffsets, f.Offsets, length+1)
		if err != nil {
			return nil, err
		}
		content, err := r.read(f.Content, int(offsets.Get(length)))
		if err != nil {
			return nil, err
		}
		return NewListOffsetArray(offsets, content, params)

	case forms.ListForm:
		starts, err := r.index(f, RoleStarts, f.Starts, length)
		if err != nil {
			return nil, err
		}
		stops, err := r.index(f, RoleStops, f.Stops, length)
		if err != nil {
			return nil, err
		}
		var reach int64
		for i := 0; i < length; i++ {
			if s, e := starts.Get(i), stops.Get(i); s != e && e > reach {
				reach = e
			}
		}
		content, err := r.read(f.Content, int(reach))
		if err != nil {
			return nil, err
		}
		return NewListArray(starts, stops, content, params)

	case forms.IndexedForm:
		idx, err := r.index(f, RoleIndex, f.Index, length)
		if err != nil {
			return nil, err
		}
		content, err := r.read(f.Content, indexReach(idx))
		if err != nil {
			return nil, err
		}
		return NewIndexedArray(idx, content, params)

	case forms.IndexedOptionForm:
		idx, err := r.index(f, RoleIndex, f.Index, length)
		if err != nil {
			return nil, err
		}
		content, err := r.read(f.Content, indexReach(idx))
		if err != nil {
			return nil, err
		}
		return NewIndexedOptionArray(idx, content, params)

	case forms.ByteMaskedForm:
		mask, err := r.index(f, RoleMask, f.Mask, length)
		if err != nil {
			return nil, err
		}
		content, err := r.read(f.Content, length)
		if err != nil {
			return nil, err
		}
		return NewByteMaskedArray(mask, content, f.ValidWhen, params)

	case forms.BitMaskedForm:
		mask, err := r.index(f, RoleMask, f.Mask, (length+7)/8)
		if err != nil {
			return nil, err
		}
		content, err := r.read(f.Content, length)
		if err != nil {
			return nil, err
		}
		return NewBitMaskedArray(mask, content, f.ValidWhen, length, f.LSBOrder, params)

	case forms.UnmaskedForm:
		content, err := r.read(f.Content, length)
		if err != nil {
			return nil, err
		}
		return NewUnmaskedArray(content, params)

	case forms.RecordForm:
		contents := make([]Content, len(f.Contents))
		for i, sub := range f.Contents {
			c, err := r.read(sub, length)
			if err != nil {
				return nil, err
			}
			contents[i] = c
		}
		return NewRecordArray(contents, f.Fields, length, params)

	case forms.UnionForm:
		tags, err := r.index(f, RoleTags, f.Tags, length)
		if err != nil {
			return nil, err
		}
		idx, err := r.index(f, RoleIndex, f.Index, length)
		if err != nil {
			return nil, err
		}
		reach := make([]int, len(f.Contents))
		for i := 0; i < length; i++ {
			t := tags.Get(i)
			if t < 0 || t >= int64(len(reach)) {
				return nil, errors.FormMismatchf(op, f.Class(), "tags[%d] = %d is not a valid tag", i, t)
			}
			if v := int(idx.Get(i)) + 1; v > reach[t] {
				reach[t] = v
			}
		}
		contents := make([]Content, len(f.Contents))
		for i, sub := range f.Contents {
			c, err := r.read(sub, reach[i])
			if err != nil {
				return nil, err
			}
			contents[i] = c
		}
		return NewUnionArray(tags, idx, contents, params)
	}
	return nil, errors.NotSupported(op, "unsupported form "+form.Class())
}

// indexReach is the content length an index needs: its largest entry + 1.
func indexReach(idx *index.Index) int {
	reach := 0
	for i := 0; i < idx.Len(); i++ {
		if v := int(idx.Get(i)) + 1; v > reach {
			reach = v
		}
	}
	return reach
}
