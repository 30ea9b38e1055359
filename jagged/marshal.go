package jagged

import (
	"errors"
	"strings"

	"github.com/go-kit/log/level"

	"github.com/wzqhbustb/jagged/forms"
	"github.com/wzqhbustb/jagged/layout"
	"github.com/wzqhbustb/jagged/storage/format"
)

// MarshalBinary serializes the array with its identity and metadata into a
// self-describing container: form JSON, a buffer table and compressed
// buffers.
func (a *Array) MarshalBinary() ([]byte, error) {
	form, length, buffers, err := layout.ToBuffers(a.layout)
	if err != nil {
		return nil, a.fail("MarshalBinary", err)
	}
	formJSON, err := forms.ToJSON(form)
	if err != nil {
		return nil, a.fail("MarshalBinary", err)
	}

	hints := bufferHints(form)
	c := &format.Container{
		ID:       a.id,
		Length:   int64(length),
		Form:     formJSON,
		Metadata: a.metadata,
	}
	raw := 0
	for key, data := range buffers {
		h := hints[key]
		c.Buffers = append(c.Buffers, format.Buffer{Key: key, Data: data, Width: h.width, Float: h.float})
		raw += len(data)
	}

	version := format.CurrentFormatVersion
	if a.cfg.FormatVersion != "" {
		if version, err = format.ParseVersion(a.cfg.FormatVersion); err != nil {
			return nil, a.fail("MarshalBinary", err)
		}
	}
	out, err := format.Marshal(c,
		format.WithCompressionLevel(a.cfg.CompressionLevel),
		format.WithVersion(version),
	)
	if err != nil {
		return nil, a.fail("MarshalBinary", err)
	}
	level.Debug(a.logger).Log("msg", "marshaled array", "version", version.String(),
		"features", strings.Join(format.FeaturesToStrings(version.FeatureFlags), ","),
		"buffers", len(c.Buffers), "raw_bytes", raw, "bytes", len(out))
	return out, nil
}

// UnmarshalBinary replaces the receiver with the array stored in data. A
// zero Array gets the default configuration.
func (a *Array) UnmarshalBinary(data []byte) error {
	cfg := a.cfg
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c, err := format.Unmarshal(data)
	if err != nil {
		level.Warn(cfg.Logger).Log("msg", "failed to read container", "err", err)
		return wrapError("UnmarshalBinary", "", errors.Join(ErrInvalidBlob, err))
	}
	form, err := forms.FromJSON(c.Form)
	if err != nil {
		return wrapError("UnmarshalBinary", c.ID.String(), errors.Join(ErrInvalidBlob, err))
	}
	root, err := layout.FromBuffers(form, int(c.Length), c.BufferMap())
	if err != nil {
		return wrapError("UnmarshalBinary", c.ID.String(), errors.Join(ErrInvalidBlob, err))
	}
	*a = *newArray(c.ID, root, copyMetadata(c.Metadata), cfg)
	level.Debug(a.logger).Log("msg", "unmarshaled array", "bytes", len(data), "length", c.Length)
	return nil
}

// Unmarshal reads an array written by MarshalBinary.
func Unmarshal(data []byte, opts ...Option) (*Array, error) {
	a := &Array{cfg: newConfig(opts)}
	if err := a.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return a, nil
}

type bufferHint struct {
	width int
	float bool
}

// bufferHints maps every buffer key of form to the width of its elements.
func bufferHints(form forms.Form) map[string]bufferHint {
	hints := map[string]bufferHint{}
	forms.Walk(form, func(f forms.Form) bool {
		key := f.FormKey()
		set := func(role string, width int, float bool) {
			hints[layout.BufferKey(key, role)] = bufferHint{width: width, float: float}
		}
		switch x := f.(type) {
		case forms.NumpyForm:
			set(layout.RoleData, x.Primitive.ItemSize(), x.Primitive.IsFloat())
		case forms.ListOffsetForm:
			set(layout.RoleOffsets, x.Offsets.ItemSize(), false)
		case forms.ListForm:
			set(layout.RoleStarts, x.Starts.ItemSize(), false)
			set(layout.RoleStops, x.Stops.ItemSize(), false)
		case forms.IndexedForm:
			set(layout.RoleIndex, x.Index.ItemSize(), false)
		case forms.IndexedOptionForm:
			set(layout.RoleIndex, x.Index.ItemSize(), false)
		case forms.ByteMaskedForm:
			set(layout.RoleMask, x.Mask.ItemSize(), false)
		case forms.BitMaskedForm:
			set(layout.RoleMask, x.Mask.ItemSize(), false)
		case forms.UnionForm:
			set(layout.RoleTags, x.Tags.ItemSize(), false)
			set(layout.RoleIndex, x.Index.ItemSize(), false)
		}
		return true
	})
	return hints
}
