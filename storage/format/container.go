package format

import (
	"bytes"
	"hash/crc32"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wzqhbustb/jagged/storage/encoding"
	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

// Buffer is one named buffer of a serialized array.
type Buffer struct {
	Key  string
	Data []byte
	// Width is the size of one value in bytes; Float marks floating point
	// values. Both only guide encoder selection.
	Width int
	Float bool
}

// Container is the decoded content of a serialized array.
type Container struct {
	ID        uuid.UUID
	Version   VersionPolicy
	Length    int64
	Form      []byte
	Buffers   []Buffer
	Metadata  map[string]string
	CreatedAt time.Time
}

// BufferMap returns the buffers keyed by name.
func (c *Container) BufferMap() map[string][]byte {
	out := make(map[string][]byte, len(c.Buffers))
	for _, b := range c.Buffers {
		out[b.Key] = b.Data
	}
	return out
}

type writeOptions struct {
	compressionLevel int
	config           *encoding.EncoderConfig
	version          VersionPolicy
}

// WriteOption configures Marshal.
type WriteOption func(*writeOptions)

// WithCompressionLevel sets the zstd level, 1 (fastest) to 9 (smallest).
func WithCompressionLevel(level int) WriteOption {
	return func(o *writeOptions) { o.compressionLevel = level }
}

// WithEncoderConfig overrides the encoder selection thresholds.
func WithEncoderConfig(cfg *encoding.EncoderConfig) WriteOption {
	return func(o *writeOptions) { o.config = cfg }
}

// WithVersion writes a container of an older version. Encodings the version
// lacks are replaced by zstd, or by plain storage without zstd, and buffer
// checksums are only written when the version has them.
func WithVersion(v VersionPolicy) WriteOption {
	return func(o *writeOptions) { o.version = v }
}

// Marshal encodes c. Buffers are written in key order; a nil ID is replaced
// by a new random one.
func Marshal(c *Container, opts ...WriteOption) ([]byte, error) {
	o := &writeOptions{compressionLevel: 3, version: CurrentFormatVersion}
	for _, opt := range opts {
		opt(o)
	}
	if err := ValidateVersion(o.version.Encoded()); err != nil {
		return nil, err
	}
	factory := encoding.NewEncoderFactoryWithConfig(o.compressionLevel, o.config)

	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	header := NewHeader(id, c.Length, c.Form)
	header.Version = o.version.Encoded()
	if len(c.Metadata) > 0 {
		header.SetFlag(FlagMetadata)
	}

	buffers := append([]Buffer{}, c.Buffers...)
	sort.Slice(buffers, func(i, j int) bool { return buffers[i].Key < buffers[j].Key })

	table := &BufferTable{Entries: make([]BufferEntry, 0, len(buffers))}
	var data bytes.Buffer
	for _, b := range buffers {
		width := b.Width
		if width <= 0 || width > 255 {
			width = 1
		}
		enc := factory.SelectEncoder(b.Data, encoding.BufferHint{Width: width, Float: b.Float})
		if !o.version.HasFeature(EncodingFeature(enc.Type())) {
			if o.version.HasFeature(FeatureZstdCompression) {
				enc = encoding.NewZstdEncoder(factory.CompressionLevel())
			} else {
				enc = encoding.PlainEncoder{}
			}
		}
		encoded, err := enc.Encode(b.Data, width)
		if err != nil {
			return nil, lerrors.EncodeFailed(enc.Type().String(), err)
		}
		if enc.Type() != encoding.Plain {
			header.SetFlag(FlagCompressed)
		}
		var checksum uint32
		if o.version.HasFeature(FeatureBufferChecksum) {
			checksum = crc32.ChecksumIEEE(b.Data)
		}
		table.Entries = append(table.Entries, BufferEntry{
			Key:      b.Key,
			Encoding: enc.Type(),
			Width:    uint8(width),
			Float:    b.Float,
			Offset:   int64(data.Len()),
			Size:     int64(len(encoded)),
			RawSize:  int64(len(b.Data)),
			Checksum: checksum,
		})
		data.Write(encoded)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if _, err := header.WriteTo(&out); err != nil {
		return nil, err
	}
	if _, err := table.WriteTo(&out); err != nil {
		return nil, err
	}
	out.Write(data.Bytes())

	footer := NewFooter(len(table.Entries))
	footer.Version = o.version.Encoded()
	if !c.CreatedAt.IsZero() {
		footer.CreatedAt = c.CreatedAt.Unix()
	}
	for k, v := range c.Metadata {
		footer.AddMetadata(k, v)
	}
	prefix := append([]byte(nil), out.Bytes()...)
	if _, err := footer.WriteTo(&out, prefix); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Unmarshal decodes a container produced by Marshal, verifying the footer
// checksum, that every buffer encoding is allowed by the container version,
// and the checksum of every buffer when the version records them.
func Unmarshal(data []byte) (*Container, error) {
	footer, footerStart, err := ReadFooter(data)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(data[:footerStart])
	header := &Header{}
	if _, err := header.ReadFrom(r); err != nil {
		return nil, err
	}
	if header.Version != footer.Version {
		return nil, lerrors.FormatCorrupted(0, "header and footer versions differ")
	}
	table := &BufferTable{}
	if _, err := table.ReadFrom(r); err != nil {
		return nil, err
	}
	if int(footer.NumBuffers) != len(table.Entries) {
		return nil, lerrors.FormatCorrupted(footerStart, "buffer count differs between table and footer")
	}

	dataStart := footerStart - int64(r.Len())
	if dataStart+table.DataSize() != footerStart {
		return nil, lerrors.FormatCorrupted(dataStart, "data section size does not match the buffer table")
	}

	decoders := make(map[encoding.Type]encoding.Decoder)
	c := &Container{
		ID:        header.ID,
		Version:   VersionFromEncoded(header.Version),
		Length:    header.Length,
		Form:      header.Form,
		Buffers:   make([]Buffer, 0, len(table.Entries)),
		Metadata:  footer.Metadata,
		CreatedAt: time.Unix(footer.CreatedAt, 0),
	}
	for _, e := range table.Entries {
		if feature := EncodingFeature(e.Encoding); !c.Version.HasFeature(feature) {
			return nil, lerrors.FormatFeatureUnsupported(c.Version.String(), FeatureFlagName(feature), dataStart+e.Offset)
		}
		dec, ok := decoders[e.Encoding]
		if !ok {
			if dec, err = encoding.GetDecoder(e.Encoding); err != nil {
				return nil, err
			}
			decoders[e.Encoding] = dec
		}
		start := dataStart + e.Offset
		raw, err := dec.Decode(data[start:start+e.Size], int(e.Width), int(e.RawSize))
		if err != nil {
			return nil, lerrors.DecodeFailed(e.Encoding.String(), start, err)
		}
		if c.Version.HasFeature(FeatureBufferChecksum) && crc32.ChecksumIEEE(raw) != e.Checksum {
			return nil, lerrors.FormatCorrupted(start, "checksum mismatch in buffer "+e.Key)
		}
		c.Buffers = append(c.Buffers, Buffer{Key: e.Key, Data: raw, Width: int(e.Width), Float: e.Float})
	}
	return c, nil
}
