package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"sort"
	"time"

	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

// Footer closes a container. Its checksum covers every byte of the container
// before the checksum field.
type Footer struct {
	Version    uint16            // Format version (redundant with header, for validation)
	NumBuffers int32             // Number of buffer table entries
	CreatedAt  int64             // Unix timestamp
	Metadata   map[string]string // Additional metadata
	Checksum   uint32            // CRC32 of the container up to here
}

// NewFooter creates a new footer
func NewFooter(numBuffers int) *Footer {
	return &Footer{
		Version:    CurrentFormatVersion.Encoded(),
		NumBuffers: int32(numBuffers),
		CreatedAt:  time.Now().Unix(),
		Metadata:   make(map[string]string),
	}
}

// AddMetadata adds a metadata entry
func (f *Footer) AddMetadata(key, value string) {
	f.Metadata[key] = value
}

// Validate validates the footer
func (f *Footer) Validate() error {
	if err := ValidateVersion(f.Version); err != nil {
		return err
	}
	if f.NumBuffers < 0 {
		return lerrors.New(lerrors.ErrInvalidArgument).
			Op("validate_footer").
			Context("field", "num_buffers").
			Context("value", f.NumBuffers).
			Build()
	}
	if f.CreatedAt <= 0 {
		return lerrors.New(lerrors.ErrInvalidArgument).
			Op("validate_footer").
			Context("field", "created_at").
			Context("value", f.CreatedAt).
			Build()
	}
	return nil
}

// body encodes everything but the checksum; metadata keys are sorted so the
// bytes are deterministic.
func (f *Footer) body() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, ByteOrder, f.Version)
	binary.Write(buf, ByteOrder, f.NumBuffers)
	binary.Write(buf, ByteOrder, f.CreatedAt)

	keys := make([]string, 0, len(f.Metadata))
	for k := range f.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	binary.Write(buf, ByteOrder, int32(len(keys)))
	for _, k := range keys {
		v := f.Metadata[k]
		binary.Write(buf, ByteOrder, int32(len(k)))
		buf.WriteString(k)
		binary.Write(buf, ByteOrder, int32(len(v)))
		buf.WriteString(v)
	}
	return buf.Bytes()
}

// WriteTo writes the footer and the trailer. prefix is the container written
// so far and seeds the checksum.
func (f *Footer) WriteTo(w io.Writer, prefix []byte) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, NewFileError("write footer", err)
	}
	body := f.body()
	crc := crc32.NewIEEE()
	crc.Write(prefix)
	crc.Write(body)
	f.Checksum = crc.Sum32()

	buf := bytes.NewBuffer(body)
	binary.Write(buf, ByteOrder, f.Checksum)
	binary.Write(buf, ByteOrder, uint32(len(body)+4))
	binary.Write(buf, ByteOrder, MagicNumber)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFooter locates the footer at the end of data, verifies the checksum
// and returns the footer with its starting offset.
func ReadFooter(data []byte) (*Footer, int64, error) {
	if len(data) < TrailerSize {
		return nil, 0, lerrors.FormatCorrupted(0, "container too short for trailer")
	}
	trailer := data[len(data)-TrailerSize:]
	if err := ValidateMagicNumber(ByteOrder.Uint32(trailer[4:])); err != nil {
		return nil, 0, err
	}
	footerLen := int64(ByteOrder.Uint32(trailer[:4]))
	start := int64(len(data)-TrailerSize) - footerLen
	if footerLen < 4 || start < 0 {
		return nil, 0, lerrors.FormatCorrupted(int64(len(data)-TrailerSize), fmt.Sprintf("invalid footer length %d", footerLen))
	}
	end := start + footerLen - 4
	stored := ByteOrder.Uint32(data[end:])
	if computed := crc32.ChecksumIEEE(data[:end]); computed != stored {
		return nil, 0, lerrors.FormatCorrupted(end,
			fmt.Sprintf("checksum mismatch: computed 0x%08X vs stored 0x%08X", computed, stored))
	}

	f := &Footer{Checksum: stored, Metadata: make(map[string]string)}
	r := bytes.NewReader(data[start:end])
	binary.Read(r, ByteOrder, &f.Version)
	binary.Read(r, ByteOrder, &f.NumBuffers)
	binary.Read(r, ByteOrder, &f.CreatedAt)
	var metaCount int32
	if err := binary.Read(r, ByteOrder, &metaCount); err != nil {
		return nil, 0, lerrors.FormatCorrupted(start, "truncated footer")
	}
	for i := int32(0); i < metaCount; i++ {
		key, err := readString(r)
		if err != nil {
			return nil, 0, lerrors.FormatCorrupted(start, "truncated footer metadata")
		}
		value, err := readString(r)
		if err != nil {
			return nil, 0, lerrors.FormatCorrupted(start, "truncated footer metadata")
		}
		f.Metadata[key] = value
	}
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	return f, start, nil
}

func readString(r *bytes.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, ByteOrder, &n); err != nil {
		return "", err
	}
	if n < 0 || int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
