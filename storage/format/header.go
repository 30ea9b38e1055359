package format

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/google/uuid"

	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

// Header opens a container.
type Header struct {
	Magic   uint32    // Magic number (0x4A414744)
	Version uint16    // Encoded VersionPolicy
	Flags   uint16    // Feature flags
	Length  int64     // Outer length of the array
	ID      uuid.UUID // Identity of the serialized array
	Form    []byte    // Form JSON
}

// HeaderFlags defines feature flags
type HeaderFlags uint16

const (
	FlagCompressed HeaderFlags = 1 << iota // Some buffers are compressed
	FlagMetadata                           // The footer carries metadata
)

// NewHeader creates a new header
func NewHeader(id uuid.UUID, length int64, form []byte) *Header {
	return &Header{
		Magic:   MagicNumber,
		Version: CurrentFormatVersion.Encoded(),
		Length:  length,
		ID:      id,
		Form:    form,
	}
}

// SetFlag sets a feature flag
func (h *Header) SetFlag(flag HeaderFlags) {
	h.Flags |= uint16(flag)
}

// HasFlag checks if a flag is set
func (h *Header) HasFlag(flag HeaderFlags) bool {
	return (h.Flags & uint16(flag)) != 0
}

// Validate validates the header
func (h *Header) Validate() error {
	if err := ValidateMagicNumber(h.Magic); err != nil {
		return err
	}
	if err := ValidateVersion(h.Version); err != nil {
		return err
	}
	if h.Length < 0 {
		return lerrors.New(lerrors.ErrInvalidArgument).
			Op("validate_header").
			Context("field", "length").
			Context("length", h.Length).
			Build()
	}
	if len(h.Form) == 0 || len(h.Form) > MaxFormSize {
		return lerrors.New(lerrors.ErrInvalidArgument).
			Op("validate_header").
			Context("field", "form").
			Context("size", len(h.Form)).
			Context("max_size", MaxFormSize).
			Build()
	}
	return nil
}

// EncodedSize returns the encoded size of the header
func (h *Header) EncodedSize() int {
	// magic(4) + version(2) + flags(2) + length(8) + id(16) + formLen(4) + form
	return 4 + 2 + 2 + 8 + 16 + 4 + len(h.Form)
}

// WriteTo writes the header to a writer
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	if err := h.Validate(); err != nil {
		return 0, NewFileError("write header", err)
	}

	buf := new(bytes.Buffer)
	buf.Grow(h.EncodedSize())
	binary.Write(buf, ByteOrder, h.Magic)
	binary.Write(buf, ByteOrder, h.Version)
	binary.Write(buf, ByteOrder, h.Flags)
	binary.Write(buf, ByteOrder, h.Length)
	buf.Write(h.ID[:])
	binary.Write(buf, ByteOrder, uint32(len(h.Form)))
	buf.Write(h.Form)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFrom reads the header from a reader
func (h *Header) ReadFrom(r io.Reader) (int64, error) {
	fixed := make([]byte, 4+2+2+8+16+4)
	n, err := io.ReadFull(r, fixed)
	if err != nil {
		return int64(n), NewFileError("read header", err)
	}

	h.Magic = ByteOrder.Uint32(fixed[0:4])
	if err := ValidateMagicNumber(h.Magic); err != nil {
		return int64(n), err
	}
	h.Version = ByteOrder.Uint16(fixed[4:6])
	h.Flags = ByteOrder.Uint16(fixed[6:8])
	h.Length = int64(ByteOrder.Uint64(fixed[8:16]))
	copy(h.ID[:], fixed[16:32])
	formLen := ByteOrder.Uint32(fixed[32:36])
	if formLen > MaxFormSize {
		return int64(n), lerrors.FormatCorrupted(32, "form size exceeds the maximum")
	}

	h.Form = make([]byte, formLen)
	m, err := io.ReadFull(r, h.Form)
	total := int64(n + m)
	if err != nil {
		return total, NewFileError("read header", err)
	}
	if err := h.Validate(); err != nil {
		return total, err
	}
	return total, nil
}
