// Package encoding compresses the raw buffers of a layout tree before they
// are written to a container, and restores them on read.
package encoding

import (
	"fmt"

	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

// Type identifies how a buffer is stored.
type Type uint8

const (
	Plain           Type = iota // Stored as is
	Zstd                        // Zstd compression
	ByteStreamSplit             // Byte stream split, then zstd
	RLE                         // Run-length encoding of fixed-width values
)

func (t Type) String() string {
	switch t {
	case Plain:
		return "Plain"
	case Zstd:
		return "Zstd"
	case ByteStreamSplit:
		return "ByteStreamSplit"
	case RLE:
		return "RLE"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Encoder compresses one buffer of fixed-width values.
type Encoder interface {
	Type() Type
	// Encode compresses data, whose values are width bytes each.
	Encode(data []byte, width int) ([]byte, error)
}

// Decoder restores a buffer produced by the matching Encoder. size is the
// decoded length in bytes.
type Decoder interface {
	Decode(data []byte, width, size int) ([]byte, error)
}

// PlainEncoder copies buffers unchanged.
type PlainEncoder struct{}

func (PlainEncoder) Type() Type { return Plain }

func (PlainEncoder) Encode(data []byte, _ int) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

func (PlainEncoder) Decode(data []byte, _, size int) ([]byte, error) {
	if len(data) != size {
		return nil, DecodeError("plain", "plain_decode", fmt.Errorf("have %d bytes, want %d", len(data), size))
	}
	return append([]byte(nil), data...), nil
}

// GetDecoder returns the Decoder for an encoding type.
func GetDecoder(t Type) (Decoder, error) {
	switch t {
	case Plain:
		return PlainEncoder{}, nil
	case Zstd:
		return NewZstdDecoder()
	case ByteStreamSplit:
		return NewBSSDecoder()
	case RLE:
		return NewRLEDecoder(), nil
	default:
		return nil, lerrors.New(lerrors.ErrNotSupported).
			Op("get_decoder").
			Context("encoding", t.String()).
			Build()
	}
}
