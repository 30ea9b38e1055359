package format

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/wzqhbustb/jagged/storage/encoding"
	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

// BufferEntry locates one encoded buffer in the data section.
type BufferEntry struct {
	Key      string        // "<form key>-<role>"
	Encoding encoding.Type // How the buffer is stored
	Width    uint8         // Value width in bytes
	Float    bool          // Values are floating point
	Offset   int64         // Offset from the start of the data section
	Size     int64         // Encoded size
	RawSize  int64         // Decoded size
	Checksum uint32        // CRC32 of the decoded bytes
}

// entryFixedSize is everything in an entry but the key bytes:
// keyLen(2) + encoding(1) + width(1) + float(1) + offset(8) + size(8) + rawSize(8) + checksum(4)
const entryFixedSize = 2 + 1 + 1 + 1 + 8 + 8 + 8 + 4

// BufferTable lists the buffers of a container in data-section order.
type BufferTable struct {
	Entries []BufferEntry
}

// EncodedSize returns the encoded size of the table
func (t *BufferTable) EncodedSize() int {
	size := 4
	for _, e := range t.Entries {
		size += entryFixedSize + len(e.Key)
	}
	return size
}

// Validate checks that entries are well formed and contiguous.
func (t *BufferTable) Validate() error {
	var next int64
	seen := make(map[string]bool, len(t.Entries))
	for i, e := range t.Entries {
		switch {
		case len(e.Key) == 0 || len(e.Key) > MaxKeySize:
			return lerrors.FormatCorrupted(int64(i), fmt.Sprintf("invalid key length %d", len(e.Key)))
		case seen[e.Key]:
			return lerrors.FormatCorrupted(int64(i), fmt.Sprintf("duplicate buffer key %q", e.Key))
		case e.Offset != next:
			return lerrors.FormatCorrupted(e.Offset, fmt.Sprintf("buffer %q starts at %d, expected %d", e.Key, e.Offset, next))
		case e.Size < 0 || e.RawSize < 0:
			return lerrors.FormatCorrupted(e.Offset, fmt.Sprintf("buffer %q has a negative size", e.Key))
		}
		seen[e.Key] = true
		next += e.Size
	}
	return nil
}

// DataSize returns the size of the data section.
func (t *BufferTable) DataSize() int64 {
	var total int64
	for _, e := range t.Entries {
		total += e.Size
	}
	return total
}

// WriteTo writes the table to a writer
func (t *BufferTable) WriteTo(w io.Writer) (int64, error) {
	buf := new(bytes.Buffer)
	buf.Grow(t.EncodedSize())
	binary.Write(buf, ByteOrder, uint32(len(t.Entries)))
	for _, e := range t.Entries {
		binary.Write(buf, ByteOrder, uint16(len(e.Key)))
		buf.WriteString(e.Key)
		buf.WriteByte(byte(e.Encoding))
		buf.WriteByte(e.Width)
		if e.Float {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		binary.Write(buf, ByteOrder, e.Offset)
		binary.Write(buf, ByteOrder, e.Size)
		binary.Write(buf, ByteOrder, e.RawSize)
		binary.Write(buf, ByteOrder, e.Checksum)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadFrom reads the table from a reader
func (t *BufferTable) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	read := func(p []byte) error {
		n, err := io.ReadFull(r, p)
		total += int64(n)
		if err != nil {
			return NewFileError("read buffer table", err)
		}
		return nil
	}

	var countBuf [4]byte
	if err := read(countBuf[:]); err != nil {
		return total, err
	}
	count := ByteOrder.Uint32(countBuf[:])
	t.Entries = make([]BufferEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var keyLen [2]byte
		if err := read(keyLen[:]); err != nil {
			return total, err
		}
		rest := make([]byte, int(ByteOrder.Uint16(keyLen[:]))+entryFixedSize-2)
		if err := read(rest); err != nil {
			return total, err
		}
		k := len(rest) - (entryFixedSize - 2)
		e := BufferEntry{
			Key:      string(rest[:k]),
			Encoding: encoding.Type(rest[k]),
			Width:    rest[k+1],
			Float:    rest[k+2] != 0,
			Offset:   int64(ByteOrder.Uint64(rest[k+3:])),
			Size:     int64(ByteOrder.Uint64(rest[k+11:])),
			RawSize:  int64(ByteOrder.Uint64(rest[k+19:])),
			Checksum: ByteOrder.Uint32(rest[k+27:]),
		}
		t.Entries = append(t.Entries, e)
	}
	return total, t.Validate()
}
