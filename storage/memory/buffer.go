// Package memory provides the immutable byte buffers and validity bitmaps
// that back every leaf and index in a layout tree.
package memory

import (
	"fmt"
	"unsafe"
)

// Number is the set of element types a Buffer can be viewed as.
type Number interface {
	~bool | ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// Buffer is a read-only view over a contiguous memory region. Views created
// with Slice share the parent's backing array; the memory lives as long as the
// longest-lived view.
type Buffer struct {
	buf []byte
}

// NewBuffer allocates a zeroed buffer of size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{
		buf: make([]byte, size),
	}
}

// NewBufferBytes creates a buffer from existing bytes without copying.
func NewBufferBytes(data []byte) *Buffer {
	return &Buffer{buf: data}
}

// Bytes returns the underlying byte slice. Callers must not modify it.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Slice returns a view of n bytes starting at offset. No data is copied.
func (b *Buffer) Slice(offset, n int) *Buffer {
	if offset < 0 || n < 0 || offset+n > len(b.buf) {
		panic(fmt.Sprintf("buffer slice [%d:%d] out of range for %d bytes", offset, offset+n, len(b.buf)))
	}
	return &Buffer{buf: b.buf[offset : offset+n : offset+n]}
}

// Copy returns a buffer with its own backing array.
func (b *Buffer) Copy() *Buffer {
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return &Buffer{buf: out}
}

// --- Typed access (zero-copy views) ---

// View returns a typed view of the buffer. The buffer length must be a
// multiple of the element size.
func View[T Number](b *Buffer) []T {
	if b == nil || len(b.buf) == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if len(b.buf)%size != 0 {
		panic(fmt.Sprintf("buffer size %d not aligned to %T", len(b.buf), zero))
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b.buf[0])), len(b.buf)/size)
}

// FromSlice wraps a typed slice as a buffer without copying. The caller gives
// up the right to mutate data.
func FromSlice[T Number](data []T) *Buffer {
	if len(data) == 0 {
		return &Buffer{buf: []byte{}}
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	return &Buffer{buf: unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*size)}
}

// SizeOf returns the size in bytes of one element of type T.
func SizeOf[T Number]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// AlignTo64 returns size aligned to a 64-byte boundary.
func AlignTo64(size int) int {
	return (size + 63) &^ 63
}
