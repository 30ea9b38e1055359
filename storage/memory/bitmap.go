package memory

import "math/bits"

// Bitmap is a packed sequence of bits, used for BitMaskedArray masks.
// Bit i lives in byte i/8; lsbOrder selects whether it is counted from the
// least or the most significant end of that byte.
type Bitmap struct {
	buf      []byte
	length   int // number of bits
	lsbOrder bool
}

// NewBitmap creates a zeroed LSB-first bitmap with the given number of bits.
func NewBitmap(length int) *Bitmap {
	numBytes := (length + 7) / 8
	return &Bitmap{
		buf:      make([]byte, numBytes),
		length:   length,
		lsbOrder: true,
	}
}

// NewBitmapFromBytes wraps existing bytes.
func NewBitmapFromBytes(data []byte, length int, lsbOrder bool) *Bitmap {
	return &Bitmap{
		buf:      data,
		length:   length,
		lsbOrder: lsbOrder,
	}
}

// NewBitmapFromBools packs bools LSB-first.
func NewBitmapFromBools(values []bool) *Bitmap {
	bm := NewBitmap(len(values))
	for i, v := range values {
		if v {
			bm.Set(i)
		}
	}
	return bm
}

// Len returns the number of bits.
func (b *Bitmap) Len() int {
	return b.length
}

// Bytes returns the underlying byte buffer.
func (b *Bitmap) Bytes() []byte {
	return b.buf
}

// LSBOrder reports the bit order within each byte.
func (b *Bitmap) LSBOrder() bool {
	return b.lsbOrder
}

func (b *Bitmap) bit(i int) byte {
	if b.lsbOrder {
		return 1 << (i % 8)
	}
	return 1 << (7 - i%8)
}

// Set sets the bit at index i to 1.
func (b *Bitmap) Set(i int) {
	if i < 0 || i >= b.length {
		panic("bitmap index out of range")
	}
	b.buf[i/8] |= b.bit(i)
}

// Clear sets the bit at index i to 0.
func (b *Bitmap) Clear(i int) {
	if i < 0 || i >= b.length {
		panic("bitmap index out of range")
	}
	b.buf[i/8] &^= b.bit(i)
}

// IsSet returns true if bit at index i is 1.
func (b *Bitmap) IsSet(i int) bool {
	if i < 0 || i >= b.length {
		panic("bitmap index out of range")
	}
	return b.buf[i/8]&b.bit(i) != 0
}

// CountSet returns the number of bits set to 1.
func (b *Bitmap) CountSet() int {
	count := 0
	fullBytes := b.length / 8

	for i := 0; i < fullBytes; i++ {
		count += bits.OnesCount8(b.buf[i])
	}

	remainder := b.length % 8
	if remainder > 0 {
		last := b.buf[fullBytes]
		var mask byte
		if b.lsbOrder {
			mask = byte((1 << remainder) - 1)
		} else {
			mask = ^byte(0) << (8 - remainder)
		}
		count += bits.OnesCount8(last & mask)
	}
	return count
}

// ToBools unpacks the bitmap.
func (b *Bitmap) ToBools() []bool {
	out := make([]bool, b.length)
	for i := range out {
		out[i] = b.IsSet(i)
	}
	return out
}
