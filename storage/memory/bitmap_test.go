package memory

import (
	"reflect"
	"testing"
)

func TestNewBitmap(t *testing.T) {
	bm := NewBitmap(100)
	if bm.Len() != 100 {
		t.Errorf("expected length 100, got %d", bm.Len())
	}
	if len(bm.Bytes()) != 13 {
		t.Errorf("expected 13 bytes, got %d", len(bm.Bytes()))
	}

	// All bits should be 0 initially
	if bm.CountSet() != 0 {
		t.Errorf("expected 0 set bits, got %d", bm.CountSet())
	}
}

func TestBitmapSetClear(t *testing.T) {
	bm := NewBitmap(10)

	bm.Set(5)
	if !bm.IsSet(5) {
		t.Error("bit 5 should be set")
	}
	if bm.CountSet() != 1 {
		t.Errorf("expected 1 set bit, got %d", bm.CountSet())
	}

	bm.Clear(5)
	if bm.IsSet(5) {
		t.Error("bit 5 should be clear")
	}
	if bm.CountSet() != 0 {
		t.Errorf("expected 0 set bits, got %d", bm.CountSet())
	}
}

func TestBitmapOrder(t *testing.T) {
	lsb := NewBitmapFromBytes([]byte{0x01}, 8, true)
	if !lsb.IsSet(0) || lsb.IsSet(7) {
		t.Errorf("LSB order: got %v", lsb.ToBools())
	}

	msb := NewBitmapFromBytes([]byte{0x01}, 8, false)
	if msb.IsSet(0) || !msb.IsSet(7) {
		t.Errorf("MSB order: got %v", msb.ToBools())
	}
	if msb.LSBOrder() {
		t.Error("expected MSB order")
	}
}

func TestBitmapCountSetPartialByte(t *testing.T) {
	// bits beyond the length must not be counted
	lsb := NewBitmapFromBytes([]byte{0xff, 0xff}, 11, true)
	if lsb.CountSet() != 11 {
		t.Errorf("expected 11 set bits, got %d", lsb.CountSet())
	}
	msb := NewBitmapFromBytes([]byte{0xff, 0xe0}, 11, false)
	if msb.CountSet() != 11 {
		t.Errorf("expected 11 set bits, got %d", msb.CountSet())
	}
}

func TestBitmapFromBools(t *testing.T) {
	values := []bool{true, false, true, true, false, false, false, false, true}
	bm := NewBitmapFromBools(values)
	if !reflect.DeepEqual(bm.ToBools(), values) {
		t.Errorf("round trip mismatch: %v", bm.ToBools())
	}
	if bm.Bytes()[0] != 0x0d || bm.Bytes()[1] != 0x01 {
		t.Errorf("unexpected packing % x", bm.Bytes())
	}
}

func TestBitmapOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out of range bit")
		}
	}()
	NewBitmap(4).IsSet(4)
}
