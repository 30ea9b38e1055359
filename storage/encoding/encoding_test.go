package encoding

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

func int64Bytes(values ...int64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:], uint64(v))
	}
	return out
}

func float64Bytes(values ...float64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func roundTrip(t *testing.T, enc Encoder, data []byte, width int) []byte {
	t.Helper()
	encoded, err := enc.Encode(data, width)
	if err != nil {
		t.Fatalf("%s encode failed: %v", enc.Type(), err)
	}
	dec, err := GetDecoder(enc.Type())
	if err != nil {
		t.Fatalf("GetDecoder(%s) failed: %v", enc.Type(), err)
	}
	decoded, err := dec.Decode(encoded, width, len(data))
	if err != nil {
		t.Fatalf("%s decode failed: %v", enc.Type(), err)
	}
	if !bytes.Equal(decoded, data) {
		t.Fatalf("%s round trip mismatch", enc.Type())
	}
	return encoded
}

func TestType_String(t *testing.T) {
	tests := map[Type]string{
		Plain:           "Plain",
		Zstd:            "Zstd",
		ByteStreamSplit: "ByteStreamSplit",
		RLE:             "RLE",
		Type(42):        "Unknown(42)",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("Type(%d).String() = %q, want %q", uint8(typ), got, want)
		}
	}
}

func TestPlainEncoder_RoundTrip(t *testing.T) {
	data := int64Bytes(1, 2, 3)
	encoded := roundTrip(t, PlainEncoder{}, data, 8)

	// the encoded buffer must not alias the input
	encoded[0] = 0xff
	if data[0] == 0xff {
		t.Error("plain encoding aliases its input")
	}
}

func TestPlainDecoder_SizeMismatch(t *testing.T) {
	if _, err := (PlainEncoder{}).Decode([]byte{1, 2, 3}, 1, 4); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestZstdEncoder_RoundTrip(t *testing.T) {
	values := make([]int64, 1000)
	for i := range values {
		values[i] = int64(i % 17)
	}
	data := int64Bytes(values...)

	for _, level := range []int{1, 3, 6, 9} {
		enc := NewZstdEncoder(level)
		if enc.Type() != Zstd {
			t.Errorf("Expected type Zstd, got %v", enc.Type())
		}
		if enc.Level() != level {
			t.Errorf("Expected level %d, got %d", level, enc.Level())
		}
		encoded := roundTrip(t, enc, data, 8)
		if len(encoded) >= len(data) {
			t.Errorf("level %d: expected compression, got %d >= %d bytes", level, len(encoded), len(data))
		}
	}
}

func TestZstdDecoder_WrongSize(t *testing.T) {
	enc := NewZstdEncoder(3)
	encoded, err := enc.Encode(int64Bytes(1, 2, 3, 4), 8)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	dec, err := NewZstdDecoder()
	if err != nil {
		t.Fatalf("Failed to create decoder: %v", err)
	}
	if _, err := dec.Decode(encoded, 8, 16); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if _, err := dec.Decode([]byte("not zstd"), 8, 32); err == nil {
		t.Fatal("expected error for garbage input")
	}
}

func TestBSSEncoder_RoundTrip(t *testing.T) {
	values := make([]float64, 512)
	for i := range values {
		values[i] = 100 + float64(i)*0.25
	}
	enc := NewBSSEncoder(3)
	if enc.Type() != ByteStreamSplit {
		t.Errorf("Expected type ByteStreamSplit, got %v", enc.Type())
	}
	roundTrip(t, enc, float64Bytes(values...), 8)
}

func TestSplitJoinStreams(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	split := splitStreams(data, 4)
	want := []byte{1, 5, 2, 6, 3, 7, 4, 8}
	if !bytes.Equal(split, want) {
		t.Fatalf("splitStreams = %v, want %v", split, want)
	}
	if joined := joinStreams(split, 4); !bytes.Equal(joined, data) {
		t.Fatalf("joinStreams = %v, want %v", joined, data)
	}
}

func TestRLEEncoder_Format(t *testing.T) {
	data := []byte{7, 7, 7, 1, 1}
	encoded, err := NewRLEEncoder().Encode(data, 1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	want := []byte{
		2, 0, 0, 0, // runs
		3, 0, 0, 0, 7,
		2, 0, 0, 0, 1,
	}
	if !bytes.Equal(encoded, want) {
		t.Fatalf("encoded = %v, want %v", encoded, want)
	}
	roundTrip(t, NewRLEEncoder(), data, 1)
}

func TestRLEEncoder_Wide(t *testing.T) {
	roundTrip(t, NewRLEEncoder(), int64Bytes(5, 5, 5, -1, -1, 5), 8)
	roundTrip(t, NewRLEEncoder(), nil, 8)
}

func TestRLEEncoder_BadWidth(t *testing.T) {
	_, err := NewRLEEncoder().Encode([]byte{1, 2, 3}, 2)
	if err == nil {
		t.Fatal("expected width error")
	}
	if !lerrors.Is(err, lerrors.ErrEncodeFailed) {
		t.Errorf("expected ErrEncodeFailed, got %v", err)
	}
}

func TestRLEDecoder_Corrupted(t *testing.T) {
	dec := NewRLEDecoder()
	tests := []struct {
		name string
		data []byte
		size int
	}{
		{"short header", []byte{1, 0}, 1},
		{"missing runs", []byte{2, 0, 0, 0, 1, 0, 0, 0, 9}, 2},
		{"too many values", []byte{1, 0, 0, 0, 5, 0, 0, 0, 9}, 2},
		{"too few values", []byte{1, 0, 0, 0, 1, 0, 0, 0, 9}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := dec.Decode(tt.data, 1, tt.size); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestGetDecoder_Unknown(t *testing.T) {
	_, err := GetDecoder(Type(99))
	if !lerrors.Is(err, lerrors.ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}
