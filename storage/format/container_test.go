package format

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wzqhbustb/jagged/storage/encoding"
	lerrors "github.com/wzqhbustb/jagged/storage/errors"
)

func testContainer() *Container {
	offsets := make([]byte, 8*101)
	for i := 0; i <= 100; i++ {
		binary.LittleEndian.PutUint64(offsets[i*8:], uint64(i*3))
	}
	values := make([]byte, 8*300)
	for i := 0; i < 300; i++ {
		binary.LittleEndian.PutUint64(values[i*8:], math.Float64bits(float64(i%10)*0.5))
	}
	mask := make([]byte, 300)
	for i := range mask {
		if i < 250 {
			mask[i] = 1
		}
	}
	return &Container{
		ID:     uuid.New(),
		Length: 100,
		Form:   []byte(`{"class":"ListOffsetArray","offsets":"i64","content":{"class":"NumpyArray","primitive":"float64"}}`),
		Buffers: []Buffer{
			{Key: "node1-data", Data: values, Width: 8, Float: true},
			{Key: "node0-offsets", Data: offsets, Width: 8},
			{Key: "node2-mask", Data: mask, Width: 1},
			{Key: "node3-data", Data: []byte{1, 2, 3}, Width: 1},
		},
		Metadata:  map[string]string{"author": "test", "unit": "GeV"},
		CreatedAt: time.Unix(1700000000, 0),
	}
}

func TestContainer_RoundTrip(t *testing.T) {
	c := testContainer()
	data, err := Marshal(c, WithCompressionLevel(5))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.ID != c.ID {
		t.Errorf("ID mismatch: %v vs %v", got.ID, c.ID)
	}
	if got.Length != c.Length {
		t.Errorf("Length mismatch: %d vs %d", got.Length, c.Length)
	}
	if !bytes.Equal(got.Form, c.Form) {
		t.Errorf("Form mismatch: %s", got.Form)
	}
	if got.Version != CurrentFormatVersion {
		t.Errorf("Version = %v, want %v", got.Version, CurrentFormatVersion)
	}
	if !got.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, c.CreatedAt)
	}
	if got.Metadata["author"] != "test" || got.Metadata["unit"] != "GeV" {
		t.Errorf("Metadata mismatch: %v", got.Metadata)
	}

	buffers := got.BufferMap()
	if len(buffers) != len(c.Buffers) {
		t.Fatalf("expected %d buffers, got %d", len(c.Buffers), len(buffers))
	}
	for _, b := range c.Buffers {
		if !bytes.Equal(buffers[b.Key], b.Data) {
			t.Errorf("buffer %s mismatch", b.Key)
		}
	}
	// buffers come back in key order
	for i := 1; i < len(got.Buffers); i++ {
		if got.Buffers[i-1].Key >= got.Buffers[i].Key {
			t.Errorf("buffers not sorted: %s before %s", got.Buffers[i-1].Key, got.Buffers[i].Key)
		}
	}
}

func TestContainer_Encodings(t *testing.T) {
	data, err := Marshal(testContainer())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	r := bytes.NewReader(data)
	header := &Header{}
	if _, err := header.ReadFrom(r); err != nil {
		t.Fatalf("ReadFrom header failed: %v", err)
	}
	if !header.HasFlag(FlagCompressed) || !header.HasFlag(FlagMetadata) {
		t.Errorf("unexpected header flags %b", header.Flags)
	}
	table := &BufferTable{}
	if _, err := table.ReadFrom(r); err != nil {
		t.Fatalf("ReadFrom table failed: %v", err)
	}

	want := map[string]encoding.Type{
		"node0-offsets": encoding.Zstd,
		"node1-data":    encoding.ByteStreamSplit,
		"node2-mask":    encoding.RLE,
		"node3-data":    encoding.Plain,
	}
	for _, e := range table.Entries {
		if e.Encoding != want[e.Key] {
			t.Errorf("buffer %s encoded as %v, want %v", e.Key, e.Encoding, want[e.Key])
		}
	}
}

func TestContainer_NilIDAndEmpty(t *testing.T) {
	c := &Container{Length: 0, Form: []byte(`{"class":"EmptyArray"}`)}
	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.ID == uuid.Nil {
		t.Error("expected a generated ID")
	}
	if len(got.Buffers) != 0 || len(got.Metadata) != 0 {
		t.Errorf("expected no buffers or metadata, got %d and %d", len(got.Buffers), len(got.Metadata))
	}
}

func TestContainer_Corrupted(t *testing.T) {
	data, err := Marshal(testContainer())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	t.Run("flipped byte", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[100] ^= 0x01
		_, err := Unmarshal(bad)
		if !lerrors.Is(err, lerrors.ErrCorrupted) {
			t.Fatalf("expected ErrCorrupted, got %v", err)
		}
	})

	t.Run("bad trailer magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-1] ^= 0xff
		_, err := Unmarshal(bad)
		if !lerrors.Is(err, lerrors.ErrInvalidMagic) {
			t.Fatalf("expected ErrInvalidMagic, got %v", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		if _, err := Unmarshal(data[:5]); err == nil {
			t.Fatal("expected error for truncated container")
		}
		if _, err := Unmarshal(data[:len(data)-20]); err == nil {
			t.Fatal("expected error for truncated container")
		}
	})
}

func TestContainer_DuplicateKeys(t *testing.T) {
	c := testContainer()
	c.Buffers = append(c.Buffers, Buffer{Key: "node3-data", Data: []byte{9}, Width: 1})
	if _, err := Marshal(c); !lerrors.Is(err, lerrors.ErrCorrupted) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestContainer_OlderVersion(t *testing.T) {
	c := testContainer()
	data, err := Marshal(c, WithVersion(V1_0))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	r := bytes.NewReader(data)
	header := &Header{}
	if _, err := header.ReadFrom(r); err != nil {
		t.Fatalf("ReadFrom header failed: %v", err)
	}
	table := &BufferTable{}
	if _, err := table.ReadFrom(r); err != nil {
		t.Fatalf("ReadFrom table failed: %v", err)
	}
	for _, e := range table.Entries {
		if !V1_0.HasFeature(EncodingFeature(e.Encoding)) {
			t.Errorf("buffer %s uses %v, which 1.0 does not support", e.Key, e.Encoding)
		}
		if e.Checksum != 0 {
			t.Errorf("buffer %s has a checksum in a 1.0 container", e.Key)
		}
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Version != V1_0 {
		t.Errorf("Version = %v, want %v", got.Version, V1_0)
	}
	buffers := got.BufferMap()
	for _, b := range c.Buffers {
		if !bytes.Equal(buffers[b.Key], b.Data) {
			t.Errorf("buffer %s mismatch", b.Key)
		}
	}

	if _, err := Marshal(c, WithVersion(VersionPolicy{MajorVersion: 2})); !lerrors.Is(err, lerrors.ErrVersionMismatch) {
		t.Errorf("expected ErrVersionMismatch for version 2.0, got %v", err)
	}
}

func TestContainer_EncodingNotInVersion(t *testing.T) {
	raw := bytes.Repeat([]byte{7}, 64)
	encoded, err := encoding.NewRLEEncoder().Encode(raw, 1)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	header := NewHeader(uuid.New(), 64, []byte(`{"class":"NumpyArray","primitive":"uint8"}`))
	header.Version = V1_0.Encoded()
	table := &BufferTable{Entries: []BufferEntry{{
		Key:      "node0-data",
		Encoding: encoding.RLE,
		Width:    1,
		Size:     int64(len(encoded)),
		RawSize:  int64(len(raw)),
	}}}

	var out bytes.Buffer
	if _, err := header.WriteTo(&out); err != nil {
		t.Fatalf("WriteTo header failed: %v", err)
	}
	if _, err := table.WriteTo(&out); err != nil {
		t.Fatalf("WriteTo table failed: %v", err)
	}
	out.Write(encoded)
	footer := NewFooter(1)
	footer.Version = V1_0.Encoded()
	prefix := append([]byte(nil), out.Bytes()...)
	if _, err := footer.WriteTo(&out, prefix); err != nil {
		t.Fatalf("WriteTo footer failed: %v", err)
	}

	_, err = Unmarshal(out.Bytes())
	if !lerrors.Is(err, lerrors.ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
}
