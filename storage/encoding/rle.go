package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// RLEEncoder stores runs of equal width-byte values as
// [numRuns:4]([count:4][value:width])...
type RLEEncoder struct{}

func NewRLEEncoder() *RLEEncoder {
	return &RLEEncoder{}
}

func (e *RLEEncoder) Type() Type { return RLE }

func (e *RLEEncoder) Encode(data []byte, width int) ([]byte, error) {
	if err := checkWidth(data, width); err != nil {
		return nil, EncodeError("rle", "rle_encode", err)
	}
	type run struct {
		value []byte
		count uint32
	}
	var runs []run
	for i := 0; i < len(data); i += width {
		value := data[i : i+width]
		if len(runs) > 0 && bytes.Equal(runs[len(runs)-1].value, value) {
			runs[len(runs)-1].count++
			continue
		}
		runs = append(runs, run{value: value, count: 1})
	}

	buf := new(bytes.Buffer)
	buf.Grow(4 + len(runs)*(4+width))
	binary.Write(buf, binary.LittleEndian, uint32(len(runs)))
	for _, r := range runs {
		binary.Write(buf, binary.LittleEndian, r.count)
		buf.Write(r.value)
	}
	return buf.Bytes(), nil
}

type RLEDecoder struct{}

func NewRLEDecoder() *RLEDecoder {
	return &RLEDecoder{}
}

func (d *RLEDecoder) Decode(data []byte, width, size int) ([]byte, error) {
	if len(data) < 4 || width <= 0 {
		return nil, DecodeError("rle", "rle_decode", fmt.Errorf("data too short for header: %d bytes", len(data)))
	}
	numRuns := int(binary.LittleEndian.Uint32(data[0:4]))
	if need := 4 + numRuns*(4+width); len(data) < need {
		return nil, DecodeError("rle", "rle_decode", fmt.Errorf("insufficient data: have %d bytes, want %d", len(data), need))
	}
	out := make([]byte, 0, size)
	pos := 4
	for r := 0; r < numRuns; r++ {
		count := int(binary.LittleEndian.Uint32(data[pos:]))
		value := data[pos+4 : pos+4+width]
		pos += 4 + width
		if len(out)+count*width > size {
			return nil, DecodeError("rle", "rle_decode", fmt.Errorf("runs exceed the decoded size %d", size))
		}
		for i := 0; i < count; i++ {
			out = append(out, value...)
		}
	}
	if len(out) != size {
		return nil, DecodeError("rle", "rle_decode", fmt.Errorf("decoded %d bytes, want %d", len(out), size))
	}
	return out, nil
}
