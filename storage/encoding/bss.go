package encoding

// BSSEncoder splits width-byte values into width streams, one per byte
// position, and compresses the result with zstd.
type BSSEncoder struct {
	zstd *ZstdEncoder
}

func NewBSSEncoder(level int) *BSSEncoder {
	return &BSSEncoder{zstd: NewZstdEncoder(level)}
}

func (e *BSSEncoder) Type() Type { return ByteStreamSplit }

func (e *BSSEncoder) Encode(data []byte, width int) ([]byte, error) {
	if err := checkWidth(data, width); err != nil {
		return nil, EncodeError("bss", "bss_encode", err)
	}
	return e.zstd.compress(splitStreams(data, width)), nil
}

// splitStreams writes byte b of value i to streams[b*n+i].
func splitStreams(data []byte, width int) []byte {
	n := len(data) / width
	out := make([]byte, len(data))
	for i := 0; i < n; i++ {
		for b := 0; b < width; b++ {
			out[b*n+i] = data[i*width+b]
		}
	}
	return out
}

func joinStreams(streams []byte, width int) []byte {
	n := len(streams) / width
	out := make([]byte, len(streams))
	for i := 0; i < n; i++ {
		for b := 0; b < width; b++ {
			out[i*width+b] = streams[b*n+i]
		}
	}
	return out
}

type BSSDecoder struct {
	zstd *ZstdDecoder
}

func NewBSSDecoder() (*BSSDecoder, error) {
	dec, err := NewZstdDecoder()
	if err != nil {
		return nil, err
	}
	return &BSSDecoder{zstd: dec}, nil
}

func (d *BSSDecoder) Decode(data []byte, width, size int) ([]byte, error) {
	streams, err := d.zstd.Decode(data, width, size)
	if err != nil {
		return nil, err
	}
	if err := checkWidth(streams, width); err != nil {
		return nil, DecodeError("bss", "bss_decode", err)
	}
	return joinStreams(streams, width), nil
}
