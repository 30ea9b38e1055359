package encoding

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

type ZstdEncoder struct {
	level       int
	encoderPool *sync.Pool
}

// NewZstdEncoder returns a pooled encoder. Levels run from 1 (fastest) to 9
// (best compression) and are clamped to that range.
func NewZstdEncoder(level int) *ZstdEncoder {
	if level < 1 {
		level = 1
	}
	if level > 9 {
		level = 9
	}

	pool := &sync.Pool{
		New: func() interface{} {
			enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(level)))
			return enc
		},
	}

	return &ZstdEncoder{level: level, encoderPool: pool}
}

func encoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 3:
		return zstd.SpeedFastest
	case level <= 6:
		return zstd.SpeedDefault
	case level <= 8:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func (e *ZstdEncoder) Type() Type { return Zstd }

// Level returns the clamped compression level.
func (e *ZstdEncoder) Level() int { return e.level }

func (e *ZstdEncoder) Encode(data []byte, _ int) ([]byte, error) {
	return e.compress(data), nil
}

func (e *ZstdEncoder) compress(data []byte) []byte {
	encoder := e.encoderPool.Get().(*zstd.Encoder)
	defer e.encoderPool.Put(encoder)

	encoder.Reset(nil)
	return encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

type ZstdDecoder struct {
	decoderPool *sync.Pool
}

func NewZstdDecoder() (*ZstdDecoder, error) {
	pool := &sync.Pool{
		New: func() interface{} {
			dec, err := zstd.NewReader(nil)
			if err != nil {
				return err
			}
			return dec
		},
	}

	return &ZstdDecoder{decoderPool: pool}, nil
}

func (d *ZstdDecoder) Decode(data []byte, _, size int) ([]byte, error) {
	out, err := d.decompress(data, size)
	if err != nil {
		return nil, err
	}
	if len(out) != size {
		return nil, DecodeError("zstd", "zstd_decode", fmt.Errorf("decoded %d bytes, want %d", len(out), size))
	}
	return out, nil
}

func (d *ZstdDecoder) decompress(data []byte, size int) ([]byte, error) {
	decoderRaw := d.decoderPool.Get()
	if err, ok := decoderRaw.(error); ok {
		return nil, DecodeError("zstd", "zstd_decode", err)
	}
	decoder := decoderRaw.(*zstd.Decoder)
	defer d.decoderPool.Put(decoder)

	out, err := decoder.DecodeAll(data, make([]byte, 0, size))
	if err != nil {
		return nil, DecodeError("zstd", "zstd_decode", err)
	}
	return out, nil
}
