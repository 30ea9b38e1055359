package encoding

// EncoderConfig holds configuration for encoder selection
type EncoderConfig struct {
	// SmallDataThreshold is the buffer size in bytes below which buffers are
	// stored plain.
	SmallDataThreshold int
	// RLEThreshold is the run ratio below which run-length encoding is used.
	RLEThreshold float64
	// BSSEntropyThreshold is the average byte entropy below which floating
	// point buffers are split into byte streams.
	BSSEntropyThreshold float64
}

// DefaultEncoderConfig returns default configuration
func DefaultEncoderConfig() *EncoderConfig {
	return &EncoderConfig{
		SmallDataThreshold:  64,
		RLEThreshold:        0.1,
		BSSEntropyThreshold: 4.0,
	}
}

// BufferHint describes the values of a buffer.
type BufferHint struct {
	// Width is the size of one value in bytes.
	Width int
	Float bool
}

// EncoderFactory is responsible for creating encoders with specific configurations.
type EncoderFactory struct {
	compressionLevel int
	config           *EncoderConfig
}

// NewEncoderFactory creates a new encoder factory with default config
func NewEncoderFactory(compressionLevel int) *EncoderFactory {
	return NewEncoderFactoryWithConfig(compressionLevel, nil)
}

// NewEncoderFactoryWithConfig creates a new encoder factory with custom config
func NewEncoderFactoryWithConfig(compressionLevel int, config *EncoderConfig) *EncoderFactory {
	if config == nil {
		config = DefaultEncoderConfig()
	}
	return &EncoderFactory{
		compressionLevel: compressionLevel,
		config:           config,
	}
}

// SelectEncoder picks an encoder for data. Small buffers stay plain, long
// runs such as masks and union tags use RLE, low-entropy
// floating point data is byte-stream split, and the rest is zstd.
func (f *EncoderFactory) SelectEncoder(data []byte, hint BufferHint) Encoder {
	if len(data) < f.config.SmallDataThreshold || hint.Width <= 0 || len(data)%hint.Width != 0 {
		return PlainEncoder{}
	}
	stats := ComputeStatistics(data, hint.Width)
	if stats.RunRatio() < f.config.RLEThreshold {
		return NewRLEEncoder()
	}
	if hint.Float && hint.Width > 1 && stats.AverageEntropy() < f.config.BSSEntropyThreshold {
		return NewBSSEncoder(f.compressionLevel)
	}
	return NewZstdEncoder(f.compressionLevel)
}

// CompressionLevel returns the compression level
func (f *EncoderFactory) CompressionLevel() int {
	return f.compressionLevel
}
