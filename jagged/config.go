package jagged

import (
	"github.com/go-kit/log"
)

// Config holds handle configuration
type Config struct {
	// Logger receives debug lines for handle operations and warnings for
	// failed ones. Defaults to a no-op logger.
	Logger log.Logger

	// Serialization
	CompressionLevel int    // 1-9 for ZSTD
	FormatVersion    string // container version written by MarshalBinary, "Major.Minor"; empty for the latest

	// Broadcasting
	ParallelRecords bool // transform record fields concurrently

	// Reductions
	MaskIdentity bool // empty groups reduce to missing instead of the identity
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Logger:           log.NewNopLogger(),
		CompressionLevel: 3,
		ParallelRecords:  false,
		MaskIdentity:     false,
	}
}

// Option is a functional option for configuration
type Option func(*Config)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger log.Logger) Option {
	return func(c *Config) {
		if logger == nil {
			logger = log.NewNopLogger()
		}
		c.Logger = logger
	}
}

// WithCompressionLevel sets the zstd level used by MarshalBinary
func WithCompressionLevel(level int) Option {
	return func(c *Config) {
		c.CompressionLevel = level
	}
}

// WithFormatVersion makes MarshalBinary write containers of an older
// version, such as "1.0", for readers that predate newer encodings
func WithFormatVersion(version string) Option {
	return func(c *Config) {
		c.FormatVersion = version
	}
}

// WithParallelRecords broadcasts record fields concurrently
func WithParallelRecords(enabled bool) Option {
	return func(c *Config) {
		c.ParallelRecords = enabled
	}
}

// WithMaskIdentity sets the default mask_identity of reductions
func WithMaskIdentity(enabled bool) Option {
	return func(c *Config) {
		c.MaskIdentity = enabled
	}
}

func newConfig(opts []Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.CompressionLevel < 1 || cfg.CompressionLevel > 9 {
		cfg.CompressionLevel = 3
	}
	return cfg
}
