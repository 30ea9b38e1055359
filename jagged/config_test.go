package jagged

import (
	"bytes"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg.Logger)
	assert.Equal(t, 3, cfg.CompressionLevel)
	assert.False(t, cfg.ParallelRecords)
	assert.False(t, cfg.MaskIdentity)
}

func TestOptions(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogfmtLogger(&buf)

	cfg := newConfig([]Option{
		WithLogger(logger),
		WithCompressionLevel(7),
		WithParallelRecords(true),
		WithMaskIdentity(true),
		WithFormatVersion("1.0"),
	})
	assert.Equal(t, 7, cfg.CompressionLevel)
	assert.Equal(t, "1.0", cfg.FormatVersion)
	assert.True(t, cfg.ParallelRecords)
	assert.True(t, cfg.MaskIdentity)

	require.NoError(t, cfg.Logger.Log("msg", "hello"))
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestOptionsNormalize(t *testing.T) {
	cfg := newConfig([]Option{WithLogger(nil), WithCompressionLevel(42)})
	require.NotNil(t, cfg.Logger)
	assert.Equal(t, 3, cfg.CompressionLevel)
}
