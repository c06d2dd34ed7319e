package cpy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FerroO2000/cpy/internal"
	"github.com/FerroO2000/cpy/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateTestConfig(t *testing.T, cfg *Config) error {
	t.Helper()

	return config.NewValidator(internal.NewTelemetry("test", "config")).Validate(cfg)
}

func Test_LoadConfig(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "cpy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
buffer:
  block_size: 16
  block_count: 8
producer:
  chunk_size: 128
watch:
  debounce: 250ms
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(16, cfg.Buffer.BlockSize)
	assert.Equal(8, cfg.Buffer.BlockCount)
	assert.Equal(128, cfg.Producer.ChunkSize)
	assert.Equal(250*time.Millisecond, cfg.Watch.Debounce)

	// Not in the file
	assert.Equal(DefaultWatchConfigDebounce, NewWatchConfig().Debounce)
	assert.Equal(NewConfig().Consumer.BufferSize, cfg.Consumer.BufferSize)

	require.NoError(t, validateTestConfig(t, cfg))
	assert.Equal(128, cfg.Buffer.Capacity)
}

func Test_LoadConfig_unknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buffer:\n  block_sise: 16\n"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func Test_LoadConfig_missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_Config_Validate(t *testing.T) {
	assert := assert.New(t)

	cfg := &Config{
		Watch: &WatchConfig{Debounce: -time.Second},
	}

	require.NoError(t, validateTestConfig(t, cfg))

	assert.Equal(NewConfig().Buffer, cfg.Buffer)
	assert.Equal(NewConfig().Producer, cfg.Producer)
	assert.Equal(NewConfig().Consumer, cfg.Consumer)
	assert.Equal(DefaultWatchConfigDebounce, cfg.Watch.Debounce)
}

func Test_Config_Validate_capacity(t *testing.T) {
	cfg := NewConfig()
	cfg.Buffer.Capacity = cfg.Buffer.BlockSize*cfg.Buffer.BlockCount + 1

	assert.ErrorIs(t, validateTestConfig(t, cfg), config.ErrInvalid)
}
