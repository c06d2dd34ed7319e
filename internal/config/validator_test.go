package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/FerroO2000/cpy/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Size  int `yaml:"size"`
	Count int `yaml:"count"`
	Total int `yaml:"total"`
}

func (c *testConfig) Validate(ac *AnomalyCollector) {
	CheckNotZero(ac, "Size", &c.Size, 4)
	CheckNotZero(ac, "Count", &c.Count, 2)
	CheckProduct(ac, "Total", "Size", "Count", c.Total, c.Size, c.Count)
}

func Test_Validator(t *testing.T) {
	assert := assert.New(t)

	validator := NewValidator(internal.NewTelemetry("config", "test"))

	cfg := &testConfig{Size: 0, Count: 2, Total: 8}
	assert.NoError(validator.Validate(cfg))
	assert.Equal(4, cfg.Size)

	cfg = &testConfig{Size: 4, Count: 2, Total: 9}
	err := validator.Validate(cfg)
	assert.ErrorIs(err, ErrInvalid)

	var fieldErr *FieldError
	assert.True(errors.As(err, &fieldErr))
	assert.Equal("Total", fieldErr.Field)
	assert.Equal(9, fieldErr.Actual)
}

func Test_LoadYAML(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()

	path := filepath.Join(dir, "cfg.yaml")
	require.NoError(os.WriteFile(path, []byte("size: 16\ntotal: 32\n"), 0o644))

	cfg := &testConfig{Size: 4, Count: 2, Total: 8}
	require.NoError(LoadYAML(path, cfg))
	assert.Equal(&testConfig{Size: 16, Count: 2, Total: 32}, cfg)

	emptyPath := filepath.Join(dir, "empty.yaml")
	require.NoError(os.WriteFile(emptyPath, nil, 0o644))
	assert.NoError(LoadYAML(emptyPath, cfg))

	unknownPath := filepath.Join(dir, "unknown.yaml")
	require.NoError(os.WriteFile(unknownPath, []byte("unknown: 1\n"), 0o644))
	assert.Error(LoadYAML(unknownPath, cfg))

	assert.Error(LoadYAML(filepath.Join(dir, "missing.yaml"), cfg))
}
