package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewSegmentedBuffer(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	buf, err := NewSegmentedBuffer(NewBufferConfig())
	require.NoError(err)
	assert.Equal(2048, buf.Capacity())
	assert.Equal(64, buf.BlockCount())
	assert.Equal(32, buf.BlockSize())

	assert.NoError(buf.Destroy())
	assert.ErrorIs(buf.Destroy(), ErrDestroyed)
}

func Test_NewSegmentedBuffer_fallbacks(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// The capacity is derived when missing
	buf, err := NewSegmentedBuffer(&BufferConfig{BlockSize: 4, BlockCount: 2})
	require.NoError(err)
	assert.Equal(8, buf.Capacity())
	assert.NoError(buf.Destroy())

	// A zero block count falls back to the default
	buf, err = NewSegmentedBuffer(&BufferConfig{BlockSize: 4, BlockCount: 0, Capacity: 256})
	require.NoError(err)
	assert.Equal(64, buf.BlockCount())
	assert.NoError(buf.Destroy())
}

func Test_NewSegmentedBuffer_invalid(t *testing.T) {
	assert := assert.New(t)

	buf, err := NewSegmentedBuffer(&BufferConfig{BlockSize: 4, BlockCount: 2, Capacity: 9})
	assert.ErrorIs(err, ErrInvalidConfig)
	assert.Nil(buf)
}
