package connector

import (
	"github.com/FerroO2000/cpy/internal/segbuf"
)

// BufferConfig contains the sizing of a segmented buffer.
type BufferConfig = segbuf.Config

// Sentinel is the byte value signaling the end of the stream.
const Sentinel = segbuf.Sentinel

var (
	// ErrInvalidConfig is returned when the buffer sizing is not consistent.
	ErrInvalidConfig = segbuf.ErrInvalidConfig
	// ErrClosed is returned when waiting on a closed buffer.
	ErrClosed = segbuf.ErrClosed
	// ErrDestroyed is returned when destroying an already destroyed buffer.
	ErrDestroyed = segbuf.ErrDestroyed
)

// NewBufferConfig returns the default configuration of a segmented buffer:
// 64 blocks of 32 bytes each.
func NewBufferConfig() *BufferConfig {
	return segbuf.NewConfig()
}
