// Package connector contains the shared buffer connecting
// the producer (ingress) and the consumer (egress) stages.
package connector

import (
	"fmt"

	"github.com/FerroO2000/cpy/internal"
	"github.com/FerroO2000/cpy/internal/config"
	"github.com/FerroO2000/cpy/internal/segbuf"
)

// SegmentedBuffer is the staging buffer shared by exactly one producer
// and one consumer stage. It is created once per copy and destroyed
// once both stages have terminated.
type SegmentedBuffer struct {
	*segbuf.Buffer

	tel *internal.Telemetry
}

// NewSegmentedBuffer validates the configuration and returns a new segmented buffer.
// Recoverable anomalies (e.g. a zero block size) are replaced by the defaults,
// while a capacity that is not the product of the block size and the block count
// makes it fail with ErrInvalidConfig.
func NewSegmentedBuffer(cfg *BufferConfig) (*SegmentedBuffer, error) {
	tel := internal.NewTelemetry("connector", "segmented_buffer")

	if err := config.NewValidator(tel).Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	buf, err := segbuf.New(cfg)
	if err != nil {
		return nil, err
	}

	sb := &SegmentedBuffer{
		Buffer: buf,

		tel: tel,
	}

	sb.initMetrics()

	tel.LogDebug("segmented buffer created",
		"capacity", cfg.Capacity, "block_size", cfg.BlockSize, "block_count", cfg.BlockCount)

	return sb, nil
}

func (sb *SegmentedBuffer) initMetrics() {
	sb.tel.NewUpDownCounter("empty_spaces", func() int64 { return sb.EmptySpaces().Available() })
	sb.tel.NewUpDownCounter("full_spaces", func() int64 { return sb.FullSpaces().Available() })
}

// Destroy closes the buffer, releases its storage and its metrics.
// It must be called only after both stages have terminated.
func (sb *SegmentedBuffer) Destroy() error {
	if err := sb.Buffer.Destroy(); err != nil {
		return err
	}

	sb.tel.Close()
	sb.tel.LogDebug("segmented buffer destroyed")

	return nil
}
