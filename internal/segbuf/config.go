package segbuf

import (
	"fmt"

	"github.com/FerroO2000/cpy/internal/config"
)

// Default values for the segmented buffer configuration.
const (
	DefaultConfigBlockSize  = 32
	DefaultConfigBlockCount = 64
	DefaultConfigCapacity   = DefaultConfigBlockSize * DefaultConfigBlockCount
)

// MaxCapacity is the largest capacity (in bytes) accepted for a buffer.
const MaxCapacity = 1 << 30

// Config contains the sizing of a segmented buffer.
type Config struct {
	// BlockSize is the number of bytes of each block.
	// A block is the unit of locking.
	BlockSize int `yaml:"block_size"`

	// BlockCount is the number of blocks of the buffer.
	BlockCount int `yaml:"block_count"`

	// Capacity is the total number of bytes the buffer can hold.
	// It must be equal to BlockSize * BlockCount. When zero,
	// it is derived from the other two fields.
	Capacity int `yaml:"capacity"`
}

// NewConfig returns the default configuration of a segmented buffer.
func NewConfig() *Config {
	return &Config{
		BlockSize:  DefaultConfigBlockSize,
		BlockCount: DefaultConfigBlockCount,
		Capacity:   DefaultConfigCapacity,
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckNotNegative(ac, "BlockSize", &c.BlockSize, DefaultConfigBlockSize)
	config.CheckNotZero(ac, "BlockSize", &c.BlockSize, DefaultConfigBlockSize)

	config.CheckNotNegative(ac, "BlockCount", &c.BlockCount, DefaultConfigBlockCount)
	config.CheckNotZero(ac, "BlockCount", &c.BlockCount, DefaultConfigBlockCount)

	if c.Capacity == 0 {
		c.Capacity = c.BlockSize * c.BlockCount
	}

	config.CheckProduct(ac, "Capacity", "BlockSize", "BlockCount", c.Capacity, c.BlockSize, c.BlockCount)

	config.CheckLimit(ac, "Capacity", c.Capacity, MaxCapacity)
}

// check is the strict counterpart of Validate: nothing is replaced.
func (c *Config) check() error {
	switch {
	case c.BlockSize <= 0:
		return fmt.Errorf("%w: block size must be positive, got %d", ErrInvalidConfig, c.BlockSize)

	case c.BlockCount <= 0:
		return fmt.Errorf("%w: block count must be positive, got %d", ErrInvalidConfig, c.BlockCount)

	case c.Capacity != c.BlockSize*c.BlockCount:
		return fmt.Errorf("%w: capacity %d is not block size %d * block count %d",
			ErrInvalidConfig, c.Capacity, c.BlockSize, c.BlockCount)

	case c.Capacity > MaxCapacity:
		return fmt.Errorf("%w: capacity %d exceeds %d", ErrInvalidConfig, c.Capacity, MaxCapacity)
	}

	return nil
}
