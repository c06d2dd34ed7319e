package cpy

import (
	"time"

	"github.com/FerroO2000/cpy/connector"
	"github.com/FerroO2000/cpy/egress"
	"github.com/FerroO2000/cpy/ingress"
	"github.com/FerroO2000/cpy/internal/config"
)

// Default values for the watch configuration.
const (
	DefaultWatchConfigDebounce = time.Second
	MaxWatchConfigDebounce     = time.Hour
)

// WatchConfig contains the configuration of the watch mode.
type WatchConfig struct {
	// Debounce is the duration to wait after the last change of the source
	// before copying it. This avoids copying a file that is still being written.
	Debounce time.Duration `yaml:"debounce"`
}

// NewWatchConfig returns the default configuration of the watch mode.
func NewWatchConfig() *WatchConfig {
	return &WatchConfig{
		Debounce: DefaultWatchConfigDebounce,
	}
}

// Validate checks the configuration.
func (c *WatchConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckNotNegative(ac, "Debounce", &c.Debounce, DefaultWatchConfigDebounce)
	config.CheckNotZero(ac, "Debounce", &c.Debounce, DefaultWatchConfigDebounce)
	config.CheckNotGreater(ac, "Debounce", &c.Debounce, MaxWatchConfigDebounce)
}

// Config contains the configuration of a copy.
type Config struct {
	// Buffer is the sizing of the segmented buffer.
	Buffer *connector.BufferConfig `yaml:"buffer"`

	// Producer is the configuration of the stage reading the source.
	Producer *ingress.Config `yaml:"producer"`

	// Consumer is the configuration of the stage writing the destination.
	Consumer *egress.Config `yaml:"consumer"`

	// Watch is only used by Watch.
	Watch *WatchConfig `yaml:"watch"`
}

// NewConfig returns the default configuration of a copy.
func NewConfig() *Config {
	return &Config{
		Buffer:   connector.NewBufferConfig(),
		Producer: ingress.NewConfig(),
		Consumer: egress.NewConfig(),
		Watch:    NewWatchConfig(),
	}
}

// LoadConfig reads the YAML configuration file at the given path.
// Missing values keep their default, except the buffer capacity which
// is derived from the block size and count when not set.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()
	cfg.Buffer.Capacity = 0

	if err := config.LoadYAML(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	if c.Buffer == nil {
		c.Buffer = connector.NewBufferConfig()
	}
	if c.Producer == nil {
		c.Producer = ingress.NewConfig()
	}
	if c.Consumer == nil {
		c.Consumer = egress.NewConfig()
	}
	if c.Watch == nil {
		c.Watch = NewWatchConfig()
	}

	c.Buffer.Validate(ac)
	c.Producer.Validate(ac)
	c.Consumer.Validate(ac)
	c.Watch.Validate(ac)
}
