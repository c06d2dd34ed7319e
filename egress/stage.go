package egress

import (
	"context"
	"io"

	"github.com/FerroO2000/cpy/internal"
	"github.com/FerroO2000/cpy/internal/config"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the consumer stage configuration.
const (
	DefaultConfigBufferSize = 32
	MaxConfigBufferSize     = 1 << 20
)

// Config contains the configuration of a consumer stage.
type Config struct {
	// BufferSize is the size of the accumulation buffer used to batch
	// the writes to the sink. The sink receives one write call every
	// BufferSize bytes, plus a final one for the remainder.
	BufferSize int `yaml:"buffer_size"`
}

// NewConfig returns the default configuration of a consumer stage.
func NewConfig() *Config {
	return &Config{
		BufferSize: DefaultConfigBufferSize,
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckNotNegative(ac, "BufferSize", &c.BufferSize, DefaultConfigBufferSize)
	config.CheckNotZero(ac, "BufferSize", &c.BufferSize, DefaultConfigBufferSize)
	config.CheckNotGreater(ac, "BufferSize", &c.BufferSize, MaxConfigBufferSize)
}

/////////////
//  STAGE  //
/////////////

type stage struct {
	tel *internal.Telemetry

	cfg *Config

	buf      *buffer
	consumer *consumer

	sink io.Writer

	// closeSink syncs and closes the sink, it is nil for sinks
	// not owned by the stage
	closeSink func() error

	metrics *consumerMetrics
}

func newStage(name string, buf *buffer, cfg *Config) *stage {
	return &stage{
		tel: internal.NewTelemetry("egress", name),

		cfg: cfg,

		buf: buf,

		metrics: newConsumerMetrics(),
	}
}

func (s *stage) init(sink io.Writer, closeSink func() error) error {
	s.tel.LogInfo("initializing")

	if err := config.NewValidator(s.tel).Validate(s.cfg); err != nil {
		return err
	}

	s.metrics.init(s.tel)

	s.consumer = newConsumer(s.tel, s.buf, s.metrics)
	s.sink = sink
	s.closeSink = closeSink

	return nil
}

// Run writes the stream to the sink until the sentinel byte.
// The sink is closed before returning.
func (s *stage) Run(ctx context.Context) error {
	s.tel.LogInfo("running")

	if err := s.consumer.run(ctx, s.sink, s.cfg.BufferSize); err != nil {
		s.tel.LogError("consumer failed", err)
		s.close()
		return err
	}

	return s.close()
}

func (s *stage) close() error {
	if s.closeSink == nil {
		return nil
	}

	closeSink := s.closeSink
	s.closeSink = nil

	if err := closeSink(); err != nil {
		s.tel.LogError("failed to close sink", err)
		return err
	}

	return nil
}

// Close closes the stage.
func (s *stage) Close() {
	s.tel.LogInfo("closing")

	s.close()
	s.tel.Close()
}

// ReceivedBytes returns the number of bytes pulled out of the buffer,
// the sentinel byte included.
func (s *stage) ReceivedBytes() int64 {
	return s.metrics.receivedBytes.Load()
}

// WrittenBytes returns the number of bytes written to the sink.
func (s *stage) WrittenBytes() int64 {
	return s.metrics.writtenBytes.Load()
}
