package ingress

import (
	"context"
	"io"

	"github.com/FerroO2000/cpy/internal"
	"github.com/FerroO2000/cpy/internal/config"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the producer stage configuration.
const (
	DefaultConfigChunkSize = 64
	MaxConfigChunkSize     = 1 << 20
)

// Config contains the configuration of a producer stage.
type Config struct {
	// ChunkSize is the number of bytes read from the source at once.
	// Each chunk is pushed into the buffer before reading the next one.
	ChunkSize int `yaml:"chunk_size"`
}

// NewConfig returns the default configuration of a producer stage.
func NewConfig() *Config {
	return &Config{
		ChunkSize: DefaultConfigChunkSize,
	}
}

// Validate checks the configuration.
func (c *Config) Validate(ac *config.AnomalyCollector) {
	config.CheckNotNegative(ac, "ChunkSize", &c.ChunkSize, DefaultConfigChunkSize)
	config.CheckNotZero(ac, "ChunkSize", &c.ChunkSize, DefaultConfigChunkSize)
	config.CheckNotGreater(ac, "ChunkSize", &c.ChunkSize, MaxConfigChunkSize)
}

/////////////
//  STAGE  //
/////////////

type stage struct {
	tel *internal.Telemetry

	cfg *Config

	buf      *buffer
	producer *producer

	source io.ReadCloser

	metrics *producerMetrics
}

func newStage(name string, buf *buffer, cfg *Config) *stage {
	return &stage{
		tel: internal.NewTelemetry("ingress", name),

		cfg: cfg,

		buf: buf,

		metrics: newProducerMetrics(),
	}
}

func (s *stage) init(source io.ReadCloser) error {
	s.tel.LogInfo("initializing")

	if err := config.NewValidator(s.tel).Validate(s.cfg); err != nil {
		return err
	}

	s.metrics.init(s.tel)

	s.producer = newProducer(s.tel, s.buf, s.cfg.ChunkSize, s.metrics)
	s.source = source

	return nil
}

// Run pushes the whole source into the buffer, followed by the sentinel byte.
// The source is closed before returning.
func (s *stage) Run(ctx context.Context) error {
	s.tel.LogInfo("running")

	defer s.closeSource()

	if err := s.producer.run(ctx, s.source); err != nil {
		s.tel.LogError("producer failed", err)
		return err
	}

	return nil
}

func (s *stage) closeSource() {
	if s.source == nil {
		return
	}

	if err := s.source.Close(); err != nil {
		s.tel.LogError("failed to close source", err)
	}

	s.source = nil
}

// Close closes the stage.
func (s *stage) Close() {
	s.tel.LogInfo("closing")

	s.closeSource()
	s.tel.Close()
}

// ReadBytes returns the number of bytes read from the source.
func (s *stage) ReadBytes() int64 {
	return s.metrics.readBytes.Load()
}

// SentBytes returns the number of bytes pushed into the buffer,
// the sentinel byte included.
func (s *stage) SentBytes() int64 {
	return s.metrics.sentBytes.Load()
}
