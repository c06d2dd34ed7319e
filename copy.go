package cpy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/FerroO2000/cpy/connector"
	"github.com/FerroO2000/cpy/egress"
	"github.com/FerroO2000/cpy/ingress"
	"github.com/FerroO2000/cpy/internal"
	"github.com/FerroO2000/cpy/internal/config"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StdStream is the path selecting stdin as source or stdout as destination.
const StdStream = "-"

// ErrSameFile is returned when the source and the destination are the same file.
var ErrSameFile = errors.New("cpy: source and destination are the same file")

// Report describes a completed (or failed) copy.
type Report struct {
	// ID identifies the copy in logs and traces.
	ID uuid.UUID

	Source      string
	Destination string

	// ReadBytes is the number of bytes read from the source.
	ReadBytes int64
	// WrittenBytes is the number of bytes written to the destination.
	// It is lower than ReadBytes when the source contains the sentinel byte.
	WrittenBytes int64

	Duration time.Duration
}

type producerStage interface {
	Stage
	ReadBytes() int64
}

type consumerStage interface {
	Stage
	WrittenBytes() int64
}

// Copy copies the source file to the destination file, which is created
// or truncated. Either path can be StdStream.
//
// The copy stops at the first zero byte of the source, which is the
// end-of-stream sentinel of the buffer.
func Copy(ctx context.Context, src, dst string, cfg *Config) (*Report, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	if isSameFile(src, dst) {
		return nil, ErrSameFile
	}

	c, err := newCopier(src, dst, cfg)
	if err != nil {
		return nil, err
	}

	var prod producerStage
	if src == StdStream {
		prod = ingress.NewReaderStage(c.buf, os.Stdin, cfg.Producer)
	} else {
		prod = ingress.NewFileStage(c.buf, src, cfg.Producer)
	}

	var cons consumerStage
	if dst == StdStream {
		cons = egress.NewWriterStage(c.buf, os.Stdout, cfg.Consumer)
	} else {
		cons = egress.NewFileStage(c.buf, dst, cfg.Consumer)
	}

	return c.run(ctx, prod, cons)
}

// isSameFile states whether the two paths refer to the same existing file.
// Copying a file onto itself would truncate it before it is read.
func isSameFile(src, dst string) bool {
	if src == StdStream || dst == StdStream {
		return false
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}

	dstInfo, err := os.Stat(dst)
	if err != nil {
		return false
	}

	return os.SameFile(srcInfo, dstInfo)
}

// CopyStream copies the reader to the writer. Neither is closed.
func CopyStream(ctx context.Context, src io.Reader, dst io.Writer, cfg *Config) (*Report, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	c, err := newCopier("reader", "writer", cfg)
	if err != nil {
		return nil, err
	}

	prod := ingress.NewReaderStage(c.buf, src, cfg.Producer)
	cons := egress.NewWriterStage(c.buf, dst, cfg.Consumer)

	return c.run(ctx, prod, cons)
}

type copier struct {
	tel *internal.Telemetry

	report *Report

	buf *connector.SegmentedBuffer
}

func newCopier(src, dst string, cfg *Config) (*copier, error) {
	tel := internal.NewTelemetry("pipeline", "copy")

	if err := config.NewValidator(tel).Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", connector.ErrInvalidConfig, err)
	}

	buf, err := connector.NewSegmentedBuffer(cfg.Buffer)
	if err != nil {
		return nil, err
	}

	return &copier{
		tel: tel,

		report: &Report{
			ID:          uuid.New(),
			Source:      src,
			Destination: dst,
		},

		buf: buf,
	}, nil
}

func (c *copier) run(ctx context.Context, prod producerStage, cons consumerStage) (*Report, error) {
	defer c.destroy()

	report := c.report
	copyID := report.ID.String()

	ctx, span := c.tel.NewTrace(ctx, "copy")
	defer span.End()

	span.SetAttributes(
		attribute.String("copy_id", copyID),
		attribute.String("source", report.Source),
		attribute.String("destination", report.Destination),
	)

	c.tel.LogInfo("starting copy", "copy_id", copyID, "source", report.Source, "destination", report.Destination)

	startTime := time.Now()

	pipeline := NewPipeline()
	pipeline.AddStage(prod)
	pipeline.AddStage(cons)

	if err := pipeline.Init(ctx); err != nil {
		c.fail(span, err)
		return report, err
	}

	err := pipeline.Run(ctx)
	pipeline.Close()

	report.ReadBytes = prod.ReadBytes()
	report.WrittenBytes = cons.WrittenBytes()
	report.Duration = time.Since(startTime)

	span.SetAttributes(
		attribute.Int64("read_bytes", report.ReadBytes),
		attribute.Int64("written_bytes", report.WrittenBytes),
	)

	if err != nil {
		c.fail(span, err)
		return report, err
	}

	if report.WrittenBytes < report.ReadBytes {
		c.tel.LogWarn("copy truncated by a sentinel byte in the source",
			"copy_id", copyID, "read_bytes", report.ReadBytes, "written_bytes", report.WrittenBytes)
	}

	c.tel.LogInfo("copy completed",
		"copy_id", copyID, "written_bytes", report.WrittenBytes, "duration", report.Duration)

	return report, nil
}

func (c *copier) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "copy failed")

	c.tel.LogError("copy failed", err, "copy_id", c.report.ID.String())
}

func (c *copier) destroy() {
	if err := c.buf.Destroy(); err != nil {
		c.tel.LogError("failed to destroy buffer", err)
	}

	c.tel.Close()
}
