package ingress

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/FerroO2000/cpy/internal"
	"github.com/FerroO2000/cpy/internal/segbuf"
	"go.opentelemetry.io/otel/attribute"
)

////////////////////////
//  PRODUCER METRICS  //
////////////////////////

type producerMetrics struct {
	readBytes   atomic.Int64
	sentBytes   atomic.Int64
	sentChunks  atomic.Int64
	bufferWaits atomic.Int64
}

func newProducerMetrics() *producerMetrics {
	return &producerMetrics{}
}

func (pm *producerMetrics) init(tel *internal.Telemetry) {
	tel.NewCounter("read_bytes", func() int64 { return pm.readBytes.Load() })
	tel.NewCounter("sent_bytes", func() int64 { return pm.sentBytes.Load() })
	tel.NewCounter("sent_chunks", func() int64 { return pm.sentChunks.Load() })
	tel.NewCounter("buffer_waits", func() int64 { return pm.bufferWaits.Load() })
}

func (pm *producerMetrics) addReadBytes(amount int) {
	pm.readBytes.Add(int64(amount))
}

func (pm *producerMetrics) addSentChunk(size int) {
	pm.sentBytes.Add(int64(size))
	pm.sentChunks.Add(1)
}

func (pm *producerMetrics) incrementBufferWaits() {
	pm.bufferWaits.Add(1)
}

////////////////
//  PRODUCER  //
////////////////

// producer is the writing side of the segmented buffer.
// It owns the write cursor, which is never shared.
type producer struct {
	tel *internal.Telemetry

	buf    *buffer
	cursor *segbuf.Cursor

	// held is the block currently locked by the producer, if any
	held *segbuf.Block

	chunkSize int

	metrics *producerMetrics
}

func newProducer(tel *internal.Telemetry, buf *buffer, chunkSize int, metrics *producerMetrics) *producer {
	return &producer{
		tel: tel,

		buf:    buf,
		cursor: buf.NewCursor(),

		chunkSize: chunkSize,

		metrics: metrics,
	}
}

func (p *producer) lock() {
	blockIdx := p.cursor.Block()

	p.held = p.buf.Block(blockIdx)
	p.held.Lock()

	if p.tel.DebugEnabled() {
		p.tel.LogDebug("producer locked block", "block", blockIdx)
	}
}

func (p *producer) unlock() {
	if p.held == nil {
		return
	}

	p.held.Unlock()
	p.held = nil
}

// acquireSlot acquires an empty slot permit and makes sure the block
// addressed by the write cursor is locked.
// The block lock is never held while waiting for a permit.
func (p *producer) acquireSlot(ctx context.Context) error {
	empty := p.buf.EmptySpaces()

	if empty.TryAcquire() {
		if p.held == nil {
			p.lock()
		}

		return nil
	}

	// Let the consumer drain the block while waiting
	p.unlock()

	p.metrics.incrementBufferWaits()
	if p.tel.DebugEnabled() {
		p.tel.LogDebug("producer ran out of buffer space", "cursor", p.cursor.Pos())
	}

	if err := empty.Acquire(ctx); err != nil {
		return err
	}

	p.lock()

	return nil
}

// sendChunk writes the chunk into the buffer, signaling the consumer
// for every written byte. It blocks while the buffer is full.
func (p *producer) sendChunk(ctx context.Context, chunk []byte) error {
	defer p.unlock()

	full := p.buf.FullSpaces()

	for _, val := range chunk {
		if err := p.acquireSlot(ctx); err != nil {
			return err
		}

		p.held.Set(p.cursor.Offset(), val)
		enteredNewBlock := p.cursor.Advance()

		full.Release()

		if enteredNewBlock {
			p.unlock()

			if p.tel.DebugEnabled() {
				p.tel.LogDebug("producer reached end of block", "next_block", p.cursor.Block())
			}
		}
	}

	p.metrics.addSentChunk(len(chunk))

	return nil
}

func (p *producer) send(ctx context.Context, chunk []byte) error {
	ctx, span := p.tel.NewTrace(ctx, "send chunk")
	defer span.End()

	span.SetAttributes(
		attribute.Int("chunk_size", len(chunk)),
		attribute.Int64("cursor", int64(p.cursor.Pos())),
	)

	if err := p.sendChunk(ctx, chunk); err != nil {
		span.RecordError(err)
		return err
	}

	return nil
}

// run reads the source chunk by chunk and sends every chunk to the buffer.
// When the source is exhausted, the sentinel byte is sent to terminate the stream.
func (p *producer) run(ctx context.Context, src io.Reader) error {
	reader := bufio.NewReaderSize(src, p.chunkSize)
	chunk := make([]byte, p.chunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := reader.Read(chunk)
		if n > 0 {
			p.metrics.addReadBytes(n)

			if sendErr := p.send(ctx, chunk[:n]); sendErr != nil {
				return p.handleSendError(sendErr)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return fmt.Errorf("%w: %w", ErrReadSource, err)
		}
	}

	if err := p.send(ctx, []byte{segbuf.Sentinel}); err != nil {
		return p.handleSendError(err)
	}

	p.tel.LogInfo("end of source reached", "sent_bytes", p.cursor.Pos()-1)

	return nil
}

// handleSendError returns the error to propagate for a failed send.
// A buffer closed by the consumer is not an error: the consumer found the
// sentinel byte before the end of the source, so the copy is truncated.
func (p *producer) handleSendError(err error) error {
	if errors.Is(err, segbuf.ErrClosed) {
		p.tel.LogWarn("buffer closed by the consumer, source truncated", "sent_bytes", p.cursor.Pos())
		return nil
	}

	return err
}
