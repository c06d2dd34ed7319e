package egress

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
//  CONSUMER METRICS  //
////////////////////////

type consumerMetrics struct {
	receivedBytes atomic.Int64
	writtenBytes  atomic.Int64
	flushes       atomic.Int64
	writeErrors   atomic.Int64
	bufferWaits   atomic.Int64
}

func newConsumerMetrics() *consumerMetrics {
	return &consumerMetrics{}
}

func (cm *consumerMetrics) init(tel *internal.Telemetry) {
	tel.NewCounter("received_bytes", func() int64 { return cm.receivedBytes.Load() })
	tel.NewCounter("written_bytes", func() int64 { return cm.writtenBytes.Load() })
	tel.NewCounter("flushes", func() int64 { return cm.flushes.Load() })
	tel.NewCounter("write_errors", func() int64 { return cm.writeErrors.Load() })
	tel.NewCounter("buffer_waits", func() int64 { return cm.bufferWaits.Load() })
}

func (cm *consumerMetrics) incrementReceivedBytes() {
	cm.receivedBytes.Add(1)
}

func (cm *consumerMetrics) addFlush(size int) {
	cm.writtenBytes.Add(int64(size))
	cm.flushes.Add(1)
}

func (cm *consumerMetrics) incrementWriteErrors() {
	cm.writeErrors.Add(1)
}

func (cm *consumerMetrics) incrementBufferWaits() {
	cm.bufferWaits.Add(1)
}

////////////////
//  CONSUMER  //
////////////////

// consumer is the reading side of the segmented buffer.
// It owns the read cursor, which is never shared.
type consumer struct {
	tel *internal.Telemetry

	buf    *buffer
	cursor *segbuf.Cursor

	// held is the block currently locked by the consumer, if any.
	// The lock is kept between two received bytes of the same block.
	held *segbuf.Block

	metrics *consumerMetrics
}

func newConsumer(tel *internal.Telemetry, buf *buffer, metrics *consumerMetrics) *consumer {
	return &consumer{
		tel: tel,

		buf:    buf,
		cursor: buf.NewCursor(),

		metrics: metrics,
	}
}

func (c *consumer) lock() {
	blockIdx := c.cursor.Block()

	c.held = c.buf.Block(blockIdx)
	c.held.Lock()

	if c.tel.DebugEnabled() {
		c.tel.LogDebug("consumer locked block", "block", blockIdx)
	}
}

// release unlocks the held block, if any.
func (c *consumer) release() {
	if c.held == nil {
		return
	}

	c.held.Unlock()
	c.held = nil
}

// acquireSlot acquires a full slot permit and makes sure the block
// addressed by the read cursor is locked.
// The block lock is never held while waiting for a permit.
func (c *consumer) acquireSlot(ctx context.Context) error {
	full := c.buf.FullSpaces()

	if full.TryAcquire() {
		if c.held == nil {
			c.lock()
		}

		return nil
	}

	// Let the producer fill the block while waiting
	c.release()

	c.metrics.incrementBufferWaits()
	if c.tel.DebugEnabled() {
		c.tel.LogDebug("consumer ran out of data", "cursor", c.cursor.Pos())
	}

	if err := full.Acquire(ctx); err != nil {
		return err
	}

	c.lock()

	return nil
}

// recvByte returns the next byte of the stream, blocking while the buffer is empty.
func (c *consumer) recvByte(ctx context.Context) (byte, error) {
	if err := c.acquireSlot(ctx); err != nil {
		return 0, err
	}

	val := c.held.At(c.cursor.Offset())
	enteredNewBlock := c.cursor.Advance()

	c.buf.EmptySpaces().Release()

	if enteredNewBlock {
		c.release()

		if c.tel.DebugEnabled() {
			c.tel.LogDebug("consumer reached end of block", "next_block", c.cursor.Block())
		}
	}

	c.metrics.incrementReceivedBytes()

	return val, nil
}

// flush writes the accumulated bytes to the sink in a single write call.
// The held block is released first, so the producer is never stalled
// by a slow sink.
func (c *consumer) flush(ctx context.Context, writer *bufio.Writer) error {
	size := writer.Buffered()
	if size == 0 {
		return nil
	}

	c.release()

	_, span := c.tel.NewTrace(ctx, "flush")
	defer span.End()

	span.SetAttributes(attribute.Int("size", size))

	if err := writer.Flush(); err != nil {
		c.metrics.incrementWriteErrors()
		span.RecordError(err)

		if errors.Is(err, io.ErrShortWrite) {
			return fmt.Errorf("%w: %d bytes requested: %w", ErrShortWrite, size, err)
		}

		return fmt.Errorf("%w: %w", ErrWriteSink, err)
	}

	c.metrics.addFlush(size)

	return nil
}

// run receives the bytes from the buffer until the sentinel byte,
// writing them to the sink in batches of batchSize bytes.
// The buffer is closed when run returns, so a producer still
// pushing bytes after the sentinel is not blocked forever.
func (c *consumer) run(ctx context.Context, sink io.Writer, batchSize int) error {
	defer c.buf.Close()
	defer c.release()

	writer := bufio.NewWriterSize(sink, batchSize)

	for {
		val, err := c.recvByte(ctx)
		if err != nil {
			return err
		}

		if val == segbuf.Sentinel {
			break
		}

		if writer.Available() == 0 {
			if err := c.flush(ctx, writer); err != nil {
				return err
			}
		}

		if err := writer.WriteByte(val); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteSink, err)
		}
	}

	if err := c.flush(ctx, writer); err != nil {
		return err
	}

	c.tel.LogInfo("end of stream reached", "received_bytes", c.cursor.Pos())

	return nil
}
