package egress

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/FerroO2000/cpy/connector"
	"github.com/FerroO2000/cpy/internal"
	"github.com/FerroO2000/cpy/internal/segbuf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuffer(t *testing.T, blockSize, blockCount int) *buffer {
	t.Helper()

	buf, err := connector.NewSegmentedBuffer(&connector.BufferConfig{
		BlockSize:  blockSize,
		BlockCount: blockCount,
		Capacity:   blockSize * blockCount,
	})
	require.NoError(t, err)

	t.Cleanup(func() { buf.Destroy() })

	return buf
}

func newTestConsumer(buf *buffer) *consumer {
	return newConsumer(internal.NewTelemetry("egress", "test"), buf, newConsumerMetrics())
}

// feed writes the bytes into the buffer following the producer protocol.
func feed(t *testing.T, buf *buffer, cursor *segbuf.Cursor, data []byte) {
	t.Helper()

	for _, val := range data {
		require.NoError(t, buf.EmptySpaces().Acquire(t.Context()))

		block := buf.Block(cursor.Block())
		block.Lock()
		block.Set(cursor.Offset(), val)
		block.Unlock()

		cursor.Advance()
		buf.FullSpaces().Release()
	}
}

// recordingWriter records the size of every write call.
type recordingWriter struct {
	mux    sync.Mutex
	data   bytes.Buffer
	writes []int
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	rw.mux.Lock()
	defer rw.mux.Unlock()

	rw.writes = append(rw.writes, len(p))
	return rw.data.Write(p)
}

// shortWriter accepts at most limit bytes per write call.
type shortWriter struct {
	limit int
}

func (sw *shortWriter) Write(p []byte) (int, error) {
	return min(len(p), sw.limit), nil
}

func Test_consumer_recvByte(t *testing.T) {
	assert := assert.New(t)

	buf := newTestBuffer(t, 4, 2)
	cons := newTestConsumer(buf)

	feed(t, buf, buf.NewCursor(), []byte("HELLO"))

	out := []byte{}
	for range 5 {
		val, err := cons.recvByte(t.Context())
		assert.NoError(err)
		out = append(out, val)
	}

	assert.Equal([]byte("HELLO"), out)
	assert.Equal(uint64(5), cons.cursor.Pos())

	// The lock of the second block is kept between two received bytes
	assert.Same(buf.Block(1), cons.held)
	cons.release()
	assert.Nil(cons.held)

	assert.Equal(int64(8), buf.EmptySpaces().Available())
	assert.Equal(int64(0), buf.FullSpaces().Available())
}

func Test_consumer_recvByte_waits(t *testing.T) {
	assert := assert.New(t)

	buf := newTestBuffer(t, 4, 2)
	cons := newTestConsumer(buf)
	cursor := buf.NewCursor()

	feed(t, buf, cursor, []byte("a"))

	val, err := cons.recvByte(t.Context())
	assert.NoError(err)
	assert.Equal(byte('a'), val)

	received := make(chan byte)
	go func() {
		val, err := cons.recvByte(t.Context())
		assert.NoError(err)
		received <- val
	}()

	select {
	case <-received:
		t.Fatal("the consumer should block on an empty buffer")
	case <-time.After(20 * time.Millisecond):
	}

	// The consumer released the block while waiting,
	// so the producer can write into it
	feed(t, buf, cursor, []byte("b"))
	assert.Equal(byte('b'), <-received)
	assert.Equal(int64(1), cons.metrics.bufferWaits.Load())

	cons.release()
}

func Test_consumer_recvByte_canceled(t *testing.T) {
	assert := assert.New(t)

	buf := newTestBuffer(t, 4, 2)
	cons := newTestConsumer(buf)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	_, err := cons.recvByte(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.Nil(cons.held)
}

func Test_consumer_run_batches(t *testing.T) {
	assert := assert.New(t)

	buf := newTestBuffer(t, 4, 2)
	cons := newTestConsumer(buf)

	data := []byte("the quick brown fox jumps over the lazy dog")

	go feed(t, buf, buf.NewCursor(), append(bytes.Clone(data), segbuf.Sentinel))

	sink := &recordingWriter{}
	assert.NoError(cons.run(t.Context(), sink, 16))

	assert.Equal(data, sink.data.Bytes())
	assert.Equal([]int{16, 16, 11}, sink.writes)

	assert.Equal(int64(len(data)), cons.metrics.writtenBytes.Load())
	assert.Equal(int64(3), cons.metrics.flushes.Load())
	assert.Equal(int64(len(data)+1), cons.metrics.receivedBytes.Load())

	// The buffer is closed once the stream is over
	assert.True(buf.IsClosed())
	assert.Nil(cons.held)
}

func Test_consumer_run_sentinel(t *testing.T) {
	assert := assert.New(t)

	buf := newTestBuffer(t, 4, 2)
	cons := newTestConsumer(buf)

	feed(t, buf, buf.NewCursor(), []byte("AB\x00CD"))

	sink := &recordingWriter{}
	assert.NoError(cons.run(t.Context(), sink, 32))

	assert.Equal([]byte("AB"), sink.data.Bytes())
	assert.Equal(int64(3), cons.metrics.receivedBytes.Load())
}

func Test_consumer_run_empty(t *testing.T) {
	assert := assert.New(t)

	buf := newTestBuffer(t, 4, 2)
	cons := newTestConsumer(buf)

	feed(t, buf, buf.NewCursor(), []byte{segbuf.Sentinel})

	sink := &recordingWriter{}
	assert.NoError(cons.run(t.Context(), sink, 32))

	assert.Empty(sink.writes)
}

func Test_consumer_run_shortWrite(t *testing.T) {
	assert := assert.New(t)

	buf := newTestBuffer(t, 4, 2)
	cons := newTestConsumer(buf)

	feed(t, buf, buf.NewCursor(), []byte("abcdef\x00"))

	err := cons.run(t.Context(), &shortWriter{limit: 2}, 4)
	assert.ErrorIs(err, ErrShortWrite)
	assert.Equal(int64(1), cons.metrics.writeErrors.Load())
	assert.True(buf.IsClosed())
}

func Test_FileStage(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(os.WriteFile(path, []byte("previous content"), 0o600))

	buf := newTestBuffer(t, 4, 2)
	feed(t, buf, buf.NewCursor(), []byte("new\x00"))

	stage := NewFileStage(buf, path, NewConfig())
	require.NoError(stage.Init(t.Context()))
	assert.NoError(stage.Run(t.Context()))
	stage.Close()

	content, err := os.ReadFile(path)
	require.NoError(err)
	assert.Equal([]byte("new"), content)
	assert.Equal(int64(3), stage.WrittenBytes())
	assert.Equal(int64(4), stage.ReceivedBytes())
}

func Test_FileStage_openError(t *testing.T) {
	assert := assert.New(t)

	buf := newTestBuffer(t, 4, 2)

	// A directory cannot be opened for writing
	stage := NewFileStage(buf, t.TempDir(), NewConfig())
	assert.ErrorIs(stage.Init(t.Context()), ErrOpenSink)
	stage.Close()

	stage = NewFileStage(buf, filepath.Join(t.TempDir(), "missing", "out.txt"), NewConfig())
	assert.ErrorIs(stage.Init(t.Context()), ErrOpenSink)
	stage.Close()
}

func Test_WriterStage(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	buf := newTestBuffer(t, 4, 2)
	feed(t, buf, buf.NewCursor(), []byte("stdout\x00"))

	sink := &recordingWriter{}
	stage := NewWriterStage(buf, sink, &Config{BufferSize: -1})
	require.NoError(stage.Init(t.Context()))
	assert.Equal(DefaultConfigBufferSize, stage.cfg.BufferSize)

	assert.NoError(stage.Run(t.Context()))
	stage.Close()

	assert.Equal([]byte("stdout"), sink.data.Bytes())
}
