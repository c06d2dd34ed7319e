// Package segbuf provides a byte-capacity bounded circular buffer split into
// fixed-size blocks, each guarded by its own lock, and coordinated by two counting
// semaphores tracking the empty and the full byte slots.
//
// The buffer is a passive shared resource: it does not move data by itself.
// A producer and a consumer own a private Cursor each and manipulate the block
// storage directly, following this protocol:
//
//   - acquire a permit (EmptySpaces for writing, FullSpaces for reading),
//     then lock the block addressed by the cursor;
//   - move one byte, advance the cursor, release a permit of the other semaphore;
//   - never block on a semaphore while holding a block lock;
//   - unlock the block when the cursor crosses its boundary.
package segbuf

import (
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Sentinel is the byte value signaling the end of the stream.
const Sentinel byte = 0

var (
	// ErrInvalidConfig is returned when the buffer sizing is not consistent.
	ErrInvalidConfig = errors.New("segmented buffer: invalid configuration")
	// ErrClosed is returned when waiting on a closed buffer.
	ErrClosed = errors.New("segmented buffer: buffer is closed")
	// ErrDestroyed is returned when destroying an already destroyed buffer.
	ErrDestroyed = errors.New("segmented buffer: buffer is destroyed")
)

// Buffer is a segmented bounded buffer of bytes.
type Buffer struct {
	capacity   int
	blockSize  int
	blockCount int

	blocks []*Block

	_ cpu.CacheLinePad

	// emptySpaces counts the slots that can be written
	emptySpaces *Semaphore

	_ cpu.CacheLinePad

	// fullSpaces counts the slots written but not yet read
	fullSpaces *Semaphore

	_ cpu.CacheLinePad

	closeOnce sync.Once
	done      chan struct{}

	isDestroyed atomic.Bool
}

// New returns a new segmented buffer.
// It returns ErrInvalidConfig if the capacity is not equal to
// the block size multiplied by the block count.
func New(cfg *Config) (*Buffer, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}

	blocks := make([]*Block, cfg.BlockCount)
	for idx := range cfg.BlockCount {
		blocks[idx] = newBlock(cfg.BlockSize)
	}

	done := make(chan struct{})
	capacity := int64(cfg.Capacity)

	return &Buffer{
		capacity:   cfg.Capacity,
		blockSize:  cfg.BlockSize,
		blockCount: cfg.BlockCount,

		blocks: blocks,

		emptySpaces: newSemaphore(capacity, capacity, done),
		fullSpaces:  newSemaphore(capacity, 0, done),

		done: done,
	}, nil
}

// Capacity returns the number of bytes the buffer can hold.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// BlockSize returns the number of bytes of each block.
func (b *Buffer) BlockSize() int {
	return b.blockSize
}

// BlockCount returns the number of blocks.
func (b *Buffer) BlockCount() int {
	return b.blockCount
}

// Block returns the block at the given index.
func (b *Buffer) Block(idx int) *Block {
	return b.blocks[idx]
}

// EmptySpaces returns the semaphore counting the slots not yet written.
func (b *Buffer) EmptySpaces() *Semaphore {
	return b.emptySpaces
}

// FullSpaces returns the semaphore counting the slots written but not yet read.
func (b *Buffer) FullSpaces() *Semaphore {
	return b.fullSpaces
}

// NewCursor returns a cursor addressing the first slot of the buffer.
func (b *Buffer) NewCursor() *Cursor {
	return newCursor(b.capacity, b.blockSize)
}

// Close closes the buffer. Every goroutine blocked on one of the
// semaphores is woken up with ErrClosed, and no more permits can be acquired.
// It is safe to call Close more than once.
func (b *Buffer) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}

// IsClosed states whether the buffer is closed.
func (b *Buffer) IsClosed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Destroy closes the buffer and releases its storage.
// It must be called only after both the producer and the consumer have terminated.
// It returns ErrDestroyed if the buffer has already been destroyed.
func (b *Buffer) Destroy() error {
	if !b.isDestroyed.CompareAndSwap(false, true) {
		return ErrDestroyed
	}

	b.Close()
	b.blocks = nil

	return nil
}
