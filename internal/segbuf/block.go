package segbuf

import (
	"sync"

	"golang.org/x/sys/cpu"
)

// Block is a fixed-size partition of the buffer with its own lock.
// While holding the lock, a goroutine may freely read and write
// every slot of the block.
type Block struct {
	sync.Locker

	_ cpu.CacheLinePad

	data []byte
}

func newBlock(size int) *Block {
	return &Block{
		Locker: &sync.Mutex{},

		data: make([]byte, size),
	}
}

// Set stores the byte into the slot at the given offset.
// The caller must hold the block lock.
func (b *Block) Set(offset int, val byte) {
	b.data[offset] = val
}

// At returns the byte stored in the slot at the given offset.
// The caller must hold the block lock.
func (b *Block) At(offset int) byte {
	return b.data[offset]
}

// Len returns the number of slots of the block.
func (b *Block) Len() int {
	return len(b.data)
}
