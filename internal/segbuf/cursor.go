package segbuf

// Cursor is a role-private position into the logical (wrapped) buffer.
// It is a monotonically increasing counter, the slot index is
// computed as counter % capacity.
//
// A cursor is owned by a single goroutine and it is not safe for concurrent use.
type Cursor struct {
	pos uint64

	capacity  uint64
	blockSize uint64
}

func newCursor(capacity, blockSize int) *Cursor {
	return &Cursor{
		capacity:  uint64(capacity),
		blockSize: uint64(blockSize),
	}
}

// Pos returns the number of bytes the cursor has been advanced by.
func (c *Cursor) Pos() uint64 {
	return c.pos
}

// Index returns the slot index addressed by the cursor.
func (c *Cursor) Index() int {
	return int(c.pos % c.capacity)
}

// Block returns the index of the block containing the addressed slot.
func (c *Cursor) Block() int {
	return c.Index() / int(c.blockSize)
}

// Offset returns the offset of the addressed slot within its block.
func (c *Cursor) Offset() int {
	return int(c.pos % c.blockSize)
}

// Advance moves the cursor to the next slot.
// It reports whether the new slot is the first one of a block,
// i.e. whether a block boundary has been crossed.
func (c *Cursor) Advance() bool {
	c.pos++
	return c.pos%c.blockSize == 0
}
