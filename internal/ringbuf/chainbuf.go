// Package ringbuf implements the chainbuf described in §4.2: a bounded,
// multi-chunk byte buffer with a monotonic write cursor and a monotonic
// read cursor, used as the transmit/receive buffer for each datasource
// transport. It is single-producer/single-consumer per instance.
package ringbuf

import "sync"

// DefaultChunkSize is the default fixed chunk size.
const DefaultChunkSize = 4096

type chunk struct {
	data []byte // len == chunkSize
	next *chunk
}

// ChainBuf is an ordered sequence of fixed-size chunks with FIFO chunk
// release. All public methods are safe for one writer and one reader
// calling concurrently; it is not safe for multiple concurrent writers
// or multiple concurrent readers.
type ChainBuf struct {
	mu sync.Mutex

	chunkSize int
	head      *chunk // oldest chunk still holding unconsumed bytes
	tail      *chunk // chunk currently being written into

	totalWritten int64
	totalRead    int64

	headOffset int // read position within head chunk
	tailOffset int // write position within tail chunk

	outstandingPeeks int
	dead             bool
	onError          func()
}

// New creates a ChainBuf with the given chunk size (DefaultChunkSize if <= 0).
func New(chunkSize int) *ChainBuf {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	first := &chunk{data: make([]byte, chunkSize)}
	return &ChainBuf{
		chunkSize: chunkSize,
		head:      first,
		tail:      first,
	}
}

// OnError registers a callback invoked when MarkDead is called; all
// pending data is discarded once the callback returns (§4.2).
func (c *ChainBuf) OnError(fn func()) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// MarkDead flags the buffer dead, fires the error callback if set, and
// drains all pending data.
func (c *ChainBuf) MarkDead() {
	c.mu.Lock()
	c.dead = true
	cb := c.onError
	c.mu.Unlock()

	if cb != nil {
		cb()
	}

	c.mu.Lock()
	first := &chunk{data: make([]byte, c.chunkSize)}
	c.head = first
	c.tail = first
	c.headOffset = 0
	c.tailOffset = 0
	c.totalRead = c.totalWritten
	c.mu.Unlock()
}

// Write appends bytes, allocating new chunks as needed. Always succeeds.
func (c *ChainBuf) Write(p []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	written := 0
	for written < len(p) {
		if c.tailOffset == c.chunkSize {
			nc := &chunk{data: make([]byte, c.chunkSize)}
			c.tail.next = nc
			c.tail = nc
			c.tailOffset = 0
		}
		n := copy(c.tail.data[c.tailOffset:], p[written:])
		c.tailOffset += n
		written += n
	}
	c.totalWritten += int64(written)
	return written
}

// Used returns the number of unconsumed bytes currently buffered.
func (c *ChainBuf) Used() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalWritten - c.totalRead
}

// ZeroCopyPeek returns whatever contiguous region is immediately
// available in the head chunk, up to max bytes, without copying. It
// never blocks and may return fewer than max (or zero) bytes.
func (c *ChainBuf) ZeroCopyPeek(max int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	available := c.tailOffset - c.headOffset
	if c.head != c.tail {
		available = c.chunkSize - c.headOffset
	}
	if available <= 0 {
		return nil
	}
	if available > max {
		available = max
	}
	return c.head.data[c.headOffset : c.headOffset+available]
}

// Peek returns a contiguous view of up to n bytes. If the logical region
// spans multiple chunks, a temporary copy is materialized. A view taken
// directly from the head chunk pins that chunk against release by
// Consume until the caller calls PeekFree(slice). Peek(n) where n > Used() returns only Used()
// bytes and never blocks (§8 boundary behavior).
func (c *ChainBuf) Peek(n int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	used := c.totalWritten - c.totalRead
	if int64(n) > used {
		n = int(used)
	}
	if n <= 0 {
		return nil
	}

	// Fast path: entirely within head chunk.
	headAvail := c.chunkSize - c.headOffset
	if c.head == c.tail {
		headAvail = c.tailOffset - c.headOffset
	}
	if n <= headAvail {
		c.outstandingPeeks++
		return c.head.data[c.headOffset : c.headOffset+n]
	}

	// Slow path: materialize a copy spanning chunks.
	out := make([]byte, n)
	copied := 0
	cur := c.head
	offset := c.headOffset
	for copied < n {
		avail := c.chunkSize - offset
		if cur == c.tail {
			avail = c.tailOffset - offset
		}
		take := n - copied
		if take > avail {
			take = avail
		}
		copy(out[copied:], cur.data[offset:offset+take])
		copied += take
		offset = 0
		if cur == c.tail {
			break
		}
		cur = cur.next
	}
	return out
}

// PeekFree releases a slice obtained from Peek by decrementing the
// count of outstanding zero-copy peeks that Consume checks before
// freeing the head chunk. It does not inspect slice, so it decrements
// the count for a copied slice as well.
func (c *ChainBuf) PeekFree(slice []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outstandingPeeks > 0 {
		c.outstandingPeeks--
	}
}

// Reserve returns a writable slice of up to n bytes directly into the
// tail chunk, growing it if necessary. If n exceeds the chunk's
// remaining capacity, a temporary buffer is returned instead; the
// producer must call Commit with the actual bytes used.
func (c *ChainBuf) Reserve(n int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tailOffset == c.chunkSize {
		nc := &chunk{data: make([]byte, c.chunkSize)}
		c.tail.next = nc
		c.tail = nc
		c.tailOffset = 0
	}
	remaining := c.chunkSize - c.tailOffset
	if n <= remaining {
		return c.tail.data[c.tailOffset : c.tailOffset+n]
	}
	return make([]byte, n)
}

// Commit advances the write cursor by used bytes. If slice was a
// temporary buffer from Reserve (because it exceeded chunk capacity),
// Commit copies it in via Write; otherwise it is already in place and
// only the cursor/counters move.
func (c *ChainBuf) Commit(slice []byte, used int) {
	c.mu.Lock()
	remaining := c.chunkSize - c.tailOffset
	inPlace := len(slice) <= remaining && c.tailOffset+len(slice) <= c.chunkSize &&
		sameBacking(c.tail.data[c.tailOffset:], slice)
	c.mu.Unlock()

	if inPlace {
		c.mu.Lock()
		c.tailOffset += used
		c.totalWritten += int64(used)
		c.mu.Unlock()
		return
	}
	c.Write(slice[:used])
}

func sameBacking(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	return &a[0] == &b[0]
}

// Consume advances the read cursor by n bytes, freeing any chunk fully
// behind the new read cursor in FIFO order. No chunk is freed while an
// outstanding Peek (fast-path, non-copying) refers to it.
func (c *ChainBuf) Consume(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := n
	for remaining > 0 {
		avail := c.chunkSize - c.headOffset
		if c.head == c.tail {
			avail = c.tailOffset - c.headOffset
		}
		if avail <= 0 {
			break
		}
		take := remaining
		if take > avail {
			take = avail
		}
		c.headOffset += take
		remaining -= take
		c.totalRead += int64(take)

		if c.headOffset == c.chunkSize && c.head != c.tail && c.outstandingPeeks == 0 {
			c.head = c.head.next
			c.headOffset = 0
		} else if c.headOffset == c.chunkSize && c.head == c.tail {
			// Fully drained the only chunk; reset in place rather than
			// freeing it, since producer will keep writing into tail.
			break
		}
	}
}
