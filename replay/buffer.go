// Package replay implements the recent-updates buffer: a bounded,
// multi-consumer, multicast queue of the most recently published
// updates (spec.md §4.5). Its design is modeled on
// github.com/bobg/multichan's reader-list-plus-sync.Cond approach
// (vendored by the teacher repo, stellar-slingshot/slidechain), with
// two additions multichan does not have: a fixed capacity with
// oldest-eviction, and per-cursor lag detection that severs a cursor
// that has fallen behind rather than growing the queue without bound.
package replay

import (
	"context"
	"sync"

	"github.com/caco26i/dcc/errs"
	"github.com/caco26i/dcc/updates"
)

// Buffer is a bounded multicast replay queue of size N (default 1024,
// see DefaultSize). Publishing never blocks on a consumer; consumers
// that fall more than N events behind the write head are severed with
// errs.ErrSlowConsumer.
type Buffer struct {
	mu   sync.Mutex
	cond sync.Cond

	cap    int
	ring   []updates.Update
	// seq is the sequence number the next published event will
	// receive. The buffer currently holds sequence numbers
	// [seq-filled, seq).
	seq    int64
	filled int
	head   int // index in ring of the oldest held item
	closed bool
}

// DefaultSize is the buffer capacity used when no override is given
// (spec.md §6).
const DefaultSize = 1024

// New creates a Buffer holding up to size events. A non-positive size
// selects DefaultSize.
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	b := &Buffer{cap: size, ring: make([]updates.Update, size)}
	b.cond.L = &b.mu
	return b
}

// Publish appends u to the buffer, evicting the oldest entry if the
// buffer is full, and wakes any cursor waiting for new data. Publish
// never blocks.
func (b *Buffer) Publish(u updates.Update) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.head + b.filled) % b.cap
	if b.filled == b.cap {
		// Evict oldest.
		b.head = (b.head + 1) % b.cap
	} else {
		b.filled++
	}
	b.ring[idx] = u
	b.seq++
	b.cond.Broadcast()
}

// Close marks the buffer closed; attached cursors see io.EOF-equivalent
// termination once they've drained everything published before Close.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// oldestSeqLocked returns the sequence number of the oldest item
// currently held (equal to seq when the buffer is empty). Must be
// called with b.mu held.
func (b *Buffer) oldestSeqLocked() int64 {
	return b.seq - int64(b.filled)
}

// Cursor tracks one subscriber's position in the Buffer.
type Cursor struct {
	b    *Buffer
	next int64 // sequence number of the next item this cursor will read
	done bool
}

// Attach returns a new Cursor positioned to replay every event
// currently held in the buffer (up to the last N), then live events,
// in original order. Attach must be called while the caller holds
// whatever external lock guarantees no write is missed between a
// snapshot of other state and this call (spec.md §5's hand-off
// atomicity requirement) — Attach itself only touches Buffer state.
func (b *Buffer) Attach() *Cursor {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Cursor{b: b, next: b.oldestSeqLocked()}
}

// AttachAfter returns a new Cursor positioned immediately after the
// first buffered event whose id equals lastID, scanning forward from
// the oldest held event. ok is false if lastID is not found among
// currently-held events (the buffer is not large enough, or lastID
// predates everything still held); callers should treat that as a
// fatal hand-off failure (spec.md §5 requires buffer capacity large
// enough that this never happens in practice).
func (b *Buffer) AttachAfter(lastID updates.BlockID) (c *Cursor, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.oldestSeqLocked()
	for i := 0; i < b.filled; i++ {
		seq := start + int64(i)
		idx := (b.head + i) % b.cap
		if id, has := updates.ID(b.ring[idx]); has && id == lastID {
			return &Cursor{b: b, next: seq + 1}, true
		}
	}
	return nil, false
}

// Next blocks until the next event is available, the cursor is
// severed for lag, the buffer is closed and drained, or ctx is
// canceled.
func (c *Cursor) Next(ctx context.Context) (updates.Update, error) {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()

	if c.done {
		return nil, errs.ErrSlowConsumer
	}

	done := make(chan struct{})
	defer close(done)
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				c.b.mu.Lock()
				c.b.cond.Broadcast()
				c.b.mu.Unlock()
			case <-done:
			}
		}()
	}

	for {
		oldest := c.b.oldestSeqLocked()
		if c.next < oldest {
			c.done = true
			return nil, errs.ErrSlowConsumer
		}
		if c.next < c.b.seq {
			idx := (c.b.head + int(c.next-oldest)) % c.b.cap
			u := c.b.ring[idx]
			c.next++
			return u, nil
		}
		if c.b.closed {
			return nil, nil
		}
		if ctx != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.b.cond.Wait()
	}
}

// Close detaches the cursor. It is a no-op: a detached cursor simply
// stops being read from and is garbage collected; it holds no
// resources in the Buffer that need releasing, and a dead or
// unreferenced cursor never blocks Publish.
func (c *Cursor) Close() {}
