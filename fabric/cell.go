package fabric

import (
	"context"
	"errors"
	"sync"
)

// ErrCellClosed is returned when setting or awaiting a closed cell.
var ErrCellClosed = errors.New("fabric: cell is closed")

// Cell is a single-writer, multi-reader latest-value cell.
//
// Set overwrites the stored value and wakes every waiter; values overwritten
// before a consumer wakes are never observed (freshness-over-completeness).
// Waits are bounded by the caller's context so a stage never blocks past its
// own activation window.
type Cell[T any] struct {
	mu      sync.Mutex
	value   T
	seq     uint64
	changed chan struct{}
	closed  bool
}

// NewCell creates an empty cell. The sequence starts at zero; the first Set
// publishes sequence 1.
func NewCell[T any]() *Cell[T] {
	return &Cell[T]{changed: make(chan struct{})}
}

// Set overwrites the stored value, bumps the sequence and wakes all waiters.
// Never blocks. Returns ErrCellClosed after Close.
func (c *Cell[T]) Set(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrCellClosed
	}

	c.value = v
	c.seq++

	// Closing the channel is the broadcast; a fresh channel arms the next one.
	close(c.changed)
	c.changed = make(chan struct{})
	return nil
}

// AwaitNext blocks until the cell holds a value with sequence > afterSeq,
// then returns that value and its sequence.
//
// Returns ctx.Err() when the context expires first ("no new data this
// period") and ErrCellClosed once the cell is closed. A value already newer
// than afterSeq is returned immediately without blocking.
func (c *Cell[T]) AwaitNext(ctx context.Context, afterSeq uint64) (T, uint64, error) {
	var zero T
	for {
		c.mu.Lock()
		if c.seq > afterSeq {
			v, seq := c.value, c.seq
			c.mu.Unlock()
			return v, seq, nil
		}
		if c.closed {
			c.mu.Unlock()
			return zero, 0, ErrCellClosed
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, 0, ctx.Err()
		case <-changed:
			// Re-check under lock; another consumer may already be ahead.
		}
	}
}

// TryLatest returns the freshest value without blocking. ok is false while
// the cell has never been set.
func (c *Cell[T]) TryLatest() (T, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seq == 0 {
		var zero T
		return zero, 0, false
	}
	return c.value, c.seq, true
}

// Seq returns the current sequence number.
func (c *Cell[T]) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Close wakes all waiters and rejects further Set calls. Idempotent.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.changed)
}
