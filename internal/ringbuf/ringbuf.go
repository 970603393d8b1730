// Package ringbuf provides a lock-free single-producer single-consumer
// ring buffer for market ticks. The WebSocket reader is the sole producer
// and the quote-cache drainer the sole consumer, so atomics with
// cache-line padding are enough, with no mutex on the tick hot path.
package ringbuf

import (
	"sync/atomic"

	"daytrader-systemv1/internal/model"
)

const cacheLine = 64

// Ring is a lock-free SPSC ring buffer for Tick values.
// Capacity is rounded up to a power of two for bitwise modulo.
type Ring struct {
	buf  []model.Tick
	mask uint64

	// Producer and consumer indices live on separate cache lines to
	// avoid false sharing.
	_pad0 [cacheLine]byte
	head  atomic.Uint64 // written by producer
	_pad1 [cacheLine]byte
	tail  atomic.Uint64 // written by consumer
	_pad2 [cacheLine]byte

	overflow atomic.Uint64
}

// New creates a ring buffer with at least the given capacity (minimum 2).
func New(capacity int) *Ring {
	c := nextPow2(capacity)
	if c < 2 {
		c = 2
	}
	return &Ring{
		buf:  make([]model.Tick, c),
		mask: uint64(c - 1),
	}
}

// Push appends a tick. Returns false (and drops the tick) when the buffer
// is full. Non-blocking.
func (r *Ring) Push(t model.Tick) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= uint64(len(r.buf)) {
		r.overflow.Add(1)
		return false
	}
	r.buf[head&r.mask] = t
	r.head.Store(head + 1)
	return true
}

// Pop retrieves the next tick, or false when the buffer is empty.
// Non-blocking.
func (r *Ring) Pop() (model.Tick, bool) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail >= head {
		return model.Tick{}, false
	}
	t := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return t, true
}

// Len returns the current number of buffered ticks.
func (r *Ring) Len() int { return int(r.head.Load() - r.tail.Load()) }

// Cap returns the buffer capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Overflow returns the number of ticks dropped on a full buffer.
func (r *Ring) Overflow() uint64 { return r.overflow.Load() }

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
