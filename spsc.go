package lockless

import (
	"sync/atomic"
)

// SPSC is a bounded lock-free ring for exactly one producer goroutine and
// exactly one consumer goroutine. Two concurrent Push calls, or two
// concurrent Pop calls, are a contract violation and are not detected.
type SPSC[T any] struct {
	head       Padded[atomic.Uint64] // next write position, stored by the producer
	tail       Padded[atomic.Uint64] // next read position, stored by the consumer
	cachedTail Padded[uint64]        // producer-local copy of tail
	cachedHead Padded[uint64]        // consumer-local copy of head

	mask      uint64
	capacity  uint64
	buf       []T
	needsDrop bool
}

// NewSPSC creates a bounded SPSC ring.
// 'capacity' must be a power of two (1<<k), otherwise NewSPSC panics.
func NewSPSC[T any](capacity uint64) *SPSC[T] {
	checkCapacity(capacity)

	return &SPSC[T]{
		mask:      capacity - 1,
		capacity:  capacity,
		buf:       make([]T, capacity),
		needsDrop: needsDrop[T](),
	}
}

// NewSharedSPSC creates an SPSC ring owned by an Arc. Dropping the last handle
// drops every element still in the ring.
func NewSharedSPSC[T any](capacity uint64) *Arc[*SPSC[T]] {
	return NewArc(NewSPSC[T](capacity))
}

// Push adds v to the ring.
// Returns false if the ring is full; the ring is left untouched.
// Producer goroutine only.
func (q *SPSC[T]) Push(v T) bool {
	head := q.head.V.Load()

	tail := q.cachedTail.V
	if head-tail == q.capacity {
		// Looks full from the cache, refresh it from the consumer's line.
		tail = q.tail.V.Load()
		q.cachedTail.V = tail
		if head-tail == q.capacity {
			return false
		}
	}

	q.buf[head&q.mask] = v
	// Publish the value to the consumer.
	q.head.V.Store(head + 1)
	return true
}

// Pop removes the oldest element.
// Returns (zero, false) if the ring is empty.
// Consumer goroutine only.
func (q *SPSC[T]) Pop() (T, bool) {
	var zero T
	tail := q.tail.V.Load()

	head := q.cachedHead.V
	if tail == head {
		// Looks empty from the cache, refresh it from the producer's line.
		head = q.head.V.Load()
		q.cachedHead.V = head
		if tail == head {
			return zero, false
		}
	}

	i := tail & q.mask
	v := q.buf[i]
	// The slot no longer owns v; clear it so it is never dropped twice.
	q.buf[i] = zero
	// Hand the slot back to the producer.
	q.tail.V.Store(tail + 1)
	return v, true
}

// Drop drops every element in [tail, head) and leaves the ring empty.
// Each slot is released before its element is dropped, so a panicking Drop
// method leaves the remaining elements in place for another call.
// It must not run concurrently with Push or Pop.
func (q *SPSC[T]) Drop() {
	head := q.head.V.Load()
	tail := q.tail.V.Load()
	q.cachedHead.V = head

	if !q.needsDrop {
		q.tail.V.Store(head)
		q.cachedTail.V = head
		return
	}

	var zero T
	for pos := tail; pos != head; pos++ {
		i := pos & q.mask
		v := q.buf[i]
		q.buf[i] = zero
		q.tail.V.Store(pos + 1)
		q.cachedTail.V = pos + 1
		dropValue(v)
	}
}

// HeadIndex returns the slot the next Push writes to.
func (q *SPSC[T]) HeadIndex() uint64 {
	return q.head.V.Load() & q.mask
}

// TailIndex returns the slot the next Pop reads from.
func (q *SPSC[T]) TailIndex() uint64 {
	return q.tail.V.Load() & q.mask
}

// Occupied reports whether slot i (taken modulo capacity) holds an unread
// element. Diagnostics only.
func (q *SPSC[T]) Occupied(i uint64) bool {
	tail := q.tail.V.Load()
	head := q.head.V.Load()
	return occupied(i, head, tail, q.mask)
}

// Len returns the number of unread elements, approximately.
func (q *SPSC[T]) Len() uint64 {
	tail := q.tail.V.Load()
	head := q.head.V.Load()
	return clampLen(head, tail, q.capacity)
}

// Cap returns the fixed ring capacity.
func (q *SPSC[T]) Cap() uint64 {
	return q.capacity
}
