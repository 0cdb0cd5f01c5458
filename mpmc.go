package lockless

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Original algorithm by Dmitry Vyukov
// https://www.1024cores.net/home/lock-free-algorithms/queues/bounded-mpmc-queue

type slot[T any] struct {
	// seq == pos: free for the write of position pos
	// seq == pos+1: holds the value written for position pos
	seq atomic.Uint64
	val T
	_   cpu.CacheLinePad
}

// MPMC is a bounded lock-free ring safe for any number of producer and
// consumer goroutines. Each element is delivered to exactly one consumer.
type MPMC[T any] struct {
	head Padded[atomic.Uint64] // next write position (producers)
	tail Padded[atomic.Uint64] // next read position (consumers)

	mask       uint64
	capacity   uint64
	slots      []slot[T]
	needsDrop  bool
	newBackoff func() Snoozer
}

// NewMPMC creates a bounded MPMC ring.
// 'capacity' must be a power of two (1<<k) and at least 2, otherwise NewMPMC
// panics: with a single slot the published sequence pos+1 is also the free
// sequence of the next position.
func NewMPMC[T any](capacity uint64, opts ...Option) *MPMC[T] {
	checkCapacity(capacity)
	if capacity < 2 {
		panic(fmt.Errorf("%w: mpmc needs at least 2 slots, got %d", ErrInvalidCapacity, capacity))
	}
	o := newOptions(opts)

	slots := make([]slot[T], capacity)
	for i := uint64(0); i < capacity; i++ {
		// initial sequence for each slot matches its index
		slots[i].seq.Store(i)
	}

	return &MPMC[T]{
		mask:       capacity - 1,
		capacity:   capacity,
		slots:      slots,
		needsDrop:  needsDrop[T](),
		newBackoff: o.newBackoff,
	}
}

// NewSharedMPMC creates an MPMC ring owned by an Arc. Dropping the last handle
// drops every element still in the ring.
func NewSharedMPMC[T any](capacity uint64, opts ...Option) *Arc[*MPMC[T]] {
	return NewArc(NewMPMC[T](capacity, opts...))
}

// Push adds v to the ring.
// Returns false if the ring is full (overflow).
// Safe to call concurrently from many producer goroutines.
func (q *MPMC[T]) Push(v T) bool {
	var bo Snoozer
	pos := q.head.V.Load()
	for {
		s := &q.slots[pos&q.mask]

		seq := s.seq.Load()
		diff := int64(seq) - int64(pos)

		switch {
		case diff == 0:
			// Slot is free for this position, try to reserve it.
			if q.head.V.CompareAndSwap(pos, pos+1) {
				// We won this slot.
				s.val = v
				// Publish the value: seq = pos+1
				s.seq.Store(pos + 1)
				return true
			}
			pos = q.head.V.Load()
		case diff < 0:
			// The consumer of the previous cycle has not freed this slot.
			// Full, unless another producer moved head meanwhile.
			cur := q.head.V.Load()
			if cur == pos {
				return false
			}
			pos = cur
			if bo != nil {
				bo.Reset()
			}
			continue
		default:
			// diff > 0 => another producer already took pos.
			pos = q.head.V.Load()
		}

		if bo == nil {
			bo = q.newBackoff()
		}
		bo.Snooze()
	}
}

// Pop removes an element from the ring.
// Returns (zero, false) if the ring is empty.
// Safe to call concurrently from many consumer goroutines.
func (q *MPMC[T]) Pop() (T, bool) {
	var zero T
	var bo Snoozer
	pos := q.tail.V.Load()
	for {
		s := &q.slots[pos&q.mask]

		seq := s.seq.Load()
		diff := int64(seq) - int64(pos+1)

		switch {
		case diff == 0:
			// Element is ready for this position, try to claim it.
			if q.tail.V.CompareAndSwap(pos, pos+1) {
				v := s.val
				s.val = zero
				// Free the slot for the next cycle:
				// next time this physical slot will be used at pos+capacity.
				s.seq.Store(pos + q.capacity)
				return v, true
			}
			pos = q.tail.V.Load()
		case diff < 0:
			// Nothing written at pos yet. Empty, or a producer is between
			// its CAS and its publish; both mean nothing is available now.
			return zero, false
		default:
			// diff > 0 => another consumer already took pos.
			pos = q.tail.V.Load()
		}

		if bo == nil {
			bo = q.newBackoff()
		}
		bo.Snooze()
	}
}

// Drop drops every element in [tail, head) whose write has completed and
// leaves the ring empty. Each slot is released before its element is
// dropped, so a panicking Drop method leaves the remaining elements in place
// for another call. It must not run concurrently with Push or Pop.
func (q *MPMC[T]) Drop() {
	head := q.head.V.Load()
	tail := q.tail.V.Load()

	var zero T
	for pos := tail; pos != head; pos++ {
		s := &q.slots[pos&q.mask]
		if s.seq.Load() != pos+1 {
			q.tail.V.Store(pos + 1)
			continue
		}
		v := s.val
		s.val = zero
		s.seq.Store(pos + q.capacity)
		q.tail.V.Store(pos + 1)
		if q.needsDrop {
			dropValue(v)
		}
	}
}

// HeadIndex returns the slot the next Push claims.
func (q *MPMC[T]) HeadIndex() uint64 {
	return q.head.V.Load() & q.mask
}

// TailIndex returns the slot the next Pop claims.
func (q *MPMC[T]) TailIndex() uint64 {
	return q.tail.V.Load() & q.mask
}

// Occupied reports whether slot i (taken modulo capacity) holds a completely
// written, unread element. Diagnostics only.
func (q *MPMC[T]) Occupied(i uint64) bool {
	tail := q.tail.V.Load()
	head := q.head.V.Load()
	if !occupied(i, head, tail, q.mask) {
		return false
	}
	pos := tail + ((i - tail) & q.mask)
	return q.slots[i&q.mask].seq.Load() == pos+1
}

// Len returns the number of claimed, unread positions, approximately.
func (q *MPMC[T]) Len() uint64 {
	tail := q.tail.V.Load()
	head := q.head.V.Load()
	return clampLen(head, tail, q.capacity)
}

// Cap returns the fixed ring capacity.
func (q *MPMC[T]) Cap() uint64 {
	return q.capacity
}
