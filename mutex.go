package lockless

import "sync"

// Mutex is a ring guarded by one sync.Mutex. It serves as the reference the
// lock-free rings are checked and measured against. Any number of goroutines
// may call any method.
type Mutex[T any] struct {
	mu        sync.Mutex
	head      uint64
	tail      uint64
	mask      uint64
	capacity  uint64
	buf       []T
	needsDrop bool
}

// NewMutex creates a mutex-guarded ring.
// 'capacity' must be a power of two (1<<k), otherwise NewMutex panics.
func NewMutex[T any](capacity uint64) *Mutex[T] {
	checkCapacity(capacity)

	return &Mutex[T]{
		mask:      capacity - 1,
		capacity:  capacity,
		buf:       make([]T, capacity),
		needsDrop: needsDrop[T](),
	}
}

// Push adds v to the ring. Returns false if the ring is full.
func (q *Mutex[T]) Push(v T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head-q.tail == q.capacity {
		return false
	}
	q.buf[q.head&q.mask] = v
	q.head++
	return true
}

// Pop removes the oldest element. Returns (zero, false) if the ring is empty.
func (q *Mutex[T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.tail == q.head {
		return zero, false
	}
	i := q.tail & q.mask
	v := q.buf[i]
	q.buf[i] = zero
	q.tail++
	return v, true
}

// Drop drops every unread element and leaves the ring empty.
func (q *Mutex[T]) Drop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	for q.tail != q.head {
		i := q.tail & q.mask
		v := q.buf[i]
		q.buf[i] = zero
		q.tail++
		if q.needsDrop {
			dropValue(v)
		}
	}
}

// HeadIndex returns the slot the next Push writes to.
func (q *Mutex[T]) HeadIndex() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head & q.mask
}

// TailIndex returns the slot the next Pop reads from.
func (q *Mutex[T]) TailIndex() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tail & q.mask
}

// Occupied reports whether slot i (taken modulo capacity) holds an unread
// element.
func (q *Mutex[T]) Occupied(i uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return occupied(i, q.head, q.tail, q.mask)
}

// Len returns the number of unread elements.
func (q *Mutex[T]) Len() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head - q.tail
}

// Cap returns the fixed ring capacity.
func (q *Mutex[T]) Cap() uint64 {
	return q.capacity
}
