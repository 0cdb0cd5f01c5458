// Package lockless provides fixed-capacity ring buffers for producer/consumer
// pipelines: a single-producer/single-consumer ring (SPSC), a
// multi-producer/multi-consumer ring (MPMC) built on per-slot sequence
// numbers, a mutex-protected baseline (Mutex) and the Arc handle used to
// share them between goroutines with deterministic cleanup of unread values.
//
// Capacity is fixed at construction and must be a power of two. Push and Pop
// never block: a full or empty buffer is reported to the caller immediately.
package lockless

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrInvalidCapacity is wrapped by the panic value of every constructor that
// receives a zero or non power of two capacity.
var ErrInvalidCapacity = errors.New("capacity must be power of 2 and > 0")

// Dropper is implemented by values that need cleanup when they are discarded
// without being read: unread elements left in a buffer when it is dropped,
// or the value owned by the last Arc handle.
type Dropper interface {
	Drop()
}

// Queue is the transfer surface shared by every buffer in this package.
type Queue[T any] interface {
	// Push adds v to the buffer. It returns false if the buffer is full; v
	// then stays with the caller.
	Push(v T) bool
	// Pop removes the next element. It returns false if nothing is available.
	Pop() (T, bool)
	Cap() uint64
}

// Inspector exposes read-only diagnostics. None of its methods take part in
// the transfer protocol; results may be stale by the time they are used.
type Inspector interface {
	HeadIndex() uint64
	TailIndex() uint64
	Occupied(i uint64) bool
	Len() uint64
	Cap() uint64
}

var (
	_ Queue[int] = (*SPSC[int])(nil)
	_ Queue[int] = (*MPMC[int])(nil)
	_ Queue[int] = (*Mutex[int])(nil)

	_ Inspector = (*SPSC[int])(nil)
	_ Inspector = (*MPMC[int])(nil)
	_ Inspector = (*Mutex[int])(nil)

	_ Dropper = (*SPSC[int])(nil)
	_ Dropper = (*MPMC[int])(nil)
	_ Dropper = (*Mutex[int])(nil)
)

func checkCapacity(capacity uint64) {
	if capacity == 0 || (capacity&(capacity-1)) != 0 {
		panic(fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity))
	}
}

// needsDrop reports whether values of T may carry cleanup work. Interface
// element types are checked per value, so they always need the walk.
func needsDrop[T any]() bool {
	var zero T
	if _, ok := any(zero).(Dropper); ok {
		return true
	}
	return reflect.TypeFor[T]().Kind() == reflect.Interface
}

// dropValue runs v's cleanup. Nil pointers, maps, funcs, chans and slices
// carry nothing to clean up and are skipped.
func dropValue[T any](v T) {
	d, ok := any(v).(Dropper)
	if !ok {
		return
	}
	switch rv := reflect.ValueOf(d); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice:
		if rv.IsNil() {
			return
		}
	}
	d.Drop()
}

// occupied reports whether masked index i lies in [tail, head).
func occupied(i, head, tail, mask uint64) bool {
	n := head - tail
	if n == 0 {
		return false
	}
	return ((i&mask)-tail)&mask < n || n > mask
}

func clampLen(head, tail, capacity uint64) uint64 {
	// callers load tail before head: head-tail may overshoot but never wraps
	if n := head - tail; n < capacity {
		return n
	}
	return capacity
}
