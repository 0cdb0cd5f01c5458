package lockless

import (
	"errors"
	"math"
	"sync/atomic"
)

// ErrDroppedHandle is the panic value raised when a dropped Arc is used.
var ErrDroppedHandle = errors.New("arc: handle already dropped")

// maxRefs bounds the count well before int64 could wrap into a double drop.
const maxRefs = math.MaxInt64 / 2

type arcInner[T any] struct {
	refs  atomic.Int64
	value T
}

// Arc is an atomically reference-counted handle to a value of type T.
//
// Every goroutine that needs the value owns its own handle (Clone) and gives
// it up with Drop. The last Drop runs the value's Drop method if T
// implements Dropper. Memory itself is reclaimed by the garbage collector;
// Arc only decides when cleanup of the value happens, exactly once.
//
// A single handle must not be used from two goroutines at the same time.
type Arc[T any] struct {
	inner *arcInner[T]
}

// NewArc wraps v with a reference count of 1.
func NewArc[T any](v T) *Arc[T] {
	in := &arcInner[T]{value: v}
	in.refs.Store(1)
	return &Arc[T]{inner: in}
}

func (a *Arc[T]) load() *arcInner[T] {
	if a.inner == nil {
		panic(ErrDroppedHandle)
	}
	return a.inner
}

// Clone returns a new handle to the same value.
// It panics if the count grows past math.MaxInt64/2; the count is left as it
// was before the call.
func (a *Arc[T]) Clone() *Arc[T] {
	in := a.load()
	if in.refs.Add(1) > maxRefs {
		in.refs.Add(-1)
		panic("arc: reference count overflow")
	}
	return &Arc[T]{inner: in}
}

// Drop releases this handle. The handle is unusable afterwards.
func (a *Arc[T]) Drop() {
	in := a.load()
	a.inner = nil

	if in.refs.Add(-1) != 0 {
		return
	}
	// last holder: every other handle is gone, nobody else can observe value
	v := in.value
	var zero T
	in.value = zero
	dropValue(v)
}

// Get returns the shared value.
func (a *Arc[T]) Get() T {
	return a.load().value
}

// GetMut returns the value for exclusive modification if this is the only
// handle. The check is advisory: a Clone of this same handle made after the
// call is the caller's responsibility.
func (a *Arc[T]) GetMut() (*T, bool) {
	in := a.load()
	if in.refs.Load() != 1 {
		return nil, false
	}
	return &in.value, true
}

// Count returns the current number of live handles.
func (a *Arc[T]) Count() int64 {
	return a.load().refs.Load()
}
