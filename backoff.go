package lockless

import "runtime"

// SpinLimit is the last Backoff step that busy-spins; later steps yield.
const SpinLimit = 6

// Snoozer is a retry strategy for CAS loops.
type Snoozer interface {
	// Snooze waits a little before the caller retries.
	Snooze()
	// Reset is called when the loop observed real progress.
	Reset()
}

// Backoff is an exponential spin-then-yield strategy.
// The zero value is ready to use.
type Backoff struct {
	step uint32
}

// Snooze spins 2^step times while step <= SpinLimit, then yields the
// processor on every further call.
func (b *Backoff) Snooze() {
	if b.step > SpinLimit {
		runtime.Gosched()
		return
	}
	for i := 0; i < 1<<b.step; i++ {
		cpuRelax()
	}
	b.step++
}

// Reset starts the next wait from the shortest spin again.
func (b *Backoff) Reset() {
	b.step = 0
}

// Step returns the current step.
func (b *Backoff) Step() uint32 {
	return b.step
}

// Yielding reports whether Snooze has stopped spinning.
func (b *Backoff) Yielding() bool {
	return b.step > SpinLimit
}

// NopBackoff retries immediately. Useful for single goroutine tests.
type NopBackoff struct{}

// Snooze returns immediately.
func (NopBackoff) Snooze() {}

// Reset does nothing.
func (NopBackoff) Reset() {}

func newBackoff() Snoozer {
	return new(Backoff)
}
