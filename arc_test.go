package lockless

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	text  string
	drops *atomic.Int64
}

func (g *greeting) Drop() {
	g.drops.Add(1)
}

func TestArcShareAcrossGoroutines(t *testing.T) {
	var drops atomic.Int64
	x := NewArc(&greeting{text: "hello", drops: &drops})
	y := x.Clone()

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.Equal(t, "hello", x.Get().text)
		x.Drop()
	}()

	assert.Equal(t, "hello", y.Get().text)
	<-done

	assert.Zero(t, drops.Load())
	y.Drop()
	assert.Equal(t, int64(1), drops.Load())
}

func TestArcCloneDropCount(t *testing.T) {
	const N = 64
	var drops atomic.Int64
	a := NewArc(dropTracker{drops: &drops})

	clones := make([]*Arc[dropTracker], N)
	for i := range clones {
		clones[i] = a.Clone()
	}
	require.Equal(t, int64(N+1), a.Count())

	for _, c := range clones {
		c.Drop()
	}
	require.Equal(t, int64(1), a.Count())
	require.Zero(t, drops.Load())

	a.Drop()
	assert.Equal(t, int64(1), drops.Load())
}

func TestArcConcurrentCloneDrop(t *testing.T) {
	var drops atomic.Int64
	a := NewArc(dropTracker{drops: &drops})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		h := a.Clone()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer h.Drop()
			for i := 0; i < 10_000; i++ {
				h.Clone().Drop()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int64(1), a.Count())
	require.Zero(t, drops.Load())
	a.Drop()
	assert.Equal(t, int64(1), drops.Load())
}

func TestArcGetMut(t *testing.T) {
	a := NewArc(41)

	p, ok := a.GetMut()
	require.True(t, ok)
	*p++
	assert.Equal(t, 42, a.Get())

	b := a.Clone()
	_, ok = a.GetMut()
	assert.False(t, ok, "shared handle must not hand out mutable access")

	b.Drop()
	_, ok = a.GetMut()
	assert.True(t, ok)
}

func TestArcUseAfterDrop(t *testing.T) {
	a := NewArc("v")
	b := a.Clone()
	a.Drop()

	assert.PanicsWithValue(t, ErrDroppedHandle, func() { a.Get() })
	assert.PanicsWithValue(t, ErrDroppedHandle, func() { a.Clone() })
	assert.PanicsWithValue(t, ErrDroppedHandle, func() { a.Drop() })
	assert.Equal(t, "v", b.Get())
	assert.Equal(t, int64(1), b.Count())
}

func TestArcCloneOverflow(t *testing.T) {
	a := NewArc(0)
	a.inner.refs.Store(maxRefs)

	assert.PanicsWithValue(t, "arc: reference count overflow", func() { a.Clone() })
	assert.Equal(t, int64(maxRefs), a.Count(), "a failed clone leaves the count unchanged")

	a.inner.refs.Store(2)
	b := a.Clone()
	assert.Equal(t, int64(3), b.Count())
}

func TestArcNilPointerValue(t *testing.T) {
	a := NewArc[*greeting](nil)
	b := a.Clone()
	a.Drop()
	assert.NotPanics(t, b.Drop)
}

func TestArcNonDropperValue(t *testing.T) {
	a := NewArc([]int{1, 2, 3})
	b := a.Clone()
	a.Drop()
	assert.Equal(t, []int{1, 2, 3}, b.Get())
	assert.NotPanics(t, b.Drop)
}
