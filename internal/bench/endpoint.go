package bench

import (
	"fmt"

	ring "github.com/randomizedcoder/go-lock-free-ring"

	"github.com/aradilov/lockless"
)

// endpoint is the surface every worker drives. producer identifies the
// calling producer for queues that shard by writer.
type endpoint interface {
	Push(producer int, v uint64) bool
	Pop() (uint64, bool)
}

func newEndpoint(cfg Config) (endpoint, error) {
	switch cfg.Queue {
	case KindSPSC:
		return ringEndpoint{q: lockless.NewSPSC[uint64](cfg.Capacity)}, nil
	case KindMPMC:
		return ringEndpoint{q: lockless.NewMPMC[uint64](cfg.Capacity)}, nil
	case KindMutex:
		return ringEndpoint{q: lockless.NewMutex[uint64](cfg.Capacity)}, nil
	case KindSharded:
		r, err := ring.NewShardedRing(cfg.Capacity, shardsFor(cfg.Producers))
		if err != nil {
			return nil, fmt.Errorf("create sharded ring: %w", err)
		}
		return shardedEndpoint{r: r}, nil
	case KindChannel:
		return chanEndpoint{ch: make(chan uint64, cfg.Capacity)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownQueue, cfg.Queue)
}

type ringEndpoint struct {
	q lockless.Queue[uint64]
}

func (e ringEndpoint) Push(_ int, v uint64) bool { return e.q.Push(v) }

func (e ringEndpoint) Pop() (uint64, bool) { return e.q.Pop() }

// Drop releases whatever the run left in the ring.
func (e ringEndpoint) Drop() {
	if d, ok := e.q.(lockless.Dropper); ok {
		d.Drop()
	}
}

// Inspector exposes the ring diagnostics for end-of-run reporting.
func (e ringEndpoint) Inspector() (lockless.Inspector, bool) {
	in, ok := e.q.(lockless.Inspector)
	return in, ok
}

// shardedRing is the part of go-lock-free-ring's sharded MPSC ring we use.
type shardedRing interface {
	Write(producerID uint64, v any) bool
	TryRead() (any, bool)
}

type shardedEndpoint struct {
	r shardedRing
}

func (e shardedEndpoint) Push(producer int, v uint64) bool {
	return e.r.Write(uint64(producer), v)
}

func (e shardedEndpoint) Pop() (uint64, bool) {
	v, ok := e.r.TryRead()
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

type chanEndpoint struct {
	ch chan uint64
}

func (e chanEndpoint) Push(_ int, v uint64) bool {
	select {
	case e.ch <- v:
		return true
	default:
		return false
	}
}

func (e chanEndpoint) Pop() (uint64, bool) {
	select {
	case v := <-e.ch:
		return v, true
	default:
		return 0, false
	}
}
