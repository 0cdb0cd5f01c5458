// Package bench drives the queue families with producer/consumer goroutine
// topologies and checks exactly-once delivery of every value.
package bench

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valyala/fastrand"
	"go.uber.org/zap"

	"github.com/aradilov/lockless"
)

// Stats counts the outcomes seen by one side of a run.
type Stats struct {
	Attempts    uint64
	Full        uint64
	Empty       uint64
	Transferred uint64
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Attempts += o.Attempts
	s.Full += o.Full
	s.Empty += o.Empty
	s.Transferred += o.Transferred
}

// Result is the outcome of Run.
type Result struct {
	Config    Config
	Elapsed   time.Duration
	Producers Stats
	Consumers Stats

	Sum             uint64 // sum of every consumed value
	Duplicates      uint64
	Missing         uint64
	OrderViolations uint64 // values of one producer seen out of order by one consumer
	Leftover        uint64 // elements still queued when the run stopped
}

// Throughput returns consumed values per second.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Consumers.Transferred) / r.Elapsed.Seconds()
}

type run struct {
	cfg    Config
	logger *zap.Logger

	stop     atomic.Bool
	consumed atomic.Int64
	seen     []atomic.Uint32
	sum      atomic.Uint64
	order    atomic.Uint64
	strange  atomic.Uint64 // values outside [0, total)
}

// Run executes cfg and blocks until every value was consumed, ctx is done or
// cfg.Timeout expires. A cancelled run returns the partial Result together
// with the context error.
func Run(ctx context.Context, logger *zap.Logger, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	ep, err := newEndpoint(cfg)
	if err != nil {
		return Result{}, err
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	r := &run{
		cfg:    cfg,
		logger: logger.With(zap.String("queue", string(cfg.Queue))),
		seen:   make([]atomic.Uint32, cfg.Total()),
	}
	stopWatch := context.AfterFunc(ctx, func() { r.stop.Store(true) })
	defer stopWatch()

	owner := lockless.NewArc[endpoint](ep)

	pstats := make([]Stats, cfg.Producers)
	cstats := make([]Stats, cfg.Consumers)

	var wg sync.WaitGroup
	start := time.Now()

	for c := 0; c < cfg.Consumers; c++ {
		h := owner.Clone()
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer h.Drop()
			defer r.pin(cfg.Producers + id)()
			cstats[id] = r.consume(h.Get())
		}(c)
	}

	for p := 0; p < cfg.Producers; p++ {
		h := owner.Clone()
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer h.Drop()
			defer r.pin(id)()
			pstats[id] = r.produce(h.Get(), id)
		}(p)
	}

	wg.Wait()

	res := Result{
		Config:          cfg,
		Elapsed:         time.Since(start),
		Sum:             r.sum.Load(),
		OrderViolations: r.order.Load(),
	}
	for _, s := range pstats {
		res.Producers.Add(s)
	}
	for _, s := range cstats {
		res.Consumers.Add(s)
	}
	if re, ok := owner.Get().(ringEndpoint); ok {
		if in, ok := re.Inspector(); ok {
			res.Leftover = in.Len()
		}
	}
	// last handle: releases anything a cancelled run left queued
	owner.Drop()

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%s run interrupted after %d of %d values: %w",
			cfg.Queue, res.Consumers.Transferred, cfg.Total(), err)
	}

	for i := range r.seen {
		switch n := r.seen[i].Load(); {
		case n == 0:
			res.Missing++
		case n > 1:
			res.Duplicates += uint64(n - 1)
		}
	}

	r.logger.Debug("run finished",
		zap.Duration("elapsed", res.Elapsed),
		zap.Uint64("producer_full", res.Producers.Full),
		zap.Uint64("consumer_empty", res.Consumers.Empty),
	)

	total := uint64(cfg.Total())
	switch {
	case res.Missing != 0 || res.Duplicates != 0 || r.strange.Load() != 0:
		return res, fmt.Errorf("%w: %s: %d missing, %d duplicated, %d out of range",
			ErrDelivery, cfg.Queue, res.Missing, res.Duplicates, r.strange.Load())
	case res.Sum != total*(total-1)/2:
		return res, fmt.Errorf("%w: %s: checksum %d, want %d", ErrDelivery, cfg.Queue, res.Sum, total*(total-1)/2)
	case res.OrderViolations != 0 && cfg.Queue != KindSharded:
		return res, fmt.Errorf("%w: %s: %d order violations", ErrDelivery, cfg.Queue, res.OrderViolations)
	}
	return res, nil
}

// pin binds the calling worker to a CPU when configured and returns the
// matching release.
func (r *run) pin(cpu int) func() {
	if !r.cfg.Pin {
		return func() {}
	}
	if err := pin(cpu); err != nil {
		r.logger.Warn("cpu pinning failed", zap.Int("cpu", cpu), zap.Error(err))
	}
	return runtime.UnlockOSThread
}

// produce pushes [id*per, (id+1)*per) in bursts of random length.
func (r *run) produce(ep endpoint, id int) Stats {
	var (
		st  Stats
		bo  lockless.Backoff
		rng fastrand.RNG
	)
	rng.Seed(uint32(id) + 1)

	per := r.cfg.PerProducer()
	base := uint64(id * per)

	for i := 0; i < per; {
		burst := int(rng.Uint32n(uint32(r.cfg.BurstMax))) + 1
		for ; burst > 0 && i < per; burst-- {
			st.Attempts++
			if ep.Push(id, base+uint64(i)) {
				st.Transferred++
				i++
				bo.Reset()
				continue
			}
			st.Full++
			if r.stop.Load() {
				return st
			}
			bo.Snooze()
		}
		runtime.Gosched()
	}
	return st
}

func (r *run) consume(ep endpoint) Stats {
	var (
		st Stats
		bo lockless.Backoff
	)
	total := int64(len(r.seen))
	per := uint64(r.cfg.PerProducer())

	last := make([]int64, r.cfg.Producers)
	for i := range last {
		last[i] = -1
	}

	var sum uint64
	defer func() { r.sum.Add(sum) }()

	for r.consumed.Load() < total {
		st.Attempts++
		v, ok := ep.Pop()
		if !ok {
			st.Empty++
			if r.stop.Load() {
				return st
			}
			bo.Snooze()
			continue
		}
		bo.Reset()
		st.Transferred++
		r.consumed.Add(1)

		if v >= uint64(total) {
			r.strange.Add(1)
			continue
		}
		r.seen[v].Add(1)
		sum += v

		p := v / per
		if int64(v) <= last[p] {
			r.order.Add(1)
		}
		last[p] = int64(v)
	}
	return st
}
