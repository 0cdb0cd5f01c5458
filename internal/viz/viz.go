// Package viz animates the occupancy of an SPSC ring in a terminal. It only
// uses the ring's Push/Pop and introspection methods.
package viz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aradilov/lockless"
)

// ErrInvalidConfig is wrapped by every Config validation error.
var ErrInvalidConfig = errors.New("invalid viz config")

// Config controls one animation run.
type Config struct {
	Capacity      uint64        `mapstructure:"capacity"`
	ProducerSpeed float64       `mapstructure:"producer-speed"`
	ConsumerSpeed float64       `mapstructure:"consumer-speed"`
	Frames        int           `mapstructure:"frames"`
	Interval      time.Duration `mapstructure:"interval"`
	Clear         bool          `mapstructure:"clear"`
}

// DefaultConfig returns a 32-slot ring with a producer slightly faster than
// its consumer.
func DefaultConfig() Config {
	return Config{
		Capacity:      32,
		ProducerSpeed: 0.7,
		ConsumerSpeed: 0.5,
		Frames:        60,
		Interval:      100 * time.Millisecond,
	}
}

// Validate rejects non power of two capacities and negative values.
func (c Config) Validate() error {
	if c.Capacity == 0 || c.Capacity&(c.Capacity-1) != 0 {
		return fmt.Errorf("%w: capacity %d is not a power of two", ErrInvalidConfig, c.Capacity)
	}
	if c.ProducerSpeed < 0 || c.ConsumerSpeed < 0 {
		return fmt.Errorf("%w: speeds must not be negative", ErrInvalidConfig)
	}
	if c.Frames < 0 || c.Interval < 0 {
		return fmt.Errorf("%w: frames and interval must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Simulation feeds a ring at fractional producer and consumer speeds,
// expressed in elements per tick.
type Simulation struct {
	buffer *lockless.Arc[*lockless.SPSC[uint32]]

	producerAcc float64
	consumerAcc float64
	counter     uint32

	pushed   uint64
	rejected uint64
	popped   uint64
}

// New creates a simulation over an empty ring. It panics if capacity is not
// a power of two.
func New(capacity uint64) *Simulation {
	return &Simulation{buffer: lockless.NewSharedSPSC[uint32](capacity)}
}

// Tick advances the simulation by one frame.
func (s *Simulation) Tick(producerSpeed, consumerSpeed float64) {
	q := s.buffer.Get()

	s.producerAcc += producerSpeed
	for s.producerAcc >= 1 {
		s.counter++
		if q.Push(s.counter) {
			s.pushed++
		} else {
			s.rejected++
		}
		s.producerAcc--
	}

	s.consumerAcc += consumerSpeed
	for s.consumerAcc >= 1 {
		if _, ok := q.Pop(); ok {
			s.popped++
		}
		s.consumerAcc--
	}
}

// Render writes the ring as one row of cells: '#' occupied, '.' free. The
// row below marks the next write (H), the next read (T), or both (*).
func (s *Simulation) Render(w io.Writer) error {
	q := s.buffer.Get()
	n := q.Cap()
	head, tail := q.HeadIndex(), q.TailIndex()

	cells := make([]byte, n)
	marks := make([]byte, n)
	for i := uint64(0); i < n; i++ {
		cells[i] = '.'
		if q.Occupied(i) {
			cells[i] = '#'
		}
		switch {
		case i == head && i == tail:
			marks[i] = '*'
		case i == head:
			marks[i] = 'H'
		case i == tail:
			marks[i] = 'T'
		default:
			marks[i] = ' '
		}
	}

	_, err := fmt.Fprintf(w, "|%s|\n %s\nlen=%d/%d pushed=%d rejected=%d popped=%d\n",
		cells, strings.TrimRight(string(marks), " "),
		q.Len(), n, s.pushed, s.rejected, s.popped)
	return err
}

// Close releases the simulation's ring.
func (s *Simulation) Close() {
	s.buffer.Drop()
}

const (
	clearScreen = "\x1b[H\x1b[2J"
	legend      = "legend: # occupied  . free  H next write  T next read  * both\n"
)

// Run renders cfg.Frames frames, one every cfg.Interval.
func Run(ctx context.Context, w io.Writer, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	sim := New(cfg.Capacity)
	defer sim.Close()

	var tick <-chan time.Time
	if cfg.Interval > 0 {
		t := time.NewTicker(cfg.Interval)
		defer t.Stop()
		tick = t.C
	}

	if _, err := io.WriteString(w, legend); err != nil {
		return err
	}

	for frame := 0; frame < cfg.Frames; frame++ {
		sim.Tick(cfg.ProducerSpeed, cfg.ConsumerSpeed)

		if cfg.Clear {
			if _, err := io.WriteString(w, clearScreen); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "frame %d\n", frame); err != nil {
			return err
		}
		if err := sim.Render(w); err != nil {
			return fmt.Errorf("render frame %d: %w", frame, err)
		}

		if tick == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
	return nil
}
