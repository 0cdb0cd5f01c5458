package bench

import (
	"errors"
	"fmt"
	"time"
)

// Kind names a queue implementation the harness can drive.
type Kind string

const (
	KindSPSC    Kind = "spsc"
	KindMPMC    Kind = "mpmc"
	KindMutex   Kind = "mutex"
	KindSharded Kind = "sharded"
	KindChannel Kind = "channel"
)

// Kinds lists every supported kind in report order.
func Kinds() []Kind {
	return []Kind{KindSPSC, KindMPMC, KindMutex, KindSharded, KindChannel}
}

var (
	// ErrUnknownQueue is returned for a Queue that names no Kind.
	ErrUnknownQueue = errors.New("unknown queue kind")
	// ErrInvalidTopology is returned when a queue cannot serve the requested
	// producer and consumer counts.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrInvalidConfig is returned for out-of-range sizes and durations.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrDelivery is returned when consumed values fail the delivery checks.
	ErrDelivery = errors.New("delivery check failed")
)

// Config describes one harness run.
type Config struct {
	Queue     Kind          `mapstructure:"queue"`
	Capacity  uint64        `mapstructure:"capacity"`
	Producers int           `mapstructure:"producers"`
	Consumers int           `mapstructure:"consumers"`
	Items     int           `mapstructure:"items"`
	BurstMax  int           `mapstructure:"burst-max"`
	Pin       bool          `mapstructure:"pin"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a 1P1C run over an MPMC ring.
func DefaultConfig() Config {
	return Config{
		Queue:     KindMPMC,
		Capacity:  1024,
		Producers: 1,
		Consumers: 1,
		Items:     1_000_000,
		BurstMax:  64,
		Timeout:   time.Minute,
	}
}

// Validate checks the config against the queue's thread topology.
func (c Config) Validate() error {
	if c.Capacity == 0 || c.Capacity&(c.Capacity-1) != 0 {
		return fmt.Errorf("%w: capacity %d is not a power of two", ErrInvalidConfig, c.Capacity)
	}
	if c.Producers < 1 || c.Consumers < 1 {
		return fmt.Errorf("%w: need at least one producer and one consumer", ErrInvalidConfig)
	}
	if c.Items < c.Producers {
		return fmt.Errorf("%w: %d items cannot be split across %d producers", ErrInvalidConfig, c.Items, c.Producers)
	}
	if c.BurstMax < 1 {
		return fmt.Errorf("%w: burst-max must be positive", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidConfig)
	}

	switch c.Queue {
	case KindSPSC:
		if c.Producers != 1 || c.Consumers != 1 {
			return fmt.Errorf("%w: spsc takes exactly one producer and one consumer, got %dP%dC",
				ErrInvalidTopology, c.Producers, c.Consumers)
		}
	case KindMPMC:
		if c.Capacity < 2 {
			return fmt.Errorf("%w: mpmc needs capacity >= 2", ErrInvalidConfig)
		}
	case KindSharded:
		if c.Consumers != 1 {
			return fmt.Errorf("%w: sharded ring takes a single consumer, got %d", ErrInvalidTopology, c.Consumers)
		}
		if c.Capacity < shardsFor(c.Producers) {
			return fmt.Errorf("%w: capacity %d is below the %d shards needed", ErrInvalidConfig, c.Capacity, shardsFor(c.Producers))
		}
	case KindMutex, KindChannel:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownQueue, c.Queue)
	}
	return nil
}

// PerProducer returns how many values each producer pushes.
func (c Config) PerProducer() int {
	return c.Items / c.Producers
}

// Total returns the number of values a complete run transfers.
func (c Config) Total() int {
	return c.PerProducer() * c.Producers
}

// shardsFor returns the smallest power of two >= producers.
func shardsFor(producers int) uint64 {
	n := uint64(1)
	for n < uint64(producers) {
		n <<= 1
	}
	return n
}
