package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aradilov/lockless/internal/bench"
)

// queueAll runs every kind that accepts the configured topology.
const queueAll = "all"

// ErrNoQueue is returned when --queue all finds no kind for the topology.
var ErrNoQueue = errors.New("no queue kind accepts this topology")

func newBenchCommand(a *app) *cobra.Command {
	def := bench.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a producer/consumer workload and verify delivery",
		Long: `Run pushes items distinct values from the producers to the consumers and
checks that each was delivered exactly once, in per-producer order.

Examples:
  ringbench bench --queue spsc --items 10000000
  ringbench bench --queue all --producers 4 --consumers 4
  ringbench bench --queue mpmc --capacity 256 --pin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bindFlags(cmd); err != nil {
				return err
			}
			cfg := bench.DefaultConfig()
			if err := a.v.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("decode bench config: %w", err)
			}
			return a.runBench(cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.String("queue", string(def.Queue), fmt.Sprintf("queue kind: %v or %s", bench.Kinds(), queueAll))
	f.Uint64("capacity", def.Capacity, "ring capacity, power of two")
	f.Int("producers", def.Producers, "producer goroutines")
	f.Int("consumers", def.Consumers, "consumer goroutines")
	f.Int("items", def.Items, "values pushed in total, split across producers")
	f.Int("burst-max", def.BurstMax, "longest burst a producer pushes before yielding")
	f.Bool("pin", def.Pin, "pin workers to CPUs")
	f.Duration("timeout", def.Timeout, "abort the run after this long (0 disables)")
	return cmd
}

func (a *app) runBench(cmd *cobra.Command, cfg bench.Config) error {
	kinds := []bench.Kind{cfg.Queue}
	if cfg.Queue == queueAll {
		kinds = kinds[:0]
		for _, k := range bench.Kinds() {
			c := cfg
			c.Queue = k
			if err := c.Validate(); err != nil {
				a.logger.Debug("skipping queue", zap.String("queue", string(k)), zap.Error(err))
				continue
			}
			kinds = append(kinds, k)
		}
		if len(kinds) == 0 {
			return fmt.Errorf("%w: %dP%dC", ErrNoQueue, cfg.Producers, cfg.Consumers)
		}
	}

	out := cmd.OutOrStdout()
	printHeader(out)
	for _, k := range kinds {
		c := cfg
		c.Queue = k
		res, err := bench.Run(cmd.Context(), a.logger, c)
		if err != nil {
			a.logger.Error("bench failed", zap.String("queue", string(k)), zap.Error(err))
			return err
		}
		a.logger.Info("bench finished",
			zap.String("queue", string(k)),
			zap.Int("producers", c.Producers),
			zap.Int("consumers", c.Consumers),
			zap.Uint64("capacity", c.Capacity),
			zap.Duration("elapsed", res.Elapsed),
			zap.Float64("ops_per_sec", res.Throughput()),
		)
		printResult(out, res)
	}
	return nil
}

func printHeader(w io.Writer) {
	fmt.Fprintf(w, "%-8s %-6s %9s %12s %14s %10s %10s\n",
		"queue", "topo", "capacity", "elapsed", "ops/sec", "full", "empty")
}

func printResult(w io.Writer, res bench.Result) {
	c := res.Config
	fmt.Fprintf(w, "%-8s %-6s %9d %12s %14.0f %10d %10d\n",
		c.Queue, fmt.Sprintf("%dP%dC", c.Producers, c.Consumers), c.Capacity,
		res.Elapsed.Round(time.Microsecond), res.Throughput(), res.Producers.Full, res.Consumers.Empty)
}
