package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aradilov/lockless/internal/viz"
)

func newVizCommand(a *app) *cobra.Command {
	def := viz.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Animate SPSC ring occupancy in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.bindFlags(cmd); err != nil {
				return err
			}
			cfg := viz.DefaultConfig()
			if err := a.v.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("decode viz config: %w", err)
			}
			a.logger.Debug("starting visualization",
				zap.Uint64("capacity", cfg.Capacity),
				zap.Float64("producer_speed", cfg.ProducerSpeed),
				zap.Float64("consumer_speed", cfg.ConsumerSpeed),
			)
			return viz.Run(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	f := cmd.Flags()
	f.Uint64("capacity", def.Capacity, "ring capacity, power of two")
	f.Float64("producer-speed", def.ProducerSpeed, "elements pushed per frame")
	f.Float64("consumer-speed", def.ConsumerSpeed, "elements popped per frame")
	f.Int("frames", def.Frames, "frames to render")
	f.Duration("interval", def.Interval, "delay between frames")
	f.Bool("clear", def.Clear, "clear the terminal before each frame")
	return cmd
}
