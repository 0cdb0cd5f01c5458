// Package cli wires the ringbench commands: flags and config through viper,
// logging through zap.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "RINGBENCH"

type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *zap.Logger
}

// Execute runs the ringbench root command.
func Execute(ctx context.Context) error {
	a := &app{v: viper.New()}
	defer a.sync()
	return newRootCommand(a).ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ringbench",
		Short: "Drive and visualize lock-free ring buffers",
		Long: `ringbench runs producer/consumer workloads over the lockless SPSC and
MPMC rings and a few baselines, verifying exactly-once delivery, and
animates ring occupancy in the terminal.

Every flag can also be set in a YAML config file (--config, or
.ringbench.yaml in the working or home directory) or through a
RINGBENCH_ environment variable, e.g. RINGBENCH_BURST_MAX=32.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			return a.initLogger()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .ringbench.yaml in . or $HOME)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = a.v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newBenchCommand(a))
	root.AddCommand(newVizCommand(a))
	root.AddCommand(newVersionCommand())
	return root
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home)
		}
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".ringbench")
	}

	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// initLogger keeps an injected logger, otherwise builds one for --log-level.
func (a *app) initLogger() error {
	if a.logger != nil {
		return nil
	}
	logger, err := newLogger(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.logger = logger
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("using config file", zap.String("path", used))
	}
	return nil
}

func (a *app) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}

// bindFlags binds the running command's flags only, since bench and viz share
// key names such as capacity.
func (a *app) bindFlags(cmd *cobra.Command) error {
	return a.v.BindPFlags(cmd.Flags())
}
