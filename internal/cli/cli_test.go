package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/aradilov/lockless/internal/bench"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	a := &app{v: viper.New(), logger: zaptest.NewLogger(t)}
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func resultLines(out string) []string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return lines[1:]
}

func TestBenchSingleQueue(t *testing.T) {
	out, err := execute(t, "bench", "--queue", "spsc", "--items", "5000", "--capacity", "16")
	require.NoError(t, err)

	lines := resultLines(out)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "spsc"))
	assert.Contains(t, lines[0], "1P1C")
}

func TestBenchAllSkipsIncompatibleQueues(t *testing.T) {
	out, err := execute(t, "bench", "--queue", "all",
		"--producers", "2", "--consumers", "2", "--items", "4000", "--capacity", "64")
	require.NoError(t, err)

	var kinds []string
	for _, l := range resultLines(out) {
		kinds = append(kinds, strings.Fields(l)[0])
	}
	assert.Equal(t, []string{"mpmc", "mutex", "channel"}, kinds)
}

func TestBenchConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue: sharded\nproducers: 3\nitems: 3000\ncapacity: 32\nburst-max: 8\n"), 0o600))

	out, err := execute(t, "--config", path, "bench")
	require.NoError(t, err)

	lines := resultLines(out)
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "sharded"))
	assert.Contains(t, lines[0], "3P1C")
}

func TestBenchFlagOverridesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ringbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("queue: channel\nitems: 1000\n"), 0o600))

	out, err := execute(t, "--config", path, "bench", "--queue", "mutex")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resultLines(out)[0], "mutex"))
}

func TestBenchEnv(t *testing.T) {
	t.Setenv("RINGBENCH_QUEUE", "channel")
	t.Setenv("RINGBENCH_ITEMS", "2000")
	t.Setenv("RINGBENCH_BURST_MAX", "4")

	out, err := execute(t, "bench")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resultLines(out)[0], "channel"))
}

func TestBenchErrors(t *testing.T) {
	_, err := execute(t, "bench", "--queue", "ring")
	assert.ErrorIs(t, err, bench.ErrUnknownQueue)

	_, err = execute(t, "bench", "--queue", "spsc", "--producers", "2")
	assert.ErrorIs(t, err, bench.ErrInvalidTopology)

	_, err = execute(t, "bench", "--queue", "all", "--producers", "0")
	assert.ErrorIs(t, err, ErrNoQueue)

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "bench")
	assert.Error(t, err)
}

func TestViz(t *testing.T) {
	out, err := execute(t, "viz", "--frames", "3", "--interval", "0", "--capacity", "8",
		"--producer-speed", "1", "--consumer-speed", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "frame 2")
	assert.Contains(t, out, "|###.....|")
}

func TestVizInvalidCapacity(t *testing.T) {
	_, err := execute(t, "viz", "--capacity", "12", "--frames", "1")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ringbench dev")
	assert.Contains(t, out, "cache line:")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	logger, err = newLogger("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))

	_, err = newLogger("loud")
	assert.Error(t, err)
}
