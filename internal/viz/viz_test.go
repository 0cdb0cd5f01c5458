package viz

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, s *Simulation) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, s.Render(&buf))
	return buf.String()
}

func TestSimulationEmpty(t *testing.T) {
	s := New(4)
	defer s.Close()

	assert.Equal(t, "|....|\n *\nlen=0/4 pushed=0 rejected=0 popped=0\n", render(t, s))
}

func TestSimulationFillAndDrain(t *testing.T) {
	s := New(4)
	defer s.Close()

	for i := 0; i < 3; i++ {
		s.Tick(1, 0)
	}
	assert.Equal(t, "|###.|\n T  H\nlen=3/4 pushed=3 rejected=0 popped=0\n", render(t, s))

	s.Tick(2, 0)
	assert.Equal(t, "|####|\n *\nlen=4/4 pushed=4 rejected=1 popped=0\n", render(t, s))

	s.Tick(0, 2)
	assert.Equal(t, "|..##|\n H T\nlen=2/4 pushed=4 rejected=1 popped=2\n", render(t, s))
}

func TestSimulationFractionalSpeeds(t *testing.T) {
	s := New(8)
	defer s.Close()

	s.Tick(0.5, 0)
	assert.Zero(t, s.pushed)
	s.Tick(0.5, 0)
	assert.Equal(t, uint64(1), s.pushed)

	s.Tick(0, 0.25)
	s.Tick(0, 0.25)
	s.Tick(0, 0.25)
	assert.Zero(t, s.popped)
	s.Tick(0, 0.25)
	assert.Equal(t, uint64(1), s.popped)
}

func TestRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capacity = 8
	cfg.Frames = 5
	cfg.Interval = 0
	cfg.ProducerSpeed = 1

	var buf bytes.Buffer
	require.NoError(t, Run(context.Background(), &buf, cfg))

	out := buf.String()
	assert.Equal(t, 5, strings.Count(out, "frame "))
	assert.Contains(t, out, "pushed=5")
	assert.True(t, strings.HasPrefix(out, legend))
	assert.NotContains(t, out, clearScreen)
}

func TestRunCancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Frames = 1000
	cfg.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.ErrorIs(t, Run(ctx, &buf, cfg), context.Canceled)
	assert.Equal(t, 1, strings.Count(buf.String(), "frame "))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Capacity = 30
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.ConsumerSpeed = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.Frames = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
