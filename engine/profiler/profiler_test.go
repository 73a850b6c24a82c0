package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func TestTickLogsOncePerInterval(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(
		WithInterval(time.Second),
		WithClock(clock.now),
		WithLogger(zap.New(core)),
	)

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())

	p.Observe("geometry", 2*time.Millisecond)
	p.Observe("geometry", 4*time.Millisecond)
	p.Observe("shading_resolve", time.Millisecond)

	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.True(t, p.Tick())

	entries := logs.FilterMessage("frame stats").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.InDelta(t, 2.0, fields["fps"], 1e-9)
	assert.Equal(t, 3*time.Millisecond, fields["geometry"])
	assert.Equal(t, time.Millisecond, fields["shading_resolve"])

	assert.Empty(t, p.Stages())
}

func TestStagesAccumulate(t *testing.T) {
	p := NewProfiler(WithLogger(zap.NewNop()))
	p.Observe("b", 3*time.Millisecond)
	p.Observe("a", time.Millisecond)
	p.Observe("b", 5*time.Millisecond)

	reports := p.Stages()
	require.Len(t, reports, 2)
	assert.Equal(t, StageReport{Name: "a", Average: time.Millisecond, Max: time.Millisecond, Count: 1}, reports[0])
	assert.Equal(t, StageReport{Name: "b", Average: 4 * time.Millisecond, Max: 5 * time.Millisecond, Count: 2}, reports[1])
}

func TestDisabledProfilerIgnoresFrames(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithInterval(time.Second), WithClock(clock.now), WithLogger(zap.New(core)))
	require.True(t, p.Enabled())

	p.SetEnabled(false)
	p.Observe("geometry", time.Millisecond)
	clock.t = clock.t.Add(2 * time.Second)
	assert.False(t, p.Tick())
	assert.Empty(t, p.Stages())
	assert.Zero(t, logs.Len())

	p.SetEnabled(true)
	clock.t = clock.t.Add(500 * time.Millisecond)
	assert.False(t, p.Tick(), "re-enabling starts a fresh interval")
	clock.t = clock.t.Add(600 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Equal(t, 1, logs.Len())
}
