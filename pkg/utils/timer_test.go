package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_PhasesWithMockClock(t *testing.T) {
	clock := NewMockClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	timer := NewTimerWithClock("synthesis", clock)

	phase := timer.Start("build-matrix")
	clock.Advance(30 * time.Millisecond)
	duration := phase.Stop()

	assert.Equal(t, 30*time.Millisecond, duration)
	assert.Equal(t, 30*time.Millisecond, timer.GetDuration("build-matrix"))

	// Stopping again keeps the first duration.
	clock.Advance(time.Second)
	assert.Equal(t, 30*time.Millisecond, phase.Stop())
}

func TestTimer_UnknownPhase(t *testing.T) {
	timer := NewTimer("t")
	assert.Zero(t, timer.StopPhase("never-started"))
	assert.Zero(t, timer.GetDuration("never-started"))
}

func TestTimer_Summary(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := NewTimerWithClock("synthesis", clock)

	timer.TimeFunc("extend", func() { clock.Advance(5 * time.Millisecond) })
	timer.TimeFunc("dedup", func() { clock.Advance(1 * time.Millisecond) })

	summary := timer.Summary()
	assert.Contains(t, summary, "=== synthesis Timing Summary ===")
	assert.Contains(t, summary, "Phase 1 - extend: 5ms")
	assert.Contains(t, summary, "Phase 2 - dedup: 1ms")
	assert.Contains(t, summary, "Total: 6ms")
}

func TestMockClock(t *testing.T) {
	start := time.Unix(100, 0)
	clock := NewMockClock(start)

	require.Equal(t, start, clock.Now())
	clock.Advance(time.Minute)
	assert.Equal(t, time.Minute, clock.Since(start))

	clock.Set(start)
	assert.Equal(t, start, clock.Now())

	clock.Sleep(time.Second)
	assert.Equal(t, start.Add(time.Second), clock.Now())
}
