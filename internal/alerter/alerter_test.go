package alerter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 0.5

func tick(e *Engine, in Input, seconds float64) Output {
	var out Output
	for i := 0; i < int(seconds/dt); i++ {
		out = e.Update(in, dt)
	}
	return out
}

func TestCountdownToAlarmToPenaltyTiming(t *testing.T) {
	e := NewEngine()
	active := Input{Active: true}

	// Pure clock ticks: alarm at t=25 (within one tick).
	out := tick(e, active, 25-dt)
	assert.Equal(t, ModeCountdown, e.Mode())
	assert.False(t, out.Alarm)

	out = e.Update(active, dt)
	assert.Equal(t, ModeAlarm, e.Mode())
	assert.True(t, out.Alarm)
	assert.False(t, out.PenaltyBrake)

	// Further inactivity: penalty at t=40.
	out = tick(e, active, 15)
	assert.Equal(t, ModePenalty, e.Mode())
	assert.True(t, out.PenaltyBrake)
	assert.True(t, out.Alarm)
}

func TestActivityResetsCountdown(t *testing.T) {
	e := NewEngine()
	active := Input{Active: true}
	tick(e, active, 20)
	require.Less(t, e.Remaining(), 6.0)

	e.Update(Input{Active: true, Activity: true}, dt)
	assert.Equal(t, float64(CountdownTime), e.Remaining())
}

func TestActivitySilencesAlarm(t *testing.T) {
	e := NewEngine()
	active := Input{Active: true}
	tick(e, active, 30)
	require.Equal(t, ModeAlarm, e.Mode())

	out := e.Update(Input{Active: true, Activity: true}, dt)
	assert.Equal(t, ModeCountdown, e.Mode())
	assert.False(t, out.Alarm)
}

func TestExteriorCameraHoldsCountdown(t *testing.T) {
	e := NewEngine()
	camera := Input{Active: true, CameraExterior: true}
	tick(e, camera, 60)
	assert.Equal(t, ModeCountdown, e.Mode())
	assert.Equal(t, float64(CountdownTime), e.Remaining())
}

func TestPenaltyStickyUntilCancel(t *testing.T) {
	e := NewEngine()
	tick(e, Input{Active: true}, 41)
	require.Equal(t, ModePenalty, e.Mode())

	// Ordinary activity does not clear the penalty.
	out := e.Update(Input{Active: true, Activity: true}, dt)
	assert.Equal(t, ModePenalty, e.Mode())
	assert.True(t, out.PenaltyBrake)

	// The deliberate cancel action does.
	out = e.Update(Input{Active: true, CancelPenalty: true}, dt)
	assert.Equal(t, ModeCountdown, e.Mode())
	assert.False(t, out.PenaltyBrake)
}

func TestInactiveForcesFullCountdown(t *testing.T) {
	e := NewEngine()
	tick(e, Input{Active: true}, 41)
	require.Equal(t, ModePenalty, e.Mode())

	out := e.Update(Input{}, dt)
	assert.Equal(t, ModeCountdown, e.Mode())
	assert.Equal(t, float64(CountdownTime), e.Remaining())
	assert.False(t, out.PenaltyBrake)
}
