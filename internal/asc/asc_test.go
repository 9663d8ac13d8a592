package asc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoRyan/dtg-m3-pack/internal/cabsignal"
	"github.com/YoRyan/dtg-m3-pack/internal/units"
)

const dt = 0.1

func activeInput(aspect cabsignal.Aspect, speedMph float64) Input {
	return Input{
		Active:       true,
		Aspect:       aspect,
		Speed:        units.MphToMps(speedMph),
		CoastOrBrake: true,
	}
}

func TestOverspeedEntryWithinOneTick(t *testing.T) {
	// For every aspect, any speed above the overspeed setpoint must enter
	// the overspeed state on the very next tick.
	for a := cabsignal.Restrict; a <= cabsignal.Normal80; a++ {
		e := NewEngine()
		in := activeInput(a, 0)
		in.Speed = a.OverspeedSetpoint() + 0.01
		e.Update(in, dt)
		assert.Equal(t, ModeOverspeed, e.State().Mode, "%s", a)
	}
}

func TestDowngradeLadder(t *testing.T) {
	e := NewEngine()
	e.Update(activeInput(cabsignal.Normal80, 20), dt)

	// Aspect drops: downgrade event, alarm only for the first 7 s.
	out := e.Update(activeInput(cabsignal.Medium, 20), dt)
	require.Equal(t, ModeDowngrade, e.State().Mode)
	assert.Equal(t, BrakeNone, out.Brake)
	assert.True(t, out.Alarm)

	advance := func(seconds float64) Output {
		var out Output
		for i := 0; i < int(seconds/dt); i++ {
			out = e.Update(activeInput(cabsignal.Medium, 20), dt)
		}
		return out
	}

	out = advance(7)
	assert.Equal(t, BrakePenalty, out.Brake, "penalty after 7 s")

	out = advance(7)
	assert.Equal(t, BrakeMaxService, out.Brake, "max service after 14 s")

	out = advance(7.2)
	assert.Equal(t, ModeEmergency, e.State().Mode, "emergency beyond 21 s")
	assert.Equal(t, BrakeEmergency, out.Brake)
}

func TestDowngradeAcknowledgeReturnsToNormal(t *testing.T) {
	e := NewEngine()
	e.Update(activeInput(cabsignal.Normal80, 20), dt)
	e.Update(activeInput(cabsignal.Medium, 20), dt)

	in := activeInput(cabsignal.Medium, 20)
	in.Acknowledge = true
	out := e.Update(in, dt)
	assert.True(t, out.Forestall)
	assert.False(t, out.Alarm)

	// Normal again on the next tick.
	e.Update(activeInput(cabsignal.Medium, 20), dt)
	assert.Equal(t, ModeNormal, e.State().Mode)
}

func TestRepeatedDowngradesIgnoredWhileDowngraded(t *testing.T) {
	e := NewEngine()
	e.Update(activeInput(cabsignal.Normal80, 20), dt)
	e.Update(activeInput(cabsignal.Limited, 20), dt)
	watch := e.State().Stopwatch
	e.Update(activeInput(cabsignal.Restrict, 14), dt)
	assert.Equal(t, ModeDowngrade, e.State().Mode)
	assert.Greater(t, e.State().Stopwatch, watch, "stopwatch keeps running")
}

// The concrete scenario from the design brief: Medium aspect, speed ramping
// 25 to 35 mph over 10 s with no acknowledgement. Overspeed entry lands near
// 32 mph; without the required deceleration the budget expires into
// emergency braking.
func TestMediumRampScenario(t *testing.T) {
	e := NewEngine()
	entrySpeed := 0.0
	for step := 0; step <= int(10/dt); step++ {
		speedMph := 25 + float64(step)*dt // 1 mph/s ramp
		in := activeInput(cabsignal.Medium, speedMph)
		in.Acceleration = units.MphToMps(1)
		e.Update(in, dt)
		if e.State().Mode == ModeOverspeed && entrySpeed == 0 {
			entrySpeed = units.MpsToMph(e.State().InitialSpeed)
		}
	}
	require.NotZero(t, entrySpeed, "overspeed never entered")
	assert.InDelta(t, 32, entrySpeed, 0.5)
	require.Equal(t, ModeOverspeed, e.State().Mode)

	// Hold at 35 mph without braking: the assurance budget (2 mph excess /
	// 1.5 mph/s + 4 s grace ≈ 5.3 s) expires into emergency.
	for i := 0; i < int(6/dt); i++ {
		e.Update(activeInput(cabsignal.Medium, 35), dt)
	}
	assert.Equal(t, ModeEmergency, e.State().Mode)
}

func TestOverspeedWithAssuranceReleases(t *testing.T) {
	e := NewEngine()
	in := activeInput(cabsignal.Medium, 33)
	e.Update(in, dt)
	require.Equal(t, ModeOverspeed, e.State().Mode)

	// Brake hard immediately: assurance satisfied, acknowledged.
	braking := activeInput(cabsignal.Medium, 33)
	braking.Acceleration = units.MphToMps(-2)
	braking.Acknowledge = true
	out := e.Update(braking, dt)
	assert.True(t, out.BrakeAssurance)
	assert.True(t, out.Forestall)
	assert.False(t, out.Alarm)
	assert.Equal(t, BrakePenalty, out.Brake)

	// Once under the release setpoint with the controller out of power,
	// the overspeed resolves.
	slow := activeInput(cabsignal.Medium, 29)
	slow.Acceleration = units.MphToMps(-2)
	e.Update(slow, dt)
	assert.Equal(t, ModeNormal, e.State().Mode)
}

func TestEmergencyTerminalUntilStoppedAndAcknowledged(t *testing.T) {
	e := NewEngine()
	e.state = State{Mode: ModeEmergency}

	// Moving, acknowledged: still emergency.
	in := activeInput(cabsignal.Restrict, 5)
	in.Acknowledge = true
	out := e.Update(in, dt)
	assert.Equal(t, BrakeEmergency, out.Brake)

	// Stopped but in power: still emergency.
	stopped := activeInput(cabsignal.Restrict, 0)
	stopped.Stopped = true
	stopped.CoastOrBrake = false
	e.Update(stopped, dt)
	assert.Equal(t, ModeEmergency, e.State().Mode)

	// Stopped, acknowledged, controller in coast: released.
	stopped.CoastOrBrake = true
	e.Update(stopped, dt)
	assert.Equal(t, ModeNormal, e.State().Mode)
}

func TestInactiveResetsToNormal(t *testing.T) {
	e := NewEngine()
	e.state = State{Mode: ModeEmergency}
	out := e.Update(Input{Active: false}, dt)
	assert.Equal(t, ModeNormal, e.State().Mode)
	assert.Equal(t, BrakeNone, out.Brake)
	assert.False(t, out.Alarm)
}
