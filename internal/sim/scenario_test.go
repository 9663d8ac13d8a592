package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenarioYAML(t *testing.T) {
	sc, err := Load("testdata/scenario.yaml")
	require.NoError(t, err)

	assert.Equal(t, 120.0, sc.Meta.RunTime)
	assert.Equal(t, 0.1, sc.Meta.TimeStep)
	assert.Len(t, sc.Track.Posts, 2)
	assert.Len(t, sc.Track.Signals, 1)
	assert.Equal(t, SignalStop, sc.Track.Signals[0].State)

	// Defaults filled in for unset vehicle parameters.
	assert.Equal(t, defaultConsistLength, sc.Vehicle.ConsistLength)
	assert.Equal(t, defaultMaxAccel, sc.Vehicle.MaxAccel)
	assert.Equal(t, 80.0, sc.Vehicle.MaxSpeedMph)

	// Driver events are sorted by time even when listed out of order.
	require.Len(t, sc.Driver, 3)
	assert.Equal(t, 5.0, sc.Driver[0].At)
	assert.Equal(t, 20.0, sc.Driver[1].At)
	assert.Equal(t, 30.0, sc.Driver[2].At)
}

func TestLoadScenarioMissing(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	assert.Error(t, err)
}

func TestNormalizeRejectsBadTiming(t *testing.T) {
	sc := Scenario{Meta: Meta{RunTime: 10}}
	assert.Error(t, sc.Normalize())

	sc = Scenario{Meta: Meta{TimeStep: 0.1}}
	assert.Error(t, sc.Normalize())

	sc = Scenario{
		Meta:  Meta{RunTime: 10, TimeStep: 0.1},
		Track: Track{Posts: []SpeedPost{{Position: 100, LimitMph: -5}}},
	}
	assert.Error(t, sc.Normalize())
}

func TestSignalStateTimeline(t *testing.T) {
	sig := Signal{
		State: SignalStop,
		Changes: []SignalChange{
			{At: 30, State: SignalClear},
			{At: 60, State: SignalStop},
		},
	}
	assert.Equal(t, SignalStop, sig.StateAt(0))
	assert.Equal(t, SignalClear, sig.StateAt(30))
	assert.Equal(t, SignalClear, sig.StateAt(59))
	assert.Equal(t, SignalStop, sig.StateAt(61))
}

func TestHostLimitProfile(t *testing.T) {
	track := Track{HostLimits: []LimitSegment{
		{From: 0, LimitMph: 80},
		{From: 1000, LimitMph: 40},
	}}
	fallback := 100.0
	assert.InDelta(t, 35.7632, track.HostLimitAt(0, fallback), 1e-3)
	assert.InDelta(t, 17.8816, track.HostLimitAt(1500, fallback), 1e-3)
	assert.Equal(t, fallback, Track{}.HostLimitAt(500, fallback))
}

func TestVehicleStepHoldsAtStandstill(t *testing.T) {
	veh := Vehicle{MaxAccel: 1, MaxDecel: 1, EmergencyDecel: 2, MaxSpeedMph: 80}
	v := vehicleState{speed: 0.5}

	// A full-service step that would cross zero stops exactly at zero.
	v.step(tractionDemand{air: 1}, veh, 1)
	assert.Equal(t, 0.0, v.speed)
	assert.True(t, v.stopped())
	assert.Greater(t, v.position, 0.0)
	assert.Less(t, v.position, 0.5)

	// Emergency overrides any blend.
	v2 := vehicleState{speed: 10}
	v2.step(tractionDemand{throttle: 1, emergency: true}, veh, 1)
	assert.InDelta(t, 8, v2.speed, 1e-9)
}
