package hazard

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoRyan/dtg-m3-pack/internal/units"
)

func TestBrakingCurveSpeedClosedForm(t *testing.T) {
	// At zero distance with no lead time the curve equals the target speed.
	assert.InDelta(t, 10, BrakingCurveSpeed(10, 0, 0), 1e-9)

	// Stopping from v over d = v²/(2|a|) must yield exactly v.
	v := units.MphToMps(40)
	d := v * v / (2 * -PenaltyDecel)
	assert.InDelta(t, v, BrakingCurveSpeed(0, d, 0), 1e-9)

	// A warning lead time lowers the permitted speed at the same distance.
	assert.Less(t, BrakingCurveSpeed(0, d, AlertLeadTime), v)
}

func TestBrakingCurveSpeedMonotonicity(t *testing.T) {
	// Non-decreasing in distance and target speed, non-increasing in lead time.
	prev := 0.0
	for d := 0.0; d <= 2000; d += 50 {
		v := BrakingCurveSpeed(5, d, 0)
		assert.GreaterOrEqual(t, v, prev, "distance %f", d)
		prev = v
	}
	prev = 0.0
	for vf := 0.0; vf <= 40; vf += 2 {
		v := BrakingCurveSpeed(vf, 500, 0)
		assert.GreaterOrEqual(t, v, prev, "target %f", vf)
		prev = v
	}
	prev = math.Inf(1)
	for tb := 0.0; tb <= 30; tb += 1 {
		v := BrakingCurveSpeed(0, 500, tb)
		assert.LessOrEqual(t, v, prev, "budget %f", tb)
		prev = v
	}
}

func TestBrakingCurveSpeedNeverBelowTarget(t *testing.T) {
	assert.Equal(t, 20.0, BrakingCurveSpeed(20, 0, 60))
}

func TestTrackSpeedMargins(t *testing.T) {
	limit := units.MphToMps(60)
	h := TrackSpeed(limit)
	assert.InDelta(t, limit+units.MphToMps(3), h.AlertCurveSpeed, 1e-9)
	assert.InDelta(t, limit+units.MphToMps(6), h.PenaltyCurveSpeed, 1e-9)
	assert.Equal(t, limit, h.TrackSpeed)
	assert.False(t, h.PositiveStop)

	none := TrackSpeed(Never)
	assert.True(t, math.IsInf(none.PenaltyCurveSpeed, 1))
}

func TestStopSignal(t *testing.T) {
	h := StopSignal(200, true)
	assert.True(t, h.PositiveStop)
	assert.Equal(t, 0.0, h.TrackSpeed)
	// Penalty curve at 200 m must allow stopping within 215 m.
	want := math.Sqrt(2 * -PenaltyDecel * 215)
	assert.InDelta(t, want, h.PenaltyCurveSpeed, 1e-9)
	assert.Less(t, h.AlertCurveSpeed, h.PenaltyCurveSpeed)

	away := StopSignal(200, false)
	assert.True(t, math.IsInf(away.PenaltyCurveSpeed, 1))
}

func TestSortTotalOrder(t *testing.T) {
	hs := []Hazard{
		TrackSpeed(units.MphToMps(80)),
		StopSignal(500, true),
		TrackSpeed(units.MphToMps(30)),
	}
	Sort(hs)
	for i := 1; i < len(hs); i++ {
		assert.LessOrEqual(t, hs[0].PenaltyCurveSpeed, hs[i].PenaltyCurveSpeed)
	}
	assert.True(t, hs[0].PositiveStop, "stop signal at 500 m should be most restrictive")
}

func TestInForcePicksLowestPenalty(t *testing.T) {
	hs := []Hazard{TrackSpeed(units.MphToMps(80)), TrackSpeed(units.MphToMps(15))}
	h := InForce(hs)
	assert.InDelta(t, units.MphToMps(15), h.TrackSpeed, 1e-9)
}

func TestAdvanceLimitRevealsAfterViolation(t *testing.T) {
	l := NewAdvanceLimit(units.MphToMps(30))

	// Far away and slow: curve wide open, limit not revealed.
	h := l.Update(2000, units.MphToMps(40), true)
	require.True(t, math.IsInf(h.TrackSpeed, 1))
	assert.False(t, l.Violated())

	// Close in at speed: alert curve violated, limit revealed from now on.
	h = l.Update(50, units.MphToMps(50), true)
	assert.True(t, l.Violated())
	assert.InDelta(t, units.MphToMps(30), h.TrackSpeed, 1e-9)

	// Stays revealed even after slowing below the curve.
	h = l.Update(40, units.MphToMps(20), true)
	assert.InDelta(t, units.MphToMps(30), h.TrackSpeed, 1e-9)
}

func TestAdvanceLimitInapplicableWhenReceding(t *testing.T) {
	l := NewAdvanceLimit(units.MphToMps(30))
	h := l.Update(-10, units.MphToMps(60), false)
	assert.True(t, math.IsInf(h.AlertCurveSpeed, 1))
	assert.True(t, math.IsInf(h.PenaltyCurveSpeed, 1))
	assert.False(t, l.Violated())
}
