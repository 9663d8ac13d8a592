// Package hazard implements the braking-curve model shared by the civil speed
// enforcement subsystems.
//
// A hazard is any speed restriction ahead of (or at) the vehicle, reduced to
// two instantaneous thresholds recomputed every tick: the alert curve speed,
// above which the crew is warned, and the penalty curve speed, above which
// brakes apply. Hazards are totally ordered by penalty curve speed; the lowest
// one is in force.
package hazard

import (
	"math"
	"sort"

	"github.com/YoRyan/dtg-m3-pack/internal/units"
)

// PenaltyDecel is the assumed service penalty braking rate behind every curve,
// in m/s². Source revisions disagree between -1 and -2 mph/s; the shallower
// -1 mph/s rate is used throughout, which starts curves earlier.
const PenaltyDecel = -0.44704

// AlertLeadTime is the warning lead time built into alert curves, seconds.
// Penalty curves use zero lead time.
const AlertLeadTime = 6

// Margins added to a flat track speed restriction (no distance component).
var (
	trackAlertMargin   = units.MphToMps(3)
	trackPenaltyMargin = units.MphToMps(6)
)

// Never is a curve speed no vehicle can reach. It marks a hazard, or one side
// of a hazard, as inapplicable while keeping every tick's output defined.
var Never = math.Inf(1)

// Hazard is a speed restriction evaluated at the current tick.
type Hazard struct {
	// AlertCurveSpeed is the speed above which the alert stage triggers, m/s.
	AlertCurveSpeed float64
	// PenaltyCurveSpeed is the speed above which penalty braking triggers, m/s.
	PenaltyCurveSpeed float64
	// TrackSpeed is the restriction to show on the cab display, m/s.
	// Never when the hazard reveals nothing.
	TrackSpeed float64
	// PositiveStop marks a stop-signal hazard, which escalates to positive
	// stop braking instead of an ordinary penalty.
	PositiveStop bool
}

// BrakingCurveSpeed returns the maximum instantaneous speed, m/s, from which a
// vehicle decelerating at PenaltyDecel can still reach targetSpeed within
// distance metres, after allowing timeBudget seconds of warning lead time
// before deceleration must begin.
//
// Closed form: v = sqrt((a·t)² − 2·a·d + v_t²) + a·t, floored at v_t. The
// radicand cannot go negative for d ≥ 0 since a < 0, but extreme inputs clamp
// to targetSpeed rather than fault.
func BrakingCurveSpeed(targetSpeed, distance, timeBudget float64) float64 {
	a := PenaltyDecel
	at := a * timeBudget
	radicand := at*at - 2*a*distance + targetSpeed*targetSpeed
	if radicand < 0 {
		return targetSpeed
	}
	return math.Max(math.Sqrt(radicand)+at, targetSpeed)
}

// TrackSpeed returns the stateless hazard for the currently enforced track
// speed limit. The curves are flat margins over the limit, not distance-based.
func TrackSpeed(limit float64) Hazard {
	if math.IsInf(limit, 1) {
		return Hazard{AlertCurveSpeed: Never, PenaltyCurveSpeed: Never, TrackSpeed: Never}
	}
	return Hazard{
		AlertCurveSpeed:   limit + trackAlertMargin,
		PenaltyCurveSpeed: limit + trackPenaltyMargin,
		TrackSpeed:        limit,
	}
}

// StopTargetOverrun is the fixed distance beyond a positive stop point at
// which the stop-signal braking curve targets zero speed, metres.
const StopTargetOverrun = 15

// StopSignal returns the hazard enforcing a full stop short of a restrictive
// signal at the given distance. The curve is inapplicable when the vehicle is
// not approaching the signal.
func StopSignal(distance float64, approaching bool) Hazard {
	if !approaching {
		return Hazard{AlertCurveSpeed: Never, PenaltyCurveSpeed: Never, TrackSpeed: Never, PositiveStop: true}
	}
	target := math.Max(distance+StopTargetOverrun, 0)
	return Hazard{
		AlertCurveSpeed:   BrakingCurveSpeed(0, target, AlertLeadTime),
		PenaltyCurveSpeed: BrakingCurveSpeed(0, target, 0),
		TrackSpeed:        0,
		PositiveStop:      true,
	}
}

// Sort orders hazards ascending by penalty curve speed. The sort is stable so
// equal hazards keep their construction order.
func Sort(hs []Hazard) {
	sort.SliceStable(hs, func(i, j int) bool {
		return hs[i].PenaltyCurveSpeed < hs[j].PenaltyCurveSpeed
	})
}

// InForce returns the most restrictive hazard of hs, which must be non-empty.
func InForce(hs []Hazard) Hazard {
	Sort(hs)
	return hs[0]
}
