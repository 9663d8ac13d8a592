package interlock

import "github.com/YoRyan/dtg-m3-pack/internal/units"

// Reference geometry for scaling dynamic brake effort across consists.
const (
	// ReferenceCarLength is the length of a single unit, metres.
	ReferenceCarLength = 25.9
	// referenceTrainCars normalizes effort against a typical consist.
	referenceTrainCars = 10
)

// dynamicBaseRate is the permitted rate of change per second at zero output;
// the rate approaches 1/s at full scale.
const dynamicBaseRate = 0.15

// DynamicBrake ramps the blended dynamic brake toward its target with an
// asymmetric lag: response is slowest near zero output and quickens as the
// grid loads up.
type DynamicBrake struct {
	current float64
}

// Current returns the present ramp position in [0, 1].
func (b *DynamicBrake) Current() float64 { return b.current }

// Update moves the ramp toward target over dt seconds and returns the new
// position.
func (b *DynamicBrake) Update(target, dt float64) float64 {
	target = units.Clamp(target, 0, 1)
	maxRate := dynamicBaseRate + (1-dynamicBaseRate)*b.current
	step := units.Clamp(target-b.current, -maxRate*dt, maxRate*dt)
	b.current = units.Clamp(b.current+step, 0, 1)
	return b.current
}

// Effort scales the ramp position by the number of coupled units inferred
// from the consist length, normalized against the reference train.
func (b *DynamicBrake) Effort(consistLength float64) float64 {
	cars := consistLength / ReferenceCarLength
	if cars < 1 {
		cars = 1
	}
	return b.current * cars / referenceTrainCars
}

// Reset zeroes the ramp, for use when the latch dumps all blending.
func (b *DynamicBrake) Reset() { b.current = 0 }

// Air brake constants.
var (
	// The cylinder is fully effective below airFadeLow and fades linearly to
	// airFadeFloor by airFadeHigh, modeling reduced effectiveness at speed.
	airFadeLow   = units.MphToMps(10)
	airFadeHigh  = units.MphToMps(25)
	airFadeFloor = 0.4
)

const (
	// airRechargeTime is the time constant for brake pipe replenishment,
	// seconds for a full recharge.
	airRechargeTime = 10
	// AirChargeReady is the pipe charge above which the startup and shutdown
	// logic treats the unit as ready.
	AirChargeReady = 0.9
)

// AirBrake simulates the applied brake cylinder and the brake pipe charge.
// Applying more brake discharges the pipe instantly; releasing is limited by
// pipe replenishment, which takes about airRechargeTime seconds end to end.
type AirBrake struct {
	value  float64 // applied cylinder fraction
	charge float64 // brake pipe charge, 0 discharged .. 1 full
}

// NewAirBrake returns a brake in the startup condition: cylinder applied and
// pipe discharged, so the unit is not ready until it has charged.
func NewAirBrake() *AirBrake {
	return &AirBrake{value: 1, charge: 0}
}

// Value returns the applied cylinder fraction.
func (b *AirBrake) Value() float64 { return b.value }

// PipePressure returns the normalized brake pipe charge.
func (b *AirBrake) PipePressure() float64 { return b.charge }

// Ready reports the pipe charge has crossed the startup threshold.
func (b *AirBrake) Ready() bool { return b.charge >= AirChargeReady }

// fade is the speed-dependent cylinder effectiveness curve.
func fade(speed float64) float64 {
	return 1 - (1-airFadeFloor)*units.Rescale(speed, airFadeLow, airFadeHigh)
}

// Update folds one tick of the fused service fraction into the cylinder.
// serviceFraction is the commanded intensity (1 for penalty or emergency),
// speed the vehicle speed in m/s, and charging true while the unit is
// electrically powered so the compressor can replenish the pipe.
func (b *AirBrake) Update(serviceFraction, speed float64, charging bool, dt float64) float64 {
	target := units.Clamp(serviceFraction, 0, 1) * fade(speed)

	if target > b.value {
		// Applying vents the pipe in proportion to the extra application.
		b.charge = units.Clamp(b.charge-(target-b.value), 0, 1)
		b.value = target
	} else if charging {
		// Releasing waits on pipe replenishment.
		step := dt / airRechargeTime
		if b.value-step < target {
			b.value = target
		} else {
			b.value -= step
		}
	}

	if charging {
		b.charge = units.Clamp(b.charge+dt/airRechargeTime, 0, 1)
	}
	return b.value
}

// Dump models an emergency application: full cylinder, pipe fully discharged.
func (b *AirBrake) Dump() {
	b.value = 1
	b.charge = 0
}
