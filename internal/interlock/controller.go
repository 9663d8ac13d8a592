// Package interlock fuses the protection subsystems' brake demands with the
// master controller into the single throttle, dynamic brake, and air brake
// command applied to the vehicle each tick.
package interlock

import "github.com/YoRyan/dtg-m3-pack/internal/units"

// Region is the commanded region of the master controller.
type Region int

const (
	RegionEmergency Region = iota
	RegionServiceBrake
	RegionCoast
	RegionPower
)

func (r Region) String() string {
	switch r {
	case RegionEmergency:
		return "emergency"
	case RegionServiceBrake:
		return "service-brake"
	case RegionCoast:
		return "coast"
	case RegionPower:
		return "power"
	}
	return "unknown"
}

// Controller is the decoded master controller position. Fraction is
// meaningful in the service-brake and power regions, scaled 0..1 across the
// region.
type Controller struct {
	Region   Region
	Fraction float64
}

// Piecewise-linear breakpoints over the raw control value in [-1, +1], with a
// small hysteresis margin applied at each boundary so the decoded region does
// not chatter at a boundary.
const (
	emergencyBelow = -0.95
	brakeBelow     = -0.1
	powerAbove     = 0.05
	boundaryMargin = 0.01
)

// DecodeController maps a raw master controller value to its commanded
// region. prev is the previous decode, used for boundary hysteresis.
func DecodeController(raw float64, prev Controller) Controller {
	// Widen the previous region's boundaries by the margin.
	adj := func(limit float64, outward bool) float64 {
		if outward {
			return limit - boundaryMargin
		}
		return limit + boundaryMargin
	}

	emergencyAt := emergencyBelow
	brakeAt := brakeBelow
	powerAt := powerAbove
	switch prev.Region {
	case RegionEmergency:
		emergencyAt = adj(emergencyBelow, false)
	case RegionServiceBrake:
		emergencyAt = adj(emergencyBelow, true)
		brakeAt = adj(brakeBelow, false)
	case RegionCoast:
		brakeAt = adj(brakeBelow, true)
		powerAt = adj(powerAbove, false)
	case RegionPower:
		powerAt = adj(powerAbove, true)
	}

	switch {
	case raw <= emergencyAt:
		return Controller{Region: RegionEmergency, Fraction: 1}
	case raw <= brakeAt:
		// Full brake next to the emergency gate, tapering toward coast.
		return Controller{
			Region:   RegionServiceBrake,
			Fraction: 1 - units.Rescale(raw, emergencyBelow, brakeBelow),
		}
	case raw < powerAt:
		return Controller{Region: RegionCoast}
	default:
		return Controller{
			Region:   RegionPower,
			Fraction: units.Rescale(raw, powerAbove, 1),
		}
	}
}

// CoastOrBrake reports the controller is out of the power region, the
// position the protection subsystems require before releasing a penalty.
func (c Controller) CoastOrBrake() bool {
	return c.Region != RegionPower
}

// MaxBrakeOrEmergency reports a qualifying alerter activity position.
func (c Controller) MaxBrakeOrEmergency() bool {
	return c.Region == RegionEmergency ||
		(c.Region == RegionServiceBrake && c.Fraction >= 0.99)
}
