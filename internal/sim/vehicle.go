package sim

import "github.com/YoRyan/dtg-m3-pack/internal/units"

// vehicleState is the longitudinal state of the consist, advanced with
// constant acceleration within each timestep.
type vehicleState struct {
	position float64 // metres along the track, head of consist
	speed    float64 // m/s, non-negative
	accel    float64 // m/s², as applied over the last step
}

// tractionDemand is the resolved per-tick command entering the physics step.
type tractionDemand struct {
	throttle  float64 // 0..1 of max accel
	dynamic   float64 // 0..1 of max service decel
	air       float64 // 0..1 of max service decel
	emergency bool
}

// stopSpeed is the threshold under which the consist is considered stopped,
// m/s.
const stopSpeed = 0.1

func (v *vehicleState) stopped() bool { return v.speed < stopSpeed }

// step applies the demand for dt seconds. Braking cannot push the speed below
// zero; when a deceleration would cross zero mid-step the travel is cut at the
// stopping point.
func (v *vehicleState) step(d tractionDemand, veh Vehicle, dt float64) {
	brake := units.Clamp(d.dynamic+d.air, 0, 1)
	accel := d.throttle*veh.MaxAccel - brake*veh.MaxDecel
	if d.emergency {
		accel = -veh.EmergencyDecel
	}
	if v.speed >= units.MphToMps(veh.MaxSpeedMph) && accel > 0 {
		accel = 0
	}

	next := v.speed + accel*dt
	if next < 0 {
		// Solve for the time to standstill and hold there.
		if accel < 0 {
			tStop := -v.speed / accel
			v.position += v.speed * tStop / 2
		}
		v.speed = 0
		v.accel = accel
		return
	}

	v.position += (v.speed + next) * dt / 2
	v.speed = next
	v.accel = accel
}
