// Package acses implements Advanced Civil Speed Enforcement: track speed and
// stop-signal enforcement against braking curves computed from sensed wayside
// objects.
//
// Every tick the engine rebuilds its hazard set: one stateless hazard for the
// currently enforced track speed, one stateful advance curve per tracked
// speed post ahead, and one stop-signal hazard per restrictive signal with a
// known positive-stop distance. The lowest hazard by penalty curve speed is
// in force and drives the accumulator.
package acses

import (
	"math"

	"github.com/YoRyan/dtg-m3-pack/internal/hazard"
	"github.com/YoRyan/dtg-m3-pack/internal/sensor"
	"github.com/YoRyan/dtg-m3-pack/internal/units"
)

// Mode identifies the accumulator variant in force.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAlert
	ModePenalty
	ModePenaltyAcknowledged
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeAlert:
		return "alert"
	case ModePenalty:
		return "penalty"
	case ModePenaltyAcknowledged:
		return "penalty-acknowledged"
	}
	return "unknown"
}

// Brake is the demand ACSES contributes to brake fusion.
type Brake int

const (
	BrakeNone Brake = iota
	BrakePenalty
	// BrakePositiveStop is the distinct escalation while a stop-signal
	// hazard is in force.
	BrakePositiveStop
)

// alertCountdown is how long the alert stage may persist unresolved before
// escalating to a penalty, seconds.
const alertCountdown = 6

// releaseMargin is how far under the alert curve the speed must fall before a
// penalty may release, m/s.
var releaseMargin = units.MphToMps(1)

// SignalStop is the signal payload value meaning the signal is at its most
// restrictive state.
const SignalStop = 0

// State is the ACSES accumulator. Mode selects which payload fields are
// meaningful.
type State struct {
	Mode         Mode
	Stopwatch    float64 // alert payload
	Acknowledged bool    // alert and penalty payloads
}

// Input is one tick's worth of observations.
type Input struct {
	// Active is false when ACSES is cut out, unpowered, or the engine is not
	// under player control. Inactive ticks reset the accumulator and all
	// advance-curve state.
	Active       bool
	Speed        float64 // m/s
	TrackSpeed   float64 // enforced track limit, m/s; may be trackspeed.NoData
	Acknowledge  bool
	CoastOrBrake bool
	Stopped      bool
	// MovingForward is the reverser direction; objects ahead are approached
	// only while it matches their side.
	MovingForward bool
	// Posts is the speed-post identity map from the object indexer.
	Posts map[int]sensor.Reading
	// Signals is the restrictive-signal identity map. A payload of
	// SignalStop marks a signal at stop with a known positive-stop distance.
	Signals map[int]sensor.Reading
}

// Output is the demand and cab indications derived from the accumulator.
type Output struct {
	Brake Brake
	Alarm bool
	// Overspeed reports the instantaneous speed exceeds the in-force alert
	// curve.
	Overspeed bool
	// PositiveStop reports a stop-signal hazard is in force.
	PositiveStop bool
	// TrackSpeed is the restriction to display, m/s; hazard.Never when the
	// in-force hazard reveals nothing.
	TrackSpeed float64
}

// Engine holds the accumulator plus per-post advance curve state.
type Engine struct {
	state          State
	limits         map[int]*hazard.AdvanceLimit
	prevTrackSpeed float64
	inForce        hazard.Hazard
}

// NewEngine returns an engine in the normal state.
func NewEngine() *Engine {
	return &Engine{
		limits:         make(map[int]*hazard.AdvanceLimit),
		prevTrackSpeed: math.Inf(1),
		inForce:        hazard.Hazard{AlertCurveSpeed: hazard.Never, PenaltyCurveSpeed: hazard.Never, TrackSpeed: hazard.Never},
	}
}

// State returns the current accumulator.
func (e *Engine) State() State { return e.state }

// InForce returns the hazard currently driving enforcement.
func (e *Engine) InForce() hazard.Hazard { return e.inForce }

// Update folds one tick into the accumulator and returns the resulting
// demand. dt is the tick duration in seconds.
func (e *Engine) Update(in Input, dt float64) Output {
	if !in.Active {
		e.reset()
		return Output{TrackSpeed: hazard.Never}
	}

	// First data arrival is initialization, not a downgrade.
	downgrade := in.TrackSpeed < e.prevTrackSpeed && !math.IsInf(e.prevTrackSpeed, 1)
	e.prevTrackSpeed = in.TrackSpeed

	e.inForce = e.recomputeHazards(in)
	h := e.inForce

	overspeed := in.Speed > h.AlertCurveSpeed && !math.IsInf(h.AlertCurveSpeed, 1)

	switch e.state.Mode {
	case ModeNormal:
		switch {
		case in.Speed > h.PenaltyCurveSpeed:
			e.state = State{Mode: ModePenalty}
		case in.Speed > h.AlertCurveSpeed:
			e.state = State{Mode: ModeAlert, Acknowledged: in.Acknowledge}
		case downgrade:
			// A track speed downgrade demands acknowledgement even without
			// an immediate overspeed.
			e.state = State{Mode: ModeAlert}
		}

	case ModeAlert:
		e.state.Stopwatch += dt
		e.state.Acknowledged = e.state.Acknowledged || in.Acknowledge
		switch {
		case in.Speed > h.PenaltyCurveSpeed || e.state.Stopwatch > alertCountdown:
			e.state = State{Mode: ModePenalty, Acknowledged: e.state.Acknowledged}
		case in.Speed < h.AlertCurveSpeed && e.state.Acknowledged:
			e.state = State{}
		}

	case ModePenalty, ModePenaltyAcknowledged:
		e.state.Acknowledged = e.state.Acknowledged || in.Acknowledge
		if e.state.Acknowledged {
			e.state.Mode = ModePenaltyAcknowledged
		}
		released := in.Speed < h.AlertCurveSpeed-releaseMargin &&
			e.state.Acknowledged && in.CoastOrBrake
		if h.PositiveStop {
			// Positive stop releases only from a standstill.
			released = in.Stopped && e.state.Acknowledged && in.CoastOrBrake
		}
		if released {
			e.state = State{}
		}
	}

	return e.output(in, overspeed)
}

// recomputeHazards rebuilds the full hazard set for this tick and returns the
// most restrictive entry.
func (e *Engine) recomputeHazards(in Input) hazard.Hazard {
	hs := []hazard.Hazard{hazard.TrackSpeed(in.TrackSpeed)}

	// Advance curves track sensed posts by identity; stale identities drop
	// their curve state with them.
	for id, r := range in.Posts {
		l, ok := e.limits[id]
		if !ok {
			l = hazard.NewAdvanceLimit(r.Payload)
			e.limits[id] = l
		}
		approaching := (r.Distance > 0) == in.MovingForward
		hs = append(hs, l.Update(r.Distance, in.Speed, approaching))
	}
	for id := range e.limits {
		if _, ok := in.Posts[id]; !ok {
			delete(e.limits, id)
		}
	}

	// Stop-signal hazards are stateless, rebuilt from any signal at stop.
	for _, r := range in.Signals {
		if r.Payload != SignalStop {
			continue
		}
		approaching := (r.Distance > 0) == in.MovingForward
		hs = append(hs, hazard.StopSignal(math.Abs(r.Distance), approaching))
	}

	return hazard.InForce(hs)
}

// output maps the accumulator to the demand and indications.
func (e *Engine) output(in Input, overspeed bool) Output {
	h := e.inForce
	out := Output{
		Overspeed:    overspeed,
		PositiveStop: h.PositiveStop,
		TrackSpeed:   h.TrackSpeed,
	}
	switch e.state.Mode {
	case ModeNormal:

	case ModeAlert:
		out.Alarm = true

	case ModePenalty, ModePenaltyAcknowledged:
		if h.PositiveStop {
			out.Brake = BrakePositiveStop
			out.Alarm = !(in.Stopped && e.state.Acknowledged)
		} else {
			out.Brake = BrakePenalty
			out.Alarm = true
		}
	}
	return out
}

func (e *Engine) reset() {
	e.state = State{}
	e.limits = make(map[int]*hazard.AdvanceLimit)
	e.prevTrackSpeed = math.Inf(1)
	e.inForce = hazard.Hazard{AlertCurveSpeed: hazard.Never, PenaltyCurveSpeed: hazard.Never, TrackSpeed: hazard.Never}
}
