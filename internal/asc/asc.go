// Package asc implements Automatic Speed Control: enforcement of the
// cab-signal-indicated speed limit.
//
// The engine is a fold over one coherent event per simulation tick. Each
// Update observes the tick inputs, advances the accumulator state, and maps it
// to a brake demand plus the cab indications. The timeout semantics live in
// the stopwatch carried by the state, not in any scheduled callback.
package asc

import (
	"github.com/YoRyan/dtg-m3-pack/internal/cabsignal"
	"github.com/YoRyan/dtg-m3-pack/internal/units"
)

// Mode identifies the accumulator variant in force.
type Mode int

const (
	ModeNormal Mode = iota
	ModeDowngrade
	ModeOverspeed
	ModeEmergency
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeDowngrade:
		return "downgrade"
	case ModeOverspeed:
		return "overspeed"
	case ModeEmergency:
		return "emergency"
	}
	return "unknown"
}

// Brake is the demand ASC contributes to brake fusion.
type Brake int

const (
	BrakeNone Brake = iota
	BrakePenalty
	BrakeMaxService
	BrakeEmergency
)

// Downgrade escalation ladder, seconds since the downgrade event.
const (
	downgradePenaltyAt    = 7
	downgradeMaxServiceAt = 14
	downgradeEmergencyAt  = 21
)

// brakeAssuranceGrace pads the time budget for achieving the required
// deceleration after overspeed entry, seconds.
const brakeAssuranceGrace = 4

// State is the ASC accumulator. Mode selects which payload fields are
// meaningful; switches over Mode must stay exhaustive.
type State struct {
	Mode Mode

	// Downgrade and Overspeed payloads.
	Stopwatch    float64
	Acknowledged bool

	// Overspeed payload, captured at entry.
	InitialAspect cabsignal.Aspect
	InitialSpeed  float64
	Assured       bool // required deceleration reached at some point
}

// Input is one tick's worth of observations.
type Input struct {
	// Active is false when ASC is cut out, unpowered, or the engine is not
	// under player control. Inactive ticks reset the accumulator.
	Active       bool
	Aspect       cabsignal.Aspect
	Speed        float64 // m/s
	Acceleration float64 // m/s², negative while decelerating
	Acknowledge  bool
	CoastOrBrake bool // master controller out of the power region
	Stopped      bool
}

// Output is the demand and cab indications derived from the accumulator.
type Output struct {
	Brake Brake
	Alarm bool
	// Forestall is lit while an escalation is being held off by
	// acknowledgement (and, in overspeed, satisfied brake assurance).
	Forestall bool
	// BrakeAssurance reports the required deceleration has been achieved
	// since overspeed entry.
	BrakeAssurance bool
}

// Engine holds the accumulator and the previous aspect for downgrade event
// detection.
type Engine struct {
	state      State
	prevAspect cabsignal.Aspect
	hasPrev    bool
}

// NewEngine returns an engine in the normal state.
func NewEngine() *Engine { return &Engine{} }

// State returns the current accumulator.
func (e *Engine) State() State { return e.state }

// requiredDecel is the brake-assurance deceleration rate for an overspeed
// begun under the given aspect, m/s² (positive magnitude).
func requiredDecel(a cabsignal.Aspect) float64 {
	if a <= cabsignal.Medium {
		return units.MphToMps(1.5)
	}
	return units.MphToMps(2.0)
}

// assuranceBudget is the time allowed to achieve the required deceleration,
// from the aspect and speed at overspeed entry.
func assuranceBudget(a cabsignal.Aspect, entrySpeed float64) float64 {
	excess := entrySpeed - a.UnderspeedSetpoint()
	if excess < 0 {
		excess = 0
	}
	return excess/requiredDecel(a) + brakeAssuranceGrace
}

// Update folds one tick into the accumulator and returns the resulting
// demand. dt is the tick duration in seconds.
func (e *Engine) Update(in Input, dt float64) Output {
	if !in.Active {
		e.state = State{}
		e.hasPrev = false
		return Output{}
	}

	downgrade := e.hasPrev && in.Aspect.MoreRestrictiveThan(e.prevAspect)
	e.prevAspect, e.hasPrev = in.Aspect, true

	switch e.state.Mode {
	case ModeNormal:
		if in.Speed > in.Aspect.OverspeedSetpoint() {
			e.state = State{
				Mode:          ModeOverspeed,
				InitialAspect: in.Aspect,
				InitialSpeed:  in.Speed,
			}
		} else if downgrade {
			e.state = State{Mode: ModeDowngrade}
		}

	case ModeDowngrade:
		// Acknowledged last tick: back to normal. Repeated downgrade events
		// are ignored while already in the downgrade state.
		if e.state.Acknowledged {
			e.state = State{}
			break
		}
		e.state.Stopwatch += dt
		e.state.Acknowledged = e.state.Acknowledged || in.Acknowledge
		if e.state.Stopwatch >= downgradeEmergencyAt {
			e.state = State{Mode: ModeEmergency}
		}

	case ModeOverspeed:
		// Downgrade events are ignored while in overspeed.
		e.state.Stopwatch += dt
		e.state.Acknowledged = e.state.Acknowledged || in.Acknowledge
		if in.Acceleration <= -requiredDecel(e.state.InitialAspect) {
			e.state.Assured = true
		}
		budget := assuranceBudget(e.state.InitialAspect, e.state.InitialSpeed)
		switch {
		case !e.state.Assured && e.state.Stopwatch > budget:
			e.state = State{Mode: ModeEmergency}
		case in.Speed <= in.Aspect.UnderspeedSetpoint() && e.state.Acknowledged && in.CoastOrBrake:
			e.state = State{}
		}

	case ModeEmergency:
		e.state.Acknowledged = e.state.Acknowledged || in.Acknowledge
		if e.state.Acknowledged && in.CoastOrBrake && in.Stopped {
			e.state = State{}
		}
	}

	return e.output()
}

// output maps the accumulator to the demand and indications.
func (e *Engine) output() Output {
	s := e.state
	switch s.Mode {
	case ModeNormal:
		return Output{}

	case ModeDowngrade:
		var brake Brake
		switch {
		case s.Stopwatch < downgradePenaltyAt:
			brake = BrakeNone
		case s.Stopwatch < downgradeMaxServiceAt:
			brake = BrakePenalty
		default:
			brake = BrakeMaxService
		}
		return Output{
			Brake:     brake,
			Alarm:     !s.Acknowledged,
			Forestall: s.Acknowledged,
		}

	case ModeOverspeed:
		held := s.Assured && s.Acknowledged
		return Output{
			Brake:          BrakePenalty,
			Alarm:          !held,
			Forestall:      held,
			BrakeAssurance: s.Assured,
		}

	case ModeEmergency:
		return Output{Brake: BrakeEmergency, Alarm: true}
	}
	return Output{}
}
