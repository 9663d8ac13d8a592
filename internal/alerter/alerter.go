// Package alerter implements the operator vigilance subsystem: a countdown
// reset by crew activity, escalating through an alarm window to a sticky
// penalty brake.
package alerter

// Timing of the vigilance cycle, seconds.
const (
	CountdownTime = 25
	AlarmTime     = 15
)

// Mode identifies the accumulator variant in force.
type Mode int

const (
	ModeCountdown Mode = iota
	ModeAlarm
	ModePenalty
)

func (m Mode) String() string {
	switch m {
	case ModeCountdown:
		return "countdown"
	case ModeAlarm:
		return "alarm"
	case ModePenalty:
		return "penalty"
	}
	return "unknown"
}

// Input is one tick's worth of observations.
type Input struct {
	// Active is false when the alerter is cut out, unpowered, or the engine
	// is not under player control.
	Active bool
	// Activity is any qualifying crew action: acknowledge joystick, horn,
	// max-brake or emergency controller position, or moving into or out of
	// coast.
	Activity bool
	// CameraExterior holds the countdown while a non-cab camera view is up.
	CameraExterior bool
	// CancelPenalty is the deliberate action that clears a penalty, such as
	// moving the master controller through coast.
	CancelPenalty bool
}

// Output is the alerter's contribution to the cab and to brake fusion.
type Output struct {
	Alarm        bool
	PenaltyBrake bool
}

// Engine holds the vigilance accumulator.
type Engine struct {
	mode      Mode
	remaining float64
}

// NewEngine returns an engine with a full countdown.
func NewEngine() *Engine {
	return &Engine{mode: ModeCountdown, remaining: CountdownTime}
}

// Mode returns the current accumulator variant.
func (e *Engine) Mode() Mode { return e.mode }

// Remaining returns the seconds left in the current countdown or alarm
// window. Zero while in penalty.
func (e *Engine) Remaining() float64 { return e.remaining }

// Update folds one tick into the accumulator. dt is the tick duration in
// seconds.
func (e *Engine) Update(in Input, dt float64) Output {
	if !in.Active {
		e.reset()
		return Output{}
	}

	switch e.mode {
	case ModeCountdown, ModeAlarm:
		if in.Activity || in.CameraExterior || in.CancelPenalty {
			e.reset()
			break
		}
		e.remaining -= dt
		if e.remaining > 0 {
			break
		}
		if e.mode == ModeCountdown {
			e.mode = ModeAlarm
			e.remaining = AlarmTime
		} else {
			e.mode = ModePenalty
			e.remaining = 0
		}

	case ModePenalty:
		// Sticky: ordinary activity does not clear a penalty.
		if in.CancelPenalty {
			e.reset()
		}
	}

	return Output{
		Alarm:        e.mode != ModeCountdown,
		PenaltyBrake: e.mode == ModePenalty,
	}
}

func (e *Engine) reset() {
	e.mode = ModeCountdown
	e.remaining = CountdownTime
}
