package interlock

import (
	"github.com/YoRyan/dtg-m3-pack/internal/acses"
	"github.com/YoRyan/dtg-m3-pack/internal/alerter"
	"github.com/YoRyan/dtg-m3-pack/internal/asc"
)

// BrakeKind tags the fused brake command.
type BrakeKind int

const (
	BrakeNone BrakeKind = iota
	BrakeService
	BrakeEmergency
)

func (k BrakeKind) String() string {
	switch k {
	case BrakeNone:
		return "none"
	case BrakeService:
		return "service"
	case BrakeEmergency:
		return "emergency"
	}
	return "unknown"
}

// BrakeCommand is the single fused brake output for one tick. Fraction is the
// commanded service intensity in [0, 1], meaningful for BrakeService.
type BrakeCommand struct {
	Kind     BrakeKind
	Fraction float64
}

// Demands collects the three subsystems' outputs entering fusion.
type Demands struct {
	ASC     asc.Output
	ACSES   acses.Output
	Alerter alerter.Output
}

// penalty reports any subsystem demanding a full service application.
func (d Demands) penalty() bool {
	return d.Alerter.PenaltyBrake ||
		d.ASC.Brake == asc.BrakePenalty || d.ASC.Brake == asc.BrakeMaxService ||
		d.ACSES.Brake == acses.BrakePenalty || d.ACSES.Brake == acses.BrakePositiveStop
}

// Fuse combines the subsystem demands with the controller position.
// Priority, highest first: emergency (ASC or controller), any penalty demand
// as full service, then the controller's own region.
func Fuse(d Demands, ctrl Controller) BrakeCommand {
	switch {
	case d.ASC.Brake == asc.BrakeEmergency || ctrl.Region == RegionEmergency:
		return BrakeCommand{Kind: BrakeEmergency, Fraction: 1}
	case d.penalty():
		return BrakeCommand{Kind: BrakeService, Fraction: 1}
	case ctrl.Region == RegionCoast || ctrl.Region == RegionPower:
		return BrakeCommand{Kind: BrakeNone}
	default:
		return BrakeCommand{Kind: BrakeService, Fraction: ctrl.Fraction}
	}
}

// EmergencyLatch holds an emergency brake application until the train has
// physically recovered: stopped, with the brake pipe fully discharged. The
// latch must not release early even if the triggering condition clears
// within a tick.
type EmergencyLatch struct {
	set bool
}

// Set reports the latch state.
func (l *EmergencyLatch) Set() bool { return l.set }

// Update folds one tick of the fused command and the physical readouts into
// the latch. pipePressure is normalized 0..1.
func (l *EmergencyLatch) Update(cmd BrakeCommand, stopped bool, pipePressure float64) {
	if cmd.Kind == BrakeEmergency {
		l.set = true
		return
	}
	if l.set && stopped && pipePressure <= 0 {
		l.set = false
	}
}
