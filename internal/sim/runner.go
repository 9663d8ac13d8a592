package sim

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/YoRyan/dtg-m3-pack/internal/acses"
	"github.com/YoRyan/dtg-m3-pack/internal/alerter"
	"github.com/YoRyan/dtg-m3-pack/internal/asc"
	"github.com/YoRyan/dtg-m3-pack/internal/cabsignal"
	"github.com/YoRyan/dtg-m3-pack/internal/interlock"
	"github.com/YoRyan/dtg-m3-pack/internal/sensor"
	"github.com/YoRyan/dtg-m3-pack/internal/trackspeed"
	"github.com/YoRyan/dtg-m3-pack/internal/units"
)

// Geometry of the host-style object searches, metres. Objects crossing the
// vehicle pass through a blind window roughly one car long; the indexer
// carries their identities across it.
const (
	searchAhead  = 3000
	searchBehind = 200
	blindAhead   = 1
	blindBehind  = interlock.ReferenceCarLength + 0.6
)

// crewState holds the held crew controls between scripted events. Acknowledge
// and horn are momentary and cleared every tick.
type crewState struct {
	rawController float64
	acknowledge   bool
	horn          bool
	camera        bool
	masterKey     bool
	ascCutIn      bool
	acsesCutIn    bool
	alerterCutIn  bool
	reverser      float64
}

// Runner executes one scenario to completion.
type Runner struct {
	sc  *Scenario
	log *logrus.Logger

	posts   *sensor.ObjectIndex
	signals *sensor.ObjectIndex
	track   *trackspeed.Tracker
	asc     *asc.Engine
	acses   *acses.Engine
	alerter *alerter.Engine

	ctrl  interlock.Controller
	latch interlock.EmergencyLatch
	dyn   interlock.DynamicBrake
	air   *interlock.AirBrake

	veh    vehicleState
	crew   crewState
	aspect cabsignal.Aspect

	curTime      float64
	lastSensePos float64
	nextDriver   int
	nextAspect   int

	prevAscMode     string
	prevAcsesMode   string
	prevAlerterMode string
}

// NewRunner wires the protection core for the given scenario. A nil logger
// falls back to the standard logger. The scenario must be normalized.
func NewRunner(sc *Scenario, logger *logrus.Logger) *Runner {
	if sc.Meta.RunID == "" {
		sc.Meta.RunID = uuid.NewString()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		sc:      sc,
		log:     logger,
		veh:     vehicleState{speed: units.MphToMps(sc.Vehicle.InitialSpeedMph)},
		posts:   sensor.NewObjectIndex(),
		signals: sensor.NewObjectIndex(),
		track:   trackspeed.NewTracker(),
		asc:     asc.NewEngine(),
		acses:   acses.NewEngine(),
		alerter: alerter.NewEngine(),
		air:     interlock.NewAirBrake(),
		ctrl:    interlock.Controller{Region: interlock.RegionCoast},
		aspect:  cabsignal.Restrict,
		crew: crewState{
			masterKey:    true,
			ascCutIn:     true,
			acsesCutIn:   true,
			alerterCutIn: true,
			reverser:     1,
		},
	}
}

// Run executes the full scenario and returns the log.
func (r *Runner) Run() *RunLog {
	r.log.WithFields(logrus.Fields{
		"run_id":   r.sc.Meta.RunID,
		"run_time": r.sc.Meta.RunTime,
	}).Info("starting run")

	out := &RunLog{RunID: r.sc.Meta.RunID}
	for r.curTime <= r.sc.Meta.RunTime {
		out.Rows = append(out.Rows, r.step())
		r.curTime += r.sc.Meta.TimeStep
	}
	return out
}

// step advances the simulation by one timestep and returns the resulting log
// row.
func (r *Runner) step() Row {
	dt := r.sc.Meta.TimeStep

	// Scripted events due this tick.
	r.crew.acknowledge, r.crew.horn = false, false
	for r.nextDriver < len(r.sc.Driver) && r.sc.Driver[r.nextDriver].At <= r.curTime {
		r.applyDriver(r.sc.Driver[r.nextDriver])
		r.nextDriver++
	}
	for r.nextAspect < len(r.sc.CabSignal) && r.sc.CabSignal[r.nextAspect].At <= r.curTime {
		c := r.sc.CabSignal[r.nextAspect]
		r.nextAspect++
		a, ok := cabsignal.Decode(c.Code)
		if !ok {
			r.log.WithField("code", c.Code).Warn("unknown pulse code, treating as Restrict")
		}
		r.aspect = a
	}

	movingForward := r.crew.reverser >= 0
	stopped := r.veh.stopped()

	// Controller decode, deriving the discrete crew events from the region
	// transition before the engines observe this tick.
	prevCtrl := r.ctrl
	r.ctrl = interlock.DecodeController(r.crew.rawController, prevCtrl)
	coastShift := (r.ctrl.Region == interlock.RegionCoast) != (prevCtrl.Region == interlock.RegionCoast)
	cancelPenalty := coastShift && r.ctrl.Region == interlock.RegionCoast

	// Sense pass.
	travel := r.veh.position - r.lastSensePos
	r.lastSensePos = r.veh.position

	acsesActive := r.crew.masterKey && r.crew.acsesCutIn
	var postMap, sigMap map[int]sensor.Reading
	trackSpeed := trackspeed.NoData
	if acsesActive {
		postMap = r.posts.Update(travel, r.sensePosts())
		sigMap = r.signals.Update(travel, r.senseSignals())
		host := r.sc.Track.HostLimitAt(r.veh.position, units.MphToMps(r.sc.Vehicle.MaxSpeedMph))
		trackSpeed = r.track.Update(postMap, host, r.sc.Vehicle.ConsistLength, dt)
		if r.track.Degraded() {
			trackSpeed = host
		}
	} else {
		r.posts.Reset()
		r.signals.Reset()
		r.track.Reset()
	}

	// Protect pass.
	ascOut := r.asc.Update(asc.Input{
		Active:       r.crew.masterKey && r.crew.ascCutIn,
		Aspect:       r.aspect,
		Speed:        r.veh.speed,
		Acceleration: r.veh.accel,
		Acknowledge:  r.crew.acknowledge,
		CoastOrBrake: r.ctrl.CoastOrBrake(),
		Stopped:      stopped,
	}, dt)

	acsesOut := r.acses.Update(acses.Input{
		Active:        acsesActive,
		Speed:         r.veh.speed,
		TrackSpeed:    trackSpeed,
		Acknowledge:   r.crew.acknowledge,
		CoastOrBrake:  r.ctrl.CoastOrBrake(),
		Stopped:       stopped,
		MovingForward: movingForward,
		Posts:         postMap,
		Signals:       sigMap,
	}, dt)

	aleOut := r.alerter.Update(alerter.Input{
		Active:         r.crew.masterKey && r.crew.alerterCutIn,
		Activity:       r.crew.acknowledge || r.crew.horn || r.ctrl.MaxBrakeOrEmergency() || coastShift,
		CameraExterior: r.crew.camera,
		CancelPenalty:  cancelPenalty,
	}, dt)

	// Actuate pass.
	cmd := interlock.Fuse(interlock.Demands{ASC: ascOut, ACSES: acsesOut, Alerter: aleOut}, r.ctrl)
	wasLatched := r.latch.Set()
	r.latch.Update(cmd, stopped, r.air.PipePressure())
	if r.latch.Set() && !wasLatched {
		r.log.WithField("time", r.curTime).Warn("emergency brake latched")
		r.air.Dump()
		r.dyn.Reset()
	}

	var demand tractionDemand
	if r.latch.Set() {
		demand.emergency = true
	} else {
		service := 0.0
		if cmd.Kind == interlock.BrakeService {
			service = cmd.Fraction
		}
		// Blend: the dynamic ramp takes what it can, the air brake covers the
		// remainder of the commanded intensity.
		r.dyn.Update(service, dt)
		effort := r.dyn.Effort(r.sc.Vehicle.ConsistLength)
		airTarget := units.Clamp(service-effort, 0, 1)
		demand.dynamic = effort
		demand.air = r.air.Update(airTarget, r.veh.speed, r.crew.masterKey, dt)
		if cmd.Kind == interlock.BrakeNone && r.ctrl.Region == interlock.RegionPower && r.air.Ready() {
			demand.throttle = r.ctrl.Fraction
		}
	}

	row := r.record(cmd, demand, ascOut, acsesOut, aleOut)
	r.logTransitions()

	// Physics.
	r.veh.step(demand, r.sc.Vehicle, dt)
	return row
}

// applyDriver folds one scripted event into the held crew state.
func (r *Runner) applyDriver(ev DriverEvent) {
	if ev.Controller != nil {
		r.crew.rawController = *ev.Controller
	}
	r.crew.acknowledge = r.crew.acknowledge || ev.Acknowledge
	r.crew.horn = r.crew.horn || ev.Horn
	if ev.Camera != nil {
		r.crew.camera = *ev.Camera
	}
	if ev.MasterKey != nil {
		r.crew.masterKey = *ev.MasterKey
	}
	if ev.AscCutIn != nil {
		r.crew.ascCutIn = *ev.AscCutIn
	}
	if ev.AcsesCutIn != nil {
		r.crew.acsesCutIn = *ev.AcsesCutIn
	}
	if ev.AlerterCutIn != nil {
		r.crew.alerterCutIn = *ev.AlerterCutIn
	}
	if ev.Reverser != nil {
		r.crew.reverser = *ev.Reverser
	}
}

// visible reports whether a relative distance falls inside the search range
// and outside the blind window.
func visible(d float64) bool {
	return (d >= blindAhead && d <= searchAhead) ||
		(d <= -blindBehind && d >= -searchBehind)
}

// sensePosts answers the speed post search for the current position.
func (r *Runner) sensePosts() []sensor.Reading {
	return lo.FilterMap(r.sc.Track.Posts, func(p SpeedPost, _ int) (sensor.Reading, bool) {
		d := p.Position - r.veh.position
		if !visible(d) {
			return sensor.Reading{}, false
		}
		return sensor.Reading{Distance: d, Payload: units.MphToMps(p.LimitMph)}, true
	})
}

// senseSignals answers the signal search for the current position and time.
func (r *Runner) senseSignals() []sensor.Reading {
	return lo.FilterMap(r.sc.Track.Signals, func(s Signal, _ int) (sensor.Reading, bool) {
		d := s.Position - r.veh.position
		if !visible(d) {
			return sensor.Reading{}, false
		}
		payload := 1.0
		if s.StateAt(r.curTime) == SignalStop {
			payload = acses.SignalStop
		}
		return sensor.Reading{Distance: d, Payload: payload}, true
	})
}

// record snapshots this tick for the run log.
func (r *Runner) record(cmd interlock.BrakeCommand, d tractionDemand, ascOut asc.Output, acsesOut acses.Output, aleOut alerter.Output) Row {
	row := Row{
		Time:     r.curTime,
		Position: r.veh.position,
		SpeedMph: units.MpsToMph(r.veh.speed),

		AscMode:     r.asc.State().Mode.String(),
		AcsesMode:   r.acses.State().Mode.String(),
		AlerterMode: r.alerter.Mode().String(),

		Brake:         cmd.Kind.String(),
		BrakeFraction: cmd.Fraction,
		Throttle:      d.throttle,
		DynamicBrake:  d.dynamic,
		AirBrake:      d.air,
		Latched:       r.latch.Set(),

		Alarm:        ascOut.Alarm || acsesOut.Alarm || aleOut.Alarm,
		Overspeed:    acsesOut.Overspeed,
		PositiveStop: acsesOut.PositiveStop,
		Aspect:       r.aspect.String(),
	}
	if !math.IsInf(acsesOut.TrackSpeed, 1) {
		mph := units.MpsToMph(acsesOut.TrackSpeed)
		row.TrackSpeed = &mph
	}
	return row
}

// logTransitions emits one structured entry per subsystem mode change.
func (r *Runner) logTransitions() {
	emit := func(name, prev, cur string) string {
		if prev != "" && prev != cur {
			r.log.WithFields(logrus.Fields{
				"time": r.curTime,
				"from": prev,
				"to":   cur,
			}).Infof("%s mode change", name)
		}
		return cur
	}
	r.prevAscMode = emit("asc", r.prevAscMode, r.asc.State().Mode.String())
	r.prevAcsesMode = emit("acses", r.prevAcsesMode, r.acses.State().Mode.String())
	r.prevAlerterMode = emit("alerter", r.prevAlerterMode, r.alerter.Mode().String())
}

// RunJSON is the entry point shared by the CLI and WASM targets. It accepts a
// JSON-encoded Scenario, runs it, and returns the JSON-encoded RunLog.
func RunJSON(jsonInput string) (string, error) {
	var sc Scenario
	if err := json.Unmarshal([]byte(jsonInput), &sc); err != nil {
		return "", fmt.Errorf("invalid scenario JSON: %w", err)
	}
	if err := sc.Normalize(); err != nil {
		return "", err
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	out := NewRunner(&sc, logger).Run()
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding run log: %w", err)
	}
	return string(data), nil
}
