// Package sim drives the protection core against a scripted scenario.
//
// The simulation advances in fixed timesteps. Each step has three passes:
//
//  1. Sense - the track description answers the host-style object searches,
//     and the object indexer and track speed tracker fold in the results.
//
//  2. Protect - the ASC, ACSES, and alerter engines each observe one
//     coherent event (the new clock tick merged with discrete events derived
//     from the previous tick's outputs) and produce their brake demands.
//
//  3. Actuate - the interlock fuses the demands with the master controller,
//     the brake models ramp, and the vehicle physics advance.
package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YoRyan/dtg-m3-pack/internal/interlock"
	"github.com/YoRyan/dtg-m3-pack/internal/units"
)

// Meta holds the identity and timing parameters for a simulation run.
type Meta struct {
	RunID    string  `yaml:"run_id" json:"run_id"`
	RunTime  float64 `yaml:"run_time" json:"run_time"`   // seconds
	TimeStep float64 `yaml:"time_step" json:"time_step"` // seconds
}

// Vehicle holds the static parameters of the simulated consist.
type Vehicle struct {
	ConsistLength  float64 `yaml:"consist_length" json:"consist_length"`   // metres
	MaxAccel       float64 `yaml:"max_accel" json:"max_accel"`             // m/s²
	MaxDecel       float64 `yaml:"max_decel" json:"max_decel"`             // m/s², service
	EmergencyDecel float64 `yaml:"emergency_decel" json:"emergency_decel"` // m/s²
	MaxSpeedMph    float64 `yaml:"max_speed_mph" json:"max_speed_mph"`
	// InitialSpeedMph lets a scenario start in motion.
	InitialSpeedMph float64 `yaml:"initial_speed_mph,omitempty" json:"initial_speed_mph,omitempty"`
}

// SpeedPost is a wayside civil speed restriction marker.
type SpeedPost struct {
	Position float64 `yaml:"position" json:"position"` // metres from origin
	LimitMph float64 `yaml:"limit_mph" json:"limit_mph"`
}

// SignalState is a wayside signal indication.
type SignalState string

const (
	SignalClear SignalState = "clear"
	SignalStop  SignalState = "stop"
)

// SignalChange is a timed change of a signal's indication.
type SignalChange struct {
	At    float64     `yaml:"at" json:"at"` // seconds
	State SignalState `yaml:"state" json:"state"`
}

// Signal is a wayside signal with an optional indication timeline.
type Signal struct {
	Position float64        `yaml:"position" json:"position"`
	State    SignalState    `yaml:"state" json:"state"`
	Changes  []SignalChange `yaml:"changes,omitempty" json:"changes,omitempty"`
}

// StateAt returns the signal's indication at simulation time t.
func (s Signal) StateAt(t float64) SignalState {
	state := s.State
	for _, c := range s.Changes {
		if c.At <= t {
			state = c.State
		}
	}
	return state
}

// LimitSegment is one segment of the host-reported speed limit profile.
type LimitSegment struct {
	From     float64 `yaml:"from" json:"from"` // metres
	LimitMph float64 `yaml:"limit_mph" json:"limit_mph"`
}

// Track is the linear track description the scenario runs over.
type Track struct {
	Posts      []SpeedPost    `yaml:"posts,omitempty" json:"posts,omitempty"`
	Signals    []Signal       `yaml:"signals,omitempty" json:"signals,omitempty"`
	HostLimits []LimitSegment `yaml:"host_limits,omitempty" json:"host_limits,omitempty"`
}

// HostLimitAt returns the host-reported limit, m/s, at the given position.
// Falls back to the vehicle's maximum speed when no segment covers it.
func (t Track) HostLimitAt(position, fallback float64) float64 {
	limit := fallback
	for _, seg := range t.HostLimits {
		if seg.From <= position {
			limit = units.MphToMps(seg.LimitMph)
		}
	}
	return limit
}

// AspectChange is a timed cab-signal message carrying a pulse code.
type AspectChange struct {
	At   float64 `yaml:"at" json:"at"`
	Code int     `yaml:"code" json:"code"`
}

// DriverEvent is one scripted crew action. Pointer fields are applied only
// when present, so a single event can combine any subset of actions.
type DriverEvent struct {
	At           float64  `yaml:"at" json:"at"`
	Controller   *float64 `yaml:"controller,omitempty" json:"controller,omitempty"` // raw value in [-1, 1]
	Acknowledge  bool     `yaml:"acknowledge,omitempty" json:"acknowledge,omitempty"`
	Horn         bool     `yaml:"horn,omitempty" json:"horn,omitempty"`
	Camera       *bool    `yaml:"camera_exterior,omitempty" json:"camera_exterior,omitempty"`
	MasterKey    *bool    `yaml:"master_key,omitempty" json:"master_key,omitempty"`
	AscCutIn     *bool    `yaml:"asc_cut_in,omitempty" json:"asc_cut_in,omitempty"`
	AcsesCutIn   *bool    `yaml:"acses_cut_in,omitempty" json:"acses_cut_in,omitempty"`
	AlerterCutIn *bool    `yaml:"alerter_cut_in,omitempty" json:"alerter_cut_in,omitempty"`
	Reverser     *float64 `yaml:"reverser,omitempty" json:"reverser,omitempty"`
}

// Scenario is the complete input to a simulation run.
type Scenario struct {
	Meta      Meta           `yaml:"meta" json:"meta"`
	Vehicle   Vehicle        `yaml:"vehicle" json:"vehicle"`
	Track     Track          `yaml:"track" json:"track"`
	CabSignal []AspectChange `yaml:"cab_signal,omitempty" json:"cab_signal,omitempty"`
	Driver    []DriverEvent  `yaml:"driver,omitempty" json:"driver,omitempty"`
}

// M3 defaults applied to unset vehicle parameters.
const (
	defaultConsistLength  = 2 * interlock.ReferenceCarLength
	defaultMaxAccel       = 0.9
	defaultMaxDecel       = 1.2
	defaultEmergencyDecel = 1.5
	defaultMaxSpeedMph    = 80
)

// Normalize validates the scenario, applies defaults, and sorts the
// timelines. It must be called before running.
func (s *Scenario) Normalize() error {
	if s.Meta.TimeStep <= 0 {
		return fmt.Errorf("meta.time_step must be positive, got %g", s.Meta.TimeStep)
	}
	if s.Meta.RunTime <= 0 {
		return fmt.Errorf("meta.run_time must be positive, got %g", s.Meta.RunTime)
	}

	if s.Vehicle.ConsistLength <= 0 {
		s.Vehicle.ConsistLength = defaultConsistLength
	}
	if s.Vehicle.MaxAccel <= 0 {
		s.Vehicle.MaxAccel = defaultMaxAccel
	}
	if s.Vehicle.MaxDecel <= 0 {
		s.Vehicle.MaxDecel = defaultMaxDecel
	}
	if s.Vehicle.EmergencyDecel <= 0 {
		s.Vehicle.EmergencyDecel = defaultEmergencyDecel
	}
	if s.Vehicle.MaxSpeedMph <= 0 {
		s.Vehicle.MaxSpeedMph = defaultMaxSpeedMph
	}

	for i, p := range s.Track.Posts {
		if p.LimitMph <= 0 {
			return fmt.Errorf("track.posts[%d]: limit_mph must be positive", i)
		}
	}
	for i, sig := range s.Track.Signals {
		if sig.State == "" {
			s.Track.Signals[i].State = SignalClear
		}
	}

	sort.SliceStable(s.Track.HostLimits, func(i, j int) bool {
		return s.Track.HostLimits[i].From < s.Track.HostLimits[j].From
	})
	sort.SliceStable(s.CabSignal, func(i, j int) bool {
		return s.CabSignal[i].At < s.CabSignal[j].At
	})
	sort.SliceStable(s.Driver, func(i, j int) bool {
		return s.Driver[i].At < s.Driver[j].At
	})
	for i := range s.Track.Signals {
		sig := &s.Track.Signals[i]
		sort.SliceStable(sig.Changes, func(a, b int) bool {
			return sig.Changes[a].At < sig.Changes[b].At
		})
	}
	return nil
}

// Load reads a scenario from a YAML or JSON file, keyed by extension.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var sc Scenario
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &sc)
	} else {
		err = yaml.Unmarshal(data, &sc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if err := sc.Normalize(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}
