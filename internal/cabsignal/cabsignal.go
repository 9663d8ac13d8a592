// Package cabsignal defines the six discrete cab-signal speed aspects and
// their enforcement setpoints, along with decoding from the host's pulse-code
// signal messages.
package cabsignal

import "github.com/YoRyan/dtg-m3-pack/internal/units"

// Aspect is a cab-signal speed code, ordered from most to least restrictive.
type Aspect int

const (
	Restrict Aspect = iota // 15 mph
	Medium                 // 30 mph
	Limited                // 40 mph
	Normal60               // 60 mph
	Normal70               // 70 mph
	Normal80               // 80 mph
)

// aspectRow is one line of the fixed enforcement table.
type aspectRow struct {
	name      string
	nominal   float64 // mph
	overspeed float64 // mph, entry setpoint
}

// Underspeed (release) setpoints sit at the nominal speed; overspeed entry
// setpoints run slightly above it.
var table = [...]aspectRow{
	Restrict: {"Restrict", 15, 17},
	Medium:   {"Medium", 30, 32},
	Limited:  {"Limited", 40, 42},
	Normal60: {"Normal60", 60, 62},
	Normal70: {"Normal70", 70, 72},
	Normal80: {"Normal80", 80, 82},
}

func (a Aspect) String() string { return table[a].name }

// NominalSpeed returns the aspect's indicated speed, m/s.
func (a Aspect) NominalSpeed() float64 { return units.MphToMps(table[a].nominal) }

// OverspeedSetpoint returns the speed, m/s, above which ASC enters the
// overspeed state.
func (a Aspect) OverspeedSetpoint() float64 { return units.MphToMps(table[a].overspeed) }

// UnderspeedSetpoint returns the speed, m/s, below which an overspeed
// condition may release.
func (a Aspect) UnderspeedSetpoint() float64 { return units.MphToMps(table[a].nominal) }

// MoreRestrictiveThan reports whether a indicates a lower speed than b.
func (a Aspect) MoreRestrictiveThan(b Aspect) bool { return a < b }

// Pulse codes carried by the host's signal messages. The mapping mirrors the
// rate-coded track circuits: faster codes clear higher speeds.
var pulseCodes = map[int]Aspect{
	75:  Restrict,
	120: Medium,
	180: Limited,
	270: Normal60,
	420: Normal70,
	600: Normal80,
}

// Decode translates a host signal-message pulse code into an aspect.
// Unknown codes decode to Restrict, the conservative fallback, with ok false.
func Decode(code int) (Aspect, bool) {
	a, ok := pulseCodes[code]
	if !ok {
		return Restrict, false
	}
	return a, true
}
