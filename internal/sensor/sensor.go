// Package sensor converts stateless distance-relative readings of track
// objects into persistent tracked identities.
//
// The host reports wayside objects (speed posts, signals) as bare
// (relative distance, payload) pairs with no identity of their own. ObjectIndex
// re-identifies those readings frame to frame by nearest match within a fixed
// tolerance, and keeps an object alive through the sensing blind spot near the
// vehicle until it re-emerges on the far side or exceeds a maximum passing
// distance. One index exists per object class per vehicle.
package sensor

import "math"

const (
	// MatchTolerance is the maximum distance error, metres, for a reading to
	// claim an existing identity.
	MatchTolerance = 4
	// MaxPassingDistance bounds how far past the vehicle a blind-spot object
	// is carried before its identity is dropped. Longer than one car.
	MaxPassingDistance = 28.5
)

// Reading is a single sensing of a track object.
type Reading struct {
	// Distance is the object's position relative to the vehicle, metres.
	// Positive is ahead in the direction of travel.
	Distance float64
	// Payload is the object-class-specific value: a post's speed limit in
	// m/s, or a signal's state code.
	Payload float64
}

// ObjectIndex assigns persistent small-integer identities to repeated
// readings. It is owned by a single enforcement instance and mutated only
// inside that instance's tick update.
type ObjectIndex struct {
	objects map[int]Reading
	passing map[int]struct{}
	counter int
}

// NewObjectIndex returns an empty index.
func NewObjectIndex() *ObjectIndex {
	return &ObjectIndex{
		objects: make(map[int]Reading),
		passing: make(map[int]struct{}),
	}
}

// Update advances every remembered object by the distance travelled since the
// last reading, matches the new readings against them, and returns the
// resulting identity map. The returned map is owned by the index and is valid
// until the next Update or Reset.
func (x *ObjectIndex) Update(travel float64, readings []Reading) map[int]Reading {
	// Dead-reckon all remembered distances by the vehicle's travel.
	for id, r := range x.objects {
		r.Distance -= travel
		x.objects[id] = r
	}

	claimed := make(map[int]struct{}, len(readings))

	// Pass 1: nearest match against the dead-reckoned position of any
	// remembered object, passing ones included. A passing object matched
	// here has re-emerged from the blind spot.
	unmatched := readings[:0:0]
	for _, r := range readings {
		if id, ok := x.matchSensed(r, claimed); ok {
			claimed[id] = struct{}{}
			delete(x.passing, id)
			x.objects[id] = r
			continue
		}
		unmatched = append(unmatched, r)
	}

	// Pass 2: readings appearing near zero may still be passing objects whose
	// dead reckoning drifted across the blind spot.
	for _, r := range unmatched {
		if id, ok := x.matchPassing(r, travel, claimed); ok {
			claimed[id] = struct{}{}
			delete(x.passing, id)
			x.objects[id] = r
			continue
		}
		// Brand-new object. Claim the fresh identity so the disappearance
		// sweep below does not treat it as a vanished object.
		id := x.counter
		x.counter++
		x.objects[id] = r
		claimed[id] = struct{}{}
	}

	// Unmatched passing objects coast on dead reckoning until they exceed the
	// passing distance.
	for id := range x.passing {
		if _, ok := claimed[id]; ok {
			continue
		}
		if math.Abs(x.objects[id].Distance) > MaxPassingDistance {
			delete(x.passing, id)
			delete(x.objects, id)
		}
	}

	// Sensed objects that disappeared near zero enter the blind spot; ones
	// lost anywhere else are simply forgotten.
	for id, r := range x.objects {
		if _, ok := claimed[id]; ok {
			continue
		}
		if _, ok := x.passing[id]; ok {
			continue
		}
		if math.Abs(r.Distance) <= MatchTolerance+math.Abs(travel) {
			x.passing[id] = struct{}{}
		} else {
			delete(x.objects, id)
		}
	}

	return x.objects
}

// matchSensed finds the closest unclaimed identity within tolerance of r.
// Ties break toward the lowest identity.
func (x *ObjectIndex) matchSensed(r Reading, claimed map[int]struct{}) (int, bool) {
	best, bestErr := -1, math.Inf(1)
	for id, prev := range x.objects {
		if _, ok := claimed[id]; ok {
			continue
		}
		err := math.Abs(prev.Distance - r.Distance)
		if err > MatchTolerance {
			continue
		}
		if err < bestErr || (err == bestErr && id < best) {
			best, bestErr = id, err
		}
	}
	return best, best >= 0
}

// matchPassing matches a reading near zero distance against the blind-spot
// set, accepting only objects consistent with having crossed from the other
// side given the direction of travel.
func (x *ObjectIndex) matchPassing(r Reading, travel float64, claimed map[int]struct{}) (int, bool) {
	if math.Abs(r.Distance) > MatchTolerance {
		return 0, false
	}
	// Moving forward, a crossed object re-emerges behind; in reverse, ahead.
	if travel > 0 && r.Distance > 0 {
		return 0, false
	}
	if travel < 0 && r.Distance < 0 {
		return 0, false
	}
	best, bestErr := -1, math.Inf(1)
	for id := range x.passing {
		if _, ok := claimed[id]; ok {
			continue
		}
		err := math.Abs(x.objects[id].Distance - r.Distance)
		if err > MaxPassingDistance {
			continue
		}
		if err < bestErr || (err == bestErr && id < best) {
			best, bestErr = id, err
		}
	}
	return best, best >= 0
}

// Objects returns the current identity map without advancing it.
func (x *ObjectIndex) Objects() map[int]Reading { return x.objects }

// Reset drops every tracked identity and restarts the counter. Used when
// enforcement becomes inactive.
func (x *ObjectIndex) Reset() {
	x.objects = make(map[int]Reading)
	x.passing = make(map[int]struct{})
	x.counter = 0
}
