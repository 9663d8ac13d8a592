// Package trackspeed infers the currently enforced track speed limit from
// sensed speed posts, cross-checked against the limit the host reports.
//
// The host limit reflects the restriction at the head of the consist, which is
// wrong while the rear of the train is still inside a restriction. Posts are
// therefore remembered two-sided: the limit a post displayed while it was
// ahead (its "before" value) and while it was behind ("after"). The enforced
// limit is taken from the nearest post already passed, falling back to the
// nearest post ahead, falling back to the previous inference.
package trackspeed

import (
	"math"

	"github.com/YoRyan/dtg-m3-pack/internal/sensor"
)

// NoData is the sentinel for "no restriction sensed yet". A very high speed,
// so nothing falsely enforces before the first post arrives.
var NoData = math.Inf(1)

// degradeAfter is how long, seconds, the tracker carries a pure guess before
// declaring the inference degraded.
const degradeAfter = 60

// post is the two-sided record of one tracked speed post.
type post struct {
	before, after float64 // limit shown on approach/departure side; NaN when unseen
	distance      float64 // last relative distance, metres
}

// Tracker accumulates the enforced track speed once per tick.
type Tracker struct {
	posts      map[int]*post
	current    float64
	sinceFix   float64 // seconds since a sensed post confirmed the inference
	everSensed bool
}

// NewTracker returns a tracker with no restriction sensed.
func NewTracker() *Tracker {
	return &Tracker{posts: make(map[int]*post), current: NoData}
}

// Speed returns the enforced track speed limit, m/s, or NoData.
func (t *Tracker) Speed() float64 { return t.current }

// Degraded reports that the inference has been coasting on a carried-forward
// guess for too long. Enforcement falls back to the host limit while degraded.
func (t *Tracker) Degraded() bool { return t.everSensed && t.sinceFix > degradeAfter }

// Update folds one tick of sensed posts into the enforced limit.
// sensed is the post identity map from the object indexer, hostLimit the
// host-reported limit at the head of the consist, consistLength the train
// length in metres, and dt the tick duration in seconds.
func (t *Tracker) Update(sensed map[int]sensor.Reading, hostLimit, consistLength, dt float64) float64 {
	t.sync(sensed)

	justBefore, haveBefore := t.nearestBehind()
	justAfter, haveAfter := t.nearestAhead()

	inferred := t.current
	confirmed := false
	switch {
	case haveBefore && !math.IsNaN(justBefore.after):
		inferred = justBefore.after
		confirmed = true
	case haveAfter && !math.IsNaN(justAfter.before):
		inferred = justAfter.before
		confirmed = true
	}

	switch {
	case hostLimit > inferred:
		// The host limit only drops once the whole consist clears a
		// restriction, so a greater value is always safe and current.
		t.current = hostLimit
		confirmed = true
	case haveBefore && -justBefore.distance > consistLength:
		// The last sensed post is confirmed behind the rear of the consist;
		// the host limit can be trusted even if lower than inferred.
		t.current = hostLimit
		confirmed = true
	default:
		t.current = inferred
	}

	if confirmed {
		t.sinceFix = 0
	} else {
		t.sinceFix += dt
	}
	return t.current
}

// sync refreshes the two-sided records from this tick's identity map and
// forgets posts whose identities were dropped.
func (t *Tracker) sync(sensed map[int]sensor.Reading) {
	for id, r := range sensed {
		p, ok := t.posts[id]
		if !ok {
			p = &post{before: math.NaN(), after: math.NaN()}
			t.posts[id] = p
		}
		p.distance = r.Distance
		if r.Distance >= 0 {
			p.before = r.Payload
		} else {
			p.after = r.Payload
		}
		t.everSensed = true
	}
	for id := range t.posts {
		if _, ok := sensed[id]; !ok {
			delete(t.posts, id)
		}
	}
}

// nearestBehind returns the closest post with negative relative distance.
func (t *Tracker) nearestBehind() (*post, bool) {
	var best *post
	for _, p := range t.posts {
		if p.distance >= 0 {
			continue
		}
		if best == nil || p.distance > best.distance {
			best = p
		}
	}
	return best, best != nil
}

// nearestAhead returns the closest post with non-negative relative distance.
func (t *Tracker) nearestAhead() (*post, bool) {
	var best *post
	for _, p := range t.posts {
		if p.distance < 0 {
			continue
		}
		if best == nil || p.distance < best.distance {
			best = p
		}
	}
	return best, best != nil
}

// Reset returns the tracker to the "no restriction sensed" state. Used when
// enforcement becomes inactive.
func (t *Tracker) Reset() {
	t.posts = make(map[int]*post)
	t.current = NoData
	t.sinceFix = 0
	t.everSensed = false
}
