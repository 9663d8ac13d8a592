package hazard

// AdvanceLimit is the stateful braking curve toward a sensed speed post ahead.
// One exists per tracked post identity. It remembers whether its advance curve
// has already been violated, which is what reveals the upcoming limit on the
// cab display before the post is reached.
type AdvanceLimit struct {
	// Limit is the speed restriction that begins at the post, m/s.
	Limit float64

	violated   bool
	violatedAt float64 // post distance when the curve was first violated, metres
}

// NewAdvanceLimit creates the curve state for a newly sensed post.
func NewAdvanceLimit(limit float64) *AdvanceLimit {
	return &AdvanceLimit{Limit: limit}
}

// Violated reports whether the advance curve has been violated at any point
// while this post was tracked.
func (l *AdvanceLimit) Violated() bool { return l.violated }

// Update recomputes the hazard from the post's current relative distance and
// the vehicle speed. The curve is inapplicable (Never) while the vehicle is
// moving away from the post.
func (l *AdvanceLimit) Update(distance, speed float64, approaching bool) Hazard {
	if !approaching {
		return Hazard{AlertCurveSpeed: Never, PenaltyCurveSpeed: Never, TrackSpeed: Never}
	}

	d := distance
	if d < 0 {
		d = 0
	}
	h := Hazard{
		AlertCurveSpeed:   BrakingCurveSpeed(l.Limit, d, AlertLeadTime),
		PenaltyCurveSpeed: BrakingCurveSpeed(l.Limit, d, 0),
		TrackSpeed:        Never,
	}

	if !l.violated && speed > h.AlertCurveSpeed {
		l.violated = true
		l.violatedAt = distance
	}
	if l.violated {
		h.TrackSpeed = l.Limit
	}
	return h
}
