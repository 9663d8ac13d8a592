// Package units provides unit conversions and small numeric helpers shared by
// the protection subsystems. All internal computation uses SI units: metres,
// metres per second, and seconds. Conversions exist only at the edges, where
// scenario files and cab displays speak mph.
package units

const mpsPerMph = 0.44704

// MphToMps converts miles per hour to metres per second.
func MphToMps(v float64) float64 { return v * mpsPerMph }

// MpsToMph converts metres per second to miles per hour.
func MpsToMph(v float64) float64 { return v / mpsPerMph }

// Clamp limits v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Rescale maps v from [inLo, inHi] to [0, 1], clamped.
func Rescale(v, inLo, inHi float64) float64 {
	if inHi <= inLo {
		return 0
	}
	return Clamp((v-inLo)/(inHi-inLo), 0, 1)
}
