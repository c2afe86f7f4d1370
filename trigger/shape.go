package trigger

import "math"

// Shape exaggerates small motion: 1 - (1-raw)^3. Shape(0) = 0, Shape(1) = 1 and
// the curve is monotonically non-decreasing in between.
func Shape(raw float64) float64 {
	raw = clamp(raw, 0, 1)
	inv := 1 - raw
	return 1 - inv*inv*inv
}

// MIDIVelocity maps a velocity in [0, 1] to a MIDI velocity in [0, 127],
// rounding half up.
func MIDIVelocity(v float64) uint8 {
	v = clamp(v, 0, 1)
	n := int(math.Floor(v*127 + 0.5))
	if n < 0 {
		n = 0
	}
	if n > 127 {
		n = 127
	}
	return uint8(n)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
