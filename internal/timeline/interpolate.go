package timeline

import "math"

// Easing maps linear progress in [0,1] to eased progress
type Easing func(t float64) float64

// Linear is the identity easing.
func Linear(t float64) float64 { return t }

// Bezier returns a cubic-bezier easing with control points (x1,y1) and (x2,y2),
// matching the CSS timing-function definition.
func Bezier(x1, y1, x2, y2 float64) Easing {
	if x1 == y1 && x2 == y2 {
		return Linear
	}
	return func(x float64) float64 {
		if x <= 0 {
			return 0
		}
		if x >= 1 {
			return 1
		}
		return bezierAt(solveBezierT(x, x1, x2), y1, y2)
	}
}

// InOut makes an easing symmetric: the first half runs e forwards, the
// second half mirrors it.
func InOut(e Easing) Easing {
	return func(t float64) float64 {
		if t < 0.5 {
			return e(t*2) / 2
		}
		return 1 - e((1-t)*2)/2
	}
}

// Ease is the standard ease curve, bezier(0.42, 0, 1, 1).
var Ease = Bezier(0.42, 0, 1, 1)

// EaseInOut drives the still-image camera move.
var EaseInOut = InOut(Ease)

func bezierAt(t, a1, a2 float64) float64 {
	return ((1-3*a2+3*a1)*t+(3*a2-6*a1))*t*t + 3*a1*t
}

func bezierSlope(t, a1, a2 float64) float64 {
	return 3*(1-3*a2+3*a1)*t*t + 2*(3*a2-6*a1)*t + 3*a1
}

func solveBezierT(x, x1, x2 float64) float64 {
	const epsilon = 1e-7

	t := x
	for i := 0; i < 8; i++ {
		diff := bezierAt(t, x1, x2) - x
		if math.Abs(diff) < epsilon {
			return t
		}
		slope := bezierSlope(t, x1, x2)
		if math.Abs(slope) < 1e-6 {
			break
		}
		next := t - diff/slope
		if next < 0 || next > 1 {
			break
		}
		t = next
	}

	lo, hi := 0.0, 1.0
	t = x
	for i := 0; i < 64; i++ {
		cur := bezierAt(t, x1, x2)
		if math.Abs(cur-x) < epsilon {
			return t
		}
		if x > cur {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}
	return t
}

// Interpolate maps x through a piecewise-linear curve defined by matching
// input and output breakpoints. Input must be ascending. Values outside the
// input range clamp to the first or last output. easing may be nil.
func Interpolate(x float64, input, output []float64, easing Easing) float64 {
	if len(input) == 0 || len(input) != len(output) {
		return 0
	}
	if easing == nil {
		easing = Linear
	}
	last := len(input) - 1
	if x <= input[0] {
		return output[0]
	}
	if x >= input[last] {
		return output[last]
	}

	seg := 0
	for seg < last-1 && x >= input[seg+1] {
		seg++
	}
	span := input[seg+1] - input[seg]
	if span == 0 {
		return output[seg+1]
	}
	progress := easing((x - input[seg]) / span)
	return output[seg] + progress*(output[seg+1]-output[seg])
}
