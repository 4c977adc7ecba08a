// SPDX-License-Identifier: EPL-2.0

package utils

// CubicInterpolate returns the Catmull-Rom value between y1 and y2.
// x is the fractional position between y1 and y2 (0 <= x <= 1);
// y0 and y3 are the neighbours on either side.
func CubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return ((a0*x+a1)*x+a2)*x + a3
}

// SampleAt reads buf at a fractional frame position using cubic
// interpolation. Positions outside the buffer repeat the edge frames.
func SampleAt(buf []float32, pos float64) float32 {
	n := len(buf)
	if n == 0 {
		return 0
	}

	i := int(pos)
	frac := float32(pos - float64(i))

	at := func(k int) float32 {
		if k < 0 {
			return buf[0]
		}
		if k >= n {
			return buf[n-1]
		}
		return buf[k]
	}

	return CubicInterpolate(at(i-1), at(i), at(i+1), at(i+2), frac)
}
