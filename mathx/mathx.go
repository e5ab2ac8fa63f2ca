// Package mathx provides small numeric helpers that the standard library math package lacks.
package mathx

import (
	"errors"
	"math"
)

// ErrTooFewPoints is generated when a fit is asked of fewer points than it has parameters
var ErrTooFewPoints = errors.New("too few points to fit")

// ErrLengthMismatch is generated when x and y are not the same length
var ErrLengthMismatch = errors.New("x and y lengths differ")

// Round rounds a float to the nearest "unit" (0.1 for tenth, 0.01 for hundredth, and so on).
func Round(x, unit float64) float64 {
	return math.Round(x/unit) * unit
}

// PolyFit1 fits y = slope*x + intercept by ordinary least squares.
// It is the degree 1 case of numpy.polyfit.
func PolyFit1(x, y []float64) (slope, intercept float64, err error) {
	if len(x) != len(y) {
		return 0, 0, ErrLengthMismatch
	}
	n := float64(len(x))
	if len(x) < 2 {
		return 0, 0, ErrTooFewPoints
	}
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var sxy, sxx float64
	for i := range x {
		dx := x[i] - mx
		sxy += dx * (y[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		// all x equal, the line is vertical
		return 0, 0, ErrTooFewPoints
	}
	slope = sxy / sxx
	intercept = my - slope*mx
	return slope, intercept, nil
}

// ArgMinAbsDiff returns the index of the element of xs closest to target.
// Ties go to the lowest index.  A NaN distance is smaller than any other, so
// the first NaN element wins, as numpy's argmin does.  -1 is returned for an
// empty slice.
func ArgMinAbsDiff(xs []float64, target float64) int {
	idx := -1
	best := math.Inf(1)
	for i, x := range xs {
		d := math.Abs(x - target)
		if math.IsNaN(d) {
			return i
		}
		if idx < 0 || d < best {
			best = d
			idx = i
		}
	}
	return idx
}
