package analysis

import (
	"math"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// SeparationExponent fits ln|r_b - r_a| against epoch by least squares over
// the common prefix of two trajectories and returns the slope in 1/day.
// Samples with zero or non-finite separation are skipped; fewer than two
// usable samples report false.
func SeparationExponent(a, b []dynamo.State) (float64, bool) {
	n := min(len(a), len(b))

	var sx, sy, sxx, sxy float64
	count := 0
	for i := 0; i < n; i++ {
		d := b[i].R.Sub(a[i].R).Norm()
		if !(d > 0) || math.IsInf(d, 0) {
			continue
		}
		x := a[i].Epoch - a[0].Epoch
		y := math.Log(d)
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
		count++
	}
	if count < 2 {
		return 0, false
	}

	c := float64(count)
	den := c*sxx - sx*sx
	if den == 0 {
		return 0, false
	}
	return (c*sxy - sx*sy) / den, true
}

// MeanExponent averages SeparationExponent of each neighbour against the
// nominal trajectory. It reports false when no neighbour gives a fit.
func MeanExponent(nominal []dynamo.State, neighbours [][]dynamo.State) (float64, bool) {
	sum := 0.0
	count := 0
	for _, nb := range neighbours {
		if l, ok := SeparationExponent(nominal, nb); ok {
			sum += l
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}
