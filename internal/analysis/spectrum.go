package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/metrics"
)

const minSamples = 8

// PowerSpectrum returns |X_k|^2 for k = 0..n/2 of the mean-removed values.
func PowerSpectrum(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	centered := make([]float64, len(values))
	for i, v := range values {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, len(values)/2+1)
	for i := range ps {
		a := cmplx.Abs(spectrum[i])
		ps[i] = a * a
	}
	return ps
}

// DominantPeriod returns the period of the strongest non-zero frequency of
// values sampled every step, refined by a parabola through the peak bin
// and its neighbours. It reports false for short or flat series.
func DominantPeriod(values []float64, step float64) (float64, bool) {
	n := len(values)
	if n < minSamples || step == 0 {
		return 0, false
	}
	ps := PowerSpectrum(values)

	peak := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[peak] || peak == 0 {
			peak = k
		}
	}
	if !(ps[peak] > 0) {
		return 0, false
	}

	bin := float64(peak)
	if peak > 1 && peak < len(ps)-1 {
		l, c, r := ps[peak-1], ps[peak], ps[peak+1]
		if den := l - 2*c + r; den != 0 {
			bin += 0.5 * (l - r) / den
		}
	}
	return math.Abs(float64(n) * step / bin), true
}

// BodyAnalysis compares the spectral period of a trajectory with the
// period its osculating two-body orbit implies.
type BodyAnalysis struct {
	Designator   string
	Samples      int
	Period       float64 // days, zero when unresolved
	KeplerPeriod float64 // days, zero for unbound orbits
	Invariants   metrics.Invariants
}

// AnalyzeTrajectory measures a trajectory about a central parameter mu.
// The period comes from the heliocentric x coordinate, which oscillates
// once per revolution regardless of eccentricity.
func AnalyzeTrajectory(designator string, mu float64, traj []dynamo.State) BodyAnalysis {
	out := BodyAnalysis{Designator: designator, Samples: len(traj)}
	if mu > 0 {
		out.Invariants = metrics.Measure(mu, traj)
		if a := out.Invariants.SemiMajorAxis; a > 0 {
			out.KeplerPeriod = 2 * math.Pi * math.Sqrt(a*a*a/mu)
		}
	}

	uniform := uniformPrefix(traj)
	if len(uniform) < minSamples {
		return out
	}
	xs := metrics.Series(uniform, func(s dynamo.State) float64 { return s.R.X })
	if p, ok := DominantPeriod(xs, uniform[1].Epoch-uniform[0].Epoch); ok {
		out.Period = p
	}
	return out
}

// uniformPrefix drops trailing states whose spacing differs from the
// first step, such as a shortened final step.
func uniformPrefix(traj []dynamo.State) []dynamo.State {
	if len(traj) < 2 {
		return traj
	}
	step := traj[1].Epoch - traj[0].Epoch
	tol := 1e-9 * math.Max(1, math.Abs(step))
	for i := 2; i < len(traj); i++ {
		if math.Abs(traj[i].Epoch-traj[i-1].Epoch-step) > tol {
			return traj[:i]
		}
	}
	return traj
}
