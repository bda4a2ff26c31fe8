package integrators

import (
	"github.com/san-kum/minorbit/internal/dynamo"
)

// Splitting is a symmetric drift-kick composition. A step drifts by
// drift[k]*dt, then kicks by kick[k]*dt with the acceleration sampled at
// the stage epoch, and ends with a final drift. len(drift) == len(kick)+1.
//
// The coefficient tables are never modified after construction, so a
// Splitting value is safe for concurrent use.
type Splitting struct {
	name  string
	drift []float64
	kick  []float64
}

func (s *Splitting) Name() string { return s.name }

// Stages returns the number of force evaluations per step.
func (s *Splitting) Stages() int { return len(s.kick) }

// Coefficients returns copies of the drift and kick tables.
func (s *Splitting) Coefficients() (drift, kick []float64) {
	return append([]float64(nil), s.drift...), append([]float64(nil), s.kick...)
}

func (s *Splitting) Step(in dynamo.State, dt float64, f dynamo.ForceModel) (dynamo.State, error) {
	r, v := in.R, in.V
	frac := 0.0

	for k, d := range s.kick {
		r = r.Add(v.Scale(s.drift[k] * dt))
		frac += s.drift[k]
		epoch := in.Epoch + frac*dt

		a, err := accelerate(f, r, epoch)
		if err != nil {
			return dynamo.State{}, err
		}
		v = v.Add(a.Scale(d * dt))

		if !r.IsFinite() || !v.IsFinite() {
			return dynamo.State{}, &dynamo.DivergenceError{
				Epoch: epoch,
				Stage: k + 1,
				State: dynamo.State{Epoch: epoch, R: r, V: v},
			}
		}
	}

	r = r.Add(v.Scale(s.drift[len(s.kick)] * dt))
	out := dynamo.State{Epoch: in.Epoch + dt, R: r, V: v}
	if !out.R.IsFinite() {
		return dynamo.State{}, &dynamo.DivergenceError{Epoch: out.Epoch, Stage: len(s.drift), State: out}
	}
	return out, nil
}

// accelerate evaluates f, tolerating degenerate-distance diagnostics.
func accelerate(f dynamo.ForceModel, r dynamo.Vector3, epoch float64) (dynamo.Vector3, error) {
	a, err := f.Acceleration(r, epoch)
	if err != nil && !dynamo.IsDegenerate(err) {
		return dynamo.Vector3{}, err
	}
	return a, nil
}

// fromKicks builds a drift table from a palindromic kick table: the first
// and last drifts are half the outer kicks, the inner ones average their
// neighbouring kicks.
func fromKicks(name string, kick []float64) *Splitting {
	n := len(kick)
	drift := make([]float64, n+1)
	drift[0] = kick[0] / 2
	drift[n] = kick[n-1] / 2
	for k := 1; k < n; k++ {
		drift[k] = (kick[k-1] + kick[k]) / 2
	}
	return &Splitting{name: name, drift: drift, kick: append([]float64(nil), kick...)}
}

// NewLeapfrog returns the second-order drift-kick-drift method.
func NewLeapfrog() *Splitting {
	return fromKicks("leapfrog", []float64{1})
}
