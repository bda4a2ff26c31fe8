package dynamo

import (
	"fmt"
	"math"
)

// stepTolerance is the relative slack allowed when (TF-T0)/DT is checked
// for being a whole number of steps.
const stepTolerance = 1e-9

// MaxSteps bounds the number of steps a window may resolve to.
const MaxSteps = 10_000_000

// Window is the propagation time grid. DT carries the direction.
type Window struct {
	T0 float64
	TF float64
	DT float64
}

func (w Window) Validate() error {
	switch {
	case !isFinite(w.T0) || !isFinite(w.TF) || !isFinite(w.DT):
		return &ConfigError{Field: "window", Reason: "T0, TF and DT must be finite"}
	case w.DT == 0:
		return &ConfigError{Field: "window", Reason: "DT must be non-zero"}
	case w.TF == w.T0:
		return &ConfigError{Field: "window", Reason: "TF must differ from T0"}
	case (w.TF-w.T0)*w.DT < 0:
		return &ConfigError{Field: "window", Reason: fmt.Sprintf("DT %g points away from TF (T0=%g, TF=%g)", w.DT, w.T0, w.TF)}
	case !(math.Abs((w.TF-w.T0)/w.DT) <= MaxSteps):
		return &ConfigError{Field: "window", Reason: fmt.Sprintf("(TF-T0)/DT = %g exceeds %d steps", (w.TF-w.T0)/w.DT, MaxSteps)}
	}
	return nil
}

func (w Window) Forward() bool { return w.DT > 0 }

// Plan is the resolved step schedule of a window.
type Plan struct {
	Window
	// Full is the number of steps of size DT.
	Full int
	// Tail is the size of the final truncated step, zero when the window
	// divides evenly.
	Tail float64
}

// Plan resolves the step schedule. The window must be valid. A window
// shorter than one step, however small, is a single tail step.
func (w Window) Plan() Plan {
	ratio := (w.TF - w.T0) / w.DT
	n := math.Round(ratio)
	if n == 0 {
		return Plan{Window: w, Tail: w.TF - w.T0}
	}
	if math.Abs(ratio-n) <= stepTolerance*math.Max(1, math.Abs(ratio)) {
		return Plan{Window: w, Full: int(n)}
	}
	full := math.Floor(ratio)
	return Plan{Window: w, Full: int(full), Tail: w.TF - (w.T0 + full*w.DT)}
}

// Steps is the total number of integrator calls, including the tail.
func (p Plan) Steps() int {
	if p.Tail != 0 {
		return p.Full + 1
	}
	return p.Full
}

// StepAt returns the start epoch and size of step k.
func (p Plan) StepAt(k int) (epoch, dt float64) {
	epoch = p.T0 + float64(k)*p.DT
	if k < p.Full {
		return epoch, p.DT
	}
	return epoch, p.Tail
}

// EndAt returns the epoch reached after step k. The last step ends exactly on TF.
func (p Plan) EndAt(k int) float64 {
	if k == p.Steps()-1 {
		return p.TF
	}
	return p.T0 + float64(k+1)*p.DT
}
