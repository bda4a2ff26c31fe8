package integrators

import "github.com/san-kum/minorbit/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta method applied to
// r' = v, v' = a(r, t). It is not symplectic and serves as a reference.
type RK4 struct{}

func NewRK4() *RK4 {
	return &RK4{}
}

func (*RK4) Name() string { return "rk4" }

func (*RK4) Step(s dynamo.State, dt float64, f dynamo.ForceModel) (dynamo.State, error) {
	t := s.Epoch
	half := dt * 0.5

	k1r := s.V
	k1v, err := accelerate(f, s.R, t)
	if err != nil {
		return dynamo.State{}, err
	}

	k2r := s.V.Add(k1v.Scale(half))
	k2v, err := accelerate(f, s.R.Add(k1r.Scale(half)), t+half)
	if err != nil {
		return dynamo.State{}, err
	}

	k3r := s.V.Add(k2v.Scale(half))
	k3v, err := accelerate(f, s.R.Add(k2r.Scale(half)), t+half)
	if err != nil {
		return dynamo.State{}, err
	}

	k4r := s.V.Add(k3v.Scale(dt))
	k4v, err := accelerate(f, s.R.Add(k3r.Scale(dt)), t+dt)
	if err != nil {
		return dynamo.State{}, err
	}

	dt6 := dt / 6.0
	out := dynamo.State{
		Epoch: t + dt,
		R:     s.R.Add(k1r.Add(k2r.Scale(2)).Add(k3r.Scale(2)).Add(k4r).Scale(dt6)),
		V:     s.V.Add(k1v.Add(k2v.Scale(2)).Add(k3v.Scale(2)).Add(k4v).Scale(dt6)),
	}
	if !out.IsValid() {
		return dynamo.State{}, &dynamo.DivergenceError{Epoch: out.Epoch, Stage: 4, State: out}
	}
	return out, nil
}
