// Package metrics measures propagated trajectories and exports run
// counters in the Prometheus format.
package metrics

import (
	"math"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/physics"
)

// Invariants summarizes how well the two-body integrals of a trajectory
// are kept about a central parameter mu. With perturbers present the
// drifts measure the perturbation rather than integration error.
type Invariants struct {
	Samples       int     `json:"samples"`
	EnergyDrift   float64 `json:"energy_drift"`
	MomentumDrift float64 `json:"momentum_drift"`
	MinDistance   float64 `json:"min_distance"`
	MaxDistance   float64 `json:"max_distance"`
	InitialEnergy float64 `json:"initial_energy"`
	FinalEnergy   float64 `json:"final_energy"`
	SemiMajorAxis float64 `json:"semi_major_axis"`
	Eccentricity  float64 `json:"eccentricity"`
}

// Measure returns the maximum relative drift of specific energy and
// angular momentum along trajectory, relative to its first state.
func Measure(mu float64, trajectory []dynamo.State) Invariants {
	if len(trajectory) == 0 {
		return Invariants{}
	}

	first := trajectory[0]
	e0 := physics.SpecificEnergy(mu, first)
	h0 := physics.AngularMomentum(first)
	h0n := h0.Norm()

	inv := Invariants{
		Samples:       len(trajectory),
		MinDistance:   math.Inf(1),
		InitialEnergy: e0,
		SemiMajorAxis: physics.SemiMajorAxis(mu, first),
		Eccentricity:  physics.Eccentricity(mu, first),
	}
	for _, s := range trajectory {
		e := physics.SpecificEnergy(mu, s)
		if e0 != 0 {
			inv.EnergyDrift = math.Max(inv.EnergyDrift, math.Abs((e-e0)/e0))
		}
		if h0n != 0 {
			inv.MomentumDrift = math.Max(inv.MomentumDrift, physics.AngularMomentum(s).Sub(h0).Norm()/h0n)
		}
		d := s.R.Norm()
		inv.MinDistance = math.Min(inv.MinDistance, d)
		inv.MaxDistance = math.Max(inv.MaxDistance, d)
		inv.FinalEnergy = e
	}
	return inv
}

// Series extracts one value per state, for plotting.
func Series(trajectory []dynamo.State, fn func(dynamo.State) float64) []float64 {
	out := make([]float64, len(trajectory))
	for i, s := range trajectory {
		out[i] = fn(s)
	}
	return out
}

// Distance is the heliocentric distance of a state.
func Distance(s dynamo.State) float64 { return s.R.Norm() }

// EnergyDrift returns a series function of the relative energy change
// against first.
func EnergyDrift(mu float64, first dynamo.State) func(dynamo.State) float64 {
	e0 := physics.SpecificEnergy(mu, first)
	return func(s dynamo.State) float64 {
		if e0 == 0 {
			return 0
		}
		return (physics.SpecificEnergy(mu, s) - e0) / math.Abs(e0)
	}
}

// Finite reports whether every field can be encoded as a JSON number.
func (inv Invariants) Finite() bool {
	for _, v := range []float64{
		inv.EnergyDrift, inv.MomentumDrift, inv.MinDistance, inv.MaxDistance,
		inv.InitialEnergy, inv.FinalEnergy, inv.SemiMajorAxis, inv.Eccentricity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
