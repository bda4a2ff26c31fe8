// Package orbit converts between classical orbital elements and state
// vectors and supplies initial conditions that need no network access.
package orbit

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// ErrNoConvergence reports that Kepler's equation could not be solved to
// keplerTolerance.
var ErrNoConvergence = errors.New("orbit: kepler equation did not converge")

const keplerTolerance = 1e-12

// Elements are classical elliptic elements. Angles are in degrees.
type Elements struct {
	A    float64 `yaml:"a" json:"a"`       // semi-major axis, AU
	E    float64 `yaml:"e" json:"e"`       // eccentricity
	I    float64 `yaml:"i" json:"i"`       // inclination
	Node float64 `yaml:"node" json:"node"` // longitude of ascending node
	Peri float64 `yaml:"peri" json:"peri"` // argument of perihelion
	M    float64 `yaml:"m" json:"m"`       // mean anomaly at Epoch
	// Epoch of the mean anomaly; zero means "at the requested epoch".
	Epoch float64 `yaml:"epoch,omitempty" json:"epoch,omitempty"`
}

func (el Elements) Validate() error {
	switch {
	case !(el.A > 0):
		return &dynamo.ConfigError{Field: "elements.a", Reason: fmt.Sprintf("must be positive, got %g", el.A)}
	case !(el.E >= 0 && el.E < 1):
		return &dynamo.ConfigError{Field: "elements.e", Reason: fmt.Sprintf("must be in [0, 1), got %g", el.E)}
	}
	return nil
}

// MeanMotion returns n in radians per day for gravitational parameter mu.
func (el Elements) MeanMotion(mu float64) float64 {
	return math.Sqrt(mu / (el.A * el.A * el.A))
}

// Period returns the orbital period in days.
func (el Elements) Period(mu float64) float64 {
	return 2 * math.Pi / el.MeanMotion(mu)
}

// StateAt returns the Keplerian state at epoch about a central body of
// parameter mu located at the origin.
func (el Elements) StateAt(mu, epoch float64) (dynamo.State, error) {
	if err := el.Validate(); err != nil {
		return dynamo.State{}, err
	}
	if !(mu > 0) {
		return dynamo.State{}, &dynamo.ConfigError{Field: "mu", Reason: fmt.Sprintf("must be positive, got %g", mu)}
	}

	M := rad(el.M)
	if el.Epoch != 0 {
		M += el.MeanMotion(mu) * (epoch - el.Epoch)
	}
	E, err := SolveKepler(M, el.E)
	if err != nil {
		return dynamo.State{}, err
	}
	cosE, sinE := math.Cos(E), math.Sin(E)
	b := math.Sqrt(1 - el.E*el.E)
	r := el.A * (1 - el.E*cosE)
	vf := math.Sqrt(mu*el.A) / r

	omega, node, inc := rad(el.Peri), rad(el.Node), rad(el.I)
	return dynamo.State{
		Epoch: epoch,
		R:     ToEcliptic(el.A*(cosE-el.E), el.A*b*sinE, omega, node, inc),
		V:     ToEcliptic(-vf*sinE, vf*b*cosE, omega, node, inc),
	}, nil
}

// SolveKepler returns the eccentric anomaly in [-pi, pi] for mean anomaly
// M (radians, any range) and eccentricity 0 <= e < 1. Newton steps that
// leave the bracketing interval fall back to bisection.
func SolveKepler(M, e float64) (float64, error) {
	if !(e >= 0 && e < 1) || math.IsNaN(M) || math.IsInf(M, 0) {
		return 0, fmt.Errorf("%w: M=%g e=%g", ErrNoConvergence, M, e)
	}
	M = NormalizeRadians(M)

	lo, hi := -math.Pi, math.Pi
	E := M + e*math.Sin(M)
	if e > 0.8 {
		E = math.Copysign(math.Pi, M)
		if M == 0 {
			E = 0
		}
	}
	for iter := 0; iter < 100; iter++ {
		f := E - e*math.Sin(E) - M
		if f == 0 {
			break
		}
		if f > 0 {
			hi = E
		} else {
			lo = E
		}
		next := E - f/(1-e*math.Cos(E))
		if !(next > lo && next < hi) {
			next = (lo + hi) / 2
		}
		if math.Abs(next-E) < 1e-15 {
			E = next
			break
		}
		E = next
	}

	if r := E - e*math.Sin(E) - M; !(math.Abs(r) <= keplerTolerance) {
		return 0, fmt.Errorf("%w: M=%g e=%g residual %g", ErrNoConvergence, M, e, r)
	}
	return E, nil
}

// NormalizeRadians wraps an angle into [-pi, pi].
func NormalizeRadians(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// ToEcliptic rotates an in-plane vector by argument of perihelion,
// inclination and ascending node (radians).
func ToEcliptic(xp, yp, omega, node, inc float64) dynamo.Vector3 {
	cw, sw := math.Cos(omega), math.Sin(omega)
	cn, sn := math.Cos(node), math.Sin(node)
	ci, si := math.Cos(inc), math.Sin(inc)

	return dynamo.Vec(
		(cw*cn-sw*sn*ci)*xp+(-sw*cn-cw*sn*ci)*yp,
		(cw*sn+sw*cn*ci)*xp+(-sw*sn+cw*cn*ci)*yp,
		(sw*si)*xp+(cw*si)*yp,
	)
}

func rad(d float64) float64 { return d * math.Pi / 180 }
