package physics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// DefaultEpsilon is the separation in AU below which a term is dropped.
const DefaultEpsilon = 1e-12

type Gravity struct {
	provider   dynamo.EphemerisProvider
	central    dynamo.MajorBody
	perturbers []dynamo.MajorBody
	epsilon    float64
	indirect   bool
	logger     *slog.Logger
}

type GravityOption func(*Gravity)

func WithEpsilon(eps float64) GravityOption {
	return func(g *Gravity) { g.epsilon = eps }
}

// WithIndirect enables the indirect term for heliocentric providers.
func WithIndirect(on bool) GravityOption {
	return func(g *Gravity) { g.indirect = on }
}

func WithLogger(l *slog.Logger) GravityOption {
	return func(g *Gravity) { g.logger = l }
}

// NewGravity builds the force model. The central body and perturbers are
// validated and must have distinct identifiers.
func NewGravity(provider dynamo.EphemerisProvider, central dynamo.MajorBody, perturbers []dynamo.MajorBody, opts ...GravityOption) (*Gravity, error) {
	if provider == nil {
		return nil, &dynamo.ConfigError{Field: "ephemeris", Reason: "provider is nil"}
	}
	if err := central.Validate(); err != nil {
		return nil, err
	}
	seen := map[dynamo.BodyID]bool{central.ID: true}
	for _, p := range perturbers {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, &dynamo.ConfigError{Field: "perturbers", Reason: fmt.Sprintf("duplicate body %s", p.ID)}
		}
		seen[p.ID] = true
	}

	g := &Gravity{
		provider:   provider,
		central:    central,
		perturbers: append([]dynamo.MajorBody(nil), perturbers...),
		epsilon:    DefaultEpsilon,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if !(g.epsilon >= 0) {
		return nil, &dynamo.ConfigError{Field: "epsilon", Reason: fmt.Sprintf("must be non-negative, got %g", g.epsilon)}
	}
	return g, nil
}

func (g *Gravity) Central() dynamo.MajorBody { return g.central }

func (g *Gravity) Perturbers() []dynamo.MajorBody {
	return append([]dynamo.MajorBody(nil), g.perturbers...)
}

func (g *Gravity) Indirect() bool { return g.indirect }

func (g *Gravity) Acceleration(r dynamo.Vector3, epoch float64) (dynamo.Vector3, error) {
	rc, err := g.position(g.central.ID, epoch)
	if err != nil {
		return dynamo.Vector3{}, err
	}

	var acc, indirect dynamo.Vector3
	var degenerate error

	term := func(body dynamo.MajorBody, rb dynamo.Vector3) {
		d := rb.Sub(r)
		dist := d.Norm()
		if dist < g.epsilon {
			if degenerate == nil {
				degenerate = &dynamo.DegenerateError{Body: body.ID, Epoch: epoch, Distance: dist}
			}
			g.logger.Warn("degenerate distance, term dropped",
				"body", body.ID, "epoch", epoch, "distance", dist)
			return
		}
		acc = acc.Add(d.Scale(body.GM / (dist * dist * dist)))
	}

	term(g.central, rc)
	for _, p := range g.perturbers {
		rp, err := g.position(p.ID, epoch)
		if err != nil {
			return dynamo.Vector3{}, err
		}
		term(p, rp)

		if g.indirect {
			d := rp.Sub(rc)
			dist := d.Norm()
			if dist > 0 {
				indirect = indirect.Add(d.Scale(p.GM / (dist * dist * dist)))
			}
		}
	}

	if g.indirect {
		acc = acc.Sub(indirect)
	}
	return acc, degenerate
}

func (g *Gravity) position(id dynamo.BodyID, epoch float64) (dynamo.Vector3, error) {
	rb, err := g.provider.Position(id, epoch)
	if err != nil {
		var ee *dynamo.EphemerisError
		if errors.As(err, &ee) {
			return dynamo.Vector3{}, err
		}
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: err}
	}
	if !rb.IsFinite() {
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: fmt.Errorf("non-finite position %v", rb)}
	}
	return rb, nil
}

// PointMass is a fixed attractor of parameter GM at the origin.
type PointMass struct {
	GM      float64
	Epsilon float64
}

func (p PointMass) Acceleration(r dynamo.Vector3, epoch float64) (dynamo.Vector3, error) {
	dist := r.Norm()
	eps := p.Epsilon
	if eps == 0 {
		eps = DefaultEpsilon
	}
	if dist < eps {
		return dynamo.Vector3{}, &dynamo.DegenerateError{Body: "origin", Epoch: epoch, Distance: dist}
	}
	return r.Scale(-p.GM / (dist * dist * dist)), nil
}

// SpecificEnergy is the two-body orbital energy per unit mass about a
// central parameter mu located at the origin.
func SpecificEnergy(mu float64, s dynamo.State) float64 {
	return 0.5*s.V.Dot(s.V) - mu/s.R.Norm()
}

// AngularMomentum is the specific angular momentum r x v.
func AngularMomentum(s dynamo.State) dynamo.Vector3 {
	return s.R.Cross(s.V)
}

// Eccentricity returns the magnitude of the eccentricity vector.
func Eccentricity(mu float64, s dynamo.State) float64 {
	h := AngularMomentum(s)
	e := s.V.Cross(h).Scale(1 / mu).Sub(s.R.Scale(1 / s.R.Norm()))
	return e.Norm()
}

// SemiMajorAxis returns a for a bound orbit, +Inf for a parabolic one.
func SemiMajorAxis(mu float64, s dynamo.State) float64 {
	e := SpecificEnergy(mu, s)
	if e == 0 {
		return math.Inf(1)
	}
	return -mu / (2 * e)
}
