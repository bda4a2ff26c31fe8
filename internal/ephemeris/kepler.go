package ephemeris

import (
	"math"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/orbit"
)

// Coverage of the mean-element fit, 1800-01-01 to 2050-01-01 (JD, TDB).
const (
	KeplerStartJD = 2378496.5
	KeplerEndJD   = 2469807.5
)

// meanElements are J2000 osculating-like elements and their rates per
// Julian century: a (AU), e, I, L, long. perihelion, long. node (degrees).
type meanElements struct {
	a, e, i, l, peri, node       float64
	da, de, di, dl, dperi, dnode float64
}

var planetElements = map[dynamo.BodyID]meanElements{
	Mercury: {0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
		0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081},
	Venus: {0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
		0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418},
	Earth: {1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0.0,
		0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0.0},
	Mars: {1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
		0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343},
	Jupiter: {5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
		-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106},
	Saturn: {9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
		-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794},
	Uranus: {19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503,
		-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589},
	Neptune: {30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574,
		0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664},
}

// Kepler computes planet positions from secularly varying mean elements.
// Positions are heliocentric ecliptic J2000 in AU, so the Sun sits at the
// origin; pair it with an indirect-term force model. Epochs are JD (TDB).
type Kepler struct{}

func NewKepler() *Kepler { return &Kepler{} }

func (k *Kepler) Coverage() (float64, float64) { return KeplerStartJD, KeplerEndJD }

func (k *Kepler) Position(id dynamo.BodyID, epoch float64) (dynamo.Vector3, error) {
	if !(epoch >= KeplerStartJD && epoch <= KeplerEndJD) {
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: ErrOutsideCoverage}
	}
	if id == Sun {
		return dynamo.Vector3{}, nil
	}
	el, ok := planetElements[id]
	if !ok {
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: ErrUnknownBody}
	}
	pos, err := el.position((epoch - J2000) / DaysPerCentury)
	if err != nil {
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: err}
	}
	return pos, nil
}

func (m meanElements) position(T float64) (dynamo.Vector3, error) {
	a := m.a + m.da*T
	e := m.e + m.de*T
	inc := deg(m.i + m.di*T)
	l := m.l + m.dl*T
	peri := m.peri + m.dperi*T
	node := m.node + m.dnode*T

	omega := deg(peri - node)
	E, err := orbit.SolveKepler(deg(l-peri), e)
	if err != nil {
		return dynamo.Vector3{}, err
	}

	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	return orbit.ToEcliptic(xp, yp, omega, deg(node), inc), nil
}

func deg(d float64) float64 { return d * math.Pi / 180 }
