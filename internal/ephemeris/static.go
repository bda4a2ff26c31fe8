package ephemeris

import (
	"math"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Static places each body at a fixed position for all epochs in coverage.
type Static struct {
	positions map[dynamo.BodyID]dynamo.Vector3
	start     float64
	end       float64
}

func NewStatic(positions map[dynamo.BodyID]dynamo.Vector3) *Static {
	p := make(map[dynamo.BodyID]dynamo.Vector3, len(positions))
	for id, r := range positions {
		p[id] = r
	}
	return &Static{positions: p, start: math.Inf(-1), end: math.Inf(1)}
}

// WithCoverage limits the epochs the provider answers for.
func (s *Static) WithCoverage(start, end float64) *Static {
	s.start, s.end = start, end
	return s
}

func (s *Static) Position(id dynamo.BodyID, epoch float64) (dynamo.Vector3, error) {
	if !(epoch >= s.start && epoch <= s.end) {
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: ErrOutsideCoverage}
	}
	r, ok := s.positions[id]
	if !ok {
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: ErrUnknownBody}
	}
	return r, nil
}

func (s *Static) Coverage() (float64, float64) { return s.start, s.end }
