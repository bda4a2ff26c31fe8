package orbit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Source is the initial condition of one designator: either an explicit
// state vector at the requested epoch or a set of elements.
type Source struct {
	R        *dynamo.Vector3
	V        *dynamo.Vector3
	Elements *Elements
}

// Static resolves designators from a fixed table. Safe for concurrent use.
type Static struct {
	mu      float64
	mtx     sync.RWMutex
	sources map[string]Source
}

// NewStatic creates a provider; mu is the central body's parameter used
// to turn elements into state vectors.
func NewStatic(mu float64) *Static {
	return &Static{mu: mu, sources: make(map[string]Source)}
}

func (s *Static) AddState(designator string, r, v dynamo.Vector3) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sources[designator] = Source{R: &r, V: &v}
}

func (s *Static) AddElements(designator string, el Elements) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.sources[designator] = Source{Elements: &el}
}

func (s *Static) Has(designator string) bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	_, ok := s.sources[designator]
	return ok
}

func (s *Static) InitialState(ctx context.Context, designator string, epoch float64) (dynamo.State, error) {
	s.mtx.RLock()
	src, ok := s.sources[designator]
	s.mtx.RUnlock()
	if !ok {
		return dynamo.State{}, fmt.Errorf("%w: %q", dynamo.ErrUnknownBody, designator)
	}

	if src.Elements != nil {
		return src.Elements.StateAt(s.mu, epoch)
	}
	if src.R == nil || src.V == nil {
		return dynamo.State{}, &dynamo.ConfigError{Field: designator, Reason: "state needs both position and velocity"}
	}
	return dynamo.State{Epoch: epoch, R: *src.R, V: *src.V}, nil
}

// Chain tries each provider in order and returns the first state that is
// not an unknown-body failure.
type Chain []dynamo.InitialConditionProvider

func (c Chain) InitialState(ctx context.Context, designator string, epoch float64) (dynamo.State, error) {
	err := fmt.Errorf("%w: %q", dynamo.ErrUnknownBody, designator)
	for _, p := range c {
		st, perr := p.InitialState(ctx, designator, epoch)
		if perr == nil {
			return st, nil
		}
		if !errors.Is(perr, dynamo.ErrUnknownBody) {
			return dynamo.State{}, perr
		}
		err = perr
	}
	return dynamo.State{}, err
}
