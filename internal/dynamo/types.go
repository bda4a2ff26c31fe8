package dynamo

import (
	"context"
	"fmt"
	"math"
)

// State is a phase-space point of a test particle at Epoch (days).
type State struct {
	Epoch float64
	R     Vector3
	V     Vector3
}

func (s State) IsValid() bool {
	return isFinite(s.Epoch) && s.R.IsFinite() && s.V.IsFinite()
}

// Flat returns the six phase-space components in x, y, z, vx, vy, vz order.
func (s State) Flat() [6]float64 {
	return [6]float64{s.R.X, s.R.Y, s.R.Z, s.V.X, s.V.Y, s.V.Z}
}

// BodyID names a major body known to an ephemeris provider.
type BodyID string

// MajorBody is a gravitating body whose position comes from an ephemeris.
type MajorBody struct {
	ID BodyID
	GM float64 // AU^3/day^2
}

func (b MajorBody) Validate() error {
	if b.ID == "" {
		return &ConfigError{Field: "major body", Reason: "empty identifier"}
	}
	if !(b.GM > 0) || math.IsInf(b.GM, 0) {
		return &ConfigError{Field: "major body " + string(b.ID), Reason: fmt.Sprintf("gravitational parameter must be positive, got %g", b.GM)}
	}
	return nil
}

// MinorBody is a massless test particle and the trajectory produced for it.
// Trajectory is appended in propagation order only.
type MinorBody struct {
	Designator string
	Trajectory []State
}

func (m *MinorBody) Last() (State, bool) {
	if len(m.Trajectory) == 0 {
		return State{}, false
	}
	return m.Trajectory[len(m.Trajectory)-1], true
}

// EphemerisProvider returns major-body positions in a common frame.
// Implementations must be safe for concurrent reads.
type EphemerisProvider interface {
	Position(id BodyID, epoch float64) (Vector3, error)
	Coverage() (start, end float64)
}

// ForceModel returns the acceleration on a test particle at r and epoch.
// A *DegenerateError may accompany a usable acceleration; any other error
// means the acceleration is unusable.
type ForceModel interface {
	Acceleration(r Vector3, epoch float64) (Vector3, error)
}

// Integrator advances a state by one fixed step.
type Integrator interface {
	Name() string
	Step(s State, dt float64, f ForceModel) (State, error)
}

// InitialConditionProvider resolves a designator to its state at epoch.
type InitialConditionProvider interface {
	InitialState(ctx context.Context, designator string, epoch float64) (State, error)
}

// OutputSink receives each minor body once its propagation has ended.
type OutputSink interface {
	Record(body *MinorBody, o Outcome) error
}

// Observer is notified as the driver advances bodies. Calls may arrive
// from several workers at once.
type Observer interface {
	OnStep(designator string, step, total int, s State)
	OnDone(o Outcome)
}

type Status int

const (
	StatusRunning Status = iota
	StatusCompleted
	StatusDiverged
	StatusEphemerisGap
	StatusUnresolved
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusDiverged:
		return "diverged"
	case StatusEphemerisGap:
		return "ephemeris_gap"
	case StatusUnresolved:
		return "unresolved"
	case StatusCanceled:
		return "canceled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further steps may be taken.
func (s Status) Terminal() bool { return s != StatusRunning }

// Outcome is the final report entry for one minor body.
type Outcome struct {
	Designator   string
	Status       Status
	Steps        int
	FirstEpoch   float64
	LastEpoch    float64
	FailureEpoch float64
	Err          error
	Degenerate   int
}

func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

type Config struct {
	Workers         int
	DegenerateLimit int
	ProgressEvery   int
}

func DefaultConfig() Config {
	return Config{
		Workers:         0,
		DegenerateLimit: 3,
		ProgressEvery:   200,
	}
}
