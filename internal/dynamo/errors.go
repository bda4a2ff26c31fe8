package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for propagation.
var (
	// ErrEphemerisUnavailable indicates the provider cannot place a body at an epoch.
	ErrEphemerisUnavailable = errors.New("dynamo: ephemeris unavailable")

	// ErrIntegrationDiverged indicates a non-finite state during a step.
	ErrIntegrationDiverged = errors.New("dynamo: integration diverged (NaN or Inf detected)")

	// ErrConfiguration indicates a malformed window or body configuration.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrUnknownBody indicates an initial-condition provider does not know a designator.
	ErrUnknownBody = errors.New("dynamo: unknown body")

	// ErrDegenerateDistance indicates a force term was dropped because the
	// particle coincides with a major body.
	ErrDegenerateDistance = errors.New("dynamo: degenerate distance")
)

type EphemerisError struct {
	Body    BodyID
	Epoch   float64
	Wrapped error
}

func (e *EphemerisError) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("%s: body %s at epoch %.6f", ErrEphemerisUnavailable, e.Body, e.Epoch)
	}
	return fmt.Sprintf("%s: body %s at epoch %.6f: %v", ErrEphemerisUnavailable, e.Body, e.Epoch, e.Wrapped)
}

func (e *EphemerisError) Is(target error) bool { return target == ErrEphemerisUnavailable }

func (e *EphemerisError) Unwrap() error { return e.Wrapped }

type DivergenceError struct {
	Epoch float64
	Stage int
	State State
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("%s: stage %d at epoch %.6f", ErrIntegrationDiverged, e.Stage, e.Epoch)
}

func (e *DivergenceError) Unwrap() error { return ErrIntegrationDiverged }

type DegenerateError struct {
	Body     BodyID
	Epoch    float64
	Distance float64
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("%s: body %s at epoch %.6f (|r| = %g)", ErrDegenerateDistance, e.Body, e.Epoch, e.Distance)
}

func (e *DegenerateError) Unwrap() error { return ErrDegenerateDistance }

type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// SimulationError wraps an error with the body and step it happened at.
type SimulationError struct {
	Designator string
	Step       int
	Epoch      float64
	Wrapped    error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s: step %d (t=%.4f): %v", e.Designator, e.Step, e.Epoch, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// IsDegenerate reports whether err only carries a degenerate-distance diagnostic.
func IsDegenerate(err error) bool {
	var d *DegenerateError
	return errors.As(err, &d)
}
