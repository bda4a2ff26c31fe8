package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// propagation is the state of one body. Its status moves from Running to
// exactly one terminal status and never back.
type propagation struct {
	body   *dynamo.MinorBody
	plan   dynamo.Plan
	force  *watchedForce
	status dynamo.Status
	step   int

	// consecutive steps that dropped a force term
	degenerate int
	total      int

	err       error
	failedAt  float64
	lastEpoch float64
}

func (d *Driver) propagate(ctx context.Context, body *dynamo.MinorBody, plan dynamo.Plan, f dynamo.ForceModel) dynamo.Outcome {
	p := &propagation{
		body:   body,
		plan:   plan,
		force:  &watchedForce{inner: f},
		status: dynamo.StatusRunning,
	}

	if err := ctx.Err(); err != nil {
		p.body.Trajectory = nil
		p.fail(dynamo.StatusCanceled, plan.T0, err)
	} else if err := d.initialize(ctx, p); err != nil {
		p.fail(dynamo.StatusUnresolved, plan.T0, err)
	}
	for p.status == dynamo.StatusRunning {
		d.advance(ctx, p)
	}
	return p.outcome()
}

func (d *Driver) initialize(ctx context.Context, p *propagation) error {
	t0 := p.plan.T0
	if len(p.body.Trajectory) > 0 && p.body.Trajectory[0].Epoch == t0 {
		first := p.body.Trajectory[0]
		if !first.IsValid() {
			return &dynamo.ConfigError{Field: p.body.Designator, Reason: "initial state is not finite"}
		}
		p.body.Trajectory = append(make([]dynamo.State, 0, p.plan.Steps()+1), first)
		p.lastEpoch = t0
		return nil
	}

	p.body.Trajectory = nil
	if d.initial == nil {
		return fmt.Errorf("%w: no initial state for %q at %v", dynamo.ErrUnknownBody, p.body.Designator, t0)
	}
	s, err := d.initial.InitialState(ctx, p.body.Designator, t0)
	if err != nil {
		return fmt.Errorf("initial state: %w", err)
	}
	s.Epoch = t0
	if !s.IsValid() {
		return &dynamo.ConfigError{Field: p.body.Designator, Reason: "initial state is not finite"}
	}
	p.body.Trajectory = append(make([]dynamo.State, 0, p.plan.Steps()+1), s)
	p.lastEpoch = t0
	return nil
}

// advance takes one transition: either one integrator step or a move to
// a terminal status.
func (d *Driver) advance(ctx context.Context, p *propagation) {
	if err := ctx.Err(); err != nil {
		p.fail(dynamo.StatusCanceled, p.lastEpoch, err)
		return
	}
	total := p.plan.Steps()
	if p.step == total {
		p.status = dynamo.StatusCompleted
		return
	}

	epoch, dt := p.plan.StepAt(p.step)
	current, _ := p.body.Last()

	p.force.reset()
	next, err := d.integrator.Step(current, dt, p.force)
	if err != nil {
		p.fail(classify(err), epoch, &dynamo.SimulationError{
			Designator: p.body.Designator,
			Step:       p.step,
			Epoch:      epoch,
			Wrapped:    err,
		})
		return
	}

	next.Epoch = p.plan.EndAt(p.step)
	if !next.IsValid() {
		p.fail(dynamo.StatusDiverged, epoch, &dynamo.SimulationError{
			Designator: p.body.Designator,
			Step:       p.step,
			Epoch:      epoch,
			Wrapped:    &dynamo.DivergenceError{Epoch: next.Epoch, State: next},
		})
		return
	}

	if p.force.degenerate != nil {
		p.degenerate++
		p.total++
		if p.degenerate > d.cfg.DegenerateLimit {
			p.fail(dynamo.StatusDiverged, epoch, &dynamo.SimulationError{
				Designator: p.body.Designator,
				Step:       p.step,
				Epoch:      epoch,
				Wrapped: fmt.Errorf("%w: %d consecutive steps: %w",
					dynamo.ErrIntegrationDiverged, p.degenerate, p.force.degenerate),
			})
			return
		}
	} else {
		p.degenerate = 0
	}

	p.body.Trajectory = append(p.body.Trajectory, next)
	p.lastEpoch = next.Epoch
	p.step++

	for _, obs := range d.observers {
		obs.OnStep(p.body.Designator, p.step, total, next)
	}
	if every := d.cfg.ProgressEvery; every > 0 && p.step%every == 0 {
		d.logger.Debug("progress", "body", p.body.Designator, "step", p.step, "of", total, "epoch", next.Epoch)
	}
}

func (p *propagation) fail(status dynamo.Status, epoch float64, err error) {
	p.status = status
	p.failedAt = epoch
	p.err = err
}

func (p *propagation) outcome() dynamo.Outcome {
	o := dynamo.Outcome{
		Designator: p.body.Designator,
		Status:     p.status,
		Steps:      p.step,
		LastEpoch:  p.lastEpoch,
		Err:        p.err,
		Degenerate: p.total,
	}
	if len(p.body.Trajectory) > 0 {
		o.FirstEpoch = p.body.Trajectory[0].Epoch
	}
	if p.status != dynamo.StatusCompleted {
		o.FailureEpoch = p.failedAt
	}
	return o
}

// classify maps a step error to the terminal status it causes.
func classify(err error) dynamo.Status {
	switch {
	case errors.Is(err, dynamo.ErrEphemerisUnavailable):
		return dynamo.StatusEphemerisGap
	default:
		return dynamo.StatusDiverged
	}
}

// watchedForce remembers the first degenerate-distance diagnostic seen
// during a step. Each propagation owns its own instance.
type watchedForce struct {
	inner      dynamo.ForceModel
	degenerate error
}

func (w *watchedForce) reset() { w.degenerate = nil }

func (w *watchedForce) Acceleration(r dynamo.Vector3, epoch float64) (dynamo.Vector3, error) {
	a, err := w.inner.Acceleration(r, epoch)
	if err != nil && dynamo.IsDegenerate(err) && w.degenerate == nil {
		w.degenerate = err
	}
	return a, err
}
