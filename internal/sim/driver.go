// Package sim propagates minor bodies through a time window.
//
// A [Driver] runs every body through its own state machine on a bounded
// worker pool. Bodies never share state, so a failure in one body only
// ends that body's trajectory; the run as a whole fails only for an
// invalid configuration, a failing sink or a canceled context.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/integrators"
)

type Driver struct {
	integrator dynamo.Integrator
	initial    dynamo.InitialConditionProvider
	sink       dynamo.OutputSink
	observers  []dynamo.Observer
	logger     *slog.Logger
	cfg        dynamo.Config

	sinkMu sync.Mutex
}

type Option func(*Driver)

func WithIntegrator(i dynamo.Integrator) Option {
	return func(d *Driver) { d.integrator = i }
}

// WithInitialConditions sets the provider consulted for bodies that carry
// no state at T0.
func WithInitialConditions(p dynamo.InitialConditionProvider) Option {
	return func(d *Driver) { d.initial = p }
}

func WithSink(s dynamo.OutputSink) Option {
	return func(d *Driver) { d.sink = s }
}

func WithObserver(o dynamo.Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

func WithConfig(cfg dynamo.Config) Option {
	return func(d *Driver) { d.cfg = cfg }
}

// WithWorkers bounds the number of bodies propagated at once; n <= 0
// selects runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(d *Driver) { d.cfg.Workers = n }
}

func New(opts ...Option) *Driver {
	d := &Driver{
		integrator: integrators.NewYoshida8(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:        dynamo.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run propagates bodies from w.T0 to w.TF. The input slice is not
// modified; the returned report holds copies with their trajectories.
//
// The error is non-nil only when the run could not be carried out as a
// whole. Per-body failures are reported through each body's outcome.
func (d *Driver) Run(ctx context.Context, bodies []dynamo.MinorBody, w dynamo.Window, f dynamo.ForceModel) (*Report, error) {
	if err := d.validate(bodies, w, f); err != nil {
		return nil, err
	}

	plan := w.Plan()
	report := &Report{
		Window:     w,
		Plan:       plan,
		Integrator: d.integrator.Name(),
		Bodies:     make([]dynamo.MinorBody, len(bodies)),
		Outcomes:   make([]dynamo.Outcome, len(bodies)),
	}
	for i, b := range bodies {
		report.Bodies[i] = dynamo.MinorBody{
			Designator: b.Designator,
			Trajectory: append([]dynamo.State(nil), b.Trajectory...),
		}
	}

	d.logger.Info("propagation started",
		"bodies", len(bodies),
		"t0", w.T0, "tf", w.TF, "dt", w.DT,
		"steps", plan.Steps(),
		"integrator", d.integrator.Name())

	start := time.Now()
	err := dynamo.ForEach(ctx, len(bodies), d.cfg.Workers, func(ctx context.Context, i int) error {
		body := &report.Bodies[i]
		o := d.propagate(ctx, body, plan, f)
		report.Outcomes[i] = o
		return d.finish(body, o)
	})
	report.Elapsed = time.Since(start)

	counts := report.Counts()
	d.logger.Info("propagation finished",
		"elapsed", report.Elapsed,
		"completed", counts[dynamo.StatusCompleted],
		"diverged", counts[dynamo.StatusDiverged],
		"ephemeris_gap", counts[dynamo.StatusEphemerisGap],
		"unresolved", counts[dynamo.StatusUnresolved],
		"canceled", counts[dynamo.StatusCanceled])

	if err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (d *Driver) validate(bodies []dynamo.MinorBody, w dynamo.Window, f dynamo.ForceModel) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if f == nil {
		return &dynamo.ConfigError{Field: "force model", Reason: "nil"}
	}
	if d.integrator == nil {
		return &dynamo.ConfigError{Field: "integrator", Reason: "nil"}
	}
	if d.cfg.DegenerateLimit < 0 {
		return &dynamo.ConfigError{Field: "degenerate limit", Reason: fmt.Sprintf("must be non-negative, got %d", d.cfg.DegenerateLimit)}
	}
	seen := make(map[string]bool, len(bodies))
	for _, b := range bodies {
		if b.Designator == "" {
			return &dynamo.ConfigError{Field: "minor body", Reason: "empty designator"}
		}
		if seen[b.Designator] {
			return &dynamo.ConfigError{Field: "minor body", Reason: fmt.Sprintf("duplicate designator %q", b.Designator)}
		}
		seen[b.Designator] = true
	}
	return nil
}

func (d *Driver) finish(body *dynamo.MinorBody, o dynamo.Outcome) error {
	switch o.Status {
	case dynamo.StatusCompleted:
		d.logger.Debug("body completed", "body", o.Designator, "steps", o.Steps)
	case dynamo.StatusCanceled:
		d.logger.Debug("body canceled", "body", o.Designator, "steps", o.Steps)
	default:
		d.logger.Warn("body stopped",
			"body", o.Designator,
			"status", o.Status,
			"steps", o.Steps,
			"epoch", o.FailureEpoch,
			"err", o.Err)
	}

	if d.sink != nil {
		d.sinkMu.Lock()
		err := d.sink.Record(body, o)
		d.sinkMu.Unlock()
		if err != nil {
			return fmt.Errorf("record %s: %w", o.Designator, err)
		}
	}
	for _, obs := range d.observers {
		obs.OnDone(o)
	}
	return nil
}
