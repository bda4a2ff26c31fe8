// Package experiment assembles and runs one propagation described by a
// run configuration: ephemeris, force model, integrator, initial
// conditions, driver, storage and metrics.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/minorbit/internal/config"
	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/horizons"
	"github.com/san-kum/minorbit/internal/metrics"
	"github.com/san-kum/minorbit/internal/sim"
	"github.com/san-kum/minorbit/internal/storage"
)

type Experiment struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *storage.Store
	observers []dynamo.Observer
	collector *metrics.Collector
	comp      *Components
}

type Option func(*Experiment)

func WithLogger(l *slog.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

// WithStore saves the run under the store's directory.
func WithStore(s *storage.Store) Option {
	return func(e *Experiment) { e.store = s }
}

func WithObserver(o dynamo.Observer) Option {
	return func(e *Experiment) { e.observers = append(e.observers, o) }
}

// WithCollector reuses c instead of a fresh collector, e.g. one already
// served over HTTP.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Experiment) { e.collector = c }
}

type Result struct {
	Report    *sim.Report
	Run       *storage.RunMetadata
	Residuals []horizons.Residual
	Metrics   *metrics.Collector
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.collector == nil {
		e.collector = metrics.NewCollector()
	}
	return e
}

// Setup validates the configuration and builds the run components.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	comp, err := Build(e.cfg, e.logger)
	if err != nil {
		return err
	}
	if comp.Cache != nil {
		e.collector.WatchCache(comp.Cache)
	}
	e.comp = comp
	return nil
}

func (e *Experiment) Components() *Components { return e.comp }

// Run propagates all configured bodies. The result is returned together
// with the error when the run was cut short, so partial output can still
// be reported.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.comp == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	cfg := e.cfg
	central := e.comp.Force.Central()

	var run *storage.Run
	sinks := sim.Tee{}
	if e.store != nil {
		var err error
		run, err = e.store.Begin(e.metadata(), central.GM)
		if err != nil {
			return nil, fmt.Errorf("open run: %w", err)
		}
		sinks = append(sinks, run)
		e.logger.Info("saving run", "id", run.ID(), "dir", run.Dir())
	}

	opts := []sim.Option{
		sim.WithIntegrator(e.collector.Instrument(e.comp.Integrator)),
		sim.WithInitialConditions(e.comp.Initial),
		sim.WithConfig(cfg.DriverConfig()),
		sim.WithLogger(e.logger),
		sim.WithObserver(e.collector),
	}
	if len(sinks) > 0 {
		opts = append(opts, sim.WithSink(sinks))
	}
	for _, o := range e.observers {
		opts = append(opts, sim.WithObserver(o))
	}
	driver := sim.New(opts...)

	bodies := make([]dynamo.MinorBody, len(cfg.MinorBodies))
	for i, mb := range cfg.MinorBodies {
		bodies[i] = dynamo.MinorBody{Designator: mb.Designator}
	}

	start := time.Now()
	report, runErr := driver.Run(ctx, bodies, cfg.DynamoWindow(), e.comp.Force)
	if report == nil {
		return nil, runErr
	}
	res := &Result{Report: report, Metrics: e.collector}

	if runErr == nil && cfg.Horizons.Validate && e.comp.Horizons != nil {
		res.Residuals = e.validate(ctx, report)
		if run != nil {
			for _, r := range res.Residuals {
				if r.Err == nil {
					run.SetResidual(r.Designator, r.Distance)
				}
			}
		}
	}

	if run != nil {
		var m storage.TextfileWriter
		if cfg.Output.Metrics {
			m = e.collector
		}
		meta, err := run.Finish(time.Since(start), m)
		if err != nil {
			return res, errors.Join(runErr, fmt.Errorf("save run: %w", err))
		}
		res.Run = meta
	}
	return res, runErr
}

// validate compares the final state of every completed body with Horizons.
func (e *Experiment) validate(ctx context.Context, report *sim.Report) []horizons.Residual {
	var done []dynamo.MinorBody
	for i, o := range report.Outcomes {
		if o.Status == dynamo.StatusCompleted {
			done = append(done, report.Bodies[i])
		}
	}
	if len(done) == 0 {
		return nil
	}

	e.logger.Info("validating final states", "bodies", len(done))
	residuals, err := e.comp.Horizons.Compare(ctx, done, e.cfg.Workers)
	if err != nil {
		e.logger.Warn("validation interrupted", "err", err)
	}
	for _, r := range residuals {
		if r.Err == nil {
			e.logger.Info("final position error", "body", r.Designator, "au", r.Distance)
		}
	}
	return residuals
}

func (e *Experiment) metadata() storage.RunMetadata {
	cfg := e.cfg
	perturbers := make([]string, 0, len(e.comp.Force.Perturbers()))
	for _, p := range e.comp.Force.Perturbers() {
		perturbers = append(perturbers, string(p.ID))
	}
	return storage.RunMetadata{
		Name:       cfg.Name,
		Window:     storage.WindowInfo{T0: cfg.Window.T0.Float(), TF: cfg.Window.TF.Float(), DT: cfg.Window.DT},
		Integrator: e.comp.Integrator.Name(),
		Ephemeris:  cfg.Ephemeris.Source,
		Central:    string(e.comp.Force.Central().ID),
		CentralGM:  e.comp.Force.Central().GM,
		Perturbers: perturbers,
		Indirect:   e.comp.Force.Indirect(),
		Workers:    cfg.Workers,
	}
}
