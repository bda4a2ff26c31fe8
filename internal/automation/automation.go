// Package automation runs many propagations: batches of run files, step
// size sweeps and clone clouds around a nominal orbit.
package automation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/san-kum/minorbit/internal/analysis"
	"github.com/san-kum/minorbit/internal/config"
	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/experiment"
	"github.com/san-kum/minorbit/internal/sim"
	"github.com/san-kum/minorbit/internal/storage"
)

type Runner struct {
	store  *storage.Store
	logger *slog.Logger
	load   func(path string) (*config.Config, error)
}

type Option func(*Runner)

func WithStore(s *storage.Store) Option {
	return func(r *Runner) { r.store = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

func New(opts ...Option) *Runner {
	r := &Runner{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		load:   config.LoadAny,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BatchResult is the outcome of one run file.
type BatchResult struct {
	Path   string
	Name   string
	RunID  string
	Counts map[dynamo.Status]int
	Err    error
}

// RunBatch runs each file in turn. A failing file is reported in its
// result and does not stop the batch; a canceled context does.
func (r *Runner) RunBatch(ctx context.Context, paths []string) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r.logger.Info("batch run", "file", path, "n", i+1, "of", len(paths))

		res := BatchResult{Path: path}
		cfg, err := r.load(path)
		if err != nil {
			res.Err = err
			results = append(results, res)
			r.logger.Error("load failed", "file", path, "err", err)
			continue
		}
		res.Name = cfg.Name

		out, err := r.runOne(ctx, cfg)
		if out != nil {
			res.Counts = out.Report.Counts()
			if out.Run != nil {
				res.RunID = out.Run.ID
			}
		}
		if err != nil {
			res.Err = err
			r.logger.Error("run failed", "file", path, "err", err)
		}
		results = append(results, res)
	}
	return results, ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, cfg *config.Config, opts ...experiment.Option) (*experiment.Result, error) {
	opts = append(opts, experiment.WithLogger(r.logger))
	if r.store != nil {
		opts = append(opts, experiment.WithStore(r.store))
	}
	exp := experiment.New(cfg, opts...)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	return exp.Run(ctx)
}

// SweepResult compares one step size with the finest step of a sweep.
type SweepResult struct {
	DT    float64
	Steps int
	// MaxError is the largest final position difference, in AU, from the
	// finest run over the bodies that completed in both.
	MaxError float64
	Failed   int
	Elapsed  time.Duration
}

// RunSweep propagates cfg once per step size, without saving, and
// measures how far each final position lies from the run with the
// smallest |dt|. The sign of each dt follows the window direction.
func (r *Runner) RunSweep(ctx context.Context, cfg *config.Config, dts []float64) ([]SweepResult, error) {
	if len(dts) < 2 {
		return nil, &dynamo.ConfigError{Field: "sweep", Reason: "need at least two step sizes"}
	}
	sorted := make([]float64, len(dts))
	for i, dt := range dts {
		sorted[i] = math.Abs(dt)
		if sorted[i] == 0 {
			return nil, &dynamo.ConfigError{Field: "sweep", Reason: "zero step size"}
		}
	}
	sort.Float64s(sorted)

	sign := 1.0
	if cfg.Window.TF < cfg.Window.T0 {
		sign = -1
	}

	reports := make([]*sim.Report, len(sorted))
	elapsed := make([]time.Duration, len(sorted))
	for i, dt := range sorted {
		c := *cfg
		c.Window.DT = sign * dt
		res, err := r.runOne(ctx, &c)
		if err != nil {
			return nil, fmt.Errorf("dt %g: %w", dt, err)
		}
		reports[i] = res.Report
		elapsed[i] = res.Report.Elapsed
		r.logger.Info("sweep step", "dt", dt, "steps", res.Report.Plan.Steps())
	}

	finest := finalPositions(reports[0])
	out := make([]SweepResult, len(sorted))
	for i, rep := range reports {
		sr := SweepResult{DT: sorted[i], Steps: rep.Plan.Steps(), Elapsed: elapsed[i]}
		for des, pos := range finalPositions(rep) {
			ref, ok := finest[des]
			if !ok {
				continue
			}
			sr.MaxError = math.Max(sr.MaxError, pos.Sub(ref).Norm())
		}
		sr.Failed = len(rep.Failed())
		out[i] = sr
	}
	return out, nil
}

func finalPositions(rep *sim.Report) map[string]dynamo.Vector3 {
	out := make(map[string]dynamo.Vector3)
	for i, o := range rep.Outcomes {
		if o.Status != dynamo.StatusCompleted {
			continue
		}
		if last, ok := rep.Bodies[i].Last(); ok {
			out[o.Designator] = last.R
		}
	}
	return out
}

// CloneConfig describes a cloud of virtual bodies around one nominal orbit.
type CloneConfig struct {
	Designator string
	Count      int
	SigmaR     float64 // AU
	SigmaV     float64 // AU/day
	Seed       int64
}

// CloneResult summarizes where the clones ended relative to the nominal body.
type CloneResult struct {
	Report    *sim.Report
	Completed int
	// Spread is the largest final distance of a clone from the nominal body.
	Spread float64
	// MeanSpread is the mean final distance over completed clones.
	MeanSpread float64
	// Exponent is the mean fitted growth rate of clone separation, 1/day.
	Exponent float64
}

// Clones returns a copy of cfg whose minor bodies are the nominal body and
// cc.Count clones "<designator>#k" with normally distributed offsets of
// the initial state. The nominal body must carry a state or elements.
func Clones(cfg *config.Config, cc CloneConfig) (*config.Config, error) {
	if cc.Count < 1 {
		return nil, &dynamo.ConfigError{Field: "clones", Reason: "count must be positive"}
	}
	var nominal *config.MinorBody
	for i := range cfg.MinorBodies {
		if cfg.MinorBodies[i].Designator == cc.Designator {
			nominal = &cfg.MinorBodies[i]
		}
	}
	if nominal == nil {
		return nil, &dynamo.ConfigError{Field: "clones", Reason: fmt.Sprintf("no body %q", cc.Designator)}
	}

	central, _, err := cfg.MajorBodies()
	if err != nil {
		return nil, err
	}
	base, err := experiment.LocalConditions(&config.Config{MinorBodies: []config.MinorBody{*nominal}}, central.GM).
		InitialState(context.Background(), nominal.Designator, cfg.Window.T0.Float())
	if err != nil {
		return nil, fmt.Errorf("nominal state: %w", err)
	}

	rng := rand.New(rand.NewSource(cc.Seed))
	gauss := func(sigma float64) dynamo.Vector3 {
		return dynamo.Vec(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()).Scale(sigma)
	}

	out := *cfg
	out.Name = cfg.Name + "-clones"
	out.MinorBodies = make([]config.MinorBody, 0, cc.Count+1)
	out.MinorBodies = append(out.MinorBodies, config.MinorBody{
		Designator: nominal.Designator,
		State:      stateVector(base.R, base.V),
	})
	for k := 1; k <= cc.Count; k++ {
		out.MinorBodies = append(out.MinorBodies, config.MinorBody{
			Designator: fmt.Sprintf("%s#%d", nominal.Designator, k),
			State:      stateVector(base.R.Add(gauss(cc.SigmaR)), base.V.Add(gauss(cc.SigmaV))),
		})
	}
	return &out, nil
}

// RunClones propagates a clone cloud built by Clones.
func (r *Runner) RunClones(ctx context.Context, cfg *config.Config, cc CloneConfig) (*CloneResult, error) {
	cloud, err := Clones(cfg, cc)
	if err != nil {
		return nil, err
	}
	res, err := r.runOne(ctx, cloud)
	if err != nil {
		return nil, err
	}

	out := &CloneResult{Report: res.Report}
	final := finalPositions(res.Report)
	ref, ok := final[cc.Designator]
	if !ok {
		return out, fmt.Errorf("nominal body %q did not complete", cc.Designator)
	}
	var sum float64
	for des, pos := range final {
		if des == cc.Designator {
			continue
		}
		d := pos.Sub(ref).Norm()
		out.Completed++
		sum += d
		out.Spread = math.Max(out.Spread, d)
	}
	if out.Completed > 0 {
		out.MeanSpread = sum / float64(out.Completed)
	}

	nominal, _ := res.Report.Body(cc.Designator)
	var neighbours [][]dynamo.State
	for i, o := range res.Report.Outcomes {
		if o.Status == dynamo.StatusCompleted && o.Designator != cc.Designator {
			neighbours = append(neighbours, res.Report.Bodies[i].Trajectory)
		}
	}
	out.Exponent, _ = analysis.MeanExponent(nominal.Trajectory, neighbours)
	return out, nil
}

func stateVector(r, v dynamo.Vector3) *config.StateVector {
	return &config.StateVector{R: [3]float64{r.X, r.Y, r.Z}, V: [3]float64{v.X, v.Y, v.Z}}
}
