// Package optim searches run settings for the best value of an objective.
package optim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/minorbit/internal/config"
	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/experiment"
	"github.com/san-kum/minorbit/internal/metrics"
)

var ErrNoValue = errors.New("objective has no value")

// Objective scores a finished run; lower is better.
type Objective func(e *experiment.Experiment, res *experiment.Result) (float64, error)

var Objectives = map[string]Objective{
	"energy_drift": MaxEnergyDrift,
	"residual":     MaxResidual,
	"elapsed":      Elapsed,
}

// MaxEnergyDrift is the largest two-body energy drift over completed bodies.
func MaxEnergyDrift(e *experiment.Experiment, res *experiment.Result) (float64, error) {
	mu := e.Components().Force.Central().GM
	worst := 0.0
	for i, o := range res.Report.Outcomes {
		if o.Status != dynamo.StatusCompleted {
			continue
		}
		worst = math.Max(worst, metrics.Measure(mu, res.Report.Bodies[i].Trajectory).EnergyDrift)
	}
	return worst, nil
}

// MaxResidual is the largest final position error against Horizons.
func MaxResidual(_ *experiment.Experiment, res *experiment.Result) (float64, error) {
	if len(res.Residuals) == 0 {
		return 0, fmt.Errorf("%w: run was not validated", ErrNoValue)
	}
	worst := 0.0
	for _, r := range res.Residuals {
		if r.Err != nil {
			return 0, fmt.Errorf("%s: %w", r.Designator, r.Err)
		}
		worst = math.Max(worst, r.Distance)
	}
	return worst, nil
}

func Elapsed(_ *experiment.Experiment, res *experiment.Result) (float64, error) {
	return res.Report.Elapsed.Seconds(), nil
}

var setters = map[string]func(*config.Config, string) error{
	"dt": func(c *config.Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		c.Window.DT = f
		return err
	},
	"integrator": func(c *config.Config, v string) error {
		c.Integrator = v
		return nil
	},
	"workers": func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Workers = n
		return err
	},
}

// Params lists the settings a grid can vary.
func Params() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseParam reads "name=v1,v2,...".
func ParseParam(s string) (string, []string, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || list == "" {
		return "", nil, fmt.Errorf("param %q: want name=v1,v2", s)
	}
	if _, ok := setters[name]; !ok {
		return "", nil, fmt.Errorf("param %q: unknown setting (have %v)", name, Params())
	}
	return name, strings.Split(list, ","), nil
}

// Evaluation is one grid point. Value is +Inf when a body failed to
// complete or the run could not be scored.
type Evaluation struct {
	Params map[string]string
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]string
	logger     *slog.Logger
}

func NewGridSearch(params []string, ranges [][]string, logger *slog.Logger) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, &dynamo.ConfigError{Field: "grid", Reason: "need one value list per parameter"}
	}
	for i, name := range params {
		if _, ok := setters[name]; !ok {
			return nil, &dynamo.ConfigError{Field: "grid", Reason: fmt.Sprintf("unknown parameter %q", name)}
		}
		if len(ranges[i]) == 0 {
			return nil, &dynamo.ConfigError{Field: "grid", Reason: fmt.Sprintf("no values for %q", name)}
		}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &GridSearch{paramNames: params, ranges: ranges, logger: logger}, nil
}

// Search runs every grid point on a copy of base, in order, and returns
// the lowest scoring point with all evaluations. The best point is nil
// when no run could be scored.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, objective Objective) (*Evaluation, []Evaluation, error) {
	var evals []Evaluation
	err := g.searchRecursive(ctx, 0, map[string]string{}, base, objective, &evals)

	var best *Evaluation
	for i := range evals {
		if evals[i].Err == nil && !math.IsInf(evals[i].Value, 1) && (best == nil || evals[i].Value < best.Value) {
			best = &evals[i]
		}
	}
	return best, evals, err
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]string,
	base *config.Config,
	objective Objective,
	evals *[]Evaluation,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		*evals = append(*evals, g.evaluate(ctx, current, base, objective))
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]string, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, objective, evals); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, params map[string]string, base *config.Config, objective Objective) Evaluation {
	ev := Evaluation{Params: params, Value: math.Inf(1)}
	cfg := *base
	for name, v := range params {
		if err := setters[name](&cfg, v); err != nil {
			ev.Err = fmt.Errorf("%s=%s: %w", name, v, err)
			return ev
		}
	}

	exp := experiment.New(&cfg, experiment.WithLogger(g.logger))
	if err := exp.Setup(); err != nil {
		ev.Err = err
		return ev
	}
	res, err := exp.Run(ctx)
	if err != nil {
		ev.Err = err
		return ev
	}
	if !res.Report.AllCompleted() {
		g.logger.Info("grid point has failed bodies", "params", params, "failed", len(res.Report.Failed()))
		return ev
	}

	ev.Value, ev.Err = objective(exp, res)
	if ev.Err != nil {
		ev.Value = math.Inf(1)
	}
	g.logger.Info("grid point", "params", params, "value", ev.Value)
	return ev
}
