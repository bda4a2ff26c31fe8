package experiment

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/san-kum/minorbit/internal/config"
	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/ephemeris"
	"github.com/san-kum/minorbit/internal/horizons"
	"github.com/san-kum/minorbit/internal/integrators"
	"github.com/san-kum/minorbit/internal/orbit"
	"github.com/san-kum/minorbit/internal/physics"
)

// Components are the pieces a run is assembled from.
type Components struct {
	Provider   dynamo.EphemerisProvider
	Cache      *ephemeris.Cache
	Force      *physics.Gravity
	Integrator dynamo.Integrator
	Local      *orbit.Static
	Horizons   *horizons.Client
	Initial    dynamo.InitialConditionProvider
}

// Build resolves every component named by cfg. cfg must be valid.
func Build(cfg *config.Config, logger *slog.Logger) (*Components, error) {
	c := &Components{}

	provider, err := BuildProvider(cfg.Ephemeris)
	if err != nil {
		return nil, err
	}
	c.Provider = provider
	if cfg.Ephemeris.Cache {
		c.Cache = ephemeris.NewCache(provider, cfg.Ephemeris.CacheEntries)
		c.Provider = c.Cache
	}

	central, perturbers, err := cfg.MajorBodies()
	if err != nil {
		return nil, err
	}
	opts := []physics.GravityOption{
		physics.WithIndirect(cfg.Gravity.Indirect),
		physics.WithLogger(logger),
	}
	if cfg.Gravity.Epsilon > 0 {
		opts = append(opts, physics.WithEpsilon(cfg.Gravity.Epsilon))
	}
	c.Force, err = physics.NewGravity(c.Provider, central, perturbers, opts...)
	if err != nil {
		return nil, err
	}

	c.Integrator, err = integrators.Get(cfg.Integrator)
	if err != nil {
		return nil, err
	}

	c.Local = LocalConditions(cfg, central.GM)
	c.Initial = c.Local
	if cfg.Horizons.Enabled {
		c.Horizons = BuildHorizons(cfg, logger)
		c.Initial = orbit.Chain{c.Local, c.Horizons}
	}
	return c, nil
}

func BuildProvider(ec config.EphemerisConfig) (dynamo.EphemerisProvider, error) {
	switch ec.Source {
	case config.SourceKepler:
		return ephemeris.NewKepler(), nil
	case config.SourceStatic:
		positions := make(map[dynamo.BodyID]dynamo.Vector3, len(ec.Positions))
		for name, r := range ec.Positions {
			positions[dynamo.BodyID(strings.ToLower(strings.TrimSpace(name)))] = dynamo.Vec(r[0], r[1], r[2])
		}
		return ephemeris.NewStatic(positions), nil
	case config.SourceTable:
		f, err := os.Open(ec.Table)
		if err != nil {
			return nil, &dynamo.ConfigError{Field: "ephemeris.table", Reason: err.Error()}
		}
		defer f.Close()
		return ephemeris.LoadTableCSV(f, ec.Interpolation)
	default:
		return nil, &dynamo.ConfigError{Field: "ephemeris.source", Reason: fmt.Sprintf("unknown source %q", ec.Source)}
	}
}

// LocalConditions collects the bodies that carry a state or elements.
func LocalConditions(cfg *config.Config, mu float64) *orbit.Static {
	local := orbit.NewStatic(mu)
	for _, mb := range cfg.MinorBodies {
		switch {
		case mb.State != nil:
			local.AddState(mb.Designator,
				dynamo.Vec(mb.State.R[0], mb.State.R[1], mb.State.R[2]),
				dynamo.Vec(mb.State.V[0], mb.State.V[1], mb.State.V[2]))
		case mb.Elements != nil:
			local.AddElements(mb.Designator, *mb.Elements)
		}
	}
	return local
}

func BuildHorizons(cfg *config.Config, logger *slog.Logger) *horizons.Client {
	h := cfg.Horizons
	remote := 0
	for _, mb := range cfg.MinorBodies {
		if mb.State == nil && mb.Elements == nil {
			remote++
		}
	}
	opts := []horizons.Option{
		horizons.WithCenter(h.Center),
		horizons.WithRateLimit(h.RateLimit),
		horizons.WithRetries(h.Retries),
		horizons.WithLogger(logger),
		horizons.WithExpected(remote),
	}
	if h.URL != "" {
		opts = append(opts, horizons.WithURL(h.URL))
	}
	if h.Timeout > 0 {
		opts = append(opts, horizons.WithTimeout(h.Timeout))
	}
	return horizons.New(opts...)
}
