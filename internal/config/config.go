// Package config loads run descriptions: YAML run files, the legacy TXT
// input format and built-in presets.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/ephemeris"
	"github.com/san-kum/minorbit/internal/integrators"
	"github.com/san-kum/minorbit/internal/orbit"
)

const (
	DefaultDT            = 1.0
	DefaultHorizonsURL   = "https://ssd.jpl.nasa.gov/api/horizons.api"
	DefaultCenter        = "500@10"
	DefaultRateLimit     = 2.0
	DefaultRetries       = 4
	DefaultTimeout       = 30 * time.Second
	DefaultDataDir       = "data"
	SourceKepler         = "kepler"
	SourceStatic         = "static"
	SourceTable          = "table"
	DefaultProgressEvery = 200
)

type Config struct {
	Name            string          `yaml:"name"`
	Window          WindowConfig    `yaml:"window"`
	Integrator      string          `yaml:"integrator"`
	Workers         int             `yaml:"workers"`
	DegenerateLimit int             `yaml:"degenerate_limit"`
	ProgressEvery   int             `yaml:"progress_every"`
	Ephemeris       EphemerisConfig `yaml:"ephemeris"`
	Gravity         GravityConfig   `yaml:"gravity"`
	MinorBodies     []MinorBody     `yaml:"minor_bodies"`
	Horizons        HorizonsConfig  `yaml:"horizons"`
	Output          OutputConfig    `yaml:"output"`
}

type WindowConfig struct {
	T0 Epoch   `yaml:"t0"`
	TF Epoch   `yaml:"tf"`
	DT float64 `yaml:"dt"` // days
}

type EphemerisConfig struct {
	Source        string                `yaml:"source"`
	Table         string                `yaml:"table,omitempty"`
	Interpolation int                   `yaml:"interpolation,omitempty"`
	Positions     map[string][3]float64 `yaml:"positions,omitempty"`
	Cache         bool                  `yaml:"cache"`
	CacheEntries  int                   `yaml:"cache_entries,omitempty"`
}

type GravityConfig struct {
	Central    string             `yaml:"central"`
	Perturbers []string           `yaml:"perturbers"`
	GM         map[string]float64 `yaml:"gm,omitempty"` // AU^3/day^2 overrides
	Indirect   bool               `yaml:"indirect"`
	Epsilon    float64            `yaml:"epsilon,omitempty"`
}

// MinorBody is one propagated body. Without State or Elements the initial
// condition is fetched from Horizons.
type MinorBody struct {
	Designator string          `yaml:"designator"`
	State      *StateVector    `yaml:"state,omitempty"`
	Elements   *orbit.Elements `yaml:"elements,omitempty"`
}

type StateVector struct {
	R [3]float64 `yaml:"r"`
	V [3]float64 `yaml:"v"`
}

type HorizonsConfig struct {
	Enabled   bool          `yaml:"enabled"`
	URL       string        `yaml:"url"`
	Center    string        `yaml:"center"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second
	Retries   int           `yaml:"retries"`
	Timeout   time.Duration `yaml:"timeout"`
	Validate  bool          `yaml:"validate"`
}

type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Metrics bool   `yaml:"metrics"`
}

func DefaultConfig() *Config {
	perturbers := make([]string, len(ephemeris.Planets))
	for i, p := range ephemeris.Planets {
		perturbers[i] = string(p)
	}
	return &Config{
		Name:            "run",
		Window:          WindowConfig{DT: DefaultDT},
		Integrator:      integrators.Default,
		DegenerateLimit: dynamo.DefaultConfig().DegenerateLimit,
		ProgressEvery:   DefaultProgressEvery,
		Ephemeris: EphemerisConfig{
			Source: SourceKepler,
			Cache:  true,
		},
		Gravity: GravityConfig{
			Central:    string(ephemeris.Sun),
			Perturbers: perturbers,
			Indirect:   true,
		},
		Horizons: HorizonsConfig{
			URL:       DefaultHorizonsURL,
			Center:    DefaultCenter,
			RateLimit: DefaultRateLimit,
			Retries:   DefaultRetries,
			Timeout:   DefaultTimeout,
		},
		Output: OutputConfig{
			Dir:     DefaultDataDir,
			Metrics: true,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML run description on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) DynamoWindow() dynamo.Window {
	return dynamo.Window{T0: c.Window.T0.Float(), TF: c.Window.TF.Float(), DT: c.Window.DT}
}

func (c *Config) DriverConfig() dynamo.Config {
	return dynamo.Config{
		Workers:         c.Workers,
		DegenerateLimit: c.DegenerateLimit,
		ProgressEvery:   c.ProgressEvery,
	}
}

// Designators lists the minor bodies in configuration order.
func (c *Config) Designators() []string {
	out := make([]string, len(c.MinorBodies))
	for i, mb := range c.MinorBodies {
		out[i] = mb.Designator
	}
	return out
}

// NeedsHorizons reports whether any body lacks a local initial condition.
func (c *Config) NeedsHorizons() bool {
	for _, mb := range c.MinorBodies {
		if mb.State == nil && mb.Elements == nil {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if err := c.DynamoWindow().Validate(); err != nil {
		return err
	}
	if _, err := integrators.Get(c.Integrator); err != nil {
		return err
	}
	if c.DegenerateLimit < 0 {
		return &dynamo.ConfigError{Field: "degenerate_limit", Reason: "must be non-negative"}
	}

	switch c.Ephemeris.Source {
	case SourceKepler:
	case SourceStatic:
		if len(c.Ephemeris.Positions) == 0 {
			return &dynamo.ConfigError{Field: "ephemeris.positions", Reason: "static ephemeris needs positions"}
		}
	case SourceTable:
		if c.Ephemeris.Table == "" {
			return &dynamo.ConfigError{Field: "ephemeris.table", Reason: "table ephemeris needs a file"}
		}
	default:
		return &dynamo.ConfigError{Field: "ephemeris.source", Reason: fmt.Sprintf("unknown source %q", c.Ephemeris.Source)}
	}

	if _, _, err := c.MajorBodies(); err != nil {
		return err
	}

	if len(c.MinorBodies) == 0 {
		return &dynamo.ConfigError{Field: "minor_bodies", Reason: "no minor bodies configured"}
	}
	seen := make(map[string]bool, len(c.MinorBodies))
	for i, mb := range c.MinorBodies {
		field := fmt.Sprintf("minor_bodies[%d]", i)
		if strings.TrimSpace(mb.Designator) == "" {
			return &dynamo.ConfigError{Field: field, Reason: "empty designator"}
		}
		if seen[mb.Designator] {
			return &dynamo.ConfigError{Field: field, Reason: fmt.Sprintf("duplicate designator %q", mb.Designator)}
		}
		seen[mb.Designator] = true
		if mb.State != nil && mb.Elements != nil {
			return &dynamo.ConfigError{Field: field, Reason: "give either state or elements, not both"}
		}
		if mb.Elements != nil {
			if err := mb.Elements.Validate(); err != nil {
				return err
			}
		}
	}
	if c.NeedsHorizons() && !c.Horizons.Enabled {
		return &dynamo.ConfigError{Field: "horizons.enabled", Reason: "bodies without state or elements need Horizons"}
	}
	return nil
}

// MajorBodies resolves the central body and perturbers, applying GM
// overrides. Bodies outside the catalog need an override.
func (c *Config) MajorBodies() (dynamo.MajorBody, []dynamo.MajorBody, error) {
	central, err := c.majorBody(c.Gravity.Central)
	if err != nil {
		return dynamo.MajorBody{}, nil, err
	}
	perturbers := make([]dynamo.MajorBody, 0, len(c.Gravity.Perturbers))
	seen := map[dynamo.BodyID]bool{central.ID: true}
	for _, name := range c.Gravity.Perturbers {
		b, err := c.majorBody(name)
		if err != nil {
			return dynamo.MajorBody{}, nil, err
		}
		if seen[b.ID] {
			return dynamo.MajorBody{}, nil, &dynamo.ConfigError{Field: "gravity.perturbers", Reason: fmt.Sprintf("duplicate body %s", b.ID)}
		}
		seen[b.ID] = true
		perturbers = append(perturbers, b)
	}
	return central, perturbers, nil
}

func (c *Config) majorBody(name string) (dynamo.MajorBody, error) {
	id := dynamo.BodyID(strings.ToLower(strings.TrimSpace(name)))
	if gm, ok := c.Gravity.GM[string(id)]; ok {
		b := dynamo.MajorBody{ID: id, GM: gm}
		return b, b.Validate()
	}
	return ephemeris.Lookup(id)
}
