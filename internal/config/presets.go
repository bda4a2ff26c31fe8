package config

import (
	"math"
	"sort"

	"github.com/san-kum/minorbit/internal/ephemeris"
	"github.com/san-kum/minorbit/internal/orbit"
)

// Presets are grouped by kind. Each entry builds a fresh Config.
var Presets = map[string]map[string]func() *Config{
	"twobody": {
		"circular":  circularYear,
		"eccentric": eccentricTwoBody,
	},
	"mainbelt": {
		"big-three": bigThree,
	},
	"horizons": {
		"sample": horizonsSample,
	},
}

// twoBody is a run about a fixed central mass with no perturbers.
func twoBody(name string, gm float64) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Ephemeris = EphemerisConfig{
		Source:    SourceStatic,
		Positions: map[string][3]float64{string(ephemeris.Sun): {0, 0, 0}},
	}
	cfg.Gravity = GravityConfig{
		Central:    string(ephemeris.Sun),
		Perturbers: []string{},
		GM:         map[string]float64{string(ephemeris.Sun): gm},
	}
	return cfg
}

func circularYear() *Config {
	n := 2 * math.Pi / 365
	cfg := twoBody("circular", n*n)
	cfg.Window = WindowConfig{T0: 0, TF: 365, DT: 1}
	cfg.MinorBodies = []MinorBody{{
		Designator: "circular",
		State:      &StateVector{R: [3]float64{1, 0, 0}, V: [3]float64{0, n, 0}},
	}}
	return cfg
}

func eccentricTwoBody() *Config {
	cfg := twoBody("eccentric", 1)
	cfg.Window = WindowConfig{T0: 0, TF: Epoch(200 * math.Pi), DT: 2 * math.Pi / 200}
	cfg.MinorBodies = []MinorBody{
		{Designator: "e0.2", Elements: &orbit.Elements{A: 1, E: 0.2}},
		{Designator: "e0.6", Elements: &orbit.Elements{A: 1, E: 0.6}},
		{Designator: "e0.9", Elements: &orbit.Elements{A: 1, E: 0.9}},
	}
	return cfg
}

// bigThree uses approximate J2000 elements for the largest main-belt bodies.
func bigThree() *Config {
	cfg := DefaultConfig()
	cfg.Name = "big-three"
	cfg.Window = WindowConfig{T0: ephemeris.J2000, TF: ephemeris.J2000 + 3652.5, DT: 2}
	cfg.MinorBodies = []MinorBody{
		{Designator: "1 Ceres", Elements: &orbit.Elements{A: 2.7675, E: 0.0785, I: 10.58, Node: 80.49, Peri: 73.98, M: 6.07}},
		{Designator: "2 Pallas", Elements: &orbit.Elements{A: 2.7720, E: 0.2297, I: 34.84, Node: 173.13, Peri: 310.33, M: 352.98}},
		{Designator: "4 Vesta", Elements: &orbit.Elements{A: 2.3615, E: 0.0901, I: 7.13, Node: 103.91, Peri: 149.59, M: 341.27}},
	}
	return cfg
}

// horizonsSample mirrors the example input of the legacy TXT format.
func horizonsSample() *Config {
	cfg := DefaultConfig()
	cfg.Name = "sample"
	cfg.Window = WindowConfig{T0: mustEpoch("2024-01-01"), TF: mustEpoch("2025-01-01"), DT: 1}
	cfg.Horizons.Enabled = true
	cfg.Horizons.Validate = true
	cfg.MinorBodies = []MinorBody{
		{Designator: "2017 BX232"},
		{Designator: "2017 AC64"},
		{Designator: "2017 BM230"},
	}
	return cfg
}

func mustEpoch(s string) Epoch {
	e, err := ParseEpoch(s)
	if err != nil {
		panic(err)
	}
	return e
}

func GetPreset(group, preset string) *Config {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	fn, ok := groupPresets[preset]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets(group string) []string {
	groupPresets, ok := Presets[group]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(groupPresets))
	for name := range groupPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListGroups() []string {
	groups := make([]string, 0, len(Presets))
	for g := range Presets {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}
