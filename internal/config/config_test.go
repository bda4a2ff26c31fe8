package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/ephemeris"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "yoshida8", cfg.Integrator)
	assert.Equal(t, SourceKepler, cfg.Ephemeris.Source)
	assert.Equal(t, "sun", cfg.Gravity.Central)
	assert.Len(t, cfg.Gravity.Perturbers, 8)
	assert.True(t, cfg.Gravity.Indirect)
	assert.Equal(t, 3, cfg.DegenerateLimit)
	assert.Positive(t, cfg.Window.DT)
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"2451545.0", 2451545.0},
		{"2000-01-01T12:00:00", 2451545.0},
		{"2000-01-01", 2451544.5},
		{"2000-01-01 18:00:00", 2451545.25},
		{"1970-01-01", UnixEpochJD},
	}
	for _, tt := range tests {
		got, err := ParseEpoch(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got.Float(), 1e-9, tt.in)
	}

	_, err := ParseEpoch("next tuesday")
	assert.Error(t, err)
}

func TestEpochTime(t *testing.T) {
	e := Epoch(2451545.0)
	assert.Equal(t, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), e.Time())
	assert.Equal(t, "2000-01-01T12:00:00", e.String())
}

const runFile = `
name: asteroids
window:
  t0: 2024-01-01
  tf: 2460676.5
  dt: 0.5
integrator: leapfrog
workers: 4
gravity:
  central: sun
  perturbers: [jupiter, saturn]
minor_bodies:
  - designator: "1 Ceres"
    elements: {a: 2.77, e: 0.08, i: 10.6, node: 80.3, peri: 73.6, m: 95.9}
  - designator: test
    state:
      r: [1, 0, 0]
      v: [0, 0.0172, 0]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(runFile))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "asteroids", cfg.Name)
	assert.InDelta(t, 2460310.5, cfg.Window.T0.Float(), 1e-9)
	assert.Equal(t, Epoch(2460676.5), cfg.Window.TF)
	assert.Equal(t, 0.5, cfg.Window.DT)
	assert.Equal(t, "leapfrog", cfg.Integrator)
	assert.Equal(t, []string{"1 Ceres", "test"}, cfg.Designators())
	assert.False(t, cfg.NeedsHorizons())

	// Unset sections keep their defaults.
	assert.Equal(t, SourceKepler, cfg.Ephemeris.Source)
	assert.Equal(t, DefaultCenter, cfg.Horizons.Center)

	central, perturbers, err := cfg.MajorBodies()
	require.NoError(t, err)
	assert.Equal(t, ephemeris.Sun, central.ID)
	require.Len(t, perturbers, 2)
	assert.Equal(t, ephemeris.Saturn, perturbers[1].ID)

	w := cfg.DynamoWindow()
	assert.Equal(t, 0.5, w.DT)
	assert.Equal(t, 4, cfg.DriverConfig().Workers)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := GetPreset("twobody", "circular")
	require.NotNil(t, cfg)

	path := filepath.Join(t.TempDir(), "circular.yaml")
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad window", func(c *Config) { c.Window.DT = 0 }},
		{"unknown integrator", func(c *Config) { c.Integrator = "euler" }},
		{"unknown source", func(c *Config) { c.Ephemeris.Source = "spice" }},
		{"table without file", func(c *Config) { c.Ephemeris.Source = SourceTable }},
		{"unknown perturber", func(c *Config) { c.Gravity.Perturbers = []string{"pluto"} }},
		{"duplicate perturber", func(c *Config) { c.Gravity.Perturbers = []string{"mars", "Mars"} }},
		{"no bodies", func(c *Config) { c.MinorBodies = nil }},
		{"duplicate body", func(c *Config) { c.MinorBodies = append(c.MinorBodies, c.MinorBodies[0]) }},
		{"empty designator", func(c *Config) { c.MinorBodies[0].Designator = " " }},
		{"bad elements", func(c *Config) { c.MinorBodies[0].Elements.E = 1.2 }},
		{"state and elements", func(c *Config) { c.MinorBodies[1].Elements = c.MinorBodies[0].Elements }},
		{"horizons disabled", func(c *Config) { c.MinorBodies[0].Elements = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(runFile))
			require.NoError(t, err)
			require.NoError(t, cfg.Validate())

			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), dynamo.ErrConfiguration)
		})
	}
}

func TestPresets(t *testing.T) {
	for _, group := range ListGroups() {
		for _, name := range ListPresets(group) {
			cfg := GetPreset(group, name)
			require.NotNil(t, cfg, "%s/%s", group, name)
			assert.NoError(t, cfg.Validate(), "%s/%s", group, name)
		}
	}

	circular := GetPreset("twobody", "circular")
	circular.Name = "changed"
	assert.Equal(t, "circular", GetPreset("twobody", "circular").Name, "presets are rebuilt on every call")

	assert.Nil(t, GetPreset("twobody", "nonexistent"))
	assert.Nil(t, GetPreset("nonexistent", "circular"))
	assert.Nil(t, ListPresets("nonexistent"))
}

const legacyInput = `; sample input
T0 2024-01-01
TF 2024-12-31 ; inclusive
DT 0.5
MP 2017 BX232
MP 2017   AC64   ; spaced
MP 433
RF out/neos.txt
`

func TestParseLegacy(t *testing.T) {
	cfg, err := ParseLegacy(strings.NewReader(legacyInput))
	require.NoError(t, err)

	assert.InDelta(t, 2460310.5, cfg.Window.T0.Float(), 1e-9)
	assert.InDelta(t, 2460675.5, cfg.Window.TF.Float(), 1e-9)
	assert.Equal(t, 0.5, cfg.Window.DT)
	assert.Equal(t, []string{"2017 BX232", "2017 AC64", "433"}, cfg.Designators())
	assert.Equal(t, "neos", cfg.Name)
	assert.True(t, cfg.Horizons.Enabled)
	assert.True(t, cfg.Horizons.Validate)
	assert.NoError(t, cfg.Validate())
}

func TestParseLegacyMissingFields(t *testing.T) {
	for _, key := range []string{"T0", "TF", "DT"} {
		var kept []string
		for _, line := range strings.Split(legacyInput, "\n") {
			if !strings.HasPrefix(line, key+" ") {
				kept = append(kept, line)
			}
		}
		_, err := ParseLegacy(strings.NewReader(strings.Join(kept, "\n")))
		assert.ErrorIs(t, err, dynamo.ErrConfiguration, key)
		assert.ErrorContains(t, err, key)
	}

	_, err := ParseLegacy(strings.NewReader("T0 yesterday\n"))
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "nested/b.yaml", "nested/deeper/c.yml", "legacy.txt", "notes.md"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(runFile), 0644))
	}

	files, err := Discover(filepath.Join(dir, "**", "*.{yaml,yml}"), filepath.Join(dir, "*.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "nested", "b.yaml"),
		filepath.Join(dir, "nested", "deeper", "c.yml"),
	}, files)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.txt"), []byte(legacyInput), 0644))
	cfg, err := LoadAny(filepath.Join(dir, "legacy.txt"))
	require.NoError(t, err)
	assert.Equal(t, "neos", cfg.Name)

	cfg, err = LoadAny(filepath.Join(dir, "a.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "asteroids", cfg.Name)
}
