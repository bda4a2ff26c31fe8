package experiment

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/minorbit/internal/config"
	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/storage"
)

func TestRunCircularYear(t *testing.T) {
	st := storage.New(t.TempDir())
	exp := New(config.GetPreset("twobody", "circular"), WithStore(st))
	require.NoError(t, exp.Setup())

	res, err := exp.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Report.AllCompleted())

	last, ok := res.Report.Bodies[0].Last()
	require.True(t, ok)
	assert.Equal(t, 365.0, last.Epoch)
	assert.Less(t, last.R.Sub(dynamo.Vec(1, 0, 0)).Norm(), 1e-6)

	require.NotNil(t, res.Run)
	assert.Equal(t, "yoshida8", res.Run.Integrator)
	assert.Equal(t, "sun", res.Run.Central)
	assert.Equal(t, 1, res.Run.Counts["completed"])

	body, ok := res.Run.Body("circular")
	require.True(t, ok)
	require.NotNil(t, body.Invariants)
	assert.Less(t, body.Invariants.EnergyDrift, 1e-12)

	traj, err := st.LoadTrajectory(res.Run.ID, "circular")
	require.NoError(t, err)
	assert.Len(t, traj, 366)

	prom, err := os.ReadFile(filepath.Join(st.Dir(), res.Run.ID, "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(prom), "minorbit_steps_total 365")
}

func TestRunWithoutStore(t *testing.T) {
	exp := New(config.GetPreset("twobody", "eccentric"))
	require.NoError(t, exp.Setup())

	res, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Run)
	assert.Equal(t, 3, res.Report.Counts()[dynamo.StatusCompleted])
}

func TestSetupErrors(t *testing.T) {
	_, err := New(config.DefaultConfig()).Run(context.Background())
	assert.Error(t, err)

	cfg := config.GetPreset("twobody", "circular")
	cfg.Window.DT = 0
	assert.ErrorIs(t, New(cfg).Setup(), dynamo.ErrConfiguration)

	cfg = config.GetPreset("twobody", "circular")
	cfg.Ephemeris = config.EphemerisConfig{Source: config.SourceTable, Table: filepath.Join(t.TempDir(), "missing.csv")}
	assert.ErrorIs(t, New(cfg).Setup(), dynamo.ErrConfiguration)
}

func TestTableEphemerisGap(t *testing.T) {
	var b strings.Builder
	b.WriteString("body,epoch,x,y,z\n")
	for e := -5; e <= 20; e++ {
		fmt.Fprintf(&b, "sun,%d,0,0,0\n", e)
	}
	path := filepath.Join(t.TempDir(), "sun.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))

	cfg := config.GetPreset("twobody", "circular")
	cfg.Ephemeris = config.EphemerisConfig{Source: config.SourceTable, Table: path, Cache: true}
	cfg.Window = config.WindowConfig{T0: 0, TF: 30, DT: 1}

	exp := New(cfg)
	require.NoError(t, exp.Setup())
	require.NotNil(t, exp.Components().Cache)

	res, err := exp.Run(context.Background())
	require.NoError(t, err)

	o := res.Report.Outcomes[0]
	assert.Equal(t, dynamo.StatusEphemerisGap, o.Status)
	assert.ErrorIs(t, o.Err, dynamo.ErrEphemerisUnavailable)
	assert.Less(t, o.LastEpoch, 20.0)
	assert.Equal(t, o.LastEpoch, o.FailureEpoch)
}

// fakeHorizons serves circular-orbit states. The remote body's reference
// position at the end of the window is offset by 1e-3 AU.
func fakeHorizons(t *testing.T, n float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start := strings.Trim(q.Get("START_TIME"), "'")
		jd, err := strconv.ParseFloat(strings.TrimPrefix(start, "JD"), 64)
		if err != nil {
			http.Error(w, "bad time", http.StatusBadRequest)
			return
		}

		var rx, ry, vx, vy float64
		switch {
		case strings.Contains(q.Get("COMMAND"), "remote"):
			rx, ry, vx = 0, 1, -n
			if jd > 0 {
				rx += 1e-3
			}
		case strings.Contains(q.Get("COMMAND"), "circular"):
			rx, vy = 1, n
		default:
			fmt.Fprint(w, "No matches found.")
			return
		}
		fmt.Fprintf(w, "$$SOE\n%.9f = A.D. 2000-Jan-01 00:00:00.0000 TDB\n"+
			" X = %.16E Y = %.16E Z = %.16E\n VX= %.16E VY= %.16E VZ= %.16E\n$$EOE\n",
			jd, rx, ry, 0.0, vx, vy, 0.0)
	}))
}

func TestHorizonsInitialAndValidation(t *testing.T) {
	n := 2 * math.Pi / 365
	srv := fakeHorizons(t, n)
	defer srv.Close()

	cfg := config.GetPreset("twobody", "circular")
	cfg.MinorBodies = append(cfg.MinorBodies,
		config.MinorBody{Designator: "remote"},
		config.MinorBody{Designator: "ghost"},
	)
	cfg.Horizons = config.HorizonsConfig{
		Enabled:  true,
		URL:      srv.URL,
		Center:   config.DefaultCenter,
		Timeout:  5 * time.Second,
		Validate: true,
	}

	st := storage.New(t.TempDir())
	exp := New(cfg, WithStore(st))
	require.NoError(t, exp.Setup())
	res, err := exp.Run(context.Background())
	require.NoError(t, err)

	counts := res.Report.Counts()
	assert.Equal(t, 2, counts[dynamo.StatusCompleted])
	assert.Equal(t, 1, counts[dynamo.StatusUnresolved])

	require.Len(t, res.Residuals, 2)
	assert.Equal(t, "circular", res.Residuals[0].Designator)
	assert.Less(t, res.Residuals[0].Distance, 1e-6)
	assert.Equal(t, "remote", res.Residuals[1].Designator)
	assert.InDelta(t, 1e-3, res.Residuals[1].Distance, 1e-6)

	remote, ok := res.Run.Body("remote")
	require.True(t, ok)
	require.NotNil(t, remote.Residual)
	assert.InDelta(t, 1e-3, *remote.Residual, 1e-6)

	ghost, ok := res.Run.Body("ghost")
	require.True(t, ok)
	assert.Equal(t, "unresolved", ghost.Status)
	assert.Nil(t, ghost.Residual)
}

func TestCanceledRunStillSaved(t *testing.T) {
	st := storage.New(t.TempDir())
	exp := New(config.GetPreset("twobody", "eccentric"), WithStore(st))
	require.NoError(t, exp.Setup())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := exp.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.NotNil(t, res.Run)
	assert.Equal(t, 3, res.Run.Counts["canceled"])
}
