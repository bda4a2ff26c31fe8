package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/metrics"
)

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(t.TempDir())
	s.now = func() time.Time { return fixedNow }
	return s
}

// circle returns n states of a unit circular orbit with mu = 1.
func circle(n int) []dynamo.State {
	out := make([]dynamo.State, n)
	for i := range out {
		th := 0.1 * float64(i)
		out[i] = dynamo.State{
			Epoch: 2451545.0 + 0.1*float64(i),
			R:     dynamo.Vec(math.Cos(th), math.Sin(th), 0),
			V:     dynamo.Vec(-math.Sin(th), math.Cos(th), 0),
		}
	}
	return out
}

func testMeta() RunMetadata {
	return RunMetadata{
		Name:       "main belt",
		Window:     WindowInfo{T0: 2451545.0, TF: 2451545.5, DT: 0.1},
		Integrator: "yoshida8",
		Ephemeris:  "kepler",
		Central:    "sun",
		Perturbers: []string{"jupiter", "saturn"},
		Indirect:   true,
		Workers:    4,
	}
}

func TestRunRoundTrip(t *testing.T) {
	st := newTestStore(t)
	run, err := st.Begin(testMeta(), 1)
	require.NoError(t, err)
	assert.Equal(t, "main_belt_1704067200", run.ID())

	traj := circle(6)
	traj[3].R.X = 1.0 / 3.0
	body := &dynamo.MinorBody{Designator: "2017 BX232", Trajectory: traj}
	require.NoError(t, run.Record(body, dynamo.Outcome{
		Designator: body.Designator,
		Status:     dynamo.StatusCompleted,
		Steps:      5,
		FirstEpoch: traj[0].Epoch,
		LastEpoch:  traj[5].Epoch,
	}))
	require.NoError(t, run.Record(&dynamo.MinorBody{Designator: "ghost"}, dynamo.Outcome{
		Designator: "ghost",
		Status:     dynamo.StatusUnresolved,
		Err:        dynamo.ErrUnknownBody,
	}))
	run.SetResidual("2017 BX232", 2.5e-7)

	meta, err := run.Finish(1500*time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"completed": 1, "unresolved": 1}, meta.Counts)
	assert.Equal(t, 1.5, meta.Elapsed)

	loaded, err := st.Load(run.ID())
	require.NoError(t, err)
	assert.Equal(t, "main belt", loaded.Name)
	assert.Equal(t, []string{"jupiter", "saturn"}, loaded.Perturbers)
	require.Len(t, loaded.Bodies, 2)

	b, ok := loaded.Body("2017 BX232")
	require.True(t, ok)
	assert.Equal(t, filepath.Join("trajectories", "2017_BX232.csv"), b.File)
	assert.Equal(t, "completed", b.Status)
	require.NotNil(t, b.Residual)
	assert.Equal(t, 2.5e-7, *b.Residual)
	require.NotNil(t, b.Invariants)
	assert.Equal(t, 6, b.Invariants.Samples)

	ghost, ok := loaded.Body("ghost")
	require.True(t, ok)
	assert.Empty(t, ghost.File)
	assert.Equal(t, dynamo.ErrUnknownBody.Error(), ghost.Reason)
	assert.Nil(t, ghost.Invariants)

	got, err := st.LoadTrajectory(run.ID(), "2017 BX232")
	require.NoError(t, err)
	assert.Equal(t, traj, got)

	empty, err := st.LoadTrajectory(run.ID(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRecordTwice(t *testing.T) {
	run, err := newTestStore(t).Begin(testMeta(), 0)
	require.NoError(t, err)

	body := &dynamo.MinorBody{Designator: "a", Trajectory: circle(2)}
	o := dynamo.Outcome{Designator: "a", Status: dynamo.StatusCompleted}
	require.NoError(t, run.Record(body, o))
	assert.Error(t, run.Record(body, o))
}

func TestFileNameCollisions(t *testing.T) {
	st := newTestStore(t)
	run, err := st.Begin(testMeta(), 0)
	require.NoError(t, err)

	for _, des := range []string{"a b", "a/b", "a_b"} {
		require.NoError(t, run.Record(
			&dynamo.MinorBody{Designator: des, Trajectory: circle(2)},
			dynamo.Outcome{Designator: des, Status: dynamo.StatusCompleted},
		))
	}
	meta, err := run.Finish(0, nil)
	require.NoError(t, err)

	files := map[string]bool{}
	for _, b := range meta.Bodies {
		files[b.File] = true
		_, err := os.Stat(filepath.Join(run.Dir(), b.File))
		assert.NoError(t, err, b.Designator)
	}
	assert.Len(t, files, 3)
}

func TestConcurrentRecord(t *testing.T) {
	run, err := newTestStore(t).Begin(testMeta(), 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			des := string(rune('A'+i%26)) + strings.Repeat("x", i/26)
			assert.NoError(t, run.Record(
				&dynamo.MinorBody{Designator: des, Trajectory: circle(4)},
				dynamo.Outcome{Designator: des, Status: dynamo.StatusCompleted, Steps: 3},
			))
		}(i)
	}
	wg.Wait()

	meta, err := run.Finish(0, nil)
	require.NoError(t, err)
	assert.Len(t, meta.Bodies, 32)
	assert.Equal(t, 32, meta.Counts["completed"])
}

func TestListAndIDs(t *testing.T) {
	st := newTestStore(t)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	first, err := st.Begin(testMeta(), 0)
	require.NoError(t, err)
	_, err = first.Finish(0, nil)
	require.NoError(t, err)

	st.now = func() time.Time { return fixedNow.Add(-time.Hour) }
	second, err := st.Begin(testMeta(), 0)
	require.NoError(t, err)
	_, err = second.Finish(0, nil)
	require.NoError(t, err)

	st.now = func() time.Time { return fixedNow }
	third, err := st.Begin(testMeta(), 0)
	require.NoError(t, err)
	assert.Equal(t, first.ID()+"-2", third.ID())

	// unfinished runs have no metadata and are not listed
	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID(), runs[0].ID)
	assert.Equal(t, first.ID(), runs[1].ID)
}

func TestLoadMissing(t *testing.T) {
	st := newTestStore(t)
	_, err := st.Load("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)

	run, err := st.Begin(testMeta(), 0)
	require.NoError(t, err)
	_, err = run.Finish(0, nil)
	require.NoError(t, err)
	_, err = st.LoadTrajectory(run.ID(), "nobody")
	assert.ErrorIs(t, err, ErrBodyNotFound)
}

func TestMetricsTextfile(t *testing.T) {
	st := newTestStore(t)
	run, err := st.Begin(testMeta(), 0)
	require.NoError(t, err)

	c := metrics.NewCollector()
	o := dynamo.Outcome{Designator: "a", Status: dynamo.StatusDiverged, Steps: 7}
	c.OnDone(o)
	require.NoError(t, run.Record(&dynamo.MinorBody{Designator: "a", Trajectory: circle(8)}, o))
	_, err = run.Finish(0, c)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(run.Dir(), "metrics.prom"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `minorbit_bodies_total{status="diverged"} 1`)
}

func TestTrajectoryCSV(t *testing.T) {
	traj := circle(3)
	var buf bytes.Buffer
	require.NoError(t, WriteTrajectory(&buf, traj))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "epoch,x,y,z,vx,vy,vz", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2.451545e+06,1,0,0,-0,1,0"), lines[1])

	got, err := ReadTrajectory(&buf)
	require.NoError(t, err)
	assert.Equal(t, traj, got)

	_, err = ReadTrajectory(strings.NewReader("epoch,x,y,z,vx,vy,vz\n1,2,3\n"))
	assert.Error(t, err)
	_, err = ReadTrajectory(strings.NewReader("epoch,x,y,z,vx,vy,vz\n1,2,3,4,5,6,abc\n"))
	assert.Error(t, err)
}

func TestExportJSON(t *testing.T) {
	st := newTestStore(t)
	run, err := st.Begin(testMeta(), 1)
	require.NoError(t, err)
	traj := circle(3)
	require.NoError(t, run.Record(
		&dynamo.MinorBody{Designator: "a", Trajectory: traj},
		dynamo.Outcome{Designator: "a", Status: dynamo.StatusCompleted, Steps: 2},
	))
	_, err = run.Finish(0, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(&buf, run.ID()))

	var data ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Equal(t, run.ID(), data.ID)
	assert.Equal(t, "yoshida8", data.Integrator)
	require.Len(t, data.Bodies, 1)
	require.Len(t, data.Bodies[0].Trajectory, 3)
	assert.Equal(t, traj[2].Epoch, data.Bodies[0].Trajectory[2][0])
	assert.Equal(t, traj[2].V.X, data.Bodies[0].Trajectory[2][4])

	buf.Reset()
	require.NoError(t, st.ExportCSV(&buf, run.ID(), "a"))
	assert.True(t, strings.HasPrefix(buf.String(), "epoch,x,y,z,vx,vy,vz\n"))

	assert.ErrorIs(t, st.ExportJSON(&buf, "missing"), ErrRunNotFound)
}
