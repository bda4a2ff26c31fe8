package viz

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/horizons"
	"github.com/san-kum/minorbit/internal/metrics"
	"github.com/san-kum/minorbit/internal/sim"
	"github.com/san-kum/minorbit/internal/storage"
)

func circle(n int) []dynamo.State {
	out := make([]dynamo.State, n)
	for i := range out {
		th := 2 * math.Pi * float64(i) / float64(n-1)
		out[i] = dynamo.State{
			Epoch: float64(i),
			R:     dynamo.Vec(math.Cos(th), math.Sin(th), 0),
			V:     dynamo.Vec(-math.Sin(th), math.Cos(th), 0),
		}
	}
	return out
}

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)

	if !c.IsSet(0, 0) || !c.IsSet(3, 3) {
		t.Fatal("expected dots to be set")
	}
	if c.IsSet(1, 0) {
		t.Error("unexpected dot at (1, 0)")
	}
	if got, want := c.String(), "\u2801\u2880\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.DrawLine(0, 0, 7, 7)
	for i := 0; i < 8; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("diagonal dot %d not set", i)
		}
	}
	c.Clear()
	if c.IsSet(0, 0) {
		t.Error("clear left dots behind")
	}
}

func TestOrbitView(t *testing.T) {
	traj := circle(200)
	r := FitRadius(traj)
	if math.Abs(r-1) > 1e-12 {
		t.Fatalf("fit radius %v", r)
	}

	v := NewOrbitView(20, 10, r)
	v.Trace(traj)
	c := v.Canvas()

	// origin marker and the four extremes of the unit circle
	if !c.IsSet(20, 20) {
		t.Error("origin not marked")
	}
	for _, p := range [][2]float64{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		x, y := v.dot(p[0], p[1])
		if !c.IsSet(x, y) {
			t.Errorf("point %v not drawn at (%d, %d)", p, x, y)
		}
	}
	if lines := strings.Count(v.String(), "\n"); lines != 10 {
		t.Errorf("expected 10 rows, got %d", lines)
	}
}

func TestSeriesOf(t *testing.T) {
	traj := circle(10)
	d, ok := SeriesOf(QuantityDistance, 1, traj)
	if !ok || len(d) != 10 || math.Abs(d[5]-1) > 1e-12 {
		t.Errorf("distance series: %v %v", ok, d)
	}
	e, ok := SeriesOf(QuantityEnergy, 1, traj)
	if !ok || math.Abs(e[7]) > 1e-12 {
		t.Errorf("energy drift series: %v %v", ok, e)
	}
	if _, ok := SeriesOf(QuantityEnergy, 0, traj); ok {
		t.Error("energy needs a positive mu")
	}
	if _, ok := SeriesOf("speed", 1, traj); ok {
		t.Error("unknown quantity accepted")
	}
	if _, ok := SeriesOf(QuantityX, 1, nil); ok {
		t.Error("empty trajectory accepted")
	}
}

func TestDownsample(t *testing.T) {
	in := []float64{1, 3, 5, 7, 9, 11}
	got := Downsample(in, 3)
	want := []float64{2, 6, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if len(Downsample(in, 10)) != len(in) {
		t.Error("short series should be unchanged")
	}
}

func TestPlot(t *testing.T) {
	x, _ := SeriesOf(QuantityX, 1, circle(500))
	out := Plot("x [AU]", 60, 8, x)
	if !strings.Contains(out, "x [AU]") {
		t.Errorf("caption missing:\n%s", out)
	}
	if strings.Count(out, "\n") < 8 {
		t.Errorf("plot too short:\n%s", out)
	}

	if out := Plot("empty", 0, 0, []float64{math.NaN()}); !strings.Contains(out, "no data") {
		t.Errorf("expected no data, got %q", out)
	}

	y, _ := SeriesOf(QuantityY, 1, circle(500))
	if out := Plot("xy", 40, 6, x, y); !strings.Contains(out, "xy") {
		t.Errorf("multi-series caption missing:\n%s", out)
	}
}

func testReport() *sim.Report {
	return &sim.Report{
		Window:     dynamo.Window{T0: 2451545, TF: 2451910, DT: 1},
		Integrator: "yoshida8",
		Bodies:     []dynamo.MinorBody{{Designator: "1 Ceres"}, {Designator: "ghost"}},
		Outcomes: []dynamo.Outcome{
			{Designator: "1 Ceres", Status: dynamo.StatusCompleted, Steps: 365, LastEpoch: 2451910},
			{Designator: "ghost", Status: dynamo.StatusUnresolved, Err: errors.New(strings.Repeat("no such body ", 10))},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func TestRenderReport(t *testing.T) {
	out := RenderReport(NewStyles(ThemeMono), testReport(), []horizons.Residual{
		{Designator: "1 Ceres", Distance: 1.25e-7},
	})
	for _, want := range []string{"yoshida8", "1 Ceres", "completed", "unresolved", "365", "1.250e-07", "2451910.0000", "...", "365 steps"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderRuns(t *testing.T) {
	s := NewStyles(ThemeNight)
	if out := RenderRuns(s, nil); !strings.Contains(out, "no runs") {
		t.Errorf("got %q", out)
	}

	drift := 3e-13
	res := 4e-8
	meta := storage.RunMetadata{
		ID:         "belt_1704067200",
		Name:       "belt",
		Integrator: "yoshida8",
		Window:     storage.WindowInfo{T0: 2451545, TF: 2451910, DT: 1},
		Perturbers: []string{"jupiter", "saturn"},
		Counts:     map[string]int{"completed": 1, "diverged": 1},
		Bodies: []storage.BodyRecord{
			{Designator: "b", Status: "diverged", Reason: "boom"},
			{Designator: "a", Status: "completed", Steps: 365, Residual: &res,
				Invariants: &metrics.Invariants{EnergyDrift: drift, Eccentricity: 0.0785}},
		},
	}

	list := RenderRuns(s, []storage.RunMetadata{meta})
	for _, want := range []string{"belt_1704067200", "yoshida8", "2451545.0000"} {
		if !strings.Contains(list, want) {
			t.Errorf("list missing %q:\n%s", want, list)
		}
	}

	show := RenderRun(s, &meta)
	for _, want := range []string{"jupiter, saturn", "3.00e-13", "0.0785", "4.000e-08", "boom", "diverged 1"} {
		if !strings.Contains(show, want) {
			t.Errorf("show missing %q:\n%s", want, show)
		}
	}
	if strings.Index(show, " a ") > strings.Index(show, " b ") {
		t.Error("bodies should be sorted by designator")
	}
}

func TestThemes(t *testing.T) {
	if GetTheme("solar").Name != "solar" || GetTheme("nope").Name != Themes[0].Name {
		t.Error("theme lookup")
	}
	seen := map[string]bool{}
	th := Themes[0]
	for range Themes {
		seen[th.Name] = true
		th = NextTheme(th)
	}
	if len(seen) != len(Themes) || th.Name != Themes[0].Name {
		t.Error("NextTheme should cycle through every theme")
	}
	for s := dynamo.StatusCompleted; s <= dynamo.StatusCanceled; s++ {
		if ParseStatus(s.String()) != s {
			t.Errorf("ParseStatus(%q)", s.String())
		}
	}
}

func TestProgressModel(t *testing.T) {
	canceled := 0
	var m tea.Model = NewProgress(ThemeMono, 2, 100, func() { canceled++ })

	m, _ = m.Update(StepMsg{Designator: "a", Step: 50, Total: 100, Epoch: 50})
	m, _ = m.Update(StepMsg{Designator: "b", Step: 25, Total: 100, Epoch: 25})
	p := m.(Progress)
	if got := p.Fraction(); math.Abs(got-0.375) > 1e-12 {
		t.Errorf("fraction %v, want 0.375", got)
	}
	if !strings.Contains(p.View(), "step 50/100") {
		t.Errorf("view missing active body:\n%s", p.View())
	}

	m, _ = m.Update(DoneMsg(dynamo.Outcome{Designator: "a", Status: dynamo.StatusCompleted, Steps: 100}))
	p = m.(Progress)
	if p.Done() != 1 || math.Abs(p.Fraction()-0.625) > 1e-12 {
		t.Errorf("after done: %d %v", p.Done(), p.Fraction())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if canceled != 1 {
		t.Errorf("cancel called %d times", canceled)
	}
	if !strings.Contains(m.View(), "canceling") {
		t.Errorf("view should show canceling:\n%s", m.View())
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	if m.(Progress).styles.Theme.Name == ThemeMono.Name {
		t.Error("theme did not change")
	}

	_, cmd := m.Update(FinishedMsg{})
	if cmd == nil {
		t.Fatal("finished should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
}

func TestProgressObserver(t *testing.T) {
	var msgs []tea.Msg
	obs := NewProgressObserver(func(m tea.Msg) { msgs = append(msgs, m) }, 1000)
	for i := 1; i <= 1000; i++ {
		obs.OnStep("a", i, 1000, dynamo.State{Epoch: float64(i)})
	}
	obs.OnDone(dynamo.Outcome{Designator: "a"})

	if len(msgs) != 101 {
		t.Fatalf("expected 100 steps and 1 done, got %d", len(msgs))
	}
	if last, ok := msgs[99].(StepMsg); !ok || last.Step != 1000 {
		t.Errorf("last step message %+v", msgs[99])
	}
	if _, ok := msgs[100].(DoneMsg); !ok {
		t.Error("done message missing")
	}
}
