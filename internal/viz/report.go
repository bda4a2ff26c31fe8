package viz

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/horizons"
	"github.com/san-kum/minorbit/internal/sim"
	"github.com/san-kum/minorbit/internal/storage"
)

const maxReasonWidth = 60

var statusOrder = []dynamo.Status{
	dynamo.StatusCompleted,
	dynamo.StatusDiverged,
	dynamo.StatusEphemerisGap,
	dynamo.StatusUnresolved,
	dynamo.StatusCanceled,
}

func newTable(s Styles, statuses []dynamo.Status, statusCol int) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.Header
			}
			if col == statusCol && row >= 0 && row < len(statuses) {
				return s.Status(statuses[row]).Padding(0, 1)
			}
			return s.Cell
		})
}

// RenderReport renders one row per body followed by a status summary.
func RenderReport(s Styles, rep *sim.Report, residuals []horizons.Residual) string {
	byBody := make(map[string]horizons.Residual, len(residuals))
	for _, r := range residuals {
		byBody[r.Designator] = r
	}

	statuses := make([]dynamo.Status, len(rep.Outcomes))
	rows := make([][]string, len(rep.Outcomes))
	for i, o := range rep.Outcomes {
		statuses[i] = o.Status
		rows[i] = []string{
			o.Designator,
			o.Status.String(),
			strconv.Itoa(o.Steps),
			formatEpoch(o.LastEpoch),
			formatResidual(byBody[o.Designator]),
			truncate(o.Reason(), maxReasonWidth),
		}
	}

	t := newTable(s, statuses, 1).
		Headers("BODY", "STATUS", "STEPS", "LAST EPOCH", "RESIDUAL AU", "REASON").
		Rows(rows...)

	var b strings.Builder
	b.WriteString(s.Title.Render(fmt.Sprintf("%s  %s -> %s  dt %g",
		rep.Integrator, formatEpoch(rep.Window.T0), formatEpoch(rep.Window.TF), rep.Window.DT)))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(Summary(s, rep.Counts()))
	b.WriteString(s.Subtle.Render(fmt.Sprintf("  %d steps in %s", rep.TotalSteps(), rep.Elapsed.Round(time.Millisecond))))
	b.WriteString("\n")
	return b.String()
}

// Summary renders the non-zero status counts on one line.
func Summary(s Styles, counts map[dynamo.Status]int) string {
	parts := make([]string, 0, len(statusOrder))
	for _, st := range statusOrder {
		if n := counts[st]; n > 0 {
			parts = append(parts, s.Status(st).Render(fmt.Sprintf("%s %d", st, n)))
		}
	}
	if len(parts) == 0 {
		return s.Subtle.Render("no bodies")
	}
	return strings.Join(parts, s.Subtle.Render(" | "))
}

// RenderRuns lists stored runs.
func RenderRuns(s Styles, runs []storage.RunMetadata) string {
	if len(runs) == 0 {
		return s.Subtle.Render("no runs found") + "\n"
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.ID,
			strconv.Itoa(len(r.Bodies)),
			strconv.Itoa(r.Counts[dynamo.StatusCompleted.String()]),
			r.Integrator,
			fmt.Sprintf("%s -> %s", formatEpoch(r.Window.T0), formatEpoch(r.Window.TF)),
			r.Timestamp.Format("2006-01-02 15:04:05"),
		}
	}
	t := newTable(s, nil, -1).
		Headers("ID", "BODIES", "COMPLETED", "INTEGRATOR", "WINDOW", "CREATED").
		Rows(rows...)
	return t.Render() + "\n"
}

// RenderRun shows a stored run with its per-body records.
func RenderRun(s Styles, meta *storage.RunMetadata) string {
	var b strings.Builder
	b.WriteString(s.Title.Render(meta.ID))
	b.WriteString("\n")
	lines := []string{
		s.KeyValue("name", meta.Name),
		s.KeyValue("created", meta.Timestamp.Format("2006-01-02 15:04:05")),
		s.KeyValue("window", fmt.Sprintf("%s -> %s", formatEpoch(meta.Window.T0), formatEpoch(meta.Window.TF))),
		s.KeyValue("step", fmt.Sprintf("%g d", meta.Window.DT)),
		s.KeyValue("integrator", meta.Integrator),
		s.KeyValue("ephemeris", meta.Ephemeris),
		s.KeyValue("central", meta.Central),
		s.KeyValue("perturbers", strings.Join(meta.Perturbers, ", ")),
		s.KeyValue("indirect", strconv.FormatBool(meta.Indirect)),
		s.KeyValue("elapsed", fmt.Sprintf("%.3fs", meta.Elapsed)),
	}
	b.WriteString(s.Panel.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	bodies := append([]storage.BodyRecord(nil), meta.Bodies...)
	sort.Slice(bodies, func(i, j int) bool { return bodies[i].Designator < bodies[j].Designator })
	statuses := make([]dynamo.Status, len(bodies))
	rows := make([][]string, len(bodies))
	counts := make(map[dynamo.Status]int)
	for i, r := range bodies {
		statuses[i] = ParseStatus(r.Status)
		counts[statuses[i]]++
		drift, ecc := "-", "-"
		if r.Invariants != nil {
			drift = fmt.Sprintf("%.2e", r.Invariants.EnergyDrift)
			ecc = fmt.Sprintf("%.4f", r.Invariants.Eccentricity)
		}
		res := "-"
		if r.Residual != nil {
			res = fmt.Sprintf("%.3e", *r.Residual)
		}
		rows[i] = []string{
			r.Designator, r.Status, strconv.Itoa(r.Steps), formatEpoch(r.LastEpoch),
			ecc, drift, res, truncate(r.Reason, maxReasonWidth),
		}
	}
	t := newTable(s, statuses, 1).
		Headers("BODY", "STATUS", "STEPS", "LAST EPOCH", "ECC", "ENERGY DRIFT", "RESIDUAL AU", "REASON").
		Rows(rows...)
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(Summary(s, counts))
	b.WriteString("\n")
	return b.String()
}

func formatEpoch(jd float64) string {
	return strconv.FormatFloat(jd, 'f', 4, 64)
}

func formatResidual(r horizons.Residual) string {
	switch {
	case r.Designator == "":
		return "-"
	case r.Err != nil:
		return "error"
	default:
		return fmt.Sprintf("%.3e", r.Distance)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// RenderTable renders plain rows under headers.
func RenderTable(s Styles, headers []string, rows [][]string) string {
	return newTable(s, nil, -1).Headers(headers...).Rows(rows...).Render() + "\n"
}
