package viz

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/minorbit/internal/dynamo"
)

const (
	barWidth      = 40
	maxActive     = 6
	maxRecent     = 5
	updatesPerRun = 100
)

type StepMsg struct {
	Designator string
	Step       int
	Total      int
	Epoch      float64
}

type DoneMsg dynamo.Outcome

// FinishedMsg ends the view once the run has returned.
type FinishedMsg struct{ Err error }

// ProgressObserver forwards driver events to a running tea.Program. Step
// events are thinned to about a hundred per body.
type ProgressObserver struct {
	send  func(tea.Msg)
	every int
}

func NewProgressObserver(send func(tea.Msg), steps int) *ProgressObserver {
	every := steps / updatesPerRun
	if every < 1 {
		every = 1
	}
	return &ProgressObserver{send: send, every: every}
}

func (p *ProgressObserver) OnStep(designator string, step, total int, s dynamo.State) {
	if step%p.every == 0 || step == total {
		p.send(StepMsg{Designator: designator, Step: step, Total: total, Epoch: s.Epoch})
	}
}

func (p *ProgressObserver) OnDone(o dynamo.Outcome) {
	p.send(DoneMsg(o))
}

// Progress is the Bubble Tea model of a running propagation.
type Progress struct {
	styles    Styles
	bodies    int
	steps     int
	active    map[string]StepMsg
	counts    map[dynamo.Status]int
	done      int
	recent    []dynamo.Outcome
	cancel    func()
	canceling bool
	finished  bool
	err       error
}

// NewProgress follows bodies propagated over steps steps each. cancel is
// called when the user quits.
func NewProgress(theme Theme, bodies, steps int, cancel func()) Progress {
	return Progress{
		styles: NewStyles(theme),
		bodies: bodies,
		steps:  steps,
		active: make(map[string]StepMsg),
		counts: make(map[dynamo.Status]int),
		cancel: cancel,
	}
}

func (m Progress) Init() tea.Cmd { return nil }

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.canceling && m.cancel != nil {
				m.cancel()
			}
			m.canceling = true
		case "t":
			m.styles = NewStyles(NextTheme(m.styles.Theme))
		}
	case StepMsg:
		m.active[msg.Designator] = msg
	case DoneMsg:
		o := dynamo.Outcome(msg)
		delete(m.active, o.Designator)
		m.counts[o.Status]++
		m.done++
		m.recent = append(m.recent, o)
		if len(m.recent) > maxRecent {
			m.recent = m.recent[len(m.recent)-maxRecent:]
		}
	case FinishedMsg:
		m.finished = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// Fraction is the share of all planned steps already taken or settled.
func (m Progress) Fraction() float64 {
	if m.bodies == 0 || m.steps == 0 {
		return 0
	}
	taken := float64(m.done * m.steps)
	for _, a := range m.active {
		taken += float64(a.Step)
	}
	f := taken / float64(m.bodies*m.steps)
	if f > 1 {
		f = 1
	}
	return f
}

func (m Progress) Done() int { return m.done }

func (m Progress) View() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Title.Render("minorbit"))
	b.WriteString("\n")
	b.WriteString(bar(m.Fraction(), barWidth))
	fmt.Fprintf(&b, " %5.1f%%  %d/%d bodies\n\n", 100*m.Fraction(), m.done, m.bodies)

	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > maxActive {
		names = names[:maxActive]
	}
	for _, name := range names {
		a := m.active[name]
		b.WriteString(s.KeyValue(truncate(name, 13), fmt.Sprintf("step %d/%d  epoch %s", a.Step, a.Total, formatEpoch(a.Epoch))))
		b.WriteString("\n")
	}

	for _, o := range m.recent {
		line := fmt.Sprintf("%-14s %s", truncate(o.Designator, 13), o.Status)
		b.WriteString(s.Status(o.Status).Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(Summary(s, m.counts))
	b.WriteString("\n")

	switch {
	case m.finished && m.err != nil:
		b.WriteString(s.Status(dynamo.StatusDiverged).Render("run failed: " + m.err.Error()))
		b.WriteString("\n")
	case m.finished:
		b.WriteString(s.Subtle.Render("done"))
		b.WriteString("\n")
	case m.canceling:
		b.WriteString(s.Hint.Render("canceling..."))
		b.WriteString("\n")
	default:
		b.WriteString(s.Hint.Render("q: cancel  t: theme"))
		b.WriteString("\n")
	}
	return b.String()
}

func bar(f float64, width int) string {
	n := int(f * float64(width))
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat(".", width-n) + "]"
}
