package viz

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Theme  Theme
	Title  lipgloss.Style
	Header lipgloss.Style
	Cell   lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Subtle lipgloss.Style
	Border lipgloss.Style
	Hint   lipgloss.Style
	Panel  lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Theme: t,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			MarginBottom(1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			Padding(0, 1),
		Cell: lipgloss.NewStyle().
			Foreground(t.Text).
			Padding(0, 1),
		Label: lipgloss.NewStyle().
			Foreground(t.Muted).
			Width(14),
		Value: lipgloss.NewStyle().
			Foreground(t.Text).
			Bold(true),
		Subtle: lipgloss.NewStyle().
			Foreground(t.Muted),
		Border: lipgloss.NewStyle().
			Foreground(t.Muted),
		Hint: lipgloss.NewStyle().
			Foreground(t.Muted).
			Italic(true).
			MarginTop(1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(1, 2),
	}
}

func (s Styles) Status(st dynamo.Status) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Theme.StatusColor(st)).Bold(st != dynamo.StatusCompleted)
}

// KeyValue renders one aligned "label value" line.
func (s Styles) KeyValue(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.Label.Render(label), s.Value.Render(value))
}
