package viz

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Theme is the color scheme of tables, plots and the progress view.
type Theme struct {
	Name       string
	Primary    lipgloss.Color
	Muted      lipgloss.Color
	Text       lipgloss.Color
	Completed  lipgloss.Color
	Diverged   lipgloss.Color
	Gap        lipgloss.Color
	Unresolved lipgloss.Color
	Canceled   lipgloss.Color
}

var (
	ThemeNight = Theme{
		Name:       "night",
		Primary:    lipgloss.Color("#00ccff"),
		Muted:      lipgloss.Color("#666688"),
		Text:       lipgloss.Color("#dddddd"),
		Completed:  lipgloss.Color("#00ff88"),
		Diverged:   lipgloss.Color("#ff4444"),
		Gap:        lipgloss.Color("#ffaa00"),
		Unresolved: lipgloss.Color("#cc66ff"),
		Canceled:   lipgloss.Color("#888899"),
	}

	ThemeSolar = Theme{
		Name:       "solar",
		Primary:    lipgloss.Color("#b58900"),
		Muted:      lipgloss.Color("#586e75"),
		Text:       lipgloss.Color("#eee8d5"),
		Completed:  lipgloss.Color("#859900"),
		Diverged:   lipgloss.Color("#dc322f"),
		Gap:        lipgloss.Color("#cb4b16"),
		Unresolved: lipgloss.Color("#6c71c4"),
		Canceled:   lipgloss.Color("#93a1a1"),
	}

	ThemeMono = Theme{
		Name:       "mono",
		Primary:    lipgloss.Color("15"),
		Muted:      lipgloss.Color("245"),
		Text:       lipgloss.Color("252"),
		Completed:  lipgloss.Color("252"),
		Diverged:   lipgloss.Color("15"),
		Gap:        lipgloss.Color("15"),
		Unresolved: lipgloss.Color("245"),
		Canceled:   lipgloss.Color("240"),
	}
)

var Themes = []Theme{ThemeNight, ThemeSolar, ThemeMono}

// GetTheme returns the named theme, or the first one for an unknown name.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme cycles through Themes.
func NextTheme(current Theme) Theme {
	for i, t := range Themes {
		if t.Name == current.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func (t Theme) StatusColor(s dynamo.Status) lipgloss.Color {
	switch s {
	case dynamo.StatusCompleted:
		return t.Completed
	case dynamo.StatusDiverged:
		return t.Diverged
	case dynamo.StatusEphemerisGap:
		return t.Gap
	case dynamo.StatusUnresolved:
		return t.Unresolved
	case dynamo.StatusCanceled:
		return t.Canceled
	default:
		return t.Text
	}
}

// ParseStatus maps a stored status name back to its value.
func ParseStatus(name string) dynamo.Status {
	for s := dynamo.StatusRunning; s <= dynamo.StatusCanceled; s++ {
		if s.String() == name {
			return s
		}
	}
	return dynamo.StatusRunning
}
