package viz

import "github.com/charmbracelet/lipgloss"

// Theme defines the colour scheme of the terminal surface.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Border    lipgloss.Color
	Baseline  lipgloss.Color
	Highlight lipgloss.Color
	// Points is the colour of data points.
	Points lipgloss.Color
}

var (
	ThemePaper = Theme{
		Name:      "paper",
		Primary:   lipgloss.Color("#f5f5f4"),
		Accent:    lipgloss.Color("#C5A059"), // gold
		Text:      lipgloss.Color("#e7e5e4"),
		Muted:     lipgloss.Color("#78716c"),
		Border:    lipgloss.Color("#44403c"),
		Baseline:  lipgloss.Color("#57534e"),
		Highlight: lipgloss.Color("#E5C885"),
		Points:    lipgloss.Color("#d6d3d1"),
	}

	ThemeNight = Theme{
		Name:      "night",
		Primary:   lipgloss.Color("#00ffff"),
		Accent:    lipgloss.Color("#ff00ff"),
		Text:      lipgloss.Color("#ffffff"),
		Muted:     lipgloss.Color("#666688"),
		Border:    lipgloss.Color("#444466"),
		Baseline:  lipgloss.Color("#555577"),
		Highlight: lipgloss.Color("#ff88ff"),
		Points:    lipgloss.Color("#ccccdd"),
	}

	ThemeMono = Theme{
		Name:      "mono",
		Primary:   lipgloss.Color("#ffffff"),
		Accent:    lipgloss.Color("#ffffff"),
		Text:      lipgloss.Color("#dddddd"),
		Muted:     lipgloss.Color("#888888"),
		Border:    lipgloss.Color("#555555"),
		Baseline:  lipgloss.Color("#777777"),
		Highlight: lipgloss.Color("#ffffff"),
		Points:    lipgloss.Color("#bbbbbb"),
	}

	Themes = []Theme{ThemePaper, ThemeNight, ThemeMono}
)

// GetTheme returns a theme by name, falling back to paper.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemePaper
}

// NextTheme returns the theme after name, wrapping.
func NextTheme(name string) Theme {
	for i, t := range Themes {
		if t.Name == name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return ThemePaper
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
