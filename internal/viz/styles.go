package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/dcmsim/internal/metrics"
)

// Styles is the set of lipgloss styles derived from one theme.
type Styles struct {
	Panel    lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Subtle   lipgloss.Style
	KeyHint  lipgloss.Style
	Active   lipgloss.Style
	Pending  lipgloss.Style
	Done     lipgloss.Style
	Banner   lipgloss.Style
	Paused   lipgloss.Style
	Running  lipgloss.Style
	theme    Theme
	palettes map[string]lipgloss.Style
}

func NewStyles(t Theme) *Styles {
	return &Styles{
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		Label:   lipgloss.NewStyle().Foreground(t.Muted),
		Value:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Subtle:  lipgloss.NewStyle().Foreground(t.Muted),
		KeyHint: lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Active: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Accent).
			PaddingLeft(1),
		Pending: lipgloss.NewStyle().Foreground(t.Muted).PaddingLeft(2),
		Done:    lipgloss.NewStyle().Foreground(t.Baseline).PaddingLeft(2),
		Banner: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1c1917")).
			Background(t.Highlight).
			Padding(0, 1),
		Paused:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f59e0b")),
		Running:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10b981")),
		theme:    t,
		palettes: map[string]lipgloss.Style{},
	}
}

// Color returns the foreground style for a canvas colour token: a cluster
// palette hex value or the points colour.
func (s *Styles) Color(token string) lipgloss.Style {
	if st, ok := s.palettes[token]; ok {
		return st
	}
	st := lipgloss.NewStyle().Foreground(lipgloss.Color(token))
	s.palettes[token] = st
	return st
}

// GradientText colours each rune of text along a linear gradient.
func GradientText(text string, startColor, endColor lipgloss.Color) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	sr, sg, sb := parseHex(string(startColor))
	er, eg, eb := parseHex(string(endColor))

	var result strings.Builder
	for i, c := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		r := sr + int(t*float64(er-sr))
		g := sg + int(t*float64(eg-sg))
		b := sb + int(t*float64(eb-sb))
		result.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor(r, g, b))).Render(string(c)))
	}
	return result.String()
}

// ProgressBar renders a horizontal fill bar for a fraction in [0, 1].
func (s *Styles) ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	return s.Color(string(s.theme.Accent)).Render(strings.Repeat("█", filled)) +
		s.Subtle.Render(strings.Repeat("░", width-filled))
}

// SparklineChart renders the most recent width values as a sparkline.
func (s *Styles) SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return s.Subtle.Render(strings.Repeat("─", width))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(chars)-1))
		b.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return s.Color(string(s.theme.Points)).Render(b.String())
}

// BarChart draws a series as vertical bars height rows tall. Each bar is
// colWidth cells wide with a one-cell gutter; the reference bar is drawn in
// the accent colour.
func (s *Styles) BarChart(series *metrics.Series, height, colWidth int) string {
	if series == nil || len(series.Bars) == 0 || height <= 0 {
		return ""
	}
	rows := make([]string, 0, height+2)

	values := make([]string, len(series.Bars))
	for i, bar := range series.Bars {
		values[i] = center(strconv.FormatFloat(bar.Raw, 'f', 2, 64), colWidth)
	}
	rows = append(rows, s.Label.Render(strings.Join(values, " ")))

	// Eighth-block partials keep short bars visible.
	partial := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇'}
	for r := height - 1; r >= 0; r-- {
		cells := make([]string, len(series.Bars))
		for i, bar := range series.Bars {
			eighths := int(bar.Fraction*float64(height)*8 + 0.5)
			var cell string
			switch {
			case eighths >= (r+1)*8:
				cell = strings.Repeat("█", colWidth)
			case eighths > r*8:
				cell = strings.Repeat(string(partial[eighths-r*8]), colWidth)
			default:
				cell = strings.Repeat(" ", colWidth)
			}
			st := s.Color(string(s.theme.Baseline))
			if bar.Reference {
				st = s.Color(string(s.theme.Accent))
			}
			cells[i] = st.Render(cell)
		}
		rows = append(rows, strings.Join(cells, " "))
	}

	labels := make([]string, len(series.Bars))
	for i, bar := range series.Bars {
		st := s.Label
		if bar.Reference {
			st = s.Title
		}
		labels[i] = st.Render(center(bar.Label, colWidth))
	}
	rows = append(rows, strings.Join(labels, " "))
	return strings.Join(rows, "\n")
}

// Separator renders a decorated horizontal rule.
func (s *Styles) Separator(width int) string {
	if width < 8 {
		return s.Subtle.Render(strings.Repeat("─", max(width, 0)))
	}
	mid := width / 2
	return s.Subtle.Render(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}

func center(text string, width int) string {
	r := []rune(text)
	if len(r) >= width {
		return string(r[:width])
	}
	left := (width - len(r)) / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", width-len(r)-left)
}

func parseHex(hex string) (r, g, b int) {
	if len(hex) != 7 || hex[0] != '#' {
		return 255, 255, 255
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 255, 255, 255
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

func hexColor(r, g, b int) string {
	clamp := func(v int) int { return max(0, min(v, 255)) }
	return fmt.Sprintf("#%02x%02x%02x", clamp(r), clamp(g), clamp(b))
}
