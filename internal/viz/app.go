package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dcmsim/internal/cluster"
	"github.com/san-kum/dcmsim/internal/sim"
	"github.com/san-kum/dcmsim/internal/stage"
)

const (
	canvasWidth     = 40
	canvasHeight    = 20
	haloRadius      = 16.0
	historyCapacity = 120
	barHeight       = 8
	barWidth        = 8
)

type FrameMsg time.Time

// Model renders the engine's published snapshots. It never mutates entity or
// stage state; the only engine calls it makes are dataset selection and
// Start/Stop for pausing.
type Model struct {
	eng      *sim.Engine
	fps      int
	theme    Theme
	styles   *Styles
	canvas   *Canvas
	paused   bool
	showHelp bool

	lastTick    uint64
	pointHist   []float64
	clusterHist []float64
	width       int
	height      int
}

func NewModel(eng *sim.Engine, theme string, fps int) Model {
	if fps <= 0 {
		fps = 30
	}
	t := GetTheme(theme)
	return Model{
		eng:         eng,
		fps:         fps,
		theme:       t,
		styles:      NewStyles(t),
		canvas:      NewCanvas(canvasWidth, canvasHeight),
		pointHist:   make([]float64, 0, historyCapacity),
		clusterHist: make([]float64, 0, historyCapacity),
	}
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return FrameMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.frame() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.togglePause()
		case "m":
			_, _ = m.eng.SelectDataset("mnist")
		case "c":
			_, _ = m.eng.SelectDataset("cifar10")
		case "tab":
			m.eng.NextDataset()
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.styles = NewStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case FrameMsg:
		m.record(m.eng.Entities())
		return m, m.frame()
	}
	return m, nil
}

func (m *Model) togglePause() {
	if m.paused {
		m.eng.Start()
	} else {
		m.eng.Stop()
	}
	m.paused = !m.paused
}

// record appends to the history once per applied tick, so a frame rate above
// the tick rate does not stretch the graphs.
func (m *Model) record(snap *cluster.Snapshot) {
	if snap == nil || !snap.Applied || (uint64(snap.Tick) == m.lastTick && len(m.pointHist) > 0) {
		return
	}
	m.lastTick = uint64(snap.Tick)
	m.pointHist = appendBounded(m.pointHist, float64(len(snap.Points)))
	m.clusterHist = appendBounded(m.clusterHist, float64(len(snap.Clusters)))
}

func appendBounded(h []float64, v float64) []float64 {
	if len(h) == historyCapacity {
		copy(h, h[1:])
		h = h[:len(h)-1]
	}
	return append(h, v)
}

func (m Model) View() string {
	snap := m.eng.Entities()
	left := m.styles.Panel.Render(m.viewClusters(snap))
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Panel.Render(m.viewStages(m.eng.Stages())),
		m.styles.Panel.Render(m.viewComparison()),
	)

	var b strings.Builder
	b.WriteString(GradientText("DYNAMIC CLUSTER MEMORY", m.theme.Accent, m.theme.Highlight))
	b.WriteString("  " + m.status() + "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right) + "\n")
	if m.showHelp {
		b.WriteString(m.help())
	} else {
		b.WriteString(m.styles.KeyHint.Render("SP:pause  M/C:dataset  TAB:next  T:theme  ?:help  Q:quit"))
	}
	return b.String()
}

func (m Model) status() string {
	if m.paused {
		return m.styles.Paused.Render("PAUSED")
	}
	return m.styles.Running.Render("RUNNING")
}

func (m Model) viewClusters(snap *cluster.Snapshot) string {
	m.canvas.Clear()
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Cluster formation") + "\n")

	if snap != nil {
		// Halos first so centers and points overwrite their cell colour.
		for _, c := range snap.Clusters {
			m.canvas.Ring(c.Center, haloRadius, cluster.ColorHex(c.Color))
		}
		for _, p := range snap.Points {
			x, y := m.canvas.Project(p.Pos)
			m.canvas.Set(x, y, string(m.theme.Points))
		}
		for _, c := range snap.Clusters {
			m.canvas.Disk(c.Center, 1, cluster.ColorHex(c.Color))
		}
	}
	b.WriteString(m.canvas.Render(m.styles.Color) + "\n")

	if snap != nil && snap.Annotation != "" {
		b.WriteString(m.styles.Banner.Render(snap.Annotation) + "\n")
	} else {
		b.WriteString("\n")
	}

	capacity := m.eng.Config().Entities.Capacity
	points, clusters, phaseName, cycle, tick := 0, 0, "-", uint64(0), uint64(0)
	if snap != nil {
		points, clusters, phaseName, cycle, tick = len(snap.Points), len(snap.Clusters), snap.Phase, snap.Cycle, uint64(snap.Tick)
	}
	b.WriteString(m.styles.Label.Render("memory  ") + m.styles.ProgressBar(float64(points)/float64(capacity), 20) +
		m.styles.Value.Render(fmt.Sprintf(" %d/%d", points, capacity)) + "\n")
	b.WriteString(m.styles.Label.Render("phase   ") + m.styles.Value.Render(phaseName) +
		m.styles.Label.Render(fmt.Sprintf("  cycle %d  tick %d  clusters %d", cycle, tick, clusters)) + "\n")
	b.WriteString(m.styles.Label.Render("clusters ") + m.styles.SparklineChart(m.clusterHist, 30) + "\n")
	if len(m.pointHist) > 1 {
		b.WriteString(asciigraph.Plot(m.pointHist, asciigraph.Height(4), asciigraph.Width(34), asciigraph.Caption("points")))
	}
	return b.String()
}

func (m Model) viewStages(snap stage.Snapshot) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Algorithm") + "\n")
	for i, s := range snap.Stages {
		line := fmt.Sprintf("%s %s", glyph(s.Icon), s.Title)
		switch snap.Status(i) {
		case stage.StatusActive:
			b.WriteString(m.styles.Active.Render(line+"  ●") + "\n")
			b.WriteString(m.styles.Pending.Render("   "+s.Description) + "\n")
		case stage.StatusDone:
			b.WriteString(m.styles.Done.Render(line) + "\n")
		default:
			b.WriteString(m.styles.Pending.Render(line) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var glyphs = map[string]string{
	"search":   "⌕",
	"database": "⛁",
	"scissors": "✂",
	"network":  "⋈",
}

func glyph(icon string) string {
	if g, ok := glyphs[icon]; ok {
		return g
	}
	return "•"
}

func (m Model) viewComparison() string {
	series := m.eng.Series()
	if series == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(series.Title) + m.styles.Label.Render("  "+series.Metric) + "\n\n")
	b.WriteString(m.styles.BarChart(series, barHeight, barWidth) + "\n")
	b.WriteString(m.styles.Subtle.Render(fmt.Sprintf("source: %s  ·  %s ahead by %.1f%%",
		series.Source, series.Reference.Label, 100*series.Improvement())))
	return b.String()
}

func (m Model) help() string {
	keys := [][2]string{
		{"Space", "pause or resume both clocks"},
		{"M", "compare on MNIST"},
		{"C", "compare on CIFAR10"},
		{"Tab", "next dataset"},
		{"T", "cycle themes"},
		{"?", "toggle this help"},
		{"Q", "quit"},
	}
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(m.styles.Value.Render(fmt.Sprintf("  %-6s", k[0])) + m.styles.Label.Render(k[1]) + "\n")
	}
	return m.styles.Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// Run starts the engine clocks and blocks in the terminal UI until the user
// quits. The clocks are stopped before Run returns.
func Run(eng *sim.Engine, theme string, fps int) error {
	eng.Start()
	defer eng.Stop()
	_, err := tea.NewProgram(NewModel(eng, theme, fps), tea.WithAltScreen()).Run()
	return err
}
