package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/dcmsim/internal/dynamo"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille pixel grid with one colour token per cell. Sub-pixel
// resolution is (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Colors        [][]string
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Colors: make([][]string, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Colors[i] = make([]string, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
			c.Colors[i][j] = ""
		}
	}
}

// Set lights sub-pixel (x, y). A non-empty color replaces the cell's colour,
// so later layers win.
func (c *Canvas) Set(x, y int, color string) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
	if color != "" {
		c.Colors[row][col] = color
	}
}

// Project maps a diagram-space position to sub-pixel coordinates.
func (c *Canvas) Project(v dynamo.Vec2) (int, int) {
	x := int(math.Round(v.X / dynamo.SpaceMax * float64(c.Width*2-1)))
	y := int(math.Round(v.Y / dynamo.SpaceMax * float64(c.Height*4-1)))
	return x, y
}

// Ring draws a circle outline of radius r (diagram units) around center.
func (c *Canvas) Ring(center dynamo.Vec2, r float64, color string) {
	steps := 96
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		x, y := c.Project(center.Add(dynamo.Vec2{X: r * math.Cos(a), Y: r * math.Sin(a)}))
		c.Set(x, y, color)
	}
}

// Disk fills a small block of sub-pixels around center.
func (c *Canvas) Disk(center dynamo.Vec2, radius int, color string) {
	cx, cy := c.Project(center)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= radius*radius {
				c.Set(cx+dx, cy+dy, color)
			}
		}
	}
}

// Render draws the grid, colouring each cell through style.
func (c *Canvas) Render(style func(color string) lipgloss.Style) string {
	var b strings.Builder
	for i, row := range c.Grid {
		for j, r := range row {
			if r == brailleBlank || c.Colors[i][j] == "" {
				b.WriteRune(r)
				continue
			}
			b.WriteString(style(c.Colors[i][j]).Render(string(r)))
		}
		if i < len(c.Grid)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}
