package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/dcmsim/internal/cluster"
	"github.com/san-kum/dcmsim/internal/metrics"
)

const (
	paperBackground = "#F9F8F4"
	pointColor      = "#44403c"
	referenceColor  = "#C5A059"
	baselineColor   = "#44403c"
)

// SnapshotToSVG draws an entity snapshot on a size x size canvas: a faint halo
// and a solid center marker for every cluster, then the points on top.
func SnapshotToSVG(snap *cluster.Snapshot, size int) string {
	if snap == nil || size <= 0 {
		return ""
	}

	scale := float64(size) / 100
	halo := float64(size) * 0.16
	marker := float64(size) * 0.02
	dot := float64(size) * 0.01

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, size, size, size, size, paperBackground))

	sb.WriteString(`<g class="halos" fill-opacity="0.15">` + "\n")
	for _, c := range snap.Clusters {
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+"\n",
			c.Center.X*scale, c.Center.Y*scale, halo, cluster.ColorHex(c.Color)))
	}
	sb.WriteString("</g>\n")

	sb.WriteString(`<g class="centers" stroke="#ffffff" stroke-width="2">` + "\n")
	for _, c := range snap.Clusters {
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+"\n",
			c.Center.X*scale, c.Center.Y*scale, marker, cluster.ColorHex(c.Color)))
	}
	sb.WriteString("</g>\n")

	sb.WriteString(fmt.Sprintf(`<g class="points" fill="%s">`+"\n", pointColor))
	for _, p := range snap.Points {
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
			p.Pos.X*scale, p.Pos.Y*scale, dot))
	}
	sb.WriteString("</g>\n")

	if snap.Novelty && snap.Annotation != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" text-anchor="middle" font-family="sans-serif" font-size="%.0f" fill="#1c1917">%s</text>`+"\n",
			size/2, size/2, float64(size)*0.035, escape(snap.Annotation)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesToSVG draws the comparison as a bar chart. Bar heights are the
// normalized fractions of the chart height; the reference bar is gold.
func SeriesToSVG(series *metrics.Series, width, height int) string {
	if series == nil || len(series.Bars) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	labelBand := 24.0
	plot := float64(height) - labelBand
	slot := float64(width) / float64(len(series.Bars))
	barW := slot * 0.6

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#1c1917"/>
`, width, height, width, height))

	for i, b := range series.Bars {
		h := b.Fraction * plot
		x := float64(i)*slot + (slot-barW)/2
		fill := baselineColor
		if b.Reference {
			fill = referenceColor
		}
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%s %.2f</title></rect>`+"\n",
			x, plot-h, barW, h, fill, escape(b.Label), b.Raw))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" text-anchor="middle" font-family="sans-serif" font-size="11" fill="#a8a29e">%s</text>`+"\n",
			x+barW/2, float64(height)-8, escape(b.Label)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string { return xmlEscaper.Replace(s) }
