// Package export writes trajectories as SVG images.
package export

import (
	"fmt"
	"html"
	"io"
	"math"
	"strings"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/viz"
)

var palette = []string{"#00ff88", "#00ccff", "#ffaa00", "#ff4466", "#cc66ff", "#ffff66"}

// CanvasToSVG draws every dot of a braille canvas as a circle.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	width := float64(canvas.Width) * scale * 2
	height := float64(canvas.Height) * scale * 4

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff88">
`, width, height, width, height)

	dotRadius := scale * 0.4
	for y := 0; y < canvas.Height*4; y++ {
		for x := 0; x < canvas.Width*2; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius)
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// Track is one body's trajectory to draw.
type Track struct {
	Name   string
	States []dynamo.State
}

// OrbitsSVG draws tracks projected on the ecliptic x-y plane, centered on
// the origin with equal scale on both axes, plus a legend.
func OrbitsSVG(w io.Writer, tracks []Track, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("svg size must be positive, got %dx%d", width, height)
	}
	var all [][]dynamo.State
	for _, t := range tracks {
		all = append(all, t.States)
	}
	radius := viz.FitRadius(all...)
	if radius == 0 {
		radius = 1
	}
	half := math.Min(float64(width), float64(height)) / 2
	scale := 0.9 * half / radius
	cx, cy := float64(width)/2, float64(height)/2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<circle cx="%.1f" cy="%.1f" r="4" fill="#ffcc00"/>
`, width, height, width, height, cx, cy)

	for i, t := range tracks {
		color := palette[i%len(palette)]
		var d strings.Builder
		for _, s := range t.States {
			if !s.R.IsFinite() {
				continue
			}
			cmd := " L"
			if d.Len() == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&d, "%s%.2f,%.2f", cmd, cx+s.R.X*scale, cy-s.R.Y*scale)
		}
		if d.Len() > 0 {
			fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"%s\"/>\n", color, d.String())
		}
		fmt.Fprintf(&sb, "<text x=\"10\" y=\"%d\" fill=\"%s\" font-family=\"monospace\" font-size=\"12\">%s</text>\n",
			20+16*i, color, html.EscapeString(t.Name))
	}
	fmt.Fprintf(&sb, "<text x=\"10\" y=\"%d\" fill=\"#666688\" font-family=\"monospace\" font-size=\"11\">%.3g AU</text>\n",
		height-10, radius)
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
