package viz

import (
	"math"
	"strings"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBlank = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells addressed in dots; a canvas of
// Width x Height cells has Width*2 x Height*4 dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set turns on the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x/2 >= c.Width || y/4 >= c.Height {
		return false
	}
	return c.Grid[y/4][x/2]&pixelMap[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// OrbitView projects trajectories on the ecliptic x-y plane with equal
// scale on both axes and the origin at the center.
type OrbitView struct {
	canvas *Canvas
	scale  float64 // dots per AU
}

// NewOrbitView sizes the view so that radius AU fits in w x h cells.
func NewOrbitView(w, h int, radius float64) *OrbitView {
	if !(radius > 0) {
		radius = 1
	}
	c := NewCanvas(w, h)
	half := math.Min(float64(w*2), float64(h*4)) / 2
	v := &OrbitView{canvas: c, scale: (half - 1) / radius}
	v.point(0, 0)
	return v
}

// FitRadius returns the largest x-y distance from the origin in trajs.
func FitRadius(trajs ...[]dynamo.State) float64 {
	r := 0.0
	for _, traj := range trajs {
		for _, s := range traj {
			if d := math.Hypot(s.R.X, s.R.Y); !math.IsNaN(d) && !math.IsInf(d, 0) {
				r = math.Max(r, d)
			}
		}
	}
	return r
}

func (v *OrbitView) dot(x, y float64) (int, int) {
	cx := float64(v.canvas.Width*2) / 2
	cy := float64(v.canvas.Height*4) / 2
	return int(math.Round(cx + x*v.scale)), int(math.Round(cy - y*v.scale))
}

func (v *OrbitView) point(x, y float64) {
	px, py := v.dot(x, y)
	v.canvas.Set(px, py)
}

// Trace draws traj as connected segments.
func (v *OrbitView) Trace(traj []dynamo.State) {
	first := true
	var px, py int
	for _, s := range traj {
		if !s.R.IsFinite() {
			continue
		}
		x, y := v.dot(s.R.X, s.R.Y)
		if !first {
			v.canvas.DrawLine(px, py, x, y)
		}
		px, py, first = x, y, false
	}
}

func (v *OrbitView) Canvas() *Canvas { return v.canvas }

func (v *OrbitView) String() string { return v.canvas.String() }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
