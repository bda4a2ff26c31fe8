package viz

import (
	"math"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/metrics"
)

const (
	DefaultPlotWidth  = 80
	DefaultPlotHeight = 12
)

// Quantity selects what a plot shows for each state.
type Quantity string

const (
	QuantityDistance Quantity = "distance"
	QuantityEnergy   Quantity = "energy"
	QuantityX        Quantity = "x"
	QuantityY        Quantity = "y"
	QuantityZ        Quantity = "z"
)

var Quantities = []Quantity{QuantityDistance, QuantityEnergy, QuantityX, QuantityY, QuantityZ}

// SeriesOf extracts q along traj. mu is only used for energy drift.
func SeriesOf(q Quantity, mu float64, traj []dynamo.State) ([]float64, bool) {
	if len(traj) == 0 {
		return nil, false
	}
	var fn func(dynamo.State) float64
	switch q {
	case QuantityDistance:
		fn = metrics.Distance
	case QuantityEnergy:
		if !(mu > 0) {
			return nil, false
		}
		fn = metrics.EnergyDrift(mu, traj[0])
	case QuantityX:
		fn = func(s dynamo.State) float64 { return s.R.X }
	case QuantityY:
		fn = func(s dynamo.State) float64 { return s.R.Y }
	case QuantityZ:
		fn = func(s dynamo.State) float64 { return s.R.Z }
	default:
		return nil, false
	}
	return metrics.Series(traj, fn), true
}

// Plot draws one or more series on a shared axis. Series longer than the
// width are reduced by averaging buckets; non-finite samples are dropped.
func Plot(caption string, width, height int, series ...[]float64) string {
	if width <= 0 {
		width = DefaultPlotWidth
	}
	if height <= 0 {
		height = DefaultPlotHeight
	}

	data := make([][]float64, 0, len(series))
	for _, s := range series {
		if d := Downsample(finite(s), width); len(d) > 0 {
			data = append(data, d)
		}
	}
	if len(data) == 0 {
		return caption + ": no data\n"
	}

	opts := []asciigraph.Option{
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	}
	if len(data) > 1 {
		colors := []asciigraph.AnsiColor{
			asciigraph.Green, asciigraph.Yellow, asciigraph.Red,
			asciigraph.Blue, asciigraph.Magenta, asciigraph.Cyan,
		}
		used := make([]asciigraph.AnsiColor, len(data))
		for i := range used {
			used[i] = colors[i%len(colors)]
		}
		opts = append(opts, asciigraph.SeriesColors(used...))
	}
	return asciigraph.PlotMany(data, opts...) + "\n"
}

// Downsample averages values into at most n buckets.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		lo := i * len(values) / n
		hi := (i + 1) * len(values) / n
		sum := 0.0
		for _, v := range values[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
