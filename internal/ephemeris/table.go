package ephemeris

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/minorbit/internal/dynamo"
)

const DefaultInterpolationPoints = 8

type series struct {
	epochs    []float64
	positions []dynamo.Vector3
}

// Table interpolates tabulated body positions. It is immutable after
// construction and safe for concurrent use.
type Table struct {
	bodies map[dynamo.BodyID]*series
	points int
	start  float64
	end    float64
}

// Sample is one tabulated position.
type Sample struct {
	Body  dynamo.BodyID
	Epoch float64
	R     dynamo.Vector3
}

// NewTable builds a table from samples. points is the Lagrange stencil
// size; values below 2 select DefaultInterpolationPoints.
func NewTable(samples []Sample, points int) (*Table, error) {
	if points < 2 {
		points = DefaultInterpolationPoints
	}
	t := &Table{
		bodies: make(map[dynamo.BodyID]*series),
		points: points,
		start:  math.Inf(-1),
		end:    math.Inf(1),
	}

	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Epoch < sorted[j].Epoch })

	for _, s := range sorted {
		ser, ok := t.bodies[s.Body]
		if !ok {
			ser = &series{}
			t.bodies[s.Body] = ser
		}
		if n := len(ser.epochs); n > 0 && ser.epochs[n-1] == s.Epoch {
			return nil, fmt.Errorf("duplicate sample for %s at epoch %v", s.Body, s.Epoch)
		}
		ser.epochs = append(ser.epochs, s.Epoch)
		ser.positions = append(ser.positions, s.R)
	}

	if len(t.bodies) == 0 {
		return nil, fmt.Errorf("ephemeris table is empty")
	}
	for id, ser := range t.bodies {
		if len(ser.epochs) < points {
			return nil, fmt.Errorf("body %s has %d samples, need at least %d", id, len(ser.epochs), points)
		}
		t.start = math.Max(t.start, ser.epochs[0])
		t.end = math.Min(t.end, ser.epochs[len(ser.epochs)-1])
	}
	return t, nil
}

func (t *Table) Coverage() (float64, float64) { return t.start, t.end }

func (t *Table) Position(id dynamo.BodyID, epoch float64) (dynamo.Vector3, error) {
	ser, ok := t.bodies[id]
	if !ok {
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: ErrUnknownBody}
	}
	n := len(ser.epochs)
	if !(epoch >= ser.epochs[0] && epoch <= ser.epochs[n-1]) {
		return dynamo.Vector3{}, &dynamo.EphemerisError{Body: id, Epoch: epoch, Wrapped: ErrOutsideCoverage}
	}

	// Centre the stencil on the interval holding epoch, clamped to the table.
	i := sort.SearchFloat64s(ser.epochs, epoch)
	if i < n && ser.epochs[i] == epoch {
		return ser.positions[i], nil
	}
	lo := i - t.points/2
	if lo < 0 {
		lo = 0
	}
	if lo+t.points > n {
		lo = n - t.points
	}
	return lagrange(ser.epochs[lo:lo+t.points], ser.positions[lo:lo+t.points], epoch), nil
}

func lagrange(xs []float64, ys []dynamo.Vector3, x float64) dynamo.Vector3 {
	var out dynamo.Vector3
	for j := range xs {
		w := 1.0
		for m := range xs {
			if m != j {
				w *= (x - xs[m]) / (xs[j] - xs[m])
			}
		}
		out = out.Add(ys[j].Scale(w))
	}
	return out
}

// LoadTableCSV reads "body,epoch,x,y,z" rows. A header row is skipped.
func LoadTableCSV(r io.Reader, points int) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ephemeris table: %w", err)
	}

	samples := make([]Sample, 0, len(records))
	for i, rec := range records {
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "body") {
			continue
		}
		var vals [4]float64
		for k := 0; k < 4; k++ {
			vals[k], err = strconv.ParseFloat(strings.TrimSpace(rec[k+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("ephemeris table line %d: %w", i+1, err)
			}
		}
		samples = append(samples, Sample{
			Body:  dynamo.BodyID(strings.ToLower(strings.TrimSpace(rec[0]))),
			Epoch: vals[0],
			R:     dynamo.Vec(vals[1], vals[2], vals[3]),
		})
	}
	return NewTable(samples, points)
}
