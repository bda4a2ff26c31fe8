package horizons

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/san-kum/minorbit/internal/dynamo"
)

var (
	// ErrMalformed is returned when a response has no parsable vector table.
	ErrMalformed = errors.New("horizons: malformed vector table")

	// ErrAmbiguous is returned when a designation matches several objects.
	ErrAmbiguous = errors.New("horizons: ambiguous designation")
)

var (
	epochLine   = regexp.MustCompile(`^\s*([\d.]+)\s*=\s*A\.D\.`)
	positionRe  = regexp.MustCompile(`X\s*=\s*([-+]?[\d.Ee+-]+)\s*Y\s*=\s*([-+]?[\d.Ee+-]+)\s*Z\s*=\s*([-+]?[\d.Ee+-]+)`)
	velocityRe  = regexp.MustCompile(`VX\s*=\s*([-+]?[\d.Ee+-]+)\s*VY\s*=\s*([-+]?[\d.Ee+-]+)\s*VZ\s*=\s*([-+]?[\d.Ee+-]+)`)
	noMatches   = regexp.MustCompile(`(?i)no matches found`)
	multiMatch  = regexp.MustCompile(`(?i)(multiple major-bodies match|matching small-bodies)`)
	startMarker = "$$SOE"
	endMarker   = "$$EOE"
)

// Record is one row of a VEC_TABLE=2 vector table.
type Record struct {
	JD float64
	R  dynamo.Vector3
	V  dynamo.Vector3
}

// ParseVectors extracts the records between $$SOE and $$EOE.
func ParseVectors(text string) ([]Record, error) {
	start := strings.Index(text, startMarker)
	end := strings.Index(text, endMarker)
	if start < 0 || end < start {
		switch {
		case noMatches.MatchString(text):
			return nil, dynamo.ErrUnknownBody
		case multiMatch.MatchString(text):
			return nil, ErrAmbiguous
		}
		return nil, fmt.Errorf("%w: no $$SOE/$$EOE block", ErrMalformed)
	}

	var (
		records []Record
		cur     *Record
		haveR   bool
	)
	for _, line := range strings.Split(text[start+len(startMarker):end], "\n") {
		if m := epochLine.FindStringSubmatch(line); m != nil {
			jd, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: epoch %q", ErrMalformed, m[1])
			}
			records = append(records, Record{JD: jd})
			cur, haveR = &records[len(records)-1], false
			continue
		}
		if cur == nil {
			continue
		}
		if m := velocityRe.FindStringSubmatch(line); m != nil {
			v, err := vector(m[1:])
			if err != nil {
				return nil, err
			}
			cur.V = v
			if !haveR {
				return nil, fmt.Errorf("%w: velocity before position at JD %v", ErrMalformed, cur.JD)
			}
			cur = nil
			continue
		}
		if m := positionRe.FindStringSubmatch(line); m != nil {
			r, err := vector(m[1:])
			if err != nil {
				return nil, err
			}
			cur.R, haveR = r, true
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty table", ErrMalformed)
	}
	if cur != nil {
		return nil, fmt.Errorf("%w: incomplete record at JD %v", ErrMalformed, cur.JD)
	}
	return records, nil
}

func vector(fields []string) (dynamo.Vector3, error) {
	var v [3]float64
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return dynamo.Vector3{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		v[i] = x
	}
	return dynamo.Vec(v[0], v[1], v[2]), nil
}
