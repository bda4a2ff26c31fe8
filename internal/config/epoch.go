package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// UnixEpochJD is the Julian date of 1970-01-01T00:00:00.
const UnixEpochJD = 2440587.5

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// Epoch is a Julian date. In YAML it may be written as a number or as a
// calendar date. Calendar dates are taken on the TDB scale directly; the
// offset from UTC (about a minute) is below any useful step size.
type Epoch float64

func JulianDate(t time.Time) Epoch {
	t = t.UTC()
	return Epoch(UnixEpochJD + float64(t.Unix())/86400 + float64(t.Nanosecond())/86400e9)
}

// ParseEpoch accepts a Julian date number or a calendar date.
func ParseEpoch(s string) (Epoch, error) {
	s = strings.TrimSpace(s)
	if jd, err := strconv.ParseFloat(s, 64); err == nil {
		return Epoch(jd), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return JulianDate(t), nil
		}
	}
	return 0, fmt.Errorf("invalid epoch %q: want a Julian date or YYYY-MM-DD[THH:MM:SS]", s)
}

func (e Epoch) Float() float64 { return float64(e) }

// Time converts the epoch back to a calendar time, rounded to the millisecond.
func (e Epoch) Time() time.Time {
	ms := math.Round((float64(e) - UnixEpochJD) * 86400e3)
	return time.UnixMilli(int64(ms)).UTC()
}

func (e Epoch) String() string {
	return e.Time().Format("2006-01-02T15:04:05")
}

func (e *Epoch) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: epoch must be a scalar", node.Line)
	}
	v, err := ParseEpoch(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*e = v
	return nil
}

func (e Epoch) MarshalYAML() (interface{}, error) {
	return float64(e), nil
}
