package ephemeris

import (
	"fmt"
	"sort"

	"github.com/san-kum/minorbit/internal/dynamo"
)

const (
	AUKilometers   = 1.495978707e8
	SecondsPerDay  = 86400.0
	J2000          = 2451545.0
	DaysPerCentury = 36525.0
)

const (
	Sun     dynamo.BodyID = "sun"
	Mercury dynamo.BodyID = "mercury"
	Venus   dynamo.BodyID = "venus"
	Earth   dynamo.BodyID = "earth"
	Mars    dynamo.BodyID = "mars"
	Jupiter dynamo.BodyID = "jupiter"
	Saturn  dynamo.BodyID = "saturn"
	Uranus  dynamo.BodyID = "uranus"
	Neptune dynamo.BodyID = "neptune"
)

// gmKm3s2 holds system GMs in km^3/s^2. Planets are barycenters of their
// satellite systems; earth is the Earth-Moon barycenter.
var gmKm3s2 = map[dynamo.BodyID]float64{
	Mercury: 2.2031780000000021e+04,
	Venus:   3.2485859200000006e+05,
	Earth:   4.0350323550225981e+05,
	Mars:    4.2828375214000022e+04,
	Jupiter: 1.2671276480000021e+08,
	Saturn:  3.7940585200000003e+07,
	Uranus:  5.7945486000000080e+06,
	Neptune: 6.8365271005800236e+06,
	Sun:     1.3271244004193938e+11,
}

// Planets lists the default perturbers in order of distance from the Sun.
var Planets = []dynamo.BodyID{Mercury, Venus, Earth, Mars, Jupiter, Saturn, Uranus, Neptune}

// KmToAUDay converts a GM in km^3/s^2 to AU^3/day^2.
func KmToAUDay(gm float64) float64 {
	return gm * SecondsPerDay * SecondsPerDay / (AUKilometers * AUKilometers * AUKilometers)
}

// Lookup returns the catalog entry for id.
func Lookup(id dynamo.BodyID) (dynamo.MajorBody, error) {
	gm, ok := gmKm3s2[id]
	if !ok {
		return dynamo.MajorBody{}, &dynamo.ConfigError{
			Field:  "major body",
			Reason: fmt.Sprintf("unknown body %q (known: %v)", id, Known()),
		}
	}
	return dynamo.MajorBody{ID: id, GM: KmToAUDay(gm)}, nil
}

// Resolve looks up every id, failing on the first unknown one.
func Resolve(ids []dynamo.BodyID) ([]dynamo.MajorBody, error) {
	bodies := make([]dynamo.MajorBody, 0, len(ids))
	seen := make(map[dynamo.BodyID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, &dynamo.ConfigError{Field: "major body", Reason: fmt.Sprintf("%q listed twice", id)}
		}
		seen[id] = true
		b, err := Lookup(id)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func Known() []dynamo.BodyID {
	ids := make([]dynamo.BodyID, 0, len(gmKm3s2))
	for id := range gmKm3s2 {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
