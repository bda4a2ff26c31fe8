package ephemeris

import "errors"

var (
	// ErrOutsideCoverage is returned when an epoch falls outside provider coverage.
	ErrOutsideCoverage = errors.New("epoch outside ephemeris coverage")

	// ErrUnknownBody is returned for bodies the provider has no data for.
	ErrUnknownBody = errors.New("body not in ephemeris")
)
