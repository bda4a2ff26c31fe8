// Package ephemeris provides major-body position sources for the force model.
//
//   - [Static]: fixed positions, for two-body and test setups
//   - [Table]: tabulated samples with Lagrange interpolation
//   - [Kepler]: analytic mean-element planets, heliocentric ecliptic J2000
//   - [Cache]: read-through cache shared by parallel workers
//
// Every provider reports a coverage interval; epochs outside it fail with
// [dynamo.ErrEphemerisUnavailable] instead of extrapolating.
package ephemeris
