// Package physics provides the force models acting on minor bodies.
//
// [Gravity] sums the Newtonian point-mass attraction of a central body and
// a set of perturbers whose positions come from a [dynamo.EphemerisProvider]:
//
//	a(r, t) = Σ GM_i (r_i(t) - r) / |r_i(t) - r|^3
//
// With the indirect term enabled the central body's own acceleration due
// to the perturbers is subtracted, which is required when the provider
// places the central body at the origin (heliocentric frames).
//
// [PointMass] is a single fixed attractor at the origin, used for two-body
// problems where no ephemeris is needed.
//
// A term whose separation falls below the degenerate distance is dropped
// and reported through a non-fatal [dynamo.DegenerateError] alongside the
// acceleration of the remaining terms.
package physics
