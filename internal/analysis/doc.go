// Package analysis derives orbital quantities from propagated trajectories.
//
//   - [DominantPeriod]: strongest period of a uniformly sampled series
//   - [AnalyzeTrajectory]: spectral period next to the two-body period
//   - [SeparationExponent]: exponential growth rate of the distance
//     between two trajectories
//
// # Clone divergence
//
// A positive exponent over a clone cloud means nearby orbits separate
// exponentially, as they do after close approaches:
//
//	lambda, ok := analysis.SeparationExponent(nominal, clone)
//	if ok && lambda > 0 {
//	    // e-folding time is 1/lambda days
//	}
package analysis
