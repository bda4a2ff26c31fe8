// Package viz renders propagation results in the terminal.
//
//   - [RenderReport], [RenderRuns] and [RenderRun]: lipgloss tables of
//     per-body outcomes and stored runs
//   - [Plot]: asciigraph line charts of distance or energy drift
//   - [Canvas] and [OrbitView]: braille plots of trajectories projected
//     on the ecliptic
//   - [Progress]: a Bubble Tea view that follows a running propagation
//
// # Key Bindings
//
//	q, ctrl+c - Cancel the run
//	t         - Cycle color themes
package viz
