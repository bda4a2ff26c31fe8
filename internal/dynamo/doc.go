// Package dynamo provides core propagation primitives for minor-body orbits.
//
// The package defines the value types and interfaces shared by every layer
// of the propagator:
//
//   - [Vector3]: immutable 3D vector (AU, AU/day)
//   - [State]: position and velocity tagged with an epoch
//   - [MajorBody], [MinorBody]: gravitating bodies and massless test particles
//   - [Window]: the time grid T0..TF with step DT
//   - [EphemerisProvider]: major-body positions at arbitrary epochs
//   - [ForceModel]: acceleration acting on a test particle
//   - [Integrator]: fixed-step state advance
//   - [InitialConditionProvider], [OutputSink]: run collaborators
//
// # Example
//
//	force := physics.NewGravity(provider, central, perturbers)
//	integ := integrators.NewYoshida8()
//	next, err := integ.Step(state, 1.0, force)
//
// # Thread Safety
//
// All value types are immutable. Implementations of [EphemerisProvider] and
// [ForceModel] must be safe for concurrent use, because the driver
// propagates independent bodies on parallel workers.
package dynamo
