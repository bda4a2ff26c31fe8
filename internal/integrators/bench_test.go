package integrators

import (
	"testing"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/ephemeris"
	"github.com/san-kum/minorbit/internal/physics"
)

func benchmarkStep(b *testing.B, integ dynamo.Integrator, f dynamo.ForceModel) {
	s := dynamo.State{Epoch: ephemeris.J2000, R: dynamo.Vec(2.5, 0, 0.1), V: dynamo.Vec(0, 0.0108, 0)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, _ = integ.Step(s, 1, f)
	}
}

func BenchmarkYoshida8(b *testing.B) {
	benchmarkStep(b, NewYoshida8(), physics.PointMass{GM: 2.959122082855911e-4})
}

func BenchmarkLeapfrog(b *testing.B) {
	benchmarkStep(b, NewLeapfrog(), physics.PointMass{GM: 2.959122082855911e-4})
}

func BenchmarkRK4(b *testing.B) {
	benchmarkStep(b, NewRK4(), physics.PointMass{GM: 2.959122082855911e-4})
}

func BenchmarkYoshida8_Planets(b *testing.B) {
	central, _ := ephemeris.Lookup(ephemeris.Sun)
	perturbers, _ := ephemeris.Resolve(ephemeris.Planets)
	f, err := physics.NewGravity(ephemeris.NewCache(ephemeris.NewKepler(), 0), central, perturbers, physics.WithIndirect(true))
	if err != nil {
		b.Fatal(err)
	}
	benchmarkStep(b, NewYoshida8(), f)
}
