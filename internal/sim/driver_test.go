package sim_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/minorbit/internal/dynamo"
	"github.com/san-kum/minorbit/internal/ephemeris"
	"github.com/san-kum/minorbit/internal/orbit"
	"github.com/san-kum/minorbit/internal/physics"
	"github.com/san-kum/minorbit/internal/sim"
)

const muSun = 2.959122082855911e-4

func withState(designator string, r, v dynamo.Vector3) dynamo.MinorBody {
	return dynamo.MinorBody{
		Designator: designator,
		Trajectory: []dynamo.State{{Epoch: 0, R: r, V: v}},
	}
}

func circular(designator string, a float64) dynamo.MinorBody {
	return withState(designator, dynamo.Vec(a, 0, 0), dynamo.Vec(0, math.Sqrt(muSun/a), 0))
}

func solarSystem(coverage float64) dynamo.ForceModel {
	provider := ephemeris.NewStatic(map[dynamo.BodyID]dynamo.Vector3{
		ephemeris.Sun:     {},
		ephemeris.Jupiter: dynamo.Vec(5.2, 0, 0),
	}).WithCoverage(-coverage, coverage)

	f, err := physics.NewGravity(ephemeris.NewCache(provider, 0),
		dynamo.MajorBody{ID: ephemeris.Sun, GM: muSun},
		[]dynamo.MajorBody{{ID: ephemeris.Jupiter, GM: muSun / 1047.35}},
	)
	Expect(err).NotTo(HaveOccurred())
	return f
}

type countingObserver struct {
	steps atomic.Int64
	mu    sync.Mutex
	done  map[string]dynamo.Status
}

func (c *countingObserver) OnStep(string, int, int, dynamo.State) { c.steps.Add(1) }

func (c *countingObserver) OnDone(o dynamo.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		c.done = make(map[string]dynamo.Status)
	}
	c.done[o.Designator] = o.Status
}

type failingSink struct{}

func (failingSink) Record(*dynamo.MinorBody, dynamo.Outcome) error { return errors.New("disk full") }

// blowUp returns a non-finite acceleration beyond 10 AU.
type blowUp struct{ physics.PointMass }

func (b blowUp) Acceleration(r dynamo.Vector3, epoch float64) (dynamo.Vector3, error) {
	if r.Norm() > 10 {
		return dynamo.Vec(math.Inf(1), 0, 0), nil
	}
	return b.PointMass.Acceleration(r, epoch)
}

var _ = Describe("Driver", func() {
	var (
		ctx     context.Context
		collect *sim.Collect
	)

	BeforeEach(func() {
		ctx = context.Background()
		collect = sim.NewCollect()
	})

	Describe("window validation", func() {
		DescribeTable("rejects malformed windows before propagating",
			func(w dynamo.Window) {
				d := sim.New(sim.WithSink(collect))
				report, err := d.Run(ctx, []dynamo.MinorBody{circular("a", 1)}, w, solarSystem(1e4))
				Expect(err).To(MatchError(dynamo.ErrConfiguration))
				Expect(report).To(BeNil())
				Expect(collect.Len()).To(BeZero())
			},
			Entry("zero step", dynamo.Window{T0: 0, TF: 10, DT: 0}),
			Entry("empty window", dynamo.Window{T0: 5, TF: 5, DT: 1}),
			Entry("wrong direction", dynamo.Window{T0: 0, TF: 10, DT: -1}),
			Entry("non-finite", dynamo.Window{T0: 0, TF: math.Inf(1), DT: 1}),
			Entry("too many steps", dynamo.Window{T0: 0, TF: 1e20, DT: 1}),
		)

		It("rejects duplicate designators", func() {
			d := sim.New()
			_, err := d.Run(ctx, []dynamo.MinorBody{circular("a", 1), circular("a", 2)},
				dynamo.Window{T0: 0, TF: 10, DT: 1}, solarSystem(1e4))
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		})
	})

	Describe("time grid", func() {
		It("records T0 and every step with non-accumulated epochs", func() {
			d := sim.New(sim.WithSink(collect))
			w := dynamo.Window{T0: 0, TF: 100, DT: 0.1}
			report, err := d.Run(ctx, []dynamo.MinorBody{circular("a", 1)}, w, solarSystem(1e4))
			Expect(err).NotTo(HaveOccurred())

			body, ok := report.Body("a")
			Expect(ok).To(BeTrue())
			Expect(body.Trajectory).To(HaveLen(1001))
			for k, s := range body.Trajectory[:1000] {
				Expect(s.Epoch).To(Equal(float64(k) * 0.1))
			}
			last, _ := body.Last()
			Expect(last.Epoch).To(Equal(100.0))
		})

		It("ends a window that is not a whole number of steps exactly on TF", func() {
			d := sim.New()
			report, err := d.Run(ctx, []dynamo.MinorBody{circular("a", 1)},
				dynamo.Window{T0: 0, TF: 10.5, DT: 1}, solarSystem(1e4))
			Expect(err).NotTo(HaveOccurred())

			o, _ := report.Outcome("a")
			Expect(o.Status).To(Equal(dynamo.StatusCompleted))
			Expect(o.Steps).To(Equal(11))
			Expect(o.LastEpoch).To(Equal(10.5))
			Expect(report.Bodies[0].Trajectory).To(HaveLen(12))
		})

		It("takes one step when the window is far shorter than DT", func() {
			d := sim.New(sim.WithSink(collect))
			report, err := d.Run(ctx, []dynamo.MinorBody{circular("a", 1)},
				dynamo.Window{T0: 0, TF: 1e-10, DT: 1}, solarSystem(1e4))
			Expect(err).NotTo(HaveOccurred())

			o, _ := report.Outcome("a")
			Expect(o.Status).To(Equal(dynamo.StatusCompleted))
			Expect(o.Steps).To(Equal(1))
			Expect(o.LastEpoch).To(Equal(1e-10))
			Expect(report.Bodies[0].Trajectory).To(HaveLen(2))
		})

		It("propagates backwards", func() {
			d := sim.New()
			report, err := d.Run(ctx, []dynamo.MinorBody{circular("a", 1)},
				dynamo.Window{T0: 0, TF: -30, DT: -1}, solarSystem(1e4))
			Expect(err).NotTo(HaveOccurred())
			Expect(report.AllCompleted()).To(BeTrue())
			last, _ := report.Bodies[0].Last()
			Expect(last.Epoch).To(Equal(-30.0))
		})
	})

	Describe("independence", func() {
		It("produces bit-identical trajectories alone and together", func() {
			w := dynamo.Window{T0: 0, TF: 400, DT: 2}
			bodies := []dynamo.MinorBody{
				circular("inner", 0.8),
				withState("eccentric", dynamo.Vec(2.1, 0.3, 0.05), dynamo.Vec(-0.002, 0.011, 0.0004)),
				circular("outer", 3.3),
			}

			together, err := sim.New(sim.WithWorkers(3)).Run(ctx, bodies, w, solarSystem(1e4))
			Expect(err).NotTo(HaveOccurred())

			for _, b := range bodies {
				alone, err := sim.New(sim.WithWorkers(1)).Run(ctx, []dynamo.MinorBody{b}, w, solarSystem(1e4))
				Expect(err).NotTo(HaveOccurred())

				got, ok := together.Body(b.Designator)
				Expect(ok).To(BeTrue())
				Expect(cmp.Diff(alone.Bodies[0], *got)).To(BeEmpty())
			}
		})

		It("does not modify the input bodies", func() {
			bodies := []dynamo.MinorBody{circular("a", 1)}
			_, err := sim.New().Run(ctx, bodies, dynamo.Window{T0: 0, TF: 5, DT: 1}, solarSystem(1e4))
			Expect(err).NotTo(HaveOccurred())
			Expect(bodies[0].Trajectory).To(HaveLen(1))
		})
	})

	Describe("failure isolation", func() {
		It("reports an ephemeris gap without aborting other bodies", func() {
			obs := &countingObserver{}
			d := sim.New(sim.WithSink(collect), sim.WithObserver(obs))
			report, err := d.Run(ctx, []dynamo.MinorBody{circular("a", 1), circular("b", 2)},
				dynamo.Window{T0: 0, TF: 100, DT: 1}, solarSystem(50))
			Expect(err).NotTo(HaveOccurred())

			for _, o := range report.Outcomes {
				Expect(o.Status).To(Equal(dynamo.StatusEphemerisGap))
				Expect(o.Err).To(MatchError(dynamo.ErrEphemerisUnavailable))
				// Stage epochs run ahead of the step, so the gap appears before 50.
				Expect(o.FailureEpoch).To(BeNumerically("<", 50))
				Expect(o.LastEpoch).To(Equal(o.FailureEpoch))
			}
			Expect(collect.Len()).To(Equal(2))
			Expect(obs.done).To(HaveLen(2))
		})

		It("marks a diverging body and completes the others", func() {
			f := blowUp{physics.PointMass{GM: muSun}}
			bodies := []dynamo.MinorBody{
				circular("fine", 1),
				withState("runaway", dynamo.Vec(9.9, 0, 0), dynamo.Vec(0.5, 0, 0)),
			}

			report, err := sim.New(sim.WithSink(collect)).Run(ctx, bodies, dynamo.Window{T0: 0, TF: 20, DT: 1}, f)
			Expect(err).NotTo(HaveOccurred())

			fine, _ := report.Outcome("fine")
			Expect(fine.Status).To(Equal(dynamo.StatusCompleted))

			runaway, _ := report.Outcome("runaway")
			Expect(runaway.Status).To(Equal(dynamo.StatusDiverged))
			Expect(runaway.Err).To(MatchError(dynamo.ErrIntegrationDiverged))
			var se *dynamo.SimulationError
			Expect(errors.As(runaway.Err, &se)).To(BeTrue())
			Expect(se.Designator).To(Equal("runaway"))

			body, _ := report.Body("runaway")
			Expect(body.Trajectory).To(HaveLen(runaway.Steps + 1))
			for _, s := range body.Trajectory {
				Expect(s.IsValid()).To(BeTrue())
			}
		})

		It("escalates persistent degenerate distances to divergence", func() {
			f := physics.PointMass{GM: muSun}
			bodies := []dynamo.MinorBody{
				withState("stuck", dynamo.Vector3{}, dynamo.Vector3{}),
				circular("fine", 1),
			}

			report, err := sim.New().Run(ctx, bodies, dynamo.Window{T0: 0, TF: 10, DT: 1}, f)
			Expect(err).NotTo(HaveOccurred())

			o, _ := report.Outcome("stuck")
			Expect(o.Status).To(Equal(dynamo.StatusDiverged))
			Expect(o.Err).To(MatchError(dynamo.ErrIntegrationDiverged))
			Expect(o.Err).To(MatchError(dynamo.ErrDegenerateDistance))
			Expect(o.Steps).To(Equal(3))
			Expect(o.Degenerate).To(Equal(4))

			fine, _ := report.Outcome("fine")
			Expect(fine.Status).To(Equal(dynamo.StatusCompleted))
		})

		It("marks bodies without initial conditions as unresolved", func() {
			known := orbit.NewStatic(muSun)
			known.AddElements("1 Ceres", orbit.Elements{A: 2.77, E: 0.08, I: 10.6, Node: 80.3, Peri: 73.6, M: 95.9})

			bodies := []dynamo.MinorBody{{Designator: "1 Ceres"}, {Designator: "no such rock"}}
			report, err := sim.New(sim.WithInitialConditions(known), sim.WithSink(collect)).
				Run(ctx, bodies, dynamo.Window{T0: 0, TF: 10, DT: 1}, solarSystem(1e4))
			Expect(err).NotTo(HaveOccurred())

			ceres, _ := report.Outcome("1 Ceres")
			Expect(ceres.Status).To(Equal(dynamo.StatusCompleted))

			missing, _ := report.Outcome("no such rock")
			Expect(missing.Status).To(Equal(dynamo.StatusUnresolved))
			Expect(missing.Err).To(MatchError(dynamo.ErrUnknownBody))
			Expect(missing.Steps).To(BeZero())

			Expect(report.Failed()).To(HaveLen(1))
			Expect(collect.Len()).To(Equal(2))
		})
	})

	Describe("outputs", func() {
		It("hands every body to the sink and observers exactly once", func() {
			obs := &countingObserver{}
			d := sim.New(sim.WithSink(collect), sim.WithObserver(obs), sim.WithWorkers(2))

			var bodies []dynamo.MinorBody
			for _, a := range []float64{0.7, 1, 1.5, 2.2, 3.1} {
				bodies = append(bodies, circular(string(rune('a'+len(bodies))), a))
			}
			report, err := d.Run(ctx, bodies, dynamo.Window{T0: 0, TF: 20, DT: 1}, solarSystem(1e4))
			Expect(err).NotTo(HaveOccurred())

			Expect(collect.Len()).To(Equal(5))
			Expect(obs.done).To(HaveLen(5))
			Expect(obs.steps.Load()).To(BeEquivalentTo(5 * 20))
			Expect(report.TotalSteps()).To(Equal(100))
			Expect(report.Counts()[dynamo.StatusCompleted]).To(Equal(5))
		})

		It("fails the run when the sink fails", func() {
			d := sim.New(sim.WithSink(failingSink{}), sim.WithWorkers(1))
			report, err := d.Run(ctx, []dynamo.MinorBody{circular("a", 1), circular("b", 2)},
				dynamo.Window{T0: 0, TF: 5, DT: 1}, solarSystem(1e4))
			Expect(err).To(MatchError(ContainSubstring("disk full")))
			Expect(report).NotTo(BeNil())
		})

		It("cancels every body when the context is done", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			report, err := sim.New(sim.WithSink(collect)).Run(cctx,
				[]dynamo.MinorBody{circular("a", 1), circular("b", 2)},
				dynamo.Window{T0: 0, TF: 5, DT: 1}, solarSystem(1e4))
			Expect(err).To(MatchError(context.Canceled))
			Expect(report.Counts()[dynamo.StatusCanceled]).To(Equal(2))
			Expect(collect.Len()).To(Equal(2))
		})
	})

	Describe("circular orbit over a year", func() {
		It("returns to its starting point", func() {
			mu := math.Pow(2*math.Pi/365, 2)
			ic := orbit.NewStatic(mu)
			ic.AddElements("circular", orbit.Elements{A: 1})

			f, err := physics.NewGravity(
				ephemeris.NewStatic(map[dynamo.BodyID]dynamo.Vector3{ephemeris.Sun: {}}),
				dynamo.MajorBody{ID: ephemeris.Sun, GM: mu}, nil)
			Expect(err).NotTo(HaveOccurred())

			report, err := sim.New(sim.WithInitialConditions(ic)).
				Run(ctx, []dynamo.MinorBody{{Designator: "circular"}}, dynamo.Window{T0: 0, TF: 365, DT: 1}, f)
			Expect(err).NotTo(HaveOccurred())

			body := report.Bodies[0]
			first, last := body.Trajectory[0], body.Trajectory[len(body.Trajectory)-1]
			Expect(last.Epoch).To(Equal(365.0))
			Expect(last.R.Sub(first.R).Norm()).To(BeNumerically("<", 1e-6))
		})
	})
})
