package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/minorbit/internal/dynamo"
)

// CacheStats is implemented by ephemeris caches.
type CacheStats interface {
	Stats() (hits, misses uint64)
}

// Collector counts propagation events. It implements dynamo.Observer and
// owns its registry, so several collectors can coexist in one process.
type Collector struct {
	registry     *prometheus.Registry
	bodiesTotal  *prometheus.CounterVec
	stepsTotal   prometheus.Counter
	degenerate   prometheus.Counter
	stepDuration *prometheus.HistogramVec
}

func NewCollector() *Collector {
	m := &Collector{
		registry: prometheus.NewRegistry(),
		bodiesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minorbit_bodies_total",
				Help: "Minor bodies whose propagation ended, by final status",
			},
			[]string{"status"},
		),
		stepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minorbit_steps_total",
				Help: "Integrator steps taken across all bodies",
			},
		),
		degenerate: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "minorbit_degenerate_steps_total",
				Help: "Steps that dropped a force term for a degenerate distance",
			},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minorbit_step_duration_seconds",
				Help:    "Time spent in one integrator step",
				Buckets: prometheus.ExponentialBuckets(1e-7, 4, 10),
			},
			[]string{"integrator"},
		),
	}

	m.registry.MustRegister(m.bodiesTotal)
	m.registry.MustRegister(m.stepsTotal)
	m.registry.MustRegister(m.degenerate)
	m.registry.MustRegister(m.stepDuration)

	return m
}

func (m *Collector) Registry() *prometheus.Registry { return m.registry }

func (m *Collector) OnStep(string, int, int, dynamo.State) {
	m.stepsTotal.Inc()
}

func (m *Collector) OnDone(o dynamo.Outcome) {
	m.bodiesTotal.WithLabelValues(o.Status.String()).Inc()
	if o.Degenerate > 0 {
		m.degenerate.Add(float64(o.Degenerate))
	}
}

// WatchCache exports the hit and miss counts of an ephemeris cache.
func (m *Collector) WatchCache(c CacheStats) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "minorbit_ephemeris_cache_hits_total",
			Help: "Ephemeris lookups served from the cache",
		},
		func() float64 { hits, _ := c.Stats(); return float64(hits) },
	))
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "minorbit_ephemeris_cache_misses_total",
			Help: "Ephemeris lookups forwarded to the source provider",
		},
		func() float64 { _, misses := c.Stats(); return float64(misses) },
	))
}

// Instrument wraps an integrator so every step is timed.
func (m *Collector) Instrument(integ dynamo.Integrator) dynamo.Integrator {
	return &timedIntegrator{
		Integrator: integ,
		observer:   m.stepDuration.WithLabelValues(integ.Name()),
	}
}

// WriteTextfile writes the current values in the text exposition format.
func (m *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type timedIntegrator struct {
	dynamo.Integrator
	observer prometheus.Observer
}

func (t *timedIntegrator) Step(s dynamo.State, dt float64, f dynamo.ForceModel) (dynamo.State, error) {
	start := time.Now()
	out, err := t.Integrator.Step(s, dt, f)
	t.observer.Observe(time.Since(start).Seconds())
	return out, err
}
