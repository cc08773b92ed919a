package depot

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// collector holds the prometheus metrics of a registry. Metrics are always
// recorded; they are exported only when a registerer is configured.
type collector struct {
	constructions *prometheus.CounterVec
	failures      *prometheus.CounterVec
	rebinds       *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

func newCollector(registerer prometheus.Registerer) *collector {
	labels := []string{"target", "qualifier"}

	c := &collector{
		constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "depot",
				Name:      "constructions_total",
				Help:      "Total number of successful component constructions",
			},
			labels,
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "depot",
				Name:      "construction_failures_total",
				Help:      "Total number of failed component constructions",
			},
			labels,
		),
		rebinds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "depot",
				Name:      "rebinds_total",
				Help:      "Total number of live handles retargeted to a new instance",
			},
			labels,
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "depot",
				Name:      "construction_duration_seconds",
				Help:      "Component construction duration in seconds, dependencies included",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			labels,
		),
	}

	if registerer != nil {
		c.constructions = register(registerer, c.constructions)
		c.failures = register(registerer, c.failures)
		c.rebinds = register(registerer, c.rebinds)
		c.duration = register(registerer, c.duration)
	}

	return c
}

// register registers vec, reusing the collector already registered under the
// same descriptor when several registries share a registerer.
func register[V prometheus.Collector](registerer prometheus.Registerer, vec V) V {
	err := registerer.Register(vec)
	if err == nil {
		return vec
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(V); ok {
			return existing
		}
	}

	return vec
}

func (c *collector) observe(targetID, qualifier string, elapsed time.Duration, err error) {
	if err != nil {
		c.failures.WithLabelValues(targetID, qualifier).Inc()
		return
	}

	c.constructions.WithLabelValues(targetID, qualifier).Inc()
	c.duration.WithLabelValues(targetID, qualifier).Observe(elapsed.Seconds())
}

func (c *collector) rebound(targetID, qualifier string) {
	c.rebinds.WithLabelValues(targetID, qualifier).Inc()
}
