// Package metrics scopes prometheus collectors per component.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CountBuckets suits small cardinalities such as recipients per frame.
	CountBuckets = []float64{0, 1, 2, 5, 10, 25, 50, 100, 250}
	// SizeBuckets covers payloads from a few bytes to 64MB.
	SizeBuckets = prometheus.ExponentialBuckets(64, 4, 11)
	// DurationBuckets covers local work, in seconds.
	DurationBuckets = []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1}
	// NetworkBuckets covers round trips and connection lifetimes, in seconds.
	NetworkBuckets = []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300}
)

var (
	registerer prometheus.Registerer = prometheus.DefaultRegisterer
	gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
)

// GetRegistry returns the gatherer the API server exposes on /metrics.
func GetRegistry() prometheus.Gatherer {
	return gatherer
}

// ComponentRegistry creates collectors under a fixed namespace and subsystem.
// Creating the same collector twice returns the one already registered, so
// several instances of a component share their series.
type ComponentRegistry struct {
	namespace string
	subsystem string
}

// NewComponentRegistry creates a registry for one component.
func NewComponentRegistry(namespace, subsystem string) *ComponentRegistry {
	return &ComponentRegistry{namespace: namespace, subsystem: subsystem}
}

func (r *ComponentRegistry) NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	opts.Namespace, opts.Subsystem = r.namespace, r.subsystem
	return register(prometheus.NewCounter(opts))
}

func (r *ComponentRegistry) NewCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	opts.Namespace, opts.Subsystem = r.namespace, r.subsystem
	return register(prometheus.NewCounterVec(opts, labels))
}

func (r *ComponentRegistry) NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	opts.Namespace, opts.Subsystem = r.namespace, r.subsystem
	return register(prometheus.NewGauge(opts))
}

func (r *ComponentRegistry) NewGaugeVec(opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	opts.Namespace, opts.Subsystem = r.namespace, r.subsystem
	return register(prometheus.NewGaugeVec(opts, labels))
}

func (r *ComponentRegistry) NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	opts.Namespace, opts.Subsystem = r.namespace, r.subsystem
	return register(prometheus.NewHistogram(opts))
}

func (r *ComponentRegistry) NewHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	opts.Namespace, opts.Subsystem = r.namespace, r.subsystem
	return register(prometheus.NewHistogramVec(opts, labels))
}

func register[C prometheus.Collector](c C) C {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
