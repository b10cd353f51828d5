// Package metrics exposes Prometheus instrumentation for the enforcement
// loop and serves it over a dedicated metrics listener.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shard_enforcer"

// Metrics bundles all collectors for the enforcement loop. Collectors are
// registered on a private registry so tests can create isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	// CyclesTotal counts completed enforcement cycles.
	CyclesTotal prometheus.Counter

	// ChecksTotal counts individual integrity checks by check name
	// (temperature, entropy, regularity).
	ChecksTotal *prometheus.CounterVec

	// ViolationsTotal counts detected violations by alert kind.
	ViolationsTotal *prometheus.CounterVec

	// ApoptosisTotal counts destructive overwrites by trigger reason.
	ApoptosisTotal *prometheus.CounterVec

	// ShardEntropyBits records the last measured Shannon entropy per shard.
	ShardEntropyBits *prometheus.GaugeVec

	// AmbientTemperature records the last probe reading in degrees Celsius.
	AmbientTemperature prometheus.Gauge

	// BaselineTemperature records the current adaptive baseline in degrees Celsius.
	BaselineTemperature prometheus.Gauge

	// CycleDuration observes wall-clock duration of enforcement cycles.
	CycleDuration prometheus.Histogram
}

// New creates a Metrics instance with all collectors registered on a
// fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed enforcement cycles.",
		}),
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Integrity checks performed, by check name.",
		}, []string{"check"}),
		ViolationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Detected integrity violations, by alert kind.",
		}, []string{"kind"}),
		ApoptosisTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "apoptosis_total",
			Help:      "Destructive shard overwrites, by trigger reason.",
		}, []string{"reason"}),
		ShardEntropyBits: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shard_entropy_bits",
			Help:      "Last measured Shannon entropy per shard, in bits per byte.",
		}, []string{"shard"}),
		AmbientTemperature: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ambient_temperature_celsius",
			Help:      "Last ambient temperature probe reading.",
		}),
		BaselineTemperature: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "baseline_temperature_celsius",
			Help:      "Current adaptive temperature baseline.",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of enforcement cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
}

// Registry returns the private registry holding all collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
