package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Standard histogram buckets
var (
	// DurationBuckets: 100ms to 30min for whole-tree deletions
	DurationBuckets = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 1800}

	// EntryBuckets: tree sizes from a handful of entries to millions
	EntryBuckets = []float64{10, 100, 1000, 10000, 100000, 1000000}

	// APIBuckets: 10ms to 10s for HTTP request durations
	APIBuckets = []float64{0.01, 0.1, 0.5, 1, 5, 10}
)

// NewDurationHistogram creates a histogram for tracking durations in seconds
func NewDurationHistogram(name, help string) prometheus.Histogram {
	return prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: DurationBuckets,
	})
}

// NewCounter creates a standard counter metric
func NewCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: help,
	})
}

// NewCounterVec creates a labeled counter
func NewCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, labels)
}

// NewGauge creates a standard gauge metric
func NewGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	})
}

// NewGaugeVec creates a labeled gauge
func NewGaugeVec(name, help string, labels []string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, labels)
}
