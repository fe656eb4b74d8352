// Package metrics holds the Prometheus collectors for extraction,
// regeneration and the dev server.
//
// A nil *Metrics is valid and records nothing, so packages can take one as
// an optional dependency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "pagefiles").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for extraction duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "pagefiles",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Extraction results.
const (
	ResultOK     = "ok"
	ResultError  = "error"
	ResultCached = "cached"
)

// Regeneration outcomes.
const (
	OutcomeChanged   = "changed"
	OutcomeUnchanged = "unchanged"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics is the set of pagefiles collectors.
type Metrics struct {
	extractionsTotal   *prometheus.CounterVec
	extractionDuration prometheus.Histogram
	regenerations      *prometheus.CounterVec
	pagefiles          prometheus.Gauge
	invalidPagefiles   prometheus.Gauge
	watchEvents        *prometheus.CounterVec
	reloadClients      prometheus.Gauge
}

// New registers the collectors.
//
// Metrics collected:
//   - pagefiles_extractions_total: Counter of extractions by result
//   - pagefiles_extraction_duration_seconds: Histogram of sandbox run time
//   - pagefiles_regenerations_total: Counter of regeneration passes by outcome
//   - pagefiles_registered: Gauge of records in the registry
//   - pagefiles_invalid: Gauge of records rejected by validation
//   - pagefiles_watch_events_total: Counter of file events by op
//   - pagefiles_reload_clients: Gauge of connected reload clients
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		extractionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "extractions_total",
			Help:        "Total number of metadata extractions",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		extractionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "extraction_duration_seconds",
			Help:        "Metadata extraction duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		regenerations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "regenerations_total",
			Help:        "Total number of route regeneration passes",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		pagefiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registered",
			Help:        "Number of records in the pagefile registry",
			ConstLabels: config.ConstLabels,
		}),

		invalidPagefiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "invalid",
			Help:        "Number of pagefiles rejected by validation in the last pass",
			ConstLabels: config.ConstLabels,
		}),

		watchEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watch_events_total",
			Help:        "Total number of pagefile events by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		reloadClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reload_clients",
			Help:        "Number of connected reload clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// ObserveExtraction records one sandbox run.
func (m *Metrics) ObserveExtraction(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(result).Inc()
	if result != ResultCached {
		m.extractionDuration.Observe(d.Seconds())
	}
}

// ObserveRegeneration records one regeneration pass.
func (m *Metrics) ObserveRegeneration(outcome string) {
	if m == nil {
		return
	}
	m.regenerations.WithLabelValues(outcome).Inc()
}

// SetPagefiles sets the registry size.
func (m *Metrics) SetPagefiles(n int) {
	if m == nil {
		return
	}
	m.pagefiles.Set(float64(n))
}

// SetInvalid sets the number of invalid pagefiles.
func (m *Metrics) SetInvalid(n int) {
	if m == nil {
		return
	}
	m.invalidPagefiles.Set(float64(n))
}

// ObserveWatchEvent counts a file event.
func (m *Metrics) ObserveWatchEvent(op string) {
	if m == nil {
		return
	}
	m.watchEvents.WithLabelValues(op).Inc()
}

// ReloadClientConnected increments the reload client gauge.
func (m *Metrics) ReloadClientConnected() {
	if m == nil {
		return
	}
	m.reloadClients.Inc()
}

// ReloadClientDisconnected decrements the reload client gauge.
func (m *Metrics) ReloadClientDisconnected() {
	if m == nil {
		return
	}
	m.reloadClients.Dec()
}
