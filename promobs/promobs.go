// Package promobs exports store activity to Prometheus.
//
// It offers two integration points: Observer, an observability.Observer
// that counts events as they are emitted, and Collector, which scrapes a
// Map's counter snapshot on collection. They can be used independently or
// together.
package promobs

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tailored-agentic-units/awaitstate/observability"
)

// Config configures the Prometheus integration.
type Config struct {
	// Namespace is the metrics namespace (default: "awaitstate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus integration.
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

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:   "awaitstate",
		Subsystem:   "",
		ConstLabels: nil,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// Observer counts store events by type and severity. It implements
// observability.Observer and is typically combined with a SlogObserver
// through observability.NewMultiObserver.
type Observer struct {
	eventsTotal *prometheus.CounterVec
}

// NewObserver creates an Observer and registers its metrics with the
// configured registry. Registering two Observers with the same namespace
// on the same registry panics, as with any duplicate Prometheus
// registration; use WithRegistry in tests.
func NewObserver(opts ...Option) *Observer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Observer{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of store events by type and severity",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "level"}),
	}
}

func (o *Observer) OnEvent(ctx context.Context, event observability.Event) {
	o.eventsTotal.WithLabelValues(string(event.Type), event.Level.String()).Inc()
}
