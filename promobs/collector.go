package promobs

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/awaitstate/state"
)

// StatsSource provides metrics snapshots for collection. Every
// *state.Map[K, V] satisfies it.
type StatsSource interface {
	Metrics() state.MetricsSnapshot
}

// Collector exposes a Map's counters as Prometheus metrics, reading a
// fresh snapshot on every scrape. It is not auto-registered; pass it to
// prometheus.Registerer.MustRegister.
type Collector struct {
	src StatsSource

	entries       *prometheus.Desc
	waitersParked *prometheus.Desc

	puts            *prometheus.Desc
	sets            *prometheus.Desc
	updates         *prometheus.Desc
	removes         *prometheus.Desc
	waitsStarted    *prometheus.Desc
	waitsSatisfied  *prometheus.Desc
	waitsCancelled  *prometheus.Desc
	waitsKeyMissing *prometheus.Desc
}

// NewCollector creates a Collector for src. mapName is attached to every
// metric as the "map" label so multiple stores can share a registry.
func NewCollector(mapName string, src StatsSource, opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	labels := prometheus.Labels{"map": mapName}
	for k, v := range config.ConstLabels {
		labels[k] = v
	}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(config.Namespace, config.Subsystem, name),
			help, nil, labels,
		)
	}

	return &Collector{
		src:             src,
		entries:         desc("entries", "Number of entries currently in the store"),
		waitersParked:   desc("waiters_parked", "Number of goroutines currently parked in WaitUntil"),
		puts:            desc("puts_total", "Total number of Put operations"),
		sets:            desc("sets_total", "Total number of Set operations"),
		updates:         desc("updates_total", "Total number of Update operations"),
		removes:         desc("removes_total", "Total number of Remove operations"),
		waitsStarted:    desc("waits_started_total", "Total number of WaitUntil calls"),
		waitsSatisfied:  desc("waits_satisfied_total", "Total number of waits resolved by a satisfied predicate"),
		waitsCancelled:  desc("waits_cancelled_total", "Total number of waits resolved by context cancellation"),
		waitsKeyMissing: desc("waits_key_missing_total", "Total number of waits resolved by key absence or removal"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.waitersParked
	ch <- c.puts
	ch <- c.sets
	ch <- c.updates
	ch <- c.removes
	ch <- c.waitsStarted
	ch <- c.waitsSatisfied
	ch <- c.waitsCancelled
	ch <- c.waitsKeyMissing
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.src.Metrics()

	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(snap.Entries))
	ch <- prometheus.MustNewConstMetric(c.waitersParked, prometheus.GaugeValue, float64(snap.WaitersParked))
	ch <- prometheus.MustNewConstMetric(c.puts, prometheus.CounterValue, float64(snap.Puts))
	ch <- prometheus.MustNewConstMetric(c.sets, prometheus.CounterValue, float64(snap.Sets))
	ch <- prometheus.MustNewConstMetric(c.updates, prometheus.CounterValue, float64(snap.Updates))
	ch <- prometheus.MustNewConstMetric(c.removes, prometheus.CounterValue, float64(snap.Removes))
	ch <- prometheus.MustNewConstMetric(c.waitsStarted, prometheus.CounterValue, float64(snap.WaitsStarted))
	ch <- prometheus.MustNewConstMetric(c.waitsSatisfied, prometheus.CounterValue, float64(snap.WaitsSatisfied))
	ch <- prometheus.MustNewConstMetric(c.waitsCancelled, prometheus.CounterValue, float64(snap.WaitsCancelled))
	ch <- prometheus.MustNewConstMetric(c.waitsKeyMissing, prometheus.CounterValue, float64(snap.WaitsKeyMissing))
}
