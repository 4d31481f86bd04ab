// Package metrics exposes pipeline counters and timings for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records pipeline activity into Prometheus metrics.
type Collector struct {
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	fetchFail   *prometheus.CounterVec
	extractions *prometheus.CounterVec
	stored      *prometheus.CounterVec
	duplicates  *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "code_tracker_runs_total",
			Help: "Pipeline runs per game by final state.",
		}, []string{"game", "state"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "code_tracker_run_duration_seconds",
			Help:    "Duration of pipeline runs that passed the gate.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"game"}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "code_tracker_fetch_fail_total",
			Help: "Feed sources that could not be fetched or parsed.",
		}, []string{"game"}),
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "code_tracker_extractions_total",
			Help: "Extraction calls by outcome.",
		}, []string{"game", "outcome"}),
		stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "code_tracker_codes_stored_total",
			Help: "Newly discovered codes persisted.",
		}, []string{"game"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "code_tracker_codes_duplicate_total",
			Help: "Extracted codes that were already stored.",
		}, []string{"game"}),
	}

	reg.MustRegister(
		c.runs,
		c.runDuration,
		c.fetchFail,
		c.extractions,
		c.stored,
		c.duplicates,
	)

	return c
}

// RecordRun counts a finished run. Gated runs carry no duration.
func (c *Collector) RecordRun(game, state string, d time.Duration) {
	c.runs.WithLabelValues(game, state).Inc()
	if d > 0 {
		c.runDuration.WithLabelValues(game).Observe(d.Seconds())
	}
}

func (c *Collector) RecordFetchFailure(game string) {
	c.fetchFail.WithLabelValues(game).Inc()
}

// RecordExtraction counts one extraction attempt by outcome.
func (c *Collector) RecordExtraction(game, outcome string) {
	c.extractions.WithLabelValues(game, outcome).Inc()
}

func (c *Collector) RecordCodeStored(game string) {
	c.stored.WithLabelValues(game).Inc()
}

func (c *Collector) RecordDuplicate(game string) {
	c.duplicates.WithLabelValues(game).Inc()
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
