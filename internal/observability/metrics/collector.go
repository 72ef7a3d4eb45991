// Package metrics exposes Prometheus collectors for the refresh cycle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// Collector holds the cycle metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	cycleDuration prometheus.Histogram
	cyclesTotal   *prometheus.CounterVec
	rowsExtracted *prometheus.GaugeVec
	rowsLoaded    *prometheus.GaugeVec
	lastSuccess   prometheus.Gauge
}

// NewCollector registers the cycle metrics plus Go runtime collectors.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "lotus_dashboard_cycle_duration_seconds",
			Help:    "Duration of a full extract, transform and load cycle.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
		}),
		cyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lotus_dashboard_cycles_total",
			Help: "Refresh cycles by result.",
		}, []string{"result"}),
		rowsExtracted: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lotus_dashboard_rows_extracted",
			Help: "Rows read from each source table in the last cycle.",
		}, []string{"table"}),
		rowsLoaded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lotus_dashboard_rows_loaded",
			Help: "Rows written to each reporting table in the last successful cycle.",
		}, []string{"table"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lotus_dashboard_last_success_timestamp_seconds",
			Help: "Unix time of the last successful cycle.",
		}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveCycle records the outcome of one cycle.
func (c *Collector) ObserveCycle(result string, duration time.Duration, finished time.Time) {
	if c == nil {
		return
	}
	c.cyclesTotal.WithLabelValues(result).Inc()
	if result == ResultSkipped {
		return
	}
	c.cycleDuration.Observe(duration.Seconds())
	if result == ResultSuccess {
		c.lastSuccess.Set(float64(finished.Unix()))
	}
}

// SetRowsExtracted records per-table source row counts.
func (c *Collector) SetRowsExtracted(counts map[string]int) {
	if c == nil {
		return
	}
	for table, n := range counts {
		c.rowsExtracted.WithLabelValues(table).Set(float64(n))
	}
}

// SetRowsLoaded records per-table destination row counts.
func (c *Collector) SetRowsLoaded(counts map[string]int) {
	if c == nil {
		return
	}
	for table, n := range counts {
		c.rowsLoaded.WithLabelValues(table).Set(float64(n))
	}
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
