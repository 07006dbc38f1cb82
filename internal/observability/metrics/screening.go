// Package metrics provides screening run metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ScreeningMetrics contains Prometheus metrics for capacity screening runs
type ScreeningMetrics struct {
	// Run level metrics
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram

	// Input table metrics
	tablesTotal      *prometheus.CounterVec
	tableErrorsTotal *prometheus.CounterVec

	// Row level conversion metrics
	rowsTotal   *prometheus.CounterVec
	pointsTotal prometheus.Counter

	// Transformer parsing metrics
	transformerRowsTotal *prometheus.CounterVec
}

// NewScreeningMetrics creates and registers new screening metrics
func NewScreeningMetrics(registry *prometheus.Registry) (*ScreeningMetrics, error) {
	m := &ScreeningMetrics{}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *ScreeningMetrics) initMetrics() error {
	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_runs_total",
			Help: "Total number of screening runs",
		},
		[]string{"status"}, // status: success, error
	)

	m.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "screening_run_duration_seconds",
		Help: "Time taken to complete a screening run",
		// Runs decode, convert and persist whole tables, 10ms to ~40s
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	})

	m.tablesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_tables_total",
			Help: "Total number of capacity tables processed",
		},
		[]string{"status"}, // status: success, error
	)

	m.tableErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_table_errors_total",
			Help: "Total number of per-table failures isolated during runs",
		},
		[]string{"category"},
	)

	m.rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_rows_total",
			Help: "Total number of capacity rows by conversion outcome",
		},
		[]string{"outcome"}, // outcome: converted, missing, invalid
	)

	m.pointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screening_points_total",
		Help: "Total number of connection points produced",
	})

	m.transformerRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_transformer_rows_total",
			Help: "Total number of transformer rows by parse outcome",
		},
		[]string{"outcome"}, // outcome: parsed, failed
	)

	return nil
}

// Describe implements the Collector interface
func (m *ScreeningMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.runsTotal.Describe(ch)
	m.runDuration.Describe(ch)
	m.tablesTotal.Describe(ch)
	m.tableErrorsTotal.Describe(ch)
	m.rowsTotal.Describe(ch)
	m.pointsTotal.Describe(ch)
	m.transformerRowsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *ScreeningMetrics) Collect(ch chan<- prometheus.Metric) {
	m.runsTotal.Collect(ch)
	m.runDuration.Collect(ch)
	m.tablesTotal.Collect(ch)
	m.tableErrorsTotal.Collect(ch)
	m.rowsTotal.Collect(ch)
	m.pointsTotal.Collect(ch)
	m.transformerRowsTotal.Collect(ch)
}

// RecordRun records a completed screening run
func (m *ScreeningMetrics) RecordRun(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

// RecordRunDuration records the duration of a screening run
func (m *ScreeningMetrics) RecordRunDuration(seconds float64) {
	m.runDuration.Observe(seconds)
}

// RecordTable records a processed capacity table
func (m *ScreeningMetrics) RecordTable(status string) {
	m.tablesTotal.WithLabelValues(status).Inc()
}

// RecordTableError records an isolated per-table failure
func (m *ScreeningMetrics) RecordTableError(category string) {
	m.tableErrorsTotal.WithLabelValues(category).Inc()
}

// AddRows adds processed capacity rows for a conversion outcome
func (m *ScreeningMetrics) AddRows(outcome string, count int) {
	m.rowsTotal.WithLabelValues(outcome).Add(float64(count))
}

// AddPoints adds produced connection points
func (m *ScreeningMetrics) AddPoints(count int) {
	m.pointsTotal.Add(float64(count))
}

// AddTransformerRows adds transformer rows for a parse outcome
func (m *ScreeningMetrics) AddTransformerRows(outcome string, count int) {
	m.transformerRowsTotal.WithLabelValues(outcome).Add(float64(count))
}
