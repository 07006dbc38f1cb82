// Package metrics provides persistence metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics covers database operations, transactions and persisted
// point volume.
type DatastoreMetrics struct {
	// Operation metrics
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec

	// Transaction metrics
	transactionsTotal *prometheus.CounterVec

	// Data volume metrics
	savedPointsTotal prometheus.Counter
}

// NewDatastoreMetrics builds the datastore collectors and registers them.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics builds the metric vectors.
func (m *DatastoreMetrics) initMetrics() error {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_operations_total",
			Help: "Total number of datastore operations",
		},
		[]string{"operation", "status"}, // status: success, error
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "datastore_operation_duration_seconds",
			Help: "Time taken for datastore operations",
			// Fast queries take 1ms, bulk run saves can reach seconds
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_errors_total",
			Help: "Total number of datastore errors",
		},
		[]string{"operation", "category"},
	)

	m.transactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datastore_transactions_total",
			Help: "Total number of datastore transactions",
		},
		[]string{"status"}, // status: committed, rolled_back
	)

	m.savedPointsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "datastore_saved_points_total",
		Help: "Total number of connection points persisted",
	})

	return nil
}

// Describe implements the Collector interface
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.errorsTotal.Describe(ch)
	m.transactionsTotal.Describe(ch)
	m.savedPointsTotal.Describe(ch)
}

// Collect implements the Collector interface
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.errorsTotal.Collect(ch)
	m.transactionsTotal.Collect(ch)
	m.savedPointsTotal.Collect(ch)
}

// RecordOperation records a datastore operation
func (m *DatastoreMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration records the duration of a datastore operation
func (m *DatastoreMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError records a datastore error
func (m *DatastoreMetrics) RecordError(operation, category string) {
	m.errorsTotal.WithLabelValues(operation, category).Inc()
}

// RecordTransaction records a datastore transaction outcome
func (m *DatastoreMetrics) RecordTransaction(status string) {
	m.transactionsTotal.WithLabelValues(status).Inc()
}

// AddSavedPoints adds persisted connection points
func (m *DatastoreMetrics) AddSavedPoints(count int) {
	m.savedPointsTotal.Add(float64(count))
}
