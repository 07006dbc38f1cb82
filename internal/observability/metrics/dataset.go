// Package metrics provides dataset loader metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatasetMetrics contains Prometheus metrics for static dataset loading
type DatasetMetrics struct {
	// Load metrics
	loadsTotal   *prometheus.CounterVec
	loadDuration *prometheus.HistogramVec

	// Remote fetch metrics
	fetchesTotal  *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	// Cache behavior metrics
	cacheEventsTotal *prometheus.CounterVec

	// Feature quality gauges, updated on every successful load
	featuresGauge        *prometheus.GaugeVec
	droppedFeaturesGauge *prometheus.GaugeVec
}

// NewDatasetMetrics creates and registers new dataset metrics
func NewDatasetMetrics(registry *prometheus.Registry) (*DatasetMetrics, error) {
	m := &DatasetMetrics{}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *DatasetMetrics) initMetrics() error {
	m.loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_loads_total",
			Help: "Total number of dataset load operations",
		},
		[]string{"dataset", "source", "status"}, // source: file, url; status: success, error
	)

	m.loadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataset_load_duration_seconds",
			Help: "Time taken to load and parse a dataset",
			// Local parses are milliseconds, remote loads can take seconds
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"dataset"},
	)

	m.fetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_fetches_total",
			Help: "Total number of remote dataset fetch attempts",
		},
		[]string{"dataset", "result"}, // result: fetched, not_modified, error
	)

	m.fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "dataset_fetch_duration_seconds",
			Help: "Time taken for remote dataset fetches",
			// Remote endpoints answer between 100ms and ~100s
			Buckets: prometheus.ExponentialBuckets(BucketStart100ms, BucketFactor2, BucketCount10),
		},
		[]string{"dataset"},
	)

	m.cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_cache_events_total",
			Help: "Total number of dataset cache events",
		},
		[]string{"dataset", "event"}, // event: hit, miss, invalidate
	)

	m.featuresGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_features",
			Help: "Number of features kept by the last load of a dataset",
		},
		[]string{"dataset"},
	)

	m.droppedFeaturesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_dropped_features",
			Help: "Number of features rejected by the last load of a dataset",
		},
		[]string{"dataset"},
	)

	return nil
}

// Describe implements the Collector interface
func (m *DatasetMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.loadsTotal.Describe(ch)
	m.loadDuration.Describe(ch)
	m.fetchesTotal.Describe(ch)
	m.fetchDuration.Describe(ch)
	m.cacheEventsTotal.Describe(ch)
	m.featuresGauge.Describe(ch)
	m.droppedFeaturesGauge.Describe(ch)
}

// Collect implements the Collector interface
func (m *DatasetMetrics) Collect(ch chan<- prometheus.Metric) {
	m.loadsTotal.Collect(ch)
	m.loadDuration.Collect(ch)
	m.fetchesTotal.Collect(ch)
	m.fetchDuration.Collect(ch)
	m.cacheEventsTotal.Collect(ch)
	m.featuresGauge.Collect(ch)
	m.droppedFeaturesGauge.Collect(ch)
}

// RecordLoad records a dataset load operation
func (m *DatasetMetrics) RecordLoad(dataset, source, status string) {
	m.loadsTotal.WithLabelValues(dataset, source, status).Inc()
}

// RecordLoadDuration records the duration of a dataset load
func (m *DatasetMetrics) RecordLoadDuration(dataset string, seconds float64) {
	m.loadDuration.WithLabelValues(dataset).Observe(seconds)
}

// RecordFetch records a remote dataset fetch attempt
func (m *DatasetMetrics) RecordFetch(dataset, result string) {
	m.fetchesTotal.WithLabelValues(dataset, result).Inc()
}

// RecordFetchDuration records the duration of a remote dataset fetch
func (m *DatasetMetrics) RecordFetchDuration(dataset string, seconds float64) {
	m.fetchDuration.WithLabelValues(dataset).Observe(seconds)
}

// RecordCacheEvent records a dataset cache event
func (m *DatasetMetrics) RecordCacheEvent(dataset, event string) {
	m.cacheEventsTotal.WithLabelValues(dataset, event).Inc()
}

// UpdateFeatureCounts updates the kept and dropped feature gauges for a dataset
func (m *DatasetMetrics) UpdateFeatureCounts(dataset string, kept, dropped int) {
	m.featuresGauge.WithLabelValues(dataset).Set(float64(kept))
	m.droppedFeaturesGauge.WithLabelValues(dataset).Set(float64(dropped))
}
