// Package observability provides Prometheus metrics functionality for monitoring
// the GridScreen-Go application. Sentry-related error telemetry is handled in the
// telemetry package.
package observability

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
)

// Metrics bundles the per-domain collectors behind one private registry, so
// the exposition carries only what this application registers.
type Metrics struct {
	registry  *prometheus.Registry
	Screening *metrics.ScreeningMetrics
	Dataset   *metrics.DatasetMetrics
	Datastore *metrics.DatastoreMetrics
}

// NewMetrics builds the registry with every collector attached.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	screeningMetrics, err := metrics.NewScreeningMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating screening metrics: %w", err)
	}
	datasetMetrics, err := metrics.NewDatasetMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating dataset metrics: %w", err)
	}
	datastoreMetrics, err := metrics.NewDatastoreMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("creating datastore metrics: %w", err)
	}

	return &Metrics{
		registry:  registry,
		Screening: screeningMetrics,
		Dataset:   datasetMetrics,
		Datastore: datastoreMetrics,
	}, nil
}

// RegisterHandlers mounts the /metrics exposition endpoint on the given mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	handler := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      log.New(os.Stderr, "metrics handler: ", log.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	mux.Handle("/metrics", handler)
}
