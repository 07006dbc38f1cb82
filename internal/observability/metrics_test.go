package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/observability/metrics"
)

// TestNewMetricsConcurrency verifies that NewMetrics can be called concurrently
// without causing race conditions
func TestNewMetricsConcurrency(t *testing.T) {
	const numGoroutines = 50

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if err != nil {
				t.Errorf("NewMetrics failed: %v", err)
				return
			}
			if m == nil {
				t.Error("NewMetrics returned nil")
				return
			}

			if m.registry == nil {
				t.Error("metrics.registry is nil")
			}
			if m.Screening == nil {
				t.Error("metrics.Screening is nil")
			}
			if m.Dataset == nil {
				t.Error("metrics.Dataset is nil")
			}
			if m.Datastore == nil {
				t.Error("metrics.Datastore is nil")
			}
		})
	}

	wg.Wait()
}

func TestMetricsEndpointServesCollectors(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Screening.RecordRun(metrics.LabelSuccess)
	m.Screening.AddRows(metrics.LabelConverted, 12)
	m.Dataset.RecordLoad(metrics.LabelSubstations, metrics.LabelFile, metrics.LabelSuccess)
	m.Dataset.UpdateFeatureCounts(metrics.LabelSubstations, 40, 3)
	m.Datastore.RecordOperation(metrics.OpRunSave, metrics.LabelSuccess)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	exposition := string(body)
	assert.Contains(t, exposition, `screening_runs_total{status="success"} 1`)
	assert.Contains(t, exposition, `screening_rows_total{outcome="converted"} 12`)
	assert.Contains(t, exposition, `dataset_features{dataset="substations"} 40`)
	assert.Contains(t, exposition, `dataset_dropped_features{dataset="substations"} 3`)
	assert.Contains(t, exposition, `datastore_operations_total{operation="run_save",status="success"} 1`)
}

func TestNewEndpoint(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	t.Run("disabled telemetry is rejected", func(t *testing.T) {
		settings := &conf.Settings{}
		settings.Telemetry.Enabled = false

		_, err := NewEndpoint(settings, m)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	})

	t.Run("enabled telemetry builds an endpoint", func(t *testing.T) {
		settings := &conf.Settings{}
		settings.Telemetry.Enabled = true
		settings.Telemetry.Listen = "127.0.0.1:0"

		endpoint, err := NewEndpoint(settings, m)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:0", endpoint.listenAddress)
		assert.Same(t, m, endpoint.GetMetrics())
	})
}
