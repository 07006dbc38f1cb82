package observability

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/logging"
	metricspkg "github.com/tphakala/gridscreen-go/internal/observability/metrics"
)

var (
	endpointLogger   *slog.Logger
	endpointLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	endpointLevelVar.Set(slog.LevelInfo)

	endpointLogger, _, err = logging.NewFileLogger("logs/telemetry.log", "telemetry", endpointLevelVar)
	if err != nil {
		logging.Error("Failed to initialize telemetry file logger", "error", err)
		endpointLogger = logging.ForService("telemetry")
		if endpointLogger == nil {
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: endpointLevelVar})
			endpointLogger = slog.New(fbHandler).With("service", "telemetry")
		}
	}
}

// Endpoint serves the Prometheus metrics listener.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
}

// NewEndpoint creates a new metrics Endpoint from the telemetry settings.
// It returns an error when the telemetry endpoint is disabled. The provided
// Metrics instance is served, not copied, so collectors registered on it keep
// feeding the endpoint.
func NewEndpoint(settings *conf.Settings, m *Metrics) (*Endpoint, error) {
	if !settings.Telemetry.Enabled {
		return nil, errors.Newf("telemetry endpoint not enabled in settings").
			Component("observability").
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &Endpoint{
		listenAddress: settings.Telemetry.Listen,
		metrics:       m,
	}, nil
}

// Start runs the HTTP server for the metrics endpoint in its own goroutine
// and shuts it down when quitChan closes.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	e.server = &http.Server{
		Addr:    e.listenAddress,
		Handler: mux,
	}

	wg.Go(func() {
		endpointLogger.Info("Telemetry endpoint starting", "address", e.listenAddress)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			endpointLogger.Error("Telemetry HTTP server error", "error", err)
		}
	})

	go e.gracefulShutdown(quitChan)
}

// gracefulShutdown waits for the quit signal and shuts down the server gracefully.
func (e *Endpoint) gracefulShutdown(quitChan <-chan struct{}) {
	<-quitChan
	endpointLogger.Info("Stopping telemetry server")
	ctx, cancel := context.WithTimeout(context.Background(), metricspkg.ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		endpointLogger.Error("Telemetry server shutdown error", "error", err)
	}
}

// GetMetrics returns the Metrics instance served by this Endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
