// Package serve implements the gridscreen serve command, the long-running
// HTTP API server with its dataset cache and optional collaborators.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	api "github.com/tphakala/gridscreen-go/internal/api/v2"
	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/dataset"
	"github.com/tphakala/gridscreen-go/internal/datastore"
	"github.com/tphakala/gridscreen-go/internal/logging"
	"github.com/tphakala/gridscreen-go/internal/mqtt"
	"github.com/tphakala/gridscreen-go/internal/notify"
	"github.com/tphakala/gridscreen-go/internal/observability"
	"github.com/tphakala/gridscreen-go/internal/screening"
	"github.com/tphakala/gridscreen-go/internal/telemetry"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the screening API server",
		Long:  "Start the HTTP API server together with the dataset cache and, when enabled, the Prometheus metrics endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port for the HTTP API server")
	cmd.Flags().BoolVar(&settings.Telemetry.Enabled, "telemetry", viper.GetBool("telemetry.enabled"), "Enable Prometheus telemetry endpoint")
	cmd.Flags().StringVar(&settings.Telemetry.Listen, "listen", viper.GetString("telemetry.listen"), "Listen address and port of telemetry endpoint")

	// Bind flags to the viper settings
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}

	return nil
}

// runServer wires the service components together and blocks until a
// termination signal arrives or the HTTP server fails.
func runServer(settings *conf.Settings) error {
	// Initialize Prometheus metrics manager
	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("error initializing metrics: %w", err)
	}

	// Initialize database access. A nil store means no database output is
	// enabled and runs stay unpersisted.
	store := datastore.New(settings)
	if store != nil {
		store.SetMetrics(metrics.Datastore)
		if err := store.Open(); err != nil {
			return err
		}
		defer closeStore(store)
	}

	// Dataset loader with its in-memory cache, sources come from the settings.
	loader := dataset.New(settings, nil, metrics.Dataset)

	svc, err := screening.New(settings, store, loader, metrics.Screening)
	if err != nil {
		return err
	}

	// Optional collaborators. An unreachable broker or notification
	// transport must not stop the server.
	if settings.MQTT.Enabled {
		attachPublisher(svc, settings)
	}
	if settings.Notification.Enabled {
		attachNotifier(svc, settings)
	}

	// Opt-in Sentry error tracking.
	if err := telemetry.Init(settings); err != nil {
		logging.Warn("Telemetry initialization failed", "error", err)
	}
	telemetry.InitializeErrorIntegration()
	defer telemetry.Flush(3 * time.Second)

	// Warm the dataset cache so the first map request does not pay the
	// load. Sources that fail here retry on demand.
	preloadCtx, cancelPreload := context.WithTimeout(context.Background(), time.Minute)
	if err := loader.Preload(preloadCtx); err != nil {
		logging.Warn("Dataset preload failed, loading stays on demand", "error", err)
		telemetry.CaptureMessage("Dataset preload failed at startup, loading stays on demand",
			sentry.LevelWarning, "dataset")
	}
	cancelPreload()

	// quitChan is used to signal the goroutines to stop.
	quitChan := make(chan struct{})
	var wg sync.WaitGroup

	// Initialize and start the HTTP API server.
	e := echo.New()
	e.HideBanner = true
	controller, err := api.New(e, svc, settings)
	if err != nil {
		return err
	}

	errChan := make(chan error, 1)
	wg.Go(func() {
		addr := ":" + settings.WebServer.Port
		fmt.Printf("🚀 GridScreen API listening on %s\n", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	})

	// start telemetry endpoint
	startTelemetryEndpoint(&wg, settings, metrics, quitChan)

	// Wait for a quit signal or a server failure, whichever comes first.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived %v signal, shutting down\n", sig)
	case err := <-errChan:
		logging.Error("HTTP server error", "error", err)
		telemetry.CaptureError(err, "webserver")
		runErr = err
	}
	close(quitChan)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server shutdown error", "error", err)
	}
	controller.Shutdown()
	wg.Wait()

	return runErr
}

// attachPublisher connects the MQTT summary publisher. The paho client keeps
// retrying in the background, so the publisher attaches even when the first
// connect fails.
func attachPublisher(svc *screening.Service, settings *conf.Settings) {
	client, err := mqtt.NewClient(settings)
	if err != nil {
		logging.Warn("MQTT client setup failed, summaries will not be published", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		logging.Warn("MQTT broker not reachable yet",
			"error", err,
			"broker", settings.MQTT.Broker)
	}

	svc.SetPublisher(client)
}

// attachNotifier wires the shoutrrr notification sender.
func attachNotifier(svc *screening.Service, settings *conf.Settings) {
	sender, err := notify.New(settings)
	if err != nil {
		logging.Warn("Notification setup failed, run notifications disabled", "error", err)
		return
	}

	svc.SetNotifier(sender)
	logging.Info("Run notifications enabled", "services", sender.Services())
}

// startTelemetryEndpoint initializes and starts the Prometheus metrics
// listener when telemetry is enabled.
func startTelemetryEndpoint(wg *sync.WaitGroup, settings *conf.Settings, metrics *observability.Metrics, quitChan chan struct{}) {
	if !settings.Telemetry.Enabled {
		return
	}

	endpoint, err := observability.NewEndpoint(settings, metrics)
	if err != nil {
		logging.Warn("Telemetry endpoint setup failed", "error", err)
		return
	}
	endpoint.Start(wg, quitChan)
}

// closeStore closes the database connection and logs a failure.
func closeStore(store datastore.Interface) {
	if err := store.Close(); err != nil {
		logging.Error("Failed to close database", "error", err)
	}
}
