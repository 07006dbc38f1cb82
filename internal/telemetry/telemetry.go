// Package telemetry provides opt-in, privacy-compliant error tracking via Sentry.
// Nothing is sent unless the operator explicitly enables telemetry and supplies
// a DSN; every outgoing event passes a scrub hook that strips user, host and
// device data first.
package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/gridscreen-go/internal/buildinfo"
	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/logging"
)

var (
	telemetryLogger   *slog.Logger
	telemetryLevelVar = new(slog.LevelVar)

	// initialized flips once sentry.Init has succeeded for this process
	initialized atomic.Bool
)

func init() {
	var err error
	telemetryLevelVar.Set(slog.LevelInfo)

	telemetryLogger, _, err = logging.NewFileLogger("logs/telemetry.log", "telemetry", telemetryLevelVar)
	if err != nil {
		logging.Error("Failed to initialize telemetry file logger", "error", err)
		telemetryLogger = logging.ForService("telemetry")
		if telemetryLogger == nil {
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: telemetryLevelVar})
			telemetryLogger = slog.New(fbHandler).With("service", "telemetry")
		}
	}
}

// Init initializes the Sentry SDK when telemetry is enabled in the settings.
// Telemetry is strictly opt-in: with Sentry disabled this is a no-op and the
// whole package stays inert.
func Init(settings *conf.Settings) error {
	if !settings.Sentry.Enabled {
		telemetryLogger.Info("Telemetry is disabled (opt-in required)")
		return nil
	}

	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.Sentry.DSN,
		SampleRate: 1.0,

		// Privacy-compliant settings
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // explicitly clear to prevent hostname leakage

		Release: buildinfo.Release(),

		BeforeSend: scrubEvent,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry-init").
			Build()
	}

	configureScope()
	initialized.Store(true)

	telemetryLogger.Info("Telemetry initialized",
		"release", buildinfo.Release(),
		"environment", "production")

	return nil
}

// scrubEvent is the BeforeSend hook. It removes everything that could
// identify the installation: user data, server name, device and OS contexts,
// and any extra fields beyond the error itself.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}

// configureScope attaches application metadata to every event.
func configureScope() {
	info := buildinfo.Get()

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("go_version", info.GoVersion)

		scope.SetContext("application", map[string]any{
			"name":    "GridScreen-Go",
			"version": info.Version,
			"commit":  info.GetCommit(),
		})
	})
}

// Enabled reports whether the SDK has been initialized for this process.
func Enabled() bool {
	return initialized.Load()
}

// CaptureError reports an error with component context. Call sites that
// already build enhanced errors do not need this; the registered reporter
// picks those up automatically.
func CaptureError(err error, component string) {
	if !initialized.Load() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetContext("error", map[string]any{
			"type": fmt.Sprintf("%T", err),
		})
		scope.SetFingerprint([]string{component, err.Error()})
		sentry.CaptureException(err)
	})

	telemetryLogger.Debug("Error event sent", "component", component)
}

// CaptureMessage reports a plain message at the given level.
func CaptureMessage(message string, level sentry.Level, component string) {
	if !initialized.Load() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", component)
		scope.SetLevel(level)
		sentry.CaptureMessage(message)
	})
}

// Flush blocks until all buffered events have been sent or the timeout
// expires. Call before process exit so late errors are not lost.
func Flush(timeout time.Duration) {
	if !initialized.Load() {
		return
	}
	sentry.Flush(timeout)
}
