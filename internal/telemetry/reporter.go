// Package telemetry - integration with the error handling system
package telemetry

import (
	"github.com/getsentry/sentry-go"

	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
)

// Reporter forwards enhanced errors to Sentry. It implements
// errors.TelemetryReporter so the errors package never imports the SDK.
type Reporter struct {
	enabled bool
}

// NewReporter creates a reporter with the given enabled state.
func NewReporter(enabled bool) *Reporter {
	return &Reporter{enabled: enabled}
}

// IsEnabled implements errors.TelemetryReporter.
func (r *Reporter) IsEnabled() bool {
	return r.enabled
}

// ReportError implements errors.TelemetryReporter. Component and category
// become tags so events group by failure site, and the error context rides
// along for debugging.
func (r *Reporter) ReportError(ee *errors.EnhancedError) {
	if !r.enabled || !initialized.Load() {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(severityFor(ee.GetPriority()))
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", ee.GetCategory())

		details := ee.GetContext()
		if details == nil {
			details = make(map[string]any, 1)
		}
		details["occurred_at"] = ee.GetTimestamp()
		scope.SetContext("details", details)

		// Group on where and what kind, not the raw message, so transient
		// values in messages do not split issues
		scope.SetFingerprint([]string{ee.GetComponent(), ee.GetCategory()})

		sentry.CaptureException(ee.GetError())
	})

	ee.MarkReported()

	telemetryLogger.Debug("Enhanced error reported",
		"component", ee.GetComponent(),
		"category", ee.GetCategory())
}

// severityFor maps an explicit error priority to a Sentry level.
// Unprioritized errors report as plain errors.
func severityFor(priority string) sentry.Level {
	switch priority {
	case errors.PriorityCritical:
		return sentry.LevelFatal
	case errors.PriorityLow:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

// InitializeErrorIntegration registers the reporter with the errors package,
// enabled according to the current settings. Call after Init.
func InitializeErrorIntegration() {
	settings := conf.GetSettings()
	enabled := settings != nil && settings.Sentry.Enabled

	errors.SetTelemetryReporter(NewReporter(enabled))
}
