// Package errors provides categorized errors with component detection and
// optional telemetry reporting.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorCategory groups errors for reporting and category-based matching.
type ErrorCategory string

const (
	// Screening data errors. One failure never aborts the batch it belongs to:
	// missing-column rejects a single table, geometry-parse drops a single row,
	// invalid-coordinate drops a single record, missing-data degrades one field.
	CategoryMissingColumn     ErrorCategory = "missing-column"
	CategoryGeometryParse     ErrorCategory = "geometry-parse"
	CategoryInvalidCoordinate ErrorCategory = "invalid-coordinate"
	CategoryMissingData       ErrorCategory = "missing-data"
	CategoryProjection        ErrorCategory = "projection"
	CategoryTableDecode       ErrorCategory = "table-decode"
	CategoryDatasetLoad       ErrorCategory = "dataset-load"

	// Service errors
	CategoryValidation     ErrorCategory = "validation"
	CategoryFileIO         ErrorCategory = "file-io"
	CategoryNetwork        ErrorCategory = "network"
	CategoryDatabase       ErrorCategory = "database"
	CategoryHTTP           ErrorCategory = "http-request"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryMQTTConnection ErrorCategory = "mqtt-connection"
	CategoryMQTTPublish    ErrorCategory = "mqtt-publish"
	CategoryNotification   ErrorCategory = "notification"
	CategorySystem         ErrorCategory = "system-resource"
	CategoryGeneric        ErrorCategory = "generic"
	CategoryNotFound       ErrorCategory = "not-found"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryCancellation   ErrorCategory = "cancellation"
)

// Priority levels accepted by ErrorBuilder.Priority. The telemetry reporter
// maps them to event severity.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is the component name when detection finds nothing.
const ComponentUnknown = "unknown"

const ownPackagePath = "github.com/tphakala/gridscreen-go/internal/errors"

// EnhancedError carries an error together with the component it came from,
// a category for grouping, and structured context for reporting.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Priority  string
	Context   map[string]any
	Timestamp time.Time

	component string // lazily detected when empty
	detected  bool
	reported  bool
	mu        sync.RWMutex
}

// Error returns the wrapped error's message.
func (ee *EnhancedError) Error() string { return ee.Err.Error() }

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is treats two enhanced errors with the same category as equal; any other
// target is matched against the wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name, running stack detection on first
// use when no component was set.
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	component, done := ee.component, ee.detected
	ee.mu.RUnlock()
	if done || component != "" {
		return component
	}

	ee.mu.Lock()
	defer ee.mu.Unlock()
	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
		ee.detected = true
	}
	return ee.component
}

// GetCategory returns the category as a plain string.
func (ee *EnhancedError) GetCategory() string { return string(ee.Category) }

// GetPriority returns the explicit priority, or empty when none was set.
func (ee *EnhancedError) GetPriority() string { return ee.Priority }

// GetContext returns a detached copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}
	clone := make(map[string]any, len(ee.Context))
	maps.Copy(clone, ee.Context)
	return clone
}

// GetTimestamp returns when the error was built.
func (ee *EnhancedError) GetTimestamp() time.Time { return ee.Timestamp }

// GetError returns the wrapped error.
func (ee *EnhancedError) GetError() error { return ee.Err }

// MarkReported records that telemetry has already sent this error.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported returns whether MarkReported has been called.
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder assembles an EnhancedError step by step. Zero values are
// filled in at Build time.
type ErrorBuilder struct {
	err       error
	category  ErrorCategory
	component string
	priority  string
	context   map[string]any
}

// New starts a builder around an existing error.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder around a freshly formatted error.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component names the component the error belongs to, skipping detection.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category assigns the error category.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets the reporting priority. Unknown non-empty values degrade to
// medium rather than dropping the error.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		if priority != "" {
			eb.priority = PriorityMedium
		}
	}
	return eb
}

func (eb *ErrorBuilder) ensureContext() map[string]any {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	return eb.context
}

// Context attaches one key-value pair of context data.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	eb.ensureContext()[key] = value
	return eb
}

// TableContext attaches uploaded-table context: the source label and the row
// the failure occurred in. Negative rows mean the position is unknown.
func (eb *ErrorBuilder) TableContext(sourceLabel string, row int) *ErrorBuilder {
	ctx := eb.ensureContext()
	if sourceLabel != "" {
		ctx["source_label"] = sourceLabel
	}
	if row >= 0 {
		ctx["row"] = row
	}
	return eb
}

// NetworkContext attaches network context. The URL is reduced to its protocol
// class so no hostnames or paths reach telemetry.
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	if url != "" {
		eb.ensureContext()["url_category"] = categorizeURL(url)
	}
	if timeout > 0 {
		eb.ensureContext()["timeout_seconds"] = timeout.Seconds()
	}
	return eb
}

// Build finalizes the error. Component and category detection walk the call
// stack, so they only run when a telemetry reporter will see the result;
// without one, unset fields fall back to unknown/generic.
func (eb *ErrorBuilder) Build() *EnhancedError {
	active := hasActiveReporting.Load()
	if active {
		if eb.component == "" {
			eb.component = detectComponent()
		}
		if eb.category == "" {
			eb.category = detectCategory(eb.err, eb.component)
		}
	}
	if eb.component == "" {
		eb.component = ComponentUnknown
	}
	if eb.category == "" {
		eb.category = CategoryGeneric
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: eb.component,
		detected:  true,
	}
	if active {
		reportToTelemetry(ee)
	}
	return ee
}

// TelemetryReporter receives enhanced errors when telemetry is enabled.
// The telemetry package registers an implementation at startup; this package
// stays free of SDK imports.
type TelemetryReporter interface {
	ReportError(ee *EnhancedError)
	IsEnabled() bool
}

var (
	hasActiveReporting atomic.Bool
	reporterMutex      sync.RWMutex
	activeReporter     TelemetryReporter
)

// SetTelemetryReporter registers the active telemetry reporter. Passing nil
// disables reporting and restores the fast path in Build.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMutex.Lock()
	defer reporterMutex.Unlock()
	activeReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMutex.RLock()
	reporter := activeReporter
	reporterMutex.RUnlock()

	if reporter != nil && reporter.IsEnabled() && !ee.IsReported() {
		reporter.ReportError(ee)
	}
}

// Component detection maps caller package paths to component names.
var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

func registerComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	registerComponent("projection", "projection")
	registerComponent("internal/geo", "geo")
	registerComponent("geojson", "geojson")
	registerComponent("capacity", "capacity")
	registerComponent("transformer", "transformer")
	registerComponent("styling", "styling")
	registerComponent("dataset", "dataset")
	registerComponent("datastore", "datastore")
	registerComponent("screening", "screening")
	registerComponent("export", "export")
	registerComponent("httpclient", "httpclient")
	registerComponent("internal/api", "api")
	registerComponent("conf", "configuration")
	registerComponent("mqtt", "mqtt")
	registerComponent("notify", "notify")
	registerComponent("telemetry", "telemetry")
	registerComponent("diagnostics", "diagnostics")
}

// detectComponent resolves the component from the call stack. Builder calls
// sit a few frames up, so those depths are probed before paying for a full
// stack walk.
func detectComponent() string {
	for depth := 4; depth <= 7; depth++ {
		pc, _, _, ok := runtime.Caller(depth)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		name := fn.Name()
		if strings.Contains(name, ownPackagePath) {
			continue
		}
		if c := componentForFunc(name); c != ComponentUnknown {
			return c
		}
	}
	return walkStackForComponent()
}

func walkStackForComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		name := frame.Function
		if name != "" && !strings.Contains(name, ownPackagePath) {
			if c := componentForFunc(name); c != ComponentUnknown {
				return c
			}
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// componentForFunc matches a fully qualified function name against the
// registry, falling back to the function's package name.
func componentForFunc(funcName string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	for pattern, component := range componentRegistry {
		if strings.Contains(funcName, pattern) {
			return component
		}
	}

	parts := strings.Split(funcName, "/")
	last := parts[len(parts)-1]
	if dot := strings.Index(last, "."); dot > 0 {
		return last[:dot]
	}
	return ComponentUnknown
}

// categoryHints map error-message fragments to categories. Order matters:
// the first match wins, so data-shape hints come before the broad I/O and
// validation ones.
var categoryHints = []struct {
	needle string
	cat    ErrorCategory
}{
	{"column", CategoryMissingColumn},
	{"linestring", CategoryGeometryParse},
	{"wkt", CategoryGeometryParse},
	{"geometry", CategoryGeometryParse},
	{"latitude", CategoryInvalidCoordinate},
	{"longitude", CategoryInvalidCoordinate},
	{"coordinate", CategoryInvalidCoordinate},
	{"file", CategoryFileIO},
	{"read", CategoryFileIO},
	{"open", CategoryFileIO},
	{"connection", CategoryNetwork},
	{"timeout", CategoryNetwork},
	{"validation", CategoryValidation},
	{"invalid", CategoryValidation},
}

var componentCategories = map[string]ErrorCategory{
	"projection":    CategoryProjection,
	"geo":           CategoryGeometryParse,
	"capacity":      CategoryTableDecode,
	"dataset":       CategoryDatasetLoad,
	"datastore":     CategoryDatabase,
	"api":           CategoryHTTP,
	"configuration": CategoryConfiguration,
}

// detectCategory picks a category for an error that was built without one.
func detectCategory(err error, component string) ErrorCategory {
	var enhanced *EnhancedError
	if stderrors.As(err, &enhanced) && enhanced.Category != "" {
		return enhanced.Category
	}

	msg := strings.ToLower(err.Error())
	for _, hint := range categoryHints {
		if strings.Contains(msg, hint.needle) {
			return hint.cat
		}
	}

	if cat, ok := componentCategories[component]; ok {
		return cat
	}
	return CategoryGeneric
}

// categorizeURL reduces a URL to its protocol class for telemetry.
func categorizeURL(url string) string {
	url = strings.ToLower(url)
	switch {
	case strings.HasPrefix(url, "http://"):
		return "http-endpoint"
	case strings.HasPrefix(url, "https://"):
		return "https-endpoint"
	case strings.HasPrefix(url, "tcp://"), strings.HasPrefix(url, "ssl://"), strings.HasPrefix(url, "mqtt://"):
		return "broker-endpoint"
	default:
		return "other-protocol"
	}
}

// Standard library passthroughs, so callers only import one errors package.

// NewStd returns a plain error without builder metadata.
func NewStd(text string) error { return stderrors.New(text) }

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree matching target's type.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Unwrap returns err's wrapped error, if any.
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// Join combines multiple errors into one.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// IsCategory reports whether err is or wraps an EnhancedError with the given
// category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhanced *EnhancedError
	return As(err, &enhanced) && enhanced.Category == category
}

// IsNotFound reports whether err carries CategoryNotFound.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
