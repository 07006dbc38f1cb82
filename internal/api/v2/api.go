// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/gridscreen-go/internal/buildinfo"
	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/logging"
	"github.com/tphakala/gridscreen-go/internal/screening"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings

	screening *screening.Service
	startTime time.Time

	apiLogger      *slog.Logger
	apiLevelVar    *slog.LevelVar
	apiLoggerClose func() error
}

// New creates the API controller and registers all routes on the given Echo
// instance under /api/v2.
func New(e *echo.Echo, svc *screening.Service, settings *conf.Settings) (*Controller, error) {
	if svc == nil {
		return nil, errors.Newf("api controller requires a screening service").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}
	if settings == nil {
		return nil, errors.Newf("api controller requires settings").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
	}

	c := &Controller{
		Echo:      e,
		Settings:  settings,
		screening: svc,
		startTime: time.Now(),
	}

	c.apiLevelVar = new(slog.LevelVar)
	c.apiLevelVar.Set(slog.LevelInfo)
	if settings.WebServer.Debug {
		c.apiLevelVar.Set(slog.LevelDebug)
	}

	apiLogger, closeFunc, err := logging.NewFileLogger("logs/web.log", "api", c.apiLevelVar)
	if err != nil {
		logging.Error("Failed to initialize API file logger", "error", err)
		c.apiLogger = logging.ForService("api")
		if c.apiLogger == nil {
			fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: c.apiLevelVar})
			c.apiLogger = slog.New(fbHandler).With("service", "api")
		}
		c.apiLoggerClose = func() error { return nil }
	} else {
		c.apiLogger = apiLogger
		c.apiLoggerClose = closeFunc
	}

	c.Group = e.Group("/api/v2")

	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("10M")) // uploaded capacity tables stay well under this
	c.Group.Use(c.LoggingMiddleware())

	c.initRoutes()

	return c, nil
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	c.initScreeningRoutes()
	c.initDatasetRoutes()
	c.initTransformerRoutes()
}

// LoggingMiddleware logs every API request with structured data.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}

			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}

// HealthCheck handles GET /api/v2/health.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	info := buildinfo.Get()

	response := map[string]any{
		"status":         "healthy",
		"node":           c.Settings.Main.Name,
		"version":        info.Version,
		"go_version":     info.GoVersion,
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime_seconds": time.Since(c.startTime).Seconds(),
	}
	if info.BuildDate != "" {
		response["build_date"] = info.BuildDate
	}

	switch store := c.screening.Store(); {
	case store == nil:
		response["database_status"] = "disabled"
	default:
		if _, err := store.CountRuns(); err != nil {
			response["database_status"] = "disconnected"
			response["database_error"] = err.Error()
		} else {
			response["database_status"] = "connected"
		}
	}

	return ctx.JSON(http.StatusOK, response)
}

// Shutdown releases controller resources. Call during application shutdown.
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			logging.Error("Failed to close API log file", "error", err)
		}
	}
}

// ErrorResponse is the JSON shape of every API error.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates an API error response with a fresh correlation ID.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error tracking.
// The all-zero ID marks the case where no randomness was available.
func generateCorrelationID() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b[:])
}

// HandleError logs and returns a JSON error response with the given status.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("API Error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorResp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)

	return ctx.JSON(code, errorResp)
}

// statusForError maps error categories to HTTP status codes: client data
// problems become 400, missing resources 404, everything else 500.
func statusForError(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation),
		errors.IsCategory(err, errors.CategoryTableDecode),
		errors.IsCategory(err, errors.CategoryMissingColumn),
		errors.IsCategory(err, errors.CategoryGeometryParse):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
