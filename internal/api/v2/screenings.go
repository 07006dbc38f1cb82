// internal/api/v2/screenings.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/gridscreen-go/internal/datastore"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/export"
	"github.com/tphakala/gridscreen-go/internal/geo"
	"github.com/tphakala/gridscreen-go/internal/screening"
)

// initScreeningRoutes registers the screening run endpoints.
func (c *Controller) initScreeningRoutes() {
	c.Group.POST("/screenings", c.CreateScreening)
	c.Group.GET("/screenings", c.ListScreenings)
	c.Group.GET("/screenings/:id", c.GetScreening)
	c.Group.GET("/screenings/:id/points", c.GetScreeningPoints)
	c.Group.DELETE("/screenings/:id", c.DeleteScreening)
	c.Group.GET("/map/center", c.MapCenter)
}

// CreateScreening handles POST /api/v2/screenings. It accepts one or more
// capacity tables as multipart files under the "tables" field, runs the
// screening and returns the run summary. A table that fails to decode is
// reported in the summary without failing the run, the whole request fails
// only when no table yields data.
func (c *Controller) CreateScreening(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return c.HandleError(ctx, err, "Invalid multipart form", http.StatusBadRequest)
	}

	files := form.File["tables"]
	if len(files) == 0 {
		err := errors.Newf("no capacity tables uploaded").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
		return c.HandleError(ctx, err, "At least one file is required in the tables field", http.StatusBadRequest)
	}

	inputs := make([]screening.TableInput, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return c.HandleError(ctx, err, "Failed to read uploaded file", http.StatusBadRequest)
		}
		defer f.Close()
		inputs = append(inputs, screening.TableInput{Label: fh.Filename, Reader: f})
	}

	result, err := c.screening.Run(ctx.Request().Context(), inputs)
	if err != nil {
		return c.HandleError(ctx, err, "Screening run failed", statusForError(err))
	}

	if c.Settings.Output.Export.Enabled {
		if path, err := export.WriteRunFile(c.Settings, result.RunID, result.Points); err != nil {
			c.apiLogger.Warn("Automatic export failed", "run_id", result.RunID, "error", err)
		} else if path != "" {
			c.apiLogger.Info("Exported screening run", "run_id", result.RunID, "path", path)
		}
	}

	return ctx.JSON(http.StatusOK, result)
}

// ListScreenings handles GET /api/v2/screenings with limit/offset pagination.
func (c *Controller) ListScreenings(ctx echo.Context) error {
	store := c.screening.Store()
	if store == nil {
		err := errors.Newf("no database output is enabled").
			Component("api").
			Category(errors.CategoryNotFound).
			Build()
		return c.HandleError(ctx, err, "Run history requires a database output", http.StatusNotFound)
	}

	limit := queryInt(ctx, "limit", 20)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}
	offset := queryInt(ctx, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	runs, err := store.ListRuns(limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list screening runs", statusForError(err))
	}

	total, err := store.CountRuns()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to count screening runs", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"runs":   runs,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetScreening handles GET /api/v2/screenings/:id.
func (c *Controller) GetScreening(ctx echo.Context) error {
	store := c.screening.Store()
	if store == nil {
		err := errors.Newf("no database output is enabled").
			Component("api").
			Category(errors.CategoryNotFound).
			Build()
		return c.HandleError(ctx, err, "Run history requires a database output", http.StatusNotFound)
	}

	run, err := store.GetRun(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get screening run", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, run)
}

// DeleteScreening handles DELETE /api/v2/screenings/:id. The run, its table
// outcomes and its points are removed together.
func (c *Controller) DeleteScreening(ctx echo.Context) error {
	store := c.screening.Store()
	if store == nil {
		err := errors.Newf("no database output is enabled").
			Component("api").
			Category(errors.CategoryNotFound).
			Build()
		return c.HandleError(ctx, err, "Run history requires a database output", http.StatusNotFound)
	}

	id := ctx.Param("id")
	if err := store.DeleteRun(id); err != nil {
		return c.HandleError(ctx, err, "Failed to delete screening run", statusForError(err))
	}

	c.apiLogger.Info("Screening run deleted", "run_id", id)
	return ctx.NoContent(http.StatusNoContent)
}

// GetScreeningPoints handles GET /api/v2/screenings/:id/points. Query
// parameters narrow the result set, absent parameters leave their
// constraint off.
func (c *Controller) GetScreeningPoints(ctx echo.Context) error {
	store := c.screening.Store()
	if store == nil {
		err := errors.Newf("no database output is enabled").
			Component("api").
			Category(errors.CategoryNotFound).
			Build()
		return c.HandleError(ctx, err, "Run history requires a database output", http.StatusNotFound)
	}

	filter := datastore.PointFilter{
		Province:     ctx.QueryParam("province"),
		Municipality: ctx.QueryParam("municipality"),
		SourceLabel:  ctx.QueryParam("source"),
	}

	if v := ctx.QueryParam("min_voltage"); v != "" {
		minV, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid min_voltage parameter", http.StatusBadRequest)
		}
		filter.MinVoltageKV = &minV
	}
	if v := ctx.QueryParam("max_voltage"); v != "" {
		maxV, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid max_voltage parameter", http.StatusBadRequest)
		}
		filter.MaxVoltageKV = &maxV
	}
	if v := ctx.QueryParam("available_only"); v != "" {
		avail, err := strconv.ParseBool(v)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid available_only parameter", http.StatusBadRequest)
		}
		filter.AvailableOnly = avail
	}

	runID := ctx.Param("id")
	points, err := store.PointsForRun(runID, filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get screening points", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"run_id": runID,
		"count":  len(points),
		"points": points,
	})
}

// MapCenter handles GET /api/v2/map/center?run=. It returns the viewport
// center for a run's points, or the configured fallback center when the run
// produced none.
func (c *Controller) MapCenter(ctx echo.Context) error {
	runID := ctx.QueryParam("run")
	if runID == "" {
		err := errors.Newf("missing run parameter").
			Component("api").
			Category(errors.CategoryValidation).
			Build()
		return c.HandleError(ctx, err, "The run query parameter is required", http.StatusBadRequest)
	}

	store := c.screening.Store()
	if store == nil {
		err := errors.Newf("no database output is enabled").
			Component("api").
			Category(errors.CategoryNotFound).
			Build()
		return c.HandleError(ctx, err, "Run history requires a database output", http.StatusNotFound)
	}

	points, err := store.PointsForRun(runID, datastore.PointFilter{})
	if err != nil {
		return c.HandleError(ctx, err, "Failed to get screening points", statusForError(err))
	}

	locations := make([]geo.GeoPoint, 0, len(points))
	for i := range points {
		locations = append(locations, geo.GeoPoint{Lat: points[i].Latitude, Lon: points[i].Longitude})
	}
	center := c.screening.MapCenter(locations)

	return ctx.JSON(http.StatusOK, map[string]any{
		"latitude":  center.Lat,
		"longitude": center.Lon,
		"points":    len(locations),
	})
}

// queryInt parses an integer query parameter, falling back to the default on
// absence or garbage.
func queryInt(ctx echo.Context, name string, defaultValue int) int {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
