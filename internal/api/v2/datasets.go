// internal/api/v2/datasets.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/gridscreen-go/internal/geojson"
	"github.com/tphakala/gridscreen-go/internal/styling"
)

// initDatasetRoutes registers the static dataset endpoints.
func (c *Controller) initDatasetRoutes() {
	c.Group.GET("/substations", c.GetSubstations)
	c.Group.GET("/lines", c.GetLines)
	c.Group.GET("/datasets", c.GetDatasetStatus)
	c.Group.POST("/datasets/refresh", c.RefreshDatasets)
}

// lineWithStyle pairs a transmission line feature with its voltage-derived
// display style.
type lineWithStyle struct {
	geojson.LineFeature
	Style styling.StyleTier `json:"style"`
}

// GetSubstations handles GET /api/v2/substations. Features rejected by the
// dataset validator never reach this endpoint, the loader filters them at
// parse time.
func (c *Controller) GetSubstations(ctx echo.Context) error {
	data, err := c.screening.Datasets().Substations(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load substation dataset", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, data)
}

// GetLines handles GET /api/v2/lines. Each feature carries the style tier
// derived from its voltage so map clients need no styling logic of their own.
func (c *Controller) GetLines(ctx echo.Context) error {
	data, err := c.screening.Datasets().Lines(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load line dataset", statusForError(err))
	}

	styled := make([]lineWithStyle, 0, len(data.Features))
	for i := range data.Features {
		styled = append(styled, lineWithStyle{
			LineFeature: data.Features[i],
			Style:       styling.StyleFor(data.Features[i].Voltage),
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"features":   styled,
		"provenance": data.Provenance,
	})
}

// GetDatasetStatus handles GET /api/v2/datasets.
func (c *Controller) GetDatasetStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.screening.Datasets().CurrentStatus())
}

// RefreshDatasets handles POST /api/v2/datasets/refresh. It drops every
// cached dataset and reloads both from their sources.
func (c *Controller) RefreshDatasets(ctx echo.Context) error {
	loader := c.screening.Datasets()
	loader.Invalidate()

	if err := loader.Preload(ctx.Request().Context()); err != nil {
		return c.HandleError(ctx, err, "Dataset refresh failed", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"status":   "refreshed",
		"datasets": loader.CurrentStatus(),
	})
}
