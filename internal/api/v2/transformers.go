// internal/api/v2/transformers.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/screening"
	"github.com/tphakala/gridscreen-go/internal/transformer"
)

// initTransformerRoutes registers the transformer table endpoint.
func (c *Controller) initTransformerRoutes() {
	c.Group.POST("/transformers", c.ParseTransformers)
}

// ParseTransformers handles POST /api/v2/transformers. It accepts one
// transformer capacity table as a multipart file under the "table" field and
// returns the parsed records with row-level issues isolated. Query parameters
// id, voltage (repeatable) and min_rating narrow the returned records.
func (c *Controller) ParseTransformers(ctx echo.Context) error {
	fh, err := ctx.FormFile("table")
	if err != nil {
		wrapped := errors.New(err).
			Component("api").
			Category(errors.CategoryValidation).
			Build()
		return c.HandleError(ctx, wrapped, "A file is required in the table field", http.StatusBadRequest)
	}

	filter := transformer.Filter{
		IDSubstring: ctx.QueryParam("id"),
	}

	for _, raw := range ctx.QueryParams()["voltage"] {
		voltage, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid voltage parameter", http.StatusBadRequest)
		}
		filter.Voltages = append(filter.Voltages, voltage)
	}

	if raw := ctx.QueryParam("min_rating"); raw != "" {
		minRating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid min_rating parameter", http.StatusBadRequest)
		}
		filter.MinRatingMVA = &minRating
	}

	f, err := fh.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read uploaded file", http.StatusBadRequest)
	}
	defer f.Close()

	input := screening.TableInput{Label: fh.Filename, Reader: f}
	result, err := c.screening.ParseTransformers(ctx.Request().Context(), input, filter)
	if err != nil {
		return c.HandleError(ctx, err, "Transformer table parsing failed", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, result)
}
