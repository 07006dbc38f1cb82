package geo

import (
	"strconv"
	"strings"

	"github.com/tphakala/gridscreen-go/internal/errors"
)

const lineStringKeyword = "LINESTRING"

// Clean strips surrounding whitespace and wrapping quote pairs from a raw
// cell value. Spreadsheet exports quote geometry cells, sometimes twice.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return s
}

// ReassembleWKT joins a geometry cell with its continuation cells. CSV
// exports split LINESTRING values that contain commas across the geometry
// column and an unnamed adjacent column; joining the cleaned parts with a
// comma restores the original text.
func ReassembleWKT(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		c := Clean(part)
		if c == "" {
			continue
		}
		cleaned = append(cleaned, c)
	}
	return strings.Join(cleaned, ",")
}

// ParseLineString parses a WKT LINESTRING into a LineGeometry. The keyword
// match is case-insensitive and wrapping quotes are tolerated. Vertices are
// "x y" pairs where x is longitude and y is latitude. Lines with fewer than
// two vertices are rejected.
func ParseLineString(raw string) (*LineGeometry, error) {
	s := Clean(raw)
	if s == "" {
		return nil, errors.Newf("empty geometry value").
			Component("geo").
			Category(errors.CategoryGeometryParse).
			Build()
	}

	if len(s) < len(lineStringKeyword) || !strings.EqualFold(s[:len(lineStringKeyword)], lineStringKeyword) {
		return nil, errors.Newf("geometry is not a LINESTRING").
			Component("geo").
			Category(errors.CategoryGeometryParse).
			Context("value", truncateValue(s)).
			Build()
	}

	body := strings.TrimSpace(s[len(lineStringKeyword):])
	if !strings.HasPrefix(body, "(") || !strings.HasSuffix(body, ")") {
		return nil, errors.Newf("LINESTRING is missing its coordinate list").
			Component("geo").
			Category(errors.CategoryGeometryParse).
			Context("value", truncateValue(s)).
			Build()
	}
	body = body[1 : len(body)-1]

	rawVertices := strings.Split(body, ",")
	points := make([]GeoPoint, 0, len(rawVertices))
	for i, rawVertex := range rawVertices {
		fields := strings.Fields(rawVertex)
		if len(fields) != 2 {
			return nil, errors.Newf("vertex %d has %d components, expected 2", i, len(fields)).
				Component("geo").
				Category(errors.CategoryGeometryParse).
				Context("vertex", strings.TrimSpace(rawVertex)).
				Build()
		}

		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, errors.Newf("vertex %d has a non-numeric x component %q", i, fields[0]).
				Component("geo").
				Category(errors.CategoryGeometryParse).
				Build()
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, errors.Newf("vertex %d has a non-numeric y component %q", i, fields[1]).
				Component("geo").
				Category(errors.CategoryGeometryParse).
				Build()
		}

		points = append(points, GeoPoint{Lat: y, Lon: x})
	}

	if len(points) < 2 {
		return nil, errors.Newf("LINESTRING has %d vertices, at least 2 are required", len(points)).
			Component("geo").
			Category(errors.CategoryGeometryParse).
			Build()
	}

	return &LineGeometry{Points: points}, nil
}

// truncateValue shortens long geometry strings for error context.
func truncateValue(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
