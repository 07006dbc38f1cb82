// Package transformer parses transformer table exports whose rows carry a
// WKT line geometry between two buses. Bad rows are reported with their row
// index and skipped, the batch itself always completes.
package transformer

import (
	"math"
	"regexp"
	"strings"

	"github.com/tphakala/gridscreen-go/internal/capacity"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geo"
)

// Transformer table headers. Only the geometry column is mandatory.
const (
	ColGeometry    = "geometry"
	ColID          = "transformer_id"
	ColBus0        = "bus0"
	ColBus1        = "bus1"
	ColVoltageBus0 = "voltage_bus0"
	ColVoltageBus1 = "voltage_bus1"
	ColRating      = "s_nom"
)

// autoName matches the placeholder headers the CSV reader assigns to
// unnamed columns.
var autoName = regexp.MustCompile(`^column_\d+$`)

// Record is one transformer with its resolved line geometry. Start, End
// and Midpoint always derive from Geometry, they are never stored apart
// from it.
type Record struct {
	ID            string
	Bus0          string
	Bus1          string
	VoltageBus0KV *float64
	VoltageBus1KV *float64
	RatingMVA     *float64
	Geometry      *geo.LineGeometry
}

// Start returns the bus0 end of the line.
func (r *Record) Start() geo.GeoPoint { return r.Geometry.Start() }

// End returns the bus1 end of the line.
func (r *Record) End() geo.GeoPoint { return r.Geometry.End() }

// Midpoint returns the marker location for the transformer.
func (r *Record) Midpoint() geo.GeoPoint { return r.Geometry.Midpoint() }

// RowError reports one row whose geometry could not be parsed.
type RowError struct {
	Row int // zero-based data row index
	Err error
}

func (e RowError) Error() string { return e.Err.Error() }

// columnMap resolves the transformer table layout once per table.
type columnMap struct {
	geometry     int
	continuation int // unnamed column holding the geometry overflow, -1 if none
	id           int
	bus0         int
	bus1         int
	voltageBus0  int
	voltageBus1  int
	rating       int
}

func resolveColumns(t *capacity.RawTable) (*columnMap, error) {
	index := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		index[strings.TrimSpace(h)] = i
	}

	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	cm := &columnMap{
		geometry:     lookup(ColGeometry),
		continuation: -1,
		id:           lookup(ColID),
		bus0:         lookup(ColBus0),
		bus1:         lookup(ColBus1),
		voltageBus0:  lookup(ColVoltageBus0),
		voltageBus1:  lookup(ColVoltageBus1),
		rating:       lookup(ColRating),
	}

	if cm.geometry < 0 {
		return nil, errors.Newf("missing required column %q", ColGeometry).
			Component("transformer").
			Category(errors.CategoryMissingColumn).
			TableContext(t.Label, -1).
			Context("column", ColGeometry).
			Build()
	}

	// A geometry split by the exporting spreadsheet spills into the next,
	// unnamed column.
	if next := cm.geometry + 1; next < len(t.Header) && autoName.MatchString(t.Header[next]) {
		cm.continuation = next
	}

	return cm, nil
}

// ParseRecords reads every row of a transformer table. Rows whose geometry
// fails to parse are returned as RowErrors alongside the good records; a
// table without a geometry column fails as a whole.
func ParseRecords(t *capacity.RawTable) ([]Record, []RowError, error) {
	cm, err := resolveColumns(t)
	if err != nil {
		return nil, nil, err
	}

	records := make([]Record, 0, len(t.Rows))
	var rowErrs []RowError

	for i, row := range t.Rows {
		raw := cell(row, cm.geometry)
		if cm.continuation >= 0 {
			raw = geo.ReassembleWKT(raw, cell(row, cm.continuation))
		}

		line, err := geo.ParseLineString(raw)
		if err != nil {
			rowErrs = append(rowErrs, RowError{
				Row: i,
				Err: errors.New(err).
					Component("transformer").
					Category(errors.CategoryGeometryParse).
					TableContext(t.Label, i).
					Build(),
			})
			continue
		}

		records = append(records, Record{
			ID:            strings.TrimSpace(cell(row, cm.id)),
			Bus0:          strings.TrimSpace(cell(row, cm.bus0)),
			Bus1:          strings.TrimSpace(cell(row, cm.bus1)),
			VoltageBus0KV: optionalNumber(cell(row, cm.voltageBus0)),
			VoltageBus1KV: optionalNumber(cell(row, cm.voltageBus1)),
			RatingMVA:     optionalNumber(cell(row, cm.rating)),
			Geometry:      line,
		})
	}

	return records, rowErrs, nil
}

func cell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}

func optionalNumber(raw string) *float64 {
	v := capacity.ParseNumber(raw)
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
