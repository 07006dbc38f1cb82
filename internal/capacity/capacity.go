// Package capacity normalizes uploaded REE capacity exports into connection
// point records. Tables are merged across uploads with per-record source
// labels; a broken table is reported and skipped without stopping the rest
// of the batch.
package capacity

import (
	"strings"

	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geo"
	"github.com/tphakala/gridscreen-go/internal/projection"
)

// RawTable is one uploaded capacity table after CSV decoding.
type RawTable struct {
	Label    string // originating file name, carried into every record
	Header   []string
	Rows     [][]string
	Encoding string // character encoding the upload decoded with
}

// ConnectionPoint is one normalized grid connection point. Optional fields
// are nil when the source table lacked the column or the cell held no
// usable value.
type ConnectionPoint struct {
	Location       geo.GeoPoint `json:"location"`
	Name           string       `json:"name,omitempty"`
	Province       string       `json:"province,omitempty"`
	Municipality   string       `json:"municipality,omitempty"`
	VoltageKV      *float64     `json:"voltage_kv,omitempty"`
	AvailableMW    *float64     `json:"capacity_available_mw,omitempty"`
	OccupiedMW     *float64     `json:"capacity_occupied_mw,omitempty"`
	UtilizationPct float64      `json:"utilization_pct"`
	NoCapacity     bool         `json:"no_capacity"`
	SourceLabel    string       `json:"source_label"`
}

// TableError reports one table that could not be processed.
type TableError struct {
	Label string
	Err   error
}

func (e TableError) Error() string {
	return e.Label + ": " + e.Err.Error()
}

// Result is the outcome of one normalization pass over a batch of tables.
// Dropped rows are counted, not reported row by row.
type Result struct {
	Points      []ConnectionPoint
	TableErrors []TableError
	RowsTotal   int // data rows in the tables that were processed
	RowsMissing int // rows without a usable coordinate pair
	RowsInvalid int // rows whose conversion left the WGS84 envelope
}

// Normalize merges a batch of uploaded tables into one connection point
// set. Each table resolves its own column mapping; a table that fails
// contributes an entry to TableErrors and the remaining tables still
// process.
func Normalize(conv *projection.Converter, tables []*RawTable) *Result {
	result := &Result{}

	for _, table := range tables {
		points, missing, invalid, err := normalizeTable(conv, table)
		if err != nil {
			result.TableErrors = append(result.TableErrors, TableError{Label: table.Label, Err: err})
			continue
		}
		result.Points = append(result.Points, points...)
		result.RowsTotal += len(table.Rows)
		result.RowsMissing += missing
		result.RowsInvalid += invalid
	}

	return result
}

func normalizeTable(conv *projection.Converter, t *RawTable) (points []ConnectionPoint, missing, invalid int, err error) {
	if len(t.Rows) == 0 {
		return nil, 0, 0, errors.Newf("table has no data rows").
			Component("capacity").
			Category(errors.CategoryTableDecode).
			TableContext(t.Label, -1).
			Build()
	}

	cm, err := resolveColumns(t)
	if err != nil {
		return nil, 0, 0, err
	}

	eastings := make([]float64, len(t.Rows))
	northings := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		eastings[i] = ParseNumber(cell(row, cm.utmX))
		northings[i] = ParseNumber(cell(row, cm.utmY))
	}

	converted := conv.ConvertAll(eastings, northings)
	points = make([]ConnectionPoint, 0, len(converted))
	for i, pr := range converted {
		switch pr.Status {
		case projection.StatusMissing:
			missing++
			continue
		case projection.StatusInvalid:
			invalid++
			continue
		}

		row := t.Rows[i]
		point := ConnectionPoint{
			Location:    pr.Point,
			SourceLabel: t.Label,
		}
		if cm.name >= 0 {
			point.Name = strings.TrimSpace(cell(row, cm.name))
		}
		if cm.province >= 0 {
			point.Province = strings.TrimSpace(cell(row, cm.province))
		}
		if cm.municipality >= 0 {
			point.Municipality = strings.TrimSpace(cell(row, cm.municipality))
		}
		if cm.voltage >= 0 {
			point.VoltageKV = parseOptional(cell(row, cm.voltage))
		}
		if cm.available >= 0 {
			point.AvailableMW = parseOptional(cell(row, cm.available))
		}
		if cm.occupied >= 0 {
			point.OccupiedMW = parseOptional(cell(row, cm.occupied))
		}
		point.UtilizationPct, point.NoCapacity = Utilization(point.AvailableMW, point.OccupiedMW)

		points = append(points, point)
	}

	return points, missing, invalid, nil
}

// Utilization derives the occupancy percentage and the no-capacity flag.
// Missing capacity values count as zero inside this computation only,
// stored fields keep their absent state.
func Utilization(available, occupied *float64) (pct float64, noCapacity bool) {
	var avail, occ float64
	if available != nil {
		avail = *available
	}
	if occupied != nil {
		occ = *occupied
	}
	if total := avail + occ; total > 0 {
		pct = occ / total * 100
	}
	return pct, avail <= 0
}
