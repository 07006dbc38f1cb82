// Package export writes screened connection points to CSV or GeoJSON. The
// writers take an io.Writer so the CLI can target files and stdout alike;
// WriteRunFile adds the settings-driven file placement used after a run.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tphakala/gridscreen-go/internal/capacity"
	"github.com/tphakala/gridscreen-go/internal/conf"
	"github.com/tphakala/gridscreen-go/internal/datastore"
	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geo"
)

// Format selects the output encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat validates a format name from config or a CLI flag.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatGeoJSON:
		return FormatGeoJSON, nil
	default:
		return "", errors.Newf("unsupported export format %q, expected csv or geojson", name).
			Component("export").
			Category(errors.CategoryValidation).
			Context("format", name).
			Build()
	}
}

// Write encodes the points in the requested format.
func Write(w io.Writer, format Format, points []capacity.ConnectionPoint) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, points)
	case FormatGeoJSON:
		return WriteGeoJSON(w, points)
	default:
		return errors.Newf("unsupported export format %q", string(format)).
			Component("export").
			Category(errors.CategoryValidation).
			Build()
	}
}

// csvHeader is the column order of the CSV export.
var csvHeader = []string{
	"name", "province", "municipality", "latitude", "longitude",
	"voltage_kv", "capacity_available_mw", "capacity_occupied_mw",
	"utilization_pct", "no_capacity", "source_label",
}

// WriteCSV writes the points as comma-separated rows. Absent optional values
// stay empty cells, they are never written as zero.
func WriteCSV(w io.Writer, points []capacity.ConnectionPoint) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return csvError(err)
	}

	for i := range points {
		p := &points[i]
		record := []string{
			p.Name,
			p.Province,
			p.Municipality,
			strconv.FormatFloat(p.Location.Lat, 'f', 6, 64),
			strconv.FormatFloat(p.Location.Lon, 'f', 6, 64),
			optionalCell(p.VoltageKV),
			optionalCell(p.AvailableMW),
			optionalCell(p.OccupiedMW),
			strconv.FormatFloat(p.UtilizationPct, 'f', -1, 64),
			strconv.FormatBool(p.NoCapacity),
			p.SourceLabel,
		}
		if err := writer.Write(record); err != nil {
			return csvError(err)
		}
	}

	writer.Flush()
	return csvError(writer.Error())
}

func optionalCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func csvError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(err).
		Component("export").
		Category(errors.CategoryFileIO).
		Context("format", string(FormatCSV)).
		Build()
}

// featureCollection is the GeoJSON document shape of the export.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   pointGeometry   `json:"geometry"`
	Properties pointProperties `json:"properties"`
}

type pointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // lon, lat per RFC 7946
}

type pointProperties struct {
	Name           string   `json:"name,omitempty"`
	Province       string   `json:"province,omitempty"`
	Municipality   string   `json:"municipality,omitempty"`
	VoltageKV      *float64 `json:"voltage_kv,omitempty"`
	AvailableMW    *float64 `json:"capacity_available_mw,omitempty"`
	OccupiedMW     *float64 `json:"capacity_occupied_mw,omitempty"`
	UtilizationPct float64  `json:"utilization_pct"`
	NoCapacity     bool     `json:"no_capacity"`
	SourceLabel    string   `json:"source_label,omitempty"`
}

// WriteGeoJSON writes the points as an RFC 7946 FeatureCollection.
func WriteGeoJSON(w io.Writer, points []capacity.ConnectionPoint) error {
	doc := featureCollection{
		Type:     "FeatureCollection",
		Features: make([]feature, 0, len(points)),
	}

	for i := range points {
		p := &points[i]
		doc.Features = append(doc.Features, feature{
			Type: "Feature",
			Geometry: pointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{p.Location.Lon, p.Location.Lat},
			},
			Properties: pointProperties{
				Name:           p.Name,
				Province:       p.Province,
				Municipality:   p.Municipality,
				VoltageKV:      p.VoltageKV,
				AvailableMW:    p.AvailableMW,
				OccupiedMW:     p.OccupiedMW,
				UtilizationPct: p.UtilizationPct,
				NoCapacity:     p.NoCapacity,
				SourceLabel:    p.SourceLabel,
			},
		})
	}

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(&doc); err != nil {
		return errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("format", string(FormatGeoJSON)).
			Build()
	}
	return nil
}

// FromStored converts persisted run points back to connection points so the
// export writers serve the datastore-backed CLI path too.
func FromStored(points []datastore.Point) []capacity.ConnectionPoint {
	out := make([]capacity.ConnectionPoint, 0, len(points))
	for i := range points {
		p := &points[i]
		out = append(out, capacity.ConnectionPoint{
			Location:       geo.GeoPoint{Lat: p.Latitude, Lon: p.Longitude},
			Name:           p.Name,
			Province:       p.Province,
			Municipality:   p.Municipality,
			VoltageKV:      p.VoltageKV,
			AvailableMW:    p.AvailableMW,
			OccupiedMW:     p.OccupiedMW,
			UtilizationPct: p.UtilizationPct,
			NoCapacity:     p.NoCapacity,
			SourceLabel:    p.SourceLabel,
		})
	}
	return out
}

// WriteRunFile writes a run's points to the configured export directory,
// named after the run. Returns the written path, or empty when exporting is
// disabled.
func WriteRunFile(settings *conf.Settings, runID string, points []capacity.ConnectionPoint) (string, error) {
	exportSettings := settings.Output.Export
	if !exportSettings.Enabled {
		return "", nil
	}

	format, err := ParseFormat(exportSettings.Format)
	if err != nil {
		return "", err
	}

	dir := conf.GetBasePath(exportSettings.Path)
	path := filepath.Join(dir, fmt.Sprintf("screening_%s.%s", runID, format))

	file, err := os.Create(path)
	if err != nil {
		return "", errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	if err := Write(file, format, points); err != nil {
		_ = file.Close()
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", errors.New(err).
			Component("export").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	return path, nil
}
