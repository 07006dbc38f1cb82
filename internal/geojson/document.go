// Package geojson reads the substation and transmission line feature
// collections exported from OpenStreetMap. The files are dirty in practice,
// coordinates appear as numbers or strings and properties come and go per
// feature, so parsing leans on loosely typed access and per-feature
// filtering instead of strict decoding.
package geojson

import (
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geo"
)

// SubstationFeature is one validated substation with its point location and
// the properties the screening map shows.
type SubstationFeature struct {
	Point    geo.GeoPoint `json:"point"`
	Name     string       `json:"name"`
	Operator string       `json:"operator"`
	Voltage  string       `json:"voltage"`
}

// LineFeature is one transmission line path with the properties that drive
// styling and popups.
type LineFeature struct {
	Path      []geo.GeoPoint `json:"path"`
	Name      string         `json:"name"`
	Operator  string         `json:"operator"`
	Voltage   string         `json:"voltage"`
	Circuits  string         `json:"circuits"`
	Cables    string         `json:"cables"`
	Frequency string         `json:"frequency"`
}

// ParseSubstations reads a GeoJSON FeatureCollection and returns the
// substation features that pass validation. The second return value counts
// the rejected features.
func ParseSubstations(data []byte) ([]SubstationFeature, int, error) {
	features, err := featureArray(data, "parse-substations")
	if err != nil {
		return nil, 0, err
	}

	kept := make([]SubstationFeature, 0, len(features))
	dropped := 0
	for _, feature := range features {
		if !ValidFeature(feature) {
			dropped++
			continue
		}
		point, ok := pointCoordinates(feature)
		if !ok {
			dropped++
			continue
		}

		props, _ := feature.GetObject("properties")
		kept = append(kept, SubstationFeature{
			Point:    point,
			Name:     propString(props, "name"),
			Operator: propString(props, "operator"),
			Voltage:  propString(props, "voltage"),
		})
	}

	return kept, dropped, nil
}

// ParseLines reads a GeoJSON FeatureCollection and returns the LineString
// features with usable paths. The second return value counts the rejected
// features.
func ParseLines(data []byte) ([]LineFeature, int, error) {
	features, err := featureArray(data, "parse-lines")
	if err != nil {
		return nil, 0, err
	}

	kept := make([]LineFeature, 0, len(features))
	dropped := 0
	for _, feature := range features {
		gtype, err := feature.GetString("geometry", "type")
		if err != nil || gtype != "LineString" {
			dropped++
			continue
		}

		path, ok := linePath(feature)
		if !ok {
			dropped++
			continue
		}

		props, _ := feature.GetObject("properties")
		kept = append(kept, LineFeature{
			Path:      path,
			Name:      propString(props, "name"),
			Operator:  propString(props, "operator"),
			Voltage:   propString(props, "voltage"),
			Circuits:  propString(props, "circuits"),
			Cables:    propString(props, "cables"),
			Frequency: propString(props, "frequency"),
		})
	}

	return kept, dropped, nil
}

// featureArray parses the document root and returns its features array.
func featureArray(data []byte, operation string) ([]*jason.Object, error) {
	root, err := jason.NewObjectFromBytes(data)
	if err != nil {
		return nil, errors.New(err).
			Component("geojson").
			Category(errors.CategoryDatasetLoad).
			Context("operation", operation).
			Build()
	}

	features, err := root.GetObjectArray("features")
	if err != nil {
		return nil, errors.Newf("document has no features array").
			Component("geojson").
			Category(errors.CategoryDatasetLoad).
			Context("operation", operation).
			Build()
	}

	return features, nil
}

// pointCoordinates extracts a Point geometry as lat/lon. GeoJSON positions
// are [lon, lat]; string components that hold numbers are tolerated.
func pointCoordinates(feature *jason.Object) (geo.GeoPoint, bool) {
	coords, err := feature.GetValueArray("geometry", "coordinates")
	if err != nil || len(coords) != 2 {
		return geo.GeoPoint{}, false
	}

	lon, ok := numericComponent(coords[0])
	if !ok {
		return geo.GeoPoint{}, false
	}
	lat, ok := numericComponent(coords[1])
	if !ok {
		return geo.GeoPoint{}, false
	}

	return geo.GeoPoint{Lat: lat, Lon: lon}, true
}

// linePath extracts a LineString geometry as an ordered lat/lon path.
func linePath(feature *jason.Object) ([]geo.GeoPoint, bool) {
	coords, err := feature.GetValueArray("geometry", "coordinates")
	if err != nil || len(coords) < 2 {
		return nil, false
	}

	path := make([]geo.GeoPoint, 0, len(coords))
	for _, c := range coords {
		pair, err := c.Array()
		if err != nil || len(pair) != 2 {
			return nil, false
		}
		lon, lonOK := numericComponent(pair[0])
		lat, latOK := numericComponent(pair[1])
		if !lonOK || !latOK {
			return nil, false
		}
		path = append(path, geo.GeoPoint{Lat: lat, Lon: lon})
	}

	return path, true
}

// numericComponent returns the float value of a coordinate component that
// is either a JSON number or a numeric string.
func numericComponent(v *jason.Value) (float64, bool) {
	if f, err := v.Float64(); err == nil {
		return f, true
	}
	if s, err := v.String(); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// propString reads a property as a string, stringifying numbers and
// booleans the way the map popups expect. Missing and null properties come
// back empty.
func propString(props *jason.Object, key string) string {
	if props == nil {
		return ""
	}
	v, err := props.GetValue(key)
	if err != nil {
		return ""
	}
	if s, err := v.String(); err == nil {
		return s
	}
	if f, err := v.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if b, err := v.Boolean(); err == nil {
		return strconv.FormatBool(b)
	}
	return ""
}
