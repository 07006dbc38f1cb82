package geojson

import "github.com/antonholmquist/jason"

// ValidFeature reports whether a raw feature is usable as a substation:
// Point geometry with exactly two clean coordinate components, a known
// voltage and at least one of name or operator.
func ValidFeature(feature *jason.Object) bool {
	return RejectReason(feature) == ""
}

// RejectReason explains why a feature fails substation validation. It
// returns the empty string for a feature that passes, otherwise the first
// failing check in evaluation order.
func RejectReason(feature *jason.Object) string {
	if feature == nil {
		return "feature is not an object"
	}

	geom, err := feature.GetObject("geometry")
	if err != nil {
		return "no geometry"
	}
	gtype, err := geom.GetString("type")
	if err != nil || gtype != "Point" {
		return "geometry is not a Point"
	}

	coords, err := geom.GetValueArray("coordinates")
	if err != nil || len(coords) != 2 {
		return "coordinates are not a two component position"
	}
	for _, c := range coords {
		if !cleanComponent(c) {
			return "coordinate is null or a placeholder"
		}
	}

	props, err := feature.GetObject("properties")
	if err != nil {
		props = nil
	}
	if propString(props, "voltage") == "" {
		return "no voltage property"
	}
	if propString(props, "name") == "" && propString(props, "operator") == "" {
		return "no name or operator property"
	}

	return ""
}

// FeatureVerdict is the validation outcome for one feature of a document.
// Reason is empty when the feature passed.
type FeatureVerdict struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ValidateDocument runs the substation validator across every feature of a
// FeatureCollection and returns a per-feature verdict, in document order.
func ValidateDocument(data []byte) ([]FeatureVerdict, error) {
	features, err := featureArray(data, "validate")
	if err != nil {
		return nil, err
	}

	verdicts := make([]FeatureVerdict, 0, len(features))
	for i, feature := range features {
		props, _ := feature.GetObject("properties")
		name := propString(props, "name")
		if name == "" {
			name = propString(props, "operator")
		}
		verdicts = append(verdicts, FeatureVerdict{
			Index:  i,
			Name:   name,
			Reason: RejectReason(feature),
		})
	}

	return verdicts, nil
}

// cleanComponent screens out the null and sentinel placeholder values that
// appear in coordinate arrays. Numbers pass unchecked.
func cleanComponent(v *jason.Value) bool {
	if v == nil {
		return false
	}
	if err := v.Null(); err == nil {
		return false
	}
	if s, err := v.String(); err == nil {
		return s != "" && s != "N/A"
	}
	return true
}
