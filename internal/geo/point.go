// Package geo provides the geographic primitives used by capacity screening:
// WGS84 points, transmission line geometries and the WKT parsing needed to
// read line exports.
package geo

// GeoPoint is a WGS84 coordinate pair in decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// InRange reports whether the point lies within the valid WGS84 envelope.
func (p GeoPoint) InRange() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// LineGeometry is an ordered sequence of vertices describing a transmission
// line path.
type LineGeometry struct {
	Points []GeoPoint
}

// Start returns the first vertex of the line.
func (l *LineGeometry) Start() GeoPoint {
	return l.Points[0]
}

// End returns the last vertex of the line.
func (l *LineGeometry) End() GeoPoint {
	return l.Points[len(l.Points)-1]
}

// Midpoint returns the componentwise average of the first and last vertices.
// Interior vertices are ignored, so for a bent line the result can sit off
// the path. Connection point placement depends on this endpoint-only rule.
func (l *LineGeometry) Midpoint() GeoPoint {
	start, end := l.Start(), l.End()
	return GeoPoint{
		Lat: (start.Lat + end.Lat) / 2,
		Lon: (start.Lon + end.Lon) / 2,
	}
}
