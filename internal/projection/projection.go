// Package projection converts projected UTM coordinates to WGS84 geographic
// coordinates and back. The transverse Mercator series follow Snyder,
// Map Projections: A Working Manual (USGS Professional Paper 1395), which is
// accurate to sub-millimeter inside a zone.
package projection

import (
	"math"

	"github.com/tphakala/gridscreen-go/internal/errors"
	"github.com/tphakala/gridscreen-go/internal/geo"
)

// WGS84 ellipsoid and UTM grid parameters.
const (
	semiMajorAxis     = 6378137.0
	inverseFlattening = 298.257223563

	scaleFactor   = 0.9996
	falseEasting  = 500000.0
	falseNorthing = 10000000.0 // applied on the southern hemisphere

	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// Derived ellipsoid constants, computed once at package init.
var (
	flattening = 1 / inverseFlattening
	e2         = flattening * (2 - flattening) // first eccentricity squared
	ep2        = e2 / (1 - e2)                 // second eccentricity squared
	e1         = (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	// Meridian arc series coefficients.
	mCoef0 = 1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256
	mCoef2 = 3*e2/8 + 3*e2*e2/32 + 45*e2*e2*e2/1024
	mCoef4 = 15*e2*e2/256 + 45*e2*e2*e2/1024
	mCoef6 = 35 * e2 * e2 * e2 / 3072

	// Footpoint latitude series coefficients.
	fpCoef2 = 3*e1/2 - 27*e1*e1*e1/32
	fpCoef4 = 21*e1*e1/16 - 55*e1*e1*e1*e1/32
	fpCoef6 = 151 * e1 * e1 * e1 / 96
	fpCoef8 = 1097 * e1 * e1 * e1 * e1 / 512
)

// Status classifies the outcome of converting one coordinate pair.
type Status string

const (
	// StatusOK means the pair converted to a coordinate inside the WGS84
	// envelope.
	StatusOK Status = "ok"
	// StatusMissing means the source cell held no usable number.
	StatusMissing Status = "missing"
	// StatusInvalid means the conversion produced an out-of-range
	// coordinate. Invalid results are excluded, never clamped.
	StatusInvalid Status = "invalid"
)

// PointResult pairs one converted coordinate with its source values and
// conversion status. Point is only meaningful when Status is StatusOK.
type PointResult struct {
	Easting  float64
	Northing float64
	Point    geo.GeoPoint
	Status   Status
}

// Converter transforms coordinates between one UTM zone and WGS84.
type Converter struct {
	zone    int
	north   bool
	lambda0 float64 // central meridian in radians
}

// UTM returns a Converter for the given longitudinal zone. Zone numbers run
// from 1 to 60; north selects the hemisphere the false northing applies to.
func UTM(zone int, north bool) (*Converter, error) {
	if zone < 1 || zone > 60 {
		return nil, errors.Newf("UTM zone %d is outside the range 1 to 60", zone).
			Component("projection").
			Category(errors.CategoryValidation).
			Context("zone", zone).
			Build()
	}
	return &Converter{
		zone:    zone,
		north:   north,
		lambda0: float64(zone*6-183) * degToRad,
	}, nil
}

// Zone returns the converter's UTM zone number.
func (c *Converter) Zone() int { return c.zone }

// ToWGS84 converts one projected coordinate pair to geographic coordinates.
// Non-finite inputs and conversions that land outside the WGS84 envelope
// return an error; results are never clamped into range.
func (c *Converter) ToWGS84(easting, northing float64) (geo.GeoPoint, error) {
	if !isFinite(easting) || !isFinite(northing) {
		return geo.GeoPoint{}, errors.Newf("easting or northing is not a finite number").
			Component("projection").
			Category(errors.CategoryInvalidCoordinate).
			Context("easting", easting).
			Context("northing", northing).
			Build()
	}

	x := easting - falseEasting
	y := northing
	if !c.north {
		y -= falseNorthing
	}

	// Footpoint latitude from the rectified meridian distance.
	m := y / scaleFactor
	mu := m / (semiMajorAxis * mCoef0)
	phi1 := mu +
		fpCoef2*math.Sin(2*mu) +
		fpCoef4*math.Sin(4*mu) +
		fpCoef6*math.Sin(6*mu) +
		fpCoef8*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	w := math.Sqrt(1 - e2*sinPhi1*sinPhi1)
	n1 := semiMajorAxis / w
	r1 := semiMajorAxis * (1 - e2) / (w * w * w)
	d := x / (n1 * scaleFactor)
	d2 := d * d

	phi := phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d2*d2/24+
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d2*d2*d2/720)
	lambda := c.lambda0 + (d-
		(1+2*t1+c1)*d*d2/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d*d2*d2/120)/cosPhi1

	point := geo.GeoPoint{Lat: phi * radToDeg, Lon: lambda * radToDeg}
	if !point.InRange() {
		return geo.GeoPoint{}, errors.Newf("conversion left the WGS84 envelope").
			Component("projection").
			Category(errors.CategoryInvalidCoordinate).
			Context("easting", easting).
			Context("northing", northing).
			Context("latitude", point.Lat).
			Context("longitude", point.Lon).
			Build()
	}

	return point, nil
}

// FromWGS84 converts one geographic coordinate to the converter's UTM zone.
func (c *Converter) FromWGS84(p geo.GeoPoint) (easting, northing float64, err error) {
	if !p.InRange() {
		return 0, 0, errors.Newf("coordinate is outside the WGS84 envelope").
			Component("projection").
			Category(errors.CategoryInvalidCoordinate).
			Context("latitude", p.Lat).
			Context("longitude", p.Lon).
			Build()
	}

	phi := p.Lat * degToRad
	lambda := p.Lon * degToRad

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajorAxis / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	cc := ep2 * cosPhi * cosPhi
	a := (lambda - c.lambda0) * cosPhi
	a2 := a * a
	m := meridianArc(phi)

	easting = scaleFactor*n*(a+
		(1-t+cc)*a*a2/6+
		(5-18*t+t*t+72*cc-58*ep2)*a*a2*a2/120) + falseEasting
	northing = scaleFactor * (m + n*tanPhi*(a2/2+
		(5-t+9*cc+4*cc*cc)*a2*a2/24+
		(61-58*t+t*t+600*cc-330*ep2)*a2*a2*a2/720))
	if !c.north {
		northing += falseNorthing
	}

	return easting, northing, nil
}

// ConvertAll converts parallel easting and northing slices in one pass.
// A NaN in either slice marks the pair StatusMissing, a conversion failure
// marks it StatusInvalid, and in both cases the remaining pairs still
// convert. The result keeps the input order and length.
func (c *Converter) ConvertAll(eastings, northings []float64) []PointResult {
	count := min(len(eastings), len(northings))
	results := make([]PointResult, count)

	for i := range count {
		easting, northing := eastings[i], northings[i]
		result := PointResult{Easting: easting, Northing: northing}

		switch {
		case math.IsNaN(easting) || math.IsNaN(northing):
			result.Status = StatusMissing
		default:
			point, err := c.ToWGS84(easting, northing)
			if err != nil {
				result.Status = StatusInvalid
			} else {
				result.Point = point
				result.Status = StatusOK
			}
		}

		results[i] = result
	}

	return results
}

// meridianArc returns the distance along the meridian from the equator to
// latitude phi.
func meridianArc(phi float64) float64 {
	return semiMajorAxis * (mCoef0*phi -
		mCoef2*math.Sin(2*phi) +
		mCoef4*math.Sin(4*phi) -
		mCoef6*math.Sin(6*phi))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
