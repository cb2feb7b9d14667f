package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/wroge/wgs84"
)

// CRS identifies a coordinate reference system by its EPSG authority code.
type CRS int

const (
	// WGS84 is the geographic lon/lat reference used for interchange.
	WGS84 CRS = 4326

	// BritishNationalGrid is the projected easting/northing CRS for
	// Great Britain, in metres.
	BritishNationalGrid CRS = 27700
)

// IsProjected reports whether coordinates in this CRS are metric.
func (c CRS) IsProjected() bool {
	return c != WGS84
}

// UTMZoneFor returns the EPSG code of the UTM zone containing the given
// WGS84 point. Northern-hemisphere zones are 32601-32660, southern
// 32701-32760.
func UTMZoneFor(lon, lat float64) CRS {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		zone = 1
	}
	if zone > 60 {
		zone = 60
	}
	if lat >= 0 {
		return CRS(32600 + zone)
	}
	return CRS(32700 + zone)
}

var epsg = wgs84.EPSG()

// TransformPoint converts a single coordinate between two systems.
// Axis order follows the x,y convention of each system: lon,lat for
// WGS84 and easting,northing for projected systems.
func TransformPoint(p orb.Point, from, to CRS) orb.Point {
	q := transformPoint(p, from, to)
	if to == WGS84 {
		q[0] = wrapLongitude(q[0])
	}
	return q
}

// transformPoint converts a single coordinate between two systems.
// Axis order follows the x,y convention of each system: lon,lat for
// WGS84 and easting,northing for projected systems.
func transformPoint(p orb.Point, from, to CRS) orb.Point {
	if from == to {
		return p
	}
	f := epsg.Transform(int(from), int(to))
	x, y, _ := f(p[0], p[1], 0)
	return orb.Point{x, y}
}

// transformRing converts every coordinate of a ring, preserving closure.
// Longitudes coming back to WGS84 are normalised into [-180, 180] so
// rings that straddle the antimeridian stay continuous.
func transformRing(ring orb.Ring, from, to CRS) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		q := transformPoint(p, from, to)
		if to == WGS84 {
			q[0] = wrapLongitude(q[0])
		}
		out[i] = q
	}
	return out
}

func wrapLongitude(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
