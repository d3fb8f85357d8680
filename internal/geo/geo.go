// Package geo implements the bearing, distance, and unit-conversion
// primitives the FLARM fusion pipeline is built on.
//
// Initial/final bearing follow the same spherical trigonometry as
// github.com/kellydunn/golang-geo's Point.BearingTo; distance uses a
// hand-rolled Vincenty inverse on WGS-84 rather than golang-geo's
// great-circle (haversine) distance, which is not accurate enough over
// the ranges FLARM traffic reporting cares about.
package geo

import (
	"math"

	geolib "github.com/kellydunn/golang-geo"
)

const (
	MetersPerFoot = 0.3048
	KnotsPerMps   = 1.94384
	wgs84A        = 6378137.0         // semi-major axis, meters
	wgs84F        = 1 / 298.257223563 // flattening
	wgs84B        = wgs84A * (1 - wgs84F)
)

// FeetToMeters converts feet to meters.
func FeetToMeters(feet float64) float64 { return feet * MetersPerFoot }

// MetersToFeet converts meters to feet.
func MetersToFeet(meters float64) float64 { return meters / MetersPerFoot }

// KnotsToMps converts knots to meters per second.
func KnotsToMps(knots float64) float64 { return knots / KnotsPerMps }

// MpsToKnots converts meters per second to knots.
func MpsToKnots(mps float64) float64 { return mps * KnotsPerMps }

// NmeaCoordToDegrees converts an NMEA-style DDDMM.MMMM coordinate (or
// DDMM.MMMM for latitude) into signed decimal degrees. The hemisphere
// sign is applied by the caller.
func NmeaCoordToDegrees(coordinate float64) float64 {
	degrees := math.Trunc(coordinate / 100.0)
	minutes := coordinate - degrees*100.0
	return degrees + minutes/60.0
}

// Point is a WGS-84 geographic position in decimal degrees.
type Point struct {
	Lat, Lon float64
}

func (p Point) toLib() *geolib.Point {
	return geolib.NewPoint(p.Lat, p.Lon)
}

// InitialBearing returns the initial great-circle bearing from p to q,
// in degrees, normalized to [0, 360). Delegates to golang-geo's
// Point.BearingTo, which implements the same atan2 spherical bearing
// formula spec requires; the result is renormalized since BearingTo can
// return a negative angle.
func InitialBearing(p, q Point) float64 {
	bearing := p.toLib().BearingTo(q.toLib())
	return math.Mod(bearing+360.0, 360.0)
}

// FinalBearing returns the bearing on arrival at q, having departed p.
func FinalBearing(p, q Point) float64 {
	reverse := InitialBearing(q, p)
	return math.Mod(reverse+180.0, 360.0)
}

// DistanceNorth returns the northward component, in meters, of a
// distance traveled along the given bearing.
func DistanceNorth(bearingDeg, distance float64) float64 {
	return math.Sin(radians(90.0-bearingDeg)) * distance
}

// DistanceEast returns the eastward component, in meters, of a distance
// traveled along the given bearing.
func DistanceEast(bearingDeg, distance float64) float64 {
	return math.Cos(radians(90.0-bearingDeg)) * distance
}

// RelativeBearing wraps absoluteBearing-course into [-180, +180].
func RelativeBearing(absoluteBearing, course float64) float64 {
	r := absoluteBearing - course
	switch {
	case r > 180.0:
		return r - 360.0
	case r < -180.0:
		return r + 360.0
	default:
		return r
	}
}

// VincentyDistance returns the WGS-84 ellipsoidal distance between p and
// q, in meters, via the Vincenty inverse formula. The iteration stops
// after 100 steps; if it has not converged by then (near-antipodal
// points, far outside aircraft proximity ranges) the last iterate is
// used as is, with no fallback formula.
func VincentyDistance(p, q Point) float64 {
	l := radians(q.Lon - p.Lon)
	u1 := math.Atan((1 - wgs84F) * math.Tan(radians(p.Lat)))
	u2 := math.Atan((1 - wgs84F) * math.Tan(radians(q.Lat)))
	sinU1, cosU1 := math.Sin(u1), math.Cos(u1)
	sinU2, cosU2 := math.Sin(u2), math.Cos(u2)

	lambda := l
	var sinSigma, cosSigma, sigma, cosSqAlpha, cos2SigmaM float64

	for i := 0; i < 100; i++ {
		sinLambda, cosLambda := math.Sin(lambda), math.Cos(lambda)
		sinSigma = math.Sqrt(math.Pow(cosU2*sinLambda, 2) +
			math.Pow(cosU1*sinU2-sinU1*cosU2*cosLambda, 2))
		if sinSigma == 0 {
			return 0 // coincident points
		}
		cosSigma = sinU1*sinU2 + cosU1*cosU2*cosLambda
		sigma = math.Atan2(sinSigma, cosSigma)
		sinAlpha := cosU1 * cosU2 * sinLambda / sinSigma
		cosSqAlpha = 1 - sinAlpha*sinAlpha
		cos2SigmaM = 0
		if cosSqAlpha != 0 {
			cos2SigmaM = cosSigma - 2*sinU1*sinU2/cosSqAlpha
		}
		cCoef := wgs84F / 16 * cosSqAlpha * (4 + wgs84F*(4-3*cosSqAlpha))
		lambdaPrev := lambda
		lambda = l + (1-cCoef)*wgs84F*sinAlpha*
			(sigma+cCoef*sinSigma*(cos2SigmaM+cCoef*cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)))
		if math.Abs(lambda-lambdaPrev) < 1e-12 {
			break
		}
	}

	uSq := cosSqAlpha * (wgs84A*wgs84A - wgs84B*wgs84B) / (wgs84B * wgs84B)
	aCoef := 1 + uSq/16384*(4096+uSq*(-768+uSq*(320-175*uSq)))
	bCoef := uSq / 1024 * (256 + uSq*(-128+uSq*(74-47*uSq)))
	deltaSigma := bCoef * sinSigma * (cos2SigmaM + bCoef/4*(cosSigma*(-1+2*cos2SigmaM*cos2SigmaM)-
		bCoef/6*cos2SigmaM*(-3+4*sinSigma*sinSigma)*(-3+4*cos2SigmaM*cos2SigmaM)))

	return wgs84B * aCoef * (sigma - deltaSigma)
}

// AbsFromRelFlarmCoordinate reconstructs an absolute degree coordinate
// from a FLARM/OGN beacon's coordinate that has been truncated into a
// signed, width-bit field (19 bits for latitude, 20 for longitude).
// absLocDeg is a known nearby reference coordinate — in practice the
// ownship's own GPS position — used only to disambiguate which
// 2^width-wide sector the truncated relDeg value falls into; relDeg is
// the value decoded off the wire.
func AbsFromRelFlarmCoordinate(absLocDeg, relDeg float64, width uint) float64 {
	const scale = 1e7
	relInt := int64(relDeg * scale)
	locInt := int64(absLocDeg * scale)

	mask := int64(1)<<width - 1
	if relInt < 0 {
		// Recompute as two's complement in `width` bits, preserving the
		// low 7 bits across the shift-right/shift-left round trip.
		low7 := relInt & 0x7f
		relInt = ((relInt >> 7) & (mask >> 7)) << 7
		relInt |= low7
	}

	relShifted := relInt >> 7
	locShifted := locInt >> 7

	delta := (relShifted - locShifted) & mask
	if delta >= int64(1)<<(width-1) {
		delta -= int64(1) << width
	}

	abs := (locShifted + delta) << 7
	return float64(abs) / scale
}

func radians(deg float64) float64 { return deg * math.Pi / 180.0 }
