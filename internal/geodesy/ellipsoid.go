package geodesy

import (
	"math"

	"github.com/solatis/geokeeper/internal/types"
)

const (
	deg2rad    = math.Pi / 180.0
	rad2deg    = 180.0 / math.Pi
	arcsec2rad = math.Pi / (180.0 * 3600.0)
)

// Ellipsoid is a reference ellipsoid given by semi-major axis and flattening.
type Ellipsoid struct {
	A float64
	F float64
}

// WGS84 is the WGS 84 ellipsoid.
var WGS84 = NewEllipsoid(6378137.0, 298.257223563)

// Named ellipsoids accepted by +ellps in ad hoc definitions.
var namedEllipsoids = map[string]Ellipsoid{
	"WGS84":  WGS84,
	"GRS80":  NewEllipsoid(6378137.0, 298.257222101),
	"airy":   NewEllipsoid(6377563.396, 299.3249646),
	"intl":   NewEllipsoid(6378388.0, 297.0),
	"bessel": NewEllipsoid(6377397.155, 299.1528128),
	"clrk66": NewEllipsoid(6378206.4, 294.9786982),
	"clrk80": NewEllipsoid(6378249.145, 293.465),
}

// NewEllipsoid builds an ellipsoid from a and inverse flattening.
// An inverse flattening of zero denotes a sphere.
func NewEllipsoid(a, invF float64) Ellipsoid {
	if invF == 0 {
		return Ellipsoid{A: a}
	}
	return Ellipsoid{A: a, F: 1 / invF}
}

// EllipsoidFromEccentricity builds an ellipsoid from a and first eccentricity.
func EllipsoidFromEccentricity(a, e float64) Ellipsoid {
	return Ellipsoid{A: a, F: 1 - math.Sqrt(1-e*e)}
}

// E2 returns the first eccentricity squared.
func (e Ellipsoid) E2() float64 { return e.F * (2 - e.F) }

// E returns the first eccentricity.
func (e Ellipsoid) E() float64 { return math.Sqrt(e.E2()) }

// InvF returns the inverse flattening, zero for a sphere.
func (e Ellipsoid) InvF() float64 {
	if e.F == 0 {
		return 0
	}
	return 1 / e.F
}

// ToGeocentric converts longitude/latitude (degrees) and ellipsoidal height to ECEF metres.
func (e Ellipsoid) ToGeocentric(lon, lat, h float64) (x, y, z float64) {
	phi, lam := lat*deg2rad, lon*deg2rad
	e2 := e.E2()
	sinPhi := math.Sin(phi)
	n := e.A / math.Sqrt(1-e2*sinPhi*sinPhi)
	x = (n + h) * math.Cos(phi) * math.Cos(lam)
	y = (n + h) * math.Cos(phi) * math.Sin(lam)
	z = (n*(1-e2) + h) * sinPhi
	return
}

// FromGeocentric converts ECEF metres to longitude/latitude (degrees) and height.
// Fixed-point iteration on latitude; converges to sub-millimetre in a few rounds
// away from the poles.
func (e Ellipsoid) FromGeocentric(x, y, z float64) (lon, lat, h float64) {
	e2 := e.E2()
	p := math.Hypot(x, y)
	lam := math.Atan2(y, x)
	if p < 1e-9 {
		if z >= 0 {
			return lam * rad2deg, 90, z - e.A*(1-e.F)
		}
		return lam * rad2deg, -90, -z - e.A*(1-e.F)
	}
	phi := math.Atan2(z, p*(1-e2))
	for i := 0; i < 10; i++ {
		sinPhi := math.Sin(phi)
		n := e.A / math.Sqrt(1-e2*sinPhi*sinPhi)
		h = p/math.Cos(phi) - n
		next := math.Atan2(z, p*(1-e2*n/(n+h)))
		if math.Abs(next-phi) < 1e-14 {
			phi = next
			break
		}
		phi = next
	}
	sinPhi := math.Sin(phi)
	n := e.A / math.Sqrt(1-e2*sinPhi*sinPhi)
	h = p/math.Cos(phi) - n
	return lam * rad2deg, phi * rad2deg, h
}

// ApplyHelmert applies a position-vector seven-parameter shift to ECEF coordinates.
func ApplyHelmert(d types.DatumShift, x, y, z float64) (float64, float64, float64) {
	rx, ry, rz := d.Rx*arcsec2rad, d.Ry*arcsec2rad, d.Rz*arcsec2rad
	s := d.Scale()
	return d.Tx + s*(x-rz*y+ry*z),
		d.Ty + s*(rz*x+y-rx*z),
		d.Tz + s*(-ry*x+rx*y+z)
}
