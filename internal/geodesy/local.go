package geodesy

import (
	"math"

	"github.com/solatis/geokeeper/internal/types"
)

// EllipsoidOf returns the ellipsoid of a CRS record, WGS 84 when unspecified.
func EllipsoidOf(def types.CRSDefinition) Ellipsoid {
	if def.SemiMajor > 0 {
		return NewEllipsoid(def.SemiMajor, def.InvFlattening)
	}
	return WGS84
}

// LocalFrame is an east-north-up frame tangent to an ellipsoid at an origin.
// Offsets are applied in the geocentric domain, so they stay exact over
// distances where a flat-earth approximation would not.
type LocalFrame struct {
	ell            Ellipsoid
	ox, oy, oz     float64
	sinLon, cosLon float64
	sinLat, cosLat float64
}

// NewLocalFrame anchors a frame at lon/lat (degrees) and ellipsoidal height h.
func NewLocalFrame(ell Ellipsoid, lon, lat, h float64) LocalFrame {
	f := LocalFrame{ell: ell}
	f.ox, f.oy, f.oz = ell.ToGeocentric(lon, lat, h)
	f.sinLon, f.cosLon = math.Sincos(lon * deg2rad)
	f.sinLat, f.cosLat = math.Sincos(lat * deg2rad)
	return f
}

// Offset returns the geodetic position east/north/up metres from the origin.
func (f LocalFrame) Offset(east, north, up float64) (lon, lat, h float64) {
	dx := -f.sinLon*east - f.sinLat*f.cosLon*north + f.cosLat*f.cosLon*up
	dy := f.cosLon*east - f.sinLat*f.sinLon*north + f.cosLat*f.sinLon*up
	dz := f.cosLat*north + f.sinLat*up
	return f.ell.FromGeocentric(f.ox+dx, f.oy+dy, f.oz+dz)
}
