package geodesy

import (
	"math"

	"github.com/solatis/geokeeper/internal/types"
)

// pseudoMercator implements the spherical Web Mercator used by EPSG:3857.
// Geographic coordinates are interpreted on a sphere of radius a.
type pseudoMercator struct {
	a      float64
	fe, fn float64
}

func (w *pseudoMercator) Method() string { return types.MethodPseudoMercator }

func (w *pseudoMercator) Inverse(x, y float64) (lon, lat float64) {
	originShift := math.Pi * w.a
	lon = ((x - w.fe) / originShift) * 180.0
	lat = ((y - w.fn) / originShift) * 180.0
	lat = 180.0 / math.Pi * (2.0*math.Atan(math.Exp(lat*math.Pi/180.0)) - math.Pi/2.0)
	return
}

func (w *pseudoMercator) Forward(lon, lat float64) (x, y float64) {
	originShift := math.Pi * w.a
	x = lon * originShift / 180.0
	y = math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / (math.Pi / 180.0)
	y = y * originShift / 180.0
	return x + w.fe, y + w.fn
}

// mercatorA implements the ellipsoidal Mercator (variant A, EPSG method 9804).
type mercatorA struct {
	a, e   float64
	k0     float64
	lon0   float64
	fe, fn float64
}

func newMercatorA(p types.ProjectionParams, ell Ellipsoid) *mercatorA {
	k0 := p.ScaleFactor
	if k0 == 0 {
		k0 = 1
	}
	return &mercatorA{
		a: ell.A, e: ell.E(), k0: k0,
		lon0: p.LonOrigin * deg2rad,
		fe:   p.FalseEasting, fn: p.FalseNorthing,
	}
}

func (m *mercatorA) Method() string { return types.MethodMercatorA }

func (m *mercatorA) Forward(lon, lat float64) (x, y float64) {
	phi := lat * deg2rad
	esin := m.e * math.Sin(phi)
	x = m.fe + m.a*m.k0*(lon*deg2rad-m.lon0)
	y = m.fn + m.a*m.k0*math.Log(math.Tan(math.Pi/4+phi/2)*math.Pow((1-esin)/(1+esin), m.e/2))
	return
}

func (m *mercatorA) Inverse(x, y float64) (lon, lat float64) {
	t := math.Exp((m.fn - y) / (m.a * m.k0))
	chi := math.Pi/2 - 2*math.Atan(t)
	e2 := m.e * m.e
	e4, e6, e8 := e2*e2, e2*e2*e2, e2*e2*e2*e2
	phi := chi +
		(e2/2+5*e4/24+e6/12+13*e8/360)*math.Sin(2*chi) +
		(7*e4/48+29*e6/240+811*e8/11520)*math.Sin(4*chi) +
		(7*e6/120+81*e8/1120)*math.Sin(6*chi) +
		(4279*e8/161280)*math.Sin(8*chi)
	lat = phi * rad2deg
	lon = ((x-m.fe)/(m.a*m.k0) + m.lon0) * rad2deg
	return
}
