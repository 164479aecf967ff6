package geodesy

import (
	"math"

	"github.com/solatis/geokeeper/internal/types"
)

// transverseMercator implements the Krüger n-series (EPSG method 9807),
// accurate to well under a millimetre within a few thousand kilometres of
// the central meridian.
type transverseMercator struct {
	e      float64
	b      float64 // rectifying radius
	k0     float64
	lon0   float64 // radians
	fe, fn float64
	m0     float64
	h      [4]float64 // forward coefficients
	hi     [4]float64 // inverse coefficients
}

func newTransverseMercator(p types.ProjectionParams, ell Ellipsoid) *transverseMercator {
	n := ell.F / (2 - ell.F)
	n2, n3, n4 := n*n, n*n*n, n*n*n*n

	t := &transverseMercator{
		e:    ell.E(),
		b:    ell.A / (1 + n) * (1 + n2/4 + n4/64),
		k0:   p.ScaleFactor,
		lon0: p.LonOrigin * deg2rad,
		fe:   p.FalseEasting,
		fn:   p.FalseNorthing,
	}
	if t.k0 == 0 {
		t.k0 = 1
	}
	t.h = [4]float64{
		n/2 - 2*n2/3 + 5*n3/16 + 41*n4/180,
		13*n2/48 - 3*n3/5 + 557*n4/1440,
		61*n3/240 - 103*n4/140,
		49561 * n4 / 161280,
	}
	t.hi = [4]float64{
		n/2 - 2*n2/3 + 37*n3/96 - n4/360,
		n2/48 + n3/15 - 437*n4/1440,
		17*n3/480 - 37*n4/840,
		4397 * n4 / 161280,
	}

	lat0 := p.LatOrigin * deg2rad
	switch {
	case lat0 == 0:
		t.m0 = 0
	case math.Abs(lat0-math.Pi/2) < 1e-12:
		t.m0 = t.b * math.Pi / 2
	case math.Abs(lat0+math.Pi/2) < 1e-12:
		t.m0 = -t.b * math.Pi / 2
	default:
		beta := math.Atan(math.Sinh(t.conformal(lat0)))
		xi := beta
		for i, h := range t.h {
			xi += h * math.Sin(float64(2*(i+1))*beta)
		}
		t.m0 = t.b * xi
	}
	return t
}

// conformal returns the isometric latitude Q for geodetic latitude phi.
func (t *transverseMercator) conformal(phi float64) float64 {
	return math.Asinh(math.Tan(phi)) - t.e*math.Atanh(t.e*math.Sin(phi))
}

func (t *transverseMercator) Method() string { return types.MethodTransverseMercator }

func (t *transverseMercator) Forward(lon, lat float64) (x, y float64) {
	phi := lat * deg2rad
	dLam := lon*deg2rad - t.lon0

	beta := math.Atan(math.Sinh(t.conformal(phi)))
	eta0 := math.Atanh(math.Cos(beta) * math.Sin(dLam))
	xi0 := math.Asin(math.Sin(beta) * math.Cosh(eta0))

	xi, eta := xi0, eta0
	for i, h := range t.h {
		k := float64(2 * (i + 1))
		xi += h * math.Sin(k*xi0) * math.Cosh(k*eta0)
		eta += h * math.Cos(k*xi0) * math.Sinh(k*eta0)
	}

	x = t.fe + t.k0*t.b*eta
	y = t.fn + t.k0*(t.b*xi-t.m0)
	return
}

func (t *transverseMercator) Inverse(x, y float64) (lon, lat float64) {
	xiP := (y - t.fn + t.k0*t.m0) / (t.b * t.k0)
	etaP := (x - t.fe) / (t.b * t.k0)

	xi0, eta0 := xiP, etaP
	for i, h := range t.hi {
		k := float64(2 * (i + 1))
		xi0 -= h * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta0 -= h * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}

	beta := math.Asin(math.Sin(xi0) / math.Cosh(eta0))
	qP := math.Asinh(math.Tan(beta))
	q := qP
	for i := 0; i < 15; i++ {
		next := qP + t.e*math.Atanh(t.e*math.Tanh(q))
		if math.Abs(next-q) < 1e-14 {
			q = next
			break
		}
		q = next
	}

	lat = math.Atan(math.Sinh(q)) * rad2deg
	lon = (t.lon0 + math.Asin(math.Tanh(eta0)/math.Cos(beta))) * rad2deg
	return
}
