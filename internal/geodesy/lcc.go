package geodesy

import (
	"math"

	"github.com/solatis/geokeeper/internal/types"
)

// lambertConic implements Lambert Conic Conformal 2SP (EPSG method 9802).
// Equal standard parallels degenerate to the tangent (1SP-like) cone.
type lambertConic struct {
	a, e   float64
	n, f   float64
	rF     float64
	lonF   float64
	fe, fn float64
}

func newLambertConic(p types.ProjectionParams, ell Ellipsoid) *lambertConic {
	l := &lambertConic{
		a: ell.A, e: ell.E(),
		lonF: p.LonOrigin * deg2rad,
		fe:   p.FalseEasting, fn: p.FalseNorthing,
	}
	phi1, phi2 := p.StdParallel1*deg2rad, p.StdParallel2*deg2rad
	m1, m2 := l.m(phi1), l.m(phi2)
	t1, t2 := l.t(phi1), l.t(phi2)
	if math.Abs(phi1-phi2) < 1e-12 {
		l.n = math.Sin(phi1)
	} else {
		l.n = (math.Log(m1) - math.Log(m2)) / (math.Log(t1) - math.Log(t2))
	}
	l.f = m1 / (l.n * math.Pow(t1, l.n))
	l.rF = l.a * l.f * math.Pow(l.t(p.LatOrigin*deg2rad), l.n)
	return l
}

func (l *lambertConic) m(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-l.e*l.e*s*s)
}

func (l *lambertConic) t(phi float64) float64 {
	esin := l.e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-esin)/(1+esin), l.e/2)
}

func (l *lambertConic) Method() string { return types.MethodLambertConic2SP }

func (l *lambertConic) Forward(lon, lat float64) (x, y float64) {
	r := l.a * l.f * math.Pow(l.t(lat*deg2rad), l.n)
	theta := l.n * (lon*deg2rad - l.lonF)
	x = l.fe + r*math.Sin(theta)
	y = l.fn + l.rF - r*math.Cos(theta)
	return
}

func (l *lambertConic) Inverse(x, y float64) (lon, lat float64) {
	dx := x - l.fe
	dy := l.rF - (y - l.fn)
	sign := 1.0
	if l.n < 0 {
		sign = -1.0
	}
	r := sign * math.Hypot(dx, dy)
	t := math.Pow(r/(l.a*l.f), 1/l.n)
	theta := math.Atan2(sign*dx, sign*dy)

	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 15; i++ {
		esin := l.e * math.Sin(phi)
		next := math.Pi/2 - 2*math.Atan(t*math.Pow((1-esin)/(1+esin), l.e/2))
		if math.Abs(next-phi) < 1e-14 {
			phi = next
			break
		}
		phi = next
	}
	lat = phi * rad2deg
	lon = (theta/l.n + l.lonF) * rad2deg
	return
}
