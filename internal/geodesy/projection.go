package geodesy

import (
	"fmt"

	"github.com/solatis/geokeeper/internal/types"
)

// Projection converts between geographic coordinates on a CRS's own ellipsoid
// and its projected easting/northing in metres.
type Projection interface {
	// Inverse converts easting/northing to longitude/latitude (degrees).
	Inverse(x, y float64) (lon, lat float64)

	// Forward converts longitude/latitude (degrees) to easting/northing.
	Forward(lon, lat float64) (x, y float64)

	// Method returns the projection method name.
	Method() string
}

// NewProjection returns the projection for the given parameters on ell.
// Returns an error if the method is not supported.
func NewProjection(p types.ProjectionParams, ell Ellipsoid) (Projection, error) {
	switch p.Method {
	case types.MethodTransverseMercator:
		return newTransverseMercator(p, ell), nil
	case types.MethodLambertConic2SP:
		return newLambertConic(p, ell), nil
	case types.MethodMercatorA:
		return newMercatorA(p, ell), nil
	case types.MethodPseudoMercator:
		return &pseudoMercator{a: ell.A, fe: p.FalseEasting, fn: p.FalseNorthing}, nil
	default:
		return nil, fmt.Errorf("unsupported projection method %q", p.Method)
	}
}

// geographicIdentity is the no-op projection for geographic CRSs.
type geographicIdentity struct{}

func (geographicIdentity) Inverse(x, y float64) (lon, lat float64) { return x, y }
func (geographicIdentity) Forward(lon, lat float64) (x, y float64) { return lon, lat }
func (geographicIdentity) Method() string                          { return "" }
