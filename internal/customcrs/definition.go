package customcrs

import (
	"math"

	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

// CRS builds the CRS record a descriptor denotes. Without a zone group the
// result is geographic; without an ellipsoid group it sits on WGS 84; without
// a datum group it carries no early-bound shift.
func CRS(d types.CustomCRSDescriptor) types.CRSDefinition {
	def := types.CRSDefinition{
		Name:          d.System.Name,
		Kind:          types.KindGeographic,
		Unit:          "degree",
		UnitFactor:    1,
		Datum:         d.Datum.Name,
		Ellipsoid:     d.Ellipsoid.Name,
		SemiMajor:     geodesy.WGS84.A,
		InvFlattening: geodesy.WGS84.InvF(),
	}
	if def.Name == "" {
		def.Name = "Custom CRS"
	}

	if d.Present.Ellipsoid && d.Ellipsoid.SemiMajor > 0 {
		def.SemiMajor = d.Ellipsoid.SemiMajor
		def.InvFlattening = InverseFlattening(d.Ellipsoid)
	}

	if d.Present.Datum {
		shift := d.Datum.DatumShift
		def.ToWGS84 = &shift
	}

	if d.Present.Zone {
		p := d.Zone.ProjectionParams
		def.Kind = types.KindProjected
		def.Projection = &p
		def.Unit = "metre"
	}
	return def
}

// Definition renders the ad hoc engine definition of a descriptor, usable as
// a waypoint anywhere a CRS code is accepted.
func Definition(d types.CustomCRSDescriptor) string {
	return geodesy.FormatDefinition(CRS(d))
}

// InverseFlattening derives the inverse flattening of a descriptor's
// ellipsoid, zero when it denotes a sphere or is unspecified.
func InverseFlattening(g types.EllipsoidGroup) float64 {
	if g.InvFlattening > 0 {
		return g.InvFlattening
	}
	if g.Eccentricity > 0 {
		return 1 / (1 - math.Sqrt(1-g.Eccentricity*g.Eccentricity))
	}
	return 0
}
