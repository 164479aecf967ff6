// Package matcher ranks reference CRSs against a custom CRS descriptor.
package matcher

import (
	"math"

	"github.com/solatis/geokeeper/internal/types"
)

// feature is one binary check. It contributes weight when the descriptor
// value and the candidate value are within tolerance, nothing otherwise.
// Features of a group the descriptor did not supply are skipped entirely.
type feature struct {
	name      string
	group     func(types.DescriptorGroups) bool
	weight    int
	tolerance float64
	compare   func(d types.CustomCRSDescriptor, c types.CRSDefinition, tol float64) bool
}

// MaxScore is the score of a candidate matching every feature.
var MaxScore = func() int {
	total := 0
	for _, f := range features {
		total += f.weight
	}
	return total
}()

func zoneGroup(g types.DescriptorGroups) bool      { return g.Zone }
func datumGroup(g types.DescriptorGroups) bool     { return g.Datum }
func ellipsoidGroup(g types.DescriptorGroups) bool { return g.Ellipsoid }

// projected applies a projection parameter comparison to projected candidates only.
func projected(get func(types.ProjectionParams) float64) func(types.CustomCRSDescriptor, types.CRSDefinition, float64) bool {
	return func(d types.CustomCRSDescriptor, c types.CRSDefinition, tol float64) bool {
		if !c.IsProjected() {
			return false
		}
		return math.Abs(get(d.Zone.ProjectionParams)-get(*c.Projection)) <= tol
	}
}

// Weights sum to 140; a verbatim copy of a projected reference scores all of it.
var features = []feature{
	{
		name: "method", group: zoneGroup, weight: 40,
		compare: func(d types.CustomCRSDescriptor, c types.CRSDefinition, _ float64) bool {
			return c.IsProjected() && c.Projection.Method == d.Zone.Method
		},
	},
	{
		name: "lat_origin", group: zoneGroup, weight: 15, tolerance: 1e-6,
		compare: projected(func(p types.ProjectionParams) float64 { return p.LatOrigin }),
	},
	{
		name: "lon_origin", group: zoneGroup, weight: 20, tolerance: 1e-6,
		compare: projected(func(p types.ProjectionParams) float64 { return p.LonOrigin }),
	},
	{
		name: "scale_factor", group: zoneGroup, weight: 15, tolerance: 1e-9,
		compare: projected(func(p types.ProjectionParams) float64 { return p.ScaleFactor }),
	},
	{
		name: "false_easting", group: zoneGroup, weight: 10, tolerance: 1e-3,
		compare: projected(func(p types.ProjectionParams) float64 { return p.FalseEasting }),
	},
	{
		name: "false_northing", group: zoneGroup, weight: 10, tolerance: 1e-3,
		compare: projected(func(p types.ProjectionParams) float64 { return p.FalseNorthing }),
	},
	{
		name: "semi_major", group: ellipsoidGroup, weight: 20, tolerance: 0.01,
		compare: func(d types.CustomCRSDescriptor, c types.CRSDefinition, tol float64) bool {
			return math.Abs(d.Ellipsoid.SemiMajor-c.SemiMajor) <= tol
		},
	},
	{
		name: "datum_shift", group: datumGroup, weight: 10, tolerance: 1.0,
		compare: func(d types.CustomCRSDescriptor, c types.CRSDefinition, tol float64) bool {
			var ref types.DatumShift
			if c.ToWGS84 != nil {
				ref = *c.ToWGS84
			}
			s := d.Datum.DatumShift
			return math.Sqrt(sq(s.Tx-ref.Tx)+sq(s.Ty-ref.Ty)+sq(s.Tz-ref.Tz)) <= tol
		},
	},
}

func sq(v float64) float64 { return v * v }

// score evaluates the feature table for one candidate and returns the total
// and the names of the matched features.
func score(d types.CustomCRSDescriptor, c types.CRSDefinition) (int, []string) {
	total := 0
	var matched []string
	for _, f := range features {
		if !f.group(d.Present) {
			continue
		}
		if f.compare(d, c, f.tolerance) {
			total += f.weight
			matched = append(matched, f.name)
		}
	}
	return total, matched
}
