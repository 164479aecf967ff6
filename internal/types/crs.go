// internal/types/crs.go
package types

/*
 * Reference system records.
 *
 * CRSDefinition and OperationDefinition are the reference catalog rows the
 * built-in engine executes and the matcher scores against.
 * CustomCRSDescriptor is the canonical form of a legacy custom CRS descriptor.
 *
 * Units and sign conventions are fixed here and nowhere else:
 *   - angles in decimal degrees
 *   - lengths in metres
 *   - Helmert rotations in arc-seconds, position-vector convention
 *   - Helmert scale in parts per million
 */

// CRSKind classifies a reference system.
type CRSKind string

const (
	KindGeographic CRSKind = "geographic"
	KindProjected  CRSKind = "projected"
)

// Projection method names shared by the engine, the normalizer and the matcher.
const (
	MethodTransverseMercator = "Transverse Mercator"
	MethodLambertConic2SP    = "Lambert Conic Conformal (2SP)"
	MethodMercatorA          = "Mercator (variant A)"
	MethodPseudoMercator     = "Popular Visualisation Pseudo Mercator"
)

// DatumShift holds seven Helmert parameters.
type DatumShift struct {
	Tx       float64 `json:"tx" yaml:"tx"`
	Ty       float64 `json:"ty" yaml:"ty"`
	Tz       float64 `json:"tz" yaml:"tz"`
	Rx       float64 `json:"rx" yaml:"rx"`
	Ry       float64 `json:"ry" yaml:"ry"`
	Rz       float64 `json:"rz" yaml:"rz"`
	ScalePPM float64 `json:"scale_ppm" yaml:"scale_ppm"`
}

// IsZero reports whether the shift is the identity.
func (d DatumShift) IsZero() bool {
	return d == DatumShift{}
}

// Inverse returns the small-angle inverse shift.
func (d DatumShift) Inverse() DatumShift {
	return DatumShift{
		Tx: -d.Tx, Ty: -d.Ty, Tz: -d.Tz,
		Rx: -d.Rx, Ry: -d.Ry, Rz: -d.Rz,
		ScalePPM: -d.ScalePPM,
	}
}

// Scale returns the multiplicative scale (1 + ppm*1e-6).
func (d DatumShift) Scale() float64 {
	return 1 + d.ScalePPM*1e-6
}

// ProjectionParams describes the map projection of a projected CRS.
type ProjectionParams struct {
	Method        string  `json:"method" yaml:"method"`
	LatOrigin     float64 `json:"lat_origin" yaml:"lat_origin"`
	LonOrigin     float64 `json:"lon_origin" yaml:"lon_origin"`
	StdParallel1  float64 `json:"standard_parallel_1" yaml:"standard_parallel_1"`
	StdParallel2  float64 `json:"standard_parallel_2" yaml:"standard_parallel_2"`
	ScaleFactor   float64 `json:"scale_factor" yaml:"scale_factor"`
	FalseEasting  float64 `json:"false_easting" yaml:"false_easting"`
	FalseNorthing float64 `json:"false_northing" yaml:"false_northing"`
}

// CRSDefinition is one reference CRS.
// Base is the geographic CRS a projected CRS is built on; catalogued datum
// transformations are looked up between bases.
// ToWGS84 is nil when no early-bound datum shift is known.
type CRSDefinition struct {
	Code          string            `json:"code" yaml:"code"`
	Name          string            `json:"name" yaml:"name"`
	Kind          CRSKind           `json:"kind" yaml:"kind"`
	Base          string            `json:"base,omitempty" yaml:"base,omitempty"`
	Projection    *ProjectionParams `json:"projection,omitempty" yaml:"projection,omitempty"`
	Unit          string            `json:"unit" yaml:"unit"`
	UnitFactor    float64           `json:"unit_factor" yaml:"unit_factor"`
	Datum         string            `json:"datum" yaml:"datum"`
	Ellipsoid     string            `json:"ellipsoid" yaml:"ellipsoid"`
	SemiMajor     float64           `json:"semi_major" yaml:"semi_major"`
	InvFlattening float64           `json:"inv_flattening" yaml:"inv_flattening"`
	ToWGS84       *DatumShift       `json:"towgs84,omitempty" yaml:"towgs84,omitempty"`
}

// IsProjected reports whether the CRS has a map projection.
func (c CRSDefinition) IsProjected() bool {
	return c.Kind == KindProjected && c.Projection != nil
}

// OperationStep is one step of a catalogued datum transformation.
// Grid-based steps keep a Helmert approximation in Shift for engines that
// cannot read the grid file.
type OperationStep struct {
	Method string     `json:"method" yaml:"method"`
	Code   string     `json:"code,omitempty" yaml:"code,omitempty"`
	Grid   string     `json:"grid,omitempty" yaml:"grid,omitempty"`
	Shift  DatumShift `json:"shift" yaml:"shift"`
}

// OperationDefinition is a catalogued transformation between two CRSs.
type OperationDefinition struct {
	Code     string          `json:"code" yaml:"code"`
	Name     string          `json:"name" yaml:"name"`
	Source   string          `json:"source" yaml:"source"`
	Target   string          `json:"target" yaml:"target"`
	Accuracy *float64        `json:"accuracy" yaml:"accuracy"`
	Steps    []OperationStep `json:"steps" yaml:"steps"`
}

// DescriptorGroups records which groups a legacy descriptor actually supplied.
type DescriptorGroups struct {
	System    bool `json:"system"`
	Zone      bool `json:"zone"`
	Datum     bool `json:"datum"`
	Ellipsoid bool `json:"ellipsoid"`
}

// Any reports whether at least one group was supplied.
func (g DescriptorGroups) Any() bool {
	return g.System || g.Zone || g.Datum || g.Ellipsoid
}

// SystemGroup names the coordinate system family.
type SystemGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ZoneGroup carries projection parameters. UTMZone is 0 for non-UTM zones.
type ZoneGroup struct {
	ID      string `json:"id"`
	UTMZone int    `json:"utm_zone,omitempty"`
	South   bool   `json:"south,omitempty"`
	ProjectionParams
}

// DatumGroup carries the seven-parameter shift to WGS 84.
type DatumGroup struct {
	Name string `json:"name"`
	DatumShift
}

// EllipsoidGroup carries the reference ellipsoid. Zero values mean unspecified.
type EllipsoidGroup struct {
	Name          string  `json:"name"`
	SemiMajor     float64 `json:"semi_major"`
	Eccentricity  float64 `json:"first_eccentricity"`
	InvFlattening float64 `json:"inv_flattening"`
}

// CustomCRSDescriptor is the canonical form of a legacy custom CRS descriptor.
type CustomCRSDescriptor struct {
	System    SystemGroup      `json:"system"`
	Zone      ZoneGroup        `json:"zone"`
	Datum     DatumGroup       `json:"datum"`
	Ellipsoid EllipsoidGroup   `json:"ellipsoid"`
	Present   DescriptorGroups `json:"present"`
}
