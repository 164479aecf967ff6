package customcrs

import (
	"errors"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

const fullDescriptor = `<?xml version="1.0" encoding="UTF-8"?>
<CD_GEO_SYSTEM geo_system_id="OSGB" name="Legacy British Grid"/>
<CD_GEO_ZONE geo_zone_id="BNG" projection="Transverse Mercator" lat_origin="49" lon_origin="-2"
    scale_factor="0.9996012717" false_easting="400000" false_northing="-100000"/>
<CD_GEO_DATUM datum_name="OSGB36" x_shift="446.448" y_shift="-125.157" z_shift="542.06"
    x_rotation="0.15" y_rotation="0.247" z_rotation="0.842" scale_ppm="-20.489"/>
<CD_GEO_ELLIPSOID ellipsoid_name="Airy 1830" semi_major="6377563.396" inv_flattening="299.3249646"/>`

func TestNormalize_FullDescriptor(t *testing.T) {
	d, err := Normalize(fullDescriptor)
	require.NoError(t, err)

	assert.Equal(t, types.DescriptorGroups{System: true, Zone: true, Datum: true, Ellipsoid: true}, d.Present, spew.Sdump(d))
	assert.Equal(t, "Legacy British Grid", d.System.Name)
	assert.Equal(t, types.MethodTransverseMercator, d.Zone.Method)
	assert.Equal(t, 49.0, d.Zone.LatOrigin)
	assert.Equal(t, -2.0, d.Zone.LonOrigin)
	assert.Equal(t, 0.9996012717, d.Zone.ScaleFactor)
	assert.Equal(t, -100000.0, d.Zone.FalseNorthing)
	assert.Equal(t, types.DatumShift{Tx: 446.448, Ty: -125.157, Tz: 542.06, Rx: 0.15, Ry: 0.247, Rz: 0.842, ScalePPM: -20.489}, d.Datum.DatumShift)
	assert.Equal(t, "OSGB36", d.Datum.Name)
	assert.Equal(t, 6377563.396, d.Ellipsoid.SemiMajor)
	assert.Equal(t, 299.3249646, d.Ellipsoid.InvFlattening)
}

func TestNormalize_ZoneOnlyKeepsIdentityDefaults(t *testing.T) {
	d, err := Normalize(`<CD_GEO_ZONE geo_zone_id="Z1" lat_origin="0" lon_origin="9" false_easting="500000"/>`)
	require.NoError(t, err)

	assert.Equal(t, types.DescriptorGroups{Zone: true}, d.Present)
	assert.True(t, d.Datum.IsZero(), "datum shift: %s", spew.Sdump(d.Datum))
	assert.Equal(t, 1.0, d.Datum.Scale())
	assert.Equal(t, types.EllipsoidGroup{}, d.Ellipsoid)
	assert.Equal(t, 1.0, d.Zone.ScaleFactor)
	assert.Equal(t, 9.0, d.Zone.LonOrigin)
}

func TestNormalize_UTMExpansion(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		zone      int
		south     bool
		lonOrigin float64
		northing  float64
	}{
		{"system id", `<CD_GEO_SYSTEM geo_system_id="UTM"/><CD_GEO_ZONE geo_zone_id="31N"/>`, 31, false, 3, 0},
		{"zone id", `<CD_GEO_ZONE geo_zone_id="UTM-31N"/>`, 31, false, 3, 0},
		{"southern", `<CD_GEO_ZONE geo_zone_id="UTM-33S"/>`, 33, true, 15, 10000000},
		{"projection attribute", `<CD_GEO_ZONE geo_zone_id="zone 5" projection="utm"/>`, 5, false, -153, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Normalize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.zone, d.Zone.UTMZone)
			assert.Equal(t, tt.south, d.Zone.South)
			assert.Equal(t, types.MethodTransverseMercator, d.Zone.Method)
			assert.Equal(t, tt.lonOrigin, d.Zone.LonOrigin)
			assert.Equal(t, 0.9996, d.Zone.ScaleFactor)
			assert.Equal(t, 500000.0, d.Zone.FalseEasting)
			assert.Equal(t, tt.northing, d.Zone.FalseNorthing)
		})
	}
}

func TestNormalize_AcceptsWrappedAndNestedDocuments(t *testing.T) {
	inputs := []string{
		`<CRS><CD_GEO_ZONE geo_zone_id="UTM-32N"/><CD_GEO_DATUM x_shift="1"/></CRS>`,
		`<CD_GEO_ZONE geo_zone_id="UTM-32N"/>` + "\n" + `<cd_geo_datum X_SHIFT="1"/>`,
	}
	for _, in := range inputs {
		d, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, 32, d.Zone.UTMZone)
		assert.Equal(t, 1.0, d.Datum.Tx)
		assert.True(t, d.Present.Datum)
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	d, err := Normalize("   \n")
	require.NoError(t, err)
	assert.False(t, d.Present.Any())
}

func TestNormalize_MalformedNamesGroup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		group string
	}{
		{"broken xml", `<CD_GEO_ZONE geo_zone_id="x"`, GroupDocument},
		{"unbalanced", `<CD_GEO_ZONE></CD_GEO_DATUM>`, GroupDocument},
		{"no groups", `just some text`, GroupDocument},
		{"bad shift", `<CD_GEO_DATUM x_shift="ten"/>`, GroupDatum},
		{"bad eccentricity", `<CD_GEO_ELLIPSOID semi_major="6378137" first_eccentricity="1.5"/>`, GroupEllipsoid},
		{"bad projection", `<CD_GEO_ZONE projection="Polyconic"/>`, GroupZone},
		{"bad origin", `<CD_GEO_ZONE lat_origin="north"/>`, GroupZone},
		{"utm without number", `<CD_GEO_ZONE geo_zone_id="UTM-north"/>`, GroupZone},
		{"utm out of range", `<CD_GEO_ZONE geo_zone_id="UTM-61N"/>`, GroupZone},
		{"nan origin", `<CD_GEO_ZONE lat_origin="NaN"/>`, GroupZone},
		{"infinite scale", `<CD_GEO_ZONE scale_factor="+Inf"/>`, GroupZone},
		{"nan shift", `<CD_GEO_DATUM x_shift="NaN"/>`, GroupDatum},
		{"infinite axis", `<CD_GEO_ELLIPSOID semi_major="Inf" first_eccentricity="0.08"/>`, GroupEllipsoid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrMalformedDescriptor), "error %v does not wrap ErrMalformedDescriptor", err)

			var de *types.DescriptorError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.group, de.Group)
			assert.Contains(t, err.Error(), "group "+tt.group)
		})
	}
}

func TestDefinition_ParsesBackToSameCRS(t *testing.T) {
	d, err := Normalize(fullDescriptor)
	require.NoError(t, err)

	def := Definition(d)
	assert.True(t, strings.HasPrefix(def, "+proj=tmerc"), def)
	assert.Contains(t, def, "+towgs84=446.448,-125.157,542.06,0.15,0.247,0.842,-20.489")

	parsed, err := geodesy.ParseDefinition(def)
	require.NoError(t, err)
	require.True(t, parsed.IsProjected())
	assert.Equal(t, d.Zone.ProjectionParams, *parsed.Projection)
	assert.InDelta(t, 6377563.396, parsed.SemiMajor, 1e-6)
	assert.InDelta(t, 299.3249646, parsed.InvFlattening, 1e-6)
	assert.Equal(t, d.Datum.DatumShift, *parsed.ToWGS84)
}

func TestCRS_Defaults(t *testing.T) {
	d, err := Normalize(`<CD_GEO_ELLIPSOID semi_major="6378388" first_eccentricity="0.08199188997903"/>`)
	require.NoError(t, err)

	def := CRS(d)
	assert.Equal(t, types.KindGeographic, def.Kind)
	assert.Nil(t, def.ToWGS84)
	assert.Equal(t, 6378388.0, def.SemiMajor)
	assert.InDelta(t, 297.0, def.InvFlattening, 1e-3)

	def = CRS(types.CustomCRSDescriptor{})
	assert.Equal(t, geodesy.WGS84.A, def.SemiMajor)
	assert.Equal(t, "Custom CRS", def.Name)
}
