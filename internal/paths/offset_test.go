package paths

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/geodesy/geodesytest"
	"github.com/solatis/geokeeper/internal/types"
)

func offsetEngine() *geodesytest.Engine {
	utm := geodesy.UTMParams(31, false)
	return geodesytest.New().
		AddPaths("EPSG:4326", "EPSG:4326", offsetPath("identity", types.Float64(0), 0, "Null")).
		AddPaths("A", "B").
		AddCRS(types.CRSDefinition{
			Code: "EPSG:32631", Name: "WGS 84 / UTM zone 31N", Kind: types.KindProjected, Base: "EPSG:4326",
			Unit: "metre", UnitFactor: 1, SemiMajor: 6378137, InvFlattening: 298.257223563, Projection: &utm,
		}, false)
}

func TestLocalOffsets_ProjectedCRS(t *testing.T) {
	c := newTestComposer(offsetEngine(), ComposerOptions{})

	res, err := c.LocalOffsets(context.Background(), " EPSG:32631", types.Position{X: 3, Y: 0, Z: types.Float64(0)},
		[]Offset{{}, {East: 100}, {Up: 12.5}})
	if err != nil {
		t.Fatalf("LocalOffsets() error = %v, want nil", err)
	}
	if len(res.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3", len(res.Points))
	}

	origin := res.Points[0]
	if origin.Projected == nil || math.Abs(origin.Projected.X-500000) > 1e-6 || math.Abs(origin.Projected.Y) > 1e-6 {
		t.Errorf("origin projected = %+v, want (500000, 0)", origin.Projected)
	}

	east := res.Points[1]
	if east.Projected == nil || math.Abs(east.Projected.X-500000-99.96) > 0.01 || math.Abs(east.Projected.Y) > 1e-3 {
		t.Errorf("east projected = %+v, want about (500099.96, 0)", east.Projected)
	}

	up := res.Points[2]
	if up.Geodetic.Z == nil || math.Abs(*up.Geodetic.Z-12.5) > 1e-6 {
		t.Errorf("up height = %v, want 12.5", up.Geodetic.Z)
	}
	if math.Abs(up.Geodetic.X-3) > 1e-9 || math.Abs(up.Geodetic.Y) > 1e-9 {
		t.Errorf("up moved horizontally: %+v", up.Geodetic)
	}

	if res.WGS84Path == nil || res.WGS84Path.Description != "identity" {
		t.Fatalf("WGS84Path = %+v, want identity", res.WGS84Path)
	}
	if up.WGS84 == nil || up.WGS84.X != up.Geodetic.X || *up.WGS84.Z != *up.Geodetic.Z {
		t.Errorf("WGS84 = %+v, want geodetic %+v", up.WGS84, up.Geodetic)
	}
}

func TestLocalOffsets_GeographicCRS(t *testing.T) {
	c := newTestComposer(offsetEngine(), ComposerOptions{})

	res, err := c.LocalOffsets(context.Background(), "EPSG:4326", types.Position{X: 0, Y: 45}, []Offset{{North: 1000}})
	if err != nil {
		t.Fatalf("LocalOffsets() error = %v, want nil", err)
	}
	p := res.Points[0]
	if p.Projected != nil {
		t.Errorf("Projected = %+v, want nil for geographic CRS", p.Projected)
	}
	if p.Geodetic.Y <= 45 || p.Geodetic.Y > 45.01 {
		t.Errorf("latitude = %v, want just north of 45", p.Geodetic.Y)
	}
}

func TestLocalOffsets_WithoutWGS84Path(t *testing.T) {
	c := newTestComposer(offsetEngine(), ComposerOptions{})

	// B has no registered path to EPSG:4326.
	res, err := c.LocalOffsets(context.Background(), "B", types.Position{X: 1, Y: 1}, []Offset{{East: 5}})
	if err != nil {
		t.Fatalf("LocalOffsets() error = %v, want nil", err)
	}
	if res.WGS84Path != nil || res.Points[0].WGS84 != nil {
		t.Errorf("WGS 84 positions = %+v, want none", res)
	}
}

func TestLocalOffsets_Errors(t *testing.T) {
	c := newTestComposer(offsetEngine(), ComposerOptions{MaxBatchPoints: 2})
	ctx := context.Background()

	tests := []struct {
		name    string
		crs     string
		origin  types.Position
		offsets []Offset
		want    error
	}{
		{"unknown crs", "EPSG:9999", types.Position{}, []Offset{{}}, types.ErrInvalidCRS},
		{"latitude out of range", "EPSG:4326", types.Position{Y: 91}, []Offset{{}}, types.ErrOutOfDomain},
		{"too many offsets", "EPSG:4326", types.Position{}, make([]Offset, 3), types.ErrTooManyPoints},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.LocalOffsets(ctx, tt.crs, tt.origin, tt.offsets)
			if !errors.Is(err, tt.want) {
				t.Errorf("LocalOffsets() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHeightConventions(t *testing.T) {
	if got := ToHeight(120, true); got != -120 {
		t.Errorf("ToHeight(120, depth) = %v, want -120", got)
	}
	if got := ToHeight(120, false); got != 120 {
		t.Errorf("ToHeight(120, height) = %v, want 120", got)
	}
	if got := FromHeight(ToHeight(75, true), true); got != 75 {
		t.Errorf("depth round trip = %v, want 75", got)
	}
}

func TestTransformHeight(t *testing.T) {
	raise := geodesytest.NewPath("geoid offset", types.Float64(0.5), "Vertical Offset")
	raise.Apply = func(p types.Position) types.Position {
		return types.Position{X: p.X, Y: p.Y, Z: types.Float64(*p.Z + 47)}
	}
	flat := geodesytest.NewPath("horizontal only", types.Float64(1), "Helmert")
	flat.Apply = func(p types.Position) types.Position { return types.Position{X: p.X, Y: p.Y} }

	engine := geodesytest.New().AddPaths("H", "V", raise).AddPaths("H", "F", flat)
	c := newTestComposer(engine, ComposerOptions{})
	ctx := context.Background()

	h, path, err := c.TransformHeight(ctx, "H", "V", 3, 52, -100, LegHint{})
	if err != nil {
		t.Fatalf("TransformHeight() error = %v, want nil", err)
	}
	if h != -53 || path.Description != "geoid offset" {
		t.Errorf("TransformHeight() = %v via %q, want -53 via geoid offset", h, path.Description)
	}

	if _, _, err := c.TransformHeight(ctx, "H", "F", 3, 52, 10, LegHint{}); err == nil {
		t.Error("TransformHeight() error = nil, want error for a dropped vertical component")
	}
}
