package paths

import (
	"context"
	"fmt"
	"strings"

	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

// WGS84Code is the CRS local offsets and well positions are reported in
// besides their own CRS.
const WGS84Code = "EPSG:4326"

// Offset is a displacement in the local east-north-up frame, in metres.
type Offset struct {
	East  float64 `json:"east"`
	North float64 `json:"north"`
	Up    float64 `json:"up"`
}

// OffsetPoint is one offset placed around the origin.
// Geodetic is lon/lat/height on the CRS's own datum. Projected is set for
// projected CRSs. WGS84 is set when the datum has a path to WGS 84.
type OffsetPoint struct {
	Geodetic  types.Position  `json:"geodetic"`
	Projected *types.Position `json:"projected,omitempty"`
	WGS84     *types.Position `json:"wgs84,omitempty"`
}

// OffsetResult holds the placed offsets in input order plus the path used
// for the WGS 84 positions, if any.
type OffsetResult struct {
	Points    []OffsetPoint         `json:"points"`
	WGS84Path *types.PathDescriptor `json:"wgs84_path,omitempty"`
}

// geodeticBase returns the geographic CRS positions of def are expressed on,
// empty for ad hoc projected definitions.
func geodeticBase(def types.CRSDefinition) string {
	if def.Base != "" {
		return def.Base
	}
	if def.Kind == types.KindGeographic {
		return def.Code
	}
	return ""
}

// LocalOffsets places east/north/up offsets around an origin given as
// lon/lat/height on the datum of crs. All offsets share one frame.
func (c *Composer) LocalOffsets(ctx context.Context, crs string, origin types.Position, offsets []Offset) (OffsetResult, error) {
	crs = strings.TrimSpace(crs)
	if c.opts.MaxBatchPoints > 0 && len(offsets) > c.opts.MaxBatchPoints {
		return OffsetResult{}, fmt.Errorf("%w: %d exceeds limit of %d", types.ErrTooManyPoints, len(offsets), c.opts.MaxBatchPoints)
	}
	if origin.Y < -90 || origin.Y > 90 || origin.X < -180 || origin.X > 180 {
		return OffsetResult{}, fmt.Errorf("%w: origin lon %v lat %v", types.ErrOutOfDomain, origin.X, origin.Y)
	}

	def, err := c.engine.Describe(ctx, crs)
	if err != nil {
		return OffsetResult{}, err
	}
	ell := geodesy.EllipsoidOf(def)

	var proj geodesy.Projection
	if def.IsProjected() {
		if proj, err = geodesy.NewProjection(*def.Projection, ell); err != nil {
			return OffsetResult{}, &types.InvalidCRSError{ID: crs, Reason: err.Error()}
		}
	}
	unit := UnitsOf(def).HorizontalFactor

	h := 0.0
	if origin.Z != nil {
		h = *origin.Z
	}
	frame := geodesy.NewLocalFrame(ell, origin.X, origin.Y, h)

	res := OffsetResult{Points: make([]OffsetPoint, len(offsets))}
	geo := make([]types.Position, len(offsets))
	for i, o := range offsets {
		lon, lat, height := frame.Offset(o.East, o.North, o.Up)
		geo[i] = types.Position{X: lon, Y: lat, Z: types.Float64(height)}
		res.Points[i].Geodetic = geo[i]
		if proj != nil {
			x, y := proj.Forward(lon, lat)
			res.Points[i].Projected = &types.Position{X: x / unit, Y: y / unit}
		}
	}

	base := geodeticBase(def)
	if base == "" || len(offsets) == 0 {
		return res, nil
	}
	wgs, err := c.TransformBatch(ctx, base, WGS84Code, geo, LegHint{})
	if err != nil {
		c.log.Debug().Err(err).Str("crs", crs).Msg("local offsets without WGS 84 positions")
		return res, nil
	}
	for i := range res.Points {
		res.Points[i].WGS84 = &wgs.Points[i]
	}
	res.WGS84Path = &wgs.Path
	return res, nil
}
