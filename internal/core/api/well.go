package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/solatis/geokeeper/internal/paths"
	"github.com/solatis/geokeeper/internal/types"
)

const (
	sourceGeographic = "geographic"
	sourceProjected  = "projected"
)

func convention(depth bool) string {
	if depth {
		return "depth"
	}
	return "height"
}

// Vertical converts a height or depth between two CRSs at a horizontal
// position. Values travel as positive-up heights; depth conventions are
// applied on the way in and out.
func (s *Service) Vertical(ctx context.Context, req *VerticalRequest) (*VerticalResponse, error) {
	source := strings.TrimSpace(req.SourceVerticalCRS)
	if source == "" {
		source = strings.TrimSpace(req.SourceCRS)
	}
	if source == "" {
		return nil, fmt.Errorf("%w: provide either source_crs (ellipsoidal) or source_vertical_crs", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.TargetVerticalCRS) == "" {
		return nil, fmt.Errorf("%w: target_vertical_crs is required", ErrInvalidRequest)
	}

	h, path, err := s.composer.TransformHeight(ctx, source, req.TargetVerticalCRS, req.Lon, req.Lat,
		paths.ToHeight(req.Value, req.ValueIsDepth), paths.LegHint{})
	if err != nil {
		return nil, err
	}

	return &VerticalResponse{
		Lon:               req.Lon,
		Lat:               req.Lat,
		InputValue:        req.Value,
		OutputValue:       paths.FromHeight(h, req.OutputAsDepth),
		OutputConvention:  convention(req.OutputAsDepth),
		Source:            source,
		TargetVerticalCRS: req.TargetVerticalCRS,
		Path:              path,
	}, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// WellPoint transforms a well location into the target projected CRS and,
// when a TVD and vertical CRS are given, its true vertical depth.
func (s *Service) WellPoint(ctx context.Context, req *WellPointRequest) (*WellPointResponse, error) {
	var pos types.Position
	kind := strings.ToLower(strings.TrimSpace(req.SourceType))
	switch kind {
	case sourceProjected:
		if req.Easting == nil || req.Northing == nil {
			return nil, fmt.Errorf("%w: easting/northing required for projected source", ErrInvalidRequest)
		}
		pos = types.Position{X: *req.Easting, Y: *req.Northing}
	case sourceGeographic:
		if req.Lon == nil || req.Lat == nil {
			return nil, fmt.Errorf("%w: lon/lat required for geographic source", ErrInvalidRequest)
		}
		pos = types.Position{X: *req.Lon, Y: *req.Lat}
	default:
		return nil, fmt.Errorf("%w: source_type must be %s or %s, got %q", ErrInvalidRequest, sourceGeographic, sourceProjected, req.SourceType)
	}

	horiz, err := s.composer.TransformDirect(ctx, req.SourceCRS, req.TargetProjectedCRS, pos, paths.LegHint{})
	if err != nil {
		return nil, err
	}
	resp := &WellPointResponse{
		Projected: WellProjected{CRS: req.TargetProjectedCRS, X: horiz.Position.X, Y: horiz.Position.Y},
	}
	if req.TVDValue == nil || strings.TrimSpace(req.TargetVerticalCRS) == "" {
		return resp, nil
	}

	lon, lat := pos.X, pos.Y
	if kind == sourceProjected {
		geo, err := s.composer.TransformDirect(ctx, req.SourceCRS, paths.WGS84Code, pos, paths.LegHint{})
		if err != nil {
			return nil, err
		}
		lon, lat = geo.Position.X, geo.Position.Y
	}

	v, err := s.Vertical(ctx, &VerticalRequest{
		SourceCRS:         paths.WGS84Code,
		TargetVerticalCRS: req.TargetVerticalCRS,
		Lon:               lon,
		Lat:               lat,
		Value:             *req.TVDValue,
		ValueIsDepth:      boolOr(req.TVDIsDepth, true),
		OutputAsDepth:     true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.log.Debug().Err(err).Str("target_vertical_crs", req.TargetVerticalCRS).Msg("well vertical transform failed")
		resp.VerticalError = err.Error()
		return resp, nil
	}

	wv := &WellVertical{CRS: req.TargetVerticalCRS, TVD: v.OutputValue, Convention: "depth"}
	if boolOr(req.OutputTVDSigned, true) {
		wv.TVD = -v.OutputValue
		wv.Convention = "signed_tvd"
	}
	resp.Vertical = wv
	return resp, nil
}

// WellBatch runs WellPoint per entry. A failing entry records its error and
// the batch continues; only cancellation stops it.
func (s *Service) WellBatch(ctx context.Context, req *WellBatchRequest) (*WellBatchResponse, error) {
	if s.cfg.MaxBatchPoints > 0 && len(req.Points) > s.cfg.MaxBatchPoints {
		return nil, fmt.Errorf("%w: %d exceeds limit of %d", types.ErrTooManyPoints, len(req.Points), s.cfg.MaxBatchPoints)
	}

	resp := &WellBatchResponse{Results: make([]WellBatchItem, len(req.Points))}
	for i := range req.Points {
		out, err := s.WellPoint(ctx, &req.Points[i])
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			resp.Results[i].Error = err.Error()
			continue
		}
		resp.Results[i].WellPointResponse = out
	}
	return resp, nil
}

// LocalOffsets places east/north/up offsets around an origin.
func (s *Service) LocalOffsets(ctx context.Context, req *LocalOffsetRequest) (*LocalOffsetResponse, error) {
	res, err := s.composer.LocalOffsets(ctx, req.CRS, types.Position{X: req.Lon, Y: req.Lat, Z: types.Float64(req.Height)}, req.Offsets)
	if err != nil {
		return nil, err
	}
	return &LocalOffsetResponse{CRS: req.CRS, OffsetResult: res}, nil
}
