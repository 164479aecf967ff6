// Package api provides the geokeeper transformation service and its gRPC and
// HTTP bindings.
package api

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solatis/geokeeper/internal/core/config"
	"github.com/solatis/geokeeper/internal/matcher"
	"github.com/solatis/geokeeper/internal/paths"
	"github.com/solatis/geokeeper/internal/types"
)

// Catalog searches the reference catalog. refcat.Store satisfies it.
type Catalog interface {
	SearchCRS(ctx context.Context, text string, kind types.CRSKind, limit int) ([]types.CRSDefinition, error)
}

const maxSearchLimit = 500

// Service implements every geokeeper operation.
// Thin orchestration layer delegating to paths, customcrs and matcher.
// Errors are returned unmapped; transports translate them via grpcStatus
// and httpStatus.
type Service struct {
	builder  *paths.Builder
	composer *paths.Composer
	matcher  *matcher.Matcher
	catalog  Catalog
	cfg      *config.ServiceConfig
	log      zerolog.Logger
}

// NewService creates a service. catalog may be nil, in which case Search
// reports the catalog as unavailable.
func NewService(builder *paths.Builder, composer *paths.Composer, m *matcher.Matcher, catalog Catalog, cfg *config.ServiceConfig, log zerolog.Logger) (*Service, error) {
	if builder == nil {
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if composer == nil {
		return nil, fmt.Errorf("composer cannot be nil")
	}
	if m == nil {
		return nil, fmt.Errorf("matcher cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}

	return &Service{
		builder:  builder,
		composer: composer,
		matcher:  m,
		catalog:  catalog,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Paths returns the sorted catalog for a pair. An empty catalog is a valid
// answer with no recommendation.
func (s *Service) Paths(ctx context.Context, req *PathsRequest) (*PathsResponse, error) {
	catalog, err := s.builder.BuildCatalog(ctx, req.SourceCRS, req.TargetCRS)
	if err != nil {
		return nil, err
	}

	resp := &PathsResponse{
		SourceCRS: req.SourceCRS,
		TargetCRS: req.TargetCRS,
		Paths:     catalog,
	}
	if len(catalog) > 0 {
		resp.RecommendedPathID = types.Int(catalog[0].PathID)
	}
	return resp, nil
}

// Direct transforms one position through the selected path.
func (s *Service) Direct(ctx context.Context, req *DirectRequest) (*DirectResponse, error) {
	pos, err := withVertical(req.Position, req.VerticalValue)
	if err != nil {
		return nil, err
	}
	res, err := s.composer.TransformDirect(ctx, req.SourceCRS, req.TargetCRS, pos,
		paths.LegHint{PathID: req.PathID, PreferredOps: req.PreferredOps})
	if err != nil {
		return nil, err
	}
	return &DirectResponse{DirectResult: res}, nil
}

// Via transforms one position through every leg of a waypoint chain.
func (s *Service) Via(ctx context.Context, req *ViaRequest) (*ViaResponse, error) {
	hints, err := legHints(req)
	if err != nil {
		return nil, err
	}
	start, err := withVertical(req.Position, req.VerticalValue)
	if err != nil {
		return nil, err
	}

	pos, result, err := s.composer.TransformVia(ctx, req.Waypoints, start, hints)
	if err != nil {
		return nil, err
	}
	return &ViaResponse{Position: pos, ComposedResult: result}, nil
}

// withVertical folds vertical_value into the position's Z. Conflicting
// values are a caller error.
func withVertical(pos types.Position, vertical *float64) (types.Position, error) {
	if vertical == nil {
		return pos, nil
	}
	if pos.Z != nil && *pos.Z != *vertical {
		return types.Position{}, fmt.Errorf("%w: position.z %v and vertical_value %v disagree", ErrInvalidRequest, *pos.Z, *vertical)
	}
	pos.Z = types.Float64(*vertical)
	return pos, nil
}

// legHints zips the per-leg hint lists. Nil lists mean no hints; a list of
// the wrong length is a caller error and is never padded or truncated.
func legHints(req *ViaRequest) ([]paths.LegHint, error) {
	if req.SegmentPathIDs == nil && req.SegmentPreferredOps == nil {
		return nil, nil
	}
	legs := len(req.Waypoints) - 1
	if legs < 1 {
		return nil, types.ErrTooFewWaypoints
	}
	if req.SegmentPathIDs != nil && len(req.SegmentPathIDs) != legs {
		return nil, fmt.Errorf("%w: segment_path_ids has %d entries for %d legs", types.ErrHintLengthMismatch, len(req.SegmentPathIDs), legs)
	}
	if req.SegmentPreferredOps != nil && len(req.SegmentPreferredOps) != legs {
		return nil, fmt.Errorf("%w: segment_preferred_ops has %d entries for %d legs", types.ErrHintLengthMismatch, len(req.SegmentPreferredOps), legs)
	}

	hints := make([]paths.LegHint, legs)
	for i := range hints {
		if req.SegmentPathIDs != nil {
			hints[i].PathID = req.SegmentPathIDs[i]
		}
		if req.SegmentPreferredOps != nil {
			hints[i].PreferredOps = req.SegmentPreferredOps[i]
		}
	}
	return hints, nil
}

// Trajectory transforms a batch of points through one selected path.
func (s *Service) Trajectory(ctx context.Context, req *TrajectoryRequest) (*TrajectoryResponse, error) {
	engine := s.builder.Engine()
	src, err := engine.Describe(ctx, req.SourceCRS)
	if err != nil {
		return nil, err
	}
	tgt, err := engine.Describe(ctx, req.TargetCRS)
	if err != nil {
		return nil, err
	}

	res, err := s.composer.TransformBatch(ctx, req.SourceCRS, req.TargetCRS, req.Points,
		paths.LegHint{PathID: req.PathID, PreferredOps: req.PreferredOps})
	if err != nil {
		return nil, err
	}

	return &TrajectoryResponse{
		Points:      res.Points,
		Path:        res.Path,
		SourceUnits: paths.UnitsOf(src),
		TargetUnits: paths.UnitsOf(tgt),
	}, nil
}

// Accuracy summarises the recommended path for a pair.
func (s *Service) Accuracy(ctx context.Context, req *AccuracyRequest) (*AccuracyResponse, error) {
	catalog, err := s.builder.BuildCatalog(ctx, req.SourceCRS, req.TargetCRS)
	if err != nil {
		return nil, err
	}
	best, err := paths.Select(catalog, paths.SelectOptions{})
	if err != nil {
		return nil, err
	}

	return &AccuracyResponse{
		SourceCRS:          req.SourceCRS,
		TargetCRS:          req.TargetCRS,
		HorizontalAccuracy: best.Accuracy,
		AccuracyUnit:       best.AccuracyUnit,
		Method:             best.Description,
		Operations:         best.Operations,
	}, nil
}

// Units reports the horizontal unit of a CRS.
func (s *Service) Units(ctx context.Context, req *UnitsRequest) (*UnitsResponse, error) {
	def, err := s.builder.Engine().Describe(ctx, req.Code)
	if err != nil {
		return nil, err
	}
	return &UnitsResponse{Code: req.Code, Units: paths.UnitsOf(def)}, nil
}

// Search lists reference CRSs whose name or code contains the text.
func (s *Service) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("%w: reference catalog search not configured", ErrUnavailable)
	}

	kind := types.CRSKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	switch kind {
	case "", types.KindGeographic, types.KindProjected:
	default:
		return nil, fmt.Errorf("%w: crs_type must be geographic or projected, got %q", ErrInvalidRequest, req.Kind)
	}
	if req.Limit < 0 || req.Limit > maxSearchLimit {
		return nil, fmt.Errorf("%w: limit must be between 0 and %d", ErrInvalidRequest, maxSearchLimit)
	}

	defs, err := s.catalog.SearchCRS(ctx, req.Text, kind, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp := &SearchResponse{Results: make([]CRSSummary, len(defs))}
	for i, d := range defs {
		resp.Results[i] = CRSSummary{Code: d.Code, Name: d.Name, Kind: d.Kind}
	}
	return resp, nil
}
