package api

import (
	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/paths"
	"github.com/solatis/geokeeper/internal/types"
)

// Request and response messages. Field names follow the JSON wire format
// shared by the gRPC codec and the HTTP routes.

type PathsRequest struct {
	SourceCRS string `json:"source_crs"`
	TargetCRS string `json:"target_crs"`
}

type PathsResponse struct {
	SourceCRS         string                 `json:"source_crs"`
	TargetCRS         string                 `json:"target_crs"`
	Paths             []types.PathDescriptor `json:"transformation_paths"`
	RecommendedPathID *int                   `json:"recommended_path_id"`
}

// DirectRequest transforms one position. PathID and PreferredOps are the
// optional selection hints; PathID wins when both are set. VerticalValue is
// an alternative spelling of position.z.
type DirectRequest struct {
	SourceCRS     string         `json:"source_crs"`
	TargetCRS     string         `json:"target_crs"`
	Position      types.Position `json:"position"`
	VerticalValue *float64       `json:"vertical_value,omitempty"`
	PathID        *int           `json:"path_id,omitempty"`
	PreferredOps  []string       `json:"preferred_ops,omitempty"`
}

type DirectResponse struct {
	paths.DirectResult
}

// ViaRequest transforms one position through a chain of CRSs. Each hint
// list, when present, has one entry per leg; a null path id or an empty
// operation list leaves that leg on the default policy.
type ViaRequest struct {
	Waypoints           []string       `json:"path"`
	Position            types.Position `json:"position"`
	VerticalValue       *float64       `json:"vertical_value,omitempty"`
	SegmentPathIDs      []*int         `json:"segment_path_ids,omitempty"`
	SegmentPreferredOps [][]string     `json:"segment_preferred_ops,omitempty"`
}

type ViaResponse struct {
	Position types.Position `json:"position"`
	types.ComposedResult
}

type TrajectoryRequest struct {
	SourceCRS    string           `json:"source_crs"`
	TargetCRS    string           `json:"target_crs"`
	Points       []types.Position `json:"trajectory_points"`
	PathID       *int             `json:"path_id,omitempty"`
	PreferredOps []string         `json:"preferred_ops,omitempty"`
}

type TrajectoryResponse struct {
	Points      []types.Position     `json:"transformed_trajectory"`
	Path        types.PathDescriptor `json:"path"`
	SourceUnits paths.Units          `json:"units_source"`
	TargetUnits paths.Units          `json:"units_target"`
}

// CustomRequest transforms a position from a legacy descriptor's CRS.
type CustomRequest struct {
	DefinitionXML string         `json:"custom_definition_xml"`
	TargetCRS     string         `json:"target_crs"`
	Position      types.Position `json:"position"`
	VerticalValue *float64       `json:"vertical_value,omitempty"`
	PathID        *int           `json:"path_id,omitempty"`
	PreferredOps  []string       `json:"preferred_ops,omitempty"`
}

type CustomResponse struct {
	Definition string `json:"proj_definition"`
	paths.DirectResult
}

type AccuracyRequest struct {
	SourceCRS string `json:"source_crs"`
	TargetCRS string `json:"target_crs"`
}

type AccuracyResponse struct {
	SourceCRS          string   `json:"source_crs"`
	TargetCRS          string   `json:"target_crs"`
	HorizontalAccuracy *float64 `json:"horizontal_accuracy"`
	AccuracyUnit       string   `json:"accuracy_unit"`
	Method             string   `json:"transformation_method"`
	Operations         []string `json:"operations"`
}

type RequiredGridsRequest struct {
	SourceCRS string `json:"source_crs"`
	TargetCRS string `json:"target_crs"`
}

type GridFile struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

type GridPath struct {
	PathID      int        `json:"path_id"`
	Description string     `json:"description"`
	Accuracy    *float64   `json:"accuracy"`
	Grids       []GridFile `json:"grids"`
}

type RequiredGridsResponse struct {
	SourceCRS string     `json:"source_crs"`
	TargetCRS string     `json:"target_crs"`
	Paths     []GridPath `json:"paths"`
}

type UnitsRequest struct {
	Code string `json:"epsg_code"`
}

type UnitsResponse struct {
	Code  string      `json:"epsg_code"`
	Units paths.Units `json:"units"`
}

type SearchRequest struct {
	Text  string `json:"text"`
	Kind  string `json:"crs_type"`
	Limit int    `json:"limit"`
}

type CRSSummary struct {
	Code string        `json:"code"`
	Name string        `json:"name"`
	Kind types.CRSKind `json:"type"`
}

type SearchResponse struct {
	Results []CRSSummary `json:"results"`
}

type NormalizeRequest struct {
	DefinitionXML string `json:"definition_xml"`
}

type NormalizeResponse struct {
	Descriptor types.CustomCRSDescriptor `json:"descriptor"`
	Definition string                    `json:"proj_definition"`
}

type MatchRequest struct {
	DefinitionXML string `json:"definition_xml"`
}

type MatchResponse struct {
	Definition string                 `json:"proj_definition"`
	Candidates []types.MatchCandidate `json:"candidates"`
}

type FactorsRequest struct {
	CRS string  `json:"crs"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type FactorsResponse struct {
	CRS string `json:"crs"`
	geodesy.Factors
}

// VerticalRequest converts a height or depth at a horizontal position.
// SourceVerticalCRS wins over SourceCRS when both are set. Lon and Lat are in
// the source CRS's axis order.
type VerticalRequest struct {
	SourceCRS         string  `json:"source_crs,omitempty"`
	SourceVerticalCRS string  `json:"source_vertical_crs,omitempty"`
	TargetVerticalCRS string  `json:"target_vertical_crs"`
	Lon               float64 `json:"lon"`
	Lat               float64 `json:"lat"`
	Value             float64 `json:"value"`
	ValueIsDepth      bool    `json:"value_is_depth"`
	OutputAsDepth     bool    `json:"output_as_depth"`
}

type VerticalResponse struct {
	Lon               float64              `json:"lon"`
	Lat               float64              `json:"lat"`
	InputValue        float64              `json:"input_value"`
	OutputValue       float64              `json:"output_value"`
	OutputConvention  string               `json:"output_convention"`
	Source            string               `json:"source"`
	TargetVerticalCRS string               `json:"target_vertical_crs"`
	Path              types.PathDescriptor `json:"path"`
}

// WellPointRequest places one well location. SourceType is "geographic"
// (Lon/Lat) or "projected" (Easting/Northing). TVDIsDepth and
// OutputTVDSigned default to true.
type WellPointRequest struct {
	SourceType         string   `json:"source_type"`
	SourceCRS          string   `json:"source_crs"`
	Lon                *float64 `json:"lon,omitempty"`
	Lat                *float64 `json:"lat,omitempty"`
	Easting            *float64 `json:"easting,omitempty"`
	Northing           *float64 `json:"northing,omitempty"`
	TargetProjectedCRS string   `json:"target_projected_crs"`
	TargetVerticalCRS  string   `json:"target_vertical_crs,omitempty"`
	TVDValue           *float64 `json:"tvd_value,omitempty"`
	TVDIsDepth         *bool    `json:"tvd_is_depth,omitempty"`
	OutputTVDSigned    *bool    `json:"output_tvd_signed,omitempty"`
}

type WellProjected struct {
	CRS string  `json:"crs"`
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
}

type WellVertical struct {
	CRS        string  `json:"crs"`
	TVD        float64 `json:"tvd"`
	Convention string  `json:"convention"`
}

// WellPointResponse carries the horizontal result and, when requested, the
// vertical one. A vertical failure is reported in VerticalError and does not
// fail the point.
type WellPointResponse struct {
	Projected     WellProjected `json:"projected"`
	Vertical      *WellVertical `json:"vertical,omitempty"`
	VerticalError string        `json:"vertical_error,omitempty"`
}

type WellBatchRequest struct {
	Points []WellPointRequest `json:"points"`
}

// WellBatchItem is either a point result or the error that point failed with.
type WellBatchItem struct {
	*WellPointResponse
	Error string `json:"error,omitempty"`
}

type WellBatchResponse struct {
	Results []WellBatchItem `json:"results"`
}

// LocalOffsetRequest places east/north/up offsets around an origin given as
// lon/lat/height on the datum of CRS.
type LocalOffsetRequest struct {
	CRS     string         `json:"crs"`
	Lon     float64        `json:"lon"`
	Lat     float64        `json:"lat"`
	Height  float64        `json:"height"`
	Offsets []paths.Offset `json:"offsets"`
}

type LocalOffsetResponse struct {
	CRS string `json:"crs"`
	paths.OffsetResult
}
