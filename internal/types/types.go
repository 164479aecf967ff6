// Package types provides domain models shared across geokeeper components.
//
// Zero-dependency design: everything except ids.go uses only the standard
// library so that the path, matcher and geodesy packages can share records
// without importing each other.
//
// All records are value types created per request. Nothing in this package
// is mutated after construction; slices handed out by the catalog builder are
// copies.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Default unit reported for path accuracies when the engine gives none.
const AccuracyUnitMetre = "metre"

// OperationInfo identifies one concatenated step inside a transformation path.
type OperationInfo struct {
	MethodName string  `json:"method_name" yaml:"method_name"`
	Authority  *string `json:"authority" yaml:"authority,omitempty"`
	Code       *string `json:"code" yaml:"code,omitempty"`
}

// PathDescriptor is one entry of a path catalog.
// PathID is the entry's position in the sorted catalog. The sort is stable
// over the engine's order, so a pair always yields the same assignment and a
// caller can pin a path across requests. EngineIndex is the position the
// engine reported the path at and is what gets executed.
// A nil Accuracy means unknown and ranks after every numeric value.
type PathDescriptor struct {
	PathID       int             `json:"path_id"`
	EngineIndex  int             `json:"-"`
	Description  string          `json:"description"`
	Accuracy     *float64        `json:"accuracy"`
	AccuracyUnit string          `json:"accuracy_unit"`
	Operations   []string        `json:"operations"`
	Steps        []OperationInfo `json:"operations_info"`
}

// Clone returns a deep copy so catalog entries never share backing arrays.
func (p PathDescriptor) Clone() PathDescriptor {
	out := p
	if p.Accuracy != nil {
		acc := *p.Accuracy
		out.Accuracy = &acc
	}
	out.Operations = append([]string(nil), p.Operations...)
	out.Steps = append([]OperationInfo(nil), p.Steps...)
	return out
}

// Position is a coordinate tuple in the axis order of its CRS
// (easting/longitude first). Z is optional and carried through transforms.
type Position struct {
	X float64  `json:"x"`
	Y float64  `json:"y"`
	Z *float64 `json:"z,omitempty"`
}

// HasZ reports whether a vertical component is present.
func (p Position) HasZ() bool { return p.Z != nil }

// UnmarshalJSON accepts lon/lat as spellings of x/y. x and y win when both
// spellings are present. Both horizontal components are required.
func (p *Position) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}
	var raw struct {
		X   *float64 `json:"x"`
		Y   *float64 `json:"y"`
		Lon *float64 `json:"lon"`
		Lat *float64 `json:"lat"`
		Z   *float64 `json:"z"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	x, y := raw.X, raw.Y
	if x == nil {
		x = raw.Lon
	}
	if y == nil {
		y = raw.Lat
	}
	if x == nil || y == nil {
		return errors.New("position requires x (or lon) and y (or lat)")
	}
	*p = Position{X: *x, Y: *y, Z: raw.Z}
	return nil
}

// LegSelection records how one hop of a composed transform was resolved.
// SelectedPathID and PreferredOps echo the caller's hint; Chosen is the path
// that was actually executed.
type LegSelection struct {
	From           string           `json:"from"`
	To             string           `json:"to"`
	Catalog        []PathDescriptor `json:"catalog"`
	SelectedPathID *int             `json:"selected_path_id,omitempty"`
	PreferredOps   []string         `json:"preferred_ops,omitempty"`
	Chosen         PathDescriptor   `json:"chosen"`
}

// ComposedResult summarises a multi-leg transform.
// CumulativeAccuracy is nil when the total cannot be bounded.
type ComposedResult struct {
	Waypoints          []string       `json:"waypoints"`
	PerLeg             []LegSelection `json:"per_leg"`
	CumulativeAccuracy *float64       `json:"cumulative_accuracy"`
}

// MatchCandidate is one ranked reference CRS for a custom descriptor.
// Matched lists the features that contributed to Score.
type MatchCandidate struct {
	EPSGCode string   `json:"epsg_code"`
	Name     string   `json:"name"`
	Score    int      `json:"score"`
	Matched  []string `json:"matched_features,omitempty"`
}

// Float64 returns a pointer to v. Used for optional numeric fields.
func Float64(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
