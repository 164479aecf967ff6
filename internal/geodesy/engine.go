// Package geodesy defines the transformation engine the path, composer and
// matcher packages are built on, plus a built-in implementation backed by the
// reference catalog.
//
// The Engine interface is the only contract the rest of geokeeper depends on.
// Tests use the in-memory fake in geodesytest; production uses Builtin.
package geodesy

import (
	"context"

	"github.com/solatis/geokeeper/internal/types"
)

// Operation is one transformation path as reported by an engine.
// Definitions holds one PROJ-style string per executed step, aligned with Steps.
type Operation struct {
	Description  string
	Accuracy     *float64
	AccuracyUnit string
	Definitions  []string
	Steps        []types.OperationInfo
}

// Engine is the geodetic capability geokeeper layers its selection logic on.
type Engine interface {
	// Operations enumerates every known path from source to target in the
	// engine's own order. Unresolvable identifiers fail with types.ErrInvalidCRS.
	// An empty result with nil error means no path exists.
	Operations(ctx context.Context, source, target string) ([]Operation, error)

	// Transform executes the path at position pathID of Operations(source, target).
	Transform(ctx context.Context, source, target string, pathID int, points []types.Position) ([]types.Position, error)

	// Describe returns metadata for a CRS identifier.
	Describe(ctx context.Context, id string) (types.CRSDefinition, error)

	// References lists the reference CRSs in a stable order.
	References(ctx context.Context) ([]types.CRSDefinition, error)
}

// Factors holds projection distortion at a point.
type Factors struct {
	MeridionalScale     float64 `json:"meridional_scale"`
	ParallelScale       float64 `json:"parallel_scale"`
	ArealScale          float64 `json:"areal_scale"`
	MeridianConvergence float64 `json:"meridian_convergence"`
}

// Distortion is implemented by engines that can evaluate projection factors.
// Callers type-assert for it; engines without it simply omit the metadata.
type Distortion interface {
	Factors(ctx context.Context, id string, lon, lat float64) (Factors, error)
}

// Definitions supplies the reference catalog records the built-in engine executes.
type Definitions interface {
	ListCRS(ctx context.Context) ([]types.CRSDefinition, error)
	ListOperations(ctx context.Context) ([]types.OperationDefinition, error)
}
