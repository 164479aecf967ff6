// Package geodesytest provides an in-memory geodesy.Engine for tests.
package geodesytest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

// Path is a canned operation with the effect Transform applies to points.
// A nil Apply adds Offset to X and Y.
type Path struct {
	geodesy.Operation
	Offset types.Position
	Apply  func(types.Position) types.Position
}

// Engine is a fake geodesy.Engine. Unknown identifiers fail with
// types.ErrInvalidCRS unless they appear in a registered pair or in CRS.
type Engine struct {
	mu      sync.Mutex
	paths   map[string][]Path
	crs     map[string]types.CRSDefinition
	refs    []types.CRSDefinition
	errs    map[string]error
	factors map[string]geodesy.Factors

	// Calls counts Operations invocations per "source->target" key.
	Calls map[string]int
}

// New returns an empty fake.
func New() *Engine {
	return &Engine{
		paths:   make(map[string][]Path),
		crs:     make(map[string]types.CRSDefinition),
		errs:    make(map[string]error),
		factors: make(map[string]geodesy.Factors),
		Calls:   make(map[string]int),
	}
}

func key(source, target string) string { return source + "->" + target }

// AddPaths registers the paths returned for a pair, in engine order.
func (e *Engine) AddPaths(source, target string, paths ...Path) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paths[key(source, target)] = append(e.paths[key(source, target)], paths...)
	for _, id := range []string{source, target} {
		if _, ok := e.crs[id]; !ok {
			e.crs[id] = types.CRSDefinition{Code: id, Name: id, Kind: types.KindGeographic, Unit: "degree", UnitFactor: 1}
		}
	}
	return e
}

// AddCRS registers a CRS for Describe. Reference CRSs are also listed by References.
func (e *Engine) AddCRS(def types.CRSDefinition, reference bool) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.crs[def.Code] = def
	if reference {
		e.refs = append(e.refs, def)
	}
	return e
}

// FailPair makes Operations and Transform fail for a pair.
func (e *Engine) FailPair(source, target string, err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs[key(source, target)] = err
	return e
}

// SetFactors makes the fake implement geodesy.Distortion for id.
func (e *Engine) SetFactors(id string, f geodesy.Factors) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.factors[id] = f
	return e
}

// Path returns a path with the given accuracy and step method names.
func NewPath(description string, accuracy *float64, methods ...string) Path {
	p := Path{Operation: geodesy.Operation{
		Description:  description,
		Accuracy:     accuracy,
		AccuracyUnit: types.AccuracyUnitMetre,
	}}
	for _, m := range methods {
		p.Steps = append(p.Steps, types.OperationInfo{MethodName: m})
		p.Definitions = append(p.Definitions, "+proj="+strings.ToLower(strings.ReplaceAll(m, " ", "_")))
	}
	return p
}

func (e *Engine) check(source, target string) error {
	if err := e.errs[key(source, target)]; err != nil {
		return err
	}
	for _, id := range []string{source, target} {
		if _, ok := e.crs[id]; !ok {
			return &types.InvalidCRSError{ID: id, Reason: "unknown to fake engine"}
		}
	}
	return nil
}

// Operations implements geodesy.Engine.
func (e *Engine) Operations(ctx context.Context, source, target string) ([]geodesy.Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls[key(source, target)]++
	if err := e.check(source, target); err != nil {
		return nil, err
	}
	paths := e.paths[key(source, target)]
	ops := make([]geodesy.Operation, len(paths))
	for i, p := range paths {
		ops[i] = p.Operation
	}
	return ops, nil
}

// Transform implements geodesy.Engine.
func (e *Engine) Transform(ctx context.Context, source, target string, pathID int, points []types.Position) ([]types.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.check(source, target); err != nil {
		return nil, err
	}
	paths := e.paths[key(source, target)]
	if pathID < 0 || pathID >= len(paths) {
		return nil, fmt.Errorf("fake engine: no path %d for %s", pathID, key(source, target))
	}
	p := paths[pathID]
	out := make([]types.Position, len(points))
	for i, pt := range points {
		if p.Apply != nil {
			out[i] = p.Apply(pt)
			continue
		}
		out[i] = types.Position{X: pt.X + p.Offset.X, Y: pt.Y + p.Offset.Y, Z: pt.Z}
	}
	return out, nil
}

// Describe implements geodesy.Engine.
func (e *Engine) Describe(ctx context.Context, id string) (types.CRSDefinition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	def, ok := e.crs[id]
	if !ok {
		return types.CRSDefinition{}, &types.InvalidCRSError{ID: id}
	}
	return def, nil
}

// References implements geodesy.Engine.
func (e *Engine) References(ctx context.Context) ([]types.CRSDefinition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]types.CRSDefinition(nil), e.refs...), nil
}

// Factors implements geodesy.Distortion.
func (e *Engine) Factors(ctx context.Context, id string, lon, lat float64) (geodesy.Factors, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.factors[id]
	if !ok {
		return geodesy.Factors{}, fmt.Errorf("%w: %s", types.ErrNotProjected, id)
	}
	return f, nil
}
