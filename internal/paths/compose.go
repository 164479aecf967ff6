package paths

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

// AccuracyPolicy decides how per-leg accuracies combine into a chain total.
type AccuracyPolicy string

const (
	// PolicyPoison sums leg accuracies; one unknown leg makes the total unknown.
	PolicyPoison AccuracyPolicy = "poison"

	// PolicySumKnown sums only the known legs; the total is unknown only when
	// no leg is known.
	PolicySumKnown AccuracyPolicy = "sum_known"
)

// ParseAccuracyPolicy validates a policy name. Empty selects PolicyPoison.
func ParseAccuracyPolicy(s string) (AccuracyPolicy, error) {
	switch p := AccuracyPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyPoison, nil
	case PolicyPoison, PolicySumKnown:
		return p, nil
	default:
		return "", fmt.Errorf("unknown accuracy policy %q (expected %s or %s)", s, PolicyPoison, PolicySumKnown)
	}
}

// CumulativeAccuracy combines per-leg accuracies under a policy.
func CumulativeAccuracy(policy AccuracyPolicy, legs []*float64) *float64 {
	total, known := 0.0, 0
	for _, acc := range legs {
		if acc == nil {
			if policy != PolicySumKnown {
				return nil
			}
			continue
		}
		total += *acc
		known++
	}
	if known == 0 {
		return nil
	}
	return &total
}

// LegHint is the selection hint for one leg of a composed transform.
type LegHint = SelectOptions

// ComposerOptions bounds composed and batch transforms. Zero limits disable the check.
type ComposerOptions struct {
	Policy         AccuracyPolicy
	MaxWaypoints   int
	MaxBatchPoints int
}

// Composer executes selected paths through the engine.
// Legs run strictly in sequence; leg i+1 consumes leg i's output.
type Composer struct {
	builder *Builder
	engine  geodesy.Engine
	opts    ComposerOptions
	log     zerolog.Logger
}

// NewComposer creates a composer over a builder and its engine.
func NewComposer(builder *Builder, opts ComposerOptions, log zerolog.Logger) *Composer {
	if opts.Policy == "" {
		opts.Policy = PolicyPoison
	}
	return &Composer{builder: builder, engine: builder.Engine(), opts: opts, log: log}
}

// Policy returns the accuracy policy in effect.
func (c *Composer) Policy() AccuracyPolicy { return c.opts.Policy }

// resolve builds the catalog for a pair and selects a path from it.
func (c *Composer) resolve(ctx context.Context, source, target string, hint LegHint) ([]types.PathDescriptor, types.PathDescriptor, error) {
	catalog, err := c.builder.BuildCatalog(ctx, source, target)
	if err != nil {
		return nil, types.PathDescriptor{}, err
	}
	chosen, err := Select(catalog, hint)
	if err != nil {
		return nil, types.PathDescriptor{}, err
	}
	return catalog, chosen, nil
}

func (c *Composer) execute(ctx context.Context, source, target string, p types.PathDescriptor, points []types.Position) ([]types.Position, error) {
	transformPoints.Observe(float64(len(points)))
	out, err := c.engine.Transform(ctx, source, target, p.EngineIndex, points)
	if err != nil {
		return nil, err
	}
	if len(out) != len(points) {
		return nil, fmt.Errorf("engine returned %d points for %d inputs", len(out), len(points))
	}
	return out, nil
}

// trimIDs returns a trimmed copy of ids so the engine sees the same
// identifiers the catalog was built and cached under.
func trimIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strings.TrimSpace(id)
	}
	return out
}

// TransformVia transforms pos through every adjacent pair of waypoints.
// hints is nil or has exactly one entry per leg. A failing leg aborts the
// whole chain with a *types.LegError; no partial result is returned.
func (c *Composer) TransformVia(ctx context.Context, waypoints []string, pos types.Position, hints []LegHint) (types.Position, types.ComposedResult, error) {
	legs := len(waypoints) - 1
	if legs < 1 {
		return types.Position{}, types.ComposedResult{}, types.ErrTooFewWaypoints
	}
	if c.opts.MaxWaypoints > 0 && len(waypoints) > c.opts.MaxWaypoints {
		return types.Position{}, types.ComposedResult{}, fmt.Errorf("%w: %d exceeds limit of %d", types.ErrTooManyWaypoints, len(waypoints), c.opts.MaxWaypoints)
	}
	if hints != nil && len(hints) != legs {
		return types.Position{}, types.ComposedResult{}, fmt.Errorf("%w: got %d hints for %d legs", types.ErrHintLengthMismatch, len(hints), legs)
	}
	composeLegs.Observe(float64(legs))
	waypoints = trimIDs(waypoints)

	result := types.ComposedResult{
		Waypoints: waypoints,
		PerLeg:    make([]types.LegSelection, 0, legs),
	}
	accuracies := make([]*float64, 0, legs)
	cur := pos

	for i := 0; i < legs; i++ {
		from, to := waypoints[i], waypoints[i+1]
		var hint LegHint
		if hints != nil {
			hint = hints[i]
		}

		catalog, chosen, err := c.resolve(ctx, from, to, hint)
		if err != nil {
			return types.Position{}, types.ComposedResult{}, &types.LegError{Index: i, From: from, To: to, Err: err}
		}
		out, err := c.execute(ctx, from, to, chosen, []types.Position{cur})
		if err != nil {
			return types.Position{}, types.ComposedResult{}, &types.LegError{Index: i, From: from, To: to, Err: err}
		}
		cur = out[0]

		leg := types.LegSelection{
			From:         from,
			To:           to,
			Catalog:      catalog,
			PreferredOps: append([]string(nil), hint.PreferredOps...),
			Chosen:       chosen,
		}
		if hint.PathID != nil {
			leg.SelectedPathID = types.Int(*hint.PathID)
		}
		result.PerLeg = append(result.PerLeg, leg)
		accuracies = append(accuracies, chosen.Accuracy)
	}

	result.CumulativeAccuracy = CumulativeAccuracy(c.opts.Policy, accuracies)

	c.log.Debug().
		Strs("waypoints", waypoints).
		Int("legs", legs).
		Str("policy", string(c.opts.Policy)).
		Msg("composed transform")

	return cur, result, nil
}

// Units describes the horizontal unit of a CRS.
type Units struct {
	Horizontal       string  `json:"horizontal"`
	HorizontalFactor float64 `json:"horizontal_factor"`
}

// UnitsOf extracts the unit record of a CRS definition.
func UnitsOf(def types.CRSDefinition) Units {
	f := def.UnitFactor
	if f == 0 {
		f = 1
	}
	return Units{Horizontal: def.Unit, HorizontalFactor: f}
}

// DirectResult is a single-leg transform with the metadata of the path used.
// Factors is set only for projected targets on engines that provide them.
type DirectResult struct {
	Position    types.Position       `json:"position"`
	Path        types.PathDescriptor `json:"path"`
	SourceUnits Units                `json:"units_source"`
	TargetUnits Units                `json:"units_target"`
	Factors     *geodesy.Factors     `json:"factors,omitempty"`
}

// TransformDirect is the two-waypoint case of TransformVia plus target metadata.
func (c *Composer) TransformDirect(ctx context.Context, source, target string, pos types.Position, hint LegHint) (DirectResult, error) {
	source, target = strings.TrimSpace(source), strings.TrimSpace(target)
	srcDef, err := c.engine.Describe(ctx, source)
	if err != nil {
		return DirectResult{}, err
	}
	tgtDef, err := c.engine.Describe(ctx, target)
	if err != nil {
		return DirectResult{}, err
	}

	_, chosen, err := c.resolve(ctx, source, target, hint)
	if err != nil {
		return DirectResult{}, err
	}
	out, err := c.execute(ctx, source, target, chosen, []types.Position{pos})
	if err != nil {
		return DirectResult{}, err
	}

	res := DirectResult{
		Position:    out[0],
		Path:        chosen,
		SourceUnits: UnitsOf(srcDef),
		TargetUnits: UnitsOf(tgtDef),
	}
	if tgtDef.IsProjected() {
		if f, err := c.factorsAt(ctx, target, tgtDef, out[0]); err != nil {
			c.log.Debug().Err(err).Str("target", target).Msg("projection factors unavailable")
		} else {
			res.Factors = &f
		}
	}
	return res, nil
}

// factorsAt evaluates distortion at a projected position. The position is
// first brought to geographic coordinates on the CRS's base, or WGS 84 for
// ad hoc definitions without one.
func (c *Composer) factorsAt(ctx context.Context, id string, def types.CRSDefinition, pos types.Position) (geodesy.Factors, error) {
	d, ok := c.engine.(geodesy.Distortion)
	if !ok {
		return geodesy.Factors{}, fmt.Errorf("engine does not evaluate projection factors")
	}
	base := def.Base
	if base == "" {
		base = "EPSG:4326"
	}
	_, p, err := c.resolve(ctx, id, base, LegHint{})
	if err != nil {
		return geodesy.Factors{}, err
	}
	geo, err := c.execute(ctx, id, base, p, []types.Position{{X: pos.X, Y: pos.Y}})
	if err != nil {
		return geodesy.Factors{}, err
	}
	return d.Factors(ctx, id, geo[0].X, geo[0].Y)
}

// BatchResult is a batch of points transformed through one path.
type BatchResult struct {
	Points []types.Position     `json:"points"`
	Path   types.PathDescriptor `json:"path"`
}

// TransformBatch transforms many points through the single path selected
// for the pair.
func (c *Composer) TransformBatch(ctx context.Context, source, target string, points []types.Position, hint LegHint) (BatchResult, error) {
	if c.opts.MaxBatchPoints > 0 && len(points) > c.opts.MaxBatchPoints {
		return BatchResult{}, fmt.Errorf("%w: %d exceeds limit of %d", types.ErrTooManyPoints, len(points), c.opts.MaxBatchPoints)
	}

	source, target = strings.TrimSpace(source), strings.TrimSpace(target)
	_, chosen, err := c.resolve(ctx, source, target, hint)
	if err != nil {
		return BatchResult{}, err
	}
	if len(points) == 0 {
		return BatchResult{Points: []types.Position{}, Path: chosen}, nil
	}
	out, err := c.execute(ctx, source, target, chosen, points)
	if err != nil {
		return BatchResult{}, err
	}
	return BatchResult{Points: out, Path: chosen}, nil
}
