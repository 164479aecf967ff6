package paths

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/geodesy/geodesytest"
	"github.com/solatis/geokeeper/internal/types"
)

func newTestComposer(engine *geodesytest.Engine, opts ComposerOptions) *Composer {
	return NewComposer(NewBuilder(engine, NewCache(), zerolog.Nop()), opts, zerolog.Nop())
}

func offsetPath(desc string, acc *float64, dx float64, methods ...string) geodesytest.Path {
	p := geodesytest.NewPath(desc, acc, methods...)
	p.Offset = types.Position{X: dx}
	return p
}

func TestTransformVia_ChainExample(t *testing.T) {
	engine := geodesytest.New().
		AddPaths("A", "B",
			offsetPath("best", types.Float64(0.05), 1, "Helmert"),
			offsetPath("unknown", nil, 100, "Ballpark")).
		AddPaths("B", "C", offsetPath("only", types.Float64(0.15), 10, "NTv2"))
	c := newTestComposer(engine, ComposerOptions{})

	pos, res, err := c.TransformVia(context.Background(), []string{"A", "B", "C"}, types.Position{X: 0, Y: 5}, nil)
	if err != nil {
		t.Fatalf("TransformVia() error = %v, want nil", err)
	}

	if pos.X != 11 || pos.Y != 5 {
		t.Errorf("position = %+v, want {11 5}", pos)
	}
	if len(res.PerLeg) != 2 {
		t.Fatalf("len(PerLeg) = %d, want 2", len(res.PerLeg))
	}
	if res.PerLeg[0].Chosen.Description != "best" || res.PerLeg[1].Chosen.Description != "only" {
		t.Errorf("chosen = %q, %q, want best, only", res.PerLeg[0].Chosen.Description, res.PerLeg[1].Chosen.Description)
	}
	if res.CumulativeAccuracy == nil || math.Abs(*res.CumulativeAccuracy-0.20) > 1e-12 {
		t.Errorf("CumulativeAccuracy = %v, want 0.20", res.CumulativeAccuracy)
	}
	if len(res.PerLeg[0].Catalog) != 2 {
		t.Errorf("leg 0 catalog size = %d, want 2", len(res.PerLeg[0].Catalog))
	}
}

func threeLegEngine(accs [3]*float64) *geodesytest.Engine {
	return geodesytest.New().
		AddPaths("A", "B", offsetPath("ab", accs[0], 1, "Helmert")).
		AddPaths("B", "C", offsetPath("bc", accs[1], 1, "Helmert")).
		AddPaths("C", "D", offsetPath("cd", accs[2], 1, "Helmert"))
}

func TestTransformVia_CumulativeAccuracy(t *testing.T) {
	tests := []struct {
		name   string
		accs   [3]*float64
		policy AccuracyPolicy
		want   *float64
	}{
		{"all known", [3]*float64{types.Float64(0.05), types.Float64(0.10), types.Float64(0.15)}, PolicyPoison, types.Float64(0.30)},
		{"middle unknown poisons", [3]*float64{types.Float64(0.05), nil, types.Float64(0.15)}, PolicyPoison, nil},
		{"first unknown poisons", [3]*float64{nil, types.Float64(0.10), types.Float64(0.15)}, PolicyPoison, nil},
		{"sum known skips unknown", [3]*float64{types.Float64(0.05), nil, types.Float64(0.15)}, PolicySumKnown, types.Float64(0.20)},
		{"sum known with none known", [3]*float64{nil, nil, nil}, PolicySumKnown, nil},
		{"zero is known", [3]*float64{types.Float64(0), types.Float64(0), types.Float64(0)}, PolicyPoison, types.Float64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestComposer(threeLegEngine(tt.accs), ComposerOptions{Policy: tt.policy})
			pos, res, err := c.TransformVia(context.Background(), []string{"A", "B", "C", "D"}, types.Position{}, nil)
			if err != nil {
				t.Fatalf("TransformVia() error = %v, want nil", err)
			}
			if pos.X != 3 {
				t.Errorf("position X = %v, want 3", pos.X)
			}
			switch {
			case tt.want == nil && res.CumulativeAccuracy != nil:
				t.Errorf("CumulativeAccuracy = %v, want nil", *res.CumulativeAccuracy)
			case tt.want != nil && res.CumulativeAccuracy == nil:
				t.Errorf("CumulativeAccuracy = nil, want %v", *tt.want)
			case tt.want != nil && math.Abs(*res.CumulativeAccuracy-*tt.want) > 1e-12:
				t.Errorf("CumulativeAccuracy = %v, want %v", *res.CumulativeAccuracy, *tt.want)
			}
		})
	}
}

func TestTransformVia_Hints(t *testing.T) {
	engine := geodesytest.New().
		AddPaths("OSGB36", "ETRS89",
			offsetPath("helmert", types.Float64(2), 1, "Position Vector transformation"),
			offsetPath("ostn15", types.Float64(0.1), 2, "NTv2")).
		AddPaths("ETRS89", "WGS84",
			offsetPath("null", types.Float64(1), 10, "Null geographic offset"),
			offsetPath("ballpark", nil, 20, "Ballpark"))
	c := newTestComposer(engine, ComposerOptions{})
	ctx := context.Background()
	waypoints := []string{"OSGB36", "ETRS89", "WGS84"}

	// Catalog of leg 0 sorted: ostn15 (0), helmert (1).
	hints := []LegHint{{PathID: types.Int(1)}, {PreferredOps: []string{"ballpark"}}}
	pos, res, err := c.TransformVia(ctx, waypoints, types.Position{}, hints)
	if err != nil {
		t.Fatalf("TransformVia() error = %v, want nil", err)
	}
	if pos.X != 21 {
		t.Errorf("position X = %v, want 21 (helmert + ballpark)", pos.X)
	}
	if res.CumulativeAccuracy != nil {
		t.Errorf("CumulativeAccuracy = %v, want nil", *res.CumulativeAccuracy)
	}
	if res.PerLeg[0].SelectedPathID == nil || *res.PerLeg[0].SelectedPathID != 1 {
		t.Errorf("leg 0 SelectedPathID not echoed")
	}
	if len(res.PerLeg[1].PreferredOps) != 1 {
		t.Errorf("leg 1 PreferredOps not echoed")
	}

	// A zero hint means default policy for that leg.
	pos, _, err = c.TransformVia(ctx, waypoints, types.Position{}, []LegHint{{PreferredOps: []string{"ntv2"}}, {}})
	if err != nil {
		t.Fatalf("TransformVia() error = %v, want nil", err)
	}
	if pos.X != 12 {
		t.Errorf("position X = %v, want 12 (ostn15 + null)", pos.X)
	}
}

func TestTransformVia_CallerErrors(t *testing.T) {
	engine := threeLegEngine([3]*float64{types.Float64(1), types.Float64(1), types.Float64(1)})
	c := newTestComposer(engine, ComposerOptions{MaxWaypoints: 3})
	ctx := context.Background()

	tests := []struct {
		name      string
		waypoints []string
		hints     []LegHint
		want      error
	}{
		{"no waypoints", nil, nil, types.ErrTooFewWaypoints},
		{"one waypoint", []string{"A"}, nil, types.ErrTooFewWaypoints},
		{"too many waypoints", []string{"A", "B", "C", "D"}, nil, types.ErrTooManyWaypoints},
		{"short hints", []string{"A", "B", "C"}, []LegHint{{}}, types.ErrHintLengthMismatch},
		{"long hints", []string{"A", "B"}, []LegHint{{}, {}}, types.ErrHintLengthMismatch},
		{"empty non-nil hints", []string{"A", "B"}, []LegHint{}, types.ErrHintLengthMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := c.TransformVia(ctx, tt.waypoints, types.Position{}, tt.hints)
			if !errors.Is(err, tt.want) {
				t.Errorf("TransformVia() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTransformVia_LegErrorCarriesIndex(t *testing.T) {
	engine := geodesytest.New().
		AddPaths("A", "B", offsetPath("ab", types.Float64(1), 1, "Helmert")).
		AddPaths("B", "C")
	c := newTestComposer(engine, ComposerOptions{})
	ctx := context.Background()

	pos, res, err := c.TransformVia(ctx, []string{"A", "B", "C"}, types.Position{X: 7}, nil)
	var legErr *types.LegError
	if !errors.As(err, &legErr) {
		t.Fatalf("TransformVia() error = %v, want *LegError", err)
	}
	if legErr.Index != 1 || legErr.From != "B" || legErr.To != "C" {
		t.Errorf("LegError = %+v, want index 1 B -> C", legErr)
	}
	if !errors.Is(err, types.ErrNoPathAvailable) {
		t.Errorf("LegError does not wrap ErrNoPathAvailable: %v", err)
	}
	if pos != (types.Position{}) || res.PerLeg != nil {
		t.Errorf("partial result returned: %+v %+v", pos, res)
	}

	_, _, err = c.TransformVia(ctx, []string{"A", "B"}, types.Position{}, []LegHint{{PreferredOps: []string{"NTv2"}}})
	if !errors.As(err, &legErr) || legErr.Index != 0 || !errors.Is(err, types.ErrPathNotFound) {
		t.Errorf("TransformVia() error = %v, want leg 0 PathNotFound", err)
	}

	_, _, err = c.TransformVia(ctx, []string{"A", "Q"}, types.Position{}, nil)
	if !errors.Is(err, types.ErrInvalidCRS) {
		t.Errorf("TransformVia() error = %v, want ErrInvalidCRS", err)
	}
}

func TestComposer_TrimsIdentifiers(t *testing.T) {
	engine := geodesytest.New().
		AddPaths("A", "B", offsetPath("ab", types.Float64(1), 1, "Helmert")).
		AddPaths("B", "C", offsetPath("bc", types.Float64(1), 10, "Helmert"))
	c := newTestComposer(engine, ComposerOptions{})
	ctx := context.Background()

	// Warm the cache under the trimmed key first.
	if _, err := c.TransformDirect(ctx, "A", "B", types.Position{}, LegHint{}); err != nil {
		t.Fatalf("TransformDirect() error = %v, want nil", err)
	}

	pos, res, err := c.TransformVia(ctx, []string{" A", "B ", "\tC"}, types.Position{}, nil)
	if err != nil {
		t.Fatalf("TransformVia() error = %v, want nil", err)
	}
	if pos.X != 11 {
		t.Errorf("position.X = %v, want 11", pos.X)
	}
	if res.Waypoints[0] != "A" || res.PerLeg[1].To != "C" {
		t.Errorf("identifiers not trimmed: %q, %q", res.Waypoints, res.PerLeg[1].To)
	}

	if _, err := c.TransformDirect(ctx, " A ", "B", types.Position{}, LegHint{}); err != nil {
		t.Errorf("TransformDirect() error = %v, want nil", err)
	}
	if _, err := c.TransformBatch(ctx, "A ", " B", []types.Position{{}}, LegHint{}); err != nil {
		t.Errorf("TransformBatch() error = %v, want nil", err)
	}
}

func TestTransformDirect_Metadata(t *testing.T) {
	engine := geodesytest.New().
		AddPaths("EPSG:4326", "EPSG:32631", offsetPath("utm", types.Float64(0), 1, "Transverse Mercator")).
		AddPaths("EPSG:32631", "EPSG:4326", offsetPath("inverse utm", types.Float64(0), -1, "Transverse Mercator")).
		AddCRS(types.CRSDefinition{
			Code: "EPSG:32631", Name: "WGS 84 / UTM zone 31N", Kind: types.KindProjected, Base: "EPSG:4326",
			Unit: "metre", UnitFactor: 1, Projection: &types.ProjectionParams{Method: types.MethodTransverseMercator},
		}, false).
		SetFactors("EPSG:32631", geodesy.Factors{ParallelScale: 0.9996, MeridianConvergence: 1.2})
	c := newTestComposer(engine, ComposerOptions{})

	res, err := c.TransformDirect(context.Background(), "EPSG:4326", "EPSG:32631", types.Position{X: 2, Y: 48}, LegHint{})
	if err != nil {
		t.Fatalf("TransformDirect() error = %v, want nil", err)
	}
	if res.Position.X != 3 {
		t.Errorf("Position.X = %v, want 3", res.Position.X)
	}
	if res.TargetUnits.Horizontal != "metre" || res.SourceUnits.Horizontal != "degree" {
		t.Errorf("units = %+v / %+v", res.SourceUnits, res.TargetUnits)
	}
	if res.Factors == nil || res.Factors.MeridianConvergence != 1.2 {
		t.Errorf("Factors = %+v, want convergence 1.2", res.Factors)
	}
	if res.Path.Description != "utm" {
		t.Errorf("Path = %q, want utm", res.Path.Description)
	}

	// Geographic targets carry no factors.
	res, err = c.TransformDirect(context.Background(), "EPSG:32631", "EPSG:4326", types.Position{X: 3, Y: 48}, LegHint{})
	if err != nil {
		t.Fatalf("TransformDirect() error = %v, want nil", err)
	}
	if res.Factors != nil {
		t.Errorf("Factors = %+v, want nil", res.Factors)
	}
}

func TestTransformBatch(t *testing.T) {
	engine := geodesytest.New().AddPaths("A", "B",
		offsetPath("fine", types.Float64(0.1), 1, "NTv2"),
		offsetPath("coarse", types.Float64(5), 100, "Helmert"))
	c := newTestComposer(engine, ComposerOptions{MaxBatchPoints: 3})
	ctx := context.Background()

	z := types.Float64(12)
	res, err := c.TransformBatch(ctx, "A", "B", []types.Position{{X: 0}, {X: 1, Z: z}}, LegHint{PreferredOps: []string{"helmert"}})
	if err != nil {
		t.Fatalf("TransformBatch() error = %v, want nil", err)
	}
	if len(res.Points) != 2 || res.Points[0].X != 100 || res.Points[1].X != 101 {
		t.Errorf("Points = %+v", res.Points)
	}
	if res.Points[1].Z == nil || *res.Points[1].Z != 12 {
		t.Errorf("Z not carried through: %+v", res.Points[1])
	}

	_, err = c.TransformBatch(ctx, "A", "B", make([]types.Position, 4), LegHint{})
	if !errors.Is(err, types.ErrTooManyPoints) {
		t.Errorf("TransformBatch() error = %v, want ErrTooManyPoints", err)
	}

	res, err = c.TransformBatch(ctx, "A", "B", nil, LegHint{})
	if err != nil || len(res.Points) != 0 || res.Path.Description != "fine" {
		t.Errorf("empty batch = %+v, %v", res, err)
	}
}

func TestParseAccuracyPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    AccuracyPolicy
		wantErr bool
	}{
		{"", PolicyPoison, false},
		{"poison", PolicyPoison, false},
		{" SUM_KNOWN ", PolicySumKnown, false},
		{"max", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAccuracyPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseAccuracyPolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}

// Property-based test: poison yields nil iff any leg is unknown, otherwise
// the plain sum; sum_known never depends on unknown legs.
func TestCumulativeAccuracy_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("poison and sum_known aggregation", prop.ForAll(
		func(values []float64) bool {
			legs := make([]*float64, len(values))
			anyUnknown, sum, known := false, 0.0, 0
			for i, v := range values {
				if v < 0 {
					anyUnknown = true
					continue
				}
				legs[i] = types.Float64(v)
				sum += v
				known++
			}

			poison := CumulativeAccuracy(PolicyPoison, legs)
			if anyUnknown || known == 0 {
				if poison != nil {
					return false
				}
			} else if poison == nil || math.Abs(*poison-sum) > 1e-9 {
				return false
			}

			sumKnown := CumulativeAccuracy(PolicySumKnown, legs)
			if known == 0 {
				return sumKnown == nil
			}
			return sumKnown != nil && math.Abs(*sumKnown-sum) < 1e-9
		},
		gen.SliceOf(gen.Float64Range(-1, 3)),
	))

	properties.TestingRun(t)
}
