package geodesy

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"github.com/solatis/geokeeper/internal/types"
)

/*
 * Built-in engine over the reference catalog.
 *
 * Path enumeration for (source, target), in this order:
 *   1. same datum: a single conversion path, accuracy 0
 *   2. catalogued operations between the two base CRSs, forward entries first,
 *      then reverse entries inverted
 *   3. early-bound route through WGS 84 when both ends carry towgs84 parameters
 *   4. ballpark geographic offset, accuracy unknown
 *
 * Execution: inverse projection -> geocentric -> Helmert step(s) -> geodetic
 * on the target ellipsoid -> forward projection. Grid steps run their stored
 * Helmert approximation; grid files are never opened.
 */

const (
	methodPositionVector = "Position Vector transformation (geocentric domain)"
	methodBallpark       = "Geographic2D offsets"
)

// Builtin is an Engine backed by in-memory reference catalog records.
// Safe for concurrent use: state is immutable after NewBuiltin returns.
type Builtin struct {
	crs   map[string]types.CRSDefinition
	order []string
	ops   []types.OperationDefinition
	log   zerolog.Logger
}

// NewBuiltin loads all definitions once and returns a ready engine.
func NewBuiltin(ctx context.Context, defs Definitions, log zerolog.Logger) (*Builtin, error) {
	crsList, err := defs.ListCRS(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load CRS definitions: %w", err)
	}
	opList, err := defs.ListOperations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load operation definitions: %w", err)
	}

	b := &Builtin{
		crs: make(map[string]types.CRSDefinition, len(crsList)),
		ops: opList,
		log: log,
	}
	for _, c := range crsList {
		key := NormalizeCode(c.Code)
		if _, dup := b.crs[key]; dup {
			return nil, fmt.Errorf("duplicate CRS code %s in reference catalog", c.Code)
		}
		c.Code = key
		b.crs[key] = c
		b.order = append(b.order, key)
	}
	for i := range b.ops {
		b.ops[i].Source = NormalizeCode(b.ops[i].Source)
		b.ops[i].Target = NormalizeCode(b.ops[i].Target)
	}

	log.Debug().Int("crs", len(b.crs)).Int("operations", len(b.ops)).Msg("reference catalog loaded")
	return b, nil
}

// NormalizeCode upper-cases the authority of an AUTH:CODE identifier and
// prefixes bare numeric codes with EPSG.
func NormalizeCode(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || IsAdHoc(id) {
		return id
	}
	auth, code, ok := strings.Cut(id, ":")
	if !ok {
		return "EPSG:" + id
	}
	return strings.ToUpper(strings.TrimSpace(auth)) + ":" + strings.TrimSpace(code)
}

// resolved is a CRS ready for execution.
type resolved struct {
	def  types.CRSDefinition
	ell  Ellipsoid
	proj Projection
}

func (r *resolved) toGeographic(x, y float64) (lon, lat float64) {
	if r.def.IsProjected() {
		f := r.unitFactor()
		return r.proj.Inverse(x*f, y*f)
	}
	return x, y
}

func (r *resolved) fromGeographic(lon, lat float64) (x, y float64) {
	if r.def.IsProjected() {
		f := r.unitFactor()
		x, y = r.proj.Forward(lon, lat)
		return x / f, y / f
	}
	return lon, lat
}

func (r *resolved) unitFactor() float64 {
	if r.def.UnitFactor > 0 {
		return r.def.UnitFactor
	}
	return 1
}

func (b *Builtin) resolve(id string) (*resolved, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &types.InvalidCRSError{ID: id, Reason: "empty identifier"}
	}

	var def types.CRSDefinition
	if IsAdHoc(id) {
		d, err := ParseDefinition(id)
		if err != nil {
			return nil, &types.InvalidCRSError{ID: id, Reason: err.Error()}
		}
		def = d
	} else {
		d, ok := b.crs[NormalizeCode(id)]
		if !ok {
			return nil, &types.InvalidCRSError{ID: id, Reason: "not in reference catalog"}
		}
		def = d
	}

	r := &resolved{def: def, ell: EllipsoidOf(def), proj: geographicIdentity{}}
	if def.IsProjected() {
		p, err := NewProjection(*def.Projection, r.ell)
		if err != nil {
			return nil, &types.InvalidCRSError{ID: id, Reason: err.Error()}
		}
		r.proj = p
	}
	return r, nil
}

// route is an executable path.
type route struct {
	op         Operation
	geocentric bool
	shifts     []types.DatumShift
}

func baseCode(def types.CRSDefinition) string {
	if def.Base != "" {
		return NormalizeCode(def.Base)
	}
	if def.Kind == types.KindGeographic && !IsAdHoc(def.Code) {
		return def.Code
	}
	return ""
}

// wgs84Shift returns the early-bound shift of a CRS. A CRS on the WGS 84
// semi-major axis without explicit parameters is taken as WGS 84 itself.
func wgs84Shift(def types.CRSDefinition) *types.DatumShift {
	if def.ToWGS84 != nil {
		return def.ToWGS84
	}
	if math.Abs(def.SemiMajor-WGS84.A) < 1e-6 || (def.SemiMajor == 0 && def.Datum == "") {
		return &types.DatumShift{}
	}
	return nil
}

func sameShift(a, b *types.DatumShift) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameDatum(a, b types.CRSDefinition) bool {
	if a.Datum != "" && a.Datum == b.Datum {
		return true
	}
	if a.Datum != "" && b.Datum != "" {
		return false
	}
	return math.Abs(a.SemiMajor-b.SemiMajor) < 1e-6 &&
		math.Abs(a.InvFlattening-b.InvFlattening) < 1e-9 &&
		sameShift(wgs84Shift(a), wgs84Shift(b))
}

// conversionName is the part of a projected CRS name after the slash,
// e.g. "British National Grid" for "OSGB36 / British National Grid".
func conversionName(def types.CRSDefinition) string {
	if _, after, ok := strings.Cut(def.Name, " / "); ok {
		return after
	}
	if def.Projection != nil {
		return def.Projection.Method
	}
	return def.Name
}

func projectionDefinition(def types.CRSDefinition) string {
	def.ToWGS84 = nil
	return FormatDefinition(def)
}

func helmertDefinition(s types.DatumShift) string {
	return fmt.Sprintf("+proj=helmert +x=%s +y=%s +z=%s +rx=%s +ry=%s +rz=%s +s=%s +convention=position_vector",
		formatFloat(s.Tx), formatFloat(s.Ty), formatFloat(s.Tz),
		formatFloat(s.Rx), formatFloat(s.Ry), formatFloat(s.Rz), formatFloat(s.ScalePPM))
}

func epsg(code string) (*string, *string) {
	if code == "" {
		return nil, nil
	}
	auth, c, ok := strings.Cut(NormalizeCode(code), ":")
	if !ok {
		return nil, nil
	}
	return &auth, &c
}

// assemble wraps datum steps with the source inverse and target forward conversions.
func assemble(src, tgt *resolved, desc []string, steps []types.OperationInfo, defs []string) Operation {
	var op Operation
	if src.def.IsProjected() {
		op.Steps = append(op.Steps, types.OperationInfo{MethodName: src.def.Projection.Method})
		op.Definitions = append(op.Definitions, "+inv "+projectionDefinition(src.def))
		desc = append([]string{"Inverse of " + conversionName(src.def)}, desc...)
	}
	op.Steps = append(op.Steps, steps...)
	op.Definitions = append(op.Definitions, defs...)
	if tgt.def.IsProjected() {
		op.Steps = append(op.Steps, types.OperationInfo{MethodName: tgt.def.Projection.Method})
		op.Definitions = append(op.Definitions, projectionDefinition(tgt.def))
		desc = append(desc, conversionName(tgt.def))
	}
	op.Description = strings.Join(desc, " + ")
	op.AccuracyUnit = types.AccuracyUnitMetre
	return op
}

func (b *Builtin) routes(src, tgt *resolved) []route {
	if sameDatum(src.def, tgt.def) {
		var desc []string
		if !src.def.IsProjected() && !tgt.def.IsProjected() {
			desc = []string{fmt.Sprintf("Null geographic offset from %s to %s", src.def.Name, tgt.def.Name)}
		}
		op := assemble(src, tgt, desc, nil, nil)
		op.Accuracy = types.Float64(0)
		return []route{{op: op}}
	}

	var out []route
	bs, bt := baseCode(src.def), baseCode(tgt.def)
	if bs != "" && bt != "" {
		for _, od := range b.ops {
			if od.Source == bs && od.Target == bt {
				out = append(out, catalogRoute(src, tgt, od, false))
			}
		}
		for _, od := range b.ops {
			if od.Source == bt && od.Target == bs {
				out = append(out, catalogRoute(src, tgt, od, true))
			}
		}
	}

	if ss, ts := wgs84Shift(src.def), wgs84Shift(tgt.def); ss != nil && ts != nil {
		out = append(out, earlyBoundRoute(src, tgt, *ss, *ts))
	}

	op := assemble(src, tgt,
		[]string{fmt.Sprintf("Ballpark geographic offset from %s to %s", src.def.Name, tgt.def.Name)},
		[]types.OperationInfo{{MethodName: methodBallpark}},
		[]string{"+proj=noop"})
	out = append(out, route{op: op})
	return out
}

func catalogRoute(src, tgt *resolved, od types.OperationDefinition, inverse bool) route {
	name := od.Name
	steps := od.Steps
	if inverse {
		name = "Inverse of " + od.Name
		steps = make([]types.OperationStep, len(od.Steps))
		for i, s := range od.Steps {
			s.Shift = s.Shift.Inverse()
			steps[len(od.Steps)-1-i] = s
		}
	}

	r := route{geocentric: true}
	var infos []types.OperationInfo
	var defs []string
	for _, s := range steps {
		auth, code := epsg(s.Code)
		infos = append(infos, types.OperationInfo{MethodName: s.Method, Authority: auth, Code: code})
		if s.Grid != "" {
			d := "+proj=hgridshift +grids=" + s.Grid
			if inverse {
				d = "+proj=hgridshift +inv +grids=" + s.Grid
			}
			defs = append(defs, d)
		} else {
			defs = append(defs, helmertDefinition(s.Shift))
		}
		r.shifts = append(r.shifts, s.Shift)
	}

	r.op = assemble(src, tgt, []string{name}, infos, defs)
	if od.Accuracy != nil {
		r.op.Accuracy = types.Float64(*od.Accuracy)
	}
	return r
}

func earlyBoundRoute(src, tgt *resolved, toWGS84, fromWGS84 types.DatumShift) route {
	r := route{geocentric: true}
	var infos []types.OperationInfo
	var defs []string
	for _, s := range []types.DatumShift{toWGS84, fromWGS84.Inverse()} {
		if s.IsZero() {
			continue
		}
		infos = append(infos, types.OperationInfo{MethodName: methodPositionVector})
		defs = append(defs, helmertDefinition(s))
		r.shifts = append(r.shifts, s)
	}
	r.op = assemble(src, tgt,
		[]string{fmt.Sprintf("%s to %s through WGS 84 (early-bound)", src.def.Name, tgt.def.Name)},
		infos, defs)
	return r
}

func (r route) run(src, tgt *resolved, p types.Position) types.Position {
	lon, lat := src.toGeographic(p.X, p.Y)
	h := 0.0
	if p.Z != nil {
		h = *p.Z
	}
	if r.geocentric {
		x, y, z := src.ell.ToGeocentric(lon, lat, h)
		for _, s := range r.shifts {
			x, y, z = ApplyHelmert(s, x, y, z)
		}
		lon, lat, h = tgt.ell.FromGeocentric(x, y, z)
	}
	ox, oy := tgt.fromGeographic(lon, lat)
	out := types.Position{X: ox, Y: oy}
	if p.Z != nil {
		out.Z = types.Float64(h)
	}
	return out
}

// Operations implements Engine.
func (b *Builtin) Operations(ctx context.Context, source, target string) ([]Operation, error) {
	src, err := b.resolve(source)
	if err != nil {
		return nil, err
	}
	tgt, err := b.resolve(target)
	if err != nil {
		return nil, err
	}
	routes := b.routes(src, tgt)
	ops := make([]Operation, len(routes))
	for i, r := range routes {
		ops[i] = r.op
	}
	return ops, nil
}

// Transform implements Engine.
func (b *Builtin) Transform(ctx context.Context, source, target string, pathID int, points []types.Position) ([]types.Position, error) {
	src, err := b.resolve(source)
	if err != nil {
		return nil, err
	}
	tgt, err := b.resolve(target)
	if err != nil {
		return nil, err
	}
	routes := b.routes(src, tgt)
	if pathID < 0 || pathID >= len(routes) {
		return nil, &types.PathNotFoundError{PathID: &pathID, CatalogSize: len(routes)}
	}

	r := routes[pathID]
	out := make([]types.Position, len(points))
	for i, p := range points {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = r.run(src, tgt, p)
	}
	return out, nil
}

// Describe implements Engine.
func (b *Builtin) Describe(ctx context.Context, id string) (types.CRSDefinition, error) {
	r, err := b.resolve(id)
	if err != nil {
		return types.CRSDefinition{}, err
	}
	return r.def, nil
}

// References implements Engine.
func (b *Builtin) References(ctx context.Context) ([]types.CRSDefinition, error) {
	out := make([]types.CRSDefinition, 0, len(b.order))
	for _, code := range b.order {
		out = append(out, b.crs[code])
	}
	return out, nil
}

// Factors implements Distortion by central differences on the forward projection.
func (b *Builtin) Factors(ctx context.Context, id string, lon, lat float64) (Factors, error) {
	r, err := b.resolve(id)
	if err != nil {
		return Factors{}, err
	}
	if !r.def.IsProjected() {
		return Factors{}, fmt.Errorf("%w: %s", types.ErrNotProjected, id)
	}

	const d = 1e-5 // degrees
	if math.IsNaN(lat) || lat-d < -90 || lat+d > 90 {
		return Factors{}, fmt.Errorf("%w: latitude %v is within %v degrees of a pole", types.ErrOutOfDomain, lat, d)
	}
	xN, yN := r.proj.Forward(lon, lat+d)
	xS, yS := r.proj.Forward(lon, lat-d)
	xE, yE := r.proj.Forward(lon+d, lat)
	xW, yW := r.proj.Forward(lon-d, lat)

	step := 2 * d * deg2rad
	xPhi, yPhi := (xN-xS)/step, (yN-yS)/step
	xLam, yLam := (xE-xW)/step, (yE-yW)/step

	e2 := r.ell.E2()
	phi := lat * deg2rad
	w := 1 - e2*math.Sin(phi)*math.Sin(phi)
	m := r.ell.A * (1 - e2) / math.Pow(w, 1.5)
	n := r.ell.A / math.Sqrt(w)
	nc := n * math.Cos(phi)
	if nc < 1e-9 {
		return Factors{}, fmt.Errorf("%w: parallel radius vanishes at latitude %v", types.ErrOutOfDomain, lat)
	}

	return Factors{
		MeridionalScale:     math.Hypot(xPhi, yPhi) / m,
		ParallelScale:       math.Hypot(xLam, yLam) / nc,
		ArealScale:          math.Abs(xLam*yPhi-xPhi*yLam) / (m * nc),
		MeridianConvergence: -math.Atan2(xPhi, yPhi) * rad2deg,
	}, nil
}
