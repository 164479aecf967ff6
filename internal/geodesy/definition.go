package geodesy

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/solatis/geokeeper/internal/types"
)

// Ad hoc definitions use a PROJ-style "+key=value" syntax. Only the subset
// geokeeper itself emits (and the common hand-written forms of it) is accepted.

var linearUnits = map[string]struct {
	name   string
	factor float64
}{
	"m":     {"metre", 1},
	"km":    {"kilometre", 1000},
	"ft":    {"foot", 0.3048},
	"us-ft": {"US survey foot", 1200.0 / 3937.0},
}

// IsAdHoc reports whether id is an ad hoc definition rather than an authority code.
func IsAdHoc(id string) bool {
	return strings.HasPrefix(strings.TrimSpace(id), "+")
}

// ParseDefinition parses an ad hoc definition into a CRS record.
func ParseDefinition(def string) (types.CRSDefinition, error) {
	params := make(map[string]string)
	for _, tok := range strings.Fields(def) {
		if !strings.HasPrefix(tok, "+") {
			return types.CRSDefinition{}, fmt.Errorf("token %q does not start with '+'", tok)
		}
		k, v, _ := strings.Cut(tok[1:], "=")
		params[k] = v
	}

	num := func(key string, def float64) (float64, error) {
		raw, ok := params[key]
		if !ok || raw == "" {
			return def, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("+%s: %w", key, err)
		}
		return v, nil
	}

	crs := types.CRSDefinition{
		Code:       strings.TrimSpace(def),
		Name:       "Ad hoc definition",
		Unit:       "metre",
		UnitFactor: 1,
	}

	ell, err := parseEllipsoid(params, num)
	if err != nil {
		return types.CRSDefinition{}, err
	}
	crs.SemiMajor = ell.A
	crs.InvFlattening = ell.InvF()

	if raw, ok := params["towgs84"]; ok {
		shift, err := parseToWGS84(raw)
		if err != nil {
			return types.CRSDefinition{}, err
		}
		crs.ToWGS84 = &shift
	}

	if u, ok := params["units"]; ok {
		lu, known := linearUnits[u]
		if !known {
			return types.CRSDefinition{}, fmt.Errorf("unsupported +units=%s", u)
		}
		crs.Unit, crs.UnitFactor = lu.name, lu.factor
	}
	if f, err := num("to_meter", 0); err != nil {
		return types.CRSDefinition{}, err
	} else if f > 0 {
		crs.Unit, crs.UnitFactor = "unit", f
	}

	p := &types.ProjectionParams{ScaleFactor: 1}
	if p.LatOrigin, err = num("lat_0", 0); err != nil {
		return types.CRSDefinition{}, err
	}
	if p.LonOrigin, err = num("lon_0", 0); err != nil {
		return types.CRSDefinition{}, err
	}
	if p.FalseEasting, err = num("x_0", 0); err != nil {
		return types.CRSDefinition{}, err
	}
	if p.FalseNorthing, err = num("y_0", 0); err != nil {
		return types.CRSDefinition{}, err
	}
	k, err := num("k_0", math.NaN())
	if err != nil {
		return types.CRSDefinition{}, err
	}
	if math.IsNaN(k) {
		if k, err = num("k", 1); err != nil {
			return types.CRSDefinition{}, err
		}
	}
	p.ScaleFactor = k

	switch proj := params["proj"]; proj {
	case "longlat", "latlong", "lonlat", "latlon":
		crs.Kind = types.KindGeographic
		crs.Unit, crs.UnitFactor = "degree", deg2rad
		return crs, nil
	case "tmerc", "etmerc":
		p.Method = types.MethodTransverseMercator
	case "utm":
		zone, err := strconv.Atoi(params["zone"])
		if err != nil || zone < 1 || zone > 60 {
			return types.CRSDefinition{}, fmt.Errorf("+zone must be 1..60, got %q", params["zone"])
		}
		*p = UTMParams(zone, hasFlag(params, "south"))
	case "lcc":
		p.Method = types.MethodLambertConic2SP
		if p.StdParallel1, err = num("lat_1", p.LatOrigin); err != nil {
			return types.CRSDefinition{}, err
		}
		if p.StdParallel2, err = num("lat_2", p.StdParallel1); err != nil {
			return types.CRSDefinition{}, err
		}
	case "merc":
		p.Method = types.MethodMercatorA
	case "webmerc":
		p.Method = types.MethodPseudoMercator
	case "":
		return types.CRSDefinition{}, fmt.Errorf("missing +proj")
	default:
		return types.CRSDefinition{}, fmt.Errorf("unsupported +proj=%s", proj)
	}

	crs.Kind = types.KindProjected
	crs.Projection = p
	return crs, nil
}

// UTMParams returns the Transverse Mercator parameters of a UTM zone.
func UTMParams(zone int, south bool) types.ProjectionParams {
	p := types.ProjectionParams{
		Method:       types.MethodTransverseMercator,
		LonOrigin:    float64(zone*6 - 183),
		ScaleFactor:  0.9996,
		FalseEasting: 500000,
	}
	if south {
		p.FalseNorthing = 10000000
	}
	return p
}

func hasFlag(params map[string]string, key string) bool {
	_, ok := params[key]
	return ok
}

func parseEllipsoid(params map[string]string, num func(string, float64) (float64, error)) (Ellipsoid, error) {
	if name, ok := params["ellps"]; ok {
		ell, known := namedEllipsoids[name]
		if !known {
			return Ellipsoid{}, fmt.Errorf("unknown +ellps=%s", name)
		}
		return ell, nil
	}
	if r, err := num("R", 0); err != nil {
		return Ellipsoid{}, err
	} else if r > 0 {
		return Ellipsoid{A: r}, nil
	}

	a, err := num("a", 0)
	if err != nil {
		return Ellipsoid{}, err
	}
	if a == 0 {
		return WGS84, nil
	}
	if rf, err := num("rf", 0); err != nil {
		return Ellipsoid{}, err
	} else if rf > 0 {
		return NewEllipsoid(a, rf), nil
	}
	if f, err := num("f", 0); err != nil {
		return Ellipsoid{}, err
	} else if f > 0 {
		return Ellipsoid{A: a, F: f}, nil
	}
	if e, err := num("e", 0); err != nil {
		return Ellipsoid{}, err
	} else if e > 0 {
		if e >= 1 {
			return Ellipsoid{}, fmt.Errorf("+e must be below 1, got %v", e)
		}
		return EllipsoidFromEccentricity(a, e), nil
	}
	if b, err := num("b", 0); err != nil {
		return Ellipsoid{}, err
	} else if b > 0 {
		return Ellipsoid{A: a, F: (a - b) / a}, nil
	}
	return Ellipsoid{A: a}, nil
}

func parseToWGS84(raw string) (types.DatumShift, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 && len(parts) != 7 {
		return types.DatumShift{}, fmt.Errorf("+towgs84 needs 3 or 7 values, got %d", len(parts))
	}
	vals := make([]float64, 7)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return types.DatumShift{}, fmt.Errorf("+towgs84: %w", err)
		}
		vals[i] = v
	}
	return types.DatumShift{
		Tx: vals[0], Ty: vals[1], Tz: vals[2],
		Rx: vals[3], Ry: vals[4], Rz: vals[5],
		ScalePPM: vals[6],
	}, nil
}

// FormatDefinition renders a CRS record as an ad hoc definition that
// ParseDefinition accepts.
func FormatDefinition(crs types.CRSDefinition) string {
	var b strings.Builder
	add := func(key string, v float64) {
		fmt.Fprintf(&b, " +%s=%s", key, formatFloat(v))
	}

	if crs.IsProjected() {
		p := crs.Projection
		switch p.Method {
		case types.MethodTransverseMercator:
			b.WriteString("+proj=tmerc")
			add("lat_0", p.LatOrigin)
			add("lon_0", p.LonOrigin)
			add("k_0", p.ScaleFactor)
		case types.MethodLambertConic2SP:
			b.WriteString("+proj=lcc")
			add("lat_0", p.LatOrigin)
			add("lon_0", p.LonOrigin)
			add("lat_1", p.StdParallel1)
			add("lat_2", p.StdParallel2)
		case types.MethodMercatorA:
			b.WriteString("+proj=merc")
			add("lon_0", p.LonOrigin)
			add("k_0", p.ScaleFactor)
		case types.MethodPseudoMercator:
			b.WriteString("+proj=webmerc")
		default:
			fmt.Fprintf(&b, "+proj=unknown")
		}
		add("x_0", p.FalseEasting)
		add("y_0", p.FalseNorthing)
	} else {
		b.WriteString("+proj=longlat")
	}

	if crs.SemiMajor > 0 {
		add("a", crs.SemiMajor)
		if crs.InvFlattening > 0 {
			add("rf", crs.InvFlattening)
		}
	}
	if crs.ToWGS84 != nil {
		t := crs.ToWGS84
		fmt.Fprintf(&b, " +towgs84=%s", joinFloats(t.Tx, t.Ty, t.Tz, t.Rx, t.Ry, t.Rz, t.ScalePPM))
	}
	if crs.IsProjected() {
		if crs.UnitFactor > 0 && crs.UnitFactor != 1 {
			add("to_meter", crs.UnitFactor)
		} else {
			b.WriteString(" +units=m")
		}
	}
	b.WriteString(" +no_defs")
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func joinFloats(vals ...float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}
