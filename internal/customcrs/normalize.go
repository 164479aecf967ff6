// Package customcrs converts legacy custom CRS descriptors into canonical
// records and ad hoc engine definitions.
//
// A descriptor is an XML fragment with up to four elements whose attributes
// carry the values:
//
//	<CD_GEO_SYSTEM geo_system_id="UTM" name="..."/>
//	<CD_GEO_ZONE geo_zone_id="UTM-31N" .../>
//	<CD_GEO_DATUM datum_name="..." x_shift="..." .../>
//	<CD_GEO_ELLIPSOID semi_major="..." first_eccentricity="..."/>
//
// Fragments with several top-level elements are accepted. Angles are decimal
// degrees, lengths metres, rotations arc-seconds (position vector), scale ppm.
package customcrs

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

// Group names reported by DescriptorError.
const (
	GroupDocument  = "document"
	GroupSystem    = "system"
	GroupZone      = "zone"
	GroupDatum     = "datum"
	GroupEllipsoid = "ellipsoid"
)

var groupElements = map[string]string{
	"CD_GEO_SYSTEM":    GroupSystem,
	"CD_GEO_ZONE":      GroupZone,
	"CD_GEO_DATUM":     GroupDatum,
	"CD_GEO_ELLIPSOID": GroupEllipsoid,
}

var (
	xmlDecl     = regexp.MustCompile(`^\s*<\?xml[^>]*\?>`)
	utmZoneExpr = regexp.MustCompile(`(?i)(\d{1,2})\s*([NS])?\s*$`)
)

// Normalize parses descriptor text. Missing groups keep their defaults and
// are flagged absent in Present. Empty text yields an empty descriptor.
func Normalize(text string) (types.CustomCRSDescriptor, error) {
	d := types.CustomCRSDescriptor{}
	d.Zone.ScaleFactor = 1

	body := xmlDecl.ReplaceAllString(text, "")
	if strings.TrimSpace(body) == "" {
		return d, nil
	}

	attrs, err := collectGroups(body)
	if err != nil {
		return types.CustomCRSDescriptor{}, &types.DescriptorError{Group: GroupDocument, Err: err}
	}
	if len(attrs) == 0 {
		return types.CustomCRSDescriptor{}, &types.DescriptorError{Group: GroupDocument, Err: errors.New("no CD_GEO_* elements found")}
	}

	if a, ok := attrs[GroupSystem]; ok {
		d.Present.System = true
		d.System = types.SystemGroup{ID: a.str("geo_system_id"), Name: a.str("name")}
	}
	if a, ok := attrs[GroupDatum]; ok {
		d.Present.Datum = true
		if d.Datum, err = parseDatum(a); err != nil {
			return types.CustomCRSDescriptor{}, &types.DescriptorError{Group: GroupDatum, Err: err}
		}
	}
	if a, ok := attrs[GroupEllipsoid]; ok {
		d.Present.Ellipsoid = true
		if d.Ellipsoid, err = parseEllipsoid(a); err != nil {
			return types.CustomCRSDescriptor{}, &types.DescriptorError{Group: GroupEllipsoid, Err: err}
		}
	}
	if a, ok := attrs[GroupZone]; ok {
		d.Present.Zone = true
		if d.Zone, err = parseZone(a, d.System.ID); err != nil {
			return types.CustomCRSDescriptor{}, &types.DescriptorError{Group: GroupZone, Err: err}
		}
	}
	return d, nil
}

// attributes of one group element, keyed by lower-case name.
type attributes map[string]string

func (a attributes) str(key string) string {
	return strings.TrimSpace(a[key])
}

// num returns the attribute as a float, def when absent or blank.
func (a attributes) num(key string, def float64) (float64, error) {
	raw := a.str(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("attribute %s: %q is not a number", key, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("attribute %s: %q is not a finite number", key, raw)
	}
	return v, nil
}

// collectGroups wraps the fragment in a synthetic root and records the
// attributes of the first occurrence of each group element at any depth.
func collectGroups(body string) (map[string]attributes, error) {
	dec := xml.NewDecoder(strings.NewReader("<root>" + body + "</root>"))
	out := make(map[string]attributes)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		group, known := groupElements[strings.ToUpper(start.Name.Local)]
		if !known {
			continue
		}
		if _, seen := out[group]; seen {
			continue
		}
		a := make(attributes, len(start.Attr))
		for _, attr := range start.Attr {
			a[strings.ToLower(attr.Name.Local)] = attr.Value
		}
		out[group] = a
	}
}

func parseDatum(a attributes) (types.DatumGroup, error) {
	g := types.DatumGroup{Name: a.str("datum_name")}
	fields := []struct {
		key string
		dst *float64
	}{
		{"x_shift", &g.Tx}, {"y_shift", &g.Ty}, {"z_shift", &g.Tz},
		{"x_rotation", &g.Rx}, {"y_rotation", &g.Ry}, {"z_rotation", &g.Rz},
		{"scale_ppm", &g.ScalePPM},
	}
	for _, f := range fields {
		v, err := a.num(f.key, 0)
		if err != nil {
			return types.DatumGroup{}, err
		}
		*f.dst = v
	}
	return g, nil
}

func parseEllipsoid(a attributes) (types.EllipsoidGroup, error) {
	g := types.EllipsoidGroup{Name: a.str("ellipsoid_name")}
	var err error
	if g.SemiMajor, err = a.num("semi_major", 0); err != nil {
		return types.EllipsoidGroup{}, err
	}
	if g.Eccentricity, err = a.num("first_eccentricity", 0); err != nil {
		return types.EllipsoidGroup{}, err
	}
	if g.InvFlattening, err = a.num("inv_flattening", 0); err != nil {
		return types.EllipsoidGroup{}, err
	}
	switch {
	case g.SemiMajor < 0:
		return types.EllipsoidGroup{}, fmt.Errorf("semi_major must be positive, got %v", g.SemiMajor)
	case g.Eccentricity < 0 || g.Eccentricity >= 1:
		return types.EllipsoidGroup{}, fmt.Errorf("first_eccentricity must be in [0, 1), got %v", g.Eccentricity)
	case g.InvFlattening < 0:
		return types.EllipsoidGroup{}, fmt.Errorf("inv_flattening must not be negative, got %v", g.InvFlattening)
	}
	return g, nil
}

func parseZone(a attributes, systemID string) (types.ZoneGroup, error) {
	g := types.ZoneGroup{ID: a.str("geo_zone_id")}
	projection := a.str("projection")

	utm := strings.Contains(strings.ToUpper(systemID), "UTM") ||
		strings.Contains(strings.ToUpper(g.ID), "UTM") ||
		strings.EqualFold(projection, "UTM")
	if utm {
		m := utmZoneExpr.FindStringSubmatch(g.ID)
		if m == nil {
			return types.ZoneGroup{}, fmt.Errorf("geo_zone_id %q carries no UTM zone number", g.ID)
		}
		zone, _ := strconv.Atoi(m[1])
		if zone < 1 || zone > 60 {
			return types.ZoneGroup{}, fmt.Errorf("UTM zone %d outside 1..60", zone)
		}
		g.UTMZone = zone
		g.South = strings.EqualFold(m[2], "S")
		g.ProjectionParams = geodesy.UTMParams(zone, g.South)
		return g, nil
	}

	method, err := projectionMethod(projection)
	if err != nil {
		return types.ZoneGroup{}, err
	}
	g.Method = method

	fields := []struct {
		key string
		def float64
		dst *float64
	}{
		{"lat_origin", 0, &g.LatOrigin},
		{"lon_origin", 0, &g.LonOrigin},
		{"standard_parallel_1", 0, &g.StdParallel1},
		{"standard_parallel_2", 0, &g.StdParallel2},
		{"scale_factor", 1, &g.ScaleFactor},
		{"false_easting", 0, &g.FalseEasting},
		{"false_northing", 0, &g.FalseNorthing},
	}
	for _, f := range fields {
		v, err := a.num(f.key, f.def)
		if err != nil {
			return types.ZoneGroup{}, err
		}
		*f.dst = v
	}

	switch {
	case g.LatOrigin < -90 || g.LatOrigin > 90:
		return types.ZoneGroup{}, fmt.Errorf("lat_origin %v outside [-90, 90]", g.LatOrigin)
	case g.LonOrigin < -180 || g.LonOrigin > 180:
		return types.ZoneGroup{}, fmt.Errorf("lon_origin %v outside [-180, 180]", g.LonOrigin)
	case g.ScaleFactor <= 0:
		return types.ZoneGroup{}, fmt.Errorf("scale_factor must be positive, got %v", g.ScaleFactor)
	}
	if g.Method == types.MethodLambertConic2SP && a.str("standard_parallel_1") == "" {
		g.StdParallel1 = g.LatOrigin
		g.StdParallel2 = g.LatOrigin
	}
	return g, nil
}

// projectionMethod maps the legacy projection attribute to a method name.
// Absent means Transverse Mercator.
func projectionMethod(raw string) (string, error) {
	switch strings.ToUpper(strings.Join(strings.Fields(raw), " ")) {
	case "", "TM", "TMERC", "TRANSVERSE MERCATOR", "GAUSS-KRUGER":
		return types.MethodTransverseMercator, nil
	case "LCC", "LAMBERT", "LAMBERT CONFORMAL CONIC", "LAMBERT CONIC CONFORMAL (2SP)":
		return types.MethodLambertConic2SP, nil
	case "MERCATOR", "MERC", "MERCATOR (VARIANT A)":
		return types.MethodMercatorA, nil
	default:
		return "", fmt.Errorf("unsupported projection %q", raw)
	}
}
