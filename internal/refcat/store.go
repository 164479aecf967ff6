// Package refcat is the SQL-backed reference catalog: the CRS and datum
// operation records the built-in engine loads and the matcher scores against.
package refcat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solatis/geokeeper/internal/core/db"
	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

// Store reads and writes reference catalog records.
// Implements geodesy.Definitions.
type Store struct {
	q   *db.Queries
	log zerolog.Logger
}

var _ geodesy.Definitions = (*Store)(nil)

// NewStore wraps loaded queries.
func NewStore(q *db.Queries, log zerolog.Logger) *Store {
	return &Store{q: q, log: log}
}

type crsRow struct {
	Code          string   `db:"code"`
	Name          string   `db:"name"`
	Kind          string   `db:"kind"`
	Base          string   `db:"base"`
	Unit          string   `db:"unit"`
	UnitFactor    float64  `db:"unit_factor"`
	Datum         string   `db:"datum"`
	Ellipsoid     string   `db:"ellipsoid"`
	SemiMajor     float64  `db:"semi_major"`
	InvFlattening float64  `db:"inv_flattening"`
	ProjMethod    *string  `db:"proj_method"`
	LatOrigin     *float64 `db:"lat_origin"`
	LonOrigin     *float64 `db:"lon_origin"`
	StdParallel1  *float64 `db:"std_parallel_1"`
	StdParallel2  *float64 `db:"std_parallel_2"`
	ScaleFactor   *float64 `db:"scale_factor"`
	FalseEasting  *float64 `db:"false_easting"`
	FalseNorthing *float64 `db:"false_northing"`
	Tx            *float64 `db:"towgs84_tx"`
	Ty            *float64 `db:"towgs84_ty"`
	Tz            *float64 `db:"towgs84_tz"`
	Rx            *float64 `db:"towgs84_rx"`
	Ry            *float64 `db:"towgs84_ry"`
	Rz            *float64 `db:"towgs84_rz"`
	ScalePPM      *float64 `db:"towgs84_scale_ppm"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func (r crsRow) definition() types.CRSDefinition {
	def := types.CRSDefinition{
		Code:          r.Code,
		Name:          r.Name,
		Kind:          types.CRSKind(r.Kind),
		Base:          r.Base,
		Unit:          r.Unit,
		UnitFactor:    r.UnitFactor,
		Datum:         r.Datum,
		Ellipsoid:     r.Ellipsoid,
		SemiMajor:     r.SemiMajor,
		InvFlattening: r.InvFlattening,
	}
	if r.ProjMethod != nil {
		def.Projection = &types.ProjectionParams{
			Method:        *r.ProjMethod,
			LatOrigin:     deref(r.LatOrigin),
			LonOrigin:     deref(r.LonOrigin),
			StdParallel1:  deref(r.StdParallel1),
			StdParallel2:  deref(r.StdParallel2),
			ScaleFactor:   deref(r.ScaleFactor),
			FalseEasting:  deref(r.FalseEasting),
			FalseNorthing: deref(r.FalseNorthing),
		}
	}
	// towgs84 is all or nothing; tx decides
	if r.Tx != nil {
		def.ToWGS84 = &types.DatumShift{
			Tx: *r.Tx, Ty: deref(r.Ty), Tz: deref(r.Tz),
			Rx: deref(r.Rx), Ry: deref(r.Ry), Rz: deref(r.Rz),
			ScalePPM: deref(r.ScalePPM),
		}
	}
	return def
}

type operationRow struct {
	Code     string   `db:"code"`
	Name     string   `db:"name"`
	Source   string   `db:"source"`
	Target   string   `db:"target"`
	Accuracy *float64 `db:"accuracy"`
}

type stepRow struct {
	OperationCode string  `db:"operation_code"`
	Seq           int     `db:"seq"`
	Method        string  `db:"method"`
	StepCode      string  `db:"step_code"`
	Grid          string  `db:"grid"`
	Tx            float64 `db:"tx"`
	Ty            float64 `db:"ty"`
	Tz            float64 `db:"tz"`
	Rx            float64 `db:"rx"`
	Ry            float64 `db:"ry"`
	Rz            float64 `db:"rz"`
	ScalePPM      float64 `db:"scale_ppm"`
}

// ListCRS returns every reference CRS in catalog order.
func (s *Store) ListCRS(ctx context.Context) ([]types.CRSDefinition, error) {
	var rows []crsRow
	if err := s.q.SelectContext(ctx, "list-crs", &rows); err != nil {
		return nil, fmt.Errorf("failed to list CRS: %w", err)
	}
	out := make([]types.CRSDefinition, len(rows))
	for i, r := range rows {
		out[i] = r.definition()
	}
	return out, nil
}

// ListOperations returns every catalogued operation with its steps.
func (s *Store) ListOperations(ctx context.Context) ([]types.OperationDefinition, error) {
	var ops []operationRow
	if err := s.q.SelectContext(ctx, "list-operations", &ops); err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	var steps []stepRow
	if err := s.q.SelectContext(ctx, "list-operation-steps", &steps); err != nil {
		return nil, fmt.Errorf("failed to list operation steps: %w", err)
	}

	byOp := make(map[string][]types.OperationStep, len(ops))
	for _, st := range steps {
		byOp[st.OperationCode] = append(byOp[st.OperationCode], types.OperationStep{
			Method: st.Method,
			Code:   st.StepCode,
			Grid:   st.Grid,
			Shift: types.DatumShift{
				Tx: st.Tx, Ty: st.Ty, Tz: st.Tz,
				Rx: st.Rx, Ry: st.Ry, Rz: st.Rz,
				ScalePPM: st.ScalePPM,
			},
		})
	}

	out := make([]types.OperationDefinition, len(ops))
	for i, o := range ops {
		out[i] = types.OperationDefinition{
			Code:     o.Code,
			Name:     o.Name,
			Source:   o.Source,
			Target:   o.Target,
			Accuracy: o.Accuracy,
			Steps:    byOp[o.Code],
		}
	}
	return out, nil
}

// GetCRS looks up one reference CRS. Unknown codes return an InvalidCRSError.
func (s *Store) GetCRS(ctx context.Context, code string) (types.CRSDefinition, error) {
	code = geodesy.NormalizeCode(code)
	var row crsRow
	err := s.q.GetContext(ctx, "get-crs", &row, code)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CRSDefinition{}, &types.InvalidCRSError{ID: code, Reason: "not in reference catalog"}
	}
	if err != nil {
		return types.CRSDefinition{}, fmt.Errorf("failed to get CRS %s: %w", code, err)
	}
	return row.definition(), nil
}

// SearchCRS finds reference CRSs whose name or code contains text,
// case-insensitively. An empty kind matches every kind. limit <= 0 means 50.
func (s *Store) SearchCRS(ctx context.Context, text string, kind types.CRSKind, limit int) ([]types.CRSDefinition, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(text))) + "%"
	kindPattern := "%"
	if kind != "" {
		kindPattern = string(kind)
	}

	var rows []crsRow
	if err := s.q.SelectContext(ctx, "search-crs", &rows, pattern, pattern, kindPattern, limit); err != nil {
		return nil, fmt.Errorf("failed to search CRS: %w", err)
	}
	out := make([]types.CRSDefinition, len(rows))
	for i, r := range rows {
		out[i] = r.definition()
	}
	return out, nil
}

// escapeLike drops LIKE wildcards from user text; codes and names never contain them.
func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}
