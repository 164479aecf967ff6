package refcat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solatis/geokeeper/internal/core/db"
	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

// Catalog is an import document: CRS records and the operations between them.
type Catalog struct {
	CRS        []types.CRSDefinition       `yaml:"crs"`
	Operations []types.OperationDefinition `yaml:"operations"`
}

// ImportStats counts the records written by Import.
type ImportStats struct {
	CRS        int
	Operations int
}

// LoadFile reads and parses a YAML catalog document.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document, rejecting unknown keys, and
// validates every record.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate normalizes codes and checks each record can be executed by the
// built-in engine.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.CRS))
	for i := range c.CRS {
		def := &c.CRS[i]
		def.Code = geodesy.NormalizeCode(def.Code)
		if def.Base != "" {
			def.Base = geodesy.NormalizeCode(def.Base)
		}
		if err := validateCRS(*def); err != nil {
			return fmt.Errorf("crs[%d] %s: %w", i, def.Code, err)
		}
		if seen[def.Code] {
			return fmt.Errorf("crs[%d]: duplicate code %s", i, def.Code)
		}
		seen[def.Code] = true
	}

	opSeen := make(map[string]bool, len(c.Operations))
	for i := range c.Operations {
		op := &c.Operations[i]
		op.Code = geodesy.NormalizeCode(op.Code)
		op.Source = geodesy.NormalizeCode(op.Source)
		op.Target = geodesy.NormalizeCode(op.Target)
		if err := validateOperation(*op); err != nil {
			return fmt.Errorf("operations[%d] %s: %w", i, op.Code, err)
		}
		if opSeen[op.Code] {
			return fmt.Errorf("operations[%d]: duplicate code %s", i, op.Code)
		}
		opSeen[op.Code] = true
	}
	return nil
}

func validateCRS(def types.CRSDefinition) error {
	if def.Code == "" || geodesy.IsAdHoc(def.Code) {
		return errors.New("code must be AUTHORITY:CODE")
	}
	if strings.TrimSpace(def.Name) == "" {
		return errors.New("name is required")
	}
	if def.SemiMajor <= 0 {
		return fmt.Errorf("semi_major must be positive, got %v", def.SemiMajor)
	}
	if def.InvFlattening < 0 {
		return fmt.Errorf("inv_flattening must not be negative, got %v", def.InvFlattening)
	}
	if def.UnitFactor < 0 {
		return fmt.Errorf("unit_factor must not be negative, got %v", def.UnitFactor)
	}

	switch def.Kind {
	case types.KindGeographic:
		if def.Projection != nil {
			return errors.New("geographic CRS cannot carry a projection")
		}
	case types.KindProjected:
		if def.Projection == nil {
			return errors.New("projected CRS requires a projection")
		}
		if def.Base == "" {
			return errors.New("projected CRS requires a base geographic CRS")
		}
		if _, err := geodesy.NewProjection(*def.Projection, geodesy.NewEllipsoid(def.SemiMajor, def.InvFlattening)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("kind must be geographic or projected, got %q", def.Kind)
	}
	return nil
}

func validateOperation(op types.OperationDefinition) error {
	if op.Code == "" || op.Source == "" || op.Target == "" {
		return errors.New("code, source and target are required")
	}
	if op.Source == op.Target {
		return errors.New("source and target must differ")
	}
	if op.Accuracy != nil && *op.Accuracy < 0 {
		return fmt.Errorf("accuracy must not be negative, got %v", *op.Accuracy)
	}
	if len(op.Steps) == 0 {
		return errors.New("at least one step is required")
	}
	for i, s := range op.Steps {
		if strings.TrimSpace(s.Method) == "" {
			return fmt.Errorf("step %d: method is required", i)
		}
	}
	return nil
}

// Import upserts a validated catalog in one transaction. New records are
// appended to catalog order; existing codes keep their position.
func (s *Store) Import(ctx context.Context, c *Catalog) (ImportStats, error) {
	if err := c.Validate(); err != nil {
		return ImportStats{}, err
	}

	var stats ImportStats
	err := s.q.InTx(ctx, func(tx *db.Tx) error {
		var next int
		if err := tx.GetContext(ctx, "next-crs-position", &next); err != nil {
			return fmt.Errorf("failed to read CRS position: %w", err)
		}
		for _, def := range c.CRS {
			if err := upsertCRS(ctx, tx, def, next); err != nil {
				return err
			}
			next++
			stats.CRS++
		}

		if err := tx.GetContext(ctx, "next-operation-position", &next); err != nil {
			return fmt.Errorf("failed to read operation position: %w", err)
		}
		for _, op := range c.Operations {
			if err := upsertOperation(ctx, tx, op, next); err != nil {
				return err
			}
			next++
			stats.Operations++
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	s.log.Info().Int("crs", stats.CRS).Int("operations", stats.Operations).Msg("reference catalog imported")
	return stats, nil
}

func upsertCRS(ctx context.Context, tx *db.Tx, def types.CRSDefinition, position int) error {
	var proj types.ProjectionParams
	var method *string
	if def.Projection != nil {
		proj = *def.Projection
		method = &proj.Method
	}
	nullable := func(v float64) *float64 {
		if method == nil {
			return nil
		}
		return &v
	}

	shift := []interface{}{nil, nil, nil, nil, nil, nil, nil}
	if d := def.ToWGS84; d != nil {
		shift = []interface{}{d.Tx, d.Ty, d.Tz, d.Rx, d.Ry, d.Rz, d.ScalePPM}
	}
	unit, factor := def.Unit, def.UnitFactor
	if unit == "" {
		unit = "metre"
		if def.Kind == types.KindGeographic {
			unit = "degree"
		}
	}
	if factor == 0 {
		factor = 1
	}

	args := []interface{}{
		def.Code, position, def.Name, string(def.Kind), def.Base, unit, factor,
		def.Datum, def.Ellipsoid, def.SemiMajor, def.InvFlattening,
		method, nullable(proj.LatOrigin), nullable(proj.LonOrigin),
		nullable(proj.StdParallel1), nullable(proj.StdParallel2), nullable(proj.ScaleFactor),
		nullable(proj.FalseEasting), nullable(proj.FalseNorthing),
	}
	args = append(args, shift...)

	if _, err := tx.ExecContext(ctx, "upsert-crs", args...); err != nil {
		return fmt.Errorf("failed to upsert CRS %s: %w", def.Code, err)
	}
	return nil
}

func upsertOperation(ctx context.Context, tx *db.Tx, op types.OperationDefinition, position int) error {
	if _, err := tx.ExecContext(ctx, "upsert-operation",
		op.Code, position, op.Name, op.Source, op.Target, op.Accuracy); err != nil {
		return fmt.Errorf("failed to upsert operation %s: %w", op.Code, err)
	}
	if _, err := tx.ExecContext(ctx, "delete-operation-steps", op.Code); err != nil {
		return fmt.Errorf("failed to replace steps of %s: %w", op.Code, err)
	}
	for i, st := range op.Steps {
		_, err := tx.ExecContext(ctx, "insert-operation-step",
			op.Code, i+1, st.Method, geodesy.NormalizeCode(st.Code), st.Grid,
			st.Shift.Tx, st.Shift.Ty, st.Shift.Tz,
			st.Shift.Rx, st.Shift.Ry, st.Shift.Rz, st.Shift.ScalePPM)
		if err != nil {
			return fmt.Errorf("failed to insert step %d of %s: %w", i+1, op.Code, err)
		}
	}
	return nil
}
