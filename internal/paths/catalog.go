// Package paths builds, selects and composes transformation paths.
//
// The catalog for a CRS pair is the engine's enumeration sorted by accuracy,
// unknown last, ties in engine order. Selection over a catalog is a pure
// function of the catalog and the caller's hint, so the same hint against the
// same pair always executes the same path.
package paths

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/types"
)

// Builder enumerates and caches path catalogs.
type Builder struct {
	engine geodesy.Engine
	cache  *Cache
	log    zerolog.Logger
}

// NewBuilder creates a builder. A nil cache disables caching.
func NewBuilder(engine geodesy.Engine, cache *Cache, log zerolog.Logger) *Builder {
	return &Builder{engine: engine, cache: cache, log: log}
}

// Engine returns the engine the builder enumerates against.
func (b *Builder) Engine() geodesy.Engine { return b.engine }

// BuildCatalog returns the sorted path catalog for a pair.
// An empty catalog with nil error means no transformation is possible.
// The returned slice is the caller's to keep.
func (b *Builder) BuildCatalog(ctx context.Context, source, target string) ([]types.PathDescriptor, error) {
	source, target = strings.TrimSpace(source), strings.TrimSpace(target)

	if b.cache != nil {
		if catalog, ok := b.cache.Load(source, target); ok {
			catalogCacheHits.Inc()
			return catalog, nil
		}
		catalogCacheMisses.Inc()
	}

	start := time.Now()
	ops, err := b.engine.Operations(ctx, source, target)
	catalogBuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		catalogBuildTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	catalog := buildCatalog(ops)
	if len(catalog) == 0 {
		catalogBuildTotal.WithLabelValues("empty").Inc()
	} else {
		catalogBuildTotal.WithLabelValues("ok").Inc()
	}

	b.log.Debug().
		Str("source", source).
		Str("target", target).
		Int("paths", len(catalog)).
		Dur("elapsed", time.Since(start)).
		Msg("path catalog built")

	if b.cache != nil {
		return b.cache.Store(source, target, catalog), nil
	}
	return catalog, nil
}

// buildCatalog maps engine operations to descriptors and applies the
// catalog ordering.
func buildCatalog(ops []geodesy.Operation) []types.PathDescriptor {
	catalog := make([]types.PathDescriptor, len(ops))
	for i, op := range ops {
		unit := op.AccuracyUnit
		if unit == "" {
			unit = types.AccuracyUnitMetre
		}
		d := types.PathDescriptor{
			EngineIndex:  i,
			Description:  op.Description,
			AccuracyUnit: unit,
			Operations:   append([]string{}, op.Definitions...),
			Steps:        append([]types.OperationInfo{}, op.Steps...),
		}
		if op.Accuracy != nil {
			d.Accuracy = types.Float64(*op.Accuracy)
		}
		catalog[i] = d
	}

	SortByAccuracy(catalog)
	for i := range catalog {
		catalog[i].PathID = i
	}
	return catalog
}

// SortByAccuracy orders paths ascending by accuracy with unknown accuracy
// last. The sort is stable so ties keep their existing order.
func SortByAccuracy(catalog []types.PathDescriptor) {
	sort.SliceStable(catalog, func(i, j int) bool {
		return accuracyLess(catalog[i].Accuracy, catalog[j].Accuracy)
	})
}

func accuracyLess(a, b *float64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}
