package paths

import (
	"context"
	"fmt"

	"github.com/solatis/geokeeper/internal/types"
)

// ToHeight converts a vertical value to positive-up height. Depths are
// positive down.
func ToHeight(v float64, isDepth bool) float64 {
	if isDepth {
		return -v
	}
	return v
}

// FromHeight converts a positive-up height to a depth when asDepth is set.
func FromHeight(h float64, asDepth bool) float64 {
	return ToHeight(h, asDepth)
}

// TransformHeight carries a positive-up height at a horizontal position from
// source to target through the selected path and returns the height in
// target. Both CRSs must be ones the engine carries a vertical component
// through.
func (c *Composer) TransformHeight(ctx context.Context, source, target string, lon, lat, height float64, hint LegHint) (float64, types.PathDescriptor, error) {
	res, err := c.TransformBatch(ctx, source, target, []types.Position{{X: lon, Y: lat, Z: types.Float64(height)}}, hint)
	if err != nil {
		return 0, types.PathDescriptor{}, err
	}
	out := res.Points[0]
	if out.Z == nil {
		return 0, types.PathDescriptor{}, fmt.Errorf("engine dropped the vertical component of %s -> %s", source, target)
	}
	return *out.Z, res.Path, nil
}
