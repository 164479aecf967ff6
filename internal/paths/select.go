package paths

import (
	"strings"

	"github.com/solatis/geokeeper/internal/types"
)

// SelectOptions carries a caller's path hint. At most one policy applies:
// PathID wins over PreferredOps; neither means best accuracy.
type SelectOptions struct {
	PathID       *int     `json:"path_id,omitempty"`
	PreferredOps []string `json:"preferred_ops,omitempty"`
}

// Policy names the selection policy the options resolve to.
func (o SelectOptions) Policy() string {
	switch {
	case o.PathID != nil:
		return "path_id"
	case len(o.PreferredOps) > 0:
		return "preferred_ops"
	default:
		return "default"
	}
}

// Select picks one path from a catalog.
//
//  1. PathID set: catalog[*PathID], or PathNotFoundError when out of range.
//  2. PreferredOps set: the first entry where every hint is a case-insensitive
//     substring of at least one step's method name, or PathNotFoundError.
//     There is no fallback to the default policy.
//  3. Otherwise catalog[0], or ErrNoPathAvailable when the catalog is empty.
func Select(catalog []types.PathDescriptor, opts SelectOptions) (types.PathDescriptor, error) {
	policy := opts.Policy()
	p, err := selectPath(catalog, opts)
	if err != nil {
		selectionTotal.WithLabelValues(policy, "miss").Inc()
		return types.PathDescriptor{}, err
	}
	selectionTotal.WithLabelValues(policy, "hit").Inc()
	return p.Clone(), nil
}

func selectPath(catalog []types.PathDescriptor, opts SelectOptions) (types.PathDescriptor, error) {
	if opts.PathID != nil {
		k := *opts.PathID
		if k < 0 || k >= len(catalog) {
			return types.PathDescriptor{}, &types.PathNotFoundError{PathID: types.Int(k), CatalogSize: len(catalog)}
		}
		return catalog[k], nil
	}

	if len(opts.PreferredOps) > 0 {
		for _, p := range catalog {
			if MatchesOps(p, opts.PreferredOps) {
				return p, nil
			}
		}
		return types.PathDescriptor{}, &types.PathNotFoundError{
			PreferredOps: append([]string(nil), opts.PreferredOps...),
			CatalogSize:  len(catalog),
		}
	}

	if len(catalog) == 0 {
		return types.PathDescriptor{}, types.ErrNoPathAvailable
	}
	return catalog[0], nil
}

// MatchesOps reports whether every hint matches at least one step method
// name of p, case-insensitively.
func MatchesOps(p types.PathDescriptor, hints []string) bool {
	for _, hint := range hints {
		h := strings.ToLower(hint)
		found := false
		for _, step := range p.Steps {
			if strings.Contains(strings.ToLower(step.MethodName), h) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
