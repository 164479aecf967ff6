package matcher

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/solatis/geokeeper/internal/types"
)

// References supplies the reference CRSs to rank. geodesy.Engine satisfies it.
type References interface {
	References(ctx context.Context) ([]types.CRSDefinition, error)
}

// Matcher scores reference CRSs against custom descriptors.
type Matcher struct {
	refs  References
	limit int
	log   zerolog.Logger
}

// New creates a matcher. A limit of zero returns every candidate.
func New(refs References, limit int, log zerolog.Logger) *Matcher {
	return &Matcher{refs: refs, limit: limit, log: log}
}

// Match ranks every reference CRS by descending score. Equal scores keep
// reference catalog order. A descriptor with no groups scores every
// candidate zero; whether a top match is meaningful is the caller's call.
func (m *Matcher) Match(ctx context.Context, d types.CustomCRSDescriptor) ([]types.MatchCandidate, error) {
	refs, err := m.refs.References(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reference CRSs: %w", err)
	}

	out := Rank(d, refs)
	if m.limit > 0 && len(out) > m.limit {
		out = out[:m.limit]
	}

	if len(out) > 0 {
		m.log.Debug().
			Int("candidates", len(refs)).
			Str("top", out[0].EPSGCode).
			Int("top_score", out[0].Score).
			Msg("descriptor matched")
	}
	return out, nil
}

// Rank scores candidates and sorts them by descending score, stably.
func Rank(d types.CustomCRSDescriptor, refs []types.CRSDefinition) []types.MatchCandidate {
	out := make([]types.MatchCandidate, len(refs))
	for i, c := range refs {
		s, matched := score(d, c)
		out[i] = types.MatchCandidate{EPSGCode: c.Code, Name: c.Name, Score: s, Matched: matched}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
