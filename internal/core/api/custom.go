package api

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/solatis/geokeeper/internal/customcrs"
	"github.com/solatis/geokeeper/internal/geodesy"
	"github.com/solatis/geokeeper/internal/paths"
)

// Normalize parses a legacy descriptor and renders its engine definition.
func (s *Service) Normalize(ctx context.Context, req *NormalizeRequest) (*NormalizeResponse, error) {
	d, err := customcrs.Normalize(req.DefinitionXML)
	if err != nil {
		return nil, err
	}
	return &NormalizeResponse{Descriptor: d, Definition: customcrs.Definition(d)}, nil
}

// Match ranks reference CRSs against a legacy descriptor.
func (s *Service) Match(ctx context.Context, req *MatchRequest) (*MatchResponse, error) {
	d, err := customcrs.Normalize(req.DefinitionXML)
	if err != nil {
		return nil, err
	}
	candidates, err := s.matcher.Match(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &MatchResponse{Definition: customcrs.Definition(d), Candidates: candidates}, nil
}

// Custom transforms a position from the CRS a legacy descriptor denotes.
func (s *Service) Custom(ctx context.Context, req *CustomRequest) (*CustomResponse, error) {
	d, err := customcrs.Normalize(req.DefinitionXML)
	if err != nil {
		return nil, err
	}
	if !d.Present.Any() {
		return nil, fmt.Errorf("%w: custom_definition_xml is empty", ErrInvalidRequest)
	}

	pos, err := withVertical(req.Position, req.VerticalValue)
	if err != nil {
		return nil, err
	}

	def := customcrs.Definition(d)
	res, err := s.composer.TransformDirect(ctx, def, req.TargetCRS, pos,
		paths.LegHint{PathID: req.PathID, PreferredOps: req.PreferredOps})
	if err != nil {
		return nil, err
	}
	return &CustomResponse{Definition: def, DirectResult: res}, nil
}

// Factors evaluates projection distortion at a geographic position.
func (s *Service) Factors(ctx context.Context, req *FactorsRequest) (*FactorsResponse, error) {
	d, ok := s.builder.Engine().(geodesy.Distortion)
	if !ok {
		return nil, fmt.Errorf("%w: engine does not evaluate projection factors", ErrUnavailable)
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		return nil, fmt.Errorf("%w: lon/lat out of range", ErrInvalidRequest)
	}
	f, err := d.Factors(ctx, req.CRS, req.Lon, req.Lat)
	if err != nil {
		return nil, err
	}
	return &FactorsResponse{CRS: req.CRS, Factors: f}, nil
}

// RequiredGrids lists, per catalog entry, the grid files its steps reference
// and whether each is present under the configured grid directory.
func (s *Service) RequiredGrids(ctx context.Context, req *RequiredGridsRequest) (*RequiredGridsResponse, error) {
	catalog, err := s.builder.BuildCatalog(ctx, req.SourceCRS, req.TargetCRS)
	if err != nil {
		return nil, err
	}

	present := gridIndex(s.cfg.GridDir, s.log)
	resp := &RequiredGridsResponse{
		SourceCRS: req.SourceCRS,
		TargetCRS: req.TargetCRS,
		Paths:     make([]GridPath, len(catalog)),
	}
	for i, p := range catalog {
		gp := GridPath{PathID: p.PathID, Description: p.Description, Accuracy: p.Accuracy, Grids: []GridFile{}}
		for _, name := range GridNames(p.Operations) {
			gp.Grids = append(gp.Grids, GridFile{Name: name, Present: present[filepath.Base(name)]})
		}
		resp.Paths[i] = gp
	}
	return resp, nil
}

var gridKeys = []string{"grids=", "nadgrids=", "geoidgrids="}

// GridNames extracts the distinct grid files referenced by step definitions,
// in first-seen order. Optional grids ("@name") are reported without the
// marker and "@null" is skipped.
func GridNames(definitions []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, def := range definitions {
		for _, field := range strings.Fields(def) {
			field = strings.TrimPrefix(field, "+")
			for _, key := range gridKeys {
				val, ok := strings.CutPrefix(field, key)
				if !ok {
					continue
				}
				for _, part := range strings.Split(val, ",") {
					part = strings.TrimPrefix(strings.TrimSpace(part), "@")
					if part == "" || part == "null" || seen[part] {
						continue
					}
					seen[part] = true
					out = append(out, part)
				}
			}
		}
	}
	return out
}

// gridIndex collects the base names of every file under dir. Unreadable
// entries are logged and skipped; a missing directory yields an empty index.
func gridIndex(dir string, log zerolog.Logger) map[string]bool {
	index := make(map[string]bool)
	if dir == "" {
		return index
	}
	// The walk callback never returns an error, so neither does WalkDir.
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable grid directory entry")
			return nil
		}
		if !d.IsDir() {
			index[d.Name()] = true
		}
		return nil
	})
	return index
}
