package paths

import (
	"errors"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/geokeeper/internal/types"
)

func path(id int, acc *float64, methods ...string) types.PathDescriptor {
	p := types.PathDescriptor{PathID: id, EngineIndex: id, Accuracy: acc, AccuracyUnit: types.AccuracyUnitMetre}
	for _, m := range methods {
		p.Steps = append(p.Steps, types.OperationInfo{MethodName: m})
	}
	return p
}

// ukCatalog mirrors an OSGB36 -> WGS 84 catalog: a Helmert shift first,
// then a grid-based path, then an unknown ballpark.
func ukCatalog() []types.PathDescriptor {
	return []types.PathDescriptor{
		path(0, types.Float64(1), "Inverse of Transverse Mercator", "Position Vector transformation (geocentric domain)"),
		path(1, types.Float64(2), "Inverse of Transverse Mercator", "NTv2", "Geographic2D offsets"),
		path(2, nil, "Inverse of Transverse Mercator", "Ballpark geographic offset"),
	}
}

func TestSelect_Policies(t *testing.T) {
	catalog := ukCatalog()

	tests := []struct {
		name    string
		opts    SelectOptions
		wantID  int
		wantErr error
	}{
		{"default picks best accuracy", SelectOptions{}, 0, nil},
		{"path id", SelectOptions{PathID: types.Int(2)}, 2, nil},
		{"path id wins over ops", SelectOptions{PathID: types.Int(0), PreferredOps: []string{"ntv2"}}, 0, nil},
		{"ntv2 case-insensitive", SelectOptions{PreferredOps: []string{"ntv2"}}, 1, nil},
		{"all hints must match", SelectOptions{PreferredOps: []string{"NTv2", "offsets"}}, 1, nil},
		{"hints may match different steps", SelectOptions{PreferredOps: []string{"transverse", "position vector"}}, 0, nil},
		{"negative path id", SelectOptions{PathID: types.Int(-1)}, 0, types.ErrPathNotFound},
		{"path id past end", SelectOptions{PathID: types.Int(3)}, 0, types.ErrPathNotFound},
		{"no fallback once hinted", SelectOptions{PreferredOps: []string{"NADCON"}}, 0, types.ErrPathNotFound},
		{"one unmatched hint fails", SelectOptions{PreferredOps: []string{"NTv2", "Helmert"}}, 0, types.ErrPathNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(catalog, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() error = %v, want nil", err)
			}
			if got.PathID != tt.wantID {
				t.Errorf("Select().PathID = %d, want %d", got.PathID, tt.wantID)
			}
		})
	}
}

func TestSelect_EmptyCatalog(t *testing.T) {
	if _, err := Select(nil, SelectOptions{}); !errors.Is(err, types.ErrNoPathAvailable) {
		t.Errorf("Select(nil) error = %v, want ErrNoPathAvailable", err)
	}
	if _, err := Select(nil, SelectOptions{PathID: types.Int(0)}); !errors.Is(err, types.ErrPathNotFound) {
		t.Errorf("Select(nil, path_id=0) error = %v, want ErrPathNotFound", err)
	}
}

func TestSelect_ErrorEchoesHint(t *testing.T) {
	_, err := Select(ukCatalog(), SelectOptions{PreferredOps: []string{"OSTN", "NADCON"}})

	var pnf *types.PathNotFoundError
	if !errors.As(err, &pnf) {
		t.Fatalf("Select() error = %v, want *PathNotFoundError", err)
	}
	if !reflect.DeepEqual(pnf.PreferredOps, []string{"OSTN", "NADCON"}) {
		t.Errorf("PreferredOps = %v, want echoed hints", pnf.PreferredOps)
	}
	if pnf.PathID != nil {
		t.Errorf("PathID = %v, want nil", *pnf.PathID)
	}

	_, err = Select(ukCatalog(), SelectOptions{PathID: types.Int(7)})
	if !errors.As(err, &pnf) || pnf.PathID == nil || *pnf.PathID != 7 {
		t.Errorf("Select() error = %v, want path id 7 echoed", err)
	}
}

// Property-based test: path_id selection is catalog indexing.
func TestSelect_PropertyPathID(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("select(k) == catalog[k] in range, PathNotFound outside", prop.ForAll(
		func(n int, k int) bool {
			catalog := make([]types.PathDescriptor, n)
			for i := range catalog {
				catalog[i] = path(i, types.Float64(float64(i)), "Helmert")
			}
			got, err := Select(catalog, SelectOptions{PathID: types.Int(k)})
			if k >= 0 && k < n {
				return err == nil && reflect.DeepEqual(got, catalog[k])
			}
			return errors.Is(err, types.ErrPathNotFound)
		},
		gen.IntRange(0, 15),
		gen.IntRange(-3, 18),
	))

	properties.Property("preferred ops picks the first qualifying entry", prop.ForAll(
		func(mask []bool) bool {
			catalog := make([]types.PathDescriptor, len(mask))
			first := -1
			for i, hasGrid := range mask {
				if hasGrid {
					catalog[i] = path(i, types.Float64(float64(i)), "NTv2")
					if first < 0 {
						first = i
					}
				} else {
					catalog[i] = path(i, types.Float64(float64(i)), "Helmert")
				}
			}
			got, err := Select(catalog, SelectOptions{PreferredOps: []string{"NTV2"}})
			if first < 0 {
				return errors.Is(err, types.ErrPathNotFound)
			}
			return err == nil && got.PathID == first
		},
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}
