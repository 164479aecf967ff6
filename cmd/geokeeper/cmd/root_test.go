package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    zerolog.Level
		wantErr bool
	}{
		{"json info", "info", "json", zerolog.InfoLevel, false},
		{"text debug", "debug", "text", zerolog.DebugLevel, false},
		{"upper case", "WARN", "JSON", zerolog.WarnLevel, false},
		{"bad level", "loud", "json", zerolog.NoLevel, true},
		{"empty level", "", "json", zerolog.NoLevel, true},
		{"bad format", "info", "xml", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := newLogger(&buf, tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNewLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "info", "json")
	require.NoError(t, err)

	l.Debug().Msg("hidden")
	l.Info().Str("pair", "EPSG:4277->EPSG:4326").Msg("visible")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "visible", line["message"])
	assert.Equal(t, "EPSG:4277->EPSG:4326", line["pair"])
}

// run executes the root command against a temporary catalog and returns stdout.
func run(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append([]string{"--db-url", "sqlite://" + dbPath, "--log-level", "error"}, args...))
	require.NoError(t, rootCmd.Execute(), "geokeeper %s", strings.Join(args, " "))
	return out.String()
}

const irishCatalog = `crs:
  - code: "EPSG:4173"
    name: IRENET95
    kind: geographic
    datum: IRENET95
    ellipsoid: GRS 1980
    semi_major: 6378137
    inv_flattening: 298.257222101
    towgs84: {}
operations: []
`

func TestCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "geokeeper.db")

	out := run(t, dbPath, "migrate", "up")
	assert.Equal(t, "applied 2 migration(s)\n", out)

	out = run(t, dbPath, "migrate", "status")
	assert.Contains(t, out, "001_initial_schema.sql")
	assert.Contains(t, out, "002_seed_reference_catalog.sql")

	out = run(t, dbPath, "paths", "EPSG:4277", "EPSG:4326")
	assert.Contains(t, out, "OSGB36 to WGS 84 (6)")
	assert.Contains(t, out, "unknown")

	var direct struct {
		Position struct{ X, Y float64 } `json:"position"`
	}
	out = run(t, dbPath, "transform", "EPSG:4326", "EPSG:32631", "3", "0")
	require.NoError(t, json.Unmarshal([]byte(out), &direct), out)
	assert.InDelta(t, 500000, direct.Position.X, 1e-3)
	assert.InDelta(t, 0, direct.Position.Y, 1e-3)

	file := filepath.Join(t.TempDir(), "irish.yaml")
	require.NoError(t, os.WriteFile(file, []byte(irishCatalog), 0o644))
	out = run(t, dbPath, "catalog", "import", file)
	assert.Equal(t, "imported 1 CRS definition(s) and 0 operation(s)\n", out)
}
