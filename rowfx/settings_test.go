package rowfx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cottand/rowfx/frontend"
	"github.com/cottand/rowfx/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, frontend.DefaultMaxGroupIterations, s.MaxGroupIterations)
	assert.Equal(t, types.DefaultOptions(), s.Options)
	assert.Equal(t, []string{"Async", "Channel"}, s.AsyncEffects)
	assert.Equal(t, []string{"main"}, s.EntryPoints)
	assert.Empty(t, s.Cache)
	assert.NoError(t, s.Validate())
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings([]byte(`
workers: 4
max_group_iterations: 3
row_variance: invariant
handler_coverage: complete
entry_points: [run, serve]
entry_allowed_effects: [Console, "State[Int]"]
`), "rowfx.yaml")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Workers)
	assert.Equal(t, 3, s.MaxGroupIterations)
	assert.Equal(t, types.Invariant, s.RowVariance)
	assert.Equal(t, types.TransparentAliases, s.EffectAliases)
	assert.Equal(t, types.CompleteCoverage, s.HandlerCoverage)
	assert.Equal(t, []string{"Async", "Channel"}, s.AsyncEffects)

	fs, err := s.Frontend()
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "serve"}, fs.EntryPoints)
	assert.Equal(t, []types.Effect{types.NewEffect("Console"), types.NewEffect("State", "Int")}, fs.EntryAllowed)
}

func TestParseEmptySettings(t *testing.T) {
	s, err := ParseSettings([]byte("\n"), "rowfx.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), *s)
}

func TestParseSettingsErrors(t *testing.T) {
	tests := []struct {
		name, src, contains string
	}{
		{"unknown field", "wokers: 2\n", "wokers"},
		{"negative workers", "workers: -1\n", "workers must not be negative"},
		{"negative iterations", "max_group_iterations: -2\n", "max_group_iterations must not be negative"},
		{"variance", "row_variance: sideways\n", `unknown row variance "sideways"`},
		{"coverage", "handler_coverage: most\n", `unknown handler coverage "most"`},
		{"aliases", "effect_aliases: opaque\n", `unknown effect alias mode "opaque"`},
		{"allowed effect", "entry_allowed_effects: [\"State[Int\"]\n", "entry_allowed_effects[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings([]byte(tt.src), "rowfx.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
			assert.Contains(t, err.Error(), "rowfx.yaml")
		})
	}
}

func TestFindSettings(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := FindSettings(nested)
	require.NoError(t, err)
	// a rowfx.yaml above the temp dir would be found too
	if found != "" {
		assert.NotContains(t, found, root)
	}

	path := filepath.Join(root, SettingsFile)
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0o644))
	found, err = FindSettings(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	s, err := LoadSettings(found)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Workers)

	_, err = LoadSettings(filepath.Join(root, "missing.yaml"))
	assert.Error(t, err)
}
