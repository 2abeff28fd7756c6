package rowfx_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/cottand/rowfx/frontend/strategy"
	"github.com/cottand/rowfx/rowfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeter = `prelude: true
functions:
  - name: greet
    params: [name]
    effects: "{Console}"
    body:
      perform: Console.print
      args: [name]
  - name: main
    body:
      handle:
        call: greet
        args: ["world"]
      with:
        - op: Console.print
          params: [s]
          body:
            resume: {lit: "()", type: Unit}
        - op: Console.read_line
          body:
            resume: {lit: "x", type: String}
`

func TestRun(t *testing.T) {
	fsys := fstest.MapFS{"greeter.yaml": {Data: []byte(greeter)}}
	out, err := rowfx.Run(context.Background(), fsys, "greeter.yaml", rowfx.DefaultSettings())
	require.NoError(t, err)
	assert.False(t, out.Cached)
	require.NotNil(t, out.Result)

	report := out.Report
	assert.False(t, report.Failed)
	assert.Empty(t, report.Diagnostics)
	assert.Equal(t, [][]string{{"greet"}, {"main"}}, report.Groups)

	greet, ok := report.Function("greet")
	require.True(t, ok)
	assert.Equal(t, "{Console}", greet.Row)
	require.Len(t, greet.Nodes, 1)
	assert.Equal(t, "Console.print", greet.Nodes[0].Node)
	assert.Equal(t, strategy.EvidencePassing, *greet.Nodes[0].Strategy)

	main, ok := report.Function("main")
	require.True(t, ok)
	assert.Equal(t, "{}", main.Row)
	require.Len(t, main.Handlers, 1)
	assert.Equal(t, []string{"Console"}, main.Handlers[0].Eliminated)
	assert.Equal(t, strategy.EvidencePassing, main.Handlers[0].Clauses[0].Strategy)
}

func TestRunCached(t *testing.T) {
	ctx := context.Background()
	fsys := fstest.MapFS{"greeter.yaml": {Data: []byte(greeter)}}
	settings := rowfx.DefaultSettings()
	settings.Cache = filepath.Join(t.TempDir(), "cache.db")

	first, err := rowfx.Run(ctx, fsys, "greeter.yaml", settings)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	settings.Workers = 3
	second, err := rowfx.Run(ctx, fsys, "greeter.yaml", settings)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Nil(t, second.Result)

	want, err := first.Report.Marshal()
	require.NoError(t, err)
	got, err := second.Report.Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	settings.RowVariance = "invariant"
	third, err := rowfx.Run(ctx, fsys, "greeter.yaml", settings)
	require.NoError(t, err)
	assert.False(t, third.Cached)
}

func TestRunCacheKeyedByPath(t *testing.T) {
	ctx := context.Background()
	src := []byte("functions:\n  - name: f\n    body: {perform: Nope.op}\n")
	fsys := fstest.MapFS{"a.yaml": {Data: src}, "b.yaml": {Data: src}}
	settings := rowfx.DefaultSettings()
	settings.Cache = filepath.Join(t.TempDir(), "cache.db")

	first, err := rowfx.Run(ctx, fsys, "a.yaml", settings)
	require.NoError(t, err)
	require.NotEmpty(t, first.Report.Diagnostics)
	assert.Contains(t, first.Report.Diagnostics[0].At, "a.yaml")

	second, err := rowfx.Run(ctx, fsys, "b.yaml", settings)
	require.NoError(t, err)
	assert.False(t, second.Cached)
	require.NotEmpty(t, second.Report.Diagnostics)
	assert.Contains(t, second.Report.Diagnostics[0].At, "b.yaml")

	again, err := rowfx.Run(ctx, fsys, "a.yaml", settings)
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestRunErrors(t *testing.T) {
	fsys := fstest.MapFS{"broken.yaml": {Data: []byte("functions: {}\n")}}
	_, err := rowfx.Run(context.Background(), fsys, "broken.yaml", rowfx.DefaultSettings())
	assert.ErrorContains(t, err, "expected functions to be a list")

	_, err = rowfx.Run(context.Background(), fsys, "missing.yaml", rowfx.DefaultSettings())
	assert.ErrorContains(t, err, "reading program missing.yaml")
}
