package backend_test

import (
	"context"
	"testing"

	"github.com/cottand/rowfx/backend"
	"github.com/cottand/rowfx/frontend"
	"github.com/cottand/rowfx/frontend/strategy"
	"github.com/cottand/rowfx/rowfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const program = `prelude: true
functions:
  - name: apply
    params:
      - name: f
        type: "Fn() -> Unit !r"
    effects: r
    body:
      call: f
  - name: broken
    body:
      perform: Nope.op
  - name: pure
    body: 1
`

func emit(t *testing.T, workers int) *backend.Report {
	t.Helper()
	prog, err := rowfx.ParseProgram([]byte(program), "prog.yaml", nil)
	require.NoError(t, err)
	settings := rowfx.DefaultSettings()
	settings.Workers = workers
	fs, err := settings.Frontend()
	require.NoError(t, err)
	result, err := frontend.InferProgram(context.Background(), prog, fs)
	require.NoError(t, err)
	return backend.Emit(result)
}

func TestEmit(t *testing.T) {
	report := emit(t, 1)
	assert.Equal(t, backend.ReportVersion, report.Version)
	assert.Equal(t, "prog", report.Program)
	assert.True(t, report.Failed)

	var names []string
	for _, fn := range report.Functions {
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"apply", "broken", "pure"}, names)

	apply, ok := report.Function("apply")
	require.True(t, ok)
	assert.Equal(t, "r", apply.Row)
	assert.Contains(t, apply.Signature, "forall r.")
	assert.False(t, apply.Poisoned)
	require.Len(t, apply.Nodes, 1)
	assert.Equal(t, "call f", apply.Nodes[0].Node)
	assert.Equal(t, "r", apply.Nodes[0].Row)
	assert.Equal(t, strategy.FullCPS, *apply.Nodes[0].Strategy)
	assert.Equal(t, "prog.yaml:9:7", apply.Nodes[0].At)

	broken, ok := report.Function("broken")
	require.True(t, ok)
	assert.True(t, broken.Poisoned)

	pure, ok := report.Function("pure")
	require.True(t, ok)
	assert.Equal(t, "{}", pure.Row)
	assert.Empty(t, pure.Nodes)

	require.Len(t, report.Diagnostics, 1)
	diag := report.Diagnostics[0]
	assert.Equal(t, "error", diag.Severity)
	assert.Equal(t, "UndefinedEffect", diag.Code)
	assert.Equal(t, "prog.yaml:12:7", diag.At)
	assert.Contains(t, diag.Message, "Nope")

	_, ok = report.Function("missing")
	assert.False(t, ok)
}

func TestEmitIsDeterministic(t *testing.T) {
	want, err := emit(t, 1).Marshal()
	require.NoError(t, err)
	for range 5 {
		got, err := emit(t, 8).Marshal()
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
}

func TestMarshalReport(t *testing.T) {
	report := emit(t, 1)
	data, err := report.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "strategy: FullCPS")

	decoded, err := backend.UnmarshalReport(data)
	require.NoError(t, err)
	assert.Equal(t, report.Functions[0].Nodes, decoded.Functions[0].Nodes)
	assert.Equal(t, report.Diagnostics, decoded.Diagnostics)
	assert.Equal(t, report.Groups, decoded.Groups)

	_, err = backend.UnmarshalReport([]byte("version: \"0\"\nprogram: p\n"))
	assert.ErrorContains(t, err, `unsupported report version "0"`)

	_, err = backend.UnmarshalReport([]byte("version: [\n"))
	assert.Error(t, err)
}
