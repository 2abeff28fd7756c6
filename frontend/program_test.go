package frontend_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cottand/rowfx/frontend"
	"github.com/cottand/rowfx/frontend/fxerr"
	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/strategy"
	"github.com/cottand/rowfx/frontend/types"
	"github.com/cottand/rowfx/rowfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pingPong = `prelude: true
functions:
  - name: main
    body: {call: ping, args: [1]}
  - name: ping
    params: [{name: n, type: Int}]
    body:
      - perform: Console.print
        args: ["ping"]
      - call: pong
        args: [n]
  - name: pong
    params: [{name: n, type: Int}]
    body:
      - perform: IO.read
        args: ["f"]
      - call: ping
        args: [n]
`

func parse(t *testing.T, src string) *ir.Program {
	t.Helper()
	prog, err := rowfx.ParseProgram([]byte(src), "test.yaml", nil)
	require.NoError(t, err)
	return prog
}

func TestMutualRecursionConverges(t *testing.T) {
	result, err := frontend.InferProgram(context.Background(), parse(t, pingPong), frontend.Settings{})
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, [][]string{{"ping", "pong"}, {"main"}}, result.Groups)

	for _, name := range []string{"ping", "pong"} {
		sig, ok := result.Signatures.Signature(name)
		require.True(t, ok)
		assert.Equal(t, "(Int) -> Unit !{Console, IO}", sig.Canonical(), name)
	}
	sig, ok := result.Signatures.Signature("main")
	require.True(t, ok)
	assert.Equal(t, "() -> Unit !{Console, IO}", sig.Canonical())
	assert.Equal(t, 3, result.Signatures.Len())

	var ordered []string
	for _, f := range result.Ordered() {
		ordered = append(ordered, f.Decl.Name)
	}
	assert.Equal(t, []string{"main", "ping", "pong"}, ordered)
}

func TestNonConvergencePoisonsOnlyItsGroup(t *testing.T) {
	src := pingPong + `  - name: leaf
    body: {perform: IO.read, args: ["f"]}
  - name: user
    body: {call: leaf}
`
	result, err := frontend.InferProgram(context.Background(), parse(t, src), frontend.Settings{MaxGroupIterations: 1})
	require.NoError(t, err)
	assert.True(t, result.Failed())

	diags := result.Errors.Of(fxerr.NonConvergence)
	require.Len(t, diags, 1)
	assert.Equal(t, []string{"ping", "pong"}, diags[0].(fxerr.NewNonConvergence).Functions)

	// every function is still inferred
	require.Len(t, result.Functions, 5)
	for _, name := range []string{"ping", "pong"} {
		sig := result.Functions[name].Signature
		assert.True(t, sig.Poisoned, name)
		_, open := types.TailOf(sig.Row())
		assert.True(t, open, name)
	}
	assert.True(t, result.Functions["ping"].Signature.Row().Effects().Contains(types.NewEffect("Console")))
	assert.Contains(t, result.Functions["main"].Signature.String(), "Console")

	assert.False(t, result.Functions["user"].Signature.Poisoned)
	assert.Equal(t, "() -> Unit !{IO}", result.Functions["user"].Signature.String())
	assert.Equal(t, "() -> Unit !{IO}", result.Functions["leaf"].Signature.String())
	assert.NotNil(t, result.Functions["user"].Strategies)
}

func TestIndependentFunctionsInParallel(t *testing.T) {
	sb := &strings.Builder{}
	sb.WriteString("prelude: true\nfunctions:\n")
	const n = 40
	for i := 0; i < n; i++ {
		_, _ = fmt.Fprintf(sb, "  - name: f%d\n    body: {perform: Console.print, args: [\"%d\"]}\n", i, i)
	}
	sb.WriteString("  - name: all\n    body:\n")
	for i := 0; i < n; i++ {
		_, _ = fmt.Fprintf(sb, "      - call: f%d\n", i)
	}

	result, err := frontend.InferProgram(context.Background(), parse(t, sb.String()), frontend.Settings{Workers: 4})
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Len(t, result.Functions, n+1)
	assert.Len(t, result.Groups, n+1)
	assert.Equal(t, []string{"all"}, result.Groups[n])

	all := result.Functions["all"]
	assert.Equal(t, "() -> Unit !{Console}", all.Signature.String())
	assert.Equal(t, n, all.Strategies.Len())
	for _, tag := range all.Strategies.Calls {
		assert.Equal(t, strategy.EvidencePassing, tag)
	}
}

func TestSessionsDoNotShareVariables(t *testing.T) {
	prog := parse(t, `prelude: true
functions:
  - name: apply
    params: [{name: f, type: "Fn() -> Unit"}]
    body: {call: f}
`)
	a, b := frontend.NewSession(), frontend.NewSession()
	assert.NotEqual(t, a.ID, b.ID)

	_, err := a.InferProgram(context.Background(), prog, frontend.Settings{})
	require.NoError(t, err)
	assert.NotZero(t, a.Fresher.Count())
	assert.Zero(t, b.Fresher.Count())
}

func TestCancelledInference(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := frontend.InferProgram(ctx, parse(t, pingPong), frontend.Settings{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStrategiesAreSelected(t *testing.T) {
	result, err := frontend.InferProgram(context.Background(), parse(t, `prelude: true
functions:
  - name: waits
    body: {perform: Async.yield}
  - name: chooses
    body:
      handle: {perform: Choice.fail}
      with:
        - op: Choice.fail
          body:
            - resume: null
            - resume: null
`), frontend.Settings{AsyncEffects: []string{"Async"}})
	require.NoError(t, err)

	waits := result.Functions["waits"]
	require.Len(t, waits.Strategies.Ops, 1)
	for _, tag := range waits.Strategies.Ops {
		assert.Equal(t, strategy.FiberSuspend, tag)
	}
	chooses := result.Functions["chooses"]
	require.Len(t, chooses.Strategies.Clauses, 1)
	for _, tag := range chooses.Strategies.Clauses {
		assert.Equal(t, strategy.FullCPS, tag)
	}
	assert.Equal(t, "() -> Unit !{}", chooses.Signature.String())
}

func TestInvalidOptions(t *testing.T) {
	settings := frontend.Settings{}
	settings.Options.RowVariance = "sideways"
	_, err := frontend.InferProgram(context.Background(), parse(t, pingPong), settings)
	assert.Error(t, err)
}
