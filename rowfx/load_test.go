package rowfx

import (
	"go/token"
	"testing"
	"testing/fstest"

	"github.com/cottand/rowfx/frontend/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `format: "1.0"
name: sample
prelude: true
effects:
  - name: Log
    kind: one-shot
    type_params: [L]
    ops:
      - name: log
        params: [L]
        ret: Unit
aliases:
  - name: Noisy
    effects: "{Console, Log[String]}"
functions:
  - name: run
    params:
      - name: f
        type: "Fn() -> Unit !e"
    effects: "{Noisy | e}"
    where:
      e: "{IO}"
    body:
      - call: f
      - perform: Log.log
        type_args: [String]
        args: ["hello"]
      - let: x
        value: 42
        in: x
`

func TestParseProgram(t *testing.T) {
	fset := token.NewFileSet()
	prog, err := ParseProgram([]byte(sample), "sample.yaml", fset)
	require.NoError(t, err)
	assert.Equal(t, "sample", prog.Name)
	assert.Same(t, fset, prog.FileSet)

	var names []string
	for _, e := range prog.Effects {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "Console")
	assert.Equal(t, "Log", names[len(names)-1])
	log := prog.Effects[len(prog.Effects)-1]
	assert.Equal(t, ir.OneShot, log.Kind)
	op, ok := log.Op("log")
	require.True(t, ok)
	assert.IsType(t, &ir.TypeVar{}, op.Params[0])

	require.Len(t, prog.Aliases, 1)
	assert.Equal(t, "Log[String]", prog.Aliases[0].Effects[1].String())

	run, ok := prog.Function("run")
	require.True(t, ok)
	assert.Equal(t, "{Noisy | e}", run.Effects.String())
	require.Len(t, run.Bounds, 1)
	assert.Equal(t, "e", run.Bounds[0].Var)

	block := run.Body.(*ir.Block)
	require.Len(t, block.Exprs, 3)
	perform := block.Exprs[1].(*ir.Perform)
	assert.Equal(t, "Log.log", perform.QualifiedOp())
	assert.Equal(t, 25, fset.Position(perform.Pos()).Line)
	assert.Equal(t, 9, fset.Position(perform.Pos()).Column)

	let := block.Exprs[2].(*ir.Let)
	lit := let.Value.(*ir.Literal)
	assert.Equal(t, "Int", ir.TypeString(lit.Type))
	assert.Equal(t, "x", let.Body.(*ir.Var).Name)
}

func TestOwnEffectsReplacePrelude(t *testing.T) {
	prog, err := ParseProgram([]byte(`prelude: true
effects:
  - name: Console
    ops:
      - name: shout
        ret: Unit
`), "own.yaml", nil)
	require.NoError(t, err)
	var consoles []*ir.EffectDecl
	for _, e := range prog.Effects {
		if e.Name == "Console" {
			consoles = append(consoles, e)
		}
	}
	require.Len(t, consoles, 1)
	_, ok := consoles[0].Op("shout")
	assert.True(t, ok)
}

func TestPrelude(t *testing.T) {
	byName := make(map[string]*ir.EffectDecl)
	for _, e := range Prelude() {
		byName[e.Name] = e
	}
	for _, name := range []string{"IO", "Console", "Exception", "Async", "Cancel", "State", "Reader", "Choice", "Channel"} {
		assert.Contains(t, byName, name)
	}
	assert.True(t, byName["Async"].Suspends)
	assert.Equal(t, ir.MultiShot, byName["Choice"].Kind)
	assert.Equal(t, []string{"S"}, byName["State"].TypeParams)
}

func TestParseProgramErrors(t *testing.T) {
	tests := []struct {
		name, src, contains string
	}{
		{"empty", "", "empty program"},
		{"unknown field", "functions: []\nfunction: []\n", `unknown field "function"`},
		{"future format", "format: \"2.0\"\n", "unsupported format"},
		{"bad format", "format: banana\n", "invalid format version"},
		{"bad kind", "effects:\n  - name: E\n    kind: sometimes\n", `unknown kind "sometimes"`},
		{"duplicate function", "functions:\n  - name: f\n  - name: f\n", "declared twice"},
		{"open alias", "aliases:\n  - name: A\n    effects: \"{IO | e}\"\n", "closed row"},
		{"bad op", "functions:\n  - name: f\n    body: {perform: nodot}\n", "expected Effect.op"},
		{"bad type", "functions:\n  - name: f\n    ret: \"List[\"\n", "invalid type"},
		{"no keyword", "functions:\n  - name: f\n    body: {nonsense: 1}\n", "expected an expression"},
		{"open bound", "functions:\n  - name: f\n    where: {e: \"{IO | e}\"}\n", "closed row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProgram([]byte(tt.src), "bad.yaml", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoadProgram(t *testing.T) {
	fsys := fstest.MapFS{"dir/prog.yaml": {Data: []byte("functions:\n  - name: f\n")}}
	prog, err := LoadProgram(fsys, "dir/prog.yaml")
	require.NoError(t, err)
	assert.Equal(t, "dir/prog", prog.Name)
	require.Len(t, prog.Functions, 1)

	_, err = LoadProgram(fsys, "missing.yaml")
	assert.Error(t, err)
}
