package strategy_test

import (
	"testing"

	"github.com/cottand/rowfx/frontend/ir"
	"github.com/cottand/rowfx/frontend/strategy"
	"github.com/cottand/rowfx/frontend/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type effects map[string]*ir.EffectDecl

func (e effects) Effect(name string) (*ir.EffectDecl, bool) {
	d, ok := e[name]
	return d, ok
}

var testEffects = effects{
	"Choice": {Name: "Choice", Kind: ir.MultiShot, Ops: []ir.OpDecl{{Name: "flip", Ret: &ir.TypeName{Name: "Bool"}}}},
	"Log":    {Name: "Log", Kind: ir.TailResumptive, Ops: []ir.OpDecl{{Name: "log"}}},
	"Raise":  {Name: "Raise", Kind: ir.OneShot, Ops: []ir.OpDecl{{Name: "raise"}}},
	"Async":  {Name: "Async", Kind: ir.OneShot, Ops: []ir.OpDecl{{Name: "await"}}},
	"Chan":   {Name: "Chan", Kind: ir.OneShot, Suspends: true, Ops: []ir.OpDecl{{Name: "recv"}}},
}

var config = strategy.Config{AsyncEffects: []string{"Async"}}

func lit(s string) ir.Expr       { return &ir.Literal{Syntax: s, Type: &ir.TypeName{Name: "Int"}} }
func variable(n string) *ir.Var  { return &ir.Var{Name: n} }
func resume(arg ir.Expr) ir.Expr { return &ir.Resume{Arg: arg} }
func block(es ...ir.Expr) ir.Expr {
	return &ir.Block{Exprs: es}
}
func call(f ir.Expr, args ...ir.Expr) *ir.Call {
	return &ir.Call{Func: f, Args: args}
}

func TestClassifyClauses(t *testing.T) {
	cases := map[string]struct {
		body     ir.Expr
		expected strategy.Tag
	}{
		"resume once, last": {
			body:     block(lit("1"), resume(lit("2"))),
			expected: strategy.EvidencePassing,
		},
		"resume called as a function": {
			body:     call(variable("resume"), lit("1")),
			expected: strategy.EvidencePassing,
		},
		"resume twice": {
			body:     block(resume(lit("1")), resume(lit("2"))),
			expected: strategy.FullCPS,
		},
		"resume once, then more work": {
			body:     block(resume(lit("1")), lit("2")),
			expected: strategy.LocalCPS,
		},
		"never resumes": {
			body:     lit("0"),
			expected: strategy.FullCPS,
		},
		"resumes on one branch only": {
			body:     &ir.If{Cond: lit("1"), Then: resume(nil)},
			expected: strategy.FullCPS,
		},
		"resumes last on both branches": {
			body:     &ir.If{Cond: lit("1"), Then: resume(lit("1")), Else: block(lit("3"), resume(lit("2")))},
			expected: strategy.EvidencePassing,
		},
		"resume stored in a variable": {
			body:     &ir.Let{Name: "k", Value: variable("resume"), Body: call(variable("k"), lit("1"))},
			expected: strategy.FullCPS,
		},
		"resume captured by a lambda": {
			body:     &ir.Lambda{Body: resume(lit("1"))},
			expected: strategy.FullCPS,
		},
		"resume shadowed by let": {
			body:     &ir.Let{Name: "resume", Value: resume(lit("1")), Body: call(variable("resume"))},
			expected: strategy.LocalCPS,
		},
		"resume passed to a call": {
			body:     call(variable("f"), variable("resume")),
			expected: strategy.FullCPS,
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, c.expected, strategy.Classify(c.body))
		})
	}
}

func handlerOf(clauses ...*ir.Clause) func(body ir.Expr) *ir.Handle {
	return func(body ir.Expr) *ir.Handle {
		return &ir.Handle{Body: body, Clauses: clauses}
	}
}

func TestSelectUsesEnclosingClause(t *testing.T) {
	twice := &ir.Clause{Effect: "Choice", Op: "flip", Body: block(resume(lit("1")), resume(lit("0")))}
	once := &ir.Clause{Effect: "Log", Op: "log", Body: resume(nil)}

	flip := &ir.Perform{Effect: "Choice", Op: "flip"}
	log := &ir.Perform{Effect: "Log", Op: "log"}
	decl := &ir.FuncDecl{Name: "main", Body: handlerOf(twice, once)(block(flip, log))}

	annotations := strategy.Select(decl, testEffects, nil, config)

	assert.Equal(t, strategy.FullCPS, annotations.Clauses[twice])
	assert.Equal(t, strategy.EvidencePassing, annotations.Clauses[once])
	assert.Equal(t, strategy.FullCPS, annotations.Ops[flip])
	assert.Equal(t, strategy.EvidencePassing, annotations.Ops[log])
}

func TestSelectInnermostHandlerWins(t *testing.T) {
	outer := &ir.Clause{Effect: "Log", Op: "log", Body: block(resume(nil), resume(nil))}
	inner := &ir.Clause{Effect: "Log", Op: "log", Body: resume(nil)}
	insideInner := &ir.Perform{Effect: "Log", Op: "log"}
	// performed by the inner clause, so handled by the outer handler
	fromClause := &ir.Perform{Effect: "Log", Op: "log"}
	inner.Body = block(fromClause, resume(nil))

	body := handlerOf(outer)(handlerOf(inner)(insideInner))
	annotations := strategy.Select(&ir.FuncDecl{Name: "f", Body: body}, testEffects, nil, config)

	assert.Equal(t, strategy.EvidencePassing, annotations.Ops[insideInner])
	assert.Equal(t, strategy.FullCPS, annotations.Ops[fromClause])
}

func TestSelectFallsBackOnDeclaredKind(t *testing.T) {
	cases := map[string]strategy.Tag{
		"Log":    strategy.EvidencePassing,
		"Raise":  strategy.LocalCPS,
		"Choice": strategy.FullCPS,
		"Async":  strategy.FiberSuspend,
		"Chan":   strategy.FiberSuspend,
	}
	for family, expected := range cases {
		t.Run(family, func(t *testing.T) {
			op := testEffects[family].Ops[0].Name
			perform := &ir.Perform{Effect: family, Op: op}
			annotations := strategy.Select(&ir.FuncDecl{Name: "f", Body: perform}, testEffects, nil, config)
			assert.Equal(t, expected, annotations.Ops[perform])
		})
	}
}

func TestSelectCallSites(t *testing.T) {
	pure := call(variable("pure"))
	logs := call(variable("logs"))
	both := call(variable("both"))
	poly := call(variable("poly"))
	latent := map[*ir.Call]types.Row{
		pure: types.Pure,
		logs: types.ClosedOf(types.NewEffect("Log")),
		both: types.ClosedOf(types.NewEffect("Log"), types.NewEffect("Raise")),
		poly: types.OpenOf(types.RowVar(3), types.NewEffect("Log")),
	}
	decl := &ir.FuncDecl{Name: "f", Body: block(pure, logs, both, poly)}

	annotations := strategy.Select(decl, testEffects, latent, config)

	assert.Equal(t, strategy.Direct, annotations.Calls[pure])
	assert.Equal(t, strategy.EvidencePassing, annotations.Calls[logs])
	assert.Equal(t, strategy.LocalCPS, annotations.Calls[both])
	assert.Equal(t, strategy.FullCPS, annotations.Calls[poly])
}

func TestSelectCallUnderHandler(t *testing.T) {
	clause := &ir.Clause{Effect: "Choice", Op: "flip", Body: resume(lit("1"))}
	c := call(variable("choose"))
	latent := map[*ir.Call]types.Row{c: types.ClosedOf(types.NewEffect("Choice"))}
	decl := &ir.FuncDecl{Name: "f", Body: handlerOf(clause)(c)}

	annotations := strategy.Select(decl, testEffects, latent, config)

	assert.Equal(t, strategy.EvidencePassing, annotations.Calls[c])
}

func TestTagText(t *testing.T) {
	for _, tag := range []strategy.Tag{strategy.Direct, strategy.EvidencePassing, strategy.LocalCPS, strategy.FullCPS, strategy.FiberSuspend} {
		text, err := tag.MarshalText()
		require.NoError(t, err)
		var parsed strategy.Tag
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, tag, parsed)
	}
	_, err := strategy.ParseTag("Trampoline")
	assert.Error(t, err)
	assert.Equal(t, strategy.FiberSuspend, strategy.Dominant(strategy.LocalCPS, strategy.FiberSuspend, strategy.Direct))
	assert.Equal(t, strategy.Direct, strategy.Dominant())
}

func TestSelectIgnoresHandlersAroundLambdas(t *testing.T) {
	clause := &ir.Clause{Effect: "Log", Op: "log", Body: block(resume(nil), lit("1"))}
	deferred := &ir.Perform{Effect: "Log", Op: "log"}
	direct := &ir.Perform{Effect: "Log", Op: "log"}
	decl := &ir.FuncDecl{Name: "f", Body: handlerOf(clause)(block(&ir.Lambda{Body: deferred}, direct))}

	annotations := strategy.Select(decl, testEffects, nil, config)

	assert.Equal(t, strategy.LocalCPS, annotations.Clauses[clause])
	assert.Equal(t, strategy.LocalCPS, annotations.Ops[direct])
	// the body of the lambda runs wherever it is called, so the declared kind decides
	assert.Equal(t, strategy.EvidencePassing, annotations.Ops[deferred])
}
