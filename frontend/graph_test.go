package frontend

import (
	"testing"

	"github.com/cottand/rowfx/frontend/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callOf(name string) ir.Expr {
	return &ir.Call{Func: &ir.Var{Name: name}}
}

func fn(name string, body ...ir.Expr) *ir.FuncDecl {
	return &ir.FuncDecl{Name: name, Body: &ir.Block{Exprs: body}}
}

func TestCalleesRespectShadowing(t *testing.T) {
	isFunction := func(name string) bool { return name == "g" || name == "h" }

	shadowed := &ir.FuncDecl{
		Name: "f",
		Body: &ir.Let{Name: "g", Value: &ir.Literal{Syntax: "1"}, Body: callOf("g")},
	}
	assert.Empty(t, callees(shadowed, isFunction))

	byParam := &ir.FuncDecl{Name: "f", Params: []ir.Param{{Name: "h"}}, Body: callOf("h")}
	assert.Empty(t, callees(byParam, isFunction))

	byLambda := fn("f", &ir.Lambda{Params: []ir.Param{{Name: "g"}}, Body: callOf("g")}, callOf("h"), callOf("g"), callOf("h"))
	assert.Equal(t, []string{"h", "g"}, callees(byLambda, isFunction))

	byClause := &ir.FuncDecl{Name: "f", Body: &ir.Handle{
		Body:    callOf("h"),
		Clauses: []*ir.Clause{{Effect: "E", Op: "op", Params: []ir.Param{{Name: "g"}}, Body: callOf("g")}},
	}}
	assert.Equal(t, []string{"h"}, callees(byClause, isFunction))
}

func TestDependencyGroupsAndWaves(t *testing.T) {
	prog := &ir.Program{Functions: []*ir.FuncDecl{
		fn("a", callOf("b")),
		fn("b", callOf("c")),
		fn("c"),
		fn("d"),
		fn("even", callOf("odd")),
		fn("odd", callOf("even"), callOf("c")),
		fn("loop", callOf("loop")),
	}}

	groups := dependencyGroups(prog)
	var names [][]string
	for _, g := range groups {
		names = append(names, g.names())
	}
	assert.Equal(t, [][]string{{"c"}, {"b"}, {"a"}, {"d"}, {"even", "odd"}, {"loop"}}, names)

	recursive := make(map[string]bool)
	for _, g := range groups {
		recursive[g.names()[0]] = g.recursive
	}
	assert.Equal(t, map[string]bool{"c": false, "b": false, "a": false, "d": false, "even": true, "loop": true}, recursive)

	var waveNames [][]string
	for _, wave := range waves(groups) {
		var names []string
		for _, g := range wave {
			names = append(names, g.names()[0])
		}
		waveNames = append(waveNames, names)
	}
	require.Len(t, waveNames, 3)
	assert.Equal(t, []string{"c", "d", "loop"}, waveNames[0])
	assert.Equal(t, []string{"b", "even"}, waveNames[1])
	assert.Equal(t, []string{"a"}, waveNames[2])
}
