package ir

import (
	"go/token"
	"slices"
)

// ResumeKind is how an effect's operations are declared to resume
type ResumeKind string

const (
	TailResumptive ResumeKind = "tail-resumptive"
	OneShot        ResumeKind = "one-shot"
	MultiShot      ResumeKind = "multi-shot"
)

// EffectDecl declares an effect family and its operations
type EffectDecl struct {
	Range
	Name       string
	TypeParams []string
	Ops        []OpDecl
	Kind       ResumeKind
	// Suspends marks the family as handled by fiber suspension at runtime
	Suspends bool
}

type OpDecl struct {
	Range
	Name   string
	Params []Type
	Ret    Type
}

func (d *EffectDecl) Op(name string) (OpDecl, bool) {
	i := slices.IndexFunc(d.Ops, func(op OpDecl) bool { return op.Name == name })
	if i < 0 {
		return OpDecl{}, false
	}
	return d.Ops[i], true
}

// EffectAlias names a row of effects, like `effect Stateful = {State[Int], Console}`
type EffectAlias struct {
	Range
	Name    string
	Effects []EffectRef
}

// Bound is a `where Var: subset_of(Effects)` clause
type Bound struct {
	Range
	Var     string
	Effects RowAnnotation
}

// FuncDecl is a top-level function. Effects is the declared row, if there is one
type FuncDecl struct {
	Range
	Name    string
	Params  []Param
	Ret     Type
	Effects *RowAnnotation
	Bounds  []Bound
	Body    Expr
	// Entry marks program entry points, whose row has to be closed
	Entry bool
}

func (d *FuncDecl) Describe() string { return "function " + d.Name }

// Program is a compilation unit
type Program struct {
	Name      string
	Effects   []*EffectDecl
	Aliases   []*EffectAlias
	Functions []*FuncDecl
	// FileSet resolves the positions of every node in the program
	FileSet *token.FileSet
}

func (p *Program) Function(name string) (*FuncDecl, bool) {
	i := slices.IndexFunc(p.Functions, func(d *FuncDecl) bool { return d.Name == name })
	if i < 0 {
		return nil, false
	}
	return p.Functions[i], true
}
