package ir

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
)

// Expr is the base for all expressions of the typed AST.
//
// The following expressions are supported:
//
//	Literal:   opaque literal value
//	Var:       variable, local or top-level
//	Perform:   use of an effect operation, F.op(args)
//	Call:      function application, f(args)
//	Lambda:    function literal
//	Let:       let binding, let x = v in body
//	Block:     sequence, whose value is the last expression
//	If:        conditional
//	Handle:    handle body with clauses
//	Resume:    resume(arg), only within an operation clause
//	Ascribe:   expression annotated with an effect row
type Expr interface {
	Positioner
	// Hash identifies the expression, including its position
	Hash() uint64
	// Describe is what to call this expression in error messages
	Describe() string
	exprNode()
}

type Literal struct {
	Range
	Syntax string
	Type   Type
}

type Var struct {
	Range
	Name string
}

type Perform struct {
	Range
	Effect   string
	TypeArgs []Type
	Op       string
	Args     []Expr
}

type Call struct {
	Range
	Func Expr
	Args []Expr
}

type Param struct {
	Range
	Name string
	Type Type
}

type Lambda struct {
	Range
	Params []Param
	Body   Expr
	// Effects is the optional annotation of the latent row of the lambda
	Effects *RowAnnotation
}

type Let struct {
	Range
	Name  string
	Value Expr
	Body  Expr
}

type Block struct {
	Range
	Exprs []Expr
}

type If struct {
	Range
	Cond Expr
	Then Expr
	// Else may be nil
	Else Expr
}

type Handle struct {
	Range
	Body    Expr
	Clauses []*Clause
	// Return may be nil, in which case the value of Body is returned as-is
	Return *ReturnClause
	// BodyType is the value type of Body, when known
	BodyType Type
}

// Clause is a handler clause for operation Effect.Op.
// Without TypeArgs, it handles every instantiation of Effect
type Clause struct {
	Range
	Effect   string
	TypeArgs []Type
	Op       string
	Params   []Param
	Body     Expr
	// Type is the value type of Body, when known
	Type Type
}

type ReturnClause struct {
	Range
	Param Param
	Body  Expr
	Type  Type
}

type Resume struct {
	Range
	// Arg may be nil, for resume()
	Arg Expr
}

type Ascribe struct {
	Range
	Expr    Expr
	Effects RowAnnotation
}

func (*Literal) exprNode() {}
func (*Var) exprNode()     {}
func (*Perform) exprNode() {}
func (*Call) exprNode()    {}
func (*Lambda) exprNode()  {}
func (*Let) exprNode()     {}
func (*Block) exprNode()   {}
func (*If) exprNode()      {}
func (*Handle) exprNode()  {}
func (*Resume) exprNode()  {}
func (*Ascribe) exprNode() {}

func (*Literal) Describe() string { return "literal" }
func (*Var) Describe() string     { return "variable" }
func (*Perform) Describe() string { return "effect operation" }
func (*Call) Describe() string    { return "function call" }
func (*Lambda) Describe() string  { return "function" }
func (*Let) Describe() string     { return "let binding" }
func (*Block) Describe() string   { return "block" }
func (*If) Describe() string      { return "if expression" }
func (*Handle) Describe() string  { return "handle expression" }
func (*Resume) Describe() string  { return "resume" }
func (*Ascribe) Describe() string { return "effect annotation" }

// QualifiedOp is the Effect.op name of the operation
func (e *Perform) QualifiedOp() string { return e.Effect + "." + e.Op }

func (c *Clause) QualifiedOp() string { return c.Effect + "." + c.Op }

type hasher struct {
	h   hash.Hash64
	arr []byte
}

func newHasher(kind string, r Range) *hasher {
	h := &hasher{h: fnv.New64a(), arr: []byte(kind)}
	h.arr = binary.LittleEndian.AppendUint64(h.arr, r.Hash())
	return h
}

func (h *hasher) str(s ...string) *hasher {
	for _, str := range s {
		_, _ = h.h.Write([]byte(str))
	}
	return h
}

func (h *hasher) expr(e ...Expr) *hasher {
	for _, expr := range e {
		if expr != nil {
			h.arr = binary.LittleEndian.AppendUint64(h.arr, expr.Hash())
		}
	}
	return h
}

func (h *hasher) types(t ...Type) *hasher {
	for _, typ := range t {
		h.str(TypeString(typ))
	}
	return h
}

func (h *hasher) params(ps ...Param) *hasher {
	for _, p := range ps {
		h.str(p.Name).types(p.Type)
	}
	return h
}

func (h *hasher) sum() uint64 {
	_, _ = h.h.Write(h.arr)
	return h.h.Sum64()
}

func (e *Literal) Hash() uint64 { return newHasher("Literal", e.Range).str(e.Syntax).sum() }
func (e *Var) Hash() uint64     { return newHasher("Var", e.Range).str(e.Name).sum() }
func (e *Perform) Hash() uint64 {
	return newHasher("Perform", e.Range).str(e.Effect, e.Op).types(e.TypeArgs...).expr(e.Args...).sum()
}
func (e *Call) Hash() uint64 {
	return newHasher("Call", e.Range).expr(e.Func).expr(e.Args...).sum()
}
func (e *Lambda) Hash() uint64 {
	h := newHasher("Lambda", e.Range).params(e.Params...).expr(e.Body)
	if e.Effects != nil {
		h.str(e.Effects.String())
	}
	return h.sum()
}
func (e *Let) Hash() uint64 {
	return newHasher("Let", e.Range).str(e.Name).expr(e.Value, e.Body).sum()
}
func (e *Block) Hash() uint64 { return newHasher("Block", e.Range).expr(e.Exprs...).sum() }
func (e *If) Hash() uint64 {
	return newHasher("If", e.Range).expr(e.Cond, e.Then, e.Else).sum()
}
func (e *Handle) Hash() uint64 {
	h := newHasher("Handle", e.Range).expr(e.Body)
	for _, c := range e.Clauses {
		h.str(c.Effect, c.Op).types(c.TypeArgs...).params(c.Params...).expr(c.Body)
	}
	if e.Return != nil {
		h.str("return").params(e.Return.Param).expr(e.Return.Body)
	}
	return h.sum()
}
func (e *Resume) Hash() uint64 { return newHasher("Resume", e.Range).expr(e.Arg).sum() }
func (e *Ascribe) Hash() uint64 {
	return newHasher("Ascribe", e.Range).str(e.Effects.String()).expr(e.Expr).sum()
}
